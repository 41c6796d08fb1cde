package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/scheduler"
	"github.com/san-kum/orbview/internal/viz"
)

var helpKeys = [][2]string{
	{"w a s d", "pan"},
	{"e / -", "zoom in / out"},
	{"click", "select body"},
	{"tab", "next body"},
	{"esc", "clear selection"},
	{"f", "follow selected"},
	{"v h g", "vector / heatmap / lagrange"},
	{"l", "labels"},
	{"x", "clear trails"},
	{"[ ]", "time scale"},
	{"c", "capture fields"},
	{"t", "theme"},
	{"q", "quit"},
}

func (m Model) View() string {
	var panel string
	if m.showHelp {
		panel = m.viewHelp()
	} else {
		panel = m.viewPanel()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.canvas.Render(), " ", panel)
}

func (m Model) viewHelp() string {
	var b strings.Builder
	b.WriteString(viz.GradientText("KEYS", m.theme.Primary, m.theme.Secondary) + "\n\n")
	for _, k := range helpKeys {
		b.WriteString(viz.MetricValue.Render(fmt.Sprintf("%-8s", k[0])) + " " + viz.Subtle.Render(k[1]) + "\n")
	}
	b.WriteString("\n" + viz.KeyHint.Render("? close"))
	return viz.GlassPanel.Width(panelWidth - 2).Render(b.String())
}

func row(label, value string) string {
	return viz.MetricLabel.Render(label) + viz.MetricValue.Render(value) + "\n"
}

func (m Model) viewPanel() string {
	w := panelWidth - 4
	var b strings.Builder

	b.WriteString(viz.GradientText("ORBVIEW", m.theme.Primary, m.theme.Secondary) + "\n")
	switch {
	case m.connErr != nil:
		b.WriteString(viz.StatusError.Render("● offline") + "\n")
	case m.sess.Cache().Len() == 0:
		b.WriteString(viz.StatusPaused.Render("● waiting") + "\n")
	default:
		b.WriteString(viz.StatusRunning.Render("● live") + "\n")
	}
	b.WriteString(viz.Separator(w) + "\n")

	b.WriteString(row("time", m.sess.SimTime()))
	b.WriteString(row("scale", fmt.Sprintf("x%g", m.sess.TimeScale())))
	b.WriteString(row("bodies", fmt.Sprintf("%d", m.sess.Cache().Len())))
	b.WriteString(row("m/px", fmt.Sprintf("%.3g", m.sess.Camera().Scale)))
	if name, ok := m.sess.Followed(); ok {
		b.WriteString(row("follow", name))
	}
	b.WriteString(viz.Separator(w) + "\n")

	if info, ok := m.sess.Info(); ok {
		b.WriteString(viz.HeaderStyle.Render(info.Name) + "\n")
		b.WriteString(row("dist", fmt.Sprintf("%.4f AU", info.DistPrimaryAU)))
		if info.HasEarth {
			b.WriteString(row("earth", fmt.Sprintf("%.4f AU", info.DistEarthAU)))
		}
		b.WriteString(row("speed", fmt.Sprintf("%.2f km/s", info.Speed/1e3)))
		b.WriteString(row("accel", fmt.Sprintf("%.3e m/s²", info.Accel)))
		b.WriteString(row("mass", fmt.Sprintf("%.3e kg", info.Mass)))
		b.WriteString(row("diameter", fmt.Sprintf("%.0f km", info.Diameter/1e3)))
		if h := m.sess.History(); len(h) >= 2 {
			chart := asciigraph.Plot(h, asciigraph.Height(4), asciigraph.Width(w-10), asciigraph.Caption("|a|"))
			b.WriteString(lipgloss.NewStyle().Foreground(m.theme.Secondary).Render(chart) + "\n")
		}
	} else {
		b.WriteString(viz.Subtle.Render("no selection") + "\n")
	}
	b.WriteString(viz.Separator(w) + "\n")

	for _, kind := range field.Kinds {
		b.WriteString(m.fieldLine(m.sess.Scheduler().State(kind)))
	}

	if m.status != "" {
		b.WriteString("\n" + viz.Subtle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + viz.KeyHint.Render("? help"))
	return viz.GlassPanel.Width(panelWidth - 2).Render(b.String())
}

func (m Model) fieldLine(st scheduler.SlotState) string {
	var state string
	switch {
	case !st.Enabled:
		state = viz.Subtle.Render("off")
	case st.LastError != nil:
		state = viz.StatusError.Render("error")
	case st.Busy():
		state = viz.StatusPaused.Render(viz.AnimatedSpinner(m.frame) + " " + st.Phase.String())
	case st.Dirty:
		state = viz.StatusPaused.Render("stale")
	default:
		state = viz.StatusRunning.Render("ok")
	}
	return viz.MetricLabel.Render(st.Kind.String()) + state + "\n"
}
