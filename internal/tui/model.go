package tui

import (
	"context"
	"fmt"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/config"
	"github.com/san-kum/orbview/internal/export"
	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/remote"
	"github.com/san-kum/orbview/internal/session"
	"github.com/san-kum/orbview/internal/storage"
	"github.com/san-kum/orbview/internal/viz"
)

const (
	frameRate  = 30
	panelWidth = 36
	minCols    = 10
	minRows    = 4
)

// Backend is the part of the simulation service the terminal client talks
// to directly. Field queries go through the session's dispatchers instead.
type Backend interface {
	State(ctx context.Context) ([]bodies.Body, error)
	Time(ctx context.Context) (remote.SimTime, error)
	SetTimeScale(ctx context.Context, scale float64) error
}

type TickMsg time.Time

type pollMsg struct {
	bodies  []bodies.Body
	simTime remote.SimTime
	err     error
	timeErr error
}

type scaleMsg struct {
	scale float64
	err   error
}

type Options struct {
	Config  *config.Config
	Session *session.Session
	Backend Backend
	// Store receives captures; nil disables the capture key.
	Store  *storage.Store
	Logger logrus.FieldLogger
}

// Model is the bubbletea program state. Mutable simulation state lives in
// the session; the model owns the terminal layout.
type Model struct {
	cfg     *config.Config
	sess    *session.Session
	backend Backend
	store   *storage.Store
	log     logrus.FieldLogger

	theme         viz.Theme
	canvas        *viz.Canvas
	width, height int
	frame         int
	showHelp      bool

	polling  bool
	lastPoll time.Time
	connErr  error
	status   string
}

func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	m := Model{
		cfg:     opts.Config,
		sess:    opts.Session,
		backend: opts.Backend,
		store:   opts.Store,
		log:     opts.Logger,
		theme:   viz.GetTheme(opts.Config.View.Theme),
	}
	m.layout(80, 24)
	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// layout sizes the canvas to the terminal, leaving room for the side panel.
func (m *Model) layout(w, h int) {
	m.width, m.height = w, h
	cols := max(w-panelWidth-2, minCols)
	rows := max(h-1, minRows)
	if m.canvas != nil && m.canvas.Width == cols && m.canvas.Height == rows {
		return
	}
	m.canvas = viz.NewCanvas(cols, rows)
	m.sess.Resize(m.canvas.Pixels())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft &&
			msg.X < m.canvas.Width && msg.Y < m.canvas.Height {
			// aim at the middle of the clicked cell
			m.sess.SelectAt(float64(msg.X*2)+1, float64(msg.Y*4)+2)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		return m, nil

	case TickMsg:
		now := time.Time(msg)
		m.frame++
		var cmds []tea.Cmd
		if !m.polling && now.Sub(m.lastPoll) >= m.cfg.Server.PollInterval {
			m.polling = true
			m.lastPoll = now
			cmds = append(cmds, m.poll())
		}
		m.sess.Tick(now)
		viz.Draw(m.canvas, m.sess.Frame(), m.theme)
		cmds = append(cmds, tick())
		return m, tea.Batch(cmds...)

	case pollMsg:
		m.polling = false
		if msg.err != nil {
			if m.connErr == nil {
				m.log.WithError(msg.err).Warn("state poll failed")
			}
			m.connErr = msg.err
			return m, nil
		}
		if m.connErr != nil {
			m.log.Info("state poll recovered")
		}
		m.connErr = nil
		m.sess.ApplyState(msg.bodies)
		if msg.timeErr != nil {
			m.log.WithError(msg.timeErr).Debug("time poll failed")
		} else {
			m.sess.SetSimTime(msg.simTime)
		}
		return m, nil

	case scaleMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).WithField("scale", msg.scale).Warn("set time scale failed")
			m.status = "time scale not applied"
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "w", "up":
		m.sess.Pan(0, 1)
	case "s", "down":
		m.sess.Pan(0, -1)
	case "a", "left":
		m.sess.Pan(-1, 0)
	case "d", "right":
		m.sess.Pan(1, 0)
	case "e", "=", "+":
		m.sess.ZoomIn()
	case "-", "_":
		m.sess.ZoomOut()
	case "f":
		m.sess.ToggleFollow()
	case "tab":
		m.sess.SelectNext(1)
	case "shift+tab":
		m.sess.SelectNext(-1)
	case "esc":
		m.sess.ClearSelection()
	case "v":
		m.toggle(field.KindVector)
	case "h":
		m.toggle(field.KindHeatmap)
	case "g":
		m.toggle(field.KindLagrange)
	case "l":
		m.sess.ToggleLabels()
	case "x":
		m.sess.ClearTrails()
	case "[":
		return m, m.setTimeScale(m.sess.TimeScale() * 0.5)
	case "]":
		return m, m.setTimeScale(m.sess.TimeScale() * 2)
	case "c":
		m.capture()
	case "t":
		m.theme = viz.NextTheme(m.theme.Name)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) toggle(kind field.Kind) {
	on := m.sess.ToggleField(kind)
	state := "off"
	if on {
		state = "on"
	}
	m.status = fmt.Sprintf("%s %s", kind, state)
}

func (m Model) poll() tea.Cmd {
	backend, timeout := m.backend, m.cfg.Server.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		bs, err := backend.State(ctx)
		if err != nil {
			return pollMsg{err: err}
		}
		t, err := backend.Time(ctx)
		return pollMsg{bodies: bs, simTime: t, timeErr: err}
	}
}

func (m *Model) setTimeScale(v float64) tea.Cmd {
	scale := m.sess.SetTimeScale(v)
	m.status = fmt.Sprintf("time scale x%g", scale)
	backend, timeout := m.backend, m.cfg.Server.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return scaleMsg{scale: scale, err: backend.SetTimeScale(ctx, scale)}
	}
}

// capture stores every field currently on screen, with the rendered frame
// and trails attached to each.
func (m *Model) capture() {
	if m.store == nil {
		m.status = "captures disabled"
		return
	}
	if err := m.store.Init(); err != nil {
		m.log.WithError(err).Warn("capture dir")
		m.status = "capture failed"
		return
	}

	shared := []storage.Attachment{storage.FrameAttachment(export.CanvasToSVG(m.canvas, 4))}
	f := m.sess.Frame()
	colors := make(map[string]string, len(f.Bodies))
	for _, b := range f.Bodies {
		colors[b.Name] = b.Color
	}
	if svg := export.TrailsToSVG(f.Trails, colors, 400, 400); svg != "" {
		shared = append(shared, storage.TrailsAttachment(svg))
	}

	saved := 0
	for _, kind := range field.Kinds {
		res, ok := m.sess.Scheduler().Latest(kind)
		if !ok || res.Empty() {
			continue
		}
		attachments := slices.Clone(shared)
		if res.Heatmap != nil {
			attachments = append(attachments, storage.HeatmapAttachment(export.HeatmapToSVG(res.Heatmap, 6, m.theme)))
		}
		meta := storage.CaptureMetadata{
			SimTime:   m.sess.SimTime(),
			TimeScale: m.sess.TimeScale(),
			Source:    m.fieldSource(kind),
		}
		id, err := m.store.Save(res, meta, attachments...)
		if err != nil {
			m.log.WithError(err).WithField("kind", kind.String()).Warn("capture failed")
			continue
		}
		m.log.WithField("id", id).Info("field captured")
		saved++
	}
	m.status = fmt.Sprintf("captured %d field(s)", saved)
}

func (m Model) fieldSource(kind field.Kind) string {
	switch kind {
	case field.KindHeatmap:
		return m.cfg.Fields.Heatmap.Source
	case field.KindLagrange:
		return m.cfg.Fields.Lagrange.Source
	}
	return m.cfg.Fields.Vector.Source
}
