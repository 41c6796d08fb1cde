// Package gui is a raylib window over the same session the terminal client
// drives: bodies, trails, fields and Lagrange points in real pixels.
package gui

import (
	"context"
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/orbview/internal/config"
	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/remote"
	"github.com/san-kum/orbview/internal/session"
	"github.com/san-kum/orbview/internal/viz"
)

const panelWidth = 300

// Backend is what the window needs from the simulation service besides
// field queries.
type Backend interface {
	remote.StateSource
	SetTimeScale(ctx context.Context, scale float64) error
}

type Options struct {
	Config  *config.Config
	Session *session.Session
	Backend Backend
	Logger  logrus.FieldLogger
	Width   int
	Height  int
}

type App struct {
	cfg     *config.Config
	sess    *session.Session
	backend Backend
	log     logrus.FieldLogger

	theme  viz.Theme
	snaps  chan remote.Snapshot
	status string
	// connErr is the last poll failure, nil once polls succeed again.
	connErr error
	quit    bool
}

func initWindow(w, h int) {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(w), int32(h), "orbview")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

// Run opens the window and blocks until it is closed or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Width <= panelWidth || opts.Height <= 0 {
		return fmt.Errorf("gui: window %dx%d too small", opts.Width, opts.Height)
	}

	initWindow(opts.Width, opts.Height)
	defer rl.CloseWindow()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := &App{
		cfg:     opts.Config,
		sess:    opts.Session,
		backend: opts.Backend,
		log:     opts.Logger,
		theme:   viz.GetTheme(opts.Config.View.Theme),
		snaps:   make(chan remote.Snapshot),
	}
	poller := remote.NewPoller(a.backend, a.cfg.Server.PollInterval, a.cfg.Server.RequestTimeout)
	go poller.Run(ctx, a.snaps)

	for !rl.WindowShouldClose() && !a.quit && ctx.Err() == nil {
		a.Update(ctx)
		a.Draw()
	}
	return nil
}

func (a *App) Update(ctx context.Context) {
	a.sess.Resize(max(rl.GetScreenWidth()-panelWidth, 1), max(rl.GetScreenHeight(), 1))

	select {
	case snap := <-a.snaps:
		a.apply(snap)
	default:
	}

	a.handleKeys(ctx)
	a.handleMouse()
	a.sess.Tick(time.Now())
}

func (a *App) apply(snap remote.Snapshot) {
	if snap.Err != nil {
		if a.connErr == nil {
			a.log.WithError(snap.Err).Warn("state poll failed")
		}
		a.connErr = snap.Err
		return
	}
	if a.connErr != nil {
		a.log.Info("state poll recovered")
	}
	a.connErr = nil
	a.sess.ApplyState(snap.Bodies)
	if snap.TimeErr != nil {
		a.log.WithError(snap.TimeErr).Debug("time poll failed")
	} else {
		a.sess.SetSimTime(snap.Time)
	}
}

func (a *App) handleKeys(ctx context.Context) {
	switch {
	case rl.IsKeyPressed(rl.KeyQ):
		a.quit = true
	case rl.IsKeyPressed(rl.KeyW), rl.IsKeyPressed(rl.KeyUp):
		a.sess.Pan(0, 1)
	case rl.IsKeyPressed(rl.KeyS), rl.IsKeyPressed(rl.KeyDown):
		a.sess.Pan(0, -1)
	case rl.IsKeyPressed(rl.KeyA), rl.IsKeyPressed(rl.KeyLeft):
		a.sess.Pan(-1, 0)
	case rl.IsKeyPressed(rl.KeyD), rl.IsKeyPressed(rl.KeyRight):
		a.sess.Pan(1, 0)
	case rl.IsKeyPressed(rl.KeyE), rl.IsKeyPressed(rl.KeyEqual):
		a.sess.ZoomIn()
	case rl.IsKeyPressed(rl.KeyMinus):
		a.sess.ZoomOut()
	case rl.IsKeyPressed(rl.KeyTab):
		if rl.IsKeyDown(rl.KeyLeftShift) {
			a.sess.SelectNext(-1)
		} else {
			a.sess.SelectNext(1)
		}
	case rl.IsKeyPressed(rl.KeyEscape):
		a.sess.ClearSelection()
	case rl.IsKeyPressed(rl.KeyF):
		a.sess.ToggleFollow()
	case rl.IsKeyPressed(rl.KeyV):
		a.toggle(field.KindVector)
	case rl.IsKeyPressed(rl.KeyH):
		a.toggle(field.KindHeatmap)
	case rl.IsKeyPressed(rl.KeyG):
		a.toggle(field.KindLagrange)
	case rl.IsKeyPressed(rl.KeyL):
		a.sess.ToggleLabels()
	case rl.IsKeyPressed(rl.KeyX):
		a.sess.ClearTrails()
	case rl.IsKeyPressed(rl.KeyLeftBracket):
		a.setTimeScale(ctx, a.sess.TimeScale()*0.5)
	case rl.IsKeyPressed(rl.KeyRightBracket):
		a.setTimeScale(ctx, a.sess.TimeScale()*2)
	case rl.IsKeyPressed(rl.KeyT):
		a.theme = viz.NextTheme(a.theme.Name)
	}
}

func (a *App) handleMouse() {
	if wheel := rl.GetMouseWheelMove(); wheel > 0 {
		a.sess.ZoomIn()
	} else if wheel < 0 {
		a.sess.ZoomOut()
	}

	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		pos := rl.GetMousePosition()
		if int(pos.X) < a.sess.Camera().Width {
			a.sess.SelectAt(float64(pos.X), float64(pos.Y))
		}
	}
}

func (a *App) toggle(kind field.Kind) {
	state := "off"
	if a.sess.ToggleField(kind) {
		state = "on"
	}
	a.status = fmt.Sprintf("%s %s", kind, state)
}

// setTimeScale applies the clamped scale locally and posts it in the
// background; a failed post is only logged.
func (a *App) setTimeScale(ctx context.Context, v float64) {
	scale := a.sess.SetTimeScale(v)
	a.status = fmt.Sprintf("time scale x%g", scale)
	backend, timeout, log := a.backend, a.cfg.Server.RequestTimeout, a.log
	go func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := backend.SetTimeScale(ctx, scale); err != nil {
			log.WithError(err).WithField("scale", scale).Warn("set time scale failed")
		}
	}()
}
