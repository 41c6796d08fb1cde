// Package session ties the camera, body cache, selection and field
// scheduler together. It is the only place that turns user intent into
// field invalidations.
package session

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/camera"
	"github.com/san-kum/orbview/internal/config"
	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/metrics"
	"github.com/san-kum/orbview/internal/scheduler"
	"github.com/san-kum/orbview/internal/viz"
	"github.com/sirupsen/logrus"
)

const (
	MinTimeScale = 0.125
	MaxTimeScale = 512.0

	historyLen = 120
	au         = 1.49597871e11
)

var ErrUnknownSource = errors.New("session: unknown field source")

type Options struct {
	Logger  logrus.FieldLogger
	Metrics *metrics.Scheduler
	Clock   scheduler.Clock
	// Dispatchers maps a source name from the config to its dispatcher.
	Dispatchers map[string]scheduler.Dispatcher
}

type Session struct {
	cfg    *config.Config
	log    logrus.FieldLogger
	cam    *camera.Camera
	cache  *bodies.Cache
	trails *bodies.Trails
	sel    bodies.Selection
	sched  *scheduler.Scheduler

	timeScale float64
	simTime   fmt.Stringer
	labels    bool
	// |a| history of the selected body
	history []float64
}

func New(cfg *config.Config, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	s := &Session{
		cfg:       cfg,
		log:       opts.Logger,
		cam:       camera.New(cfg.View.Scale, 0, 0),
		cache:     bodies.NewCache(),
		trails:    bodies.NewTrails(cfg.Bodies.MaxTrail),
		timeScale: 1,
		labels:    cfg.View.Labels,
	}
	s.cam.MinScale = cfg.View.MinScale
	s.cam.MaxScale = cfg.View.MaxScale
	s.cam.OffsetX, s.cam.OffsetY = cfg.View.CenterX, cfg.View.CenterY

	kinds := map[scheduler.Kind]scheduler.KindConfig{}
	for _, k := range field.Kinds {
		fc := s.fieldConfig(k)
		kinds[k] = scheduler.KindConfig{Enabled: fc.Enabled, Interval: fc.Interval, Timeout: fc.Timeout}
	}
	s.sched = scheduler.New(s.build, kinds, scheduler.Options{
		Logger:  opts.Logger.WithField("component", "scheduler"),
		Metrics: opts.Metrics,
		Clock:   opts.Clock,
	})
	for _, k := range field.Kinds {
		src := s.fieldConfig(k).Source
		d, ok := opts.Dispatchers[src]
		if !ok {
			return nil, fmt.Errorf("%w: %s for %s", ErrUnknownSource, src, k)
		}
		s.sched.SetDispatcher(k, d)
	}

	s.cam.OnChange(s.sched.MarkAllDirty)
	return s, nil
}

func (s *Session) fieldConfig(k field.Kind) config.FieldConfig {
	switch k {
	case field.KindHeatmap:
		return s.cfg.Fields.Heatmap
	case field.KindLagrange:
		return s.cfg.Fields.Lagrange
	}
	return s.cfg.Fields.Vector
}

func (s *Session) params() field.Params {
	return field.Params{G: s.cfg.Fields.G, Softening: s.cfg.Fields.Softening}
}

// build snapshots the inputs for kind. Called by the scheduler at dispatch.
func (s *Session) build(kind scheduler.Kind) (scheduler.Request, bool) {
	req := scheduler.Request{
		Sources: s.cache.MassesAndPositions(),
		Params:  s.params(),
	}

	switch kind {
	case field.KindVector, field.KindHeatmap:
		spacing := s.fieldConfig(kind).SpacingPx * s.cam.Scale
		grid, err := field.GridForView(s.cam.VisibleRect(), spacing, s.cfg.Fields.MaxSamples)
		if err != nil {
			s.log.WithError(err).WithField("kind", kind.String()).Debug("no grid for view")
			return req, false
		}
		req.Grid = grid
	case field.KindLagrange:
		name, ok := s.sel.Selected()
		if !ok {
			return req, false
		}
		primary, ok := s.cache.Primary(s.cfg.Bodies.Primary)
		if !ok {
			return req, false
		}
		target, ok := s.cache.Find(name)
		if !ok || target.Name == primary.Name {
			return req, false
		}
		req.Primary, req.Target = primary, target
	default:
		return req, false
	}
	return req, true
}

func (s *Session) Close() { s.sched.Close() }

func (s *Session) Camera() *camera.Camera          { return s.cam }
func (s *Session) Cache() *bodies.Cache            { return s.cache }
func (s *Session) Scheduler() *scheduler.Scheduler { return s.sched }
func (s *Session) TimeScale() float64              { return s.timeScale }
func (s *Session) History() []float64              { return s.history }

func (s *Session) SimTime() string {
	if s.simTime == nil {
		return "-"
	}
	return s.simTime.String()
}

func (s *Session) SetSimTime(t fmt.Stringer) { s.simTime = t }

// ApplyState installs a freshly polled body list.
func (s *Session) ApplyState(bs []bodies.Body) {
	s.cache.Refresh(bs)
	s.trails.Record(bs)

	selLost, followLost := s.sel.Reconcile(s.cache)
	if selLost {
		s.selectionChanged()
	}
	if followLost {
		s.log.Info("followed body vanished, follow cleared")
	}
	if name, ok := s.sel.Followed(); ok {
		if b, ok := s.cache.Find(name); ok {
			s.cam.CenterOn(b.X, b.Y)
		}
	}
	if name, ok := s.sel.Selected(); ok {
		if b, ok := s.cache.Find(name); ok {
			s.history = append(s.history, b.Accel())
			if len(s.history) > historyLen {
				s.history = s.history[len(s.history)-historyLen:]
			}
		}
	}

	// every field depends on body positions
	s.sched.MarkAllDirty()
}

func (s *Session) selectionChanged() {
	s.history = nil
	s.sched.Reset(field.KindLagrange)
}

// Pan moves the view by a number of pan steps along each axis.
func (s *Session) Pan(dx, dy float64) {
	s.cam.PanPixels(dx*s.cfg.View.PanPixels, dy*s.cfg.View.PanPixels)
}

func (s *Session) ZoomIn() bool  { return s.cam.Zoom(s.cfg.View.ZoomIn) }
func (s *Session) ZoomOut() bool { return s.cam.Zoom(s.cfg.View.ZoomOut) }

// Resize sets the drawable area in canvas sub-pixels.
func (s *Session) Resize(width, height int) { s.cam.Resize(width, height) }

// SelectAt selects the body under screen point (sx, sy), or clears the
// selection when there is none within the pick tolerance.
func (s *Session) SelectAt(sx, sy float64) (string, bool) {
	wx, wy := s.cam.ScreenToWorld(sx, sy)
	b, ok := s.cache.Nearest(wx, wy, s.cfg.View.TolerancePx*s.cam.Scale)
	if !ok {
		s.ClearSelection()
		return "", false
	}
	s.Select(b.Name)
	return b.Name, true
}

func (s *Session) Select(name string) {
	if s.sel.Select(name) {
		s.selectionChanged()
	}
}

// SelectNext cycles the selection through the bodies in poll order.
func (s *Session) SelectNext(dir int) {
	bs := s.cache.Bodies()
	if len(bs) == 0 {
		return
	}
	cur := -1
	if name, ok := s.sel.Selected(); ok {
		for i, b := range bs {
			if b.Name == name {
				cur = i
				break
			}
		}
	}
	next := 0
	switch {
	case cur >= 0:
		next = ((cur+dir)%len(bs) + len(bs)) % len(bs)
	case dir < 0:
		next = len(bs) - 1
	}
	s.Select(bs[next].Name)
}

func (s *Session) ClearSelection() {
	if s.sel.Clear() {
		s.selectionChanged()
	}
}

func (s *Session) Selected() (bodies.Body, bool) {
	name, ok := s.sel.Selected()
	if !ok {
		return bodies.Body{}, false
	}
	return s.cache.Find(name)
}

func (s *Session) Followed() (string, bool) { return s.sel.Followed() }

// ToggleFollow follows the selected body, or stops following.
func (s *Session) ToggleFollow() {
	s.sel.ToggleFollow()
	if name, ok := s.sel.Followed(); ok {
		if b, ok := s.cache.Find(name); ok {
			s.cam.CenterOn(b.X, b.Y)
		}
	}
}

// Follow starts following name without selecting it.
func (s *Session) Follow(name string) { s.sel.Follow(name) }

// SetTimeScale clamps v and returns the value to send to the service.
// Positions will drift faster or slower, so every field goes dirty.
func (s *Session) SetTimeScale(v float64) float64 {
	if math.IsNaN(v) {
		v = 1
	}
	v = math.Max(MinTimeScale, math.Min(MaxTimeScale, v))
	if v != s.timeScale {
		s.timeScale = v
		s.sched.MarkAllDirty()
	}
	return v
}

func (s *Session) ToggleField(kind field.Kind) bool {
	on := !s.sched.Enabled(kind)
	s.sched.SetEnabled(kind, on)
	return on
}

func (s *Session) ToggleLabels() { s.labels = !s.labels }

func (s *Session) ClearTrails() { s.trails.Reset() }

func (s *Session) Tick(now time.Time) { s.sched.Tick(now) }

// Frame assembles the renderer's view model from the latest state.
func (s *Session) Frame() viz.Frame {
	bs := s.cache.Bodies()
	trails := make(map[string][]bodies.Point, len(bs))
	for _, b := range bs {
		trails[b.Name] = s.trails.Get(b.Name)
	}
	f := viz.Frame{
		Camera: *s.cam,
		Bodies: bs,
		Trails: trails,
		Labels: s.labels,
	}
	f.Selected, _ = s.sel.Selected()
	f.Followed, _ = s.sel.Followed()

	if r, ok := s.sched.Latest(field.KindVector); ok {
		f.Vectors = r.Vectors
		f.VectorSpacing = s.cfg.Fields.Vector.SpacingPx
	}
	if r, ok := s.sched.Latest(field.KindHeatmap); ok {
		f.Heatmap = r.Heatmap
	}
	if r, ok := s.sched.Latest(field.KindLagrange); ok && r.Target == f.Selected {
		f.Lagrange = r.Lagrange
		f.LagrangeTarget = r.Target
	}
	return f
}

// Info summarises the selected body for the side panel.
type Info struct {
	Name          string
	DistPrimaryAU float64
	DistEarthAU   float64
	HasEarth      bool
	Speed         float64
	Accel         float64
	Mass          float64
	Diameter      float64
}

func (s *Session) Info() (Info, bool) {
	b, ok := s.Selected()
	if !ok {
		return Info{}, false
	}
	info := Info{
		Name:     b.Name,
		Speed:    b.Speed(),
		Accel:    b.Accel(),
		Mass:     b.Mass,
		Diameter: b.Diameter,
	}
	if p, ok := s.cache.Primary(s.cfg.Bodies.Primary); ok {
		info.DistPrimaryAU = math.Hypot(b.X-p.X, b.Y-p.Y) / au
	}
	if e, ok := s.cache.Find("Earth"); ok && e.Name != b.Name {
		info.DistEarthAU = math.Hypot(b.X-e.X, b.Y-e.Y) / au
		info.HasEarth = true
	}
	return info, true
}
