package bodies

type Point struct{ X, Y float64 }

// Trails keeps a bounded position history per body name.
type Trails struct {
	max    int
	points map[string][]Point
}

func NewTrails(max int) *Trails {
	return &Trails{max: max, points: make(map[string][]Point)}
}

// Record appends the current position of every body and forgets bodies
// that are no longer present.
func (t *Trails) Record(bs []Body) {
	if t.max <= 0 {
		return
	}
	seen := make(map[string]struct{}, len(bs))
	for _, b := range bs {
		seen[b.Name] = struct{}{}
		trail := append(t.points[b.Name], Point{b.X, b.Y})
		if len(trail) > t.max {
			trail = trail[len(trail)-t.max:]
		}
		t.points[b.Name] = trail
	}
	for name := range t.points {
		if _, ok := seen[name]; !ok {
			delete(t.points, name)
		}
	}
}

// Get returns the trail for name, oldest first. The slice must not be
// modified.
func (t *Trails) Get(name string) []Point { return t.points[name] }

func (t *Trails) Reset() { t.points = make(map[string][]Point) }
