// Package bodies holds the client-side view of the simulation's bodies: the
// snapshot cache used by field computation, per-body trails and the
// selection/follow state.
package bodies

import "math"

// Body is one record of the /state response.
type Body struct {
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"v_x"`
	VY       float64 `json:"v_y"`
	AX       float64 `json:"a_x"`
	AY       float64 `json:"a_y"`
	Mass     float64 `json:"m"`
	Radius   float64 `json:"r"`
	Diameter float64 `json:"d"`
	Color    string  `json:"color"`
}

func (b Body) Speed() float64 { return math.Hypot(b.VX, b.VY) }
func (b Body) Accel() float64 { return math.Hypot(b.AX, b.AY) }

// Source is the part of a body that gravitates.
type Source struct {
	Mass float64
	X, Y float64
}

// Cache is a wholesale-replaced snapshot of the latest polled bodies.
// It has a single writer (the poll loop); readers get copies.
type Cache struct {
	bodies []Body
	index  map[string]int
}

func NewCache() *Cache {
	return &Cache{index: make(map[string]int)}
}

// Refresh replaces the cached set with a copy of bs.
func (c *Cache) Refresh(bs []Body) {
	c.bodies = make([]Body, len(bs))
	copy(c.bodies, bs)
	c.index = make(map[string]int, len(bs))
	for i, b := range c.bodies {
		c.index[b.Name] = i
	}
}

// MassesAndPositions returns a fresh snapshot safe to hand to another
// goroutine.
func (c *Cache) MassesAndPositions() []Source {
	out := make([]Source, len(c.bodies))
	for i, b := range c.bodies {
		out[i] = Source{Mass: b.Mass, X: b.X, Y: b.Y}
	}
	return out
}

func (c *Cache) Find(name string) (Body, bool) {
	i, ok := c.index[name]
	if !ok {
		return Body{}, false
	}
	return c.bodies[i], true
}

// Bodies returns a copy of the cached bodies in poll order.
func (c *Cache) Bodies() []Body {
	out := make([]Body, len(c.bodies))
	copy(out, c.bodies)
	return out
}

func (c *Cache) Len() int { return len(c.bodies) }

// Heaviest returns the most massive body, used as the primary when no
// primary name is configured or the configured one is missing.
func (c *Cache) Heaviest() (Body, bool) {
	if len(c.bodies) == 0 {
		return Body{}, false
	}
	best := c.bodies[0]
	for _, b := range c.bodies[1:] {
		if b.Mass > best.Mass {
			best = b
		}
	}
	return best, true
}

// Primary resolves the primary mass by name, falling back to the heaviest body.
func (c *Cache) Primary(name string) (Body, bool) {
	if b, ok := c.Find(name); ok {
		return b, true
	}
	return c.Heaviest()
}

// Nearest returns the first body, in state order, within tolerance world
// units of (x, y). It is not necessarily the closest one.
func (c *Cache) Nearest(x, y, tolerance float64) (Body, bool) {
	for _, b := range c.bodies {
		if math.Hypot(x-b.X, y-b.Y) < tolerance {
			return b, true
		}
	}
	return Body{}, false
}
