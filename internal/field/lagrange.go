package field

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/orbview/internal/bodies"
)

// Point is a world position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

var LagrangeNames = []string{"L1", "L2", "L3", "L4", "L5"}

// LagrangePoints returns L1..L5 for the primary/secondary pair, in the
// co-rotating frame evaluated at the current positions. Coincident bodies
// yield an empty map. A collinear point whose bracket holds no root is left
// out; L4 and L5 are always present otherwise.
func LagrangePoints(primary, secondary bodies.Body, g float64) (map[string]Point, error) {
	rx := secondary.X - primary.X
	ry := secondary.Y - primary.Y
	R := math.Hypot(rx, ry)
	if R == 0 || math.IsNaN(R) || math.IsInf(R, 0) {
		return map[string]Point{}, nil
	}
	ux, uy := rx/R, ry/R

	m1, m2 := primary.Mass, secondary.Mass
	omega2 := g * (m1 + m2) / (R * R * R)
	// net acceleration along the axis minus the centripetal term
	f := func(x float64) float64 {
		d2 := x - R
		return -g*m1*x/math.Pow(math.Abs(x), 3) - g*m2*d2/math.Pow(math.Abs(d2), 3) + omega2*x
	}

	// L1 and L2 sit about one Hill radius from the secondary; start their
	// brackets inside it so light bodies still bracket a root.
	hill := R * math.Cbrt(m2/(3*m1))
	gap := math.Max(math.Min(0.5*hill, 0.1*R), 1e-9*R)
	if math.IsNaN(gap) {
		gap = 0.1 * R
	}
	brackets := []struct {
		name   string
		lo, hi float64
	}{
		{"L1", 0.001 * R, R - gap},
		{"L2", R + gap, 5 * R},
		{"L3", -5 * R, -0.01 * R},
	}

	pts := make(map[string]Point, 5)
	for _, b := range brackets {
		x, err := brent(f, b.lo, b.hi, R*1e-12, 200)
		if errors.Is(err, ErrNoBracket) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lagrange %s: %w", b.name, err)
		}
		pts[b.name] = Point{X: primary.X + x*ux, Y: primary.Y + x*uy}
	}

	// L4 and L5 sit at the apexes of equilateral triangles on the axis.
	px, py := -uy, ux
	h := math.Sqrt(3) / 2 * R
	mx, my := primary.X+0.5*rx, primary.Y+0.5*ry
	pts["L4"] = Point{X: mx + px*h, Y: my + py*h}
	pts["L5"] = Point{X: mx - px*h, Y: my - py*h}
	return pts, nil
}

// SortedNames returns the keys of pts in L1..L5 order.
func SortedNames(pts map[string]Point) []string {
	names := make([]string, 0, len(pts))
	for n := range pts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
