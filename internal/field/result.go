package field

// Result is the outcome of one field computation. Exactly one of Vectors,
// Heatmap and Lagrange is meaningful, selected by Kind.
type Result struct {
	Kind       Kind
	Generation uint64

	Vectors  []Vector
	Heatmap  *Heatmap
	Lagrange map[string]Point
	// Target names the secondary body Lagrange points were computed for.
	Target string
}

func (r Result) Empty() bool {
	switch r.Kind {
	case KindVector:
		return len(r.Vectors) == 0
	case KindHeatmap:
		return r.Heatmap.Len() == 0
	case KindLagrange:
		return len(r.Lagrange) == 0
	}
	return true
}

// EmptyResult is the explicit "nothing to show" value for kind.
func EmptyResult(kind Kind, generation uint64) Result {
	return Result{Kind: kind, Generation: generation}
}
