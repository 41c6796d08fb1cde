// Package compute evaluates softened gravitational acceleration at arbitrary
// sample points.
//
// The summation is O(points × sources) and dominates field sampling cost,
// so the CPU backend splits large point sets into chunks evaluated in
// parallel:
//
//	backend := compute.GetBackend()
//	gx, gy, err := backend.Accelerations(ctx, xs, ys, sources, G, eps)
//
// Results are deterministic: each point is summed over sources in the same
// order regardless of chunking.
package compute
