// Package viz draws orbview frames in the terminal.
//
// A [Canvas] is a grid of braille cells (2x4 sub-pixels each) with
// per-cell colours and a text overlay. [Draw] paints a [Frame] onto it in
// a fixed order:
//
//   - acceleration heatmap as cell backgrounds, log-normalised per frame
//   - gravitational field arrows
//   - trails, brighter for the selected body
//   - bodies, with velocity and acceleration arrows on the selection
//   - Lagrange point markers
//
// Five colour themes are built in; see [ThemeNames].
package viz
