// Package grid projects track snapshots onto a small square display grid.
//
// Responsibilities: bounding-box projection, the per-frame trail render
// with geometric fade, and the optional decaying accumulator that carries
// brightness across frames.
// Key types: BBox, Grid, Cell, Renderer, Accumulator.
//
// The package reads tracks only through track.TrackView.
package grid
