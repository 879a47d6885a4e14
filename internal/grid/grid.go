package grid

import (
	"fmt"
	"strings"
)

// Cell is one display pixel in HSV. Static marks a reference-point marker,
// which trail drawing never overwrites.
type Cell struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
	Static     bool    `json:"static,omitempty"`
}

// Lit reports whether the cell shows anything.
func (c Cell) Lit() bool { return c.Brightness > 0 }

// Grid is a Size×Size array of cells addressed as (x, y).
type Grid struct {
	Size  int
	Cells []Cell
}

// New allocates a dark grid.
func New(size int) *Grid {
	return &Grid{Size: size, Cells: make([]Cell, size*size)}
}

// At returns the cell at (x, y).
func (g *Grid) At(x, y int) Cell {
	return g.Cells[x*g.Size+y]
}

// Set overwrites the cell at (x, y).
func (g *Grid) Set(x, y int, c Cell) {
	g.Cells[x*g.Size+y] = c
}

// LitCell is a lit cell together with its coordinates.
type LitCell struct {
	X, Y int
	Cell
}

// Lit lists the lit cells in row-major order.
func (g *Grid) Lit() []LitCell {
	var out []LitCell
	for i, c := range g.Cells {
		if c.Lit() {
			out = append(out, LitCell{X: i / g.Size, Y: i % g.Size, Cell: c})
		}
	}
	return out
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := New(g.Size)
	copy(c.Cells, g.Cells)
	return c
}

// String draws the brightness channel as text, one row per line.
func (g *Grid) String() string {
	var sb strings.Builder
	for x := 0; x < g.Size; x++ {
		for y := 0; y < g.Size; y++ {
			fmt.Fprintf(&sb, "%4.2f ", g.At(x, y).Brightness)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
