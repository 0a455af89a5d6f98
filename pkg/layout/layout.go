// Package layout arranges label texts into the row grid of a label sheet.
package layout

const (
	// DefaultPageCapacity is the number of labels on one sheet.
	DefaultPageCapacity = 30

	// DefaultColumns is the number of labels per row.
	DefaultColumns = 3
)

// Grid is a sequence of label rows, each holding Columns cells.
type Grid [][]string

// Flatten returns the cells in row order.
func (g Grid) Flatten() []string {
	var cells []string
	for _, row := range g {
		cells = append(cells, row...)
	}
	return cells
}

// Rows returns the number of rows.
func (g Grid) Rows() int {
	return len(g)
}

// PadCount returns how many empty cells bring n up to the smallest multiple
// of capacity that is >= n. An empty list still fills one page.
func PadCount(n, capacity int) int {
	if capacity <= 0 {
		capacity = DefaultPageCapacity
	}
	if n == 0 {
		return capacity
	}
	if rem := n % capacity; rem != 0 {
		return capacity - rem
	}
	return 0
}

// Pad returns a copy of labels right-padded with "" per PadCount.
func Pad(labels []string, capacity int) []string {
	fill := PadCount(len(labels), capacity)
	out := make([]string, len(labels), len(labels)+fill)
	copy(out, labels)
	for i := 0; i < fill; i++ {
		out = append(out, "")
	}
	return out
}

// Layout pads labels to a whole number of pages and splits them into rows of
// columns cells, preserving order. Non-positive arguments fall back to the
// defaults. A capacity that is not a multiple of columns leaves a short final
// row.
func Layout(labels []string, capacity, columns int) Grid {
	if capacity <= 0 {
		capacity = DefaultPageCapacity
	}
	if columns <= 0 {
		columns = DefaultColumns
	}

	padded := Pad(labels, capacity)
	grid := make(Grid, 0, (len(padded)+columns-1)/columns)
	for start := 0; start < len(padded); start += columns {
		end := min(start+columns, len(padded))
		grid = append(grid, padded[start:end:end])
	}
	return grid
}
