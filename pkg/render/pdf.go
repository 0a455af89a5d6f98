// Package render draws a label grid onto Letter-sized PDF pages.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/Sternrassler/shopkit/pkg/layout"
	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"
)

// Letter page size in points.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
)

// Options controls page geometry and font. Units are points.
type Options struct {
	LeftMargin   float64
	RightMargin  float64
	TopMargin    float64
	BottomMargin float64

	RowHeight   float64
	ColumnWidth float64

	FontFamily string
	FontSize   float64

	// CellPadding is the inset of text inside a cell.
	CellPadding float64

	Title    string
	Compress bool
}

// DefaultOptions returns the label sheet geometry.
func DefaultOptions() Options {
	return Options{
		LeftMargin:   72,
		RightMargin:  13,
		TopMargin:    16,
		BottomMargin: 36,
		RowHeight:    72,
		ColumnWidth:  200,
		FontFamily:   "Helvetica",
		FontSize:     12,
		CellPadding:  6,
		Title:        "Birthday labels",
		Compress:     true,
	}
}

// RowsPerPage returns how many rows fit between the top and bottom margins.
func (o Options) RowsPerPage() int {
	n := int(math.Floor((PageHeight - o.TopMargin - o.BottomMargin) / o.RowHeight))
	return max(n, 1)
}

// Pages returns the number of pages a grid of rows occupies. An empty grid
// still produces one blank page.
func (o Options) Pages(rows int) int {
	per := o.RowsPerPage()
	return max((rows+per-1)/per, 1)
}

// tableX centers the table inside the frame between the side margins. A
// table wider than the frame overhangs both margins equally.
func (o Options) tableX(columns int) float64 {
	frame := PageWidth - o.LeftMargin - o.RightMargin
	return o.LeftMargin + (frame-float64(columns)*o.ColumnWidth)/2
}

func (o Options) validate() error {
	if o.RowHeight <= 0 || o.ColumnWidth <= 0 {
		return fmt.Errorf("row height and column width must be positive")
	}
	if o.FontSize <= 0 {
		return fmt.Errorf("font size must be positive")
	}
	if o.TopMargin+o.BottomMargin+o.RowHeight > PageHeight {
		return fmt.Errorf("margins leave no room for a row")
	}
	return nil
}

// PDF writes grid to w, RowsPerPage rows per page, in row order.
func PDF(w io.Writer, grid layout.Grid, opts Options) error {
	if err := opts.validate(); err != nil {
		return fmt.Errorf("render options: %w", err)
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(opts.Compress)
	pdf.SetCreator("shopkit", true)
	pdf.SetTitle(opts.Title, true)
	pdf.SetMargins(opts.LeftMargin, opts.TopMargin, opts.RightMargin)
	pdf.SetAutoPageBreak(false, opts.BottomMargin)
	pdf.SetFont(opts.FontFamily, "", opts.FontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	lineHeight := opts.FontSize * 1.2
	perPage := opts.RowsPerPage()

	columns := 0
	for _, row := range grid {
		columns = max(columns, len(row))
	}
	x0 := opts.tableX(columns)

	pdf.AddPage()
	for i, row := range grid {
		if i > 0 && i%perPage == 0 {
			pdf.AddPage()
		}
		y := opts.TopMargin + float64(i%perPage)*opts.RowHeight

		for j, cell := range row {
			if cell == "" {
				continue
			}
			x := x0 + float64(j)*opts.ColumnWidth + opts.CellPadding
			for k, line := range strings.Split(cell, "\n") {
				pdf.SetXY(x, y+opts.CellPadding+float64(k)*lineHeight)
				pdf.CellFormat(opts.ColumnWidth-2*opts.CellPadding, lineHeight, tr(line), "", 0, "L", false, 0, "")
			}
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	log.Debug().
		Str("component", "render").
		Int("rows", len(grid)).
		Int("pages", pdf.PageNo()).
		Msg("Rendered label sheet")
	return nil
}

// WriteFile renders grid to the file at path, replacing it.
func WriteFile(path string, grid layout.Grid, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	return PDF(f, grid, opts)
}
