package docs

import (
	"strings"
	"unicode/utf8"

	"google.golang.org/api/docs/v1"
)

// Table index math for the Google Docs API. A freshly inserted empty table
// consumes 2 + rows*(2*cols+1) indices; the first character position of
// cell (0,0) sits at table start + 3, each cell adds 2 indices, each row
// end adds 1. The +3 offset (not +4) is the verified distance from table
// start to cell (0,0); if the API contract changes, these constants are
// the first thing to break.
const (
	tableBaseConsumption = 2
	tableCellOffset      = 3
	tableCellStride      = 2
)

// tableBuffer accumulates cell plain text between table open and close.
// Inline formatting inside cells is deliberately rendered as its plain
// text; the cell-local style math lives with the open questions.
type tableBuffer struct {
	rows      [][]string
	row       []string
	cell      strings.Builder
	inRow     bool
	inCell    bool
	hasHeader bool
}

func (tb *tableBuffer) openRow(header bool) {
	tb.row = nil
	tb.inRow = true
	if header {
		tb.hasHeader = true
	}
}

func (tb *tableBuffer) closeRow() {
	if len(tb.row) > 0 {
		tb.rows = append(tb.rows, tb.row)
	}
	tb.row = nil
	tb.inRow = false
}

func (tb *tableBuffer) openCell() {
	tb.cell.Reset()
	tb.inCell = true
}

func (tb *tableBuffer) closeCell() {
	tb.row = append(tb.row, tb.cell.String())
	tb.cell.Reset()
	tb.inCell = false
}

// closeTable turns the buffered cells into one insertTable followed by a
// per-cell insertText using the cell-index formula, and bolds the header
// row. Because the cell texts are themselves insertions, each cell's index
// carries the cumulative length of the cell texts placed before it.
func (st *conversion) closeTable() error {
	tb := st.table
	st.table = nil
	if tb == nil || len(tb.rows) == 0 {
		return nil
	}

	rows := len(tb.rows)
	cols := 0
	for _, row := range tb.rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return nil
	}

	// Ragged rows are padded with empty cells up to the safety cap.
	for r, row := range tb.rows {
		if missing := cols - len(row); missing > tableMaxPadding {
			return &TableShapeError{Row: r, Cells: len(row), Columns: cols}
		}
		for len(row) < cols {
			row = append(row, "")
		}
		tb.rows[r] = row
	}

	tableStart := st.cursor
	st.requests = append(st.requests, &docs.Request{
		InsertTable: &docs.InsertTableRequest{
			Location: &docs.Location{Index: tableStart},
			Rows:     int64(rows),
			Columns:  int64(cols),
		},
	})

	rowStride := 2*cols + 1
	textOffset := 0
	for r, row := range tb.rows {
		for c, cellText := range row {
			if cellText == "" {
				continue
			}
			base := int(tableStart) + tableCellOffset + r*rowStride + c*tableCellStride
			st.requests = append(st.requests, &docs.Request{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: int64(base + textOffset)},
					Text:     cellText,
				},
			})
			textOffset += utf8.RuneCountInString(cellText)
		}
	}

	if tb.hasHeader {
		st.boldHeaderRow(tableStart, tb.rows[0])
	}

	st.cursor = tableStart + int64(tableBaseConsumption+rows*rowStride+textOffset)
	return nil
}

func (st *conversion) boldHeaderRow(tableStart int64, header []string) {
	offset := 0
	for c, cellText := range header {
		if cellText == "" {
			continue
		}
		cellStart := int(tableStart) + tableCellOffset + c*tableCellStride + offset
		n := utf8.RuneCountInString(cellText)
		st.requests = append(st.requests, &docs.Request{
			UpdateTextStyle: &docs.UpdateTextStyleRequest{
				Range: &docs.Range{
					StartIndex: int64(cellStart),
					EndIndex:   int64(cellStart + n),
				},
				TextStyle: &docs.TextStyle{Bold: true},
				Fields:    "bold",
			},
		})
		offset += n
	}
}
