package docs

import (
	"testing"

	"google.golang.org/api/docs/v1"
)

func TestConvert_TwoByTwoTable(t *testing.T) {
	requests := mustConvert(t, "| a | b |\n|---|---|\n| 1 | 2 |", 1)

	// A table-only document leaves the text buffer empty, so its
	// insertText is suppressed: every insert here is a cell insert.
	var cells []*docs.InsertTextRequest
	var bolds []*docs.UpdateTextStyleRequest
	var tables []*docs.InsertTableRequest
	for _, r := range requests {
		switch {
		case r.InsertText != nil:
			cells = append(cells, r.InsertText)
		case r.UpdateTextStyle != nil:
			bolds = append(bolds, r.UpdateTextStyle)
		case r.InsertTable != nil:
			tables = append(tables, r.InsertTable)
		}
	}

	if len(tables) != 1 {
		t.Fatalf("got %d insertTable requests, want 1", len(tables))
	}
	if tables[0].Location.Index != 1 || tables[0].Rows != 2 || tables[0].Columns != 2 {
		t.Errorf("got table %+v, want 2x2 at index 1", tables[0])
	}

	// Cell (r,c) sits at start+3 + r*(2C+1) + c*2, plus the text already
	// inserted into earlier cells of this table.
	wantCells := []struct {
		index int64
		text  string
	}{
		{4, "a"},
		{7, "b"},
		{11, "1"},
		{14, "2"},
	}
	if len(cells) != len(wantCells) {
		t.Fatalf("got %d cell inserts, want %d", len(cells), len(wantCells))
	}
	for i, want := range wantCells {
		if cells[i].Location.Index != want.index || cells[i].Text != want.text {
			t.Errorf("cell %d: got %q at %d, want %q at %d",
				i, cells[i].Text, cells[i].Location.Index, want.text, want.index)
		}
	}

	// Header row is bold, cell by cell.
	wantBolds := [][2]int64{{4, 5}, {7, 8}}
	if len(bolds) != len(wantBolds) {
		t.Fatalf("got %d bold requests, want %d", len(bolds), len(wantBolds))
	}
	for i, want := range wantBolds {
		if !bolds[i].TextStyle.Bold || bolds[i].Range.StartIndex != want[0] || bolds[i].Range.EndIndex != want[1] {
			t.Errorf("bold %d: got [%d,%d), want [%d,%d)",
				i, bolds[i].Range.StartIndex, bolds[i].Range.EndIndex, want[0], want[1])
		}
	}
}

func TestConvert_OneByOneTable(t *testing.T) {
	requests := mustConvert(t, "| x |\n|---|", 1)

	if len(requests) != 3 {
		t.Fatalf("got %d requests %v, want 3", len(requests), requestTypes(requests))
	}
	var cell *docs.InsertTextRequest
	var table *docs.InsertTableRequest
	for _, r := range requests {
		if r.InsertText != nil {
			cell = r.InsertText
		}
		if r.InsertTable != nil {
			table = r.InsertTable
		}
	}
	if table == nil || table.Rows != 1 || table.Columns != 1 || table.Location.Index != 1 {
		t.Fatalf("got table %+v, want 1x1 at index 1", table)
	}
	if cell == nil || cell.Location.Index != 4 || cell.Text != "x" {
		t.Errorf("got cell %+v, want %q at index 4", cell, "x")
	}
}

func TestConvert_TableAfterParagraph(t *testing.T) {
	requests := mustConvert(t, "before\n\n| a |\n|---|", 1)

	if got := requests[0].InsertText.Text; got != "before\n" {
		t.Fatalf("got buffer %q", got)
	}

	var cell *docs.InsertTextRequest
	var table *docs.InsertTableRequest
	for _, r := range requests[1:] {
		if r.InsertText != nil {
			cell = r.InsertText
		}
		if r.InsertTable != nil {
			table = r.InsertTable
		}
	}
	// "before\n" ends at cursor 8; the table starts there and its first
	// cell is three indices further in.
	if table == nil || table.Location.Index != 8 {
		t.Fatalf("got table %+v, want index 8", table)
	}
	if cell == nil || cell.Location.Index != 11 {
		t.Errorf("got cell index %d, want 11", cell.Location.Index)
	}
}

func TestConvert_TableCellInlineRenderedPlain(t *testing.T) {
	requests := mustConvert(t, "| **bold** |\n|---|", 1)
	for _, r := range requests {
		if r.InsertText != nil && r.InsertText.Location.Index == 4 {
			if r.InsertText.Text != "bold" {
				t.Errorf("got cell text %q, want plain %q", r.InsertText.Text, "bold")
			}
			return
		}
	}
	t.Fatal("cell insert not found")
}

func TestConvert_EmissionOrderWithTable(t *testing.T) {
	// Cell inserts come right after the buffer insert; insertTable sits in
	// its own late group. The relative group order is fixed.
	requests := mustConvert(t, "# H\n\n| a |\n|---|\n| b |\n\n- item\n", 1)
	order := map[string]int{}
	for i, r := range requests {
		tp := requestType(r)
		if _, seen := order[tp]; !seen {
			order[tp] = i
		}
	}
	if order["InsertText"] != 0 {
		t.Errorf("buffer insert not first: %v", requestTypes(requests))
	}
	if !(order["UpdateTextStyle"] < order["UpdateParagraphStyle"]) {
		t.Errorf("text styles must precede paragraph styles: %v", requestTypes(requests))
	}
	if !(order["UpdateParagraphStyle"] < order["CreateParagraphBullets"]) {
		t.Errorf("paragraph styles must precede bullets: %v", requestTypes(requests))
	}
	if !(order["CreateParagraphBullets"] < order["InsertTable"]) {
		t.Errorf("bullets must precede insertTable: %v", requestTypes(requests))
	}
}
