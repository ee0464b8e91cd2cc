package hwpx

import (
	"testing"
)

func addTestTable(t *testing.T, doc *Document, rows, cols int) *Table {
	t.Helper()
	tbl, err := doc.AddTable(rows, cols)
	if err != nil {
		t.Fatalf("AddTable(%d, %d) failed: %v", rows, cols, err)
	}
	return tbl
}

func TestAddTableShape(t *testing.T) {
	doc := newTestDocument(t)
	tbl := addTestTable(t, doc, 2, 3)

	if got := tbl.RowCount(); got != 2 {
		t.Errorf("RowCount() = %d, want 2", got)
	}
	if got := tbl.ColCount(); got != 3 {
		t.Errorf("ColCount() = %d, want 3", got)
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			cell, err := tbl.Cell(r, c)
			if err != nil {
				t.Fatalf("Cell(%d, %d) failed: %v", r, c, err)
			}
			if ar, ac := cell.Anchor(); ar != r || ac != c {
				t.Errorf("Cell(%d, %d) anchor = (%d, %d)", r, c, ar, ac)
			}
			if rs, cs := cell.Span(); rs != 1 || cs != 1 {
				t.Errorf("Cell(%d, %d) span = (%d, %d), want (1, 1)", r, c, rs, cs)
			}
		}
	}
}

func TestCellTextRoundTrip(t *testing.T) {
	doc := newTestDocument(t)
	tbl := addTestTable(t, doc, 2, 3)

	values := map[[2]int]string{
		{0, 0}: "A", {0, 1}: "B", {0, 2}: "C",
		{1, 0}: "D", {1, 1}: "E", {1, 2}: "F",
	}
	for addr, text := range values {
		if err := tbl.SetCellText(addr[0], addr[1], text); err != nil {
			t.Fatalf("SetCellText(%d, %d) failed: %v", addr[0], addr[1], err)
		}
	}

	reloaded := reloadDocument(t, doc)
	tables, err := reloaded.Tables()
	if err != nil {
		t.Fatalf("Tables() failed: %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("table count after reload = %d, want 1", len(tables))
	}
	for addr, want := range values {
		got, err := tables[0].CellText(addr[0], addr[1])
		if err != nil {
			t.Fatalf("CellText(%d, %d) failed: %v", addr[0], addr[1], err)
		}
		if got != want {
			t.Errorf("cell (%d, %d) = %q, want %q", addr[0], addr[1], got, want)
		}
	}
}

func TestCellOutOfRange(t *testing.T) {
	doc := newTestDocument(t)
	tbl := addTestTable(t, doc, 2, 2)

	tests := []struct{ row, col int }{
		{-1, 0}, {0, -1}, {2, 0}, {0, 2},
	}
	for _, tt := range tests {
		if _, err := tbl.Cell(tt.row, tt.col); !IsInvalidRangeError(err) {
			t.Errorf("Cell(%d, %d) = %v, want invalid range error", tt.row, tt.col, err)
		}
	}
}

func TestMergeCells(t *testing.T) {
	doc := newTestDocument(t)
	tbl := addTestTable(t, doc, 3, 3)
	if err := tbl.SetCellText(0, 0, "master"); err != nil {
		t.Fatalf("SetCellText() failed: %v", err)
	}

	if err := tbl.MergeCells(0, 0, 1, 1); err != nil {
		t.Fatalf("MergeCells(0,0,1,1) failed: %v", err)
	}

	master, err := tbl.Cell(0, 0)
	if err != nil {
		t.Fatalf("Cell(0, 0) failed: %v", err)
	}
	if rs, cs := master.Span(); rs != 2 || cs != 2 {
		t.Errorf("master span = (%d, %d), want (2, 2)", rs, cs)
	}
	if got := master.Text(); got != "master" {
		t.Errorf("master text = %q, want %q", got, "master")
	}

	// Covered coordinates resolve to the master.
	for _, addr := range [][2]int{{0, 1}, {1, 0}, {1, 1}} {
		cell, err := tbl.Cell(addr[0], addr[1])
		if err != nil {
			t.Fatalf("Cell(%d, %d) failed: %v", addr[0], addr[1], err)
		}
		if cell.el != master.el {
			t.Errorf("Cell(%d, %d) did not resolve to the merge master", addr[0], addr[1])
		}
	}

	// Cells outside the merge still resolve to themselves.
	outside, err := tbl.Cell(2, 2)
	if err != nil {
		t.Fatalf("Cell(2, 2) failed: %v", err)
	}
	if outside.el == master.el {
		t.Error("Cell(2, 2) resolved to the merge master")
	}
}

func TestMergeCellsRejectsInvalidRectangles(t *testing.T) {
	doc := newTestDocument(t)
	tbl := addTestTable(t, doc, 3, 3)
	if err := tbl.MergeCells(0, 0, 1, 1); err != nil {
		t.Fatalf("MergeCells() failed: %v", err)
	}

	tests := []struct {
		name string
		rect [4]int
	}{
		{name: "inverted", rect: [4]int{1, 1, 0, 0}},
		{name: "out of bounds", rect: [4]int{0, 0, 3, 3}},
		{name: "single cell", rect: [4]int{2, 2, 2, 2}},
		{name: "overlaps existing merge", rect: [4]int{1, 1, 2, 2}},
		{name: "touches shadowed cell", rect: [4]int{0, 1, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tbl.MergeCells(tt.rect[0], tt.rect[1], tt.rect[2], tt.rect[3])
			if !IsInvalidRangeError(err) {
				t.Errorf("MergeCells(%v) = %v, want invalid range error", tt.rect, err)
			}
		})
	}
}

func TestSplitMergedCell(t *testing.T) {
	doc := newTestDocument(t)
	tbl := addTestTable(t, doc, 3, 3)
	if err := tbl.SetCellText(0, 0, "kept"); err != nil {
		t.Fatalf("SetCellText() failed: %v", err)
	}
	if err := tbl.MergeCells(0, 0, 1, 1); err != nil {
		t.Fatalf("MergeCells() failed: %v", err)
	}

	master, err := tbl.SplitMergedCell(1, 1)
	if err != nil {
		t.Fatalf("SplitMergedCell() failed: %v", err)
	}
	if rs, cs := master.Span(); rs != 1 || cs != 1 {
		t.Errorf("master span after split = (%d, %d), want (1, 1)", rs, cs)
	}
	if got := master.Text(); got != "kept" {
		t.Errorf("master text after split = %q, want %q", got, "kept")
	}

	// Every former coordinate is an independent empty 1x1 cell again.
	for _, addr := range [][2]int{{0, 1}, {1, 0}, {1, 1}} {
		cell, err := tbl.Cell(addr[0], addr[1])
		if err != nil {
			t.Fatalf("Cell(%d, %d) after split failed: %v", addr[0], addr[1], err)
		}
		if cell.el == master.el {
			t.Errorf("Cell(%d, %d) still resolves to the former master", addr[0], addr[1])
		}
		if rs, cs := cell.Span(); rs != 1 || cs != 1 {
			t.Errorf("Cell(%d, %d) span = (%d, %d), want (1, 1)", addr[0], addr[1], rs, cs)
		}
		if got := cell.Text(); got != "" {
			t.Errorf("Cell(%d, %d) text = %q, want empty", addr[0], addr[1], got)
		}
	}

	// The whole grid still validates after the split.
	if err := doc.Validate(); err != nil {
		t.Errorf("Validate() after split = %v", err)
	}

	reloaded := reloadDocument(t, doc)
	tables, err := reloaded.Tables()
	if err != nil {
		t.Fatalf("Tables() failed: %v", err)
	}
	if got, _ := tables[0].CellText(0, 0); got != "kept" {
		t.Errorf("cell (0, 0) after reload = %q, want %q", got, "kept")
	}
}

func TestMergeSplitPreservesCellSizes(t *testing.T) {
	doc := newTestDocument(t)
	tbl := addTestTable(t, doc, 3, 3)

	origin, err := tbl.Cell(0, 0)
	if err != nil {
		t.Fatalf("Cell(0, 0) failed: %v", err)
	}
	wantW, wantH := cellSize(origin.el)
	if wantW == 0 || wantH == 0 {
		t.Fatalf("fresh cell size = (%d, %d), want non-zero", wantW, wantH)
	}

	if err := tbl.MergeCells(0, 0, 1, 1); err != nil {
		t.Fatalf("MergeCells() failed: %v", err)
	}
	if w, h := cellSize(origin.el); w != 2*wantW || h != 2*wantH {
		t.Errorf("master size after merge = (%d, %d), want (%d, %d)", w, h, 2*wantW, 2*wantH)
	}

	if _, err := tbl.SplitMergedCell(0, 0); err != nil {
		t.Fatalf("SplitMergedCell() failed: %v", err)
	}
	for _, addr := range [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
		cell, err := tbl.Cell(addr[0], addr[1])
		if err != nil {
			t.Fatalf("Cell(%d, %d) after split failed: %v", addr[0], addr[1], err)
		}
		if w, h := cellSize(cell.el); w != wantW || h != wantH {
			t.Errorf("Cell(%d, %d) size after split = (%d, %d), want (%d, %d)",
				addr[0], addr[1], w, h, wantW, wantH)
		}
	}
}

func TestSplitUnmergedCellIsNoOp(t *testing.T) {
	doc := newTestDocument(t)
	tbl := addTestTable(t, doc, 2, 2)
	if err := tbl.SetCellText(1, 1, "stay"); err != nil {
		t.Fatalf("SetCellText() failed: %v", err)
	}

	cell, err := tbl.SplitMergedCell(1, 1)
	if err != nil {
		t.Fatalf("SplitMergedCell() on unmerged cell failed: %v", err)
	}
	if got := cell.Text(); got != "stay" {
		t.Errorf("cell text = %q, want %q", got, "stay")
	}
	if rs, cs := cell.Span(); rs != 1 || cs != 1 {
		t.Errorf("span = (%d, %d), want (1, 1)", rs, cs)
	}
}

func TestNestedTables(t *testing.T) {
	doc := newTestDocument(t)
	outer := addTestTable(t, doc, 2, 2)

	cell, err := outer.Cell(0, 0)
	if err != nil {
		t.Fatalf("Cell(0, 0) failed: %v", err)
	}
	inner, err := cell.AddTable(1, 2)
	if err != nil {
		t.Fatalf("nested AddTable() failed: %v", err)
	}
	if err := inner.SetCellText(0, 1, "deep"); err != nil {
		t.Fatalf("SetCellText() on nested table failed: %v", err)
	}

	nested := cell.Tables()
	if len(nested) != 1 {
		t.Fatalf("nested table count = %d, want 1", len(nested))
	}
	if got, _ := nested[0].CellText(0, 1); got != "deep" {
		t.Errorf("nested cell text = %q, want %q", got, "deep")
	}
}

func TestCellAddParagraph(t *testing.T) {
	doc := newTestDocument(t)
	tbl := addTestTable(t, doc, 1, 1)

	cell, err := tbl.Cell(0, 0)
	if err != nil {
		t.Fatalf("Cell(0, 0) failed: %v", err)
	}
	if _, err := cell.AddParagraph("second line"); err != nil {
		t.Fatalf("Cell.AddParagraph() failed: %v", err)
	}
	if got := cell.Text(); got != "\nsecond line" {
		t.Errorf("cell text = %q, want %q", got, "\nsecond line")
	}
	if got := len(cell.Paragraphs()); got != 2 {
		t.Errorf("cell paragraph count = %d, want 2", got)
	}
}
