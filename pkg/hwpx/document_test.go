package hwpx

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewDocumentBasics(t *testing.T) {
	doc := newTestDocument(t)

	if got := doc.Package().Mimetype(); got != DefaultMimetype {
		t.Errorf("mimetype = %q, want %q", got, DefaultMimetype)
	}
	if got := len(doc.Sections()); got != 1 {
		t.Errorf("section count = %d, want 1", got)
	}
	if got := len(doc.Headers()); got != 1 {
		t.Errorf("header count = %d, want 1", got)
	}
	paragraphs, err := doc.Paragraphs()
	if err != nil {
		t.Fatalf("Paragraphs() failed: %v", err)
	}
	if got := len(paragraphs); got != 1 {
		t.Errorf("paragraph count = %d, want 1", got)
	}
}

func TestAddParagraphAndRoundTrip(t *testing.T) {
	doc := newTestDocument(t)

	if _, err := doc.AddParagraph("first"); err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}
	if _, err := doc.AddParagraph("second"); err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}

	reloaded := reloadDocument(t, doc)
	paragraphs, err := reloaded.Paragraphs()
	if err != nil {
		t.Fatalf("Paragraphs() failed: %v", err)
	}
	if got := len(paragraphs); got != 3 {
		t.Fatalf("paragraph count after reload = %d, want 3", got)
	}
	if got := paragraphs[1].Text(); got != "first" {
		t.Errorf("paragraph text = %q, want %q", got, "first")
	}
	if got := paragraphs[2].Text(); got != "second" {
		t.Errorf("paragraph text = %q, want %q", got, "second")
	}
}

func TestDoubleSaveRoundTrip(t *testing.T) {
	doc := newTestDocument(t)

	if _, err := doc.AddParagraph("alpha"); err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}
	tbl, err := doc.AddTable(2, 3)
	if err != nil {
		t.Fatalf("AddTable() failed: %v", err)
	}
	if err := tbl.SetCellText(0, 0, "corner"); err != nil {
		t.Fatalf("SetCellText() failed: %v", err)
	}
	if err := tbl.MergeCells(1, 0, 1, 2); err != nil {
		t.Fatalf("MergeCells() failed: %v", err)
	}
	if err := tbl.SetCellText(1, 1, "merged row"); err != nil {
		t.Fatalf("SetCellText() failed: %v", err)
	}

	// The second generation must see the same content as the first: the
	// intermediate save of an untouched document must not rewrite anything
	// away.
	once := reloadDocument(t, doc)
	twice := reloadDocument(t, once)

	for name, gen := range map[string]*Document{"first reload": once, "second reload": twice} {
		text, err := gen.Text()
		if err != nil {
			t.Fatalf("%s: Text() failed: %v", name, err)
		}
		if !strings.Contains(text, "alpha") {
			t.Errorf("%s: document text %q lost paragraph content", name, text)
		}

		tables, err := gen.Tables()
		if err != nil {
			t.Fatalf("%s: Tables() failed: %v", name, err)
		}
		if len(tables) != 1 {
			t.Fatalf("%s: table count = %d, want 1", name, len(tables))
		}
		got, err := tables[0].CellText(0, 0)
		if err != nil {
			t.Fatalf("%s: CellText() failed: %v", name, err)
		}
		if got != "corner" {
			t.Errorf("%s: cell (0,0) text = %q, want corner", name, got)
		}
		got, err = tables[0].CellText(1, 1)
		if err != nil {
			t.Fatalf("%s: CellText() failed: %v", name, err)
		}
		if got != "merged row" {
			t.Errorf("%s: cell (1,1) text = %q, want 'merged row'", name, got)
		}
		master, err := tables[0].Cell(1, 0)
		if err != nil {
			t.Fatalf("%s: Cell() failed: %v", name, err)
		}
		if rs, cs := master.Span(); rs != 1 || cs != 3 {
			t.Errorf("%s: master span = (%d, %d), want (1, 3)", name, rs, cs)
		}
	}
}

func TestStyleInheritance(t *testing.T) {
	doc := newTestDocument(t)

	styled, err := doc.AddParagraph("styled",
		WithParaPrIDRef("5"), WithStyleIDRef(3), WithCharPrIDRef("7"))
	if err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}
	if got := styled.ParaPrIDRef(); got != "5" {
		t.Errorf("paraPrIDRef = %q, want %q", got, "5")
	}
	if got := styled.StyleIDRef(); got != "3" {
		t.Errorf("styleIDRef = %q, want %q", got, "3")
	}
	if got := styled.CharPrIDRef(); got != "7" {
		t.Errorf("charPrIDRef = %q, want %q", got, "7")
	}

	t.Run("inherits from previous paragraph", func(t *testing.T) {
		inherited, err := doc.AddParagraph("follows")
		if err != nil {
			t.Fatalf("AddParagraph() failed: %v", err)
		}
		if got := inherited.ParaPrIDRef(); got != "5" {
			t.Errorf("inherited paraPrIDRef = %q, want %q", got, "5")
		}
		if got := inherited.StyleIDRef(); got != "3" {
			t.Errorf("inherited styleIDRef = %q, want %q", got, "3")
		}
		if got := inherited.CharPrIDRef(); got != "7" {
			t.Errorf("inherited charPrIDRef = %q, want %q", got, "7")
		}
	})

	t.Run("inheritance disabled", func(t *testing.T) {
		plain, err := doc.AddParagraph("plain", WithoutStyleInheritance())
		if err != nil {
			t.Fatalf("AddParagraph() failed: %v", err)
		}
		if got := plain.ParaPrIDRef(); got != "0" {
			t.Errorf("paraPrIDRef = %q, want %q", got, "0")
		}
		if got := plain.StyleIDRef(); got != "0" {
			t.Errorf("styleIDRef = %q, want %q", got, "0")
		}
		if got := plain.CharPrIDRef(); got != "0" {
			t.Errorf("charPrIDRef = %q, want %q", got, "0")
		}
	})

	t.Run("explicit reference wins over inheritance", func(t *testing.T) {
		p, err := doc.AddParagraph("explicit", WithParaPrIDRef(9))
		if err != nil {
			t.Fatalf("AddParagraph() failed: %v", err)
		}
		if got := p.ParaPrIDRef(); got != "9" {
			t.Errorf("paraPrIDRef = %q, want %q", got, "9")
		}
		if got := p.StyleIDRef(); got != "0" {
			t.Errorf("styleIDRef = %q, want %q", got, "0")
		}
	})
}

func TestSetTextPreservesStyleReferences(t *testing.T) {
	doc := newTestDocument(t)
	p, err := doc.AddParagraph("before",
		WithParaPrIDRef("5"), WithStyleIDRef("3"), WithCharPrIDRef("7"))
	if err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}

	p.SetText("after")

	if got := p.Text(); got != "after" {
		t.Errorf("text = %q, want %q", got, "after")
	}
	if got := p.ParaPrIDRef(); got != "5" {
		t.Errorf("paraPrIDRef after edit = %q, want %q", got, "5")
	}
	if got := p.StyleIDRef(); got != "3" {
		t.Errorf("styleIDRef after edit = %q, want %q", got, "3")
	}
	if got := p.CharPrIDRef(); got != "7" {
		t.Errorf("charPrIDRef after edit = %q, want %q", got, "7")
	}
}

func TestClearTextKeepsEmptyRun(t *testing.T) {
	doc := newTestDocument(t)
	p, err := doc.AddParagraph("content", WithCharPrIDRef("4"))
	if err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}

	p.ClearText()
	if got := p.Text(); got != "" {
		t.Errorf("text after clear = %q, want empty", got)
	}
	if got := len(p.Runs()); got != 1 {
		t.Errorf("run count after clear = %d, want 1", got)
	}
	if got := p.CharPrIDRef(); got != "4" {
		t.Errorf("charPrIDRef after clear = %q, want %q", got, "4")
	}
}

func TestSetTextKeepsEmbeddedObjects(t *testing.T) {
	doc := newTestDocument(t)
	p, err := doc.AddParagraph("caption")
	if err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}
	if _, err := p.AddTable(1, 1); err != nil {
		t.Fatalf("AddTable() failed: %v", err)
	}

	p.SetText("new caption")
	if got := len(p.Tables()); got != 1 {
		t.Errorf("table count after text edit = %d, want 1", got)
	}
	if got := p.Text(); got != "new caption" {
		t.Errorf("text = %q, want %q", got, "new caption")
	}
}

func TestTextWithObjects(t *testing.T) {
	doc := newTestDocument(t)
	p, err := doc.AddParagraph("see ")
	if err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}
	tbl, err := p.AddTable(1, 1)
	if err != nil {
		t.Fatalf("AddTable() failed: %v", err)
	}
	if err := tbl.SetCellText(0, 0, "inside"); err != nil {
		t.Fatalf("SetCellText() failed: %v", err)
	}

	tests := []struct {
		name string
		mode ObjectTextMode
		want string
	}{
		{name: "skip", mode: ObjectsSkip, want: "see "},
		{name: "marker", mode: ObjectsMarker, want: "see " + objectReplacementChar},
		{name: "recurse", mode: ObjectsRecurse, want: "see inside"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.TextWithObjects(tt.mode); got != tt.want {
				t.Errorf("TextWithObjects(%v) = %q, want %q", tt.mode, got, tt.want)
			}
		})
	}
}

func TestRemoveParagraphGuards(t *testing.T) {
	doc := newTestDocument(t)
	section := firstSection(t, doc)

	if err := section.RemoveParagraphAt(0); !errors.Is(err, ErrLastParagraph) {
		t.Errorf("RemoveParagraphAt(0) on single paragraph = %v, want ErrLastParagraph", err)
	}

	p, err := doc.AddParagraph("extra")
	if err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}
	if err := doc.RemoveParagraph(p); err != nil {
		t.Fatalf("RemoveParagraph() failed: %v", err)
	}
	paragraphs, err := doc.Paragraphs()
	if err != nil {
		t.Fatalf("Paragraphs() failed: %v", err)
	}
	if got := len(paragraphs); got != 1 {
		t.Errorf("paragraph count = %d, want 1", got)
	}
}

func TestReplaceTextInRuns(t *testing.T) {
	doc := newTestDocument(t)
	if _, err := doc.AddParagraph("foo bar foo", WithCharPrIDRef("7")); err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}
	if _, err := doc.AddParagraph("foo", WithCharPrIDRef("2")); err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}

	t.Run("empty search is rejected", func(t *testing.T) {
		if _, err := doc.ReplaceTextInRuns("", "x", nil, -1); err == nil {
			t.Error("ReplaceTextInRuns() accepted an empty search string")
		}
	})

	t.Run("filtered by charPrIDRef", func(t *testing.T) {
		n, err := doc.ReplaceTextInRuns("foo", "baz", &RunStyleFilter{CharPrIDRef: "7"}, -1)
		if err != nil {
			t.Fatalf("ReplaceTextInRuns() failed: %v", err)
		}
		if n != 2 {
			t.Errorf("replacement count = %d, want 2", n)
		}
		paragraphs, _ := doc.Paragraphs()
		if got := paragraphs[1].Text(); got != "baz bar baz" {
			t.Errorf("filtered paragraph = %q, want %q", got, "baz bar baz")
		}
		if got := paragraphs[2].Text(); got != "foo" {
			t.Errorf("unfiltered paragraph changed: %q", got)
		}
		if got := paragraphs[1].CharPrIDRef(); got != "7" {
			t.Errorf("charPrIDRef after replace = %q, want %q", got, "7")
		}
	})

	t.Run("limit caps replacements", func(t *testing.T) {
		n, err := doc.ReplaceTextInRuns("baz", "qux", nil, 1)
		if err != nil {
			t.Fatalf("ReplaceTextInRuns() failed: %v", err)
		}
		if n != 1 {
			t.Errorf("replacement count = %d, want 1", n)
		}
	})
}

func TestFindRunsByStyle(t *testing.T) {
	doc := newTestDocument(t)
	if _, err := doc.AddParagraph("red text", WithCharPrIDRef("11")); err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}
	if _, err := doc.AddParagraph("plain text", WithCharPrIDRef("0")); err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}

	runs, err := doc.FindRunsByStyle(&RunStyleFilter{CharPrIDRef: 11})
	if err != nil {
		t.Fatalf("FindRunsByStyle() failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("run count = %d, want 1", len(runs))
	}
	if got := runs[0].Text(); got != "red text" {
		t.Errorf("matched run text = %q, want %q", got, "red text")
	}
}

func TestBookmarksAndHyperlinks(t *testing.T) {
	doc := newTestDocument(t)
	p, err := doc.AddParagraph("intro ")
	if err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}

	if _, err := p.AddBookmark("chapter-1"); err != nil {
		t.Fatalf("AddBookmark() failed: %v", err)
	}
	if _, err := p.AddBookmark(""); err == nil {
		t.Error("AddBookmark() accepted an empty name")
	}
	if _, err := p.AddHyperlink("https://example.com", "example"); err != nil {
		t.Fatalf("AddHyperlink() failed: %v", err)
	}

	reloaded := reloadDocument(t, doc)
	paragraphs, err := reloaded.Paragraphs()
	if err != nil {
		t.Fatalf("Paragraphs() failed: %v", err)
	}
	target := paragraphs[len(paragraphs)-1]

	bookmarks := target.Bookmarks()
	if len(bookmarks) != 1 || bookmarks[0] != "chapter-1" {
		t.Errorf("bookmarks = %v, want [chapter-1]", bookmarks)
	}
	links := target.Hyperlinks()
	if len(links) != 1 {
		t.Fatalf("hyperlink count = %d, want 1", len(links))
	}
	if links[0].URL != "https://example.com" {
		t.Errorf("hyperlink url = %q, want %q", links[0].URL, "https://example.com")
	}
	if links[0].Text != "example" {
		t.Errorf("hyperlink text = %q, want %q", links[0].Text, "example")
	}
}

func TestFootnotesAndColumns(t *testing.T) {
	doc := newTestDocument(t)
	p, err := doc.AddParagraph("body")
	if err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}

	if _, err := p.AddFootnote("footnote body", nil); err != nil {
		t.Fatalf("AddFootnote() failed: %v", err)
	}
	if _, err := p.AddEndnote("endnote body", nil); err != nil {
		t.Fatalf("AddEndnote() failed: %v", err)
	}
	notes := p.Notes()
	if len(notes) != 2 {
		t.Fatalf("note count = %d, want 2", len(notes))
	}
	if notes[0].Type() != "footNote" || notes[0].Text() != "footnote body" {
		t.Errorf("footnote = (%q, %q)", notes[0].Type(), notes[0].Text())
	}
	if notes[1].Type() != "endNote" || notes[1].Text() != "endnote body" {
		t.Errorf("endnote = (%q, %q)", notes[1].Type(), notes[1].Text())
	}

	t.Run("column definition", func(t *testing.T) {
		ctrl, err := p.AddColumnDefinition(ColumnOptions{Count: 2, SameSize: true})
		if err != nil {
			t.Fatalf("AddColumnDefinition() failed: %v", err)
		}
		if got := ctrl.Kind(); got != "colPr" {
			t.Errorf("control kind = %q, want colPr", got)
		}
		if _, err := p.AddColumnDefinition(ColumnOptions{Count: 0}); err == nil {
			t.Error("AddColumnDefinition() accepted a zero column count")
		}
	})

	t.Run("generic control", func(t *testing.T) {
		ctrl, err := p.AddControl("hp:pageNum", map[string]string{"pos": "TOP_CENTER", "formatType": "DIGIT"}, nil)
		if err != nil {
			t.Fatalf("AddControl() failed: %v", err)
		}
		if got := ctrl.Kind(); got != "pageNum" {
			t.Errorf("control kind = %q, want pageNum", got)
		}
		child := firstChild(ctrl.Element(), "pageNum")
		if child == nil {
			t.Fatal("control has no pageNum child")
		}
		if got := child.SelectAttrValue("pos", ""); got != "TOP_CENTER" {
			t.Errorf("pos = %q, want TOP_CENTER", got)
		}

		bare, err := p.AddControl("", nil, "4")
		if err != nil {
			t.Fatalf("AddControl() failed: %v", err)
		}
		if got := bare.Kind(); got != "" {
			t.Errorf("bare control kind = %q, want empty", got)
		}
		if got := bare.Element().Parent().SelectAttrValue("charPrIDRef", ""); got != "4" {
			t.Errorf("run charPrIDRef = %q, want 4", got)
		}
	})
}

func TestShapes(t *testing.T) {
	doc := newTestDocument(t)
	p, err := doc.AddParagraph("")
	if err != nil {
		t.Fatalf("AddParagraph() failed: %v", err)
	}

	line, err := p.AddLine(0, 0, 5000, 0, nil)
	if err != nil {
		t.Fatalf("AddLine() failed: %v", err)
	}
	rect, err := p.AddRectangle(4000, 2000, &ShapeOptions{LineColor: "#FF0000", FillColor: "#00FF00"})
	if err != nil {
		t.Fatalf("AddRectangle() failed: %v", err)
	}
	if _, err := p.AddEllipse(3000, 3000, nil); err != nil {
		t.Fatalf("AddEllipse() failed: %v", err)
	}

	shapes := p.Shapes()
	if len(shapes) != 3 {
		t.Fatalf("shape count = %d, want 3", len(shapes))
	}
	if got := line.Type(); got != "line" {
		t.Errorf("line type = %q, want line", got)
	}
	if got := rect.LineColor(); got != "#FF0000" {
		t.Errorf("rect line color = %q, want #FF0000", got)
	}
	if w, h := rect.Size(); w != 4000 || h != 2000 {
		t.Errorf("rect size = (%d, %d), want (4000, 2000)", w, h)
	}
	if line.InstID() == rect.InstID() {
		t.Error("shapes share an instance id")
	}

	t.Run("resize", func(t *testing.T) {
		if err := rect.Resize(8000, 4000); err != nil {
			t.Fatalf("Resize() failed: %v", err)
		}
		if w, h := rect.Size(); w != 8000 || h != 4000 {
			t.Errorf("size after resize = (%d, %d), want (8000, 4000)", w, h)
		}
		if err := rect.Resize(0, 10); !IsInvalidRangeError(err) {
			t.Errorf("Resize(0, 10) = %v, want invalid range error", err)
		}
	})
}

func TestEnsureRunStyle(t *testing.T) {
	doc := newTestDocument(t)

	id, err := doc.EnsureRunStyle(true, false, true, "0")
	if err != nil {
		t.Fatalf("EnsureRunStyle() failed: %v", err)
	}
	cp, err := doc.CharProperty(id)
	if err != nil {
		t.Fatalf("CharProperty() failed: %v", err)
	}
	if cp == nil {
		t.Fatalf("CharProperty(%q) returned nil", id)
	}
	if !cp.Bold() || cp.Italic() || !cp.Underline() {
		t.Errorf("flags = (bold=%v italic=%v underline=%v), want (true false true)",
			cp.Bold(), cp.Italic(), cp.Underline())
	}

	// Asking again for the same flags reuses the definition.
	again, err := doc.EnsureRunStyle(true, false, true, nil)
	if err != nil {
		t.Fatalf("EnsureRunStyle() failed: %v", err)
	}
	if again != id {
		t.Errorf("second EnsureRunStyle() = %q, want %q", again, id)
	}
}

func TestHeaderLookups(t *testing.T) {
	doc := newTestDocument(t)

	style, err := doc.Style(0)
	if err != nil {
		t.Fatalf("Style() failed: %v", err)
	}
	if style == nil {
		t.Fatal("Style(0) returned nil for the default style")
	}
	if got := style.EngName(); got != "Normal" {
		t.Errorf("style engName = %q, want Normal", got)
	}

	missing, err := doc.Style("999")
	if err != nil {
		t.Fatalf("Style() failed: %v", err)
	}
	if missing != nil {
		t.Error("Style(999) returned a definition for an unknown id")
	}

	shape, err := doc.MemoShape("0")
	if err != nil {
		t.Fatalf("MemoShape() failed: %v", err)
	}
	if shape == nil {
		t.Error("MemoShape(0) returned nil for the default memo shape")
	}
}

func TestValidateOnSave(t *testing.T) {
	doc := newTestDocument(t)
	doc.ValidateOnSave = true

	// Force an invalid state: strip the only paragraph behind the wrapper's
	// back.
	section := firstSection(t, doc)
	root, err := section.Root()
	if err != nil {
		t.Fatalf("Root() failed: %v", err)
	}
	for _, p := range childElements(root, "p") {
		root.RemoveChild(p)
	}
	section.MarkDirty()

	_, err = doc.ToBytes()
	if !IsValidationError(err) {
		t.Errorf("ToBytes() on invalid document = %v, want validation error", err)
	}

	doc.ValidateOnSave = false
	if _, err := doc.ToBytes(); err != nil {
		t.Errorf("ToBytes() with validation disabled failed: %v", err)
	}
}

func TestSaveToStream(t *testing.T) {
	doc := newTestDocument(t)
	var buf bytes.Buffer
	if err := doc.SaveToStream(&buf); err != nil {
		t.Fatalf("SaveToStream() failed: %v", err)
	}
	if _, err := OpenBytes(buf.Bytes()); err != nil {
		t.Errorf("stream output is not a loadable document: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	doc := newTestDocument(t)
	doc.manage(failingCloser{})

	if err := doc.Close(); err != nil {
		t.Errorf("Close() = %v, want nil despite failing resource", err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
	if _, err := doc.ToBytes(); err == nil {
		t.Error("ToBytes() succeeded on a closed document")
	}
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("close failed") }
