package hwpx

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ObjectTextMode controls how TextWithObjects renders non-text run content.
type ObjectTextMode int

const (
	// ObjectsSkip omits embedded objects from the extracted text.
	ObjectsSkip ObjectTextMode = iota
	// ObjectsMarker replaces each embedded object with U+FFFC.
	ObjectsMarker
	// ObjectsRecurse descends into embedded objects and extracts their text.
	ObjectsRecurse
)

const objectReplacementChar = "￼"

// Paragraph is a view over a single hp:p element. Mutations mark the owning
// section dirty so the part is re-serialized on the next save.
type Paragraph struct {
	section *Section
	el      *etree.Element
}

// Section returns the owning section.
func (p *Paragraph) Section() *Section {
	return p.section
}

// Element exposes the underlying paragraph element.
func (p *Paragraph) Element() *etree.Element {
	return p.el
}

// ID returns the paragraph's id attribute.
func (p *Paragraph) ID() string {
	return p.el.SelectAttrValue("id", "")
}

// ParaPrIDRef returns the paragraph property reference, "" when absent.
func (p *Paragraph) ParaPrIDRef() string {
	return p.el.SelectAttrValue("paraPrIDRef", "")
}

// SetParaPrIDRef updates the paragraph property reference.
func (p *Paragraph) SetParaPrIDRef(id any) {
	if v, ok := normalizeIDRef(id); ok {
		p.el.CreateAttr("paraPrIDRef", v)
		p.section.MarkDirty()
	}
}

// StyleIDRef returns the style reference, "" when absent.
func (p *Paragraph) StyleIDRef() string {
	return p.el.SelectAttrValue("styleIDRef", "")
}

// SetStyleIDRef updates the style reference.
func (p *Paragraph) SetStyleIDRef(id any) {
	if v, ok := normalizeIDRef(id); ok {
		p.el.CreateAttr("styleIDRef", v)
		p.section.MarkDirty()
	}
}

// CharPrIDRef returns the character property reference of the first run, ""
// when the paragraph has no runs.
func (p *Paragraph) CharPrIDRef() string {
	if run := firstChild(p.el, "run"); run != nil {
		return run.SelectAttrValue("charPrIDRef", "")
	}
	return ""
}

// Runs returns wrappers for the paragraph's runs in document order.
func (p *Paragraph) Runs() []*Run {
	elems := childElements(p.el, "run")
	runs := make([]*Run, 0, len(elems))
	for _, el := range elems {
		runs = append(runs, &Run{paragraph: p, el: el})
	}
	return runs
}

// Text returns the concatenated text content of the paragraph's runs,
// skipping embedded objects.
func (p *Paragraph) Text() string {
	return p.TextWithObjects(ObjectsSkip)
}

// TextWithObjects extracts paragraph text with the given object handling.
func (p *Paragraph) TextWithObjects(mode ObjectTextMode) string {
	var sb strings.Builder
	for _, run := range childElements(p.el, "run") {
		for _, child := range run.ChildElements() {
			switch child.Tag {
			case "t":
				sb.WriteString(child.Text())
			case "secPr", "ctrl":
				// Control content carries no visible text.
			default:
				switch mode {
				case ObjectsMarker:
					sb.WriteString(objectReplacementChar)
				case ObjectsRecurse:
					collectText(child, &sb)
				}
			}
		}
	}
	return sb.String()
}

// collectText appends every hp:t descendant of el in document order.
func collectText(el *etree.Element, sb *strings.Builder) {
	for _, child := range el.ChildElements() {
		if child.Tag == "t" {
			sb.WriteString(child.Text())
			continue
		}
		collectText(child, sb)
	}
}

// SetText replaces the paragraph's text content with a single run. The
// paragraph and style references are untouched, the new run reuses the first
// text run's character property reference, and runs holding embedded objects
// are preserved.
func (p *Paragraph) SetText(text string) {
	charPr := "0"
	if ref := p.CharPrIDRef(); ref != "" {
		charPr = ref
	}

	var textRuns []*etree.Element
	for _, run := range childElements(p.el, "run") {
		if isTextOnlyRun(run) {
			textRuns = append(textRuns, run)
		}
	}

	newRun := etree.NewElement("hp:run")
	newRun.CreateAttr("charPrIDRef", charPr)
	newRun.CreateElement("hp:t").SetText(text)

	if len(textRuns) > 0 {
		p.el.InsertChildAt(textRuns[0].Index(), newRun)
	} else {
		p.el.AddChild(newRun)
	}
	for _, run := range textRuns {
		p.el.RemoveChild(run)
	}
	p.section.MarkDirty()
}

// ClearText removes the paragraph's text while keeping one empty run so the
// paragraph remains editable.
func (p *Paragraph) ClearText() {
	p.SetText("")
}

// isTextOnlyRun reports whether the run holds only hp:t children (or none).
func isTextOnlyRun(run *etree.Element) bool {
	for _, child := range run.ChildElements() {
		if child.Tag != "t" {
			return false
		}
	}
	return true
}

// AddRun appends a run with the given text and character property reference.
func (p *Paragraph) AddRun(text string, charPrIDRef any) *Run {
	ref, ok := normalizeIDRef(charPrIDRef)
	if !ok {
		ref = "0"
	}
	run := p.el.CreateElement("hp:run")
	run.CreateAttr("charPrIDRef", ref)
	run.CreateElement("hp:t").SetText(text)
	p.section.MarkDirty()
	return &Run{paragraph: p, el: run}
}

// Remove detaches the paragraph from its section. The section must keep at
// least one paragraph.
func (p *Paragraph) Remove() error {
	return p.section.removeParagraph(p)
}

// Tables returns the tables directly anchored in this paragraph's runs.
func (p *Paragraph) Tables() []*Table {
	var tables []*Table
	for _, run := range childElements(p.el, "run") {
		for _, tbl := range childElements(run, "tbl") {
			tables = append(tables, &Table{section: p.section, el: tbl})
		}
	}
	return tables
}

// Bookmarks returns the names of bookmarks anchored in this paragraph.
func (p *Paragraph) Bookmarks() []string {
	var names []string
	for _, run := range childElements(p.el, "run") {
		for _, ctrl := range childElements(run, "ctrl") {
			for _, bm := range childElements(ctrl, "bookmark") {
				names = append(names, bm.SelectAttrValue("name", ""))
			}
		}
	}
	return names
}

// AddBookmark anchors a named bookmark in a new run at the end of the
// paragraph.
func (p *Paragraph) AddBookmark(name string) (*Control, error) {
	if name == "" {
		return nil, fmt.Errorf("bookmark name must not be empty")
	}
	run := p.el.CreateElement("hp:run")
	run.CreateAttr("charPrIDRef", orDefault(p.CharPrIDRef(), "0"))
	ctrl := run.CreateElement("hp:ctrl")
	bm := ctrl.CreateElement("hp:bookmark")
	bm.CreateAttr("name", name)
	p.section.MarkDirty()
	return &Control{paragraph: p, el: ctrl}, nil
}

// Hyperlink describes a hyperlink field anchored in a paragraph.
type Hyperlink struct {
	URL  string
	Text string
}

// AddHyperlink appends a HYPERLINK field wrapping the display text.
func (p *Paragraph) AddHyperlink(url, display string) (*Control, error) {
	if url == "" {
		return nil, fmt.Errorf("hyperlink url must not be empty")
	}
	fieldID := newFieldID()
	charPr := orDefault(p.CharPrIDRef(), "0")

	beginRun := p.el.CreateElement("hp:run")
	beginRun.CreateAttr("charPrIDRef", charPr)
	beginCtrl := beginRun.CreateElement("hp:ctrl")
	begin := beginCtrl.CreateElement("hp:fieldBegin")
	begin.CreateAttr("id", fieldID)
	begin.CreateAttr("type", "HYPERLINK")
	begin.CreateAttr("name", "")
	begin.CreateAttr("editable", "1")
	begin.CreateAttr("dirty", "0")
	begin.CreateAttr("zorder", "0")
	params := begin.CreateElement("hp:parameters")
	params.CreateAttr("count", "1")
	command := params.CreateElement("hp:stringParam")
	command.CreateAttr("name", "Command")
	command.SetText(url)

	textRun := p.el.CreateElement("hp:run")
	textRun.CreateAttr("charPrIDRef", charPr)
	textRun.CreateElement("hp:t").SetText(display)

	endRun := p.el.CreateElement("hp:run")
	endRun.CreateAttr("charPrIDRef", charPr)
	endCtrl := endRun.CreateElement("hp:ctrl")
	end := endCtrl.CreateElement("hp:fieldEnd")
	end.CreateAttr("beginIDRef", fieldID)
	end.CreateAttr("fieldid", fieldID)

	p.section.MarkDirty()
	return &Control{paragraph: p, el: beginCtrl}, nil
}

// Hyperlinks returns the hyperlink fields anchored in this paragraph.
func (p *Paragraph) Hyperlinks() []Hyperlink {
	var links []Hyperlink
	open := map[string]int{}
	texts := map[string]*strings.Builder{}
	order := []string{}
	urls := map[string]string{}

	for _, run := range childElements(p.el, "run") {
		for _, child := range run.ChildElements() {
			switch child.Tag {
			case "ctrl":
				for _, inner := range child.ChildElements() {
					switch inner.Tag {
					case "fieldBegin":
						if inner.SelectAttrValue("type", "") != "HYPERLINK" {
							continue
						}
						id := inner.SelectAttrValue("id", "")
						open[id] = 1
						texts[id] = &strings.Builder{}
						order = append(order, id)
						urls[id] = hyperlinkCommandURL(inner)
					case "fieldEnd":
						delete(open, inner.SelectAttrValue("beginIDRef", ""))
					}
				}
			case "t":
				for id := range open {
					texts[id].WriteString(child.Text())
				}
			}
		}
	}
	for _, id := range order {
		links = append(links, Hyperlink{URL: urls[id], Text: texts[id].String()})
	}
	return links
}

// hyperlinkCommandURL extracts the url from a HYPERLINK fieldBegin's Command
// parameter, dropping trailing option flags.
func hyperlinkCommandURL(begin *etree.Element) string {
	params := firstChild(begin, "parameters")
	if params == nil {
		return ""
	}
	for _, param := range childElements(params, "stringParam") {
		if param.SelectAttrValue("name", "") == "Command" {
			value := param.Text()
			if i := strings.IndexByte(value, ';'); i >= 0 {
				value = value[:i]
			}
			return value
		}
	}
	return ""
}

// Note is a footnote or endnote anchored in a paragraph.
type Note struct {
	paragraph *Paragraph
	el        *etree.Element
}

// Type returns "footNote" or "endNote".
func (n *Note) Type() string {
	return n.el.Tag
}

// Element exposes the underlying note element.
func (n *Note) Element() *etree.Element {
	return n.el
}

// Text returns the note body text.
func (n *Note) Text() string {
	var sb strings.Builder
	collectText(n.el, &sb)
	return sb.String()
}

// AddFootnote anchors a footnote with the given body text.
func (p *Paragraph) AddFootnote(text string, charPrIDRef any) (*Note, error) {
	return p.addNote("hp:footNote", text, charPrIDRef)
}

// AddEndnote anchors an endnote with the given body text.
func (p *Paragraph) AddEndnote(text string, charPrIDRef any) (*Note, error) {
	return p.addNote("hp:endNote", text, charPrIDRef)
}

func (p *Paragraph) addNote(tag, text string, charPrIDRef any) (*Note, error) {
	charPr, ok := normalizeIDRef(charPrIDRef)
	if !ok {
		charPr = orDefault(p.CharPrIDRef(), "0")
	}
	id, err := p.section.nextParagraphID()
	if err != nil {
		return nil, err
	}

	run := p.el.CreateElement("hp:run")
	run.CreateAttr("charPrIDRef", charPr)
	note := run.CreateElement(tag)
	note.CreateAttr("number", "0")
	subList := note.CreateElement("hp:subList")
	subList.CreateAttr("id", "")
	subList.CreateAttr("textDirection", "HORIZONTAL")
	subList.CreateAttr("lineWrap", "BREAK")
	subList.CreateAttr("vertAlign", "TOP")
	subList.CreateAttr("linkListIDRef", "0")
	subList.CreateAttr("linkListNextIDRef", "0")

	cfg := defaultParagraphConfig()
	cfg.charPrIDRef = charPr
	buildParagraphElement(subList, id, text, &cfg)

	p.section.MarkDirty()
	return &Note{paragraph: p, el: note}, nil
}

// Notes returns footnotes and endnotes anchored in this paragraph.
func (p *Paragraph) Notes() []*Note {
	var notes []*Note
	for _, run := range childElements(p.el, "run") {
		for _, child := range run.ChildElements() {
			if child.Tag == "footNote" || child.Tag == "endNote" {
				notes = append(notes, &Note{paragraph: p, el: child})
			}
		}
	}
	return notes
}

// ColumnOptions configures a column definition control.
type ColumnOptions struct {
	Count    int
	Type     string // NEWSPAPER when empty
	Layout   string // LEFT when empty
	SameSize bool
	SameGap  int
}

// AddColumnDefinition anchors an hp:colPr control describing a multi-column
// layout for the section content that follows.
func (p *Paragraph) AddColumnDefinition(opts ColumnOptions) (*Control, error) {
	if opts.Count < 1 {
		return nil, fmt.Errorf("column count must be at least 1, got %d", opts.Count)
	}
	colType := opts.Type
	if colType == "" {
		colType = "NEWSPAPER"
	}
	layout := opts.Layout
	if layout == "" {
		layout = "LEFT"
	}
	sameSz := "0"
	if opts.SameSize {
		sameSz = "1"
	}

	run := p.el.CreateElement("hp:run")
	run.CreateAttr("charPrIDRef", orDefault(p.CharPrIDRef(), "0"))
	ctrl := run.CreateElement("hp:ctrl")
	colPr := ctrl.CreateElement("hp:colPr")
	colPr.CreateAttr("id", "")
	colPr.CreateAttr("type", colType)
	colPr.CreateAttr("layout", layout)
	colPr.CreateAttr("colCount", fmt.Sprintf("%d", opts.Count))
	colPr.CreateAttr("sameSz", sameSz)
	colPr.CreateAttr("sameGap", fmt.Sprintf("%d", opts.SameGap))

	p.section.MarkDirty()
	return &Control{paragraph: p, el: ctrl}, nil
}

// AddControl anchors a bare hp:ctrl in a new run. When controlType is
// non-empty a child element of that tag is created carrying attrs, with
// attributes applied in sorted key order. Callers use this for control
// kinds without a dedicated helper.
func (p *Paragraph) AddControl(controlType string, attrs map[string]string, charPrIDRef any) (*Control, error) {
	ref := orDefault(p.CharPrIDRef(), "0")
	if v, ok := normalizeIDRef(charPrIDRef); ok {
		ref = v
	}
	run := p.el.CreateElement("hp:run")
	run.CreateAttr("charPrIDRef", ref)
	ctrl := run.CreateElement("hp:ctrl")
	if controlType != "" {
		child := ctrl.CreateElement(controlType)
		for _, key := range sortedKeys(attrs) {
			child.CreateAttr(key, attrs[key])
		}
	}

	p.section.MarkDirty()
	return &Control{paragraph: p, el: ctrl}, nil
}

// Control is an hp:ctrl wrapper anchoring bookmarks, fields and layout
// definitions inside a run.
type Control struct {
	paragraph *Paragraph
	el        *etree.Element
}

// Element exposes the underlying control element.
func (c *Control) Element() *etree.Element {
	return c.el
}

// Kind returns the local tag of the control's first child, e.g. "bookmark".
func (c *Control) Kind() string {
	children := c.el.ChildElements()
	if len(children) == 0 {
		return ""
	}
	return children[0].Tag
}

// Run is a view over a single hp:run element.
type Run struct {
	paragraph *Paragraph
	el        *etree.Element
}

// Element exposes the underlying run element.
func (r *Run) Element() *etree.Element {
	return r.el
}

// Paragraph returns the owning paragraph.
func (r *Run) Paragraph() *Paragraph {
	return r.paragraph
}

// CharPrIDRef returns the run's character property reference, "" when absent.
func (r *Run) CharPrIDRef() string {
	return r.el.SelectAttrValue("charPrIDRef", "")
}

// SetCharPrIDRef updates the run's character property reference.
func (r *Run) SetCharPrIDRef(id any) {
	if v, ok := normalizeIDRef(id); ok {
		r.el.CreateAttr("charPrIDRef", v)
		r.paragraph.section.MarkDirty()
	}
}

// Text returns the concatenated text of the run's hp:t children.
func (r *Run) Text() string {
	var sb strings.Builder
	for _, t := range childElements(r.el, "t") {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

// SetText replaces the run's text with a single hp:t child. Embedded objects
// and the character property reference are preserved.
func (r *Run) SetText(text string) {
	for _, t := range childElements(r.el, "t") {
		r.el.RemoveChild(t)
	}
	r.el.CreateElement("hp:t").SetText(text)
	r.paragraph.section.MarkDirty()
}

// ReplaceText substitutes occurrences of search within the run's text nodes.
// limit < 0 replaces all occurrences. Returns the number of replacements.
func (r *Run) ReplaceText(search, replacement string, limit int) (int, error) {
	if search == "" {
		return 0, fmt.Errorf("search string must not be empty")
	}
	replaced := 0
	for _, t := range childElements(r.el, "t") {
		if limit >= 0 && replaced >= limit {
			break
		}
		text := t.Text()
		n := strings.Count(text, search)
		if n == 0 {
			continue
		}
		if limit >= 0 && replaced+n > limit {
			n = limit - replaced
		}
		t.SetText(strings.Replace(text, search, replacement, n))
		replaced += n
	}
	if replaced > 0 {
		r.paragraph.section.MarkDirty()
	}
	return replaced, nil
}
