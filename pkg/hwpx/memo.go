package hwpx

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

// newFieldID returns a fresh 32-character hex field identifier.
func newFieldID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// MemoGroup wraps a section's hp:memogroup container.
type MemoGroup struct {
	section *Section
	el      *etree.Element
}

// Element exposes the underlying container element.
func (g *MemoGroup) Element() *etree.Element {
	return g.el
}

// Memos returns the group's memos in document order.
func (g *MemoGroup) Memos() []*Memo {
	elems := childElements(g.el, "memo")
	memos := make([]*Memo, 0, len(elems))
	for _, el := range elems {
		memos = append(memos, &Memo{group: g, el: el})
	}
	return memos
}

// Memo is a view over a single hp:memo element.
type Memo struct {
	group *MemoGroup
	el    *etree.Element
}

// ID returns the memo's id attribute.
func (m *Memo) ID() string {
	return m.el.SelectAttrValue("id", "")
}

// MemoShapeIDRef returns the referenced memo shape id.
func (m *Memo) MemoShapeIDRef() string {
	return m.el.SelectAttrValue("memoShapeIDRef", "")
}

// Attr returns an arbitrary memo attribute, or dflt when absent.
func (m *Memo) Attr(key, dflt string) string {
	return m.el.SelectAttrValue(key, dflt)
}

// Element exposes the underlying memo element.
func (m *Memo) Element() *etree.Element {
	return m.el
}

// Text returns the memo body text, paragraphs joined by newlines.
func (m *Memo) Text() string {
	paraList := firstChild(m.el, "paraList")
	if paraList == nil {
		return ""
	}
	var parts []string
	for _, p := range childElements(paraList, "p") {
		wrapper := &Paragraph{section: m.group.section, el: p}
		parts = append(parts, wrapper.Text())
	}
	return strings.Join(parts, "\n")
}

// SetText replaces the memo body with a single paragraph holding text.
func (m *Memo) SetText(text string) error {
	paraList := firstChild(m.el, "paraList")
	if paraList == nil {
		paraList = m.el.CreateElement("hp:paraList")
	}
	paragraphs := childElements(paraList, "p")
	if len(paragraphs) == 0 {
		id, err := m.group.section.nextParagraphID()
		if err != nil {
			return err
		}
		cfg := defaultParagraphConfig()
		buildParagraphElement(paraList, id, text, &cfg)
	} else {
		wrapper := &Paragraph{section: m.group.section, el: paragraphs[0]}
		wrapper.SetText(text)
		for _, extra := range paragraphs[1:] {
			paraList.RemoveChild(extra)
		}
	}
	m.group.section.MarkDirty()
	return nil
}

// Remove detaches the memo from its group.
func (m *Memo) Remove() {
	m.group.el.RemoveChild(m.el)
	m.group.section.MarkDirty()
}

// inferCharPrIDRef returns the charPrIDRef of the memo body's first run,
// "" when the memo has no runs.
func (m *Memo) inferCharPrIDRef() string {
	paraList := firstChild(m.el, "paraList")
	if paraList == nil {
		return ""
	}
	for _, p := range childElements(paraList, "p") {
		if run := firstChild(p, "run"); run != nil {
			return run.SelectAttrValue("charPrIDRef", "")
		}
	}
	return ""
}

// MemoOptions configures AddMemo.
type MemoOptions struct {
	// MemoID overrides the generated sequential id.
	MemoID string
	// MemoShapeIDRef references a memoPr definition; "0" when unset.
	MemoShapeIDRef any
	// CharPrIDRef applies to the memo body run; "0" when unset.
	CharPrIDRef any
	// Attributes sets extra attributes on the memo element.
	Attributes map[string]string
}

// AddMemo appends a memo to the section's memo group, creating the group
// when absent.
func (s *Section) AddMemo(text string, opts *MemoOptions) (*Memo, error) {
	if opts == nil {
		opts = &MemoOptions{}
	}
	group, err := s.ensureMemoGroup()
	if err != nil {
		return nil, err
	}

	memoID := opts.MemoID
	if memoID == "" {
		memoID = group.nextMemoID()
	}
	shapeRef, ok := normalizeIDRef(opts.MemoShapeIDRef)
	if !ok {
		shapeRef = "0"
	}
	charPr, ok := normalizeIDRef(opts.CharPrIDRef)
	if !ok {
		charPr = "0"
	}

	el := group.el.CreateElement("hp:memo")
	el.CreateAttr("id", memoID)
	el.CreateAttr("memoShapeIDRef", shapeRef)
	for _, key := range sortedKeys(opts.Attributes) {
		el.CreateAttr(key, opts.Attributes[key])
	}

	paraList := el.CreateElement("hp:paraList")
	id, err := s.nextParagraphID()
	if err != nil {
		return nil, err
	}
	cfg := defaultParagraphConfig()
	cfg.charPrIDRef = charPr
	buildParagraphElement(paraList, id, text, &cfg)

	s.MarkDirty()
	Debug("added memo %s to %s", memoID, s.path)
	return &Memo{group: group, el: el}, nil
}

// nextMemoID allocates the next unused "memo-N" id within the group.
func (g *MemoGroup) nextMemoID() string {
	existing := map[string]bool{}
	for _, m := range g.Memos() {
		existing[m.ID()] = true
	}
	for n := len(existing) + 1; ; n++ {
		id := fmt.Sprintf("memo-%d", n)
		if !existing[id] {
			return id
		}
	}
}

// MemoFieldOptions configures AttachMemoField.
type MemoFieldOptions struct {
	// FieldID overrides the generated hex field id.
	FieldID string
	// Author is recorded in the field parameters; falls back to the memo's
	// author attribute.
	Author string
	// Created is recorded as the field's creation timestamp; the zero value
	// falls back to the memo's createDateTime attribute, then to now.
	Created time.Time
	// Number is the visible memo number; values below 1 are clamped to 1.
	Number int
	// CharPrIDRef applies to the anchor runs; falls back to the paragraph's
	// first run, then the memo body, then "0".
	CharPrIDRef any
}

// AttachMemoField anchors a MEMO field pair in the paragraph referencing the
// memo: a fieldBegin run inserted at the start and a fieldEnd run appended
// at the end. Returns the field id.
func AttachMemoField(p *Paragraph, m *Memo, opts *MemoFieldOptions) (string, error) {
	if p == nil || m == nil {
		return "", fmt.Errorf("memo field requires a paragraph and a memo")
	}
	if opts == nil {
		opts = &MemoFieldOptions{}
	}

	memoID := m.ID()
	if memoID == "" {
		return "", NewStructureError("memo has no id; cannot attach field")
	}
	if memoFieldExists(p.el, memoID) {
		return "", fmt.Errorf("memo %s is already attached to this paragraph", memoID)
	}

	fieldID := opts.FieldID
	if fieldID == "" {
		fieldID = newFieldID()
	}
	author := opts.Author
	if author == "" {
		author = m.Attr("author", "")
	}
	created := ""
	if !opts.Created.IsZero() {
		created = opts.Created.Format("2006-01-02 15:04:05")
	} else {
		created = m.Attr("createDateTime", "")
		if created == "" {
			created = time.Now().Format("2006-01-02 15:04:05")
		}
	}
	number := opts.Number
	if number < 1 {
		number = 1
	}
	charPr, ok := normalizeIDRef(opts.CharPrIDRef)
	if !ok {
		charPr = orDefault(p.CharPrIDRef(), "")
		if charPr == "" {
			charPr = orDefault(m.inferCharPrIDRef(), "0")
		}
	}

	beginRun := etree.NewElement("hp:run")
	beginRun.CreateAttr("charPrIDRef", charPr)
	ctrl := beginRun.CreateElement("hp:ctrl")
	begin := ctrl.CreateElement("hp:fieldBegin")
	begin.CreateAttr("id", fieldID)
	begin.CreateAttr("type", "MEMO")
	begin.CreateAttr("name", "")
	begin.CreateAttr("editable", "0")
	begin.CreateAttr("dirty", "0")
	begin.CreateAttr("zorder", "0")
	begin.CreateAttr("fieldid", fieldID)

	params := begin.CreateElement("hp:parameters")
	params.CreateAttr("count", "5")
	addStringParam(params, "ID", memoID)
	numberParam := params.CreateElement("hp:integerParam")
	numberParam.CreateAttr("name", "Number")
	numberParam.SetText(fmt.Sprintf("%d", number))
	addStringParam(params, "CreateDateTime", created)
	addStringParam(params, "Author", author)
	addStringParam(params, "MemoShapeID", m.MemoShapeIDRef())

	subList := begin.CreateElement("hp:subList")
	subList.CreateAttr("id", "memo-field-"+memoID)
	subList.CreateAttr("textDirection", "HORIZONTAL")
	subList.CreateAttr("lineWrap", "BREAK")
	subList.CreateAttr("vertAlign", "TOP")
	marker := subList.CreateElement("hp:p")
	marker.CreateAttr("id", "memo-field-"+memoID+"-p")
	marker.CreateAttr("paraPrIDRef", "0")
	marker.CreateAttr("styleIDRef", "0")
	marker.CreateAttr("pageBreak", "0")
	marker.CreateAttr("columnBreak", "0")
	marker.CreateAttr("merged", "0")
	markerRun := marker.CreateElement("hp:run")
	markerRun.CreateAttr("charPrIDRef", charPr)
	markerRun.CreateElement("hp:t").SetText(memoID)

	p.el.InsertChildAt(0, beginRun)

	endRun := p.el.CreateElement("hp:run")
	endRun.CreateAttr("charPrIDRef", charPr)
	endCtrl := endRun.CreateElement("hp:ctrl")
	end := endCtrl.CreateElement("hp:fieldEnd")
	end.CreateAttr("beginIDRef", fieldID)
	end.CreateAttr("fieldid", fieldID)

	p.section.MarkDirty()
	Debug("attached memo field %s for memo %s", fieldID, memoID)
	return fieldID, nil
}

func addStringParam(params *etree.Element, name, value string) {
	param := params.CreateElement("hp:stringParam")
	param.CreateAttr("name", name)
	param.SetText(value)
}

// memoFieldExists reports whether the paragraph already anchors a MEMO field
// whose ID parameter equals memoID.
func memoFieldExists(paragraph *etree.Element, memoID string) bool {
	for _, begin := range paragraph.FindElements(".//fieldBegin") {
		if begin.SelectAttrValue("type", "") != "MEMO" {
			continue
		}
		params := firstChild(begin, "parameters")
		if params == nil {
			continue
		}
		for _, param := range childElements(params, "stringParam") {
			if param.SelectAttrValue("name", "") == "ID" && param.Text() == memoID {
				return true
			}
		}
	}
	return false
}
