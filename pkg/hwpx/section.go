package hwpx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// Section wraps a single Contents/sectionN.xml part. Paragraph wrappers are
// views over the section's live element tree.
type Section struct {
	part
	tree *Tree
}

// Tree returns the owning document tree.
func (s *Section) Tree() *Tree {
	return s.tree
}

// Paragraphs returns wrappers for the section's top-level paragraphs in
// document order.
func (s *Section) Paragraphs() ([]*Paragraph, error) {
	root, err := s.Root()
	if err != nil {
		return nil, err
	}
	elems := childElements(root, "p")
	paragraphs := make([]*Paragraph, 0, len(elems))
	for _, el := range elems {
		paragraphs = append(paragraphs, &Paragraph{section: s, el: el})
	}
	return paragraphs, nil
}

// Text returns the concatenated text of all paragraphs joined by newlines.
func (s *Section) Text() (string, error) {
	paragraphs, err := s.Paragraphs()
	if err != nil {
		return "", err
	}
	out := ""
	for i, p := range paragraphs {
		if i > 0 {
			out += "\n"
		}
		out += p.Text()
	}
	return out, nil
}

// nextParagraphID returns the next unused numeric paragraph id within the
// section, counting every paragraph element in the part (nested ones
// included) so field and cell paragraphs never collide with top-level ones.
func (s *Section) nextParagraphID() (string, error) {
	root, err := s.Root()
	if err != nil {
		return "", err
	}
	max := 0
	for _, el := range root.FindElements(".//p") {
		if n, err := strconv.Atoi(el.SelectAttrValue("id", "")); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1), nil
}

// paragraphConfig collects the optional knobs for paragraph construction.
// Style references are normalized to strings; unset references default to
// "0" or, when inheritance applies, to the previous paragraph's values.
type paragraphConfig struct {
	paraPrIDRef  string
	styleIDRef   string
	charPrIDRef  string
	hasParaPr    bool
	hasStyle     bool
	hasCharPr    bool
	inheritStyle bool
	includeRun   bool
	paraAttrs    map[string]string
	runAttrs     map[string]string

	// Document-level targeting, ignored by Section methods.
	section      *Section
	sectionIndex int
}

// ParagraphOption configures AddParagraph and related constructors.
type ParagraphOption func(*paragraphConfig)

func defaultParagraphConfig() paragraphConfig {
	return paragraphConfig{inheritStyle: true, includeRun: true, sectionIndex: -1}
}

// WithParaPrIDRef sets the paragraph property reference. Accepts a string or
// an integer.
func WithParaPrIDRef(id any) ParagraphOption {
	return func(cfg *paragraphConfig) {
		if v, ok := normalizeIDRef(id); ok {
			cfg.paraPrIDRef = v
			cfg.hasParaPr = true
		}
	}
}

// WithStyleIDRef sets the style reference. Accepts a string or an integer.
func WithStyleIDRef(id any) ParagraphOption {
	return func(cfg *paragraphConfig) {
		if v, ok := normalizeIDRef(id); ok {
			cfg.styleIDRef = v
			cfg.hasStyle = true
		}
	}
}

// WithCharPrIDRef sets the character property reference applied to the
// paragraph's initial run. Accepts a string or an integer.
func WithCharPrIDRef(id any) ParagraphOption {
	return func(cfg *paragraphConfig) {
		if v, ok := normalizeIDRef(id); ok {
			cfg.charPrIDRef = v
			cfg.hasCharPr = true
		}
	}
}

// WithoutStyleInheritance disables copying style references from the
// section's last paragraph; unset references fall back to "0".
func WithoutStyleInheritance() ParagraphOption {
	return func(cfg *paragraphConfig) { cfg.inheritStyle = false }
}

// WithoutRun creates the paragraph without an initial text run.
func WithoutRun() ParagraphOption {
	return func(cfg *paragraphConfig) { cfg.includeRun = false }
}

// WithParagraphAttrs sets extra attributes on the paragraph element.
func WithParagraphAttrs(attrs map[string]string) ParagraphOption {
	return func(cfg *paragraphConfig) { cfg.paraAttrs = attrs }
}

// WithRunAttrs sets extra attributes on the initial run element.
func WithRunAttrs(attrs map[string]string) ParagraphOption {
	return func(cfg *paragraphConfig) { cfg.runAttrs = attrs }
}

// WithSection targets a specific section for document-level operations.
func WithSection(section *Section) ParagraphOption {
	return func(cfg *paragraphConfig) { cfg.section = section }
}

// WithSectionIndex targets a section by index for document-level operations.
func WithSectionIndex(index int) ParagraphOption {
	return func(cfg *paragraphConfig) { cfg.sectionIndex = index }
}

// normalizeIDRef converts a string or integer id reference to its canonical
// string form. nil and empty strings report ok=false.
func normalizeIDRef(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		if val == "" {
			return "", false
		}
		return val, true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case fmt.Stringer:
		s := val.String()
		return s, s != ""
	default:
		s := fmt.Sprintf("%v", val)
		return s, s != ""
	}
}

// AddParagraph appends a paragraph with the given text. When no style
// references are given the new paragraph inherits paraPr, style and charPr
// from the section's last paragraph; WithoutStyleInheritance forces the "0"
// defaults instead.
func (s *Section) AddParagraph(text string, opts ...ParagraphOption) (*Paragraph, error) {
	cfg := defaultParagraphConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	root, err := s.Root()
	if err != nil {
		return nil, err
	}

	if !cfg.hasParaPr && !cfg.hasStyle && !cfg.hasCharPr && cfg.inheritStyle {
		if last := lastParagraphElement(root); last != nil {
			cfg.paraPrIDRef = last.SelectAttrValue("paraPrIDRef", "0")
			cfg.styleIDRef = last.SelectAttrValue("styleIDRef", "0")
			if run := firstChild(last, "run"); run != nil {
				cfg.charPrIDRef = run.SelectAttrValue("charPrIDRef", "0")
			}
		}
	}

	id, err := s.nextParagraphID()
	if err != nil {
		return nil, err
	}
	el := buildParagraphElement(root, id, text, &cfg)
	s.MarkDirty()
	Debug("added paragraph %s to %s", id, s.path)
	return &Paragraph{section: s, el: el}, nil
}

// lastParagraphElement returns the final top-level paragraph element, or nil.
func lastParagraphElement(root *etree.Element) *etree.Element {
	elems := childElements(root, "p")
	if len(elems) == 0 {
		return nil
	}
	return elems[len(elems)-1]
}

// buildParagraphElement creates and attaches a paragraph element under
// parent. New paragraphs are inserted before a trailing memo group so memos
// stay at the end of the section.
func buildParagraphElement(parent *etree.Element, id, text string, cfg *paragraphConfig) *etree.Element {
	el := etree.NewElement("hp:p")
	el.CreateAttr("id", id)
	el.CreateAttr("paraPrIDRef", orDefault(cfg.paraPrIDRef, "0"))
	el.CreateAttr("styleIDRef", orDefault(cfg.styleIDRef, "0"))
	el.CreateAttr("pageBreak", "0")
	el.CreateAttr("columnBreak", "0")
	el.CreateAttr("merged", "0")
	for _, key := range sortedKeys(cfg.paraAttrs) {
		el.CreateAttr(key, cfg.paraAttrs[key])
	}

	if memoGroup := firstChild(parent, "memogroup"); memoGroup != nil {
		parent.InsertChildAt(memoGroup.Index(), el)
	} else {
		parent.AddChild(el)
	}

	if cfg.includeRun {
		run := el.CreateElement("hp:run")
		run.CreateAttr("charPrIDRef", orDefault(cfg.charPrIDRef, "0"))
		for _, key := range sortedKeys(cfg.runAttrs) {
			run.CreateAttr(key, cfg.runAttrs[key])
		}
		run.CreateElement("hp:t").SetText(text)
	}
	return el
}

func orDefault(v, dflt string) string {
	if v == "" {
		return dflt
	}
	return v
}

// RemoveParagraphAt removes the top-level paragraph at index. The section
// must keep at least one paragraph.
func (s *Section) RemoveParagraphAt(index int) error {
	root, err := s.Root()
	if err != nil {
		return err
	}
	elems := childElements(root, "p")
	if index < 0 || index >= len(elems) {
		return fmt.Errorf("paragraph index %d out of range", index)
	}
	if len(elems) <= 1 {
		return fmt.Errorf("cannot remove paragraph %d: %w", index, ErrLastParagraph)
	}
	root.RemoveChild(elems[index])
	s.MarkDirty()
	return nil
}

// removeParagraph removes a paragraph by element identity.
func (s *Section) removeParagraph(p *Paragraph) error {
	root, err := s.Root()
	if err != nil {
		return err
	}
	elems := childElements(root, "p")
	for i, el := range elems {
		if el == p.el {
			return s.RemoveParagraphAt(i)
		}
	}
	return fmt.Errorf("paragraph does not belong to this section")
}

// MemoGroup returns the section's memo container, or nil when the section
// has no memos.
func (s *Section) MemoGroup() (*MemoGroup, error) {
	root, err := s.Root()
	if err != nil {
		return nil, err
	}
	el := firstChild(root, "memogroup")
	if el == nil {
		return nil, nil
	}
	return &MemoGroup{section: s, el: el}, nil
}

// ensureMemoGroup returns the memo container, creating it at the end of the
// section when absent.
func (s *Section) ensureMemoGroup() (*MemoGroup, error) {
	group, err := s.MemoGroup()
	if err != nil {
		return nil, err
	}
	if group != nil {
		return group, nil
	}
	root, _ := s.Root()
	el := root.CreateElement("hp:memogroup")
	s.MarkDirty()
	return &MemoGroup{section: s, el: el}, nil
}

// Tables returns all tables anchored in the section's top-level paragraphs.
func (s *Section) Tables() ([]*Table, error) {
	paragraphs, err := s.Paragraphs()
	if err != nil {
		return nil, err
	}
	var tables []*Table
	for _, p := range paragraphs {
		tables = append(tables, p.Tables()...)
	}
	return tables, nil
}
