package hwpx

import (
	"fmt"
	"io"
	"strings"
)

// Document is the top-level facade over a package and its object tree. All
// read operations are lazy; mutations mark the touched parts dirty so a save
// only re-serializes what changed.
type Document struct {
	pkg  *Package
	tree *Tree

	resources []io.Closer
	closed    bool

	// ValidateOnSave runs structural validation before every save. It
	// defaults to the HWPX_VALIDATE_ON_SAVE configuration value.
	ValidateOnSave bool
}

// Open loads a document from a file path.
func Open(filename string) (*Document, error) {
	pkg, err := OpenPackageFile(filename)
	if err != nil {
		return nil, err
	}
	Info("opened document from %s", filename)
	return FromPackage(pkg), nil
}

// OpenBytes loads a document from an in-memory archive.
func OpenBytes(data []byte) (*Document, error) {
	pkg, err := OpenPackageBytes(data)
	if err != nil {
		return nil, err
	}
	return FromPackage(pkg), nil
}

// OpenReader loads a document by reading r to the end.
func OpenReader(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewPackageError("open", "", err)
	}
	return OpenBytes(data)
}

// New creates an empty single-section document.
func New() (*Document, error) {
	data, err := BlankDocumentBytes()
	if err != nil {
		return nil, err
	}
	return OpenBytes(data)
}

// FromPackage wraps an already-opened package.
func FromPackage(pkg *Package) *Document {
	return &Document{
		pkg:            pkg,
		tree:           newTree(pkg),
		ValidateOnSave: GetGlobalConfig().ValidateOnSave,
	}
}

// Package returns the underlying package.
func (d *Document) Package() *Package {
	return d.pkg
}

// Version returns the mutable version.xml attribute bag.
func (d *Document) Version() *VersionInfo {
	return d.pkg.VersionInfo()
}

// Sections returns the document's sections in spine order.
func (d *Document) Sections() []*Section {
	return d.tree.sections
}

// Headers returns the document's header parts.
func (d *Document) Headers() []*Header {
	return d.tree.headers
}

// MasterPages returns the document's master page parts.
func (d *Document) MasterPages() []*GenericPart {
	return d.tree.masterPages
}

// Histories returns the document's history parts.
func (d *Document) Histories() []*GenericPart {
	return d.tree.histories
}

// Paragraphs returns every top-level paragraph across all sections.
func (d *Document) Paragraphs() ([]*Paragraph, error) {
	var out []*Paragraph
	for _, s := range d.tree.sections {
		paragraphs, err := s.Paragraphs()
		if err != nil {
			return nil, err
		}
		out = append(out, paragraphs...)
	}
	return out, nil
}

// Text returns the document text, sections and paragraphs joined by
// newlines.
func (d *Document) Text() (string, error) {
	var parts []string
	for _, s := range d.tree.sections {
		text, err := s.Text()
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

// targetSection resolves the section addressed by paragraph options. The
// default is the last section.
func (d *Document) targetSection(section *Section, index int) (*Section, error) {
	if section != nil {
		for _, s := range d.tree.sections {
			if s == section {
				return s, nil
			}
		}
		return nil, fmt.Errorf("section does not belong to this document")
	}
	if index >= 0 {
		if index >= len(d.tree.sections) {
			return nil, fmt.Errorf("section index %d out of range", index)
		}
		return d.tree.sections[index], nil
	}
	if len(d.tree.sections) == 0 {
		return nil, NewStructureError("document has no sections")
	}
	return d.tree.sections[len(d.tree.sections)-1], nil
}

// AddParagraph appends a paragraph to the last section (or the section
// addressed via WithSection/WithSectionIndex).
func (d *Document) AddParagraph(text string, opts ...ParagraphOption) (*Paragraph, error) {
	cfg := defaultParagraphConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	section, err := d.targetSection(cfg.section, cfg.sectionIndex)
	if err != nil {
		return nil, err
	}
	return section.AddParagraph(text, opts...)
}

// RemoveParagraph detaches a paragraph. Its section must keep at least one
// paragraph.
func (d *Document) RemoveParagraph(p *Paragraph) error {
	if p == nil {
		return fmt.Errorf("paragraph is nil")
	}
	if p.section == nil || p.section.tree != d.tree {
		return fmt.Errorf("paragraph does not belong to this document")
	}
	return p.Remove()
}

// AddSection appends a new empty section and registers it in the manifest
// and spine.
func (d *Document) AddSection() (*Section, error) {
	return d.tree.addSection(-1)
}

// AddSectionAfter inserts a new empty section right after the section at
// index.
func (d *Document) AddSectionAfter(index int) (*Section, error) {
	if index < 0 {
		return nil, fmt.Errorf("section index %d out of range", index)
	}
	return d.tree.addSection(index)
}

// RemoveSection removes a section. The document must keep at least one.
func (d *Document) RemoveSection(section *Section) error {
	return d.tree.removeSection(section)
}

// RemoveSectionAt removes the section at index.
func (d *Document) RemoveSectionAt(index int) error {
	return d.tree.removeSectionAt(index)
}

// AddTable appends a table anchored in a fresh paragraph. The table uses the
// header's basic (borderless) border fill unless one is given explicitly.
func (d *Document) AddTable(rows, cols int, opts ...TableOption) (*Table, error) {
	cfg := defaultTableConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	section, err := d.targetSection(cfg.section, cfg.sectionIndex)
	if err != nil {
		return nil, err
	}
	if !cfg.hasBorderFill {
		if header := d.tree.primaryHeader(); header != nil {
			id, err := header.EnsureBasicBorderFill()
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithTableBorderFill(id))
		}
	}
	paragraphOpts := append([]ParagraphOption{WithoutRun()}, cfg.paragraphOptions...)
	p, err := section.AddParagraph("", paragraphOpts...)
	if err != nil {
		return nil, err
	}
	return p.AddTable(rows, cols, opts...)
}

// Tables returns every table anchored in top-level paragraphs.
func (d *Document) Tables() ([]*Table, error) {
	var out []*Table
	for _, s := range d.tree.sections {
		tables, err := s.Tables()
		if err != nil {
			return nil, err
		}
		out = append(out, tables...)
	}
	return out, nil
}

// Header lookups delegate to the primary header part. Missing definitions
// return nil without error.

func (d *Document) header() (*Header, error) {
	header := d.tree.primaryHeader()
	if header == nil {
		return nil, NewStructureError("document has no header part")
	}
	return header, nil
}

// CharProperty returns the character property definition with the given id.
func (d *Document) CharProperty(id any) (*CharProperty, error) {
	header, err := d.header()
	if err != nil {
		return nil, err
	}
	return header.CharProperty(id)
}

// Style returns the style definition with the given id.
func (d *Document) Style(id any) (*Style, error) {
	header, err := d.header()
	if err != nil {
		return nil, err
	}
	return header.Style(id)
}

// BorderFill returns the border fill definition with the given id.
func (d *Document) BorderFill(id any) (*BorderFill, error) {
	header, err := d.header()
	if err != nil {
		return nil, err
	}
	return header.BorderFill(id)
}

// MemoShape returns the memo shape definition with the given id.
func (d *Document) MemoShape(id any) (*MemoShape, error) {
	header, err := d.header()
	if err != nil {
		return nil, err
	}
	return header.MemoShape(id)
}

// ParagraphProperty returns the paragraph property definition with the given id.
func (d *Document) ParagraphProperty(id any) (*ParagraphProperty, error) {
	header, err := d.header()
	if err != nil {
		return nil, err
	}
	return header.ParagraphProperty(id)
}

// Bullet returns the bullet definition with the given id.
func (d *Document) Bullet(id any) (*Bullet, error) {
	header, err := d.header()
	if err != nil {
		return nil, err
	}
	return header.Bullet(id)
}

// TrackChange returns the tracked-change definition with the given id.
func (d *Document) TrackChange(id any) (*TrackChange, error) {
	header, err := d.header()
	if err != nil {
		return nil, err
	}
	return header.TrackChange(id)
}

// TrackChangeAuthor returns the tracked-change author with the given id.
func (d *Document) TrackChangeAuthor(id any) (*TrackChangeAuthor, error) {
	header, err := d.header()
	if err != nil {
		return nil, err
	}
	return header.TrackChangeAuthor(id)
}

// EnsureRunStyle returns a character property id matching the given flags,
// creating a definition when none exists.
func (d *Document) EnsureRunStyle(bold, italic, underline bool, baseID any) (string, error) {
	header, err := d.header()
	if err != nil {
		return "", err
	}
	return header.EnsureRunStyle(bold, italic, underline, baseID)
}

// RunStyleFilter selects runs by their character property definition.
// Empty fields match anything.
type RunStyleFilter struct {
	CharPrIDRef    any
	TextColor      string
	UnderlineType  string
	UnderlineColor string
}

func (f *RunStyleFilter) matches(run *Run, header *Header) (bool, error) {
	if f == nil {
		return true, nil
	}
	if want, ok := normalizeIDRef(f.CharPrIDRef); ok && run.CharPrIDRef() != want {
		return false, nil
	}
	if f.TextColor == "" && f.UnderlineType == "" && f.UnderlineColor == "" {
		return true, nil
	}
	if header == nil {
		return false, nil
	}
	cp, err := header.CharProperty(run.CharPrIDRef())
	if err != nil {
		return false, err
	}
	if cp == nil {
		return false, nil
	}
	if f.TextColor != "" && cp.TextColor() != f.TextColor {
		return false, nil
	}
	if f.UnderlineType != "" && cp.UnderlineType() != f.UnderlineType {
		return false, nil
	}
	if f.UnderlineColor != "" && cp.UnderlineColor() != f.UnderlineColor {
		return false, nil
	}
	return true, nil
}

// FindRunsByStyle returns every run matching the filter across all sections.
func (d *Document) FindRunsByStyle(filter *RunStyleFilter) ([]*Run, error) {
	header := d.tree.primaryHeader()
	paragraphs, err := d.Paragraphs()
	if err != nil {
		return nil, err
	}
	var out []*Run
	for _, p := range paragraphs {
		for _, run := range p.Runs() {
			ok, err := filter.matches(run, header)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, run)
			}
		}
	}
	return out, nil
}

// ReplaceTextInRuns substitutes search with replacement across every run
// matching the filter. limit < 0 replaces all occurrences. The runs'
// character property references are preserved. Returns the number of
// replacements made.
func (d *Document) ReplaceTextInRuns(search, replacement string, filter *RunStyleFilter, limit int) (int, error) {
	if search == "" {
		return 0, fmt.Errorf("search string must not be empty")
	}
	runs, err := d.FindRunsByStyle(filter)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, run := range runs {
		if limit >= 0 && total >= limit {
			break
		}
		remaining := -1
		if limit >= 0 {
			remaining = limit - total
		}
		n, err := run.ReplaceText(search, replacement, remaining)
		if err != nil {
			return total, err
		}
		total += n
	}
	if total > 0 {
		Debug("replaced %d occurrence(s) of %q", total, search)
	}
	return total, nil
}

// Memos returns every memo across all sections.
func (d *Document) Memos() ([]*Memo, error) {
	var out []*Memo
	for _, s := range d.tree.sections {
		group, err := s.MemoGroup()
		if err != nil {
			return nil, err
		}
		if group != nil {
			out = append(out, group.Memos()...)
		}
	}
	return out, nil
}

// AddMemo appends a memo to the last section's memo group.
func (d *Document) AddMemo(text string, opts *MemoOptions) (*Memo, error) {
	section, err := d.targetSection(nil, -1)
	if err != nil {
		return nil, err
	}
	return section.AddMemo(text, opts)
}

// RemoveMemo removes the memo with the given id. Returns false when no such
// memo exists.
func (d *Document) RemoveMemo(memoID string) (bool, error) {
	memos, err := d.Memos()
	if err != nil {
		return false, err
	}
	for _, m := range memos {
		if m.ID() == memoID {
			m.Remove()
			return true, nil
		}
	}
	return false, nil
}

// AttachMemoField anchors a MEMO field pair in the paragraph referencing the
// memo and returns the field id.
func (d *Document) AttachMemoField(p *Paragraph, m *Memo, opts *MemoFieldOptions) (string, error) {
	return AttachMemoField(p, m, opts)
}

// MemoAnchorOptions configures AddMemoWithAnchor.
type MemoAnchorOptions struct {
	Memo  MemoOptions
	Field MemoFieldOptions
	// AnchorText is the text of the new paragraph the field is anchored in.
	AnchorText string
}

// AddMemoWithAnchor creates a memo, a new anchor paragraph and the MEMO
// field pair binding them, in one call.
func (d *Document) AddMemoWithAnchor(text string, opts *MemoAnchorOptions) (*Memo, *Paragraph, string, error) {
	if opts == nil {
		opts = &MemoAnchorOptions{}
	}
	memo, err := d.AddMemo(text, &opts.Memo)
	if err != nil {
		return nil, nil, "", err
	}
	p, err := d.AddParagraph(opts.AnchorText)
	if err != nil {
		return nil, nil, "", err
	}
	fieldID, err := AttachMemoField(p, memo, &opts.Field)
	if err != nil {
		return nil, nil, "", err
	}
	return memo, p, fieldID, nil
}

// Validate checks structural invariants and returns nil when the document is
// well formed.
func (d *Document) Validate() error {
	issues, err := d.collectValidationIssues()
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		return nil
	}
	return NewValidationError(issues)
}

// ToBytes serializes the document to a complete archive. Dirty parts are
// re-serialized; everything else round-trips byte for byte.
func (d *Document) ToBytes() ([]byte, error) {
	if err := d.prepareSave(); err != nil {
		return nil, err
	}
	updates, err := d.tree.serialize()
	if err != nil {
		return nil, err
	}
	data, err := d.pkg.ToBytes(updates)
	if err != nil {
		return nil, err
	}
	d.tree.resetDirty()
	return data, nil
}

// SaveToStream writes the complete archive to w. The archive is fully built
// in memory first, so a failed save never leaves w half written by the
// serializer.
func (d *Document) SaveToStream(w io.Writer) error {
	data, err := d.ToBytes()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return NewPackageError("save", "", err)
	}
	return nil
}

// SaveToPath writes the complete archive to a file.
func (d *Document) SaveToPath(filename string) error {
	if err := d.prepareSave(); err != nil {
		return err
	}
	updates, err := d.tree.serialize()
	if err != nil {
		return err
	}
	if err := d.pkg.SaveToPath(filename, updates); err != nil {
		return err
	}
	d.tree.resetDirty()
	Info("saved document to %s", filename)
	return nil
}

func (d *Document) prepareSave() error {
	if d.closed {
		return fmt.Errorf("document is closed")
	}
	if d.ValidateOnSave {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// manage registers a resource to be released by Close.
func (d *Document) manage(c io.Closer) {
	d.resources = append(d.resources, c)
}

// Close releases managed resources. Cleanup failures are logged at debug
// level and never returned; Close is idempotent.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	for _, res := range d.resources {
		if f, ok := res.(interface{ Flush() error }); ok {
			if err := f.Flush(); err != nil {
				Debug("flush during close failed: %v", err)
			}
		}
		if err := res.Close(); err != nil {
			Debug("close of managed resource failed: %v", err)
		}
	}
	d.resources = nil
	return nil
}
