package hwpx

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/beevik/etree"
)

// part is a lazily-parsed XML part of the package. Wrappers hold live
// references into the parsed tree; the XML node itself is the single source
// of truth, so aliasing wrappers never diverge. A part moves through
// unloaded -> parsed -> dirty, and back to clean after a full-document save.
type part struct {
	pkg   *Package
	path  string
	doc   *etree.Document
	decl  []byte
	dirty bool
}

func (pt *part) load() error {
	if pt.doc != nil {
		return nil
	}
	data, err := pt.pkg.Read(pt.path)
	if err != nil {
		return err
	}
	doc, err := ParseXML(data)
	if err != nil {
		return NewPackageError("parse", pt.path, err)
	}
	pt.doc = doc
	pt.decl = ExtractXMLDeclaration(data)
	return nil
}

// Root returns the part's root element, parsing the part on first access.
func (pt *part) Root() (*etree.Element, error) {
	if err := pt.load(); err != nil {
		return nil, err
	}
	return pt.doc.Root(), nil
}

// Path returns the archive path backing this part.
func (pt *part) Path() string {
	return pt.path
}

// Dirty reports whether the part has pending in-memory changes.
func (pt *part) Dirty() bool {
	return pt.dirty
}

// MarkDirty flags the part for re-serialization on the next save.
func (pt *part) MarkDirty() {
	pt.dirty = true
}

func (pt *part) serializeInto(updates map[string][]byte) error {
	if !pt.dirty || pt.doc == nil {
		return nil
	}
	data, err := SerializeXML(pt.doc, pt.decl)
	if err != nil {
		return NewPackageError("serialize", pt.path, err)
	}
	updates[pt.path] = data
	return nil
}

// GenericPart is an XML part without a typed wrapper (master pages and
// histories). Callers mutate its tree directly and mark it dirty.
type GenericPart struct {
	part
}

// Tree is the typed object model over the package's XML parts: ordered
// sections, headers, master pages and histories, plus the version part held
// by the package itself.
type Tree struct {
	pkg         *Package
	sections    []*Section
	headers     []*Header
	masterPages []*GenericPart
	histories   []*GenericPart
}

func newTree(pkg *Package) *Tree {
	t := &Tree{pkg: pkg}
	for _, p := range pkg.SectionPaths() {
		t.sections = append(t.sections, &Section{part: part{pkg: pkg, path: p}, tree: t})
	}
	for _, p := range pkg.HeaderPaths() {
		t.headers = append(t.headers, &Header{part: part{pkg: pkg, path: p}})
	}
	for _, p := range pkg.MasterPagePaths() {
		t.masterPages = append(t.masterPages, &GenericPart{part{pkg: pkg, path: p}})
	}
	for _, p := range pkg.HistoryPaths() {
		t.histories = append(t.histories, &GenericPart{part{pkg: pkg, path: p}})
	}
	return t
}

// serialize returns path->bytes payloads for every dirty part. Parts with no
// pending mutation are not rewritten.
func (t *Tree) serialize() (map[string][]byte, error) {
	updates := make(map[string][]byte)
	for _, s := range t.sections {
		if err := s.serializeInto(updates); err != nil {
			return nil, err
		}
	}
	for _, h := range t.headers {
		if err := h.serializeInto(updates); err != nil {
			return nil, err
		}
	}
	for _, m := range t.masterPages {
		if err := m.serializeInto(updates); err != nil {
			return nil, err
		}
	}
	for _, h := range t.histories {
		if err := h.serializeInto(updates); err != nil {
			return nil, err
		}
	}
	return updates, nil
}

func (t *Tree) resetDirty() {
	for _, s := range t.sections {
		s.dirty = false
	}
	for _, h := range t.headers {
		h.dirty = false
	}
	for _, m := range t.masterPages {
		m.dirty = false
	}
	for _, h := range t.histories {
		h.dirty = false
	}
}

var sectionFileRe = regexp.MustCompile(`section(\d+)\.xml$`)

// nextSectionPath allocates the next unused Contents/sectionN.xml path.
func (t *Tree) nextSectionPath() (string, int) {
	max := -1
	for _, s := range t.sections {
		if m := sectionFileRe.FindStringSubmatch(s.path); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	n := max + 1
	return fmt.Sprintf("Contents/section%d.xml", n), n
}

// addSection creates a new empty section part, registers it in the manifest
// and spine, and inserts it into the tree. after < 0 appends.
func (t *Tree) addSection(after int) (*Section, error) {
	if after >= len(t.sections) {
		return nil, fmt.Errorf("section index %d out of range", after)
	}

	path, n := t.nextSectionPath()
	if err := t.pkg.Write(path, []byte(blankSectionXML)); err != nil {
		return nil, err
	}

	itemID := fmt.Sprintf("section%d", n)
	if err := t.pkg.AddManifestItem(itemID, path, "application/xml"); err != nil {
		return nil, err
	}
	spineIndex := -1
	if after >= 0 {
		// Insert right after the reference section's spine position.
		refPath := t.sections[after].path
		for i, sp := range t.pkg.resolveSpinePaths() {
			if sp == refPath {
				spineIndex = i + 1
				break
			}
		}
	}
	if err := t.pkg.AddSpineEntry(itemID, spineIndex); err != nil {
		return nil, err
	}

	section := &Section{part: part{pkg: t.pkg, path: path}, tree: t}
	if after < 0 {
		t.sections = append(t.sections, section)
	} else {
		t.sections = append(t.sections, nil)
		copy(t.sections[after+2:], t.sections[after+1:])
		t.sections[after+1] = section
	}
	return section, nil
}

// removeSectionAt removes the section at index. The document must keep at
// least one section.
func (t *Tree) removeSectionAt(index int) error {
	if index < 0 || index >= len(t.sections) {
		return fmt.Errorf("section index %d out of range", index)
	}
	if len(t.sections) <= 1 {
		return fmt.Errorf("cannot remove section %d: %w", index, ErrLastSection)
	}
	section := t.sections[index]

	// Drop the manifest item (and its spine entry) referencing the part.
	for _, item := range t.pkg.manifestItems() {
		if item.SelectAttrValue("href", "") == section.path {
			if _, err := t.pkg.RemoveManifestItem(item.SelectAttrValue("id", "")); err != nil {
				return err
			}
			break
		}
	}
	if err := t.pkg.Delete(section.path); err != nil {
		return err
	}
	t.sections = append(t.sections[:index], t.sections[index+1:]...)
	return nil
}

func (t *Tree) removeSection(section *Section) error {
	for i, s := range t.sections {
		if s == section {
			return t.removeSectionAt(i)
		}
	}
	return fmt.Errorf("section does not belong to this document")
}

// primaryHeader returns the first header part, or nil when the document has
// none.
func (t *Tree) primaryHeader() *Header {
	if len(t.headers) == 0 {
		return nil
	}
	return t.headers[0]
}
