package hwpx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Well-known part paths inside an HWPX package.
const (
	ContainerPath   = "META-INF/container.xml"
	VersionPath     = "version.xml"
	MimetypePath    = "mimetype"
	ManifestPath    = "Contents/content.hpf"
	HeaderPath      = "Contents/header.xml"
	DefaultMimetype = "application/hwp+zip"

	// MediaTypePackage marks the primary content manifest rootfile.
	MediaTypePackage = "application/hwpml-package+xml"
)

// xmlDeclUTF8 is written in front of parts that are re-serialized from a
// parsed tree rather than round-tripped from original bytes.
const xmlDeclUTF8 = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

// RootFile represents a rootfile entry from META-INF/container.xml.
type RootFile struct {
	FullPath  string
	MediaType string
}

// ensureExists fails with a StructureError when the referenced root content
// is absent from the archive.
func (r RootFile) ensureExists(files map[string][]byte) error {
	if _, ok := files[r.FullPath]; !ok {
		return NewStructureError(fmt.Sprintf(
			"root content '%s' declared in container.xml is missing", r.FullPath))
	}
	return nil
}

// Package represents an HWPX package backed by an Open Packaging Convention
// container. It owns the raw bytes of every part and derives logical part
// roles (sections, headers, master pages, histories, version) from the
// manifest with a filename-heuristic fallback.
type Package struct {
	files     map[string][]byte
	rootfiles []RootFile
	version   *VersionInfo
	mimetype  string

	manifestDoc *etree.Document

	spineCache        []string
	spineResolved     bool
	sectionPaths      []string
	sectionsResolved  bool
	headerPaths       []string
	headersResolved   bool
	masterPagePaths   []string
	mastersResolved   bool
	historyPaths      []string
	historiesResolved bool
	versionPath       string
	versionResolved   bool
}

// OpenPackageReader opens a package from an io.ReaderAt of the given size.
func OpenPackageReader(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, NewPackageError("open", "", fmt.Errorf("failed to read zip archive: %w", err))
	}

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, NewPackageError("open", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, NewPackageError("open", f.Name, err)
		}
		files[normalizePath(f.Name)] = data
	}

	return newPackage(files)
}

// OpenPackageBytes opens a package from an in-memory archive.
func OpenPackageBytes(data []byte) (*Package, error) {
	return OpenPackageReader(bytes.NewReader(data), int64(len(data)))
}

// OpenPackageFile opens a package from a file path.
func OpenPackageFile(filename string) (*Package, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, NewPackageError("open", filename, err)
	}
	return OpenPackageBytes(data)
}

func newPackage(files map[string][]byte) (*Package, error) {
	mimetype, ok := files[MimetypePath]
	if !ok {
		return nil, NewStructureError("HWPX package is missing the mandatory 'mimetype' file")
	}
	rootfiles, err := parseContainer(files[ContainerPath])
	if err != nil {
		return nil, err
	}
	version, err := parseVersionPart(files[VersionPath])
	if err != nil {
		return nil, err
	}
	p := &Package{
		files:     files,
		rootfiles: rootfiles,
		version:   version,
		mimetype:  string(mimetype),
	}
	if err := p.validateStructure(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseContainer(data []byte) ([]RootFile, error) {
	if data == nil {
		return nil, NewStructureError("HWPX package is missing 'META-INF/container.xml'")
	}
	doc, err := ParseXML(data)
	if err != nil {
		return nil, NewPackageError("parse", ContainerPath, err)
	}
	var rootfiles []RootFile
	for _, elem := range doc.Root().FindElements("//rootfile") {
		fullPath := elem.SelectAttrValue("full-path", "")
		if fullPath == "" {
			fullPath = elem.SelectAttrValue("fullPath", "")
		}
		if fullPath == "" {
			fullPath = elem.SelectAttrValue("full_path", "")
		}
		if fullPath == "" {
			return nil, NewStructureError("container.xml contains a rootfile without 'full-path'")
		}
		mediaType := elem.SelectAttrValue("media-type", "")
		if mediaType == "" {
			mediaType = elem.SelectAttrValue("mediaType", "")
		}
		if mediaType == "" {
			mediaType = elem.SelectAttrValue("media_type", "")
		}
		rootfiles = append(rootfiles, RootFile{FullPath: normalizePath(fullPath), MediaType: mediaType})
	}
	if len(rootfiles) == 0 {
		return nil, NewStructureError("container.xml does not declare any rootfiles")
	}
	return rootfiles, nil
}

func parseVersionPart(data []byte) (*VersionInfo, error) {
	if data == nil {
		return nil, NewStructureError("HWPX package is missing 'version.xml'")
	}
	return ParseVersionInfo(data)
}

func (p *Package) validateStructure() error {
	for _, rf := range p.rootfiles {
		if err := rf.ensureExists(p.files); err != nil {
			return err
		}
	}
	for name := range p.files {
		if strings.HasPrefix(name, "Contents/") || strings.HasPrefix(name, "Content/") {
			return nil
		}
	}
	return NewStructureError("HWPX package does not contain a 'Contents' directory")
}

func normalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// Mimetype returns the package mimetype string.
func (p *Package) Mimetype() string {
	return p.mimetype
}

// RootFiles returns the rootfile entries declared in the container.
func (p *Package) RootFiles() []RootFile {
	out := make([]RootFile, len(p.rootfiles))
	copy(out, p.rootfiles)
	return out
}

// MainContent returns the rootfile carrying the package manifest, preferring
// the hwpml-package media type and falling back to the first entry.
func (p *Package) MainContent() RootFile {
	for _, rf := range p.rootfiles {
		if rf.MediaType == MediaTypePackage {
			return rf
		}
	}
	return p.rootfiles[0]
}

// VersionInfo returns the parsed version.xml model.
func (p *Package) VersionInfo() *VersionInfo {
	return p.version
}

// PartNames returns every part path in sorted order.
func (p *Package) PartNames() []string {
	names := make([]string, 0, len(p.files))
	for name := range p.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasPart reports whether the archive contains the given part.
func (p *Package) HasPart(partName string) bool {
	_, ok := p.files[normalizePath(partName)]
	return ok
}

// Read returns the raw bytes of a part.
func (p *Package) Read(partName string) ([]byte, error) {
	norm := normalizePath(partName)
	data, ok := p.files[norm]
	if !ok {
		return nil, NewPackageError("read", norm, fmt.Errorf("part is not present in the package"))
	}
	return data, nil
}

// Write replaces the content of a part. Writes to a mandatory path re-parse
// the payload first (so corrupt data fails before any mutation) and re-run
// structural validation afterwards.
func (p *Package) Write(partName string, data []byte) error {
	norm := normalizePath(partName)

	var pendingRootfiles []RootFile
	var pendingVersion *VersionInfo
	var err error
	switch norm {
	case ContainerPath:
		pendingRootfiles, err = parseContainer(data)
		if err != nil {
			return err
		}
	case VersionPath:
		pendingVersion, err = parseVersionPart(data)
		if err != nil {
			return err
		}
	}

	p.files[norm] = data
	p.invalidateCaches(norm)
	switch norm {
	case MimetypePath:
		p.mimetype = string(data)
	case ContainerPath:
		p.rootfiles = pendingRootfiles
	case VersionPath:
		p.version = pendingVersion
	}
	return p.validateStructure()
}

// Delete removes a part. Mandatory parts cannot be removed.
func (p *Package) Delete(partName string) error {
	norm := normalizePath(partName)
	if _, ok := p.files[norm]; !ok {
		return NewPackageError("delete", norm, fmt.Errorf("part is not present in the package"))
	}
	switch norm {
	case MimetypePath, ContainerPath, VersionPath:
		return NewStructureError("cannot remove mandatory parts ('mimetype', 'container.xml', 'version.xml')")
	}
	for _, rf := range p.rootfiles {
		if rf.FullPath == norm {
			return NewStructureError(fmt.Sprintf(
				"cannot remove root content '%s' declared in container.xml", norm))
		}
	}
	delete(p.files, norm)
	p.invalidateCaches(norm)
	return p.validateStructure()
}

// SetPartXML serializes an element tree (with a fresh UTF-8 declaration) and
// writes it as the given part.
func (p *Package) SetPartXML(partName string, doc *etree.Document) error {
	data, err := SerializeXML(doc, []byte(xmlDeclUTF8))
	if err != nil {
		return NewPackageError("serialize", partName, err)
	}
	return p.Write(partName, data)
}

// GetXML parses a part into an element tree.
func (p *Package) GetXML(partName string) (*etree.Document, error) {
	data, err := p.Read(partName)
	if err != nil {
		return nil, err
	}
	doc, err := ParseXML(data)
	if err != nil {
		return nil, NewPackageError("parse", normalizePath(partName), err)
	}
	return doc, nil
}

// ------------------------------------------------------------------
// manifest / spine resolution

// manifestTree returns the parsed manifest part, or nil when the manifest is
// missing or unparsable. A nil tree makes every manifest correlation come up
// empty so the filename fallback takes over; manifest-declared roles stay
// authoritative whenever the manifest is readable.
func (p *Package) manifestTree() *etree.Document {
	if p.manifestDoc == nil {
		doc, err := p.GetXML(ManifestPath)
		if err != nil {
			Debug("manifest part unavailable, falling back to filename heuristics: %v", err)
			return nil
		}
		p.manifestDoc = doc
	}
	return p.manifestDoc
}

func (p *Package) manifestItems() []*etree.Element {
	doc := p.manifestTree()
	if doc == nil {
		return nil
	}
	manifest := firstChild(doc.Root(), "manifest")
	if manifest == nil {
		return nil
	}
	return childElements(manifest, "item")
}

func (p *Package) spineRefs() []*etree.Element {
	doc := p.manifestTree()
	if doc == nil {
		return nil
	}
	spine := firstChild(doc.Root(), "spine")
	if spine == nil {
		return nil
	}
	return childElements(spine, "itemref")
}

// normalizedManifestValue joins the searchable attributes of a manifest item
// in lowercase for keyword matching.
func normalizedManifestValue(item *etree.Element) string {
	var parts []string
	for _, key := range []string{"id", "href", "media-type", "properties"} {
		if v := item.SelectAttrValue(key, ""); v != "" {
			parts = append(parts, strings.ToLower(v))
		}
	}
	return strings.Join(parts, " ")
}

func manifestMatches(item *etree.Element, candidates ...string) bool {
	normalized := normalizedManifestValue(item)
	for _, candidate := range candidates {
		if candidate != "" && strings.Contains(normalized, candidate) {
			return true
		}
	}
	return false
}

// resolveSpinePaths returns the manifest hrefs in spine (reading) order.
func (p *Package) resolveSpinePaths() []string {
	if !p.spineResolved {
		hrefs := make(map[string]string)
		for _, item := range p.manifestItems() {
			id := item.SelectAttrValue("id", "")
			href := item.SelectAttrValue("href", "")
			if id != "" && href != "" {
				hrefs[id] = href
			}
		}
		var paths []string
		for _, ref := range p.spineRefs() {
			idref := ref.SelectAttrValue("idref", "")
			if idref == "" {
				continue
			}
			if href, ok := hrefs[idref]; ok {
				paths = append(paths, href)
			}
		}
		p.spineCache = paths
		p.spineResolved = true
	}
	return p.spineCache
}

// scanPartNames returns sorted part names whose base file name satisfies
// match.
func (p *Package) scanPartNames(match func(base string) bool) []string {
	var out []string
	for _, name := range p.PartNames() {
		if match(strings.ToLower(path.Base(name))) {
			out = append(out, name)
		}
	}
	return out
}

// SectionPaths resolves the section part paths, preferring spine order and
// falling back to a filename scan when the manifest declares none.
func (p *Package) SectionPaths() []string {
	if !p.sectionsResolved {
		var paths []string
		for _, sp := range p.resolveSpinePaths() {
			if strings.HasPrefix(path.Base(sp), "section") {
				paths = append(paths, sp)
			}
		}
		if len(paths) == 0 {
			paths = p.scanPartNames(func(base string) bool {
				return strings.HasPrefix(base, "section")
			})
		}
		p.sectionPaths = paths
		p.sectionsResolved = true
	}
	return append([]string(nil), p.sectionPaths...)
}

// HeaderPaths resolves the header part paths.
func (p *Package) HeaderPaths() []string {
	if !p.headersResolved {
		var paths []string
		for _, sp := range p.resolveSpinePaths() {
			if strings.HasPrefix(path.Base(sp), "header") {
				paths = append(paths, sp)
			}
		}
		if len(paths) == 0 && p.HasPart(HeaderPath) {
			paths = []string{HeaderPath}
		}
		p.headerPaths = paths
		p.headersResolved = true
	}
	return append([]string(nil), p.headerPaths...)
}

// MasterPagePaths resolves master-page part paths from manifest item
// metadata, falling back to filename matching.
func (p *Package) MasterPagePaths() []string {
	if !p.mastersResolved {
		var paths []string
		for _, item := range p.manifestItems() {
			if manifestMatches(item, "masterpage", "master-page") {
				if href := item.SelectAttrValue("href", ""); href != "" {
					paths = append(paths, href)
				}
			}
		}
		if len(paths) == 0 {
			paths = p.scanPartNames(func(base string) bool {
				return strings.Contains(base, "master") && strings.Contains(base, "page")
			})
		}
		p.masterPagePaths = paths
		p.mastersResolved = true
	}
	return append([]string(nil), p.masterPagePaths...)
}

// HistoryPaths resolves history part paths.
func (p *Package) HistoryPaths() []string {
	if !p.historiesResolved {
		var paths []string
		for _, item := range p.manifestItems() {
			if manifestMatches(item, "history") {
				if href := item.SelectAttrValue("href", ""); href != "" {
					paths = append(paths, href)
				}
			}
		}
		if len(paths) == 0 {
			paths = p.scanPartNames(func(base string) bool {
				return strings.Contains(base, "history")
			})
		}
		p.historyPaths = paths
		p.historiesResolved = true
	}
	return append([]string(nil), p.historyPaths...)
}

// VersionFilePath resolves the version part path, preferring a manifest
// declaration and falling back to the conventional version.xml location.
// Returns "" when neither exists.
func (p *Package) VersionFilePath() string {
	if !p.versionResolved {
		resolved := ""
		for _, item := range p.manifestItems() {
			if manifestMatches(item, "version") {
				if href := strings.TrimSpace(item.SelectAttrValue("href", "")); href != "" {
					resolved = href
					break
				}
			}
		}
		if resolved == "" && p.HasPart(VersionPath) {
			resolved = VersionPath
		}
		p.versionPath = resolved
		p.versionResolved = true
	}
	return p.versionPath
}

func (p *Package) invalidateCaches(changedPath string) {
	switch changedPath {
	case ManifestPath:
		p.manifestDoc = nil
		p.spineResolved = false
		p.sectionsResolved = false
		p.headersResolved = false
		p.mastersResolved = false
		p.historiesResolved = false
		p.versionResolved = false
	case VersionPath:
		p.versionResolved = false
	}
}

// AddManifestItem registers an item in the manifest and rewrites the
// manifest part.
func (p *Package) AddManifestItem(id, href, mediaType string) error {
	doc := p.manifestTree()
	if doc == nil {
		return NewPackageError("manifest", ManifestPath, fmt.Errorf("manifest part is missing or unparsable"))
	}
	manifest := firstChild(doc.Root(), "manifest")
	if manifest == nil {
		manifest = doc.Root().CreateElement("opf:manifest")
	}
	item := manifest.CreateElement("opf:item")
	item.CreateAttr("id", id)
	item.CreateAttr("href", href)
	item.CreateAttr("media-type", mediaType)
	return p.SetPartXML(ManifestPath, doc)
}

// AddSpineEntry inserts an itemref into the spine at index (appends when
// index is negative or past the end) and rewrites the manifest part.
func (p *Package) AddSpineEntry(idref string, index int) error {
	doc := p.manifestTree()
	if doc == nil {
		return NewPackageError("manifest", ManifestPath, fmt.Errorf("manifest part is missing or unparsable"))
	}
	spine := firstChild(doc.Root(), "spine")
	if spine == nil {
		spine = doc.Root().CreateElement("opf:spine")
	}
	refs := childElements(spine, "itemref")
	ref := etree.NewElement("opf:itemref")
	ref.CreateAttr("idref", idref)
	if index < 0 || index >= len(refs) {
		spine.AddChild(ref)
	} else {
		spine.InsertChildAt(refs[index].Index(), ref)
	}
	return p.SetPartXML(ManifestPath, doc)
}

// RemoveManifestItem removes the manifest item with the given id plus any
// spine entries referencing it. Reports whether anything was removed.
func (p *Package) RemoveManifestItem(id string) (bool, error) {
	doc := p.manifestTree()
	if doc == nil {
		return false, nil
	}
	removed := false
	if manifest := firstChild(doc.Root(), "manifest"); manifest != nil {
		for _, item := range childElements(manifest, "item") {
			if item.SelectAttrValue("id", "") == id {
				manifest.RemoveChild(item)
				removed = true
			}
		}
	}
	if spine := firstChild(doc.Root(), "spine"); spine != nil {
		for _, ref := range childElements(spine, "itemref") {
			if ref.SelectAttrValue("idref", "") == id {
				spine.RemoveChild(ref)
				removed = true
			}
		}
	}
	if !removed {
		return false, nil
	}
	return true, p.SetPartXML(ManifestPath, doc)
}

// ManifestItemHref returns the href of the manifest item with the given id,
// or "" when unknown.
func (p *Package) ManifestItemHref(id string) string {
	for _, item := range p.manifestItems() {
		if item.SelectAttrValue("id", "") == id {
			return item.SelectAttrValue("href", "")
		}
	}
	return ""
}

// ------------------------------------------------------------------
// save

// applyUpdates writes each pending part payload through Write so mandatory
// part rewrites keep their re-parse and re-validate behavior.
func (p *Package) applyUpdates(updates map[string][]byte) error {
	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := p.Write(name, updates[name]); err != nil {
			return err
		}
	}
	return nil
}

// buildZip assembles the archive: the current mimetype bytes always go in
// first and uncompressed, every other part follows in sorted path order with
// deflate compression. A dirty version part is flushed beforehand.
func (p *Package) buildZip() ([]byte, error) {
	p.files[MimetypePath] = []byte(p.mimetype)
	if p.version.Dirty() {
		data, err := p.version.ToBytes()
		if err != nil {
			return nil, NewPackageError("serialize", VersionPath, err)
		}
		p.files[VersionPath] = data
		p.version.markClean()
	}
	if err := p.validateStructure(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mimetypeHeader := &zip.FileHeader{Name: MimetypePath, Method: zip.Store}
	w, err := zw.CreateHeader(mimetypeHeader)
	if err != nil {
		return nil, NewPackageError("save", MimetypePath, err)
	}
	if _, err := w.Write(p.files[MimetypePath]); err != nil {
		return nil, NewPackageError("save", MimetypePath, err)
	}

	for _, name := range p.PartNames() {
		if name == MimetypePath {
			continue
		}
		header := &zip.FileHeader{Name: name, Method: zip.Deflate}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, NewPackageError("save", name, err)
		}
		if _, err := w.Write(p.files[name]); err != nil {
			return nil, NewPackageError("save", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, NewPackageError("save", "", err)
	}
	return buf.Bytes(), nil
}

// ToBytes applies updates and returns the re-zipped archive.
func (p *Package) ToBytes(updates map[string][]byte) ([]byte, error) {
	if err := p.applyUpdates(updates); err != nil {
		return nil, err
	}
	return p.buildZip()
}

// SaveToWriter applies updates and streams the archive to w. The full ZIP is
// buffered in memory first so a failed save never leaves a partial external
// write observable.
func (p *Package) SaveToWriter(w io.Writer, updates map[string][]byte) error {
	data, err := p.ToBytes(updates)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return NewPackageError("save", "", err)
	}
	return nil
}

// SaveToPath applies updates and writes the archive to filename.
func (p *Package) SaveToPath(filename string, updates map[string][]byte) error {
	data, err := p.ToBytes(updates)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return NewPackageError("save", filename, err)
	}
	return nil
}
