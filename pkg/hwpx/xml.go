package hwpx

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/beevik/etree"
)

// Canonical HWPML 2011 namespace URIs. All parsing normalizes the legacy
// 2016 family to these before the tree is built, so wrapper code only ever
// deals with one namespace family.
const (
	NSParagraph  = "http://www.hancom.co.kr/hwpml/2011/paragraph"
	NSHead       = "http://www.hancom.co.kr/hwpml/2011/head"
	NSSection    = "http://www.hancom.co.kr/hwpml/2011/section"
	NSCore       = "http://www.hancom.co.kr/hwpml/2011/core"
	NSMasterPage = "http://www.hancom.co.kr/hwpml/2011/master-page"
	NSHistory    = "http://www.hancom.co.kr/hwpml/2011/history"
	NSApp        = "http://www.hancom.co.kr/hwpml/2011/app"

	// NSOpf is the OPF namespace used by the package manifest (content.hpf).
	NSOpf = "http://www.idpf.org/2007/opf/"
)

// legacyNamespaces maps the 2016 namespace family to the canonical 2011
// family. Replacement happens at the byte level before parsing; the
// canonical URIs never collide with the legacy literals, so the rewrite is
// safe on raw bytes.
var legacyNamespaces = map[string]string{
	"http://www.hancom.co.kr/hwpml/2016/paragraph":   NSParagraph,
	"http://www.hancom.co.kr/hwpml/2016/head":        NSHead,
	"http://www.hancom.co.kr/hwpml/2016/section":     NSSection,
	"http://www.hancom.co.kr/hwpml/2016/core":        NSCore,
	"http://www.hancom.co.kr/hwpml/2016/master-page": NSMasterPage,
	"http://www.hancom.co.kr/hwpml/2016/history":     NSHistory,
	"http://www.hancom.co.kr/hwpml/2016/app":         NSApp,
}

// NormalizeNamespaces rewrites legacy namespace URIs to their canonical
// equivalents. The input slice is not modified.
func NormalizeNamespaces(data []byte) []byte {
	out := data
	for legacy, canonical := range legacyNamespaces {
		if bytes.Contains(out, []byte(legacy)) {
			out = bytes.ReplaceAll(out, []byte(legacy), []byte(canonical))
		}
	}
	return out
}

// ExtractXMLDeclaration returns the raw leading <?xml ... ?> span of data,
// or nil when no declaration is present. The returned bytes are preserved
// verbatim so producer-specific declaration formatting survives round trips.
func ExtractXMLDeclaration(data []byte) []byte {
	stripped := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(stripped, []byte("<?xml")) {
		return nil
	}
	end := bytes.Index(stripped, []byte("?>"))
	if end == -1 {
		return nil
	}
	decl := make([]byte, end+2)
	copy(decl, stripped[:end+2])
	return decl
}

// ParseXML normalizes legacy namespaces and parses data into an element
// tree. The XML declaration token, if any, is stripped from the parsed
// document; callers keep the original declaration bytes separately (see
// ExtractXMLDeclaration) and pass them back to SerializeXML.
func ParseXML(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(NormalizeNamespaces(data)); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("failed to parse XML: no root element")
	}
	// Drop the declaration token so serialization is declaration-free by
	// default.
	for _, tok := range append([]etree.Token(nil), doc.Child...) {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			doc.RemoveChild(pi)
		}
	}
	return doc, nil
}

// SerializeXML emits the tree as UTF-8 bytes without an XML declaration.
// When decl is non-nil it is prepended verbatim.
func SerializeXML(doc *etree.Document, decl []byte) ([]byte, error) {
	body, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize XML: %w", err)
	}
	if len(decl) == 0 {
		return body, nil
	}
	out := make([]byte, 0, len(decl)+len(body))
	out = append(out, decl...)
	out = append(out, body...)
	return out, nil
}

// childElements returns the direct children of e whose local tag name is
// local, regardless of namespace prefix. New elements are always created
// through the owning tree (CreateElement/makeChild), never from a detached
// factory, so prefix-agnostic matching keeps wrappers working on documents
// produced with unusual prefixes.
func childElements(e *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	for _, child := range e.ChildElements() {
		if child.Tag == local {
			out = append(out, child)
		}
	}
	return out
}

// firstChild returns the first direct child of e with the given local tag
// name, or nil.
func firstChild(e *etree.Element, local string) *etree.Element {
	for _, child := range e.ChildElements() {
		if child.Tag == local {
			return child
		}
	}
	return nil
}

// makeChild creates a child element of parent with the given prefixed tag
// and attributes, appended after the existing children.
func makeChild(parent *etree.Element, tag string, attrs map[string]string) *etree.Element {
	child := parent.CreateElement(tag)
	for _, key := range sortedKeys(attrs) {
		child.CreateAttr(key, attrs[key])
	}
	return child
}

// sortedKeys returns m's keys in sorted order, for deterministic attribute
// order across saves.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
