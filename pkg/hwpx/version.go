package hwpx

import "github.com/beevik/etree"

// VersionInfo models the mandatory version.xml part as an attribute bag.
// The original XML declaration bytes are preserved verbatim so that a save
// round-trips producer-specific declaration formatting exactly.
type VersionInfo struct {
	doc   *etree.Document
	decl  []byte
	dirty bool
}

// ParseVersionInfo parses the raw bytes of version.xml.
func ParseVersionInfo(data []byte) (*VersionInfo, error) {
	doc, err := ParseXML(data)
	if err != nil {
		return nil, NewPackageError("parse", VersionPath, err)
	}
	return &VersionInfo{
		doc:  doc,
		decl: ExtractXMLDeclaration(data),
	}, nil
}

// Tag returns the root element tag of the version part.
func (v *VersionInfo) Tag() string {
	return v.doc.Root().FullTag()
}

// Attributes returns a copy of the root element's attribute bag.
func (v *VersionInfo) Attributes() map[string]string {
	root := v.doc.Root()
	attrs := make(map[string]string, len(root.Attr))
	for _, a := range root.Attr {
		key := a.Key
		if a.Space != "" {
			key = a.Space + ":" + a.Key
		}
		attrs[key] = a.Value
	}
	return attrs
}

// Get returns the attribute value for key, or dflt when absent.
func (v *VersionInfo) Get(key, dflt string) string {
	return v.doc.Root().SelectAttrValue(key, dflt)
}

// Set writes an attribute value and marks the part dirty.
func (v *VersionInfo) Set(key, value string) {
	v.doc.Root().CreateAttr(key, value)
	v.dirty = true
}

// Dirty reports whether the part has pending in-memory changes.
func (v *VersionInfo) Dirty() bool {
	return v.dirty
}

func (v *VersionInfo) markClean() {
	v.dirty = false
}

// ToBytes serializes the part, prefixed with the preserved declaration.
func (v *VersionInfo) ToBytes() ([]byte, error) {
	return SerializeXML(v.doc, v.decl)
}
