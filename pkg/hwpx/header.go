package hwpx

import (
	"strconv"

	"github.com/beevik/etree"
)

// Header wraps the Contents/header.xml part holding the document's shared
// definition lists (character properties, paragraph properties, styles,
// border fills, memo shapes, tracked changes and binary data items).
type Header struct {
	part
	lookups map[string]map[string]*etree.Element
}

// definition is the shared base for refList entries.
type definition struct {
	el *etree.Element
}

// ID returns the entry's id attribute.
func (d definition) ID() string {
	return d.el.SelectAttrValue("id", "")
}

// Attr returns an attribute value, or dflt when absent.
func (d definition) Attr(key, dflt string) string {
	return d.el.SelectAttrValue(key, dflt)
}

// Element exposes the underlying definition element.
func (d definition) Element() *etree.Element {
	return d.el
}

// CharProperty is a character property (run style) definition.
type CharProperty struct{ definition }

// TextColor returns the definition's text color, "" when unset.
func (c CharProperty) TextColor() string {
	return c.Attr("textColor", "")
}

// Bold reports whether the definition carries a bold marker.
func (c CharProperty) Bold() bool {
	return firstChild(c.el, "bold") != nil
}

// Italic reports whether the definition carries an italic marker.
func (c CharProperty) Italic() bool {
	return firstChild(c.el, "italic") != nil
}

// Underline reports whether the definition carries a visible underline.
func (c CharProperty) Underline() bool {
	u := firstChild(c.el, "underline")
	return u != nil && u.SelectAttrValue("type", "NONE") != "NONE"
}

// UnderlineType returns the underline type, "NONE" when absent.
func (c CharProperty) UnderlineType() string {
	if u := firstChild(c.el, "underline"); u != nil {
		return u.SelectAttrValue("type", "NONE")
	}
	return "NONE"
}

// UnderlineColor returns the underline color, "" when absent.
func (c CharProperty) UnderlineColor() string {
	if u := firstChild(c.el, "underline"); u != nil {
		return u.SelectAttrValue("color", "")
	}
	return ""
}

// ParagraphProperty is a paragraph property definition.
type ParagraphProperty struct{ definition }

// Style is a named style definition.
type Style struct{ definition }

// Name returns the style's Korean name attribute.
func (s Style) Name() string {
	return s.Attr("name", "")
}

// EngName returns the style's English name attribute.
func (s Style) EngName() string {
	return s.Attr("engName", "")
}

// Bullet is a bullet definition.
type Bullet struct{ definition }

// BorderFill is a border/fill definition.
type BorderFill struct{ definition }

// MemoShape is a memo shape definition.
type MemoShape struct{ definition }

// TrackChange is a tracked-change definition.
type TrackChange struct{ definition }

// TrackChangeAuthor is a tracked-change author definition.
type TrackChangeAuthor struct{ definition }

// refList containers and their item tags.
var headerLookupKinds = map[string][2]string{
	"charPr":            {"charProperties", "charPr"},
	"paraPr":            {"paraProperties", "paraPr"},
	"style":             {"styles", "style"},
	"bullet":            {"bullets", "bullet"},
	"borderFill":        {"borderFills", "borderFill"},
	"memoPr":            {"memoProperties", "memoPr"},
	"trackChange":       {"trackChanges", "trackChange"},
	"trackChangeAuthor": {"trackChangeAuthors", "trackChangeAuthor"},
}

func (h *Header) refList() (*etree.Element, error) {
	root, err := h.Root()
	if err != nil {
		return nil, err
	}
	refList := firstChild(root, "refList")
	if refList == nil {
		refList = root.CreateElement("hh:refList")
	}
	return refList, nil
}

// lookup returns the definition element of the given kind with the given id,
// or nil when no such entry exists. Lookups are cached per kind until the
// header is mutated.
func (h *Header) lookup(kind string, id any) (*etree.Element, error) {
	key, ok := normalizeIDRef(id)
	if !ok {
		return nil, nil
	}
	if h.lookups == nil {
		h.lookups = make(map[string]map[string]*etree.Element)
	}
	table, ok := h.lookups[kind]
	if !ok {
		tags := headerLookupKinds[kind]
		refList, err := h.refList()
		if err != nil {
			return nil, err
		}
		table = make(map[string]*etree.Element)
		if container := firstChild(refList, tags[0]); container != nil {
			for _, item := range childElements(container, tags[1]) {
				table[item.SelectAttrValue("id", "")] = item
			}
		}
		h.lookups[kind] = table
	}
	el := table[key]
	if el == nil && GetGlobalConfig().StrictMode {
		Warn("unknown %s reference %q in %s", kind, key, h.path)
	}
	return el, nil
}

// invalidateLookups drops the cached id tables after a mutation.
func (h *Header) invalidateLookups() {
	h.lookups = nil
}

// CharProperty returns the character property with the given id, or nil.
// The id may be a string or an integer.
func (h *Header) CharProperty(id any) (*CharProperty, error) {
	el, err := h.lookup("charPr", id)
	if el == nil || err != nil {
		return nil, err
	}
	return &CharProperty{definition{el}}, nil
}

// ParagraphProperty returns the paragraph property with the given id, or nil.
func (h *Header) ParagraphProperty(id any) (*ParagraphProperty, error) {
	el, err := h.lookup("paraPr", id)
	if el == nil || err != nil {
		return nil, err
	}
	return &ParagraphProperty{definition{el}}, nil
}

// Style returns the style with the given id, or nil.
func (h *Header) Style(id any) (*Style, error) {
	el, err := h.lookup("style", id)
	if el == nil || err != nil {
		return nil, err
	}
	return &Style{definition{el}}, nil
}

// Bullet returns the bullet definition with the given id, or nil.
func (h *Header) Bullet(id any) (*Bullet, error) {
	el, err := h.lookup("bullet", id)
	if el == nil || err != nil {
		return nil, err
	}
	return &Bullet{definition{el}}, nil
}

// BorderFill returns the border fill with the given id, or nil.
func (h *Header) BorderFill(id any) (*BorderFill, error) {
	el, err := h.lookup("borderFill", id)
	if el == nil || err != nil {
		return nil, err
	}
	return &BorderFill{definition{el}}, nil
}

// MemoShape returns the memo shape with the given id, or nil.
func (h *Header) MemoShape(id any) (*MemoShape, error) {
	el, err := h.lookup("memoPr", id)
	if el == nil || err != nil {
		return nil, err
	}
	return &MemoShape{definition{el}}, nil
}

// TrackChange returns the tracked change with the given id, or nil.
func (h *Header) TrackChange(id any) (*TrackChange, error) {
	el, err := h.lookup("trackChange", id)
	if el == nil || err != nil {
		return nil, err
	}
	return &TrackChange{definition{el}}, nil
}

// TrackChangeAuthor returns the tracked-change author with the given id, or
// nil.
func (h *Header) TrackChangeAuthor(id any) (*TrackChangeAuthor, error) {
	el, err := h.lookup("trackChangeAuthor", id)
	if el == nil || err != nil {
		return nil, err
	}
	return &TrackChangeAuthor{definition{el}}, nil
}

// CharProperties returns all character property definitions keyed by id.
func (h *Header) CharProperties() (map[string]*CharProperty, error) {
	elems, err := h.kindElements("charPr")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*CharProperty, len(elems))
	for _, el := range elems {
		out[el.SelectAttrValue("id", "")] = &CharProperty{definition{el}}
	}
	return out, nil
}

// Styles returns all style definitions keyed by id.
func (h *Header) Styles() (map[string]*Style, error) {
	elems, err := h.kindElements("style")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Style, len(elems))
	for _, el := range elems {
		out[el.SelectAttrValue("id", "")] = &Style{definition{el}}
	}
	return out, nil
}

func (h *Header) kindElements(kind string) ([]*etree.Element, error) {
	tags := headerLookupKinds[kind]
	refList, err := h.refList()
	if err != nil {
		return nil, err
	}
	container := firstChild(refList, tags[0])
	if container == nil {
		return nil, nil
	}
	return childElements(container, tags[1]), nil
}

// ensureContainer returns the refList child with the given tag, creating it
// when absent.
func (h *Header) ensureContainer(local, prefixed string) (*etree.Element, error) {
	refList, err := h.refList()
	if err != nil {
		return nil, err
	}
	container := firstChild(refList, local)
	if container == nil {
		container = refList.CreateElement(prefixed)
	}
	return container, nil
}

// nextDefinitionID allocates the next unused numeric id in container.
func nextDefinitionID(container *etree.Element, itemTag string) string {
	max := -1
	for _, item := range childElements(container, itemTag) {
		if n, err := strconv.Atoi(item.SelectAttrValue("id", "")); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}

// BinItem describes one binary data registration in the header.
type BinItem struct {
	ID      string
	Type    string
	BinData string
	Format  string
}

// BinItems lists the header's binary data registrations.
func (h *Header) BinItems() ([]BinItem, error) {
	container, err := h.ensureContainer("binDataList", "hh:binDataList")
	if err != nil {
		return nil, err
	}
	elems := childElements(container, "binItem")
	items := make([]BinItem, 0, len(elems))
	for _, el := range elems {
		items = append(items, BinItem{
			ID:      el.SelectAttrValue("id", ""),
			Type:    el.SelectAttrValue("Type", ""),
			BinData: el.SelectAttrValue("BinData", ""),
			Format:  el.SelectAttrValue("Format", ""),
		})
	}
	return items, nil
}

// AddBinItem registers a binary data entry and returns it. The numeric id is
// allocated as max existing id + 1.
func (h *Header) AddBinItem(itemType, binData, format string) (BinItem, error) {
	container, err := h.ensureContainer("binDataList", "hh:binDataList")
	if err != nil {
		return BinItem{}, err
	}
	id := nextDefinitionID(container, "binItem")
	el := container.CreateElement("hh:binItem")
	el.CreateAttr("id", id)
	el.CreateAttr("Type", itemType)
	el.CreateAttr("BinData", binData)
	el.CreateAttr("Format", format)
	h.MarkDirty()
	h.invalidateLookups()
	return BinItem{ID: id, Type: itemType, BinData: binData, Format: format}, nil
}

// RemoveBinItem removes the binary data entry with the given id. Returns
// false when no such entry exists.
func (h *Header) RemoveBinItem(id string) (bool, error) {
	container, err := h.ensureContainer("binDataList", "hh:binDataList")
	if err != nil {
		return false, err
	}
	for _, el := range childElements(container, "binItem") {
		if el.SelectAttrValue("id", "") == id {
			container.RemoveChild(el)
			h.MarkDirty()
			h.invalidateLookups()
			return true, nil
		}
	}
	return false, nil
}

// EnsureRunStyle returns the id of a character property matching the given
// flags, creating one by cloning baseID (or the first existing definition)
// when no match exists.
func (h *Header) EnsureRunStyle(bold, italic, underline bool, baseID any) (string, error) {
	elems, err := h.kindElements("charPr")
	if err != nil {
		return "", err
	}
	for _, el := range elems {
		cp := CharProperty{definition{el}}
		if cp.Bold() == bold && cp.Italic() == italic && cp.Underline() == underline {
			return cp.ID(), nil
		}
	}

	container, err := h.ensureContainer("charProperties", "hh:charProperties")
	if err != nil {
		return "", err
	}

	var base *etree.Element
	if key, ok := normalizeIDRef(baseID); ok {
		base, err = h.lookup("charPr", key)
		if err != nil {
			return "", err
		}
	}
	if base == nil && len(elems) > 0 {
		base = elems[0]
	}

	var clone *etree.Element
	if base != nil {
		clone = base.Copy()
	} else {
		clone = etree.NewElement("hh:charPr")
		clone.CreateAttr("height", "1000")
		clone.CreateAttr("textColor", "#000000")
		clone.CreateAttr("shadeColor", "none")
	}
	id := nextDefinitionID(container, "charPr")
	clone.CreateAttr("id", id)
	container.AddChild(clone)

	setFlagChild(clone, "bold", "hh:bold", bold)
	setFlagChild(clone, "italic", "hh:italic", italic)
	if underline {
		u := firstChild(clone, "underline")
		if u == nil {
			u = clone.CreateElement("hh:underline")
		}
		u.CreateAttr("type", "BOTTOM")
		u.CreateAttr("shape", "SOLID")
		u.CreateAttr("color", "#000000")
	} else if u := firstChild(clone, "underline"); u != nil {
		clone.RemoveChild(u)
	}

	h.MarkDirty()
	h.invalidateLookups()
	Debug("created charPr %s (bold=%v italic=%v underline=%v)", id, bold, italic, underline)
	return id, nil
}

func setFlagChild(el *etree.Element, local, prefixed string, want bool) {
	existing := firstChild(el, local)
	if want && existing == nil {
		el.CreateElement(prefixed)
	} else if !want && existing != nil {
		el.RemoveChild(existing)
	}
}

// EnsureBasicBorderFill returns the id of a border fill whose four borders
// are all NONE, creating one when the header has no such definition. Tables
// use it as their default cell frame.
func (h *Header) EnsureBasicBorderFill() (string, error) {
	elems, err := h.kindElements("borderFill")
	if err != nil {
		return "", err
	}
	for _, el := range elems {
		if isBasicBorderFill(el) {
			return el.SelectAttrValue("id", ""), nil
		}
	}

	container, err := h.ensureContainer("borderFills", "hh:borderFills")
	if err != nil {
		return "", err
	}
	id := nextDefinitionID(container, "borderFill")
	bf := container.CreateElement("hh:borderFill")
	bf.CreateAttr("id", id)
	bf.CreateAttr("threeD", "0")
	bf.CreateAttr("protect", "0")
	bf.CreateAttr("shadow", "0")
	bf.CreateAttr("centerLine", "NONE")
	bf.CreateAttr("breakCellSeparateLine", "0")
	for _, tag := range []string{"hh:slash", "hh:backSlash"} {
		s := bf.CreateElement(tag)
		s.CreateAttr("type", "NONE")
		s.CreateAttr("Crooked", "0")
		s.CreateAttr("isCounter", "0")
	}
	for _, tag := range []string{"hh:leftBorder", "hh:rightBorder", "hh:topBorder", "hh:bottomBorder"} {
		b := bf.CreateElement(tag)
		b.CreateAttr("type", "NONE")
		b.CreateAttr("width", "0.1 mm")
		b.CreateAttr("color", "#000000")
	}
	diag := bf.CreateElement("hh:diagonal")
	diag.CreateAttr("type", "SOLID")
	diag.CreateAttr("width", "0.1 mm")
	diag.CreateAttr("color", "#000000")

	h.MarkDirty()
	h.invalidateLookups()
	return id, nil
}

func isBasicBorderFill(el *etree.Element) bool {
	for _, tag := range []string{"leftBorder", "rightBorder", "topBorder", "bottomBorder"} {
		b := firstChild(el, tag)
		if b == nil || b.SelectAttrValue("type", "NONE") != "NONE" {
			return false
		}
	}
	return true
}
