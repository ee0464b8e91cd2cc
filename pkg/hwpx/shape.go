package hwpx

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/beevik/etree"
)

// shapeInstSeq feeds instance ids for newly created drawing objects.
var shapeInstSeq atomic.Int64

func init() {
	shapeInstSeq.Store(1000000000)
}

func nextInstID() string {
	return strconv.FormatInt(shapeInstSeq.Add(1), 10)
}

// ShapeOptions configures drawing object construction.
type ShapeOptions struct {
	// LineColor is the stroke color; "#000000" when empty.
	LineColor string
	// LineWidth is the stroke width in HWP units; 120 when zero.
	LineWidth int
	// FillColor fills the interior; unset leaves the shape unfilled.
	FillColor string
	// CharPrIDRef applies to the anchor run; "0" when unset.
	CharPrIDRef any
}

// Shape is a view over a drawing object element (hp:line, hp:rect or
// hp:ellipse) anchored in a paragraph run.
type Shape struct {
	section *Section
	el      *etree.Element
}

// Element exposes the underlying shape element.
func (s *Shape) Element() *etree.Element {
	return s.el
}

// Type returns the shape kind: "line", "rect" or "ellipse".
func (s *Shape) Type() string {
	return s.el.Tag
}

// InstID returns the shape's instance id attribute.
func (s *Shape) InstID() string {
	return s.el.SelectAttrValue("instid", "")
}

// Size returns the shape's (width, height) from its hp:sz child.
func (s *Shape) Size() (int, int) {
	sz := firstChild(s.el, "sz")
	if sz == nil {
		return 0, 0
	}
	w, _ := strconv.Atoi(sz.SelectAttrValue("width", "0"))
	h, _ := strconv.Atoi(sz.SelectAttrValue("height", "0"))
	return w, h
}

// Resize updates the shape's declared, original and current sizes.
func (s *Shape) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return NewInvalidRangeError(fmt.Sprintf("shape size %dx%d is invalid", width, height))
	}
	for _, tag := range []string{"sz", "orgSz", "curSz"} {
		if el := firstChild(s.el, tag); el != nil {
			el.CreateAttr("width", strconv.Itoa(width))
			el.CreateAttr("height", strconv.Itoa(height))
		}
	}
	s.section.MarkDirty()
	return nil
}

// LineColor returns the stroke color, "" when the shape has no line shape.
func (s *Shape) LineColor() string {
	if ls := firstChild(s.el, "lineShape"); ls != nil {
		return ls.SelectAttrValue("color", "")
	}
	return ""
}

// SetLineColor updates the stroke color.
func (s *Shape) SetLineColor(color string) {
	if ls := firstChild(s.el, "lineShape"); ls != nil {
		ls.CreateAttr("color", color)
		s.section.MarkDirty()
	}
}

// AddLine anchors a line object from (x1, y1) to (x2, y2) in a new run.
func (p *Paragraph) AddLine(x1, y1, x2, y2 int, opts *ShapeOptions) (*Shape, error) {
	el, err := p.addShape("hp:line", abs(x2-x1), abs(y2-y1), opts)
	if err != nil {
		return nil, err
	}
	el.CreateAttr("isReverseHV", "0")
	addPoint(el, "hp:pt0", x1, y1)
	addPoint(el, "hp:pt1", x2, y2)
	return &Shape{section: p.section, el: el}, nil
}

// AddRectangle anchors a width x height rectangle object in a new run.
func (p *Paragraph) AddRectangle(width, height int, opts *ShapeOptions) (*Shape, error) {
	el, err := p.addShape("hp:rect", width, height, opts)
	if err != nil {
		return nil, err
	}
	el.CreateAttr("ratio", "0")
	addPoint(el, "hp:pt0", 0, 0)
	addPoint(el, "hp:pt1", width, 0)
	addPoint(el, "hp:pt2", width, height)
	addPoint(el, "hp:pt3", 0, height)
	return &Shape{section: p.section, el: el}, nil
}

// AddEllipse anchors a width x height ellipse object in a new run.
func (p *Paragraph) AddEllipse(width, height int, opts *ShapeOptions) (*Shape, error) {
	el, err := p.addShape("hp:ellipse", width, height, opts)
	if err != nil {
		return nil, err
	}
	el.CreateAttr("intervalDirty", "0")
	el.CreateAttr("hasArcPr", "0")
	el.CreateAttr("arcType", "NORMAL")
	cx, cy := width/2, height/2
	addPoint(el, "hp:center", cx, cy)
	addPoint(el, "hp:ax1", width, cy)
	addPoint(el, "hp:ax2", cx, height)
	return &Shape{section: p.section, el: el}, nil
}

// addShape builds the scaffold shared by all drawing objects: geometry
// attributes, transform matrices, line shape and anchoring children.
func (p *Paragraph) addShape(tag string, width, height int, opts *ShapeOptions) (*etree.Element, error) {
	if width < 0 || height < 0 {
		return nil, NewInvalidRangeError(fmt.Sprintf("shape size %dx%d is invalid", width, height))
	}
	if opts == nil {
		opts = &ShapeOptions{}
	}
	lineColor := orDefault(opts.LineColor, "#000000")
	lineWidth := opts.LineWidth
	if lineWidth == 0 {
		lineWidth = 120
	}
	charPr, ok := normalizeIDRef(opts.CharPrIDRef)
	if !ok {
		charPr = orDefault(p.CharPrIDRef(), "0")
	}

	run := p.el.CreateElement("hp:run")
	run.CreateAttr("charPrIDRef", charPr)

	el := run.CreateElement(tag)
	el.CreateAttr("id", "")
	el.CreateAttr("zOrder", "0")
	el.CreateAttr("numberingType", "PICTURE")
	el.CreateAttr("textWrap", "TOP_AND_BOTTOM")
	el.CreateAttr("textFlow", "BOTH_SIDES")
	el.CreateAttr("lock", "0")
	el.CreateAttr("dropcapstyle", "None")
	el.CreateAttr("href", "")
	el.CreateAttr("groupLevel", "0")
	el.CreateAttr("instid", nextInstID())

	offset := el.CreateElement("hp:offset")
	offset.CreateAttr("x", "0")
	offset.CreateAttr("y", "0")
	for _, szTag := range []string{"hp:orgSz", "hp:curSz"} {
		sz := el.CreateElement(szTag)
		sz.CreateAttr("width", strconv.Itoa(width))
		sz.CreateAttr("height", strconv.Itoa(height))
	}
	flip := el.CreateElement("hp:flip")
	flip.CreateAttr("horizontal", "0")
	flip.CreateAttr("vertical", "0")
	rot := el.CreateElement("hp:rotationInfo")
	rot.CreateAttr("angle", "0")
	rot.CreateAttr("centerX", strconv.Itoa(width/2))
	rot.CreateAttr("centerY", strconv.Itoa(height/2))
	rot.CreateAttr("rotateimage", "1")

	rendering := el.CreateElement("hp:renderingInfo")
	addIdentityMatrix(rendering, "hc:transMatrix")
	addIdentityMatrix(rendering, "hc:scaMatrix")
	addIdentityMatrix(rendering, "hc:rotMatrix")

	lineShape := el.CreateElement("hp:lineShape")
	lineShape.CreateAttr("color", lineColor)
	lineShape.CreateAttr("width", strconv.Itoa(lineWidth))
	lineShape.CreateAttr("style", "SOLID")
	lineShape.CreateAttr("endCap", "FLAT")
	lineShape.CreateAttr("headStyle", "NORMAL")
	lineShape.CreateAttr("tailStyle", "NORMAL")
	lineShape.CreateAttr("headfill", "1")
	lineShape.CreateAttr("tailfill", "1")
	lineShape.CreateAttr("headSz", "SMALL_SMALL")
	lineShape.CreateAttr("tailSz", "SMALL_SMALL")
	lineShape.CreateAttr("outlineStyle", "NORMAL")
	lineShape.CreateAttr("alpha", "0")

	if opts.FillColor != "" {
		fill := el.CreateElement("hp:fillBrush")
		win := fill.CreateElement("hc:winBrush")
		win.CreateAttr("faceColor", opts.FillColor)
		win.CreateAttr("hatchColor", "#000000")
		win.CreateAttr("alpha", "0")
	}

	sz := el.CreateElement("hp:sz")
	sz.CreateAttr("width", strconv.Itoa(width))
	sz.CreateAttr("widthRelTo", "ABSOLUTE")
	sz.CreateAttr("height", strconv.Itoa(height))
	sz.CreateAttr("heightRelTo", "ABSOLUTE")
	sz.CreateAttr("protect", "0")

	pos := el.CreateElement("hp:pos")
	pos.CreateAttr("treatAsChar", "1")
	pos.CreateAttr("affectLSpacing", "0")
	pos.CreateAttr("flowWithText", "1")
	pos.CreateAttr("allowOverlap", "0")
	pos.CreateAttr("holdAnchorAndSO", "0")
	pos.CreateAttr("vertRelTo", "PARA")
	pos.CreateAttr("horzRelTo", "COLUMN")
	pos.CreateAttr("vertAlign", "TOP")
	pos.CreateAttr("horzAlign", "LEFT")
	pos.CreateAttr("vertOffset", "0")
	pos.CreateAttr("horzOffset", "0")

	outMargin := el.CreateElement("hp:outMargin")
	outMargin.CreateAttr("left", "0")
	outMargin.CreateAttr("right", "0")
	outMargin.CreateAttr("top", "0")
	outMargin.CreateAttr("bottom", "0")

	p.section.MarkDirty()
	return el, nil
}

func addIdentityMatrix(parent *etree.Element, tag string) {
	m := parent.CreateElement(tag)
	m.CreateAttr("e1", "1")
	m.CreateAttr("e2", "0")
	m.CreateAttr("e3", "0")
	m.CreateAttr("e4", "0")
	m.CreateAttr("e5", "1")
	m.CreateAttr("e6", "0")
}

func addPoint(parent *etree.Element, tag string, x, y int) {
	pt := parent.CreateElement(tag)
	pt.CreateAttr("x", strconv.Itoa(x))
	pt.CreateAttr("y", strconv.Itoa(y))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Shapes returns the drawing objects anchored in this paragraph's runs.
func (p *Paragraph) Shapes() []*Shape {
	var shapes []*Shape
	for _, run := range childElements(p.el, "run") {
		for _, child := range run.ChildElements() {
			switch child.Tag {
			case "line", "rect", "ellipse":
				shapes = append(shapes, &Shape{section: p.section, el: child})
			}
		}
	}
	return shapes
}
