package hwpx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Table is a view over an hp:tbl element anchored in a paragraph run.
// Cell addressing is span-aware: merged regions resolve to their master
// cell, and the backing elements shadowed by a merge stay in place until
// the merge is split again.
type Table struct {
	section *Section
	el      *etree.Element
}

// tableConfig collects the optional knobs for table construction.
type tableConfig struct {
	width            int
	height           int
	borderFillIDRef  string
	hasBorderFill    bool
	charPrIDRef      string
	section          *Section
	sectionIndex     int
	paragraphOptions []ParagraphOption
}

// TableOption configures AddTable.
type TableOption func(*tableConfig)

func defaultTableConfig() tableConfig {
	return tableConfig{width: 41954, charPrIDRef: "0", sectionIndex: -1}
}

// WithTableWidth sets the overall table width in HWP units.
func WithTableWidth(width int) TableOption {
	return func(cfg *tableConfig) { cfg.width = width }
}

// WithTableHeight sets the overall table height in HWP units.
func WithTableHeight(height int) TableOption {
	return func(cfg *tableConfig) { cfg.height = height }
}

// WithTableBorderFill sets the border fill reference used by the table and
// its cells. Accepts a string or an integer.
func WithTableBorderFill(id any) TableOption {
	return func(cfg *tableConfig) {
		if v, ok := normalizeIDRef(id); ok {
			cfg.borderFillIDRef = v
			cfg.hasBorderFill = true
		}
	}
}

// WithTableCharPr sets the character property reference for cell paragraphs.
func WithTableCharPr(id any) TableOption {
	return func(cfg *tableConfig) {
		if v, ok := normalizeIDRef(id); ok {
			cfg.charPrIDRef = v
		}
	}
}

// WithTableSection targets a specific section for document-level AddTable.
func WithTableSection(section *Section) TableOption {
	return func(cfg *tableConfig) { cfg.section = section }
}

// WithTableSectionIndex targets a section by index for document-level
// AddTable.
func WithTableSectionIndex(index int) TableOption {
	return func(cfg *tableConfig) { cfg.sectionIndex = index }
}

// WithTableParagraphOptions passes paragraph options through to the anchor
// paragraph created by document-level AddTable.
func WithTableParagraphOptions(opts ...ParagraphOption) TableOption {
	return func(cfg *tableConfig) { cfg.paragraphOptions = opts }
}

// AddTable anchors a rows x cols table in a new run at the end of the
// paragraph. Every cell starts with one empty paragraph.
func (p *Paragraph) AddTable(rows, cols int, opts ...TableOption) (*Table, error) {
	if rows < 1 || cols < 1 {
		return nil, NewInvalidRangeError(fmt.Sprintf("table size %dx%d is invalid", rows, cols))
	}
	cfg := defaultTableConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.hasBorderFill {
		cfg.borderFillIDRef = "1"
	}

	run := p.el.CreateElement("hp:run")
	run.CreateAttr("charPrIDRef", cfg.charPrIDRef)
	tbl, err := buildTableElement(p.section, run, rows, cols, &cfg)
	if err != nil {
		return nil, err
	}
	p.section.MarkDirty()
	Debug("added %dx%d table to %s", rows, cols, p.section.path)
	return &Table{section: p.section, el: tbl}, nil
}

// buildTableElement constructs an hp:tbl subtree under run.
func buildTableElement(section *Section, run *etree.Element, rows, cols int, cfg *tableConfig) (*etree.Element, error) {
	cellWidth := cfg.width / cols
	cellHeight := 282
	height := cfg.height
	if height == 0 {
		height = cellHeight * rows
	}

	tbl := run.CreateElement("hp:tbl")
	tbl.CreateAttr("id", "")
	tbl.CreateAttr("zOrder", "0")
	tbl.CreateAttr("numberingType", "TABLE")
	tbl.CreateAttr("textWrap", "TOP_AND_BOTTOM")
	tbl.CreateAttr("textFlow", "BOTH_SIDES")
	tbl.CreateAttr("lock", "0")
	tbl.CreateAttr("dropcapstyle", "None")
	tbl.CreateAttr("pageBreak", "CELL")
	tbl.CreateAttr("repeatHeader", "1")
	tbl.CreateAttr("rowCnt", strconv.Itoa(rows))
	tbl.CreateAttr("colCnt", strconv.Itoa(cols))
	tbl.CreateAttr("cellSpacing", "0")
	tbl.CreateAttr("borderFillIDRef", cfg.borderFillIDRef)
	tbl.CreateAttr("noAdjust", "0")

	sz := tbl.CreateElement("hp:sz")
	sz.CreateAttr("width", strconv.Itoa(cfg.width))
	sz.CreateAttr("widthRelTo", "ABSOLUTE")
	sz.CreateAttr("height", strconv.Itoa(height))
	sz.CreateAttr("heightRelTo", "ABSOLUTE")
	sz.CreateAttr("protect", "0")

	pos := tbl.CreateElement("hp:pos")
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

	outMargin := tbl.CreateElement("hp:outMargin")
	outMargin.CreateAttr("left", "283")
	outMargin.CreateAttr("right", "283")
	outMargin.CreateAttr("top", "283")
	outMargin.CreateAttr("bottom", "283")

	for r := 0; r < rows; r++ {
		tr := tbl.CreateElement("hp:tr")
		for c := 0; c < cols; c++ {
			if err := buildCellElement(section, tr, -1, r, c, cellWidth, cellHeight, cfg.borderFillIDRef, cfg.charPrIDRef); err != nil {
				return nil, err
			}
		}
	}
	return tbl, nil
}

// buildCellElement creates a fresh 1x1 cell at (row, col) under tr. insertAt
// < 0 appends; otherwise the cell is inserted at that child index so column
// order within the row stays sorted.
func buildCellElement(section *Section, tr *etree.Element, insertAt, row, col, width, height int, borderFill, charPr string) error {
	tc := etree.NewElement("hp:tc")
	tc.CreateAttr("name", "")
	tc.CreateAttr("header", "0")
	tc.CreateAttr("hasMargin", "0")
	tc.CreateAttr("protect", "0")
	tc.CreateAttr("editable", "0")
	tc.CreateAttr("dirty", "0")
	tc.CreateAttr("borderFillIDRef", borderFill)
	if insertAt < 0 {
		tr.AddChild(tc)
	} else {
		tr.InsertChildAt(insertAt, tc)
	}

	subList := tc.CreateElement("hp:subList")
	subList.CreateAttr("id", "")
	subList.CreateAttr("textDirection", "HORIZONTAL")
	subList.CreateAttr("lineWrap", "BREAK")
	subList.CreateAttr("vertAlign", "CENTER")
	subList.CreateAttr("linkListIDRef", "0")
	subList.CreateAttr("linkListNextIDRef", "0")
	subList.CreateAttr("textWidth", "0")
	subList.CreateAttr("textHeight", "0")
	subList.CreateAttr("hasTextRef", "0")
	subList.CreateAttr("hasNumRef", "0")

	id, err := section.nextParagraphID()
	if err != nil {
		return err
	}
	cfg := defaultParagraphConfig()
	cfg.charPrIDRef = charPr
	buildParagraphElement(subList, id, "", &cfg)

	cellAddr := tc.CreateElement("hp:cellAddr")
	cellAddr.CreateAttr("colAddr", strconv.Itoa(col))
	cellAddr.CreateAttr("rowAddr", strconv.Itoa(row))

	cellSpan := tc.CreateElement("hp:cellSpan")
	cellSpan.CreateAttr("colSpan", "1")
	cellSpan.CreateAttr("rowSpan", "1")

	cellSz := tc.CreateElement("hp:cellSz")
	cellSz.CreateAttr("width", strconv.Itoa(width))
	cellSz.CreateAttr("height", strconv.Itoa(height))

	cellMargin := tc.CreateElement("hp:cellMargin")
	cellMargin.CreateAttr("left", "141")
	cellMargin.CreateAttr("right", "141")
	cellMargin.CreateAttr("top", "141")
	cellMargin.CreateAttr("bottom", "141")
	return nil
}

// Element exposes the underlying table element.
func (t *Table) Element() *etree.Element {
	return t.el
}

// Section returns the section owning the table's part.
func (t *Table) Section() *Section {
	return t.section
}

// RowCount returns the table's logical row count.
func (t *Table) RowCount() int {
	if n, err := strconv.Atoi(t.el.SelectAttrValue("rowCnt", "")); err == nil {
		return n
	}
	return len(t.rowElements())
}

// ColCount returns the table's logical column count.
func (t *Table) ColCount() int {
	if n, err := strconv.Atoi(t.el.SelectAttrValue("colCnt", "")); err == nil {
		return n
	}
	rows := t.rowElements()
	if len(rows) == 0 {
		return 0
	}
	return len(childElements(rows[0], "tc"))
}

func (t *Table) rowElements() []*etree.Element {
	return childElements(t.el, "tr")
}

func (t *Table) cellElements() []*etree.Element {
	var cells []*etree.Element
	for _, tr := range t.rowElements() {
		cells = append(cells, childElements(tr, "tc")...)
	}
	return cells
}

// cellGeometry reads a cell's anchor address and span.
func cellGeometry(tc *etree.Element) (row, col, rowSpan, colSpan int) {
	rowSpan, colSpan = 1, 1
	if addr := firstChild(tc, "cellAddr"); addr != nil {
		row, _ = strconv.Atoi(addr.SelectAttrValue("rowAddr", "0"))
		col, _ = strconv.Atoi(addr.SelectAttrValue("colAddr", "0"))
	}
	if span := firstChild(tc, "cellSpan"); span != nil {
		if n, err := strconv.Atoi(span.SelectAttrValue("rowSpan", "1")); err == nil && n > 0 {
			rowSpan = n
		}
		if n, err := strconv.Atoi(span.SelectAttrValue("colSpan", "1")); err == nil && n > 0 {
			colSpan = n
		}
	}
	return
}

// Cell resolves the cell at logical coordinates (row, col). Coordinates
// covered by a merged region resolve to the region's master cell.
func (t *Table) Cell(row, col int) (*Cell, error) {
	if row < 0 || col < 0 || row >= t.RowCount() || col >= t.ColCount() {
		return nil, NewInvalidRangeError(fmt.Sprintf("cell (%d, %d) out of range for %dx%d table", row, col, t.RowCount(), t.ColCount()))
	}

	var exact *etree.Element
	for _, tc := range t.cellElements() {
		r, c, rs, cs := cellGeometry(tc)
		if rs > 1 || cs > 1 {
			// Masters win over the backing cells they shadow.
			if row >= r && row < r+rs && col >= c && col < c+cs {
				return &Cell{table: t, el: tc}, nil
			}
			continue
		}
		if r == row && c == col && exact == nil {
			exact = tc
		}
	}
	if exact == nil {
		return nil, NewStructureError(fmt.Sprintf("no cell element at (%d, %d)", row, col))
	}
	return &Cell{table: t, el: exact}, nil
}

// SetCellText resolves the cell at (row, col) and replaces its text.
func (t *Table) SetCellText(row, col int, text string) error {
	cell, err := t.Cell(row, col)
	if err != nil {
		return err
	}
	cell.SetText(text)
	return nil
}

// CellText resolves the cell at (row, col) and returns its text.
func (t *Table) CellText(row, col int) (string, error) {
	cell, err := t.Cell(row, col)
	if err != nil {
		return "", err
	}
	return cell.Text(), nil
}

// MergeCells merges the rectangle (startRow, startCol) .. (endRow, endCol)
// into the top-left cell. Every coordinate in the rectangle must currently
// belong to an unmerged 1x1 cell. The shadowed backing elements stay in the
// tree; addressing hides them until the merge is split.
func (t *Table) MergeCells(startRow, startCol, endRow, endCol int) error {
	if startRow > endRow || startCol > endCol {
		return NewInvalidRangeError(fmt.Sprintf("merge rectangle (%d,%d)-(%d,%d) is inverted", startRow, startCol, endRow, endCol))
	}
	if startRow < 0 || startCol < 0 || endRow >= t.RowCount() || endCol >= t.ColCount() {
		return NewInvalidRangeError(fmt.Sprintf("merge rectangle (%d,%d)-(%d,%d) out of range for %dx%d table", startRow, startCol, endRow, endCol, t.RowCount(), t.ColCount()))
	}
	if startRow == endRow && startCol == endCol {
		return NewInvalidRangeError("merge rectangle must span at least two cells")
	}

	// Index unmerged backing cells and reject any overlap with an existing
	// merge.
	backing := map[[2]int]*etree.Element{}
	for _, tc := range t.cellElements() {
		r, c, rs, cs := cellGeometry(tc)
		if rs == 1 && cs == 1 {
			backing[[2]int{r, c}] = tc
			continue
		}
		if r <= endRow && r+rs > startRow && c <= endCol && c+cs > startCol {
			return NewInvalidRangeError(fmt.Sprintf("merge rectangle overlaps merged cell at (%d, %d)", r, c))
		}
	}
	for r := startRow; r <= endRow; r++ {
		for c := startCol; c <= endCol; c++ {
			if _, ok := backing[[2]int{r, c}]; !ok {
				return NewInvalidRangeError(fmt.Sprintf("cell (%d, %d) is not available for merging", r, c))
			}
		}
	}

	master := backing[[2]int{startRow, startCol}]
	span := firstChild(master, "cellSpan")
	if span == nil {
		span = master.CreateElement("hp:cellSpan")
	}
	span.CreateAttr("rowSpan", strconv.Itoa(endRow-startRow+1))
	span.CreateAttr("colSpan", strconv.Itoa(endCol-startCol+1))

	// Grow the master's recorded size to cover the whole rectangle, so a
	// later split dividing by span restores the covered cells' sizes.
	width, height := 0, 0
	for c := startCol; c <= endCol; c++ {
		w, _ := cellSize(backing[[2]int{startRow, c}])
		width += w
	}
	for r := startRow; r <= endRow; r++ {
		_, h := cellSize(backing[[2]int{r, startCol}])
		height += h
	}
	if sz := firstChild(master, "cellSz"); sz != nil {
		sz.CreateAttr("width", strconv.Itoa(width))
		sz.CreateAttr("height", strconv.Itoa(height))
	}

	t.section.MarkDirty()
	return nil
}

// cellSize reads a cell's recorded width and height.
func cellSize(tc *etree.Element) (int, int) {
	sz := firstChild(tc, "cellSz")
	if sz == nil {
		return 0, 0
	}
	w, _ := strconv.Atoi(sz.SelectAttrValue("width", "0"))
	h, _ := strconv.Atoi(sz.SelectAttrValue("height", "0"))
	return w, h
}

// SplitMergedCell splits the merged region covering (row, col) back into
// individual 1x1 cells. The master keeps its content; the other coordinates
// get fresh empty cells replacing any stale shadowed elements. Splitting an
// unmerged cell is a no-op.
func (t *Table) SplitMergedCell(row, col int) (*Cell, error) {
	cell, err := t.Cell(row, col)
	if err != nil {
		return nil, err
	}
	masterRow, masterCol, rowSpan, colSpan := cellGeometry(cell.el)
	if rowSpan == 1 && colSpan == 1 {
		return cell, nil
	}

	span := firstChild(cell.el, "cellSpan")
	span.CreateAttr("rowSpan", "1")
	span.CreateAttr("colSpan", "1")

	width, height := 0, 282
	if sz := firstChild(cell.el, "cellSz"); sz != nil {
		if w, err := strconv.Atoi(sz.SelectAttrValue("width", "0")); err == nil {
			width = w / colSpan
		}
		if h, err := strconv.Atoi(sz.SelectAttrValue("height", "0")); err == nil && h > 0 {
			height = h / rowSpan
		}
		// The master shrinks back to a single cell's share.
		sz.CreateAttr("width", strconv.Itoa(width))
		sz.CreateAttr("height", strconv.Itoa(height))
	}
	borderFill := cell.el.SelectAttrValue("borderFillIDRef", "1")

	rows := t.rowElements()
	for r := masterRow; r < masterRow+rowSpan; r++ {
		if r >= len(rows) {
			return nil, NewStructureError(fmt.Sprintf("row %d missing while splitting merged cell", r))
		}
		tr := rows[r]
		for c := masterCol; c < masterCol+colSpan; c++ {
			if r == masterRow && c == masterCol {
				continue
			}
			// Drop the stale element shadowed by the merge, then recreate the
			// coordinate as a fresh empty cell at its sorted position.
			insertAt := -1
			for _, tc := range childElements(tr, "tc") {
				tcRow, tcCol, _, _ := cellGeometry(tc)
				if tcRow == r && tcCol == c {
					insertAt = tc.Index()
					tr.RemoveChild(tc)
					break
				}
				if tcCol > c && insertAt < 0 {
					insertAt = tc.Index()
				}
			}
			if err := buildCellElement(t.section, tr, insertAt, r, c, width, height, borderFill, "0"); err != nil {
				return nil, err
			}
		}
	}

	t.section.MarkDirty()
	return cell, nil
}

// Cell is a span-aware view over an hp:tc element.
type Cell struct {
	table *Table
	el    *etree.Element
}

// Element exposes the underlying cell element.
func (c *Cell) Element() *etree.Element {
	return c.el
}

// Anchor returns the cell's anchor address (row, col).
func (c *Cell) Anchor() (int, int) {
	row, col, _, _ := cellGeometry(c.el)
	return row, col
}

// Span returns the cell's (rowSpan, colSpan).
func (c *Cell) Span() (int, int) {
	_, _, rowSpan, colSpan := cellGeometry(c.el)
	return rowSpan, colSpan
}

// Merged reports whether the cell is the master of a merged region.
func (c *Cell) Merged() bool {
	rs, cs := c.Span()
	return rs > 1 || cs > 1
}

// Paragraphs returns the paragraphs inside the cell's content list.
func (c *Cell) Paragraphs() []*Paragraph {
	subList := firstChild(c.el, "subList")
	if subList == nil {
		return nil
	}
	elems := childElements(subList, "p")
	paragraphs := make([]*Paragraph, 0, len(elems))
	for _, el := range elems {
		paragraphs = append(paragraphs, &Paragraph{section: c.table.section, el: el})
	}
	return paragraphs
}

// Text returns the cell's paragraph texts joined by newlines.
func (c *Cell) Text() string {
	paragraphs := c.Paragraphs()
	parts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

// SetText replaces the cell content with a single paragraph holding text.
// The first paragraph's style references are preserved.
func (c *Cell) SetText(text string) {
	subList := firstChild(c.el, "subList")
	if subList == nil {
		subList = c.el.CreateElement("hp:subList")
	}
	paragraphs := childElements(subList, "p")
	if len(paragraphs) == 0 {
		id, err := c.table.section.nextParagraphID()
		if err != nil {
			return
		}
		cfg := defaultParagraphConfig()
		buildParagraphElement(subList, id, text, &cfg)
		c.table.section.MarkDirty()
		return
	}
	first := &Paragraph{section: c.table.section, el: paragraphs[0]}
	first.SetText(text)
	for _, extra := range paragraphs[1:] {
		subList.RemoveChild(extra)
	}
	c.table.section.MarkDirty()
}

// AddParagraph appends a paragraph to the cell's content list.
func (c *Cell) AddParagraph(text string, opts ...ParagraphOption) (*Paragraph, error) {
	subList := firstChild(c.el, "subList")
	if subList == nil {
		subList = c.el.CreateElement("hp:subList")
	}
	cfg := defaultParagraphConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	id, err := c.table.section.nextParagraphID()
	if err != nil {
		return nil, err
	}
	el := buildParagraphElement(subList, id, text, &cfg)
	c.table.section.MarkDirty()
	return &Paragraph{section: c.table.section, el: el}, nil
}

// AddTable nests a table inside the cell by anchoring it in a new paragraph.
func (c *Cell) AddTable(rows, cols int, opts ...TableOption) (*Table, error) {
	p, err := c.AddParagraph("", WithoutRun())
	if err != nil {
		return nil, err
	}
	return p.AddTable(rows, cols, opts...)
}

// Tables returns tables nested inside this cell.
func (c *Cell) Tables() []*Table {
	var tables []*Table
	for _, p := range c.Paragraphs() {
		tables = append(tables, p.Tables()...)
	}
	return tables
}
