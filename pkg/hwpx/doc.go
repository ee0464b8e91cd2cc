// Package hwpx reads, edits, and writes HWPX word-processor documents.
//
// An HWPX file is a ZIP container holding XML parts: a mimetype marker,
// an OPF-style manifest, a shared header with style definitions, and one
// or more section parts carrying the body text. This package exposes the
// container as a Package and the content as a lazily parsed object model
// (Document, Section, Paragraph, Run, Table, Memo, Shape) whose wrappers
// alias live XML nodes, so edits through any wrapper are visible through
// every other wrapper of the same node.
//
// # Quick Start
//
// Open an existing document, change it, and save it back:
//
//	doc, err := hwpx.Open("report.hwpx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
//	if _, err := doc.AddParagraph("Reviewed on " + time.Now().Format("2006-01-02")); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := doc.SaveToPath("report-reviewed.hwpx"); err != nil {
//	    log.Fatal(err)
//	}
//
// New() builds a document from a built-in blank skeleton:
//
//	doc, err := hwpx.New()
//
// # Editing
//
// Paragraphs take functional options for style references:
//
//	doc.AddParagraph("Heading", hwpx.WithStyleIDRef(2))
//	doc.AddParagraph("Body text")                     // inherits refs from the previous paragraph
//	doc.AddParagraph("Plain", hwpx.WithoutStyleInheritance())
//
// Tables address cells by logical (row, column) coordinates. Coordinates
// covered by a merged cell resolve to the merge master:
//
//	tbl, _ := doc.AddTable(3, 3)
//	tbl.SetCellText(0, 0, "total")
//	tbl.MergeCells(0, 0, 0, 2)
//	tbl.SplitMergedCell(0, 0)
//
// Review annotations attach memos to body positions through field
// controls:
//
//	memo, anchor, fieldID, err := doc.AddMemoWithAnchor("check this",
//	    &hwpx.MemoAnchorOptions{AnchorText: "Q3 revenue"})
//
// # Persistence
//
// SaveToPath, SaveToStream, and ToBytes re-serialize only the parts that
// were modified; untouched parts keep their original bytes, including
// XML declarations, attribute order, and content this package does not
// model. The mimetype entry is always written first and uncompressed.
//
// # Error Handling
//
// Failures carry typed errors:
//
//   - PackageError: container-level I/O and lookup failures
//   - StructureError: malformed or missing mandatory parts
//   - InvalidRangeError: out-of-range or invalid coordinates
//   - ValidationError: structural issues found by Validate
//
// Check them with the Is* helpers or errors.As:
//
//	if hwpx.IsInvalidRangeError(err) {
//	    // coordinates were out of range
//	}
//
// Destructive operations that would break document invariants return
// ErrLastParagraph or ErrLastSection, wrapped for errors.Is.
//
// # Configuration
//
// Behavior toggles come from the environment (HWPX_LOG_LEVEL,
// HWPX_VALIDATE_ON_SAVE, HWPX_STRICT_MODE) or from SetGlobalConfig.
// Validation on save can also be toggled per document through the
// Document.ValidateOnSave field.
//
// # Concurrency
//
// A Document and the wrappers derived from it are not safe for
// concurrent mutation; guard shared documents externally. Distinct
// documents are independent.
package hwpx
