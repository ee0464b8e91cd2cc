package hwpx

import "fmt"

// collectValidationIssues checks structural invariants across the document:
// every section keeps at least one paragraph, every table coordinate
// resolves to a cell, every manifest image href points at an existing part,
// and header bin items stay paired with their manifest entries.
func (d *Document) collectValidationIssues() ([]ValidationIssue, error) {
	var issues []ValidationIssue

	if len(d.tree.sections) == 0 {
		issues = append(issues, ValidationIssue{
			Part:    ManifestPath,
			Message: "document has no sections",
		})
	}

	for _, s := range d.tree.sections {
		paragraphs, err := s.Paragraphs()
		if err != nil {
			return nil, err
		}
		if len(paragraphs) == 0 {
			issues = append(issues, ValidationIssue{
				Part:    s.path,
				Message: "section has no paragraphs",
			})
		}
		tables, err := s.Tables()
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			issues = append(issues, validateTableGrid(s.path, t)...)
		}
	}

	for _, img := range d.Images() {
		if !d.pkg.HasPart(img.PartPath) {
			issues = append(issues, ValidationIssue{
				Part:    ManifestPath,
				Message: fmt.Sprintf("manifest item %q references missing part %q", img.ItemID, img.PartPath),
			})
		}
	}

	if header := d.tree.primaryHeader(); header != nil {
		items, err := header.BinItems()
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.Type != "Embedding" {
				continue
			}
			if !d.pkg.HasPart("BinData/" + item.BinData) {
				issues = append(issues, ValidationIssue{
					Part:    header.path,
					Message: fmt.Sprintf("bin item %q references missing part %q", item.ID, "BinData/"+item.BinData),
				})
			}
		}
	}

	return issues, nil
}

// validateTableGrid verifies that every logical coordinate of the table
// resolves to exactly one cell under span-aware addressing.
func validateTableGrid(partPath string, t *Table) []ValidationIssue {
	var issues []ValidationIssue
	rows, cols := t.RowCount(), t.ColCount()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if _, err := t.Cell(r, c); err != nil {
				issues = append(issues, ValidationIssue{
					Part:    partPath,
					Message: fmt.Sprintf("table coordinate (%d, %d) does not resolve: %v", r, c, err),
				})
			}
		}
	}
	return issues
}
