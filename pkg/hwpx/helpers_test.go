package hwpx

import (
	"archive/zip"
	"bytes"
	"testing"
)

// newTestDocument returns an empty single-section document.
func newTestDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return doc
}

// reloadDocument round-trips the document through a full save.
func reloadDocument(t *testing.T, doc *Document) *Document {
	t.Helper()
	data, err := doc.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() failed: %v", err)
	}
	reloaded, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes() after save failed: %v", err)
	}
	return reloaded
}

// buildArchive assembles a zip from the blank template parts, applying
// overrides: a nil value drops the part, any other value replaces it.
func buildArchive(t *testing.T, overrides map[string][]byte) []byte {
	t.Helper()

	parts := map[string][]byte{MimetypePath: []byte(DefaultMimetype)}
	for _, part := range blankParts {
		parts[part.name] = []byte(part.data)
	}
	for name, data := range overrides {
		if data == nil {
			delete(parts, name)
			continue
		}
		parts[name] = data
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if data, ok := parts[MimetypePath]; ok {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: MimetypePath, Method: zip.Store})
		if err != nil {
			t.Fatalf("failed to create mimetype entry: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write mimetype entry: %v", err)
		}
	}
	for name, data := range parts {
		if name == MimetypePath {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close test archive: %v", err)
	}
	return buf.Bytes()
}

// firstSection returns the document's first section or fails the test.
func firstSection(t *testing.T, doc *Document) *Section {
	t.Helper()
	sections := doc.Sections()
	if len(sections) == 0 {
		t.Fatal("document has no sections")
	}
	return sections[0]
}
