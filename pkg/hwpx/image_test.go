package hwpx

import (
	"bytes"
	"testing"
)

var pngStub = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestAddImage(t *testing.T) {
	doc := newTestDocument(t)

	itemID, err := doc.AddImage(pngStub, "png")
	if err != nil {
		t.Fatalf("AddImage() failed: %v", err)
	}
	if itemID != "BIN0001" {
		t.Errorf("item id = %q, want BIN0001", itemID)
	}
	if !doc.Package().HasPart("BinData/BIN0001.png") {
		t.Error("image part missing from package")
	}

	data, err := doc.ImageData(itemID)
	if err != nil {
		t.Fatalf("ImageData() failed: %v", err)
	}
	if !bytes.Equal(data, pngStub) {
		t.Error("stored image bytes differ from input")
	}

	images := doc.Images()
	if len(images) != 1 {
		t.Fatalf("image count = %d, want 1", len(images))
	}
	if images[0].MediaType != "image/png" {
		t.Errorf("media type = %q, want image/png", images[0].MediaType)
	}

	items, err := doc.Headers()[0].BinItems()
	if err != nil {
		t.Fatalf("BinItems() failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("bin item count = %d, want 1", len(items))
	}
	if items[0].BinData != "BIN0001.png" || items[0].Type != "Embedding" {
		t.Errorf("bin item = %+v, want Embedding of BIN0001.png", items[0])
	}
}

func TestAddImageAllocatesLowestUnusedID(t *testing.T) {
	doc := newTestDocument(t)

	first, err := doc.AddImage(pngStub, "png")
	if err != nil {
		t.Fatalf("AddImage() failed: %v", err)
	}
	second, err := doc.AddImage(pngStub, "jpg")
	if err != nil {
		t.Fatalf("AddImage() failed: %v", err)
	}
	if first != "BIN0001" || second != "BIN0002" {
		t.Fatalf("allocated ids = %q, %q, want BIN0001, BIN0002", first, second)
	}

	// Removing the first image frees its id for reuse.
	if _, err := doc.RemoveImage(first); err != nil {
		t.Fatalf("RemoveImage() failed: %v", err)
	}
	third, err := doc.AddImage(pngStub, "gif")
	if err != nil {
		t.Fatalf("AddImage() failed: %v", err)
	}
	if third != "BIN0001" {
		t.Errorf("reallocated id = %q, want BIN0001", third)
	}
}

func TestAddImageRejectsBadInput(t *testing.T) {
	doc := newTestDocument(t)

	if _, err := doc.AddImage(nil, "png"); err == nil {
		t.Error("AddImage() accepted empty data")
	}
	if _, err := doc.AddImage(pngStub, "exe"); err == nil {
		t.Error("AddImage() accepted an unsupported format")
	}
	if _, err := doc.AddImageAs(pngStub, "png", "header"); err == nil {
		t.Error("AddImageAs() accepted an id already used by the manifest")
	}
}

func TestRemoveImage(t *testing.T) {
	doc := newTestDocument(t)
	itemID, err := doc.AddImage(pngStub, "png")
	if err != nil {
		t.Fatalf("AddImage() failed: %v", err)
	}

	removed, err := doc.RemoveImage(itemID)
	if err != nil {
		t.Fatalf("RemoveImage() failed: %v", err)
	}
	if !removed {
		t.Fatal("RemoveImage() = false, want true")
	}
	if doc.Package().HasPart("BinData/BIN0001.png") {
		t.Error("image part still present after removal")
	}
	if len(doc.Images()) != 0 {
		t.Error("manifest still lists the removed image")
	}
	items, err := doc.Headers()[0].BinItems()
	if err != nil {
		t.Fatalf("BinItems() failed: %v", err)
	}
	if len(items) != 0 {
		t.Error("header still lists the removed image")
	}

	removed, err = doc.RemoveImage("BIN0042")
	if err != nil {
		t.Fatalf("RemoveImage() failed: %v", err)
	}
	if removed {
		t.Error("RemoveImage() of unknown id = true, want false")
	}
}

func TestRemoveImageCleansPartialRegistration(t *testing.T) {
	doc := newTestDocument(t)
	itemID, err := doc.AddImage(pngStub, "png")
	if err != nil {
		t.Fatalf("AddImage() failed: %v", err)
	}

	// Drop only the manifest entry; the part and the header binItem remain.
	if _, err := doc.Package().RemoveManifestItem(itemID); err != nil {
		t.Fatalf("RemoveManifestItem() failed: %v", err)
	}

	removed, err := doc.RemoveImage(itemID)
	if err != nil {
		t.Fatalf("RemoveImage() failed: %v", err)
	}
	if !removed {
		t.Fatal("RemoveImage() = false, want true for a partially registered image")
	}
	if doc.Package().HasPart("BinData/BIN0001.png") {
		t.Error("image part still present after removal")
	}
	items, err := doc.Headers()[0].BinItems()
	if err != nil {
		t.Fatalf("BinItems() failed: %v", err)
	}
	if len(items) != 0 {
		t.Error("header still lists the removed image")
	}
}

func TestImageRoundTrip(t *testing.T) {
	doc := newTestDocument(t)
	itemID, err := doc.AddImage(pngStub, "png")
	if err != nil {
		t.Fatalf("AddImage() failed: %v", err)
	}

	reloaded := reloadDocument(t, doc)
	data, err := reloaded.ImageData(itemID)
	if err != nil {
		t.Fatalf("ImageData() after reload failed: %v", err)
	}
	if !bytes.Equal(data, pngStub) {
		t.Error("image bytes changed across a save/load cycle")
	}
}
