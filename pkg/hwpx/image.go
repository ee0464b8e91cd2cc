package hwpx

import (
	"fmt"
	"strings"
)

// imageMediaTypes maps supported image formats to manifest media types.
var imageMediaTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"wmf":  "image/x-wmf",
	"emf":  "image/x-emf",
}

// normalizeImageFormat lowercases the format and strips a leading dot.
func normalizeImageFormat(format string) (string, string, error) {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	mediaType, ok := imageMediaTypes[f]
	if !ok {
		return "", "", fmt.Errorf("unsupported image format %q", format)
	}
	return f, mediaType, nil
}

// nextBinItemID allocates the lowest unused BIN#### id, checking both the
// manifest and the header's binary data list so reloads never collide.
func (d *Document) nextBinItemID() (string, error) {
	used := map[string]bool{}
	for _, item := range d.pkg.manifestItems() {
		used[item.SelectAttrValue("id", "")] = true
	}
	if header := d.tree.primaryHeader(); header != nil {
		items, err := header.BinItems()
		if err != nil {
			return "", err
		}
		for _, item := range items {
			if dot := strings.IndexByte(item.BinData, '.'); dot > 0 {
				used[item.BinData[:dot]] = true
			} else {
				used[item.BinData] = true
			}
		}
	}
	for n := 1; ; n++ {
		id := fmt.Sprintf("BIN%04d", n)
		if !used[id] {
			return id, nil
		}
	}
}

// AddImage stores image bytes as a BinData part, registers it in the
// manifest and the header, and returns the allocated item id.
func (d *Document) AddImage(data []byte, format string) (string, error) {
	itemID, err := d.nextBinItemID()
	if err != nil {
		return "", err
	}
	return d.AddImageAs(data, format, itemID)
}

// AddImageAs stores image bytes under an explicit item id.
func (d *Document) AddImageAs(data []byte, format, itemID string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image data must not be empty")
	}
	f, mediaType, err := normalizeImageFormat(format)
	if err != nil {
		return "", err
	}
	if d.pkg.ManifestItemHref(itemID) != "" {
		return "", fmt.Errorf("manifest item %q already exists", itemID)
	}

	binDataName := itemID + "." + f
	partPath := "BinData/" + binDataName
	if err := d.pkg.Write(partPath, data); err != nil {
		return "", err
	}
	if err := d.pkg.AddManifestItem(itemID, partPath, mediaType); err != nil {
		return "", err
	}
	header := d.tree.primaryHeader()
	if header != nil {
		if _, err := header.AddBinItem("Embedding", binDataName, f); err != nil {
			return "", err
		}
	}
	Debug("added image %s (%d bytes, %s)", itemID, len(data), mediaType)
	return itemID, nil
}

// ImageInfo describes one embedded image.
type ImageInfo struct {
	ItemID    string
	PartPath  string
	MediaType string
	Format    string
}

// Images lists the document's embedded images from the manifest.
func (d *Document) Images() []ImageInfo {
	var out []ImageInfo
	for _, item := range d.pkg.manifestItems() {
		href := item.SelectAttrValue("href", "")
		if !strings.HasPrefix(href, "BinData/") {
			continue
		}
		format := ""
		if dot := strings.LastIndexByte(href, '.'); dot >= 0 {
			format = href[dot+1:]
		}
		out = append(out, ImageInfo{
			ItemID:    item.SelectAttrValue("id", ""),
			PartPath:  href,
			MediaType: item.SelectAttrValue("media-type", ""),
			Format:    format,
		})
	}
	return out
}

// ImageData returns the stored bytes for an image item id, or nil when the
// item does not exist.
func (d *Document) ImageData(itemID string) ([]byte, error) {
	href := d.pkg.ManifestItemHref(itemID)
	if href == "" {
		return nil, nil
	}
	return d.pkg.Read(href)
}

// RemoveImage removes the image with the given item id: the BinData part,
// its manifest item and the header registration. Each of the three is
// removed independently so a partially registered image is still cleaned
// up fully; reports whether any of them was present.
func (d *Document) RemoveImage(itemID string) (bool, error) {
	removed := false
	header := d.tree.primaryHeader()

	// Locate the data part and the header registration. The binItem's data
	// file name carries the item id as its prefix (BIN0001 -> BIN0001.png),
	// so the part stays findable even when the manifest entry is gone.
	partPath := ""
	binItemID := ""
	if header != nil {
		items, err := header.BinItems()
		if err != nil {
			return false, err
		}
		for _, item := range items {
			if strings.HasPrefix(item.BinData, itemID) {
				binItemID = item.ID
				if item.BinData != "" {
					partPath = "BinData/" + item.BinData
				}
				break
			}
		}
	}
	if partPath == "" {
		partPath = d.pkg.ManifestItemHref(itemID)
	}

	if header != nil && binItemID != "" {
		ok, err := header.RemoveBinItem(binItemID)
		if err != nil {
			return removed, err
		}
		removed = removed || ok
	}

	ok, err := d.pkg.RemoveManifestItem(itemID)
	if err != nil {
		return removed, err
	}
	removed = removed || ok

	if partPath != "" && d.pkg.HasPart(partPath) {
		if err := d.pkg.Delete(partPath); err != nil {
			return removed, err
		}
		removed = true
	}

	if removed {
		Debug("removed image %s", itemID)
	}
	return removed, nil
}
