package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/justapithecus/dredge/types"
)

// ExtractItems pulls partial item records out of rendered catalog page
// markup. Item tiles are anchors whose href carries a recognized item id;
// the tile's img supplies the preview URL and alt-text file name.
//
// Layout heuristics beyond this selector set are deliberately out of
// scope; callers with a different layout supply their own View.
func ExtractItems(pageHTML []byte, baseURL string) ([]types.PartialItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse markup: %w", err)
	}

	byID := make(map[types.ItemID]*types.PartialItem)
	var order []types.ItemID

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		itemURL := resolveRef(baseURL, href)
		id := types.ItemIDFromURL(itemURL)
		if id == "" {
			return
		}

		p, ok := byID[id]
		if !ok {
			p = &types.PartialItem{ID: id, ItemURL: types.NormalizeURL(itemURL)}
			byID[id] = p
			order = append(order, id)
		}

		if img := sel.Find("img").First(); img.Length() > 0 {
			if src, ok := img.Attr("src"); ok && p.PreviewURL == nil {
				preview := resolveRef(baseURL, src)
				p.PreviewURL = &preview
			}
			if alt, ok := img.Attr("alt"); ok && alt != "" && p.FileName == nil {
				name := strings.TrimSpace(alt)
				p.FileName = &name
			}
		}
		if label, ok := sel.Attr("data-content-type"); ok && p.ContentTypeLabel == nil {
			p.ContentTypeLabel = &label
		}
		if ft, ok := sel.Attr("data-file-type"); ok && p.FileType == nil {
			p.FileType = &ft
		}
	})

	out := make([]types.PartialItem, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// resolveRef joins a possibly relative href against the page base URL.
func resolveRef(baseURL, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.Contains(ref, "://") {
		return ref
	}
	base := strings.TrimSuffix(baseURL, "/")
	if strings.HasPrefix(ref, "/") {
		// Keep scheme://host only.
		if i := strings.Index(base, "://"); i > 0 {
			if j := strings.IndexByte(base[i+3:], '/'); j >= 0 {
				base = base[:i+3+j]
			}
		}
	} else {
		ref = "/" + ref
	}
	return base + ref
}
