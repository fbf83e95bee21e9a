package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/justapithecus/dredge/types"
)

// DetailParser extracts item fields from a detail page body using
// labeled definition rows and data attributes. It raises ErrAuthExpired
// when the body is a login page instead of a detail page.
type DetailParser struct{}

// NewDetailParser creates the goquery-backed detail parser.
func NewDetailParser() *DetailParser { return &DetailParser{} }

// signInMarkers identify a login page served in place of item detail.
var signInMarkers = []string{
	"form[action*='login']",
	"form[action*='signin']",
	"form[action*='sign-in']",
	"input[name='password']",
}

// Parse implements Parser.
func (p *DetailParser) Parse(body []byte) (types.ParsedFields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.ParsedFields{}, &FetchError{Class: types.FailureParse, Err: fmt.Errorf("parse detail markup: %w", err)}
	}

	for _, marker := range signInMarkers {
		if doc.Find(marker).Length() > 0 {
			return types.ParsedFields{}, ErrAuthExpired
		}
	}

	fields := types.ParsedFields{}
	assign := func(dst **string, value string) {
		value = strings.TrimSpace(value)
		if value != "" && *dst == nil {
			*dst = &value
		}
	}

	// Labeled definition rows: <dt>Status</dt><dd>Active</dd>.
	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(dt.Text()))
		value := dt.Next().Text()
		switch label {
		case "status":
			assign(&fields.Status, value)
		case "expiration date", "expires":
			assign(&fields.ExpirationDate, value)
		case "usage rights", "rights":
			assign(&fields.UsageRights, value)
		case "file size", "size":
			assign(&fields.FileSize, value)
		case "file name", "name":
			assign(&fields.FileName, value)
		}
	})

	// Data attributes win over nothing, lose to labeled rows.
	if v, ok := doc.Find("[data-public-url]").Attr("data-public-url"); ok {
		assign(&fields.PublicURL, v)
	}
	if v, ok := doc.Find("[data-preview-url]").Attr("data-preview-url"); ok {
		assign(&fields.PreviewURL, v)
	}
	if img := doc.Find("img.asset-preview").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok {
			assign(&fields.PreviewURL, src)
		}
	}

	if fields == (types.ParsedFields{}) && doc.Find("dt, [data-public-url]").Length() == 0 {
		return fields, &FetchError{Class: types.FailureParse, Err: fmt.Errorf("no detail fields found in body")}
	}

	return fields, nil
}

// Verify DetailParser implements the parser interface.
var _ Parser = (*DetailParser)(nil)
