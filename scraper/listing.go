package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/listwatch/record"
)

// ParseError describes a page that could not be decoded at all.
type ParseError struct {
	Page string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Page, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseListing extracts candidate records from a listing page. pageURL is
// the address the page was fetched from and resolves relative links. A page
// without a results container yields no candidates and no error.
func ParseListing(body []byte, pageURL string, config ListingConfig) ([]record.Summary, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &ParseError{Page: pageURL, Err: fmt.Errorf("invalid page URL: %w", err)}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Page: pageURL, Err: err}
	}

	candidates := []record.Summary{}

	container := findContainer(doc, config.ContainerSelectors)
	if container == nil {
		return candidates, nil
	}

	seen := make(map[string]bool)
	container.Find(config.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		summary, ok := parseItem(item, base, config)
		if !ok || seen[summary.ID] {
			return
		}
		seen[summary.ID] = true
		candidates = append(candidates, summary)
	})

	return candidates, nil
}

// findContainer returns the first results container matched by any of the
// selectors, in order.
func findContainer(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		if found := doc.Find(selector).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// parseItem extracts one candidate. It reports false when the item has no
// identity, no link, or shows the no-photo placeholder.
func parseItem(item *goquery.Selection, base *url.URL, config ListingConfig) (record.Summary, bool) {
	id := strings.TrimSpace(item.AttrOr(config.IDAttribute, ""))
	if id == "" {
		return record.Summary{}, false
	}

	if hasNoPhoto(item, config) {
		return record.Summary{}, false
	}

	href, ok := item.Find(config.LinkSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return record.Summary{}, false
	}
	profileURL, ok := resolve(base, href)
	if !ok {
		return record.Summary{}, false
	}

	summary := record.Summary{
		ID:               id,
		ProfileURL:       profileURL,
		NameLocation:     cleanName(item.Find(config.NameSelector).First().Text(), config.Boilerplate),
		Status:           normalizeSpace(item.Find(config.StatusSelector).First().Text()),
		AdditionalPhotos: normalizeSpace(item.Find(config.PhotosSelector).First().Text()),
	}

	if src := imageSource(item.Find(config.ImageSelector).First()); src != "" {
		if photoURL, ok := resolve(base, src); ok {
			summary.PhotoURL = photoURL
		}
	}

	return summary, true
}

// hasNoPhoto reports whether the item carries the no-photo placeholder,
// either as a marker class or as the placeholder image.
func hasNoPhoto(item *goquery.Selection, config ListingConfig) bool {
	if config.NoPhotoClass != "" {
		if item.HasClass(config.NoPhotoClass) || item.Find("."+config.NoPhotoClass).Length() > 0 {
			return true
		}
	}

	if config.NoPhotoSrc != "" {
		src := strings.ToLower(imageSource(item.Find(config.ImageSelector).First()))
		if strings.Contains(src, strings.ToLower(config.NoPhotoSrc)) {
			return true
		}
	}

	return false
}

// imageSource prefers the lazy-load attribute over src.
func imageSource(img *goquery.Selection) string {
	if img.Length() == 0 {
		return ""
	}
	if src := strings.TrimSpace(img.AttrOr("data-src", "")); src != "" {
		return src
	}
	return strings.TrimSpace(img.AttrOr("src", ""))
}

func resolve(base *url.URL, ref string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", false
	}
	return base.ResolveReference(parsed).String(), true
}

// cleanName collapses whitespace and drops boilerplate tokens.
func cleanName(text string, boilerplate []string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, field := range fields {
		if slices.Contains(boilerplate, field) {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

// normalizeSpace replaces runs of whitespace with a single space.
func normalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
