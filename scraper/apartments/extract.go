package apartments

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"metro-housing/models"
)

const (
	selPageRange = "span.pageRange"
	selContainer = "div.placardContainer"
	selListing   = "li.mortar-wrapper"
	selTitle     = "span.js-placardTitle.title"
	selAddress   = "div.property-address.js-url"
	selPricing   = "p.property-pricing"
	selBeds      = "p.property-beds"
	selAmenities = "p.property-amenities"
	selLink      = "a.property-link"
	selPhone     = "div.property-actions a"
)

var (
	// ErrNoPageCount is returned when the first page has no usable page-count indicator.
	ErrNoPageCount = errors.New("apartments: page count indicator not found")

	errNoContainer = errors.New("listing container not found")
)

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("apartments: parse html: %w", err)
	}
	return doc, nil
}

// parsePageCount reads "Page 1 of 28" style indicators; the last token is the
// total.
func parsePageCount(doc *goquery.Document) (int, error) {
	sel := doc.Find(selPageRange).First()
	if sel.Length() == 0 {
		return 0, ErrNoPageCount
	}
	fields := strings.Fields(sel.Text())
	if len(fields) == 0 {
		return 0, ErrNoPageCount
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrNoPageCount, sel.Text())
	}
	return n, nil
}

// extractListings returns every listing that could be read from the page
// along with one error per listing that was skipped.
func extractListings(doc *goquery.Document) ([]models.ListingRecord, []error, error) {
	container := doc.Find(selContainer).First()
	if container.Length() == 0 {
		return nil, nil, errNoContainer
	}

	var (
		records []models.ListingRecord
		skipped []error
	)
	container.Find(selListing).Each(func(i int, s *goquery.Selection) {
		rec, err := extractOne(s)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("listing %d: %w", i, err))
			return
		}
		records = append(records, rec)
	})
	return records, skipped, nil
}

// extractOne is swapped in tests.
var extractOne = extractListing

func extractListing(s *goquery.Selection) (rec models.ListingRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract: %v", r)
		}
	}()

	rec.Name = text(s.Find(selTitle))
	if rec.Name == "" {
		return rec, errors.New("missing name")
	}

	link, ok := s.Find(selLink).First().Attr("href")
	link = strings.TrimSpace(link)
	if !ok || link == "" {
		return rec, errors.New("missing link")
	}
	rec.Link = link

	rec.Address, rec.Zipcode = splitAddress(s.Find(selAddress))
	rec.PriceLow, rec.PriceHigh = splitPricing(text(s.Find(selPricing)))
	rec.Layout = models.OptStr(text(s.Find(selBeds)))
	rec.Amenities = joinLines(s.Find(selAmenities))
	rec.PhoneNumber = models.OptStr(text(s.Find(selPhone)))
	return rec, nil
}

// text returns the trimmed text of the first matched element, or "".
func text(s *goquery.Selection) string {
	first := s.First()
	if first.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(first.Text())
}

// splitAddress takes "1 Main St, Indianapolis, IN 46201": the trailing five
// characters are the zipcode and everything before the separating character
// is the street address.
func splitAddress(s *goquery.Selection) (address, zipcode models.Cell) {
	if s.Length() == 0 {
		return models.Null(), models.Null()
	}
	raw := []rune(strings.TrimSpace(strings.ReplaceAll(s.First().Text(), "\n", "")))
	if len(raw) < 6 {
		return models.OptStr(string(raw)), models.Null()
	}
	address = models.OptStr(strings.TrimSpace(string(raw[:len(raw)-6])))
	zipcode = models.OptStr(string(raw[len(raw)-5:]))
	return address, zipcode
}

// splitPricing splits "$1,000 - $1,450". A single token fills both ends.
func splitPricing(raw string) (low, high models.Cell) {
	if raw == "" {
		return models.Null(), models.Null()
	}
	parts := strings.Split(raw, " - ")
	low = models.OptStr(strings.TrimSpace(parts[0]))
	if len(parts) == 1 {
		return low, low
	}
	return low, models.OptStr(strings.TrimSpace(parts[1]))
}

func joinLines(s *goquery.Selection) models.Cell {
	if s.Length() == 0 {
		return models.Null()
	}
	var lines []string
	for _, l := range strings.Split(s.First().Text(), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return models.OptStr(strings.Join(lines, ", "))
}
