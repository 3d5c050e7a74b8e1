// Package codehawks implements the CodeHawks platform crawler. All CSS and
// text selectors for the platform's markup live here so a markup revision
// only touches this package, never the orchestration or date logic.
package codehawks

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Platform identifies the source site in produced records.
const Platform = "CodeHawks"

// Origin is the canonical scheme+host of the platform.
const Origin = "https://codehawks.cyfrin.io"

// ListingURL is the contests index page (all contest types).
const ListingURL = Origin + "/contests?contestType=al"

const (
	listingItemSelector   = "li > div > div"
	contestAnchorSelector = `a[href*="/c/"]`
)

// ExtractListing parses the contests index page into absolute detail URLs,
// in document order. Containers without a contest anchor are non-contest UI
// elements and are skipped. Zero matches is not an error.
func ExtractListing(html string, origin string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var urls []string
	doc.Find(listingItemSelector).Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find(contestAnchorSelector).First().Attr("href")
		if !ok || href == "" {
			return
		}
		urls = append(urls, origin+href)
	})
	return urls, nil
}
