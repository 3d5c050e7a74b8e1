package codehawks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	titleSelector        = "h1"
	sponsorSelector      = "div.text-base.font-normal.text-colors-text-text-tertiary-600"
	avatarSelector       = "img[data-melt-avatar-image]"
	repoAnchorSelector   = `a[href*="github.com"]`
	rewardBlockSelector  = "div.flex.items-center.justify-between.gap-2"
	rewardBlockMarker    = "Total prize"
	rewardAmountSelector = "span.text-base.font-semibold.text-colors-text-text-primary-900"
	rewardTokenSelector  = "span.text-base.font-semibold.text-colors-text-text-tertiary-600"
)

var amountPattern = regexp.MustCompile(`[\d,]+`)

// Detail holds the static DOM fields of one contest page. Every field is
// optional: missing markup degrades to the zero value and is reported in
// Anomalies rather than failing the page.
type Detail struct {
	Title        string
	Sponsor      string
	ImageURL     string
	RepoLink     string
	RewardsPool  float64
	RewardsToken string
	// Anomalies lists non-fatal extraction problems (e.g. the reward block
	// missing after a markup revision) for diagnostics.
	Anomalies []string
}

// ExtractDetail parses the static fields of a contest detail page.
func ExtractDetail(html string) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Detail{}, fmt.Errorf("parse detail html: %w", err)
	}

	d := Detail{
		Title:   strings.TrimSpace(doc.Find(titleSelector).First().Text()),
		Sponsor: strings.TrimSpace(doc.Find(sponsorSelector).First().Text()),
	}
	if src, ok := doc.Find(avatarSelector).First().Attr("src"); ok {
		d.ImageURL = src
	}
	if href, ok := doc.Find(repoAnchorSelector).First().Attr("href"); ok {
		d.RepoLink = href
	}

	rewardBlock := findRewardBlock(doc)
	if rewardBlock == nil {
		d.Anomalies = append(d.Anomalies, "reward container not found")
		return d, nil
	}

	amountNode := rewardBlock.Find(rewardAmountSelector).First()
	tokenNode := rewardBlock.Find(rewardTokenSelector).First()
	if amountNode.Length() == 0 || tokenNode.Length() == 0 {
		d.Anomalies = append(d.Anomalies, "reward amount or token node not found")
		return d, nil
	}

	d.RewardsPool = ParseRewardAmount(amountNode.Text())
	d.RewardsToken = strings.TrimSpace(tokenNode.Text())
	return d, nil
}

// findRewardBlock returns the first "between" flex container whose text
// mentions the total prize, or nil when the markup has drifted.
func findRewardBlock(doc *goquery.Document) *goquery.Selection {
	var block *goquery.Selection
	doc.Find(rewardBlockSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), rewardBlockMarker) {
			block = sel
			return false
		}
		return true
	})
	return block
}

// ParseRewardAmount extracts the leading digit/comma run from a reward label
// and converts it to a number. Text without digits yields 0.
func ParseRewardAmount(raw string) float64 {
	match := amountPattern.FindString(raw)
	if match == "" {
		return 0
	}
	cleaned := strings.ReplaceAll(match, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return amount
}
