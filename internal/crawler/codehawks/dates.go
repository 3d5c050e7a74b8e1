package codehawks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/FelllGit/codehawks-scrapper/internal/crawler"
)

// Selectors and markers for the hover-revealed date range. The platform
// shows "Apr 22 → May 6" inline on finished contests but hides the precise
// window behind a tooltip on live ones.
const (
	dateTriggerSelector = `button[data-melt-tooltip-trigger], button[data-tooltip-trigger]`
	tooltipSelector     = `div[role="tooltip"]`
	rangeSeparator      = "→"
	startsInMarker      = "Starts in"
	endsInMarker        = "Ends in"
)

// ErrDatesNotFound reports that no candidate control yielded a date range.
var ErrDatesNotFound = errors.New("contest dates not found")

// Window is the contest's [start, end] interval in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseError reports a date string that survived normalization but matched
// none of the known formats. It carries both forms for diagnostics.
type ParseError struct {
	Raw     string
	Cleaned string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable date string %q (normalized %q)", e.Raw, e.Cleaned)
}

// resolveWindow locates the contest date range on a live page. Candidates
// are scanned in DOM order; inline ranges win without a hover, countdown
// labels are hovered to reveal the tooltip. Interaction errors degrade to
// ErrDatesNotFound, a parse failure of a found string surfaces as
// *ParseError; either way only this contest is affected.
func (c *Crawler) resolveWindow(ctx context.Context, sess crawler.Session) (Window, error) {
	triggers, err := sess.Elements(ctx, dateTriggerSelector)
	if err != nil {
		return Window{}, fmt.Errorf("%w: locate date triggers: %v", ErrDatesNotFound, err)
	}

	for _, trigger := range triggers {
		text, err := trigger.Text(ctx)
		if err != nil {
			// Stale or detached node; the next candidate may still work.
			continue
		}

		if strings.Contains(text, rangeSeparator) {
			return parseWindow(text)
		}

		if strings.Contains(text, startsInMarker) || strings.Contains(text, endsInMarker) {
			window, err := c.windowFromTooltip(ctx, sess, trigger)
			if err != nil {
				return Window{}, err
			}
			return window, nil
		}
	}
	return Window{}, ErrDatesNotFound
}

func (c *Crawler) windowFromTooltip(ctx context.Context, sess crawler.Session, trigger crawler.Element) (Window, error) {
	if err := trigger.Hover(ctx); err != nil {
		return Window{}, fmt.Errorf("%w: hover date trigger: %v", ErrDatesNotFound, err)
	}
	if err := sess.WaitVisible(ctx, tooltipSelector, c.cfg.TooltipTimeout); err != nil {
		return Window{}, fmt.Errorf("%w: tooltip never became visible: %v", ErrDatesNotFound, err)
	}
	text, err := sess.Text(ctx, tooltipSelector)
	if err != nil {
		return Window{}, fmt.Errorf("%w: read tooltip: %v", ErrDatesNotFound, err)
	}
	if !strings.Contains(text, rangeSeparator) {
		return Window{}, ErrDatesNotFound
	}
	return parseWindow(text)
}

// parseWindow splits "<from> → <to>" and parses both halves.
func parseWindow(text string) (Window, error) {
	parts := strings.SplitN(text, rangeSeparator, 2)
	if len(parts) != 2 {
		return Window{}, ErrDatesNotFound
	}
	start, err := ParseTooltipDate(strings.TrimSpace(parts[0]))
	if err != nil {
		return Window{}, err
	}
	end, err := ParseTooltipDate(strings.TrimSpace(parts[1]))
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}

var (
	ordinalPattern  = regexp.MustCompile(`\b(\d+)(st|nd|rd|th)\b`)
	dayYearComma    = regexp.MustCompile(`(\d+),\s+(\d+)`)
	gmtOffset       = regexp.MustCompile(`GMT\+(\d+)`)
	parensRemover   = strings.NewReplacer("(", "", ")", "")
	fallbackLayouts = []string{"Jan 2 2006", "January 2 2006"}
)

// primaryLayout matches the tooltip's full form, e.g.
// "Mon, Apr 22 2024 14:00 GMT+2" after offset normalization.
const primaryLayout = "Mon, Jan 2 2006 15:04 -07:00"

// ParseTooltipDate normalizes one half of a tooltip date range and parses it
// in UTC. Normalization strips parentheses and ordinal suffixes, separates a
// "day, year" comma join, and rewrites "GMT+N" into a "+0N:00" offset. The
// full layout is tried first, then the date-only fallbacks; the first layout
// that parses wins.
func ParseTooltipDate(raw string) (time.Time, error) {
	cleaned := parensRemover.Replace(raw)
	cleaned = ordinalPattern.ReplaceAllString(cleaned, "$1")
	cleaned = dayYearComma.ReplaceAllString(cleaned, "$1 $2")
	cleaned = gmtOffset.ReplaceAllString(cleaned, "+0$1:00")
	cleaned = strings.TrimSpace(cleaned)

	if t, err := time.Parse(primaryLayout, cleaned); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &ParseError{Raw: raw, Cleaned: cleaned}
}
