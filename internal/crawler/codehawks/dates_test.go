package codehawks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTooltipDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "full form with gmt offset",
			raw:  "Mon, Apr 22 2024 14:00 GMT+2",
			want: time.Date(2024, time.April, 22, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "full form wrapped in parentheses",
			raw:  "(Mon, Apr 22 2024 14:00 GMT+2)",
			want: time.Date(2024, time.April, 22, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "date only short month",
			raw:  "Apr 22 2024",
			want: time.Date(2024, time.April, 22, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "date only long month",
			raw:  "April 22 2024",
			want: time.Date(2024, time.April, 22, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "ordinal suffix stripped",
			raw:  "Apr 22nd 2024",
			want: time.Date(2024, time.April, 22, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "comma between day and year",
			raw:  "Apr 22, 2024",
			want: time.Date(2024, time.April, 22, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "ordinal and comma together",
			raw:  "April 1st, 2025",
			want: time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTooltipDate(tc.raw)
			require.NoError(t, err)
			require.True(t, got.Equal(tc.want), "got %s, want %s", got, tc.want)
			require.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTooltipDateUnparseable(t *testing.T) {
	t.Parallel()

	_, err := ParseTooltipDate("sometime next week")
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "sometime next week", parseErr.Raw)
	require.NotEmpty(t, parseErr.Cleaned)
	require.Contains(t, parseErr.Error(), "sometime next week")
}

func TestParseWindow(t *testing.T) {
	t.Parallel()

	window, err := parseWindow("Mon, Apr 22 2024 14:00 GMT+2 → Mon, May 6 2024 14:00 GMT+2")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.April, 22, 12, 0, 0, 0, time.UTC), window.Start)
	require.Equal(t, time.Date(2024, time.May, 6, 12, 0, 0, 0, time.UTC), window.End)
}

func TestParseWindowMissingSeparator(t *testing.T) {
	t.Parallel()

	_, err := parseWindow("Apr 22 2024 until May 6 2024")
	require.ErrorIs(t, err, ErrDatesNotFound)
}

func TestParseWindowBadHalf(t *testing.T) {
	t.Parallel()

	_, err := parseWindow("Apr 22 2024 → soon")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "soon", parseErr.Raw)
}

func TestResolveWindowInlineRange(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{
		elementsBySelector: map[string][]fakeElement{
			dateTriggerSelector: {
				{text: "View results"},
				{text: "Apr 22 2024 → May 6 2024"},
			},
		},
	}
	c := newTestCrawler(t, nil, nil)

	window, err := c.resolveWindow(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.April, 22, 0, 0, 0, 0, time.UTC), window.Start)
	require.Equal(t, time.Date(2024, time.May, 6, 0, 0, 0, 0, time.UTC), window.End)
	require.Zero(t, sess.hoverCount(), "inline range must not hover")
}

func TestResolveWindowViaTooltip(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{
		elementsBySelector: map[string][]fakeElement{
			dateTriggerSelector: {{text: "Ends in 3 days"}},
		},
		textBySelector: map[string]string{
			tooltipSelector: "Mon, Apr 22 2024 14:00 GMT+2 → Mon, May 6 2024 14:00 GMT+2",
		},
	}
	c := newTestCrawler(t, nil, nil)

	window, err := c.resolveWindow(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.April, 22, 12, 0, 0, 0, time.UTC), window.Start)
	require.Equal(t, 1, sess.hoverCount())
}

func TestResolveWindowNoCandidates(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{}
	c := newTestCrawler(t, nil, nil)

	_, err := c.resolveWindow(context.Background(), sess)
	require.ErrorIs(t, err, ErrDatesNotFound)
}

func TestResolveWindowTooltipTimeout(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{
		elementsBySelector: map[string][]fakeElement{
			dateTriggerSelector: {{text: "Starts in 12 hours"}},
		},
		waitVisibleErr: errors.New("timeout waiting for selector"),
	}
	c := newTestCrawler(t, nil, nil)

	_, err := c.resolveWindow(context.Background(), sess)
	require.ErrorIs(t, err, ErrDatesNotFound)
}
