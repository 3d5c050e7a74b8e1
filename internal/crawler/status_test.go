package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.April, 22, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  Status
	}{
		{
			name:  "window entirely in the future",
			start: now.Add(24 * time.Hour),
			end:   now.Add(48 * time.Hour),
			want:  StatusUpcoming,
		},
		{
			name:  "window entirely in the past",
			start: now.Add(-48 * time.Hour),
			end:   now.Add(-24 * time.Hour),
			want:  StatusFinished,
		},
		{
			name:  "now inside the window",
			start: now.Add(-time.Hour),
			end:   now.Add(time.Hour),
			want:  StatusOngoing,
		},
		{
			name:  "starts exactly now",
			start: now,
			end:   now.Add(time.Hour),
			want:  StatusOngoing,
		},
		{
			name:  "ends exactly now",
			start: now.Add(-time.Hour),
			end:   now,
			want:  StatusOngoing,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ClassifyStatus(tc.start, tc.end, now))
		})
	}
}

func TestSlugFromURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2024-04-dria", SlugFromURL("https://codehawks.cyfrin.io/c/2024-04-dria"))
	require.Equal(t, "no-slashes", SlugFromURL("no-slashes"))
	require.Equal(t, "", SlugFromURL("https://codehawks.cyfrin.io/c/"))
}
