package calsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayflow-app/dayflow/app/models"
	"github.com/dayflow-app/dayflow/internal/pkg/provider"
)

var frozenNow = time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

func TestSeriesPlatformID(t *testing.T) {
	tests := []struct {
		name     string
		event    provider.Event
		expected string
	}{
		{
			name:     "Instance suffix stripped",
			event:    provider.Event{SeriesID: "series123_20260204T081500Z"},
			expected: "series123",
		},
		{
			name:     "Plain series id",
			event:    provider.Event{SeriesID: "series123"},
			expected: "series123",
		},
		{
			name:     "ICalUID fallback for moved occurrence",
			event:    provider.Event{ICalUID: "abc@google.com", OriginalStart: "2026-02-04T08:15:00Z"},
			expected: "abc@google.com",
		},
		{
			name:     "ICalUID alone is not a series marker",
			event:    provider.Event{ICalUID: "abc@google.com"},
			expected: "",
		},
		{
			name:     "Standalone event",
			event:    provider.Event{ID: "solo"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, seriesPlatformID(&tt.event))
		})
	}
}

func TestParseEventTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name     string
		value    string
		loc      *time.Location
		expected time.Time
	}{
		{
			name:     "RFC3339 with offset",
			value:    "2026-02-04T08:15:00+01:00",
			loc:      time.UTC,
			expected: time.Date(2026, 2, 4, 7, 15, 0, 0, time.UTC),
		},
		{
			name:     "RFC3339 UTC",
			value:    "2026-02-04T08:15:00Z",
			loc:      time.UTC,
			expected: time.Date(2026, 2, 4, 8, 15, 0, 0, time.UTC),
		},
		{
			name:     "Naive datetime assumed UTC",
			value:    "2026-02-04T08:15:00",
			loc:      berlin,
			expected: time.Date(2026, 2, 4, 8, 15, 0, 0, time.UTC),
		},
		{
			name:     "All-day date in user timezone",
			value:    "2026-02-04",
			loc:      berlin,
			expected: time.Date(2026, 2, 3, 23, 0, 0, 0, time.UTC),
		},
		{
			name:     "Year-zero garbage falls back to pass time",
			value:    "0000-12-31T00:00:00Z",
			loc:      time.UTC,
			expected: frozenNow,
		},
		{
			name:     "Empty value falls back to pass time",
			value:    "",
			loc:      time.UTC,
			expected: frozenNow,
		},
		{
			name:     "Unparseable value falls back to pass time",
			value:    "tomorrow-ish",
			loc:      time.UTC,
			expected: frozenNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseEventTime(tt.value, "evt-1", frozenNow, tt.loc)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestMapEvent(t *testing.T) {
	calendar := &models.Calendar{ID: 7, PlatformID: "primary"}

	t.Run("Standalone event", func(t *testing.T) {
		event := &provider.Event{
			ID:     "evt-1",
			Title:  "Dentist",
			Status: models.ENTRY_STATUS_CONFIRMED,
			Start:  "2026-02-04T08:15:00Z",
			End:    "2026-02-04T09:00:00Z",
		}

		entry, series, err := mapEvent(calendar, event, models.FREQ_ONCE, frozenNow, time.UTC)
		require.NoError(t, err)
		require.Nil(t, series)

		assert.Equal(t, uint(7), entry.CalendarID)
		assert.Equal(t, "evt-1", entry.PlatformID)
		assert.Equal(t, "Dentist", entry.Name)
		assert.Equal(t, models.FREQ_ONCE, entry.Frequency)
		assert.Equal(t, time.Date(2026, 2, 4, 8, 15, 0, 0, time.UTC), entry.StartTime)
	})

	t.Run("Recurring occurrence produces series", func(t *testing.T) {
		event := &provider.Event{
			ID:       "series123_20260204T081500Z",
			SeriesID: "series123_20260204T081500Z",
			Title:    "Standup",
			Start:    "2026-02-04T08:15:00Z",
			End:      "2026-02-04T08:30:00Z",
		}

		entry, series, err := mapEvent(calendar, event, models.FREQ_WEEK_DAYS, frozenNow, time.UTC)
		require.NoError(t, err)
		require.NotNil(t, series)

		assert.Equal(t, "series123", series.PlatformID)
		assert.Equal(t, "Standup", series.Name)
		assert.Equal(t, models.FREQ_WEEK_DAYS, series.Frequency)
		assert.Equal(t, models.FREQ_WEEK_DAYS, entry.Frequency)
	})

	t.Run("Missing title normalizes to placeholder", func(t *testing.T) {
		for _, title := range []string{"", "   "} {
			event := &provider.Event{
				ID:    "evt-2",
				Title: title,
				Start: "2026-02-04T08:15:00Z",
				End:   "2026-02-04T09:00:00Z",
			}
			entry, _, err := mapEvent(calendar, event, models.FREQ_ONCE, frozenNow, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, "(no title)", entry.Name)
		}
	})

	t.Run("Missing status defaults to confirmed", func(t *testing.T) {
		event := &provider.Event{ID: "evt-3", Title: "x"}
		entry, _, err := mapEvent(calendar, event, "", frozenNow, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, models.ENTRY_STATUS_CONFIRMED, entry.Status)
		assert.Equal(t, models.FREQ_ONCE, entry.Frequency)
	})

	t.Run("Missing id fails with mapping error", func(t *testing.T) {
		event := &provider.Event{Title: "nameless"}
		_, _, err := mapEvent(calendar, event, models.FREQ_ONCE, frozenNow, time.UTC)
		require.Error(t, err)

		var mapErr *MappingError
		assert.ErrorAs(t, err, &mapErr)
	})
}
