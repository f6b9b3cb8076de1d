package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gcal "google.golang.org/api/calendar/v3"
)

func TestConvertEvent(t *testing.T) {
	t.Run("Timed event", func(t *testing.T) {
		item := &gcal.Event{
			Id:               "series123_20260204T081500Z",
			RecurringEventId: "series123",
			ICalUID:          "abc@google.com",
			Summary:          "Standup",
			Status:           "confirmed",
			Start:            &gcal.EventDateTime{DateTime: "2026-02-04T08:15:00Z"},
			End:              &gcal.EventDateTime{DateTime: "2026-02-04T08:30:00Z"},
			OriginalStartTime: &gcal.EventDateTime{
				DateTime: "2026-02-04T08:15:00Z",
			},
		}

		event := convertEvent(item)

		assert.Equal(t, "series123_20260204T081500Z", event.ID)
		assert.Equal(t, "series123", event.SeriesID)
		assert.Equal(t, "abc@google.com", event.ICalUID)
		assert.Equal(t, "Standup", event.Title)
		assert.Equal(t, "confirmed", event.Status)
		assert.Equal(t, "2026-02-04T08:15:00Z", event.Start)
		assert.Equal(t, "2026-02-04T08:30:00Z", event.End)
		assert.Equal(t, "2026-02-04T08:15:00Z", event.OriginalStart)
		assert.False(t, event.AllDay)
	})

	t.Run("All-day event", func(t *testing.T) {
		item := &gcal.Event{
			Id:    "evt-allday",
			Start: &gcal.EventDateTime{Date: "2026-02-04"},
			End:   &gcal.EventDateTime{Date: "2026-02-05"},
		}

		event := convertEvent(item)

		assert.True(t, event.AllDay)
		assert.Equal(t, "2026-02-04", event.Start)
		assert.Equal(t, "2026-02-05", event.End)
	})

	t.Run("Cancelled tombstone without times", func(t *testing.T) {
		item := &gcal.Event{
			Id:     "evt-gone",
			Status: "cancelled",
		}

		event := convertEvent(item)

		assert.Equal(t, "cancelled", event.Status)
		assert.Empty(t, event.Start)
		assert.Empty(t, event.End)
		assert.False(t, event.AllDay)
	})

	t.Run("Recurrence rules carried through", func(t *testing.T) {
		item := &gcal.Event{
			Id:         "series123",
			Recurrence: []string{"RRULE:FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR"},
		}

		event := convertEvent(item)

		assert.Equal(t, []string{"RRULE:FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR"}, event.Recurrence)
	})
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "b", firstNonEmpty("", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
