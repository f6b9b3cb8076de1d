package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalendarEntry_SameObservableState(t *testing.T) {
	start := time.Date(2026, 2, 4, 8, 15, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	seriesID := uint(3)
	otherSeriesID := uint(4)

	base := func() *CalendarEntry {
		return &CalendarEntry{
			Name:      "Standup",
			Status:    ENTRY_STATUS_CONFIRMED,
			StartTime: start,
			EndTime:   end,
			Frequency: FREQ_WEEK_DAYS,
			SeriesID:  &seriesID,
		}
	}

	t.Run("Identical", func(t *testing.T) {
		assert.True(t, base().SameObservableState(base()))
	})

	t.Run("Local-only fields ignored", func(t *testing.T) {
		other := base()
		other.ID = 99
		other.CalendarID = 7
		assert.True(t, base().SameObservableState(other))
	})

	t.Run("Equal instants in different locations", func(t *testing.T) {
		berlin, _ := time.LoadLocation("Europe/Berlin")
		other := base()
		other.StartTime = start.In(berlin)
		assert.True(t, base().SameObservableState(other))
	})

	mutations := map[string]func(*CalendarEntry){
		"Name":      func(e *CalendarEntry) { e.Name = "Renamed" },
		"Status":    func(e *CalendarEntry) { e.Status = ENTRY_STATUS_TENTATIVE },
		"StartTime": func(e *CalendarEntry) { e.StartTime = start.Add(time.Minute) },
		"EndTime":   func(e *CalendarEntry) { e.EndTime = end.Add(time.Minute) },
		"Frequency": func(e *CalendarEntry) { e.Frequency = FREQ_ONCE },
		"SeriesID":  func(e *CalendarEntry) { e.SeriesID = &otherSeriesID },
		"NilSeries": func(e *CalendarEntry) { e.SeriesID = nil },
	}

	for name, mutate := range mutations {
		t.Run(name+" differs", func(t *testing.T) {
			other := base()
			mutate(other)
			assert.False(t, base().SameObservableState(other))
		})
	}
}

func TestUser_Location(t *testing.T) {
	assert.Equal(t, time.UTC, (&User{}).Location())
	assert.Equal(t, time.UTC, (&User{Timezone: "Narnia/Lantern"}).Location())

	berlin := (&User{Timezone: "Europe/Berlin"}).Location()
	assert.Equal(t, "Europe/Berlin", berlin.String())
}
