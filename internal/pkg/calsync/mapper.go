package calsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/dayflow-app/dayflow/app/models"
	"github.com/dayflow-app/dayflow/internal/pkg/provider"
)

// placeholderTitle replaces empty provider titles so downstream UI and
// notification text never renders an empty string.
const placeholderTitle = "(no title)"

// Timestamps outside this range are provider garbage (year-zero dates
// show up in the wild) and fall back to the pass reference time.
const (
	minPlausibleYear = 1900
	maxPlausibleYear = 2200
)

// MappingError marks a provider payload too malformed to materialize
// locally. The reconciler skips the event and continues the pass.
type MappingError struct {
	EventID string
	Reason  string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map provider event %q: %s", e.EventID, e.Reason)
}

// seriesPlatformID derives the identity of the recurring series an event
// belongs to, or "" when the event is not an occurrence of one. The
// recurring-series identifier wins; an iCal UID together with an
// original-start marker is the fallback for providers that omit it.
func seriesPlatformID(event *provider.Event) string {
	if event.SeriesID != "" {
		id, _, _ := strings.Cut(event.SeriesID, "_")
		return id
	}
	if event.ICalUID != "" && event.OriginalStart != "" {
		return event.ICalUID
	}
	return ""
}

// mapEvent converts one provider event into the local entry plus, for
// recurring occurrences, its series value object. Malformed timestamps
// and missing titles normalize with a data-quality warning instead of
// failing; only a structurally unusable payload returns a *MappingError.
func mapEvent(calendar *models.Calendar, event *provider.Event, frequency string, refTime time.Time, loc *time.Location) (*models.CalendarEntry, *models.CalendarEntrySeries, error) {
	if event.ID == "" {
		return nil, nil, &MappingError{EventID: event.ICalUID, Reason: "missing event id"}
	}

	name := strings.TrimSpace(event.Title)
	if name == "" {
		name = placeholderTitle
	}

	status := event.Status
	if status == "" {
		status = models.ENTRY_STATUS_CONFIRMED
	}

	if frequency == "" {
		frequency = models.FREQ_ONCE
	}

	entry := &models.CalendarEntry{
		CalendarID: calendar.ID,
		PlatformID: event.ID,
		Name:       name,
		Status:     status,
		StartTime:  parseEventTime(event.Start, event.ID, refTime, loc),
		EndTime:    parseEventTime(event.End, event.ID, refTime, loc),
		Frequency:  frequency,
	}

	seriesID := seriesPlatformID(event)
	if seriesID == "" {
		return entry, nil, nil
	}

	series := &models.CalendarEntrySeries{
		CalendarID: calendar.ID,
		PlatformID: seriesID,
		Name:       name,
		Frequency:  frequency,
	}
	return entry, series, nil
}

// parseEventTime accepts the timestamp shapes providers actually send:
// RFC 3339 with or without an offset, naive date-times (assumed UTC),
// and all-day dates (interpreted in the user's timezone). Anything else,
// including implausible years, falls back to the pass reference time —
// a bad timestamp is a data-quality problem, never a pass abort.
func parseEventTime(value, eventID string, refTime time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if value != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			if plausible(t) {
				return t.UTC()
			}
		} else if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, time.UTC); err == nil {
			if plausible(t) {
				return t.UTC()
			}
		} else if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
			if plausible(t) {
				return t.UTC()
			}
		}
	}
	log.Warnf("[CalSync] Event %s carries malformed timestamp %q, substituting pass time", eventID, value)
	return refTime.UTC()
}

func plausible(t time.Time) bool {
	return t.Year() >= minPlausibleYear && t.Year() <= maxPlausibleYear
}
