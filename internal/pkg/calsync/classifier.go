package calsync

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/teambition/rrule-go"

	"github.com/dayflow-app/dayflow/app/models"
	"github.com/dayflow-app/dayflow/internal/pkg/provider"
)

// ClassifyRecurrence maps a provider's RFC-5545 recurrence rules onto the
// internal frequency model. It is total: no rules, an absent FREQ term,
// or an unparseable rule all classify as ONCE.
func ClassifyRecurrence(rules []string) string {
	for _, rule := range rules {
		raw := strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
		if !strings.Contains(raw, "FREQ=") {
			continue
		}
		option, err := rrule.StrToROption(raw)
		if err != nil {
			log.Debugf("[CalSync] Unparseable recurrence rule %q: %v", rule, err)
			return models.FREQ_ONCE
		}
		switch option.Freq {
		case rrule.DAILY:
			return models.FREQ_DAILY
		case rrule.MONTHLY:
			return models.FREQ_MONTHLY
		case rrule.YEARLY:
			return models.FREQ_YEARLY
		case rrule.WEEKLY:
			return classifyWeekly(option.Byweekday)
		default:
			return models.FREQ_ONCE
		}
	}
	return models.FREQ_ONCE
}

func classifyWeekly(byday []rrule.Weekday) string {
	days := make(map[int]struct{}, len(byday))
	for _, d := range byday {
		days[d.Day()] = struct{}{}
	}
	switch {
	case len(days) <= 1:
		return models.FREQ_WEEKLY
	case len(days) == 5 && containsAll(days, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR):
		return models.FREQ_WEEK_DAYS
	case len(days) == 2 && containsAll(days, rrule.SA, rrule.SU):
		return models.FREQ_WEEKEND_DAYS
	case len(days) == 2:
		return models.FREQ_BI_WEEKLY
	default:
		return models.FREQ_CUSTOM_WEEKLY
	}
}

func containsAll(days map[int]struct{}, want ...rrule.Weekday) bool {
	for _, d := range want {
		if _, ok := days[d.Day()]; !ok {
			return false
		}
	}
	return true
}

// frequencyCache memoizes series-frequency lookups for the lifetime of a
// single reconciliation pass. It is never shared across calendars or
// passes.
type frequencyCache struct {
	bySeries map[string]string
	lookups  int
}

func newFrequencyCache() *frequencyCache {
	return &frequencyCache{bySeries: make(map[string]string)}
}

func (c *frequencyCache) get(seriesID string) (string, bool) {
	freq, ok := c.bySeries[seriesID]
	return freq, ok
}

func (c *frequencyCache) put(seriesID, freq string) {
	c.bySeries[seriesID] = freq
}

// resolveSeriesFrequency classifies an event's recurrence, following the
// parent series when the event is an occurrence of one. A failed parent
// lookup degrades to ONCE and is cached so a vanished parent is probed
// once per pass, not once per occurrence.
func resolveSeriesFrequency(ctx context.Context, gateway provider.Gateway, cred *provider.Credential, calendarPlatformID string, event *provider.Event, cache *frequencyCache) string {
	seriesID := seriesPlatformID(event)
	if seriesID == "" {
		return ClassifyRecurrence(event.Recurrence)
	}

	if freq, ok := cache.get(seriesID); ok {
		return freq
	}

	lookupID := event.SeriesID
	if lookupID == "" {
		lookupID = seriesID
	}
	cache.lookups++
	freq := models.FREQ_ONCE
	series, err := gateway.GetSeries(ctx, cred, calendarPlatformID, lookupID)
	if err != nil {
		log.Warnf("[CalSync] Parent lookup for series %s failed, classifying as ONCE: %v", seriesID, err)
	} else {
		freq = ClassifyRecurrence(series.Recurrence)
	}
	cache.put(seriesID, freq)
	return freq
}
