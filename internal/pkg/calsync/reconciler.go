package calsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/dayflow-app/dayflow/app/models"
	"github.com/dayflow-app/dayflow/app/repository"
	"github.com/dayflow-app/dayflow/internal/pkg/provider"
	"github.com/dayflow-app/dayflow/internal/pkg/unitofwork"
)

// Summary counts the mutations one reconciliation pass committed.
type Summary struct {
	CalendarID uint `json:"calendar_id"`
	Created    int  `json:"created"`
	Updated    int  `json:"updated"`
	Deleted    int  `json:"deleted"`
}

// Reconciler drives one fetch-map-diff-commit cycle for a single
// calendar. It never writes to the store directly; every mutation goes
// through the unit of work handed to Run.
type Reconciler struct {
	registry *provider.Registry
	entries  repository.CalendarEntryRepository
	series   repository.CalendarEntrySeriesRepository
	cfg      Config
	now      func() time.Time
}

func NewReconciler(registry *provider.Registry, entries repository.CalendarEntryRepository, series repository.CalendarEntrySeriesRepository, cfg Config) *Reconciler {
	return &Reconciler{
		registry: registry,
		entries:  entries,
		series:   series,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run executes one reconciliation pass. All mutations are computed from
// one fetch snapshot and committed as one batch; on any error nothing is
// persisted and the scheduler retries the whole pass later.
func (r *Reconciler) Run(ctx context.Context, calendar *models.Calendar, cred *provider.Credential, loc *time.Location, uow unitofwork.UnitOfWork) (*Summary, error) {
	gateway, err := r.registry.Get(calendar.Platform)
	if err != nil {
		return nil, err
	}

	if r.cfg.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.PassTimeout)
		defer cancel()
	}

	refTime := r.now().UTC()
	events, err := gateway.ListEvents(ctx, cred, calendar.PlatformID, provider.ListOptions{
		TimeMin:      refTime.Add(-r.cfg.LookbackWindow),
		TimeMax:      refTime.Add(r.cfg.LookaheadWindow),
		SingleEvents: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list events for calendar %d: %w", calendar.ID, err)
	}

	desiredEntries, desiredSeries, entryOrder, seriesOrder := r.mapEvents(ctx, gateway, cred, calendar, events, refTime, loc)

	existingEntries, err := r.entries.GetByCalendarID(calendar.ID)
	if err != nil {
		return nil, fmt.Errorf("load local entries for calendar %d: %w", calendar.ID, err)
	}
	existingSeries, err := r.series.GetByCalendarID(calendar.ID)
	if err != nil {
		return nil, fmt.Errorf("load local series for calendar %d: %w", calendar.ID, err)
	}

	summary := &Summary{CalendarID: calendar.ID}
	r.diffSeries(uow, desiredSeries, seriesOrder, existingSeries)
	r.diffEntries(uow, summary, desiredEntries, entryOrder, desiredSeries, existingEntries)

	if err := uow.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit sync pass for calendar %d: %w", calendar.ID, err)
	}

	log.Infof("[CalSync] Calendar %d reconciled: %d created, %d updated, %d deleted",
		calendar.ID, summary.Created, summary.Updated, summary.Deleted)
	return summary, nil
}

// mapEvents turns the fetched snapshot into the desired local state. A
// per-event mapping failure is logged and skipped: one bad payload never
// aborts the pass.
func (r *Reconciler) mapEvents(ctx context.Context, gateway provider.Gateway, cred *provider.Credential, calendar *models.Calendar, events []provider.Event, refTime time.Time, loc *time.Location) (map[string]*models.CalendarEntry, map[string]*models.CalendarEntrySeries, []string, []string) {
	cache := newFrequencyCache()
	desiredEntries := make(map[string]*models.CalendarEntry, len(events))
	desiredSeries := make(map[string]*models.CalendarEntrySeries)
	var entryOrder, seriesOrder []string

	for i := range events {
		event := &events[i]

		// Occurrences that already finished before this pass started are
		// not worth materializing locally.
		end := parseEventTime(event.End, event.ID, refTime, loc)
		if end.Before(refTime) {
			continue
		}

		frequency := resolveSeriesFrequency(ctx, gateway, cred, calendar.PlatformID, event, cache)
		entry, series, err := mapEvent(calendar, event, frequency, refTime, loc)
		if err != nil {
			var mapErr *MappingError
			if errors.As(err, &mapErr) {
				log.Warnf("[CalSync] Skipping event on calendar %d: %v", calendar.ID, err)
				continue
			}
			log.Errorf("[CalSync] Unexpected mapping failure on calendar %d, skipping event: %v", calendar.ID, err)
			continue
		}

		if _, dup := desiredEntries[entry.PlatformID]; dup {
			continue
		}
		if series != nil {
			canonical, seen := desiredSeries[series.PlatformID]
			if !seen {
				desiredSeries[series.PlatformID] = series
				seriesOrder = append(seriesOrder, series.PlatformID)
				canonical = series
			}
			entry.Series = canonical
		}
		desiredEntries[entry.PlatformID] = entry
		entryOrder = append(entryOrder, entry.PlatformID)
	}

	return desiredEntries, desiredSeries, entryOrder, seriesOrder
}

// diffSeries stages series creates/updates and tombstone deletions, and
// rewires desired series to existing local rows so entry foreign keys
// stay stable.
func (r *Reconciler) diffSeries(uow unitofwork.UnitOfWork, desired map[string]*models.CalendarEntrySeries, order []string, existing []models.CalendarEntrySeries) {
	existingByPlatform := make(map[string]*models.CalendarEntrySeries, len(existing))
	for i := range existing {
		existingByPlatform[existing[i].PlatformID] = &existing[i]
	}

	for _, platformID := range order {
		want := desired[platformID]
		current, ok := existingByPlatform[platformID]
		if !ok {
			uow.StageCreate(want)
			continue
		}
		if current.Name != want.Name || current.Frequency != want.Frequency {
			current.Name = want.Name
			current.Frequency = want.Frequency
			uow.StageUpdate(current)
		}
		// Point the desired map at the local row so entries reference the
		// preserved id.
		desired[platformID] = current
	}

	for i := range existing {
		if _, ok := desired[existing[i].PlatformID]; !ok {
			uow.StageDelete(&existing[i])
		}
	}
}

// diffEntries stages entry mutations against local state keyed by the
// (calendar_id, platform_id) idempotency key. Local ids are preserved on
// updates; entries absent upstream or cancelled there are deleted.
func (r *Reconciler) diffEntries(uow unitofwork.UnitOfWork, summary *Summary, desired map[string]*models.CalendarEntry, order []string, desiredSeries map[string]*models.CalendarEntrySeries, existing []models.CalendarEntry) {
	existingByPlatform := make(map[string]*models.CalendarEntry, len(existing))
	for i := range existing {
		existingByPlatform[existing[i].PlatformID] = &existing[i]
	}

	for _, platformID := range order {
		want := desired[platformID]
		current, exists := existingByPlatform[platformID]

		if want.Status == models.ENTRY_STATUS_CANCELLED {
			// Cancelled upstream means gone locally, even while the
			// provider still returns the tombstoned occurrence.
			if exists {
				uow.StageDelete(current)
				summary.Deleted++
			}
			continue
		}

		if want.Series != nil {
			// diffSeries may have swapped the canonical series for the
			// stored row; follow it and take its id when already known.
			want.Series = desiredSeries[want.Series.PlatformID]
			if want.Series.ID != 0 {
				id := want.Series.ID
				want.SeriesID = &id
			}
		}

		if !exists {
			uow.StageCreate(want)
			summary.Created++
			continue
		}

		if current.SameObservableState(want) && !(want.Series != nil && want.Series.ID == 0) {
			continue
		}
		current.Name = want.Name
		current.Status = want.Status
		current.StartTime = want.StartTime
		current.EndTime = want.EndTime
		current.Frequency = want.Frequency
		current.SeriesID = want.SeriesID
		current.Series = want.Series
		uow.StageUpdate(current)
		summary.Updated++
	}

	for i := range existing {
		entry := &existing[i]
		if _, ok := desired[entry.PlatformID]; ok {
			continue
		}
		// Absent from the authoritative snapshot: tombstone deletion.
		uow.StageDelete(entry)
		summary.Deleted++
	}
}
