package calsync

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayflow-app/dayflow/app/models"
	"github.com/dayflow-app/dayflow/internal/pkg/provider"
	"github.com/dayflow-app/dayflow/internal/pkg/unitofwork"
)

// fakeStore is the in-memory stand-in for the entries and series tables.
type fakeStore struct {
	nextID  uint
	entries map[uint]models.CalendarEntry
	series  map[uint]models.CalendarEntrySeries
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: make(map[uint]models.CalendarEntry),
		series:  make(map[uint]models.CalendarEntrySeries),
	}
}

func (s *fakeStore) entryByPlatformID(platformID string) (models.CalendarEntry, bool) {
	for _, e := range s.entries {
		if e.PlatformID == platformID {
			return e, true
		}
	}
	return models.CalendarEntry{}, false
}

func (s *fakeStore) seriesByPlatformID(platformID string) (models.CalendarEntrySeries, bool) {
	for _, sr := range s.series {
		if sr.PlatformID == platformID {
			return sr, true
		}
	}
	return models.CalendarEntrySeries{}, false
}

type fakeEntryRepo struct{ store *fakeStore }

func (r *fakeEntryRepo) GetByID(id uint) (*models.CalendarEntry, error) { return nil, nil }

func (r *fakeEntryRepo) GetByCalendarID(calendarID uint) ([]models.CalendarEntry, error) {
	var out []models.CalendarEntry
	for _, e := range r.store.entries {
		if e.CalendarID == calendarID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) GetByPlatformID(uint, string) (*models.CalendarEntry, error) {
	return nil, nil
}

func (r *fakeEntryRepo) GetUpcoming(_ uint, from time.Time, limit int) ([]models.CalendarEntry, error) {
	var out []models.CalendarEntry
	for _, e := range r.store.entries {
		if !e.StartTime.Before(from) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeEntryRepo) CountByCalendarID(uint) (int64, error) {
	return int64(len(r.store.entries)), nil
}

type fakeSeriesRepo struct{ store *fakeStore }

func (r *fakeSeriesRepo) GetByID(id uint) (*models.CalendarEntrySeries, error) { return nil, nil }

func (r *fakeSeriesRepo) GetByCalendarID(calendarID uint) ([]models.CalendarEntrySeries, error) {
	var out []models.CalendarEntrySeries
	for _, s := range r.store.series {
		if s.CalendarID == calendarID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSeriesRepo) GetByPlatformID(uint, string) (*models.CalendarEntrySeries, error) {
	return nil, nil
}

func (r *fakeSeriesRepo) CountByCalendarID(uint) (int64, error) {
	return int64(len(r.store.series)), nil
}

// fakeUnitOfWork applies staged mutations to the fake store the way the
// real implementation applies them to the database: series creates get
// their IDs before the entries referencing them are written.
type fakeUnitOfWork struct {
	store     *fakeStore
	creates   []any
	updates   []any
	deletes   []any
	committed bool
}

func (u *fakeUnitOfWork) StageCreate(entity any) { u.creates = append(u.creates, entity) }
func (u *fakeUnitOfWork) StageUpdate(entity any) { u.updates = append(u.updates, entity) }
func (u *fakeUnitOfWork) StageDelete(entity any) { u.deletes = append(u.deletes, entity) }

func (u *fakeUnitOfWork) Pending() int {
	return len(u.creates) + len(u.updates) + len(u.deletes)
}

func (u *fakeUnitOfWork) Commit(context.Context) error {
	if u.committed {
		return unitofwork.ErrAlreadyCommitted
	}
	for _, entity := range u.creates {
		switch v := entity.(type) {
		case *models.CalendarEntrySeries:
			u.store.nextID++
			v.ID = u.store.nextID
			u.store.series[v.ID] = *v
		case *models.CalendarEntry:
			if v.Series != nil && v.Series.ID != 0 {
				id := v.Series.ID
				v.SeriesID = &id
			}
			u.store.nextID++
			v.ID = u.store.nextID
			cp := *v
			cp.Series = nil
			u.store.entries[v.ID] = cp
		}
	}
	for _, entity := range u.updates {
		switch v := entity.(type) {
		case *models.CalendarEntrySeries:
			u.store.series[v.ID] = *v
		case *models.CalendarEntry:
			if v.Series != nil && v.Series.ID != 0 {
				id := v.Series.ID
				v.SeriesID = &id
			}
			cp := *v
			cp.Series = nil
			u.store.entries[v.ID] = cp
		}
	}
	for _, entity := range u.deletes {
		switch v := entity.(type) {
		case *models.CalendarEntrySeries:
			delete(u.store.series, v.ID)
		case *models.CalendarEntry:
			delete(u.store.entries, v.ID)
		}
	}
	u.committed = true
	return nil
}

func futureStamp(d time.Duration) string {
	return frozenNow.Add(d).Format(time.RFC3339)
}

func testEvents() []provider.Event {
	return []provider.Event{
		{
			ID:       "series123_20260204T081500Z",
			SeriesID: "series123",
			Title:    "Standup",
			Start:    futureStamp(47 * time.Hour),
			End:      futureStamp(47*time.Hour + 15*time.Minute),
		},
		{
			ID:       "series123_20260205T081500Z",
			SeriesID: "series123",
			Title:    "Standup",
			Start:    futureStamp(71 * time.Hour),
			End:      futureStamp(71*time.Hour + 15*time.Minute),
		},
		{
			ID:    "evt-solo",
			Title: "Dentist",
			Start: futureStamp(24 * time.Hour),
			End:   futureStamp(25 * time.Hour),
		},
	}
}

func testGateway() *stubGateway {
	return &stubGateway{
		events: testEvents(),
		series: map[string]*provider.Series{
			"series123": {ID: "series123", Recurrence: []string{"RRULE:FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR"}},
		},
	}
}

func newTestReconciler(gw *stubGateway, store *fakeStore) *Reconciler {
	registry := provider.NewRegistry()
	registry.Register("google", gw)
	rec := NewReconciler(registry, &fakeEntryRepo{store: store}, &fakeSeriesRepo{store: store}, Config{
		LookbackWindow:  24 * time.Hour,
		LookaheadWindow: 30 * 24 * time.Hour,
	})
	rec.now = func() time.Time { return frozenNow }
	return rec
}

func runPass(t *testing.T, rec *Reconciler, store *fakeStore) *Summary {
	t.Helper()
	calendar := &models.Calendar{ID: 1, Platform: "google", PlatformID: "primary"}
	summary, err := rec.Run(context.Background(), calendar, &provider.Credential{}, time.UTC, &fakeUnitOfWork{store: store})
	require.NoError(t, err)
	return summary
}

func TestReconciler_InitialPassCreatesState(t *testing.T) {
	store := newFakeStore()
	rec := newTestReconciler(testGateway(), store)

	summary := runPass(t, rec, store)

	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 0, summary.Deleted)
	assert.Len(t, store.entries, 3)
	assert.Len(t, store.series, 1)

	series, ok := store.seriesByPlatformID("series123")
	require.True(t, ok)
	assert.Equal(t, models.FREQ_WEEK_DAYS, series.Frequency)
	assert.Equal(t, "Standup", series.Name)

	occurrence, ok := store.entryByPlatformID("series123_20260204T081500Z")
	require.True(t, ok)
	require.NotNil(t, occurrence.SeriesID)
	assert.Equal(t, series.ID, *occurrence.SeriesID)
	assert.Equal(t, models.FREQ_WEEK_DAYS, occurrence.Frequency)

	solo, ok := store.entryByPlatformID("evt-solo")
	require.True(t, ok)
	assert.Nil(t, solo.SeriesID)
	assert.Equal(t, models.FREQ_ONCE, solo.Frequency)
}

func TestReconciler_SecondPassIsIdempotent(t *testing.T) {
	store := newFakeStore()
	rec := newTestReconciler(testGateway(), store)

	runPass(t, rec, store)
	before, _ := store.entryByPlatformID("evt-solo")

	summary := runPass(t, rec, store)

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 0, summary.Deleted)

	after, _ := store.entryByPlatformID("evt-solo")
	assert.Equal(t, before.ID, after.ID)
}

func TestReconciler_UpdateKeepsLocalID(t *testing.T) {
	store := newFakeStore()
	gw := testGateway()
	rec := newTestReconciler(gw, store)

	runPass(t, rec, store)
	before, _ := store.entryByPlatformID("evt-solo")

	gw.events[2].Title = "Dentist (moved)"
	gw.events[2].Start = futureStamp(26 * time.Hour)
	gw.events[2].End = futureStamp(27 * time.Hour)

	summary := runPass(t, rec, store)

	assert.Equal(t, 1, summary.Updated)
	after, _ := store.entryByPlatformID("evt-solo")
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "Dentist (moved)", after.Name)
}

func TestReconciler_AbsentEventsAreDeleted(t *testing.T) {
	store := newFakeStore()
	gw := testGateway()
	rec := newTestReconciler(gw, store)

	runPass(t, rec, store)
	require.Len(t, store.entries, 3)

	// The whole series disappears upstream
	gw.events = gw.events[2:3]

	summary := runPass(t, rec, store)

	assert.Equal(t, 2, summary.Deleted)
	assert.Len(t, store.entries, 1)
	assert.Len(t, store.series, 0, "series without occurrences is tombstoned")
}

func TestReconciler_CancelledEventIsDeletedNotCreated(t *testing.T) {
	store := newFakeStore()
	gw := testGateway()
	rec := newTestReconciler(gw, store)

	runPass(t, rec, store)

	gw.events[2].Status = models.ENTRY_STATUS_CANCELLED
	summary := runPass(t, rec, store)

	assert.Equal(t, 1, summary.Deleted)
	_, ok := store.entryByPlatformID("evt-solo")
	assert.False(t, ok)

	// A cancelled event never seen locally stays absent
	summary = runPass(t, rec, store)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 0, summary.Deleted)
}

func TestReconciler_PastEventsAreSkipped(t *testing.T) {
	store := newFakeStore()
	gw := testGateway()
	gw.events = append(gw.events, provider.Event{
		ID:    "evt-finished",
		Title: "Yesterday's meeting",
		Start: frozenNow.Add(-3 * time.Hour).Format(time.RFC3339),
		End:   frozenNow.Add(-2 * time.Hour).Format(time.RFC3339),
	})
	rec := newTestReconciler(gw, store)

	runPass(t, rec, store)

	_, ok := store.entryByPlatformID("evt-finished")
	assert.False(t, ok)
	assert.Len(t, store.entries, 3)
}

func TestReconciler_MalformedEventDoesNotAbortPass(t *testing.T) {
	store := newFakeStore()
	gw := testGateway()
	gw.events = append(gw.events, provider.Event{
		Title: "no id at all",
		Start: futureStamp(2 * time.Hour),
		End:   futureStamp(3 * time.Hour),
	})
	rec := newTestReconciler(gw, store)

	summary := runPass(t, rec, store)

	assert.Equal(t, 3, summary.Created)
	assert.Len(t, store.entries, 3)
}

func TestReconciler_ListFailureLeavesStateUntouched(t *testing.T) {
	store := newFakeStore()
	gw := testGateway()
	rec := newTestReconciler(gw, store)

	runPass(t, rec, store)
	require.Len(t, store.entries, 3)

	gw.failList = true
	calendar := &models.Calendar{ID: 1, Platform: "google", PlatformID: "primary"}
	_, err := rec.Run(context.Background(), calendar, &provider.Credential{}, time.UTC, &fakeUnitOfWork{store: store})
	require.Error(t, err)

	assert.Len(t, store.entries, 3)
	assert.Len(t, store.series, 1)
}

func TestReconciler_UnsupportedPlatform(t *testing.T) {
	store := newFakeStore()
	rec := newTestReconciler(testGateway(), store)

	calendar := &models.Calendar{ID: 1, Platform: "fancycal", PlatformID: "primary"}
	_, err := rec.Run(context.Background(), calendar, &provider.Credential{}, time.UTC, &fakeUnitOfWork{store: store})
	require.Error(t, err)

	var unsupported *provider.UnsupportedPlatformError
	assert.ErrorAs(t, err, &unsupported)
}
