package calsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/dayflow-app/dayflow/app/models"
	"github.com/dayflow-app/dayflow/app/repository"
	"github.com/dayflow-app/dayflow/internal/pkg/credentials"
	"github.com/dayflow-app/dayflow/internal/pkg/provider"
	"github.com/dayflow-app/dayflow/internal/pkg/subscription"
	"github.com/dayflow-app/dayflow/internal/pkg/unitofwork"
)

// OpsCounter accumulates per-calendar sync operation counts. Counting is
// best effort; a counter failure never fails a pass.
type OpsCounter interface {
	AddSyncOps(calendarID uint, n int64) error
}

// CalendarLocker serializes work per calendar. Acquire returns false when
// another pass currently holds the calendar.
type CalendarLocker interface {
	Acquire(calendarID uint) (bool, error)
	Release(calendarID uint) error
}

// ErrSyncInProgress is returned when a command needs the per-calendar
// lock and another pass holds it.
var ErrSyncInProgress = errors.New("sync already in progress for calendar")

// ServiceDeps wires the engine's collaborators together.
type ServiceDeps struct {
	Repos         *repository.Repositories
	Credentials   *credentials.Store
	Providers     *provider.Registry
	Subscriptions *subscription.Manager
	// UnitOfWork builds a fresh unit of work per pass.
	UnitOfWork func() unitofwork.UnitOfWork
	Counter    OpsCounter
	Locks      CalendarLocker
	Config     Config
}

// Service exposes the synchronization commands. Every command loads its
// calendar fresh, resolves one credential up front, and reports errors to
// the caller; the scheduler decides about retries.
type Service struct {
	deps       ServiceDeps
	reconciler *Reconciler
	now        func() time.Time
}

func NewService(deps ServiceDeps) *Service {
	return &Service{
		deps:       deps,
		reconciler: NewReconciler(deps.Providers, deps.Repos.Entry, deps.Repos.Series, deps.Config),
		now:        time.Now,
	}
}

// SubscribeCalendar opens a webhook channel for the calendar.
func (s *Service) SubscribeCalendar(ctx context.Context, calendarID uint) error {
	calendar, cred, _, err := s.loadCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	return s.deps.Subscriptions.Subscribe(ctx, calendar, cred)
}

// UnsubscribeCalendar closes the calendar's webhook channel. A failed
// credential refresh does not block teardown; local state is cleared
// regardless.
func (s *Service) UnsubscribeCalendar(ctx context.Context, calendarID uint) error {
	calendar, err := s.deps.Repos.Calendar.GetByID(calendarID)
	if err != nil {
		return fmt.Errorf("load calendar %d: %w", calendarID, err)
	}
	cred := s.bestEffortCredential(ctx, calendar)
	return s.deps.Subscriptions.Unsubscribe(ctx, calendar, cred)
}

// SyncCalendar runs one reconciliation pass for the calendar.
func (s *Service) SyncCalendar(ctx context.Context, calendarID uint) (*Summary, error) {
	calendar, cred, loc, err := s.loadCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	return s.runPass(ctx, calendar, cred, loc)
}

// SyncAllCalendars runs a pass for each of the user's subscribed
// calendars. One calendar's failure is logged and does not stop the
// others.
func (s *Service) SyncAllCalendars(ctx context.Context, userID uint) ([]Summary, error) {
	calendars, err := s.deps.Repos.Calendar.GetByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("load calendars for user %d: %w", userID, err)
	}

	summaries := make([]Summary, 0, len(calendars))
	for i := range calendars {
		if !calendars[i].HasActiveSubscription() {
			continue
		}
		summary, err := s.SyncCalendar(ctx, calendars[i].ID)
		if err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				log.Infof("[CalSync] Calendar %d busy, skipping", calendars[i].ID)
			} else {
				log.Errorf("[CalSync] Sync of calendar %d failed: %v", calendars[i].ID, err)
			}
			continue
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// UpcomingEntries lists the user's next entries across all calendars,
// starting at the given instant.
func (s *Service) UpcomingEntries(userID uint, from time.Time, limit int) ([]models.CalendarEntry, error) {
	return s.deps.Repos.Entry.GetUpcoming(userID, from, limit)
}

// ResyncCalendar replaces the webhook channel and immediately runs a
// pass, recovering calendars whose channel silently died.
func (s *Service) ResyncCalendar(ctx context.Context, calendarID uint) (*Summary, error) {
	calendar, cred, loc, err := s.loadCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Subscriptions.Replace(ctx, calendar, cred); err != nil {
		return nil, err
	}
	return s.runPass(ctx, calendar, cred, loc)
}

// ResetCalendarSync replaces the webhook channel without touching local
// data. The renewal sweep uses this for channels close to expiry.
func (s *Service) ResetCalendarSync(ctx context.Context, calendarID uint) error {
	calendar, cred, _, err := s.loadCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	return s.deps.Subscriptions.Replace(ctx, calendar, cred)
}

// ResetCalendarData purges the local entries and series of every
// subscribed calendar and re-establishes each webhook channel from
// scratch. Calendars whose credential cannot be refreshed are skipped
// and excluded from the result. Returns the ids actually reset.
func (s *Service) ResetCalendarData(ctx context.Context) ([]uint, error) {
	calendars, err := s.deps.Repos.Calendar.GetSubscribed()
	if err != nil {
		return nil, fmt.Errorf("load subscribed calendars: %w", err)
	}

	reset := make([]uint, 0, len(calendars))
	for i := range calendars {
		calendar := &calendars[i]

		token, err := s.deps.Repos.Token.GetByID(calendar.AuthTokenID)
		if err != nil {
			log.Errorf("[CalSync] Reset skipping calendar %d, token load failed: %v", calendar.ID, err)
			continue
		}
		cred, err := s.deps.Credentials.EnsureValid(ctx, token)
		if err != nil {
			log.Errorf("[CalSync] Reset skipping calendar %d, credential refresh failed: %v", calendar.ID, err)
			continue
		}

		err = s.withCalendarLock(calendar.ID, func() error {
			if calendar.HasActiveSubscription() {
				if err := s.deps.Subscriptions.Unsubscribe(ctx, calendar, cred); err != nil {
					log.Warnf("[CalSync] Reset of calendar %d: unsubscribe failed, continuing: %v", calendar.ID, err)
				}
			}

			if err := s.purgeCalendarData(ctx, calendar.ID); err != nil {
				return fmt.Errorf("purge: %w", err)
			}

			if err := s.deps.Subscriptions.Subscribe(ctx, calendar, cred); err != nil {
				return fmt.Errorf("resubscribe: %w", err)
			}
			return nil
		})
		if err != nil {
			log.Errorf("[CalSync] Reset skipping calendar %d: %v", calendar.ID, err)
			continue
		}

		reset = append(reset, calendar.ID)
	}
	return reset, nil
}

// purgeCalendarData deletes all local entries and series of a calendar in
// one transaction.
func (s *Service) purgeCalendarData(ctx context.Context, calendarID uint) error {
	uow := s.deps.UnitOfWork()

	entries, err := s.deps.Repos.Entry.GetByCalendarID(calendarID)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	for i := range entries {
		uow.StageDelete(&entries[i])
	}

	series, err := s.deps.Repos.Series.GetByCalendarID(calendarID)
	if err != nil {
		return fmt.Errorf("load series: %w", err)
	}
	for i := range series {
		uow.StageDelete(&series[i])
	}

	return uow.Commit(ctx)
}

// withCalendarLock runs fn while holding the calendar's single-flight
// lock.
func (s *Service) withCalendarLock(calendarID uint, fn func() error) error {
	if s.deps.Locks == nil {
		return fn()
	}
	acquired, err := s.deps.Locks.Acquire(calendarID)
	if err != nil {
		return fmt.Errorf("acquire sync lock for calendar %d: %w", calendarID, err)
	}
	if !acquired {
		return ErrSyncInProgress
	}
	defer func() {
		if err := s.deps.Locks.Release(calendarID); err != nil {
			log.Warnf("[CalSync] Releasing sync lock for calendar %d failed: %v", calendarID, err)
		}
	}()
	return fn()
}

// runPass executes one reconciliation pass under the calendar's lock and
// records the outcome on the calendar.
func (s *Service) runPass(ctx context.Context, calendar *models.Calendar, cred *provider.Credential, loc *time.Location) (*Summary, error) {
	var summary *Summary
	err := s.withCalendarLock(calendar.ID, func() error {
		var runErr error
		summary, runErr = s.reconciler.Run(ctx, calendar, cred, loc, s.deps.UnitOfWork())
		return runErr
	})
	if err != nil {
		return nil, err
	}

	syncedAt := s.now().UTC()
	calendar.LastSyncedAt = &syncedAt
	if err := s.deps.Repos.Calendar.Update(calendar); err != nil {
		log.Warnf("[CalSync] Recording sync time for calendar %d failed: %v", calendar.ID, err)
	}

	if s.deps.Counter != nil {
		ops := int64(summary.Created + summary.Updated + summary.Deleted)
		if ops > 0 {
			if err := s.deps.Counter.AddSyncOps(calendar.ID, ops); err != nil {
				log.Warnf("[CalSync] Counting sync ops for calendar %d failed: %v", calendar.ID, err)
			}
		}
	}

	return summary, nil
}

// loadCalendar resolves the calendar, a valid credential, and the owning
// user's timezone.
func (s *Service) loadCalendar(ctx context.Context, calendarID uint) (*models.Calendar, *provider.Credential, *time.Location, error) {
	calendar, err := s.deps.Repos.Calendar.GetByID(calendarID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load calendar %d: %w", calendarID, err)
	}

	token, err := s.deps.Repos.Token.GetByID(calendar.AuthTokenID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load auth token for calendar %d: %w", calendarID, err)
	}

	cred, err := s.deps.Credentials.EnsureValid(ctx, token)
	if err != nil {
		return nil, nil, nil, err
	}

	loc := time.UTC
	user, err := s.deps.Repos.User.GetByID(calendar.UserID)
	if err != nil {
		log.Warnf("[CalSync] Loading user %d for calendar %d failed, using %s: %v",
			calendar.UserID, calendarID, s.deps.Config.DefaultTimezone, err)
		if l, lerr := time.LoadLocation(s.deps.Config.DefaultTimezone); lerr == nil {
			loc = l
		}
	} else {
		loc = user.Location()
	}

	return calendar, cred, loc, nil
}

// bestEffortCredential refreshes the calendar's credential if possible
// and returns nil when it cannot, letting teardown paths proceed.
func (s *Service) bestEffortCredential(ctx context.Context, calendar *models.Calendar) *provider.Credential {
	token, err := s.deps.Repos.Token.GetByID(calendar.AuthTokenID)
	if err != nil {
		log.Warnf("[CalSync] Token load for calendar %d failed: %v", calendar.ID, err)
		return nil
	}
	cred, err := s.deps.Credentials.EnsureValid(ctx, token)
	if err != nil {
		log.Warnf("[CalSync] Credential refresh for calendar %d failed: %v", calendar.ID, err)
		return nil
	}
	return cred
}
