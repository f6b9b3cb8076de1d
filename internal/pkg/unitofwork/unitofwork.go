package unitofwork

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/dayflow-app/dayflow/app/models"
)

// ErrAlreadyCommitted is returned when a unit of work is committed twice.
// A reconciliation pass owns exactly one commit.
var ErrAlreadyCommitted = errors.New("unit of work already committed")

// UnitOfWork collects entity mutations during a reconciliation pass and
// commits them as one atomic batch. It is the only write path for
// calendar entries and series.
type UnitOfWork interface {
	StageCreate(entity any)
	StageUpdate(entity any)
	StageDelete(entity any)
	Pending() int
	Commit(ctx context.Context) error
}

// GormUnitOfWork commits staged mutations inside a single database
// transaction and dispatches one domain event per mutation afterwards.
type GormUnitOfWork struct {
	db        *gorm.DB
	handlers  []Handler
	creates   []any
	updates   []any
	deletes   []any
	committed bool
}

// New creates a unit of work bound to the given database handle. Handlers
// receive the batch's domain events after a successful commit.
func New(db *gorm.DB, handlers ...Handler) *GormUnitOfWork {
	return &GormUnitOfWork{db: db, handlers: handlers}
}

func (u *GormUnitOfWork) StageCreate(entity any) {
	u.creates = append(u.creates, entity)
}

func (u *GormUnitOfWork) StageUpdate(entity any) {
	u.updates = append(u.updates, entity)
}

func (u *GormUnitOfWork) StageDelete(entity any) {
	u.deletes = append(u.deletes, entity)
}

// Pending returns the number of staged, uncommitted mutations.
func (u *GormUnitOfWork) Pending() int {
	return len(u.creates) + len(u.updates) + len(u.deletes)
}

// Commit applies all staged mutations in one transaction. Either every
// mutation persists or none does; events fire only in the first case.
func (u *GormUnitOfWork) Commit(ctx context.Context) error {
	if u.committed {
		return ErrAlreadyCommitted
	}

	events := make([]Event, 0, u.Pending())

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entity := range u.creates {
			resolveSeriesRef(entity)
			if err := tx.Create(entity).Error; err != nil {
				return err
			}
			event, err := creationEvent(entity)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		for _, entity := range u.updates {
			resolveSeriesRef(entity)
			if err := tx.Save(entity).Error; err != nil {
				return err
			}
			event, err := updateEvent(entity)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		for _, entity := range u.deletes {
			event, err := deletionEvent(entity)
			if err != nil {
				return err
			}
			if err := tx.Delete(entity).Error; err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.committed = true
	for _, event := range events {
		u.dispatch(event)
	}
	return nil
}

func (u *GormUnitOfWork) dispatch(event Event) {
	for _, handler := range u.handlers {
		handler.Handle(event)
	}
}

// resolveSeriesRef fills an entry's foreign key from its in-memory series
// reference. A series created earlier in the same transaction has its ID
// assigned by then, so entries staged after it link correctly.
func resolveSeriesRef(entity any) {
	entry, ok := entity.(*models.CalendarEntry)
	if !ok || entry.Series == nil || entry.Series.ID == 0 {
		return
	}
	id := entry.Series.ID
	entry.SeriesID = &id
}

func creationEvent(entity any) (Event, error) {
	switch e := entity.(type) {
	case *models.CalendarEntry:
		return EntryCreatedEvent{Entry: e}, nil
	case *models.CalendarEntrySeries:
		return SeriesCreatedEvent{Series: e}, nil
	default:
		return nil, fmt.Errorf("unit of work: unsupported entity type %T", entity)
	}
}

func updateEvent(entity any) (Event, error) {
	switch e := entity.(type) {
	case *models.CalendarEntry:
		return EntryUpdatedEvent{Entry: e}, nil
	case *models.CalendarEntrySeries:
		return SeriesUpdatedEvent{Series: e}, nil
	default:
		return nil, fmt.Errorf("unit of work: unsupported entity type %T", entity)
	}
}

func deletionEvent(entity any) (Event, error) {
	switch e := entity.(type) {
	case *models.CalendarEntry:
		return EntryDeletedEvent{Snapshot: *e}, nil
	case *models.CalendarEntrySeries:
		return SeriesDeletedEvent{Snapshot: *e}, nil
	default:
		return nil, fmt.Errorf("unit of work: unsupported entity type %T", entity)
	}
}

// LogHandler returns a handler that records every domain event, useful as
// the default downstream consumer in environments without the
// notification pipeline attached.
func LogHandler() Handler {
	return HandlerFunc(func(event Event) {
		log.Debugf("[UnitOfWork] Event %s", event.EventName())
	})
}
