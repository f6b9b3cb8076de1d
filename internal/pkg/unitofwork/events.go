package unitofwork

import "github.com/dayflow-app/dayflow/app/models"

// Event is a domain event describing one committed mutation. Events are
// dispatched to registered handlers only after the transaction holding the
// mutation has committed, so a handler never observes rolled-back state.
type Event interface {
	EventName() string
}

// Handler consumes domain events, e.g. the notification pipeline.
type Handler interface {
	Handle(event Event)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(event Event)

func (f HandlerFunc) Handle(event Event) {
	f(event)
}

type EntryCreatedEvent struct {
	Entry *models.CalendarEntry
}

func (EntryCreatedEvent) EventName() string { return "calendar_entry.created" }

type EntryUpdatedEvent struct {
	Entry *models.CalendarEntry
}

func (EntryUpdatedEvent) EventName() string { return "calendar_entry.updated" }

// EntryDeletedEvent carries a value snapshot because the row is gone by
// the time handlers run.
type EntryDeletedEvent struct {
	Snapshot models.CalendarEntry
}

func (EntryDeletedEvent) EventName() string { return "calendar_entry.deleted" }

type SeriesCreatedEvent struct {
	Series *models.CalendarEntrySeries
}

func (SeriesCreatedEvent) EventName() string { return "calendar_entry_series.created" }

type SeriesUpdatedEvent struct {
	Series *models.CalendarEntrySeries
}

func (SeriesUpdatedEvent) EventName() string { return "calendar_entry_series.updated" }

type SeriesDeletedEvent struct {
	Snapshot models.CalendarEntrySeries
}

func (SeriesDeletedEvent) EventName() string { return "calendar_entry_series.deleted" }
