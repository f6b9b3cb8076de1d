package models

import "time"

// Internal frequency model. Recurrence rules from the provider are
// classified into exactly one of these values.
const (
	FREQ_ONCE          = "ONCE"
	FREQ_DAILY         = "DAILY"
	FREQ_WEEKLY        = "WEEKLY"
	FREQ_BI_WEEKLY     = "BI_WEEKLY"
	FREQ_WEEK_DAYS     = "WEEK_DAYS"
	FREQ_WEEKEND_DAYS  = "WEEKEND_DAYS"
	FREQ_MONTHLY       = "MONTHLY"
	FREQ_YEARLY        = "YEARLY"
	FREQ_CUSTOM_WEEKLY = "CUSTOM_WEEKLY"
)

const (
	ENTRY_STATUS_CONFIRMED = "confirmed"
	ENTRY_STATUS_TENTATIVE = "tentative"
	ENTRY_STATUS_CANCELLED = "cancelled"
)

// CalendarEntry is one concrete occurrence on a calendar. Entries on a
// non-local platform are written exclusively by the reconciler; the
// (calendar_id, platform_id) pair is the idempotency key that keeps
// repeated sync passes from duplicating rows.
type CalendarEntry struct {
	ID         uint                 `gorm:"primaryKey" json:"id"`
	CalendarID uint                 `gorm:"index;index:entry_cal_platform,unique" json:"calendar_id"`
	SeriesID   *uint                `gorm:"index" json:"series_id,omitempty"`
	Series     *CalendarEntrySeries `gorm:"-" json:"-"`
	PlatformID string               `gorm:"index:entry_cal_platform,unique;type:varchar(191)" json:"platform_id"`
	Name       string               `gorm:"type:varchar(255)" json:"name"`
	Status     string               `gorm:"type:varchar(50);default:'confirmed'" json:"status"`
	StartTime  time.Time            `json:"start_time"`
	EndTime    time.Time            `json:"end_time"`
	Frequency  string               `gorm:"type:varchar(20);default:'ONCE'" json:"frequency"`
	CreatedAt  time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

// SameObservableState reports whether the provider-visible fields of two
// entries match. The reconciler uses it to avoid staging no-op updates.
func (e *CalendarEntry) SameObservableState(other *CalendarEntry) bool {
	return e.Name == other.Name &&
		e.Status == other.Status &&
		e.Frequency == other.Frequency &&
		e.StartTime.Equal(other.StartTime) &&
		e.EndTime.Equal(other.EndTime) &&
		uintPtrEqual(e.SeriesID, other.SeriesID)
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
