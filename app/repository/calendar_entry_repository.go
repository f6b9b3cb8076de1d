package repository

import (
	"time"

	"github.com/dayflow-app/dayflow/app/models"
	"gorm.io/gorm"
)

// calendarEntryRepository implements the CalendarEntryRepository interface
type calendarEntryRepository struct {
	db *gorm.DB
}

// NewCalendarEntryRepository creates a new calendar entry repository instance
func NewCalendarEntryRepository(db *gorm.DB) CalendarEntryRepository {
	return &calendarEntryRepository{db: db}
}

// GetByID retrieves an entry by its ID
func (r *calendarEntryRepository) GetByID(id uint) (*models.CalendarEntry, error) {
	var entry models.CalendarEntry
	err := r.db.First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetByCalendarID retrieves all entries of one calendar
func (r *calendarEntryRepository) GetByCalendarID(calendarID uint) ([]models.CalendarEntry, error) {
	var entries []models.CalendarEntry
	err := r.db.Where("calendar_id = ?", calendarID).Order("start_time ASC").Find(&entries).Error
	return entries, err
}

// GetByPlatformID retrieves one entry by its reconciliation idempotency key
func (r *calendarEntryRepository) GetByPlatformID(calendarID uint, platformID string) (*models.CalendarEntry, error) {
	var entry models.CalendarEntry
	err := r.db.Where("calendar_id = ? AND platform_id = ?", calendarID, platformID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetUpcoming retrieves the next entries across all of a user's calendars,
// used by the notification features downstream of the sync engine
func (r *calendarEntryRepository) GetUpcoming(userID uint, from time.Time, limit int) ([]models.CalendarEntry, error) {
	var entries []models.CalendarEntry
	err := r.db.
		Joins("JOIN calendars ON calendars.id = calendar_entries.calendar_id").
		Where("calendars.user_id = ? AND calendar_entries.start_time >= ?", userID, from).
		Order("calendar_entries.start_time ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// CountByCalendarID returns the number of entries for one calendar
func (r *calendarEntryRepository) CountByCalendarID(calendarID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.CalendarEntry{}).Where("calendar_id = ?", calendarID).Count(&count).Error
	return count, err
}
