package repository

import (
	"github.com/dayflow-app/dayflow/app/models"
	"gorm.io/gorm"
)

// calendarEntrySeriesRepository implements the CalendarEntrySeriesRepository interface
type calendarEntrySeriesRepository struct {
	db *gorm.DB
}

// NewCalendarEntrySeriesRepository creates a new series repository instance
func NewCalendarEntrySeriesRepository(db *gorm.DB) CalendarEntrySeriesRepository {
	return &calendarEntrySeriesRepository{db: db}
}

// GetByID retrieves a series by its ID
func (r *calendarEntrySeriesRepository) GetByID(id uint) (*models.CalendarEntrySeries, error) {
	var series models.CalendarEntrySeries
	err := r.db.First(&series, id).Error
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// GetByCalendarID retrieves all series of one calendar
func (r *calendarEntrySeriesRepository) GetByCalendarID(calendarID uint) ([]models.CalendarEntrySeries, error) {
	var series []models.CalendarEntrySeries
	err := r.db.Where("calendar_id = ?", calendarID).Order("id ASC").Find(&series).Error
	return series, err
}

// GetByPlatformID retrieves one series by its reconciliation idempotency key
func (r *calendarEntrySeriesRepository) GetByPlatformID(calendarID uint, platformID string) (*models.CalendarEntrySeries, error) {
	var series models.CalendarEntrySeries
	err := r.db.Where("calendar_id = ? AND platform_id = ?", calendarID, platformID).First(&series).Error
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// CountByCalendarID returns the number of series for one calendar
func (r *calendarEntrySeriesRepository) CountByCalendarID(calendarID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.CalendarEntrySeries{}).Where("calendar_id = ?", calendarID).Count(&count).Error
	return count, err
}
