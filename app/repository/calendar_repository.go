package repository

import (
	"time"

	"github.com/dayflow-app/dayflow/app/models"
	"gorm.io/gorm"
)

// calendarRepository implements the CalendarRepository interface
type calendarRepository struct {
	db *gorm.DB
}

// NewCalendarRepository creates a new calendar repository instance
func NewCalendarRepository(db *gorm.DB) CalendarRepository {
	return &calendarRepository{db: db}
}

// Create creates a new calendar in the database
func (r *calendarRepository) Create(calendar *models.Calendar) error {
	return r.db.Create(calendar).Error
}

// GetByID retrieves a calendar by its ID
func (r *calendarRepository) GetByID(id uint) (*models.Calendar, error) {
	var calendar models.Calendar
	err := r.db.First(&calendar, id).Error
	if err != nil {
		return nil, err
	}
	return &calendar, nil
}

// GetByUserID retrieves all calendars belonging to a user
func (r *calendarRepository) GetByUserID(userID uint) ([]models.Calendar, error) {
	var calendars []models.Calendar
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&calendars).Error
	return calendars, err
}

// GetByPlatformID retrieves the calendar a provider-side id maps to for a user
func (r *calendarRepository) GetByPlatformID(userID uint, platform, platformID string) (*models.Calendar, error) {
	var calendar models.Calendar
	err := r.db.Where("user_id = ? AND platform = ? AND platform_id = ?", userID, platform, platformID).
		First(&calendar).Error
	if err != nil {
		return nil, err
	}
	return &calendar, nil
}

// GetBySubscriptionID resolves a webhook channel id back to its calendar
func (r *calendarRepository) GetBySubscriptionID(subscriptionID string) (*models.Calendar, error) {
	var calendar models.Calendar
	err := r.db.Where("sub_subscription_id = ?", subscriptionID).First(&calendar).Error
	if err != nil {
		return nil, err
	}
	return &calendar, nil
}

// GetSubscribed retrieves all calendars holding an active webhook subscription
func (r *calendarRepository) GetSubscribed() ([]models.Calendar, error) {
	var calendars []models.Calendar
	err := r.db.Where("sub_subscription_id <> ''").Order("id ASC").Find(&calendars).Error
	return calendars, err
}

// GetSubscriptionsExpiringBefore retrieves subscribed calendars whose
// channel lease ends before the given instant
func (r *calendarRepository) GetSubscriptionsExpiringBefore(instant time.Time) ([]models.Calendar, error) {
	var calendars []models.Calendar
	err := r.db.Where("sub_subscription_id <> '' AND (sub_expiration IS NULL OR sub_expiration < ?)", instant).
		Order("id ASC").Find(&calendars).Error
	return calendars, err
}

// Update updates an existing calendar in the database
func (r *calendarRepository) Update(calendar *models.Calendar) error {
	return r.db.Save(calendar).Error
}

// Delete soft deletes a calendar and its local entries and series
func (r *calendarRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("calendar_id = ?", id).Delete(&models.CalendarEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("calendar_id = ?", id).Delete(&models.CalendarEntrySeries{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Calendar{}, id).Error
	})
}

// Count returns the total number of calendars
func (r *calendarRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Calendar{}).Count(&count).Error
	return count, err
}
