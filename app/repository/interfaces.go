package repository

import (
	"time"

	"github.com/dayflow-app/dayflow/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
}

// CalendarRepository defines the interface for calendar-related database operations
type CalendarRepository interface {
	Create(calendar *models.Calendar) error
	GetByID(id uint) (*models.Calendar, error)
	GetByUserID(userID uint) ([]models.Calendar, error)
	GetByPlatformID(userID uint, platform, platformID string) (*models.Calendar, error)
	GetBySubscriptionID(subscriptionID string) (*models.Calendar, error)
	GetSubscribed() ([]models.Calendar, error)
	GetSubscriptionsExpiringBefore(instant time.Time) ([]models.Calendar, error)
	Update(calendar *models.Calendar) error
	Delete(id uint) error
	Count() (int64, error)
}

// AuthTokenRepository defines the interface for OAuth token persistence.
// Tokens are never created here; the account-linking flow owns creation.
type AuthTokenRepository interface {
	GetByID(id uint) (*models.AuthToken, error)
	GetByUserAndProvider(userID uint, provider string) (*models.AuthToken, error)
	Update(token *models.AuthToken) error
}

// CalendarEntryRepository defines read access to calendar entries. Writes
// go through the unit of work exclusively.
type CalendarEntryRepository interface {
	GetByID(id uint) (*models.CalendarEntry, error)
	GetByCalendarID(calendarID uint) ([]models.CalendarEntry, error)
	GetByPlatformID(calendarID uint, platformID string) (*models.CalendarEntry, error)
	GetUpcoming(userID uint, from time.Time, limit int) ([]models.CalendarEntry, error)
	CountByCalendarID(calendarID uint) (int64, error)
}

// CalendarEntrySeriesRepository defines read access to recurring series.
// Writes go through the unit of work exclusively.
type CalendarEntrySeriesRepository interface {
	GetByID(id uint) (*models.CalendarEntrySeries, error)
	GetByCalendarID(calendarID uint) ([]models.CalendarEntrySeries, error)
	GetByPlatformID(calendarID uint, platformID string) (*models.CalendarEntrySeries, error)
	CountByCalendarID(calendarID uint) (int64, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User     UserRepository
	Calendar CalendarRepository
	Token    AuthTokenRepository
	Entry    CalendarEntryRepository
	Series   CalendarEntrySeriesRepository
}

// NewRepositories creates all repositories backed by the given database handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Calendar: NewCalendarRepository(db),
		Token:    NewAuthTokenRepository(db),
		Entry:    NewCalendarEntryRepository(db),
		Series:   NewCalendarEntrySeriesRepository(db),
	}
}
