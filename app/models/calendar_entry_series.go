package models

import "time"

// CalendarEntrySeries groups the occurrences of one recurring provider
// event. It is created lazily the first time an occurrence of the series
// is observed during reconciliation.
type CalendarEntrySeries struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CalendarID uint      `gorm:"index;index:series_cal_platform,unique" json:"calendar_id"`
	PlatformID string    `gorm:"index:series_cal_platform,unique;type:varchar(191)" json:"platform_id"`
	Name       string    `gorm:"type:varchar(255)" json:"name"`
	Frequency  string    `gorm:"type:varchar(20);default:'ONCE'" json:"frequency"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
