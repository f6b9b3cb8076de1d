package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const PLATFORM_LOCAL = "local"

// SyncSubscription is the leased webhook channel registered with the
// provider for one calendar. A non-empty SubscriptionID is the single
// source of truth for "this calendar currently receives push
// notifications".
type SyncSubscription struct {
	SubscriptionID string     `gorm:"type:varchar(191)" json:"subscription_id"`
	ResourceID     string     `gorm:"type:varchar(191)" json:"resource_id"`
	Expiration     *time.Time `gorm:"type:timestamp;default:null" json:"expiration,omitempty"`
	Provider       string     `gorm:"type:varchar(50)" json:"provider"`
	ClientState    string     `gorm:"type:varchar(191)" json:"-"`
	SyncToken      string     `gorm:"type:varchar(255)" json:"-"`
	WebhookURL     string     `gorm:"type:varchar(255)" json:"webhook_url"`
}

func (s SyncSubscription) Active() bool {
	return s.SubscriptionID != ""
}

// ExpiresBefore reports whether the channel lease ends before the given
// instant. Subscriptions without a recorded expiration are treated as
// already expiring so the renewal sweep replaces them.
func (s SyncSubscription) ExpiresBefore(instant time.Time) bool {
	if !s.Active() {
		return false
	}
	return s.Expiration == nil || s.Expiration.Before(instant)
}

type Calendar struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	UserID       uint             `gorm:"index;index:cal_user_platform_uid,unique" json:"user_id"`
	AuthTokenID  uint             `gorm:"index" json:"auth_token_id"`
	Name         string           `gorm:"type:varchar(191)" json:"name" validate:"required,max=191"`
	Platform     string           `gorm:"index:cal_user_platform_uid,unique;type:varchar(50)" json:"platform" validate:"required"`
	PlatformID   string           `gorm:"index:cal_user_platform_uid,unique;type:varchar(191)" json:"platform_id" validate:"required"`
	Subscription SyncSubscription `gorm:"embedded;embeddedPrefix:sub_" json:"subscription"`
	LastSyncedAt *time.Time       `gorm:"type:timestamp;default:null" json:"last_synced_at,omitempty"`
	SyncOpsCount int64            `gorm:"default:0" json:"sync_ops_count"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (c *Calendar) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

func (c *Calendar) HasActiveSubscription() bool {
	return c.Subscription.Active()
}

// ClearSubscription drops the stored channel so the calendar reads as
// unsubscribed even when the provider-side teardown failed.
func (c *Calendar) ClearSubscription() {
	c.Subscription = SyncSubscription{}
}
