package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSyncSubscription_Active(t *testing.T) {
	assert.False(t, SyncSubscription{}.Active())
	assert.True(t, SyncSubscription{SubscriptionID: "chan-1"}.Active())
}

func TestSyncSubscription_ExpiresBefore(t *testing.T) {
	now := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	soon := now.Add(time.Hour)
	later := now.Add(400 * time.Hour)

	tests := []struct {
		name     string
		sub      SyncSubscription
		expected bool
	}{
		{"Inactive never expires", SyncSubscription{}, false},
		{"Expiring within horizon", SyncSubscription{SubscriptionID: "a", Expiration: &soon}, true},
		{"Expiring beyond horizon", SyncSubscription{SubscriptionID: "b", Expiration: &later}, false},
		{"No recorded expiration counts as expiring", SyncSubscription{SubscriptionID: "c"}, true},
	}

	horizon := now.Add(24 * time.Hour)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.sub.ExpiresBefore(horizon))
		})
	}
}

func TestCalendar_ClearSubscription(t *testing.T) {
	calendar := &Calendar{
		Subscription: SyncSubscription{
			SubscriptionID: "chan-1",
			ResourceID:     "res-1",
			ClientState:    "state-1",
		},
	}
	assert.True(t, calendar.HasActiveSubscription())

	calendar.ClearSubscription()

	assert.False(t, calendar.HasActiveSubscription())
	assert.Empty(t, calendar.Subscription.ResourceID)
	assert.Empty(t, calendar.Subscription.ClientState)
}

func TestCalendar_Validate(t *testing.T) {
	calendar := &Calendar{
		Name:       "Work",
		Platform:   "google",
		PlatformID: "primary",
	}
	assert.NoError(t, calendar.Validate())

	assert.Error(t, (&Calendar{Platform: "google", PlatformID: "x"}).Validate())
	assert.Error(t, (&Calendar{Name: "Work", PlatformID: "x"}).Validate())
}
