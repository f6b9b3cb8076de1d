// Package subscription manages provider webhook channel lifecycles:
// opening, closing, and replacing the push channels that tell the engine
// a calendar changed upstream.
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/dayflow-app/dayflow/app/models"
	"github.com/dayflow-app/dayflow/app/repository"
	"github.com/dayflow-app/dayflow/internal/pkg/provider"
)

// Options carries the deployment-level channel settings.
type Options struct {
	// WebhookURL builds the callback address for a platform.
	WebhookURL func(platform string) string
	// ChannelTTL is the lease requested from the provider.
	ChannelTTL time.Duration
}

// Manager owns the webhook subscription state embedded in calendars.
type Manager struct {
	calendars repository.CalendarRepository
	registry  *provider.Registry
	opts      Options
}

func NewManager(calendars repository.CalendarRepository, registry *provider.Registry, opts Options) *Manager {
	return &Manager{calendars: calendars, registry: registry, opts: opts}
}

// Subscribe opens a webhook channel for the calendar and stores the
// resulting subscription. A calendar with an active channel must be
// unsubscribed first.
func (m *Manager) Subscribe(ctx context.Context, calendar *models.Calendar, cred *provider.Credential) error {
	if calendar.HasActiveSubscription() {
		return fmt.Errorf("calendar %d already has subscription %s", calendar.ID, calendar.Subscription.SubscriptionID)
	}

	gateway, err := m.registry.Get(calendar.Platform)
	if err != nil {
		return err
	}

	// The client state token lets the webhook receiver reject notifications
	// that do not originate from this channel.
	clientState := uuid.NewString()
	webhookURL := m.opts.WebhookURL(calendar.Platform)

	sub, err := gateway.Watch(ctx, cred, calendar.PlatformID, webhookURL, clientState, m.opts.ChannelTTL)
	if err != nil {
		return fmt.Errorf("open webhook channel for calendar %d: %w", calendar.ID, err)
	}

	expiration := sub.Expiration
	calendar.Subscription = models.SyncSubscription{
		SubscriptionID: sub.ID,
		ResourceID:     sub.ResourceID,
		Expiration:     &expiration,
		Provider:       calendar.Platform,
		ClientState:    clientState,
		WebhookURL:     webhookURL,
	}
	if err := m.calendars.Update(calendar); err != nil {
		return fmt.Errorf("store subscription for calendar %d: %w", calendar.ID, err)
	}

	log.Infof("[Subscription] Calendar %d subscribed, channel %s", calendar.ID, sub.ID)
	return nil
}

// Unsubscribe closes the calendar's webhook channel and clears the stored
// subscription. The provider-side stop is best effort: an expired or
// already-closed channel must not keep the local state stuck, but an
// unknown platform fails before any state is touched. A nil credential
// skips the provider call and only clears local state.
func (m *Manager) Unsubscribe(ctx context.Context, calendar *models.Calendar, cred *provider.Credential) error {
	if !calendar.HasActiveSubscription() {
		return fmt.Errorf("calendar %d has no active subscription", calendar.ID)
	}

	gateway, err := m.registry.Get(calendar.Platform)
	if err != nil {
		return err
	}

	if cred != nil {
		sub := calendar.Subscription
		if err := gateway.Stop(ctx, cred, sub.SubscriptionID, sub.ResourceID); err != nil {
			log.Warnf("[Subscription] Stopping channel %s for calendar %d failed, clearing local state anyway: %v",
				sub.SubscriptionID, calendar.ID, err)
		}
	} else {
		log.Warnf("[Subscription] No credential for calendar %d, clearing subscription without provider stop", calendar.ID)
	}

	calendar.ClearSubscription()
	if err := m.calendars.Update(calendar); err != nil {
		return fmt.Errorf("clear subscription for calendar %d: %w", calendar.ID, err)
	}

	log.Infof("[Subscription] Calendar %d unsubscribed", calendar.ID)
	return nil
}

// Replace tears down the current channel, if any, and opens a fresh one.
// Renewal uses this: providers do not extend channel leases in place.
func (m *Manager) Replace(ctx context.Context, calendar *models.Calendar, cred *provider.Credential) error {
	if calendar.HasActiveSubscription() {
		if err := m.Unsubscribe(ctx, calendar, cred); err != nil {
			return err
		}
	}
	return m.Subscribe(ctx, calendar, cred)
}

// ExpiringCalendars lists subscribed calendars whose channel lease ends
// within the horizon, including channels with no recorded expiration.
func (m *Manager) ExpiringCalendars(horizon time.Duration, now time.Time) ([]models.Calendar, error) {
	return m.calendars.GetSubscriptionsExpiringBefore(now.Add(horizon))
}
