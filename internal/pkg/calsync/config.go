// Package calsync is the calendar synchronization engine: it keeps local
// calendar entries and series consistent with the provider's view of a
// calendar and exposes the orchestration commands the scheduler invokes.
package calsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/dayflow-app/dayflow/internal/pkg/env"
)

// Config carries the per-deployment sync tunables. It is resolved once at
// startup and threaded explicitly through the engine; nothing in the
// reconciler reads ambient settings.
type Config struct {
	// LookbackWindow is how far into the past events are fetched; long
	// events that started earlier but are still running stay visible.
	LookbackWindow time.Duration
	// LookaheadWindow bounds the fetch into the future so a pass never
	// scans unbounded provider history.
	LookaheadWindow time.Duration
	// WebhookBaseURL is the public base URL providers push notifications
	// to.
	WebhookBaseURL string
	// SubscriptionTTL is the requested webhook channel lease.
	SubscriptionTTL time.Duration
	// RenewalHorizon renews channels expiring within this window.
	RenewalHorizon time.Duration
	// PassTimeout caps the provider I/O of one reconciliation pass.
	PassTimeout time.Duration
	// DefaultTimezone applies to users without a stored timezone.
	DefaultTimezone string
}

// ConfigFromEnv reads the sync tunables from the environment.
func ConfigFromEnv() Config {
	return Config{
		LookbackWindow:  time.Duration(env.GetEnvInt("SYNC_LOOKBACK_HOURS", 24)) * time.Hour,
		LookaheadWindow: time.Duration(env.GetEnvInt("SYNC_LOOKAHEAD_DAYS", 30)) * 24 * time.Hour,
		WebhookBaseURL:  env.GetEnv("SYNC_WEBHOOK_BASE_URL", "http://localhost:4000"),
		SubscriptionTTL: time.Duration(env.GetEnvInt("SYNC_SUBSCRIPTION_TTL_HOURS", 7*24)) * time.Hour,
		RenewalHorizon:  time.Duration(env.GetEnvInt("SYNC_RENEWAL_HORIZON_HOURS", 24)) * time.Hour,
		PassTimeout:     time.Duration(env.GetEnvInt("SYNC_PASS_TIMEOUT_SECONDS", 120)) * time.Second,
		DefaultTimezone: env.GetEnv("SYNC_DEFAULT_TIMEZONE", "UTC"),
	}
}

// WebhookURL builds the callback address a platform's channels point at.
func (c Config) WebhookURL(platform string) string {
	return fmt.Sprintf("%s/api/v1/webhooks/%s", strings.TrimRight(c.WebhookBaseURL, "/"), platform)
}
