// Package provider is the protocol boundary to external calendar
// services. The rest of the engine sees only the neutral types defined
// here; provider-specific payload shapes stay inside the gateway
// implementations.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Credential is a refreshed, currently valid access credential handed to
// gateway calls. The credential store guarantees validity before a sync
// pass starts.
type Credential struct {
	AccessToken string
	Expiry      time.Time
}

// Event is one provider occurrence. Timestamps stay strings on purpose:
// providers ship malformed values, and the mapper owns the tolerant
// parsing instead of the fetch failing wholesale.
type Event struct {
	ID            string
	SeriesID      string // recurring-series identifier; may carry an instance suffix
	ICalUID       string
	OriginalStart string // non-empty marks an occurrence of a recurring series
	Title         string
	Status        string
	Start         string
	End           string
	AllDay        bool
	Recurrence    []string // RFC-5545 RRULE lines
	Updated       string
}

// Series is the recurring definition a set of occurrences shares.
type Series struct {
	ID         string
	Title      string
	Recurrence []string
}

// CalendarInfo describes one calendar visible to the credential.
type CalendarInfo struct {
	ID      string
	Name    string
	Primary bool
}

// Subscription is the provider's answer to a watch request.
type Subscription struct {
	ID         string
	ResourceID string
	Expiration time.Time
}

// ListOptions bound an event fetch so a sync pass never scans unbounded
// history.
type ListOptions struct {
	TimeMin        time.Time
	TimeMax        time.Time
	SingleEvents   bool
	IncludeDeleted bool
}

// Gateway is implemented once per calendar platform.
type Gateway interface {
	ListCalendars(ctx context.Context, cred *Credential) ([]CalendarInfo, error)
	ListEvents(ctx context.Context, cred *Credential, calendarID string, opts ListOptions) ([]Event, error)
	GetSeries(ctx context.Context, cred *Credential, calendarID, seriesID string) (*Series, error)
	Watch(ctx context.Context, cred *Credential, calendarID, webhookURL, clientState string, ttl time.Duration) (*Subscription, error)
	Stop(ctx context.Context, cred *Credential, subscriptionID, resourceID string) error
}

// UnsupportedPlatformError marks a lifecycle transition attempted against
// a platform no gateway is registered for. This is a configuration
// problem, not a runtime fluke, and is never retried.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported calendar platform %q", e.Platform)
}

// Registry resolves a platform name to its gateway. Adding a provider
// means registering an implementation here, not editing a conditional.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func (r *Registry) Register(platform string, gateway Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[platform] = gateway
}

// Get returns the gateway for a platform or an *UnsupportedPlatformError.
func (r *Registry) Get(platform string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gateway, ok := r.gateways[platform]
	if !ok {
		return nil, &UnsupportedPlatformError{Platform: platform}
	}
	return gateway, nil
}

// Platforms lists the registered platform names.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}
