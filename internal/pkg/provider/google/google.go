// Package google implements the provider gateway on the Google Calendar
// v3 API.
package google

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/dayflow-app/dayflow/internal/pkg/provider"
)

// Platform is the registry key for this gateway.
const Platform = "google"

const channelType = "web_hook"

type Gateway struct{}

func NewGateway() *Gateway {
	return &Gateway{}
}

func (g *Gateway) service(ctx context.Context, cred *provider.Credential) (*gcal.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cred.AccessToken,
		Expiry:      cred.Expiry,
	})
	svc, err := gcal.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

// ListCalendars retrieves all calendars accessible by the credential.
func (g *Gateway) ListCalendars(ctx context.Context, cred *provider.Credential) ([]provider.CalendarInfo, error) {
	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	var calendars []provider.CalendarInfo
	pageToken := ""
	for {
		call := svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list calendars: %w", err)
		}
		for _, item := range list.Items {
			calendars = append(calendars, provider.CalendarInfo{
				ID:      item.Id,
				Name:    item.Summary,
				Primary: item.Primary,
			})
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			return calendars, nil
		}
	}
}

// ListEvents retrieves events in the given window with recurring
// instances expanded when opts.SingleEvents is set.
func (g *Gateway) ListEvents(ctx context.Context, cred *provider.Credential, calendarID string, opts provider.ListOptions) ([]provider.Event, error) {
	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	var events []provider.Event
	pageToken := ""
	for {
		call := svc.Events.List(calendarID).
			SingleEvents(opts.SingleEvents).
			ShowDeleted(opts.IncludeDeleted).
			Context(ctx)
		if !opts.TimeMin.IsZero() {
			call = call.TimeMin(opts.TimeMin.Format(time.RFC3339))
		}
		if !opts.TimeMax.IsZero() {
			call = call.TimeMax(opts.TimeMax.Format(time.RFC3339))
		}
		if opts.SingleEvents {
			call = call.OrderBy("startTime")
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list events for %s: %w", calendarID, err)
		}
		for _, item := range list.Items {
			events = append(events, convertEvent(item))
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			return events, nil
		}
	}
}

// GetSeries fetches the recurring master event an occurrence belongs to.
func (g *Gateway) GetSeries(ctx context.Context, cred *provider.Credential, calendarID, seriesID string) (*provider.Series, error) {
	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	item, err := svc.Events.Get(calendarID, seriesID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", seriesID, err)
	}
	return &provider.Series{
		ID:         item.Id,
		Title:      item.Summary,
		Recurrence: item.Recurrence,
	}, nil
}

// Watch registers a webhook channel for the calendar. The channel id is
// generated locally; the provider answers with its resource id and the
// granted lease expiration, which may be shorter than requested.
func (g *Gateway) Watch(ctx context.Context, cred *provider.Credential, calendarID, webhookURL, clientState string, ttl time.Duration) (*provider.Subscription, error) {
	svc, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	channel := &gcal.Channel{
		Id:         uuid.NewString(),
		Type:       channelType,
		Address:    webhookURL,
		Token:      clientState,
		Expiration: time.Now().Add(ttl).UnixMilli(),
	}
	result, err := svc.Events.Watch(calendarID, channel).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("watch calendar %s: %w", calendarID, err)
	}

	expiration := time.Now().Add(ttl)
	if result.Expiration > 0 {
		expiration = time.UnixMilli(result.Expiration)
	}
	return &provider.Subscription{
		ID:         result.Id,
		ResourceID: result.ResourceId,
		Expiration: expiration,
	}, nil
}

// Stop tears down a webhook channel.
func (g *Gateway) Stop(ctx context.Context, cred *provider.Credential, subscriptionID, resourceID string) error {
	svc, err := g.service(ctx, cred)
	if err != nil {
		return err
	}
	channel := &gcal.Channel{
		Id:         subscriptionID,
		ResourceId: resourceID,
	}
	if err := svc.Channels.Stop(channel).Context(ctx).Do(); err != nil {
		return fmt.Errorf("stop channel %s: %w", subscriptionID, err)
	}
	return nil
}

func convertEvent(item *gcal.Event) provider.Event {
	event := provider.Event{
		ID:         item.Id,
		SeriesID:   item.RecurringEventId,
		ICalUID:    item.ICalUID,
		Title:      item.Summary,
		Status:     item.Status,
		Recurrence: item.Recurrence,
		Updated:    item.Updated,
	}
	if item.OriginalStartTime != nil {
		event.OriginalStart = firstNonEmpty(item.OriginalStartTime.DateTime, item.OriginalStartTime.Date)
	}
	if item.Start != nil {
		event.Start = firstNonEmpty(item.Start.DateTime, item.Start.Date)
		event.AllDay = item.Start.DateTime == "" && item.Start.Date != ""
	}
	if item.End != nil {
		event.End = firstNonEmpty(item.End.DateTime, item.End.Date)
	}
	return event
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
