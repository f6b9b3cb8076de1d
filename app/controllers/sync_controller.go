package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/dayflow-app/dayflow/internal/pkg/calsync"
	"github.com/dayflow-app/dayflow/internal/pkg/credentials"
	"github.com/dayflow-app/dayflow/internal/pkg/jobqueue"
)

var syncService *calsync.Service

// InitSyncController wires the sync service into the HTTP layer. Must be
// called before the router installs the sync routes.
func InitSyncController(service *calsync.Service) {
	syncService = service
}

// HandleSubscribeCalendar opens a webhook channel for a calendar
func HandleSubscribeCalendar(c *fiber.Ctx) error {
	calendarID, ok := calendarIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad_request", "message": "Invalid calendar id",
		})
	}
	if err := syncService.SubscribeCalendar(c.Context(), calendarID); err != nil {
		return syncError(c, err)
	}
	return c.JSON(fiber.Map{"status": "subscribed", "calendar_id": calendarID})
}

// HandleUnsubscribeCalendar closes a calendar's webhook channel
func HandleUnsubscribeCalendar(c *fiber.Ctx) error {
	calendarID, ok := calendarIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad_request", "message": "Invalid calendar id",
		})
	}
	if err := syncService.UnsubscribeCalendar(c.Context(), calendarID); err != nil {
		return syncError(c, err)
	}
	return c.JSON(fiber.Map{"status": "unsubscribed", "calendar_id": calendarID})
}

// HandleSyncCalendar runs one reconciliation pass for a calendar
func HandleSyncCalendar(c *fiber.Ctx) error {
	calendarID, ok := calendarIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad_request", "message": "Invalid calendar id",
		})
	}
	summary, err := syncService.SyncCalendar(c.Context(), calendarID)
	if err != nil {
		return syncError(c, err)
	}
	return c.JSON(summary)
}

// HandleSyncAllCalendars runs a pass for each of a user's subscribed
// calendars
func HandleSyncAllCalendars(c *fiber.Ctx) error {
	userID, ok := userIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad_request", "message": "Invalid user id",
		})
	}
	summaries, err := syncService.SyncAllCalendars(c.Context(), userID)
	if err != nil {
		return syncError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "synced": len(summaries), "summaries": summaries})
}

// HandleUpcomingEntries lists a user's next entries across all calendars
func HandleUpcomingEntries(c *fiber.Ctx) error {
	userID, ok := userIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad_request", "message": "Invalid user id",
		})
	}
	limit := c.QueryInt("limit", 20)
	entries, err := syncService.UpcomingEntries(userID, time.Now().UTC(), limit)
	if err != nil {
		return syncError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "count": len(entries), "entries": entries})
}

// HandleResyncCalendar replaces the webhook channel and syncs immediately
func HandleResyncCalendar(c *fiber.Ctx) error {
	calendarID, ok := calendarIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad_request", "message": "Invalid calendar id",
		})
	}
	summary, err := syncService.ResyncCalendar(c.Context(), calendarID)
	if err != nil {
		return syncError(c, err)
	}
	return c.JSON(summary)
}

// HandleResetCalendarSync replaces the webhook channel without syncing
func HandleResetCalendarSync(c *fiber.Ctx) error {
	calendarID, ok := calendarIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad_request", "message": "Invalid calendar id",
		})
	}
	if err := syncService.ResetCalendarSync(c.Context(), calendarID); err != nil {
		return syncError(c, err)
	}
	return c.JSON(fiber.Map{"status": "subscription_reset", "calendar_id": calendarID})
}

// HandleResetCalendarData purges and rebuilds every subscribed calendar
func HandleResetCalendarData(c *fiber.Ctx) error {
	reset, err := syncService.ResetCalendarData(c.Context())
	if err != nil {
		return syncError(c, err)
	}
	return c.JSON(fiber.Map{"status": "reset", "calendar_ids": reset})
}

// HandleSyncJobStats exposes the job queue counters
func HandleSyncJobStats(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()
	stats, err := queue.GetJobStats(c.Context())
	if err != nil {
		return syncError(c, err)
	}
	pending, _ := queue.GetQueueSize(c.Context())
	processing, _ := queue.GetProcessingSize(c.Context())
	return c.JSON(fiber.Map{
		"stats":      stats,
		"pending":    pending,
		"processing": processing,
	})
}

func calendarIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func userIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("user_id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// syncError maps engine errors onto HTTP statuses
func syncError(c *fiber.Ctx, err error) error {
	var expired *credentials.TokenExpiredError
	if errors.As(err, &expired) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "token_expired", "message": err.Error(),
		})
	}
	if errors.Is(err, calsync.ErrSyncInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "sync_in_progress", "message": err.Error(),
		})
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found", "message": "Calendar not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal_server_error", "message": err.Error(),
	})
}
