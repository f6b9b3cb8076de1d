package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/dayflow-app/dayflow/app/repository"
	"github.com/dayflow-app/dayflow/internal/pkg/jobqueue"
)

// Google channel notification headers
const (
	HeaderChannelID     = "X-Goog-Channel-ID"
	HeaderChannelToken  = "X-Goog-Channel-Token"
	HeaderResourceState = "X-Goog-Resource-State"

	// resourceStateSync is the handshake Google sends when a channel opens
	resourceStateSync = "sync"
)

// HandleProviderWebhook receives push notifications from a calendar
// platform and enqueues a sync job for the affected calendar. The
// response is always fast; the actual sync runs in the background.
func HandleProviderWebhook(c *fiber.Ctx) error {
	platform := c.Params("platform")
	channelID := c.Get(HeaderChannelID)
	if channelID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad_request", "message": "Missing channel id header",
		})
	}

	calendar, err := repository.GetGlobalRepositories().Calendar.GetBySubscriptionID(channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A stale channel from a replaced subscription; acknowledge so
			// the provider stops redelivering.
			log.Infof("[Webhook] Notification for unknown channel %s on %s, ignoring", channelID, platform)
			return c.SendStatus(fiber.StatusOK)
		}
		log.Errorf("[Webhook] Channel lookup for %s failed: %v", channelID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_server_error", "message": "Channel lookup failed",
		})
	}

	if calendar.Subscription.ClientState != c.Get(HeaderChannelToken) {
		log.Warnf("[Webhook] Client state mismatch for channel %s, rejecting", channelID)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "forbidden", "message": "Client state mismatch",
		})
	}

	if c.Get(HeaderResourceState) == resourceStateSync {
		// Channel-opened handshake, nothing changed yet
		return c.SendStatus(fiber.StatusOK)
	}

	payload := jobqueue.SyncJobPayload{CalendarID: calendar.ID, Reason: "webhook"}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeSyncCalendar, payload.ToMap()); err != nil {
		log.Errorf("[Webhook] Enqueueing sync for calendar %d failed: %v", calendar.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_server_error", "message": "Could not schedule sync",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
