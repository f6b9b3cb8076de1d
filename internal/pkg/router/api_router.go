package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/dayflow-app/dayflow/app/controllers"
	"github.com/dayflow-app/dayflow/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Provider push notifications authenticate per channel, not with the
	// service key
	v1.Post("/webhooks/:platform", controllers.HandleProviderWebhook)

	sync := v1.Group("/sync", middleware.ServiceKeyMiddleware())
	sync.Post("/calendars/:id/subscribe", controllers.HandleSubscribeCalendar)
	sync.Post("/calendars/:id/unsubscribe", controllers.HandleUnsubscribeCalendar)
	sync.Post("/calendars/:id/sync", controllers.HandleSyncCalendar)
	sync.Post("/calendars/:id/resync", controllers.HandleResyncCalendar)
	sync.Post("/calendars/:id/reset", controllers.HandleResetCalendarSync)
	sync.Post("/users/:user_id/calendars/sync-all", controllers.HandleSyncAllCalendars)
	sync.Get("/users/:user_id/entries/upcoming", controllers.HandleUpcomingEntries)
	sync.Post("/calendars/reset-data", controllers.HandleResetCalendarData)
	sync.Get("/jobs/stats", controllers.HandleSyncJobStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
