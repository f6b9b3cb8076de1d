package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dayflow-app/dayflow/app/controllers"
	"github.com/dayflow-app/dayflow/app/repository"
	"github.com/dayflow-app/dayflow/internal/pkg/cache"
	"github.com/dayflow-app/dayflow/internal/pkg/calsync"
	"github.com/dayflow-app/dayflow/internal/pkg/credentials"
	"github.com/dayflow-app/dayflow/internal/pkg/database"
	"github.com/dayflow-app/dayflow/internal/pkg/env"
	"github.com/dayflow-app/dayflow/internal/pkg/jobqueue"
	"github.com/dayflow-app/dayflow/internal/pkg/metrics/counter"
	"github.com/dayflow-app/dayflow/internal/pkg/provider"
	"github.com/dayflow-app/dayflow/internal/pkg/provider/google"
	"github.com/dayflow-app/dayflow/internal/pkg/router"
	"github.com/dayflow-app/dayflow/internal/pkg/subscription"
	"github.com/dayflow-app/dayflow/internal/pkg/unitofwork"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	registry := provider.NewRegistry()
	registry.Register(google.Platform, google.NewGateway())

	cfg := calsync.ConfigFromEnv()
	subscriptions := subscription.NewManager(repos.Calendar, registry, subscription.Options{
		WebhookURL: cfg.WebhookURL,
		ChannelTTL: cfg.SubscriptionTTL,
	})

	service := calsync.NewService(calsync.ServiceDeps{
		Repos:         repos,
		Credentials:   credentials.NewStore(repos.Token),
		Providers:     registry,
		Subscriptions: subscriptions,
		UnitOfWork: func() unitofwork.UnitOfWork {
			return unitofwork.New(db, unitofwork.LogHandler())
		},
		Counter: counter.NewStore(),
		Locks:   jobqueue.CalendarLock{},
		Config:  cfg,
	})
	controllers.InitSyncController(service)

	// Background workers: webhook-triggered syncs, channel renewal sweep,
	// counter flush
	manager := jobqueue.InitManager(syncRunner{service}, subscriptions, cfg.RenewalHorizon)
	manager.Start()

	app := fiber.New(fiber.Config{
		AppName: "DayFlow Sync",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

// syncRunner adapts the sync service to the job queue: summaries are
// dropped and a busy calendar becomes a requeue instead of a failure.
type syncRunner struct {
	svc *calsync.Service
}

func (r syncRunner) SyncCalendar(ctx context.Context, calendarID uint) error {
	_, err := r.svc.SyncCalendar(ctx, calendarID)
	return queueError(err)
}

func (r syncRunner) ResyncCalendar(ctx context.Context, calendarID uint) error {
	_, err := r.svc.ResyncCalendar(ctx, calendarID)
	return queueError(err)
}

func (r syncRunner) ResetCalendarSync(ctx context.Context, calendarID uint) error {
	return queueError(r.svc.ResetCalendarSync(ctx, calendarID))
}

func queueError(err error) error {
	if errors.Is(err, calsync.ErrSyncInProgress) {
		return jobqueue.ErrRequeue
	}
	return err
}
