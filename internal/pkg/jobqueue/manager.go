package jobqueue

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/dayflow-app/dayflow/internal/pkg/env"
	metrics "github.com/dayflow-app/dayflow/internal/pkg/metrics/counter"
	"github.com/dayflow-app/dayflow/internal/pkg/subscription"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	subscriptions      *subscription.Manager
	renewalHorizon     time.Duration
	scheduler          *cron.Cron
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerMu     sync.Mutex
)

// InitManager builds the global job queue manager (singleton)
func InitManager(runner SyncRunner, subscriptions *subscription.Manager, renewalHorizon time.Duration) *Manager {
	managerMu.Lock()
	defer managerMu.Unlock()

	if globalManager == nil {
		workerCount := env.GetEnvInt("JOB_QUEUE_WORKERS", 5)
		globalManager = &Manager{
			queue:          NewQueue(workerCount, runner),
			subscriptions:  subscriptions,
			renewalHorizon: renewalHorizon,
			stopCh:         make(chan struct{}),
		}
	}
	return globalManager
}

// GetManager returns the global job queue manager
func GetManager() *Manager {
	managerMu.Lock()
	defer managerMu.Unlock()
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Renewal sweep: enqueue renew jobs for channels close to expiry
	renewalSpec := env.GetEnv("SUBSCRIPTION_RENEWAL_CRON", "@every 1h")
	m.scheduler = cron.New()
	if _, err := m.scheduler.AddFunc(renewalSpec, m.runRenewalSweep); err != nil {
		log.Errorf("[JobQueue Manager] Invalid renewal schedule %q: %v", renewalSpec, err)
	}
	m.scheduler.Start()

	// Start counter flush worker (Redis -> DB) every 5 seconds
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.scheduler != nil {
		<-m.scheduler.Stop().Done()
	}
	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// runRenewalSweep enqueues a renew job for every calendar whose webhook
// channel expires within the horizon
func (m *Manager) runRenewalSweep() {
	calendars, err := m.subscriptions.ExpiringCalendars(m.renewalHorizon, time.Now())
	if err != nil {
		log.Errorf("[JobQueue Manager] Renewal sweep failed: %v", err)
		return
	}
	if len(calendars) == 0 {
		return
	}

	log.Infof("[JobQueue Manager] Renewal sweep: %d channel(s) close to expiry", len(calendars))
	for i := range calendars {
		payload := SyncJobPayload{CalendarID: calendars[i].ID, Reason: "renewal sweep"}
		if _, err := m.queue.EnqueueJob(JobTypeRenewSubscription, payload.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Enqueueing renewal for calendar %d failed: %v", calendars[i].ID, err)
		}
	}
}

// counterFlushWorker periodically flushes pending counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
