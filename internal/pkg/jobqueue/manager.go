package jobqueue

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/quizdeck/quizdeck/app/models"
	"github.com/quizdeck/quizdeck/internal/pkg/database"
	"github.com/quizdeck/quizdeck/internal/pkg/metrics/counter"
	"github.com/quizdeck/quizdeck/internal/pkg/payments"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	eventSweepTicker   *time.Ticker
	counterFlushTicker *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:  NewQueue(3),
			stopCh: make(chan struct{}),
		}
	})
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

	m.queue.Start()

	// Sweep for unfinalized payment events. This is the crash-recovery path:
	// events that were persisted but never converted into a grant get their
	// finalization re-enqueued.
	m.eventSweepTicker = time.NewTicker(2 * time.Minute)
	m.wg.Add(1)
	go m.eventSweepWorker()

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

	if m.eventSweepTicker != nil {
		m.eventSweepTicker.Stop()
	}
	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}

	close(m.stopCh)
	m.queue.Stop()
	m.wg.Wait()
	m.running = false

	log.Info("[JobQueue Manager] Stopped")
}

// eventSweepWorker re-enqueues finalization for succeeded payment events
// that never got processed, e.g. because the process crashed between the
// webhook commit and the grant insert.
func (m *Manager) eventSweepWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		case <-m.eventSweepTicker.C:
			m.sweepPendingEvents()
		}
	}
}

func (m *Manager) sweepPendingEvents() {
	db := database.GetDB()
	if db == nil {
		return
	}

	// Only events old enough that the synchronous webhook path has surely
	// finished. Fresh events are still being handled inline.
	cutoff := time.Now().Add(-5 * time.Minute)

	var events []models.PaymentEvent
	err := db.Where("processed_at IS NULL AND signature_valid = ? AND created_at < ?", true, cutoff).
		Order("created_at ASC").Limit(100).Find(&events).Error
	if err != nil {
		log.Errorf("[JobQueue Manager] Pending event sweep failed: %v", err)
		return
	}

	for i := range events {
		event := &events[i]

		var body struct {
			TransactionID string  `json:"transaction_id"`
			UserID        uint    `json:"user_id"`
			QuestionSetID uint    `json:"question_set_id"`
			Amount        float64 `json:"amount"`
			Status        string  `json:"status"`
		}
		if err := json.Unmarshal([]byte(event.PayloadJSON), &body); err != nil {
			log.Warnf("[JobQueue Manager] Skipping event %d with unreadable payload: %v", event.ID, err)
			continue
		}
		if body.Status != payments.StatusSucceeded || body.TransactionID == "" {
			continue
		}

		payload := FinalizePurchaseJobPayload{
			PaymentEventID: event.ID,
			TransactionID:  body.TransactionID,
			UserID:         body.UserID,
			QuestionSetID:  body.QuestionSetID,
			Amount:         body.Amount,
		}
		if _, err := m.queue.EnqueueJob(JobTypeFinalizePurchase, payload.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue finalize for event %d: %v", event.ID, err)
		}
	}
}

// counterFlushWorker periodically flushes Redis counters to the database
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			// Final flush on shutdown
			if err := counter.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Final counter flush failed: %v", err)
			}
			return
		case <-m.counterFlushTicker.C:
			if err := counter.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush failed: %v", err)
			}
		}
	}
}
