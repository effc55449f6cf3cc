// Package scheduler provides the delayed-task primitive used for retry
// backoff and quiet-hour rescheduling (spec.md §4.9), plus a periodic
// tick for picking up READY campaigns whose schedule_time has elapsed.
// The periodic tick is grounded on
// jordanlanch-industrydb-back/backend/pkg/jobs/cron.go's
// github.com/robfig/cron/v3 usage; the delayed-task loop follows the
// ticker-driven goroutine shape of
// developerkorteks-promotenews/internal/scheduler/scheduler.go.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler is the capability the orchestrator depends on for retries,
// quiet-hour rescheduling, and periodic campaign pickup. A DelayUntil
// timer lives only in process memory and does not survive a crash or
// restart; the orchestrator's periodic sweep is what makes invocation
// at-least-once end to end, by persisting each reschedule's due time
// and republishing anything still due that the timer never fired.
// Duplicate invocations (timer and sweep both firing) are tolerated
// because every handler runs through a guarded compare-and-set.
type Scheduler interface {
	// DelayUntil invokes handler at or after when, keyed by key. A second
	// call with the same key before the first fires replaces the pending
	// timer (coalesces duplicate reschedules for the same message).
	DelayUntil(key string, when time.Time, handler func())
	// AddPeriodic registers handler to run on cronSpec (standard 5-field
	// cron syntax). Used for the READY-campaign pickup tick.
	AddPeriodic(cronSpec string, handler func()) error
	Start()
	Stop()
}

// realScheduler is the production Scheduler: time.AfterFunc per delayed
// key plus a robfig/cron.Cron for periodic ticks.
type realScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	cron   *cron.Cron
}

// New constructs the production Scheduler.
func New() Scheduler {
	return &realScheduler{
		timers: make(map[string]*time.Timer),
		cron:   cron.New(),
	}
}

func (s *realScheduler) DelayUntil(key string, when time.Time, handler func()) {
	d := time.Until(when)
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	if existing, ok := s.timers[key]; ok {
		existing.Stop()
	}
	s.timers[key] = time.AfterFunc(d, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("⚠️ scheduler: handler for %s panicked: %v", key, r)
			}
		}()
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		handler()
	})
	s.mu.Unlock()
}

func (s *realScheduler) AddPeriodic(cronSpec string, handler func()) error {
	_, err := s.cron.AddFunc(cronSpec, handler)
	return err
}

func (s *realScheduler) Start() {
	s.cron.Start()
}

func (s *realScheduler) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.mu.Unlock()
}
