/*
scheduler.go - Automated anniversary scheduler

PURPOSE:
  Periodically checks every employee for a crossed hire-date anniversary
  and rebuilds their balance chain when one is found. This is what opens
  a new work year: fresh allocations appear and unused annual days carry
  forward (capped) without any manual step.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - An employee needs recalculation when their stored chain is shorter
    than their current work year
  - Recalculation is idempotent, so re-checking an already-processed
    employee is harmless
  - Every run is recorded in recalc_runs for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAnniversaryScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - recalc.go: The recalculation this scheduler triggers
  - handlers.go: TriggerRecalculation endpoint (manual trigger)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/store/sqlite"
)

// AnniversaryScheduler opens new work years as anniversaries pass.
type AnniversaryScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAnniversaryScheduler creates a new scheduler.
func NewAnniversaryScheduler(store *sqlite.Store, handler *Handler) *AnniversaryScheduler {
	return &AnniversaryScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *AnniversaryScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		as.Handler.Log.Info("anniversary scheduler disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	as.Handler.Log.WithField("interval", as.CheckInterval).
		Info("anniversary scheduler started")
}

// Stop stops the scheduler.
func (as *AnniversaryScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		as.ticker = nil
		close(as.stop)
		as.wg.Wait()
		as.Handler.Log.Info("anniversary scheduler stopped")
	}
}

func (as *AnniversaryScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.checkAndProcess()

	for {
		select {
		case <-as.ticker.C:
			as.checkAndProcess()
		case <-as.stop:
			return
		}
	}
}

func (as *AnniversaryScheduler) checkAndProcess() {
	ctx := context.Background()

	employees, err := as.Store.ListEmployees(ctx)
	if err != nil {
		as.Handler.Log.WithError(err).Error("scheduler failed to list employees")
		return
	}

	processed := 0
	for _, emp := range employees {
		due, err := as.needsRecalculation(ctx, emp.ID, emp.HireDate)
		if err != nil {
			as.Handler.Log.WithError(err).WithField("employee", emp.ID).
				Warn("scheduler skipped employee")
			continue
		}
		if !due {
			continue
		}

		if _, err := as.Handler.RecalculateEmployee(ctx, emp, "anniversary"); err != nil {
			as.Handler.Log.WithError(err).WithField("employee", emp.ID).
				Error("anniversary recalculation failed")
			continue
		}
		processed++
	}

	if processed > 0 {
		as.Handler.Log.WithFields(logrus.Fields{
			"processed": processed,
			"checked":   len(employees),
		}).Info("anniversary check completed")
	}
}

// needsRecalculation reports whether the stored chain is behind the
// employee's current work year.
func (as *AnniversaryScheduler) needsRecalculation(ctx context.Context, id engine.EmployeeID, hireDate time.Time) (bool, error) {
	currentWY, err := engine.CalculateWorkYear(hireDate, as.Handler.now())
	if err != nil {
		return false, err
	}

	balances, err := as.Store.GetBalances(ctx, id)
	if err != nil {
		return false, err
	}

	maxStored := 0
	for _, b := range balances {
		if b.WorkYear > maxStored {
			maxStored = b.WorkYear
		}
	}

	return maxStored < currentWY, nil
}

// RunNow triggers an immediate check (for testing/admin).
func (as *AnniversaryScheduler) RunNow() {
	as.checkAndProcess()
}
