/*
recalc.go - Full-chain recalculation service

PURPOSE:
  Rebuilds an employee's entire balance chain from first principles and
  persists the result. This is the single write path for carried_forward
  and remaining: every trigger (request approval, cancellation, the
  anniversary scheduler, the admin endpoint) funnels through here so
  stored balances can never drift from what the engine computes.

HOW A CHAIN IS REBUILT:
  1. Current work year from the hire date
  2. One skeleton record per configured category per work year,
     allocated per policy (annual leave suppressed in year one)
  3. Used filled in from approved requests
  4. engine.RecalculateChain derives carry-forward and remaining
  5. The store swaps the employee's balances atomically
  6. A recalc_runs row records the outcome for auditing

TRIGGERS:
  "request"     - approval or cancellation changed usage
  "anniversary" - the scheduler noticed a new work year
  "manual"      - POST /api/admin/recalculate

SEE ALSO:
  - engine/chain.go: The recalculation itself
  - scheduler.go: Anniversary-driven trigger
*/
package api

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// RecalculateEmployee rebuilds and persists one employee's balance chain.
func (h *Handler) RecalculateEmployee(ctx context.Context, emp leave.Employee, trigger string) (RecalcResultDTO, error) {
	result := RecalcResultDTO{EmployeeID: string(emp.ID)}

	started := h.now().UTC()
	run := sqlite.RecalcRun{
		ID:         uuid.NewString(),
		EmployeeID: emp.ID,
		Trigger:    trigger,
		Status:     "running",
		StartedAt:  &started,
		CreatedAt:  started,
	}
	if err := h.Store.SaveRecalcRun(ctx, run); err != nil {
		return result, fmt.Errorf("failed to record recalc run: %w", err)
	}

	chain, err := h.rebuildChain(ctx, emp)
	if err != nil {
		h.failRun(ctx, run, err)
		result.Error = err.Error()
		return result, err
	}

	if err := h.Store.ReplaceBalances(ctx, emp.ID, chain.Balances); err != nil {
		h.failRun(ctx, run, err)
		result.Error = err.Error()
		return result, fmt.Errorf("failed to persist balances: %w", err)
	}

	for _, skip := range chain.Skipped {
		result.Skipped = append(result.Skipped, string(skip.Category))
	}
	result.BalancesWritten = len(chain.Balances)

	completed := h.now().UTC()
	run.Status = "completed"
	run.BalancesWritten = result.BalancesWritten
	run.Skipped = result.Skipped
	run.CompletedAt = &completed
	if err := h.Store.SaveRecalcRun(ctx, run); err != nil {
		return result, fmt.Errorf("failed to record recalc run: %w", err)
	}

	h.Log.WithFields(logrus.Fields{
		"employee": emp.ID,
		"trigger":  trigger,
		"balances": result.BalancesWritten,
		"skipped":  len(result.Skipped),
	}).Info("balance chain recalculated")

	return result, nil
}

// rebuildChain constructs the full skeleton chain for an employee and runs
// it through the engine.
func (h *Handler) rebuildChain(ctx context.Context, emp leave.Employee) (engine.ChainResult, error) {
	currentWY, err := engine.CalculateWorkYear(emp.HireDate, h.now())
	if err != nil {
		return engine.ChainResult{}, err
	}

	requests, err := h.Store.ListRequestsByEmployee(ctx, emp.ID)
	if err != nil {
		return engine.ChainResult{}, fmt.Errorf("failed to load requests: %w", err)
	}
	usage := leave.SumApproved(requests)

	var skeleton []engine.Balance
	for _, category := range h.Policies.Categories() {
		policy := h.Policies[category]
		for wy := 1; wy <= currentWY; wy++ {
			b := engine.Balance{
				EmployeeID: emp.ID,
				Category:   category,
				WorkYear:   wy,
				LeaveYear:  engine.LeaveYearFor(emp.HireDate, wy),
				Allocated:  engine.CategoryAllocation(wy, policy),
				Used:       usage.Get(wy, category),
			}
			skeleton = append(skeleton, b)
		}
	}

	return engine.RecalculateChain(emp.ID, skeleton, h.Policies)
}

// RecalculateAll rebuilds every employee's chain. Errors on individual
// employees are recorded per-result, not fatal to the batch.
func (h *Handler) RecalculateAll(ctx context.Context, trigger string) ([]RecalcResultDTO, error) {
	employees, err := h.Store.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	results := make([]RecalcResultDTO, 0, len(employees))
	for _, emp := range employees {
		result, err := h.RecalculateEmployee(ctx, emp, trigger)
		if err != nil {
			h.Log.WithError(err).WithField("employee", emp.ID).
				Warn("recalculation failed")
		}
		results = append(results, result)
	}
	return results, nil
}

func (h *Handler) failRun(ctx context.Context, run sqlite.RecalcRun, cause error) {
	completed := h.now().UTC()
	run.Status = "failed"
	run.Error = cause.Error()
	run.CompletedAt = &completed
	if err := h.Store.SaveRecalcRun(ctx, run); err != nil {
		h.Log.WithError(err).Warn("failed to record failed recalc run")
	}
}
