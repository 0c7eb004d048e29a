/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates employees and leave
	requests, then recalculates the balance chains so the UI shows real
	engine output.

AVAILABLE SCENARIOS:

	new-hire:        First-year employee, annual leave not yet granted
	tenured:         Multi-year employee with capped carry-forward
	overdrawn:       Retroactive usage exceeding a year's balance

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create employees with chosen hire dates
 3. Insert approved leave requests
 4. Recalculate every chain

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "tenured"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: CreateEmployee, SubmitRequest (the production paths)
  - recalc.go: Chain recalculation
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "new-hire",
		Name:        "New Hire",
		Description: "First-year employee: sick and casual from day one, annual leave suppressed",
	},
	{
		ID:          "tenured",
		Name:        "Tenured Employee",
		Description: "Multi-year chain with capped annual carry-forward",
	},
	{
		ID:          "overdrawn",
		Name:        "Overdrawn Balance",
		Description: "Retroactive usage exceeding a year's balance, flagged not clamped",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "new-hire":
		err = h.loadNewHireScenario(ctx)
	case "tenured":
		err = h.loadTenuredScenario(ctx)
	case "overdrawn":
		err = h.loadOverdrawnScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadNewHireScenario: hired three months ago, still in work year one.
func (h *Handler) loadNewHireScenario(ctx context.Context) error {
	hire := h.now().AddDate(0, -3, 0)
	emp := leave.Employee{
		ID:       "demo-newhire",
		Name:     "Priya Nair",
		Email:    "priya@example.com",
		HireDate: hire,
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	if err := h.seedApprovedRequest(ctx, emp, leave.CategorySick, hire.AddDate(0, 1, 0), 2); err != nil {
		return err
	}

	_, err := h.RecalculateEmployee(ctx, emp, "manual")
	return err
}

// loadTenuredScenario: four completed years, light usage, so carry-forward
// hits the cap and the total ceiling becomes visible.
func (h *Handler) loadTenuredScenario(ctx context.Context) error {
	hire := h.now().AddDate(-4, 0, -30)
	emp := leave.Employee{
		ID:       "demo-tenured",
		Name:     "Marcus Webb",
		Email:    "marcus@example.com",
		HireDate: hire,
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	// A handful of annual days each year leaves plenty to carry.
	for year := 1; year <= 3; year++ {
		start := hire.AddDate(year, 1, 0)
		if err := h.seedApprovedRequest(ctx, emp, leave.CategoryAnnual, start, 5); err != nil {
			return err
		}
	}

	_, err := h.RecalculateEmployee(ctx, emp, "manual")
	return err
}

// loadOverdrawnScenario: a back-dated approved request pushes one year
// negative; later years then carry zero forward.
func (h *Handler) loadOverdrawnScenario(ctx context.Context) error {
	hire := h.now().AddDate(-2, 0, -30)
	emp := leave.Employee{
		ID:       "demo-overdrawn",
		Name:     "Elena Song",
		Email:    "elena@example.com",
		HireDate: hire,
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	// Work year two grants 20 annual days; this uses 23.
	start := hire.AddDate(1, 2, 0)
	if err := h.seedApprovedRequest(ctx, emp, leave.CategoryAnnual, start, 23); err != nil {
		return err
	}

	_, err := h.RecalculateEmployee(ctx, emp, "manual")
	return err
}

// seedApprovedRequest inserts an already-approved request with an explicit
// day count, bypassing weekend exclusion for demo determinism.
func (h *Handler) seedApprovedRequest(ctx context.Context, emp leave.Employee, category engine.Category, start time.Time, days int) error {
	workYear, err := engine.CalculateWorkYear(emp.HireDate, start)
	if err != nil {
		return err
	}

	decided := h.now()
	return h.Store.SaveRequest(ctx, leave.Request{
		ID:         uuid.NewString(),
		EmployeeID: emp.ID,
		Category:   category,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, days-1),
		TotalDays:  engine.DaysFromInt(days),
		WorkYear:   workYear,
		LeaveYear:  engine.LeaveYearFor(emp.HireDate, workYear),
		Status:     leave.StatusApproved,
		Reason:     "demo seed",
		DecidedBy:  "demo",
		DecidedAt:  &decided,
	})
}
