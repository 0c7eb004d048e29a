/*
handlers.go - HTTP API handlers for the leave accrual system

PURPOSE:
  Exposes the accrual engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                  List all employees
    POST   /api/employees                  Create employee
    GET    /api/employees/{id}             Get employee details
    DELETE /api/employees/{id}             Remove employee
    GET    /api/employees/{id}/balances    Balance summary (current + history)
    GET    /api/employees/{id}/anniversary Anniversary projection
    GET    /api/employees/{id}/requests    Request history
    POST   /api/employees/{id}/requests    Submit leave request

  Requests:
    GET    /api/requests/pending           Approval queue
    POST   /api/requests/{id}/approve      Approve (triggers recalculation)
    POST   /api/requests/{id}/reject       Reject
    POST   /api/requests/{id}/cancel       Cancel (triggers recalculation)

  Policies:
    GET    /api/policies                   Active policy set as JSON
    PUT    /api/policies                   Replace the policy set

  Admin:
    POST   /api/admin/recalculate          Rebuild chains (one or all)
    GET    /api/admin/recalc-runs          Recalculation audit trail
    GET    /api/admin/overdrawn            All overdrawn balances

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Policies: The active policy set
  - PolicyFactory: JSON to PolicySet conversion
  - Log: Structured logger

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (illegal status transition, overlapping request)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - recalc.go: Chain recalculation service
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	Policies      engine.PolicySet
	PolicyFactory *factory.PolicyFactory
	Log           *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewHandler creates a new handler with the given store and policy set.
func NewHandler(store *sqlite.Store, policies engine.PolicySet, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Store:         store,
		Policies:      policies,
		PolicyFactory: factory.NewPolicyFactory(),
		Log:           log,
		now:           time.Now,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
		if wy, err := engine.CalculateWorkYear(e.HireDate, h.now()); err == nil {
			dtos[i].WorkYear = wy
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := engine.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	dto := toEmployeeDTO(*emp)
	if wy, err := engine.CalculateWorkYear(emp.HireDate, h.now()); err == nil {
		dto.WorkYear = wy
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreateEmployee creates a new employee and seeds their balance chain.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}
	if hireDate.After(h.now()) {
		writeError(w, http.StatusBadRequest, "hire_date cannot be in the future", nil)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	emp := leave.Employee{
		ID:       engine.EmployeeID(req.ID),
		Name:     req.Name,
		Email:    req.Email,
		HireDate: hireDate,
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	// Seed the chain so balances exist before the first request.
	if _, err := h.RecalculateEmployee(r.Context(), emp, "manual"); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to initialize balances", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// DeleteEmployee removes an employee and all their data.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := engine.EmployeeID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteEmployee(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete employee", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalances returns the balance summary for an employee: the current work
// year's records plus full history.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := engine.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	currentWY, err := engine.CalculateWorkYear(emp.HireDate, h.now())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	balances, err := h.Store.GetBalances(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get balances", err)
		return
	}

	summary := BalanceSummaryDTO{
		EmployeeID:      string(id),
		CurrentWorkYear: currentWY,
		AsOf:            h.now().Format("2006-01-02"),
		Current:         []BalanceDTO{},
		History:         toBalanceDTOs(balances),
	}
	for _, b := range balances {
		if b.WorkYear == currentWY {
			summary.Current = append(summary.Current, toBalanceDTO(b))
		}
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetAnniversary returns the anniversary projection for an employee.
func (h *Handler) GetAnniversary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := engine.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	info, err := engine.Anniversary(emp.HireDate, h.now())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AnniversaryDTO{
		EmployeeID:      string(id),
		HireDate:        info.HireDate.Format("2006-01-02"),
		CurrentWorkYear: info.CurrentWorkYear,
		NextAnniversary: info.NextAnniversary.Format("2006-01-02"),
		DaysToGo:        info.DaysUntilNextAnniversary,
	})
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ListEmployeeRequests returns an employee's request history.
func (h *Handler) ListEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	id := engine.EmployeeID(chi.URLParam(r, "id"))

	requests, err := h.Store.ListRequestsByEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get requests", err)
		return
	}

	dtos := make([]LeaveRequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitRequest submits a leave request for an employee. The request lands
// in pending status; balances change only on approval.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := engine.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}

	var body SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	category, ok := leave.NormalizeCategory(body.Category)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown leave category", nil)
		return
	}
	if _, err := h.Policies.Policy(category); err != nil {
		writeError(w, http.StatusBadRequest, "No policy configured for category", err)
		return
	}

	start, err := time.Parse("2006-01-02", body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := time.Parse("2006-01-02", body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date before start_date", nil)
		return
	}

	totalDays := leave.WorkingDays(start, end)
	if body.TotalDays != nil {
		totalDays = engine.DaysFrom(*body.TotalDays)
	}
	if !totalDays.IsPositive() {
		writeError(w, http.StatusBadRequest, "Request covers no working days", nil)
		return
	}

	// Reject overlap with any live request.
	existing, err := h.Store.ListRequestsByEmployee(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check overlaps", err)
		return
	}
	for _, other := range existing {
		if other.Status != leave.StatusPending && other.Status != leave.StatusApproved {
			continue
		}
		if leave.Overlaps(start, end, other.StartDate, other.EndDate) {
			writeError(w, http.StatusConflict, "Dates overlap an existing request", nil)
			return
		}
	}

	workYear, err := engine.CalculateWorkYear(emp.HireDate, start)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	req := leave.Request{
		ID:         uuid.NewString(),
		EmployeeID: id,
		Category:   category,
		StartDate:  start,
		EndDate:    end,
		TotalDays:  totalDays,
		WorkYear:   workYear,
		LeaveYear:  engine.LeaveYearFor(emp.HireDate, workYear),
		Status:     leave.StatusPending,
		Reason:     body.Reason,
	}

	if err := h.Store.SaveRequest(ctx, req); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save request", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

// ListPendingRequests returns the approval queue, oldest first.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requests, err := h.Store.ListRequestsByStatus(ctx, leave.StatusPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pending requests", err)
		return
	}

	dtos := make([]LeaveRequestDTO, 0, len(requests))
	for _, req := range requests {
		dto := toRequestDTO(req)
		if emp, _ := h.Store.GetEmployee(ctx, req.EmployeeID); emp != nil {
			dto.EmployeeName = emp.Name
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, map[string]any{"requests": dtos})
}

// ApproveRequest approves a pending request and recalculates the chain.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, leave.StatusApproved)
}

// RejectRequest rejects a pending request. Balances are untouched because
// pending requests never counted.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, leave.StatusRejected)
}

// CancelRequest cancels a pending or approved request. Cancelling an
// approved request gives the days back and cascades through later years.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRequest(w, r, leave.StatusCancelled)
}

func (h *Handler) decideRequest(w http.ResponseWriter, r *http.Request, next leave.RequestStatus) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var body DecisionRequest
	json.NewDecoder(r.Body).Decode(&body)
	if body.DecidedBy == "" {
		body.DecidedBy = "admin"
	}

	req, err := h.Store.GetRequest(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get request", err)
		return
	}
	if req == nil {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}
	if !req.CanTransitionTo(next) {
		writeError(w, http.StatusConflict,
			"Illegal status transition from "+string(req.Status), nil)
		return
	}

	wasApproved := req.Status == leave.StatusApproved

	now := h.now()
	req.Status = next
	req.DecidedBy = body.DecidedBy
	req.DecidedAt = &now
	if body.Reason != "" {
		req.Reason = body.Reason
	}

	if err := h.Store.SaveRequest(ctx, *req); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update request", err)
		return
	}

	// Usage changed when a request becomes approved or stops being approved.
	if next == leave.StatusApproved || wasApproved {
		emp, err := h.Store.GetEmployee(ctx, req.EmployeeID)
		if err != nil || emp == nil {
			writeError(w, http.StatusInternalServerError, "Failed to load employee for recalculation", err)
			return
		}
		if _, err := h.RecalculateEmployee(ctx, *emp, "request"); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to recalculate balances", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// GetPolicies returns the active policy set as JSON.
func (h *Handler) GetPolicies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(h.Policies))
}

// UpdatePolicies replaces the active policy set. Existing balances keep
// their old values until the next recalculation.
func (h *Handler) UpdatePolicies(w http.ResponseWriter, r *http.Request) {
	var psj factory.PolicySetJSON
	if err := json.NewDecoder(r.Body).Decode(&psj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	set, err := h.PolicyFactory.FromJSON(psj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy configuration", err)
		return
	}

	h.Policies = set
	h.Log.WithField("categories", len(set)).Info("policy set replaced")

	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(set))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerRecalculation rebuilds chains for one employee or everyone.
func (h *Handler) TriggerRecalculation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecalculateRequest
	json.NewDecoder(r.Body).Decode(&req)

	if req.EmployeeID != "" {
		emp, err := h.Store.GetEmployee(ctx, engine.EmployeeID(req.EmployeeID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
			return
		}
		if emp == nil {
			writeError(w, http.StatusNotFound, "Employee not found", nil)
			return
		}

		result, err := h.RecalculateEmployee(ctx, *emp, "manual")
		if err != nil {
			if engine.IsClientError(err) {
				writeError(w, http.StatusBadRequest, "Recalculation rejected", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "Recalculation failed", err)
			return
		}
		writeJSON(w, http.StatusOK, []RecalcResultDTO{result})
		return
	}

	results, err := h.RecalculateAll(ctx, "manual")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Recalculation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// ListRecalcRuns returns the recalculation audit trail.
func (h *Handler) ListRecalcRuns(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	runs, err := h.Store.ListRecalcRuns(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get recalc runs", err)
		return
	}

	dtos := make([]RecalcRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRecalcRunDTO(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// ListOverdrawn returns all overdrawn balances for HR follow-up.
func (h *Handler) ListOverdrawn(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Store.ListOverdrawn(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get overdrawn balances", err)
		return
	}

	type overdrawnDTO struct {
		EmployeeID string `json:"employee_id"`
		BalanceDTO
	}
	dtos := make([]overdrawnDTO, 0, len(balances))
	for _, b := range balances {
		dtos = append(dtos, overdrawnDTO{
			EmployeeID: string(b.EmployeeID),
			BalanceDTO: toBalanceDTO(b),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"overdrawn": dtos})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors onto HTTP statuses: validation
// failures are the caller's fault, everything else is ours.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "Invalid date", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
