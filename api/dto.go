/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Employee:
    EmployeeDTO, CreateEmployeeRequest

  Balance:
    BalanceDTO, BalanceSummaryDTO, AnniversaryDTO

  Request:
    SubmitLeaveRequest, LeaveRequestDTO, DecisionRequest

  Policy:
    wraps factory.PolicySetJSON directly

  Recalculation:
    RecalculateRequest, RecalcResultDTO, RecalcRunDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicySetJSON type
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	HireDate  string `json:"hire_date"`
	WorkYear  int    `json:"work_year,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	HireDate string `json:"hire_date"`
}

// AnniversaryDTO describes where an employee stands relative to their
// hire-date anniversary.
type AnniversaryDTO struct {
	EmployeeID      string `json:"employee_id"`
	HireDate        string `json:"hire_date"`
	CurrentWorkYear int    `json:"current_work_year"`
	NextAnniversary string `json:"next_anniversary"`
	DaysToGo        int    `json:"days_to_anniversary"`
}

// BalanceDTO represents one work-year/category balance record.
type BalanceDTO struct {
	Category       string  `json:"category"`
	WorkYear       int     `json:"work_year"`
	LeaveYear      int     `json:"leave_year"`
	Allocated      float64 `json:"allocated"`
	CarriedForward float64 `json:"carried_forward"`
	Used           float64 `json:"used"`
	Remaining      float64 `json:"remaining"`
	Overdrawn      bool    `json:"overdrawn,omitempty"`
}

// BalanceSummaryDTO is an employee's full balance picture: the current
// work year's balances per category plus the full history.
type BalanceSummaryDTO struct {
	EmployeeID      string       `json:"employee_id"`
	CurrentWorkYear int          `json:"current_work_year"`
	AsOf            string       `json:"as_of"`
	Current         []BalanceDTO `json:"current"`
	History         []BalanceDTO `json:"history"`
}

// SubmitLeaveRequest is the request body for submitting a leave request.
// total_days is optional; when omitted it is derived from the date range
// excluding weekends.
type SubmitLeaveRequest struct {
	Category  string   `json:"category"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	TotalDays *float64 `json:"total_days,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id"`
	EmployeeName string  `json:"employee_name,omitempty"`
	Category     string  `json:"category"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	TotalDays    float64 `json:"total_days"`
	WorkYear     int     `json:"work_year"`
	LeaveYear    int     `json:"leave_year"`
	Status       string  `json:"status"`
	Reason       string  `json:"reason,omitempty"`
	DecidedBy    string  `json:"decided_by,omitempty"`
	DecidedAt    string  `json:"decided_at,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// DecisionRequest carries the actor for approve/reject/cancel endpoints.
type DecisionRequest struct {
	DecidedBy string `json:"decided_by"`
	Reason    string `json:"reason,omitempty"`
}

// RecalculateRequest triggers a chain recalculation. Empty employee_id
// means every employee.
type RecalculateRequest struct {
	EmployeeID string `json:"employee_id,omitempty"`
}

// RecalcResultDTO is the outcome of one employee's chain recalculation.
type RecalcResultDTO struct {
	EmployeeID      string   `json:"employee_id"`
	BalancesWritten int      `json:"balances_written"`
	Skipped         []string `json:"skipped_categories,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// RecalcRunDTO represents a recorded recalculation run.
type RecalcRunDTO struct {
	ID              string   `json:"id"`
	EmployeeID      string   `json:"employee_id"`
	Trigger         string   `json:"trigger"`
	Status          string   `json:"status"`
	BalancesWritten int      `json:"balances_written"`
	Skipped         []string `json:"skipped_categories,omitempty"`
	Error           string   `json:"error,omitempty"`
	CompletedAt     string   `json:"completed_at,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(emp leave.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:       string(emp.ID),
		Name:     emp.Name,
		Email:    emp.Email,
		HireDate: emp.HireDate.Format("2006-01-02"),
	}
	if !emp.CreatedAt.IsZero() {
		dto.CreatedAt = emp.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toBalanceDTO(b engine.Balance) BalanceDTO {
	return BalanceDTO{
		Category:       string(b.Category),
		WorkYear:       b.WorkYear,
		LeaveYear:      b.LeaveYear,
		Allocated:      b.Allocated.Float64(),
		CarriedForward: b.CarriedForward.Float64(),
		Used:           b.Used.Float64(),
		Remaining:      b.Remaining.Float64(),
		Overdrawn:      b.Overdrawn,
	}
}

func toBalanceDTOs(balances []engine.Balance) []BalanceDTO {
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	return dtos
}

func toRequestDTO(r leave.Request) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:         r.ID,
		EmployeeID: string(r.EmployeeID),
		Category:   string(r.Category),
		StartDate:  r.StartDate.Format("2006-01-02"),
		EndDate:    r.EndDate.Format("2006-01-02"),
		TotalDays:  r.TotalDays.Float64(),
		WorkYear:   r.WorkYear,
		LeaveYear:  r.LeaveYear,
		Status:     string(r.Status),
		Reason:     r.Reason,
		DecidedBy:  r.DecidedBy,
	}
	if r.DecidedAt != nil {
		dto.DecidedAt = r.DecidedAt.Format(time.RFC3339)
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toRecalcRunDTO(run sqlite.RecalcRun) RecalcRunDTO {
	dto := RecalcRunDTO{
		ID:              run.ID,
		EmployeeID:      string(run.EmployeeID),
		Trigger:         run.Trigger,
		Status:          run.Status,
		BalancesWritten: run.BalancesWritten,
		Skipped:         run.Skipped,
		Error:           run.Error,
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
