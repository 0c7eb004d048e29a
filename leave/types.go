// Package leave defines the leave-management domain on top of the accrual
// engine: concrete leave categories, the production policy set, and the
// request lifecycle the engine's `used` input is derived from.
package leave

import (
	"time"

	"github.com/warp/leave-engine/engine"
)

// =============================================================================
// LEAVE CATEGORIES
// =============================================================================

// Leave categories. The engine treats these as opaque policy keys; the
// canonical set lives here.
const (
	CategoryAnnual    engine.Category = "annual"
	CategorySick      engine.Category = "sick"
	CategoryCasual    engine.Category = "casual"
	CategoryMaternity engine.Category = "maternity"
	CategoryPaternity engine.Category = "paternity"
)

// NormalizeCategory maps legacy leave-type codes to canonical categories.
// Historical imports used short codes, and "medical" was a synonym for
// sick leave.
func NormalizeCategory(code string) (engine.Category, bool) {
	switch code {
	case "annual", "ANNUAL", "AL":
		return CategoryAnnual, true
	case "sick", "SICK", "SL", "medical", "MEDICAL", "ML":
		return CategorySick, true
	case "casual", "CASUAL", "CL":
		return CategoryCasual, true
	case "maternity", "MATERNITY":
		return CategoryMaternity, true
	case "paternity", "PATERNITY":
		return CategoryPaternity, true
	default:
		return "", false
	}
}

// =============================================================================
// REQUEST - Lifecycle and day counting
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Request is a leave request. Only approved requests count toward an
// employee's used days.
type Request struct {
	ID         string
	EmployeeID engine.EmployeeID
	Category   engine.Category
	StartDate  time.Time
	EndDate    time.Time
	TotalDays  engine.Days

	// WorkYear is the employment-anniversary year the request falls in
	// (by its start date); LeaveYear is the calendar year for reporting.
	WorkYear  int
	LeaveYear int

	Status    RequestStatus
	Reason    string
	DecidedBy string
	DecidedAt *time.Time
	CreatedAt time.Time
}

// CanTransitionTo reports whether a status transition is legal.
// pending -> approved | rejected | cancelled; approved -> cancelled.
func (r *Request) CanTransitionTo(next RequestStatus) bool {
	switch r.Status {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected || next == StatusCancelled
	case StatusApproved:
		return next == StatusCancelled
	default:
		return false
	}
}

// WorkingDays counts the days in [start, end] excluding weekends. This is
// how TotalDays is derived when a request is submitted.
func WorkingDays(start, end time.Time) engine.Days {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return engine.DaysFromInt(count)
}

// Overlaps reports whether two date ranges intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// =============================================================================
// USAGE AGGREGATION - The engine's `used` input
// =============================================================================

// Usage is approved days grouped by work year and category.
type Usage map[int]map[engine.Category]engine.Days

// Get returns the used days for a work year and category, zero if absent.
func (u Usage) Get(workYear int, category engine.Category) engine.Days {
	if byCat, ok := u[workYear]; ok {
		if d, ok := byCat[category]; ok {
			return d
		}
	}
	return engine.ZeroDays()
}

// SumApproved aggregates approved request days per work year and category.
// Pending, rejected, and cancelled requests contribute nothing.
func SumApproved(requests []Request) Usage {
	usage := make(Usage)
	for _, req := range requests {
		if req.Status != StatusApproved {
			continue
		}
		byCat, ok := usage[req.WorkYear]
		if !ok {
			byCat = make(map[engine.Category]engine.Days)
			usage[req.WorkYear] = byCat
		}
		byCat[req.Category] = byCat[req.Category].Add(req.TotalDays)
	}
	return usage
}

// ApplyUsage returns copies of the balance records with Used replaced by
// the aggregated approved-request totals. Records keep their other fields;
// the caller follows up with engine.RecalculateChain to re-derive
// carry-forward and remaining.
func ApplyUsage(balances []engine.Balance, usage Usage) []engine.Balance {
	out := make([]engine.Balance, len(balances))
	for i, b := range balances {
		b.Used = usage.Get(b.WorkYear, b.Category)
		out[i] = b
	}
	return out
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the minimal employee record the accrual engine needs: an
// identity and a hire date to anchor work-year arithmetic.
type Employee struct {
	ID        engine.EmployeeID
	Name      string
	Email     string
	HireDate  time.Time
	CreatedAt time.Time
}
