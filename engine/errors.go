/*
errors.go - Centralized error types for the accrual engine

PURPOSE:
  All engine error types in one place. Callers match with errors.Is /
  errors.As; structured types carry enough context (employee, work year,
  category) to log and decide remediation. The engine never retries or
  silently repairs data - surfacing the condition is the whole point.

ERROR CATEGORIES:
  1. Input errors   - invalid dates, malformed chains
  2. Policy errors  - categories with no configured policy (non-fatal)

Overdrawn balances are deliberately NOT an error: they are reported as a
flag on Balance so the caller can keep processing the rest of the chain.

SEE ALSO:
  - workyear.go: Returns InvalidDateError
  - chain.go: Returns MissingWorkYearError, collects PolicyNotConfiguredError
*/
package engine

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when an as-of date precedes the hire date.
	ErrInvalidDate = errors.New("as-of date precedes hire date")

	// ErrMissingWorkYear is returned when a balance chain has a gap that
	// prevents chained recomputation.
	ErrMissingWorkYear = errors.New("missing work year in balance chain")

	// ErrPolicyNotConfigured is returned when a leave category has no
	// policy entry. Non-fatal per category: processing of other
	// categories continues.
	ErrPolicyNotConfigured = errors.New("no policy configured for category")

	// ErrEmptyChain is returned when a chain recalculation is invoked
	// with no balance records at all.
	ErrEmptyChain = errors.New("balance chain is empty")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidDateError reports an as-of date before the hire date.
type InvalidDateError struct {
	HireDate time.Time
	AsOf     time.Time
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("as-of date %s precedes hire date %s",
		e.AsOf.Format("2006-01-02"), e.HireDate.Format("2006-01-02"))
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// MissingWorkYearError reports a gap in an employee's balance chain.
// Recomputation stops rather than guessing across the gap.
type MissingWorkYearError struct {
	EmployeeID EmployeeID
	WorkYear   int // the work year that was expected but absent
}

func (e *MissingWorkYearError) Error() string {
	return fmt.Sprintf("employee %s: work year %d missing from balance chain",
		e.EmployeeID, e.WorkYear)
}

func (e *MissingWorkYearError) Unwrap() error { return ErrMissingWorkYear }

// PolicyNotConfiguredError reports a category with no policy entry.
type PolicyNotConfiguredError struct {
	EmployeeID EmployeeID
	WorkYear   int
	Category   Category
}

func (e *PolicyNotConfiguredError) Error() string {
	if e.EmployeeID != "" {
		return fmt.Sprintf("employee %s work year %d: no policy configured for category %q",
			e.EmployeeID, e.WorkYear, e.Category)
	}
	return fmt.Sprintf("no policy configured for category %q", e.Category)
}

func (e *PolicyNotConfiguredError) Unwrap() error { return ErrPolicyNotConfigured }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrEmptyChain) ||
		errors.Is(err, ErrMissingWorkYear)
}
