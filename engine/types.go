/*
Package engine implements the leave-year accrual engine.

PURPOSE:
  This package contains the pure computation at the heart of leave
  management: per-work-year allocation, capped carry-forward between
  work years, and balance projection. It is the single authoritative
  code path for computing `carriedForward` and `remaining` - the host
  application persists what this package computes and never derives
  those values anywhere else.

KEY CONCEPTS IN THIS FILE (types.go):
  - Days: A day quantity backed by decimal.Decimal (half days stay exact)
  - Category: A leave category (annual, sick, casual, ...)
  - CategoryPolicy / PolicySet: Per-category accrual and carry-forward rules
  - Balance: One employee's balance for one work year and category
  - AnniversaryInfo: Display projection of the hire-date anniversary

DESIGN PRINCIPLES:
  1. Purity: No I/O, no clocks, no shared state. Inputs in, outputs out.
  2. Precision: decimal.Decimal arithmetic, never float64 accumulation.
  3. Recomputability: Remaining is always Allocated + CarriedForward - Used.
     It is derived, never independently mutated.
  4. Honesty: Overdrawn balances are reported as negative with a flag,
     never silently clamped.

WORK YEARS:
  A work year is an employment-anniversary year, counted from 1. An
  employee hired 2022-01-15 is in work year 1 until 2023-01-14, work
  year 2 from 2023-01-15, and so on. Balances are keyed by work year,
  not calendar year; the calendar LeaveYear tag exists for reporting.

USAGE:
  policies := engine.PolicySet{
      engine.CategoryAnnual: {AnnualLimit: engine.DaysFromInt(20),
          CarryForwardCap: engine.DaysFromInt(20),
          TotalCap: engine.DaysPtr(40)},
  }
  wy, err := engine.CalculateWorkYear(hireDate, time.Now())
  alloc := engine.CalculateAllocation(wy, policies)

SEE ALSO:
  - workyear.go: Anniversary arithmetic
  - allocation.go: Per-work-year allocation rules
  - carryforward.go: Capped carry-forward reconciliation
  - chain.go: Full-chain recalculation across work years
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Day quantity with exact decimal arithmetic
// =============================================================================

// Days is a quantity of leave days. Backed by decimal.Decimal so half-day
// requests and fractional corrections never drift.
type Days struct {
	Value decimal.Decimal
}

func DaysFrom(value float64) Days  { return Days{Value: decimal.NewFromFloat(value)} }
func DaysFromInt(value int) Days   { return Days{Value: decimal.NewFromInt(int64(value))} }
func ZeroDays() Days               { return Days{Value: decimal.Zero} }

func (d Days) Add(o Days) Days        { return Days{Value: d.Value.Add(o.Value)} }
func (d Days) Sub(o Days) Days        { return Days{Value: d.Value.Sub(o.Value)} }
func (d Days) Neg() Days              { return Days{Value: d.Value.Neg()} }
func (d Days) IsZero() bool           { return d.Value.IsZero() }
func (d Days) IsNegative() bool       { return d.Value.IsNegative() }
func (d Days) IsPositive() bool       { return d.Value.IsPositive() }
func (d Days) Equal(o Days) bool      { return d.Value.Equal(o.Value) }
func (d Days) GreaterThan(o Days) bool { return d.Value.GreaterThan(o.Value) }
func (d Days) LessThan(o Days) bool    { return d.Value.LessThan(o.Value) }

func (d Days) Min(o Days) Days {
	if d.LessThan(o) {
		return d
	}
	return o
}

func (d Days) Max(o Days) Days {
	if d.GreaterThan(o) {
		return d
	}
	return o
}

// Float64 returns the quantity as a float64 for display and persistence.
func (d Days) Float64() float64 {
	f, _ := d.Value.Float64()
	return f
}

func (d Days) String() string { return d.Value.String() }

// DaysPtr is a convenience for optional caps.
func DaysPtr(value float64) *Days {
	d := DaysFrom(value)
	return &d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// Category identifies a leave category. Concrete values are defined by the
// domain layer (see the leave package); the engine treats categories as
// opaque keys into a PolicySet.
type Category string

// =============================================================================
// POLICY - Per-category accrual and carry-forward rules
// =============================================================================

// CategoryPolicy is the ruleset for one leave category.
type CategoryPolicy struct {
	Category Category

	// AnnualLimit is the number of days granted per work year once the
	// category is active for the employee.
	AnnualLimit Days

	// CarryForwardCap limits how many unused days may transfer from one
	// work year into the next, regardless of how much remains. Zero means
	// the category never carries forward.
	CarryForwardCap Days

	// TotalCap, when set, limits allocated + carried-forward for a single
	// work year. Carry-forward is clipped so the sum never exceeds it.
	TotalCap *Days

	// GrantsFromYearOne controls first-year availability. Annual leave is
	// typically granted only after the first completed year; sick and
	// casual leave are available from day one.
	GrantsFromYearOne bool
}

// PolicySet maps leave categories to their policies.
type PolicySet map[Category]CategoryPolicy

// Policy returns the policy for a category, or a PolicyNotConfiguredError
// if the category has no entry.
func (ps PolicySet) Policy(category Category) (CategoryPolicy, error) {
	p, ok := ps[category]
	if !ok {
		return CategoryPolicy{}, &PolicyNotConfiguredError{Category: category}
	}
	return p, nil
}

// Categories returns the configured categories in stable (sorted) order.
func (ps PolicySet) Categories() []Category {
	cats := make([]Category, 0, len(ps))
	for c := range ps {
		cats = append(cats, c)
	}
	for i := 1; i < len(cats); i++ {
		for j := i; j > 0 && cats[j] < cats[j-1]; j-- {
			cats[j], cats[j-1] = cats[j-1], cats[j]
		}
	}
	return cats
}

// =============================================================================
// ALLOCATION - Days granted per category for one work year
// =============================================================================

// Allocation is the per-category grant for a single work year.
type Allocation map[Category]Days

// Get returns the allocation for a category, zero if absent.
func (a Allocation) Get(category Category) Days {
	if d, ok := a[category]; ok {
		return d
	}
	return ZeroDays()
}

// =============================================================================
// BALANCE - One employee, one work year, one category
// =============================================================================

// Balance is the accrual state for one employee/work-year/category.
//
// INVARIANT: Remaining == Allocated + CarriedForward - Used, always.
// Remaining is derived by ProjectBalance and never mutated directly.
type Balance struct {
	EmployeeID EmployeeID
	Category   Category

	// WorkYear is the employment-anniversary year (1-based).
	WorkYear int

	// LeaveYear is the calendar year the work year ends in, kept for
	// reporting alongside the work year.
	LeaveYear int

	Allocated      Days
	CarriedForward Days
	Used           Days
	Remaining      Days

	// Overdrawn is set when Used exceeds Allocated + CarriedForward.
	// The literal (negative) Remaining is preserved; callers decide how
	// to surface the condition.
	Overdrawn bool
}

// =============================================================================
// ANNIVERSARY INFO - Display projection
// =============================================================================

// AnniversaryInfo describes where an employee stands relative to their
// hire-date anniversary. Purely informational.
type AnniversaryInfo struct {
	HireDate                 time.Time
	CurrentWorkYear          int
	NextAnniversary          time.Time
	DaysUntilNextAnniversary int
}
