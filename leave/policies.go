/*
policies.go - Production leave policy configurations

PURPOSE:
  Ready-to-use policy sets matching the organization's observed rules:

  Annual:    20 days/work-year, granted only after the first completed
             year, carry-forward capped at 20 days with a 40-day total
             ceiling (allocated + carried may never exceed 40).
  Sick:      10 days/work-year from day one, resets every anniversary.
  Casual:    10 days/work-year from day one, resets every anniversary.
  Maternity: 90 days, granted from day one, no carry-forward.
  Paternity: 10 days, granted from day one, no carry-forward.

CUSTOMIZATION:
  These are defaults. Admin-configured policy sets come through the
  factory package's JSON form and override these at startup.
*/
package leave

import "github.com/warp/leave-engine/engine"

// Observed production limits.
const (
	DefaultAnnualLimit     = 20
	DefaultSickLimit       = 10
	DefaultCasualLimit     = 10
	DefaultMaternityLimit  = 90
	DefaultPaternityLimit  = 10
	DefaultCarryForwardCap = 20
	DefaultTotalCap        = 40
)

// DefaultPolicySet returns the standard policy configuration.
func DefaultPolicySet() engine.PolicySet {
	return engine.PolicySet{
		CategoryAnnual:    AnnualPolicy(DefaultAnnualLimit, DefaultCarryForwardCap, DefaultTotalCap),
		CategorySick:      NonCarryingPolicy(CategorySick, DefaultSickLimit),
		CategoryCasual:    NonCarryingPolicy(CategoryCasual, DefaultCasualLimit),
		CategoryMaternity: NonCarryingPolicy(CategoryMaternity, DefaultMaternityLimit),
		CategoryPaternity: NonCarryingPolicy(CategoryPaternity, DefaultPaternityLimit),
	}
}

// AnnualPolicy builds the annual-leave policy: suppressed in work year 1,
// carry-forward capped individually and by the combined total.
func AnnualPolicy(annualLimit, carryCap, totalCap float64) engine.CategoryPolicy {
	return engine.CategoryPolicy{
		Category:          CategoryAnnual,
		AnnualLimit:       engine.DaysFrom(annualLimit),
		CarryForwardCap:   engine.DaysFrom(carryCap),
		TotalCap:          engine.DaysPtr(totalCap),
		GrantsFromYearOne: false,
	}
}

// NonCarryingPolicy builds a policy that grants from day one and resets
// on every anniversary (sick, casual, maternity, paternity).
func NonCarryingPolicy(category engine.Category, annualLimit float64) engine.CategoryPolicy {
	return engine.CategoryPolicy{
		Category:          category,
		AnnualLimit:       engine.DaysFrom(annualLimit),
		CarryForwardCap:   engine.ZeroDays(),
		GrantsFromYearOne: true,
	}
}
