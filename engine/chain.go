/*
chain.go - Full-chain recalculation across work years

PURPOSE:
  The cascading-recompute operation. Each work year's carry-forward
  depends on the previous year's remaining, so any edit to historical
  leave data (approval, cancellation, manual correction) invalidates
  every subsequent year. RecalculateChain walks the whole chain in
  ascending work-year order and rebuilds carry-forward and remaining
  from the ground up, making the cross-record invariant mechanical
  instead of something patched by hand when bugs are noticed.

FAILURE SEMANTICS:
  - A gap in the work-year sequence aborts that category's chain with
    MissingWorkYearError: the engine does not guess across gaps.
  - A category with no configured policy is skipped and reported in the
    result; other categories still process.

WHAT IS AND IS NOT RECOMPUTED:
  CarriedForward and Remaining are always recomputed. Allocated and Used
  are caller-supplied inputs: Allocated may carry manual corrections the
  recalculation must not undo, and Used comes from summing approved
  requests, which is the caller's (or the leave package's) job.

CONCURRENCY:
  Pure function; returns fresh records, never mutates its input. The
  caller must serialize chain updates per employee at the persistence
  boundary (two concurrent approvals racing through here would be a
  lost-update bug on the caller's side, not a data race here).
*/
package engine

import (
	"sort"
	"time"
)

// =============================================================================
// CHAIN RECALCULATOR
// =============================================================================

// ChainResult is the outcome of a full-chain recalculation.
type ChainResult struct {
	// Balances are the recomputed records, sorted by category then
	// work year. Input records are never mutated.
	Balances []Balance

	// Skipped reports categories that could not be processed because no
	// policy was configured. Non-fatal: the rest of the chain is valid.
	Skipped []*PolicyNotConfiguredError
}

// RecalculateChain recomputes carry-forward and remaining for every work
// year in an employee's balance history. Records may arrive in any order;
// they are grouped per category and walked ascending. For each year after
// the chain's first, CarriedForward is recomputed from the just-updated
// prior year's Remaining, then Remaining is re-projected.
//
// A chain that starts at work year 1 has its first CarriedForward forced
// to zero (nothing precedes employment). A chain starting later keeps its
// first record's CarriedForward as supplied, since the prior year is not
// available to recompute from.
func RecalculateChain(employeeID EmployeeID, balances []Balance, policies PolicySet) (ChainResult, error) {
	if len(balances) == 0 {
		return ChainResult{}, ErrEmptyChain
	}

	byCategory := make(map[Category][]Balance)
	for _, b := range balances {
		byCategory[b.Category] = append(byCategory[b.Category], b)
	}

	result := ChainResult{}

	for _, category := range sortedCategories(byCategory) {
		chain := byCategory[category]

		policy, err := policies.Policy(category)
		if err != nil {
			result.Skipped = append(result.Skipped, &PolicyNotConfiguredError{
				EmployeeID: employeeID,
				WorkYear:   chain[0].WorkYear,
				Category:   category,
			})
			continue
		}

		recomputed, err := recalculateCategory(employeeID, chain, policy)
		if err != nil {
			return ChainResult{}, err
		}
		result.Balances = append(result.Balances, recomputed...)
	}

	return result, nil
}

func recalculateCategory(employeeID EmployeeID, chain []Balance, policy CategoryPolicy) ([]Balance, error) {
	sort.Slice(chain, func(i, j int) bool { return chain[i].WorkYear < chain[j].WorkYear })

	// Reject gaps before touching anything.
	for i := 1; i < len(chain); i++ {
		if chain[i].WorkYear != chain[i-1].WorkYear+1 {
			return nil, &MissingWorkYearError{
				EmployeeID: employeeID,
				WorkYear:   chain[i-1].WorkYear + 1,
			}
		}
	}

	out := make([]Balance, len(chain))
	for i, b := range chain {
		b.EmployeeID = employeeID

		switch {
		case i == 0 && b.WorkYear == 1:
			// Nothing precedes employment.
			b.CarriedForward = ZeroDays()
		case i > 0:
			b.CarriedForward = ReconcileCarryForward(out[i-1].Remaining, b.Allocated, policy)
		}

		out[i] = Reproject(b)
	}

	return out, nil
}

func sortedCategories(m map[Category][]Balance) []Category {
	cats := make([]Category, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// =============================================================================
// NEW WORK YEAR - Anniversary-boundary allocation
// =============================================================================

// AllocateWorkYear builds the balance records for a newly-entered work
// year. priorRemaining supplies each category's ending remaining from the
// previous work year (absent entries mean nothing to carry). The caller
// appends these records to the chain and persists them.
func AllocateWorkYear(
	employeeID EmployeeID,
	hireDate time.Time,
	workYear int,
	priorRemaining map[Category]Days,
	policies PolicySet,
) []Balance {
	leaveYear := LeaveYearFor(hireDate, workYear)

	var out []Balance
	for _, category := range policies.Categories() {
		policy := policies[category]
		allocated := CategoryAllocation(workYear, policy)

		carried := ZeroDays()
		if workYear > 1 {
			if prior, ok := priorRemaining[category]; ok {
				carried = ReconcileCarryForward(prior, allocated, policy)
			}
		}

		b := ProjectBalance(allocated, carried, ZeroDays())
		b.EmployeeID = employeeID
		b.Category = category
		b.WorkYear = workYear
		b.LeaveYear = leaveYear
		out = append(out, b)
	}
	return out
}
