/*
allocation.go - Per-work-year leave allocation

PURPOSE:
  Determines how many days each category grants for a given work year.
  Encodes the first-year rule: categories marked GrantsFromYearOne are
  available immediately; the rest (annual leave) allocate zero until the
  employee has completed a full year.

This is a pure function of (workYear, policy). No proration: a category
either grants its full annual limit for the work year or nothing.
*/
package engine

// =============================================================================
// ALLOCATION CALCULATOR
// =============================================================================

// CalculateAllocation returns the per-category allocation for a work year.
// Categories that require a completed first year allocate zero in work
// year 1; everything else allocates its annual limit.
func CalculateAllocation(workYear int, policies PolicySet) Allocation {
	alloc := make(Allocation, len(policies))
	for category, policy := range policies {
		alloc[category] = CategoryAllocation(workYear, policy)
	}
	return alloc
}

// CategoryAllocation returns the allocation for a single category.
func CategoryAllocation(workYear int, policy CategoryPolicy) Days {
	if workYear <= 1 && !policy.GrantsFromYearOne {
		return ZeroDays()
	}
	return policy.AnnualLimit
}
