/*
projection.go - Balance projection

PURPOSE:
  Derives Remaining from its components. Remaining is never a stored
  source of truth - any time Allocated, CarriedForward, or Used changes,
  the balance is re-projected from scratch.

OVERDRAWN POLICY:
  When Used exceeds Allocated + CarriedForward (a race, or a manual
  override), the literal negative Remaining is reported together with
  Overdrawn=true. The engine never clamps: clamping hides the deficit
  and makes the next carry-forward silently wrong. Callers decide how
  to surface overdrawn balances.
*/
package engine

// =============================================================================
// BALANCE PROJECTOR
// =============================================================================

// ProjectBalance derives the full balance from its components.
// Remaining = allocated + carriedForward - used, exactly.
func ProjectBalance(allocated, carriedForward, used Days) Balance {
	remaining := allocated.Add(carriedForward).Sub(used)
	return Balance{
		Allocated:      allocated,
		CarriedForward: carriedForward,
		Used:           used,
		Remaining:      remaining,
		Overdrawn:      remaining.IsNegative(),
	}
}

// Reproject recomputes Remaining and Overdrawn on an existing balance,
// preserving its identity tags.
func Reproject(b Balance) Balance {
	projected := ProjectBalance(b.Allocated, b.CarriedForward, b.Used)
	projected.EmployeeID = b.EmployeeID
	projected.Category = b.Category
	projected.WorkYear = b.WorkYear
	projected.LeaveYear = b.LeaveYear
	return projected
}
