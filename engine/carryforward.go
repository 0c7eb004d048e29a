/*
carryforward.go - Capped carry-forward reconciliation

PURPOSE:
  Computes the days that transfer from one work year's ending balance
  into the next, under two ceilings:

    1. Individual cap: never carry more than CarryForwardCap days,
       no matter how much remains unused.
    2. Total cap (optional): the new year's allocated + carried-forward
       sum may not exceed TotalCap. Carry-forward is clipped to
       max(0, TotalCap - newAllocation).

  Formula: min(priorRemaining, carryCap, max(0, totalCap - newAllocation)),
  floored at zero.

IDEMPOTENCE:
  The same inputs always produce the same output. When an upstream
  balance changes (a retroactively cancelled request, a manual
  correction), re-invoking with the corrected remaining propagates the
  new value - chain.go does exactly that for every downstream year.

EXAMPLE:
  Prior year remaining 25, new allocation 20, carry cap 20, total cap 40:
  min(25, 20) = 20; total-cap headroom 40-20 = 20; carry-forward = 20.

  Prior year remaining 18, new allocation 25, carry cap 20, total cap 40:
  min(18, 20) = 18; headroom 40-25 = 15; carry-forward = 15.
*/
package engine

// =============================================================================
// CARRY-FORWARD RECONCILER
// =============================================================================

// ReconcileCarryForward returns the days carried from a work year with the
// given ending remaining into a year with the given new allocation. The
// result is always >= 0 and deterministic in its inputs.
func ReconcileCarryForward(priorRemaining, newAllocation Days, policy CategoryPolicy) Days {
	if !priorRemaining.IsPositive() {
		return ZeroDays()
	}

	carry := priorRemaining.Min(policy.CarryForwardCap)

	if policy.TotalCap != nil {
		headroom := policy.TotalCap.Sub(newAllocation).Max(ZeroDays())
		carry = carry.Min(headroom)
	}

	return carry.Max(ZeroDays())
}
