package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func annualBalance(workYear int, allocated, carried, used float64) engine.Balance {
	return engine.Balance{
		Category:       catAnnual,
		WorkYear:       workYear,
		Allocated:      days(allocated),
		CarriedForward: days(carried),
		Used:           days(used),
	}
}

func findBalance(t *testing.T, balances []engine.Balance, category engine.Category, workYear int) engine.Balance {
	t.Helper()
	for _, b := range balances {
		if b.Category == category && b.WorkYear == workYear {
			return b
		}
	}
	t.Fatalf("no %s balance for work year %d", category, workYear)
	return engine.Balance{}
}

// =============================================================================
// CHAIN PROPAGATION
// =============================================================================

func TestRecalculateChain_PropagatesThroughYears(t *testing.T) {
	// GIVEN: Employee hired 2022-01-15.
	//        Work year 1: annual allocated 0 (first-year suppression), used 0.
	//        Work year 2: allocated 20, used 5.
	//        Work year 3: allocated 20.
	// WHEN: Recalculating the chain
	// THEN: WY2 remaining 15, WY3 carry min(15,20)=15, WY3 remaining 35.

	chain := []engine.Balance{
		annualBalance(1, 0, 0, 0),
		annualBalance(2, 20, 0, 5),
		annualBalance(3, 20, 0, 0),
	}

	result, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.NoError(t, err)
	require.Empty(t, result.Skipped)

	wy2 := findBalance(t, result.Balances, catAnnual, 2)
	assert.True(t, wy2.Remaining.Equal(days(15)))

	wy3 := findBalance(t, result.Balances, catAnnual, 3)
	assert.True(t, wy3.CarriedForward.Equal(days(15)), "got %s", wy3.CarriedForward)
	assert.True(t, wy3.Remaining.Equal(days(35)), "got %s", wy3.Remaining)
}

func TestRecalculateChain_RetroactiveCancellation_Cascades(t *testing.T) {
	// GIVEN: The chain above, after a work-year-2 request is cancelled
	//        (used drops from 5 to 0)
	// WHEN: Recalculating
	// THEN: WY2 remaining 20; WY3 carry min(20,20)=20.

	chain := []engine.Balance{
		annualBalance(1, 0, 0, 0),
		annualBalance(2, 20, 0, 0),
		annualBalance(3, 20, 15, 0), // stale carry from before the cancellation
	}

	result, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.NoError(t, err)

	wy2 := findBalance(t, result.Balances, catAnnual, 2)
	assert.True(t, wy2.Remaining.Equal(days(20)))

	wy3 := findBalance(t, result.Balances, catAnnual, 3)
	assert.True(t, wy3.CarriedForward.Equal(days(20)), "stale carry must be corrected, got %s", wy3.CarriedForward)
	assert.True(t, wy3.Remaining.Equal(days(40)))
}

func TestRecalculateChain_FirstYearCarry_ForcedToZero(t *testing.T) {
	// Nothing precedes employment: a work-year-1 record with a bogus
	// carried-forward value is corrected to zero.
	chain := []engine.Balance{annualBalance(1, 0, 7, 0)}

	result, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.NoError(t, err)

	wy1 := findBalance(t, result.Balances, catAnnual, 1)
	assert.True(t, wy1.CarriedForward.IsZero())
	assert.True(t, wy1.Remaining.IsZero())
}

func TestRecalculateChain_TotalCapAppliedPerYear(t *testing.T) {
	// WY2 ends with 25 remaining; WY3 allocates 20 under a 40-day total
	// cap, so carry is min(min(25,20), 40-20) = 20.
	chain := []engine.Balance{
		annualBalance(1, 0, 0, 0),
		annualBalance(2, 20, 15, 10), // 20+15-10 = 25 remaining
		annualBalance(3, 20, 0, 0),
	}

	// WY2's own carry gets recomputed from WY1 remaining (0), so feed the
	// 25-day scenario through allocated+used instead.
	chain[1] = annualBalance(2, 30, 0, 5)

	result, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.NoError(t, err)

	wy2 := findBalance(t, result.Balances, catAnnual, 2)
	require.True(t, wy2.Remaining.Equal(days(25)))

	wy3 := findBalance(t, result.Balances, catAnnual, 3)
	assert.True(t, wy3.CarriedForward.Equal(days(20)), "got %s", wy3.CarriedForward)
}

func TestRecalculateChain_OverdrawnYear_PropagatesZeroNotNegative(t *testing.T) {
	// GIVEN: WY2 is overdrawn (used 25 of 20)
	// WHEN: Recalculating
	// THEN: WY2 reports -5 with the flag; WY3 carries zero, not -5.

	chain := []engine.Balance{
		annualBalance(1, 0, 0, 0),
		annualBalance(2, 20, 0, 25),
		annualBalance(3, 20, 0, 0),
	}

	result, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.NoError(t, err)

	wy2 := findBalance(t, result.Balances, catAnnual, 2)
	assert.True(t, wy2.Overdrawn)
	assert.True(t, wy2.Remaining.Equal(days(-5)), "got %s", wy2.Remaining)

	wy3 := findBalance(t, result.Balances, catAnnual, 3)
	assert.True(t, wy3.CarriedForward.IsZero())
	assert.False(t, wy3.Overdrawn)
}

func TestRecalculateChain_SickNeverCarries(t *testing.T) {
	chain := []engine.Balance{
		{Category: catSick, WorkYear: 1, Allocated: days(10), Used: days(2)},
		{Category: catSick, WorkYear: 2, Allocated: days(10), CarriedForward: days(8)},
	}

	result, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.NoError(t, err)

	wy2 := findBalance(t, result.Balances, catSick, 2)
	assert.True(t, wy2.CarriedForward.IsZero(), "sick leave resets on anniversary")
	assert.True(t, wy2.Remaining.Equal(days(10)))
}

func TestRecalculateChain_Idempotent(t *testing.T) {
	// Running the recalculation on its own output changes nothing.
	chain := []engine.Balance{
		annualBalance(1, 0, 0, 0),
		annualBalance(2, 20, 0, 5),
		annualBalance(3, 20, 0, 12),
	}

	first, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.NoError(t, err)

	second, err := engine.RecalculateChain("emp-1", first.Balances, testPolicies())
	require.NoError(t, err)

	require.Equal(t, len(first.Balances), len(second.Balances))
	for i := range first.Balances {
		a, b := first.Balances[i], second.Balances[i]
		assert.True(t, a.CarriedForward.Equal(b.CarriedForward))
		assert.True(t, a.Remaining.Equal(b.Remaining))
	}
}

// =============================================================================
// FAILURE SEMANTICS
// =============================================================================

func TestRecalculateChain_GapInChain_Fails(t *testing.T) {
	// GIVEN: Work year 3 is missing between 2 and 4
	// WHEN: Recalculating
	// THEN: MissingWorkYearError naming the absent year; no guessing.

	chain := []engine.Balance{
		annualBalance(1, 0, 0, 0),
		annualBalance(2, 20, 0, 0),
		annualBalance(4, 20, 0, 0),
	}

	_, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrMissingWorkYear)

	var missing *engine.MissingWorkYearError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 3, missing.WorkYear)
	assert.Equal(t, engine.EmployeeID("emp-1"), missing.EmployeeID)
}

func TestRecalculateChain_UnconfiguredCategory_SkippedNotFatal(t *testing.T) {
	// GIVEN: A category with no policy entry alongside a configured one
	// WHEN: Recalculating
	// THEN: The unconfigured category is reported in Skipped; the
	//       configured one still processes.

	chain := []engine.Balance{
		annualBalance(1, 0, 0, 0),
		annualBalance(2, 20, 0, 5),
		{Category: "sabbatical", WorkYear: 1, Allocated: days(30)},
	}

	result, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, engine.Category("sabbatical"), result.Skipped[0].Category)

	wy2 := findBalance(t, result.Balances, catAnnual, 2)
	assert.True(t, wy2.Remaining.Equal(days(15)))
}

func TestRecalculateChain_EmptyInput_Fails(t *testing.T) {
	_, err := engine.RecalculateChain("emp-1", nil, testPolicies())
	assert.ErrorIs(t, err, engine.ErrEmptyChain)
}

func TestRecalculateChain_DoesNotMutateInput(t *testing.T) {
	chain := []engine.Balance{
		annualBalance(1, 0, 0, 0),
		annualBalance(2, 20, 0, 5),
	}
	original := make([]engine.Balance, len(chain))
	copy(original, chain)

	_, err := engine.RecalculateChain("emp-1", chain, testPolicies())
	require.NoError(t, err)

	for i := range original {
		assert.True(t, original[i].Remaining.Equal(chain[i].Remaining), "input record %d mutated", i)
		assert.True(t, original[i].CarriedForward.Equal(chain[i].CarriedForward), "input record %d mutated", i)
	}
}

// =============================================================================
// NEW WORK YEAR ALLOCATION
// =============================================================================

func TestAllocateWorkYear_FirstYear(t *testing.T) {
	hire := date(2022, time.January, 15)

	balances := engine.AllocateWorkYear("emp-1", hire, 1, nil, testPolicies())

	annual := findBalance(t, balances, catAnnual, 1)
	assert.True(t, annual.Allocated.IsZero())
	assert.True(t, annual.CarriedForward.IsZero())
	assert.Equal(t, 2023, annual.LeaveYear)

	sick := findBalance(t, balances, catSick, 1)
	assert.True(t, sick.Remaining.Equal(days(10)))
}

func TestAllocateWorkYear_CarriesPriorRemaining(t *testing.T) {
	hire := date(2022, time.January, 15)
	prior := map[engine.Category]engine.Days{
		catAnnual: days(15),
		catSick:   days(6),
	}

	balances := engine.AllocateWorkYear("emp-1", hire, 3, prior, testPolicies())

	annual := findBalance(t, balances, catAnnual, 3)
	assert.True(t, annual.CarriedForward.Equal(days(15)))
	assert.True(t, annual.Remaining.Equal(days(35)))

	sick := findBalance(t, balances, catSick, 3)
	assert.True(t, sick.CarriedForward.IsZero(), "sick never carries despite prior remaining")
}
