package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/leave"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEmployeeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hire := time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC)
	emp := leave.Employee{
		ID:       "emp-1",
		Name:     "Asha Rao",
		Email:    "asha@example.com",
		HireDate: hire,
	}
	require.NoError(t, store.SaveEmployee(ctx, emp))

	got, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, emp.ID, got.ID)
	assert.Equal(t, emp.Name, got.Name)
	assert.True(t, got.HireDate.Equal(hire))

	// Upsert keeps the identity and updates fields.
	emp.Name = "Asha R."
	require.NoError(t, store.SaveEmployee(ctx, emp))

	employees, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "Asha R.", employees[0].Name)
}

func TestGetEmployee_NotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetEmployee(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRequestLifecyclePersistence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := leave.Request{
		ID:         "req-1",
		EmployeeID: "emp-1",
		Category:   leave.CategoryAnnual,
		StartDate:  time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		TotalDays:  engine.DaysFromInt(5),
		WorkYear:   4,
		LeaveYear:  2026,
		Status:     leave.StatusPending,
		Reason:     "family visit",
	}
	require.NoError(t, store.SaveRequest(ctx, req))

	// WHEN the request is approved
	decidedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	req.Status = leave.StatusApproved
	req.DecidedBy = "mgr-1"
	req.DecidedAt = &decidedAt
	require.NoError(t, store.SaveRequest(ctx, req))

	// THEN the stored record reflects the decision
	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.Equal(t, "mgr-1", got.DecidedBy)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, got.DecidedAt.Equal(decidedAt))
	assert.True(t, got.TotalDays.Equal(engine.DaysFromInt(5)))

	pending, err := store.ListRequestsByStatus(ctx, leave.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	byEmployee, err := store.ListRequestsByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, byEmployee, 1)
}

func TestReplaceBalances_AtomicSwap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale := []engine.Balance{
		{EmployeeID: "emp-1", Category: leave.CategoryAnnual, WorkYear: 1, LeaveYear: 2023,
			Allocated: engine.ZeroDays(), CarriedForward: engine.ZeroDays(),
			Used: engine.ZeroDays(), Remaining: engine.ZeroDays()},
		{EmployeeID: "emp-1", Category: leave.CategoryAnnual, WorkYear: 2, LeaveYear: 2024,
			Allocated: engine.DaysFromInt(20), CarriedForward: engine.ZeroDays(),
			Used: engine.DaysFromInt(5), Remaining: engine.DaysFromInt(15)},
	}
	require.NoError(t, store.ReplaceBalances(ctx, "emp-1", stale))

	// WHEN a recalculated chain replaces the stale one
	fresh := []engine.Balance{
		{EmployeeID: "emp-1", Category: leave.CategoryAnnual, WorkYear: 1, LeaveYear: 2023,
			Allocated: engine.ZeroDays(), CarriedForward: engine.ZeroDays(),
			Used: engine.ZeroDays(), Remaining: engine.ZeroDays()},
		{EmployeeID: "emp-1", Category: leave.CategoryAnnual, WorkYear: 2, LeaveYear: 2024,
			Allocated: engine.DaysFromInt(20), CarriedForward: engine.ZeroDays(),
			Used: engine.ZeroDays(), Remaining: engine.DaysFromInt(20)},
		{EmployeeID: "emp-1", Category: leave.CategoryAnnual, WorkYear: 3, LeaveYear: 2025,
			Allocated: engine.DaysFromInt(20), CarriedForward: engine.DaysFromInt(20),
			Used: engine.ZeroDays(), Remaining: engine.DaysFromInt(40)},
	}
	require.NoError(t, store.ReplaceBalances(ctx, "emp-1", fresh))

	// THEN only the fresh chain is visible
	got, err := store.GetBalances(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[1].Remaining.Equal(engine.DaysFromInt(20)), "stale usage must be gone")
	assert.True(t, got[2].CarriedForward.Equal(engine.DaysFromInt(20)))
}

func TestReplaceBalances_ScopedToEmployee(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	other := []engine.Balance{
		{EmployeeID: "emp-2", Category: leave.CategorySick, WorkYear: 1, LeaveYear: 2024,
			Allocated: engine.DaysFromInt(10), CarriedForward: engine.ZeroDays(),
			Used: engine.ZeroDays(), Remaining: engine.DaysFromInt(10)},
	}
	require.NoError(t, store.ReplaceBalances(ctx, "emp-2", other))
	require.NoError(t, store.ReplaceBalances(ctx, "emp-1", []engine.Balance{
		{EmployeeID: "emp-1", Category: leave.CategorySick, WorkYear: 1, LeaveYear: 2024,
			Allocated: engine.DaysFromInt(10), CarriedForward: engine.ZeroDays(),
			Used: engine.ZeroDays(), Remaining: engine.DaysFromInt(10)},
	}))

	// Replacing emp-1's chain leaves emp-2's untouched.
	got, err := store.GetBalances(ctx, "emp-2")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBalancePrecisionSurvivesStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Half days must come back exact, not as floating-point noise.
	b := engine.Balance{
		EmployeeID: "emp-1", Category: leave.CategoryAnnual, WorkYear: 2, LeaveYear: 2024,
		Allocated:      engine.DaysFromInt(20),
		CarriedForward: engine.DaysFrom(2.5),
		Used:           engine.DaysFrom(7.5),
		Remaining:      engine.DaysFromInt(15),
	}
	require.NoError(t, store.SaveBalance(ctx, b))

	got, err := store.GetBalance(ctx, "emp-1", leave.CategoryAnnual, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2.5", got.CarriedForward.String())
	assert.Equal(t, "7.5", got.Used.String())
}

func TestListOverdrawn(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBalance(ctx, engine.Balance{
		EmployeeID: "emp-1", Category: leave.CategoryAnnual, WorkYear: 2, LeaveYear: 2024,
		Allocated: engine.DaysFromInt(20), CarriedForward: engine.ZeroDays(),
		Used: engine.DaysFromInt(23), Remaining: engine.DaysFromInt(-3), Overdrawn: true,
	}))
	require.NoError(t, store.SaveBalance(ctx, engine.Balance{
		EmployeeID: "emp-2", Category: leave.CategoryAnnual, WorkYear: 2, LeaveYear: 2024,
		Allocated: engine.DaysFromInt(20), CarriedForward: engine.ZeroDays(),
		Used: engine.DaysFromInt(5), Remaining: engine.DaysFromInt(15),
	}))

	overdrawn, err := store.ListOverdrawn(ctx)
	require.NoError(t, err)
	require.Len(t, overdrawn, 1)
	assert.Equal(t, engine.EmployeeID("emp-1"), overdrawn[0].EmployeeID)
	assert.Equal(t, "-3", overdrawn[0].Remaining.String())
}

func TestRecalcRunAudit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
	run := RecalcRun{
		ID:         "run-1",
		EmployeeID: "emp-1",
		Trigger:    "anniversary",
		Status:     "running",
		StartedAt:  &started,
	}
	require.NoError(t, store.SaveRecalcRun(ctx, run))

	completed := started.Add(50 * time.Millisecond)
	run.Status = "completed"
	run.BalancesWritten = 6
	run.Skipped = []string{"sabbatical"}
	run.CompletedAt = &completed
	require.NoError(t, store.SaveRecalcRun(ctx, run))

	runs, err := store.ListRecalcRuns(ctx, "completed")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 6, runs[0].BalancesWritten)
	assert.Equal(t, []string{"sabbatical"}, runs[0].Skipped)
	require.NotNil(t, runs[0].CompletedAt)

	failed, err := store.ListRecalcRuns(ctx, "failed")
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestDeleteEmployeeCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{
		ID: "emp-1", Name: "A", HireDate: time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, store.SaveRequest(ctx, leave.Request{
		ID: "req-1", EmployeeID: "emp-1", Category: leave.CategoryAnnual,
		StartDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		TotalDays: engine.DaysFromInt(1), WorkYear: 4, LeaveYear: 2026,
		Status: leave.StatusPending,
	}))
	require.NoError(t, store.SaveBalance(ctx, engine.Balance{
		EmployeeID: "emp-1", Category: leave.CategoryAnnual, WorkYear: 1, LeaveYear: 2023,
		Allocated: engine.ZeroDays(), CarriedForward: engine.ZeroDays(),
		Used: engine.ZeroDays(), Remaining: engine.ZeroDays(),
	}))

	require.NoError(t, store.DeleteEmployee(ctx, "emp-1"))

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, emp)

	requests, err := store.ListRequestsByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Empty(t, requests)

	balances, err := store.GetBalances(ctx, "emp-1")
	require.NoError(t, err)
	assert.Empty(t, balances)
}
