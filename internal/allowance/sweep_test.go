package allowance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/merlinthebtcwizard/allowance-app/internal/ledger"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/merlinthebtcwizard/allowance-app/internal/notify"
	"github.com/merlinthebtcwizard/allowance-app/internal/payments"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) Notify(ctx context.Context, parentID string, reason notify.Reason) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, parentID+":"+string(reason))
	return nil
}

type sweepFixture struct {
	store      *memory.Store
	ledger     *ledger.Ledger
	settlement *payments.LNDSettlement
	notifier   *recordingNotifier
	sweep      *Sweep
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	store := memory.NewStore()
	lgr := ledger.New(store)
	settlement := payments.NewLNDSettlement("localhost", 10009, "", "")
	notifier := &recordingNotifier{}
	return &sweepFixture{
		store:      store,
		ledger:     lgr,
		settlement: settlement,
		notifier:   notifier,
		sweep:      NewSweep(store, lgr, settlement, notifier, time.Hour),
	}
}

func (f *sweepFixture) addAccount(t *testing.T, parentID, name string) models.Account {
	t.Helper()
	account, err := f.store.CreateAccount(context.Background(), models.Account{
		ParentID:   parentID,
		Name:       name,
		CardStatus: models.CardActive,
	})
	require.NoError(t, err)
	return account
}

func (f *sweepFixture) addPlan(t *testing.T, accountID, parentID string, amount int64, freq models.Frequency, due time.Time) models.AllowancePlan {
	t.Helper()
	plan, err := f.store.CreatePlan(context.Background(), models.AllowancePlan{
		AccountID:  accountID,
		ParentID:   parentID,
		Amount:     amount,
		Frequency:  freq,
		NextPayout: due,
		Active:     true,
	})
	require.NoError(t, err)
	return plan
}

func TestSweepPaysDuePlan(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	account := f.addAccount(t, "parent-1", "Alice")
	plan := f.addPlan(t, account.ID, "parent-1", 2000, models.Weekly, now)
	require.NoError(t, f.settlement.Receive(ctx, "parent-1", 5000))

	f.sweep.Run(ctx, now)

	balance, err := f.ledger.Balance(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2000, balance)

	history, err := f.ledger.List(ctx, account.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.KindAllowance, history[0].Kind)
	require.EqualValues(t, 2000, history[0].Amount)
	require.Contains(t, history[0].Description, "weekly")

	updated, err := f.store.PlanByID(ctx, plan.ID)
	require.NoError(t, err)
	require.True(t, updated.NextPayout.Equal(now.AddDate(0, 0, 7)))
	require.Empty(t, f.notifier.calls)
}

func TestSweepAtMostOncePerCycle(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	account := f.addAccount(t, "parent-1", "Alice")
	f.addPlan(t, account.ID, "parent-1", 2000, models.Weekly, now)
	require.NoError(t, f.settlement.Receive(ctx, "parent-1", 10000))

	f.sweep.Run(ctx, now)
	f.sweep.Run(ctx, now)

	history, err := f.ledger.List(ctx, account.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1, "second run must find next_payout > now and skip")
}

func TestSweepInsufficientFundsLeavesPlanDue(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	account := f.addAccount(t, "parent-1", "Alice")
	plan := f.addPlan(t, account.ID, "parent-1", 2000, models.Weekly, now)
	require.NoError(t, f.settlement.Receive(ctx, "parent-1", 500))

	f.sweep.Run(ctx, now)

	balance, err := f.ledger.Balance(ctx, account.ID)
	require.NoError(t, err)
	require.Zero(t, balance)

	updated, err := f.store.PlanByID(ctx, plan.ID)
	require.NoError(t, err)
	require.True(t, updated.NextPayout.Equal(now), "plan must stay due for retry")
	require.True(t, updated.Active)
	require.Equal(t, []string{"parent-1:insufficient_funds"}, f.notifier.calls)

	// Funds arrive; the retry on the next sweep succeeds.
	require.NoError(t, f.settlement.Receive(ctx, "parent-1", 5000))
	f.sweep.Run(ctx, now)
	balance, err = f.ledger.Balance(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2000, balance)
}

func TestSweepPartialFailureIsolation(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := f.addAccount(t, "parent-a", "Alice")
	second := f.addAccount(t, "parent-b", "Bob")
	third := f.addAccount(t, "parent-c", "Cara")
	// Due times order processing so the failing plan sits in the middle.
	f.addPlan(t, first.ID, "parent-a", 1000, models.Weekly, now.Add(-3*time.Minute))
	f.addPlan(t, second.ID, "parent-b", 1000, models.Weekly, now.Add(-2*time.Minute))
	f.addPlan(t, third.ID, "parent-c", 1000, models.Weekly, now.Add(-time.Minute))
	require.NoError(t, f.settlement.Receive(ctx, "parent-a", 5000))
	require.NoError(t, f.settlement.Receive(ctx, "parent-c", 5000))

	f.sweep.Run(ctx, now)

	for _, account := range []models.Account{first, third} {
		balance, err := f.ledger.Balance(ctx, account.ID)
		require.NoError(t, err)
		require.EqualValues(t, 1000, balance, "account %s", account.Name)
	}
	balance, err := f.ledger.Balance(ctx, second.ID)
	require.NoError(t, err)
	require.Zero(t, balance)
	require.Equal(t, []string{"parent-b:insufficient_funds"}, f.notifier.calls)
}

func TestSweepPlanErrorDoesNotAbortBatch(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	account := f.addAccount(t, "parent-1", "Alice")
	// A plan pointing at a vanished account fails its lookup; the healthy
	// plan after it must still pay out.
	f.addPlan(t, "no-such-account", "parent-1", 1000, models.Weekly, now.Add(-2*time.Minute))
	f.addPlan(t, account.ID, "parent-1", 1000, models.Weekly, now.Add(-time.Minute))
	require.NoError(t, f.settlement.Receive(ctx, "parent-1", 5000))

	f.sweep.Run(ctx, now)

	balance, err := f.ledger.Balance(ctx, account.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1000, balance)
}

func TestSweepSkipsInactivePlans(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	account := f.addAccount(t, "parent-1", "Alice")
	plan := f.addPlan(t, account.ID, "parent-1", 2000, models.Weekly, now)
	require.NoError(t, f.settlement.Receive(ctx, "parent-1", 5000))
	require.NoError(t, f.store.DeactivatePlan(ctx, plan.ID))

	f.sweep.Run(ctx, now)

	balance, err := f.ledger.Balance(ctx, account.ID)
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestSweepAdvancesPastMissedCycles(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	account := f.addAccount(t, "parent-1", "Alice")
	plan := f.addPlan(t, account.ID, "parent-1", 2000, models.Weekly, now.AddDate(0, 0, -21))
	require.NoError(t, f.settlement.Receive(ctx, "parent-1", 5000))

	f.sweep.Run(ctx, now)

	updated, err := f.store.PlanByID(ctx, plan.ID)
	require.NoError(t, err)
	require.True(t, updated.NextPayout.After(now), "next payout must end strictly in the future")
}

func TestSweepConservesValue(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	account := f.addAccount(t, "parent-1", "Alice")
	f.addPlan(t, account.ID, "parent-1", 2000, models.Weekly, now)
	require.NoError(t, f.settlement.Receive(ctx, "parent-1", 5000))

	f.sweep.Run(ctx, now)

	// Whatever the sweep credited as allowance left the parent's wallet.
	credited, err := f.ledger.SumByKind(ctx, account.ID, models.KindAllowance)
	require.NoError(t, err)
	remaining, err := f.settlement.Balance(ctx, "parent-1")
	require.NoError(t, err)
	require.EqualValues(t, 5000, credited+remaining)
}

func TestSweepRejectsUnknownFrequency(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	badAccount := f.addAccount(t, "parent-1", "Alice")
	goodAccount := f.addAccount(t, "parent-1", "Bob")
	badPlan := f.addPlan(t, badAccount.ID, "parent-1", 2000, models.Frequency("daily"), now)
	f.addPlan(t, goodAccount.ID, "parent-1", 1500, models.Weekly, now)
	require.NoError(t, f.settlement.Receive(ctx, "parent-1", 10000))

	// Run returning at all proves the bad plan cannot wedge the batch.
	f.sweep.Run(ctx, now)

	// The bad plan must be rejected before any value moves.
	balance, err := f.ledger.Balance(ctx, badAccount.ID)
	require.NoError(t, err)
	require.Zero(t, balance)
	unchanged, err := f.store.PlanByID(ctx, badPlan.ID)
	require.NoError(t, err)
	require.True(t, unchanged.NextPayout.Equal(now))

	// The valid plan in the same batch still pays out.
	balance, err = f.ledger.Balance(ctx, goodAccount.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1500, balance)

	remaining, err := f.settlement.Balance(ctx, "parent-1")
	require.NoError(t, err)
	require.EqualValues(t, 8500, remaining)
}
