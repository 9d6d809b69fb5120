// Package allowance realizes due allowance plans as ledger transactions.
//
// The sweep runs periodically. For every active plan whose next payout has
// elapsed it checks the funding parent's settlement balance, moves the funds,
// appends an allowance transaction, and advances the plan one cycle. A plan
// that cannot pay out stays due and is retried on the next sweep.
package allowance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/merlinthebtcwizard/allowance-app/internal/ledger"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/merlinthebtcwizard/allowance-app/internal/notify"
	"github.com/merlinthebtcwizard/allowance-app/internal/payments"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage"
)

// Sweep processes due allowance plans.
type Sweep struct {
	store      storage.LedgerStore
	ledger     *ledger.Ledger
	settlement payments.Settlement
	notifier   notify.Notifier
	interval   time.Duration
	notifyCh   chan struct{}
}

// NewSweep wires a sweep over the store, ledger, and collaborators. interval
// is how often the background loop runs.
func NewSweep(store storage.LedgerStore, lgr *ledger.Ledger, settlement payments.Settlement, notifier notify.Notifier, interval time.Duration) *Sweep {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweep{
		store:      store,
		ledger:     lgr,
		settlement: settlement,
		notifier:   notifier,
		interval:   interval,
		notifyCh:   make(chan struct{}, 1),
	}
}

// Notify triggers an immediate sweep. Non-blocking if one is already pending.
func (s *Sweep) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweep) Start(ctx context.Context) {
	log.Printf("allowance sweep started (interval %s)", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Run(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			log.Println("allowance sweep stopped")
			return
		case <-ticker.C:
			s.Run(ctx, time.Now())
		case <-s.notifyCh:
			s.Run(ctx, time.Now())
		}
	}
}

// Run executes one sweep over all plans due at now. Each plan is processed
// independently: one plan's failure never blocks the rest of the batch.
func (s *Sweep) Run(ctx context.Context, now time.Time) {
	plans, err := s.store.DuePlans(ctx, now)
	if err != nil {
		log.Printf("sweep: select due plans: %v", err)
		return
	}
	for _, plan := range plans {
		if err := s.process(ctx, plan, now); err != nil {
			log.Printf("sweep: plan %s: %v", plan.ID, err)
		}
	}
}

// processTimeout bounds one plan's store and collaborator calls so a hung
// settlement node cannot stall the whole batch.
const processTimeout = 30 * time.Second

func (s *Sweep) process(ctx context.Context, plan models.AllowancePlan, now time.Time) error {
	// Reject before any value moves: NextPayout cannot advance an unknown
	// frequency, and a plan that paid out but can never advance would stay
	// due forever.
	if !plan.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q", plan.Frequency)
	}

	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	account, err := s.store.AccountByID(ctx, plan.AccountID)
	if err != nil {
		return fmt.Errorf("account lookup: %w", err)
	}

	available, err := s.settlement.Balance(ctx, plan.ParentID)
	if err != nil {
		return fmt.Errorf("settlement balance: %w", err)
	}
	if available < plan.Amount {
		// Plan stays due and untouched; it is retried next sweep. The
		// notification is fire-and-forget.
		if err := s.notifier.Notify(ctx, plan.ParentID, notify.ReasonInsufficientFunds); err != nil {
			log.Printf("sweep: notify parent %s: %v", plan.ParentID, err)
		}
		return nil
	}

	if _, err := s.settlement.Send(ctx, plan.ParentID, plan.Amount); err != nil {
		return fmt.Errorf("settlement send: %w", err)
	}

	description := fmt.Sprintf("Allowance (%s)", plan.Frequency)
	if _, err := s.ledger.Append(ctx, account.ID, plan.Amount, models.KindAllowance, description, ""); err != nil {
		return fmt.Errorf("append allowance: %w", err)
	}

	// Advance from the stored due time, stepping past cycles missed while
	// the sweep was down, so next_payout ends strictly in the future.
	next := NextPayout(plan.Frequency, plan.NextPayout)
	for !next.After(now) {
		next = NextPayout(plan.Frequency, next)
	}
	if err := s.store.AdvancePlan(ctx, plan.ID, plan.NextPayout, next); err != nil {
		return fmt.Errorf("advance plan: %w", err)
	}
	return nil
}
