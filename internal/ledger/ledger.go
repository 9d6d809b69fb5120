// Package ledger is the authoritative record of where allowance money is.
//
// Every balance-affecting event is an immutable Transaction, and an account's
// balance is exactly the running sum of its transactions. The only mutation
// path is Append, which writes the transaction and the balance increment as
// one atomic unit through the store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage"
)

// Ledger exposes the transaction log and the balances derived from it.
type Ledger struct {
	store storage.LedgerStore
}

// New creates a Ledger over the given store.
func New(store storage.LedgerStore) *Ledger {
	return &Ledger{store: store}
}

// Append validates and records a transaction against an account, atomically
// updating the cached balance. Positive amounts credit, negative amounts
// debit. A zero amount fails with ErrInvalidAmount; an unknown account fails
// with ErrNotFound. Nothing is persisted on failure.
func (l *Ledger) Append(ctx context.Context, accountID string, amount int64, kind models.TransactionKind, description, externalRef string) (models.Transaction, error) {
	if amount == 0 {
		return models.Transaction{}, ErrInvalidAmount
	}
	if !kind.Valid() {
		return models.Transaction{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAmount, kind)
	}

	tx := models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		ExternalRef: externalRef,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := l.store.AppendTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Transaction{}, ErrNotFound
		}
		return models.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	return created, nil
}

// Balance returns the account's current balance in cents. A freshly created
// account with no transactions has balance 0.
func (l *Ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	account, err := l.store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return account.Balance, nil
}

// List returns a reverse-chronological page of the account's history,
// restartable via offset. Ordering holds within one account only.
func (l *Ledger) List(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := l.store.AccountByID(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l.store.TransactionsByAccount(ctx, accountID, limit, offset)
}

// SumByKind returns the aggregate signed amount recorded against the account
// for one transaction kind. Zero when nothing matches, never an absent value.
func (l *Ledger) SumByKind(ctx context.Context, accountID string, kind models.TransactionKind) (int64, error) {
	if _, err := l.store.AccountByID(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return l.store.SumByKind(ctx, accountID, kind)
}
