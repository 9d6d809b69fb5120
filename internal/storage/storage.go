package storage

import (
	"context"
	"errors"
	"time"

	"github.com/merlinthebtcwizard/allowance-app/internal/models"
)

// ErrNotFound indicates a record does not exist (or a conditional update
// matched no row).
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations needed by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
}

// LedgerStore captures persistence for accounts, the transaction log, and
// allowance plans.
//
// AppendTransaction is the single balance mutation path: the transaction
// insert and the account balance increment commit as one unit, or not at all.
type LedgerStore interface {
	CreateAccount(ctx context.Context, account models.Account) (models.Account, error)
	AccountByID(ctx context.Context, id string) (models.Account, error)
	AccountsByParent(ctx context.Context, parentID string) ([]models.Account, error)
	SetCardStatus(ctx context.Context, accountID string, status models.CardStatus) error

	AppendTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	TransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error)
	SumByKind(ctx context.Context, accountID string, kind models.TransactionKind) (int64, error)

	CreatePlan(ctx context.Context, plan models.AllowancePlan) (models.AllowancePlan, error)
	PlanByID(ctx context.Context, id string) (models.AllowancePlan, error)
	DuePlans(ctx context.Context, now time.Time) ([]models.AllowancePlan, error)
	// AdvancePlan moves a plan's next payout from `from` to `to`. The update
	// is conditional on the stored next payout still being `from`; a stale
	// caller gets ErrNotFound instead of silently double-advancing.
	AdvancePlan(ctx context.Context, planID string, from, to time.Time) error
	DeactivatePlan(ctx context.Context, planID string) error
}

// Store is the full persistence surface the server wires together.
type Store interface {
	UserStore
	LedgerStore
}
