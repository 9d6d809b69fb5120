package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage"
)

// Ensure Store satisfies the full storage surface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for users, accounts, the
// transaction log, and allowance plans.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'parent',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			parent_id UUID NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			card_id TEXT,
			card_last4 TEXT,
			card_status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL REFERENCES accounts(id),
			amount BIGINT NOT NULL,
			kind TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			external_ref TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_account_created_idx
			ON transactions (account_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS allowance_plans (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL REFERENCES accounts(id),
			parent_id UUID NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL,
			frequency TEXT NOT NULL,
			next_payout TIMESTAMPTZ NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS allowance_plans_due_idx
			ON allowance_plans (next_payout) WHERE active;`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO users (id, email, name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, name, role, password_hash, created_at, updated_at;`
	row := s.pool.QueryRow(ctx, query, user.ID, user.Email, user.Name, user.Role, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindUserByID fetches a user by primary key.
func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	const query = `
		SELECT id, email, name, role, password_hash, created_at, updated_at
		FROM users WHERE id = $1;`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// FindUserByEmail fetches a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT id, email, name, role, password_hash, created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER($1);`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

// CreateAccount inserts a new child account row.
func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CardStatus == "" {
		account.CardStatus = models.CardPending
	}
	const query = `
		INSERT INTO accounts (id, parent_id, name, balance, card_id, card_last4, card_status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING id, parent_id, name, balance, COALESCE(card_id, ''), COALESCE(card_last4, ''), card_status, created_at, updated_at;`
	row := s.pool.QueryRow(ctx, query,
		account.ID, account.ParentID, account.Name, account.Balance,
		account.CardID, account.CardLast4, account.CardStatus)
	return scanAccount(row)
}

// AccountByID fetches an account by primary key.
func (s *Store) AccountByID(ctx context.Context, id string) (models.Account, error) {
	const query = `
		SELECT id, parent_id, name, balance, COALESCE(card_id, ''), COALESCE(card_last4, ''), card_status, created_at, updated_at
		FROM accounts WHERE id = $1;`
	return scanAccount(s.pool.QueryRow(ctx, query, id))
}

// AccountsByParent lists all accounts owned by a parent.
func (s *Store) AccountsByParent(ctx context.Context, parentID string) ([]models.Account, error) {
	const query = `
		SELECT id, parent_id, name, balance, COALESCE(card_id, ''), COALESCE(card_last4, ''), card_status, created_at, updated_at
		FROM accounts WHERE parent_id = $1 ORDER BY created_at;`
	rows, err := s.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

// SetCardStatus updates the mirrored card lifecycle state.
func (s *Store) SetCardStatus(ctx context.Context, accountID string, status models.CardStatus) error {
	const query = `UPDATE accounts SET card_status = $1, updated_at = NOW() WHERE id = $2;`
	ct, err := s.pool.Exec(ctx, query, status, accountID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AppendTransaction inserts a ledger entry and increments the account balance
// inside one database transaction. The balance UPDATE takes the account's row
// lock first, so concurrent appends against the same account serialize and no
// increment can be lost.
func (s *Store) AppendTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Transaction{}, err
	}
	defer dbTx.Rollback(ctx)

	ct, err := dbTx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1, updated_at = $2 WHERE id = $3;`,
		t.Amount, t.CreatedAt, t.AccountID)
	if err != nil {
		return models.Transaction{}, err
	}
	if ct.RowsAffected() == 0 {
		return models.Transaction{}, storage.ErrNotFound
	}

	if _, err := dbTx.Exec(ctx,
		`INSERT INTO transactions (id, account_id, amount, kind, description, external_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7);`,
		t.ID, t.AccountID, t.Amount, t.Kind, t.Description, t.ExternalRef, t.CreatedAt); err != nil {
		return models.Transaction{}, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

// TransactionsByAccount returns a reverse-chronological page of the account's
// history.
func (s *Store) TransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	const query = `
		SELECT id, account_id, amount, kind, description, COALESCE(external_ref, ''), created_at
		FROM transactions WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3;`
	rows, err := s.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Kind, &t.Description, &t.ExternalRef, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SumByKind returns the aggregate signed amount for one transaction kind,
// zero when no rows match.
func (s *Store) SumByKind(ctx context.Context, accountID string, kind models.TransactionKind) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE account_id = $1 AND kind = $2;`
	var sum int64
	if err := s.pool.QueryRow(ctx, query, accountID, kind).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// CreatePlan inserts a new allowance plan row.
func (s *Store) CreatePlan(ctx context.Context, plan models.AllowancePlan) (models.AllowancePlan, error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO allowance_plans (id, account_id, parent_id, amount, frequency, next_payout, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, account_id, parent_id, amount, frequency, next_payout, active, created_at, updated_at;`
	row := s.pool.QueryRow(ctx, query,
		plan.ID, plan.AccountID, plan.ParentID, plan.Amount, plan.Frequency, plan.NextPayout, plan.Active)
	return scanPlan(row)
}

// PlanByID fetches an allowance plan by primary key.
func (s *Store) PlanByID(ctx context.Context, id string) (models.AllowancePlan, error) {
	const query = `
		SELECT id, account_id, parent_id, amount, frequency, next_payout, active, created_at, updated_at
		FROM allowance_plans WHERE id = $1;`
	return scanPlan(s.pool.QueryRow(ctx, query, id))
}

// DuePlans selects active plans whose next payout has elapsed.
func (s *Store) DuePlans(ctx context.Context, now time.Time) ([]models.AllowancePlan, error) {
	const query = `
		SELECT id, account_id, parent_id, amount, frequency, next_payout, active, created_at, updated_at
		FROM allowance_plans WHERE active AND next_payout <= $1
		ORDER BY next_payout;`
	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AllowancePlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, plan)
	}
	return out, rows.Err()
}

// AdvancePlan conditionally moves a plan's next payout forward. The WHERE on
// the previous next_payout keeps parallel sweep workers from double-paying a
// cycle.
func (s *Store) AdvancePlan(ctx context.Context, planID string, from, to time.Time) error {
	const query = `
		UPDATE allowance_plans SET next_payout = $1, updated_at = NOW()
		WHERE id = $2 AND next_payout = $3;`
	ct, err := s.pool.Exec(ctx, query, to, planID, from)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeactivatePlan soft-deletes a plan.
func (s *Store) DeactivatePlan(ctx context.Context, planID string) error {
	const query = `UPDATE allowance_plans SET active = FALSE, updated_at = NOW() WHERE id = $1;`
	ct, err := s.pool.Exec(ctx, query, planID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	if err := row.Scan(&account.ID, &account.ParentID, &account.Name, &account.Balance,
		&account.CardID, &account.CardLast4, &account.CardStatus, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

func scanPlan(row pgx.Row) (models.AllowancePlan, error) {
	var plan models.AllowancePlan
	if err := row.Scan(&plan.ID, &plan.AccountID, &plan.ParentID, &plan.Amount, &plan.Frequency,
		&plan.NextPayout, &plan.Active, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AllowancePlan{}, storage.ErrNotFound
		}
		return models.AllowancePlan{}, err
	}
	return plan, nil
}
