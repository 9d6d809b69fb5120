package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage"
)

// Ensure Store satisfies the full storage surface at compile time.
var _ storage.Store = (*Store)(nil)

// Store is an in-memory implementation of storage.Store. It backs tests and
// the demo data path: an explicit, constructible object handed to whoever
// needs it, never a package-level singleton.
type Store struct {
	mu           sync.Mutex
	users        map[string]models.User
	usersByEmail map[string]string
	accounts     map[string]models.Account
	transactions map[string][]models.Transaction
	plans        map[string]models.AllowancePlan
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:        make(map[string]models.User),
		usersByEmail: make(map[string]string),
		accounts:     make(map[string]models.Account),
		transactions: make(map[string][]models.Transaction),
		plans:        make(map[string]models.AllowancePlan),
	}
}

// CreateUser inserts a new user, enforcing email uniqueness.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := s.usersByEmail[key]; exists {
		return models.User{}, storage.ErrAlreadyExists
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user
	s.usersByEmail[key] = user.ID
	return user, nil
}

// FindUserByID fetches a user by ID.
func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// FindUserByEmail fetches a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

// CreateAccount inserts a new child account.
func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CardStatus == "" {
		account.CardStatus = models.CardPending
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = account
	return account, nil
}

// AccountByID fetches an account by ID.
func (s *Store) AccountByID(ctx context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return account, nil
}

// AccountsByParent lists the accounts owned by a parent.
func (s *Store) AccountsByParent(ctx context.Context, parentID string) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Account
	for _, account := range s.accounts {
		if account.ParentID == parentID {
			out = append(out, account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetCardStatus updates the mirrored card lifecycle state. Balance is
// untouched.
func (s *Store) SetCardStatus(ctx context.Context, accountID string, status models.CardStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return storage.ErrNotFound
	}
	account.CardStatus = status
	account.UpdatedAt = time.Now().UTC()
	s.accounts[accountID] = account
	return nil
}

// AppendTransaction records a ledger entry and increments the account balance
// under one lock, so concurrent appends against the same account cannot lose
// an increment.
func (s *Store) AppendTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[tx.AccountID]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.transactions[tx.AccountID] = append(s.transactions[tx.AccountID], tx)
	account.Balance += tx.Amount
	account.UpdatedAt = tx.CreatedAt
	s.accounts[tx.AccountID] = account
	return tx, nil
}

// TransactionsByAccount returns a reverse-chronological page of the account's
// history.
func (s *Store) TransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.transactions[accountID]
	var out []models.Transaction
	for i := len(history) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

// SumByKind returns the aggregate signed amount for one kind, zero when no
// entries match.
func (s *Store) SumByKind(ctx context.Context, accountID string, kind models.TransactionKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, tx := range s.transactions[accountID] {
		if tx.Kind == kind {
			sum += tx.Amount
		}
	}
	return sum, nil
}

// CreatePlan inserts a new allowance plan.
func (s *Store) CreatePlan(ctx context.Context, plan models.AllowancePlan) (models.AllowancePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	s.plans[plan.ID] = plan
	return plan, nil
}

// PlanByID fetches an allowance plan by ID.
func (s *Store) PlanByID(ctx context.Context, id string) (models.AllowancePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[id]
	if !ok {
		return models.AllowancePlan{}, storage.ErrNotFound
	}
	return plan, nil
}

// DuePlans selects active plans whose next payout has elapsed.
func (s *Store) DuePlans(ctx context.Context, now time.Time) ([]models.AllowancePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.AllowancePlan
	for _, plan := range s.plans {
		if plan.Active && !plan.NextPayout.After(now) {
			due = append(due, plan)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextPayout.Before(due[j].NextPayout) })
	return due, nil
}

// AdvancePlan conditionally moves a plan's next payout forward.
func (s *Store) AdvancePlan(ctx context.Context, planID string, from, to time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[planID]
	if !ok || !plan.NextPayout.Equal(from) {
		return storage.ErrNotFound
	}
	plan.NextPayout = to
	plan.UpdatedAt = time.Now().UTC()
	s.plans[planID] = plan
	return nil
}

// DeactivatePlan soft-deletes a plan so the sweep stops selecting it.
func (s *Store) DeactivatePlan(ctx context.Context, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[planID]
	if !ok {
		return storage.ErrNotFound
	}
	plan.Active = false
	plan.UpdatedAt = time.Now().UTC()
	s.plans[planID] = plan
	return nil
}
