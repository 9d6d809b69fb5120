package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage"
)

// TestStoreIntegration exercises the ledger round trip against a live
// Postgres database.
func TestStoreIntegration(t *testing.T) {
	if os.Getenv("RUN_STORE_INTEGRATION") != "true" {
		t.Skip("set RUN_STORE_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	store, err := NewStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	defer store.Close()

	suffix := time.Now().UnixNano()

	parent, err := store.CreateUser(ctx, models.User{
		Email:        fmt.Sprintf("itest_%d@example.com", suffix),
		Name:         "Integration Parent",
		Role:         models.RoleParent,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	account, err := store.CreateAccount(ctx, models.Account{
		ParentID:   parent.ID,
		Name:       "Integration Child",
		CardID:     fmt.Sprintf("card_itest_%d", suffix),
		CardLast4:  "4242",
		CardStatus: models.CardActive,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if account.Balance != 0 {
		t.Fatalf("new account balance = %d, want 0", account.Balance)
	}

	// Append credits then a debit; the stored balance must track the sum.
	amounts := []int64{500, 250, -120}
	kinds := []models.TransactionKind{models.KindDeposit, models.KindAllowance, models.KindSpending}
	for i, amount := range amounts {
		_, err := store.AppendTransaction(ctx, models.Transaction{
			AccountID:   account.ID,
			Amount:      amount,
			Kind:        kinds[i],
			Description: "integration entry",
			CreatedAt:   time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("append transaction %d: %v", i, err)
		}
	}

	refreshed, err := store.AccountByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("fetch account: %v", err)
	}
	if refreshed.Balance != 630 {
		t.Fatalf("balance = %d, want 630", refreshed.Balance)
	}

	transactions, err := store.TransactionsByAccount(ctx, account.ID, 10, 0)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 3 {
		t.Fatalf("transaction count = %d, want 3", len(transactions))
	}
	if transactions[0].Amount != -120 {
		t.Fatalf("newest transaction amount = %d, want -120", transactions[0].Amount)
	}

	// Appending to a missing account must not create a transaction.
	_, err = store.AppendTransaction(ctx, models.Transaction{
		AccountID: uuid.NewString(),
		Amount:    100,
		Kind:      models.KindDeposit,
		CreatedAt: time.Now().UTC(),
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("append to missing account: err = %v, want ErrNotFound", err)
	}

	// Plan advance is guarded by the expected previous payout date.
	due := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	plan, err := store.CreatePlan(ctx, models.AllowancePlan{
		AccountID:  account.ID,
		ParentID:   parent.ID,
		Amount:     500,
		Frequency:  models.Weekly,
		NextPayout: due,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	next := due.AddDate(0, 0, 7)
	if err := store.AdvancePlan(ctx, plan.ID, due, next); err != nil {
		t.Fatalf("advance plan: %v", err)
	}
	// A second advance with the stale date must miss.
	if err := store.AdvancePlan(ctx, plan.ID, due, next.AddDate(0, 0, 7)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("stale advance: err = %v, want ErrNotFound", err)
	}

	if err := store.DeactivatePlan(ctx, plan.ID); err != nil {
		t.Fatalf("deactivate plan: %v", err)
	}
	duePlans, err := store.DuePlans(ctx, next.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list due plans: %v", err)
	}
	for _, p := range duePlans {
		if p.ID == plan.ID {
			t.Fatalf("deactivated plan %s still listed as due", plan.ID)
		}
	}

	t.Logf("ledger round trip succeeded for account %s", account.ID)
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
		"../../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
