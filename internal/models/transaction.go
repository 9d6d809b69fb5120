package models

import "time"

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindAllowance  TransactionKind = "allowance"
	KindSpending   TransactionKind = "spending"
	KindRefund     TransactionKind = "refund"
)

// Valid reports whether k is one of the recognized kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindAllowance, KindSpending, KindRefund:
		return true
	}
	return false
}

// Transaction is a single immutable ledger entry. Amount is signed integer
// cents: positive credits the account, negative debits it. Corrections are
// new offsetting entries (KindRefund), never updates.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Amount      int64           `json:"amount"`
	Kind        TransactionKind `json:"kind"`
	Description string          `json:"description"`
	ExternalRef string          `json:"external_ref,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
