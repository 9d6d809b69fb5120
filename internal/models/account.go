package models

import "time"

// CardStatus is the lifecycle state of the virtual card attached to an
// account. Enforcement of spending against a frozen card happens at the card
// issuer; the status here only mirrors it.
type CardStatus string

const (
	CardPending   CardStatus = "pending"
	CardActive    CardStatus = "active"
	CardFrozen    CardStatus = "frozen"
	CardCancelled CardStatus = "cancelled"
)

// Account is a child's allowance balance plus its card reference.
//
// Balance is in integer cents and equals the sum of all transactions recorded
// against the account. It is never written directly: the only mutation path
// is the ledger's atomic append.
type Account struct {
	ID         string     `json:"id"`
	ParentID   string     `json:"parent_id"`
	Name       string     `json:"name"`
	Balance    int64      `json:"balance"`
	CardID     string     `json:"card_id,omitempty"`
	CardLast4  string     `json:"card_last4,omitempty"`
	CardStatus CardStatus `json:"card_status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
