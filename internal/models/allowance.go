package models

import "time"

// Frequency is how often an allowance plan pays out.
type Frequency string

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

// Valid reports whether f is a recognized payout frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly:
		return true
	}
	return false
}

// AllowancePlan is a recurring payout schedule tied to one account and one
// funding parent. Plans are never deleted; deactivation flips Active so the
// transaction history they produced stays attributable.
type AllowancePlan struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	ParentID   string    `json:"parent_id"`
	Amount     int64     `json:"amount"`
	Frequency  Frequency `json:"frequency"`
	NextPayout time.Time `json:"next_payout"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
