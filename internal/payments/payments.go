// Package payments holds the boundary contracts for the external money
// movers: the card network that issues and charges cards, and the settlement
// layer (a Lightning node) that holds the parents' real funds.
//
// All amounts crossing these interfaces are integer cents.
package payments

import (
	"context"

	"github.com/merlinthebtcwizard/allowance-app/internal/models"
)

// Card is a virtual debit card as the issuer reports it.
type Card struct {
	ID       string            `json:"id"`
	Last4    string            `json:"last4"`
	Brand    string            `json:"brand"`
	ExpMonth int               `json:"expiryMonth"`
	ExpYear  int               `json:"expiryYear"`
	Status   models.CardStatus `json:"status"`
}

// ChargeResult is the outcome of charging a payment method.
type ChargeResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SendResult is the outcome of a settlement-layer send.
type SendResult struct {
	Preimage string
	FeeSats  int64
}

// CardIssuer provisions and manages virtual cards. Card state is stored by
// this app but enforced by the issuer.
type CardIssuer interface {
	CreateCard(ctx context.Context, holderName string) (Card, error)
	Freeze(ctx context.Context, cardID string) error
	Unfreeze(ctx context.Context, cardID string) error
	CardDetails(ctx context.Context, cardID string) (Card, error)
}

// Charger captures a charge against a parent's payment method.
type Charger interface {
	Charge(ctx context.Context, amount int64, paymentMethodID, currency string) (ChargeResult, error)
}

// Settlement moves real value on a parent's behalf. Balance and Send are what
// the allowance sweep consults; Receive credits a parent's wallet after an
// inbound charge settles.
type Settlement interface {
	Balance(ctx context.Context, partyID string) (int64, error)
	Send(ctx context.Context, partyID string, amount int64) (SendResult, error)
	Receive(ctx context.Context, partyID string, amount int64) error
}
