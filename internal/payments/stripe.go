package payments

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
)

// Compile-time interface checks.
var (
	_ CardIssuer = (*StripeProvider)(nil)
	_ Charger    = (*StripeProvider)(nil)
)

// StripeProvider simulates the Stripe card-issuing and charge APIs. It keeps
// issued cards in memory so freeze/unfreeze round-trips are observable.
//
// This is NOT a real Stripe client: PCI tokenization and network rules live
// entirely on Stripe's side, and the app only ever sees the opaque surface
// modeled here. A production build would swap in stripe-go behind the same
// interfaces.
type StripeProvider struct {
	secretKey string
	mu        sync.Mutex
	cards     map[string]Card
}

// NewStripeProvider creates a provider. secretKey is accepted for parity with
// the real client and unused by the stub.
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{
		secretKey: secretKey,
		cards:     make(map[string]Card),
	}
}

// CreateCard provisions a virtual card for the named holder.
func (p *StripeProvider) CreateCard(ctx context.Context, holderName string) (Card, error) {
	card := Card{
		ID:       stubID("card"),
		Last4:    fmt.Sprintf("%04d", 1000+rand.Intn(9000)),
		Brand:    "Visa",
		ExpMonth: 12,
		ExpYear:  2028,
		Status:   models.CardActive,
	}
	p.mu.Lock()
	p.cards[card.ID] = card
	p.mu.Unlock()
	return card, nil
}

// Freeze suspends spending on a card.
func (p *StripeProvider) Freeze(ctx context.Context, cardID string) error {
	return p.setStatus(cardID, models.CardFrozen)
}

// Unfreeze re-enables spending on a card.
func (p *StripeProvider) Unfreeze(ctx context.Context, cardID string) error {
	return p.setStatus(cardID, models.CardActive)
}

// CardDetails returns the issuer's view of a card.
func (p *StripeProvider) CardDetails(ctx context.Context, cardID string) (Card, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	card, ok := p.cards[cardID]
	if !ok {
		return Card{}, fmt.Errorf("card %s: not found", cardID)
	}
	return card, nil
}

// Charge captures a charge against a payment method.
func (p *StripeProvider) Charge(ctx context.Context, amount int64, paymentMethodID, currency string) (ChargeResult, error) {
	if amount <= 0 {
		return ChargeResult{}, fmt.Errorf("charge amount must be positive, got %d", amount)
	}
	if currency == "" {
		currency = "usd"
	}
	return ChargeResult{ID: stubID("ch"), Status: "succeeded"}, nil
}

func (p *StripeProvider) setStatus(cardID string, status models.CardStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	card, ok := p.cards[cardID]
	if !ok {
		return fmt.Errorf("card %s: not found", cardID)
	}
	card.Status = status
	p.cards[cardID] = card
	return nil
}

func stubID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
