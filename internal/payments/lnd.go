package payments

import (
	"context"
	"fmt"
	"sync"
)

// SatsPerDollar is the stub conversion rate the original node used. A real
// deployment would quote the current price.
const SatsPerDollar = 40000

// CentsToSats converts integer cents to satoshis at the stub rate.
func CentsToSats(cents int64) int64 {
	return cents * SatsPerDollar / 100
}

// SatsToCents converts satoshis back to integer cents at the stub rate.
func SatsToCents(sats int64) int64 {
	return sats * 100 / SatsPerDollar
}

var _ Settlement = (*LNDSettlement)(nil)

// LNDSettlement simulates a Lightning node holding each parent's funds. Real
// Lightning behavior (invoices, pathfinding, channel balancing, fees) is
// out of scope; the app only needs an opaque balance/send capability. The
// connection parameters are kept so a real lnd-grpc client can slot in
// without touching callers.
type LNDSettlement struct {
	host         string
	port         int
	certPath     string
	macaroonPath string

	mu       sync.Mutex
	balances map[string]int64 // sats per party, as a real node would hold them
}

// NewLNDSettlement creates a settlement stub with empty wallets.
func NewLNDSettlement(host string, port int, certPath, macaroonPath string) *LNDSettlement {
	return &LNDSettlement{
		host:         host,
		port:         port,
		certPath:     certPath,
		macaroonPath: macaroonPath,
		balances:     make(map[string]int64),
	}
}

// Balance returns the party's wallet balance in cents. Unknown parties have
// an empty wallet, not an error.
func (l *LNDSettlement) Balance(ctx context.Context, partyID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return SatsToCents(l.balances[partyID]), nil
}

// Send moves amount (cents) out of the party's wallet toward the ledger.
func (l *LNDSettlement) Send(ctx context.Context, partyID string, amount int64) (SendResult, error) {
	if amount <= 0 {
		return SendResult{}, fmt.Errorf("send amount must be positive, got %d", amount)
	}
	sats := CentsToSats(amount)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[partyID] < sats {
		return SendResult{}, fmt.Errorf("party %s: balance %d sats below %d", partyID, l.balances[partyID], sats)
	}
	l.balances[partyID] -= sats
	return SendResult{Preimage: stubID("pre"), FeeSats: 1}, nil
}

// Receive credits the party's wallet with amount (cents), typically after a
// card charge settled.
func (l *LNDSettlement) Receive(ctx context.Context, partyID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("receive amount must be positive, got %d", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[partyID] += CentsToSats(amount)
	return nil
}
