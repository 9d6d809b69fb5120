// Package notify delivers fire-and-forget notifications to parents. Delivery
// failure is logged by callers and never fails the operation that triggered
// the notification.
package notify

import (
	"context"
	"log"
)

// Reason is a closed set of notification causes.
type Reason string

// ReasonInsufficientFunds tells a parent the sweep could not fund a due
// allowance.
const ReasonInsufficientFunds Reason = "insufficient_funds"

// Notifier delivers a notification to a parent.
type Notifier interface {
	Notify(ctx context.Context, parentID string, reason Reason) error
}

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the process log. Default when no broker
// is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(ctx context.Context, parentID string, reason Reason) error {
	log.Printf("notify parent %s: %s", parentID, reason)
	return nil
}
