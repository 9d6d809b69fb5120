package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/merlinthebtcwizard/allowance-app/internal/http/respond"
	"github.com/merlinthebtcwizard/allowance-app/internal/ledger"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
)

// stripeEvent is the subset of the webhook envelope this app reads.
// Signature verification belongs to the network boundary in front of this
// service, not here.
type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Amount   int64             `json:"amount"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// WebhookHandler ingests payment-processor events. Recognized kinds are
// handled; everything else is accepted and ignored so new Stripe event types
// never bounce.
type WebhookHandler struct {
	ledger *ledger.Ledger
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(lgr *ledger.Ledger) *WebhookHandler {
	return &WebhookHandler{ledger: lgr}
}

// Register attaches the webhook route to the mux.
func (h *WebhookHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/webhooks/stripe", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var event stripeEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respond.Error(w, http.StatusBadRequest, "webhook error")
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		log.Printf("webhook: payment intent %s succeeded", event.Data.Object.ID)
	case "charge.succeeded":
		h.applyCharge(r, event)
	case "virtual_card.created":
		log.Printf("webhook: card %s created", event.Data.Object.ID)
	default:
		// Unrecognized kind: accepted, not rejected.
	}

	respond.JSON(w, http.StatusOK, "received", map[string]bool{"received": true})
}

// applyCharge credits the account a settled charge was earmarked for. Events
// without an account reference have nothing to apply and are skipped; an
// append failure is logged but the event is still acknowledged, since Stripe
// retrying a malformed event forever helps nobody.
func (h *WebhookHandler) applyCharge(r *http.Request, event stripeEvent) {
	accountID := event.Data.Object.Metadata["account_id"]
	if accountID == "" || event.Data.Object.Amount == 0 {
		return
	}
	_, err := h.ledger.Append(r.Context(), accountID, event.Data.Object.Amount,
		models.KindDeposit, "Card funding", event.Data.Object.ID)
	if err != nil {
		log.Printf("webhook: apply charge %s to %s: %v", event.Data.Object.ID, accountID, err)
	}
}
