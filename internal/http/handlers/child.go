package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/merlinthebtcwizard/allowance-app/internal/auth"
	"github.com/merlinthebtcwizard/allowance-app/internal/http/respond"
	"github.com/merlinthebtcwizard/allowance-app/internal/ledger"
	"github.com/merlinthebtcwizard/allowance-app/internal/middleware"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/merlinthebtcwizard/allowance-app/internal/payments"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage"
)

// ChildHandler owns the child-facing endpoints. The authenticated child's
// user ID doubles as its account ID, so every lookup is scoped to the
// caller's own account.
type ChildHandler struct {
	store  storage.LedgerStore
	ledger *ledger.Ledger
	issuer payments.CardIssuer
	tokens *auth.TokenManager
}

// NewChildHandler constructs the handler.
func NewChildHandler(store storage.LedgerStore, lgr *ledger.Ledger, issuer payments.CardIssuer, tokens *auth.TokenManager) *ChildHandler {
	return &ChildHandler{store: store, ledger: lgr, issuer: issuer, tokens: tokens}
}

// Register attaches child routes to the mux, all behind auth.
func (h *ChildHandler) Register(mux *http.ServeMux) {
	mux.Handle("/api/child/balance", middleware.RequireAuth(h.tokens, h.handleBalance))
	mux.Handle("/api/child/card", middleware.RequireAuth(h.tokens, h.handleCard))
	mux.Handle("/api/child/card/freeze", middleware.RequireAuth(h.tokens, h.handleFreeze))
	mux.Handle("/api/child/card/unfreeze", middleware.RequireAuth(h.tokens, h.handleUnfreeze))
}

func (h *ChildHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	balance, err := h.ledger.Balance(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("balance: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch balance")
		return
	}
	respond.JSON(w, http.StatusOK, "balance", map[string]int64{"balance": balance})
}

func (h *ChildHandler) handleCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	account, ok := h.callerAccount(w, r)
	if !ok {
		return
	}
	details, err := h.issuer.CardDetails(r.Context(), account.CardID)
	if err != nil {
		log.Printf("card details: %v", err)
		respond.Error(w, http.StatusBadGateway, "card issuer failure")
		return
	}
	respond.JSON(w, http.StatusOK, "card", details)
}

func (h *ChildHandler) handleFreeze(w http.ResponseWriter, r *http.Request) {
	h.setCardStatus(w, r, models.CardFrozen)
}

func (h *ChildHandler) handleUnfreeze(w http.ResponseWriter, r *http.Request) {
	h.setCardStatus(w, r, models.CardActive)
}

// setCardStatus flips the card at the issuer, then mirrors the new state on
// the account. Balance is never touched: freezing only gates future
// card-originated spending, which the issuer enforces.
func (h *ChildHandler) setCardStatus(w http.ResponseWriter, r *http.Request, status models.CardStatus) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	account, ok := h.callerAccount(w, r)
	if !ok {
		return
	}

	var err error
	if status == models.CardFrozen {
		err = h.issuer.Freeze(r.Context(), account.CardID)
	} else {
		err = h.issuer.Unfreeze(r.Context(), account.CardID)
	}
	if err != nil {
		log.Printf("card %s -> %s: %v", account.CardID, status, err)
		respond.Error(w, http.StatusBadGateway, "card issuer failure")
		return
	}
	if err := h.store.SetCardStatus(r.Context(), account.ID, status); err != nil {
		log.Printf("persist card status: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to update card status")
		return
	}
	respond.JSON(w, http.StatusOK, "card updated", map[string]models.CardStatus{"status": status})
}

func (h *ChildHandler) callerAccount(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return models.Account{}, false
	}
	account, err := h.store.AccountByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "account not found")
			return models.Account{}, false
		}
		log.Printf("find account: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch account")
		return models.Account{}, false
	}
	if account.CardID == "" {
		respond.Error(w, http.StatusNotFound, "no card on this account")
		return models.Account{}, false
	}
	return account, true
}
