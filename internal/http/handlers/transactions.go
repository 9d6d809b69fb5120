package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/merlinthebtcwizard/allowance-app/internal/auth"
	"github.com/merlinthebtcwizard/allowance-app/internal/http/respond"
	"github.com/merlinthebtcwizard/allowance-app/internal/ledger"
	"github.com/merlinthebtcwizard/allowance-app/internal/middleware"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage"
)

// TransactionsHandler serves transaction history pages. Children read their
// own history; a parent may read a child's by passing child_id.
type TransactionsHandler struct {
	store  storage.LedgerStore
	ledger *ledger.Ledger
	tokens *auth.TokenManager
}

// NewTransactionsHandler constructs the handler.
func NewTransactionsHandler(store storage.LedgerStore, lgr *ledger.Ledger, tokens *auth.TokenManager) *TransactionsHandler {
	return &TransactionsHandler{store: store, ledger: lgr, tokens: tokens}
}

// Register attaches the route to the mux, behind auth.
func (h *TransactionsHandler) Register(mux *http.ServeMux) {
	mux.Handle("/api/transactions", middleware.RequireAuth(h.tokens, h.handleList))
}

func (h *TransactionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := identity.UserID
	if childID := r.URL.Query().Get("child_id"); childID != "" {
		if identity.Role != models.RoleParent {
			respond.Error(w, http.StatusForbidden, "only parents may view another account")
			return
		}
		account, err := h.store.AccountByID(r.Context(), childID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusNotFound, "account not found")
				return
			}
			log.Printf("find account: %v", err)
			respond.Error(w, http.StatusInternalServerError, "failed to fetch account")
			return
		}
		if account.ParentID != identity.UserID {
			respond.Error(w, http.StatusForbidden, "not your child account")
			return
		}
		accountID = childID
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	transactions, err := h.ledger.List(r.Context(), accountID, limit, offset)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("list transactions: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	respond.JSON(w, http.StatusOK, "transactions", transactions)
}

func queryInt(r *http.Request, key string, def int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
