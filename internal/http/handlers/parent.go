package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/merlinthebtcwizard/allowance-app/internal/allowance"
	"github.com/merlinthebtcwizard/allowance-app/internal/auth"
	"github.com/merlinthebtcwizard/allowance-app/internal/http/respond"
	"github.com/merlinthebtcwizard/allowance-app/internal/middleware"
	"github.com/merlinthebtcwizard/allowance-app/internal/models"
	"github.com/merlinthebtcwizard/allowance-app/internal/models/dto"
	"github.com/merlinthebtcwizard/allowance-app/internal/payments"
	"github.com/merlinthebtcwizard/allowance-app/internal/storage"
)

// ParentHandler owns the parent-facing endpoints: children, allowance plans,
// and wallet funding.
type ParentHandler struct {
	store      storage.Store
	issuer     payments.CardIssuer
	charger    payments.Charger
	settlement payments.Settlement
	tokens     *auth.TokenManager

	// wake, when set, pokes the allowance sweep after a successful funding
	// so plans skipped for insufficient funds retry right away.
	wake func()
}

// NewParentHandler constructs the handler. wake may be nil.
func NewParentHandler(store storage.Store, issuer payments.CardIssuer, charger payments.Charger, settlement payments.Settlement, tokens *auth.TokenManager, wake func()) *ParentHandler {
	return &ParentHandler{store: store, issuer: issuer, charger: charger, settlement: settlement, tokens: tokens, wake: wake}
}

// Register attaches parent routes to the mux, all behind auth.
func (h *ParentHandler) Register(mux *http.ServeMux) {
	mux.Handle("/api/parent/children", middleware.RequireAuth(h.tokens, h.handleChildren))
	mux.Handle("/api/parent/allowance", middleware.RequireAuth(h.tokens, h.handleAllowance))
	mux.Handle("/api/parent/allowance/deactivate", middleware.RequireAuth(h.tokens, h.handleDeactivate))
	mux.Handle("/api/parent/fund", middleware.RequireAuth(h.tokens, h.handleFund))
}

func (h *ParentHandler) handleChildren(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireParent(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		accounts, err := h.store.AccountsByParent(r.Context(), identity.UserID)
		if err != nil {
			log.Printf("list children: %v", err)
			respond.Error(w, http.StatusInternalServerError, "failed to list children")
			return
		}
		respond.JSON(w, http.StatusOK, "children", accounts)
	case http.MethodPost:
		var req dto.CreateChildRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			respond.Error(w, http.StatusBadRequest, "name is required")
			return
		}
		card, err := h.issuer.CreateCard(r.Context(), name)
		if err != nil {
			log.Printf("create card: %v", err)
			respond.Error(w, http.StatusBadGateway, "card issuer failure")
			return
		}
		account, err := h.store.CreateAccount(r.Context(), models.Account{
			ParentID:   identity.UserID,
			Name:       name,
			CardID:     card.ID,
			CardLast4:  card.Last4,
			CardStatus: card.Status,
		})
		if err != nil {
			log.Printf("create account: %v", err)
			respond.Error(w, http.StatusInternalServerError, "failed to create child account")
			return
		}
		respond.JSON(w, http.StatusCreated, "child created", account)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ParentHandler) handleAllowance(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireParent(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CreateAllowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Amount <= 0 {
		respond.Error(w, http.StatusBadRequest, "amount must be a positive amount of cents")
		return
	}
	freq := models.Frequency(strings.ToLower(strings.TrimSpace(req.Frequency)))
	if !freq.Valid() {
		respond.Error(w, http.StatusBadRequest, "frequency must be weekly, biweekly, or monthly")
		return
	}
	account, ok := h.ownedAccount(w, r, identity, req.ChildID)
	if !ok {
		return
	}

	plan, err := h.store.CreatePlan(r.Context(), models.AllowancePlan{
		AccountID:  account.ID,
		ParentID:   identity.UserID,
		Amount:     req.Amount,
		Frequency:  freq,
		NextPayout: allowance.NextPayout(freq, time.Now().UTC()),
		Active:     true,
	})
	if err != nil {
		log.Printf("create plan: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to create allowance plan")
		return
	}
	respond.JSON(w, http.StatusCreated, "allowance created", plan)
}

func (h *ParentHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireParent(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.DeactivateAllowanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	plan, err := h.store.PlanByID(r.Context(), req.PlanID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "allowance plan not found")
			return
		}
		log.Printf("find plan: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch plan")
		return
	}
	if plan.ParentID != identity.UserID {
		respond.Error(w, http.StatusForbidden, "not your allowance plan")
		return
	}
	if err := h.store.DeactivatePlan(r.Context(), plan.ID); err != nil {
		log.Printf("deactivate plan: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to deactivate plan")
		return
	}
	respond.JSON(w, http.StatusOK, "allowance deactivated", nil)
}

func (h *ParentHandler) handleFund(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireParent(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Amount <= 0 {
		respond.Error(w, http.StatusBadRequest, "amount must be a positive amount of cents")
		return
	}
	if strings.TrimSpace(req.PaymentMethodID) == "" {
		respond.Error(w, http.StatusBadRequest, "paymentMethodId is required")
		return
	}

	charge, err := h.charger.Charge(r.Context(), req.Amount, req.PaymentMethodID, "usd")
	if err != nil {
		log.Printf("fund: charge: %v", err)
		respond.Error(w, http.StatusBadGateway, "payment provider failure")
		return
	}
	if err := h.settlement.Receive(r.Context(), identity.UserID, req.Amount); err != nil {
		// The card was charged but the wallet credit failed; surface the
		// charge ref so support can reconcile.
		log.Printf("fund: settle charge %s: %v", charge.ID, err)
		respond.Error(w, http.StatusBadGateway, "settlement failure")
		return
	}
	if h.wake != nil {
		h.wake()
	}
	respond.JSON(w, http.StatusOK, "wallet funded", dto.FundResponse{
		Success: true,
		Sats:    payments.CentsToSats(req.Amount),
	})
}

func (h *ParentHandler) ownedAccount(w http.ResponseWriter, r *http.Request, identity auth.Identity, accountID string) (models.Account, bool) {
	account, err := h.store.AccountByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "child account not found")
			return models.Account{}, false
		}
		log.Printf("find account: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch account")
		return models.Account{}, false
	}
	if account.ParentID != identity.UserID {
		respond.Error(w, http.StatusForbidden, "not your child account")
		return models.Account{}, false
	}
	return account, true
}

func requireParent(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return auth.Identity{}, false
	}
	if identity.Role != models.RoleParent {
		respond.Error(w, http.StatusForbidden, "parent account required")
		return auth.Identity{}, false
	}
	return identity, true
}
