package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"perfect-traders-go/internal/identity"
	"perfect-traders-go/internal/ledger"
	"perfect-traders-go/internal/market"
	"perfect-traders-go/internal/models"

	"go.uber.org/zap"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	users    *identity.Store
	registry *market.Registry
	book     *ledger.Ledger
	logger   *zap.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(users *identity.Store, registry *market.Registry, book *ledger.Ledger, logger *zap.Logger) *APIHandler {
	return &APIHandler{users: users, registry: registry, book: book, logger: logger}
}

type signupRequest struct {
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	TermsAccepted bool   `json:"terms_accepted"`
}

type loginRequest struct {
	Email string `json:"email"`
}

type tradeRequest struct {
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Lots   float64 `json:"lots,omitempty"`
}

type addSymbolRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type setPriceRequest struct {
	Price float64 `json:"price"`
}

type accountResponse struct {
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Balance float64 `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Signup registers a new user and opens a session for them.
func (h *APIHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.users.Signup(r.Context(), req.Phone, req.Email, req.TermsAccepted)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Login opens a session for an existing user.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.users.Login(req.Email)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found, please sign up first")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Logout clears the active session.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.users.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the active session, or 401 when nobody is logged in.
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, ok := h.users.Active()
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Symbols returns the current quote for every registered symbol.
func (h *APIHandler) Symbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Snapshot())
}

// PlaceTrade executes a trade for the logged-in user.
func (h *APIHandler) PlaceTrade(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.users.Active(); !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Lots == 0 {
		req.Lots = 1
	}

	record, err := h.book.PlaceTrade(r.Context(), req.Symbol, req.Side, req.Lots)
	if err != nil {
		switch {
		case errors.Is(err, market.ErrSymbolNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Trades returns the trade history, most recent first.
func (h *APIHandler) Trades(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.users.Active(); !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, h.book.History())
}

// Account returns the logged-in user's identity and balance.
func (h *APIHandler) Account(w http.ResponseWriter, r *http.Request) {
	session, ok := h.users.Active()
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{
		Email:   session.Email,
		Phone:   session.Phone,
		Balance: h.book.Balance(),
	})
}

// AddSymbol registers a new tradable symbol.
func (h *APIHandler) AddSymbol(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.users.Active(); !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	var req addSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.AddSymbol(req.Name, req.Price); err != nil {
		switch {
		case errors.Is(err, market.ErrSymbolExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	name := strings.ToUpper(strings.TrimSpace(req.Name))
	price, _ := h.registry.Price(name)
	writeJSON(w, http.StatusCreated, models.Symbol{Name: name, Price: price})
}

// SetPrice overrides the price of an existing symbol.
func (h *APIHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.users.Active(); !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	name := r.PathValue("name")
	var req setPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.SetPrice(name, req.Price); err != nil {
		switch {
		case errors.Is(err, market.ErrSymbolNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	normalized := strings.ToUpper(strings.TrimSpace(name))
	price, _ := h.registry.Price(normalized)
	writeJSON(w, http.StatusOK, models.Symbol{Name: normalized, Price: price})
}

// Users returns all registered users for the admin panel.
func (h *APIHandler) Users(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.users.Active(); !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, h.users.Users())
}

// Health is a plain liveness probe.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
