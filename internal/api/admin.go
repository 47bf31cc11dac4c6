package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/safar/go-ticket-desk/internal/models"
	"github.com/safar/go-ticket-desk/internal/store"
)

const (
	defaultOrdersLimit = 20
	maxOrdersLimit     = 100
)

type RegisterRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type DecisionResponse struct {
	Order   OrderSummary `json:"order"`
	Changed bool         `json:"changed"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	session, err := s.authn.Register(r.Context(), req.Username, req.DisplayName, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	session, err := s.authn.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetAdminPaymentSettings(w http.ResponseWriter, r *http.Request) {
	admin := adminFromContext(r.Context())
	settings, err := s.store.GetAdminPaymentSettings(r.Context(), admin.AdminID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutAdminPaymentSettings(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	req.CardNumber = strings.TrimSpace(req.CardNumber)
	req.CardHolderName = strings.TrimSpace(req.CardHolderName)
	req.BankName = strings.TrimSpace(req.BankName)

	admin := adminFromContext(r.Context())
	if err := s.store.UpsertAdminPaymentSettings(r.Context(), admin.AdminID, req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleListAdminOrders(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	if _, err := store.DecodeCursor(cursor); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidCursor, "invalid cursor")
		return
	}

	limit := defaultOrdersLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "limit must be a positive integer")
			return
		}
		limit = min(n, maxOrdersLimit)
	}

	admin := adminFromContext(r.Context())
	page, err := s.store.ListOrdersCursor(r.Context(), admin.AdminID, cursor, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleAdminDecision confirms or rejects an order from the web panel. An
// admin may only decide orders for their own events; unowned orders are open
// to any admin.
func (s *Server) handleAdminDecision(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin := adminFromContext(r.Context())

		order, err := s.orders.Order(r.Context(), r.PathValue("code"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if order.AdminID != nil && *order.AdminID != admin.AdminID {
			writeError(w, http.StatusForbidden, codeForbidden, "order belongs to another admin")
			return
		}

		res, err := s.decisions.Apply(r.Context(), action, order.ID, "@"+admin.Username, nil)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, DecisionResponse{Order: summarize(res.Order), Changed: res.Changed})
	}
}
