package api

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/safar/go-ticket-desk/internal/booking"
	"github.com/safar/go-ticket-desk/internal/telegram"
	"go.uber.org/zap"
)

const (
	webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxWebhookBody      = 1 << 20
)

type webhookAck struct {
	OK bool `json:"ok"`
}

// handleTelegramWebhook turns callback queries into admin interactions.
// Authenticated updates are always acknowledged with 200, including ones
// that fail to parse, so the platform does not redeliver them.
func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WebhookSecret != "" {
		got := r.Header.Get(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.WebhookSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid webhook secret")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.logger.Warn("read webhook body", zap.Error(err))
		writeJSON(w, http.StatusOK, webhookAck{OK: true})
		return
	}

	var update telegram.Update
	if err := json.Unmarshal(body, &update); err != nil {
		s.logger.Warn("decode webhook update", zap.Error(err))
		writeJSON(w, http.StatusOK, webhookAck{OK: true})
		return
	}

	if update.CallbackQuery == nil {
		s.logger.Debug("ignoring update", zap.Int64("update_id", update.UpdateID))
		writeJSON(w, http.StatusOK, webhookAck{OK: true})
		return
	}

	in := booking.InteractionFromCallback(update.CallbackQuery)
	toast := s.decisions.HandleInteraction(r.Context(), in)
	s.logger.Info("admin interaction",
		zap.Int64("update_id", update.UpdateID),
		zap.String("data", in.Data),
		zap.String("actor", in.Actor),
		zap.String("result", toast))

	writeJSON(w, http.StatusOK, webhookAck{OK: true})
}
