package webhook

import (
	"net/http"

	"github.com/user/hrbot/internal/telegram"
	"github.com/user/hrbot/pkg/logger"
)

// WebhookRegistrar manages the Telegram webhook registration.
type WebhookRegistrar interface {
	Register() error
	Status() (*telegram.WebhookStatus, error)
}

// AdminHandler exposes webhook management endpoints. Registration is
// guarded by an internal token; the status report is public.
type AdminHandler struct {
	registrar     WebhookRegistrar
	internalToken string
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(registrar WebhookRegistrar, internalToken string) *AdminHandler {
	return &AdminHandler{registrar: registrar, internalToken: internalToken}
}

// SetWebhook registers the webhook with Telegram on demand.
func (h *AdminHandler) SetWebhook(w http.ResponseWriter, r *http.Request) {
	if h.internalToken == "" || r.Header.Get("x-internal-token") != h.internalToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.registrar.Register(); err != nil {
		logger.Error().Err(err).Msg("Webhook registration failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status": "error",
			"detail": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// WebhookStatus reports the current webhook configuration.
func (h *AdminHandler) WebhookStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.registrar.Status()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"webhook_set": false,
			"status":      "error",
			"error":       err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, status)
}
