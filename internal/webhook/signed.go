package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/user/hrbot/pkg/logger"
)

// SignedHandler serves the generic signed-webhook channel. Unlike the
// Telegram channel it propagates validation failures as HTTP errors; there
// is no retrying platform on the other side that would amplify them.
type SignedHandler struct {
	secret string
}

// NewSignedHandler creates a handler verifying against the shared secret.
func NewSignedHandler(secret string) *SignedHandler {
	return &SignedHandler{secret: secret}
}

// ServeHTTP verifies the signature headers and acknowledges the event.
func (h *SignedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		http.Error(w, "webhook secret is not configured", http.StatusInternalServerError)
		return
	}

	webhookID := r.Header.Get("webhook-id")
	timestamp := r.Header.Get("webhook-timestamp")
	signature := r.Header.Get("webhook-signature")
	if webhookID == "" || timestamp == "" || signature == "" {
		http.Error(w, "missing signature headers", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !VerifySignature(body, timestamp, signature, h.secret) {
		logger.Warn().Str("webhook_id", webhookID).Msg("Invalid webhook signature")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var event struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	logger.Info().
		Str("webhook_id", webhookID).
		Str("event_type", event.Type).
		Msg("Signed webhook event received")

	writeJSON(w, http.StatusOK, map[string]any{
		"received":   true,
		"event_type": event.Type,
		"webhook_id": webhookID,
	})
}
