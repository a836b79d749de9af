package telegram

import (
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookPath is the route Telegram delivers updates to.
const WebhookPath = "/telegram/webhook"

// WebhookStatus reports the currently configured Telegram webhook compared
// with what this service expects.
type WebhookStatus struct {
	WebhookSet     bool   `json:"webhook_set"`
	WebhookURL     string `json:"webhook_url"`
	ExpectedURL    string `json:"expected_url"`
	URLMatches     bool   `json:"url_matches"`
	PendingUpdates int    `json:"pending_updates"`
	LastError      string `json:"last_error_message,omitempty"`
	Status         string `json:"status"`
}

// WebhookManager registers the bot's webhook with Telegram and reports its
// state. Registration is verified with a read-back because Telegram can
// accept a setWebhook call and still keep a different URL.
type WebhookManager struct {
	api       *tgbotapi.BotAPI
	publicURL string

	mu     sync.Mutex
	status string
}

// NewWebhookManager creates a new webhook manager.
func NewWebhookManager(api *tgbotapi.BotAPI, publicURL string) *WebhookManager {
	return &WebhookManager{api: api, publicURL: publicURL}
}

// WebhookURL returns the full webhook URL derived from the public base URL.
func (m *WebhookManager) WebhookURL() string {
	return strings.TrimRight(m.publicURL, "/") + WebhookPath
}

// Register sets the webhook with Telegram and verifies the configured URL.
func (m *WebhookManager) Register() error {
	if m.publicURL == "" {
		m.setStatus("error")
		return fmt.Errorf("public url is not configured")
	}

	url := m.WebhookURL()
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		m.setStatus("error")
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := m.api.Request(wh); err != nil {
		m.setStatus("error")
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	// Read back what Telegram actually stored.
	info, err := m.api.GetWebhookInfo()
	if err != nil {
		m.setStatus("error")
		return fmt.Errorf("failed to verify webhook: %w", err)
	}
	if info.URL != url {
		m.setStatus("url_mismatch")
		return fmt.Errorf("webhook url mismatch: expected %s, got %s", url, info.URL)
	}

	m.setStatus("ok")
	return nil
}

// Status fetches the current webhook configuration from Telegram.
func (m *WebhookManager) Status() (*WebhookStatus, error) {
	info, err := m.api.GetWebhookInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook info: %w", err)
	}

	expected := ""
	if m.publicURL != "" {
		expected = m.WebhookURL()
	}

	return &WebhookStatus{
		WebhookSet:     info.URL != "",
		WebhookURL:     info.URL,
		ExpectedURL:    expected,
		URLMatches:     expected != "" && info.URL == expected,
		PendingUpdates: info.PendingUpdateCount,
		LastError:      info.LastErrorMessage,
		Status:         m.lastStatus(),
	}, nil
}

func (m *WebhookManager) setStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *WebhookManager) lastStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}
