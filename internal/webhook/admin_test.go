package webhook

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/hrbot/internal/telegram"
)

type fakeRegistrar struct {
	registerErr error
	registered  int
	status      *telegram.WebhookStatus
	statusErr   error
}

func (f *fakeRegistrar) Register() error {
	f.registered++
	return f.registerErr
}

func (f *fakeRegistrar) Status() (*telegram.WebhookStatus, error) {
	return f.status, f.statusErr
}

func TestSetWebhookRequiresToken(t *testing.T) {
	reg := &fakeRegistrar{}
	h := NewAdminHandler(reg, "secret-token")

	rec := httptest.NewRecorder()
	h.SetWebhook(rec, httptest.NewRequest(http.MethodPost, "/telegram/set-webhook", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, reg.registered)
}

func TestSetWebhookRejectsWhenTokenUnconfigured(t *testing.T) {
	reg := &fakeRegistrar{}
	h := NewAdminHandler(reg, "")

	req := httptest.NewRequest(http.MethodPost, "/telegram/set-webhook", nil)
	req.Header.Set("x-internal-token", "")

	rec := httptest.NewRecorder()
	h.SetWebhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetWebhookSuccess(t *testing.T) {
	reg := &fakeRegistrar{}
	h := NewAdminHandler(reg, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/telegram/set-webhook", nil)
	req.Header.Set("x-internal-token", "secret-token")

	rec := httptest.NewRecorder()
	h.SetWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, reg.registered)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestSetWebhookRegistrationFailure(t *testing.T) {
	reg := &fakeRegistrar{registerErr: fmt.Errorf("telegram rejected url")}
	h := NewAdminHandler(reg, "secret-token")

	req := httptest.NewRequest(http.MethodPost, "/telegram/set-webhook", nil)
	req.Header.Set("x-internal-token", "secret-token")

	rec := httptest.NewRecorder()
	h.SetWebhook(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookStatusReport(t *testing.T) {
	reg := &fakeRegistrar{status: &telegram.WebhookStatus{
		WebhookSet:  true,
		WebhookURL:  "https://bot.example.com/telegram/webhook",
		ExpectedURL: "https://bot.example.com/telegram/webhook",
		URLMatches:  true,
		Status:      "ok",
	}}
	h := NewAdminHandler(reg, "secret-token")

	rec := httptest.NewRecorder()
	h.WebhookStatus(rec, httptest.NewRequest(http.MethodGet, "/telegram/webhook-status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"url_matches":true`)
}

func TestWebhookStatusFailureStillResponds(t *testing.T) {
	reg := &fakeRegistrar{statusErr: fmt.Errorf("telegram unreachable")}
	h := NewAdminHandler(reg, "secret-token")

	rec := httptest.NewRecorder()
	h.WebhookStatus(rec, httptest.NewRequest(http.MethodGet, "/telegram/webhook-status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"webhook_set":false`)
}
