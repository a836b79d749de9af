package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/user/hrbot/pkg/logger"
)

// Outcome classifies how an inbound update was handled. Outcomes are logged
// once per request and never persisted.
const (
	OutcomeOK           = "ok"
	OutcomeDuplicate    = "duplicate"
	OutcomeNoMessage    = "no_message"
	OutcomeNoChatOrText = "no_chat_or_text"
	OutcomeTooLong      = "too_long"
	OutcomeTimeout      = "timeout"
	OutcomeAgentError   = "agent_error"
	OutcomeError        = "error"
)

// Fixed replies for pipeline-level degraded outcomes.
const (
	ReplyTooLong     = "Your message is too long. Please split it into smaller parts."
	ReplySlow        = "The response is taking longer than usual. Please try again."
	ReplyUnavailable = "Unable to respond right now. Please try again later."
)

const (
	defaultTextLimit       = 4000
	defaultPipelineTimeout = 25 * time.Second
)

// Ledger admits each update identifier exactly once.
type Ledger interface {
	Admit(ctx context.Context, updateID int64) (bool, error)
}

// ThreadResolver maps a chat to its conversation thread.
type ThreadResolver interface {
	Resolve(ctx context.Context, chatID int64) (string, error)
}

// Conversationalist runs one bounded agent exchange against a thread.
type Conversationalist interface {
	Converse(ctx context.Context, threadID, text string) (string, error)
}

// ReplySender delivers a text reply to a chat.
type ReplySender interface {
	Send(chatID int64, text string) error
}

// TelegramHandler dispatches inbound Telegram updates through the agent
// pipeline. Whatever happens inside, the response to Telegram is always
// 200 {"ok": true}; a non-200 would only make Telegram redeliver the update
// and the ledger, not the status code, is the defense against duplicates.
type TelegramHandler struct {
	ledger  Ledger
	threads ThreadResolver
	agent   Conversationalist
	sender  ReplySender

	textLimit int
	timeout   time.Duration
}

// NewTelegramHandler creates the webhook dispatcher.
func NewTelegramHandler(ledger Ledger, threads ThreadResolver, agent Conversationalist, sender ReplySender) *TelegramHandler {
	return &TelegramHandler{
		ledger:    ledger,
		threads:   threads,
		agent:     agent,
		sender:    sender,
		textLimit: defaultTextLimit,
		timeout:   defaultPipelineTimeout,
	}
}

// update is the inbound payload shape. UpdateID is a pointer so an absent
// field is distinguishable from a zero one.
type update struct {
	UpdateID      *int64            `json:"update_id"`
	Message       *tgbotapi.Message `json:"message"`
	EditedMessage *tgbotapi.Message `json:"edited_message"`
}

// result carries the per-request classification for the outcome log.
type result struct {
	outcome  string
	updateID int64
	chatID   int64
	threadID string
	err      error
}

// ServeHTTP handles one inbound update and always acknowledges it.
func (h *TelegramHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	started := time.Now()

	res := h.process(r)

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	// Exactly one outcome line per request.
	var evt *zerolog.Event
	if res.err != nil {
		evt = logger.Warn().Err(res.err)
	} else {
		evt = logger.Info()
	}
	evt.Str("request_id", requestID).
		Int64("update_id", res.updateID).
		Int64("chat_id", res.chatID).
		Str("thread_id", res.threadID).
		Str("outcome", res.outcome).
		Dur("duration", time.Since(started)).
		Msg("Telegram update handled")
}

// process runs the admission and agent pipeline. Errors never escape; they
// are folded into the returned outcome.
func (h *TelegramHandler) process(r *http.Request) result {
	res := result{outcome: OutcomeOK}

	var upd update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil || upd.UpdateID == nil {
		// Malformed or irrelevant payloads are acknowledged, not errors.
		return res
	}
	res.updateID = *upd.UpdateID

	// Admission must happen before any externally visible side effect.
	admitted, err := h.ledger.Admit(r.Context(), res.updateID)
	if err != nil {
		res.outcome, res.err = OutcomeError, err
		return res
	}
	if !admitted {
		res.outcome = OutcomeDuplicate
		return res
	}

	msg := upd.Message
	if msg == nil {
		msg = upd.EditedMessage
	}
	if msg == nil {
		res.outcome = OutcomeNoMessage
		return res
	}
	if msg.Chat == nil || msg.Chat.ID == 0 || msg.Text == "" {
		res.outcome = OutcomeNoChatOrText
		return res
	}
	res.chatID = msg.Chat.ID

	if utf8.RuneCountInString(msg.Text) > h.textLimit {
		h.deliver(res.chatID, ReplyTooLong)
		res.outcome = OutcomeTooLong
		return res
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reply, err := h.converse(ctx, &res, msg.Text)
	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil):
		res.outcome = OutcomeTimeout
		reply = ReplySlow
	case err != nil:
		res.outcome, res.err = OutcomeAgentError, err
		reply = ReplyUnavailable
	}

	h.deliver(res.chatID, reply)
	return res
}

// converse resolves the thread and runs the agent exchange under the
// pipeline deadline.
func (h *TelegramHandler) converse(ctx context.Context, res *result, text string) (string, error) {
	threadID, err := h.threads.Resolve(ctx, res.chatID)
	if err != nil {
		return "", err
	}
	res.threadID = threadID
	return h.agent.Converse(ctx, threadID, text)
}

// deliver sends the reply best-effort. Delivery failures are logged and
// swallowed; Telegram only requires the webhook to be acknowledged.
func (h *TelegramHandler) deliver(chatID int64, text string) {
	if err := h.sender.Send(chatID, text); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}
