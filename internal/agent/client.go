// Package agent provides the client for the conversational agent backend
// and the per-chat thread directory.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/user/hrbot/pkg/logger"
)

// Fixed user-facing replies for degraded agent outcomes. The chat user
// always gets a readable message instead of silence or a raw error.
const (
	ReplyRunFailed          = "Could not get a response from the agent. Please try again later."
	ReplyToolsNotConfigured = "The bot tried to use tools that are not configured. Please contact the administrator."
	ReplyTooSlow            = "Processing is taking too long. Please try again later."
	ReplyNoText             = "The agent returned no text response."
)

const (
	defaultPollInterval      = 500 * time.Millisecond
	defaultMaxPollIterations = 10
	messagePageSize          = 5
)

// Client wraps the assistants API of the agent backend. A run against a
// thread is polled with an explicit step budget; the client never waits on
// a run indefinitely.
type Client struct {
	api         *openai.Client
	assistantID string

	pollInterval      time.Duration
	maxPollIterations int
}

// NewClient creates a new agent client for a fixed assistant identity.
func NewClient(apiKey, assistantID string) *Client {
	return NewClientWithConfig(openai.DefaultConfig(apiKey), assistantID)
}

// NewClientWithConfig creates an agent client with a custom API
// configuration, e.g. a non-default base URL.
func NewClientWithConfig(cfg openai.ClientConfig, assistantID string) *Client {
	return &Client{
		api:               openai.NewClientWithConfig(cfg),
		assistantID:       assistantID,
		pollInterval:      defaultPollInterval,
		maxPollIterations: defaultMaxPollIterations,
	}
}

// CreateThread creates a new conversation thread and returns its id.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return thread.ID, nil
}

// Converse appends a user message to the thread, starts a run and waits for
// it to finish, then returns the agent's reply. Degraded outcomes (run
// failure, missing tool handlers, exhausted poll budget) come back as fixed
// reply texts, not errors.
func (c *Client) Converse(ctx context.Context, threadID, text string) (string, error) {
	_, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to append message: %w", err)
	}

	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}

	return c.awaitRun(ctx, threadID, run.ID)
}

// awaitRun polls the run until it reaches a terminal status or the poll
// budget is exhausted.
func (c *Client) awaitRun(ctx context.Context, threadID, runID string) (string, error) {
	for i := 0; i < c.maxPollIterations; i++ {
		run, err := c.api.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return "", fmt.Errorf("failed to retrieve run: %w", err)
		}

		switch run.Status {
		case openai.RunStatusCompleted:
			return c.lastAssistantReply(ctx, threadID)

		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired:
			logger.Warn().
				Str("run_id", runID).
				Str("status", string(run.Status)).
				Msg("Run ended without a response")
			return ReplyRunFailed, nil

		case openai.RunStatusRequiresAction:
			// The assistant wants to call tools, but no tool handlers are
			// wired up. Cancel the run so it does not hang upstream.
			logger.Error().
				Str("run_id", runID).
				Str("thread_id", threadID).
				Msg("Run requires tool actions but none are configured")
			if _, err := c.api.CancelRun(ctx, threadID, runID); err != nil {
				logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to cancel run")
			}
			return ReplyToolsNotConfigured, nil
		}

		// queued, in_progress, or a status this client does not know about:
		// keep polling within the budget.
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	logger.Warn().
		Str("run_id", runID).
		Str("thread_id", threadID).
		Int("iterations", c.maxPollIterations).
		Msg("Run did not reach a terminal status within the poll budget")
	return ReplyTooSlow, nil
}

// lastAssistantReply fetches the newest messages on the thread and returns
// the text of the most recent assistant message, its text parts joined with
// newlines.
func (c *Client) lastAssistantReply(ctx context.Context, threadID string) (string, error) {
	limit := messagePageSize
	order := "desc"
	list, err := c.api.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list messages: %w", err)
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		var parts []string
		for _, content := range msg.Content {
			if content.Text != nil && content.Text.Value != "" {
				parts = append(parts, content.Text.Value)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n"), nil
		}
	}
	return ReplyNoText, nil
}
