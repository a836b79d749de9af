package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAssistants is an in-process stand-in for the assistants API. Run
// retrievals walk through the configured status sequence, sticking on the
// last entry.
type fakeAssistants struct {
	mu        sync.Mutex
	statuses  []string
	retrieves int
	cancelled bool
	created   int // user messages appended
	messages  []map[string]any
}

func (f *fakeAssistants) nextStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.retrieves
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.retrieves++
	return f.statuses[i]
}

func (f *fakeAssistants) router() http.Handler {
	reply := func(w http.ResponseWriter, payload any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}

	r := chi.NewRouter()
	r.Post("/v1/threads", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, map[string]any{"id": "thread_1", "object": "thread"})
	})
	r.Post("/v1/threads/{threadID}/messages", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.created++
		f.mu.Unlock()
		reply(w, map[string]any{"id": "msg_user", "object": "thread.message"})
	})
	r.Post("/v1/threads/{threadID}/runs", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, map[string]any{"id": "run_1", "thread_id": "thread_1", "status": "queued"})
	})
	r.Get("/v1/threads/{threadID}/runs/{runID}", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, map[string]any{"id": "run_1", "thread_id": "thread_1", "status": f.nextStatus()})
	})
	r.Post("/v1/threads/{threadID}/runs/{runID}/cancel", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
		reply(w, map[string]any{"id": "run_1", "thread_id": "thread_1", "status": "cancelling"})
	})
	r.Get("/v1/threads/{threadID}/messages", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, map[string]any{"object": "list", "data": f.messages})
	})
	return r
}

func assistantMessage(texts ...string) map[string]any {
	content := make([]map[string]any, 0, len(texts))
	for _, t := range texts {
		content = append(content, map[string]any{
			"type": "text",
			"text": map[string]any{"value": t, "annotations": []any{}},
		})
	}
	return map[string]any{"id": "msg_a", "role": "assistant", "content": content}
}

func userMessage(text string) map[string]any {
	return map[string]any{
		"id":   "msg_u",
		"role": "user",
		"content": []map[string]any{
			{"type": "text", "text": map[string]any{"value": text, "annotations": []any{}}},
		},
	}
}

func newTestClient(t *testing.T, fake *fakeAssistants) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.router())
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	c := NewClientWithConfig(cfg, "asst_test")
	c.pollInterval = time.Millisecond
	return c
}

func TestCreateThread(t *testing.T) {
	c := newTestClient(t, &fakeAssistants{statuses: []string{"queued"}})

	threadID, err := c.CreateThread(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "thread_1", threadID)
}

func TestConverseCompleted(t *testing.T) {
	fake := &fakeAssistants{
		statuses: []string{"queued", "in_progress", "completed"},
		messages: []map[string]any{assistantMessage("hello"), userMessage("hi")},
	}
	c := newTestClient(t, fake)

	reply, err := c.Converse(context.Background(), "thread_1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, 1, fake.created)
	assert.Equal(t, 3, fake.retrieves)
}

func TestConverseJoinsTextParts(t *testing.T) {
	fake := &fakeAssistants{
		statuses: []string{"completed"},
		messages: []map[string]any{assistantMessage("part one", "part two")},
	}
	c := newTestClient(t, fake)

	reply, err := c.Converse(context.Background(), "thread_1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "part one\npart two", reply)
}

func TestConverseSkipsEmptyAssistantMessage(t *testing.T) {
	fake := &fakeAssistants{
		statuses: []string{"completed"},
		messages: []map[string]any{
			assistantMessage(), // no text parts, must be skipped
			assistantMessage("actual answer"),
		},
	}
	c := newTestClient(t, fake)

	reply, err := c.Converse(context.Background(), "thread_1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "actual answer", reply)
}

func TestConverseNoAssistantText(t *testing.T) {
	fake := &fakeAssistants{
		statuses: []string{"completed"},
		messages: []map[string]any{userMessage("hi")},
	}
	c := newTestClient(t, fake)

	reply, err := c.Converse(context.Background(), "thread_1", "hi")
	require.NoError(t, err)
	assert.Equal(t, ReplyNoText, reply)
}

func TestConverseRunFailed(t *testing.T) {
	fake := &fakeAssistants{statuses: []string{"queued", "failed"}}
	c := newTestClient(t, fake)

	reply, err := c.Converse(context.Background(), "thread_1", "hi")
	require.NoError(t, err)
	assert.Equal(t, ReplyRunFailed, reply)
	assert.False(t, fake.cancelled)
}

func TestConverseRunExpired(t *testing.T) {
	fake := &fakeAssistants{statuses: []string{"expired"}}
	c := newTestClient(t, fake)

	reply, err := c.Converse(context.Background(), "thread_1", "hi")
	require.NoError(t, err)
	assert.Equal(t, ReplyRunFailed, reply)
}

func TestConverseRequiresActionCancelsRun(t *testing.T) {
	fake := &fakeAssistants{statuses: []string{"in_progress", "requires_action"}}
	c := newTestClient(t, fake)

	reply, err := c.Converse(context.Background(), "thread_1", "hi")
	require.NoError(t, err)
	assert.Equal(t, ReplyToolsNotConfigured, reply)
	assert.True(t, fake.cancelled)
}

func TestConversePollBudgetExhausted(t *testing.T) {
	fake := &fakeAssistants{statuses: []string{"in_progress"}}
	c := newTestClient(t, fake)

	reply, err := c.Converse(context.Background(), "thread_1", "hi")
	require.NoError(t, err)
	assert.Equal(t, ReplyTooSlow, reply)
	assert.Equal(t, defaultMaxPollIterations, fake.retrieves)
}

func TestConverseUnknownStatusKeepsPolling(t *testing.T) {
	fake := &fakeAssistants{
		statuses: []string{"some_future_status", "completed"},
		messages: []map[string]any{assistantMessage("still works")},
	}
	c := newTestClient(t, fake)

	reply, err := c.Converse(context.Background(), "thread_1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "still works", reply)
}

func TestConverseContextDeadline(t *testing.T) {
	fake := &fakeAssistants{statuses: []string{"in_progress"}}
	c := newTestClient(t, fake)
	c.pollInterval = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Converse(ctx, "thread_1", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
