package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/user/hrbot/internal/storage"
	"github.com/user/hrbot/pkg/logger"
)

// ThreadCreator creates a new conversation thread upstream.
type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

// ThreadStore is the durable chat-to-thread mapping behind the cache.
type ThreadStore interface {
	Get(ctx context.Context, chatID int64) (string, error)
	Upsert(ctx context.Context, chatID int64, threadID string) error
}

// Directory resolves a chat to its conversation thread. The in-memory cache
// is a process-lifetime fast path over the durable store; the store stays
// authoritative and is read on every cache miss.
//
// Two requests for the same unmapped chat may race and create two upstream
// threads. The last upsert wins in the store; the losing thread is simply
// never referenced again.
type Directory struct {
	cache   sync.Map // chat_id -> thread_id
	store   ThreadStore
	creator ThreadCreator
}

// NewDirectory creates a new thread directory.
func NewDirectory(store ThreadStore, creator ThreadCreator) *Directory {
	return &Directory{store: store, creator: creator}
}

// Resolve returns the thread id for a chat, creating and persisting a new
// upstream thread on first contact.
func (d *Directory) Resolve(ctx context.Context, chatID int64) (string, error) {
	if cached, ok := d.cache.Load(chatID); ok {
		return cached.(string), nil
	}

	threadID, err := d.store.Get(ctx, chatID)
	if err == nil {
		d.cache.Store(chatID, threadID)
		return threadID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	threadID, err = d.creator.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	if err := d.store.Upsert(ctx, chatID, threadID); err != nil {
		return "", err
	}
	d.cache.Store(chatID, threadID)

	logger.Info().
		Int64("chat_id", chatID).
		Str("thread_id", threadID).
		Msg("Created conversation thread for chat")
	return threadID, nil
}
