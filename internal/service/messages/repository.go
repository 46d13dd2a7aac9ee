package messages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/vibecheck/backend/internal/model/message"
	"github.com/zhouzirui/vibecheck/backend/internal/storage"
)

var (
	ErrRecipientRequired = errors.New("recipient is required")
	ErrContentRequired   = errors.New("content is required")
	ErrMessageNotFound   = errors.New("message not found")
)

// Repository owns the flat message collection shared by every recipient.
// Read-modify-write cycles are serialized within the process.
type Repository struct {
	mu    sync.Mutex
	store *storage.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewRepository binds the collection stored at the root of store.
func NewRepository(store *storage.Store, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{store: store, log: logger.Named("messages"), now: time.Now}
}

func (r *Repository) load() []message.Message {
	all, _ := storage.Load[[]message.Message](r.store, storage.KeyMessages)
	return all
}

// All returns a copy of every stored message in storage order.
func (r *Repository) All(_ context.Context) []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.load()
	out := make([]message.Message, len(all))
	for i, m := range all {
		out[i] = m.Clone()
	}
	return out
}

// Create appends a new unread message for recipient.
func (r *Repository) Create(_ context.Context, recipient, content string) (message.Message, error) {
	recipient = strings.ToLower(strings.TrimSpace(recipient))
	content = strings.TrimSpace(content)
	if recipient == "" {
		return message.Message{}, ErrRecipientRequired
	}
	if content == "" {
		return message.Message{}, ErrContentRequired
	}

	id, err := uuid.NewV7()
	if err != nil {
		return message.Message{}, err
	}
	msg := message.Message{
		ID:          id.String(),
		RecipientID: recipient,
		Content:     content,
		Timestamp:   r.now().UnixMilli(),
		Replies:     []message.ChatMessage{},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	all := append(r.load(), msg)
	if err := r.store.Save(storage.KeyMessages, all); err != nil {
		return message.Message{}, err
	}
	r.log.Debug("message stored", zap.String("id", msg.ID), zap.String("recipient", recipient))
	return msg.Clone(), nil
}

// Update applies fn to the stored message with id and persists the result.
func (r *Repository) Update(_ context.Context, id string, fn func(*message.Message)) (message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.load()
	for i := range all {
		if all[i].ID != id {
			continue
		}
		fn(&all[i])
		if err := r.store.Save(storage.KeyMessages, all); err != nil {
			return message.Message{}, err
		}
		return all[i].Clone(), nil
	}
	return message.Message{}, ErrMessageNotFound
}

// MarkRead flips the read flag on id.
func (r *Repository) MarkRead(ctx context.Context, id string) (message.Message, error) {
	return r.Update(ctx, id, func(m *message.Message) { m.Read = true })
}

// AppendReply adds a chat line to the end of id's reply thread.
func (r *Repository) AppendReply(ctx context.Context, id string, role message.Role, content string) (message.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return message.Message{}, ErrContentRequired
	}
	reply := message.ChatMessage{Role: role, Content: content, Timestamp: r.now().UnixMilli()}
	return r.Update(ctx, id, func(m *message.Message) {
		m.Replies = append(m.Replies, reply)
	})
}

// Delete removes id. It reports whether anything was removed; deleting an
// unknown id is not an error.
func (r *Repository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.load()
	kept := all[:0]
	for _, m := range all {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(all) {
		return false, nil
	}
	if err := r.store.Save(storage.KeyMessages, kept); err != nil {
		return false, err
	}
	return true, nil
}
