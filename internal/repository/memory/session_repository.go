package memory

import (
	"errors"
	"sync"
	"time"

	"ai-chat-gateway/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var ErrSessionNotFound = errors.New("session not found")

// sessionHandle pairs a session with its own mutex so history mutation
// serializes per session while unrelated sessions stay concurrent.
type sessionHandle struct {
	mu   sync.Mutex
	sess *entity.ChatSession
}

// SessionRepository owns every live chat session. Sessions are volatile:
// they vanish on expiry or process restart. The repository performs no
// authentication; it trusts session ids only after the OAuth layer has
// verified the owning identity.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	// Purge expired sessions every 10 minutes, like the session cache
	// elsewhere in the stack.
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *SessionRepository) handle(sessionID string) (*sessionHandle, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*sessionHandle), true
	}
	return nil, false
}

// Create materializes a fresh session for an already-verified identity and
// returns it with its unguessable id.
func (r *SessionRepository) Create(identity entity.Identity) *entity.ChatSession {
	sess := &entity.ChatSession{
		ID:        uuid.NewString(),
		Identity:  identity,
		CreatedAt: time.Now(),
	}
	r.cache.Set(sess.ID, &sessionHandle{sess: sess}, cache.DefaultExpiration)
	return sess
}

// Get returns a snapshot of the session: identity plus a copy of the
// message slice, so callers cannot mutate history behind the lock.
func (r *SessionRepository) Get(sessionID string) (*entity.ChatSession, bool) {
	h, found := r.handle(sessionID)
	if !found {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := *h.sess
	snapshot.Messages = append([]entity.ChatMessage(nil), h.sess.Messages...)
	return &snapshot, true
}

// AppendMessages appends in the given order under the session lock.
// History is append-only; nothing else ever reorders or rewrites it.
func (r *SessionRepository) AppendMessages(sessionID string, messages ...entity.ChatMessage) error {
	h, found := r.handle(sessionID)
	if !found {
		return ErrSessionNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sess.Messages = append(h.sess.Messages, messages...)
	return nil
}

// WithLock runs fn while holding the session's exclusive section. The chat
// pipeline uses this to keep "build request, call upstream, append result"
// atomic per session.
func (r *SessionRepository) WithLock(sessionID string, fn func(sess *entity.ChatSession) error) error {
	h, found := r.handle(sessionID)
	if !found {
		return ErrSessionNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	return fn(h.sess)
}

// Reset clears the conversation but keeps the authenticated identity.
func (r *SessionRepository) Reset(sessionID string) error {
	h, found := r.handle(sessionID)
	if !found {
		return ErrSessionNotFound
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sess.Messages = nil
	return nil
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
