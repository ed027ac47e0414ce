package memory

import (
	"sync"
	"time"

	"ai-chat-gateway/internal/entity"

	"github.com/patrickmn/go-cache"
)

// StateRepository stores pending OAuth flow states. A state is valid for
// exactly one Consume: lookup and delete happen under one lock, so a
// replayed callback with the same token always misses.
type StateRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewStateRepository(ttl time.Duration) *StateRepository {
	return &StateRepository{
		cache: cache.New(ttl, time.Minute),
	}
}

func (r *StateRepository) Save(state *entity.FlowState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Set(state.Token, state, cache.DefaultExpiration)
}

// Consume removes and returns the flow state for token. The second return
// is false when the token is unknown, expired, or already consumed.
func (r *StateRepository) Consume(token string) (*entity.FlowState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(token)
	if !found {
		return nil, false
	}
	r.cache.Delete(token)
	return x.(*entity.FlowState), true
}
