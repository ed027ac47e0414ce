// Package usage counts requests and estimated tokens per identity and
// enforces the demo tier ceilings.
package usage

import (
	"fmt"
	"sync"
	"time"

	"ai-chat-gateway/internal/entity"
	"ai-chat-gateway/internal/pkg/logger"
)

const (
	ReasonRequests = "requests"
	ReasonTokens   = "tokens"
)

// QuotaExceededError carries the specific ceiling and counts so the caller
// can explain the limit to the user.
type QuotaExceededError struct {
	Reason string `json:"reason"`
	Used   int    `json:"used"`
	Limit  int    `json:"limit"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("demo %s limit reached (%d/%d)", e.Reason, e.Used, e.Limit)
}

// Record is one identity's usage inside the current window. The window is
// the process lifetime; WindowStart is informational.
type Record struct {
	Requests    int
	Tokens      int
	WindowStart time.Time
}

// Snapshot is the read-only view served by the usage endpoint.
type Snapshot struct {
	Requests     int
	Tokens       int
	RequestLimit int
	TokenLimit   int
	Unlimited    bool
}

// Tracker holds per-identity usage records. Check-and-reserve runs under a
// single lock so two concurrent demo requests cannot both slip past the
// ceiling.
type Tracker struct {
	mu           sync.Mutex
	records      map[string]*Record
	requestLimit int
	tokenLimit   int
	logger       logger.ILogger
}

func NewTracker(requestLimit, tokenLimit int, log logger.ILogger) *Tracker {
	return &Tracker{
		records:      make(map[string]*Record),
		requestLimit: requestLimit,
		tokenLimit:   tokenLimit,
		logger:       log,
	}
}

func (t *Tracker) record(email string) *Record {
	rec, ok := t.records[email]
	if !ok {
		rec = &Record{WindowStart: time.Now()}
		t.records[email] = rec
	}
	return rec
}

// CheckAndReserve verifies the identity's ceilings and, on success, counts
// the request. Admin and unrestricted tiers are never rejected but their
// requests are still recorded for observability. Must be called strictly
// before any upstream work.
func (t *Tracker) CheckAndReserve(id entity.Identity) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record(id.Email)
	if id.Tier == entity.TierDemo {
		if rec.Requests >= t.requestLimit {
			return &QuotaExceededError{Reason: ReasonRequests, Used: rec.Requests, Limit: t.requestLimit}
		}
		if rec.Tokens >= t.tokenLimit {
			return &QuotaExceededError{Reason: ReasonTokens, Used: rec.Tokens, Limit: t.tokenLimit}
		}
	}
	rec.Requests++
	return nil
}

// Release undoes a reservation when no generation happened (cache hit or
// upstream failure), so the identity is not charged for the attempt.
func (t *Tracker) Release(id entity.Identity) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record(id.Email)
	if rec.Requests > 0 {
		rec.Requests--
	}
}

// Commit adds the token estimate of a completed exchange.
func (t *Tracker) Commit(id entity.Identity, tokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record(id.Email)
	rec.Tokens += tokens

	t.logger.Debug("USAGE", "Recorded usage", map[string]interface{}{
		"email":    id.Email,
		"tier":     id.Tier,
		"tokens":   tokens,
		"requests": rec.Requests,
	})
}

func (t *Tracker) Snapshot(id entity.Identity) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record(id.Email)
	return Snapshot{
		Requests:     rec.Requests,
		Tokens:       rec.Tokens,
		RequestLimit: t.requestLimit,
		TokenLimit:   t.tokenLimit,
		Unlimited:    id.Tier != entity.TierDemo,
	}
}
