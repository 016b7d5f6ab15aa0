// Package history persists conversation turns in Redis with a TTL.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/courtside-ai/courtside/internal/db"
	"github.com/courtside-ai/courtside/internal/domain"
)

// Turn is one question/answer exchange.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// kv is the consumer interface for history storage (ISP).
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo stores per-session turn lists as JSON values.
type Repo struct {
	store     kv
	keyPrefix string
	ttl       time.Duration
	maxTurns  int
}

// New creates a history repository.
func New(s kv, keyPrefix string, ttl time.Duration, maxTurns int) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, ttl: ttl, maxTurns: maxTurns}
}

func (r *Repo) key(sessionID string) string {
	return r.keyPrefix + "session:" + sessionID
}

// Turns returns the session's stored turns, oldest first.
func (r *Repo) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	data, err := r.store.Get(ctx, r.key(sessionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return turns, nil
}

// Append records one turn, trimming the list to the configured maximum and
// refreshing the TTL.
func (r *Repo) Append(ctx context.Context, sessionID string, turn Turn) error {
	turns, err := r.Turns(ctx, sessionID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}

	turns = append(turns, turn)
	if len(turns) > r.maxTurns {
		turns = turns[len(turns)-r.maxTurns:]
	}

	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, r.key(sessionID), data, r.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Context renders prior turns into the opaque conversation-context string
// handed to the orchestrator. Empty when the session is unknown.
func (r *Repo) Context(ctx context.Context, sessionID string) (string, error) {
	turns, err := r.Turns(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return "", nil
		}
		return "", err
	}

	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", t.Question, t.Answer)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
