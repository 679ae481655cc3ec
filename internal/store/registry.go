package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrMissingSessionID = errors.New("session id is required")

const (
	persistTimeout = 2 * time.Second

	DefaultIdleTimeout = 30 * time.Minute
)

type session struct {
	store    *Store
	lastSeen time.Time
}

// Registry hands out one Store per storefront session. A session's state is
// loaded once on first access and written back on every mutation. Sessions
// idle for longer than the idle timeout are dropped from memory by Sweep and
// restored from storage on their next access.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*session
	persister Persister
	idle      time.Duration
	now       func() time.Time
	onEvict   []func(sessionID string)
	logger    *zap.Logger
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithIdleTimeout sets how long an unused session stays in memory
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idle = d
		}
	}
}

// WithEvictHook registers a function called with the id of every evicted session
func WithEvictHook(fn func(sessionID string)) RegistryOption {
	return func(r *Registry) {
		r.onEvict = append(r.onEvict, fn)
	}
}

// NewRegistry creates a registry backed by the given persister
func NewRegistry(persister Persister, logger *zap.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions:  make(map[string]*session),
		persister: persister,
		idle:      DefaultIdleTimeout,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the store of a session, restoring it from storage on first use
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.sessions[sessionID]; ok {
		entry.lastSeen = r.now()
		return entry.store, nil
	}

	var state State
	if _, err := r.persister.Load(ctx, Key(ScopeStore, sessionID), &state); err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	var compare CompareState
	if _, err := r.persister.Load(ctx, Key(ScopeCompare, sessionID), &compare); err != nil {
		return nil, fmt.Errorf("failed to load compare state: %w", err)
	}

	s := Restore(state, compare)
	s.OnChange(r.writeThrough(sessionID))
	r.sessions[sessionID] = &session{store: s, lastSeen: r.now()}

	r.logger.Debug("Session store restored",
		zap.String("session_id", sessionID),
		zap.Int("cart_lines", len(state.Cart)),
		zap.Int("compare_items", len(compare.CompareList)),
	)

	return s, nil
}

// Len reports how many sessions are held in memory
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Forget drops the in-memory copy of a session; its persisted state stays
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if ok {
		for _, fn := range r.onEvict {
			fn(sessionID)
		}
	}
}

// Sweep forgets every session not accessed within the idle timeout and
// returns how many were dropped
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var idle []string
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			idle = append(idle, id)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, id := range idle {
		for _, fn := range r.onEvict {
			fn(id)
		}
	}
	if len(idle) > 0 {
		r.logger.Debug("Idle sessions evicted", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run sweeps idle sessions every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.idle / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) writeThrough(sessionID string) ChangeFunc {
	return func(scope Scope, snapshot any) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := r.persister.Save(ctx, Key(scope, sessionID), snapshot); err != nil {
			r.logger.Error("Failed to persist session state",
				zap.String("session_id", sessionID),
				zap.String("scope", string(scope)),
				zap.Error(err),
			)
		}
	}
}
