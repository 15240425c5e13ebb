package card

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"Chlothzy/internal/cart"
	"Chlothzy/internal/flow"
	"Chlothzy/internal/storage"
)

const keyPrefix = "session:"

// ErrSessionBusy is returned by Forget while a flow of the session is running.
var ErrSessionBusy = errors.New("session has a flow in progress")

type FlowConfig struct {
	AddToCartDelay time.Duration
	BuyNowDelay    time.Duration
	ResetDelay     time.Duration
}

func DefaultFlowConfig() FlowConfig {
	return FlowConfig{
		AddToCartDelay: flow.AddToCartDelay,
		BuyNowDelay:    flow.BuyNowDelay,
		ResetDelay:     flow.ResetDelay,
	}
}

// Session is one client's card page: its store and its two buttons.
type Session struct {
	ID        string
	Cart      *cart.Store
	AddToCart *flow.Flow
	BuyNow    *flow.Flow

	lastSeen time.Time
}

func (s *Session) busy() bool {
	return s.AddToCart.State() != flow.Idle || s.BuyNow.State() != flow.Idle
}

// Sessions keeps live sessions in memory. A session's store is hydrated from
// kv the first time it is used, so evicted sessions come back intact.
type Sessions struct {
	kv      storage.Store
	log     *zap.Logger
	flows   FlowConfig
	metrics *flow.Metrics

	mu    sync.Mutex
	m     map[string]*Session
	loads singleflight.Group
}

func NewSessions(kv storage.Store, log *zap.Logger, flows FlowConfig, metrics *flow.Metrics) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sessions{
		kv:      kv,
		log:     log,
		flows:   flows,
		metrics: metrics,
		m:       map[string]*Session{},
	}
}

// Get returns the live session for id, hydrating it from kv on first use.
// Concurrent first calls for one id share a single hydration; other sessions
// are not blocked while it runs.
func (s *Sessions) Get(ctx context.Context, id string) *Session {
	if sess := s.lookup(id); sess != nil {
		return sess
	}

	v, _, _ := s.loads.Do(id, func() (any, error) {
		if sess := s.lookup(id); sess != nil {
			return sess, nil
		}

		sess := s.load(context.WithoutCancel(ctx), id)

		s.mu.Lock()
		s.m[id] = sess
		s.mu.Unlock()
		return sess, nil
	})
	return v.(*Session)
}

func (s *Sessions) lookup(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.m[id]
	if !ok {
		return nil
	}
	sess.lastSeen = time.Now()
	return sess
}

func (s *Sessions) load(ctx context.Context, id string) *Session {
	log := s.log.With(zap.String("session_id", id))
	store := cart.NewStore(storage.Prefixed(s.kv, keyPrefix+id+":"), log)
	store.Hydrate(ctx)

	log.Info("session initialized", zap.Int("cart_items", store.TotalItemCount()))
	return &Session{
		ID:        id,
		Cart:      store,
		AddToCart: flow.New("add_to_cart", s.flows.AddToCartDelay, s.flows.ResetDelay, log, s.metrics),
		BuyNow:    flow.New("buy_now", s.flows.BuyNowDelay, s.flows.ResetDelay, log, s.metrics),
		lastSeen:  time.Now(),
	}
}

// Forget drops the in-memory session. Persisted state is kept. A session whose
// flows are not idle stays live and ErrSessionBusy is returned.
func (s *Sessions) Forget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.m[id]; ok && sess.busy() {
		return ErrSessionBusy
	}
	delete(s.m, id)
	return nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Sweep forgets sessions idle for longer than idle whose flows have settled
// back to idle. It returns how many were dropped.
func (s *Sessions) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.m {
		if sess.lastSeen.Before(cutoff) && !sess.busy() {
			delete(s.m, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(idle); n > 0 {
				s.log.Debug("swept idle sessions", zap.Int("count", n))
			}
		}
	}
}
