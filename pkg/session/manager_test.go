package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Session
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	s.data[sess.ID] = sess.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.data[sessionID]; ok {
		return sess.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestManager_UpdateIsSerialized(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	s := domain.NewSession("race-test", "tpl", "start", time.Now())
	s.Variables["count"] = 0
	require.NoError(t, manager.Create(ctx, s))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, "race-test", func(_ context.Context, s *domain.Session) error {
				s.Variables["count"] = s.Variables["count"].(int) + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := manager.Load(ctx, "race-test")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Variables["count"], "no update may be lost")
}

func TestManager_UpdateFailureKeepsSnapshot(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	s := domain.NewSession("keep", "tpl", "start", time.Now())
	require.NoError(t, manager.Create(ctx, s))

	boom := errors.New("boom")
	_, err := manager.Update(ctx, "keep", func(_ context.Context, s *domain.Session) error {
		s.CurrentNodeID = "elsewhere"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := manager.Load(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "start", got.CurrentNodeID)
}

func TestManager_CreateRejectsDuplicates(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()

	s := domain.NewSession("dup", "tpl", "start", time.Now())
	require.NoError(t, manager.Create(ctx, s))
	assert.ErrorIs(t, manager.Create(ctx, s), session.ErrSessionExists)
}

func TestManager_UpdateMissingSession(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	_, err := manager.Update(context.Background(), "nope", func(context.Context, *domain.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

type countingLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	lastTTL time.Duration
	lockErr error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return nil, l.lockErr
	}
	l.locks++
	l.lastTTL = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, manager.Create(ctx, domain.NewSession("d", "tpl", "start", time.Now())))
	_, err := manager.Load(ctx, "d")
	require.NoError(t, err)

	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, 2, locker.unlocks)
	assert.Equal(t, time.Minute, locker.lastTTL)

	locker.lockErr = errors.New("redis down")
	_, err = manager.Load(ctx, "d")
	assert.ErrorContains(t, err, "distributed lock")
}
