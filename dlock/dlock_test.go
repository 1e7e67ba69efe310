package dlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/genbit2025/durable-objects-test-v2/lockobject"
	"github.com/genbit2025/durable-objects-test-v2/storage"
	"github.com/genbit2025/durable-objects-test-v2/testkit"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ============================================================================
// Helper Functions
// ============================================================================

func newLockClient(t *testing.T) *lockobject.Client {
	t.Helper()
	c, err := lockobject.NewClient(storage.NewMemory(), nil, lockobject.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close(context.Background())
	})
	return c
}

func newLocker(t *testing.T, acquirer Acquirer, cfg *Config) Locker {
	t.Helper()
	kit := testkit.NewKit(t)
	l, err := New(acquirer, cfg, WithLogger(kit.Logger), WithMeter(kit.Meter))
	require.NoError(t, err)
	return l
}

// scriptedAcquirer 按顺序返回预设结果，用完后一直拒绝
type scriptedAcquirer struct {
	mu       sync.Mutex
	results  []error // nil 表示授予，errLockHeld 表示拒绝，其他为故障
	calls    int
	released []string
	relErr   error
}

func (s *scriptedAcquirer) Acquire(ctx context.Context, key string) (lockobject.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return lockobject.Grant{At: time.Now()}, nil
	}
	next := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	switch {
	case next == nil:
		return lockobject.Grant{Granted: true, At: time.Now()}, nil
	case errors.Is(next, errLockHeld):
		return lockobject.Grant{At: time.Now()}, nil
	default:
		return lockobject.Grant{}, next
	}
}

func (s *scriptedAcquirer) Release(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.relErr != nil {
		return false, s.relErr
	}
	s.released = append(s.released, key)
	return true, nil
}

func (s *scriptedAcquirer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ============================================================================
// Tests
// ============================================================================

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	assert.True(t, xerrors.Is(err, ErrAcquirerNil))

	cfg := DefaultConfig()
	assert.Equal(t, 200*time.Millisecond, cfg.RetryInterval)
	assert.Equal(t, 0, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.AcquireTimeout)
}

func TestLockUnlock(t *testing.T) {
	ctx := testkit.NewContext(t, 5*time.Second)
	l := newLocker(t, newLockClient(t), &Config{RetryInterval: 10 * time.Millisecond})

	g, err := l.Lock(ctx, "A")
	require.NoError(t, err)
	assert.True(t, g.Granted)

	g, err = l.TryLock(ctx, "A")
	require.NoError(t, err)
	assert.False(t, g.Granted)

	require.NoError(t, l.Unlock(ctx, "A"))
	require.NoError(t, l.Unlock(ctx, "A"), "unlocking a free key succeeds")

	g, err = l.TryLock(ctx, "A")
	require.NoError(t, err)
	assert.True(t, g.Granted)
	require.NoError(t, l.Unlock(ctx, "A"))
}

func TestLockRetriesUntilReleased(t *testing.T) {
	const (
		interval  = 200 * time.Millisecond
		holdDelay = 300 * time.Millisecond
		slack     = 150 * time.Millisecond
	)
	ctx := testkit.NewContext(t, 5*time.Second)
	client := newLockClient(t)
	holder := newLocker(t, client, &Config{RetryInterval: interval})
	waiter := newLocker(t, client, &Config{RetryInterval: interval})

	_, err := holder.Lock(ctx, "A")
	require.NoError(t, err)

	released := make(chan time.Time, 1)
	go func() {
		time.Sleep(holdDelay)
		_ = holder.Unlock(ctx, "A")
		released <- time.Now()
	}()

	start := time.Now()
	g, err := waiter.Lock(ctx, "A")
	acquiredAt := time.Now()
	require.NoError(t, err)
	assert.True(t, g.Granted)

	releasedAt := <-released
	elapsed := acquiredAt.Sub(start)
	assert.GreaterOrEqual(t, elapsed, holdDelay)
	assert.LessOrEqual(t, acquiredAt.Sub(releasedAt), interval+slack,
		"observed within one interval after release")
	assert.LessOrEqual(t, elapsed, holdDelay+interval+slack)

	require.NoError(t, waiter.Unlock(ctx, "A"))
}

func TestLockMaxAttempts(t *testing.T) {
	acq := &scriptedAcquirer{results: []error{errLockHeld}}
	l := newLocker(t, acq, &Config{RetryInterval: time.Millisecond, MaxAttempts: 3})

	g, err := l.Lock(context.Background(), "A")
	assert.True(t, xerrors.Is(err, ErrAcquireTimeout))
	assert.False(t, g.Granted)
	assert.Equal(t, 3, acq.callCount())
}

func TestLockAcquireTimeout(t *testing.T) {
	acq := &scriptedAcquirer{results: []error{errLockHeld}}
	l := newLocker(t, acq, &Config{RetryInterval: 10 * time.Millisecond, AcquireTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := l.Lock(context.Background(), "A")
	assert.True(t, xerrors.Is(err, ErrAcquireTimeout))
	assert.Equal(t, CodeAcquireTimeout, xerrors.GetCode(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLockHonoursCallerContext(t *testing.T) {
	acq := &scriptedAcquirer{results: []error{errLockHeld}}
	l := newLocker(t, acq, &Config{RetryInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := l.Lock(ctx, "A")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, xerrors.Is(err, ErrAcquireTimeout))
}

func TestLockDoesNotRetryStorageFaults(t *testing.T) {
	fault := errors.New("storage down")
	acq := &scriptedAcquirer{results: []error{errLockHeld, fault}}
	l := newLocker(t, acq, &Config{RetryInterval: time.Millisecond})

	_, err := l.Lock(context.Background(), "A")
	assert.True(t, xerrors.Is(err, fault))
	assert.Equal(t, 2, acq.callCount())
}

func TestLockRetriesThenGrants(t *testing.T) {
	acq := &scriptedAcquirer{results: []error{errLockHeld, errLockHeld, nil}}
	l := newLocker(t, acq, &Config{RetryInterval: time.Millisecond})

	g, err := l.Lock(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, g.Granted)
	assert.Equal(t, 3, acq.callCount())
}

func TestEmptyKey(t *testing.T) {
	l := newLocker(t, &scriptedAcquirer{}, nil)
	_, err := l.Lock(context.Background(), "")
	assert.True(t, xerrors.Is(err, lockobject.ErrKeyEmpty))
	_, err = l.TryLock(context.Background(), "")
	assert.True(t, xerrors.Is(err, lockobject.ErrKeyEmpty))
}

// 空白字符同样是合法的 key
func TestWhitespaceKey(t *testing.T) {
	acq := &scriptedAcquirer{results: []error{nil, nil}}
	l := newLocker(t, acq, nil)

	g, err := l.Lock(context.Background(), " ")
	require.NoError(t, err)
	assert.True(t, g.Granted)
	require.NoError(t, l.Unlock(context.Background(), " "))

	g, err = l.TryLock(context.Background(), "\t")
	require.NoError(t, err)
	assert.True(t, g.Granted)
}

func TestUnlockIgnoresCancellation(t *testing.T) {
	acq := &scriptedAcquirer{results: []error{nil}}
	l := newLocker(t, acq, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := l.Lock(ctx, "A")
	require.NoError(t, err)
	cancel()

	require.NoError(t, l.Unlock(ctx, "A"))
	assert.Equal(t, []string{"A"}, acq.released)
}

func TestWithLock(t *testing.T) {
	ctx := testkit.NewContext(t, 5*time.Second)
	client := newLockClient(t)
	l := newLocker(t, client, &Config{RetryInterval: 10 * time.Millisecond})

	ran := false
	g, err := l.WithLock(ctx, "A", func(ctx context.Context) error {
		ran = true
		inner, err := l.TryLock(ctx, "A")
		require.NoError(t, err)
		assert.False(t, inner.Granted, "held while fn runs")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, g.Granted)
	assert.True(t, ran)

	workErr := errors.New("work failed")
	_, err = l.WithLock(ctx, "A", func(context.Context) error { return workErr })
	assert.True(t, xerrors.Is(err, workErr))

	g, err = l.TryLock(ctx, "A")
	require.NoError(t, err)
	assert.True(t, g.Granted, "released after fn returns")
}

func TestWithLockUnlockFailure(t *testing.T) {
	relErr := errors.New("release failed")
	acq := &scriptedAcquirer{results: []error{nil}, relErr: relErr}
	l := newLocker(t, acq, nil)

	_, err := l.WithLock(context.Background(), "A", func(context.Context) error { return nil })
	assert.True(t, xerrors.Is(err, relErr))
}

func TestConcurrentWithLockIsExclusive(t *testing.T) {
	ctx := testkit.NewContext(t, 10*time.Second)
	client := newLockClient(t)
	l := newLocker(t, client, &Config{RetryInterval: 5 * time.Millisecond})

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.WithLock(ctx, "A", func(context.Context) error {
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
