package counter

import (
	"AltarProject/tools/errs"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var fastRetry = Options{MaxRetry: 500, BaseBackoff: 50 * time.Microsecond, MaxBackoff: time.Millisecond}

func TestAllocateSequential(t *testing.T) {
	ctx := context.Background()
	a := NewAllocator(NewMemoryStore(), Options{})

	id, err := a.Allocate(ctx, "server_group_seq", WithPrefix("SG"))
	require.NoError(t, err)
	assert.Equal(t, "SG00001", id)

	id, err = a.Allocate(ctx, "server_group_seq", WithPrefix("SG"))
	require.NoError(t, err)
	assert.Equal(t, "SG00002", id)

	// 不同计数器互不影响
	id, err = a.Allocate(ctx, "event_seq", WithPrefix("EV"), WithPadLength(3))
	require.NoError(t, err)
	assert.Equal(t, "EV001", id)

	cur, err := a.Current(ctx, "server_group_seq")
	require.NoError(t, err)
	assert.EqualValues(t, 2, cur)
}

func TestAllocateNoTruncation(t *testing.T) {
	store := NewMemoryStore()
	store.Set("x", 99999)
	a := NewAllocator(store, Options{})

	id, err := a.Allocate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "100000", id)
}

type forbiddenStore struct{ t *testing.T }

func (s forbiddenStore) Load(context.Context, string) (int64, error) {
	s.t.Fatal("store must not be touched")
	return 0, nil
}

func (s forbiddenStore) CompareAndSwap(context.Context, string, int64, int64) (bool, error) {
	s.t.Fatal("store must not be touched")
	return false, nil
}

func TestAllocateInvalidArgument(t *testing.T) {
	a := NewAllocator(forbiddenStore{t: t}, Options{})
	ctx := context.Background()

	_, err := a.Allocate(ctx, "")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = a.Allocate(ctx, string(make([]byte, MaxNameLength+1)))
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = a.Allocate(ctx, "x", WithPadLength(0))
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = a.Allocate(ctx, "x", WithPadLength(MaxPadLength+1))
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = a.NextSeq(ctx, "")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestAllocateLimitsInclusive(t *testing.T) {
	a := NewAllocator(NewMemoryStore(), Options{})
	ctx := context.Background()

	name := strings.Repeat("n", MaxNameLength)
	id, err := a.Allocate(ctx, name, WithPadLength(MaxPadLength))
	require.NoError(t, err)
	assert.Len(t, id, MaxPadLength)
	assert.Equal(t, strings.Repeat("0", MaxPadLength-1)+"1", id)

	_, err = a.Allocate(ctx, name+"n")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	id, err = a.Allocate(ctx, "one", WithPadLength(1))
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

// rivalStore 前 n 次 CAS 之前先让"另一个调用方"抢走一个号
type rivalStore struct {
	*MemoryStore
	rivals   atomic.Int32
	casCalls atomic.Int32
}

func (s *rivalStore) CompareAndSwap(ctx context.Context, name string, prev, next int64) (bool, error) {
	s.casCalls.Add(1)
	if s.rivals.Add(-1) >= 0 {
		cur, _ := s.MemoryStore.Load(ctx, name)
		s.MemoryStore.Set(name, cur+1)
	}
	return s.MemoryStore.CompareAndSwap(ctx, name, prev, next)
}

func TestAllocateRetriesOnConflict(t *testing.T) {
	store := &rivalStore{MemoryStore: NewMemoryStore()}
	store.rivals.Store(2)
	a := NewAllocator(store, fastRetry)

	seq, err := a.NextSeq(context.Background(), "c")
	require.NoError(t, err)
	assert.EqualValues(t, 3, seq, "two numbers were taken by the rival")
	assert.EqualValues(t, 3, store.casCalls.Load())
}

type alwaysConflict struct {
	*MemoryStore
	casCalls atomic.Int32
}

func (s *alwaysConflict) CompareAndSwap(context.Context, string, int64, int64) (bool, error) {
	s.casCalls.Add(1)
	return false, nil
}

func TestAllocateRetryBudgetExhausted(t *testing.T) {
	store := &alwaysConflict{MemoryStore: NewMemoryStore()}
	store.Set("c", 7)
	a := NewAllocator(store, Options{MaxRetry: 3, BaseBackoff: time.Microsecond, MaxBackoff: time.Microsecond})

	_, err := a.Allocate(context.Background(), "c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrStorageTransaction))
	assert.Contains(t, err.Error(), "retry budget exhausted")
	assert.EqualValues(t, 4, store.casCalls.Load(), "first attempt plus three retries")

	cur, err := store.Load(context.Background(), "c")
	require.NoError(t, err)
	assert.EqualValues(t, 7, cur, "no partial update")
}

type brokenStore struct {
	loads atomic.Int32
	err   error
}

func (s *brokenStore) Load(context.Context, string) (int64, error) {
	s.loads.Add(1)
	return 0, s.err
}

func (s *brokenStore) CompareAndSwap(context.Context, string, int64, int64) (bool, error) {
	return false, s.err
}

func TestAllocateStoreFailure(t *testing.T) {
	cause := errors.New("connection refused")
	store := &brokenStore{err: cause}
	a := NewAllocator(store, fastRetry)

	_, err := a.Allocate(context.Background(), "c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrStorageTransaction))
	assert.True(t, errors.Is(err, cause))
	assert.EqualValues(t, 1, store.loads.Load(), "store errors are not retried")

	_, err = a.Current(context.Background(), "c")
	assert.True(t, errors.Is(err, errs.ErrStorageTransaction))
}

func TestAllocateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()
	a := NewAllocator(store, Options{})

	_, err := a.Allocate(ctx, "c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrStorageTransaction))

	cur, _ := store.Load(context.Background(), "c")
	assert.Zero(t, cur)
}

// assertConcurrentUnique N 个并发调用拿到的恰好是 before+1..before+N
func assertConcurrentUnique(t *testing.T, store Store, name string, n int) {
	t.Helper()
	ctx := context.Background()
	a := NewAllocator(store, fastRetry)

	before, err := a.Current(ctx, name)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seqs = make([]int64, 0, n)
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			seq, err := a.NextSeq(gctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			seqs = append(seqs, seq)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	want := make([]int64, n)
	for i := range want {
		want[i] = before + int64(i) + 1
	}
	assert.Equal(t, want, seqs)

	after, err := a.Current(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, before+int64(n), after)
}

func TestAllocateConcurrentMemory(t *testing.T) {
	store := NewMemoryStore()
	store.Set("server_group_seq", 40)
	assertConcurrentUnique(t, store, "server_group_seq", 64)
}
