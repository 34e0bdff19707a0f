package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/passport/core/auth/session"
	pr "github.com/kochabx/passport/store/redis"
)

func newClient(t *testing.T) (*pr.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return pr.NewFromUniversal(rdb, nil), mr
}

var alice = session.Identity{UserID: "u-1", Username: "alice"}

func TestSetGet(t *testing.T) {
	client, mr := newClient(t)
	c := New(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "tok", alice, time.Minute))

	got, err := c.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	assert.Equal(t, time.Minute, mr.TTL("passport:session:tok"))
	assert.Equal(t, time.Minute, mr.TTL("passport:user:u-1"))
	members, err := mr.SMembers("passport:user:u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok"}, members)
}

func TestSetRequiresTTL(t *testing.T) {
	client, mr := newClient(t)
	c := New(client)

	assert.ErrorIs(t, c.Set(context.Background(), "tok", alice, 0), session.ErrInvalidTTL)
	assert.ErrorIs(t, c.Set(context.Background(), "tok", alice, -time.Second), session.ErrInvalidTTL)
	assert.False(t, mr.Exists("passport:session:tok"))
}

func TestIndexTTLOnlyGrows(t *testing.T) {
	client, mr := newClient(t)
	c := New(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "long", alice, time.Hour))
	require.NoError(t, c.Set(ctx, "short", alice, time.Minute))
	assert.Equal(t, time.Hour, mr.TTL("passport:user:u-1"))
}

func TestExpiry(t *testing.T) {
	client, mr := newClient(t)
	c := New(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "tok", alice, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "tok")
	assert.ErrorIs(t, err, session.ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	client, mr := newClient(t)
	c := New(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", alice, time.Minute))
	require.NoError(t, c.Set(ctx, "b", alice, time.Minute))

	require.NoError(t, c.Delete(ctx, "a", "missing"))
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, session.ErrCacheMiss)
	_, err = c.Get(ctx, "b")
	assert.NoError(t, err)

	members, err := mr.SMembers("passport:user:u-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)

	assert.NoError(t, c.Delete(ctx))
	assert.NoError(t, c.Delete(ctx, "a"))
}

func TestDeleteUser(t *testing.T) {
	client, mr := newClient(t)
	c := New(client, WithPrefix("test"))
	ctx := context.Background()

	bob := session.Identity{UserID: "u-2", Username: "bob"}
	require.NoError(t, c.Set(ctx, "a", alice, time.Minute))
	require.NoError(t, c.Set(ctx, "b", alice, time.Hour))
	require.NoError(t, c.Set(ctx, "c", bob, time.Hour))

	require.NoError(t, c.DeleteUser(ctx, "u-1"))
	assert.False(t, mr.Exists("test:session:a"))
	assert.False(t, mr.Exists("test:session:b"))
	assert.False(t, mr.Exists("test:user:u-1"))
	assert.True(t, mr.Exists("test:session:c"))

	assert.NoError(t, c.DeleteUser(ctx, "nobody"))
}

// clusterSlots 模拟集群对跨 slot 多 key 命令的拒绝，miniredis 本身不检查
type clusterSlots struct{}

var errCrossSlot = errors.New("CROSSSLOT Keys in request don't hash to the same slot")

func (clusterSlots) check(cmd redis.Cmder) error {
	switch cmd.Name() {
	case "mget", "del", "unlink", "exists":
		if len(cmd.Args()) > 2 {
			cmd.SetErr(errCrossSlot)
			return errCrossSlot
		}
	}
	return nil
}

func (clusterSlots) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h clusterSlots) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if err := h.check(cmd); err != nil {
			return err
		}
		return next(ctx, cmd)
	}
}

func (h clusterSlots) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			if err := h.check(cmd); err != nil {
				return err
			}
		}
		return next(ctx, cmds)
	}
}

func TestDeleteSingleKeyCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rdb.AddHook(clusterSlots{})
	t.Cleanup(func() { _ = rdb.Close() })
	c := New(pr.NewFromUniversal(rdb, nil))
	ctx := context.Background()

	bob := session.Identity{UserID: "u-2", Username: "bob"}
	require.NoError(t, c.Set(ctx, "a", alice, time.Minute))
	require.NoError(t, c.Set(ctx, "b", alice, time.Minute))
	require.NoError(t, c.Set(ctx, "c", bob, time.Minute))
	require.NoError(t, c.Set(ctx, "d", bob, time.Minute))

	require.NoError(t, c.Delete(ctx, "a", "c", "missing"))
	assert.False(t, mr.Exists("passport:session:a"))
	assert.False(t, mr.Exists("passport:session:c"))
	members, err := mr.SMembers("passport:user:u-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, members)

	require.NoError(t, c.DeleteUser(ctx, "u-1"))
	assert.False(t, mr.Exists("passport:session:b"))
	assert.False(t, mr.Exists("passport:user:u-1"))
	assert.True(t, mr.Exists("passport:session:d"))
}

func TestConnectivityFailure(t *testing.T) {
	client, mr := newClient(t)
	c := New(client)
	mr.Close()

	ctx := context.Background()
	assert.Error(t, c.Set(ctx, "tok", alice, time.Minute))
	_, err := c.Get(ctx, "tok")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrCacheMiss)
}

func TestLocker(t *testing.T) {
	client, mr := newClient(t)
	l := NewLocker(client)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "user:u-1", time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("passport:lock:user:u-1"))

	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(tctx, "user:u-1", time.Second)
	assert.ErrorIs(t, err, session.ErrLockNotAcquired)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("passport:lock:user:u-1"))

	unlock2, err := l.Lock(ctx, "user:u-1", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLockerReleaseOnlyOwner(t *testing.T) {
	client, mr := newClient(t)
	l := NewLocker(client)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	// 锁过期后被其他持有者获取，旧持有者不能释放
	mr.FastForward(2 * time.Second)
	unlock2, err := l.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("passport:lock:k"))
	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("passport:lock:k"))
}

func TestLockerMutualExclusion(t *testing.T) {
	client, _ := newClient(t)
	l := NewLocker(client)

	var (
		wg      sync.WaitGroup
		holders atomic.Int32
		maxSeen atomic.Int32
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			unlock, err := l.Lock(ctx, "k", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := holders.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(5 * time.Millisecond)
			holders.Add(-1)
			assert.NoError(t, unlock(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
}
