package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockRedisKVClient struct {
	lastSetKey string
	lastSetVal interface{}
	lastSetTTL time.Duration
	lastExists []string
	lastDel    []string

	setErr    error
	existsErr error
	delErr    error
	existsN   int64
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetVal = value
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastExists = keys
	cmd := redis.NewIntCmd(ctx)
	if m.existsErr != nil {
		cmd.SetErr(m.existsErr)
		return cmd
	}
	cmd.SetVal(m.existsN)
	return cmd
}

func (m *mockRedisKVClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastDel = keys
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func TestMemoryRefreshTokenStore_Basics(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemoryRefreshTokenStore().(*memoryRefreshTokenStore)
	store.now = func() time.Time { return now }

	ok, err := store.Exists(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("expected missing token false,nil; got %v,%v", ok, err)
	}

	if err := store.Store(ctx, "jti-1", 1, time.Minute); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	ok, err = store.Exists(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("expected token exists, got %v,%v", ok, err)
	}

	now = now.Add(2 * time.Minute)
	ok, err = store.Exists(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("expected token expired, got %v,%v", ok, err)
	}
}

func TestMemoryRefreshTokenStore_RevokeAndEmptyJTI(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore()
	if err := store.Store(ctx, "", 1, time.Minute); err != nil {
		t.Fatalf("empty jti store should be no-op, got %v", err)
	}
	if err := store.Store(ctx, "jti-2", 1, time.Minute); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Revoke(ctx, "jti-2"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	ok, err := store.Exists(ctx, "jti-2")
	if err != nil || ok {
		t.Fatalf("expected revoked token absent, got %v,%v", ok, err)
	}
}

func TestRedisRefreshTokenStore_Basics(t *testing.T) {
	ctx := context.Background()
	mock := &mockRedisKVClient{existsN: 1}
	store := NewRedisRefreshTokenStore(mock)

	if err := store.Store(ctx, " j1 ", 42, 0); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if mock.lastSetKey != "auth:refresh:j1" {
		t.Fatalf("unexpected key, got %q", mock.lastSetKey)
	}
	if mock.lastSetVal != "42" {
		t.Fatalf("expected user id as value, got %v", mock.lastSetVal)
	}
	if mock.lastSetTTL <= 0 {
		t.Fatalf("expected positive TTL fallback, got %v", mock.lastSetTTL)
	}

	ok, err := store.Exists(ctx, " j1 ")
	if err != nil || !ok {
		t.Fatalf("expected exists true,nil; got %v,%v", ok, err)
	}
	if len(mock.lastExists) != 1 || mock.lastExists[0] != "auth:refresh:j1" {
		t.Fatalf("unexpected exists key: %+v", mock.lastExists)
	}

	if err := store.Revoke(ctx, " j1 "); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if len(mock.lastDel) != 1 || mock.lastDel[0] != "auth:refresh:j1" {
		t.Fatalf("unexpected del key: %+v", mock.lastDel)
	}
}

func TestRedisRefreshTokenStore_ErrorPathsAndEmptyJTI(t *testing.T) {
	ctx := context.Background()
	mock := &mockRedisKVClient{
		setErr:    errors.New("set failed"),
		existsErr: errors.New("exists failed"),
		delErr:    errors.New("del failed"),
	}
	store := NewRedisRefreshTokenStore(mock)

	if err := store.Store(ctx, "", 1, time.Minute); err != nil {
		t.Fatalf("empty jti store should be no-op, got %v", err)
	}
	ok, err := store.Exists(ctx, "")
	if err != nil || ok {
		t.Fatalf("empty jti exists should be false,nil; got %v,%v", ok, err)
	}
	if err := store.Revoke(ctx, ""); err != nil {
		t.Fatalf("empty jti revoke should be no-op, got %v", err)
	}

	if err := store.Store(ctx, "j2", 1, time.Minute); err == nil {
		t.Fatalf("expected store error")
	}
	if _, err := store.Exists(ctx, "j2"); err == nil {
		t.Fatalf("expected exists error")
	}
	if err := store.Revoke(ctx, "j2"); err == nil {
		t.Fatalf("expected revoke error")
	}
}

func TestRedisRefreshTokenStore_Miniredis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisRefreshTokenStore(client)
	if err := store.Store(ctx, "j3", 7, time.Hour); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if got, _ := mr.Get("auth:refresh:j3"); got != "7" {
		t.Fatalf("unexpected stored value %q", got)
	}
	ok, err := store.Exists(ctx, "j3")
	if err != nil || !ok {
		t.Fatalf("expected exists, got %v,%v", ok, err)
	}

	mr.FastForward(2 * time.Hour)
	ok, err = store.Exists(ctx, "j3")
	if err != nil || ok {
		t.Fatalf("expected expiry, got %v,%v", ok, err)
	}
}

func TestRefreshTokenStore_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	stores := map[string]RefreshTokenStore{
		"memory": NewMemoryRefreshTokenStore(),
		"redis":  NewRedisRefreshTokenStore(client),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			if err := store.Store(ctx, "j4", 7, time.Hour); err != nil {
				t.Fatalf("store failed: %v", err)
			}
			ok, err := store.Consume(ctx, "j4")
			if err != nil || !ok {
				t.Fatalf("expected first consume true,nil; got %v,%v", ok, err)
			}
			ok, err = store.Consume(ctx, "j4")
			if err != nil || ok {
				t.Fatalf("expected second consume false,nil; got %v,%v", ok, err)
			}
			if ok, _ := store.Consume(ctx, ""); ok {
				t.Fatalf("empty jti must not consume")
			}
		})
	}
}

func TestMemoryRefreshTokenStore_ConsumeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemoryRefreshTokenStore().(*memoryRefreshTokenStore)
	store.now = func() time.Time { return now }

	if err := store.Store(ctx, "j5", 1, time.Minute); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if ok, err := store.Consume(ctx, "j5"); err != nil || ok {
		t.Fatalf("expected expired consume false,nil; got %v,%v", ok, err)
	}
}
