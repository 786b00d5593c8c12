package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, "ledger", time.Minute), mr
}

func TestClaimRejectsDuplicate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, "transactions", "abc"))
	require.ErrorIs(t, store.Claim(ctx, "transactions", "abc"), ErrDuplicate)
	require.NoError(t, store.Claim(ctx, "products", "abc"), "scopes are independent")
}

func TestReleaseAllowsRetry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, "transactions", "k1"))
	require.NoError(t, store.Release(ctx, "transactions", "k1"))
	require.NoError(t, store.Claim(ctx, "transactions", "k1"))
}

func TestClaimExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, "transactions", "k2"))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, store.Claim(ctx, "transactions", "k2"))
}

func TestClaimRequiresKey(t *testing.T) {
	store, _ := newTestStore(t)
	require.Error(t, store.Claim(context.Background(), "transactions", ""))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	client.Close()
}
