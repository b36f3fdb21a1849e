package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tally/pkg/domain"
	"github.com/aretw0/tally/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newTestClient(t)
	ports.RunStateStoreContract(t, NewFromClient(client))
}

func TestRedisStore_TTLExpiration(t *testing.T) {
	mr, client := newTestClient(t)

	clock := time.Now()
	store := NewFromClient(client, WithTTL(time.Second))
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	state := domain.NewState("session-ttl")
	state.Expression = "1+"
	require.NoError(t, store.Save(ctx, "session-ttl", state))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, "session-ttl")

	mr.FastForward(2 * time.Second)
	_, err = store.Load(ctx, "session-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	clock = clock.Add(2 * time.Second)
	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newTestClient(t)

	store := NewFromClient(client, WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "my-session", domain.NewState("my-session")))

	assert.True(t, mr.Exists("custom:app:my-session"))
	assert.True(t, mr.Exists("custom:app:index"))
	assert.Equal(t, "custom:app:", store.Prefix())

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-session"}, list)
}

func TestRedisStore_StoresJSON(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewFromClient(client)

	state := domain.NewState("j")
	state.History = []domain.HistoryEntry{{Expression: "2*3", Result: "6"}}
	require.NoError(t, store.Save(context.Background(), "j", state))

	raw, err := mr.Get(DefaultPrefix + "j")
	require.NoError(t, err)
	assert.Contains(t, raw, `"history":[{"expression":"2*3","result":"6"}]`)
}

func TestNewFromURL(t *testing.T) {
	mr, _ := newTestClient(t)

	store, err := NewFromURL("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(context.Background()))

	_, err = NewFromURL("http://not-redis")
	assert.Error(t, err)
}
