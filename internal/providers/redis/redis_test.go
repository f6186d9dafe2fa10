package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupProvider(t *testing.T) (*RedisProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	p := NewRedisProvider("redis://"+mr.Addr(), zap.NewNop(), time.Minute)
	t.Cleanup(func() { _ = p.Close() })
	return p, mr
}

func TestRedisProvider_JSONRoundTrip(t *testing.T) {
	p, mr := setupProvider(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	p.SetJSON(ctx, "boards:user:1", payload{Name: "Roadmap"}, 0)

	var got payload
	require.True(t, p.GetJSON(ctx, "boards:user:1", &got))
	assert.Equal(t, "Roadmap", got.Name)
	assert.Equal(t, time.Minute, mr.TTL("boards:user:1"), "default ttl applies")

	assert.False(t, p.GetJSON(ctx, "missing", &got))
}

func TestRedisProvider_Del(t *testing.T) {
	p, mr := setupProvider(t)
	ctx := context.Background()

	for _, k := range []string{"boards:user:1", "boards:user:2", "user:banned:1"} {
		require.NoError(t, mr.Set(k, "x"))
	}

	p.Del(ctx, "boards:user:1", "boards:user:2")
	assert.False(t, mr.Exists("boards:user:1"))
	assert.False(t, mr.Exists("boards:user:2"))
	assert.True(t, mr.Exists("user:banned:1"))
}

func TestNewRedisProvider_FallsBackToAddr(t *testing.T) {
	mr := miniredis.RunT(t)
	p := NewRedisProvider(mr.Addr(), zap.NewNop(), time.Minute)
	defer p.Close()

	require.NoError(t, p.Client.Ping(context.Background()).Err())
}
