package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	t.Run("plain address", func(t *testing.T) {
		InitRedis(mr.Addr())
		require.NotNil(t, GetClient())
		assert.NoError(t, GetClient().Ping(context.Background()).Err())
	})

	t.Run("url", func(t *testing.T) {
		InitRedis("redis://" + mr.Addr() + "/0")
		require.NotNil(t, GetClient())
		assert.NoError(t, GetClient().Set(context.Background(), "k", "v", 0).Err())
		assert.Equal(t, "v", mustGet(t, mr, "k"))
	})

	t.Run("invalid url leaves client nil", func(t *testing.T) {
		InitRedis("redis://%%bad")
		assert.Nil(t, GetClient())
	})

	t.Run("unreachable leaves client nil", func(t *testing.T) {
		InitRedis("127.0.0.1:1")
		assert.Nil(t, GetClient())
	})
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
