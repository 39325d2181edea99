//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objcache/internal/export"
	"objcache/internal/registry"
)

type documentList struct {
	Count     int              `json:"count"`
	Documents []map[string]any `json:"documents"`
}

type cacheStats struct {
	Size     int    `json:"size"`
	Checksum string `json:"checksum"`
}

func uniquePrefix() string {
	return "it:" + uuid.NewString() + ":"
}

func TestRedisStore(t *testing.T) {
	ctx := GetTestContext()
	prefix := uniquePrefix()

	store, err := export.NewRedisStore(ctx, export.RedisConfig{
		URL:       GetRedisURL(),
		KeyPrefix: prefix,
		TTL:       time.Minute,
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	data, err := store.Load(ctx, "acme/documents")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.Save(ctx, "acme/documents", []byte("payload")))

	data, err = store.Load(ctx, "acme/documents")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	ttl, err := GetRedisClient().TTL(ctx, prefix+"acme/documents").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, store.Delete(ctx, "acme/documents"))
	data, err = store.Load(ctx, "acme/documents")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRedisStore_Unreachable(t *testing.T) {
	_, err := export.NewRedisStore(GetTestContext(), export.RedisConfig{URL: "redis://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestExport_SurvivesRestart(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			cfg := TestServerConfig{
				Tenants:   []string{"acme", "globex"},
				KeyPrefix: uniquePrefix(),
				Compress:  compress,
			}

			first := SetupTestServer(t, cfg)
			docs := []map[string]any{
				{"id": 1, "kind": "invoice"},
				{"id": 2, "kind": "receipt"},
				{"id": 3, "kind": "invoice"},
			}
			var before cacheStats
			require.Equal(t, http.StatusOK, first.Do(t, http.MethodPut, "/v1/caches/acme/documents", docs, &before))
			require.Equal(t, 3, before.Size)
			first.Shutdown(t)

			n, err := GetRedisClient().Exists(GetTestContext(), cfg.KeyPrefix+registry.Key("acme", "documents")).Result()
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			second := SetupTestServer(t, cfg)
			defer second.Shutdown(t)

			var after cacheStats
			require.Equal(t, http.StatusOK, second.Do(t, http.MethodGet, "/v1/caches/acme", nil, &after))
			assert.Equal(t, before.Size, after.Size)
			assert.Equal(t, before.Checksum, after.Checksum)

			var found documentList
			require.Equal(t, http.StatusOK, second.Do(t, http.MethodGet, "/v1/caches/acme/documents/search?path=kind&value=invoice", nil, &found))
			assert.Equal(t, 2, found.Count)

			var empty cacheStats
			require.Equal(t, http.StatusOK, second.Do(t, http.MethodGet, "/v1/caches/globex", nil, &empty))
			assert.Equal(t, 0, empty.Size)
		})
	}
}

func TestExport_Endpoint(t *testing.T) {
	cfg := TestServerConfig{Tenants: []string{"acme"}, KeyPrefix: uniquePrefix()}
	fixture := SetupTestServer(t, cfg)
	defer fixture.Shutdown(t)

	require.Equal(t, http.StatusOK, fixture.Do(t, http.MethodPost, "/v1/caches/acme/documents", []map[string]any{{"id": 1}}, nil))
	require.Equal(t, http.StatusNoContent, fixture.Do(t, http.MethodPost, "/v1/caches/acme/export", nil, nil))

	n, err := GetRedisClient().Exists(GetTestContext(), cfg.KeyPrefix+registry.Key("acme", "documents")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, http.StatusNotFound, fixture.Do(t, http.MethodPost, "/v1/caches/ghost/export", nil, nil))
}
