package llmclient_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awslabs/Git-llm-pick/pkg/llmclient"
	"github.com/awslabs/Git-llm-pick/pkg/types"
)

func TestFingerprintIsStableAndByteExact(t *testing.T) {
	assert.Equal(t, llmclient.Fingerprint("hello"), llmclient.Fingerprint("hello"))
	assert.NotEqual(t, llmclient.Fingerprint("hello"), llmclient.Fingerprint("hello "))
}

func TestCacheStoreThenLookupHits(t *testing.T) {
	cache, err := llmclient.NewCache(t.TempDir())
	require.NoError(t, err)

	entry := types.CacheEntry{Fingerprint: llmclient.Fingerprint("prompt"), Response: "resp", Model: "m", CreatedAt: time.Unix(0, 0)}
	require.NoError(t, cache.Store(entry))

	got, hit, err := cache.Lookup(entry.Fingerprint)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "resp", got.Response)
}

func TestCacheLookupMissForUnknownFingerprint(t *testing.T) {
	cache, err := llmclient.NewCache(t.TempDir())
	require.NoError(t, err)

	_, hit, err := cache.Lookup("does-not-exist")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCachePruneRemovesOldEntries(t *testing.T) {
	dir := t.TempDir()
	cache, err := llmclient.NewCache(dir)
	require.NoError(t, err)

	entry := types.CacheEntry{Fingerprint: llmclient.Fingerprint("old"), Response: "r", CreatedAt: time.Now()}
	require.NoError(t, cache.Store(entry))

	removed, err := cache.Prune(0)
	require.NoError(t, err)
	assert.Contains(t, removed, entry.Fingerprint)

	_, hit, err := cache.Lookup(entry.Fingerprint)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheListReturnsAllEntries(t *testing.T) {
	cache, err := llmclient.NewCache(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cache.Store(types.CacheEntry{Fingerprint: llmclient.Fingerprint("a"), Response: "1"}))
	require.NoError(t, cache.Store(types.CacheEntry{Fingerprint: llmclient.Fingerprint("b"), Response: "2"}))

	entries, err := cache.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
