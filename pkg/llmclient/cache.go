package llmclient

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/awslabs/Git-llm-pick/pkg/constants"
	"github.com/awslabs/Git-llm-pick/pkg/types"
	"github.com/awslabs/Git-llm-pick/pkg/util/logger"
)

// Fingerprint computes the stable, byte-exact cache key for a prompt:
// a SHA-256 digest of the raw UTF-8 bytes, with no normalization
// (spec §4.5, §8 testable property 5).
func Fingerprint(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Cache is a directory-backed, append-only key-value store of LLM
// responses keyed by prompt fingerprint. Concurrent writers serialize
// on an advisory lock file via github.com/gofrs/flock; readers are
// lock-free (spec §3, §5).
type Cache struct {
	dir string
}

// NewCache opens (creating if necessary) a cache rooted at dir.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("llmclient: creating cache dir %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) entryPath(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".json")
}

// Lookup returns the cached entry for fingerprint, if any. It never
// takes the advisory lock: readers must tolerate a racily-extended
// cache file (spec §5).
func (c *Cache) Lookup(fingerprint string) (*types.CacheEntry, bool, error) {
	b, err := os.ReadFile(c.entryPath(fingerprint))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("llmclient: reading cache entry %s: %w", fingerprint, err)
	}
	var entry types.CacheEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, false, fmt.Errorf("llmclient: decoding cache entry %s: %w", fingerprint, err)
	}
	return &entry, true, nil
}

// Store writes entry under an advisory lock, atomically (temp file then
// rename), so concurrent writers never interleave partial writes.
func (c *Cache) Store(entry types.CacheEntry) error {
	lockPath := filepath.Join(c.dir, constants.CacheLockFileName)
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("llmclient: locking cache: %w", err)
	}
	defer lock.Unlock() //nolint:errcheck

	b, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("llmclient: encoding cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, entry.Fingerprint+".tmp-*")
	if err != nil {
		return fmt.Errorf("llmclient: creating temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("llmclient: writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("llmclient: closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.entryPath(entry.Fingerprint)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("llmclient: renaming cache file: %w", err)
	}
	logger.Info("cache entry written", "fingerprint", entry.Fingerprint, "model", entry.Model)
	return nil
}

// Prune deletes entries older than maxAge, returning the fingerprints
// removed. Entries are only ever invalidated by deletion (spec §3).
func (c *Cache) Prune(maxAge time.Duration) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("llmclient: reading cache dir: %w", err)
	}
	var removed []string
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			fp := e.Name()[:len(e.Name())-len(".json")]
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				return removed, fmt.Errorf("llmclient: removing stale entry %s: %w", fp, err)
			}
			removed = append(removed, fp)
		}
	}
	return removed, nil
}

// List returns every entry currently in the cache, for `cache inspect`.
func (c *Cache) List() ([]types.CacheEntry, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("llmclient: reading cache dir: %w", err)
	}
	var out []types.CacheEntry
	for _, e := range dirEntries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(c.dir, e.Name()))
		if err != nil {
			continue
		}
		var entry types.CacheEntry
		if err := json.Unmarshal(b, &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
