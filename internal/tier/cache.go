package tier

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/crumplecup/botticelli/internal/errs"
)

// cacheEntry is what DiskCache persists: the last detected tier and when.
type cacheEntry struct {
	DetectedAt time.Time   `json:"detected_at"`
	Tier       *TierConfig `json:"tier"`
}

// DiskCache persists the last header-detected TierConfig per provider under
// $XDG_CACHE_HOME/botticelli/tiers/<provider>.json (or
// ~/.cache/botticelli/tiers/<provider>.json), consulted at limiter
// construction and ignored once older than MaxAge.
type DiskCache struct {
	Dir    string
	MaxAge time.Duration
}

// NewDiskCache resolves the cache directory from the environment, following
// the XDG base directory convention with a ~/.cache fallback.
func NewDiskCache() *DiskCache {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			base = filepath.Join(home, ".cache")
		}
	}
	return &DiskCache{Dir: filepath.Join(base, "botticelli", "tiers"), MaxAge: 24 * time.Hour}
}

func (c *DiskCache) path(provider string) string {
	return filepath.Join(c.Dir, provider+".json")
}

// Load returns the cached tier for provider if present and not older than
// MaxAge.
func (c *DiskCache) Load(provider string, now time.Time) (*TierConfig, bool) {
	if c == nil || c.Dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.path(provider))
	if err != nil {
		return nil, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if now.Sub(entry.DetectedAt) > c.MaxAge {
		return nil, false
	}
	return entry.Tier, true
}

// Store persists tc as the latest detection for provider.
func (c *DiskCache) Store(provider string, tc *TierConfig, now time.Time) error {
	if c == nil || c.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return errs.Wrap(errs.Storage, err, "create tier cache directory")
	}
	data, err := json.Marshal(cacheEntry{DetectedAt: now, Tier: tc})
	if err != nil {
		return errs.Wrap(errs.Storage, err, "marshal tier cache entry")
	}
	return os.WriteFile(c.path(provider), data, 0o644)
}
