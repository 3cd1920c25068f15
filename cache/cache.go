package cache

import (
	"strconv"
	"time"

	"github.com/Linanok/Linanok/config"
	"github.com/Linanok/Linanok/model"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

// approximate memory cost of a cached link with its domains
const linkCost = 1024

// Cache keeps resolved links on the redirect hot path, keyed per serving
// domain so the same token served through different domains never aliases.
type Cache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// New creates a new cache instance with the given configuration
func New(cfg config.CacheConfig) (*Cache, error) {
	// Calculate max cost in bytes (convert MB to bytes)
	maxCost := int64(cfg.MaxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize), // Number of keys to track frequency for admission
		MaxCost:     maxCost,               // Maximum cache size in bytes
		BufferItems: 64,                    // Number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Int("counter_size", cfg.CounterSize).
		Msg("Cache initialized successfully")

	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

func key(domainID int64, shortPath string) string {
	return strconv.FormatInt(domainID, 10) + ":" + shortPath
}

// GetLink retrieves a cached link for the given serving domain and token.
func (c *Cache) GetLink(domainID int64, shortPath string) (model.Link, bool) {
	if c == nil || c.client == nil {
		return model.Link{}, false
	}
	value, found := c.client.Get(key(domainID, shortPath))
	if !found {
		return model.Link{}, false
	}
	link, ok := value.(model.Link)
	return link, ok
}

// SetLink stores a link under the given serving domain and token.
func (c *Cache) SetLink(domainID int64, shortPath string, link model.Link) bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.client.SetWithTTL(key(domainID, shortPath), link, linkCost, c.ttl)
}

// InvalidateLink drops a link's cache entries for every domain it is
// associated with. Called after admin updates or deletes.
func (c *Cache) InvalidateLink(link model.Link) {
	if c == nil || c.client == nil {
		return
	}
	for _, d := range link.Domains {
		c.client.Del(key(d.ID, link.ShortPath))
	}
}

// Close cleanly shuts down the cache
func (c *Cache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
		log.Info().Msg("Cache closed")
	}
}
