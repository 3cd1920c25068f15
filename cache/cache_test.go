package cache

import (
	"testing"

	"github.com/Linanok/Linanok/config"
	"github.com/Linanok/Linanok/model"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(config.CacheConfig{
		Enabled:     true,
		MaxSizeMB:   10,
		TTLSeconds:  60,
		CounterSize: 10000,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCacheSetGetLink(t *testing.T) {
	c := newTestCache(t)

	link := model.Link{ID: 1, ShortPath: "abc123", OriginalURL: "https://target.com"}
	c.SetLink(5, "abc123", link)
	c.client.Wait() // ristretto sets are async

	got, found := c.GetLink(5, "abc123")
	if !found {
		t.Fatal("expected cache hit")
	}
	if got.OriginalURL != link.OriginalURL {
		t.Errorf("GetLink() URL = %q, want %q", got.OriginalURL, link.OriginalURL)
	}
}

func TestCacheKeysAreDomainScoped(t *testing.T) {
	c := newTestCache(t)

	link := model.Link{ID: 1, ShortPath: "abc123"}
	c.SetLink(5, "abc123", link)
	c.client.Wait()

	if _, found := c.GetLink(6, "abc123"); found {
		t.Error("token cached for domain 5 must not be visible for domain 6")
	}
}

func TestCacheInvalidateLink(t *testing.T) {
	c := newTestCache(t)

	link := model.Link{
		ID:        1,
		ShortPath: "abc123",
		Domains: []model.Domain{
			{ID: 5, IsActive: true},
			{ID: 6, IsActive: true},
		},
	}
	c.SetLink(5, "abc123", link)
	c.SetLink(6, "abc123", link)
	c.client.Wait()

	c.InvalidateLink(link)
	c.client.Wait()

	if _, found := c.GetLink(5, "abc123"); found {
		t.Error("entry for domain 5 should be invalidated")
	}
	if _, found := c.GetLink(6, "abc123"); found {
		t.Error("entry for domain 6 should be invalidated")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache

	if _, found := c.GetLink(1, "x"); found {
		t.Error("nil cache must miss")
	}
	if c.SetLink(1, "x", model.Link{}) {
		t.Error("nil cache must reject sets")
	}
	c.InvalidateLink(model.Link{})
	c.Close()
}
