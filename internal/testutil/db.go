package testutil

import (
	"path/filepath"
	"testing"

	"github.com/civibook/civibook-go/internal/cache"
)

// NewTestCache creates a temporary cache database with migrations
// applied.
func NewTestCache(t *testing.T) *cache.Cache {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := cache.Open(path)
	if err != nil {
		t.Fatalf("open test cache: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}
