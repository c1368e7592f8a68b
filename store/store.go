package store

import (
	"time"

	"github.com/hrygo/timextag/internal/profile"
	"github.com/hrygo/timextag/store/cache"
)

const (
	documentCacheSize = 1024
	documentCacheTTL  = 10 * time.Minute
)

// Store provides database access to documents and annotations.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// documentCache holds documents by ID; lengths are read on every annotation write.
	documentCache *cache.LRU[*Document]
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:        driver,
		profile:       profile,
		documentCache: cache.NewLRU[*Document](documentCacheSize, documentCacheTTL),
	}
}

func (s *Store) Close() error {
	return s.driver.Close()
}
