package memory

import (
	"context"
	"time"

	"game-exploration-be/pkg/exploration/preview"

	"github.com/patrickmn/go-cache"
)

// PreviewRepository keeps previews in process memory. Suitable for a single instance.
type PreviewRepository struct {
	cache *cache.Cache
}

var _ preview.Store = (*PreviewRepository)(nil)

func NewPreviewRepository() *PreviewRepository {
	// Entries carry their own expiration; purge expired items every 5 minutes
	c := cache.New(preview.DefaultTTL, 5*time.Minute)
	return &PreviewRepository{
		cache: c,
	}
}

func (r *PreviewRepository) Put(ctx context.Context, entry *preview.Entry, ttl time.Duration) error {
	stored := *entry
	r.cache.Set(entry.Key, &stored, ttl)
	return nil
}

func (r *PreviewRepository) Get(ctx context.Context, key string) (*preview.Entry, bool, error) {
	if x, found := r.cache.Get(key); found {
		e := *x.(*preview.Entry)
		return &e, true, nil
	}
	return nil, false, nil
}
