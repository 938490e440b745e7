package matrix

import (
	"context"
	"time"

	"github.com/maypok86/otter"

	"github.com/routewise/routewise/internal/geo"
)

// CachedProvider memoizes matrices by point-set fingerprint in a bounded
// otter cache. Entries expire after the configured TTL so stale road data
// does not persist across service changes.
type CachedProvider struct {
	inner Provider
	cache otter.Cache[string, *Matrix]
}

// NewCachedProvider wraps inner with a cache bounded to roughly maxBytes of
// matrix data. Cost is counted per matrix cell so large tables evict many
// small ones.
func NewCachedProvider(inner Provider, maxBytes int, ttl time.Duration) *CachedProvider {
	cache, err := otter.MustBuilder[string, *Matrix](maxBytes).
		Cost(func(_ string, m *Matrix) uint32 {
			n := m.Size()
			// Two int tables per matrix.
			return uint32(n * n * 16)
		}).
		WithTTL(ttl).
		Build()
	if err != nil {
		panic("matrix: failed to create cache: " + err.Error())
	}
	return &CachedProvider{inner: inner, cache: cache}
}

// Table returns the cached matrix for the fingerprint of points, computing
// and storing it on miss. Coordinates are fingerprinted at six decimals, so
// sub-meter jitter between requests still hits.
func (p *CachedProvider) Table(ctx context.Context, points []geo.Point) (*Matrix, error) {
	key := geo.FingerprintPoints(points).Hex()
	if m, ok := p.cache.Get(key); ok {
		return m, nil
	}

	m, err := p.inner.Table(ctx, points)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, m)
	return m, nil
}

// Size returns the number of cached matrices.
func (p *CachedProvider) Size() int {
	return p.cache.Size()
}

// Close releases resources held by the underlying cache.
func (p *CachedProvider) Close() {
	p.cache.Close()
}
