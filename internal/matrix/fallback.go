package matrix

import (
	"context"
	"log"

	"github.com/routewise/routewise/internal/geo"
)

// FallbackProvider tries a primary backend and transparently falls back to a
// secondary on any failure. A solve never fails because the road-network
// service is down; the result just carries the fallback source tag.
type FallbackProvider struct {
	Primary  Provider
	Fallback Provider
}

// NewFallbackProvider wires primary ahead of fallback. Primary may be nil,
// in which case every request goes straight to the fallback.
func NewFallbackProvider(primary, fallback Provider) *FallbackProvider {
	return &FallbackProvider{Primary: primary, Fallback: fallback}
}

// Table queries the primary backend, then the fallback. Context cancellation
// is not treated as a backend failure and aborts the whole request.
func (p *FallbackProvider) Table(ctx context.Context, points []geo.Point) (*Matrix, error) {
	if p.Primary != nil {
		m, err := p.Primary.Table(ctx, points)
		if err == nil {
			return m, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[matrix] primary backend failed for %d points, falling back: %v", len(points), err)
	}
	return p.Fallback.Table(ctx, points)
}
