package projection

import (
	"context"
	"time"

	"fatura/internal/port"
)

// NewAt builds a Projector whose clock is pinned to now.
func NewAt(catalog port.CatalogRepository, now time.Time) *Projector {
	p := New(catalog)
	p.now = func() time.Time { return now }
	return p
}

func (p *Projector) MatchItem(ctx context.Context, description string) (string, error) {
	return p.matchItem(ctx, description)
}
