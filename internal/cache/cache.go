package cache

import (
	"context"
	"time"

	"github.com/VarshaLala06/giribazar/internal/domain"
)

// ReportCache holds recently generated sales reports so repeated
// report-screen loads do not rescan the sell history. Entries expire
// on a short TTL; staleness within the TTL window is acceptable.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.SalesReport, bool, error)
	Set(ctx context.Context, key string, value *domain.SalesReport, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.SalesReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.SalesReport, _ time.Duration) error {
	return nil
}
