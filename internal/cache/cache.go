package cache

import (
	"context"
	"time"

	"servisaja/backend/internal/domain"
)

// ReportCache stores fully-assembled dashboard reports keyed by snapshot
// version, so repeated reads between mutations skip recomputation.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.DashboardReport, bool, error)
	Set(ctx context.Context, key string, value *domain.DashboardReport, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.DashboardReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.DashboardReport, _ time.Duration) error {
	return nil
}
