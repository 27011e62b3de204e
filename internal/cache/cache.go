package cache

import (
	"context"
	"time"

	"dukapos/internal/domain"
)

type AlertsCache interface {
	Get(ctx context.Context, key string) (*domain.CreditAlerts, bool, error)
	Set(ctx context.Context, key string, value *domain.CreditAlerts, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopAlertsCache struct{}

func (NoopAlertsCache) Get(_ context.Context, _ string) (*domain.CreditAlerts, bool, error) {
	return nil, false, nil
}

func (NoopAlertsCache) Set(_ context.Context, _ string, _ *domain.CreditAlerts, _ time.Duration) error {
	return nil
}

func (NoopAlertsCache) Delete(_ context.Context, _ string) error {
	return nil
}
