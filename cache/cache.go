package cache

import (
	"context"
	"errors"

	"github.com/ray-remotestate/preorder/models"
)

// MenuCache holds the public daily menu per offer date.
type MenuCache interface {
	GetDaily(ctx context.Context, date string) ([]models.MenuItem, error)
	SetDaily(ctx context.Context, date string, items []models.MenuItem) error
	InvalidateDaily(ctx context.Context, dates ...string) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache always misses. It is used when no Redis address is configured.
type NopCache struct{}

func (NopCache) GetDaily(context.Context, string) ([]models.MenuItem, error) {
	return nil, ErrCacheMiss
}

func (NopCache) SetDaily(context.Context, string, []models.MenuItem) error { return nil }

func (NopCache) InvalidateDaily(context.Context, ...string) error { return nil }
