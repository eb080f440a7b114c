// Package catalog manages vendors' menu items and serves the public daily
// menu.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/authz"
	"github.com/ray-remotestate/preorder/cache"
	"github.com/ray-remotestate/preorder/models"
)

// Store persists menu items. GetItem returns apperr.ErrNotFound for an unknown
// id. ItemsByDate fills VendorName.
type Store interface {
	ItemsByDate(ctx context.Context, date string) ([]models.MenuItem, error)
	ItemsByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.MenuItem, error)
	ItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.MenuItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	InsertItem(ctx context.Context, item *models.MenuItem) error
	UpdateItem(ctx context.Context, item *models.MenuItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListVendors(ctx context.Context) ([]models.Vendor, error)
}

// ItemInput is the editable part of a menu item.
type ItemInput struct {
	Name        string
	Description string
	Price       models.Money
	Date        string
}

const maxNameLength = 120

type Service struct {
	store Store
	cache cache.MenuCache
	group singleflight.Group
	now   func() time.Time
}

func NewService(store Store, menuCache cache.MenuCache) *Service {
	if menuCache == nil {
		menuCache = cache.NopCache{}
	}
	return &Service{store: store, cache: menuCache, now: time.Now}
}

// Daily returns the items offered on date. Concurrent misses for the same
// date share one database read.
func (s *Service) Daily(ctx context.Context, date string) ([]models.MenuItem, error) {
	day, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}

	items, err := s.cache.GetDaily(ctx, day)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logrus.WithError(err).WithField("date", day).Warn("menu cache read failed")
	}

	v, err, _ := s.group.Do(day, func() (interface{}, error) {
		items, err := s.store.ItemsByDate(ctx, day)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetDaily(ctx, day, items); err != nil {
			logrus.WithError(err).WithField("date", day).Warn("menu cache write failed")
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("daily menu for %s: %w", day, err)
	}
	return v.([]models.MenuItem), nil
}

func (s *Service) ListOwn(ctx context.Context, vendorID uuid.UUID) ([]models.MenuItem, error) {
	items, err := s.store.ItemsByVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list items of %s: %w", vendorID, err)
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, vendorID uuid.UUID, in ItemInput) (*models.MenuItem, error) {
	in, err := validate(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item := &models.MenuItem{
		ID:          uuid.New(),
		VendorID:    vendorID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Date:        in.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	s.invalidate(ctx, item.Date)
	return item, nil
}

// Update replaces the editable fields of an item the vendor owns.
func (s *Service) Update(ctx context.Context, vendorID, itemID uuid.UUID, in ItemInput) (*models.MenuItem, error) {
	in, err := validate(in)
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(vendorID, item.VendorID); err != nil {
		return nil, err
	}

	previousDate := item.Date
	item.Name = in.Name
	item.Description = in.Description
	item.Price = in.Price
	item.Date = in.Date
	item.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update item %s: %w", itemID, err)
	}
	s.invalidate(ctx, previousDate, item.Date)
	return item, nil
}

// Delete removes an item the vendor owns. Orders that reference it keep
// their snapshot and show the line as removed.
func (s *Service) Delete(ctx context.Context, vendorID, itemID uuid.UUID) error {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := authz.RequireOwner(vendorID, item.VendorID); err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("delete item %s: %w", itemID, err)
	}
	s.invalidate(ctx, item.Date)
	return nil
}

// Lookup resolves ids to items. Unknown ids are left out of the result.
func (s *Service) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error) {
	out := make(map[uuid.UUID]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.store.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (s *Service) Vendors(ctx context.Context) ([]models.Vendor, error) {
	vendors, err := s.store.ListVendors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, nil
}

func (s *Service) invalidate(ctx context.Context, dates ...string) {
	if err := s.cache.InvalidateDaily(ctx, dates...); err != nil {
		logrus.WithError(err).WithField("dates", dates).Warn("menu cache invalidation failed")
	}
}

func validate(in ItemInput) (ItemInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, apperr.Invalid("name", "is required")
	}
	if len(in.Name) > maxNameLength {
		return in, apperr.Invalid("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	if in.Price <= 0 {
		return in, apperr.Invalid("price", "must be positive")
	}
	if in.Price > models.MaxPrice {
		return in, apperr.Invalid("price", fmt.Sprintf("must be at most %s", models.MaxPrice))
	}
	date, err := NormalizeDate(in.Date)
	if err != nil {
		return in, err
	}
	in.Date = date
	return in, nil
}

// NormalizeDate accepts a calendar date or an RFC 3339 timestamp and returns
// the YYYY-MM-DD form. Timestamps keep the date of their own offset.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Invalid("date", "is required")
	}
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t.Format(models.DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(models.DateLayout), nil
	}
	return "", apperr.Invalid("date", "must be YYYY-MM-DD")
}
