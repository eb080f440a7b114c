// Package ledger owns orders: it prices them from the catalog, persists them,
// runs the status machine and enforces the deletion rule.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/cart"
	"github.com/ray-remotestate/preorder/models"
)

// Catalog resolves menu items by id. Missing ids are simply absent from the
// returned map.
type Catalog interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error)
}

// Store persists orders. Get and OrderByIntent return apperr.ErrNotFound when
// nothing matches; Insert returns apperr.ErrDuplicatePayment when the payment
// intent is already recorded. UpdateStatus only writes if the stored status
// still equals from and reports whether it did.
type Store interface {
	Insert(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	OrderByIntent(ctx context.Context, intentID string) (*models.Order, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const (
	maxLines          = 50
	maxQuantity       = 100
	setStatusAttempts = 3
)

type Service struct {
	catalog Catalog
	store   Store
	now     func() time.Time
}

func NewService(catalog Catalog, store Store) *Service {
	return &Service{catalog: catalog, store: store, now: time.Now}
}

// Quote prices lines against the live catalog and folds them into a cart,
// which enforces the single-vendor rule.
func (s *Service) Quote(ctx context.Context, lines []models.LineEntry) (cart.State, error) {
	merged, err := normalizeLines(lines)
	if err != nil {
		return cart.State{}, err
	}
	return s.price(ctx, merged)
}

// CreateOrder is the non-payment path. The total is always recomputed.
func (s *Service) CreateOrder(ctx context.Context, accountID uuid.UUID, lines []models.LineEntry, pickup time.Time) (*models.Order, error) {
	order, err := s.build(ctx, accountID, lines, pickup)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

// CreateOrderFromVerifiedPayment records an order for an authenticated
// payment. The claimed total must match catalog pricing. Replaying the same
// intent from the same account returns the order already created for it.
func (s *Service) CreateOrderFromVerifiedPayment(ctx context.Context, accountID uuid.UUID, ref models.PaymentRef,
	lines []models.LineEntry, claimedTotal models.Money, pickup time.Time) (*models.Order, error) {
	if ref.IntentID == "" {
		return nil, apperr.Invalid("intentId", "is required")
	}

	if existing, err := s.replayed(ctx, accountID, ref.IntentID); existing != nil || err != nil {
		return existing, err
	}

	order, err := s.build(ctx, accountID, lines, pickup)
	if err != nil {
		return nil, err
	}
	if order.Total != claimedTotal {
		logrus.WithFields(logrus.Fields{
			"intent_id": ref.IntentID,
			"claimed":   claimedTotal.String(),
			"computed":  order.Total.String(),
		}).Warn("payment total does not match catalog")
		return nil, apperr.ErrPriceMismatch
	}
	order.Payment = &ref

	err = s.store.Insert(ctx, order)
	if errors.Is(err, apperr.ErrDuplicatePayment) {
		// Lost a race with a concurrent verification of the same intent.
		if existing, rerr := s.replayed(ctx, accountID, ref.IntentID); existing != nil || rerr != nil {
			return existing, rerr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

func (s *Service) replayed(ctx context.Context, accountID uuid.UUID, intentID string) (*models.Order, error) {
	existing, err := s.store.OrderByIntent(ctx, intentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up intent %s: %w", intentID, err)
	}
	if existing.AccountID != accountID {
		logrus.WithField("intent_id", intentID).Warn("payment intent replayed by another account")
		return nil, apperr.ErrDuplicatePayment
	}
	logrus.WithField("intent_id", intentID).Info("payment verification replayed")
	return s.resolved(ctx, existing)
}

func (s *Service) build(ctx context.Context, accountID uuid.UUID, lines []models.LineEntry, pickup time.Time) (*models.Order, error) {
	if accountID == uuid.Nil {
		return nil, apperr.Invalid("accountId", "is required")
	}
	now := s.now().UTC()
	if pickup.IsZero() {
		return nil, apperr.Invalid("pickupTime", "is required")
	}
	if !pickup.After(now) {
		return nil, apperr.Invalid("pickupTime", "must be in the future")
	}

	merged, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}
	priced, err := s.price(ctx, merged)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:         uuid.New(),
		AccountID:  accountID,
		Status:     models.StatusReceived,
		PickupTime: pickup.UTC(),
		Total:      priced.Total(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, e := range priced.Entries() {
		order.Lines = append(order.Lines, models.OrderLine{
			MenuItemID: e.Item.ID,
			Quantity:   e.Quantity,
			UnitPrice:  e.Item.Price,
			Name:       e.Item.Name,
			Item:       &models.ResolvedItem{Name: e.Item.Name, Price: e.Item.Price},
		})
	}
	return order, nil
}

// price reads current catalog prices. A concurrent price edit between this
// read and the insert is not detected; the order keeps what was read here.
func (s *Service) price(ctx context.Context, lines []models.LineEntry) (cart.State, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.MenuItemID
	}
	items, err := s.catalog.Lookup(ctx, ids)
	if err != nil {
		return cart.State{}, fmt.Errorf("look up menu items: %w", err)
	}

	var state cart.State
	for i, l := range lines {
		item, ok := items[l.MenuItemID]
		if !ok {
			return cart.State{}, fmt.Errorf("%s: %w", l.MenuItemID, apperr.ErrItemNotFound)
		}
		if item.Price <= 0 || item.Price > models.MaxPrice {
			return cart.State{}, apperr.Invalid(fmt.Sprintf("items[%d]", i), fmt.Sprintf("%s has an unorderable price %s", item.Name, item.Price))
		}
		for n := 0; n < l.Quantity; n++ {
			if state, err = state.Add(cart.ItemFromMenu(item)); err != nil {
				return cart.State{}, err
			}
		}
	}
	return state, nil
}

// normalizeLines validates quantities and merges repeated item ids, keeping
// the position of the first occurrence.
func normalizeLines(lines []models.LineEntry) ([]models.LineEntry, error) {
	if len(lines) == 0 {
		return nil, apperr.Invalid("items", "at least one item is required")
	}
	if len(lines) > maxLines {
		return nil, apperr.Invalid("items", fmt.Sprintf("at most %d items per order", maxLines))
	}

	merged := make([]models.LineEntry, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for i, l := range lines {
		if l.MenuItemID == uuid.Nil {
			return nil, apperr.Invalid(fmt.Sprintf("items[%d].menuItemId", i), "is required")
		}
		if l.Quantity < 1 {
			return nil, apperr.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if j, ok := index[l.MenuItemID]; ok {
			merged[j].Quantity += l.Quantity
		} else {
			index[l.MenuItemID] = len(merged)
			merged = append(merged, l)
		}
	}
	for i, l := range merged {
		if l.Quantity > maxQuantity {
			return nil, apperr.Invalid(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("must be at most %d", maxQuantity))
		}
	}
	return merged, nil
}

// ListForAccount returns the account's orders, newest first.
func (s *Service) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Order, error) {
	orders, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", accountID, err)
	}
	if err := s.resolve(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAll returns every order in the system, newest first. Vendor staff see
// all vendors' orders.
func (s *Service) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if err := s.resolve(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// resolve attaches the live menu item to every line, or marks the line
// removed when the item no longer exists.
func (s *Service) resolve(ctx context.Context, orders []models.Order) error {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, o := range orders {
		for _, l := range o.Lines {
			if !seen[l.MenuItemID] {
				seen[l.MenuItemID] = true
				ids = append(ids, l.MenuItemID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	items, err := s.catalog.Lookup(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve order lines: %w", err)
	}
	for i := range orders {
		for j := range orders[i].Lines {
			line := &orders[i].Lines[j]
			if item, ok := items[line.MenuItemID]; ok {
				line.Item = &models.ResolvedItem{Name: item.Name, Price: item.Price}
				line.Removed = false
			} else {
				line.Item = nil
				line.Removed = true
			}
		}
	}
	return nil
}

// SetStatus moves an order to next if that is the same status or the one
// directly after the current one.
func (s *Service) SetStatus(ctx context.Context, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	if !next.IsValid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %q", next))
	}

	for attempt := 0; attempt < setStatusAttempts; attempt++ {
		order, err := s.store.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !order.Status.CanTransitionTo(next) {
			return nil, fmt.Errorf("%s -> %s: %w", order.Status, next, apperr.ErrInvalidTransition)
		}
		if order.Status == next {
			return s.resolved(ctx, order)
		}

		at := s.now().UTC()
		ok, err := s.store.UpdateStatus(ctx, orderID, order.Status, next, at)
		if err != nil {
			return nil, fmt.Errorf("update status of %s: %w", orderID, err)
		}
		if ok {
			order.Status = next
			order.UpdatedAt = at
			logrus.WithFields(logrus.Fields{"order_id": orderID, "status": next}).Info("order status updated")
			return s.resolved(ctx, order)
		}
		// Another writer changed the status first; re-check against it.
	}
	return nil, fmt.Errorf("update status of %s: %w", orderID, apperr.ErrInvalidTransition)
}

func (s *Service) resolved(ctx context.Context, order *models.Order) (*models.Order, error) {
	orders := []models.Order{*order}
	if err := s.resolve(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// Delete removes a completed order on behalf of its owner.
func (s *Service) Delete(ctx context.Context, orderID, requesterID uuid.UUID) error {
	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.AccountID != requesterID {
		return apperr.ErrForbidden
	}
	if order.Status != models.StatusCompleted {
		return apperr.ErrNotCompleted
	}
	if err := s.store.Delete(ctx, orderID); err != nil {
		return fmt.Errorf("delete order %s: %w", orderID, err)
	}
	return nil
}
