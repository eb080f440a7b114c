package dbhelper

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/database"
	"github.com/ray-remotestate/preorder/models"
)

// MenuStore backs the catalog service.
type MenuStore struct {
	db *database.DB
}

func NewMenuStore(db *database.DB) *MenuStore {
	return &MenuStore{db: db}
}

func (s *MenuStore) ItemsByDate(ctx context.Context, date string) ([]models.MenuItem, error) {
	return ListMenuItemsByDate(ctx, s.db, date)
}

func (s *MenuStore) ItemsByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.MenuItem, error) {
	return ListMenuItemsByVendor(ctx, s.db, vendorID)
}

func (s *MenuStore) ItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.MenuItem, error) {
	return ListMenuItemsByIDs(ctx, s.db, ids)
}

func (s *MenuStore) GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	return GetMenuItem(ctx, s.db, id)
}

func (s *MenuStore) InsertItem(ctx context.Context, item *models.MenuItem) error {
	return InsertMenuItem(ctx, s.db, item)
}

func (s *MenuStore) UpdateItem(ctx context.Context, item *models.MenuItem) error {
	return UpdateMenuItem(ctx, s.db, item)
}

func (s *MenuStore) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return DeleteMenuItem(ctx, s.db, id)
}

func (s *MenuStore) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	return ListVendors(ctx, s.db)
}

// OrderStore backs the ledger service.
type OrderStore struct {
	db *database.DB
}

func NewOrderStore(db *database.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Insert(ctx context.Context, order *models.Order) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		return InsertOrder(ctx, tx, order)
	})
}

func (s *OrderStore) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return GetOrder(ctx, s.db, id)
}

func (s *OrderStore) OrderByIntent(ctx context.Context, intentID string) (*models.Order, error) {
	return GetOrderByIntent(ctx, s.db, intentID)
}

func (s *OrderStore) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Order, error) {
	return ListOrdersByAccount(ctx, s.db, accountID)
}

func (s *OrderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	return ListAllOrders(ctx, s.db)
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error) {
	return UpdateOrderStatus(ctx, s.db, id, from, to, at)
}

func (s *OrderStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		return DeleteOrder(ctx, tx, id)
	})
}

// AccountStore backs registration and login.
type AccountStore struct {
	db *database.DB
}

func NewAccountStore(db *database.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, a *models.Account) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		exists, err := IsAccountExists(ctx, tx, a.Email)
		if err != nil {
			return err
		}
		if exists {
			return apperr.ErrEmailTaken
		}
		return CreateAccount(ctx, tx, a)
	})
}

func (s *AccountStore) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	return GetAccountByPassword(ctx, s.db, email, password)
}

func (s *AccountStore) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return GetAccountByID(ctx, s.db, id)
}
