package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ray-remotestate/preorder/cart"
	"github.com/ray-remotestate/preorder/catalog"
	"github.com/ray-remotestate/preorder/models"
	"github.com/ray-remotestate/preorder/payment"
)

type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	Authenticate(ctx context.Context, email, password string) (*models.Account, error)
}

type MenuService interface {
	Daily(ctx context.Context, date string) ([]models.MenuItem, error)
	ListOwn(ctx context.Context, vendorID uuid.UUID) ([]models.MenuItem, error)
	Create(ctx context.Context, vendorID uuid.UUID, in catalog.ItemInput) (*models.MenuItem, error)
	Update(ctx context.Context, vendorID, itemID uuid.UUID, in catalog.ItemInput) (*models.MenuItem, error)
	Delete(ctx context.Context, vendorID, itemID uuid.UUID) error
	Vendors(ctx context.Context) ([]models.Vendor, error)
}

type OrderService interface {
	Quote(ctx context.Context, lines []models.LineEntry) (cart.State, error)
	CreateOrder(ctx context.Context, accountID uuid.UUID, lines []models.LineEntry, pickup time.Time) (*models.Order, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	SetStatus(ctx context.Context, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, orderID, requesterID uuid.UUID) error
}

type PaymentVerifier interface {
	Verify(ctx context.Context, accountID uuid.UUID, c payment.Confirmation) (*models.Order, error)
}

// Handler serves the HTTP API on top of the services.
type Handler struct {
	Accounts  AccountStore
	Menu      MenuService
	Orders    OrderService
	Gateway   payment.Gateway
	Verifier  PaymentVerifier
	JWTSecret []byte
}
