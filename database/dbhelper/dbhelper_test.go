package dbhelper_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/catalog"
	"github.com/ray-remotestate/preorder/database"
	"github.com/ray-remotestate/preorder/database/dbhelper"
	"github.com/ray-remotestate/preorder/ledger"
	"github.com/ray-remotestate/preorder/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.ConnectAndMigrate(database.Credentials{
		Driver:     database.DriverSQLite,
		SQLitePath: ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createAccount(t *testing.T, db *database.DB, name string, role models.Role) *models.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	a := &models.Account{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		Password:  string(hash),
		Role:      role,
		CreatedAt: time.Now(),
	}
	require.NoError(t, dbhelper.NewAccountStore(db).Create(context.Background(), a))
	return a
}

func createItem(t *testing.T, db *database.DB, vendor uuid.UUID, name string, price models.Money, date string) *models.MenuItem {
	t.Helper()
	now := time.Now()
	item := &models.MenuItem{
		ID:        uuid.New(),
		VendorID:  vendor,
		Name:      name,
		Price:     price,
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, dbhelper.InsertMenuItem(context.Background(), db, item))
	return item
}

func TestAccounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := dbhelper.NewAccountStore(db)

	vendor := createAccount(t, db, "Annapoorna", models.RoleVendor)
	createAccount(t, db, "Ravi", models.RoleConsumer)

	dup := *vendor
	dup.ID = uuid.New()
	dup.Email = "ANNAPOORNA@example.com"
	assert.ErrorIs(t, store.Create(ctx, &dup), apperr.ErrEmailTaken)

	got, err := store.Authenticate(ctx, "Annapoorna@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, got.ID)
	assert.Equal(t, models.RoleVendor, got.Role)

	_, err = store.Authenticate(ctx, "annapoorna@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = store.Authenticate(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	vendors, err := dbhelper.ListVendors(ctx, db)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, models.Vendor{ID: vendor.ID, Name: "Annapoorna"}, vendors[0])

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateAccount_UniqueIndexCaughtWithoutPrecheck(t *testing.T) {
	db := setupTestDB(t)
	a := createAccount(t, db, "Meena", models.RoleConsumer)

	again := *a
	again.ID = uuid.New()
	err := dbhelper.CreateAccount(context.Background(), db, &again)
	assert.ErrorIs(t, err, apperr.ErrEmailTaken)
}

func TestMenuItems(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := dbhelper.NewMenuStore(db)
	vendor := createAccount(t, db, "Annapoorna", models.RoleVendor)

	dosa := createItem(t, db, vendor.ID, "Dosa", 4000, "2026-03-14")
	createItem(t, db, vendor.ID, "Vada", 2000, "2026-03-15")

	daily, err := store.ItemsByDate(ctx, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, dosa.ID, daily[0].ID)
	assert.Equal(t, "Annapoorna", daily[0].VendorName)
	assert.Equal(t, models.Money(4000), daily[0].Price)
	assert.WithinDuration(t, dosa.CreatedAt, daily[0].CreatedAt, time.Millisecond)

	own, err := store.ItemsByVendor(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	byID, err := store.ItemsByIDs(ctx, []uuid.UUID{dosa.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "Dosa", byID[0].Name)

	dosa.Price = 4500
	dosa.Name = "Masala Dosa"
	dosa.UpdatedAt = time.Now()
	require.NoError(t, store.UpdateItem(ctx, dosa))
	got, err := store.GetItem(ctx, dosa.ID)
	require.NoError(t, err)
	assert.Equal(t, "Masala Dosa", got.Name)
	assert.Equal(t, models.Money(4500), got.Price)

	require.NoError(t, store.DeleteItem(ctx, dosa.ID))
	_, err = store.GetItem(ctx, dosa.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, store.DeleteItem(ctx, dosa.ID), apperr.ErrNotFound)
}

func newOrder(account uuid.UUID, created time.Time, lines ...models.OrderLine) *models.Order {
	var total models.Money
	for _, l := range lines {
		total += l.UnitPrice.Times(l.Quantity)
	}
	return &models.Order{
		ID:         uuid.New(),
		AccountID:  account,
		Lines:      lines,
		Total:      total,
		Status:     models.StatusReceived,
		PickupTime: created.Add(time.Hour),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestOrders(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := dbhelper.NewOrderStore(db)
	consumer := createAccount(t, db, "Ravi", models.RoleConsumer)
	other := createAccount(t, db, "Meena", models.RoleConsumer)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	item1, item2 := uuid.New(), uuid.New()

	first := newOrder(consumer.ID, base,
		models.OrderLine{MenuItemID: item1, Quantity: 2, UnitPrice: 4000, Name: "Dosa"},
		models.OrderLine{MenuItemID: item2, Quantity: 1, UnitPrice: 1500, Name: "Coffee"},
	)
	second := newOrder(consumer.ID, base.Add(90*time.Second+500*time.Millisecond),
		models.OrderLine{MenuItemID: item2, Quantity: 3, UnitPrice: 1500, Name: "Coffee"},
	)
	second.Payment = &models.PaymentRef{IntentID: "order_1", PaymentID: "pay_1"}
	third := newOrder(other.ID, base.Add(time.Minute),
		models.OrderLine{MenuItemID: item1, Quantity: 1, UnitPrice: 4000, Name: "Dosa"},
	)
	for _, o := range []*models.Order{first, second, third} {
		require.NoError(t, store.Insert(ctx, o))
	}

	mine, err := store.ListByAccount(ctx, consumer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
	require.Len(t, mine[1].Lines, 2)
	assert.Equal(t, "Dosa", mine[1].Lines[0].Name)
	assert.Equal(t, "Coffee", mine[1].Lines[1].Name)
	assert.Equal(t, models.Money(9500), mine[1].Total)
	assert.True(t, base.Equal(mine[1].CreatedAt))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{second.ID, third.ID, first.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	byIntent, err := store.OrderByIntent(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, byIntent.ID)
	require.NotNil(t, byIntent.Payment)
	assert.Equal(t, "pay_1", byIntent.Payment.PaymentID)
	_, err = store.OrderByIntent(ctx, "order_unknown")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	t.Run("intent can fund one order only", func(t *testing.T) {
		dup := newOrder(consumer.ID, base, models.OrderLine{MenuItemID: item1, Quantity: 1, UnitPrice: 4000, Name: "Dosa"})
		dup.Payment = &models.PaymentRef{IntentID: "order_1", PaymentID: "pay_2"}
		assert.ErrorIs(t, store.Insert(ctx, dup), apperr.ErrDuplicatePayment)

		_, err := store.Get(ctx, dup.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("order id collision is not a duplicate payment", func(t *testing.T) {
		clash := newOrder(consumer.ID, base, models.OrderLine{MenuItemID: item1, Quantity: 1, UnitPrice: 4000, Name: "Dosa"})
		clash.ID = second.ID
		clash.Payment = &models.PaymentRef{IntentID: "order_fresh", PaymentID: "pay_3"}

		err := store.Insert(ctx, clash)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperr.ErrDuplicatePayment)
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

		_, err = store.OrderByIntent(ctx, "order_fresh")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("status is compare and set", func(t *testing.T) {
		ok, err := store.UpdateStatus(ctx, first.ID, models.StatusReceived, models.StatusPreparing, base.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.UpdateStatus(ctx, first.ID, models.StatusReceived, models.StatusPreparing, base.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPreparing, got.Status)
	})

	t.Run("delete removes lines", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, first.ID))
		_, err := store.Get(ctx, first.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM order_lines WHERE order_id = $1`, first.ID).Scan(&n))
		assert.Zero(t, n)
		assert.ErrorIs(t, store.Delete(ctx, first.ID), apperr.ErrNotFound)
	})
}

// Ledger and catalog running on the sqlite stores, as the server wires them.
func TestLedgerOnSQLite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	vendor := createAccount(t, db, "Annapoorna", models.RoleVendor)
	consumer := createAccount(t, db, "Ravi", models.RoleConsumer)

	menu := catalog.NewService(dbhelper.NewMenuStore(db), nil)
	orders := ledger.NewService(menu, dbhelper.NewOrderStore(db))

	x, err := menu.Create(ctx, vendor.ID, catalog.ItemInput{Name: "Idli", Price: models.FromMajor(20), Date: "2026-03-14"})
	require.NoError(t, err)

	order, err := orders.CreateOrder(ctx, consumer.ID, []models.LineEntry{{MenuItemID: x.ID, Quantity: 3}}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.FromMajor(60), order.Total)
	assert.Equal(t, models.StatusReceived, order.Status)

	for _, s := range []models.OrderStatus{models.StatusPreparing, models.StatusReady} {
		_, err := orders.SetStatus(ctx, order.ID, s)
		require.NoError(t, err)
	}
	_, err = orders.SetStatus(ctx, order.ID, models.StatusReceived)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.ErrorIs(t, orders.Delete(ctx, order.ID, consumer.ID), apperr.ErrNotCompleted)

	require.NoError(t, menu.Delete(ctx, vendor.ID, x.ID))

	mine, err := orders.ListForAccount(ctx, consumer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Len(t, mine[0].Lines, 1)
	assert.True(t, mine[0].Lines[0].Removed)
	assert.Equal(t, "Idli", mine[0].Lines[0].Name)
	assert.Equal(t, models.FromMajor(60), mine[0].Total)

	_, err = orders.SetStatus(ctx, order.ID, models.StatusCompleted)
	require.NoError(t, err)
	require.NoError(t, orders.Delete(ctx, order.ID, consumer.ID))
}
