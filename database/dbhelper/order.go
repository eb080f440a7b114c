package dbhelper

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/database"
	"github.com/ray-remotestate/preorder/models"
)

const orderColumns = `id, account_id, total_minor, status, pickup_time, payment_intent_id, payment_id, created_at, updated_at`

// InsertOrder writes the order row and its lines. Call it inside a
// transaction so a failed line leaves nothing behind.
func InsertOrder(ctx context.Context, tx SQLExecutor, o *models.Order) error {
	var intentID, paymentID sql.NullString
	if o.Payment != nil {
		intentID = sql.NullString{String: o.Payment.IntentID, Valid: true}
		paymentID = sql.NullString{String: o.Payment.PaymentID, Valid: o.Payment.PaymentID != ""}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.AccountID, o.Total, o.Status, dbTime(o.PickupTime), intentID, paymentID,
		dbTime(o.CreatedAt), dbTime(o.UpdatedAt))
	if database.IsUniqueViolation(err) {
		return apperr.ErrDuplicatePayment
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, l := range o.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, line_no, menu_item_id, quantity, unit_price_minor, name_snapshot)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, i, l.MenuItemID, l.Quantity, l.UnitPrice, l.Name)
		if err != nil {
			return fmt.Errorf("failed to insert order line %d: %w", i, err)
		}
	}
	return nil
}

func GetOrder(ctx context.Context, db SQLExecutor, id uuid.UUID) (*models.Order, error) {
	return getOneOrder(ctx, db, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func GetOrderByIntent(ctx context.Context, db SQLExecutor, intentID string) (*models.Order, error) {
	return getOneOrder(ctx, db, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, intentID)
}

func ListOrdersByAccount(ctx context.Context, db SQLExecutor, accountID uuid.UUID) ([]models.Order, error) {
	return queryOrders(ctx, db, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC`, accountID)
}

func ListAllOrders(ctx context.Context, db SQLExecutor) ([]models.Order, error) {
	return queryOrders(ctx, db, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, id DESC`)
}

// UpdateOrderStatus sets the status only if it is still from. It reports
// whether a row changed.
func UpdateOrderStatus(ctx context.Context, db SQLExecutor, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`, id, from, to, dbTime(at))
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func DeleteOrder(ctx context.Context, tx SQLExecutor, id uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete order lines: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return expectRow(res)
}

func getOneOrder(ctx context.Context, db SQLExecutor, query string, args ...interface{}) (*models.Order, error) {
	orders, err := queryOrders(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, apperr.ErrNotFound
	}
	return &orders[0], nil
}

func queryOrders(ctx context.Context, db SQLExecutor, query string, args ...interface{}) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := []models.Order{}
	for rows.Next() {
		var (
			o                   models.Order
			intentID, paymentID sql.NullString
		)
		err := rows.Scan(&o.ID, &o.AccountID, &o.Total, &o.Status, &o.PickupTime, &intentID, &paymentID,
			&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if intentID.Valid {
			o.Payment = &models.PaymentRef{IntentID: intentID.String, PaymentID: paymentID.String}
		}
		o.PickupTime = o.PickupTime.UTC()
		o.CreatedAt = o.CreatedAt.UTC()
		o.UpdatedAt = o.UpdatedAt.UTC()
		o.Lines = []models.OrderLine{}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	// lines are read on the same connection, so release it first
	rows.Close()

	if err := attachLines(ctx, db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func attachLines(ctx context.Context, db SQLExecutor, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	in, args := inClause(1, ids)
	rows, err := db.QueryContext(ctx, `
		SELECT order_id, menu_item_id, quantity, unit_price_minor, name_snapshot
		FROM order_lines
		WHERE order_id IN (`+in+`)
		ORDER BY order_id, line_no`, args...)
	if err != nil {
		return fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			l       models.OrderLine
		)
		if err := rows.Scan(&orderID, &l.MenuItemID, &l.Quantity, &l.UnitPrice, &l.Name); err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		i, ok := index[orderID]
		if !ok {
			continue
		}
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return rows.Err()
}
