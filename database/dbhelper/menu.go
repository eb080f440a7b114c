package dbhelper

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/models"
)

const menuColumns = `m.id, m.vendor_id, m.name, m.description, m.price_minor, m.offer_date, m.created_at, m.updated_at`

func InsertMenuItem(ctx context.Context, db SQLExecutor, item *models.MenuItem) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO menu_items (id, vendor_id, name, description, price_minor, offer_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.VendorID, item.Name, item.Description, item.Price, item.Date,
		dbTime(item.CreatedAt), dbTime(item.UpdatedAt))
	return err
}

func UpdateMenuItem(ctx context.Context, db SQLExecutor, item *models.MenuItem) error {
	res, err := db.ExecContext(ctx, `
		UPDATE menu_items
		SET name = $2, description = $3, price_minor = $4, offer_date = $5, updated_at = $6
		WHERE id = $1`,
		item.ID, item.Name, item.Description, item.Price, item.Date, dbTime(item.UpdatedAt))
	if err != nil {
		return err
	}
	return expectRow(res)
}

func DeleteMenuItem(ctx context.Context, db SQLExecutor, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func GetMenuItem(ctx context.Context, db SQLExecutor, id uuid.UUID) (*models.MenuItem, error) {
	items, err := queryMenuItems(ctx, db, false, `
		SELECT `+menuColumns+`
		FROM menu_items m
		WHERE m.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.ErrNotFound
	}
	return &items[0], nil
}

// ListMenuItemsByDate includes the vendor's name with every item.
func ListMenuItemsByDate(ctx context.Context, db SQLExecutor, date string) ([]models.MenuItem, error) {
	return queryMenuItems(ctx, db, true, `
		SELECT `+menuColumns+`, a.name
		FROM menu_items m
		JOIN accounts a ON a.id = m.vendor_id
		WHERE m.offer_date = $1
		ORDER BY a.name, m.name`, date)
}

func ListMenuItemsByVendor(ctx context.Context, db SQLExecutor, vendorID uuid.UUID) ([]models.MenuItem, error) {
	return queryMenuItems(ctx, db, false, `
		SELECT `+menuColumns+`
		FROM menu_items m
		WHERE m.vendor_id = $1
		ORDER BY m.offer_date DESC, m.name`, vendorID)
}

func ListMenuItemsByIDs(ctx context.Context, db SQLExecutor, ids []uuid.UUID) ([]models.MenuItem, error) {
	if len(ids) == 0 {
		return []models.MenuItem{}, nil
	}
	in, args := inClause(1, ids)
	return queryMenuItems(ctx, db, false, `
		SELECT `+menuColumns+`
		FROM menu_items m
		WHERE m.id IN (`+in+`)`, args...)
}

func queryMenuItems(ctx context.Context, db SQLExecutor, withVendor bool, query string, args ...interface{}) ([]models.MenuItem, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var it models.MenuItem
		dest := []interface{}{
			&it.ID, &it.VendorID, &it.Name, &it.Description, &it.Price, &it.Date, &it.CreatedAt, &it.UpdatedAt,
		}
		if withVendor {
			dest = append(dest, &it.VendorName)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		it.CreatedAt = it.CreatedAt.UTC()
		it.UpdatedAt = it.UpdatedAt.UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// inClause renders "$n, $n+1, ..." for ids starting at placeholder first.
func inClause(first int, ids []uuid.UUID) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = fmt.Sprintf("$%d", first+i)
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// dbTime stores instants in UTC at the precision both dialects keep.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
