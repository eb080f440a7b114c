package dbhelper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/database"
	"github.com/ray-remotestate/preorder/models"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func CreateAccount(ctx context.Context, db SQLExecutor, a *models.Account) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, email, password, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, strings.ToLower(a.Email), a.Password, a.Role, dbTime(a.CreatedAt))
	if database.IsUniqueViolation(err) {
		return apperr.ErrEmailTaken
	}
	return err
}

func IsAccountExists(ctx context.Context, db SQLExecutor, email string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE LOWER(email) = LOWER($1)`, email).Scan(&count)
	return count > 0, err
}

func GetAccountByID(ctx context.Context, db SQLExecutor, id uuid.UUID) (*models.Account, error) {
	return scanAccount(db.QueryRowContext(ctx, `
		SELECT id, name, email, password, role, created_at
		FROM accounts
		WHERE id = $1`, id))
}

// GetAccountByPassword returns the account only if password matches its
// stored hash. Unknown email and wrong password fail the same way.
func GetAccountByPassword(ctx context.Context, db SQLExecutor, email, password string) (*models.Account, error) {
	a, err := scanAccount(db.QueryRowContext(ctx, `
		SELECT id, name, email, password, role, created_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)`, email))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) != nil {
		return nil, apperr.ErrUnauthorized
	}
	return a, nil
}

func ListVendors(ctx context.Context, db SQLExecutor) ([]models.Vendor, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name FROM accounts
		WHERE role = $1
		ORDER BY name`, models.RoleVendor)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		var v models.Vendor
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Password, &a.Role, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
