package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage format of a menu offer date.
const DateLayout = "2006-01-02"

type MenuItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	VendorID    uuid.UUID `db:"vendor_id" json:"vendorId"`
	VendorName  string    `db:"-" json:"vendorName,omitempty"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Price       Money     `db:"price_minor" json:"price"`
	Date        string    `db:"offer_date" json:"date"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
