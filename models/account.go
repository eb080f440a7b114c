package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleConsumer Role = "consumer"
	RoleVendor   Role = "vendor"
)

func (r Role) IsValid() bool {
	return r == RoleConsumer || r == RoleVendor
}

type Account struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Vendor is the public view of a vendor-staff account.
type Vendor struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}
