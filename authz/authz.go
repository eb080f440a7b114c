// Package authz decides which role may perform which operation. Checks run
// before any read of privileged data or any mutation.
package authz

import (
	"github.com/google/uuid"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/models"
)

type Operation string

const (
	MenuBrowse  Operation = "menu.browse"
	MenuListOwn Operation = "menu.list_own"
	MenuCreate  Operation = "menu.create"
	MenuUpdate  Operation = "menu.update"
	MenuDelete  Operation = "menu.delete"
	VendorList  Operation = "vendor.list"

	CartQuote Operation = "cart.quote"

	OrderCreate    Operation = "order.create"
	OrderListOwn   Operation = "order.list_own"
	OrderListAll   Operation = "order.list_all"
	OrderSetStatus Operation = "order.set_status"
	OrderDelete    Operation = "order.delete"

	PaymentKey          Operation = "payment.key"
	PaymentCreateIntent Operation = "payment.create_intent"
	PaymentVerify       Operation = "payment.verify"
)

// Principal is the authenticated caller.
type Principal struct {
	AccountID uuid.UUID
	Name      string
	Role      models.Role
}

type rule struct {
	public bool
	// roles empty means any authenticated caller.
	roles []models.Role
}

var (
	consumerOnly = []models.Role{models.RoleConsumer}
	vendorOnly   = []models.Role{models.RoleVendor}
)

// Vendor staff see and advance every vendor's orders; there is no per-vendor
// partition of orders.
var rules = map[Operation]rule{
	MenuBrowse:  {public: true},
	VendorList:  {public: true},
	MenuListOwn: {roles: vendorOnly},
	MenuCreate:  {roles: vendorOnly},
	MenuUpdate:  {roles: vendorOnly},
	MenuDelete:  {roles: vendorOnly},

	CartQuote: {roles: consumerOnly},

	OrderCreate:    {roles: consumerOnly},
	OrderListOwn:   {roles: consumerOnly},
	OrderListAll:   {roles: vendorOnly},
	OrderSetStatus: {roles: vendorOnly},
	OrderDelete:    {roles: consumerOnly},

	PaymentKey:          {},
	PaymentCreateIntent: {roles: consumerOnly},
	PaymentVerify:       {roles: consumerOnly},
}

func IsPublic(op Operation) bool {
	return rules[op].public
}

// Authorize returns nil if p may perform op. p is nil for anonymous callers.
// Unknown operations are denied.
func Authorize(p *Principal, op Operation) error {
	r, ok := rules[op]
	if !ok {
		return apperr.ErrForbidden
	}
	if r.public {
		return nil
	}
	if p == nil {
		return apperr.ErrUnauthorized
	}
	if len(r.roles) == 0 {
		return nil
	}
	for _, role := range r.roles {
		if p.Role == role {
			return nil
		}
	}
	return apperr.ErrForbidden
}

// RequireOwner fails with apperr.ErrForbidden unless actor owns the resource.
func RequireOwner(actor, owner uuid.UUID) error {
	if actor == uuid.Nil || actor != owner {
		return apperr.ErrForbidden
	}
	return nil
}
