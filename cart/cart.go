// Package cart holds a consumer's pending selection before checkout.
//
// State is a value: Add and Remove return a new State and never modify the
// receiver, so callers can keep the previous state around (for undo, or to
// leave it untouched when an Add is rejected).
package cart

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/models"
)

// Item is the catalog information a cart needs about a menu item.
type Item struct {
	ID       uuid.UUID
	VendorID uuid.UUID
	Name     string
	Price    models.Money
}

func ItemFromMenu(m models.MenuItem) Item {
	return Item{ID: m.ID, VendorID: m.VendorID, Name: m.Name, Price: m.Price}
}

type Entry struct {
	Item     Item
	Quantity int
}

func (e Entry) Subtotal() models.Money {
	return e.Item.Price.Times(e.Quantity)
}

// State is an ordered selection locked to a single vendor once non-empty.
type State struct {
	vendorID uuid.UUID
	entries  []Entry
}

// Add puts one unit of item in the cart. Adding an item from another vendor
// to a non-empty cart fails with apperr.ErrVendorMismatch and returns s as is.
func (s State) Add(item Item) (State, error) {
	if item.ID == uuid.Nil || item.VendorID == uuid.Nil {
		return s, apperr.Invalid("item", "item and vendor ids are required")
	}
	if !s.IsEmpty() && item.VendorID != s.vendorID {
		return s, fmt.Errorf("add %s: %w", item.ID, apperr.ErrVendorMismatch)
	}

	next := s.clone()
	if next.IsEmpty() {
		next.vendorID = item.VendorID
	}
	for i := range next.entries {
		if next.entries[i].Item.ID == item.ID {
			next.entries[i].Quantity++
			return next, nil
		}
	}
	next.entries = append(next.entries, Entry{Item: item, Quantity: 1})
	return next, nil
}

// Remove takes one unit of itemID out of the cart, dropping the entry at zero
// and unlocking the vendor when the cart becomes empty.
func (s State) Remove(itemID uuid.UUID) State {
	idx := s.indexOf(itemID)
	if idx < 0 {
		return s
	}

	next := s.clone()
	if next.entries[idx].Quantity > 1 {
		next.entries[idx].Quantity--
		return next
	}
	next.entries = append(next.entries[:idx], next.entries[idx+1:]...)
	if len(next.entries) == 0 {
		next.vendorID = uuid.Nil
	}
	return next
}

// Clear empties the cart, which is the only way to switch vendors.
func (s State) Clear() State {
	return State{}
}

// Total is a display estimate. The ledger always re-prices from the catalog.
func (s State) Total() models.Money {
	var total models.Money
	for _, e := range s.entries {
		total += e.Subtotal()
	}
	return total
}

func (s State) IsEmpty() bool {
	return len(s.entries) == 0
}

// VendorID reports the locked vendor, if any.
func (s State) VendorID() (uuid.UUID, bool) {
	return s.vendorID, !s.IsEmpty()
}

func (s State) Quantity(itemID uuid.UUID) int {
	if idx := s.indexOf(itemID); idx >= 0 {
		return s.entries[idx].Quantity
	}
	return 0
}

// Entries returns a copy of the entries in insertion order.
func (s State) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Lines converts the selection into order line entries.
func (s State) Lines() []models.LineEntry {
	lines := make([]models.LineEntry, 0, len(s.entries))
	for _, e := range s.entries {
		lines = append(lines, models.LineEntry{MenuItemID: e.Item.ID, Quantity: e.Quantity})
	}
	return lines
}

func (s State) indexOf(itemID uuid.UUID) int {
	for i, e := range s.entries {
		if e.Item.ID == itemID {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	return State{vendorID: s.vendorID, entries: s.Entries()}
}
