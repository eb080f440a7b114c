package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusReceived  OrderStatus = "Received"
	StatusPreparing OrderStatus = "Preparing"
	StatusReady     OrderStatus = "Ready"
	StatusCompleted OrderStatus = "Completed"
)

// statusRank orders the lifecycle. Transitions may only stay put or move one
// step forward.
var statusRank = map[OrderStatus]int{
	StatusReceived:  0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusCompleted: 3,
}

func (s OrderStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to == from || to == from+1
}

func (s OrderStatus) String() string {
	return string(s)
}

// LineEntry is what a client submits: an item reference and a quantity.
type LineEntry struct {
	MenuItemID uuid.UUID `json:"menuItemId"`
	Quantity   int       `json:"quantity"`
}

// OrderLine is a persisted line. MenuItemID is a weak reference: the item may
// have been deleted since, in which case Item is nil and Removed is set.
// UnitPrice and Name are the values captured when the order was placed.
type OrderLine struct {
	MenuItemID uuid.UUID     `json:"menuItemId"`
	Quantity   int           `json:"quantity"`
	UnitPrice  Money         `json:"unitPrice"`
	Name       string        `json:"name"`
	Item       *ResolvedItem `json:"item"`
	Removed    bool          `json:"removed"`
}

// ResolvedItem is the live catalog view of a line's menu item.
type ResolvedItem struct {
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

// PaymentRef ties an order to the gateway payment that funded it.
type PaymentRef struct {
	IntentID  string `json:"intentId"`
	PaymentID string `json:"paymentId"`
}

type Order struct {
	ID         uuid.UUID   `json:"id"`
	AccountID  uuid.UUID   `json:"accountId"`
	Lines      []OrderLine `json:"items"`
	Total      Money       `json:"total"`
	Status     OrderStatus `json:"status"`
	PickupTime time.Time   `json:"pickupTime"`
	Payment    *PaymentRef `json:"payment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}
