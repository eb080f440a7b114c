package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/models"
)

// OrderCreator persists an order once a payment has been authenticated.
type OrderCreator interface {
	CreateOrderFromVerifiedPayment(ctx context.Context, accountID uuid.UUID, ref models.PaymentRef,
		lines []models.LineEntry, claimedTotal models.Money, pickup time.Time) (*models.Order, error)
}

// IntentFetcher reads an intent back from the provider.
type IntentFetcher interface {
	FetchIntent(ctx context.Context, id string) (Intent, error)
}

// Confirmation is what the client relays from the payment widget.
type Confirmation struct {
	IntentID   string
	PaymentID  string
	Signature  string
	Lines      []models.LineEntry
	PickupTime time.Time
	Total      models.Money
}

type Verifier struct {
	secret  []byte
	intents IntentFetcher
	orders  OrderCreator
}

func NewVerifier(secret string, intents IntentFetcher, orders OrderCreator) *Verifier {
	return &Verifier{secret: []byte(secret), intents: intents, orders: orders}
}

// Sign returns the lowercase hex HMAC-SHA256 of "intentID|paymentID".
func Sign(secret []byte, intentID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authentic reports whether signature was produced by the provider for this
// intent and payment. The comparison runs in constant time.
func (v *Verifier) Authentic(intentID, paymentID, signature string) bool {
	expected := Sign(v.secret, intentID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Verify checks the confirmation signature and, only if it holds, asks the
// ledger to create the order. Nothing is persisted on rejection.
func (v *Verifier) Verify(ctx context.Context, accountID uuid.UUID, c Confirmation) (*models.Order, error) {
	switch {
	case c.IntentID == "":
		return nil, apperr.Invalid("intentId", "is required")
	case c.PaymentID == "":
		return nil, apperr.Invalid("paymentId", "is required")
	case c.Signature == "":
		return nil, apperr.Invalid("signature", "is required")
	}

	if !v.Authentic(c.IntentID, c.PaymentID, c.Signature) {
		logrus.WithFields(logrus.Fields{
			"intent_id":  c.IntentID,
			"account_id": accountID,
		}).Warn("payment signature rejected")
		return nil, apperr.ErrInvalidSignature
	}

	// The ledger checks the claimed total against catalog prices; this ties
	// the same total to what the provider actually charged.
	intent, err := v.intents.FetchIntent(ctx, c.IntentID)
	if err != nil {
		v.logUnfulfilled(err, accountID, c)
		return nil, fmt.Errorf("fetch intent %s: %w", c.IntentID, err)
	}
	if intent.Amount != c.Total {
		err := fmt.Errorf("%w: charged %s, declared %s", apperr.ErrChargeMismatch, intent.Amount, c.Total)
		v.logUnfulfilled(err, accountID, c)
		return nil, err
	}

	ref := models.PaymentRef{IntentID: c.IntentID, PaymentID: c.PaymentID}
	order, err := v.orders.CreateOrderFromVerifiedPayment(ctx, accountID, ref, c.Lines, c.Total, c.PickupTime)
	if err != nil {
		v.logUnfulfilled(err, accountID, c)
		return nil, fmt.Errorf("create order for intent %s: %w", c.IntentID, err)
	}
	return order, nil
}

// logUnfulfilled records an authentic payment that did not become an order.
// Rejected client input is a warning; anything else needs an operator.
func (v *Verifier) logUnfulfilled(err error, accountID uuid.UUID, c Confirmation) {
	entry := logrus.WithError(err).WithFields(logrus.Fields{
		"intent_id":  c.IntentID,
		"payment_id": c.PaymentID,
		"account_id": accountID,
	})
	if apperr.KindOf(err) == apperr.KindInternal {
		entry.Error("verified payment has no order")
		return
	}
	entry.Warn("verified payment rejected")
}
