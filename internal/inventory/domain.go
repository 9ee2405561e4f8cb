package inventory

import (
	"errors"
	"time"
)

// Reason enumerates why stock changed.
type Reason string

const (
	// ReasonSale is written only by checkout.
	ReasonSale Reason = "sale"
	// ReasonPurchase records goods received.
	ReasonPurchase Reason = "purchase"
	// ReasonInitial records opening stock of a new product.
	ReasonInitial Reason = "initial"
	// ReasonCorrection records a manual count correction in either direction.
	ReasonCorrection Reason = "correction"
	// ReasonDamage records written-off goods.
	ReasonDamage Reason = "damage"
	// ReasonReturn records goods returned to shelf.
	ReasonReturn Reason = "return"
)

// ParseReason validates a reason code.
func ParseReason(s string) (Reason, error) {
	switch r := Reason(s); r {
	case ReasonSale, ReasonPurchase, ReasonInitial, ReasonCorrection, ReasonDamage, ReasonReturn:
		return r, nil
	}
	return "", ErrInvalidReason
}

// checkDirection enforces the sign each manual reason allows.
func (r Reason) checkDirection(delta int64) error {
	switch r {
	case ReasonPurchase, ReasonInitial, ReasonReturn:
		if delta < 0 {
			return ErrWrongDirection
		}
	case ReasonDamage, ReasonSale:
		if delta > 0 {
			return ErrWrongDirection
		}
	}
	return nil
}

// Movement is an immutable ledger entry for one product.
type Movement struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	Delta        int64     `json:"delta"`
	Reason       Reason    `json:"reason"`
	SaleID       int64     `json:"sale_id,omitempty"`
	Note         string    `json:"note,omitempty"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// StockLevel is the locked view of a product row inside a transaction.
type StockLevel struct {
	ProductID int64
	Name      string
	Unit      string
	Stock     int64
	MinStock  int64
	Active    bool
}

// AdjustmentInput describes a manual stock change.
type AdjustmentInput struct {
	ProductID      int64
	Delta          int64
	Reason         Reason
	Note           string
	Actor          string
	IdempotencyKey string
}

// MovementFilter narrows ledger listings.
type MovementFilter struct {
	ProductID int64
	Reason    Reason
	From      time.Time
	To        time.Time
	Limit     int
}

// Reconciliation compares a product's stock column with its ledger.
type Reconciliation struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	CurrentStock int64  `json:"current_stock"`
	LedgerSum    int64  `json:"ledger_sum"`
	Movements    int64  `json:"movements"`
}

// Drift is current stock minus what the ledger explains.
func (r Reconciliation) Drift() int64 {
	return r.CurrentStock - r.LedgerSum
}

// Balanced reports whether the ledger explains the stock exactly.
func (r Reconciliation) Balanced() bool {
	return r.Drift() == 0
}

var (
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")
	// ErrInvalidReason indicates an unknown or reserved reason code.
	ErrInvalidReason = errors.New("inventory: invalid reason")
	// ErrWrongDirection indicates the delta sign does not match the reason.
	ErrWrongDirection = errors.New("inventory: quantity sign does not match reason")
	// ErrInvalidRange indicates a date range whose end precedes its start.
	ErrInvalidRange = errors.New("inventory: range end before start")
	// ErrProductNotFound indicates the product row does not exist.
	ErrProductNotFound = errors.New("inventory: product not found")
)
