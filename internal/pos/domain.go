package pos

import (
	"encoding/json"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// DiscountType enumerates supported discounts.
type DiscountType string

const (
	// DiscountPercent takes a percentage of the subtotal.
	DiscountPercent DiscountType = "percent"
	// DiscountFixed takes a fixed amount, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Discount as submitted by the till. Value is a percentage for percent
// discounts and an amount for fixed ones.
type Discount struct {
	Type  DiscountType `json:"type" validate:"required,oneof=percent fixed"`
	Value json.Number  `json:"value" validate:"required"`
}

// CartLine is one line of the cart with the price captured when it was added.
type CartLine struct {
	ProductID int64        `json:"product_id" validate:"gt=0"`
	Quantity  int64        `json:"quantity" validate:"gt=0,lte=100000"`
	UnitPrice shared.Money `json:"unit_price" validate:"gte=0,lte=100000000000"`
}

// CheckoutRequest is the input of Checkout.
type CheckoutRequest struct {
	Reference string       `json:"reference" validate:"required,max=64"`
	Lines     []CartLine   `json:"lines" validate:"required,min=1,max=200,dive"`
	Discount  *Discount    `json:"discount,omitempty" validate:"omitempty"`
	Tendered  shared.Money `json:"tendered" validate:"gte=0"`
	Note      string       `json:"note,omitempty" validate:"max=500"`
	Cashier   string       `json:"-"`
}

// Sale is a committed transaction header. Sales are never updated.
type Sale struct {
	ID             int64        `json:"id"`
	Reference      string       `json:"reference"`
	Subtotal       shared.Money `json:"subtotal"`
	Discount       *Discount    `json:"discount,omitempty"`
	DiscountAmount shared.Money `json:"discount_amount"`
	Total          shared.Money `json:"total"`
	Tendered       shared.Money `json:"tendered"`
	Change         shared.Money `json:"change"`
	Note           string       `json:"note,omitempty"`
	Cashier        string       `json:"cashier"`
	ItemCount      int64        `json:"item_count"`
	CreatedAt      time.Time    `json:"created_at"`
	Lines          []SaleLine   `json:"lines,omitempty"`
}

// SaleLine is one committed line of a sale.
type SaleLine struct {
	ID          int64        `json:"id"`
	SaleID      int64        `json:"sale_id"`
	ProductID   int64        `json:"product_id"`
	ProductName string       `json:"product_name"`
	Unit        string       `json:"unit,omitempty"`
	Quantity    int64        `json:"quantity"`
	UnitPrice   shared.Money `json:"unit_price"`
	LineTotal   shared.Money `json:"line_total"`
}

// CheckoutResult is returned once the sale has committed.
type CheckoutResult struct {
	SaleID         int64        `json:"sale_id"`
	Reference      string       `json:"reference"`
	Subtotal       shared.Money `json:"subtotal"`
	DiscountAmount shared.Money `json:"discount_amount"`
	Total          shared.Money `json:"total"`
	Tendered       shared.Money `json:"tendered"`
	Change         shared.Money `json:"change"`
	CreatedAt      time.Time    `json:"created_at"`
	Lines          []SaleLine   `json:"lines"`
}

// SaleFilter narrows sale listings. From and To are inclusive.
type SaleFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

func resultFromSale(s Sale) CheckoutResult {
	return CheckoutResult{
		SaleID:         s.ID,
		Reference:      s.Reference,
		Subtotal:       s.Subtotal,
		DiscountAmount: s.DiscountAmount,
		Total:          s.Total,
		Tendered:       s.Tendered,
		Change:         s.Change,
		CreatedAt:      s.CreatedAt,
		Lines:          s.Lines,
	}
}
