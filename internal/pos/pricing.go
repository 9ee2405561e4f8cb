package pos

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Totals are the monetary figures of a cart.
type Totals struct {
	Subtotal       shared.Money `json:"subtotal"`
	DiscountAmount shared.Money `json:"discount_amount"`
	Total          shared.Money `json:"total"`
	Tendered       shared.Money `json:"tendered"`
	Change         shared.Money `json:"change"`
}

// Quote validates the request and prices the cart without touching storage.
// Checkout runs the same checks before opening a transaction.
func Quote(req CheckoutRequest) (Totals, error) {
	if err := validateShape(req); err != nil {
		return Totals{}, err
	}
	verr := &ValidationError{}
	var t Totals
	for _, line := range req.Lines {
		t.Subtotal += line.UnitPrice.Mul(line.Quantity)
	}
	t.DiscountAmount = discountAmount(t.Subtotal, req.Discount, verr)
	t.Total = t.Subtotal - t.DiscountAmount
	t.Tendered = req.Tendered
	if verr.orNil() == nil && t.Tendered < t.Total {
		verr.add("tendered", fmt.Sprintf("must be at least the total %s", t.Total))
	}
	if err := verr.orNil(); err != nil {
		return Totals{}, err
	}
	t.Change = t.Tendered - t.Total
	return t, nil
}

func validateShape(req CheckoutRequest) error {
	verr := &ValidationError{}
	if strings.TrimSpace(req.Reference) == "" && req.Reference != "" {
		verr.add("reference", "is required")
	}
	if err := httpx.Validate(req); err != nil {
		var verrs *httpx.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		verr.Fields = append(verr.Fields, verrs.Fields...)
	}
	return verr.orNil()
}

func discountAmount(subtotal shared.Money, d *Discount, verr *ValidationError) shared.Money {
	if d == nil {
		return 0
	}
	switch d.Type {
	case DiscountPercent:
		p, err := shared.ParsePercent(d.Value.String())
		if err != nil {
			verr.add("discount.value", "must be a number with at most two decimals")
			return 0
		}
		if !p.Valid() {
			verr.add("discount.value", "must be between 0 and 100")
			return 0
		}
		return subtotal.ApplyPercent(p)
	case DiscountFixed:
		amount, err := shared.ParseMoney(d.Value.String())
		if err != nil {
			verr.add("discount.value", "must be an amount with at most two decimals")
			return 0
		}
		if amount < 0 {
			verr.add("discount.value", "must not be negative")
			return 0
		}
		if amount > subtotal {
			return subtotal
		}
		return amount
	}
	verr.add("discount.type", "must be one of [percent fixed]")
	return 0
}

// discountValue returns the stored integer form of the discount value:
// basis points for percent and cents for fixed.
func discountValue(d *Discount) int64 {
	if d == nil {
		return 0
	}
	if d.Type == DiscountPercent {
		p, _ := shared.ParsePercent(d.Value.String())
		return int64(p)
	}
	m, _ := shared.ParseMoney(d.Value.String())
	return int64(m)
}

func discountFromStored(kind string, value int64) *Discount {
	switch DiscountType(kind) {
	case DiscountPercent:
		return &Discount{Type: DiscountPercent, Value: json.Number(shared.Percent(value).String())}
	case DiscountFixed:
		return &Discount{Type: DiscountFixed, Value: json.Number(shared.Money(value).String())}
	}
	return nil
}
