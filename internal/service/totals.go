package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

// moneyTolerance is the largest accepted gap between a client-supplied
// amount and the server's own computation.
var moneyTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// Totals are the server-side amounts of a cart, rounded to cents.
type Totals struct {
	LineTotals []decimal.Decimal
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	VAT        decimal.Decimal
	Total      decimal.Decimal
	Change     decimal.Decimal
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func cents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// within reports whether got is at most moneyTolerance away from want.
func within(got float64, want decimal.Decimal) bool {
	return dec(got).Sub(want).Abs().LessThanOrEqual(moneyTolerance)
}

func mismatch(field string, got float64, want decimal.Decimal) error {
	return repository.Invalid(field, "expected %s, got %s", want.StringFixed(2), dec(got).StringFixed(2))
}

// ComputeTotals recomputes every amount of req from the catalog prices in
// catalog (indexed like req.Items) and checks the client's figures against
// them.  The first disagreement is returned as a validation error naming
// the field.
func ComputeTotals(req CommitSaleRequest, catalog []model.Product) (Totals, error) {
	if len(catalog) != len(req.Items) {
		return Totals{}, fmt.Errorf("catalog has %d products for %d lines", len(catalog), len(req.Items))
	}
	var t Totals
	t.Subtotal = decimal.Zero
	for i, line := range req.Items {
		price := dec(catalog[i].Price)
		if !within(line.UnitPrice, price) {
			return Totals{}, mismatch(fmt.Sprintf("items[%d].unit_price", i), line.UnitPrice, price)
		}
		lt := cents(price.Mul(dec(line.Quantity)))
		if !within(line.TotalPrice, lt) {
			return Totals{}, mismatch(fmt.Sprintf("items[%d].total_price", i), line.TotalPrice, lt)
		}
		t.LineTotals = append(t.LineTotals, lt)
		t.Subtotal = t.Subtotal.Add(lt)
	}
	if !within(req.Subtotal, t.Subtotal) {
		return Totals{}, mismatch("subtotal", req.Subtotal, t.Subtotal)
	}

	switch req.DiscountType {
	case model.DiscountPercentage:
		if req.DiscountValue == nil {
			return Totals{}, repository.Invalid("discount_value", "is required for percentage discounts")
		}
		v := dec(*req.DiscountValue)
		if v.IsNegative() || v.GreaterThan(hundred) {
			return Totals{}, repository.Invalid("discount_value", "must be between 0 and 100")
		}
		t.Discount = cents(t.Subtotal.Mul(v).Div(hundred))
		if !within(req.DiscountAmount, t.Discount) {
			return Totals{}, mismatch("discount_amount", req.DiscountAmount, t.Discount)
		}
	default:
		d := cents(dec(req.DiscountAmount))
		if d.IsNegative() {
			return Totals{}, repository.Invalid("discount_amount", "must not be negative")
		}
		if d.GreaterThan(t.Subtotal) {
			return Totals{}, repository.Invalid("discount_amount", "must not exceed the subtotal %s", t.Subtotal.StringFixed(2))
		}
		t.Discount = d
	}

	vatPct := dec(req.VATPercentage)
	if vatPct.IsNegative() || vatPct.GreaterThan(hundred) {
		return Totals{}, repository.Invalid("vat_percentage", "must be between 0 and 100")
	}
	taxable := t.Subtotal.Sub(t.Discount)
	t.VAT = cents(taxable.Mul(vatPct).Div(hundred))
	if !within(req.VATAmount, t.VAT) {
		return Totals{}, mismatch("vat_amount", req.VATAmount, t.VAT)
	}
	t.Total = taxable.Add(t.VAT)
	if !within(req.Total, t.Total) {
		return Totals{}, mismatch("total", req.Total, t.Total)
	}

	pay := dec(req.PaymentAmount)
	if pay.IsNegative() {
		return Totals{}, repository.Invalid("payment_amount", "must not be negative")
	}
	if req.PaymentMethod != model.PayAfterDelivery && pay.Add(moneyTolerance).LessThan(t.Total) {
		return Totals{}, repository.Invalid("payment_amount", "must cover the total %s", t.Total.StringFixed(2))
	}
	t.Change = decimal.Max(decimal.Zero, cents(pay.Sub(t.Total)))
	if !within(req.ChangeAmount, t.Change) {
		return Totals{}, mismatch("change_amount", req.ChangeAmount, t.Change)
	}
	return t, nil
}
