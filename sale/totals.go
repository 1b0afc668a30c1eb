package sale

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/stevemurr/simple-pos/model"
)

var (
	ErrInvalidDiscount = errors.New("sale: invalid discount")
)

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

// Discount is applied to the subtotal before tax. Amount is a percentage
// for DiscountPercentage and a currency amount for DiscountFixed.
type Discount struct {
	Amount float64      `json:"amount"`
	Kind   DiscountKind `json:"kind"`
}

// NoDiscount is the discount a fresh sale starts with.
func NoDiscount() Discount {
	return Discount{Kind: DiscountPercentage}
}

func (d Discount) Validate() error {
	switch d.Kind {
	case DiscountPercentage, DiscountFixed:
	case "":
		if d.Amount != 0 {
			return errors.Wrap(ErrInvalidDiscount, "kind is required")
		}
	default:
		return errors.Wrapf(ErrInvalidDiscount, "unknown kind %q", d.Kind)
	}
	if d.Amount < 0 {
		return errors.Wrapf(ErrInvalidDiscount, "amount %v is negative", d.Amount)
	}
	return nil
}

// Totals are the computed amounts of a sale, each rounded to cents.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Taxable  float64 `json:"taxable"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

var hundred = decimal.NewFromInt(100)

func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Compute prices lines under discount and taxRate. The discount amount is
// clamped to [0, subtotal] whatever its kind, so a percentage above 100
// discounts the whole subtotal and nothing more.
func Compute(lines []model.LineItem, d Discount, taxRate float64) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = cents(subtotal)

	amount := decimal.NewFromFloat(d.Amount)
	var discount decimal.Decimal
	if d.Kind == DiscountFixed {
		discount = amount
	} else {
		discount = subtotal.Mul(amount).Div(hundred)
	}
	discount = cents(decimal.Min(decimal.Max(discount, decimal.Zero), subtotal))

	taxable := subtotal.Sub(discount)
	tax := cents(taxable.Mul(decimal.NewFromFloat(taxRate)))
	total := taxable.Add(tax)

	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Discount: discount.InexactFloat64(),
		Taxable:  taxable.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

// Change returns tendered minus total, or ErrInsufficientTender when the
// amount tendered does not cover the total.
func Change(total, tendered float64) (float64, error) {
	t := cents(decimal.NewFromFloat(total))
	paid := cents(decimal.NewFromFloat(tendered))
	if paid.LessThan(t) {
		return 0, errors.Wrapf(ErrInsufficientTender, "tendered %s, due %s", paid.StringFixed(2), t.StringFixed(2))
	}
	return paid.Sub(t).InexactFloat64(), nil
}
