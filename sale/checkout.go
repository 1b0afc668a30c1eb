package sale

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stevemurr/simple-pos/model"
	"github.com/stevemurr/simple-pos/storage"
)

var (
	ErrInsufficientTender   = errors.New("sale: insufficient cash tendered")
	ErrMissingCard          = errors.New("sale: card number is required")
	ErrUnknownPaymentMethod = errors.New("sale: unknown payment method")
	ErrUnknownCustomer      = errors.New("sale: unknown customer")
)

// Payment is the tender offered at checkout. CardNumber is never stored;
// only its last four characters are kept on the transaction.
type Payment struct {
	Method     model.PaymentMethod `json:"method"`
	Tendered   float64             `json:"tendered,omitempty"`
	CardNumber string              `json:"cardNumber,omitempty"`
}

// Result is a completed sale.
type Result struct {
	Transaction model.Transaction `json:"transaction"`
	Change      float64           `json:"change"`
}

// Checkout completes sales against a Storage.
type Checkout struct {
	storage *storage.Storage
	log     logrus.FieldLogger
	cascade bool
}

type CheckoutOption func(*Checkout)

func WithLogger(l logrus.FieldLogger) CheckoutOption {
	return func(c *Checkout) { c.log = l }
}

// WithCascade makes a completed sale also decrement product stock and
// credit the customer's visits, spend and loyalty points.
func WithCascade(on bool) CheckoutOption {
	return func(c *Checkout) { c.cascade = on }
}

func NewCheckout(s *storage.Storage, opts ...CheckoutOption) *Checkout {
	c := &Checkout{storage: s, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quote computes the totals of cart under the configured tax rate without
// recording anything.
func (c *Checkout) Quote(cart *Cart, d Discount) (Totals, error) {
	if err := d.Validate(); err != nil {
		return Totals{}, err
	}
	settings, err := c.storage.Settings()
	if err != nil {
		return Totals{}, err
	}
	return Compute(cart.Lines(), d, settings.TaxRate), nil
}

// Complete records the sale in cart as a transaction. On success the cart
// is cleared and *d is reset to NoDiscount. On any error nothing is
// recorded and neither cart nor discount is touched.
func (c *Checkout) Complete(ctx context.Context, cart *Cart, d *Discount, p Payment, customerID string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	discount := NoDiscount()
	if d != nil {
		discount = *d
	}
	if err := discount.Validate(); err != nil {
		return nil, err
	}

	var res Result
	err := c.storage.Update(func(doc *model.Document) error {
		lines := cart.Lines()
		totals := Compute(lines, discount, doc.Settings.TaxRate)

		change, last4, err := settle(p, totals.Total)
		if err != nil {
			return err
		}

		customer := -1
		if customerID != "" {
			customer = indexOfCustomer(doc.Customers, customerID)
			if customer < 0 {
				return errors.Wrapf(ErrUnknownCustomer, "id %s", customerID)
			}
		}

		now := c.storage.Now()
		tx := model.Transaction{
			ID:            model.NewID(),
			CustomerID:    customerID,
			Items:         lines,
			Subtotal:      totals.Subtotal,
			Discount:      totals.Discount,
			Tax:           totals.Tax,
			Total:         totals.Total,
			PaymentMethod: p.Method,
			CardLast4:     last4,
			Timestamp:     now,
			ReceiptNumber: receiptNumber(now, doc.Transactions),
		}
		doc.Transactions = append(doc.Transactions, tx)

		if c.cascade {
			applyStock(doc.Products, lines, now)
			if customer >= 0 {
				credit(&doc.Customers[customer], tx.Total, now)
			}
		}

		res = Result{Transaction: tx, Change: change}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cart.Clear()
	if d != nil {
		*d = NoDiscount()
	}
	c.log.WithFields(logrus.Fields{
		"receipt": res.Transaction.ReceiptNumber,
		"total":   res.Transaction.Total,
		"method":  res.Transaction.PaymentMethod,
	}).Info("sale completed")
	return &res, nil
}

// settle validates the payment and returns the change due and the card
// digits to keep.
func settle(p Payment, total float64) (float64, string, error) {
	switch p.Method {
	case model.PaymentCash:
		change, err := Change(total, p.Tendered)
		return change, "", err
	case model.PaymentCard:
		card := strings.TrimSpace(p.CardNumber)
		if card == "" {
			return 0, "", ErrMissingCard
		}
		if len(card) > 4 {
			card = card[len(card)-4:]
		}
		return 0, card, nil
	case model.PaymentMobile:
		return 0, "", nil
	default:
		return 0, "", errors.Wrapf(ErrUnknownPaymentMethod, "%q", p.Method)
	}
}

// receiptNumber derives RCP-nnnnnn from the last six digits of the clock in
// milliseconds, stepping forward past numbers already issued.
func receiptNumber(now time.Time, existing []model.Transaction) string {
	taken := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		taken[t.ReceiptNumber] = struct{}{}
	}
	n := now.UnixMilli() % 1000000
	for i := 0; i < 1000000; i++ {
		r := fmt.Sprintf("RCP-%06d", (n+int64(i))%1000000)
		if _, ok := taken[r]; !ok {
			return r
		}
	}
	return fmt.Sprintf("RCP-%06d", n)
}

func indexOfCustomer(customers []model.Customer, id string) int {
	for i := range customers {
		if customers[i].ID == id {
			return i
		}
	}
	return -1
}

func applyStock(products []model.Product, lines []model.LineItem, now time.Time) {
	for _, l := range lines {
		for i := range products {
			if products[i].ID != l.ProductID {
				continue
			}
			products[i].Stock -= l.Quantity
			if products[i].Stock < 0 {
				products[i].Stock = 0
			}
			products[i].UpdatedAt = now
		}
	}
}

func credit(c *model.Customer, total float64, now time.Time) {
	c.VisitCount++
	c.TotalSpent = decimal.NewFromFloat(c.TotalSpent).Add(decimal.NewFromFloat(total)).Round(2).InexactFloat64()
	c.LoyaltyPoints += int(math.Floor(total))
	c.LastVisit = &now
}
