package model

import "time"

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentCard   PaymentMethod = "Credit Card"
	PaymentMobile PaymentMethod = "Mobile Payment"
)

// LineItem is one cart or transaction entry. ProductID is encoded as "id"
// to match the interchange format.
type LineItem struct {
	ProductID string  `json:"id"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Transaction is a completed sale. It is never modified after creation.
type Transaction struct {
	ID            string        `json:"id"`
	CustomerID    string        `json:"customerId,omitempty"`
	Items         []LineItem    `json:"items"`
	Subtotal      float64       `json:"subtotal"`
	Discount      float64       `json:"discount"`
	Tax           float64       `json:"tax"`
	Total         float64       `json:"total"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CardLast4     string        `json:"cardLast4,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	ReceiptNumber string        `json:"receiptNumber"`
}

// ItemCount sums line quantities.
func (t Transaction) ItemCount() int {
	n := 0
	for _, it := range t.Items {
		n += it.Quantity
	}
	return n
}
