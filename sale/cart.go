// Package sale builds carts, computes totals and records completed sales.
package sale

import (
	"github.com/pkg/errors"

	"github.com/stevemurr/simple-pos/model"
)

var (
	ErrEmptyCart       = errors.New("sale: cart is empty")
	ErrInvalidQuantity = errors.New("sale: quantity must be positive")
	ErrLineNotFound    = errors.New("sale: no such cart line")
)

// Cart is an in-progress sale. The zero value is an empty cart. A Cart is
// not safe for concurrent use.
type Cart struct {
	lines []model.LineItem
}

// Add puts qty units of p in the cart, merging with an existing line for
// the same product.
func (c *Cart) Add(p model.Product, qty int) error {
	if qty <= 0 {
		return errors.Wrapf(ErrInvalidQuantity, "got %d", qty)
	}
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity += qty
			return nil
		}
	}
	c.lines = append(c.lines, model.LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		Price:     p.Price,
		Quantity:  qty,
	})
	return nil
}

// UpdateQuantity changes a line's quantity by delta. A line whose quantity
// drops to zero or below is removed.
func (c *Cart) UpdateQuantity(productID string, delta int) error {
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		if q := c.lines[i].Quantity + delta; q > 0 {
			c.lines[i].Quantity = q
		} else {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return nil
	}
	return errors.Wrapf(ErrLineNotFound, "product %s", productID)
}

func (c *Cart) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart contents in insertion order.
func (c *Cart) Lines() []model.LineItem {
	out := make([]model.LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}
