package model

import "time"

type StockStatus string

const (
	StockOut    StockStatus = "out"
	StockLow    StockStatus = "low"
	StockNormal StockStatus = "normal"
)

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"`
	Barcode     string    `json:"barcode,omitempty"`
	Price       float64   `json:"price"`
	Cost        float64   `json:"cost"`
	Category    string    `json:"category"`
	Supplier    string    `json:"supplier"`
	Stock       int       `json:"stock"`
	MinStock    int       `json:"minStock"`
	MaxStock    int       `json:"maxStock"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StockStatus classifies on-hand quantity against the product's minimum.
func (p Product) StockStatus() StockStatus {
	switch {
	case p.Stock <= 0:
		return StockOut
	case p.Stock <= p.MinStock:
		return StockLow
	default:
		return StockNormal
	}
}
