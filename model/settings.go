package model

const DefaultTaxRate = 0.08

// Settings is the store-wide configuration singleton.
type Settings struct {
	StoreName         string  `json:"storeName"`
	TaxRate           float64 `json:"taxRate"`
	Currency          string  `json:"currency"`
	ReceiptFooter     string  `json:"receiptFooter"`
	LowStockThreshold int     `json:"lowStockThreshold"`
}

func DefaultSettings() Settings {
	return Settings{
		StoreName:         "RetailPOS",
		TaxRate:           DefaultTaxRate,
		Currency:          "USD",
		ReceiptFooter:     "Thank you for your business!",
		LowStockThreshold: 10,
	}
}
