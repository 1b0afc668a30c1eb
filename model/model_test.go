package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/simple-pos/model"
)

func TestStockStatus(t *testing.T) {
	cases := []struct {
		stock, min int
		want       model.StockStatus
	}{
		{0, 10, model.StockOut},
		{5, 10, model.StockLow},
		{10, 10, model.StockLow},
		{11, 10, model.StockNormal},
		{1, 0, model.StockNormal},
	}
	for _, c := range cases {
		p := model.Product{Stock: c.stock, MinStock: c.min}
		assert.Equal(t, c.want, p.StockStatus(), "stock=%d min=%d", c.stock, c.min)
	}
}

func TestNewDocument(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
	doc := model.NewDocument(now)

	assert.Empty(t, doc.Products)
	assert.NotNil(t, doc.Products)
	assert.Equal(t, model.CurrentVersion, doc.Version)
	assert.Equal(t, time.UTC, doc.LastBackup.Location())
	assert.Equal(t, 0.08, doc.Settings.TaxRate)
	assert.Equal(t, "RetailPOS", doc.Settings.StoreName)
	assert.Equal(t, 10, doc.Settings.LowStockThreshold)
}

func TestNormalize(t *testing.T) {
	doc := &model.Document{Transactions: []model.Transaction{{ID: "t1"}}}
	doc.Normalize()

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"products":[]`)
	assert.Contains(t, string(b), `"users":[]`)
	assert.Contains(t, string(b), `"items":[]`)
}

func TestTransactionEncoding(t *testing.T) {
	ts := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	tx := model.Transaction{
		ID:            "t1",
		Items:         []model.LineItem{{ProductID: "p1", Name: "Tea", SKU: "TB002", Price: 8.5, Quantity: 2}},
		Subtotal:      17,
		Tax:           1.36,
		Total:         18.36,
		PaymentMethod: model.PaymentCard,
		CardLast4:     "4242",
		Timestamp:     ts,
		ReceiptNumber: "RCP-000123",
	}
	b, err := json.Marshal(tx)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "2024-01-15T14:30:00Z", m["timestamp"])
	assert.Equal(t, "Credit Card", m["paymentMethod"])
	assert.NotContains(t, m, "customerId")
	item := m["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "p1", item["id"])

	var back model.Transaction
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Timestamp.Equal(ts))
	assert.Equal(t, 2, back.ItemCount())
}

func TestCustomerHelpers(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", model.Customer{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", model.Customer{FirstName: "Ada"}.FullName())
	assert.True(t, model.CustomerWholesale.Valid())
	assert.False(t, model.CustomerType("gold").Valid())
}

func TestNewIDIsUnique(t *testing.T) {
	assert.NotEqual(t, model.NewID(), model.NewID())
}
