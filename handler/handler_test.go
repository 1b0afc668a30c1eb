package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/simple-pos/handler"
	"github.com/stevemurr/simple-pos/model"
	"github.com/stevemurr/simple-pos/storage"
	"github.com/stevemurr/simple-pos/store"
)

var now = time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

func setup(t *testing.T, kv store.Store, opts ...handler.Option) (*httptest.Server, *storage.Storage) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	s := storage.New(kv,
		storage.WithLogger(logger),
		storage.WithClock(func() time.Time { return now }),
	)
	opts = append([]handler.Option{handler.WithLogger(logger), handler.WithLocation(time.UTC)}, opts...)
	ts := httptest.NewServer(handler.New(s, opts...))
	t.Cleanup(ts.Close)
	return ts, s
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createProduct(t *testing.T, base string, p model.Product) model.Product {
	t.Helper()
	resp := do(t, http.MethodPost, base+"/products", p)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.Product](t, resp)
}

func coffee() model.Product {
	return model.Product{Name: "Coffee", SKU: "CB001", Price: 10, Cost: 6, Category: "Beverages", Stock: 20, MinStock: 5, MaxStock: 50}
}

func TestHealth(t *testing.T) {
	ts, _ := setup(t, store.NewMemoryStore())
	resp := do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestSettings(t *testing.T) {
	ts, _ := setup(t, store.NewMemoryStore())

	resp := do(t, http.MethodGet, ts.URL+"/settings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.DefaultSettings(), decode[model.Settings](t, resp))

	updated := model.DefaultSettings()
	updated.StoreName = "Corner Shop"
	resp = do(t, http.MethodPut, ts.URL+"/settings", updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Corner Shop", decode[model.Settings](t, resp).StoreName)

	resp = do(t, http.MethodPut, ts.URL+"/settings", map[string]any{"taxRate": 5})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodPut, ts.URL+"/settings", "{nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProductLifecycle(t *testing.T) {
	ts, _ := setup(t, store.NewMemoryStore())
	p := createProduct(t, ts.URL, coffee())

	resp := do(t, http.MethodPost, ts.URL+"/products", coffee())
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "duplicate sku")

	bad := coffee()
	bad.SKU = "X"
	bad.Price = -1
	resp = do(t, http.MethodPost, ts.URL+"/products", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/products/"+p.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CB001", decode[model.Product](t, resp).SKU)

	edit := coffee()
	edit.Price = 11
	resp = do(t, http.MethodPut, ts.URL+"/products/"+p.ID, edit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 11.0, decode[model.Product](t, resp).Price)

	resp = do(t, http.MethodGet, ts.URL+"/products?search=cb0", nil)
	assert.Len(t, decode[[]model.Product](t, resp), 1)

	resp = do(t, http.MethodDelete, ts.URL+"/products/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdjustAndLowStock(t *testing.T) {
	ts, _ := setup(t, store.NewMemoryStore())
	p := createProduct(t, ts.URL, coffee())

	resp := do(t, http.MethodPost, ts.URL+"/products/"+p.ID+"/adjust", map[string]any{"kind": "remove", "quantity": 30})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "reason is required")

	resp = do(t, http.MethodPost, ts.URL+"/products/"+p.ID+"/adjust", map[string]any{"kind": "remove", "quantity": 30, "reason": "spoiled"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[map[string]any](t, resp)
	assert.Equal(t, float64(0), res["new"])

	resp = do(t, http.MethodGet, ts.URL+"/products/low-stock", nil)
	low := decode[[]model.Product](t, resp)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ID)

	resp = do(t, http.MethodGet, ts.URL+"/products/summary", nil)
	sum := decode[map[string]any](t, resp)
	assert.Equal(t, float64(1), sum["total"])
	assert.Equal(t, float64(0), sum["value"])
}

func TestCustomers(t *testing.T) {
	ts, s := setup(t, store.NewMemoryStore())

	resp := do(t, http.MethodPost, ts.URL+"/customers", model.Customer{FirstName: "Ada", Email: "ada@example.com", LoyaltyPoints: 999})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c := decode[model.Customer](t, resp)
	assert.Equal(t, 0, c.LoyaltyPoints)
	assert.Equal(t, model.CustomerRegular, c.CustomerType)

	resp = do(t, http.MethodPost, ts.URL+"/customers", model.Customer{FirstName: "Bad", Email: "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	require.NoError(t, s.SetTransactions([]model.Transaction{{ID: "t1", CustomerID: c.ID}}))
	resp = do(t, http.MethodGet, ts.URL+"/customers/"+c.ID+"/transactions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Transaction](t, resp), 1)

	resp = do(t, http.MethodGet, ts.URL+"/customers/missing/transactions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/customers/summary", nil)
	assert.Equal(t, float64(1), decode[map[string]any](t, resp)["total"])

	resp = do(t, http.MethodDelete, ts.URL+"/customers/"+c.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQuoteAndCheckout(t *testing.T) {
	ts, s := setup(t, store.NewMemoryStore())
	a := createProduct(t, ts.URL, coffee())
	tea := coffee()
	tea.SKU, tea.Name, tea.Price = "TB002", "Tea", 5
	b := createProduct(t, ts.URL, tea)

	req := map[string]any{
		"items":    []map[string]any{{"id": a.ID, "quantity": 2}, {"id": b.ID, "quantity": 1}},
		"discount": map[string]any{"amount": 10, "kind": "percentage"},
	}
	resp := do(t, http.MethodPost, ts.URL+"/quote", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	totals := decode[map[string]float64](t, resp)
	assert.Equal(t, 24.3, totals["total"])

	req["payment"] = map[string]any{"method": "Cash", "tendered": 20}
	resp = do(t, http.MethodPost, ts.URL+"/checkout", req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	req["payment"] = map[string]any{"method": "Cash", "tendered": 30}
	resp = do(t, http.MethodPost, ts.URL+"/checkout", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decode[struct {
		Transaction model.Transaction `json:"transaction"`
		Change      float64           `json:"change"`
	}](t, resp)
	assert.Equal(t, 5.7, res.Change)

	txs, err := s.Transactions()
	require.NoError(t, err)
	require.Len(t, txs, 1)

	resp = do(t, http.MethodGet, ts.URL+"/transactions/"+txs[0].ID+"/receipt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Total: 24.30 USD")

	resp = do(t, http.MethodGet, ts.URL+"/transactions/missing/receipt", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/checkout", map[string]any{"items": []map[string]any{{"id": "ghost", "quantity": 1}}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	products, err := s.Products()
	require.NoError(t, err)
	assert.Equal(t, 20, products[0].Stock, "no cascade by default")
}

func TestCheckoutCascade(t *testing.T) {
	ts, s := setup(t, store.NewMemoryStore(), handler.WithCascade(true))
	a := createProduct(t, ts.URL, coffee())

	resp := do(t, http.MethodPost, ts.URL+"/checkout", map[string]any{
		"items":   []map[string]any{{"id": a.ID, "quantity": 3}},
		"payment": map[string]any{"method": "Mobile Payment"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	products, err := s.Products()
	require.NoError(t, err)
	assert.Equal(t, 17, products[0].Stock)
}

func TestReports(t *testing.T) {
	ts, s := setup(t, store.NewMemoryStore())
	require.NoError(t, s.SetTransactions([]model.Transaction{
		{ID: "t1", Total: 10, PaymentMethod: model.PaymentCash, Timestamp: now},
		{ID: "t2", Total: 99, PaymentMethod: model.PaymentCash, Timestamp: now.AddDate(0, -2, 0)},
	}))

	resp := do(t, http.MethodGet, ts.URL+"/reports", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rep := decode[map[string]any](t, resp)
	metrics := rep["metrics"].(map[string]any)
	assert.Equal(t, 10.0, metrics["totalRevenue"])

	resp = do(t, http.MethodGet, ts.URL+"/reports?from=2023-01-01&to=2024-12-31", nil)
	rep = decode[map[string]any](t, resp)
	assert.Equal(t, 109.0, rep["metrics"].(map[string]any)["totalRevenue"])

	resp = do(t, http.MethodGet, ts.URL+"/reports?from=yesterday", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/reports/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="pos-report-2024-01-15.json"`, resp.Header.Get("Content-Disposition"))
}

func TestDataExportImport(t *testing.T) {
	ts, s := setup(t, store.NewMemoryStore())
	createProduct(t, ts.URL, coffee())

	resp := do(t, http.MethodGet, ts.URL+"/data/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="pos-data-2024-01-15.json"`, resp.Header.Get("Content-Disposition"))
	exported, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	resp = do(t, http.MethodPost, ts.URL+"/data/import", `{"products":[],"customers":[],"transactions":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/data", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products, err := s.Products()
	require.NoError(t, err)
	assert.Empty(t, products)

	resp = do(t, http.MethodPost, ts.URL+"/data/import", string(exported))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products, err = s.Products()
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestDataBackupRestore(t *testing.T) {
	ts, s := setup(t, store.NewMemoryStore())

	resp := do(t, http.MethodPost, ts.URL+"/data/restore", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	createProduct(t, ts.URL, coffee())
	resp = do(t, http.MethodPost, ts.URL+"/data/backup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.SetProducts(nil))
	resp = do(t, http.MethodPost, ts.URL+"/data/restore", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products, err := s.Products()
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestDataInfoAndSync(t *testing.T) {
	ts, _ := setup(t, store.Limited(store.NewMemoryStore(), 4096))

	resp := do(t, http.MethodGet, ts.URL+"/data/info", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decode[storage.Info](t, resp)
	assert.Equal(t, int64(4096), info.Capacity)
	assert.Positive(t, info.Used)

	resp = do(t, http.MethodPost, ts.URL+"/data/sync", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQuotaExceeded(t *testing.T) {
	ts, _ := setup(t, store.Limited(store.NewMemoryStore(), 400))
	p := coffee()
	p.Description = strings.Repeat("x", 500)
	resp := do(t, http.MethodPost, ts.URL+"/products", p)
	assert.Equal(t, http.StatusInsufficientStorage, resp.StatusCode)
}

func TestCorruptDocumentConflict(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(storage.DataKey, []byte(`garbage`)))
	ts, _ := setup(t, kv)

	resp := do(t, http.MethodPost, ts.URL+"/products", coffee())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	ts, _ := setup(t, store.NewMemoryStore())
	do(t, http.MethodGet, ts.URL+"/products/missing", nil)

	resp := do(t, http.MethodGet, ts.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pos_http_requests_total{method="GET",path="/products/{id}",status="404"} 1`)
	assert.Contains(t, string(body), "pos_storage_used_bytes")
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := setup(t, store.NewMemoryStore())
	resp := do(t, http.MethodPatch, ts.URL+"/products", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	ts, _ := setup(t, store.NewMemoryStore(), handler.WithAllowedOrigins("http://localhost:3000"))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/products", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSDisabledByDefault(t *testing.T) {
	ts, _ := setup(t, store.NewMemoryStore())
	resp := do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
