package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stevemurr/simple-pos/customer"
	"github.com/stevemurr/simple-pos/inventory"
	"github.com/stevemurr/simple-pos/model"
)

// ---------- products ----------

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.inventory.List(inventory.Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   model.StockStatus(q.Get("status")),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) lowStock(w http.ResponseWriter, _ *http.Request) {
	products, err := h.inventory.LowStock()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) productSummary(w http.ResponseWriter, _ *http.Request) {
	all, err := h.inventory.List(inventory.Filter{})
	if err != nil {
		h.fail(w, err)
		return
	}
	low, err := h.inventory.LowStock()
	if err != nil {
		h.fail(w, err)
		return
	}
	value, err := h.inventory.InventoryValue()
	if err != nil {
		h.fail(w, err)
		return
	}
	categories, err := h.inventory.Categories()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":      len(all),
		"lowStock":   len(low),
		"value":      value,
		"categories": categories,
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.inventory.Get(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := readJSON(r, &p); err != nil {
		h.fail(w, err)
		return
	}
	created, err := h.inventory.Create(p)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := readJSON(r, &p); err != nil {
		h.fail(w, err)
		return
	}
	updated, err := h.inventory.Update(mux.Vars(r)["id"], p)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.inventory.Delete(id); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var a inventory.Adjustment
	if err := readJSON(r, &a); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.inventory.Adjust(mux.Vars(r)["id"], a)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// ---------- customers ----------

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customers, err := h.customers.List(customer.Filter{
		Search: q.Get("search"),
		Type:   model.CustomerType(q.Get("type")),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) customerSummary(w http.ResponseWriter, _ *http.Request) {
	sum, err := h.customers.Summary()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.Get(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var c model.Customer
	if err := readJSON(r, &c); err != nil {
		h.fail(w, err)
		return
	}
	created, err := h.customers.Create(c)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var c model.Customer
	if err := readJSON(r, &c); err != nil {
		h.fail(w, err)
		return
	}
	updated, err := h.customers.Update(mux.Vars(r)["id"], c)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.customers.Delete(id); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

func (h *Handler) customerTransactions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.customers.Get(id); err != nil {
		h.fail(w, err)
		return
	}
	txs, err := h.customers.Transactions(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}
