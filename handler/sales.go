package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stevemurr/simple-pos/report"
	"github.com/stevemurr/simple-pos/sale"
)

var (
	errTransactionNotFound = errors.New("transaction not found")
	errBadQuery            = errors.New("invalid query")
)

type cartLine struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"quantity"`
}

type saleRequest struct {
	Items      []cartLine    `json:"items"`
	Discount   sale.Discount `json:"discount"`
	Payment    sale.Payment  `json:"payment"`
	CustomerID string        `json:"customerId"`
}

// cartFor prices the requested lines from the catalogue.
func (h *Handler) cartFor(lines []cartLine) (*sale.Cart, error) {
	cart := &sale.Cart{}
	for _, l := range lines {
		p, err := h.inventory.Get(l.ProductID)
		if err != nil {
			return nil, err
		}
		if err := cart.Add(p, l.Quantity); err != nil {
			return nil, err
		}
	}
	return cart, nil
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := readJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	cart, err := h.cartFor(req.Items)
	if err != nil {
		h.fail(w, err)
		return
	}
	totals, err := h.checkout.Quote(cart, req.Discount)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, totals)
}

func (h *Handler) completeSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := readJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	cart, err := h.cartFor(req.Items)
	if err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.checkout.Complete(r.Context(), cart, &req.Discount, req.Payment, req.CustomerID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.metrics.sales.WithLabelValues(string(res.Transaction.PaymentMethod)).Inc()
	h.writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) listTransactions(w http.ResponseWriter, _ *http.Request) {
	txs, err := h.storage.Transactions()
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	doc, err := h.storage.Load()
	if err != nil {
		h.fail(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	for _, tx := range doc.Transactions {
		if tx.ID != id {
			continue
		}
		text, err := sale.RenderReceipt(tx, doc.Settings)
		if err != nil {
			h.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, text); err != nil {
			h.log.WithError(err).Error("write receipt")
		}
		return
	}
	h.fail(w, errors.Wrapf(errTransactionNotFound, "id %s", id))
}

// ---------- reports ----------

// reportRange reads from and to as YYYY-MM-DD, defaulting to the last 30
// days.
func (h *Handler) reportRange(r *http.Request) (report.Range, error) {
	rng := report.LastDays(h.storage.Now().In(h.loc), 30)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, h.loc)
		if err != nil {
			return rng, errors.Wrapf(errBadQuery, "from %q", v)
		}
		rng.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, h.loc)
		if err != nil {
			return rng, errors.Wrapf(errBadQuery, "to %q", v)
		}
		rng.To = t
	}
	if err := rng.Validate(); err != nil {
		return rng, errors.Wrap(errBadQuery, err.Error())
	}
	return rng, nil
}

func (h *Handler) buildReport(r *http.Request) (report.Report, error) {
	rng, err := h.reportRange(r)
	if err != nil {
		return report.Report{}, err
	}
	return report.Generate(h.storage, rng)
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.buildReport(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.buildReport(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	b, err := report.Export(rep)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.attachment(w, report.FileName(h.storage.Now()), b)
}

func (h *Handler) attachment(w http.ResponseWriter, name string, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		h.log.WithError(err).Error("write attachment")
	}
}
