// Package report aggregates recorded sales over a date range.
package report

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/stevemurr/simple-pos/model"
	"github.com/stevemurr/simple-pos/storage"
)

const topProductLimit = 10

// UnknownCategory labels sales of SKUs no longer in the catalogue.
const UnknownCategory = "Unknown"

// Range is an inclusive span of whole calendar days in the location of
// From. Only the dates of From and To matter.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// LastDays returns the range ending on the day of now and starting n days
// before it.
func LastDays(now time.Time, n int) Range {
	return Range{From: now.AddDate(0, 0, -n), To: now}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// bounds returns [start, end) covering every day in r.
func (r Range) bounds() (time.Time, time.Time) {
	loc := r.From.Location()
	return startOfDay(r.From, loc), startOfDay(r.To, loc).AddDate(0, 0, 1)
}

// Days is the number of calendar days in r.
func (r Range) Days() int {
	start, end := r.bounds()
	n := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// Previous is the range of equal length that ends the day before r starts.
func (r Range) Previous() Range {
	n := r.Days()
	start, end := r.bounds()
	return Range{From: start.AddDate(0, 0, -n), To: end.AddDate(0, 0, -n-1)}
}

func (r Range) Contains(t time.Time) bool {
	start, end := r.bounds()
	return !t.Before(start) && t.Before(end)
}

func (r Range) Validate() error {
	start, end := r.bounds()
	if !start.Before(end) {
		return errors.New("report: range ends before it starts")
	}
	return nil
}

type Metrics struct {
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalTransactions int     `json:"totalTransactions"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	TotalItems        int     `json:"totalItems"`
	// RevenueGrowth is the percent change against the previous range, or 0
	// when the previous range had no revenue.
	RevenueGrowth   float64 `json:"revenueGrowth"`
	UniqueCustomers int     `json:"uniqueCustomers"`
}

type DailySales struct {
	Day   string  `json:"day"`
	Sales float64 `json:"sales"`
}

type CategoryStat struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
	Quantity int     `json:"quantity"`
}

type ProductStat struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type PaymentStat struct {
	Method model.PaymentMethod `json:"method"`
	Total  float64             `json:"total"`
}

type Report struct {
	DateRange         Range          `json:"dateRange"`
	Metrics           Metrics        `json:"metrics"`
	DailySales        []DailySales   `json:"dailySales"`
	CategoryBreakdown []CategoryStat `json:"categoryBreakdown"`
	TopProducts       []ProductStat  `json:"topProducts"`
	PaymentMethods    []PaymentStat  `json:"paymentMethods"`
	GeneratedAt       time.Time      `json:"generatedAt"`
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func lineTotal(l model.LineItem) decimal.Decimal {
	return decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Build aggregates the transactions that fall in r. Products supply the
// category of each sold SKU. Categories and payment methods are listed in
// order of first sale, days in calendar order.
func Build(transactions []model.Transaction, products []model.Product, r Range, now time.Time) Report {
	loc := r.From.Location()
	categoryOf := make(map[string]string, len(products))
	for _, p := range products {
		if _, ok := categoryOf[p.SKU]; !ok {
			categoryOf[p.SKU] = p.Category
		}
	}

	revenue, previous := decimal.Zero, decimal.Zero
	count, items := 0, 0
	customers := map[string]struct{}{}

	days := map[string]decimal.Decimal{}
	cats := newOrdered[string]()
	prods := newOrdered[string]()
	methods := newOrdered[model.PaymentMethod]()
	prevRange := r.Previous()

	for _, t := range transactions {
		if prevRange.Contains(t.Timestamp) {
			previous = previous.Add(decimal.NewFromFloat(t.Total))
		}
		if !r.Contains(t.Timestamp) {
			continue
		}
		total := decimal.NewFromFloat(t.Total)
		revenue = revenue.Add(total)
		count++
		if t.CustomerID != "" {
			customers[t.CustomerID] = struct{}{}
		}
		day := t.Timestamp.In(loc).Format(time.DateOnly)
		days[day] = days[day].Add(total)
		methods.add(t.PaymentMethod, total, 0, "")

		for _, l := range t.Items {
			items += l.Quantity
			cat, ok := categoryOf[l.SKU]
			if !ok || cat == "" {
				cat = UnknownCategory
			}
			cats.add(cat, lineTotal(l), l.Quantity, "")
			prods.add(l.SKU, lineTotal(l), l.Quantity, l.Name)
		}
	}

	rep := Report{
		DateRange:         r,
		DailySales:        []DailySales{},
		CategoryBreakdown: []CategoryStat{},
		TopProducts:       []ProductStat{},
		PaymentMethods:    []PaymentStat{},
		GeneratedAt:       now.UTC(),
	}

	rep.Metrics = Metrics{
		TotalRevenue:      money(revenue),
		TotalTransactions: count,
		TotalItems:        items,
		UniqueCustomers:   len(customers),
	}
	if count > 0 {
		rep.Metrics.AverageOrderValue = money(revenue.Div(decimal.NewFromInt(int64(count))))
	}
	if previous.IsPositive() {
		rep.Metrics.RevenueGrowth = money(revenue.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)))
	}

	for day, sales := range days {
		rep.DailySales = append(rep.DailySales, DailySales{Day: day, Sales: money(sales)})
	}
	sort.Slice(rep.DailySales, func(i, j int) bool { return rep.DailySales[i].Day < rep.DailySales[j].Day })

	for _, e := range cats.entries {
		rep.CategoryBreakdown = append(rep.CategoryBreakdown, CategoryStat{Category: e.key, Revenue: money(e.amount), Quantity: e.quantity})
	}
	for _, e := range methods.entries {
		rep.PaymentMethods = append(rep.PaymentMethods, PaymentStat{Method: e.key, Total: money(e.amount)})
	}

	top := prods.entries
	sort.SliceStable(top, func(i, j int) bool { return top[i].amount.GreaterThan(top[j].amount) })
	if len(top) > topProductLimit {
		top = top[:topProductLimit]
	}
	for _, e := range top {
		rep.TopProducts = append(rep.TopProducts, ProductStat{SKU: e.key, Name: e.name, Quantity: e.quantity, Revenue: money(e.amount)})
	}
	return rep
}

// Generate builds a report over r from the live document.
func Generate(s *storage.Storage, r Range) (Report, error) {
	if err := r.Validate(); err != nil {
		return Report{}, err
	}
	doc, err := s.Load()
	if err != nil {
		return Report{}, err
	}
	return Build(doc.Transactions, doc.Products, r, s.Now()), nil
}

// FileName is the download name for a report generated at t.
func FileName(t time.Time) string {
	return "pos-report-" + t.Format(time.DateOnly) + ".json"
}

// Export encodes r pretty-printed.
func Export(r Report) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	return b, errors.Wrap(err, "encode report")
}

type entry[K comparable] struct {
	key      K
	name     string
	amount   decimal.Decimal
	quantity int
}

// ordered accumulates totals per key, remembering first-seen order.
type ordered[K comparable] struct {
	index   map[K]int
	entries []*entry[K]
}

func newOrdered[K comparable]() *ordered[K] {
	return &ordered[K]{index: map[K]int{}}
}

func (o *ordered[K]) add(key K, amount decimal.Decimal, quantity int, name string) {
	i, ok := o.index[key]
	if !ok {
		i = len(o.entries)
		o.index[key] = i
		o.entries = append(o.entries, &entry[K]{key: key, amount: decimal.Zero})
	}
	e := o.entries[i]
	e.amount = e.amount.Add(amount)
	e.quantity += quantity
	if name != "" {
		e.name = name
	}
}
