// Package inventory manages the product catalogue and stock levels.
package inventory

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stevemurr/simple-pos/model"
	"github.com/stevemurr/simple-pos/storage"
)

var (
	ErrProductNotFound = errors.New("inventory: product not found")
	ErrDuplicateSKU    = errors.New("inventory: sku already in use")
	ErrInvalidProduct  = errors.New("inventory: invalid product")
)

// Service reads and writes products through a Storage.
type Service struct {
	storage *storage.Storage
	log     logrus.FieldLogger
}

func New(s *storage.Storage, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{storage: s, log: log}
}

// Validate checks the fields an operator enters for a product.
func Validate(p model.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.Wrap(ErrInvalidProduct, "name is required")
	case strings.TrimSpace(p.SKU) == "":
		return errors.Wrap(ErrInvalidProduct, "sku is required")
	case p.Price < 0:
		return errors.Wrap(ErrInvalidProduct, "price is negative")
	case p.Cost < 0:
		return errors.Wrap(ErrInvalidProduct, "cost is negative")
	case p.Stock < 0:
		return errors.Wrap(ErrInvalidProduct, "stock is negative")
	case p.MinStock < 0:
		return errors.Wrap(ErrInvalidProduct, "minStock is negative")
	case p.MaxStock < p.MinStock:
		return errors.Wrap(ErrInvalidProduct, "maxStock is below minStock")
	}
	return nil
}

// Filter selects products for List. Zero fields match everything.
type Filter struct {
	// Search matches name, sku or barcode, case-insensitively.
	Search   string
	Category string
	// Status "low" includes out-of-stock products.
	Status model.StockStatus
}

func (f Filter) match(p model.Product) bool {
	if q := strings.ToLower(f.Search); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.SKU), q) &&
			!strings.Contains(strings.ToLower(p.Barcode), q) {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	switch f.Status {
	case model.StockLow:
		return p.Stock <= p.MinStock
	case model.StockOut:
		return p.Stock <= 0
	case model.StockNormal:
		return p.Stock > p.MinStock
	}
	return true
}

func (s *Service) List(f Filter) ([]model.Product, error) {
	products, err := s.storage.Products()
	if err != nil {
		return nil, err
	}
	out := []model.Product{}
	for _, p := range products {
		if f.match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Get(id string) (model.Product, error) {
	products, err := s.storage.Products()
	if err != nil {
		return model.Product{}, err
	}
	if i := indexOf(products, id); i >= 0 {
		return products[i], nil
	}
	return model.Product{}, errors.Wrapf(ErrProductNotFound, "id %s", id)
}

// Create stores p under a fresh id with both timestamps set to now.
func (s *Service) Create(p model.Product) (model.Product, error) {
	if err := Validate(p); err != nil {
		return model.Product{}, err
	}
	err := s.storage.Update(func(doc *model.Document) error {
		if err := checkSKU(doc.Products, p.SKU, ""); err != nil {
			return err
		}
		now := s.storage.Now()
		p.ID = model.NewID()
		p.CreatedAt = now
		p.UpdatedAt = now
		doc.Products = append(doc.Products, p)
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	s.log.WithFields(logrus.Fields{"id": p.ID, "sku": p.SKU}).Info("product created")
	return p, nil
}

// Update replaces the product with id by p. The id and createdAt of the
// stored product are kept and updatedAt advances.
func (s *Service) Update(id string, p model.Product) (model.Product, error) {
	if err := Validate(p); err != nil {
		return model.Product{}, err
	}
	err := s.storage.Update(func(doc *model.Document) error {
		i := indexOf(doc.Products, id)
		if i < 0 {
			return errors.Wrapf(ErrProductNotFound, "id %s", id)
		}
		if err := checkSKU(doc.Products, p.SKU, id); err != nil {
			return err
		}
		p.ID = id
		p.CreatedAt = doc.Products[i].CreatedAt
		p.UpdatedAt = s.storage.Now()
		doc.Products[i] = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (s *Service) Delete(id string) error {
	return s.storage.Update(func(doc *model.Document) error {
		i := indexOf(doc.Products, id)
		if i < 0 {
			return errors.Wrapf(ErrProductNotFound, "id %s", id)
		}
		doc.Products = append(doc.Products[:i], doc.Products[i+1:]...)
		return nil
	})
}

// LowStock returns products at or below their minimum stock.
func (s *Service) LowStock() ([]model.Product, error) {
	return s.List(Filter{Status: model.StockLow})
}

// Categories returns the distinct product categories, sorted.
func (s *Service) Categories() ([]string, error) {
	products, err := s.storage.Products()
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

// InventoryValue is the sum of stock times cost over all products.
func (s *Service) InventoryValue() (float64, error) {
	products, err := s.storage.Products()
	if err != nil {
		return 0, err
	}
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(decimal.NewFromFloat(p.Cost).Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	return total.Round(2).InexactFloat64(), nil
}

func indexOf(products []model.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// checkSKU fails if another product than except already uses sku.
func checkSKU(products []model.Product, sku, except string) error {
	for _, p := range products {
		if p.ID != except && strings.EqualFold(p.SKU, sku) {
			return errors.Wrapf(ErrDuplicateSKU, "%s", sku)
		}
	}
	return nil
}
