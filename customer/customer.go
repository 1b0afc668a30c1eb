// Package customer manages customer records.
package customer

import (
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stevemurr/simple-pos/model"
	"github.com/stevemurr/simple-pos/storage"
)

var (
	ErrCustomerNotFound = errors.New("customer: not found")
	ErrInvalidCustomer  = errors.New("customer: invalid customer")
)

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

// Validate checks the operator-entered fields of c.
func Validate(c model.Customer) error {
	if strings.TrimSpace(c.FirstName) == "" && strings.TrimSpace(c.LastName) == "" {
		return errors.Wrap(ErrInvalidCustomer, "a first or last name is required")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return errors.Wrapf(ErrInvalidCustomer, "email %q", c.Email)
		}
	}
	if !c.CustomerType.Valid() {
		return errors.Wrapf(ErrInvalidCustomer, "customer type %q", c.CustomerType)
	}
	return nil
}

// Filter selects customers for List. Zero fields match everything.
type Filter struct {
	// Search matches first name, last name, email or phone.
	Search string
	Type   model.CustomerType
}

func (f Filter) match(c model.Customer) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.FirstName), q) &&
			!strings.Contains(strings.ToLower(c.LastName), q) &&
			!strings.Contains(strings.ToLower(c.Email), q) &&
			!strings.Contains(c.Phone, f.Search) {
			return false
		}
	}
	return f.Type == "" || c.CustomerType == f.Type
}

func (s *Service) List(f Filter) ([]model.Customer, error) {
	customers, err := s.storage.Customers()
	if err != nil {
		return nil, err
	}
	out := []model.Customer{}
	for _, c := range customers {
		if f.match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) Get(id string) (model.Customer, error) {
	customers, err := s.storage.Customers()
	if err != nil {
		return model.Customer{}, err
	}
	if i := indexOf(customers, id); i >= 0 {
		return customers[i], nil
	}
	return model.Customer{}, errors.Wrapf(ErrCustomerNotFound, "id %s", id)
}

// Create stores c under a fresh id. Loyalty points, spend and visits start
// at zero whatever c carries. An empty customer type means regular.
func (s *Service) Create(c model.Customer) (model.Customer, error) {
	if c.CustomerType == "" {
		c.CustomerType = model.CustomerRegular
	}
	if err := Validate(c); err != nil {
		return model.Customer{}, err
	}
	c.ID = model.NewID()
	c.CreatedAt = s.storage.Now()
	c.LoyaltyPoints = 0
	c.TotalSpent = 0
	c.VisitCount = 0
	c.LastVisit = nil
	err := s.storage.Update(func(doc *model.Document) error {
		doc.Customers = append(doc.Customers, c)
		return nil
	})
	if err != nil {
		return model.Customer{}, err
	}
	s.log.WithField("id", c.ID).Info("customer created")
	return c, nil
}

// Update replaces the editable fields of customer id with those of c. The
// id, createdAt and the system-managed counters are kept.
func (s *Service) Update(id string, c model.Customer) (model.Customer, error) {
	if c.CustomerType == "" {
		c.CustomerType = model.CustomerRegular
	}
	if err := Validate(c); err != nil {
		return model.Customer{}, err
	}
	err := s.storage.Update(func(doc *model.Document) error {
		i := indexOf(doc.Customers, id)
		if i < 0 {
			return errors.Wrapf(ErrCustomerNotFound, "id %s", id)
		}
		old := doc.Customers[i]
		c.ID = old.ID
		c.CreatedAt = old.CreatedAt
		c.LoyaltyPoints = old.LoyaltyPoints
		c.TotalSpent = old.TotalSpent
		c.VisitCount = old.VisitCount
		c.LastVisit = old.LastVisit
		doc.Customers[i] = c
		return nil
	})
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

// Delete removes customer id. Transactions that reference it are kept.
func (s *Service) Delete(id string) error {
	return s.storage.Update(func(doc *model.Document) error {
		i := indexOf(doc.Customers, id)
		if i < 0 {
			return errors.Wrapf(ErrCustomerNotFound, "id %s", id)
		}
		doc.Customers = append(doc.Customers[:i], doc.Customers[i+1:]...)
		return nil
	})
}

// Transactions returns the sales recorded against customer id.
func (s *Service) Transactions(id string) ([]model.Transaction, error) {
	transactions, err := s.storage.Transactions()
	if err != nil {
		return nil, err
	}
	out := []model.Transaction{}
	for _, t := range transactions {
		if t.CustomerID == id {
			out = append(out, t)
		}
	}
	return out, nil
}

type Summary struct {
	Total              int     `json:"total"`
	VIP                int     `json:"vip"`
	TotalLoyaltyPoints int     `json:"totalLoyaltyPoints"`
	AverageSpent       float64 `json:"averageSpent"`
}

func (s *Service) Summary() (Summary, error) {
	customers, err := s.storage.Customers()
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Total: len(customers)}
	spent := decimal.Zero
	for _, c := range customers {
		if c.CustomerType == model.CustomerVIP {
			sum.VIP++
		}
		sum.TotalLoyaltyPoints += c.LoyaltyPoints
		spent = spent.Add(decimal.NewFromFloat(c.TotalSpent))
	}
	if len(customers) > 0 {
		sum.AverageSpent = spent.Div(decimal.NewFromInt(int64(len(customers)))).Round(2).InexactFloat64()
	}
	return sum, nil
}

func indexOf(customers []model.Customer, id string) int {
	for i := range customers {
		if customers[i].ID == id {
			return i
		}
	}
	return -1
}
