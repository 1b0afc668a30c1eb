package model

import "time"

type CustomerType string

const (
	CustomerRegular   CustomerType = "regular"
	CustomerVIP       CustomerType = "vip"
	CustomerWholesale CustomerType = "wholesale"
)

// Valid reports whether t is one of the known customer types.
func (t CustomerType) Valid() bool {
	switch t {
	case CustomerRegular, CustomerVIP, CustomerWholesale:
		return true
	}
	return false
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// Customer is a customer record. LoyaltyPoints, TotalSpent, VisitCount and
// LastVisit are system managed and only change as a side effect of sales.
type Customer struct {
	ID            string       `json:"id"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone"`
	DateOfBirth   string       `json:"dateOfBirth,omitempty"`
	Address       Address      `json:"address"`
	LoyaltyPoints int          `json:"loyaltyPoints"`
	TotalSpent    float64      `json:"totalSpent"`
	VisitCount    int          `json:"visitCount"`
	CustomerType  CustomerType `json:"customerType"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	LastVisit     *time.Time   `json:"lastVisit,omitempty"`
}

func (c Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
