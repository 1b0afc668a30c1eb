// Package model holds the records persisted in the point-of-sale document.
// Records carry no persistence behavior; they change only through the
// storage read-modify-write cycle.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the schema version stamped on every saved document.
const CurrentVersion = "1.0.0"

// Top-level document fields.
const (
	FieldProducts     = "products"
	FieldCustomers    = "customers"
	FieldTransactions = "transactions"
	FieldSettings     = "settings"
	FieldUsers        = "users"
	FieldLastBackup   = "lastBackup"
	FieldVersion      = "version"
)

// Document is the single persisted aggregate.
type Document struct {
	Products     []Product     `json:"products"`
	Customers    []Customer    `json:"customers"`
	Transactions []Transaction `json:"transactions"`
	Settings     Settings      `json:"settings"`
	// Users is reserved; entries are carried through untouched.
	Users      []json.RawMessage `json:"users"`
	LastBackup time.Time         `json:"lastBackup"`
	Version    string            `json:"version"`
}

// NewDocument returns an empty document with default settings.
func NewDocument(now time.Time) *Document {
	return &Document{
		Products:     []Product{},
		Customers:    []Customer{},
		Transactions: []Transaction{},
		Settings:     DefaultSettings(),
		Users:        []json.RawMessage{},
		LastBackup:   now.UTC(),
		Version:      CurrentVersion,
	}
}

// Normalize replaces nil collections with empty ones so they encode as [].
func (d *Document) Normalize() {
	if d.Products == nil {
		d.Products = []Product{}
	}
	if d.Customers == nil {
		d.Customers = []Customer{}
	}
	if d.Transactions == nil {
		d.Transactions = []Transaction{}
	}
	if d.Users == nil {
		d.Users = []json.RawMessage{}
	}
	for i := range d.Transactions {
		if d.Transactions[i].Items == nil {
			d.Transactions[i].Items = []LineItem{}
		}
	}
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}
