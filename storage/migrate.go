package storage

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stevemurr/simple-pos/model"
	"github.com/stevemurr/simple-pos/schema"
)

// Validate checks that raw is a JSON object holding products, customers,
// transactions and settings. Entity contents are not inspected.
func Validate(raw []byte) error {
	if err := schema.ValidateJSON(schema.DocumentSchema, raw); err != nil {
		return errors.Wrap(ErrInvalidDocument, err.Error())
	}
	return nil
}

// Migrate upgrades a document written under any schema version to the
// current one and writes the result as the live document. There are no
// intermediate steps: collections are carried over as they are and the
// stored settings are merged over the current defaults, so settings added
// since the old version keep their default values.
func (s *Storage) Migrate(raw []byte) (*model.Document, error) {
	fields, err := splitDocument(raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDocument, err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.migrate(fields)
}

// migrate returns a nil document if the old fields cannot be decoded, and
// the migrated document with the error if only the write failed.
func (s *Storage) migrate(old map[string]json.RawMessage) (*model.Document, error) {
	doc, err := s.fromFields(old)
	if err != nil {
		s.log.WithError(err).Error("stored document could not be migrated")
		return nil, errors.Wrap(ErrCorruptDocument, err.Error())
	}
	if err := s.save(doc); err != nil {
		return doc, err
	}
	s.state = Migrated
	s.log.WithFields(logrus.Fields{
		"from": versionOf(old),
		"to":   model.CurrentVersion,
	}).Info("migrated stored document")
	return doc, nil
}

// fromFields builds a fresh default document and copies the known fields
// of old over it.
func (s *Storage) fromFields(old map[string]json.RawMessage) (*model.Document, error) {
	doc := model.NewDocument(s.Now())

	if raw, ok := present(old, model.FieldProducts); ok {
		var v []model.Product
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, model.FieldProducts)
		}
		doc.Products = v
	}
	if raw, ok := present(old, model.FieldCustomers); ok {
		var v []model.Customer
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, model.FieldCustomers)
		}
		doc.Customers = v
	}
	if raw, ok := present(old, model.FieldTransactions); ok {
		var v []model.Transaction
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, model.FieldTransactions)
		}
		doc.Transactions = v
	}
	if raw, ok := present(old, model.FieldUsers); ok {
		var v []json.RawMessage
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, model.FieldUsers)
		}
		doc.Users = v
	}
	if raw, ok := present(old, model.FieldSettings); ok {
		// Decoding over the defaults only touches keys present in raw.
		merged := doc.Settings
		if err := json.Unmarshal(raw, &merged); err != nil {
			return nil, errors.Wrap(err, model.FieldSettings)
		}
		doc.Settings = merged
	}

	doc.Normalize()
	return doc, nil
}

// splitDocument decodes the top level of a stored document.
func splitDocument(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("document is null")
	}
	return fields, nil
}

func needsMigration(fields map[string]json.RawMessage) bool {
	if versionOf(fields) != model.CurrentVersion {
		return true
	}
	for _, key := range schema.DocumentSchema.Required {
		if _, ok := present(fields, key); !ok {
			return true
		}
	}
	return false
}

func versionOf(fields map[string]json.RawMessage) string {
	var v string
	if raw, ok := fields[model.FieldVersion]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}
