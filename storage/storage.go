// Package storage owns the point-of-sale document: one serialized aggregate
// of every collection kept under a single key, plus a backup slot.
//
// Every mutation is a read-modify-write of the whole document. A Storage
// serializes those cycles internally, but two processes writing the same
// backing store still race with last-write-wins.
package storage

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stevemurr/simple-pos/model"
	"github.com/stevemurr/simple-pos/schema"
	"github.com/stevemurr/simple-pos/store"
)

// Slot keys in the backing store.
const (
	DataKey   = "pos_data"
	BackupKey = "pos_backup"
)

var (
	// ErrInvalidDocument means bytes offered for import or restore did not
	// parse or lacked a required top-level key.
	ErrInvalidDocument = errors.New("storage: invalid data structure")

	// ErrNoBackup means a restore found nothing in the backup slot.
	ErrNoBackup = errors.New("storage: no backup data found")

	// ErrUnknownField is returned by GetField and SetField for keys that are
	// not addressable top-level fields.
	ErrUnknownField = errors.New("storage: unknown field")

	// ErrCorruptDocument means the stored document could not be decoded.
	// Load still returns a default document alongside it.
	ErrCorruptDocument = errors.New("storage: stored document is unreadable")
)

// State describes the outcome of the most recent load.
type State int

const (
	Uninitialized State = iota
	Defaulted
	Loaded
	Migrated
)

func (s State) String() string {
	switch s {
	case Defaulted:
		return "defaulted"
	case Loaded:
		return "loaded"
	case Migrated:
		return "migrated"
	default:
		return "uninitialized"
	}
}

// Storage is the persistence service. Construct one per process with New.
type Storage struct {
	mu       sync.Mutex
	kv       store.Store
	log      logrus.FieldLogger
	now      func() time.Time
	capacity int64
	state    State
}

type Option func(*Storage)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Storage) { s.log = l }
}

// WithClock replaces time.Now for timestamps written by the service.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

// WithCapacity sets the ceiling reported by StorageInfo. By default the
// ceiling of a store.LimitedStore is used, or store.DefaultCapacity.
func WithCapacity(n int64) Option {
	return func(s *Storage) { s.capacity = n }
}

func New(kv store.Store, opts ...Option) *Storage {
	s := &Storage{
		kv:       kv,
		log:      logrus.StandardLogger(),
		now:      time.Now,
		capacity: store.DefaultCapacity,
	}
	if l, ok := kv.(interface{ Capacity() int64 }); ok {
		s.capacity = l.Capacity()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time in UTC.
func (s *Storage) Now() time.Time {
	return s.now().UTC()
}

func (s *Storage) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load returns the live document. With nothing stored, a default document
// is persisted and returned. A document written under another schema
// version is migrated and written back first. If the stored bytes cannot
// be decoded, Load returns a default document together with
// ErrCorruptDocument and leaves the stored bytes alone.
func (s *Storage) Load() (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Storage) load() (*model.Document, error) {
	raw, err := s.kv.Get(DataKey)
	if errors.Is(err, store.ErrNotFound) {
		doc := model.NewDocument(s.Now())
		if err := s.save(doc); err != nil {
			return doc, err
		}
		s.state = Defaulted
		return doc, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read document")
	}

	fields, err := splitDocument(raw)
	if err != nil {
		s.log.WithError(err).Error("stored document is unreadable, falling back to defaults")
		return model.NewDocument(s.Now()), errors.Wrap(ErrCorruptDocument, err.Error())
	}

	if needsMigration(fields) {
		doc, err := s.migrate(fields)
		if doc == nil {
			doc = model.NewDocument(s.Now())
		}
		return doc, err
	}

	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.WithError(err).Error("stored document is unreadable, falling back to defaults")
		return model.NewDocument(s.Now()), errors.Wrap(ErrCorruptDocument, err.Error())
	}
	doc.Normalize()
	s.state = Loaded
	return &doc, nil
}

// Save stamps lastBackup and version on doc and writes it in a single call.
// A write rejected by the backing store's ceiling surfaces as
// store.ErrQuotaExceeded; callers should suggest exporting or clearing data.
func (s *Storage) Save(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

func (s *Storage) save(doc *model.Document) error {
	doc.LastBackup = s.Now()
	doc.Version = model.CurrentVersion
	doc.Normalize()

	b, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	if err := s.kv.Set(DataKey, b); err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			s.log.WithField("bytes", len(b)).Warn("document save rejected, storage may be full")
		}
		return errors.Wrap(err, "failed to save data")
	}
	s.state = Loaded
	return nil
}

// Update runs fn against the live document and saves the result. Nothing
// is written if fn returns an error.
func (s *Storage) Update(fn func(doc *model.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *Storage) Products() ([]model.Product, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Products, nil
}

func (s *Storage) SetProducts(products []model.Product) error {
	return s.Update(func(doc *model.Document) error {
		doc.Products = products
		return nil
	})
}

func (s *Storage) Customers() ([]model.Customer, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Customers, nil
}

func (s *Storage) SetCustomers(customers []model.Customer) error {
	return s.Update(func(doc *model.Document) error {
		doc.Customers = customers
		return nil
	})
}

func (s *Storage) Transactions() ([]model.Transaction, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Transactions, nil
}

func (s *Storage) SetTransactions(transactions []model.Transaction) error {
	return s.Update(func(doc *model.Document) error {
		doc.Transactions = transactions
		return nil
	})
}

func (s *Storage) Settings() (model.Settings, error) {
	doc, err := s.Load()
	if err != nil {
		return model.DefaultSettings(), err
	}
	return doc.Settings, nil
}

// SetSettings replaces the settings singleton after checking its bounds.
func (s *Storage) SetSettings(settings model.Settings) error {
	b, err := json.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	if err := schema.ValidateJSON(schema.SettingsSchema, b); err != nil {
		return errors.Wrap(ErrInvalidDocument, err.Error())
	}
	return s.Update(func(doc *model.Document) error {
		doc.Settings = settings
		return nil
	})
}

// GetField returns one top-level field of the live document as JSON.
// lastBackup and version are readable; collections and settings are
// readable and writable.
func (s *Storage) GetField(key string) (json.RawMessage, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	var v any
	switch key {
	case model.FieldProducts:
		v = doc.Products
	case model.FieldCustomers:
		v = doc.Customers
	case model.FieldTransactions:
		v = doc.Transactions
	case model.FieldSettings:
		v = doc.Settings
	case model.FieldUsers:
		v = doc.Users
	case model.FieldLastBackup:
		v = doc.LastBackup
	case model.FieldVersion:
		v = doc.Version
	default:
		return nil, errors.Wrapf(ErrUnknownField, "%q", key)
	}
	b, err := json.Marshal(v)
	return b, errors.Wrap(err, "encode field")
}

// SetField replaces exactly one top-level field and saves the whole
// document. The value must decode into the field's type.
func (s *Storage) SetField(key string, value json.RawMessage) error {
	if key == model.FieldSettings {
		if err := schema.ValidateJSON(schema.SettingsSchema, value); err != nil {
			return errors.Wrap(ErrInvalidDocument, err.Error())
		}
	}
	return s.Update(func(doc *model.Document) error {
		switch key {
		case model.FieldProducts:
			var v []model.Product
			if err := decodeField(value, &v); err != nil {
				return err
			}
			doc.Products = v
		case model.FieldCustomers:
			var v []model.Customer
			if err := decodeField(value, &v); err != nil {
				return err
			}
			doc.Customers = v
		case model.FieldTransactions:
			var v []model.Transaction
			if err := decodeField(value, &v); err != nil {
				return err
			}
			doc.Transactions = v
		case model.FieldSettings:
			var v model.Settings
			if err := decodeField(value, &v); err != nil {
				return err
			}
			doc.Settings = v
		case model.FieldUsers:
			var v []json.RawMessage
			if err := decodeField(value, &v); err != nil {
				return err
			}
			doc.Users = v
		default:
			return errors.Wrapf(ErrUnknownField, "%q is not writable", key)
		}
		return nil
	})
}

func decodeField(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(ErrInvalidDocument, err.Error())
	}
	return nil
}

// Sync is a placeholder for server synchronisation. There is no server;
// it reports success without doing anything.
func (s *Storage) Sync() error {
	s.log.Info("data sync not implemented, running in offline mode")
	return nil
}
