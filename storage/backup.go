package storage

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/stevemurr/simple-pos/store"
)

// CreateBackup copies the live document into the backup slot, replacing
// any earlier backup, and returns the bytes written.
func (s *Storage) CreateBackup() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encode backup")
	}
	if err := s.kv.Set(BackupKey, b); err != nil {
		return nil, errors.Wrap(err, "failed to create backup")
	}
	s.log.WithField("bytes", len(b)).Info("backup created")
	return b, nil
}

// RestoreFromBackup replaces the live document with data, or with the
// contents of the backup slot when data is empty. The live document is
// untouched unless the backup parses and passes Validate.
func (s *Storage) RestoreFromBackup(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(data) == 0 {
		b, err := s.kv.Get(BackupKey)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoBackup
		}
		if err != nil {
			return errors.Wrap(err, "read backup")
		}
		data = b
	}
	if err := s.install(data); err != nil {
		s.log.WithError(err).Error("restore from backup failed")
		return err
	}
	s.log.Info("restored from backup")
	return nil
}

// ExportData returns the live document pretty-printed, in the interchange
// format accepted by ImportData.
func (s *Storage) ExportData() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	return b, errors.Wrap(err, "encode export")
}

// ImportData replaces the live document with data. It is a full
// overwrite, not a merge; on any parse or validation failure nothing is
// written.
func (s *Storage) ImportData(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.install(data); err != nil {
		s.log.WithError(err).Error("import failed")
		return err
	}
	s.log.Info("data imported")
	return nil
}

func (s *Storage) install(data []byte) error {
	if err := Validate(data); err != nil {
		return err
	}
	fields, err := splitDocument(data)
	if err != nil {
		return errors.Wrap(ErrInvalidDocument, err.Error())
	}
	doc, err := s.fromFields(fields)
	if err != nil {
		return errors.Wrap(ErrInvalidDocument, err.Error())
	}
	return s.save(doc)
}

// ClearAllData removes the live document and the backup. It cannot be
// undone.
func (s *Storage) ClearAllData() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Remove(DataKey); err != nil {
		return errors.Wrap(err, "remove document")
	}
	if err := s.kv.Remove(BackupKey); err != nil {
		return errors.Wrap(err, "remove backup")
	}
	s.state = Uninitialized
	s.log.Warn("all data cleared")
	return nil
}

// Info is an estimate of storage use for display, not a platform quota.
type Info struct {
	Used       int64   `json:"used"`
	Capacity   int64   `json:"capacity"`
	Available  int64   `json:"available"`
	Percentage float64 `json:"percentage"`
}

// StorageInfo reports the serialized size of the live document against the
// capacity ceiling.
func (s *Storage) StorageInfo() (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return Info{}, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return Info{}, errors.Wrap(err, "encode document")
	}
	used := int64(len(b))
	return Info{
		Used:       used,
		Capacity:   s.capacity,
		Available:  s.capacity - used,
		Percentage: float64(used) / float64(s.capacity) * 100,
	}, nil
}

// ExportFileName is the download name for a full export taken at t.
func ExportFileName(t time.Time) string {
	return "pos-data-" + t.Format(time.DateOnly) + ".json"
}
