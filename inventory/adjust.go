package inventory

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/stevemurr/simple-pos/model"
)

var (
	ErrInvalidAdjustment = errors.New("inventory: invalid stock adjustment")
	ErrMissingReason     = errors.New("inventory: adjustment reason is required")
)

type AdjustmentKind string

const (
	AdjustAdd    AdjustmentKind = "add"
	AdjustRemove AdjustmentKind = "remove"
	AdjustSet    AdjustmentKind = "set"
)

type Adjustment struct {
	Kind     AdjustmentKind `json:"kind"`
	Quantity int            `json:"quantity"`
	Reason   string         `json:"reason"`
}

// AdjustmentResult describes an applied adjustment. It is returned to the
// caller and not stored.
type AdjustmentResult struct {
	ProductID string    `json:"productId"`
	Previous  int       `json:"previous"`
	New       int       `json:"new"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// NewStock applies a to current. Removal floors at zero.
func NewStock(current int, a Adjustment) (int, error) {
	if a.Quantity < 0 {
		return current, errors.Wrapf(ErrInvalidAdjustment, "quantity %d is negative", a.Quantity)
	}
	switch a.Kind {
	case AdjustAdd:
		return current + a.Quantity, nil
	case AdjustRemove:
		if n := current - a.Quantity; n > 0 {
			return n, nil
		}
		return 0, nil
	case AdjustSet:
		return a.Quantity, nil
	default:
		return current, errors.Wrapf(ErrInvalidAdjustment, "unknown kind %q", a.Kind)
	}
}

// Adjust changes the stock of product id and advances its updatedAt.
func (s *Service) Adjust(id string, a Adjustment) (AdjustmentResult, error) {
	if strings.TrimSpace(a.Reason) == "" {
		return AdjustmentResult{}, ErrMissingReason
	}
	var res AdjustmentResult
	err := s.storage.Update(func(doc *model.Document) error {
		i := indexOf(doc.Products, id)
		if i < 0 {
			return errors.Wrapf(ErrProductNotFound, "id %s", id)
		}
		prev := doc.Products[i].Stock
		next, err := NewStock(prev, a)
		if err != nil {
			return err
		}
		now := s.storage.Now()
		doc.Products[i].Stock = next
		doc.Products[i].UpdatedAt = now
		res = AdjustmentResult{
			ProductID: id,
			Previous:  prev,
			New:       next,
			Delta:     next - prev,
			Reason:    a.Reason,
			At:        now,
		}
		return nil
	})
	if err != nil {
		return AdjustmentResult{}, err
	}
	s.log.WithFields(logrus.Fields{
		"id":     id,
		"from":   res.Previous,
		"to":     res.New,
		"reason": res.Reason,
	}).Info("stock adjusted")
	return res, nil
}
