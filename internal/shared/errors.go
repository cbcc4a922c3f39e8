package shared

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")

// PersistenceError wraps a store I/O failure and records whether the
// operation is safe to retry (network/timeout) or not (permission/schema).
type PersistenceError struct {
	Op        string
	Retriable bool
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.Retriable {
		return fmt.Sprintf("%s: retriable persistence failure: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err for op, marking it retriable.
func NewPersistenceError(op string, retriable bool, err error) *PersistenceError {
	return &PersistenceError{Op: op, Retriable: retriable, Err: err}
}

// IsRetriable reports whether err is a retriable persistence failure.
func IsRetriable(err error) bool {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return pe.Retriable
	}
	return false
}

// ClassifyStoreError wraps a store failure, distinguishing transient
// network/timeout conditions from permission/schema faults.
func ClassifyStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	retriable := false
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		retriable = true
	case errors.As(err, &netErr):
		retriable = true
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Connection (08), insufficient resources (53) and operator
			// intervention (57) classes are worth retrying; integrity,
			// permission and schema faults are not.
			if len(pgErr.Code) >= 2 {
				switch pgErr.Code[:2] {
				case "08", "53", "57":
					retriable = true
				}
			}
		}
	}
	return NewPersistenceError(op, retriable, err)
}
