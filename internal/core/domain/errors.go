package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLoad              = errors.New("catalog load failed")
	ErrNotFound          = errors.New("item not found")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStaleRead         = errors.New("stale read")
	ErrPartialWrite      = errors.New("inventory updated but sale not logged")
	ErrWrite             = errors.New("backing store write failed")
	ErrDuplicateCommit   = errors.New("duplicate commit")
)

// LoadError reports a catalog that could not be read or lacks mandatory columns.
type LoadError struct {
	Table   string
	Missing []string
	Err     error
}

func (e *LoadError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("load %s: missing columns: %s", e.Table, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("load %s: %v", e.Table, e.Err)
}

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

func (e *LoadError) Unwrap() error { return e.Err }

// InsufficientStockError carries the shortfall so the UI can show the bound.
type InsufficientStockError struct {
	RowID     RowID
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for row %d: requested %d, available %d",
		e.RowID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// StaleReadError means the backing store no longer matches the snapshot the
// sale was validated against. The caller must reload before retrying.
type StaleReadError struct {
	RowID    RowID
	Expected int
	Actual   int
	Reason   string
}

func (e *StaleReadError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("stale read on row %d: %s", e.RowID, e.Reason)
	}
	return fmt.Sprintf("stale read on row %d: expected stock %d, store has %d",
		e.RowID, e.Expected, e.Actual)
}

func (e *StaleReadError) Is(target error) bool { return target == ErrStaleRead }

// PartialWriteError is returned when the inventory decrement was applied but
// the ledger append failed. NewStock is already in the store; only the ledger
// append may be retried.
type PartialWriteError struct {
	RequestID string
	NewStock  int
	Entry     LedgerEntry
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("request %s: stock set to %d but ledger append failed: %v",
		e.RequestID, e.NewStock, e.Err)
}

func (e *PartialWriteError) Is(target error) bool { return target == ErrPartialWrite }

func (e *PartialWriteError) Unwrap() error { return e.Err }

// DuplicateCommitError is returned when a request id was already used.
// Record holds what the earlier attempt achieved.
type DuplicateCommitError struct {
	Record CommitRecord
}

func (e *DuplicateCommitError) Error() string {
	return fmt.Sprintf("request %s already %s", e.Record.RequestID, e.Record.State)
}

func (e *DuplicateCommitError) Is(target error) bool { return target == ErrDuplicateCommit }
