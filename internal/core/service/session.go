package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/port"
)

// LoadCatalog reads the inventory table and builds a fresh snapshot.
func LoadCatalog(ctx context.Context, store port.TableStore, table string) (*domain.CatalogIndex, error) {
	t, err := store.ReadTable(ctx, table)
	if err != nil {
		return nil, &domain.LoadError{Table: table, Err: err}
	}
	idx, err := domain.NewCatalogIndex(table, t)
	if err != nil {
		return nil, err
	}
	for _, d := range idx.Duplicates() {
		zap.L().Warn("duplicate catalog row ignored",
			zap.Int("row_id", int(d.ID)),
			zap.String("item", d.Description),
			zap.String("finish", d.Finish),
			zap.String("thickness", d.Thickness),
		)
	}
	return idx, nil
}

// Session is one operator's view of the catalog. It owns the snapshot the
// operator selects from and runs one interaction cycle (resolve, validate,
// commit) at a time.
type Session struct {
	store  port.TableStore
	sales  *SaleService
	ledger *LedgerWriter
	table  string

	mu    sync.RWMutex
	index *domain.CatalogIndex
	// Items whose stock was written but whose sale was not logged, until
	// RetryLedger completes them.
	pending map[domain.ItemKey]*domain.PartialWriteError
}

func NewSession(store port.TableStore, sales *SaleService, ledger *LedgerWriter, inventoryTable string) *Session {
	return &Session{
		store:  store,
		sales:  sales,
		ledger: ledger,
		table:  inventoryTable,

		pending: make(map[domain.ItemKey]*domain.PartialWriteError),
	}
}

// Reload replaces the snapshot with a fresh read of the store.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *Session) reloadLocked(ctx context.Context) error {
	idx, err := LoadCatalog(ctx, s.store, s.table)
	if err != nil {
		return err
	}
	s.index = idx
	return nil
}

func (s *Session) Descriptions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil
	}
	return s.index.Descriptions()
}

func (s *Session) Finishes(description string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil
	}
	return s.index.Finishes(description)
}

func (s *Session) Thicknesses(description, finish string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil
	}
	return s.index.Thicknesses(description, finish)
}

func (s *Session) Resolve(key domain.ItemKey) (domain.CatalogRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return domain.CatalogRow{}, ErrNoSnapshot
	}
	return s.index.Resolve(key.Description, key.Finish, key.Thickness)
}

// Rows returns the current snapshot for the stock display.
func (s *Session) Rows() []domain.CatalogRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil
	}
	return s.index.Rows()
}

// Sell resolves key and commits a sale of quantity units. An unset price
// books the catalog price.
//
// After a stale read the snapshot is reloaded, so the operator re-prompts
// against fresh stock; the error is still returned. After a partial write the
// item is held: further sales of it fail with the same PartialWriteError until
// RetryLedger logs the pending sale.
func (s *Session) Sell(ctx context.Context, key domain.ItemKey, quantity int, price decimal.NullDecimal, requestID string) (domain.CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pw, ok := s.pending[key]; ok {
		return domain.CommitResult{NewStock: pw.NewStock, Entry: pw.Entry}, pw
	}
	if s.index == nil {
		if err := s.reloadLocked(ctx); err != nil {
			return domain.CommitResult{}, err
		}
	}
	row, err := s.index.Resolve(key.Description, key.Finish, key.Thickness)
	if err != nil {
		return domain.CommitResult{}, err
	}

	res, err := s.sales.Commit(ctx, s.index, domain.SaleRequest{
		RowID:       row.ID,
		Quantity:    quantity,
		UnitPrice:   price,
		RequestedAt: time.Now(),
		RequestID:   requestID,
	})
	var pw *domain.PartialWriteError
	switch {
	case errors.As(err, &pw):
		s.pending[key] = pw
	case errors.Is(err, domain.ErrStaleRead):
		if rerr := s.reloadLocked(ctx); rerr != nil {
			zap.L().Warn("reload after failed commit", zap.Error(rerr))
		}
	}
	return res, err
}

// RetryLedger finishes a partially written sale, releases the held item and
// refreshes the snapshot.
func (s *Session) RetryLedger(ctx context.Context, requestID string) (domain.CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.sales.RetryLedger(ctx, requestID)
	if err != nil {
		return res, err
	}
	for key, pw := range s.pending {
		if pw.RequestID == requestID {
			delete(s.pending, key)
		}
	}
	if rerr := s.reloadLocked(ctx); rerr != nil {
		zap.L().Warn("reload after ledger retry", zap.Error(rerr))
	}
	return res, nil
}

// Ledger returns every recorded sale.
func (s *Session) Ledger(ctx context.Context) ([]domain.LedgerEntry, error) {
	return s.ledger.Entries(ctx)
}
