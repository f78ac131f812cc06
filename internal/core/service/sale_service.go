package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/port"
)

var ErrNoSnapshot = errors.New("no catalog snapshot loaded")

// SaleService commits sales: it decrements the inventory row, then appends
// the ledger entry. It is the only writer of either table.
//
// The backing store has no multi-row transactions. Inventory goes first
// because a sale missing from the ledger can be appended later, while a
// double decrement cannot be detected afterwards.
type SaleService struct {
	store  port.TableStore
	idem   port.IdempotencyRepository
	ledger *LedgerWriter
	now    func() time.Time

	// mu serializes read-check-write on stores that only offer whole-table
	// replace.
	mu sync.Mutex
}

func NewSaleService(store port.TableStore, idem port.IdempotencyRepository, ledger *LedgerWriter) *SaleService {
	return &SaleService{
		store:  store,
		idem:   idem,
		ledger: ledger,
		now:    time.Now,
	}
}

// Commit books req against the row it references in idx. The stock the
// caller validated against is the one in idx; if the store disagrees the
// commit fails with a *domain.StaleReadError and nothing is written.
//
// On success idx is updated with the new stock. On a *domain.PartialWriteError
// idx is left untouched, so re-running the same commit without its request
// id is refused as stale instead of decrementing twice.
func (s *SaleService) Commit(ctx context.Context, idx *domain.CatalogIndex, req domain.SaleRequest) (domain.CommitResult, error) {
	if idx == nil {
		return domain.CommitResult{}, ErrNoSnapshot
	}
	row, ok := idx.Row(req.RowID)
	if !ok {
		return domain.CommitResult{}, domain.ErrNotFound
	}
	price := req.PriceFor(row)
	if err := domain.ValidateSale(row, req.Quantity, price); err != nil {
		return domain.CommitResult{}, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	claimed, err := s.idem.Claim(ctx, requestID)
	if err != nil {
		return domain.CommitResult{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !claimed {
		return domain.CommitResult{}, s.duplicate(ctx, requestID)
	}

	at := req.RequestedAt
	if at.IsZero() {
		at = s.now()
	}

	newStock, err := s.decrement(ctx, idx.Table(), row, req.Quantity)
	if err != nil {
		// A failed write may or may not have landed, so its claim is kept.
		if !errors.Is(err, domain.ErrWrite) {
			if relErr := s.idem.Release(ctx, requestID); relErr != nil {
				zap.L().Warn("failed to release request id", zap.String("request_id", requestID), zap.Error(relErr))
			}
		}
		s.logFailure(requestID, row, err)
		return domain.CommitResult{}, err
	}

	entry := domain.NewLedgerEntry(row, req.Quantity, price, newStock, at, requestID)
	record := domain.CommitRecord{
		RequestID: requestID,
		State:     domain.CommitInventoryApplied,
		NewStock:  newStock,
		Entry:     entry,
	}
	if err := s.idem.Save(ctx, record); err != nil {
		zap.L().Error("failed to record applied inventory", zap.String("request_id", requestID), zap.Error(err))
	}

	result := domain.CommitResult{NewStock: newStock, Entry: entry}
	if err := s.ledger.Append(ctx, entry); err != nil {
		zap.L().Warn("sale not logged",
			zap.String("request_id", requestID),
			zap.Int("new_stock", newStock),
			zap.Error(err),
		)
		return result, &domain.PartialWriteError{RequestID: requestID, NewStock: newStock, Entry: entry, Err: err}
	}

	s.complete(ctx, record)
	idx.Apply(row.ID, newStock)

	zap.L().Info("sale committed",
		zap.String("request_id", requestID),
		zap.String("item", row.Description),
		zap.String("finish", row.Finish),
		zap.String("thickness", row.Thickness),
		zap.Int("quantity", req.Quantity),
		zap.Int("new_stock", newStock),
	)
	return result, nil
}

// RetryLedger appends the ledger entry of a commit that ended in a
// *domain.PartialWriteError. Inventory is never touched. Retrying a request
// that already completed returns its result again.
func (s *SaleService) RetryLedger(ctx context.Context, requestID string) (domain.CommitResult, error) {
	rec, err := s.idem.Get(ctx, requestID)
	if err != nil {
		return domain.CommitResult{}, fmt.Errorf("s.idem.Get -> %w", err)
	}
	if rec == nil {
		return domain.CommitResult{}, fmt.Errorf("%w: no commit recorded for request %s", domain.ErrNotFound, requestID)
	}

	result := domain.CommitResult{NewStock: rec.NewStock, Entry: rec.Entry}
	switch rec.State {
	case domain.CommitCompleted:
		return result, nil
	case domain.CommitInventoryApplied:
	default:
		return domain.CommitResult{}, &domain.DuplicateCommitError{Record: *rec}
	}

	logged, err := s.ledger.Contains(ctx, requestID)
	if err != nil {
		return result, &domain.PartialWriteError{RequestID: requestID, NewStock: rec.NewStock, Entry: rec.Entry, Err: err}
	}
	if !logged {
		if err := s.ledger.Append(ctx, rec.Entry); err != nil {
			return result, &domain.PartialWriteError{RequestID: requestID, NewStock: rec.NewStock, Entry: rec.Entry, Err: err}
		}
	}

	s.complete(ctx, *rec)
	zap.L().Info("ledger entry recovered", zap.String("request_id", requestID), zap.Bool("already_logged", logged))
	return result, nil
}

// decrement re-reads the row from the store, checks it against the snapshot
// row and writes the new stock.
func (s *SaleService) decrement(ctx context.Context, table string, row domain.CatalogRow, quantity int) (int, error) {
	updater, cas := s.store.(port.RowUpdater)
	if !cas {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	t, err := s.store.ReadTable(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("s.store.ReadTable -> %w", err)
	}
	layout, err := domain.ResolveInventoryLayout(table, t.Columns)
	if err != nil {
		return 0, err
	}

	i := int(row.ID)
	if i < 0 || i >= len(t.Rows) {
		return 0, &domain.StaleReadError{RowID: row.ID, Expected: row.StockQuantity, Reason: "row no longer exists"}
	}
	raw := t.Rows[i]
	current := layout.Parse(row.ID, raw)
	if current.Key() != row.Key() {
		return 0, &domain.StaleReadError{RowID: row.ID, Expected: row.StockQuantity, Reason: "row now holds a different item"}
	}
	if current.StockQuantity != row.StockQuantity {
		return 0, &domain.StaleReadError{RowID: row.ID, Expected: row.StockQuantity, Actual: current.StockQuantity}
	}

	newStock := current.StockQuantity - quantity
	if newStock < 0 {
		return 0, &domain.InsufficientStockError{RowID: row.ID, Available: current.StockQuantity, Requested: quantity}
	}
	next := layout.WithStock(raw, newStock)

	if cas {
		err := updater.UpdateRow(ctx, table, i, raw, next)
		if errors.Is(err, port.ErrRowChanged) {
			return 0, &domain.StaleReadError{RowID: row.ID, Expected: row.StockQuantity, Reason: "row changed during commit"}
		}
		if err != nil {
			return 0, fmt.Errorf("%w: update %s row %d: %w", domain.ErrWrite, table, i, err)
		}
		return newStock, nil
	}

	t.Rows[i] = next
	if err := s.store.WriteTable(ctx, table, t); err != nil {
		return 0, fmt.Errorf("%w: write %s: %w", domain.ErrWrite, table, err)
	}
	return newStock, nil
}

func (s *SaleService) duplicate(ctx context.Context, requestID string) error {
	rec, err := s.idem.Get(ctx, requestID)
	if err != nil || rec == nil {
		rec = &domain.CommitRecord{RequestID: requestID, State: domain.CommitClaimed}
	}
	return &domain.DuplicateCommitError{Record: *rec}
}

func (s *SaleService) complete(ctx context.Context, record domain.CommitRecord) {
	record.State = domain.CommitCompleted
	if err := s.idem.Save(ctx, record); err != nil {
		zap.L().Warn("failed to mark request completed", zap.String("request_id", record.RequestID), zap.Error(err))
	}
}

func (s *SaleService) logFailure(requestID string, row domain.CatalogRow, err error) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.Int("row_id", int(row.ID)),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, domain.ErrWrite):
		zap.L().Error("inventory write failed", fields...)
	case errors.Is(err, domain.ErrStaleRead):
		zap.L().Warn("stale catalog snapshot", fields...)
	default:
		zap.L().Info("sale rejected", fields...)
	}
}
