package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/sales-ledger/internal/adapter/storage"
	"github.com/rl1809/sales-ledger/internal/core/domain"
)

// Mock IdempotencyRepository
type mockIdemRepo struct {
	mu       sync.Mutex
	claimErr error
	saveErr  error
	records  map[string]domain.CommitRecord
	released []string
}

func newMockIdemRepo() *mockIdemRepo {
	return &mockIdemRepo{records: make(map[string]domain.CommitRecord)}
}

func (m *mockIdemRepo) Claim(ctx context.Context, requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.claimErr != nil {
		return false, m.claimErr
	}
	if _, ok := m.records[requestID]; ok {
		return false, nil
	}
	m.records[requestID] = domain.CommitRecord{RequestID: requestID, State: domain.CommitClaimed}
	return true, nil
}

func (m *mockIdemRepo) Get(ctx context.Context, requestID string) (*domain.CommitRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[requestID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *mockIdemRepo) Save(ctx context.Context, record domain.CommitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[record.RequestID] = record
	return nil
}

func (m *mockIdemRepo) Release(ctx context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, requestID)
	m.released = append(m.released, requestID)
	return nil
}

func newTestService(t *testing.T, idem *mockIdemRepo) (*SaleService, *domain.CatalogIndex) {
	store := storage.NewMemoryAdapter()
	store.WriteTable(context.Background(), "Inventory", domain.Table{
		Columns: domain.InventoryColumns,
		Rows: []domain.Row{
			{"Description": "Marble", "Color/Finish": "White", "Thickness": "10mm", "Quantity (PC)": "10", "TZS": "5000"},
		},
	})

	svc := NewSaleService(store, idem, NewLedgerWriter(store, "Sales"))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	idx, err := LoadCatalog(context.Background(), store, "Inventory")
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	return svc, idx
}

func TestCommit_ClaimError(t *testing.T) {
	idem := newMockIdemRepo()
	idem.claimErr = errors.New("redis down")
	svc, idx := newTestService(t, idem)

	_, err := svc.Commit(context.Background(), idx, domain.SaleRequest{RowID: 0, Quantity: 1})
	if err == nil {
		t.Fatal("expected error when the request id cannot be claimed")
	}

	row, _ := idx.Row(0)
	if row.StockQuantity != 10 {
		t.Errorf("expected stock 10, got %d", row.StockQuantity)
	}
}

func TestCommit_SaveErrorDoesNotFailSale(t *testing.T) {
	idem := newMockIdemRepo()
	idem.saveErr = errors.New("redis down")
	svc, idx := newTestService(t, idem)

	res, err := svc.Commit(context.Background(), idx, domain.SaleRequest{RowID: 0, Quantity: 4, RequestID: "req-1"})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if res.NewStock != 6 {
		t.Errorf("expected new stock 6, got %d", res.NewStock)
	}
}

func TestCommit_UsesClockWhenUnset(t *testing.T) {
	svc, idx := newTestService(t, newMockIdemRepo())

	res, err := svc.Commit(context.Background(), idx, domain.SaleRequest{RowID: 0, Quantity: 1})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC); !res.Entry.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, res.Entry.Timestamp)
	}
}

func TestCommit_RejectionReleasesClaim(t *testing.T) {
	idem := newMockIdemRepo()
	svc, idx := newTestService(t, idem)

	// Another session empties the row first.
	other, _ := LoadCatalog(context.Background(), svc.store, "Inventory")
	if _, err := svc.Commit(context.Background(), other, domain.SaleRequest{RowID: 0, Quantity: 10}); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	_, err := svc.Commit(context.Background(), idx, domain.SaleRequest{RowID: 0, Quantity: 2, RequestID: "req-late"})
	if !errors.Is(err, domain.ErrStaleRead) {
		t.Fatalf("expected stale read, got %v", err)
	}
	if len(idem.released) != 1 || idem.released[0] != "req-late" {
		t.Errorf("expected req-late to be released, got %v", idem.released)
	}
}
