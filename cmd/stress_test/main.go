package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-ledger/internal/adapter/storage"
	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/core/service"
)

const (
	inventoryTable = "Inventory"
	salesTable     = "Sales"
	initialStock   = 20
	sessions       = 10
	salesPerWorker = 5
	maxAttempts    = 100
)

var key = domain.ItemKey{Description: "Marble", Finish: "White", Thickness: "10mm"}

func main() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "sales-stress-*")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	// Every session shares one CSV store, like operators sharing one sheet.
	store, err := storage.NewCSVAdapter(dir)
	if err != nil {
		log.Fatalf("failed to open csv store: %v", err)
	}
	err = store.WriteTable(ctx, inventoryTable, domain.Table{
		Columns: domain.InventoryColumns,
		Rows: []domain.Row{{
			domain.ColDescription: key.Description,
			domain.ColFinish:      key.Finish,
			domain.ColThickness:   key.Thickness,
			domain.ColSize:        "600x600",
			domain.ColQuantity:    fmt.Sprint(initialStock),
			domain.ColPrice:       "5000",
		}},
	})
	if err != nil {
		log.Fatalf("failed to seed inventory: %v", err)
	}

	idem := storage.NewMemoryIdempotency()
	ledger := service.NewLedgerWriter(store, salesTable)
	sales := service.NewSaleService(store, idem, ledger)

	var successCount, staleCount, soldOutCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			session := service.NewSession(store, sales, ledger, inventoryTable)
			if err := session.Reload(ctx); err != nil {
				log.Printf("session %d: reload failed: %v", worker, err)
				return
			}

			sold := 0
			for attempt := 0; attempt < maxAttempts && sold < salesPerWorker; attempt++ {
				_, err := session.Sell(ctx, key, 1, decimal.NullDecimal{}, "")
				switch {
				case err == nil:
					sold++
					successCount.Add(1)
				case errors.Is(err, domain.ErrStaleRead):
					// Sell already reloaded the snapshot.
					staleCount.Add(1)
				case errors.Is(err, domain.ErrInsufficientStock):
					soldOutCount.Add(1)
					return
				default:
					log.Printf("session %d: unexpected error: %v", worker, err)
					return
				}
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Sessions:         %d\n", sessions)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Stale Reads:      %d\n", staleCount.Load())
	fmt.Printf("Sold Out:         %d\n", soldOutCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock {
		fmt.Printf("PASS: Exactly %d sales succeeded\n", initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d sales, got %d\n", initialStock, success)
	}

	idx, err := service.LoadCatalog(ctx, store, inventoryTable)
	if err != nil {
		log.Fatalf("failed to reload catalog: %v", err)
	}
	row, err := idx.Resolve(key.Description, key.Finish, key.Thickness)
	if err != nil {
		log.Fatalf("failed to resolve item: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", row.StockQuantity)

	if row.StockQuantity == initialStock-int(success) {
		fmt.Println("PASS: Stock matches committed sales")
	} else {
		fmt.Printf("FAIL: Expected stock %d, got %d\n", initialStock-int(success), row.StockQuantity)
	}

	entries, err := ledger.Entries(ctx)
	if err != nil {
		log.Fatalf("failed to read ledger: %v", err)
	}
	if len(entries) == int(success) {
		fmt.Printf("PASS: Ledger holds %d entries\n", len(entries))
	} else {
		fmt.Printf("FAIL: Expected %d ledger entries, got %d\n", success, len(entries))
	}
}
