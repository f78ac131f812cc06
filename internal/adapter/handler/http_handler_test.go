package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/sales-ledger/internal/adapter/handler"
	"github.com/rl1809/sales-ledger/internal/adapter/storage"
	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/core/service"
)

func newSession(t *testing.T) (*service.Session, *storage.MemoryAdapter) {
	t.Helper()
	store := storage.NewMemoryAdapter()
	err := store.WriteTable(context.Background(), "Inventory", domain.Table{
		Columns: domain.InventoryColumns,
		Rows: []domain.Row{
			{"Description": "Marble", "Color/Finish": "White", "Thickness": "10mm", "Size (mm)": "600x600", "Quantity (PC)": "20", "TZS": "5000"},
			{"Description": "Marble", "Color/Finish": "Black", "Thickness": "10mm", "Size (mm)": "600x600", "Quantity (PC)": "8", "TZS": "5500"},
		},
	})
	require.NoError(t, err)

	ledger := service.NewLedgerWriter(store, "Sales")
	sales := service.NewSaleService(store, storage.NewMemoryIdempotency(), ledger)
	session := service.NewSession(store, sales, ledger, "Inventory")
	require.NoError(t, session.Reload(context.Background()))
	return session, store
}

func newTestServer(t *testing.T) *httptest.Server {
	session, _ := newSession(t)
	srv := httptest.NewServer(handler.NewRouter(handler.NewHTTPHandler(session)))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postSale(t *testing.T, srv *httptest.Server, body string) (int, handler.SaleResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/sales/", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out handler.SaleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHTTP_HealthCheck(t *testing.T) {
	srv := newTestServer(t)

	var out map[string]string
	status := getJSON(t, srv.URL+"/health", &out)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", out["status"])
}

func TestHTTP_Cascade(t *testing.T) {
	srv := newTestServer(t)

	var out handler.OptionsResponse
	getJSON(t, srv.URL+"/api/catalog/descriptions", &out)
	assert.Equal(t, []string{"Marble"}, out.Options)

	getJSON(t, srv.URL+"/api/catalog/finishes?description=Marble", &out)
	assert.Equal(t, []string{"Black", "White"}, out.Options)

	getJSON(t, srv.URL+"/api/catalog/thicknesses?description=Marble&finish=White", &out)
	assert.Equal(t, []string{"10mm"}, out.Options)

	getJSON(t, srv.URL+"/api/catalog/finishes?description=Slate", &out)
	assert.NotNil(t, out.Options)
	assert.Empty(t, out.Options)
}

func TestHTTP_Item(t *testing.T) {
	srv := newTestServer(t)

	var row handler.CatalogRow
	status := getJSON(t, srv.URL+"/api/catalog/item?description=Marble&finish=White&thickness=10mm", &row)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 20, row.StockQuantity)
	assert.Equal(t, 20, row.MaxQuantity)
	assert.Equal(t, "600x600", row.Size)

	var miss handler.SaleResponse
	status = getJSON(t, srv.URL+"/api/catalog/item?description=Marble&finish=White&thickness=12mm", &miss)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, handler.CodeNotFound, miss.Code)
}

func TestHTTP_Sell(t *testing.T) {
	srv := newTestServer(t)

	status, out := postSale(t, srv, `{"request_id":"req-1","description":"Marble","finish":"White","thickness":"10mm","quantity":3,"unit_price":"5000"}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.Success)
	require.NotNil(t, out.NewStock)
	assert.Equal(t, 17, *out.NewStock)
	require.NotNil(t, out.Entry)
	assert.Equal(t, "15000", out.Entry.Total.String())
	assert.Equal(t, "req-1", out.RequestID)

	var entries []handler.LedgerEntry
	getJSON(t, srv.URL+"/api/sales/", &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, 17, entries[0].StockRemaining)
}

func TestHTTP_SellRejections(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{`, http.StatusBadRequest, ""},
		{"missing fields", `{"description":"Marble","quantity":1}`, http.StatusBadRequest, ""},
		{"zero quantity", `{"description":"Marble","finish":"White","thickness":"10mm","quantity":0}`, http.StatusBadRequest, handler.CodeInvalidQuantity},
		{"fractional quantity", `{"description":"Marble","finish":"White","thickness":"10mm","quantity":1.5}`, http.StatusBadRequest, handler.CodeInvalidQuantity},
		{"negative price", `{"description":"Marble","finish":"White","thickness":"10mm","quantity":1,"unit_price":"-1"}`, http.StatusBadRequest, handler.CodeInvalidPrice},
		{"unknown item", `{"description":"Marble","finish":"White","thickness":"12mm","quantity":1}`, http.StatusNotFound, handler.CodeNotFound},
		{"over stock", `{"description":"Marble","finish":"White","thickness":"10mm","quantity":25}`, http.StatusUnprocessableEntity, handler.CodeInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := postSale(t, srv, tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, out.Success)
			assert.Equal(t, tt.code, out.Code)
		})
	}
}

func TestHTTP_SellDuplicate(t *testing.T) {
	srv := newTestServer(t)
	body := `{"request_id":"req-dup","description":"Marble","finish":"Black","thickness":"10mm","quantity":2}`

	status, _ := postSale(t, srv, body)
	require.Equal(t, http.StatusOK, status)

	status, out := postSale(t, srv, body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, handler.CodeDuplicateRequest, out.Code)
	require.NotNil(t, out.NewStock)
	assert.Equal(t, 6, *out.NewStock)
}

func TestHTTP_SellStale(t *testing.T) {
	session, store := newSession(t)
	srv := httptest.NewServer(handler.NewRouter(handler.NewHTTPHandler(session)))
	defer srv.Close()

	// Another session sells behind this one's back.
	tbl, _ := store.ReadTable(context.Background(), "Inventory")
	tbl.Rows[0]["Quantity (PC)"] = "5"
	require.NoError(t, store.WriteTable(context.Background(), "Inventory", tbl))

	status, out := postSale(t, srv, `{"description":"Marble","finish":"White","thickness":"10mm","quantity":3}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, handler.CodeStaleRead, out.Code)

	var row handler.CatalogRow
	getJSON(t, srv.URL+"/api/catalog/item?description=Marble&finish=White&thickness=10mm", &row)
	assert.Equal(t, 5, row.StockQuantity)
}

func TestHTTP_RetryLedgerUnknown(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/sales/nope/retry-ledger", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_Reload(t *testing.T) {
	session, store := newSession(t)
	srv := httptest.NewServer(handler.NewRouter(handler.NewHTTPHandler(session)))
	defer srv.Close()

	require.NoError(t, store.WriteTable(context.Background(), "Inventory", domain.Table{Columns: []string{"Description"}}))

	resp, err := http.Post(srv.URL+"/api/catalog/reload", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var out handler.SaleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, handler.CodeCatalogUnavailable, out.Code)
	assert.Contains(t, out.Message, "missing columns")
}
