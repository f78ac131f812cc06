package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/core/service"
)

type HTTPHandler struct {
	session *service.Session
}

func NewHTTPHandler(session *service.Session) *HTTPHandler {
	return &HTTPHandler{session: session}
}

func (h *HTTPHandler) Descriptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, options(h.session.Descriptions()))
}

func (h *HTTPHandler) Finishes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, options(h.session.Finishes(q.Get("description"))))
}

func (h *HTTPHandler) Thicknesses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, options(h.session.Thicknesses(q.Get("description"), q.Get("finish"))))
}

func (h *HTTPHandler) Item(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	row, err := h.session.Resolve(domain.ItemKey{
		Description: q.Get("description"),
		Finish:      q.Get("finish"),
		Thickness:   q.Get("thickness"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCatalogRow(row))
}

func (h *HTTPHandler) Items(w http.ResponseWriter, r *http.Request) {
	rows := h.session.Rows()
	out := make([]CatalogRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCatalogRow(row))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Reload(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": len(h.session.Rows())})
}

func (h *HTTPHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SaleResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if req.Description == "" || req.Finish == "" || req.Thickness == "" {
		writeJSON(w, http.StatusBadRequest, SaleResponse{
			Success: false,
			Message: "missing required fields",
		})
		return
	}
	quantity, err := domain.ParseQuantity(req.Quantity.String())
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.session.Sell(r.Context(), req.key(), quantity, req.UnitPrice, req.RequestID)
	if err != nil {
		writeJSON(w, classify(err).status, saleResponse(res, err))
		return
	}
	writeJSON(w, http.StatusOK, saleResponse(res, nil))
}

func (h *HTTPHandler) RetryLedger(w http.ResponseWriter, r *http.Request) {
	res, err := h.session.RetryLedger(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		writeJSON(w, classify(err).status, saleResponse(res, err))
		return
	}
	writeJSON(w, http.StatusOK, saleResponse(res, nil))
}

func (h *HTTPHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.session.Ledger(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerEntry(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, err error) {
	f := classify(err)
	writeJSON(w, f.status, SaleResponse{Success: false, Message: f.message, Code: f.code})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
