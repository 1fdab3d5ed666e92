package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/VarshaLala06/giribazar/internal/domain"
	"github.com/VarshaLala06/giribazar/internal/service"
	"github.com/VarshaLala06/giribazar/internal/store"
)

type API struct {
	service       *service.Service
	allowedOrigin string
	log           zerolog.Logger
}

func New(svc *service.Service, allowedOrigin string, log zerolog.Logger) *API {
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
		log:           log,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/v1/catalog/categories", a.handleCategories)
	mux.HandleFunc("/api/v1/catalog/products", a.handleCatalogProducts)

	mux.HandleFunc("/api/v1/purchases", a.handlePurchases)
	mux.HandleFunc("/api/v1/purchases/", a.handlePurchaseActions)
	mux.HandleFunc("/api/v1/purchases/submit", a.handlePurchaseSubmit)
	mux.HandleFunc("/api/v1/purchases/history", a.handlePurchaseHistory)

	mux.HandleFunc("/api/v1/inventory", a.handleInventory)

	mux.HandleFunc("/api/v1/sales", a.handleSales)
	mux.HandleFunc("/api/v1/reports/sales", a.handleSalesReport)

	mux.HandleFunc("/api/v1/profit-loss", a.handleProfitLoss)
	mux.HandleFunc("/api/v1/profit-loss/history", a.handleProfitLossHistory)

	mux.HandleFunc("/api/v1/alerts/watchlist", a.handleWatchlist)

	mux.HandleFunc("/api/v1/vehicle-drivers", a.handleVehicleDrivers)
	mux.HandleFunc("/api/v1/vehicle-drivers/", a.handleVehicleDriverActions)

	return a.withMiddleware(mux)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(startedAt)).
			Msg("request")
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		catalog, err := a.service.Catalog(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"categories": catalog.Categories})
	case http.MethodPost:
		var req domain.CategoryCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.AddCategory(r.Context(), req); err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeJSON(w, http.StatusCreated, map[string]any{"name": strings.TrimSpace(req.Name)})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleCatalogProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		if category == "" {
			catalog, err := a.service.Catalog(r.Context())
			if err != nil {
				a.writeServiceError(w, err)
				return
			}
			a.writeJSON(w, http.StatusOK, catalog)
			return
		}
		catalog, err := a.service.Catalog(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		products, ok := catalog.Products[category]
		if !ok {
			a.writeError(w, http.StatusNotFound, store.ErrUnknownCategory)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"category": category, "products": products})
	case http.MethodPost:
		var req domain.CatalogProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.AddCatalogProduct(r.Context(), req); err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeJSON(w, http.StatusCreated, map[string]any{
			"category": strings.TrimSpace(req.Category),
			"name":     strings.TrimSpace(req.Name),
		})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handlePurchases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := a.service.PendingPurchases(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req domain.PurchaseEntryRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		list, err := a.service.UpsertPurchaseEntry(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		status := http.StatusCreated
		if req.EditIndex != nil {
			status = http.StatusOK
		}
		a.writeJSON(w, status, list)
	default:
		a.writeMethodNotAllowed(w)
	}
}

// handlePurchaseActions serves DELETE /api/v1/purchases/{index}.
func (a *API) handlePurchaseActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		a.writeMethodNotAllowed(w)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/purchases/")
	index, err := strconv.Atoi(raw)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, errors.New("purchase index required"))
		return
	}

	list, err := a.service.DeletePurchaseEntry(r.Context(), index)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, list)
}

func (a *API) handlePurchaseSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	resp, err := a.service.SubmitPurchases(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePurchaseHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	list, err := a.service.PurchaseHistory(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, list)
}

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	resp, err := a.service.InventorySnapshot(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp, err := a.service.SalesHistory(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var req domain.SaleRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.RecordSale(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeJSON(w, http.StatusCreated, resp)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	report, err := a.service.SalesReport(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, report)
}

func (a *API) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	var req domain.ProfitLossRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.CalculateProfitLoss(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleProfitLossHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	history, err := a.service.ProfitLossHistory(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (a *API) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	a.writeJSON(w, http.StatusOK, a.service.LowStockWatchlist(r.Context()))
}

func (a *API) handleVehicleDrivers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp, err := a.service.ListVehicleDrivers(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var req domain.VehicleDriverRecord
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.AddVehicleDriver(r.Context(), req); err != nil {
			a.writeServiceError(w, err)
			return
		}
		a.writeJSON(w, http.StatusCreated, req)
	default:
		a.writeMethodNotAllowed(w)
	}
}

// handleVehicleDriverActions serves DELETE /api/v1/vehicle-drivers/{index}.
func (a *API) handleVehicleDriverActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		a.writeMethodNotAllowed(w)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/vehicle-drivers/")
	index, err := strconv.Atoi(raw)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, errors.New("record index required"))
		return
	}

	if err := a.service.DeleteVehicleDriver(r.Context(), index); err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"deleted": index})
}

// writeServiceError maps store sentinels onto HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrMissingFields),
		errors.Is(err, store.ErrInvalidQuantity),
		errors.Is(err, store.ErrIndexOutOfRange):
		a.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrUnknownCategory),
		errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrNotFound):
		a.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrDuplicateCategory),
		errors.Is(err, store.ErrDuplicateProduct),
		errors.Is(err, store.ErrInsufficientStock):
		a.writeError(w, http.StatusConflict, err)
	default:
		a.writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	// 4xx messages are user-facing; 5xx bodies stay generic so storage
	// details never leak to clients.
	msg := err.Error()
	if status >= 500 {
		a.log.Error().Int("status", status).Err(err).Msg("internal error")
		msg = "internal server error"
	}
	a.writeJSON(w, status, map[string]any{"error": msg})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
