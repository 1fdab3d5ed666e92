package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/VarshaLala06/giribazar/internal/alert"
	"github.com/VarshaLala06/giribazar/internal/cache"
	"github.com/VarshaLala06/giribazar/internal/domain"
	"github.com/VarshaLala06/giribazar/internal/store"
	"github.com/VarshaLala06/giribazar/internal/xid"
)

// fallbackUnitPrice is charged per unit when a committed record carries
// no price, so legacy stock without a recorded intake price still sells.
const fallbackUnitPrice = 0.9

// profitLossHistoryKeep caps the rolling profit/loss history.
const profitLossHistoryKeep = 5

type Service struct {
	repo      store.Repository
	alerts    *alert.Engine
	reports   cache.ReportCache
	reportTTL time.Duration
	log       zerolog.Logger
}

func New(repo store.Repository, alerts *alert.Engine, reports cache.ReportCache, reportTTL time.Duration, log zerolog.Logger) *Service {
	if alerts == nil {
		alerts = alert.NewEngine(alert.DefaultThreshold, true)
	}
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if reportTTL <= 0 {
		reportTTL = 30 * time.Second
	}

	return &Service{
		repo:      repo,
		alerts:    alerts,
		reports:   reports,
		reportTTL: reportTTL,
		log:       log,
	}
}

func (s *Service) AddCategory(ctx context.Context, req domain.CategoryCreateRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return store.ErrMissingFields
	}
	return s.repo.AddCategory(ctx, name)
}

func (s *Service) AddCatalogProduct(ctx context.Context, req domain.CatalogProductCreateRequest) error {
	category := strings.TrimSpace(req.Category)
	name := strings.TrimSpace(req.Name)
	if category == "" || name == "" {
		return store.ErrMissingFields
	}
	return s.repo.AddCatalogProduct(ctx, category, name)
}

func (s *Service) Catalog(ctx context.Context) (domain.CatalogResponse, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return domain.CatalogResponse{}, err
	}

	products := make(map[string][]string, len(categories))
	for _, category := range categories {
		list, err := s.repo.ListCatalogProducts(ctx, category)
		if err != nil {
			return domain.CatalogResponse{}, err
		}
		products[category] = list
	}

	return domain.CatalogResponse{Categories: categories, Products: products}, nil
}

// UpsertPurchaseEntry appends a pending intake line, or replaces the
// line at EditIndex when the request carries one.
func (s *Service) UpsertPurchaseEntry(ctx context.Context, req domain.PurchaseEntryRequest) (domain.PurchaseListResponse, error) {
	entry := domain.PurchaseEntry{
		Name:      strings.TrimSpace(req.Name),
		Category:  strings.TrimSpace(req.Category),
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	}
	if entry.Name == "" || entry.Category == "" {
		return domain.PurchaseListResponse{}, store.ErrMissingFields
	}
	if entry.Quantity <= 0 || math.IsNaN(entry.Quantity) || math.IsInf(entry.Quantity, 0) {
		return domain.PurchaseListResponse{}, store.ErrMissingFields
	}
	if entry.UnitPrice <= 0 || math.IsNaN(entry.UnitPrice) || math.IsInf(entry.UnitPrice, 0) {
		return domain.PurchaseListResponse{}, store.ErrMissingFields
	}

	entries, err := s.repo.UpsertPendingPurchase(ctx, entry, req.EditIndex)
	if err != nil {
		return domain.PurchaseListResponse{}, err
	}
	return buildPurchaseList(entries), nil
}

func (s *Service) DeletePurchaseEntry(ctx context.Context, index int) (domain.PurchaseListResponse, error) {
	entries, err := s.repo.DeletePendingPurchase(ctx, index)
	if err != nil {
		return domain.PurchaseListResponse{}, err
	}
	return buildPurchaseList(entries), nil
}

func (s *Service) PendingPurchases(ctx context.Context) (domain.PurchaseListResponse, error) {
	entries, err := s.repo.ListPendingPurchases(ctx)
	if err != nil {
		return domain.PurchaseListResponse{}, err
	}
	return buildPurchaseList(entries), nil
}

// SubmitPurchases commits the whole pending ledger into inventory.
func (s *Service) SubmitPurchases(ctx context.Context) (domain.SubmitBatchResponse, error) {
	committed, err := s.repo.CommitPendingPurchases(ctx)
	if err != nil {
		return domain.SubmitBatchResponse{}, err
	}
	s.log.Info().Int("records", len(committed)).Msg("pending purchases committed to inventory")
	return domain.SubmitBatchResponse{Committed: committed}, nil
}

func (s *Service) InventorySnapshot(ctx context.Context) (domain.InventoryResponse, error) {
	records, err := s.repo.ListInventory(ctx)
	if err != nil {
		return domain.InventoryResponse{}, err
	}
	return domain.InventoryResponse{Records: records}, nil
}

func (s *Service) PurchaseHistory(ctx context.Context) (domain.PurchaseListResponse, error) {
	entries, err := s.repo.ListPurchaseHistory(ctx)
	if err != nil {
		return domain.PurchaseListResponse{}, err
	}
	return buildPurchaseList(entries), nil
}

// RecordSale deducts stock, appends the sale line, and reports a
// low-stock alert when the sale drops the product below the threshold.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResponse, error) {
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if name == "" || category == "" {
		return domain.SaleResponse{}, store.ErrMissingFields
	}
	if req.Quantity <= 0 || math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) {
		return domain.SaleResponse{}, store.ErrInvalidQuantity
	}

	sale := domain.SaleRecord{
		ID:       xid.New("sale"),
		Name:     name,
		Category: category,
		Quantity: req.Quantity,
		SoldAt:   time.Now().UTC(),
	}
	saved, movement, err := s.repo.ExecuteSale(ctx, sale, fallbackUnitPrice)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	resp := domain.SaleResponse{
		Sale:             *saved,
		OriginalQuantity: movement.OriginalQuantity,
		UpdatedQuantity:  movement.UpdatedQuantity,
	}
	if lowStock, fired := s.alerts.CheckLowStock(movement.OriginalQuantity, movement.UpdatedQuantity, movement.Name); fired {
		resp.Alert = lowStock
		s.log.Warn().
			Str("product", lowStock.Product).
			Float64("remaining", lowStock.UpdatedQuantity).
			Msg("stock dropped below low-stock threshold")
	}
	return resp, nil
}

func (s *Service) SalesHistory(ctx context.Context) (domain.SaleHistoryResponse, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.SaleHistoryResponse{}, err
	}

	total := 0.0
	for _, sale := range sales {
		total += sale.Price
	}
	return domain.SaleHistoryResponse{Sales: sales, TotalRevenue: total}, nil
}

// SalesReport aggregates sell history per product over [from, to).
// Either bound may be empty: to defaults to now, from to seven days
// before to. Results are cached briefly since the report is read far
// more often than sales land.
func (s *Service) SalesReport(ctx context.Context, fromRaw string, toRaw string) (domain.SalesReport, error) {
	to := time.Now().UTC()
	if toRaw != "" {
		parsed, err := parseReportTime(toRaw)
		if err != nil {
			return domain.SalesReport{}, err
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -7)
	if fromRaw != "" {
		parsed, err := parseReportTime(fromRaw)
		if err != nil {
			return domain.SalesReport{}, err
		}
		from = parsed
	}
	if !from.Before(to) {
		return domain.SalesReport{}, fmt.Errorf("%w: report window is empty", store.ErrMissingFields)
	}

	cacheKey := "sales-report:" + from.Format(time.RFC3339) + "|" + to.Format(time.RFC3339)
	if cached, ok, err := s.reports.Get(ctx, cacheKey); err != nil {
		s.log.Warn().Err(err).Msg("report cache read failed")
	} else if ok {
		return *cached, nil
	}

	sales, err := s.repo.ListSalesBetween(ctx, from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}

	type rowKey struct {
		category string
		product  string
	}
	byProduct := map[rowKey]*domain.SalesReportRow{}
	total := 0.0
	for _, sale := range sales {
		key := rowKey{category: sale.Category, product: sale.Name}
		row := byProduct[key]
		if row == nil {
			row = &domain.SalesReportRow{Category: sale.Category, Product: sale.Name}
			byProduct[key] = row
		}
		row.Quantity += sale.Quantity
		row.TotalPrice += sale.Price
		total += sale.Price
	}

	rows := make([]domain.SalesReportRow, 0, len(byProduct))
	for _, row := range byProduct {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Category == rows[j].Category {
			return rows[i].Product < rows[j].Product
		}
		return rows[i].Category < rows[j].Category
	})

	report := domain.SalesReport{
		From:         from.Format(time.RFC3339),
		To:           to.Format(time.RFC3339),
		Rows:         rows,
		TotalRevenue: total,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.reports.Set(ctx, cacheKey, &report, s.reportTTL); err != nil {
		s.log.Warn().Err(err).Msg("report cache write failed")
	}
	return report, nil
}

func parseReportTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad report bound %q", store.ErrMissingFields, raw)
	}
	return t.UTC(), nil
}

// CalculateProfitLoss computes sale minus every cost bucket and
// prepends the result to the rolling history. Inputs arrive as raw
// strings; anything non-numeric counts as zero.
func (s *Service) CalculateProfitLoss(ctx context.Context, req domain.ProfitLossRequest) (domain.ProfitLossResponse, error) {
	sale := parseAmount(req.TotalSale)
	stock := parseAmount(req.LoadedStock)
	expenses := parseAmount(req.TotalExpenses)
	remaining := parseAmount(req.RemainingStock)

	amount := sale - (stock + expenses + remaining)
	outcome := domain.OutcomeProfit
	if amount < 0 {
		outcome = domain.OutcomeLoss
	}

	entry := domain.ProfitLossEntry{
		Date:   time.Now().UTC().Format("2006-01-02"),
		Amount: amount,
	}
	history, err := s.repo.PrependProfitLoss(ctx, entry, profitLossHistoryKeep)
	if err != nil {
		return domain.ProfitLossResponse{}, err
	}

	return domain.ProfitLossResponse{Amount: amount, Outcome: outcome, History: history}, nil
}

func parseAmount(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (s *Service) ProfitLossHistory(ctx context.Context) ([]domain.ProfitLossEntry, error) {
	return s.repo.ListProfitLossHistory(ctx)
}

func (s *Service) LowStockWatchlist(_ context.Context) domain.WatchlistResponse {
	return domain.WatchlistResponse{Items: s.alerts.Watchlist()}
}

func (s *Service) AddVehicleDriver(ctx context.Context, record domain.VehicleDriverRecord) error {
	record.Vehicle.VehicleID = strings.TrimSpace(record.Vehicle.VehicleID)
	record.Vehicle.VehicleName = strings.TrimSpace(record.Vehicle.VehicleName)
	record.Driver.DriverName = strings.TrimSpace(record.Driver.DriverName)
	if record.Vehicle.VehicleID == "" || record.Vehicle.VehicleName == "" || record.Driver.DriverName == "" {
		return store.ErrMissingFields
	}
	return s.repo.AppendVehicleDriver(ctx, record)
}

func (s *Service) ListVehicleDrivers(ctx context.Context) (domain.VehicleDriverListResponse, error) {
	records, err := s.repo.ListVehicleDrivers(ctx)
	if err != nil {
		return domain.VehicleDriverListResponse{}, err
	}
	return domain.VehicleDriverListResponse{Records: records}, nil
}

func (s *Service) DeleteVehicleDriver(ctx context.Context, index int) error {
	return s.repo.DeleteVehicleDriver(ctx, index)
}

func buildPurchaseList(entries []domain.PurchaseEntry) domain.PurchaseListResponse {
	total := 0.0
	for _, entry := range entries {
		total += entry.TotalPrice()
	}
	return domain.PurchaseListResponse{Entries: entries, Total: total}
}
