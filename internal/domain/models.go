package domain

import "time"

// PurchaseEntry is one pending intake line: stock bought from a seller
// that has not yet been committed to the inventory table. The JSON tags
// match the persisted `purchases` document layout.
type PurchaseEntry struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

// TotalPrice is the computed line total shown next to an entry.
func (e PurchaseEntry) TotalPrice() float64 {
	return e.Quantity * e.UnitPrice
}

// InventoryRecord is the authoritative stock-on-hand entry for one
// product within one category. Exactly one record exists per
// (category, name) pair; quantity never goes below zero.
type InventoryRecord struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Quantity     float64 `json:"quantity"`
	PricePerUnit float64 `json:"pricePerUnit"`
}

// StockMovement reports the before/after quantities of a single
// inventory deduction so callers can drive low-stock alerting.
type StockMovement struct {
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	PricePerUnit     float64 `json:"price_per_unit"`
	OriginalQuantity float64 `json:"original_quantity"`
	UpdatedQuantity  float64 `json:"updated_quantity"`
}

// SaleRecord is one line of the append-only sell history.
type SaleRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Quantity float64   `json:"quantity"`
	Price    float64   `json:"price"`
	SoldAt   time.Time `json:"sold_at"`
}

type ProfitLossEntry struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type Vehicle struct {
	VehicleID       string `json:"vehicleID"`
	VehicleName     string `json:"vehicleName"`
	VehicleCapacity string `json:"vehicleCapacity"`
}

type Driver struct {
	DriverName    string `json:"driverName"`
	DriverPhone   string `json:"driverPhone"`
	DriverLicense string `json:"driverLicense"`
	DailyWages    string `json:"dailyWages"`
}

type VehicleDriverRecord struct {
	Vehicle Vehicle `json:"vehicle"`
	Driver  Driver  `json:"driver"`
}

// LowStockAlert is emitted when a sale pushes the remaining quantity
// below the threshold fraction of the pre-sale quantity.
type LowStockAlert struct {
	Product          string  `json:"product"`
	UpdatedQuantity  float64 `json:"updated_quantity"`
	OriginalQuantity float64 `json:"original_quantity"`
	Threshold        float64 `json:"threshold"`
}

// WatchItem is one row of the static display watch list. It is seeded
// presentation data, not derived from the inventory engine.
type WatchItem struct {
	Product  string  `json:"product"`
	Quantity float64 `json:"quantity"`
	Message  string  `json:"message,omitempty"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

type CatalogProductCreateRequest struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

type CatalogResponse struct {
	Categories []string            `json:"categories"`
	Products   map[string][]string `json:"products"`
}

// PurchaseEntryRequest carries an add-or-update of a pending intake
// line. EditIndex, when set and in range, replaces that position.
type PurchaseEntryRequest struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"price"`
	EditIndex *int    `json:"edit_index,omitempty"`
}

type PurchaseListResponse struct {
	Entries []PurchaseEntry `json:"entries"`
	Total   float64         `json:"total"`
}

type SubmitBatchResponse struct {
	Committed []InventoryRecord `json:"committed"`
}

type InventoryResponse struct {
	Records []InventoryRecord `json:"records"`
}

type SaleRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
}

type SaleResponse struct {
	Sale             SaleRecord     `json:"sale"`
	OriginalQuantity float64        `json:"original_quantity"`
	UpdatedQuantity  float64        `json:"updated_quantity"`
	Alert            *LowStockAlert `json:"alert,omitempty"`
}

type SaleHistoryResponse struct {
	Sales        []SaleRecord `json:"sales"`
	TotalRevenue float64      `json:"total_revenue"`
}

type SalesReportRow struct {
	Category   string  `json:"category"`
	Product    string  `json:"product"`
	Quantity   float64 `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
}

type SalesReport struct {
	From         string           `json:"from"`
	To           string           `json:"to"`
	Rows         []SalesReportRow `json:"rows"`
	TotalRevenue float64          `json:"total_revenue"`
	GeneratedAt  string           `json:"generated_at"`
}

// ProfitLossRequest fields arrive as raw input-widget strings; any
// value that does not parse as a number counts as zero.
type ProfitLossRequest struct {
	TotalSale      string `json:"total_sale"`
	LoadedStock    string `json:"loaded_stock"`
	TotalExpenses  string `json:"total_expenses"`
	RemainingStock string `json:"remaining_stock"`
}

type ProfitLossResponse struct {
	Amount  float64           `json:"amount"`
	Outcome string            `json:"outcome"`
	History []ProfitLossEntry `json:"history"`
}

type WatchlistResponse struct {
	Items []WatchItem `json:"items"`
}

type VehicleDriverListResponse struct {
	Records []VehicleDriverRecord `json:"records"`
}

const (
	OutcomeProfit = "profit"
	OutcomeLoss   = "loss"
)
