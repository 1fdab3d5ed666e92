package store

import (
	"context"
	"errors"
	"time"

	"github.com/VarshaLala06/giribazar/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrDuplicateProduct  = errors.New("product already exists in category")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrMissingFields     = errors.New("missing or invalid fields")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrSchema            = errors.New("malformed persisted document")
	ErrPersistence       = errors.New("persistence failure")
)

// Repository is the persistence contract shared by the in-memory and
// postgres document stores. Every mutating call persists its full
// document synchronously before returning success, and each
// implementation serialises access per document so the read-modify-write
// cycle is single-flight.
type Repository interface {
	// Catalog.
	ListCategories(ctx context.Context) ([]string, error)
	AddCategory(ctx context.Context, name string) error
	ListCatalogProducts(ctx context.Context, category string) ([]string, error)
	AddCatalogProduct(ctx context.Context, category string, name string) error

	// Pending purchase ledger. Upsert and delete mutate the persisted
	// list in one locked read-modify-write, so concurrent callers
	// cannot overwrite each other's entries.
	ListPendingPurchases(ctx context.Context) ([]domain.PurchaseEntry, error)
	// UpsertPendingPurchase appends the entry, or replaces in place
	// when editIndex is set; an out-of-range editIndex fails with
	// ErrIndexOutOfRange. Returns the updated pending list.
	UpsertPendingPurchase(ctx context.Context, entry domain.PurchaseEntry, editIndex *int) ([]domain.PurchaseEntry, error)
	DeletePendingPurchase(ctx context.Context, index int) ([]domain.PurchaseEntry, error)
	ReplacePendingPurchases(ctx context.Context, entries []domain.PurchaseEntry) error
	// CommitPendingPurchases atomically moves every pending entry into
	// the inventory table (create-or-increase, first committed price
	// wins), appends the batch to the intake history, and clears the
	// pending list. On any validation failure nothing is committed.
	CommitPendingPurchases(ctx context.Context) ([]domain.InventoryRecord, error)

	// Committed inventory.
	ListInventory(ctx context.Context) ([]domain.InventoryRecord, error)
	ListPurchaseHistory(ctx context.Context) ([]domain.PurchaseEntry, error)

	// Sales ledger (append-only).
	// ExecuteSale deducts the sale quantity from the matching inventory
	// record and appends the priced SaleRecord to the sales ledger in
	// one atomic operation: an oversell or a failed append leaves both
	// untouched. The record price is quantity times the inventory
	// reference price, or times fallbackUnitPrice when the reference
	// price is unknown.
	ExecuteSale(ctx context.Context, sale domain.SaleRecord, fallbackUnitPrice float64) (*domain.SaleRecord, *domain.StockMovement, error)
	ListSales(ctx context.Context) ([]domain.SaleRecord, error)
	ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleRecord, error)

	// Profit/loss rolling history, newest first.
	PrependProfitLoss(ctx context.Context, entry domain.ProfitLossEntry, keep int) ([]domain.ProfitLossEntry, error)
	ListProfitLossHistory(ctx context.Context) ([]domain.ProfitLossEntry, error)

	// Vehicle/driver logistics records.
	AppendVehicleDriver(ctx context.Context, record domain.VehicleDriverRecord) error
	ListVehicleDrivers(ctx context.Context) ([]domain.VehicleDriverRecord, error)
	DeleteVehicleDriver(ctx context.Context, index int) error
}
