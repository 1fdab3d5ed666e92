package memory

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/VarshaLala06/giribazar/internal/domain"
	"github.com/VarshaLala06/giribazar/internal/store"
	"github.com/VarshaLala06/giribazar/internal/xid"
)

type Store struct {
	mu                 sync.RWMutex
	categories         []string
	productsByCategory map[string][]string
	pendingPurchases   []domain.PurchaseEntry
	inventory          map[string]domain.InventoryRecord
	inventoryOrder     []string
	purchaseHistory    []domain.PurchaseEntry
	sales              []domain.SaleRecord
	profitLossHistory  []domain.ProfitLossEntry
	vehicleDrivers     []domain.VehicleDriverRecord
}

func New() *Store {
	return &Store{
		productsByCategory: make(map[string][]string),
		inventory:          make(map[string]domain.InventoryRecord),
	}
}

// NewSeeded returns a store preloaded with a small produce catalog and
// some committed stock, for dev/demo mode without a database.
func NewSeeded() *Store {
	s := New()
	s.categories = []string{"Vegetables", "Fruits", "Dairy"}
	s.productsByCategory = map[string][]string{
		"Vegetables": {"Tomato", "Onion", "Potato", "Cabbage"},
		"Fruits":     {"Banana", "Mango"},
		"Dairy":      {"Milk", "Curd"},
	}

	seed := []domain.InventoryRecord{
		{Name: "Tomato", Category: "Vegetables", Quantity: 25, PricePerUnit: 20},
		{Name: "Onion", Category: "Vegetables", Quantity: 40, PricePerUnit: 30},
		{Name: "Potato", Category: "Vegetables", Quantity: 60, PricePerUnit: 18},
		{Name: "Banana", Category: "Fruits", Quantity: 12, PricePerUnit: 45},
		{Name: "Milk", Category: "Dairy", Quantity: 20, PricePerUnit: 52},
	}
	for _, rec := range seed {
		key := inventoryKey(rec.Category, rec.Name)
		s.inventory[key] = rec
		s.inventoryOrder = append(s.inventoryOrder, key)
	}
	return s
}

func inventoryKey(category string, name string) string {
	return category + "::" + name
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]string, len(s.categories))
	copy(categories, s.categories)
	return categories, nil
}

func (s *Store) AddCategory(_ context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.ErrMissingFields
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing == name {
			return store.ErrDuplicateCategory
		}
	}
	s.categories = append(s.categories, name)
	if _, ok := s.productsByCategory[name]; !ok {
		s.productsByCategory[name] = []string{}
	}
	return nil
}

func (s *Store) ListCatalogProducts(_ context.Context, category string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products, ok := s.productsByCategory[category]
	if !ok {
		return nil, store.ErrUnknownCategory
	}
	result := make([]string, len(products))
	copy(result, products)
	return result, nil
}

func (s *Store) AddCatalogProduct(_ context.Context, category string, name string) error {
	category = strings.TrimSpace(category)
	name = strings.TrimSpace(name)
	if category == "" || name == "" {
		return store.ErrMissingFields
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, ok := s.productsByCategory[category]
	if !ok {
		return store.ErrUnknownCategory
	}
	for _, existing := range products {
		if existing == name {
			return store.ErrDuplicateProduct
		}
	}
	s.productsByCategory[category] = append(products, name)
	return nil
}

func (s *Store) ListPendingPurchases(_ context.Context) ([]domain.PurchaseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.PurchaseEntry, len(s.pendingPurchases))
	copy(entries, s.pendingPurchases)
	return entries, nil
}

func (s *Store) ReplacePendingPurchases(_ context.Context, entries []domain.PurchaseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.PurchaseEntry, len(entries))
	copy(next, entries)
	s.pendingPurchases = next
	return nil
}

func (s *Store) UpsertPendingPurchase(_ context.Context, entry domain.PurchaseEntry, editIndex *int) ([]domain.PurchaseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if editIndex != nil {
		idx := *editIndex
		if idx < 0 || idx >= len(s.pendingPurchases) {
			return nil, store.ErrIndexOutOfRange
		}
		s.pendingPurchases[idx] = entry
	} else {
		s.pendingPurchases = append(s.pendingPurchases, entry)
	}
	return s.pendingSnapshotLocked(), nil
}

func (s *Store) DeletePendingPurchase(_ context.Context, index int) ([]domain.PurchaseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.pendingPurchases) {
		return nil, store.ErrIndexOutOfRange
	}
	s.pendingPurchases = append(s.pendingPurchases[:index], s.pendingPurchases[index+1:]...)
	return s.pendingSnapshotLocked(), nil
}

func (s *Store) pendingSnapshotLocked() []domain.PurchaseEntry {
	entries := make([]domain.PurchaseEntry, len(s.pendingPurchases))
	copy(entries, s.pendingPurchases)
	return entries
}

// CommitPendingPurchases merges every pending entry into committed
// inventory under one lock, then clears the ledger. Either all entries
// land or none do. Quantities accumulate per product; the unit price is
// fixed by the first intake and later restocks do not change it.
func (s *Store) CommitPendingPurchases(_ context.Context) ([]domain.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-validate the whole batch before touching inventory so a bad
	// entry cannot leave a partial commit behind.
	for _, entry := range s.pendingPurchases {
		if entry.Name == "" || entry.Category == "" {
			return nil, store.ErrMissingFields
		}
		if entry.Quantity <= 0 || math.IsNaN(entry.Quantity) {
			return nil, store.ErrInvalidQuantity
		}
		products, ok := s.productsByCategory[entry.Category]
		if !ok {
			return nil, store.ErrUnknownCategory
		}
		if !containsString(products, entry.Name) {
			return nil, store.ErrProductNotFound
		}
	}

	for _, entry := range s.pendingPurchases {
		key := inventoryKey(entry.Category, entry.Name)
		rec, exists := s.inventory[key]
		if !exists {
			rec = domain.InventoryRecord{
				Name:         entry.Name,
				Category:     entry.Category,
				PricePerUnit: entry.UnitPrice,
			}
			s.inventoryOrder = append(s.inventoryOrder, key)
		}
		rec.Quantity += entry.Quantity
		s.inventory[key] = rec
		s.purchaseHistory = append(s.purchaseHistory, entry)
	}
	s.pendingPurchases = nil

	return s.inventorySnapshotLocked(), nil
}

func (s *Store) ListInventory(_ context.Context) ([]domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.inventorySnapshotLocked(), nil
}

func (s *Store) inventorySnapshotLocked() []domain.InventoryRecord {
	records := make([]domain.InventoryRecord, 0, len(s.inventoryOrder))
	for _, key := range s.inventoryOrder {
		records = append(records, s.inventory[key])
	}
	return records
}


// ExecuteSale deducts stock and appends the priced sale record under a
// single lock section so a rejected or failed sale never leaves a
// half-applied movement behind.
func (s *Store) ExecuteSale(_ context.Context, sale domain.SaleRecord, fallbackUnitPrice float64) (*domain.SaleRecord, *domain.StockMovement, error) {
	if sale.Quantity <= 0 || math.IsNaN(sale.Quantity) {
		return nil, nil, store.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := inventoryKey(sale.Category, sale.Name)
	rec, exists := s.inventory[key]
	if !exists {
		return nil, nil, store.ErrProductNotFound
	}
	if sale.Quantity > rec.Quantity {
		return nil, nil, store.ErrInsufficientStock
	}

	original := rec.Quantity
	rec.Quantity = original - sale.Quantity
	s.inventory[key] = rec

	unitPrice := rec.PricePerUnit
	if unitPrice <= 0 {
		unitPrice = fallbackUnitPrice
	}
	sale.Name = rec.Name
	sale.Category = rec.Category
	sale.Price = sale.Quantity * unitPrice
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now().UTC()
	}
	s.sales = append(s.sales, sale)

	saved := sale
	return &saved, &domain.StockMovement{
		Name:             rec.Name,
		Category:         rec.Category,
		PricePerUnit:     rec.PricePerUnit,
		OriginalQuantity: original,
		UpdatedQuantity:  rec.Quantity,
	}, nil
}

func (s *Store) ListPurchaseHistory(_ context.Context) ([]domain.PurchaseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.PurchaseEntry, len(s.purchaseHistory))
	copy(entries, s.purchaseHistory)
	return entries, nil
}


func (s *Store) ListSales(_ context.Context) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.SaleRecord, len(s.sales))
	copy(sales, s.sales)
	return sales, nil
}

func (s *Store) ListSalesBetween(_ context.Context, from time.Time, to time.Time) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SaleRecord, 0, len(s.sales))
	for _, sale := range s.sales {
		if sale.SoldAt.Before(from) || !sale.SoldAt.Before(to) {
			continue
		}
		result = append(result, sale)
	}
	return result, nil
}

func (s *Store) PrependProfitLoss(_ context.Context, entry domain.ProfitLossEntry, keep int) ([]domain.ProfitLossEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]domain.ProfitLossEntry, 0, len(s.profitLossHistory)+1)
	next = append(next, entry)
	next = append(next, s.profitLossHistory...)
	if keep > 0 && len(next) > keep {
		next = next[:keep]
	}
	s.profitLossHistory = next

	history := make([]domain.ProfitLossEntry, len(next))
	copy(history, next)
	return history, nil
}

func (s *Store) ListProfitLossHistory(_ context.Context) ([]domain.ProfitLossEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]domain.ProfitLossEntry, len(s.profitLossHistory))
	copy(history, s.profitLossHistory)
	return history, nil
}

func (s *Store) AppendVehicleDriver(_ context.Context, record domain.VehicleDriverRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vehicleDrivers = append(s.vehicleDrivers, record)
	return nil
}

func (s *Store) ListVehicleDrivers(_ context.Context) ([]domain.VehicleDriverRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.VehicleDriverRecord, len(s.vehicleDrivers))
	copy(records, s.vehicleDrivers)
	return records, nil
}

func (s *Store) DeleteVehicleDriver(_ context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.vehicleDrivers) {
		return store.ErrIndexOutOfRange
	}
	s.vehicleDrivers = append(s.vehicleDrivers[:index], s.vehicleDrivers[index+1:]...)
	return nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
