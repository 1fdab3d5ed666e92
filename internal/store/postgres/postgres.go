package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/VarshaLala06/giribazar/internal/domain"
	"github.com/VarshaLala06/giribazar/internal/store"
	"github.com/VarshaLala06/giribazar/internal/xid"
)

// Store keeps every ledger as a JSONB document in a single documents
// table. Mutations are read-modify-write cycles under a row lock, so
// concurrent writers to the same document serialize.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			key        TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// readDoc loads a document outside any transaction. A missing row
// decodes as the zero value of out.
func (s *Store) readDoc(ctx context.Context, key string, out any) error {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT doc FROM documents WHERE key = $1
	`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", store.ErrPersistence, key, err)
	}
	return decodeDoc(raw, out)
}

// lockDoc selects a document row FOR UPDATE inside tx. A missing row
// returns nil raw bytes without error.
func lockDoc(ctx context.Context, tx *sql.Tx, key string) ([]byte, error) {
	var raw []byte
	err := tx.QueryRowContext(ctx, `
		SELECT doc FROM documents WHERE key = $1 FOR UPDATE
	`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", store.ErrPersistence, key, err)
	}
	return raw, nil
}

func saveDoc(ctx context.Context, tx *sql.Tx, key string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (key, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`, key, encoded)
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", store.ErrPersistence, key, err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	categories := []string{}
	if err := s.readDoc(ctx, docCategories, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.ErrMissingFields
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		raw, err := lockDoc(ctx, tx, docCategories)
		if err != nil {
			return err
		}
		categories := []string{}
		if err := decodeDoc(raw, &categories); err != nil {
			return err
		}
		for _, existing := range categories {
			if existing == name {
				return store.ErrDuplicateCategory
			}
		}
		categories = append(categories, name)
		return saveDoc(ctx, tx, docCategories, categories)
	})
}

func (s *Store) ListCatalogProducts(ctx context.Context, category string) ([]string, error) {
	categories := []string{}
	if err := s.readDoc(ctx, docCategories, &categories); err != nil {
		return nil, err
	}
	if !containsString(categories, category) {
		return nil, store.ErrUnknownCategory
	}

	products := map[string][]string{}
	if err := s.readDoc(ctx, docProducts, &products); err != nil {
		return nil, err
	}
	result := products[category]
	if result == nil {
		result = []string{}
	}
	return result, nil
}

func (s *Store) AddCatalogProduct(ctx context.Context, category string, name string) error {
	category = strings.TrimSpace(category)
	name = strings.TrimSpace(name)
	if category == "" || name == "" {
		return store.ErrMissingFields
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Lock order is fixed (categories before products) so two
		// concurrent catalog writers cannot deadlock.
		rawCategories, err := lockDoc(ctx, tx, docCategories)
		if err != nil {
			return err
		}
		categories := []string{}
		if err := decodeDoc(rawCategories, &categories); err != nil {
			return err
		}
		if !containsString(categories, category) {
			return store.ErrUnknownCategory
		}

		rawProducts, err := lockDoc(ctx, tx, docProducts)
		if err != nil {
			return err
		}
		products := map[string][]string{}
		if err := decodeDoc(rawProducts, &products); err != nil {
			return err
		}
		for _, existing := range products[category] {
			if existing == name {
				return store.ErrDuplicateProduct
			}
		}
		products[category] = append(products[category], name)
		return saveDoc(ctx, tx, docProducts, products)
	})
}

func (s *Store) ListPendingPurchases(ctx context.Context) ([]domain.PurchaseEntry, error) {
	docs := []purchaseDoc{}
	if err := s.readDoc(ctx, docPurchases, &docs); err != nil {
		return nil, err
	}
	entries := make([]domain.PurchaseEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, purchaseFromDoc(d))
	}
	return entries, nil
}

func (s *Store) ReplacePendingPurchases(ctx context.Context, entries []domain.PurchaseEntry) error {
	docs := make([]purchaseDoc, 0, len(entries))
	for _, entry := range entries {
		docs = append(docs, purchaseToDoc(entry))
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := lockDoc(ctx, tx, docPurchases); err != nil {
			return err
		}
		return saveDoc(ctx, tx, docPurchases, docs)
	})
}

func (s *Store) UpsertPendingPurchase(ctx context.Context, entry domain.PurchaseEntry, editIndex *int) ([]domain.PurchaseEntry, error) {
	return s.mutatePending(ctx, func(pending []purchaseDoc) ([]purchaseDoc, error) {
		if editIndex != nil {
			idx := *editIndex
			if idx < 0 || idx >= len(pending) {
				return nil, store.ErrIndexOutOfRange
			}
			pending[idx] = purchaseToDoc(entry)
			return pending, nil
		}
		return append(pending, purchaseToDoc(entry)), nil
	})
}

func (s *Store) DeletePendingPurchase(ctx context.Context, index int) ([]domain.PurchaseEntry, error) {
	return s.mutatePending(ctx, func(pending []purchaseDoc) ([]purchaseDoc, error) {
		if index < 0 || index >= len(pending) {
			return nil, store.ErrIndexOutOfRange
		}
		return append(pending[:index], pending[index+1:]...), nil
	})
}

// mutatePending runs fn against the pending ledger inside one locked
// read-modify-write, so concurrent ledger edits serialise instead of
// overwriting each other.
func (s *Store) mutatePending(ctx context.Context, fn func([]purchaseDoc) ([]purchaseDoc, error)) ([]domain.PurchaseEntry, error) {
	var entries []domain.PurchaseEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		raw, err := lockDoc(ctx, tx, docPurchases)
		if err != nil {
			return err
		}
		pending := []purchaseDoc{}
		if err := decodeDoc(raw, &pending); err != nil {
			return err
		}

		pending, err = fn(pending)
		if err != nil {
			return err
		}
		if err := saveDoc(ctx, tx, docPurchases, pending); err != nil {
			return err
		}

		entries = make([]domain.PurchaseEntry, 0, len(pending))
		for _, d := range pending {
			entries = append(entries, purchaseFromDoc(d))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CommitPendingPurchases moves the whole pending ledger into committed
// inventory in one transaction: every affected row locks before any
// write, and each entry must reference a catalogued category/product,
// so either the full batch lands or the transaction rolls back.
func (s *Store) CommitPendingPurchases(ctx context.Context) ([]domain.InventoryRecord, error) {
	var snapshot []domain.InventoryRecord

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Same categories-then-products order as the catalog writers;
		// holding both keeps the catalog stable while the batch is
		// validated against it.
		rawCategories, err := lockDoc(ctx, tx, docCategories)
		if err != nil {
			return err
		}
		categories := []string{}
		if err := decodeDoc(rawCategories, &categories); err != nil {
			return err
		}

		rawProducts, err := lockDoc(ctx, tx, docProducts)
		if err != nil {
			return err
		}
		products := map[string][]string{}
		if err := decodeDoc(rawProducts, &products); err != nil {
			return err
		}

		rawPending, err := lockDoc(ctx, tx, docPurchases)
		if err != nil {
			return err
		}
		pending := []purchaseDoc{}
		if err := decodeDoc(rawPending, &pending); err != nil {
			return err
		}

		rawInventory, err := lockDoc(ctx, tx, docInventory)
		if err != nil {
			return err
		}
		inventory := []inventoryDoc{}
		if err := decodeDoc(rawInventory, &inventory); err != nil {
			return err
		}

		rawHistory, err := lockDoc(ctx, tx, docPurchaseHistory)
		if err != nil {
			return err
		}
		history := []purchaseDoc{}
		if err := decodeDoc(rawHistory, &history); err != nil {
			return err
		}

		for _, entry := range pending {
			if entry.Name == "" || entry.Category == "" {
				return store.ErrMissingFields
			}
			if entry.Quantity <= 0 {
				return store.ErrInvalidQuantity
			}
			if !containsString(categories, entry.Category) {
				return store.ErrUnknownCategory
			}
			if !containsString(products[entry.Category], entry.Name) {
				return store.ErrProductNotFound
			}
		}

		for _, entry := range pending {
			idx := findInventoryIndex(inventory, entry.Category, entry.Name)
			if idx < 0 {
				inventory = append(inventory, inventoryDoc{
					Name:         entry.Name,
					Category:     entry.Category,
					Quantity:     entry.Quantity,
					PricePerUnit: entry.Price,
				})
			} else {
				inventory[idx].Quantity += entry.Quantity
			}
			history = append(history, entry)
		}

		if err := saveDoc(ctx, tx, docInventory, inventory); err != nil {
			return err
		}
		if err := saveDoc(ctx, tx, docPurchaseHistory, history); err != nil {
			return err
		}
		if err := saveDoc(ctx, tx, docPurchases, []purchaseDoc{}); err != nil {
			return err
		}

		snapshot = make([]domain.InventoryRecord, 0, len(inventory))
		for _, rec := range inventory {
			snapshot = append(snapshot, inventoryFromDoc(rec))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *Store) ListInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	docs := []inventoryDoc{}
	if err := s.readDoc(ctx, docInventory, &docs); err != nil {
		return nil, err
	}
	records := make([]domain.InventoryRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, inventoryFromDoc(d))
	}
	return records, nil
}


// ExecuteSale deducts stock and appends the priced sale record in one
// transaction, locking inventory before the sales ledger. A rejected or
// failed append rolls the deduction back with it.
func (s *Store) ExecuteSale(ctx context.Context, sale domain.SaleRecord, fallbackUnitPrice float64) (*domain.SaleRecord, *domain.StockMovement, error) {
	if sale.Quantity <= 0 || math.IsNaN(sale.Quantity) {
		return nil, nil, store.ErrInvalidQuantity
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now().UTC()
	}

	var movement *domain.StockMovement
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rawInventory, err := lockDoc(ctx, tx, docInventory)
		if err != nil {
			return err
		}
		inventory := []inventoryDoc{}
		if err := decodeDoc(rawInventory, &inventory); err != nil {
			return err
		}

		idx := findInventoryIndex(inventory, sale.Category, sale.Name)
		if idx < 0 {
			return store.ErrProductNotFound
		}
		original := float64(inventory[idx].Quantity)
		if sale.Quantity > original {
			return store.ErrInsufficientStock
		}
		inventory[idx].Quantity = docNumber(original - sale.Quantity)

		unitPrice := float64(inventory[idx].PricePerUnit)
		if unitPrice <= 0 {
			unitPrice = fallbackUnitPrice
		}
		sale.Name = inventory[idx].Name
		sale.Category = inventory[idx].Category
		sale.Price = sale.Quantity * unitPrice

		rawSales, err := lockDoc(ctx, tx, docSellHistory)
		if err != nil {
			return err
		}
		sales := []saleDoc{}
		if err := decodeDoc(rawSales, &sales); err != nil {
			return err
		}
		sales = append(sales, saleToDoc(sale))

		if err := saveDoc(ctx, tx, docInventory, inventory); err != nil {
			return err
		}
		if err := saveDoc(ctx, tx, docSellHistory, sales); err != nil {
			return err
		}

		movement = &domain.StockMovement{
			Name:             inventory[idx].Name,
			Category:         inventory[idx].Category,
			PricePerUnit:     float64(inventory[idx].PricePerUnit),
			OriginalQuantity: original,
			UpdatedQuantity:  float64(inventory[idx].Quantity),
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	saved := sale
	return &saved, movement, nil
}

func (s *Store) ListPurchaseHistory(ctx context.Context) ([]domain.PurchaseEntry, error) {
	docs := []purchaseDoc{}
	if err := s.readDoc(ctx, docPurchaseHistory, &docs); err != nil {
		return nil, err
	}
	entries := make([]domain.PurchaseEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, purchaseFromDoc(d))
	}
	return entries, nil
}


func (s *Store) ListSales(ctx context.Context) ([]domain.SaleRecord, error) {
	docs := []saleDoc{}
	if err := s.readDoc(ctx, docSellHistory, &docs); err != nil {
		return nil, err
	}
	sales := make([]domain.SaleRecord, 0, len(docs))
	for _, d := range docs {
		sales = append(sales, saleFromDoc(d))
	}
	return sales, nil
}

func (s *Store) ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleRecord, error) {
	all, err := s.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.SaleRecord, 0, len(all))
	for _, sale := range all {
		if sale.SoldAt.Before(from) || !sale.SoldAt.Before(to) {
			continue
		}
		result = append(result, sale)
	}
	return result, nil
}

func (s *Store) PrependProfitLoss(ctx context.Context, entry domain.ProfitLossEntry, keep int) ([]domain.ProfitLossEntry, error) {
	var history []domain.ProfitLossEntry

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		raw, err := lockDoc(ctx, tx, docProfitLoss)
		if err != nil {
			return err
		}
		docs := []profitLossDoc{}
		if err := decodeDoc(raw, &docs); err != nil {
			return err
		}

		next := make([]profitLossDoc, 0, len(docs)+1)
		next = append(next, profitLossToDoc(entry))
		next = append(next, docs...)
		if keep > 0 && len(next) > keep {
			next = next[:keep]
		}
		if err := saveDoc(ctx, tx, docProfitLoss, next); err != nil {
			return err
		}

		history = make([]domain.ProfitLossEntry, 0, len(next))
		for _, d := range next {
			history = append(history, profitLossFromDoc(d))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Store) ListProfitLossHistory(ctx context.Context) ([]domain.ProfitLossEntry, error) {
	docs := []profitLossDoc{}
	if err := s.readDoc(ctx, docProfitLoss, &docs); err != nil {
		return nil, err
	}
	history := make([]domain.ProfitLossEntry, 0, len(docs))
	for _, d := range docs {
		history = append(history, profitLossFromDoc(d))
	}
	return history, nil
}

func (s *Store) AppendVehicleDriver(ctx context.Context, record domain.VehicleDriverRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		raw, err := lockDoc(ctx, tx, docVehicleDrivers)
		if err != nil {
			return err
		}
		records := []vehicleDriverDoc{}
		if err := decodeDoc(raw, &records); err != nil {
			return err
		}
		records = append(records, vehicleDriverToDoc(record))
		return saveDoc(ctx, tx, docVehicleDrivers, records)
	})
}

func (s *Store) ListVehicleDrivers(ctx context.Context) ([]domain.VehicleDriverRecord, error) {
	docs := []vehicleDriverDoc{}
	if err := s.readDoc(ctx, docVehicleDrivers, &docs); err != nil {
		return nil, err
	}
	records := make([]domain.VehicleDriverRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, vehicleDriverFromDoc(d))
	}
	return records, nil
}

func (s *Store) DeleteVehicleDriver(ctx context.Context, index int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		raw, err := lockDoc(ctx, tx, docVehicleDrivers)
		if err != nil {
			return err
		}
		records := []vehicleDriverDoc{}
		if err := decodeDoc(raw, &records); err != nil {
			return err
		}
		if index < 0 || index >= len(records) {
			return store.ErrIndexOutOfRange
		}
		records = append(records[:index], records[index+1:]...)
		return saveDoc(ctx, tx, docVehicleDrivers, records)
	})
}

func findInventoryIndex(inventory []inventoryDoc, category string, name string) int {
	for i, rec := range inventory {
		if rec.Category == category && rec.Name == name {
			return i
		}
	}
	return -1
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
