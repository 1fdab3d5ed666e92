package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/VarshaLala06/giribazar/internal/domain"
	"github.com/VarshaLala06/giribazar/internal/store"
)

func TestCommitPendingPurchasesIntegration(t *testing.T) {
	databaseURL := os.Getenv("GIRIBAZAR_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set GIRIBAZAR_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	keys := []string{docCategories, docProducts, docPurchases, docInventory, docPurchaseHistory, docSellHistory}
	reset := func() {
		for _, key := range keys {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = $1`, key)
		}
	}
	reset()
	t.Cleanup(reset)

	if err := s.AddCategory(ctx, "Vegetables"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	for _, name := range []string{"Tomato", "Onion"} {
		if err := s.AddCatalogProduct(ctx, "Vegetables", name); err != nil {
			t.Fatalf("add product %s: %v", name, err)
		}
	}

	pending := []domain.PurchaseEntry{
		{Name: "Tomato", Category: "Vegetables", Quantity: 10, UnitPrice: 20},
		{Name: "Tomato", Category: "Vegetables", Quantity: 5, UnitPrice: 25},
		{Name: "Onion", Category: "Vegetables", Quantity: 8, UnitPrice: 30},
	}
	if err := s.ReplacePendingPurchases(ctx, pending); err != nil {
		t.Fatalf("replace pending: %v", err)
	}

	inventory, err := s.CommitPendingPurchases(ctx)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(inventory) != 2 {
		t.Fatalf("expected 2 inventory records, got %d", len(inventory))
	}
	tomato := inventory[0]
	if tomato.Name != "Tomato" || tomato.Quantity != 15 {
		t.Fatalf("expected Tomato qty 15, got %+v", tomato)
	}
	// The first intake fixes the unit price; the restock at 25 must not move it.
	if tomato.PricePerUnit != 20 {
		t.Fatalf("expected Tomato price 20, got %v", tomato.PricePerUnit)
	}

	remaining, err := s.ListPendingPurchases(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("pending ledger must be empty after commit, got %d", len(remaining))
	}

	history, err := s.ListPurchaseHistory(ctx)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}

	sale := domain.SaleRecord{Name: "Tomato", Category: "Vegetables", Quantity: 3}
	saved, movement, err := s.ExecuteSale(ctx, sale, 0.9)
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if movement.OriginalQuantity != 15 || movement.UpdatedQuantity != 12 {
		t.Fatalf("unexpected movement: %+v", movement)
	}
	if saved.Price != 60 {
		t.Fatalf("expected sale amount 60, got %v", saved.Price)
	}

	if _, _, err := s.ExecuteSale(ctx, domain.SaleRecord{Name: "Tomato", Category: "Vegetables", Quantity: 100}, 0.9); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("rejected sale must not reach the ledger, got %d records", len(sales))
	}
}
