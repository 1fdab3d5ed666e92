package postgres

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/VarshaLala06/giribazar/internal/domain"
	"github.com/VarshaLala06/giribazar/internal/store"
)

func TestDecodePurchaseDocAcceptsNumericStrings(t *testing.T) {
	raw := []byte(`[{"name":"Tomato","category":"Vegetables","quantity":"12.5","price":20}]`)

	docs := []purchaseDoc{}
	if err := decodeDoc(raw, &docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(docs))
	}
	entry := purchaseFromDoc(docs[0])
	if entry.Quantity != 12.5 {
		t.Fatalf("expected quantity 12.5, got %v", entry.Quantity)
	}
	if entry.UnitPrice != 20 {
		t.Fatalf("expected unit price 20, got %v", entry.UnitPrice)
	}
}

func TestDecodePurchaseDocRejectsNonNumeric(t *testing.T) {
	for _, raw := range []string{
		`[{"name":"Tomato","category":"Vegetables","quantity":"plenty","price":20}]`,
		`[{"name":"Tomato","category":"Vegetables","quantity":null,"price":20}]`,
		`[{"name":"Tomato","category":"Vegetables","quantity":true,"price":20}]`,
		`{"not":"an array"}`,
	} {
		docs := []purchaseDoc{}
		err := decodeDoc([]byte(raw), &docs)
		if !errors.Is(err, store.ErrSchema) {
			t.Fatalf("payload %s: expected ErrSchema, got %v", raw, err)
		}
	}
}

func TestDecodeEmptyDocIsZeroValue(t *testing.T) {
	docs := []inventoryDoc{}
	if err := decodeDoc(nil, &docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty inventory, got %d records", len(docs))
	}
}

func TestInventoryDocRoundTrip(t *testing.T) {
	records := []domain.InventoryRecord{
		{Name: "Tomato", Category: "Vegetables", Quantity: 7, PricePerUnit: 20},
		{Name: "Milk", Category: "Dairy", Quantity: 12.5, PricePerUnit: 52},
	}

	docs := make([]inventoryDoc, 0, len(records))
	for _, rec := range records {
		docs = append(docs, inventoryToDoc(rec))
	}
	encoded, err := json.Marshal(docs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded := []inventoryDoc{}
	if err := decodeDoc(encoded, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, d := range decoded {
		if inventoryFromDoc(d) != records[i] {
			t.Fatalf("record %d changed across round trip: %+v", i, d)
		}
	}

	// A clean document re-encodes to the same bytes, so unchanged
	// writes never churn the stored JSONB.
	reencoded, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if string(encoded) != string(reencoded) {
		t.Fatalf("round trip not byte-stable:\n  first:  %s\n  second: %s", encoded, reencoded)
	}
}

func TestDocNumberMarshalsAsNumber(t *testing.T) {
	encoded, err := json.Marshal(docNumber(12.5))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != "12.5" {
		t.Fatalf("expected 12.5, got %s", encoded)
	}
}
