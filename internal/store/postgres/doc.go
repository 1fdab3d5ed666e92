package postgres

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/VarshaLala06/giribazar/internal/domain"
	"github.com/VarshaLala06/giribazar/internal/store"
)

// Document keys. Each key maps to one JSONB row in the documents table.
const (
	docCategories      = "categories"
	docProducts        = "products"
	docPurchases       = "purchases"
	docInventory       = "inventory"
	docPurchaseHistory = "purchaseHistory"
	docSellHistory     = "sellHistory"
	docProfitLoss      = "profitLossHistory"
	docVehicleDrivers  = "vehicleDriverHistory"
)

// docNumber tolerates numbers stored either as JSON numbers or as
// numeric strings, which older exports of these documents contain.
// Anything else fails the read with ErrSchema.
type docNumber float64

func (n *docNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: missing numeric value", store.ErrSchema)
	}
	raw := string(data)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", store.ErrSchema, err)
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not numeric", store.ErrSchema, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %q is not a finite number", store.ErrSchema, raw)
	}
	*n = docNumber(v)
	return nil
}

func (n docNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(n))
}

type purchaseDoc struct {
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Quantity docNumber `json:"quantity"`
	Price    docNumber `json:"price"`
}

type inventoryDoc struct {
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Quantity     docNumber `json:"quantity"`
	PricePerUnit docNumber `json:"pricePerUnit"`
}

type saleDoc struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Quantity docNumber `json:"quantity"`
	Price    docNumber `json:"price"`
	SoldAt   time.Time `json:"soldAt"`
}

type profitLossDoc struct {
	Date   string    `json:"date"`
	Amount docNumber `json:"amount"`
}

type vehicleDoc struct {
	VehicleID       string `json:"vehicleID"`
	VehicleName     string `json:"vehicleName"`
	VehicleCapacity string `json:"vehicleCapacity"`
}

type driverDoc struct {
	DriverName    string `json:"driverName"`
	DriverPhone   string `json:"driverPhone"`
	DriverLicense string `json:"driverLicense"`
	DailyWages    string `json:"dailyWages"`
}

type vehicleDriverDoc struct {
	Vehicle vehicleDoc `json:"vehicle"`
	Driver  driverDoc  `json:"driver"`
}

func purchaseFromDoc(d purchaseDoc) domain.PurchaseEntry {
	return domain.PurchaseEntry{
		Name:      d.Name,
		Category:  d.Category,
		Quantity:  float64(d.Quantity),
		UnitPrice: float64(d.Price),
	}
}

func purchaseToDoc(e domain.PurchaseEntry) purchaseDoc {
	return purchaseDoc{
		Name:     e.Name,
		Category: e.Category,
		Quantity: docNumber(e.Quantity),
		Price:    docNumber(e.UnitPrice),
	}
}

func inventoryFromDoc(d inventoryDoc) domain.InventoryRecord {
	return domain.InventoryRecord{
		Name:         d.Name,
		Category:     d.Category,
		Quantity:     float64(d.Quantity),
		PricePerUnit: float64(d.PricePerUnit),
	}
}

func inventoryToDoc(r domain.InventoryRecord) inventoryDoc {
	return inventoryDoc{
		Name:         r.Name,
		Category:     r.Category,
		Quantity:     docNumber(r.Quantity),
		PricePerUnit: docNumber(r.PricePerUnit),
	}
}

func saleFromDoc(d saleDoc) domain.SaleRecord {
	return domain.SaleRecord{
		ID:       d.ID,
		Name:     d.Name,
		Category: d.Category,
		Quantity: float64(d.Quantity),
		Price:    float64(d.Price),
		SoldAt:   d.SoldAt,
	}
}

func saleToDoc(s domain.SaleRecord) saleDoc {
	return saleDoc{
		ID:       s.ID,
		Name:     s.Name,
		Category: s.Category,
		Quantity: docNumber(s.Quantity),
		Price:    docNumber(s.Price),
		SoldAt:   s.SoldAt,
	}
}

func profitLossFromDoc(d profitLossDoc) domain.ProfitLossEntry {
	return domain.ProfitLossEntry{Date: d.Date, Amount: float64(d.Amount)}
}

func profitLossToDoc(e domain.ProfitLossEntry) profitLossDoc {
	return profitLossDoc{Date: e.Date, Amount: docNumber(e.Amount)}
}

func vehicleDriverFromDoc(d vehicleDriverDoc) domain.VehicleDriverRecord {
	return domain.VehicleDriverRecord{
		Vehicle: domain.Vehicle(d.Vehicle),
		Driver:  domain.Driver(d.Driver),
	}
}

func vehicleDriverToDoc(r domain.VehicleDriverRecord) vehicleDriverDoc {
	return vehicleDriverDoc{
		Vehicle: vehicleDoc(r.Vehicle),
		Driver:  driverDoc(r.Driver),
	}
}

// decodeDoc unmarshals a stored document into out, mapping malformed
// payloads to ErrSchema so callers can distinguish bad data from
// transport failures.
func decodeDoc(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if errors.Is(err, store.ErrSchema) {
			return err
		}
		return fmt.Errorf("%w: %v", store.ErrSchema, err)
	}
	return nil
}
