package alert

import "github.com/VarshaLala06/giribazar/internal/domain"

// DefaultThreshold is the low-stock fraction: an alert fires when the
// post-sale quantity drops strictly below this share of the pre-sale
// quantity.
const DefaultThreshold = 0.2

type Engine struct {
	threshold   float64
	watchlistOn bool
}

func NewEngine(threshold float64, watchlistOn bool) *Engine {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold, watchlistOn: watchlistOn}
}

// CheckLowStock compares the post-sale quantity against the threshold
// fraction of the pre-sale quantity. It is pure and idempotent; the
// boundary case updated == threshold*original does not fire.
func (e *Engine) CheckLowStock(originalQuantity float64, updatedQuantity float64, product string) (*domain.LowStockAlert, bool) {
	cutoff := originalQuantity * e.threshold
	if updatedQuantity >= cutoff {
		return nil, false
	}
	return &domain.LowStockAlert{
		Product:          product,
		UpdatedQuantity:  updatedQuantity,
		OriginalQuantity: originalQuantity,
		Threshold:        e.threshold,
	}, true
}

// watchlist is seeded display data for the alerts screen. It is not
// derived from inventory and never changes at runtime.
var watchlist = []domain.WatchItem{
	{Product: "Milk Products", Quantity: 10},
	{Product: "Onions", Quantity: 6, Message: "Onions are too low"},
	{Product: "Tomatoes", Quantity: 5, Message: "Tomatoes are too low"},
	{Product: "Potatoes", Quantity: 8, Message: "Potatoes are too low"},
	{Product: "Cabbage", Quantity: 4, Message: "Cabbage stock is low"},
	{Product: "Carrots", Quantity: 7, Message: "Carrots are running out"},
	{Product: "Peppers", Quantity: 3, Message: "Peppers need restocking"},
}

// Watchlist returns the static demonstration feed, or nothing when the
// feed is disabled by configuration.
func (e *Engine) Watchlist() []domain.WatchItem {
	if !e.watchlistOn {
		return []domain.WatchItem{}
	}
	items := make([]domain.WatchItem, len(watchlist))
	copy(items, watchlist)
	return items
}
