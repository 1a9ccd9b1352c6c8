package models

// Trade sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// TradeRecord is an executed paper trade. Records are immutable once
// created and kept in a capped, most-recent-first history.
type TradeRecord struct {
	ID     string  `json:"id"` // time-derived, e.g. "PT-1724900000000"
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"` // "BUY" or "SELL"
	Price  float64 `json:"price"`
	Lots   float64 `json:"lots"`
	Time   int64   `json:"time"` // unix milliseconds
}
