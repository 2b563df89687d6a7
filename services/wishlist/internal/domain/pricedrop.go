package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PriceDrop is one item whose current catalog price fell far enough below
// its snapshot.
type PriceDrop struct {
	Owner       Owner           `json:"-"`
	ListID      string          `json:"list_id"`
	ItemID      string          `json:"item_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Permalink   string          `json:"permalink,omitempty"`
	OldPrice    decimal.Decimal `json:"old_price"`
	NewPrice    decimal.Decimal `json:"new_price"`
	DropPct     decimal.Decimal `json:"drop_pct"`
	// Notify is false when the drop was already reported at this price or
	// lower, or when the owner is anonymous.
	Notify bool `json:"-"`
}

// DropPercent returns (old - current) / old * 100 rounded to two places for
// display. Zero is returned for non-positive old prices.
func DropPercent(old, current decimal.Decimal) decimal.Decimal {
	if !old.IsPositive() {
		return decimal.Zero
	}
	return old.Sub(current).Div(old).Mul(hundred).Round(2)
}

// IsDrop reports whether moving from old to current is a drop of at least
// thresholdPct percent. The comparison is exact: (old - current) * 100 is
// checked against thresholdPct * old so no rounding can lift a drop over the
// threshold.
func IsDrop(old, current, thresholdPct decimal.Decimal) bool {
	if !old.IsPositive() || current.GreaterThanOrEqual(old) {
		return false
	}
	return old.Sub(current).Mul(hundred).GreaterThanOrEqual(thresholdPct.Mul(old))
}

// ScanReport summarizes one price-drop scan.
type ScanReport struct {
	Scanned    int         `json:"scanned"`
	Candidates int         `json:"candidates"`
	Notified   int         `json:"notified_accounts"`
	Suppressed int         `json:"suppressed"`
	Anonymous  int         `json:"anonymous"`
	Failed     int         `json:"failed"`
	Drops      []PriceDrop `json:"drops"`
}
