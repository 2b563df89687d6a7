package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

// ParseExportFormat accepts "csv" or "json" case-insensitively; empty means csv.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return ExportCSV, nil
	case "json":
		return ExportJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	if f == ExportJSON {
		return "application/json"
	}
	return "text/csv"
}

// ExportRow is one item joined with its list and owner identity.
type ExportRow struct {
	ListID        string              `json:"list_id"`
	ListName      string              `json:"list_name"`
	OwnerType     OwnerKind           `json:"owner_type"`
	OwnerID       string              `json:"owner_id"`
	ProductID     string              `json:"product_id"`
	PriceSnapshot decimal.NullDecimal `json:"price_snapshot"`
	AddedAt       time.Time           `json:"added_at"`
}

// ExportHeader is the CSV header row.
var ExportHeader = []string{"list_id", "list_name", "owner_type", "owner_id", "product_id", "price_snapshot", "added_at"}

// Record renders the row as CSV fields in ExportHeader order.
func (r ExportRow) Record() []string {
	price := ""
	if r.PriceSnapshot.Valid {
		price = r.PriceSnapshot.Decimal.StringFixed(2)
	}
	return []string{
		r.ListID,
		r.ListName,
		string(r.OwnerType),
		r.OwnerID,
		r.ProductID,
		price,
		r.AddedAt.UTC().Format(time.RFC3339),
	}
}
