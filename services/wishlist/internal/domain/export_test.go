package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportCSV, f)

	f, err = ParseExportFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, ExportJSON, f)
	assert.Equal(t, "application/json", f.ContentType())

	_, err = ParseExportFormat("xml")
	assert.Error(t, err)
}

func TestExportRow_Record(t *testing.T) {
	row := ExportRow{
		ListID:        "l1",
		ListName:      "Gifts",
		OwnerType:     OwnerAccount,
		OwnerID:       "7",
		ProductID:     "42",
		PriceSnapshot: decimal.NewNullDecimal(decimal.RequireFromString("50")),
		AddedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	assert.Equal(t, []string{"l1", "Gifts", "account", "7", "42", "50.00", "2026-01-02T03:04:05Z"}, row.Record())
	assert.Len(t, row.Record(), len(ExportHeader))

	row.PriceSnapshot = decimal.NullDecimal{}
	assert.Equal(t, "", row.Record()[5])
}
