package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

func seedExport(t *testing.T, h *harness) {
	t.Helper()
	h.catalog.put("42", "50.00")
	_, err := h.items.Add(context.Background(), domain.AccountOwner("7"), AddItemInput{ProductID: "42"})
	require.NoError(t, err)
	h.catalog.put("43", "")
	_, err = h.items.Add(context.Background(), domain.SessionOwner("s1"), AddItemInput{ProductID: "43"})
	require.NoError(t, err)
}

func TestExport_CSV(t *testing.T) {
	h := newHarness()
	seedExport(t, h)

	var buf bytes.Buffer
	n, err := h.export.Export(context.Background(), domain.ExportCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.ExportHeader, records[0])
	assert.Equal(t, "account", records[1][2])
	assert.Equal(t, "7", records[1][3])
	assert.Equal(t, "50.00", records[1][5])
	assert.Equal(t, "session", records[2][2])
	assert.Equal(t, "", records[2][5])
}

func TestExport_JSON(t *testing.T) {
	h := newHarness()
	seedExport(t, h)

	var buf bytes.Buffer
	n, err := h.export.Export(context.Background(), domain.ExportJSON, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "42", rows[0]["product_id"])
	assert.Equal(t, "account", rows[0]["owner_type"])
}

func TestExport_JSONEmpty(t *testing.T) {
	h := newHarness()
	var buf bytes.Buffer
	n, err := h.export.Export(context.Background(), domain.ExportJSON, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.JSONEq(t, `[]`, buf.String())
}
