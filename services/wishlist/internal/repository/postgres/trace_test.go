package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		tp.Shutdown(context.Background()) //nolint:errcheck
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestListRepository_GetByID_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	repo, mock := newListTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM wishlist_lists WHERE id = ").
		WithArgs("list-1").
		WillReturnRows(accountListRow(pgxmock.NewRows(listCols), "list-1", "7", "Gifts", true))

	_, err := repo.GetByID(context.Background(), "list-1")
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.ListRepository.GetByID", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestItemRepository_Exists_SpanCarriesError(t *testing.T) {
	exporter := setupTestTracer(t)
	repo, mock := newItemTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("list-1", "42").
		WillReturnError(pgx.ErrTxClosed)

	_, err := repo.Exists(context.Background(), "list-1", "42")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.ItemRepository.Exists", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
