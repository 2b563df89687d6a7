package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
)

func TestAdmin_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/admin/wishlists/products/42/count", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/admin/wishlists/products/42/count", nil,
		withAuth(bearer(t, "7", "customer")))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	ts.items.AssertNotCalled(t, "CountByProduct", mock.Anything, mock.Anything)
}

func TestAdmin_CountByProduct(t *testing.T) {
	ts := newTestServer(t)
	ts.items.On("CountByProduct", mock.Anything, "42").Return(4, nil)

	rec := ts.do(http.MethodGet, "/api/v1/admin/wishlists/products/42/count", nil,
		withAuth(bearer(t, "1", "admin")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"product_id":"42","count":4}`, string(decodeEnvelope(t, rec).Data))
}

func TestAdmin_Export(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/admin/wishlists/export", nil, withAuth(bearer(t, "1", "admin")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="wishlists-\d{4}-\d{2}-\d{2}\.csv"$`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "l1,42")
}

func TestAdmin_ExportUnknownFormat(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/admin/wishlists/export?format=xml", nil, withAuth(bearer(t, "1", "admin")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_TriggerJobs(t *testing.T) {
	ts := newTestServer(t)
	auth := withAuth(bearer(t, "1", "admin"))

	rec := ts.do(http.MethodPost, "/api/v1/admin/wishlists/jobs/price-drops", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"job":"price-drops","status":"completed"}`, string(decodeEnvelope(t, rec).Data))

	rec = ts.do(http.MethodPost, "/api/v1/admin/wishlists/jobs/sweep", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{JobPriceDrops, JobSweep}, ts.jobs.triggered)
}

func TestAdmin_TriggerJobAlreadyRunning(t *testing.T) {
	ts := newTestServer(t)
	ts.jobs.err = apperrors.Conflict("sweep: job is already running")

	rec := ts.do(http.MethodPost, "/api/v1/admin/wishlists/jobs/sweep", nil, withAuth(bearer(t, "1", "admin")))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeEnvelope(t, rec).Error.Code)
}
