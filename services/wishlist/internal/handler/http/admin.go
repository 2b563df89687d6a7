package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/pkg/httputil"
	"github.com/utafrali/EcommerceGo/pkg/slug"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/service"
)

// Job names exposed through the admin trigger endpoints.
const (
	JobPriceDrops = "price-drops"
	JobSweep      = "sweep"
)

// JobTrigger runs a registered background job on demand.
type JobTrigger interface {
	Trigger(ctx context.Context, name string) error
}

// Exporter streams every list item in the requested format.
type Exporter interface {
	Export(ctx context.Context, format domain.ExportFormat, w io.Writer) (int, error)
}

// AdminHandler handles the operator endpoints.
type AdminHandler struct {
	items  *service.ItemService
	export Exporter
	jobs   JobTrigger
	logger *slog.Logger
	now    func() time.Time
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(items *service.ItemService, export Exporter, jobs JobTrigger, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		items:  items,
		export: export,
		jobs:   jobs,
		logger: logger,
		now:    time.Now,
	}
}

type productCountResponse struct {
	ProductID string `json:"product_id"`
	Count     int    `json:"count"`
}

type jobResponse struct {
	Job    string `json:"job"`
	Status string `json:"status"`
}

// CountByProduct handles GET /api/v1/admin/wishlists/products/{productId}/count.
func (h *AdminHandler) CountByProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	n, err := h.items.CountByProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: productCountResponse{ProductID: productID, Count: n},
	})
}

// Export handles GET /api/v1/admin/wishlists/export. Once streaming has
// started a failure can only be logged.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := domain.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	filename := slug.Generate("wishlists "+h.now().UTC().Format("2006-01-02"), 64) + "." + string(format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	n, err := h.export.Export(r.Context(), format, w)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "wishlist export aborted",
			slog.String("format", string(format)),
			slog.Int("rows", n),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.InfoContext(r.Context(), "wishlist export finished",
		slog.String("format", string(format)),
		slog.Int("rows", n),
	)
}

// RunPriceDrops handles POST /api/v1/admin/wishlists/jobs/price-drops.
func (h *AdminHandler) RunPriceDrops(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, JobPriceDrops)
}

// RunSweep handles POST /api/v1/admin/wishlists/jobs/sweep.
func (h *AdminHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, JobSweep)
}

func (h *AdminHandler) trigger(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.jobs.Trigger(r.Context(), name); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: jobResponse{Job: name, Status: "completed"},
	})
}
