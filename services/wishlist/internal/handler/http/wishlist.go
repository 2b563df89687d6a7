package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/pkg/httputil"
	"github.com/utafrali/EcommerceGo/pkg/pagination"
	"github.com/utafrali/EcommerceGo/pkg/validator"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/identity"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/repository"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/service"
)

// MergeRunner merges a guest session's lists into an account.
type MergeRunner interface {
	MergeOnLogin(ctx context.Context, sessionToken, accountID string) (domain.MergeResult, error)
	MergeOnRegister(ctx context.Context, sessionToken, accountID string) (domain.MergeResult, error)
}

// SessionEnder drops a guest session after its lists were merged.
type SessionEnder interface {
	EndSession(ctx context.Context, w http.ResponseWriter, token string) error
}

// WishlistHandler handles the shopper-facing wishlist endpoints.
type WishlistHandler struct {
	lists    *service.ListService
	items    *service.ItemService
	merges   MergeRunner
	sessions SessionEnder
	notices  repository.NoticeStore
	logger   *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(
	lists *service.ListService,
	items *service.ItemService,
	merges MergeRunner,
	sessions SessionEnder,
	notices repository.NoticeStore,
	logger *slog.Logger,
) *WishlistHandler {
	return &WishlistHandler{
		lists:    lists,
		items:    items,
		merges:   merges,
		sessions: sessions,
		notices:  notices,
		logger:   logger,
	}
}

// listResponse is a list plus its valid item count.
type listResponse struct {
	*domain.List
	ItemCount int `json:"item_count"`
}

type membershipResponse struct {
	ProductID string `json:"product_id"`
	InList    bool   `json:"in_list"`
}

// ListLists handles GET /api/v1/wishlists.
func (h *WishlistHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	actor := identity.OwnerFromContext(r.Context())
	lists, err := h.lists.ListFor(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: lists})
}

// CreateList handles POST /api/v1/wishlists.
func (h *WishlistHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req service.ListInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	actor := identity.OwnerFromContext(r.Context())
	list, err := h.lists.Create(r.Context(), actor, actor, req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: list})
}

// DefaultList handles GET /api/v1/wishlists/default.
func (h *WishlistHandler) DefaultList(w http.ResponseWriter, r *http.Request) {
	actor := identity.OwnerFromContext(r.Context())
	list, err := h.lists.DefaultFor(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeList(w, r, actor, list)
}

// GetList handles GET /api/v1/wishlists/{listId}.
func (h *WishlistHandler) GetList(w http.ResponseWriter, r *http.Request) {
	listID, ok := httputil.ParseUUID(w, chi.URLParam(r, "listId"))
	if !ok {
		return
	}
	actor := identity.OwnerFromContext(r.Context())
	list, err := h.lists.Get(r.Context(), actor, listID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeList(w, r, actor, list)
}

func (h *WishlistHandler) writeList(w http.ResponseWriter, r *http.Request, actor domain.Owner, list *domain.List) {
	count, err := h.items.Count(r.Context(), actor, list.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: listResponse{List: list, ItemCount: count}})
}

// RenameList handles PUT /api/v1/wishlists/{listId}.
func (h *WishlistHandler) RenameList(w http.ResponseWriter, r *http.Request) {
	listID, ok := httputil.ParseUUID(w, chi.URLParam(r, "listId"))
	if !ok {
		return
	}
	var req service.ListInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	actor := identity.OwnerFromContext(r.Context())
	list, err := h.lists.Rename(r.Context(), actor, listID.String(), req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: list})
}

// DeleteList handles DELETE /api/v1/wishlists/{listId}.
func (h *WishlistHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	listID, ok := httputil.ParseUUID(w, chi.URLParam(r, "listId"))
	if !ok {
		return
	}
	actor := identity.OwnerFromContext(r.Context())
	if err := h.lists.Delete(r.Context(), actor, listID.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListItems handles GET /api/v1/wishlists/{listId}/items.
func (h *WishlistHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	listID, ok := httputil.ParseUUID(w, chi.URLParam(r, "listId"))
	if !ok {
		return
	}
	actor := identity.OwnerFromContext(r.Context())
	params := pagination.FromRequest(r)
	items, total, err := h.items.ListItems(r.Context(), actor, listID.String(), params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(items, total, params))
}

// AddItem handles POST /api/v1/wishlists/items.
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item, err := h.items.Add(r.Context(), identity.OwnerFromContext(r.Context()), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: item})
}

// RemoveItem handles DELETE /api/v1/wishlists/items/{productId}.
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor := identity.OwnerFromContext(r.Context())
	productID := chi.URLParam(r, "productId")
	if err := h.items.Remove(r.Context(), actor, productID, r.URL.Query().Get("list_id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IsInList handles GET /api/v1/wishlists/items/{productId}.
func (h *WishlistHandler) IsInList(w http.ResponseWriter, r *http.Request) {
	actor := identity.OwnerFromContext(r.Context())
	productID := chi.URLParam(r, "productId")
	found, err := h.items.IsInList(r.Context(), actor, productID, r.URL.Query().Get("list_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: membershipResponse{ProductID: productID, InList: found},
	})
}

// MoveToCart handles POST /api/v1/wishlists/items/{productId}/cart. An
// empty body moves one unit out of the default list.
func (h *WishlistHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	var req service.MoveToCartInput
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(w, r, &req); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	actor := identity.OwnerFromContext(r.Context())
	res, err := h.items.MoveToCart(r.Context(), actor, chi.URLParam(r, "productId"), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// PopNotices handles GET /api/v1/wishlists/notices. Notices are returned
// once and then discarded.
func (h *WishlistHandler) PopNotices(w http.ResponseWriter, r *http.Request) {
	actor := identity.OwnerFromContext(r.Context())
	if !actor.IsAccount() {
		httputil.WriteError(w, r, apperrors.Unauthorized("sign in to see notices"), h.logger)
		return
	}
	notices, err := h.notices.Pop(r.Context(), actor.ID())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if notices == nil {
		notices = []domain.Notice{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: notices})
}

// MergeOnLogin handles POST /api/v1/wishlists/merge/login.
func (h *WishlistHandler) MergeOnLogin(w http.ResponseWriter, r *http.Request) {
	h.merge(w, r, h.merges.MergeOnLogin)
}

// MergeOnRegister handles POST /api/v1/wishlists/merge/register.
func (h *WishlistHandler) MergeOnRegister(w http.ResponseWriter, r *http.Request) {
	h.merge(w, r, h.merges.MergeOnRegister)
}

func (h *WishlistHandler) merge(
	w http.ResponseWriter,
	r *http.Request,
	run func(ctx context.Context, sessionToken, accountID string) (domain.MergeResult, error),
) {
	actor := identity.OwnerFromContext(r.Context())
	if !actor.IsAccount() {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}
	token := identity.SessionFromContext(r.Context())
	res, err := run(r.Context(), token, actor.ID())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	// Keep the session while anything is left behind in it.
	if token != "" && res.Failed == 0 {
		if err := h.sessions.EndSession(r.Context(), w, token); err != nil {
			h.logger.WarnContext(r.Context(), "could not end merged guest session",
				slog.String("error", err.Error()),
			)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// Popular handles GET /api/v1/wishlists/popular.
func (h *WishlistHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			httputil.WriteError(w, r, apperrors.InvalidInput("limit must be a non-negative integer"), h.logger)
			return
		}
		limit = v
	}
	products, err := h.items.Popular(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}
