package budget

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/procureflow/procureflow/internal/platform/httpx"
	"github.com/procureflow/procureflow/internal/shared"
)

// Handler manages budget endpoints.
type Handler struct {
	logger   *slog.Logger
	ledger   *Ledger
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, ledger *Ledger) *Handler {
	return &Handler{logger: logger, ledger: ledger, validate: validator.New()}
}

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/reserve", h.reserve)
	r.Post("/{id}/release", h.release)
}

type createRequest struct {
	BranchID        int64   `json:"branch_id"`
	DepartmentID    int64   `json:"department_id"`
	CategoryID      int64   `json:"category_id"`
	Name            string  `json:"name" validate:"required"`
	AmountAllocated float64 `json:"amount_allocated" validate:"required,gt=0"`
}

type movementRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type budgetResponse struct {
	ID              int64   `json:"id"`
	BranchID        int64   `json:"branch_id,omitempty"`
	DepartmentID    int64   `json:"department_id,omitempty"`
	CategoryID      int64   `json:"category_id,omitempty"`
	Name            string  `json:"name"`
	AmountAllocated float64 `json:"amount_allocated"`
	AmountReserved  float64 `json:"amount_reserved"`
	Balance         float64 `json:"balance"`
}

func toResponse(b Budget) budgetResponse {
	return budgetResponse{
		ID:              b.ID,
		BranchID:        b.BranchID,
		DepartmentID:    b.DepartmentID,
		CategoryID:      b.CategoryID,
		Name:            b.Name,
		AmountAllocated: b.AmountAllocated,
		AmountReserved:  b.AmountReserved,
		Balance:         b.Balance,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "tenant scope required")
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	b, err := h.ledger.Create(r.Context(), scope, CreateInput{
		BranchID:        req.BranchID,
		DepartmentID:    req.DepartmentID,
		CategoryID:      req.CategoryID,
		Name:            req.Name,
		AmountAllocated: req.AmountAllocated,
	})
	if err != nil {
		h.respondError(w, err, "create budget")
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(b))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "tenant scope required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	budgets, total, err := h.ledger.List(r.Context(), scope, limit, offset)
	if err != nil {
		h.respondError(w, err, "list budgets")
		return
	}
	items := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		items = append(items, toResponse(b))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "tenant scope required")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	b, err := h.ledger.Get(r.Context(), scope, id)
	if err != nil {
		h.respondError(w, err, "get budget")
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.ledger.Reserve, "reserve budget")
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.ledger.Release, "release budget")
}

func (h *Handler) movement(w http.ResponseWriter, r *http.Request, op func(context.Context, shared.Scope, int64, float64) (Budget, error), action string) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "tenant scope required")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	b, err := op(r.Context(), scope, id, req.Amount)
	if err != nil {
		h.respondError(w, err, action)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(b))
}

func (h *Handler) respondError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "budget not found")
	case errors.Is(err, ErrInsufficientFunds):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Funds", err.Error())
	case errors.Is(err, ErrExcessRelease):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
