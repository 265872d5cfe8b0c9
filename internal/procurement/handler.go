package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/procureflow/procureflow/internal/budget"
	"github.com/procureflow/procureflow/internal/platform/httpx"
	"github.com/procureflow/procureflow/internal/shared"
)

// Handler manages requisition and purchase order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	summary  *SummaryCache
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, summary *SummaryCache) *Handler {
	return &Handler{logger: logger, service: service, summary: summary, validate: validator.New()}
}

// MountRoutes registers requisition routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/summary", h.statusSummary)
	r.Get("/{id}", h.get)
	r.Post("/{id}/items", h.addItem)
	r.Patch("/{id}/items/{itemID}", h.updateItem)
	r.Delete("/{id}/items/{itemID}", h.removeItem)
	r.Post("/{id}/items/{itemID}/supplier", h.assignSupplier)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/save", h.saveForLater)
	r.Post("/{id}/review", h.submitForReview)
	r.Post("/{id}/decide", h.decide)
	r.Get("/{id}/orders", h.listRequisitionOrders)
}

// MountOrderRoutes registers purchase order routes.
func (h *Handler) MountOrderRoutes(r chi.Router) {
	r.Get("/", h.listOrders)
	r.Get("/{id}", h.getOrder)
}

type lineItemRequest struct {
	ItemName   string  `json:"item_name" validate:"required"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
	PRQuantity float64 `json:"pr_quantity" validate:"gt=0"`
	SupplierID int64   `json:"supplier_id"`
}

type createRequest struct {
	Department    string            `json:"department"`
	Branch        string            `json:"branch"`
	NeededByDate  string            `json:"needed_by_date"`
	Justification string            `json:"justification"`
	Items         []lineItemRequest `json:"items" validate:"dive"`
}

type lineItemResponse struct {
	ID         int64   `json:"id"`
	OrderID    int64   `json:"order_id,omitempty"`
	SupplierID int64   `json:"supplier_id,omitempty"`
	ItemName   string  `json:"item_name"`
	UnitPrice  float64 `json:"unit_price"`
	PRQuantity float64 `json:"pr_quantity"`
	POQuantity float64 `json:"po_quantity,omitempty"`
	Status     string  `json:"status"`
}

type requisitionResponse struct {
	ID            int64              `json:"id"`
	Number        string             `json:"number"`
	Status        string             `json:"status"`
	Department    string             `json:"department,omitempty"`
	Branch        string             `json:"branch,omitempty"`
	NeededByDate  string             `json:"needed_by_date,omitempty"`
	Quantity      float64            `json:"quantity"`
	EstimatedCost float64            `json:"estimated_cost"`
	TotalItems    int                `json:"total_items"`
	CreatedBy     int64              `json:"created_by"`
	ApprovedBy    int64              `json:"approved_by,omitempty"`
	Justification string             `json:"justification,omitempty"`
	Items         []lineItemResponse `json:"items,omitempty"`
}

func toLineItemResponse(l LineItem) lineItemResponse {
	return lineItemResponse{
		ID:         l.ID,
		OrderID:    l.OrderID,
		SupplierID: l.SupplierID,
		ItemName:   l.ItemName,
		UnitPrice:  l.UnitPrice,
		PRQuantity: l.PRQuantity,
		POQuantity: l.POQuantity,
		Status:     string(l.Status),
	}
}

func toRequisitionResponse(req Requisition, items []LineItem) requisitionResponse {
	resp := requisitionResponse{
		ID:            req.ID,
		Number:        req.Number,
		Status:        string(req.Status),
		Department:    req.Department,
		Branch:        req.Branch,
		Quantity:      req.Quantity,
		EstimatedCost: req.EstimatedCost,
		TotalItems:    req.TotalItems,
		CreatedBy:     req.CreatedBy,
		ApprovedBy:    req.ApprovedBy,
		Justification: req.Justification,
	}
	if !req.NeededByDate.IsZero() {
		resp.NeededByDate = req.NeededByDate.Format("2006-01-02")
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toLineItemResponse(item))
	}
	return resp
}

type orderResponse struct {
	ID            int64   `json:"id"`
	Number        string  `json:"number"`
	RequisitionID int64   `json:"requisition_id"`
	SupplierID    int64   `json:"supplier_id"`
	SubTotal      float64 `json:"sub_total"`
	DeliveryFee   float64 `json:"delivery_fee"`
	VAT           float64 `json:"vat"`
	TotalAmount   float64 `json:"total_amount"`
	Status        string  `json:"status"`
}

func toOrderResponse(o PurchaseOrder) orderResponse {
	return orderResponse{
		ID:            o.ID,
		Number:        o.Number,
		RequisitionID: o.RequisitionID,
		SupplierID:    o.SupplierID,
		SubTotal:      o.SubTotal,
		DeliveryFee:   o.DeliveryFee,
		VAT:           o.VAT,
		TotalAmount:   o.TotalAmount,
		Status:        string(o.Status),
	}
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (shared.Scope, bool) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "tenant scope required")
	}
	return scope, ok
}

func urlID(r *http.Request, key string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
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
	input := CreateInput{
		Department:    req.Department,
		Branch:        req.Branch,
		Justification: req.Justification,
	}
	if req.NeededByDate != "" {
		day, err := time.Parse("2006-01-02", req.NeededByDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "needed_by_date must be YYYY-MM-DD")
			return
		}
		input.NeededByDate = day
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, LineItemInput{
			ItemName:   item.ItemName,
			UnitPrice:  item.UnitPrice,
			PRQuantity: item.PRQuantity,
			SupplierID: item.SupplierID,
		})
	}
	created, items, err := h.service.Create(r.Context(), scope, input)
	if err != nil {
		h.respondError(w, err, "create requisition")
		return
	}
	httpx.JSON(w, http.StatusCreated, toRequisitionResponse(created, items))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := shared.NewPagination(page, perPage, 0)
	filter := ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		Limit:  p.PerPage,
		Offset: p.Offset(),
	}
	requisitions, total, err := h.service.List(r.Context(), scope, filter)
	if err != nil {
		h.respondError(w, err, "list requisitions")
		return
	}
	items := make([]requisitionResponse, 0, len(requisitions))
	for _, req := range requisitions {
		items = append(items, toRequisitionResponse(req, nil))
	}
	meta := shared.NewPagination(p.Page, p.PerPage, total)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"total":       meta.Total,
		"page":        meta.Page,
		"per_page":    meta.PerPage,
		"total_pages": meta.TotalPages,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	req, items, err := h.service.Get(r.Context(), scope, urlID(r, "id"))
	if err != nil {
		h.respondError(w, err, "get requisition")
		return
	}
	httpx.JSON(w, http.StatusOK, toRequisitionResponse(req, items))
}

func (h *Handler) statusSummary(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var summary map[Status]int
	var err error
	if h.summary != nil {
		summary, err = h.summary.Get(r.Context(), scope)
	} else {
		summary, err = h.service.StatusSummary(r.Context(), scope)
	}
	if err != nil {
		h.respondError(w, err, "status summary")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req lineItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.AddItem(r.Context(), scope, urlID(r, "id"), LineItemInput{
		ItemName:   req.ItemName,
		UnitPrice:  req.UnitPrice,
		PRQuantity: req.PRQuantity,
		SupplierID: req.SupplierID,
	})
	if err != nil {
		h.respondError(w, err, "add line item")
		return
	}
	httpx.JSON(w, http.StatusCreated, toLineItemResponse(created))
}

type updateItemRequest struct {
	UnitPrice  *float64 `json:"unit_price"`
	PRQuantity *float64 `json:"pr_quantity"`
	POQuantity *float64 `json:"po_quantity"`
	SupplierID *int64   `json:"supplier_id"`
	Status     *string  `json:"status"`
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	input := UpdateItemInput{
		UnitPrice:  req.UnitPrice,
		PRQuantity: req.PRQuantity,
		POQuantity: req.POQuantity,
		SupplierID: req.SupplierID,
	}
	if req.Status != nil {
		status := LineItemStatus(*req.Status)
		input.Status = &status
	}
	updated, err := h.service.UpdateItem(r.Context(), scope, urlID(r, "id"), urlID(r, "itemID"), input)
	if err != nil {
		h.respondError(w, err, "update line item")
		return
	}
	httpx.JSON(w, http.StatusOK, toLineItemResponse(updated))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveItem(r.Context(), scope, urlID(r, "id"), urlID(r, "itemID")); err != nil {
		h.respondError(w, err, "remove line item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignSupplierRequest struct {
	SupplierID int64 `json:"supplier_id" validate:"required"`
}

func (h *Handler) assignSupplier(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req assignSupplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.AssignSupplier(r.Context(), scope, urlID(r, "id"), urlID(r, "itemID"), req.SupplierID)
	if err != nil {
		h.respondError(w, err, "assign supplier")
		return
	}
	httpx.JSON(w, http.StatusOK, toLineItemResponse(updated))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Submit)
}

func (h *Handler) saveForLater(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.SaveForLater)
}

func (h *Handler) submitForReview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.SubmitForReview)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, shared.Scope, int64) (Requisition, error)) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	req, err := op(r.Context(), scope, urlID(r, "id"))
	if err != nil {
		h.respondError(w, err, "transition requisition")
		return
	}
	h.invalidateSummary(r, scope.TenantID)
	httpx.JSON(w, http.StatusOK, toRequisitionResponse(req, nil))
}

type decideRequest struct {
	Action        string `json:"action" validate:"required"`
	Justification string `json:"justification"`
	BudgetID      int64  `json:"budget_id"`
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req decideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Decide(r.Context(), scope, urlID(r, "id"), Action(req.Action), DecideInput{
		Justification: req.Justification,
		BudgetID:      req.BudgetID,
	})
	if err != nil {
		h.respondError(w, err, "decide requisition")
		return
	}
	h.invalidateSummary(r, scope.TenantID)
	httpx.JSON(w, http.StatusOK, toRequisitionResponse(updated, nil))
}

func (h *Handler) listRequisitionOrders(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	orders, err := h.service.ListOrders(r.Context(), scope, urlID(r, "id"))
	if err != nil {
		h.respondError(w, err, "list requisition orders")
		return
	}
	items := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	orders, err := h.service.ListOrders(r.Context(), scope, 0)
	if err != nil {
		h.respondError(w, err, "list orders")
		return
	}
	items := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	o, err := h.service.GetOrder(r.Context(), scope, urlID(r, "id"))
	if err != nil {
		h.respondError(w, err, "get order")
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) invalidateSummary(r *http.Request, tenantID int64) {
	if h.summary != nil {
		h.summary.Invalidate(r.Context(), tenantID)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error, action string) {
	var missing *MissingSupplierError
	switch {
	case errors.As(err, &missing):
		httpx.Problem(w, http.StatusConflict, "Conflict", missing.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "requisition not found")
	case errors.Is(err, ErrDuplicateItem):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, budget.ErrInsufficientFunds):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Funds", err.Error())
	case errors.Is(err, budget.ErrNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unknown Budget", "budget not found")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
