package documents

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockroom-hq/stockroom/internal/platform/httpx"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// Handler wires HTTP endpoints for the document workflow.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the documents handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}/lines", h.handleReplaceLines)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/cancel", h.handleCancel)
	r.Post("/{id}/confirm", h.handleConfirm)
	r.Post("/{id}/receive", h.handleReceive)
	r.Post("/{id}/ship", h.handleShip)
	r.Post("/{id}/complete", h.handleComplete)
	r.Post("/{id}/post", h.handlePost)
	r.Post("/{id}/process", h.handleProcess)
}

type lineRequest struct {
	ProductID  uuid.UUID        `json:"product_id" validate:"required"`
	Qty        decimal.Decimal  `json:"qty"`
	CountedQty decimal.Decimal  `json:"counted_qty"`
	LotNumber  string           `json:"lot_number"`
	ExpiryDate string           `json:"expiry_date"`
	UnitCost   *decimal.Decimal `json:"unit_cost"`
	Note       string           `json:"note"`
}

type createRequest struct {
	Kind           Kind          `json:"kind" validate:"required"`
	SupplierID     uuid.UUID     `json:"supplier_id"`
	CustomerID     uuid.UUID     `json:"customer_id"`
	LocationID     uuid.UUID     `json:"location_id"`
	FromLocationID uuid.UUID     `json:"from_location_id"`
	ToLocationID   uuid.UUID     `json:"to_location_id"`
	ShipDate       string        `json:"ship_date"`
	CountDate      string        `json:"count_date"`
	Reason         string        `json:"reason"`
	ReturnType     string        `json:"return_type"`
	Notes          string        `json:"notes"`
	Lines          []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type receiveRequest struct {
	Lines []struct {
		LineID   int64            `json:"line_id" validate:"required"`
		Qty      decimal.Decimal  `json:"qty" validate:"required"`
		UnitCost *decimal.Decimal `json:"unit_cost"`
	} `json:"lines" validate:"required,min=1,dive"`
}

type shipRequest struct {
	ShipDate string `json:"ship_date"`
}

type documentResponse struct {
	ID             uuid.UUID      `json:"id"`
	Kind           Kind           `json:"kind"`
	Number         string         `json:"number"`
	Status         Status         `json:"status"`
	SupplierID     *uuid.UUID     `json:"supplier_id,omitempty"`
	CustomerID     *uuid.UUID     `json:"customer_id,omitempty"`
	LocationID     *uuid.UUID     `json:"location_id,omitempty"`
	FromLocationID *uuid.UUID     `json:"from_location_id,omitempty"`
	ToLocationID   *uuid.UUID     `json:"to_location_id,omitempty"`
	ShipDate       string         `json:"ship_date,omitempty"`
	CountDate      string         `json:"count_date,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	ReturnType     string         `json:"return_type,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CreatedBy      uuid.UUID      `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Lines          []lineResponse `json:"lines,omitempty"`
}

type lineResponse struct {
	ID          int64     `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Qty         string    `json:"qty"`
	QtyReceived string    `json:"qty_received,omitempty"`
	SystemQty   string    `json:"system_qty,omitempty"`
	CountedQty  string    `json:"counted_qty,omitempty"`
	LotNumber   string    `json:"lot_number,omitempty"`
	ExpiryDate  string    `json:"expiry_date,omitempty"`
	UnitCost    string    `json:"unit_cost,omitempty"`
	Note        string    `json:"note,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		Kind:           req.Kind,
		SupplierID:     req.SupplierID,
		CustomerID:     req.CustomerID,
		LocationID:     req.LocationID,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		ShipDate:       parseDate(req.ShipDate),
		CountDate:      parseDate(req.CountDate),
		Reason:         AdjustmentReason(req.Reason),
		ReturnType:     ReturnType(req.ReturnType),
		Notes:          req.Notes,
		Lines:          mapLineInputs(req.Lines),
	}
	ident := shared.IdentityFromContext(r.Context())
	doc, lines, err := h.service.Create(r.Context(), ident, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mapDocument(doc, lines))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	docs, err := h.service.List(r.Context(), ident, ListFilter{
		Kind:   Kind(q.Get("kind")),
		Status: Status(q.Get("status")),
	})
	if err != nil {
		h.logger.Error("list documents", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, mapDocument(doc, nil))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, lines, err := h.service.Get(r.Context(), ident, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapDocument(doc, lines))
}

func (h *Handler) handleReplaceLines(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req struct {
		Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines, err := h.service.ReplaceLines(r.Context(), ident, id, mapLineInputs(req.Lines))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapLines(lines))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), ident, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.Cancel)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.Confirm)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.CompleteTransfer)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.ProcessReturn)
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inputs := make([]ReceiveLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		inputs = append(inputs, ReceiveLineInput{LineID: line.LineID, Qty: line.Qty, UnitCost: line.UnitCost})
	}
	doc, err := h.service.Receive(r.Context(), ident, id, inputs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapDocument(doc, nil))
}

func (h *Handler) handleShip(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	var req shipRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	doc, err := h.service.Ship(r.Context(), ident, id, parseDate(req.ShipDate))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapDocument(doc, nil))
}

// handlePost dispatches to the adjustment or cycle-count posting by kind.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, _, err := h.service.Get(r.Context(), ident, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	switch doc.Kind {
	case KindAdjustment:
		doc, err = h.service.PostAdjustment(r.Context(), ident, id)
	case KindCycleCount:
		doc, err = h.service.PostCycleCount(r.Context(), ident, id)
	default:
		err = &shared.InvalidTransitionError{Kind: string(doc.Kind), From: string(doc.Status), Action: "post"}
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapDocument(doc, nil))
}

func (h *Handler) runTransition(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, shared.Identity, uuid.UUID) (Document, error)) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.docID(w, r)
	if !ok {
		return
	}
	doc, err := fn(r.Context(), ident, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapDocument(doc, nil))
}

func (h *Handler) docID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return uuid.Nil, false
	}
	return id, true
}

func mapLineInputs(reqs []lineRequest) []LineInput {
	inputs := make([]LineInput, 0, len(reqs))
	for _, req := range reqs {
		inputs = append(inputs, LineInput{
			ProductID:  req.ProductID,
			Qty:        req.Qty,
			CountedQty: req.CountedQty,
			LotNumber:  req.LotNumber,
			ExpiryDate: parseDate(req.ExpiryDate),
			UnitCost:   req.UnitCost,
			Note:       req.Note,
		})
	}
	return inputs
}

func mapDocument(doc Document, lines []Line) documentResponse {
	resp := documentResponse{
		ID:             doc.ID,
		Kind:           doc.Kind,
		Number:         doc.Number,
		Status:         doc.Status,
		SupplierID:     optionalID(doc.SupplierID),
		CustomerID:     optionalID(doc.CustomerID),
		LocationID:     optionalID(doc.LocationID),
		FromLocationID: optionalID(doc.FromLocationID),
		ToLocationID:   optionalID(doc.ToLocationID),
		Reason:         string(doc.Reason),
		ReturnType:     string(doc.ReturnType),
		Notes:          doc.Notes,
		CreatedBy:      doc.CreatedBy,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
		Lines:          mapLines(lines),
	}
	if !doc.ShipDate.IsZero() {
		resp.ShipDate = doc.ShipDate.Format("2006-01-02")
	}
	if !doc.CountDate.IsZero() {
		resp.CountDate = doc.CountDate.Format("2006-01-02")
	}
	return resp
}

func mapLines(lines []Line) []lineResponse {
	if len(lines) == 0 {
		return nil
	}
	out := make([]lineResponse, 0, len(lines))
	for _, line := range lines {
		item := lineResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			Qty:         line.Qty.String(),
			QtyReceived: line.QtyReceived.String(),
			SystemQty:   line.SystemQty.String(),
			CountedQty:  line.CountedQty.String(),
			LotNumber:   line.Lot.Number,
			Note:        line.Note,
		}
		if line.Lot.HasExpiry() {
			item.ExpiryDate = line.Lot.Expiry.Format("2006-01-02")
		}
		if line.UnitCostSet {
			item.UnitCost = line.UnitCost.String()
		}
		out = append(out, item)
	}
	return out
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Time{}
}
