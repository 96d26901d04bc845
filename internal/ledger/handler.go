package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockroom-hq/stockroom/internal/platform/httpx"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// Handler exposes read-only stock endpoints.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
	cache  *OnHandCache
}

// NewHandler constructs the stock handler.
func NewHandler(logger *slog.Logger, repo *Repository, cache *OnHandCache) *Handler {
	return &Handler{logger: logger, repo: repo, cache: cache}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/on-hand", h.handleOnHand)
	r.Get("/movements", h.handleMovements)
}

type balanceResponse struct {
	ProductID  uuid.UUID `json:"product_id"`
	LocationID uuid.UUID `json:"location_id"`
	LotNumber  string    `json:"lot_number,omitempty"`
	ExpiryDate string    `json:"expiry_date,omitempty"`
	QtyOnHand  string    `json:"qty_on_hand"`
	AvgCost    string    `json:"avg_cost"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type movementResponse struct {
	ID            int64     `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	LocationID    uuid.UUID `json:"location_id"`
	Qty           string    `json:"qty"`
	MovementType  string    `json:"movement_type"`
	ReferenceType string    `json:"reference_type"`
	ReferenceID   uuid.UUID `json:"reference_id"`
	LotNumber     string    `json:"lot_number,omitempty"`
	ExpiryDate    string    `json:"expiry_date,omitempty"`
	UnitCost      string    `json:"unit_cost"`
	ExtendedCost  string    `json:"extended_cost"`
	Reason        string    `json:"reason,omitempty"`
	CreatedBy     uuid.UUID `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *Handler) handleOnHand(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	filter := BalanceFilter{
		ProductID:  parseUUIDParam(q.Get("product_id")),
		LocationID: parseUUIDParam(q.Get("location_id")),
	}
	filter.IncludeZero, _ = strconv.ParseBool(q.Get("include_zero"))
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}

	if balances, ok := h.cache.Get(r.Context(), ident.TenantID, filter); ok {
		httpx.JSON(w, http.StatusOK, mapBalances(balances))
		return
	}
	balances, err := h.repo.ListBalances(r.Context(), ident.TenantID, filter)
	if err != nil {
		h.logger.Error("list balances", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.cache.Set(r.Context(), ident.TenantID, filter, balances)
	httpx.JSON(w, http.StatusOK, mapBalances(balances))
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	filter := MovementFilter{
		ProductID:     parseUUIDParam(q.Get("product_id")),
		LocationID:    parseUUIDParam(q.Get("location_id")),
		ReferenceType: ReferenceType(q.Get("reference_type")),
		ReferenceID:   parseUUIDParam(q.Get("reference_id")),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	movements, err := h.repo.ListMovements(r.Context(), ident.TenantID, filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]movementResponse, 0, len(movements))
	for _, mv := range movements {
		item := movementResponse{
			ID:            mv.ID,
			ProductID:     mv.ProductID,
			LocationID:    mv.LocationID,
			Qty:           mv.Qty.String(),
			MovementType:  string(mv.Type),
			ReferenceType: string(mv.ReferenceType),
			ReferenceID:   mv.ReferenceID,
			LotNumber:     mv.Lot.Number,
			UnitCost:      mv.UnitCost.String(),
			ExtendedCost:  mv.ExtendedCost.String(),
			Reason:        mv.Reason,
			CreatedBy:     mv.CreatedBy,
			CreatedAt:     mv.CreatedAt,
		}
		if mv.Lot.HasExpiry() {
			item.ExpiryDate = mv.Lot.Expiry.Format("2006-01-02")
		}
		out = append(out, item)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func mapBalances(balances []Balance) []balanceResponse {
	out := make([]balanceResponse, 0, len(balances))
	for _, b := range balances {
		item := balanceResponse{
			ProductID:  b.ProductID,
			LocationID: b.LocationID,
			LotNumber:  b.Lot.Number,
			QtyOnHand:  b.Qty.String(),
			AvgCost:    b.AvgCost.String(),
			UpdatedAt:  b.UpdatedAt,
		}
		if b.Lot.HasExpiry() {
			item.ExpiryDate = b.Lot.Expiry.Format("2006-01-02")
		}
		out = append(out, item)
	}
	return out
}

func parseUUIDParam(raw string) uuid.UUID {
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
