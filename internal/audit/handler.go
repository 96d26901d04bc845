package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockroom-hq/stockroom/internal/platform/httpx"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// Handler exposes the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleTimeline)
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	filters := TimelineFilters{
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Action:       q.Get("action"),
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	result, err := h.service.Timeline(r.Context(), ident.TenantID, filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"events":   result.Events,
		"page":     result.Page,
		"has_next": result.HasNext,
	})
}
