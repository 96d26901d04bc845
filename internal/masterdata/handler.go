package masterdata

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stockroom-hq/stockroom/internal/platform/httpx"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// Handler wires HTTP endpoints for master data.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the master-data handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// MountRoutes registers master-data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})
	r.Route("/locations", func(r chi.Router) {
		r.Post("/", h.createLocation)
		r.Get("/", h.listLocations)
		r.Get("/{id}", h.getLocation)
		r.Put("/{id}", h.updateLocation)
		r.Delete("/{id}", h.deleteLocation)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Post("/", h.createSupplier)
		r.Get("/", h.listSuppliers)
		r.Get("/{id}", h.getSupplier)
		r.Put("/{id}", h.updateSupplier)
		r.Delete("/{id}", h.deleteSupplier)
	})
	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.createCustomer)
		r.Get("/", h.listCustomers)
		r.Get("/{id}", h.getCustomer)
		r.Put("/{id}", h.updateCustomer)
		r.Delete("/{id}", h.deleteCustomer)
	})
}

type productRequest struct {
	SKU  string `json:"sku" validate:"required"`
	Name string `json:"name" validate:"required"`
	Unit string `json:"unit"`
}

type locationRequest struct {
	Code    string `json:"code" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

type partyRequest struct {
	Code    string `json:"code" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) entityID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func listFilterFrom(r *http.Request) ListFilter {
	q := r.URL.Query()
	return ListFilter{
		Search:          q.Get("search"),
		IncludeInactive: q.Get("include_inactive") == "true",
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	p, err := h.service.CreateProduct(r.Context(), ident, ProductInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	out, err := h.service.ListProducts(r.Context(), ident, listFilterFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetProduct(r.Context(), ident, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), ident, id, ProductInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateProduct(r.Context(), ident, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if !h.decode(w, r, &req) {
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	l, err := h.service.CreateLocation(r.Context(), ident, LocationInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, l)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	out, err := h.service.ListLocations(r.Context(), ident, listFilterFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getLocation(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	l, err := h.service.GetLocation(r.Context(), ident, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	var req locationRequest
	if !h.decode(w, r, &req) {
		return
	}
	l, err := h.service.UpdateLocation(r.Context(), ident, id, LocationInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) deleteLocation(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateLocation(r.Context(), ident, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	if !h.decode(w, r, &req) {
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	s, err := h.service.CreateSupplier(r.Context(), ident, PartyInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, s)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	out, err := h.service.ListSuppliers(r.Context(), ident, listFilterFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	s, err := h.service.GetSupplier(r.Context(), ident, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	var req partyRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.service.UpdateSupplier(r.Context(), ident, id, PartyInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateSupplier(r.Context(), ident, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	if !h.decode(w, r, &req) {
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	c, err := h.service.CreateCustomer(r.Context(), ident, PartyInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	out, err := h.service.ListCustomers(r.Context(), ident, listFilterFrom(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetCustomer(r.Context(), ident, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	var req partyRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.service.UpdateCustomer(r.Context(), ident, id, PartyInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, ok := h.entityID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeactivateCustomer(r.Context(), ident, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
