package masterdata

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-hq/stockroom/internal/shared"
)

type memoryRepo struct {
	products  map[uuid.UUID]Product
	locations map[uuid.UUID]Location
	suppliers map[uuid.UUID]Supplier
	customers map[uuid.UUID]Customer
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:  make(map[uuid.UUID]Product),
		locations: make(map[uuid.UUID]Location),
		suppliers: make(map[uuid.UUID]Supplier),
		customers: make(map[uuid.UUID]Customer),
	}
}

func (r *memoryRepo) InsertProduct(_ context.Context, p Product) error {
	for _, existing := range r.products {
		if existing.TenantID == p.TenantID && existing.SKU == p.SKU {
			return &shared.ConflictError{Reason: "sku already in use"}
		}
	}
	r.products[p.ID] = p
	return nil
}

func (r *memoryRepo) UpdateProduct(_ context.Context, p Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *memoryRepo) DeactivateProduct(_ context.Context, tenantID, id uuid.UUID) error {
	p, ok := r.products[id]
	if !ok || p.TenantID != tenantID {
		return shared.NewNotFoundError("product", id.String())
	}
	p.IsActive = false
	r.products[id] = p
	return nil
}

func (r *memoryRepo) GetProduct(_ context.Context, tenantID, id uuid.UUID) (Product, error) {
	p, ok := r.products[id]
	if !ok || p.TenantID != tenantID {
		return Product{}, shared.NewNotFoundError("product", id.String())
	}
	return p, nil
}

func (r *memoryRepo) ListProducts(_ context.Context, tenantID uuid.UUID, filter ListFilter) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if p.TenantID != tenantID {
			continue
		}
		if !p.IsActive && !filter.IncludeInactive {
			continue
		}
		if filter.Search != "" && !strings.Contains(Fold(p.Name), filter.Search) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) ProductExists(_ context.Context, tenantID, id uuid.UUID) (bool, error) {
	p, ok := r.products[id]
	return ok && p.TenantID == tenantID && p.IsActive, nil
}

func (r *memoryRepo) InsertLocation(_ context.Context, l Location) error {
	r.locations[l.ID] = l
	return nil
}

func (r *memoryRepo) UpdateLocation(_ context.Context, l Location) error {
	r.locations[l.ID] = l
	return nil
}

func (r *memoryRepo) DeactivateLocation(_ context.Context, tenantID, id uuid.UUID) error {
	l, ok := r.locations[id]
	if !ok || l.TenantID != tenantID {
		return shared.NewNotFoundError("location", id.String())
	}
	l.IsActive = false
	r.locations[id] = l
	return nil
}

func (r *memoryRepo) GetLocation(_ context.Context, tenantID, id uuid.UUID) (Location, error) {
	l, ok := r.locations[id]
	if !ok || l.TenantID != tenantID {
		return Location{}, shared.NewNotFoundError("location", id.String())
	}
	return l, nil
}

func (r *memoryRepo) ListLocations(_ context.Context, tenantID uuid.UUID, filter ListFilter) ([]Location, error) {
	var out []Location
	for _, l := range r.locations {
		if l.TenantID == tenantID && (l.IsActive || filter.IncludeInactive) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memoryRepo) LocationExists(_ context.Context, tenantID, id uuid.UUID) (bool, error) {
	l, ok := r.locations[id]
	return ok && l.TenantID == tenantID && l.IsActive, nil
}

func (r *memoryRepo) InsertSupplier(_ context.Context, s Supplier) error {
	r.suppliers[s.ID] = s
	return nil
}

func (r *memoryRepo) UpdateSupplier(_ context.Context, s Supplier) error {
	r.suppliers[s.ID] = s
	return nil
}

func (r *memoryRepo) DeactivateSupplier(_ context.Context, tenantID, id uuid.UUID) error {
	s, ok := r.suppliers[id]
	if !ok || s.TenantID != tenantID {
		return shared.NewNotFoundError("supplier", id.String())
	}
	s.IsActive = false
	r.suppliers[id] = s
	return nil
}

func (r *memoryRepo) GetSupplier(_ context.Context, tenantID, id uuid.UUID) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok || s.TenantID != tenantID {
		return Supplier{}, shared.NewNotFoundError("supplier", id.String())
	}
	return s, nil
}

func (r *memoryRepo) ListSuppliers(_ context.Context, tenantID uuid.UUID, filter ListFilter) ([]Supplier, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		if s.TenantID == tenantID && (s.IsActive || filter.IncludeInactive) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryRepo) SupplierExists(_ context.Context, tenantID, id uuid.UUID) (bool, error) {
	s, ok := r.suppliers[id]
	return ok && s.TenantID == tenantID && s.IsActive, nil
}

func (r *memoryRepo) InsertCustomer(_ context.Context, c Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *memoryRepo) UpdateCustomer(_ context.Context, c Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *memoryRepo) DeactivateCustomer(_ context.Context, tenantID, id uuid.UUID) error {
	c, ok := r.customers[id]
	if !ok || c.TenantID != tenantID {
		return shared.NewNotFoundError("customer", id.String())
	}
	c.IsActive = false
	r.customers[id] = c
	return nil
}

func (r *memoryRepo) GetCustomer(_ context.Context, tenantID, id uuid.UUID) (Customer, error) {
	c, ok := r.customers[id]
	if !ok || c.TenantID != tenantID {
		return Customer{}, shared.NewNotFoundError("customer", id.String())
	}
	return c, nil
}

func (r *memoryRepo) ListCustomers(_ context.Context, tenantID uuid.UUID, filter ListFilter) ([]Customer, error) {
	var out []Customer
	for _, c := range r.customers {
		if c.TenantID == tenantID && (c.IsActive || filter.IncludeInactive) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryRepo) CustomerExists(_ context.Context, tenantID, id uuid.UUID) (bool, error) {
	c, ok := r.customers[id]
	return ok && c.TenantID == tenantID && c.IsActive, nil
}

func TestFold(t *testing.T) {
	require.Equal(t, "cafe ole", Fold("  Café Olé "))
	require.Equal(t, "muller", Fold("Müller"))
	require.Equal(t, "plain", Fold("plain"))
	require.Equal(t, "", Fold("  "))
}

func TestProductLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	ident := shared.Identity{TenantID: uuid.New(), ActorID: uuid.New()}

	p, err := svc.CreateProduct(ctx, ident, ProductInput{SKU: " WID-1 ", Name: " Widget ", Unit: "ea"})
	require.NoError(t, err)
	require.True(t, p.IsActive)
	require.Equal(t, "WID-1", p.SKU)
	require.Equal(t, "Widget", p.Name)

	p, err = svc.UpdateProduct(ctx, ident, p.ID, ProductInput{SKU: "WID-1", Name: "Widget XL", Unit: "ea"})
	require.NoError(t, err)
	require.Equal(t, "Widget XL", p.Name)

	ok, err := svc.ProductExists(ctx, ident.TenantID, p.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.DeactivateProduct(ctx, ident, p.ID))
	ok, err = svc.ProductExists(ctx, ident.TenantID, p.ID)
	require.NoError(t, err)
	require.False(t, ok, "deactivated products fail reference checks")

	listed, err := svc.ListProducts(ctx, ident, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, listed)
	listed, err = svc.ListProducts(ctx, ident, ListFilter{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestProductValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ident := shared.Identity{TenantID: uuid.New(), ActorID: uuid.New()}

	_, err := svc.CreateProduct(context.Background(), ident, ProductInput{Name: "No SKU"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "sku", verr.Field)

	_, err = svc.CreateProduct(context.Background(), ident, ProductInput{SKU: "X", Name: "   "})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "name", verr.Field)
}

func TestSearchFoldsDiacritics(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	ident := shared.Identity{TenantID: uuid.New(), ActorID: uuid.New()}

	_, err := svc.CreateProduct(ctx, ident, ProductInput{SKU: "C-1", Name: "Café Filter"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, ident, ProductInput{SKU: "T-1", Name: "Tea Filter"})
	require.NoError(t, err)

	found, err := svc.ListProducts(ctx, ident, ListFilter{Search: "CAFE"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "C-1", found[0].SKU)
}

func TestTenantScopedLookups(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	ident := shared.Identity{TenantID: uuid.New(), ActorID: uuid.New()}

	loc, err := svc.CreateLocation(ctx, ident, LocationInput{Code: "WH-1", Name: "Main"})
	require.NoError(t, err)

	other := uuid.New()
	ok, err := svc.LocationExists(ctx, other, loc.ID)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.GetLocation(ctx, shared.Identity{TenantID: other}, loc.ID)
	var notFound *shared.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestSupplierAndCustomerLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	ident := shared.Identity{TenantID: uuid.New(), ActorID: uuid.New()}

	sup, err := svc.CreateSupplier(ctx, ident, PartyInput{Code: "SUP-1", Name: "Acme", Email: "sales@acme.test"})
	require.NoError(t, err)
	cus, err := svc.CreateCustomer(ctx, ident, PartyInput{Code: "CUS-1", Name: "Globex"})
	require.NoError(t, err)

	ok, err := svc.SupplierExists(ctx, ident.TenantID, sup.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = svc.CustomerExists(ctx, ident.TenantID, cus.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.DeactivateSupplier(ctx, ident, sup.ID))
	ok, err = svc.SupplierExists(ctx, ident.TenantID, sup.ID)
	require.NoError(t, err)
	require.False(t, ok)
}
