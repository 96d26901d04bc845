package masterdata

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/stockroom-hq/stockroom/internal/shared"
)

// RepositoryPort describes the persistence operations behind the service.
// Exists checks count active rows only, so deactivated references fail
// validation the same way missing ones do.
type RepositoryPort interface {
	InsertProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	DeactivateProduct(ctx context.Context, tenantID, id uuid.UUID) error
	GetProduct(ctx context.Context, tenantID, id uuid.UUID) (Product, error)
	ListProducts(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Product, error)
	ProductExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error)

	InsertLocation(ctx context.Context, l Location) error
	UpdateLocation(ctx context.Context, l Location) error
	DeactivateLocation(ctx context.Context, tenantID, id uuid.UUID) error
	GetLocation(ctx context.Context, tenantID, id uuid.UUID) (Location, error)
	ListLocations(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Location, error)
	LocationExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error)

	InsertSupplier(ctx context.Context, s Supplier) error
	UpdateSupplier(ctx context.Context, s Supplier) error
	DeactivateSupplier(ctx context.Context, tenantID, id uuid.UUID) error
	GetSupplier(ctx context.Context, tenantID, id uuid.UUID) (Supplier, error)
	ListSuppliers(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Supplier, error)
	SupplierExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error)

	InsertCustomer(ctx context.Context, c Customer) error
	UpdateCustomer(ctx context.Context, c Customer) error
	DeactivateCustomer(ctx context.Context, tenantID, id uuid.UUID) error
	GetCustomer(ctx context.Context, tenantID, id uuid.UUID) (Customer, error)
	ListCustomers(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Customer, error)
	CustomerExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}

// Service owns master-data CRUD. It also answers the reference checks the
// document workflow runs before accepting a draft.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the master-data service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ProductInput describes a new or updated product.
type ProductInput struct {
	SKU  string
	Name string
	Unit string
}

// LocationInput describes a new or updated location.
type LocationInput struct {
	Code    string
	Name    string
	Address string
}

// PartyInput describes a new or updated supplier or customer.
type PartyInput struct {
	Code    string
	Name    string
	Email   string
	Phone   string
	Address string
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.SKU) == "" {
		return shared.NewValidationError("sku", "required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.NewValidationError("name", "required")
	}
	return nil
}

func (in LocationInput) validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return shared.NewValidationError("code", "required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.NewValidationError("name", "required")
	}
	return nil
}

func (in PartyInput) validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return shared.NewValidationError("code", "required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.NewValidationError("name", "required")
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, ident shared.Identity, in ProductInput) (Product, error) {
	if err := in.validate(); err != nil {
		return Product{}, err
	}
	p := Product{
		ID:       uuid.New(),
		TenantID: ident.TenantID,
		SKU:      strings.TrimSpace(in.SKU),
		Name:     strings.TrimSpace(in.Name),
		Unit:     strings.TrimSpace(in.Unit),
		IsActive: true,
	}
	if err := s.repo.InsertProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, ident shared.Identity, id uuid.UUID, in ProductInput) (Product, error) {
	if err := in.validate(); err != nil {
		return Product{}, err
	}
	p, err := s.repo.GetProduct(ctx, ident.TenantID, id)
	if err != nil {
		return Product{}, err
	}
	p.SKU = strings.TrimSpace(in.SKU)
	p.Name = strings.TrimSpace(in.Name)
	p.Unit = strings.TrimSpace(in.Unit)
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) DeactivateProduct(ctx context.Context, ident shared.Identity, id uuid.UUID) error {
	return s.repo.DeactivateProduct(ctx, ident.TenantID, id)
}

func (s *Service) GetProduct(ctx context.Context, ident shared.Identity, id uuid.UUID) (Product, error) {
	return s.repo.GetProduct(ctx, ident.TenantID, id)
}

func (s *Service) ListProducts(ctx context.Context, ident shared.Identity, filter ListFilter) ([]Product, error) {
	filter.Search = Fold(filter.Search)
	return s.repo.ListProducts(ctx, ident.TenantID, filter)
}

func (s *Service) CreateLocation(ctx context.Context, ident shared.Identity, in LocationInput) (Location, error) {
	if err := in.validate(); err != nil {
		return Location{}, err
	}
	l := Location{
		ID:       uuid.New(),
		TenantID: ident.TenantID,
		Code:     strings.TrimSpace(in.Code),
		Name:     strings.TrimSpace(in.Name),
		Address:  strings.TrimSpace(in.Address),
		IsActive: true,
	}
	if err := s.repo.InsertLocation(ctx, l); err != nil {
		return Location{}, err
	}
	return l, nil
}

func (s *Service) UpdateLocation(ctx context.Context, ident shared.Identity, id uuid.UUID, in LocationInput) (Location, error) {
	if err := in.validate(); err != nil {
		return Location{}, err
	}
	l, err := s.repo.GetLocation(ctx, ident.TenantID, id)
	if err != nil {
		return Location{}, err
	}
	l.Code = strings.TrimSpace(in.Code)
	l.Name = strings.TrimSpace(in.Name)
	l.Address = strings.TrimSpace(in.Address)
	if err := s.repo.UpdateLocation(ctx, l); err != nil {
		return Location{}, err
	}
	return l, nil
}

func (s *Service) DeactivateLocation(ctx context.Context, ident shared.Identity, id uuid.UUID) error {
	return s.repo.DeactivateLocation(ctx, ident.TenantID, id)
}

func (s *Service) GetLocation(ctx context.Context, ident shared.Identity, id uuid.UUID) (Location, error) {
	return s.repo.GetLocation(ctx, ident.TenantID, id)
}

func (s *Service) ListLocations(ctx context.Context, ident shared.Identity, filter ListFilter) ([]Location, error) {
	filter.Search = Fold(filter.Search)
	return s.repo.ListLocations(ctx, ident.TenantID, filter)
}

func (s *Service) CreateSupplier(ctx context.Context, ident shared.Identity, in PartyInput) (Supplier, error) {
	if err := in.validate(); err != nil {
		return Supplier{}, err
	}
	sup := Supplier{
		ID:       uuid.New(),
		TenantID: ident.TenantID,
		Code:     strings.TrimSpace(in.Code),
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
		IsActive: true,
	}
	if err := s.repo.InsertSupplier(ctx, sup); err != nil {
		return Supplier{}, err
	}
	return sup, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, ident shared.Identity, id uuid.UUID, in PartyInput) (Supplier, error) {
	if err := in.validate(); err != nil {
		return Supplier{}, err
	}
	sup, err := s.repo.GetSupplier(ctx, ident.TenantID, id)
	if err != nil {
		return Supplier{}, err
	}
	sup.Code = strings.TrimSpace(in.Code)
	sup.Name = strings.TrimSpace(in.Name)
	sup.Email = strings.TrimSpace(in.Email)
	sup.Phone = strings.TrimSpace(in.Phone)
	sup.Address = strings.TrimSpace(in.Address)
	if err := s.repo.UpdateSupplier(ctx, sup); err != nil {
		return Supplier{}, err
	}
	return sup, nil
}

func (s *Service) DeactivateSupplier(ctx context.Context, ident shared.Identity, id uuid.UUID) error {
	return s.repo.DeactivateSupplier(ctx, ident.TenantID, id)
}

func (s *Service) GetSupplier(ctx context.Context, ident shared.Identity, id uuid.UUID) (Supplier, error) {
	return s.repo.GetSupplier(ctx, ident.TenantID, id)
}

func (s *Service) ListSuppliers(ctx context.Context, ident shared.Identity, filter ListFilter) ([]Supplier, error) {
	filter.Search = Fold(filter.Search)
	return s.repo.ListSuppliers(ctx, ident.TenantID, filter)
}

func (s *Service) CreateCustomer(ctx context.Context, ident shared.Identity, in PartyInput) (Customer, error) {
	if err := in.validate(); err != nil {
		return Customer{}, err
	}
	c := Customer{
		ID:       uuid.New(),
		TenantID: ident.TenantID,
		Code:     strings.TrimSpace(in.Code),
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
		IsActive: true,
	}
	if err := s.repo.InsertCustomer(ctx, c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, ident shared.Identity, id uuid.UUID, in PartyInput) (Customer, error) {
	if err := in.validate(); err != nil {
		return Customer{}, err
	}
	c, err := s.repo.GetCustomer(ctx, ident.TenantID, id)
	if err != nil {
		return Customer{}, err
	}
	c.Code = strings.TrimSpace(in.Code)
	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = strings.TrimSpace(in.Address)
	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return Customer{}, err
	}
	return c, nil
}

func (s *Service) DeactivateCustomer(ctx context.Context, ident shared.Identity, id uuid.UUID) error {
	return s.repo.DeactivateCustomer(ctx, ident.TenantID, id)
}

func (s *Service) GetCustomer(ctx context.Context, ident shared.Identity, id uuid.UUID) (Customer, error) {
	return s.repo.GetCustomer(ctx, ident.TenantID, id)
}

func (s *Service) ListCustomers(ctx context.Context, ident shared.Identity, filter ListFilter) ([]Customer, error) {
	filter.Search = Fold(filter.Search)
	return s.repo.ListCustomers(ctx, ident.TenantID, filter)
}

// ProductExists implements the document workflow's reference check.
func (s *Service) ProductExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	return s.repo.ProductExists(ctx, tenantID, id)
}

// LocationExists implements the document workflow's reference check.
func (s *Service) LocationExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	return s.repo.LocationExists(ctx, tenantID, id)
}

// SupplierExists implements the document workflow's reference check.
func (s *Service) SupplierExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	return s.repo.SupplierExists(ctx, tenantID, id)
}

// CustomerExists implements the document workflow's reference check.
func (s *Service) CustomerExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	return s.repo.CustomerExists(ctx, tenantID, id)
}
