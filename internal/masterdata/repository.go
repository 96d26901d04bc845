package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockroom-hq/stockroom/internal/shared"
)

// Repository persists master data in Postgres. Every table carries a folded
// name column maintained here, never by the database, so search semantics
// live in one place.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the master-data repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const uniqueViolation = "23505"

func mapWriteError(err error, field string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &shared.ConflictError{Reason: fmt.Sprintf("%s already in use", field)}
	}
	return err
}

func notFound(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NewNotFoundError(resource, id.String())
	}
	return err
}

func (r *Repository) InsertProduct(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, tenant_id, sku, name, name_folded, unit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.TenantID, p.SKU, p.Name, Fold(p.Name), p.Unit, p.IsActive)
	return mapWriteError(err, "sku")
}

func (r *Repository) UpdateProduct(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE products
		SET sku = $3, name = $4, name_folded = $5, unit = $6, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`,
		p.TenantID, p.ID, p.SKU, p.Name, Fold(p.Name), p.Unit)
	return mapWriteError(err, "sku")
}

func (r *Repository) DeactivateProduct(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET is_active = false, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewNotFoundError("product", id.String())
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, tenantID, id uuid.UUID) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, sku, name, unit, is_active, created_at, updated_at
		FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, notFound(err, "product", id)
	}
	return p, nil
}

func (r *Repository) ListProducts(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, sku, name, unit, is_active, created_at, updated_at
		FROM products
		WHERE tenant_id = $1
		  AND ($2 = '' OR name_folded LIKE '%' || $2 || '%' OR sku ILIKE '%' || $2 || '%')
		  AND (is_active OR $3)
		ORDER BY name
		LIMIT $4`, tenantID, filter.Search, filter.IncludeInactive, listLimit(filter.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) ProductExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "products", tenantID, id)
}

func (r *Repository) InsertLocation(ctx context.Context, l Location) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO locations (id, tenant_id, code, name, name_folded, address, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.TenantID, l.Code, l.Name, Fold(l.Name), l.Address, l.IsActive)
	return mapWriteError(err, "code")
}

func (r *Repository) UpdateLocation(ctx context.Context, l Location) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE locations
		SET code = $3, name = $4, name_folded = $5, address = $6, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`,
		l.TenantID, l.ID, l.Code, l.Name, Fold(l.Name), l.Address)
	return mapWriteError(err, "code")
}

func (r *Repository) DeactivateLocation(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE locations SET is_active = false, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewNotFoundError("location", id.String())
	}
	return nil
}

func (r *Repository) GetLocation(ctx context.Context, tenantID, id uuid.UUID) (Location, error) {
	var l Location
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, code, name, address, is_active, created_at, updated_at
		FROM locations WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&l.ID, &l.TenantID, &l.Code, &l.Name, &l.Address, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Location{}, notFound(err, "location", id)
	}
	return l, nil
}

func (r *Repository) ListLocations(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, code, name, address, is_active, created_at, updated_at
		FROM locations
		WHERE tenant_id = $1
		  AND ($2 = '' OR name_folded LIKE '%' || $2 || '%' OR code ILIKE '%' || $2 || '%')
		  AND (is_active OR $3)
		ORDER BY name
		LIMIT $4`, tenantID, filter.Search, filter.IncludeInactive, listLimit(filter.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.TenantID, &l.Code, &l.Name, &l.Address, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) LocationExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "locations", tenantID, id)
}

func (r *Repository) InsertSupplier(ctx context.Context, s Supplier) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO suppliers (id, tenant_id, code, name, name_folded, email, phone, address, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.TenantID, s.Code, s.Name, Fold(s.Name), s.Email, s.Phone, s.Address, s.IsActive)
	return mapWriteError(err, "code")
}

func (r *Repository) UpdateSupplier(ctx context.Context, s Supplier) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE suppliers
		SET code = $3, name = $4, name_folded = $5, email = $6, phone = $7, address = $8, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`,
		s.TenantID, s.ID, s.Code, s.Name, Fold(s.Name), s.Email, s.Phone, s.Address)
	return mapWriteError(err, "code")
}

func (r *Repository) DeactivateSupplier(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE suppliers SET is_active = false, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewNotFoundError("supplier", id.String())
	}
	return nil
}

func (r *Repository) GetSupplier(ctx context.Context, tenantID, id uuid.UUID) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, code, name, email, phone, address, is_active, created_at, updated_at
		FROM suppliers WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&s.ID, &s.TenantID, &s.Code, &s.Name, &s.Email, &s.Phone, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Supplier{}, notFound(err, "supplier", id)
	}
	return s, nil
}

func (r *Repository) ListSuppliers(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, code, name, email, phone, address, is_active, created_at, updated_at
		FROM suppliers
		WHERE tenant_id = $1
		  AND ($2 = '' OR name_folded LIKE '%' || $2 || '%' OR code ILIKE '%' || $2 || '%')
		  AND (is_active OR $3)
		ORDER BY name
		LIMIT $4`, tenantID, filter.Search, filter.IncludeInactive, listLimit(filter.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Code, &s.Name, &s.Email, &s.Phone, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) SupplierExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "suppliers", tenantID, id)
}

func (r *Repository) InsertCustomer(ctx context.Context, c Customer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (id, tenant_id, code, name, name_folded, email, phone, address, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.TenantID, c.Code, c.Name, Fold(c.Name), c.Email, c.Phone, c.Address, c.IsActive)
	return mapWriteError(err, "code")
}

func (r *Repository) UpdateCustomer(ctx context.Context, c Customer) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET code = $3, name = $4, name_folded = $5, email = $6, phone = $7, address = $8, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`,
		c.TenantID, c.ID, c.Code, c.Name, Fold(c.Name), c.Email, c.Phone, c.Address)
	return mapWriteError(err, "code")
}

func (r *Repository) DeactivateCustomer(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers SET is_active = false, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NewNotFoundError("customer", id.String())
	}
	return nil
}

func (r *Repository) GetCustomer(ctx context.Context, tenantID, id uuid.UUID) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, code, name, email, phone, address, is_active, created_at, updated_at
		FROM customers WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&c.ID, &c.TenantID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, notFound(err, "customer", id)
	}
	return c, nil
}

func (r *Repository) ListCustomers(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, code, name, email, phone, address, is_active, created_at, updated_at
		FROM customers
		WHERE tenant_id = $1
		  AND ($2 = '' OR name_folded LIKE '%' || $2 || '%' OR code ILIKE '%' || $2 || '%')
		  AND (is_active OR $3)
		ORDER BY name
		LIMIT $4`, tenantID, filter.Search, filter.IncludeInactive, listLimit(filter.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CustomerExists(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "customers", tenantID, id)
}

func (r *Repository) exists(ctx context.Context, table string, tenantID, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE tenant_id = $1 AND id = $2 AND is_active)`, table),
		tenantID, id).Scan(&ok)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func listLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 100
	}
	return limit
}
