package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists balances and movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds ledger operations to an existing transaction. The
// document workflow engine uses this so its status change and all ledger
// effects share one transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(ctx, NewTxRepository(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// expiryArg maps "no expiry" to SQL NULL so IS NOT DISTINCT FROM comparisons
// treat it as one identity.
func expiryArg(l Lot) any {
	if !l.HasExpiry() {
		return nil
	}
	return l.Expiry
}

func (r *txRepository) GetBalanceForUpdate(ctx context.Context, tenantID, productID, locationID uuid.UUID, lot Lot) (Balance, error) {
	lot = lot.Normalize()
	row := r.tx.QueryRow(ctx, `SELECT qty_on_hand, avg_cost, updated_at
FROM inventory_balances
WHERE tenant_id=$1 AND product_id=$2 AND location_id=$3 AND lot_number=$4 AND expiry_date IS NOT DISTINCT FROM $5
FOR UPDATE`, tenantID, productID, locationID, lot.Number, expiryArg(lot))
	return scanBalance(row, tenantID, productID, locationID, lot)
}

func (r *txRepository) UpsertBalance(ctx context.Context, b Balance) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_balances (tenant_id, product_id, location_id, lot_number, expiry_date, qty_on_hand, avg_cost, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (tenant_id, product_id, location_id, lot_number, expiry_key)
DO UPDATE SET qty_on_hand=EXCLUDED.qty_on_hand, avg_cost=EXCLUDED.avg_cost, updated_at=NOW()`,
		b.TenantID, b.ProductID, b.LocationID, b.Lot.Number, expiryArg(b.Lot), b.Qty, b.AvgCost)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, mv Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements
(tenant_id, product_id, location_id, qty, movement_type, reference_type, reference_id, lot_number, expiry_date, unit_cost, extended_cost, reason, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id`,
		mv.TenantID, mv.ProductID, mv.LocationID, mv.Qty, string(mv.Type), string(mv.ReferenceType), mv.ReferenceID,
		mv.Lot.Number, expiryArg(mv.Lot), mv.UnitCost, mv.ExtendedCost, nullString(mv.Reason), mv.CreatedBy, mv.CreatedAt).Scan(&id)
	return id, err
}

// GetBalance resolves the balance row matching the normalized lot identity
// without locking it. Used for confirm-time feasibility checks; the committing
// transition re-checks under lock.
func (r *Repository) GetBalance(ctx context.Context, tenantID, productID, locationID uuid.UUID, lot Lot) (Balance, error) {
	lot = lot.Normalize()
	row := r.pool.QueryRow(ctx, `SELECT qty_on_hand, avg_cost, updated_at
FROM inventory_balances
WHERE tenant_id=$1 AND product_id=$2 AND location_id=$3 AND lot_number=$4 AND expiry_date IS NOT DISTINCT FROM $5`,
		tenantID, productID, locationID, lot.Number, expiryArg(lot))
	return scanBalance(row, tenantID, productID, locationID, lot)
}

// ListBalances returns on-hand rows for the tenant.
func (r *Repository) ListBalances(ctx context.Context, tenantID uuid.UUID, filter BalanceFilter) ([]Balance, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT product_id, location_id, lot_number, expiry_date, qty_on_hand, avg_cost, updated_at
FROM inventory_balances
WHERE tenant_id=$1
  AND ($2::uuid IS NULL OR product_id=$2)
  AND ($3::uuid IS NULL OR location_id=$3)
  AND ($4 OR qty_on_hand <> 0)
ORDER BY product_id, location_id, lot_number
LIMIT $5`, tenantID, nullUUID(filter.ProductID), nullUUID(filter.LocationID), filter.IncludeZero, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	balances := []Balance{}
	for rows.Next() {
		b := Balance{TenantID: tenantID}
		var expiry *time.Time
		if err := rows.Scan(&b.ProductID, &b.LocationID, &b.Lot.Number, &expiry, &b.Qty, &b.AvgCost, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if expiry != nil {
			b.Lot.Expiry = *expiry
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// ListMovements returns movement history, newest first.
func (r *Repository) ListMovements(ctx context.Context, tenantID uuid.UUID, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, location_id, qty, movement_type, reference_type, reference_id, lot_number, expiry_date, unit_cost, extended_cost, COALESCE(reason,''), created_by, created_at
FROM stock_movements
WHERE tenant_id=$1
  AND ($2::uuid IS NULL OR product_id=$2)
  AND ($3::uuid IS NULL OR location_id=$3)
  AND ($4='' OR reference_type=$4)
  AND ($5::uuid IS NULL OR reference_id=$5)
ORDER BY id DESC
LIMIT $6`, tenantID, nullUUID(filter.ProductID), nullUUID(filter.LocationID), string(filter.ReferenceType), nullUUID(filter.ReferenceID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		mv := Movement{TenantID: tenantID}
		var expiry *time.Time
		var mvType, refType string
		if err := rows.Scan(&mv.ID, &mv.ProductID, &mv.LocationID, &mv.Qty, &mvType, &refType, &mv.ReferenceID,
			&mv.Lot.Number, &expiry, &mv.UnitCost, &mv.ExtendedCost, &mv.Reason, &mv.CreatedBy, &mv.CreatedAt); err != nil {
			return nil, err
		}
		mv.Type = MovementType(mvType)
		mv.ReferenceType = ReferenceType(refType)
		if expiry != nil {
			mv.Lot.Expiry = *expiry
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}

// Imbalance reports one balance key whose stored quantity drifted from the sum
// of its movements. The integrity job expects zero rows.
type Imbalance struct {
	ProductID   uuid.UUID
	LocationID  uuid.UUID
	Lot         Lot
	Balance     decimal.Decimal
	MovementSum decimal.Decimal
}

// ListImbalances compares balances against the movement log for one tenant.
func (r *Repository) ListImbalances(ctx context.Context, tenantID uuid.UUID) ([]Imbalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.product_id, b.location_id, b.lot_number, b.expiry_date, b.qty_on_hand, COALESCE(m.total, 0)
FROM inventory_balances b
LEFT JOIN (
  SELECT tenant_id, product_id, location_id, lot_number, expiry_date, SUM(qty) AS total
  FROM stock_movements
  GROUP BY tenant_id, product_id, location_id, lot_number, expiry_date
) m ON m.tenant_id=b.tenant_id AND m.product_id=b.product_id AND m.location_id=b.location_id
   AND m.lot_number=b.lot_number AND m.expiry_date IS NOT DISTINCT FROM b.expiry_date
WHERE b.tenant_id=$1 AND b.qty_on_hand <> COALESCE(m.total, 0)`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var drift []Imbalance
	for rows.Next() {
		var im Imbalance
		var expiry *time.Time
		if err := rows.Scan(&im.ProductID, &im.LocationID, &im.Lot.Number, &expiry, &im.Balance, &im.MovementSum); err != nil {
			return nil, err
		}
		if expiry != nil {
			im.Lot.Expiry = *expiry
		}
		drift = append(drift, im)
	}
	return drift, rows.Err()
}

// ListTenants returns tenants that have ledger activity, for job fan-out.
func (r *Repository) ListTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM inventory_balances`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tenants []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

func scanBalance(row pgx.Row, tenantID, productID, locationID uuid.UUID, lot Lot) (Balance, error) {
	b := Balance{TenantID: tenantID, ProductID: productID, LocationID: locationID, Lot: lot}
	if err := row.Scan(&b.Qty, &b.AvgCost, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return b, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
