package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// Repository persists documents and lines in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	ledger.TxRepository
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction. The
// wrapper carries the ledger's transactional operations bound to the same
// pgx.Tx, so a document transition and its inventory effect are one unit of
// work.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("documents repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	wrapper := &txRepository{TxRepository: ledger.NewTxRepository(tx), tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const documentColumns = `id, kind, number, status, supplier_id, customer_id, location_id, from_location_id, to_location_id,
ship_date, count_date, COALESCE(reason,''), COALESCE(return_type,''), COALESCE(notes,''), created_by, created_at, updated_at`

// GetDocument fetches a document with its lines, tenant-scoped.
func (r *Repository) GetDocument(ctx context.Context, tenantID, id uuid.UUID) (Document, []Line, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	doc, err := scanDocument(row, tenantID)
	if err != nil {
		return Document{}, nil, err
	}
	lines, err := listLines(ctx, r.pool, doc.ID)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, lines, nil
}

// ListDocuments returns document headers, newest first.
func (r *Repository) ListDocuments(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Document, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents
WHERE tenant_id=$1 AND ($2='' OR kind=$2) AND ($3='' OR status=$3)
ORDER BY created_at DESC LIMIT $4`, tenantID, string(filter.Kind), string(filter.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows, tenantID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *txRepository) InsertDocument(ctx context.Context, doc Document) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO documents
(id, tenant_id, kind, number, status, supplier_id, customer_id, location_id, from_location_id, to_location_id,
 ship_date, count_date, reason, return_type, notes, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW())`,
		doc.ID, doc.TenantID, string(doc.Kind), doc.Number, string(doc.Status),
		nullID(doc.SupplierID), nullID(doc.CustomerID), nullID(doc.LocationID), nullID(doc.FromLocationID), nullID(doc.ToLocationID),
		nullStamp(doc.ShipDate), nullStamp(doc.CountDate), nullText(string(doc.Reason)), nullText(string(doc.ReturnType)), nullText(doc.Notes), doc.CreatedBy)
	return err
}

// InsertLines stores the lines and returns them with their generated row IDs,
// which later receipts address lines by.
func (r *txRepository) InsertLines(ctx context.Context, docID uuid.UUID, lines []Line) ([]Line, error) {
	stored := make([]Line, 0, len(lines))
	for _, line := range lines {
		var unitCost any
		if line.UnitCostSet {
			unitCost = line.UnitCost
		}
		err := r.tx.QueryRow(ctx, `INSERT INTO document_lines
(document_id, product_id, qty, qty_received, system_qty, counted_qty, lot_number, expiry_date, unit_cost, note)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
			docID, line.ProductID, line.Qty, line.QtyReceived, line.SystemQty, line.CountedQty,
			line.Lot.Number, lineExpiry(line.Lot), unitCost, nullText(line.Note)).Scan(&line.ID)
		if err != nil {
			return nil, err
		}
		line.DocumentID = docID
		stored = append(stored, line)
	}
	return stored, nil
}

func (r *txRepository) DeleteLines(ctx context.Context, docID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id=$1`, docID)
	return err
}

// GetDocumentForUpdate locks the document row for the rest of the
// transaction, serializing concurrent transitions against the same document.
func (r *txRepository) GetDocumentForUpdate(ctx context.Context, tenantID, docID uuid.UUID) (Document, []Line, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, docID)
	doc, err := scanDocument(row, tenantID)
	if err != nil {
		return Document{}, nil, err
	}
	lines, err := listLines(ctx, r.tx, doc.ID)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, lines, nil
}

func (r *txRepository) UpdateDocumentStatus(ctx context.Context, docID uuid.UUID, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE documents SET status=$2, updated_at=NOW() WHERE id=$1`, docID, string(status))
	return err
}

func (r *txRepository) UpdateLineReceived(ctx context.Context, lineID int64, qtyReceived decimal.Decimal) error {
	_, err := r.tx.Exec(ctx, `UPDATE document_lines SET qty_received=$2 WHERE id=$1`, lineID, qtyReceived)
	return err
}

func (r *txRepository) UpdateShipDate(ctx context.Context, docID uuid.UUID, shipDate time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE documents SET ship_date=$2, updated_at=NOW() WHERE id=$1`, docID, shipDate)
	return err
}

func (r *txRepository) DeleteDocument(ctx context.Context, docID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM documents WHERE id=$1`, docID)
	return err
}

func (r *txRepository) NextNumber(ctx context.Context, tenantID uuid.UUID, kind Kind) (string, error) {
	return shared.NextDocumentNumber(ctx, r.tx, tenantID, string(kind), numberPrefixes[kind])
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listLines(ctx context.Context, q querier, docID uuid.UUID) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, product_id, qty, qty_received, system_qty, counted_qty, lot_number, expiry_date, unit_cost, COALESCE(note,'')
FROM document_lines WHERE document_id=$1 ORDER BY id`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []Line{}
	for rows.Next() {
		line := Line{DocumentID: docID}
		var expiry *time.Time
		var unitCost *decimal.Decimal
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Qty, &line.QtyReceived, &line.SystemQty, &line.CountedQty,
			&line.Lot.Number, &expiry, &unitCost, &line.Note); err != nil {
			return nil, err
		}
		if expiry != nil {
			line.Lot.Expiry = *expiry
		}
		if unitCost != nil {
			line.UnitCost = *unitCost
			line.UnitCostSet = true
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, tenantID uuid.UUID) (Document, error) {
	doc := Document{TenantID: tenantID}
	var kind, status, reason, returnType string
	var supplier, customer, location, fromLoc, toLoc *uuid.UUID
	var shipDate, countDate *time.Time
	err := row.Scan(&doc.ID, &kind, &doc.Number, &status, &supplier, &customer, &location, &fromLoc, &toLoc,
		&shipDate, &countDate, &reason, &returnType, &doc.Notes, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, shared.NewNotFoundError("document", "")
		}
		return Document{}, err
	}
	doc.Kind = Kind(kind)
	doc.Status = Status(status)
	doc.Reason = AdjustmentReason(reason)
	doc.ReturnType = ReturnType(returnType)
	assignID(&doc.SupplierID, supplier)
	assignID(&doc.CustomerID, customer)
	assignID(&doc.LocationID, location)
	assignID(&doc.FromLocationID, fromLoc)
	assignID(&doc.ToLocationID, toLoc)
	if shipDate != nil {
		doc.ShipDate = *shipDate
	}
	if countDate != nil {
		doc.CountDate = *countDate
	}
	return doc, nil
}

func assignID(dst *uuid.UUID, src *uuid.UUID) {
	if src != nil {
		*dst = *src
	}
}

func nullID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func lineExpiry(l ledger.Lot) any {
	if !l.HasExpiry() {
		return nil
	}
	return l.Expiry
}
