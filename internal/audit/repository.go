package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists audit events in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one event.
func (r *Repository) Insert(ctx context.Context, event Event) error {
	if r == nil {
		return errors.New("audit repository not initialised")
	}
	if event.Action == "" || event.ResourceType == "" || event.ResourceID == "" {
		return errors.New("audit event requires action/resource_type/resource_id")
	}
	oldJSON, err := json.Marshal(event.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := json.Marshal(event.NewValues)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_logs
(tenant_id, actor_id, action, resource_type, resource_id, resource_name, old_values, new_values, notes, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,COALESCE($10, NOW()))`,
		event.TenantID, event.ActorID, event.Action, event.ResourceType, event.ResourceID,
		event.ResourceName, oldJSON, newJSON, event.Notes, nullTime(event.OccurredAt))
	return err
}

// List returns events for the tenant, newest first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, filters TimelineFilters, limit, offset int) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, actor_id, action, resource_type, resource_id, resource_name, old_values, new_values, notes, occurred_at
FROM audit_logs
WHERE tenant_id=$1
  AND ($2='' OR resource_type=$2)
  AND ($3='' OR resource_id=$3)
  AND ($4='' OR action=$4)
ORDER BY occurred_at DESC, id DESC
LIMIT $5 OFFSET $6`, tenantID, filters.ResourceType, filters.ResourceID, filters.Action, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := []Event{}
	for rows.Next() {
		event := Event{TenantID: tenantID}
		var oldJSON, newJSON []byte
		if err := rows.Scan(&event.ID, &event.ActorID, &event.Action, &event.ResourceType, &event.ResourceID,
			&event.ResourceName, &oldJSON, &newJSON, &event.Notes, &event.OccurredAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(oldJSON, &event.OldValues)
		_ = json.Unmarshal(newJSON, &event.NewValues)
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
