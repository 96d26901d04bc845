package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is one audit record. The core emits it after a transition commits,
// never before; delivery is fire-and-forget through the background queue.
type Event struct {
	ID           int64          `json:"id,omitempty"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	ActorID      uuid.UUID      `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	ResourceName string         `json:"resource_name,omitempty"`
	OldValues    map[string]any `json:"old_values,omitempty"`
	NewValues    map[string]any `json:"new_values,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// TimelineFilters narrows timeline queries.
type TimelineFilters struct {
	ResourceType string
	ResourceID   string
	Action       string
	Page         int
	PageSize     int
}
