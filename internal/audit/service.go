package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stockroom-hq/stockroom/internal/shared"
)

// Result wraps timeline rows with paging information.
type Result struct {
	Events  []Event
	Page    int
	HasNext bool
}

// TimelineStore reads persisted audit events.
type TimelineStore interface {
	List(ctx context.Context, tenantID uuid.UUID, filters TimelineFilters, limit, offset int) ([]Event, error)
}

// Service coordinates audit timeline reads.
type Service struct {
	repo TimelineStore
}

// NewService builds the audit timeline service.
func NewService(repo TimelineStore) *Service {
	return &Service{repo: repo}
}

// Timeline fetches audit events with paging. One extra row is read to decide
// whether a next page exists.
func (s *Service) Timeline(ctx context.Context, tenantID uuid.UUID, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	p := shared.Pagination{Page: filters.Page, PageSize: filters.PageSize}.Normalize()

	rows, err := s.repo.List(ctx, tenantID, filters, p.PageSize+1, p.Offset())
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > p.PageSize
	if hasNext {
		rows = rows[:p.PageSize]
	}
	return Result{Events: rows, Page: p.Page, HasNext: hasNext}, nil
}
