package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	Window(ctx context.Context, tenantID int64, f TimelineFilters, offset, limit int) ([]Entry, error)
}

// Service coordinates audit writes and timeline reads.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs an audit service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Record appends an entry, stamping the time when unset.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("audit: service not configured")
	}
	if e.Capability == "" || e.Kind == "" {
		return fmt.Errorf("audit: entry requires capability and kind")
	}
	if e.At.IsZero() {
		e.At = s.now().UTC()
	}
	return s.store.Insert(ctx, e)
}

// Timeline returns one page of a tenant's audit trail, newest first.
func (s *Service) Timeline(ctx context.Context, tenantID int64, filters TimelineFilters) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("audit: service not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.store.Window(ctx, tenantID, filters, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}
