package usecase

import (
	"context"
	"fmt"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
	"github.com/atvirokodosprendimai/nbchanges/internal/core/ports"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// ChangeLogService serves the change log held by the mock server's store.
type ChangeLogService struct {
	repo ports.ChangeRepository
}

func NewChangeLogService(repo ports.ChangeRepository) *ChangeLogService {
	return &ChangeLogService{repo: repo}
}

// Load replaces the stored change log with records.
func (s *ChangeLogService) Load(ctx context.Context, records []domain.ChangeRecord) (int, error) {
	for i, rec := range records {
		if rec.Time == "" {
			continue
		}
		if _, err := domain.ParseTimestamp(rec.Time); err != nil {
			return 0, fmt.Errorf("record %d: invalid time %q: %w", i, rec.Time, err)
		}
	}
	return s.repo.ReplaceAll(ctx, records)
}

func (s *ChangeLogService) List(ctx context.Context, filter domain.ChangeFilter) (domain.ChangePage, error) {
	if filter.Offset < 0 {
		return domain.ChangePage{}, &domain.FilterError{Fields: map[string]string{"offset": "must not be negative"}}
	}
	if filter.ObjectID < 0 {
		return domain.ChangePage{}, &domain.FilterError{Fields: map[string]string{"changed_object_id": "must not be negative"}}
	}
	filter.Limit = PageLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

// PageLimit returns the page size actually served for a requested limit.
func PageLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
