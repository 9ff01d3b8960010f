package ports

import (
	"context"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
)

// ChangeSource fetches the raw body of one change log request.
type ChangeSource interface {
	Fetch(ctx context.Context, query domain.Query) ([]byte, error)
}

type ChangeRepository interface {
	ReplaceAll(ctx context.Context, records []domain.ChangeRecord) (int, error)
	List(ctx context.Context, filter domain.ChangeFilter) (domain.ChangePage, error)
}
