package usecase

import (
	"context"
	"io"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
	"github.com/atvirokodosprendimai/nbchanges/internal/core/ports"
)

type ChangeService struct {
	source ports.ChangeSource
}

func NewChangeService(source ports.ChangeSource) *ChangeService {
	return &ChangeService{source: source}
}

// Show fetches one page of changes for query and writes it to w in shape.
func (s *ChangeService) Show(ctx context.Context, query domain.Query, shape Shape, w io.Writer) error {
	body, err := s.source.Fetch(ctx, query)
	if err != nil {
		return err
	}
	return Render(w, shape, body)
}
