package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
)

type stubSource struct {
	fetchFn func(ctx context.Context, query domain.Query) ([]byte, error)
	calls   int
}

func (s *stubSource) Fetch(ctx context.Context, query domain.Query) ([]byte, error) {
	s.calls++
	if s.fetchFn != nil {
		return s.fetchFn(ctx, query)
	}
	return []byte(`{"results":[]}`), nil
}

func TestChangeServiceShowPassesQueryToSource(t *testing.T) {
	src := &stubSource{
		fetchFn: func(_ context.Context, query domain.Query) ([]byte, error) {
			if query.Params.Get("user__username") != "alice" {
				t.Fatalf("unexpected params: %v", query.Params)
			}
			return []byte(sampleBody), nil
		},
	}
	svc := NewChangeService(src)

	q, spec, err := BuildQuery("user", []string{"alice"}, fixedNow)
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	var out bytes.Buffer
	if err := svc.Show(context.Background(), q, spec.Shape, &out); err != nil {
		t.Fatalf("show: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected one fetch, got %d", src.calls)
	}
	if !strings.Contains(out.String(), "\n  \"results\": [\n") {
		t.Fatalf("expected pretty output, got %q", out.String())
	}
}

func TestChangeServiceShowPropagatesTransportError(t *testing.T) {
	src := &stubSource{
		fetchFn: func(context.Context, domain.Query) ([]byte, error) {
			return nil, domain.ErrTransport
		},
	}
	svc := NewChangeService(src)

	err := svc.Show(context.Background(), domain.Query{Command: "latest"}, ShapeLines, &bytes.Buffer{})
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
