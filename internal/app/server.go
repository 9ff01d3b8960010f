package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/nbchanges/internal/adapters/fixtures"
	"github.com/atvirokodosprendimai/nbchanges/internal/adapters/httpapi"
	sqliteadapter "github.com/atvirokodosprendimai/nbchanges/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/nbchanges/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/nbchanges/internal/core/usecase"
	"github.com/atvirokodosprendimai/nbchanges/migrations"
	"go.uber.org/zap"
)

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewMockServer builds the change log server: it migrates the store at
// cfg.DBPath, replaces its contents with the fixture records and returns an
// unstarted server plus the resources to release after shutdown.
func NewMockServer(ctx context.Context, cfg MockConfig, log *zap.Logger) (*http.Server, io.Closer, error) {
	if log == nil {
		log = zap.NewNop()
	}

	records, err := fixtures.Load(cfg.Fixtures)
	if err != nil {
		return nil, nil, err
	}

	db, err := gormsqlite.Open(cfg.DBPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open change store: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(ctx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	changes := usecase.NewChangeLogService(sqliteadapter.NewChangeRepository(db))
	loaded, err := changes.Load(ctx, records)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("load fixtures: %w", err)
	}
	log.Info("fixtures loaded", zap.String("file", cfg.Fixtures), zap.Int("records", loaded))

	handler := httpapi.NewHandler(changes, usecase.NewAuthService(cfg.Token), log.Named("http"))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, resourceCloser{closers: []io.Closer{db}}, nil
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down", zap.Error(context.Cause(ctx)))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
