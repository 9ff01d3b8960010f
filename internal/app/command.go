package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/atvirokodosprendimai/nbchanges/internal/adapters/netbox"
	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
	"github.com/atvirokodosprendimai/nbchanges/internal/core/ports"
	"github.com/atvirokodosprendimai/nbchanges/internal/core/usecase"
	"github.com/atvirokodosprendimai/nbchanges/internal/logger"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const Name = "nbchanges"

// Options holds the process collaborators; zero values mean the real ones.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time

	HTTPClient *http.Client
	// NewSource overrides the NetBox transport.
	NewSource func(cfg Config, log *zap.Logger) ports.ChangeSource
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewSource == nil {
		httpClient := o.HTTPClient
		o.NewSource = func(cfg Config, log *zap.Logger) ports.ChangeSource {
			return netbox.NewClient(cfg.BaseURL, cfg.Token, httpClient, log)
		}
	}
	return o
}

// Run executes one invocation and returns the process exit code.
func Run(ctx context.Context, args []string, opts Options) int {
	opts = opts.withDefaults()
	err := NewCommand(opts).Run(ctx, args)
	if err == nil {
		return 0
	}

	fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
	var usageErr *domain.UsageError
	if errors.As(err, &usageErr) && usageErr.Usage != "" {
		fmt.Fprintf(opts.Stderr, "Usage: %s %s\n", Name, usageErr.Usage)
	}
	return 1
}

type runner struct {
	opts Options
	log  *zap.Logger
}

func NewCommand(opts Options) *cli.Command {
	opts = opts.withDefaults()
	r := &runner{opts: opts, log: zap.NewNop()}

	root := &cli.Command{
		Name:      Name,
		Usage:     "query the NetBox object change log",
		ArgsUsage: "<command> [args]",
		Writer:    opts.Stdout,
		ErrWriter: opts.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "token",
				Sources: cli.EnvVars("NETBOX_TOKEN"),
				Usage:   "NetBox API token",
			},
			&cli.StringFlag{
				Name:    "base-url",
				Value:   DefaultBaseURL,
				Sources: cli.EnvVars("BASE_URL"),
				Usage:   "NetBox API origin",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Sources: cli.EnvVars("NBCHANGES_LOG_LEVEL"),
				Usage:   "log level: debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Sources: cli.EnvVars("NBCHANGES_LOG_FILE"),
				Usage:   "optional rotating JSON log file",
			},
		},
		Before:       r.setupLogger,
		After:        r.syncLogger,
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if !cmd.Args().Present() {
				return cli.ShowRootCommandHelp(cmd)
			}
			_, _, err := usecase.BuildQuery(cmd.Args().First(), nil, opts.Now())
			return err
		},
	}

	for _, spec := range usecase.Commands() {
		root.Commands = append(root.Commands, r.queryCommand(spec))
	}
	root.Commands = append(root.Commands, r.mockCommand())

	return root
}

func (r *runner) queryCommand(spec usecase.CommandSpec) *cli.Command {
	return &cli.Command{
		Name:         spec.Name,
		Usage:        spec.Summary,
		ArgsUsage:    spec.ArgsUsage,
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query, _, err := usecase.BuildQuery(spec.Name, cmd.Args().Slice(), r.opts.Now())
			if err != nil {
				return err
			}

			cfg := Config{
				Token:   cmd.String("token"),
				BaseURL: cmd.String("base-url"),
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			r.log.Debug("query",
				zap.String("command", query.Command),
				zap.String("params", query.Params.Encode()),
				zap.Stringer("shape", spec.Shape),
			)
			svc := usecase.NewChangeService(r.opts.NewSource(cfg, r.log.Named("netbox")))
			return svc.Show(ctx, query, spec.Shape, r.opts.Stdout)
		},
	}
}

func (r *runner) mockCommand() *cli.Command {
	return &cli.Command{
		Name:         "mock",
		Usage:        "Serve fixture changes on a local object-changes endpoint",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "fixtures",
				Usage: "JSON or YAML file with change records",
			},
			&cli.StringFlag{
				Name:  "addr",
				Value: ":8000",
				Usage: "HTTP listen address",
			},
			&cli.StringFlag{
				Name:  "db-path",
				Value: "./nbchanges-mock.sqlite",
				Usage: "SQLite file for the mock store, rebuilt on every start",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := MockConfig{
				Addr:     cmd.String("addr"),
				DBPath:   cmd.String("db-path"),
				Fixtures: cmd.String("fixtures"),
				Token:    cmd.String("token"),
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			server, closer, err := NewMockServer(ctx, cfg, r.log)
			if err != nil {
				return fmt.Errorf("create mock server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					r.log.Warn("close resources", zap.Error(closeErr))
				}
			}()

			return serve(ctx, server, r.log)
		},
	}
}

func (r *runner) setupLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	log, err := logger.New(&logger.Config{
		Level: cmd.String("log-level"),
		File:  cmd.String("log-file"),
	}, r.opts.Stderr)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	r.log = log
	zap.ReplaceGlobals(log)
	return ctx, nil
}

func (r *runner) syncLogger(context.Context, *cli.Command) error {
	// Sync on a terminal or pipe can fail with EINVAL; nothing to report.
	_ = r.log.Sync()
	return nil
}

func onUsageError(_ context.Context, cmd *cli.Command, err error, _ bool) error {
	usage := cmd.Name
	if cmd.ArgsUsage != "" {
		usage += " " + cmd.ArgsUsage
	}
	if cmd.Root() == cmd {
		usage = "help"
	}
	return &domain.UsageError{Problem: err.Error(), Usage: usage}
}
