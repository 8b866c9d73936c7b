package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bnema/dealer-pipeline/internal/adapters/authz"
	"github.com/bnema/dealer-pipeline/internal/adapters/notify"
	boardadapter "github.com/bnema/dealer-pipeline/internal/adapters/render/board"
	badgerrepo "github.com/bnema/dealer-pipeline/internal/adapters/repo/badger"
	tomlrepo "github.com/bnema/dealer-pipeline/internal/adapters/repo/toml"
	"github.com/bnema/dealer-pipeline/internal/application"
	"github.com/bnema/dealer-pipeline/internal/config"
	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/bnema/dealer-pipeline/internal/ports"
	"github.com/spf13/cobra"
)

type app struct {
	cfg           config.Config
	logger        *slog.Logger
	repo          ports.RecordRepository
	bus           *notify.Bus
	service       *application.Service
	boardRenderer func(domain.PipelineSnapshot, boardadapter.RenderOptions) (string, error)
	now           func() time.Time

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

func wireApp() (*app, error) {
	v, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg)

	a := &app{
		cfg:           cfg,
		logger:        logger,
		boardRenderer: boardadapter.Render,
		now:           time.Now,
	}

	switch cfg.Backend {
	case config.BackendBadger:
		dbCfg := badgerrepo.DefaultConfig(cfg.BadgerPath)
		dbCfg.Logger = logger
		repo, err := badgerrepo.NewRepository(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("wire badger repository: %w", err)
		}
		a.repo = repo
		a.closers = append(a.closers, repo.Close)
	default:
		repo, err := tomlrepo.NewRepository(v)
		if err != nil {
			return nil, fmt.Errorf("wire record repository: %w", err)
		}
		a.repo = repo
	}

	a.bus = notify.NewBus(notify.DefaultBufferSize, logger)
	a.bus.Subscribe(notify.NewLogNotifier(logger).Send)

	a.service = application.NewService(a.repo, authz.NewRolePolicy(logger), a.bus, ports.SystemClock{},
		application.WithLogger(logger),
		application.WithHistorySize(cfg.HistorySize),
		application.WithSaveTimeout(cfg.SaveTimeout),
	)

	return a, nil
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// run wraps a command body. With load set, the pipeline is hydrated from the
// repository first. Pending saves are drained and resources released once the
// body returns.
func (a *app) run(load bool, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, a.close())
		}()

		if load {
			if err := a.service.Load(cmd.Context()); err != nil {
				return err
			}
		}
		return fn(cmd, args)
	}
}

func (a *app) close() error {
	a.closeOnce.Do(func() {
		a.service.Close()
		a.bus.Close()
		for _, closer := range a.closers {
			a.closeErr = errors.Join(a.closeErr, closer())
		}
	})
	return a.closeErr
}
