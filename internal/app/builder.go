// Package app wires configuration into the running pieces of the board server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/chess"
	"github.com/park285/cheese-board/internal/config"
	"github.com/park285/cheese-board/internal/httpapi"
	"github.com/park285/cheese-board/internal/match"
	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/record"
	"github.com/park285/cheese-board/internal/render"
	"github.com/park285/cheese-board/internal/store"
)

type Deps struct {
	Manager  *match.Manager
	Server   *httpapi.Server
	Renderer *render.Renderer
	Catalog  *msgcat.Catalog
	Repo     record.Repository

	// Provider is nil when no engine was found; OracleErr says why.
	Provider  *chess.Provider
	OracleErr error
	Store     *store.Store
	DB        *sql.DB
}

// Build constructs every dependency named by cfg. A missing engine is not
// fatal: human matches still work and computer matches report OracleErr.
// Redis and Postgres are optional, but fail the build when configured and unreachable.
func Build(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	sessCfg, err := cfg.Game.Session()
	if err != nil {
		return nil, fmt.Errorf("game config: %w", err)
	}
	table, err := cfg.DifficultyTable()
	if err != nil {
		return nil, fmt.Errorf("difficulties: %w", err)
	}

	// Engine
	bin, err := chess.Locate(cfg.StockfishPath, cfg.StockfishFallbacks)
	if err == nil {
		d.Provider, err = chess.NewProvider(bin, table,
			chess.WithCapacity(cfg.EnginesPerTier),
			chess.WithEngineArgs(cfg.StockfishArgs...),
			chess.WithLogger(logger.Named("oracle")),
		)
	}
	if err != nil {
		d.OracleErr = err
		logger.Warn("oracle_unavailable", zap.Error(err))
	} else {
		logger.Info("oracle_ready", zap.String("path", bin), zap.Strings("difficulties", table.Names()))
	}

	// Snapshots (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		d.Store, err = store.Open(ctx, cfg.RedisURL, cfg.SnapshotTTL())
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init snapshot store: %w", err)
		}
	}

	// Finished games (Postgres optional)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		d.DB, err = record.OpenPostgres(ctx, cfg.DatabaseURL)
		if err == nil {
			err = record.EnsureSchema(ctx, d.DB)
		}
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init game repository: %w", err)
		}
		d.Repo = record.NewRepository(d.DB)
	} else {
		d.Repo = record.NewMemoryRepository()
	}

	d.Catalog, err = msgcat.New(cfg.MessagesDir)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}

	var src match.OracleSource
	if d.Provider != nil {
		src = match.FromProvider(d.Provider)
	}
	opts := []match.Option{
		match.WithOracleSource(src, d.OracleErr),
		match.WithRepository(d.Repo),
		match.WithCatalog(d.Catalog),
		match.WithLogger(logger.Named("match")),
		match.WithAnnouncer(func(a match.Announcement) {
			logger.Info("announcement", zap.String("match", a.MatchID), zap.String("key", a.Key), zap.String("text", a.Text))
		}),
	}
	if d.Store != nil {
		opts = append(opts, match.WithStore(d.Store))
	}
	d.Manager = match.New(sessCfg, cfg.Game.FrameInterval(), opts...)

	d.Renderer = render.New(render.Geometry{BoardSize: cfg.Geometry.BoardSize, MarginTop: cfg.Geometry.MarginTop})
	d.Server = httpapi.NewServer(d.Manager, d.Renderer,
		httpapi.WithLogger(logger.Named("http")),
		httpapi.WithCatalog(d.Catalog),
		httpapi.WithHistoryLimit(cfg.HistoryLimit),
		httpapi.WithOracleReady(d.Provider != nil),
	)
	return d, nil
}

// ResumeStored brings back every match left in the snapshot store and returns
// how many were resumed. Matches that cannot be resumed are logged and skipped.
func (d *Deps) ResumeStored(ctx context.Context, logger *zap.Logger) (int, error) {
	if d.Store == nil {
		return 0, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ids, err := d.Store.IDs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if _, err := d.Manager.Resume(ctx, id); err != nil {
			logger.Warn("match_resume_failed", zap.String("match", id), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// Close releases engines and connections. The manager should be shut down first.
func (d *Deps) Close() error {
	var errs []error
	if d.Provider != nil {
		errs = append(errs, d.Provider.Close())
	}
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	return errors.Join(errs...)
}
