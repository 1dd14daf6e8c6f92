package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/confirm"
	"github.com/Shlokpalrecha/Finguru/internal/config"
	"github.com/Shlokpalrecha/Finguru/internal/engine"
	"github.com/Shlokpalrecha/Finguru/internal/extractor"
	"github.com/Shlokpalrecha/Finguru/internal/gate"
	"github.com/Shlokpalrecha/Finguru/internal/ledger"
	"github.com/Shlokpalrecha/Finguru/internal/llm"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/pending"
	"github.com/Shlokpalrecha/Finguru/internal/spec"
	"github.com/Shlokpalrecha/Finguru/internal/storage"
	"github.com/Shlokpalrecha/Finguru/internal/validator"
	"github.com/spf13/viper"
)

// app is the wired pipeline shared by the commands. engine is nil unless the
// command asked for the oracle.
type app struct {
	settings  *config.Settings
	logger    *slog.Logger
	storage   *storage.SQLiteStorage
	specs     *spec.Store
	ledger    *ledger.Writer
	pending   pending.Store
	engine    *engine.Engine
	resolver  *confirm.Resolver
	formatter *cli.Formatter
	closers   []func() error
}

// loadSettings resolves configuration from the global viper instance.
func loadSettings() (*config.Settings, error) {
	s, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Your FinGuru configuration is invalid. Check the config file and environment.", err)
	}
	return s, nil
}

// newApp opens storage and the specification and wires the ledger,
// pending store and confirmation resolver. withOracle also builds the
// extraction engine.
func newApp(ctx context.Context, withOracle bool) (*app, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	specs, err := spec.Open(settings.SpecPath, logger)
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, settings.DBPath)
	if err != nil {
		return nil, err
	}
	store.SetLogger(logger)

	a := &app{
		settings:  settings,
		logger:    logger,
		storage:   store,
		specs:     specs,
		formatter: cli.NewFormatter(specs.Current().Categories()),
		closers:   []func() error{store.Close},
	}

	a.ledger = ledger.New(store, settings.GSTMode, logger,
		ledger.WithCategories(specs.Current().Categories()))

	switch settings.Pending.Backend {
	case config.PendingBackendMemory:
		mem := pending.NewMemoryStore(time.Minute, pending.WithLogger(logger))
		a.pending = mem
		a.closers = append(a.closers, mem.Close)
	default:
		ps := store.PendingStore()
		if purged, err := ps.Purge(ctx); err != nil {
			logger.Warn("Failed to purge expired pending decisions", "error", err)
		} else if purged > 0 {
			logger.Info("Purged expired pending decisions", "count", purged)
		}
		a.pending = ps
	}

	a.resolver = confirm.New(specs, a.pending, a.ledger, settings.GSTMode, logger)

	if withOracle {
		if err := a.initEngine(); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) initEngine() error {
	oracle, err := llm.NewOracle(a.settings.LLM)
	if err != nil {
		return common.NewUserError("The reasoning service is not configured. Set llm.provider and an API key.", err)
	}

	ext := extractor.New(oracle, a.logger, extractor.WithRetryDelay(a.settings.RetryDelay))
	val := validator.New(validator.Config{
		GSTMode:             a.settings.GSTMode,
		DisagreementPenalty: a.settings.Validator.DisagreementPenalty,
		FallbackPenalty:     a.settings.Validator.FallbackPenalty,
	}, a.logger)
	g := gate.New(a.ledger, a.pending, a.settings.Threshold, a.logger, gate.WithTTL(a.settings.Pending.TTL))

	a.engine = engine.New(a.specs, ext, val, g, a.logger, engine.WithWorkers(a.settings.Workers))
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", "error", err)
		}
	}
}

// initStorage opens and migrates the ledger database.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// parseDate validates a YYYY-MM-DD flag value. Empty stays empty.
func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, common.NewUserError(
			fmt.Sprintf("--%s must be a date like 2024-03-15.", flag),
			fmt.Errorf("%w: %s %q", common.ErrInvalidInput, flag, value))
	}
	return t, nil
}

func notFound(what, id string) error {
	return common.NewUserError(
		fmt.Sprintf("No %s with ID %s.", what, id),
		fmt.Errorf("%w: %s %s", common.ErrNotFound, what, id))
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrPendingNotFound)
}
