// Package runtime assembles the collaborators the spool commands share:
// logger, model registry resolver, call monitor, and the async transcript
// recorder. Commands construct one Runtime from the loaded config, use its
// pieces for the duration of the invocation, and Close it on exit.
package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spoolhq/spool/pkg/config"
	"github.com/spoolhq/spool/pkg/dotdir"
	"github.com/spoolhq/spool/pkg/logger"
	"github.com/spoolhq/spool/pkg/modelcfg"
	"github.com/spoolhq/spool/pkg/modelcfg/inmemory"
	modelpg "github.com/spoolhq/spool/pkg/modelcfg/postgres"
	modelsqlite "github.com/spoolhq/spool/pkg/modelcfg/sqlite"
	"github.com/spoolhq/spool/pkg/monitor"
	"github.com/spoolhq/spool/pkg/monitor/kafkamon"
	"github.com/spoolhq/spool/pkg/monitor/logmon"
	"github.com/spoolhq/spool/pkg/monitor/nop"
	"github.com/spoolhq/spool/pkg/transcript"
	transcriptinmem "github.com/spoolhq/spool/pkg/transcript/inmemory"
	transcriptpg "github.com/spoolhq/spool/pkg/transcript/postgres"
	transcriptsqlite "github.com/spoolhq/spool/pkg/transcript/sqlite"
	"github.com/spoolhq/spool/pkg/transcript/worker"
)

const sqliteFile = "spool.db"

// Runtime holds the wired collaborators for one command invocation.
type Runtime struct {
	Config   *config.Config
	Logger   *zap.Logger
	Resolver modelcfg.Resolver
	Monitor  monitor.Monitor

	// Transcripts is nil when storage.provider is "none".
	Transcripts *worker.Pool

	transcriptDriver transcript.Driver
	kafka            *kafkamon.Monitor
}

// New loads the config from configDir (or the default .spool/ resolution)
// and wires the runtime from it.
func New(configDir string, debug bool) (*Runtime, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return NewFromConfig(cfg, configDir, debug)
}

// NewFromConfig wires the runtime from an already-loaded config.
func NewFromConfig(cfg *config.Config, configDir string, debug bool) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		Logger: logger.NewLogger(debug),
	}

	if err := rt.wireResolver(configDir); err != nil {
		rt.Close()
		return nil, err
	}

	if err := rt.wireTranscripts(configDir); err != nil {
		rt.Close()
		return nil, err
	}

	rt.wireMonitor()

	return rt, nil
}

// Record enqueues a transcript for async persistence. A nil pool (storage
// disabled) makes this a no-op.
func (rt *Runtime) Record(rec *transcript.Record) {
	if rt.Transcripts == nil {
		return
	}
	rt.Transcripts.Enqueue(worker.Job{Record: rec})
}

// Close drains the transcript pool and releases all held resources.
func (rt *Runtime) Close() {
	if rt.Transcripts != nil {
		rt.Transcripts.Close()
	}

	if rt.transcriptDriver != nil {
		if err := rt.transcriptDriver.Close(); err != nil {
			rt.Logger.Warn("closing transcript store", zap.Error(err))
		}
	}

	if rt.Resolver != nil {
		if err := rt.Resolver.Close(); err != nil {
			rt.Logger.Warn("closing model registry", zap.Error(err))
		}
	}

	if rt.kafka != nil {
		if err := rt.kafka.Close(); err != nil {
			rt.Logger.Warn("closing kafka monitor", zap.Error(err))
		}
	}

	_ = rt.Logger.Sync()
}

// wireResolver builds the model registry. File-configured entries are
// always available; with a database storage provider they are additionally
// persisted so other tools can read the registry.
func (rt *Runtime) wireResolver(configDir string) error {
	entries := rt.Config.ModelEntries()

	switch rt.Config.Storage.Provider {
	case "sqlite":
		path, err := rt.sqlitePath(configDir)
		if err != nil {
			return err
		}

		resolver, err := modelsqlite.NewResolver(path)
		if err != nil {
			return fmt.Errorf("opening model registry: %w", err)
		}

		return rt.seedResolver(resolver, entries)

	case "postgres":
		resolver, err := modelpg.NewResolver(context.Background(), rt.Config.Storage.PostgresURL)
		if err != nil {
			return fmt.Errorf("opening model registry: %w", err)
		}

		return rt.seedResolver(resolver, entries)

	default:
		rt.Resolver = inmemory.NewFromEntries(entries)
		return nil
	}
}

// seeder is the writable side a persistent registry exposes on top of
// modelcfg.Resolver.
type seeder interface {
	modelcfg.Resolver
	Put(ctx context.Context, modelID, tenantID string, cfg modelcfg.ModelConfig) error
}

func (rt *Runtime) seedResolver(resolver seeder, entries []modelcfg.Entry) error {
	ctx := context.Background()
	for _, e := range entries {
		if err := resolver.Put(ctx, e.ModelID, e.TenantID, e.Config); err != nil {
			resolver.Close()
			return fmt.Errorf("seeding model registry: %w", err)
		}
	}

	rt.Resolver = resolver
	return nil
}

func (rt *Runtime) wireTranscripts(configDir string) error {
	var driver transcript.Driver

	switch rt.Config.Storage.Provider {
	case "none":
		return nil

	case "sqlite":
		path, err := rt.sqlitePath(configDir)
		if err != nil {
			return err
		}
		driver, err = transcriptsqlite.NewDriver(path)
		if err != nil {
			return fmt.Errorf("opening transcript store: %w", err)
		}
		rt.Logger.Debug("using sqlite transcript storage", zap.String("path", path))

	case "postgres":
		pg, err := transcriptpg.NewDriver(context.Background(), rt.Config.Storage.PostgresURL)
		if err != nil {
			return fmt.Errorf("opening transcript store: %w", err)
		}
		driver = pg
		rt.Logger.Debug("using postgres transcript storage")

	default:
		rt.Logger.Debug("using in-memory transcript storage")
		driver = transcriptinmem.NewDriver()
	}

	pool, err := worker.NewPool(&worker.Config{
		Driver: driver,
		Logger: rt.Logger,
	})
	if err != nil {
		driver.Close()
		return fmt.Errorf("starting transcript workers: %w", err)
	}

	rt.transcriptDriver = driver
	rt.Transcripts = pool
	return nil
}

func (rt *Runtime) wireMonitor() {
	switch rt.Config.Monitor.Provider {
	case "kafka":
		brokers := strings.Split(rt.Config.Monitor.KafkaBrokers, ",")
		km := kafkamon.NewMonitor(brokers, rt.Config.Monitor.KafkaTopic, rt.Logger)
		rt.kafka = km
		rt.Monitor = km

	case "nop", "none", "":
		rt.Monitor = nop.NewMonitor()

	default:
		rt.Monitor = logmon.NewMonitor(rt.Logger)
	}
}

func (rt *Runtime) sqlitePath(configDir string) (string, error) {
	if rt.Config.Storage.SQLitePath != "" {
		return rt.Config.Storage.SQLitePath, nil
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving sqlite path: %w", err)
	}

	return filepath.Join(target, sqliteFile), nil
}
