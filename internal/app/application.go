// Package app wires the services together into one runnable application.
package app

import (
	"context"
	"math/rand"
	"time"

	"github.com/lotterylab/lotterylab/internal/cache"
	"github.com/lotterylab/lotterylab/internal/config"
	"github.com/lotterylab/lotterylab/internal/httpapi"
	"github.com/lotterylab/lotterylab/internal/metrics"
	"github.com/lotterylab/lotterylab/internal/services/analysis"
	"github.com/lotterylab/lotterylab/internal/services/draws"
	"github.com/lotterylab/lotterylab/internal/services/export"
	"github.com/lotterylab/lotterylab/internal/services/generator"
	"github.com/lotterylab/lotterylab/internal/services/ingestion"
	"github.com/lotterylab/lotterylab/internal/storage"
	"github.com/lotterylab/lotterylab/internal/storage/memory"
	"github.com/lotterylab/lotterylab/internal/system"
	"github.com/lotterylab/lotterylab/pkg/logger"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Stores encapsulates persistence dependencies. Nil stores default to a
// shared in-memory implementation. Ping, when set, reports backend
// reachability for the health endpoint.
type Stores struct {
	Draws      storage.DrawStore
	ImportRuns storage.ImportRunStore
	Ping       func(context.Context) error
}

// Application ties the services together and manages their lifecycle.
type Application struct {
	Handler   *httpapi.Handler
	Manager   *system.Manager
	Ingestion *ingestion.Service

	log *logger.Logger
}

// New builds a fully initialised application with the provided stores. When
// ingestion is enabled the background updater is registered on the Manager;
// the caller starts and stops the manager around the HTTP server's lifetime.
func New(cfg config.Config, stores Stores, c *cache.Cache, m *metrics.Metrics, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if stores.Draws == nil || stores.ImportRuns == nil {
		mem := memory.New()
		if stores.Draws == nil {
			stores.Draws = mem
		}
		if stores.ImportRuns == nil {
			stores.ImportRuns = mem
		}
	}

	analysisSvc := analysis.New(stores.Draws, log.WithField("component", "analysis"))

	manager := system.NewManager()
	var ingestionSvc *ingestion.Service
	if cfg.Ingestion.Enabled {
		fetcher := ingestion.NewFetcher(
			cfg.Ingestion.SourceURL,
			cfg.Ingestion.RawDir,
			cfg.Ingestion.Retention,
			cfg.Ingestion.FetchTimeout,
			log.WithField("component", "fetcher"),
		)
		ingestionSvc = ingestion.New(
			stores.Draws, stores.ImportRuns, fetcher, m,
			cfg.Ingestion.GameProvider,
			log.WithField("component", "ingestion"),
		)

		updater, err := ingestion.NewUpdater(ingestionSvc, cfg.Ingestion.Schedule, log.WithField("component", "updater"))
		if err != nil {
			return nil, err
		}
		if err := manager.Register(updater); err != nil {
			return nil, err
		}
	} else {
		// The updater slot stays registered even with the feed turned off.
		if err := manager.Register(system.NoopService{ServiceName: "feed-updater"}); err != nil {
			return nil, err
		}
	}

	services := httpapi.Services{
		Draws:     draws.New(stores.Draws, stores.ImportRuns, log.WithField("component", "draws")),
		Analysis:  analysisSvc,
		Generator: generator.New(analysisSvc, rand.New(rand.NewSource(time.Now().UnixNano())), log.WithField("component", "generator")),
		Export:    export.New(stores.Draws, analysisSvc, log.WithField("component", "export")),
		Ingestion: ingestionSvc,
	}

	handler := httpapi.New(services, httpapi.Options{
		Cache:              c,
		Metrics:            m,
		RateLimitPerSecond: cfg.HTTP.RateLimitPerSecond,
		RateLimitBurst:     cfg.HTTP.RateLimitBurst,
		CORSOrigins:        cfg.HTTP.CORSOrigins,
		Version:            Version,
		DBCheck:            stores.Ping,
	}, log.WithField("component", "httpapi"))

	return &Application{
		Handler:   handler,
		Manager:   manager,
		Ingestion: ingestionSvc,
		log:       log,
	}, nil
}
