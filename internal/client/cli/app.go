// Package cli wires the offline client together and exposes a small
// interactive shell for inspecting and driving the cache-and-sync
// subsystem.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/smadwh/claimsync/internal/client/config"
	"github.com/smadwh/claimsync/internal/client/gateway"
	"github.com/smadwh/claimsync/internal/client/services"
	"github.com/smadwh/claimsync/internal/client/store"
	syncpkg "github.com/smadwh/claimsync/internal/client/sync"
	"github.com/smadwh/claimsync/internal/logging"
)

// App holds the explicitly constructed instances of the subsystem: one
// store, one gateway, one coordinator, passed to consumers instead of
// living as process-wide singletons.
type App struct {
	cfg         *config.Config
	store       *store.Store
	gw          *gateway.Gateway
	coordinator *syncpkg.Coordinator
	search      *services.SearchService
	log         logging.Logger
	reader      *bufio.Scanner
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	gw := gateway.New(cfg.ServerBaseURL, cfg.RequestTimeout, st, log)
	notify := func(message, level string) {
		fmt.Printf("[%s] %s\n", level, message)
	}
	coordinator := syncpkg.New(gw, st, notify, log)
	search := services.NewSearchService(gw, st, log)

	return &App{
		cfg:         cfg,
		store:       st,
		gw:          gw,
		coordinator: coordinator,
		search:      search,
		log:         log,
		reader:      bufio.NewScanner(os.Stdin),
	}, nil
}

// Run starts the online watcher and the periodic sync in the background,
// then serves the interactive shell until EOF or "exit".
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.coordinator.WatchOnline(ctx, a.cfg.OnlineCheckInterval)
	go a.coordinator.RunPeriodic(ctx, a.cfg.SyncInterval)

	runREPL(ctx, a, a.reader)
}

func (a *App) Close() error {
	return a.store.Close()
}
