// Package cli implements the interactive whisper-money client: a small REPL
// over the service layer, with the sync orchestrator and online watcher
// running in the background.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/whisper-money/whisper-money-sub001/internal/client/api"
	"github.com/whisper-money/whisper-money-sub001/internal/client/config"
	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/syncmeta"
	"github.com/whisper-money/whisper-money-sub001/internal/client/services"
	"github.com/whisper-money/whisper-money-sub001/internal/client/sync"
	"github.com/whisper-money/whisper-money-sub001/internal/filex"
	"github.com/whisper-money/whisper-money-sub001/internal/keystore"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

const appName = "whisper-money"

type App struct {
	config  *config.Config
	repos   *repositories.Repositories
	svc     *services.Services
	hub     *sync.StateHub
	orch    *sync.Orchestrator
	watcher *sync.Watcher
	logger  logging.Logger
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewDefault()

	dir, err := filex.EnsureAppDir(appName)
	if err != nil {
		return nil, fmt.Errorf("prepare app dir: %w", err)
	}
	keys := keystore.New(dir)

	repos, err := repositories.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	remote, err := api.NewHTTPClient(cfg.ServerBaseURL, func() string {
		v, err := repos.Meta.Get(context.Background(), repos.DB, syncmeta.KeySessionToken)
		if err != nil || v == nil {
			return ""
		}
		return string(v)
	})
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	svc := services.New(repos, keys, remote, logger)

	hub := sync.NewStateHub()
	collections := []sync.Collection{
		{Name: models.CollectionAccounts, Apply: repos.Accounts.ApplyRemote},
		{Name: models.CollectionCategories, Apply: repos.Categories.ApplyRemote},
		{Name: models.CollectionLabels, Apply: repos.Labels.ApplyRemote},
		{Name: models.CollectionRules, Apply: repos.Automations.ApplyRemote},
		{Name: models.CollectionBudgets, Apply: repos.Budgets.ApplyRemote},
		{Name: models.CollectionTransactions, Apply: repos.Transactions.ApplyRemote},
	}
	orch := sync.NewOrchestrator(repos.DB, remote, repos.Pending, repos.Meta, collections, hub, logger)
	watcher := sync.NewWatcher(remote, orch, hub, logger, cfg.OnlineCheckInterval)

	return &App{
		config:  cfg,
		repos:   repos,
		svc:     svc,
		hub:     hub,
		orch:    orch,
		watcher: watcher,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the background watcher and periodic sync, then hands the
// terminal to the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() { _ = a.repos.Close() }()

	go a.watcher.Run(ctx)
	go a.orch.RunPeriodic(ctx, a.config.SyncInterval)

	fmt.Println("whisper-money CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

// status renders the prompt segment: key state, connectivity and how many
// changes still wait for the server.
func (a *App) status() string {
	lockState := "locked"
	if a.svc.Keys.IsUnlocked() {
		lockState = "unlocked"
	}

	st := a.hub.State()
	netState := "offline"
	if st.Online {
		netState = "online"
	}

	n, err := a.repos.Pending.Count(context.Background(), a.repos.DB)
	if err != nil {
		n = 0
	}
	if n > 0 {
		return fmt.Sprintf("%s %s %d pending", lockState, netState, n)
	}
	return fmt.Sprintf("%s %s", lockState, netState)
}

func (a *App) isUnlocked() bool {
	return a.svc.Keys.IsUnlocked()
}
