package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/limitwatch/internal/adapters/history"
	"github.com/bnema/limitwatch/internal/adapters/providers"
	statusadapter "github.com/bnema/limitwatch/internal/adapters/render/status"
	tomlrepo "github.com/bnema/limitwatch/internal/adapters/repo/toml"
	chainstore "github.com/bnema/limitwatch/internal/adapters/secrets/chain"
	"github.com/bnema/limitwatch/internal/application"
	"github.com/bnema/limitwatch/internal/config"
	"github.com/bnema/limitwatch/internal/ports"
)

var errHistoryDisabled = errors.New("history is disabled, set history.enabled = true in config.toml")

type app struct {
	cfg            *config.Config
	service        *application.Service
	orchestrator   *application.Orchestrator
	secretStore    ports.SecretStore
	registry       ports.UnitRegistry
	openHistory    func() (ports.HistoryStore, error)
	statusRenderer func(*application.Result, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	configDir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}

	repo, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	secretStore, err := chainstore.ForBackend(cfg.Secrets.Backend, config.SecretsDir(configDir))
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	registry := providers.DefaultRegistry(http.DefaultClient)
	service := application.NewService(repo, secretStore, registry, ports.SystemClock{})

	return &app{
		cfg:          cfg,
		service:      service,
		orchestrator: application.NewOrchestrator(service, registry, ports.SystemClock{}),
		secretStore:  secretStore,
		registry:     registry,
		openHistory: func() (ports.HistoryStore, error) {
			if !cfg.History.Enabled {
				return nil, errHistoryDisabled
			}
			return history.Open(cfg.History.Path)
		},
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}, nil
}
