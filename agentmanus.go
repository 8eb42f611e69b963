// Package agentmanus wires the autonomous agent stack into one deployable
// application. Most programs interact with this package by:
//  1. Loading a config.Config (config.Load)
//  2. Creating an App via New(), optionally overriding the store, the
//     model set or the logger
//  3. Serving the HTTP API (App.Run) or driving turns directly through
//     App.Runner()
//
// New assembles the model catalog and router, the security guard with the
// default toolkit, the reasoning loop, the run manager over the session
// store, and the HTTP server. All defaults are safe for local development;
// production deployments supply a gateway base URL or native provider
// credentials through the config.
package agentmanus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dugongyete-ui/agent-manus/agent"
	"github.com/dugongyete-ui/agent-manus/config"
	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/model"
	"github.com/dugongyete-ui/agent-manus/model/anthropic"
	"github.com/dugongyete-ui/agent-manus/model/gateway"
	"github.com/dugongyete-ui/agent-manus/model/ollama"
	"github.com/dugongyete-ui/agent-manus/model/openai"
	"github.com/dugongyete-ui/agent-manus/parser"
	"github.com/dugongyete-ui/agent-manus/runner"
	"github.com/dugongyete-ui/agent-manus/security"
	"github.com/dugongyete-ui/agent-manus/server"
	"github.com/dugongyete-ui/agent-manus/session"
	"github.com/dugongyete-ui/agent-manus/session/sqlite"
	"github.com/dugongyete-ui/agent-manus/tool"
	"github.com/dugongyete-ui/agent-manus/toolkit"
)

// Options overrides parts of the assembly New builds from the config.
type Options struct {
	// Logger overrides the logger built from the config's logging section.
	Logger logging.Logger
	// Store overrides the sqlite store built from the database section.
	// An injected store is not closed by App.Close.
	Store session.Store
	// Models replaces the catalog-built model set, e.g. mocks in tests.
	Models []model.Model
	// Tools are registered alongside the default toolkit.
	Tools []tool.Tool
}

// App aggregates the assembled subsystems of one agent deployment.
type App struct {
	cfg       *config.Config
	logger    logging.Logger
	store     session.Store
	ownsStore bool
	router    *model.Router
	agent     *agent.Agent
	runner    *runner.Runner
	server    *server.Server
	schedule  *toolkit.ScheduleTool
}

// New builds an App from the config. Any unset override falls back to the
// config-driven default.
func New(cfg *config.Config, optFns ...func(o *Options)) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewSlogLogger(cfg.Logging.LogLevel(), cfg.Logging.Format, false)
	}

	store := opts.Store
	ownsStore := false
	if store == nil {
		var err error
		store, err = sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		ownsStore = true
	}
	fail := func(err error) (*App, error) {
		if ownsStore {
			_ = store.Close()
		}
		return nil, err
	}

	models := opts.Models
	if len(models) == 0 {
		var err error
		models, err = buildModels(cfg, logger)
		if err != nil {
			return fail(err)
		}
	}
	if len(models) == 0 {
		return fail(errors.New("no models configured"))
	}

	registry := model.NewRegistry()
	for _, m := range models {
		if err := registry.Register(m); err != nil {
			return fail(fmt.Errorf("register model: %w", err))
		}
	}
	defaultID := cfg.Models.Default
	if _, ok := registry.Get(defaultID); !ok {
		// Injected model sets may not contain the configured default.
		defaultID = models[0].Info().ID
	}

	router := model.NewRouter(registry, model.NewState(defaultID), func(o *model.RouterOptions) {
		o.Policy = cfg.Retry.Policy()
		o.Logger = logger
	})

	guard := security.NewGuard(func(o *security.GuardOptions) {
		o.WorkspaceRoot = cfg.Workspace.Root
		o.Logger = logger
	})

	tools := tool.NewRegistry()
	schedule, err := toolkit.Register(tools, func(o *toolkit.Options) {
		o.Guard = guard
		o.Logger = logger
	})
	if err != nil {
		return fail(fmt.Errorf("register toolkit: %w", err))
	}
	schedule.RegisterCallback("default", func(ctx context.Context) error {
		logger.Info("scheduled task fired")
		return nil
	})
	for _, t := range opts.Tools {
		if err := tools.Register(t); err != nil {
			return fail(fmt.Errorf("register tool: %w", err))
		}
	}

	dispatcher := tool.NewDispatcher(tools, func(o *tool.DispatcherOptions) {
		o.Guard = guard
		o.Logger = logger
	})

	ag := agent.New(router, parser.New(), dispatcher, func(o *agent.Options) {
		o.MaxIterations = cfg.Loop.MaxIterations
		o.Logger = logger
		o.NewContext = func() *session.Context {
			return session.NewContext(func(co *session.ContextOptions) {
				co.MaxTokens = cfg.Context.MaxTokens
				co.MemoryWindow = cfg.Context.MemoryWindow
				co.SummarizeAfter = cfg.Context.SummarizeAfter
				co.Logger = logger
			})
		}
	})

	run := runner.New(ag, store, func(o *runner.Options) {
		o.MaxConcurrentRuns = cfg.Loop.MaxConcurrentRuns
		o.RunTimeout = cfg.Loop.Timeout()
		o.Logger = logger
	})

	srv := server.New(run, func(o *server.Options) {
		o.RateLimit = cfg.Server.RateLimit
		o.RateWindow = cfg.Server.Window()
		o.Logger = logger
	})

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		ownsStore: ownsStore,
		router:    router,
		agent:     ag,
		runner:    run,
		server:    srv,
		schedule:  schedule,
	}, nil
}

// Run starts the background scheduler and serves the HTTP API until ctx is
// canceled, then drains gracefully.
func (a *App) Run(ctx context.Context) error {
	a.schedule.Start(ctx)
	return a.server.ListenAndServe(ctx, a.cfg.Server.Addr)
}

// Close releases the session store when the App opened it itself.
func (a *App) Close() error {
	if !a.ownsStore {
		return nil
	}
	return a.store.Close()
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() logging.Logger { return a.logger }

// Store returns the session store.
func (a *App) Store() session.Store { return a.store }

// Router returns the model router.
func (a *App) Router() *model.Router { return a.router }

// Agent returns the reasoning loop.
func (a *App) Agent() *agent.Agent { return a.agent }

// Runner returns the run manager for driving turns directly.
func (a *App) Runner() *runner.Runner { return a.runner }

// Server returns the HTTP surface, e.g. to mount its Handler elsewhere.
func (a *App) Server() *server.Server { return a.server }

// Schedule returns the scheduler for registering additional callbacks.
func (a *App) Schedule() *toolkit.ScheduleTool { return a.schedule }

// buildModels instantiates one model per catalog entry. Entries route to a
// native SDK backend when their provider names one; every other provider
// label goes through the streaming gateway.
func buildModels(cfg *config.Config, logger logging.Logger) ([]model.Model, error) {
	models := make([]model.Model, 0, len(cfg.Models.Catalog))
	for _, entry := range cfg.Models.Catalog {
		m, err := buildModel(cfg, entry, logger)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", entry.ID, err)
		}
		models = append(models, m)
	}
	return models, nil
}

func buildModel(cfg *config.Config, entry config.ModelEntry, logger logging.Logger) (model.Model, error) {
	category := model.Category(entry.Category)

	switch strings.ToLower(entry.Provider) {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(entry.ID)
			o.APIKey = cfg.Providers.AnthropicAPIKey
			o.Category = category
		}), nil
	case "openai":
		var clientOpts []option.RequestOption
		if cfg.Providers.OpenAIAPIKey != "" {
			clientOpts = append(clientOpts, option.WithAPIKey(cfg.Providers.OpenAIAPIKey))
		}
		client := openaisdk.NewClient(clientOpts...)
		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			o.Model = entry.ID
			o.Category = category
		}), nil
	case "ollama":
		return ollama.NewModel(func(o *ollama.Options) {
			if cfg.Providers.OllamaBaseURL != "" {
				o.BaseURL = cfg.Providers.OllamaBaseURL
			}
			o.Model = entry.ID
			o.Category = category
		})
	default:
		if cfg.Gateway.BaseURL == "" {
			return nil, errors.New("gateway base url not configured: set gateway.base_url or AGENT_GATEWAY_URL")
		}
		return gateway.New(cfg.Gateway.BaseURL, entry.Info(), func(o *gateway.Options) {
			o.Timeout = cfg.Gateway.RequestTimeout()
			o.Logger = logger
		}), nil
	}
}
