package main

import (
	"context"
	"os"
	"time"

	sf "github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/agent"
	"github.com/sells-group/leadgen-cli/internal/browser"
	"github.com/sells-group/leadgen-cli/internal/crawl"
	"github.com/sells-group/leadgen-cli/internal/search"
	"github.com/sells-group/leadgen-cli/internal/store"
	anthropicpkg "github.com/sells-group/leadgen-cli/pkg/anthropic"
	sfpkg "github.com/sells-group/leadgen-cli/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadgen.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initMigratedStore opens the configured store and applies migrations.
func initMigratedStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newBrowserManager() *browser.Manager {
	return browser.NewManager(browser.Config{
		Bin:              cfg.Browser.Bin,
		Headless:         cfg.Browser.Headless,
		NavTimeoutSecs:   cfg.Browser.NavTimeoutSecs,
		StabilizeDelayMS: cfg.Browser.StabilizeDelayMS,
		UserAgent:        cfg.Browser.UserAgent,
	})
}

// newAgentDeps assembles the orchestrator's collaborators from config.
// The caller owns the returned browser manager's lifetime.
func newAgentDeps(st store.Store, mgr *browser.Manager) agent.Deps {
	return agent.Deps{
		Store:              st,
		LLM:                anthropicpkg.NewClient(cfg.Anthropic.Key),
		Search:             search.New(mgr, cfg.Search.RequestsPerSecond),
		Crawler:            crawl.New(mgr, cfg.Crawl.RequestsPerSecond),
		Model:              cfg.Anthropic.Model,
		MaxTokens:          int64(cfg.Anthropic.MaxTokens),
		MaxIterations:      cfg.Agent.MaxIterations,
		PausePollInterval:  time.Duration(cfg.Agent.PausePollSecs) * time.Second,
		FlushInterval:      time.Duration(cfg.Agent.FlushIntervalSecs) * time.Second,
		FlushThreshold:     cfg.Agent.FlushThreshold,
		DefaultCountryCode: cfg.Agent.DefaultCountryCode,
	}
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (LEADGEN_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	client, err := sf.Init(sf.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(client), nil
}
