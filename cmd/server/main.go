// Command server runs the jsonhandler bridge.
//
// Configuration is read from a YAML file (-config, JSONHANDLER_CONFIG,
// ./config.yaml or /etc/jsonhandler/config.yaml) and JSONHANDLER_*
// environment variables. See pkg/config for all settings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/rhuss/jsonhandler/pkg/auth"
	"github.com/rhuss/jsonhandler/pkg/auth/apikey"
	"github.com/rhuss/jsonhandler/pkg/auth/jwt"
	"github.com/rhuss/jsonhandler/pkg/config"
	"github.com/rhuss/jsonhandler/pkg/debug"
	"github.com/rhuss/jsonhandler/pkg/dispatch"
	"github.com/rhuss/jsonhandler/pkg/document"
	"github.com/rhuss/jsonhandler/pkg/engine"
	"github.com/rhuss/jsonhandler/pkg/exchange"
	"github.com/rhuss/jsonhandler/pkg/journal"
	"github.com/rhuss/jsonhandler/pkg/journal/memory"
	"github.com/rhuss/jsonhandler/pkg/journal/postgres"
	"github.com/rhuss/jsonhandler/pkg/transport"
	transporthttp "github.com/rhuss/jsonhandler/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})

	lib, err := document.Bind(cfg.Handler.Document)
	if err != nil {
		return fmt.Errorf("binding document library: %w", err)
	}

	d, err := dispatch.New(dispatchOptions(cfg))
	if err != nil {
		return fmt.Errorf("creating %s dispatcher: %w", cfg.Handler.Backend, err)
	}
	defer dispatch.Close(d)
	slog.Info("handler bound",
		"backend", cfg.Handler.Backend,
		"library", cfg.Handler.Library,
		"document", lib.Name(),
	)

	j, err := openJournal(context.Background(), cfg.Journal)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	eng, err := engine.New(d, lib, j, engine.Config{
		Timeout:              cfg.Handler.Timeout,
		CorrelationHeader:    cfg.Routes.CorrelationHeader,
		ResponseHeaderPrefix: cfg.Routes.ResponseHeaderPrefix,
		Backend:              cfg.Handler.Backend,
		MaxRelayHeaders:      cfg.Body.MaxRelayHeaders,
		MaxRelayBodySize:     cfg.Body.MaxRelaySize,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	protect, err := authMiddleware(cfg.Auth)
	if err != nil {
		return err
	}

	adapter, err := transporthttp.NewAdapter(eng, eng, j, transporthttp.Config{
		ForwardRoutes: cfg.Routes.Forward,
		ResponseRoute: cfg.Routes.Response,
		MaxBodySize:   cfg.Body.MaxSize,
		Spool: exchange.SpoolOptions{
			MemoryLimit: cfg.Body.MemoryLimit,
			TempDir:     cfg.Body.TempDir,
		},
		Protect:         protect,
		RelayMiddleware: []transport.RelayMiddleware{transport.LogRelay(slog.Default())},
	}, transport.Recovery(), transport.RequestID(), transport.Logging(slog.Default()))
	if err != nil {
		return fmt.Errorf("creating adapter: %w", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}
	srv := transporthttp.NewServer(adapter,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetricsPath(metricsPath),
	)

	slog.Info("routes installed",
		"forward", cfg.Routes.Forward,
		"response", cfg.Routes.Response,
		"journal", cfg.Journal.Type,
		"auth", cfg.Auth.Type,
	)
	return srv.ListenAndServe()
}

func dispatchOptions(cfg *config.Config) dispatch.Options {
	responseURL := cfg.Handler.ResponseURL
	if responseURL == "" {
		responseURL = fmt.Sprintf("http://127.0.0.1:%d%s", cfg.Server.Port, cfg.Routes.Response)
	}
	return dispatch.Options{
		Backend:           cfg.Handler.Backend,
		Library:           cfg.Handler.Library,
		Reentrant:         cfg.Handler.Reentrant,
		URL:               cfg.Handler.URL,
		Timeout:           cfg.Handler.DispatchTimeout,
		NATSURL:           cfg.Handler.NATS.URL,
		NATSSubject:       cfg.Handler.NATS.Subject,
		ResponseURL:       responseURL,
		CorrelationHeader: cfg.Routes.CorrelationHeader,
	}
}

// openJournal returns nil for journal type "none".
func openJournal(ctx context.Context, cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "memory":
		slog.Info("journal enabled", "type", "memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres journal: %w", err)
		}
		slog.Info("journal enabled", "type", "postgres")
		return store, nil
	default:
		slog.Info("journal disabled")
		return nil, nil
	}
}

// authMiddleware builds the wrapper protecting the response channel and
// exchange lookup. It returns nil for auth type "none".
func authMiddleware(cfg config.AuthConfig) (func(http.Handler) http.Handler, error) {
	var authn auth.Authenticator
	switch cfg.Type {
	case "none":
		return nil, nil
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key:      k.Key,
				Identity: auth.Identity{Subject: k.Subject, Scopes: k.Scopes},
			})
		}
		authn = apikey.New(entries)
	case "jwt":
		authn = jwt.New(jwt.Config{
			Issuer:         cfg.JWT.Issuer,
			Audience:       cfg.JWT.Audience,
			JWKSURL:        cfg.JWT.JWKSURL,
			UserClaim:      cfg.JWT.UserClaim,
			ScopesClaim:    cfg.JWT.ScopesClaim,
			MetadataClaims: cfg.JWT.MetadataClaims,
			CacheTTL:       cfg.JWT.CacheTTL,
		})
	default:
		return nil, errors.New("unknown auth type " + cfg.Type)
	}
	chain := &auth.Chain{
		Authenticators: []auth.Authenticator{authn},
		Fallback:       auth.No,
	}
	return auth.Middleware(chain, cfg.RequiredScope), nil
}
