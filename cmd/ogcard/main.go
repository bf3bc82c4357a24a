package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"     // Load .env before config is read
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	ethadapter "github.com/ericfisherdev/ogcard/internal/adapter/driven/ethereum"
	githubadapter "github.com/ericfisherdev/ogcard/internal/adapter/driven/github"
	"github.com/ericfisherdev/ogcard/internal/adapter/driven/justaname"
	sqliteadapter "github.com/ericfisherdev/ogcard/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/ogcard/internal/adapter/driving/http"
	"github.com/ericfisherdev/ogcard/internal/application"
	"github.com/ericfisherdev/ogcard/internal/config"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
	"github.com/ericfisherdev/ogcard/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"rate_limit_refresh", cfg.RateLimitRefresh,
		"chain", cfg.HasChain(),
		"signer", cfg.HasSigner(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Metrics registry.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Init(reg); err != nil {
		return err
	}

	// 4. Open database and run migrations.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// 5. Wire stores.
	key, err := sqliteadapter.DeriveKey(cfg.SecretKey)
	if err != nil {
		return err
	}
	if key == nil {
		slog.Warn("OGCARD_SECRET_KEY not set, github token will not be persisted")
	}
	credentialStore, err := sqliteadapter.NewCredentialRepo(db, key)
	if err != nil {
		return err
	}
	rateLimitStore := sqliteadapter.NewRateLimitRepo(db)
	uploadStore := sqliteadapter.NewUploadRepo(db)

	// 6. GitHub session. Stored token wins over OGCARD_GITHUB_TOKEN.
	factory := func(token string) driven.RepositoryClient { return githubadapter.NewClient(token) }
	session := application.NewSessionService(
		application.NewClientProvider(),
		githubadapter.NewClient(""),
		credentialStore,
		factory,
	)
	session.Restore(ctx, cfg.GitHubToken)

	// 7. Rate limit tracker with background refresh. Its cache follows the session's login.
	tracker := application.NewRateLimitTracker(session, rateLimitStore, cfg.RateLimitRefresh)
	session.OnClientChange(tracker.Reset)
	if err := tracker.Load(ctx); err != nil {
		slog.Warn("loading persisted rate limits failed", "error", err)
	}
	go tracker.Start(ctx)

	// 8. Upload services.
	repos := application.NewRepositoryService(session)
	uploader := application.NewAssetUploader(session, tracker, uploadStore, application.UploaderConfig{
		CDNBaseURL:   cfg.CDNBaseURL,
		AllowPartial: cfg.AllowPartialUpload,
	})

	// 9. ENS resolver glue. Interfaces stay untyped nil when a backend is not configured.
	resolver, err := newResolver(ctx, cfg)
	if err != nil {
		return err
	}

	// 10. HTTP server.
	handler := httphandler.NewServeMux(
		httphandler.NewHandler(session, tracker, repos, uploader, resolver, slog.Default()),
		reg,
		slog.Default(),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute, // uploads wait on several GitHub commits, on-chain writes on a receipt
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("ogcard started",
		"listen_addr", cfg.ListenAddr,
		"authenticated", session.IsAuthenticated(),
	)

	// 11. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newResolver builds the ResolverService from whichever of JustaName, RPC and
// signing key are configured.
func newResolver(ctx context.Context, cfg *config.Config) (*application.ResolverService, error) {
	var (
		signer   driven.MessageSigner
		chain    driven.ChainClient
		keySign  *ethadapter.KeySigner
		err      error
		provider string
	)

	if cfg.HasSigner() {
		keySign, err = ethadapter.NewKeySigner(cfg.SignerKey)
		if err != nil {
			return nil, err
		}
		signer = keySign
		slog.Info("signer configured", "address", keySign.Address())
	}

	if cfg.HasChain() {
		c, err := ethadapter.Dial(ctx, cfg.EthRPCURL, cfg.ChainID, cfg.ENSRegistry, keySign)
		if err != nil {
			return nil, err
		}
		chain = c
		provider = cfg.EthRPCURL
		slog.Info("ethereum rpc connected", "chain_id", cfg.ChainID)
	} else {
		slog.Info("OGCARD_ETH_RPC_URL not set, on-chain reads and writes disabled")
	}

	var api driven.RecordsAPI = justaname.NewClient(cfg.JustaNameAPIURL, provider)

	strategies := application.DefaultStrategies(api, chain, cfg.ResolverSuffixes, cfg.PublicResolver)
	return application.NewResolverService(strategies, api, chain, signer, application.ResolverConfig{
		SignInDomain: cfg.SignInDomain,
		ChainID:      cfg.ChainID,
	}), nil
}
