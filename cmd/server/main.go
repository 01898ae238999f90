// Command nv-server starts the namevault HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avetrov/namevault/internal/account"
	"github.com/avetrov/namevault/internal/limiter"
	"github.com/avetrov/namevault/internal/migrate"
	"github.com/avetrov/namevault/internal/registrar"
	"github.com/avetrov/namevault/internal/registry"
	"github.com/avetrov/namevault/internal/repository/postgres"
	"github.com/avetrov/namevault/internal/resolver"
	httpserver "github.com/avetrov/namevault/internal/server/http"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and starts the HTTP server.
func main() {
	cfg := defaultConfig()

	// Flags override file config which overrides defaults.
	configPath := flag.String("config", "", "path to config.toml")
	addr := flag.String("addr", cfg.Addr, "listen address")
	dsn := flag.String("dsn", cfg.DSN, "PostgreSQL DSN")
	jwtKey := flag.String("jwt-key", "", "HS256 signing key (required)")
	accessTTL := flag.Duration("access-ttl", cfg.AccessTTL, "access token TTL")
	admin := flag.String("admin", "", "admin principal UUID (required)")
	beneficiary := flag.String("beneficiary", "", "rent recipient UUID (defaults to admin)")
	cacheTTL := flag.Duration("resolve-cache-ttl", cfg.ResolveCacheTTL, "resolver lookup cache TTL (0 disables)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath, cfg); err != nil {
			logger.Fatal("config", zap.Error(err))
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "dsn":
			cfg.DSN = *dsn
		case "jwt-key":
			cfg.JWTKey = *jwtKey
		case "access-ttl":
			cfg.AccessTTL = *accessTTL
		case "admin":
			cfg.Admin = *admin
		case "beneficiary":
			cfg.Beneficiary = *beneficiary
		case "resolve-cache-ttl":
			cfg.ResolveCacheTTL = *cacheTTL
		}
	})

	if cfg.JWTKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key)")
	}
	adminID, err := uuid.FromString(cfg.Admin)
	if err != nil {
		logger.Fatal("missing or malformed admin principal (--admin)", zap.Error(err))
	}
	beneficiaryID := adminID
	if cfg.Beneficiary != "" {
		if beneficiaryID, err = uuid.FromString(cfg.Beneficiary); err != nil {
			logger.Fatal("malformed beneficiary principal", zap.Error(err))
		}
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Repositories
	db := &postgres.DB{Pool: pool}
	labelRepo := postgres.NewLabelRepo(db)
	commitRepo := postgres.NewCommitmentRepo(db)
	roleRepo := postgres.NewRoleRepo(db)
	configRepo := postgres.NewConfigRepo(db)
	accountRepo := postgres.NewAccountRepo(db)
	recordRepo := postgres.NewRecordRepo(db)

	lim := limiter.NewPG(pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)

	// Services
	accountSvc := account.NewService(accountRepo, []byte(cfg.JWTKey), cfg.AccessTTL, lim, adminID)
	registrySvc := registry.New(labelRepo, roleRepo, adminID)
	registrarSvc := registrar.New(commitRepo, configRepo, registrySvc, accountRepo,
		db, adminID, beneficiaryID, adminID)

	// The registrar writes through the admin principal; make sure it holds
	// the registrar capability.
	if err := registrySvc.GrantRegistrar(ctx, adminID, adminID); err != nil {
		logger.Fatal("grant registrar role", zap.Error(err))
	}

	dir := resolver.NewStoreDirectory(recordRepo)
	factory := resolver.NewStoreFactory(recordRepo)
	router := resolver.NewRouter(registrySvc, dir, cfg.ResolveCacheTTL)

	app := httpserver.New(accountSvc, registrarSvc, registrySvc, router, recordRepo, factory, []byte(cfg.JWTKey))

	handler := httpserver.Recover(logger)(httpserver.Logging(logger)(app.Handler()))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
