package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegis-id/aegis/internal/app"
	"github.com/aegis-id/aegis/internal/federation"
	"github.com/aegis-id/aegis/internal/permissions"
	"github.com/aegis-id/aegis/internal/platform/cache"
	"github.com/aegis-id/aegis/internal/platform/db"
	"github.com/aegis-id/aegis/internal/ratelimit"
	"github.com/aegis-id/aegis/internal/roles"
	"github.com/aegis-id/aegis/internal/startup"
	"github.com/aegis-id/aegis/internal/tokens"
	"github.com/aegis-id/aegis/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis backs login throttling and OAuth2 state nonces; refusing to
	// start without it is safer than serving with those disabled.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	permissionsRepo := permissions.NewRepository(dbpool)
	permissionsService := permissions.NewService(permissionsRepo)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, cfg.DefaultRoleName)

	issuer := tokens.NewIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokensRepo := tokens.NewRepository(dbpool)
	tokensService := tokens.NewService(issuer, tokensRepo)

	seeder := startup.NewService(logger, permissionsService, rolesService, usersService, startup.Params{
		DefaultRoleName: cfg.DefaultRoleName,
		AdminRoleName:   cfg.AdminRoleName,
		AdminEmail:      cfg.AdminEmail,
		AdminPassword:   cfg.AdminPassword,
	})
	if err := seeder.Run(ctx); err != nil {
		logger.Error("seed store", slog.Any("error", err))
		os.Exit(1)
	}

	authz := tokens.NewMiddleware(tokensService, rolesService, logger)

	loginLimiter := ratelimit.NewLimiter(redisClient, int64(cfg.LoginRateLimit), cfg.LoginRateWindow)

	tokensHandler := tokens.NewHandler(logger, tokensService, loginLimiter)
	usersHandler := users.NewHandler(logger, usersService, authz)
	rolesHandler := roles.NewHandler(logger, rolesService, authz)
	permissionsHandler := permissions.NewHandler(logger, permissionsService, authz)

	var federationHandler *federation.Handler
	if cfg.FederationEnabled() {
		provider := federation.NewProvider(federation.ProviderConfig{
			Name:         "oauth2",
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			AuthURL:      cfg.OAuthAuthURL,
			TokenURL:     cfg.OAuthTokenURL,
			UserInfoURL:  cfg.OAuthUserInfoURL,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       cfg.OAuthScopes,
		})
		states := federation.NewStateStore(redisClient, cfg.OAuthStateTTL)
		federationRepo := federation.NewRepository(dbpool)
		federationService := federation.NewService(provider, states, federationRepo, usersService, tokensService)
		federationHandler = federation.NewHandler(logger, federationService)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		TokensHandler:      tokensHandler,
		FederationHandler:  federationHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
