package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/nimbusnote/auth-service/internal/config"
	"github.com/nimbusnote/auth-service/internal/handler"
	"github.com/nimbusnote/auth-service/internal/mailer"
	"github.com/nimbusnote/auth-service/internal/oauth"
	"github.com/nimbusnote/auth-service/internal/passkey"
	"github.com/nimbusnote/auth-service/internal/repository"
	"github.com/nimbusnote/auth-service/internal/service"
	"github.com/nimbusnote/auth-service/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra   Infrastructure
	config  *config.Config
	router  *gin.Engine
	server  *http.Server
	sweeper *Sweeper
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	challenges := service.NewRedisChallengeStore(infra.Redis().Client)
	rateLimiter := service.NewRateLimiter(infra.Redis().Client)
	healthChecker := NewHealthChecker(infra)

	metrics, err := observability.NewAuthMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create auth metrics: %w", err)
	}

	sessions := service.NewSessionService(
		repos.User,
		repos.Session,
		infra.Logger(),
		cfg.Session.TTL.Duration,
		cfg.Session.RenewBelow.Duration,
	)
	magicLinks := service.NewMagicLinkService(
		repos.User,
		repos.MagicLink,
		sessions,
		cfg.MagicLink.TTL.Duration,
	)
	oauthService := service.NewOAuthService(repos.User, repos.Identity, sessions)
	accounts := service.NewAccountService(
		repos.User,
		repos.Session,
		repos.Identity,
		repos.Passkey,
		repos.MagicLink,
		sessions,
		infra.Logger(),
	)

	verifier, err := passkey.NewVerifier(passkey.Config{
		RPID:      cfg.WebAuthn.RPID,
		RPName:    cfg.WebAuthn.RPName,
		RPOrigins: cfg.WebAuthn.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create passkey verifier: %w", err)
	}
	passkeys := service.NewPasskeyService(
		repos.User,
		repos.Passkey,
		challenges,
		verifier,
		sessions,
		cfg.WebAuthn.ChallengeTTL.Duration,
	)

	providers, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}
	oauthManager := oauth.NewManager(challenges, cfg.OAuth.StateTTL.Duration, providers...)

	mail := mailer.NewLogMailer(infra.Logger(), cfg.BaseURL)
	sessionTTL := cfg.Session.TTL.Duration

	magicLinkHandler := handler.NewMagicLinkHandler(magicLinks, mail, sessionTTL, metrics, infra.Logger())
	passkeyHandler := handler.NewPasskeyHandler(passkeys, repos.Passkey, sessionTTL, metrics)
	oauthHandler := handler.NewOAuthHandler(oauthManager, oauthService, repos.Identity, sessionTTL, metrics)
	sessionHandler := handler.NewSessionHandler(sessions, metrics)
	accountHandler := handler.NewAccountHandler(accounts)

	router := gin.Default()
	router.Use(otelgin.Middleware("auth-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, routeHandlers{
		magicLink: magicLinkHandler,
		passkey:   passkeyHandler,
		oauth:     oauthHandler,
		session:   sessionHandler,
		account:   accountHandler,
	}, sessions, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	sweeper := NewSweeper(sessions, repos.MagicLink, infra.Logger(), cfg.Session.SweepEvery.Duration)

	return &App{
		infra:   infra,
		config:  cfg,
		router:  router,
		server:  srv,
		sweeper: sweeper,
	}, nil
}

func buildProviders(cfg *config.Config) ([]oauth.Provider, error) {
	var providers []oauth.Provider

	if cfg.OAuth.Google.Enabled() {
		providers = append(providers, oauth.NewGoogleProvider(oauth.GoogleConfig{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURI:  cfg.OAuth.Google.RedirectURI,
		}, nil))
	}

	if cfg.OAuth.Apple.Enabled() {
		apple, err := oauth.NewAppleProvider(oauth.AppleConfig{
			ClientID:      cfg.OAuth.Apple.ClientID,
			TeamID:        cfg.OAuth.Apple.TeamID,
			KeyID:         cfg.OAuth.Apple.KeyID,
			PrivateKeyPEM: cfg.OAuth.Apple.PrivateKeyPEM,
			RedirectURI:   cfg.OAuth.Apple.RedirectURI,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to configure apple provider: %w", err)
		}
		providers = append(providers, apple)
	}

	return providers, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

type routeHandlers struct {
	magicLink *handler.MagicLinkHandler
	passkey   *handler.PasskeyHandler
	oauth     *handler.OAuthHandler
	session   *handler.SessionHandler
	account   *handler.AccountHandler
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	h routeHandlers,
	sessions service.SessionService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	throttled := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
	)
	authenticated := handler.AuthMiddleware(sessions)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/magic-link/request", throttled, h.magicLink.Request)
			auth.POST("/magic-link/verify", throttled, h.magicLink.Verify)

			auth.POST("/passkey/start", throttled, h.passkey.LoginStart)
			auth.POST("/passkey/finish", throttled, h.passkey.LoginFinish)

			auth.GET("/oauth/:provider/start", h.oauth.Start)
			// Google returns the callback as a GET; Apple form-posts it.
			auth.GET("/oauth/:provider/callback", h.oauth.Callback)
			auth.POST("/oauth/:provider/callback", h.oauth.Callback)

			auth.GET("/me", authenticated, h.session.Me)
			auth.POST("/logout", authenticated, h.session.Logout)
			auth.POST("/logout-all", authenticated, h.session.LogoutAll)
		}

		passkeys := api.Group("/passkeys", authenticated)
		{
			passkeys.GET("", h.passkey.List)
			passkeys.POST("/register/start", h.passkey.RegisterStart)
			passkeys.POST("/register/finish", h.passkey.RegisterFinish)
		}

		account := api.Group("/account", authenticated)
		{
			account.GET("", h.account.GetProfile)
			account.PATCH("", h.account.UpdateProfile)
			account.PUT("/plan", h.account.UpdatePlan)
			account.PUT("/email", h.account.UpdateEmail)
			account.DELETE("", h.account.DeleteAccount)

			account.GET("/identities", h.oauth.ListIdentities)
			account.GET("/identities/:provider/start", h.oauth.LinkStart)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.sweeper.Run(sweepCtx)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
