package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/assets"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/oauth"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		bootLogger := logging.New(os.Getenv("LOG_LEVEL"))
		config.LoadDotEnv(bootLogger)
		cfg := config.Load()
		cfg.MustServe()

		logger := logging.New(cfg.LogLevel).With("service", "storefront")
		slog.SetDefault(logger)

		return serve(logging.IntoContext(cmd.Context(), logger), cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "migrate the schema before serving")
}

// closers runs cleanup funcs in reverse registration order.
type closers []func() error

func (c closers) close(logger *slog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			logger.Warn("shutdown_close_failed", "error", err)
		}
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var cleanup closers
	defer cleanup.close(logger)

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := pkgdb.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	cleanup = append(cleanup, func() error { return pkgdb.Close(db) })

	if autoMigrate {
		if err := models.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	images, closeImages, err := assets.Open(ctx, cfg.Assets)
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	cleanup = append(cleanup, closeImages)

	mailer, closeMailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, closeMailer)

	dispatcher, err := notify.NewDispatcher(notify.Config{
		ShopName:         cfg.ShopName,
		FrontendURL:      cfg.FrontendURL,
		BackendURL:       cfg.BackendURL,
		AdminEmail:       cfg.AdminEmail,
		From:             cfg.Mail.From,
		CustomerInterval: cfg.Notify.CustomerInterval,
		AdminInterval:    cfg.Notify.AdminInterval,
		QueueSize:        cfg.Notify.QueueSize,
	}, mailer, logger)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	cleanup = append(cleanup, func() error {
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return dispatcher.Close(drainCtx)
	})

	r := repo.New(db)

	identity := &service.IdentityService{
		Repo:          r,
		JWTSecret:     cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		ResetTTL:      cfg.ResetTokenTTL,
		Notifier:      dispatcher,
	}
	if cfg.GoogleClientID != "" {
		v, err := oauth.NewGoogleVerifier(cfg.GoogleClientID)
		if err != nil {
			return err
		}
		identity.Google = v
	}

	catalog := &service.CatalogService{Repo: r, Images: images}
	orders := &service.OrderService{Repo: r, Notifier: dispatcher}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		cleanup = append(cleanup, producer.Close)
		catalog.Events = producer
		orders.Events = producer
	}

	if cfg.SearchBackend == "elasticsearch" || cfg.ESURL != "" {
		esURL := cfg.ESURL
		if esURL == "" {
			esURL = "http://localhost:9200"
		}
		client, err := es.NewClient(ctx, es.Config{URL: esURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
		if err != nil {
			return err
		}
		index := es.NewProductIndex(client, cfg.ESIndex)
		if err := index.EnsureIndex(ctx); err != nil {
			// search falls back to the database until the index is usable
			logger.Warn("es_ensure_index_failed", "index", index.Index, "error", err)
		}
		catalog.Index = index
		catalog.UseIndex = cfg.SearchBackend == "elasticsearch"
	}

	e := newEcho(cfg, logger)

	deps := &httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: identity},
		UsersHandler:   &httpserver.UsersHTTP{Identity: identity, Orders: orders},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: catalog},
		OrdersHandler:  &httpserver.OrdersHTTP{Svc: orders},
		ContactHandler: &httpserver.ContactHTTP{Svc: &service.ContactService{Repo: r}},
		JWTSecret:      cfg.JWTAccessSecret,
		Refresher:      identity,
		DB:             db,
	}
	if cfg.Assets.Backend == "" || cfg.Assets.Backend == "local" {
		deps.StaticPrefix = images.Prefix()
		deps.StaticDir = cfg.Assets.UploadsDir
	}
	httpserver.Register(e, deps)

	return run(ctx, e, cfg.ServerPort, logger)
}

func newEcho(cfg config.Config, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
		}))
	} else {
		e.Use(echomw.CORS())
	}
	if cfg.CSRFEnabled {
		csrfCfg := csrf.DefaultConfig()
		csrfCfg.Secure = true
		csrfCfg.SkipPaths = []string{"/api/auth/login", "/api/auth/token", "/api/auth/register", "/api/auth/google-login"}
		e.Use(csrf.Middleware(csrfCfg))
	}
	return e
}

func run(ctx context.Context, e *echo.Echo, port string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
	case <-stopCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", "error", err)
	}
	logger.Info("storefront_stopped")
	return nil
}

func newMailer(cfg config.MailConfig, logger *slog.Logger) (notify.Mailer, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Transport {
	case "", "log":
		return notify.LogMailer{Logger: logger}, noop, nil
	case "smtp":
		m, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Server,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			StartTLS: cfg.StartTLS,
		})
		if err != nil {
			return nil, nil, err
		}
		return m, noop, nil
	case "amqp":
		m, err := notify.NewAMQPMailer(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown MAIL_TRANSPORT %q", cfg.Transport)
}
