package main

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
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/plugtech/internal/cart"
	"github.com/Skotchmaster/plugtech/internal/checkout"
	"github.com/Skotchmaster/plugtech/internal/config"
	"github.com/Skotchmaster/plugtech/internal/db"
	"github.com/Skotchmaster/plugtech/internal/events"
	"github.com/Skotchmaster/plugtech/internal/httpserver"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/middleware/auth"
	"github.com/Skotchmaster/plugtech/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/plugtech/internal/middleware/logging"
	"github.com/Skotchmaster/plugtech/internal/repo"
	"github.com/Skotchmaster/plugtech/internal/service"
	"github.com/Skotchmaster/plugtech/internal/storage"
)

func main() {
	cfg := config.Load(".env")
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server_failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			log.Error("db_close_failed", "error", err)
		}
	}()
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	probes := map[string]httpserver.Probe{
		"db": func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		prod := events.NewProducer(cfg.KafkaBrokers)
		defer func() {
			if err := prod.Close(); err != nil {
				log.Error("kafka_close_failed", "error", err)
			}
		}()
		publisher = prod
		log.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	} else {
		log.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var persister cart.Persister
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		persister = cart.NewRedisPersister(rdb, cfg.CartTTL)
		probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn("cart_store_in_memory", "reason", "REDIS_ADDR is empty")
		persister = cart.NewMemoryPersister()
	}

	var images storage.ObjectStore
	if cfg.NATSURL != "" {
		js, err := storage.NewJetStreamStore(ctx, cfg.NATSURL, cfg.ImageBucket)
		if err != nil {
			return fmt.Errorf("image store: %w", err)
		}
		defer js.Close()
		images = js
		probes["images"] = func(context.Context) error {
			if !js.Ready() {
				return errors.New("nats disconnected")
			}
			return nil
		}
	} else {
		log.Warn("image_store_in_memory", "reason", "NATS_URL is empty")
		images = storage.NewMemoryStore()
	}

	r := &repo.GormRepo{DB: gdb}
	catalogSvc := &service.CatalogService{Repo: r, Events: publisher}
	authSvc := &service.AuthService{Repo: r, AccessSecret: cfg.JWTAccessSecret, RefreshSecret: cfg.JWTRefreshSecret}
	if len(cfg.AdminEmails) > 0 {
		n, err := authSvc.PromoteAdmins(logging.IntoContext(ctx, log), cfg.AdminEmails)
		if err != nil {
			return fmt.Errorf("promote admins: %w", err)
		}
		log.Info("admins_promoted", "count", n, "configured", len(cfg.AdminEmails))
	}
	cartHTTP := &httpserver.CartHTTP{
		Carts:        cart.NewManager(persister, publisher),
		Catalog:      catalogSvc,
		CookieSecure: cfg.CookieSecure,
		TTL:          cfg.CartTTL,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Secure(), loggingmw.RequestLogger(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.PublicBaseURL},
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderContentType, "X-CSRF-Token"},
		ExposeHeaders:    []string{"X-CSRF-Token"},
	}))

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = cfg.CookieSecure

	httpserver.Register(e, &httpserver.Deps{
		Auth:     &httpserver.AuthHTTP{Svc: authSvc, CookieSecure: cfg.CookieSecure},
		Products: &httpserver.ProductHTTP{Svc: catalogSvc},
		Cart:     cartHTTP,
		Checkout: &httpserver.CheckoutHTTP{
			Bridge:  checkout.New(cfg.WhatsAppNumber),
			Cart:    cartHTTP,
			BaseURL: cfg.PublicBaseURL,
		},
		Admin: &httpserver.AdminHTTP{Editor: &service.Editor{
			Catalog: catalogSvc,
			Images:  images,
			BaseURL: cfg.PublicBaseURL,
		}},
		Images:   &httpserver.ImageHTTP{Store: images},
		Sessions: &auth.AutoRefresh{Sessions: authSvc, CookieSecure: cfg.CookieSecure},
		CSRF:     csrfCfg,
		Probes:   probes,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", "error", err)
	}
	return nil
}
