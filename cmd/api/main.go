package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/routes"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/currency"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/migrate"
	"github.com/angelmondragon/storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingers := map[string]controllers.Pinger{}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		pingers["redis"] = redisClient
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	var dbClient *db.Client
	if cfg.DB.Enabled() {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			return err
		}
		pingers["db"] = dbClient
		defer func() {
			err = multierr.Append(err, dbClient.Close())
		}()
		if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client, err := catalog.NewClient(catalog.Options{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
		Metrics: m,
		Logger:  logg.Named("catalog"),
	})
	if err != nil {
		return err
	}
	var (
		products catalog.Catalog       = client
		auth     catalog.Authenticator = client
	)
	if redisClient != nil && cfg.Catalog.CacheTTL > 0 {
		cachedClient := catalog.NewCachedClient(client, catalog.NewRedisCache(redisClient), cfg.Catalog.CacheTTL, logg.Named("catalog"))
		products, auth = cachedClient, cachedClient
	}

	store, err := cartStore(cfg, redisClient, dbClient)
	if err != nil {
		return err
	}
	carts := cart.NewRegistry(cart.RegistryOptions{
		BaseKey:  cfg.Cart.Key,
		Store:    store,
		Notifier: cart.NewLogNotifier(logg.Named("cart")),
		Metrics:  m,
		Logger:   logg.Named("cart"),
	})
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, carts.Close(flushCtx))
	}()

	var sessionStore session.Store = session.NewMemoryStore()
	if cfg.Session.StoreDriver == config.SessionStoreRedis {
		rs, err := session.NewRedisStore(redisClient)
		if err != nil {
			return err
		}
		sessionStore = rs
	}
	sessions, err := session.NewService(session.Options{
		Auth:   auth,
		Store:  sessionStore,
		Carts:  carts,
		TTL:    cfg.Session.TTL,
		Logger: logg.Named("session"),
	})
	if err != nil {
		return err
	}

	conv := currency.NewConverter(cfg.Currency.USDToINRRate, cfg.Currency.INRFractionDigits)
	checkoutSvc, err := checkout.NewService(checkout.Options{
		Converter: conv,
		Delay:     cfg.Checkout.Delay,
		Metrics:   m,
		Logger:    logg.Named("checkout"),
	})
	if err != nil {
		return err
	}

	deps := routes.Deps{
		Catalog:   products,
		Carts:     carts,
		Sessions:  sessions,
		Checkout:  checkoutSvc,
		Converter: conv,
		Pingers:   pingers,
		Gatherer:  reg,
		Metrics:   m,
	}
	if redisClient != nil {
		deps.Limiter = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"cart_store": cfg.Cart.StoreDriver,
		"catalog":    cfg.Catalog.BaseURL,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func cartStore(cfg *config.Config, redisClient *redis.Client, dbClient *db.Client) (cart.Store, error) {
	switch cfg.Cart.StoreDriver {
	case config.CartStoreMemory:
		return cart.NewMemoryStore(), nil
	case config.CartStoreRedis:
		return cart.NewRedisStore(redisClient, cfg.Cart.SnapshotTTL), nil
	case config.CartStoreSQL:
		return cart.NewSQLStore(dbClient.DB()), nil
	default:
		return cart.NewFileStore(cfg.Cart.FileDir)
	}
}
