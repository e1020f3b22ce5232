package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buildmart/internal/clientstore"
	"buildmart/internal/config"
	"buildmart/internal/db"
	"buildmart/internal/httpserver"
	"buildmart/internal/logger"
	"buildmart/internal/ratelimit"
	cartrepo "buildmart/internal/repository/cart"
	categoryrepo "buildmart/internal/repository/category"
	customerrepo "buildmart/internal/repository/customer"
	productrepo "buildmart/internal/repository/product"
	tokenrepo "buildmart/internal/repository/token"
	cartsvc "buildmart/internal/service/cart"
	categorysvc "buildmart/internal/service/category"
	customersvc "buildmart/internal/service/customer"
	productsvc "buildmart/internal/service/product"
	"buildmart/internal/service/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	log, err := logger.New(logger.Config{
		Development: cfg.Development(),
		Encoding:    cfg.Log.Encoding,
		Level:       cfg.Log.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, log)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	guests, err := openGuestStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open guest store", zap.String("backend", cfg.Guest.Backend), zap.Error(err))
	}
	defer func() {
		if err := guests.Close(); err != nil {
			log.Warn("close guest store", zap.Error(err))
		}
	}()

	remote := openCartRemote(ctx, cfg, dbpool, log)

	productRepo := productrepo.NewPostgres(dbpool, logger.Named(log, "product"))
	productService := productsvc.New(productRepo)
	categoryService := categorysvc.New(categoryrepo.NewPostgres(dbpool))
	customerService := customersvc.New(
		customerrepo.NewPostgres(dbpool, logger.Named(log, "customer")),
		tokenrepo.NewPostgres(dbpool),
		logger.Named(log, "customer"),
	)
	cartService := cartsvc.New(remote, productRepo, logger.Named(log, "cart"))
	sessions := session.NewManager(cartService, customerService, guests, cfg.Session.TTL, logger.Named(log, "session"))
	limiter := ratelimit.New(cfg.Session.RateLimit, cfg.Session.RateBurst)

	go sessions.Run(ctx, time.Minute)
	go housekeeping(ctx, log, limiter, customerService)

	srv, err := httpserver.New(cfg.HTTPAddr, logger.Named(log, "http"), dbpool, httpserver.Deps{
		ProductSvc:     productService,
		CategorySvc:    categoryService,
		CustomerSvc:    customerService,
		CartSvc:        cartService,
		Sessions:       sessions,
		SessionLimiter: limiter,
	}, httpserver.Options{CORSOrigins: cfg.CORSOrigins})
	if err != nil {
		log.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", zap.String("addr", cfg.HTTPAddr), zap.String("guest_store", cfg.Guest.Backend), zap.String("cart_remote", cfg.CartRemote))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("received signal, shutting down")
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
	sessions.CloseAll()
}

func openGuestStore(ctx context.Context, cfg config.Config, log *zap.Logger) (clientstore.Store, error) {
	named := logger.Named(log, "guest-store")
	switch cfg.Guest.Backend {
	case "memory":
		return clientstore.NewMemory(), nil
	case "redis":
		return clientstore.OpenRedis(ctx, clientstore.RedisConfig{
			Addr:     cfg.Guest.RedisAddr,
			Password: cfg.Guest.RedisPassword,
			DB:       cfg.Guest.RedisDB,
			TTL:      cfg.Session.TTL,
		}, named)
	case "badger", "":
		return clientstore.OpenBadger(cfg.Guest.BadgerPath, cfg.Session.TTL, named)
	default:
		return nil, fmt.Errorf("unknown guest store %q", cfg.Guest.Backend)
	}
}

// openCartRemote returns the account cart store. The Postgres store gets a
// listener that runs until ctx is done.
func openCartRemote(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, log *zap.Logger) cartsvc.RemoteLines {
	named := logger.Named(log, "cart-store")
	if cfg.CartRemote == "memory" {
		named.Warn("account carts are held in memory and lost on restart")
		return cartrepo.NewMemory()
	}
	live := cartrepo.NewLive(pool, cartrepo.NewPostgres(pool, cfg.NotifyChannel, named), cfg.NotifyChannel, named)
	go func() {
		if err := live.Run(ctx); err != nil {
			named.Error("cart listener stopped", zap.Error(err))
		}
	}()
	return live
}

func housekeeping(ctx context.Context, log *zap.Logger, limiter *ratelimit.KeyedRateLimiter, customers *customersvc.Service) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept := limiter.Sweep()
			purged, err := customers.PurgeExpiredTokens(ctx)
			if err != nil {
				log.Warn("purge expired tokens", zap.Error(err))
			}
			log.Debug("housekeeping", zap.Int("limiter_keys_swept", swept), zap.Int64("tokens_purged", purged))
		}
	}
}
