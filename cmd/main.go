package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/preorder/cache"
	"github.com/ray-remotestate/preorder/catalog"
	"github.com/ray-remotestate/preorder/config"
	"github.com/ray-remotestate/preorder/database"
	"github.com/ray-remotestate/preorder/database/dbhelper"
	"github.com/ray-remotestate/preorder/handlers"
	"github.com/ray-remotestate/preorder/ledger"
	"github.com/ray-remotestate/preorder/logging"
	"github.com/ray-remotestate/preorder/payment"
	"github.com/ray-remotestate/preorder/server"
)

func main() {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		logrus.Fatalf("failed to set up logging: %v", err)
	}

	db, err := database.ConnectAndMigrate(cfg.Database)
	if err != nil {
		logrus.Panicf("failed to initialize database, error: %v", err)
	}
	logrus.Println("migration is successful")

	menuCache, redisClient := setupMenuCache(cfg)

	menu := catalog.NewService(dbhelper.NewMenuStore(db), menuCache)
	orders := ledger.NewService(menu, dbhelper.NewOrderStore(db))
	gateway := payment.NewRazorpayGateway(payment.RazorpayConfig{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
		Currency:  cfg.Razorpay.Currency,
		Timeout:   cfg.Razorpay.Timeout,
	}, nil)

	srv := server.SetupRoutes(&handlers.Handler{
		Accounts:  dbhelper.NewAccountStore(db),
		Menu:      menu,
		Orders:    orders,
		Gateway:   gateway,
		Verifier:  payment.NewVerifier(cfg.Razorpay.KeySecret, gateway, orders),
		JWTSecret: cfg.JWTSecret,
	})

	go func() {
		logrus.WithField("addr", cfg.Addr()).Info("server listening")
		if err := srv.Run(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("server stopped")
			done <- syscall.SIGTERM
		}
	}()

	<-done

	logrus.Info("shutting down...")
	if err := srv.Shutdown(cfg.ShutdownTimeout); err != nil {
		logrus.WithError(err).Error("failed to gracefully shutdown server")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logrus.WithError(err).Error("failed to close redis connection")
		}
	}
	if err := db.Close(); err != nil {
		logrus.WithError(err).Error("failed to close database connection!")
	}

	logrus.Info("system is shut ..zzz")
}

// setupMenuCache connects to Redis when configured. The service runs without
// a cache otherwise, or if Redis is unreachable at startup.
func setupMenuCache(cfg *config.Config) (cache.MenuCache, *redis.Client) {
	if cfg.RedisAddr == "" {
		logrus.Info("REDIS_ADDR not set, menu cache disabled")
		return cache.NopCache{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("redis unreachable, menu cache disabled")
		client.Close()
		return cache.NopCache{}, nil
	}
	return cache.NewRedisMenuCache(client, cfg.MenuCacheTTL), client
}
