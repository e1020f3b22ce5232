package main

import (
	"context"
	"fmt"
	"os"

	"buildmart/internal/config"
	"buildmart/internal/db"
	"buildmart/internal/logger"
	categoryrepo "buildmart/internal/repository/category"
	productrepo "buildmart/internal/repository/product"
	"buildmart/internal/seed"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log, err := logger.New(logger.Config{Development: cfg.Development(), Encoding: cfg.Log.Encoding, Level: cfg.Log.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = logger.Named(log, "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, log)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := seed.Apply(ctx, productrepo.NewPostgres(pool, log), categoryrepo.NewPostgres(pool)); err != nil {
		log.Fatal("seed apply", zap.Error(err))
	}

	log.Info("seed applied", zap.Int("categories", len(seed.Categories)), zap.Int("products", len(seed.Products)))
}
