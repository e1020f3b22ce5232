package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"buildmart/internal/config"
	"buildmart/internal/db"
	"buildmart/internal/logger"
	"buildmart/internal/migrate"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	down := flag.Int("down", 0, "Roll back this many migrations instead of migrating up")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()
	log, err := logger.New(logger.Config{Development: cfg.Development(), Encoding: cfg.Log.Encoding, Level: cfg.Log.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = logger.Named(log, "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, log)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	var res migrate.Result
	if *down > 0 {
		res, err = migrate.Down(ctx, pool, *down, log)
	} else {
		res, err = migrate.Up(ctx, pool, log)
	}
	if err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	log.Info("migrations applied", zap.Uint("from", res.From), zap.Uint("to", res.To))
}
