package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"buildmart/internal/config"
	"buildmart/internal/db"
	"buildmart/internal/importer"
	"buildmart/internal/logger"
	categoryrepo "buildmart/internal/repository/category"
	productrepo "buildmart/internal/repository/product"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a product or category CSV sheet")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()
	log, err := logger.New(logger.Config{Development: cfg.Development(), Encoding: cfg.Log.Encoding, Level: cfg.Log.Level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = logger.Named(log, "importer")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, log)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("open file", zap.String("file", filePath), zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, productrepo.NewPostgres(pool, log), categoryrepo.NewPostgres(pool), log)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatal("import failed", zap.Error(err))
	}

	log.Info("import finished",
		zap.String("file", filePath),
		zap.Int("rows_written", count),
		zap.Duration("took", time.Since(start).Truncate(time.Millisecond)))
}
