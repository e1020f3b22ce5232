package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// Result reports the schema version before and after a run.
type Result struct {
	From uint
	To   uint
}

// Apply runs the embedded migrations up to the latest version.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := Up(ctx, pool, nil)
	return err
}

// Up applies pending migrations and reports the versions it moved between.
func Up(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (Result, error) {
	return run(ctx, pool, logger, func(m *migrate.Migrate) error { return m.Up() })
}

// Down rolls back steps migrations.
func Down(ctx context.Context, pool *pgxpool.Pool, steps int, logger *zap.Logger) (Result, error) {
	if steps <= 0 {
		return Result{}, errors.New("steps must be positive")
	}
	return run(ctx, pool, logger, func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

func run(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger, step func(*migrate.Migrate) error) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	srcDriver, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return Result{}, fmt.Errorf("init iofs: %w", err)
	}

	sqlDB, err := sql.Open("pgx", pool.Config().ConnString())
	if err != nil {
		return Result{}, fmt.Errorf("open sql db: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return Result{}, fmt.Errorf("ping sql db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return Result{}, fmt.Errorf("init db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "pgx", dbDriver)
	if err != nil {
		return Result{}, fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()
	m.Log = zapLog{logger: logger}

	var res Result
	if res.From, err = version(m); err != nil {
		return res, err
	}
	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("migrate: %w (every version in sql/ needs both .up.sql and .down.sql)", err)
		}
		return res, fmt.Errorf("migrate: %w", err)
	}
	if res.To, err = version(m); err != nil {
		return res, err
	}
	logger.Info("schema migrated", zap.Uint("from", res.From), zap.Uint("to", res.To))
	return res, nil
}

func version(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return v, fmt.Errorf("schema version %d is dirty; fix it and force the version", v)
	}
	return v, nil
}

// zapLog adapts zap to the migrate.Logger interface.
type zapLog struct {
	logger *zap.Logger
}

func (l zapLog) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l zapLog) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}
