package product

import (
	"context"
	"errors"
	"os"
	"testing"

	"buildmart/internal/domain"
	"buildmart/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_UpsertListAndGet(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	discount := int64(4000)
	override := int64(8000)
	p, err := repo.Upsert(ctx, domain.Product{
		Key:                "paint-acrylic",
		SKU:                "PA-1",
		Name:               "Acrylic paint",
		CategoryKey:        "paint",
		PriceCents:         4500,
		DiscountPriceCents: &discount,
		Currency:           "USD",
		Colors:             []string{"white", "red"},
		Variants:           []domain.Variant{{ID: "10l", Name: "10 L", PriceCents: &override}},
	})
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected ID set")
	}
	if _, err := repo.Upsert(ctx, domain.Product{Key: "cement", Name: "Cement", CategoryKey: "dry-mix", PriceCents: 1250, Currency: "USD"}); err != nil {
		t.Fatalf("Upsert second: %v", err)
	}

	all, err := repo.List(ctx, ListFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("List all: %d err=%v", len(all), err)
	}
	paints, err := repo.List(ctx, ListFilter{CategoryKey: "paint"})
	if err != nil || len(paints) != 1 {
		t.Fatalf("List paint: %+v err=%v", paints, err)
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DiscountPriceCents == nil || *got.DiscountPriceCents != 4000 || len(got.Colors) != 2 {
		t.Fatalf("unexpected product %+v", got)
	}
	if v, ok := got.FindVariant("10l"); !ok || v.PriceCents == nil || *v.PriceCents != 8000 {
		t.Fatalf("unexpected variants %+v", got.Variants)
	}

	byKey, err := repo.GetByID(ctx, "cement")
	if err != nil || byKey.Name != "Cement" {
		t.Fatalf("GetByID by key: %+v err=%v", byKey, err)
	}

	updated, err := repo.Upsert(ctx, domain.Product{Key: "paint-acrylic", Name: "Acrylic paint v2", PriceCents: 4700, Currency: "USD"})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if updated.ID != p.ID {
		t.Fatalf("expected same ID after update")
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE products, categories RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
