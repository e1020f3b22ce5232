package cart

import (
	"context"
	"os"
	"testing"
	"time"

	"buildmart/internal/domain"
	"buildmart/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_AddLineIncrementsAndNotifies(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)
	userID := insertCustomer(ctx, t, pool)

	repo := NewPostgres(pool, "", nil)
	live := NewLive(pool, repo, "", nil)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go live.Run(runCtx)

	updates := make(chan []domain.CartLine, 16)
	unsubscribe, err := live.Subscribe(ctx, userID, func(lines []domain.CartLine) {
		updates <- lines
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsubscribe()
	if initial := <-updates; len(initial) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	line := domain.CartLine{
		IdentityKey: "p1|grey|",
		ProductID:   "p1",
		Quantity:    2,
		Color:       "grey",
		Product:     domain.LineProduct{Name: "Cement", PriceCents: 1250},
	}
	if err := repo.AddLine(ctx, userID, line); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if err := repo.AddLine(ctx, userID, line); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	lines, err := repo.List(ctx, userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 4 || lines[0].Product.Name != "Cement" {
		t.Fatalf("unexpected lines %+v", lines)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-updates:
			if len(got) == 1 && got[0].Quantity == 4 {
				return
			}
		case <-deadline:
			t.Fatalf("no live update with quantity 4")
		}
	}
}

func TestPostgres_SetQuantityAndClear(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)
	userID := insertCustomer(ctx, t, pool)

	repo := NewPostgres(pool, "", nil)
	price := int64(700)
	line := domain.CartLine{IdentityKey: "p2||v1", ProductID: "p2", Quantity: 1, Variant: &domain.LineVariant{ID: "v1", PriceCents: &price}}
	if err := repo.AddLine(ctx, userID, line); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if err := repo.SetQuantity(ctx, userID, line.IdentityKey, 9); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	lines, err := repo.List(ctx, userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 9 || lines[0].Variant == nil || *lines[0].Variant.PriceCents != 700 {
		t.Fatalf("unexpected lines %+v", lines)
	}
	if err := repo.SetQuantity(ctx, userID, "missing", 2); err != domain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.Clear(ctx, userID); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	lines, err = repo.List(ctx, userID)
	if err != nil || len(lines) != 0 {
		t.Fatalf("expected empty cart, got %+v err=%v", lines, err)
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
	if _, err := pool.Exec(ctx, `TRUNCATE cart_lines, tokens, customers RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func insertCustomer(ctx context.Context, t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `INSERT INTO customers (email, password_hash) VALUES ('cart@example.com', 'x') RETURNING id::text`).Scan(&id)
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	return id
}
