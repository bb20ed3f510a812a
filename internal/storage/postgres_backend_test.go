package storage_test

import (
	"context"
	"os/exec"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/JamesPrial/todo-engine/internal/storage"
	"github.com/JamesPrial/todo-engine/internal/todo"
)

// dockerAvailable checks whether the Docker daemon is reachable.
// testcontainers-go panics (rather than returning an error) when Docker
// is not installed, so check for it up-front.
func dockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestPostgresBackend spins up a PostgreSQL 16 container via testcontainers-go
// and returns a fully initialised PostgresBackend together with the raw
// connection string. If Docker is not available the test is skipped.
func newTestPostgresBackend(t *testing.T) (*storage.PostgresBackend, string) {
	t.Helper()

	if !dockerAvailable() {
		t.Skip("Docker not available, skipping PostgreSQL integration tests")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	backend, err := storage.NewPostgresBackend(connStr)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}

	return backend, connStr
}

// ---------------------------------------------------------------------------
// User-story tests (require Docker)
// ---------------------------------------------------------------------------

// TestPostgres_Contract runs the shared backend contract against a fresh database.
func TestPostgres_Contract(t *testing.T) {
	b, _ := newTestPostgresBackend(t)
	runBackendContract(t, b)
}

// TestPostgres_StoreRoundtrip verifies that a whole collection survives a
// save through one Store and a load through another.
func TestPostgres_StoreRoundtrip(t *testing.T) {
	b, connStr := newTestPostgresBackend(t)

	want := []todo.Todo{
		sampleTodo("a", "Write report"),
		sampleTodo("b", "Buy milk ☕"),
	}
	if err := storage.NewStore(b, "", nil).SaveTodos(want); err != nil {
		t.Fatalf("SaveTodos: %v", err)
	}

	other, err := storage.NewPostgresBackend(connStr)
	if err != nil {
		t.Fatalf("NewPostgresBackend (second): %v", err)
	}
	got, err := storage.NewStore(other, "", nil).LoadTodos()
	if err != nil {
		t.Fatalf("LoadTodos: %v", err)
	}
	requireEqualTodos(t, want, got)
}

// TestPostgres_IdempotentSchema verifies that two backend instances on the
// same database can both read and write without errors.
func TestPostgres_IdempotentSchema(t *testing.T) {
	b1, connStr := newTestPostgresBackend(t)

	if err := b1.Set("from-b1", "1"); err != nil {
		t.Fatalf("b1.Set: %v", err)
	}

	b2, err := storage.NewPostgresBackend(connStr)
	if err != nil {
		t.Fatalf("NewPostgresBackend (b2): %v", err)
	}
	if v, ok, err := b2.Get("from-b1"); err != nil || !ok || v != "1" {
		t.Errorf("b2.Get = (%q, %v, %v), want (\"1\", true, nil)", v, ok, err)
	}

	if err := b2.Set("from-b2", "2"); err != nil {
		t.Fatalf("b2.Set: %v", err)
	}
	sizes, err := b1.Sizes()
	if err != nil {
		t.Fatalf("b1.Sizes: %v", err)
	}
	if len(sizes) != 2 {
		t.Errorf("b1 sees %d keys, want 2", len(sizes))
	}
}

// TestPostgres_ConcurrentWrites verifies that concurrent upserts of the
// same key leave exactly one row holding one of the written values.
func TestPostgres_ConcurrentWrites(t *testing.T) {
	b, _ := newTestPostgresBackend(t)

	values := []string{"a", "b", "c", "d", "e"}
	var wg sync.WaitGroup
	for _, v := range values {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			if err := b.Set("enterprise-todos", v); err != nil {
				t.Errorf("Set(%q): %v", v, err)
			}
		}(v)
	}
	wg.Wait()

	got, ok, err := b.Get("enterprise-todos")
	if err != nil || !ok {
		t.Fatalf("Get = (%q, %v, %v), want present", got, ok, err)
	}
	found := false
	for _, v := range values {
		if got == v {
			found = true
		}
	}
	if !found {
		t.Errorf("Get = %q, want one of %v", got, values)
	}
}
