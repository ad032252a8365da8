// Package storagetest starts a throwaway PostgreSQL container for tests.
package storagetest

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"useretl/pkg/config"
	"useretl/pkg/storage"
)

// RequireDockerAccess skips the test when no docker daemon socket answers
func RequireDockerAccess(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}

	for _, sock := range candidates {
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed storage tests")
}

// SetupTestDB starts postgres:15-alpine and returns a connected handle. The
// container is terminated when the test finishes.
func SetupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	RequireDockerAccess(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("assessment"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "test_user",
		Password: "test_pass",
		Database: "assessment",
		SSLMode:  "disable",
	}

	var db *bun.DB
	for i := 0; i < 10; i++ {
		db, err = storage.Connect(ctx, cfg)
		if err == nil {
			break
		}
		time.Sleep(time.Duration(100*(1<<uint(i))) * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// AssertTableExists checks if a table exists in the public schema
func AssertTableExists(t *testing.T, db *bun.DB, tableName string) {
	t.Helper()

	var exists bool
	err := db.NewSelect().
		ColumnExpr("EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = ? AND table_name = ?)", "public", tableName).
		Scan(context.Background(), &exists)
	if err != nil {
		t.Fatalf("failed to check if table %s exists: %v", tableName, err)
	}
	if !exists {
		t.Errorf("table %s does not exist", tableName)
	}
}

// AssertRowCount checks the number of rows in a table
func AssertRowCount(t *testing.T, db *bun.DB, tableName string, want int) {
	t.Helper()

	var got int
	err := db.NewSelect().
		ColumnExpr("count(*)").
		TableExpr("?", bun.Ident(tableName)).
		Scan(context.Background(), &got)
	if err != nil {
		t.Fatalf("failed to count rows in %s: %v", tableName, err)
	}
	if got != want {
		t.Errorf("table %s: got %d rows, want %d", tableName, got, want)
	}
}
