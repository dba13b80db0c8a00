//go:build integration

// Package postgres_test exercises the PostgreSQL chat store against a real
// database started with testcontainers. Run with:
//
//	go test -tags integration ./test/integration/...
//
// Set TALKO_TEST_POSTGRES_HOST (and optionally _PORT, _DATABASE, _USER,
// _PASSWORD) to use an external PostgreSQL instead of a container.
package postgres_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/talko/pkg/store/chat"
	"github.com/marmos91/talko/pkg/store/chat/database"
	"github.com/marmos91/talko/pkg/store/chat/storetest"
)

const (
	testDatabase = "talko_test"
	testUser     = "talko_test"
	testPassword = "talko_test"
)

// sharedConfig points at the database started by TestMain.
var sharedConfig *database.Config

func TestMain(m *testing.M) {
	ctx := context.Background()

	// External database via environment, container otherwise.
	if host := os.Getenv("TALKO_TEST_POSTGRES_HOST"); host != "" {
		sharedConfig = externalConfig(host)
		os.Exit(m.Run())
	}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		// PostgreSQL logs the ready line twice during startup, once while
		// bootstrapping and once when actually accepting connections.
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	code := 1
	defer func() {
		_ = container.Terminate(ctx)
		os.Exit(code)
	}()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		return
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		return
	}

	sharedConfig = &database.Config{
		Type: database.TypePostgres,
		Postgres: database.PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: testDatabase,
			User:     testUser,
			Password: testPassword,
			SSLMode:  "disable",
		},
	}

	code = m.Run()
}

func externalConfig(host string) *database.Config {
	port := 5432
	if p := os.Getenv("TALKO_TEST_POSTGRES_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	dbName := os.Getenv("TALKO_TEST_POSTGRES_DATABASE")
	if dbName == "" {
		dbName = testDatabase
	}
	user := os.Getenv("TALKO_TEST_POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}
	password := os.Getenv("TALKO_TEST_POSTGRES_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	return &database.Config{
		Type: database.TypePostgres,
		Postgres: database.PostgresConfig{
			Host:     host,
			Port:     port,
			Database: dbName,
			User:     user,
			Password: password,
			SSLMode:  "disable",
		},
	}
}

// openStore connects to the shared database and truncates all tables so
// every test starts from a clean slate.
func openStore(t *testing.T) *database.GORMStore {
	t.Helper()

	store, err := database.New(sharedConfig)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	for _, table := range []string{"messages", "participants", "chats", "users"} {
		stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)
		if err := store.DB().Exec(stmt).Error; err != nil {
			t.Fatalf("truncate %s failed: %v", table, err)
		}
	}

	return store
}

// =============================================================================
// Store Conformance
// =============================================================================

func TestPostgresConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) chat.Store {
		return openStore(t)
	})
}

// =============================================================================
// Versioned Migrations
// =============================================================================

func TestMigrationsUpAndDown(t *testing.T) {
	ctx := context.Background()

	// Start from a bare database: the schema may exist from earlier tests.
	dropAll(t)

	if err := database.RunMigrations(ctx, sharedConfig); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	version, dirty, err := database.MigrationVersion(sharedConfig)
	if err != nil {
		t.Fatalf("MigrationVersion failed: %v", err)
	}
	if version == 0 {
		t.Fatal("Expected a nonzero schema version after migrating up")
	}
	if dirty {
		t.Fatal("Schema reported dirty after a clean migration")
	}

	// Up again is a no-op.
	if err := database.RunMigrations(ctx, sharedConfig); err != nil {
		t.Fatalf("Second RunMigrations failed: %v", err)
	}

	if err := database.RollbackMigrations(ctx, sharedConfig, int(version)); err != nil {
		t.Fatalf("RollbackMigrations failed: %v", err)
	}

	version, _, err = database.MigrationVersion(sharedConfig)
	if err != nil {
		t.Fatalf("MigrationVersion after rollback failed: %v", err)
	}
	if version != 0 {
		t.Fatalf("Expected schema version 0 after full rollback, got %d", version)
	}
}

// dropAll removes every table so migrations run against a bare schema.
func dropAll(t *testing.T) {
	t.Helper()

	store, err := database.New(sharedConfig)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer store.Close()

	for _, table := range []string{"messages", "participants", "chats", "users", "schema_migrations"} {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)
		if err := store.DB().Exec(stmt).Error; err != nil {
			t.Fatalf("drop %s failed: %v", table, err)
		}
	}
}

// =============================================================================
// Snapshot Export / Import
// =============================================================================

func TestPostgresSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	alice, err := store.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	bob, err := store.CreateUser(ctx, "bob")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	c, err := store.CreateChat(ctx, "pair", true, []int64{alice.UserID, bob.UserID})
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if _, err := store.CreateMessage(ctx, c.ChatID, alice.UserID, "hi", 1000); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	snap, err := store.Export(ctx)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(snap.Users) != 2 || len(snap.Chats) != 1 || len(snap.Participants) != 2 || len(snap.Messages) != 1 {
		t.Fatalf("Unexpected snapshot shape: %+v", snap)
	}

	// Import into an emptied database and compare.
	restored := openStore(t)
	if err := restored.Import(ctx, snap); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	got, err := restored.Export(ctx)
	if err != nil {
		t.Fatalf("Export after import failed: %v", err)
	}
	if len(got.Users) != len(snap.Users) || len(got.Messages) != len(snap.Messages) {
		t.Fatalf("Restored snapshot differs: %+v vs %+v", got, snap)
	}
	if got.Users[0].UserName != "alice" || got.Messages[0].MessageText != "hi" {
		t.Fatalf("Restored records differ: %+v", got)
	}

	// Imports into a non-empty store are refused.
	if err := restored.Import(ctx, snap); err == nil {
		t.Fatal("Expected Import into a non-empty store to fail")
	}
}
