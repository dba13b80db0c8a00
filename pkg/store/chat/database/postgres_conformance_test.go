//go:build integration

package database_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/marmos91/talko/pkg/store/chat"
	"github.com/marmos91/talko/pkg/store/chat/database"
	"github.com/marmos91/talko/pkg/store/chat/storetest"
)

func TestPostgresConformance(t *testing.T) {
	// Skip unless a PostgreSQL instance is provided
	host := os.Getenv("TALKO_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("TALKO_TEST_POSTGRES_HOST not set, skipping PostgreSQL conformance tests")
	}

	storetest.RunConformanceSuite(t, func(t *testing.T) chat.Store {
		cfg := &database.Config{
			Type: database.TypePostgres,
			Postgres: database.PostgresConfig{
				Host:     host,
				Port:     5432,
				Database: "talko_test",
				User:     "postgres",
				Password: "postgres",
				SSLMode:  "disable",
			},
		}

		store, err := database.New(cfg)
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		t.Cleanup(func() {
			store.Close()
		})

		// Each conformance test expects a clean slate. Truncate instead of
		// dropping so concurrent packages cannot race on schema DDL.
		truncateAll(t, store)
		return store
	})
}

func truncateAll(t *testing.T, store *database.GORMStore) {
	t.Helper()

	for _, table := range []string{"messages", "participants", "chats", "users"} {
		stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)
		if err := store.DB().Exec(stmt).Error; err != nil {
			t.Fatalf("truncate %s failed: %v", table, err)
		}
	}
}
