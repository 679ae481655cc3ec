package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stride/internal/domain"
)

const migrationsDir = "../../migrations"

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

// Feature: storefront, Property 13: Every migration is reversible
func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		sqlFileCount++
		content := readMigration(t, file.Name())

		for _, directive := range []string{"-- +goose Up", "-- +goose Down", "-- +goose StatementBegin", "-- +goose StatementEnd"} {
			if !strings.Contains(content, directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
		if strings.Count(content, "-- +goose StatementBegin") != strings.Count(content, "-- +goose StatementEnd") {
			t.Errorf("Migration file %s has unbalanced statement blocks", file.Name())
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"users":          "00001_create_users_table.sql",
		"refresh_tokens": "00002_create_refresh_tokens_table.sql",
		"orders":         "00003_create_orders_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		content := readMigration(t, migrationFile)

		if !strings.Contains(content, "CREATE TABLE IF NOT EXISTS "+tableName) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(content, "DROP TABLE IF EXISTS "+tableName) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestOrdersTableStoresSnapshotsAndMoney(t *testing.T) {
	content := readMigration(t, "00003_create_orders_table.sql")

	requiredColumns := []string{
		"id UUID PRIMARY KEY",
		"user_id UUID NOT NULL",
		"order_number VARCHAR(32) UNIQUE NOT NULL",
		"items JSONB NOT NULL",
		"subtotal NUMERIC(10, 2)",
		"shipping NUMERIC(10, 2)",
		"tax NUMERIC(10, 2)",
		"total NUMERIC(10, 2)",
		"shipping_address JSONB NOT NULL",
		"created_at TIMESTAMPTZ",
	}
	for _, column := range requiredColumns {
		if !strings.Contains(content, column) {
			t.Errorf("Orders table missing column definition: %s", column)
		}
	}
}

func TestOrdersStatusConstraintMatchesDomain(t *testing.T) {
	content := readMigration(t, "00003_create_orders_table.sql")

	statuses := []domain.OrderStatus{
		domain.StatusPending, domain.StatusProcessing, domain.StatusShipped,
		domain.StatusDelivered, domain.StatusCancelled,
	}
	for _, status := range statuses {
		if !strings.Contains(content, "'"+string(status)+"'") {
			t.Errorf("Orders status constraint missing value: %s", status)
		}
	}
}

func TestNotifyTriggerUsesTrackingChannel(t *testing.T) {
	content := readMigration(t, "00005_create_order_status_notify_trigger.sql")

	if !strings.Contains(content, "pg_notify(\n        'order_status_updates'") {
		t.Error("Notify trigger does not publish on order_status_updates")
	}
	for _, field := range []string{"'id'", "'user_id'", "'order_number'", "'status'"} {
		if !strings.Contains(content, field) {
			t.Errorf("Notify payload missing field %s", field)
		}
	}
	if !strings.Contains(content, "AFTER UPDATE ON orders") {
		t.Error("Notify trigger must fire after order updates")
	}
}
