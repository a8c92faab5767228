package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zidesign/catalog/config"
)

func TestRebind(t *testing.T) {
	q := "UPDATE works SET status = $1 WHERE id = $2 AND status = $3"
	assert.Equal(t, q, DriverPostgres.Rebind(q))
	assert.Equal(t, "UPDATE works SET status = ? WHERE id = ? AND status = ?", DriverSQLite.Rebind(q))
}

func TestParseDriver(t *testing.T) {
	d, err := ParseDriver("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, d)

	d, err = ParseDriver("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, d)

	_, err = ParseDriver("mysql")
	assert.Error(t, err)
}

func TestPostgresURL(t *testing.T) {
	cfg := config.Config{Database: config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "zidesign",
		Password: "p@ss",
		DBName:   "catalog",
	}}
	assert.Equal(t, "postgres://zidesign:p%40ss@db:5432/catalog?sslmode=disable", PostgresURL(cfg))

	cfg.Database.UseSSL = true
	assert.Contains(t, PostgresURL(cfg), "sslmode=require")
}

func TestOpenSQLiteAppliesSchema(t *testing.T) {
	conn, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var n int
	err = conn.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'works')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Applying the schema twice is harmless.
	_, err = conn.Exec(sqliteSchema)
	assert.NoError(t, err)
}

func TestSQLiteRejectsUnknownEnumValues(t *testing.T) {
	conn, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	const insertUser = `INSERT INTO users (id, email, name, role, created_at, updated_at)
		VALUES (?, ?, 'Alice', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	_, err = conn.Exec(insertUser, "u0", "root@example.com", "root")
	assert.Error(t, err)
	_, err = conn.Exec(insertUser, "u1", "alice@example.com", "user")
	require.NoError(t, err)

	const insertWork = `INSERT INTO works (id, title, description, category, license, author_id, author_name, status, created_at, updated_at)
		VALUES (?, 't', 'd', ?, ?, 'u1', 'Alice', ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	for _, tc := range []struct {
		name                      string
		category, license, status string
	}{
		{"category", "fonts", "free", "pending"},
		{"license", "vectors", "exclusive", "pending"},
		{"status", "vectors", "free", "archived"},
	} {
		_, err = conn.Exec(insertWork, "w-"+tc.name, tc.category, tc.license, tc.status)
		assert.Error(t, err, tc.name)
	}
	_, err = conn.Exec(insertWork, "w-ok", "vectors", "free", "pending")
	assert.NoError(t, err)
}
