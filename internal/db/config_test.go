package db

import (
	"testing"

	"github.com/raphaelgruber/briefcast/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestConfigFrom(t *testing.T) {
	got := ConfigFrom(config.Config{
		SurrealDBURL:       "ws://db:8000/rpc",
		SurrealDBNamespace: "briefcast",
		SurrealDBDatabase:  "memory",
		SurrealDBUser:      "root",
		SurrealDBPass:      "secret",
		SurrealDBAuthLevel: "database",
	})

	assert.Equal(t, Config{
		URL:       "ws://db:8000/rpc",
		Namespace: "briefcast",
		Database:  "memory",
		Username:  "root",
		Password:  "secret",
		AuthLevel: "database",
	}, got)
}

func TestAuthLevel(t *testing.T) {
	assert.Equal(t, "database", authLevel(Config{AuthLevel: "database"}))
	assert.Equal(t, "root", authLevel(Config{AuthLevel: "root"}))
	assert.Equal(t, "root", authLevel(Config{}))
}

func TestSchemaSQLDimension(t *testing.T) {
	sql := SchemaSQL(1536)
	assert.Contains(t, sql, "HNSW DIMENSION 1536 DIST COSINE")
	assert.Contains(t, sql, "DEFINE TABLE IF NOT EXISTS run")
}
