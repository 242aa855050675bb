package identity_test

import (
	"database/sql"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const sqliteCreateUsers = `CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    roles TEXT NOT NULL DEFAULT '[]',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP
);`

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateUsers)
	require.NoError(t, err)

	t.Cleanup(func() {
		bunDB.Close()
	})

	return bunDB
}

func setupRepoManager(t *testing.T) identity.RepositoryManager {
	t.Helper()
	return identity.NewRepositoryManager(setupTestDB(t))
}

// fastHasher keeps credential derivation cheap in tests that register
// through the full flow.
func fastHasher() *identity.PasswordHasher {
	return identity.NewPasswordHasher(
		identity.WithArgonTime(1),
		identity.WithArgonMemory(8*1024),
		identity.WithArgonThreads(1),
	)
}
