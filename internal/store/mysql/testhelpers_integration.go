//go:build integration

package mysql

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

// schemaPath resolves db/schema.sql relative to this file so the helper
// works from any package directory.
func schemaPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "db", "schema.sql")
}

// openArchive starts MySQL with the archive schema loaded and returns an
// open handle. Both are released when the test ends.
func openArchive(t *testing.T, ctx context.Context) *sql.DB {
	t.Helper()

	container, err := mysql.RunContainer(
		ctx,
		mysql.WithDatabase("notifyd_test"),
		mysql.WithUsername("notifyd"),
		mysql.WithPassword("notifyd"),
		mysql.WithScripts(schemaPath(t)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "parseTime=true", "loc=UTC")
	require.NoError(t, err)

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))
	return db
}
