// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/pandodao/paybridge/store/db"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// New returns a shared-cache in-memory database named after the test, so
// parallel tests stay isolated.
func New(t *testing.T) *db.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		url.PathEscape(t.Name()),
	)

	conn, err := db.Open(db.DriverSqlite, dsn)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(conn))

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
