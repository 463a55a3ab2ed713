package tenant

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-pos/internal/database"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "t.db"), 1)
	require.NoError(t, err)
	defer db.Close()

	applied, err := Migrate(ctx, db)
	require.NoError(t, err)
	require.Len(t, applied, len(Migrations))
	assert.Equal(t, LatestVersion(), applied[len(applied)-1])

	applied, err = Migrate(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, len(Migrations), n)
}

func TestMigrateDetectsDrift(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "t.db"), 1)
	require.NoError(t, err)
	defer db.Close()

	_, err = Migrate(ctx, db)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "UPDATE schema_migrations SET checksum='edited' WHERE version=1")
	require.NoError(t, err)

	_, err = Migrate(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema drift")
}

func TestChecksumIgnoresSurroundingWhitespace(t *testing.T) {
	a := Migration{Version: 9, Statements: []string{"CREATE TABLE x (id INTEGER)"}}
	b := Migration{Version: 9, Statements: []string{"\n\t CREATE TABLE x (id INTEGER)  \n"}}
	c := Migration{Version: 9, Statements: []string{"CREATE TABLE y (id INTEGER)"}}
	assert.Equal(t, a.Checksum(), b.Checksum())
	assert.NotEqual(t, a.Checksum(), c.Checksum())
}

func TestIsDuplicateDDL(t *testing.T) {
	assert.True(t, isDuplicateDDL(errors.New("SQL logic error: duplicate column name: notes (1)")))
	assert.True(t, isDuplicateDDL(errors.New("table users already exists")))
	assert.False(t, isDuplicateDDL(errors.New("no such table: users")))
}
