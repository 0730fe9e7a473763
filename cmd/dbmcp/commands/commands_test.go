package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neverinfamous/db-mcp/internal/config"
)

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRoot()
	root.SetArgs(args)
	return root.Execute()
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbmcp.yaml")

	require.NoError(t, runRoot(t, "init", "--config", path))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	// A second init must refuse to clobber the file.
	err = runRoot(t, "init", "--config", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")

	require.NoError(t, runRoot(t, "init", "--config", path, "--force"))
}

func TestQueryRefusesWritesByDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dbmcp.yaml")

	cfg := config.Defaults()
	cfg.Database.Path = filepath.Join(dir, "data.db")
	cfg.Audit.DBPath = filepath.Join(dir, "audit.db")
	require.NoError(t, cfg.Save(path))

	err := runRoot(t, "query", "--config", path, "CREATE TABLE t (id INTEGER)")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--write")

	require.NoError(t, runRoot(t, "query", "--config", path, "--write", "CREATE TABLE t (id INTEGER)"))
	require.NoError(t, runRoot(t, "query", "--config", path, "SELECT * FROM t"))
}

func TestToolsListsFilter(t *testing.T) {
	require.NoError(t, runRoot(t, "tools", "--filter", "core"))
	require.NoError(t, runRoot(t, "tools", "--filter", "starter,-sqlite_drop_table", "--all"))
}
