package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/portal/internal/duckdb"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "Version:    dev")
}

func TestSeedAndExportCommands(t *testing.T) {
	home := isolateEnv(t)
	dbPath := filepath.Join(home, "catalog.duckdb")
	t.Setenv("PORTAL_DB_PATH", dbPath)

	out, err := runCLI(t, "seed")
	require.NoError(t, err)
	require.Contains(t, out, "Seeded 6 widgets and 3 dashboards")

	dst := filepath.Join(home, "backup", "catalog.duckdb")
	out, err = runCLI(t, "export", dst)
	require.NoError(t, err)
	require.Contains(t, out, "Exported")

	store, err := duckdb.NewStore(dst)
	require.NoError(t, err)
	defer store.Close()

	list, err := store.GetDashboardList(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestSeedCommand_File(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("PORTAL_DB_PATH", filepath.Join(home, "catalog.duckdb"))

	file := filepath.Join(home, "catalog.yml")
	catalog := `widgets:
  - name: Table
dashboards:
  - name: Inventory
    url: inventory
    panels: [Table]
`
	require.NoError(t, os.WriteFile(file, []byte(catalog), 0o644))

	out, err := runCLI(t, "seed", "--file", file)
	require.NoError(t, err)
	require.Contains(t, out, "Seeded 1 widgets and 1 dashboards")
}

func TestExportCommand_RequiresPath(t *testing.T) {
	isolateEnv(t)
	_, err := runCLI(t, "export")
	require.Error(t, err)
}

func TestSeedIfEmpty(t *testing.T) {
	store, err := duckdb.NewStore("")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	seeded, err := seedIfEmpty(ctx, store, "")
	require.NoError(t, err)
	require.True(t, seeded)

	seeded, err = seedIfEmpty(ctx, store, "")
	require.NoError(t, err)
	require.False(t, seeded, "a populated catalog must not be reseeded")
}

func TestRenderBanner(t *testing.T) {
	cfg := appConfig{
		APIEnabled: true,
		APIAddr:    "127.0.0.1:9643",
		GRPCAddr:   "127.0.0.1:9644",
		SocketPath: "/tmp/portal.sock",
	}
	banner := renderBanner(cfg, true, true)
	for _, want := range []string{"127.0.0.1:9643", "disabled", "/tmp/portal.sock", "in-memory", "built-in catalog", "default (no file)"} {
		require.True(t, strings.Contains(banner, want), "banner missing %q", want)
	}
}
