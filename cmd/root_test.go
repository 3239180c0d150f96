package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordatlas/atlas-cli/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"fetch", "search", "sources", "migrate", "verify", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "atlas-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSearchCommand_Flags(t *testing.T) {
	for _, name := range []string{"lat", "lon", "radius", "stored", "limit"} {
		require.NotNil(t, searchCmd.Flags().Lookup(name), "search command should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestFetchCommand_Flags(t *testing.T) {
	for _, name := range []string{"lat", "lon", "distance", "max-rows", "out"} {
		require.NotNil(t, fetchCmd.Flags().Lookup(name), "fetch command should have --%s flag", name)
	}
}

// setTestConfig installs a sqlite-backed config for command RunE tests.
func setTestConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "test.db")},
		Search: config.SearchConfig{DefaultRadiusKm: 2, MaxResults: 100},
	}
	t.Cleanup(func() { cfg = prev })
}

func TestMigrateAndVerifyCommands(t *testing.T) {
	setTestConfig(t)

	dataset := filepath.Join(t.TempDir(), "poi.geojson")
	geojson := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[10.7339,59.9139]},"properties":{"name":"Oslo City Hall"}}
	]}`
	require.NoError(t, os.WriteFile(dataset, []byte(geojson), 0o644))

	var out bytes.Buffer
	migrateCmd.SetOut(&out)
	migrateCmd.SetContext(context.Background())
	require.NoError(t, migrateCmd.RunE(migrateCmd, []string{dataset}))
	assert.Contains(t, out.String(), "imported 1 places")

	out.Reset()
	verifyCmd.SetOut(&out)
	verifyCmd.SetContext(context.Background())
	require.NoError(t, verifyCmd.RunE(verifyCmd, nil))
	assert.Contains(t, out.String(), "1 places stored")
	assert.Contains(t, out.String(), "Oslo City Hall")
}
