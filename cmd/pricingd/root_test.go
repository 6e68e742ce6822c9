package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("PRICING_CONFIG_FILE", "")
	t.Setenv("PRICING_REDIS_URL", "")
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	return cmd.ExecuteContext(context.Background())
}

func TestRootFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "env-file", "listen"} {
		require.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestRootRejectsPositionalArgs(t *testing.T) {
	require.Error(t, execute(t, "serve"))
}

func TestServeFailsOnMissingConfigFile(t *testing.T) {
	err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "load config")
}

func TestServeFailsOnUnreachableRedis(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	path := filepath.Join(t.TempDir(), "pricing.yaml")
	cfg := "log:\n  level: error\nredis:\n  url: redis://" + addr + "\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	err := execute(t, "--config", path, "--listen", "127.0.0.1:0")
	require.ErrorContains(t, err, "connect redis")
}
