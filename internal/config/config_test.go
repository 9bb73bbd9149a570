package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/virtual-audience/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().App, cfg.App)
	assert.Equal(t, 25, cfg.Simulation.Pool.RosterSizePerPersonality)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := writeFile(t, `
app:
  name: overlay-sim
  port: 9000
wss:
  pong_wait: 30s
notify:
  redis:
    channel: speedrun
simulation:
  seed: 42
  pool:
    roster_size_per_personality: 5
  lifecycle:
    join_interval:
      min: 1s
      max: 2s
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "overlay-sim", cfg.App.Name)
	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, 9090, cfg.App.GrpcPort, "keys missing from the file keep their default")
	assert.Equal(t, 30*time.Second, cfg.WSS.PongWait)
	assert.Equal(t, "audience:speedrun:events", cfg.Notify.Redis.EventsChannel())
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
	assert.Equal(t, 5, cfg.Simulation.Pool.RosterSizePerPersonality)
	assert.Equal(t, time.Second, cfg.Simulation.Lifecycle.JoinInterval.Min)
	assert.Equal(t, 10*time.Second, cfg.Simulation.Pool.MinLurk)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeFile(t, "app:\n  env: local\n  port: 9000\n")
	t.Setenv(config.EnvAppEnv, "prod")
	t.Setenv(config.EnvPort, "7000")
	t.Setenv(config.EnvRedisAddr, "redis:6379")
	t.Setenv(config.EnvSimSeed, "7")
	t.Setenv(config.EnvSimChannel, "night")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 7000, cfg.App.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, uint64(7), cfg.Simulation.Seed)
	assert.Equal(t, "night", cfg.Notify.Redis.Channel)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(writeFile(t, "app: [unclosed"))
	assert.Error(t, err)

	t.Setenv(config.EnvPort, "not-a-number")
	_, err = config.Load(writeFile(t, "app:\n  name: x\n"))
	assert.Error(t, err)
}

func TestWSSConfig_Server(t *testing.T) {
	c := config.Default().WSS
	s := c.Server()
	assert.Equal(t, c.AllowedOrigins, s.AllowedOrigins)
	assert.Equal(t, c.PongWait, s.PongWait)
	assert.Equal(t, c.SendBuffer, s.SendBuffer)
}
