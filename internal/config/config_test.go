package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/squat-coach/internal/logic"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "squat-coach.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, logic.DefaultThresholds(), cfg.LogicThresholds())
	assert.Equal(t, logic.DefaultSessionPolicy(), cfg.SessionPolicy())
}

func TestLoadOverridesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
[thresholds]
hip = [60.0, 140.0]
ankle = 75.0

[session]
success_after = 5

[log]
level = "debug"
json = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	th := cfg.LogicThresholds()
	assert.Equal(t, logic.Band{Min: 60, Max: 140}, th.Hip)
	assert.Equal(t, 75.0, th.Ankle)
	assert.Equal(t, logic.DefaultThresholds().Pass, th.Pass)
	assert.Equal(t, [3]float64{50, 100, 130}, th.Knee)

	assert.Equal(t, 5, cfg.SessionPolicy().SuccessAfter)
	assert.Equal(t, 50, cfg.SessionPolicy().MaxAttempts)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.True(t, cfg.Log.Stdout)
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	path := writeConfig(t, `
[thresholds]
normal = [0.0, 60.0]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresholds")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[thresholds]
offset = 30.0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, "[thresholds\nhip = ")
	_, err := Load(path)
	require.Error(t, err)
}

func TestWriteLoadsBack(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.Hip = Band{55, 125}
	cfg.Session.MaxAttempts = 30
	cfg.Log.File = "/var/log/squat-coach"

	var b strings.Builder
	require.NoError(t, cfg.Write(&b))
	assert.Contains(t, b.String(), "[thresholds]")

	loaded, err := Load(writeConfig(t, b.String()))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
