package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, "offline", cfg.AI.Provider)
	assert.Equal(t, 3, cfg.Queue.MaxRetries)
	assert.Equal(t, 768, cfg.AI.EmbeddingDim)
}

func TestLoadConfigLayering(t *testing.T) {
	base := writeConfigFile(t, `
[server]
port = 9000

[ai]
provider = "offline"
`)
	override := filepath.Join(t.TempDir(), "override.toml")
	require.NoError(t, os.WriteFile(override, []byte(`
[server]
port = 9100
`), 0o644))

	cfg, err := LoadConfig(base, override)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "later files win")
	assert.Equal(t, "offline", cfg.AI.Provider)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SENTINEL_SERVER_PORT", "9999")
	t.Setenv("SENTINEL_AI_PROVIDER", "offline")

	path := writeConfigFile(t, `
[server]
port = 9000
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port, "environment wins over files")
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	path := writeConfigFile(t, `
[ai]
provider = "skynet"
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.toml")
	assert.Error(t, err)
}

func TestStageTimeoutOverrides(t *testing.T) {
	w := &WorkersConfig{
		StageTimeout: "10m",
		StageTimeouts: map[string]string{
			"transcription": "30m",
			"broken":        "not-a-duration",
		},
	}

	assert.Equal(t, 30*time.Minute, w.StageTimeoutFor("transcription"))
	assert.Equal(t, 10*time.Minute, w.StageTimeoutFor("summarization"))
	assert.Equal(t, 10*time.Minute, w.StageTimeoutFor("broken"), "bad overrides fall back to the default")

	empty := &WorkersConfig{}
	assert.Equal(t, 10*time.Minute, empty.StageTimeoutFor("anything"))
}

func TestAllowedExtension(t *testing.T) {
	u := DefaultConfig().Upload

	assert.True(t, u.AllowedExtension("document", "Report.PDF"))
	assert.True(t, u.AllowedExtension("cdr", "records.csv"))
	assert.False(t, u.AllowedExtension("document", "malware.exe"))
	assert.False(t, u.AllowedExtension("hologram", "x.pdf"))
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDurationOr("5s", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("garbage", time.Minute))
}

func TestJobIDHierarchy(t *testing.T) {
	id := NewJobID("mgr1", "ana1")
	assert.Equal(t, "ana1", JobIDOwner(id))

	// Owners without a supervisor are their own supervisor component
	id = NewJobID("", "mgr1")
	assert.Equal(t, "mgr1", JobIDOwner(id))
	assert.Contains(t, id, "mgr1/mgr1/")

	assert.Equal(t, "", JobIDOwner("flat-id"))
}
