package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goqca/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Analysis.InclusionThreshold)
	assert.Equal(t, 0.51, cfg.Analysis.PRIThreshold)
	assert.True(t, cfg.Analysis.IncludeRemainders)
	assert.Equal(t, 12, cfg.Limits.MaxConditions)
	assert.Equal(t, 4096, cfg.Limits.MaxRows)
	assert.Equal(t, 6, cfg.Limits.AutoCardinality)
	assert.Equal(t, "gonum", cfg.Engine.Backend)
	assert.Equal(t, 4, cfg.Engine.Parallelism)
	assert.Equal(t, 10*time.Minute, cfg.Engine.CacheTTL)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)

	caps, err := cfg.Capabilities()
	require.NoError(t, err)
	assert.Equal(t, "gonum", caps.Backend.Name())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qca.yaml")
	content := `
analysis:
  inclusion_threshold: 0.75
  contradictions: split
engine:
  backend: native
  cache_ttl: 30s
limits:
  max_conditions: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("QCA_ENGINE_PARALLELISM", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Analysis.InclusionThreshold)
	assert.Equal(t, "split", cfg.Analysis.Contradictions)
	assert.Equal(t, "native", cfg.Engine.Backend)
	assert.Equal(t, 30*time.Second, cfg.Engine.CacheTTL)
	assert.Equal(t, 8, cfg.Limits.MaxConditions)
	assert.Equal(t, 2, cfg.Engine.Parallelism)

	caps, err := cfg.Capabilities()
	require.NoError(t, err)
	assert.Equal(t, "native", caps.Backend.Name())
	assert.Equal(t, 8, caps.MaxConditions)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	mutations := map[string]func(c *Config){
		"threshold":      func(c *Config) { c.Analysis.InclusionThreshold = 1 },
		"pri":            func(c *Config) { c.Analysis.PRIThreshold = -0.1 },
		"contradictions": func(c *Config) { c.Analysis.Contradictions = "vote" },
		"conditions":     func(c *Config) { c.Limits.MaxConditions = 1 },
		"rows":           func(c *Config) { c.Limits.MaxRows = 2 },
		"backend":        func(c *Config) { c.Engine.Backend = "cuda" },
		"parallelism":    func(c *Config) { c.Engine.Parallelism = 0 },
		"driver":         func(c *Config) { c.Store.Driver = "mysql" },
	}
	for name, mutate := range mutations {
		cfg := *base
		mutate(&cfg)
		err := cfg.Validate()
		require.Error(t, err, name)
		assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err), name)
	}
}
