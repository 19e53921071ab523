package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaultsWhenUnset(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("BIND", "")
	t.Setenv("GTOTRAINER_FEATURES", "")
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Bind)
	assert.False(t, cfg.HasFeature("anything"))
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BIND", "127.0.0.1")
	t.Setenv("GTOTRAINER_FEATURES", "Bench, Contract ")
	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Bind)
	assert.True(t, cfg.HasFeature("bench"))
	assert.True(t, cfg.HasFeature("  CONTRACT"))
	assert.False(t, cfg.HasFeature("missing"))
}

func TestAtoiDefFallsBackOnEmptyOrInvalid(t *testing.T) {
	assert.Equal(t, 120, AtoiDef("", 120))
	assert.Equal(t, 120, AtoiDef("not-a-number", 120))
	assert.Equal(t, 55, AtoiDef("55", 120))
}
