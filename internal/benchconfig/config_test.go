package benchconfig

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults_PassValidation(t *testing.T) {
	assert.NoError(t, defaults().Validate())
}

func TestValidate_RejectsEmptyCacheDir(t *testing.T) {
	cfg := defaults()
	cfg.CacheDir = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownLogFormat(t *testing.T) {
	cfg := defaults()
	cfg.LogFormat = "xml"
	assert.Error(t, cfg.Validate())
}

func TestApplyEnvOverrides_WinsOverTomlAndDefaults(t *testing.T) {
	cfg := defaults()
	applyTomlFile(&cfg, tomlFile{CacheDir: "/from/toml", ToolConcurrency: 5})

	t.Setenv("LLMBENCH_CACHE_DIR", "/from/env")
	applyEnvOverrides(&cfg)

	assert.Equal(t, "/from/env", cfg.CacheDir)
	assert.Equal(t, 5, cfg.ToolConcurrency, "env override only touches vars it sets")
}

func TestApplyEnvOverrides_ToolConcurrencyIgnoresInvalidValue(t *testing.T) {
	cfg := defaults()
	t.Setenv("LLMBENCH_TOOL_CONCURRENCY", "not-a-number")
	applyEnvOverrides(&cfg)
	assert.Equal(t, 3, cfg.ToolConcurrency)
}

func TestMain(m *testing.M) {
	for _, v := range []string{
		"LLMBENCH_CACHE_DIR", "LLMBENCH_BUILD_ID", "LLMBENCH_LOG_FORMAT",
		"LLMBENCH_LOG_LEVEL", "LLMBENCH_TASK_OVERLAY", "LLMBENCH_TOOL_CONCURRENCY",
		"LLMBENCH_PERF_LOGGING",
	} {
		os.Unsetenv(v)
	}
	os.Exit(m.Run())
}
