package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromAppliesDefaultsAndEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	yaml := `
app:
  name: thoth-test
llm:
  providers:
    deepseek:
      api_key: ${THOTH_TEST_KEY:fallback-key}
writing:
  rag_top_k: 8
  chunk_word_target: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "thoth-test", cfg.App.Name)
	assert.Equal(t, "fallback-key", cfg.LLM.Providers["deepseek"].APIKey)
	assert.Equal(t, 8, cfg.Writing.RAGTopK)
	assert.Equal(t, 1200, cfg.Writing.ChunkWordTarget)
	assert.Equal(t, 24, cfg.Writing.MaxIterations)
	assert.Equal(t, 5*time.Minute, cfg.Writing.ContextCacheTTL)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
}

func TestLoadFromEnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("writing:\n  rag_top_k: 3\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte("writing:\n  rag_top_k: 9\n"), 0o600))
	t.Setenv("APP_ENV", "staging")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Writing.RAGTopK)
}

func TestExpandEnvKeepsUndefinedPlaceholder(t *testing.T) {
	t.Setenv("THOTH_DEFINED", "value")

	assert.Equal(t, "value", expandEnv("${THOTH_DEFINED}"))
	assert.Equal(t, "d", expandEnv("${THOTH_UNDEFINED_X:d}"))
	assert.Equal(t, "${THOTH_UNDEFINED_Y}", expandEnv("${THOTH_UNDEFINED_Y}"))
}

func TestNormalizeRejectsOverlapLargerThanChunk(t *testing.T) {
	w := WritingConfig{RAGChunkSize: 100, RAGChunkOverlap: 100}
	w.normalize()
	assert.Equal(t, 50, w.RAGChunkOverlap)
}
