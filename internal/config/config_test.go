package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "susquery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "sus_data.db", cfg.Database.Path)
	assert.Equal(t, "dados_sus3", cfg.Database.Table)
	assert.Equal(t, "llama3", cfg.Translator.Model)
	assert.InDelta(t, 0.1, cfg.Translator.Temperature, 1e-6)
	assert.InDelta(t, 0.9, cfg.Translator.TopP, 1e-6)
	assert.Equal(t, 2048, cfg.Translator.NumPredict)
	assert.Equal(t, 10, cfg.Translator.MaxIterations)
	assert.InDelta(t, 0.5, cfg.Resolver.ChapterThreshold, 1e-6)
	assert.InDelta(t, 0.8, cfg.Resolver.CategoryThreshold, 1e-6)
	assert.InDelta(t, 2.0, cfg.Resolver.ChapterBonus, 1e-6)
	assert.Equal(t, 50, cfg.Validator.MaxColumns)
	assert.Equal(t, 100, cfg.Validator.MinRecords)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /data/sus.db
translator:
  provider: none
resolver:
  chapter_threshold: 0.4
validator:
  max_columns: 80
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/sus.db", cfg.Database.Path)
	assert.Equal(t, "dados_sus3", cfg.Database.Table, "unset keys keep defaults")
	assert.Equal(t, "none", cfg.Translator.Provider)
	assert.InDelta(t, 0.4, cfg.Resolver.ChapterThreshold, 1e-6)
	assert.Equal(t, 80, cfg.Validator.MaxColumns)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SUSQ_TRANSLATOR_MODEL", "mistral")
	t.Setenv("SUSQ_DATABASE_TABLE", "admissions")
	path := writeConfig(t, "log:\n  level: debug\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Translator.Model)
	assert.Equal(t, "admissions", cfg.Database.Table)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"empty-db", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"bad-embedding", func(c *Config) { c.Embedding.Provider = "word2vec" }, "embedding.provider"},
		{"bad-translator", func(c *Config) { c.Translator.Provider = "gpt" }, "translator.provider"},
		{"zero-iterations", func(c *Config) { c.Translator.MaxIterations = 0 }, "translator.max_iterations"},
		{"low-bonus", func(c *Config) { c.Resolver.ChapterBonus = 0.5 }, "resolver.chapter_bonus"},
		{"genai-no-key", func(c *Config) { c.Translator.Provider = "genai" }, "translator.api_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}
