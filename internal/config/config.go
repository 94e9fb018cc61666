package config

// #region imports
import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// #endregion

// #region config-types

// Config is the full runtime configuration for the controller binaries.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Log        LogConfig        `mapstructure:"log"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Translator TranslatorConfig `mapstructure:"translator"`
	Resolver   ResolverConfig   `mapstructure:"resolver"`
	Validator  ValidatorConfig  `mapstructure:"validator"`
	Codec      CodecConfig      `mapstructure:"codec"`
}

// DatabaseConfig points at the admissions dataset.
type DatabaseConfig struct {
	Path  string `mapstructure:"path"`
	Table string `mapstructure:"table"`
}

// AuditConfig points at the SQLite file holding request audit rows,
// outcome memory, and the embedding cache.
type AuditConfig struct {
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

// LogConfig selects zap level and encoding ("json" or "console").
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EmbeddingConfig selects the embedding backend for the semantic tiers.
type EmbeddingConfig struct {
	Provider    string `mapstructure:"provider"` // hash | ollama | genai | codec | none
	Model       string `mapstructure:"model"`
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	Dimensions  int    `mapstructure:"dimensions"`
	Cache       bool   `mapstructure:"cache"`
	Concurrency int    `mapstructure:"concurrency"`
}

// TranslatorConfig configures the generative SQL translator.
type TranslatorConfig struct {
	Provider      string  `mapstructure:"provider"` // ollama | genai | codec | none
	Model         string  `mapstructure:"model"`
	Endpoint      string  `mapstructure:"endpoint"`
	APIKey        string  `mapstructure:"api_key"`
	Temperature   float32 `mapstructure:"temperature"`
	TopP          float32 `mapstructure:"top_p"`
	NumPredict    int     `mapstructure:"num_predict"`
	MaxIterations int     `mapstructure:"max_iterations"`
}

// ResolverConfig holds the semantic thresholds and catalog sources.
type ResolverConfig struct {
	ChapterThreshold  float32 `mapstructure:"chapter_threshold"`
	CategoryThreshold float32 `mapstructure:"category_threshold"`
	ChapterBonus      float32 `mapstructure:"chapter_bonus"`
	ChaptersCSV       string  `mapstructure:"chapters_csv"`
	CategoriesCSV     string  `mapstructure:"categories_csv"`
	VocabularyFile    string  `mapstructure:"vocabulary_file"`
}

// ValidatorConfig holds the magnitude bounds applied to translator answers.
type ValidatorConfig struct {
	MaxColumns int `mapstructure:"max_columns"`
	MinRecords int `mapstructure:"min_records"`
}

// CodecConfig is the address of the gRPC inference service.
type CodecConfig struct {
	Addr string `mapstructure:"addr"`
}

// #endregion

// #region errors

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// FieldError names the offending key.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config field %q: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrInvalidConfig }

// #endregion

// #region defaults

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "sus_data.db")
	v.SetDefault("database.table", "dados_sus3")

	v.SetDefault("audit.path", "susquery_audit.db")
	v.SetDefault("audit.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("embedding.model", "embeddinggemma")
	v.SetDefault("embedding.endpoint", "http://localhost:11434")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dimensions", 256)
	v.SetDefault("embedding.cache", true)
	v.SetDefault("embedding.concurrency", 4)

	v.SetDefault("translator.provider", "ollama")
	v.SetDefault("translator.model", "llama3")
	v.SetDefault("translator.endpoint", "http://localhost:11434")
	v.SetDefault("translator.api_key", "")
	v.SetDefault("translator.temperature", 0.1)
	v.SetDefault("translator.top_p", 0.9)
	v.SetDefault("translator.num_predict", 2048)
	v.SetDefault("translator.max_iterations", 10)

	v.SetDefault("resolver.chapter_threshold", 0.5)
	v.SetDefault("resolver.category_threshold", 0.8)
	v.SetDefault("resolver.chapter_bonus", 2.0)
	v.SetDefault("resolver.chapters_csv", "")
	v.SetDefault("resolver.categories_csv", "")
	v.SetDefault("resolver.vocabulary_file", "")

	v.SetDefault("validator.max_columns", 50)
	v.SetDefault("validator.min_records", 100)

	v.SetDefault("codec.addr", "localhost:50051")
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// #endregion

// #region load

// Load reads configuration from path, or from susquery.yaml in the working
// directory or $HOME/.susquery when path is empty. A missing implicit file
// falls back to defaults. SUSQ_* environment variables override both
// (SUSQ_DATABASE_PATH, SUSQ_TRANSLATOR_MODEL, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SUSQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("susquery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.susquery")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// #endregion

// #region validate

var (
	embeddingProviders  = map[string]bool{"hash": true, "ollama": true, "genai": true, "codec": true, "none": true}
	translatorProviders = map[string]bool{"ollama": true, "genai": true, "codec": true, "none": true}
)

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return &FieldError{Field: "database.path", Message: "must not be empty"}
	case c.Database.Table == "":
		return &FieldError{Field: "database.table", Message: "must not be empty"}
	case !embeddingProviders[c.Embedding.Provider]:
		return &FieldError{Field: "embedding.provider", Message: fmt.Sprintf("unknown provider %q", c.Embedding.Provider)}
	case !translatorProviders[c.Translator.Provider]:
		return &FieldError{Field: "translator.provider", Message: fmt.Sprintf("unknown provider %q", c.Translator.Provider)}
	case c.Translator.MaxIterations < 1:
		return &FieldError{Field: "translator.max_iterations", Message: "must be at least 1"}
	case c.Resolver.ChapterThreshold <= 0 || c.Resolver.CategoryThreshold <= 0:
		return &FieldError{Field: "resolver", Message: "thresholds must be positive"}
	case c.Resolver.ChapterBonus < 1:
		return &FieldError{Field: "resolver.chapter_bonus", Message: "must be >= 1"}
	case c.Validator.MaxColumns < 1 || c.Validator.MinRecords < 1:
		return &FieldError{Field: "validator", Message: "bounds must be positive"}
	case c.Embedding.Provider == "genai" && c.Embedding.APIKey == "":
		return &FieldError{Field: "embedding.api_key", Message: "required for genai"}
	case c.Translator.Provider == "genai" && c.Translator.APIKey == "":
		return &FieldError{Field: "translator.api_key", Message: "required for genai"}
	}
	if c.Embedding.Concurrency < 1 {
		c.Embedding.Concurrency = 1
	}
	return nil
}

// #endregion
