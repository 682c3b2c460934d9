package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory.
const FileName = "j2ado"

// Config represents the service configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Keys     KeysConfig     `mapstructure:"keys"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" validate:"gt=0"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LLMConfig selects the model provider
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=gemini openai"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

type StorageConfig struct {
	ArtifactDir string `mapstructure:"artifact_dir" validate:"required"`
}

type LedgerConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type KeysConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

type ApprovalConfig struct {
	RequirePassingEvaluation bool `mapstructure:"require_passing_evaluation"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

var validate = validator.New()

// Load reads j2ado.yaml from the working directory (if present) and the
// environment. Environment keys use the J2ADO_ prefix with dots replaced by
// underscores, e.g. J2ADO_LLM_PROVIDER.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path falls
// back to j2ado.yaml in the working directory.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("J2ADO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional name used by hosting platforms.
	_ = v.BindEnv("server.port", "J2ADO_SERVER_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	// The SDK key variable only counts for the provider that reads it.
	_ = v.BindEnv(append([]string{"llm.api_key", "J2ADO_LLM_API_KEY"}, providerKeyEnv[v.GetString("llm.provider")]...)...)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var providerKeyEnv = map[string][]string{
	"gemini": {"GEMINI_API_KEY"},
	"openai": {"OPENAI_API_KEY"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_bytes", 1<<20)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 8*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.step_timeout", 3*time.Minute)

	v.SetDefault("storage.artifact_dir", "./artifacts")
	v.SetDefault("ledger.path", "./ledger.jsonl")
	v.SetDefault("keys.dir", "./keys")
	v.SetDefault("approval.require_passing_evaluation", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks field constraints, then that a convert request, which runs
// two model steps back to back, fits inside the server write timeout.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Server.WriteTimeout > 0 {
		step := c.LLM.stepBound()
		if step == 0 {
			return fmt.Errorf("invalid config: server.write_timeout %s needs llm.timeout or llm.step_timeout set", c.Server.WriteTimeout)
		}
		if c.Server.WriteTimeout <= 2*step {
			return fmt.Errorf("invalid config: server.write_timeout %s must exceed two model steps (2 x %s)", c.Server.WriteTimeout, step)
		}
	}
	return nil
}

// stepBound is the longest one model step may take, or 0 when unbounded.
func (l LLMConfig) stepBound() time.Duration {
	bound := l.StepTimeout
	if l.Timeout > 0 && (bound <= 0 || l.Timeout < bound) {
		bound = l.Timeout
	}
	if bound < 0 {
		return 0
	}
	return bound
}
