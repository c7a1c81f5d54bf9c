package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"goqca/internal/capability"
	"goqca/internal/errors"
)

// Config represents the complete engine configuration
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Limits   LimitsConfig   `mapstructure:"limits" yaml:"limits"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// AnalysisConfig holds the default thresholds applied to every analysis
type AnalysisConfig struct {
	InclusionThreshold float64 `mapstructure:"inclusion_threshold" yaml:"inclusion_threshold"`
	PRIThreshold       float64 `mapstructure:"pri_threshold" yaml:"pri_threshold"`
	Contradictions     string  `mapstructure:"contradictions" yaml:"contradictions"`
	IncludeRemainders  bool    `mapstructure:"include_remainders" yaml:"include_remainders"`
}

// LimitsConfig holds the combinatorial pre-flight limits
type LimitsConfig struct {
	MaxConditions   int `mapstructure:"max_conditions" yaml:"max_conditions"`
	MaxRows         int `mapstructure:"max_rows" yaml:"max_rows"`
	AutoCardinality int `mapstructure:"auto_cardinality" yaml:"auto_cardinality"`
}

// EngineConfig selects the numeric backend and batch behaviour
type EngineConfig struct {
	Backend     string        `mapstructure:"backend" yaml:"backend"`
	Parallelism int           `mapstructure:"parallelism" yaml:"parallelism"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// StoreConfig holds the optional run store connection
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("analysis.inclusion_threshold", 0.8)
	v.SetDefault("analysis.pri_threshold", 0.51)
	v.SetDefault("analysis.contradictions", "")
	v.SetDefault("analysis.include_remainders", true)

	v.SetDefault("limits.max_conditions", capability.DefaultMaxConditions)
	v.SetDefault("limits.max_rows", capability.DefaultMaxRows)
	v.SetDefault("limits.auto_cardinality", capability.DefaultAutoCardinality)

	v.SetDefault("engine.backend", "gonum")
	v.SetDefault("engine.parallelism", 4)
	v.SetDefault("engine.cache_ttl", "10m")

	v.SetDefault("store.driver", "sqlite3")
	v.SetDefault("store.dsn", "")

	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.json", false)
}

// New returns a viper instance with defaults and QCA_* environment binding.
// Callers may bind CLI flags on it before calling FromViper.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("QCA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, then validates it
func Load(path string) (*Config, error) {
	v := New()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// ReadFile merges a YAML config file into v; an empty path is a no-op
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "failed to read config file %s", path))
	}
	return nil
}

// FromViper decodes and validates a configuration
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to unmarshal config"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return &cfg, nil
}

// Validate checks every section and returns a CONFIG_INVALID error on the
// first problem
func (c *Config) Validate() error {
	a := c.Analysis
	if !(a.InclusionThreshold > 0 && a.InclusionThreshold < 1) {
		return errors.ConfigInvalid(fmt.Sprintf("analysis.inclusion_threshold %g must be in (0, 1)", a.InclusionThreshold))
	}
	if a.PRIThreshold < 0 || a.PRIThreshold > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("analysis.pri_threshold %g must be in [0, 1]", a.PRIThreshold))
	}
	switch strings.ToLower(a.Contradictions) {
	case "", "remove", "recode", "split":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("analysis.contradictions %q must be remove, recode or split", a.Contradictions))
	}

	if c.Limits.MaxConditions < 2 {
		return errors.ConfigInvalid("limits.max_conditions must be at least 2")
	}
	if c.Limits.MaxRows < 4 {
		return errors.ConfigInvalid("limits.max_rows must be at least 4")
	}
	if c.Limits.AutoCardinality < 1 {
		return errors.ConfigInvalid("limits.auto_cardinality must be positive")
	}

	if _, err := capability.BackendByName(c.Engine.Backend); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	if c.Engine.Parallelism < 1 {
		return errors.ConfigInvalid("engine.parallelism must be at least 1")
	}
	if c.Engine.CacheTTL < 0 {
		return errors.ConfigInvalid("engine.cache_ttl must not be negative")
	}

	switch c.Store.Driver {
	case "", "sqlite3", "postgres":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("store.driver %q must be sqlite3 or postgres", c.Store.Driver))
	}
	return nil
}

// Capabilities builds the engine capabilities described by the config
func (c *Config) Capabilities() (capability.Capabilities, error) {
	return capability.New(c.Engine.Backend, c.Limits.MaxConditions, c.Limits.MaxRows, c.Limits.AutoCardinality)
}
