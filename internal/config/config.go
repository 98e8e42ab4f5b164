// Package config provides Viper-based configuration loading for the effect
// simulator and its tools.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STATUSFX_LOGGING_LEVEL.
const EnvPrefix = "STATUSFX"

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimulationConfig holds the update loop settings.
type SimulationConfig struct {
	// FrameRate is the number of frames per simulated second.
	FrameRate float64 `mapstructure:"frame_rate"`
	// MaxDelta caps the wall-clock delta of one real-time frame, so a stalled
	// process does not expire every effect at once when it resumes.
	MaxDelta time.Duration `mapstructure:"max_delta"`
	// StartPaused starts the loop paused.
	StartPaused bool `mapstructure:"start_paused"`
	// Preview marks a non-running preview context; effects never tick in it.
	Preview bool `mapstructure:"preview"`
}

// FixedDelta returns the length of one frame in seconds.
//
// Precondition: FrameRate must be > 0.
func (s SimulationConfig) FixedDelta() float64 {
	return 1 / s.FrameRate
}

// ContentConfig locates effect definitions and their scripts.
type ContentConfig struct {
	EffectsDir string `mapstructure:"effects_dir"`
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// ScriptingConfig holds Lua hook settings.
type ScriptingConfig struct {
	// Enabled loads ScriptsDir and binds Lua hooks to the catalog.
	Enabled bool `mapstructure:"enabled"`
	// InstructionLimit is the opcode budget of one hook call; 0 selects the
	// scripting package default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Content    ContentConfig    `mapstructure:"content"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateSimulation(c.Simulation),
		validateContent(c.Content, c.Scripting),
		validateScripting(c.Scripting),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.FrameRate <= 0 || s.FrameRate > 1000 {
		errs = append(errs, fmt.Sprintf("simulation.frame_rate must be in (0, 1000], got %g", s.FrameRate))
	}
	if s.MaxDelta <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.max_delta must be > 0, got %s", s.MaxDelta))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig, s ScriptingConfig) error {
	var errs []string
	if c.EffectsDir == "" {
		errs = append(errs, "content.effects_dir must not be empty")
	}
	if s.Enabled && c.ScriptsDir == "" {
		errs = append(errs, "content.scripts_dir must not be empty when scripting is enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return errors.New("scripting.instruction_limit must be >= 0")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("simulation.frame_rate", 30)
	v.SetDefault("simulation.max_delta", "250ms")
	v.SetDefault("simulation.start_paused", false)
	v.SetDefault("simulation.preview", false)

	v.SetDefault("content.effects_dir", "content/effects")
	v.SetDefault("content.scripts_dir", "content/scripts")

	v.SetDefault("scripting.enabled", true)
	v.SetDefault("scripting.instruction_limit", 0)
}
