// Package config wraps viper with the settings the tactical discovery
// engine consumes: evaluator location, search depth, mistake thresholds,
// and worker-pool sizing knobs.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeyDebug             = "debug"
	KeyEnginePath        = "engine-path"
	KeyEvalDepth         = "eval-depth"
	KeyMistakeThreshold  = "mistake-threshold"
	KeyBlunderThreshold  = "blunder-threshold"
	KeyMaxWorkers        = "max-workers"
	KeyLoadCeiling       = "load-ceiling"
	KeySkipAnalyzed      = "skip-analyzed"
	KeyRequestTimeout    = "request-timeout"
	KeyMaxLineMoves      = "max-line-moves"
	KeyDBPath            = "db-path"
	KeyEngineThreads     = "engine-threads"
)

// Config is a thin wrapper around viper. Use Load to populate it.
type Config struct {
	v *viper.Viper
}

// DefaultConfig returns a config with all defaults registered.
func DefaultConfig() *Config {
	v := viper.New()
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyEnginePath, "stockfish")
	v.SetDefault(KeyEvalDepth, 18)
	// Win-probability loss thresholds, on the 0-100 scale.
	v.SetDefault(KeyMistakeThreshold, 20.0)
	v.SetDefault(KeyBlunderThreshold, 30.0)
	v.SetDefault(KeyMaxWorkers, 0) // 0 = as many as free cores allow
	v.SetDefault(KeyLoadCeiling, 0.75)
	v.SetDefault(KeySkipAnalyzed, true)
	v.SetDefault(KeyRequestTimeout, 30*time.Second)
	v.SetDefault(KeyMaxLineMoves, 5)
	v.SetDefault(KeyDBPath, "chessprep.db")
	v.SetDefault(KeyEngineThreads, 1)

	v.SetEnvPrefix("CHESSPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Config{v: v}
}

// Load populates the config from an optional config file and key=value
// command-line overrides. A missing config file is not an error.
func (c *Config) Load(args []string) error {
	c.v.SetConfigName("chessprep")
	c.v.SetConfigType("yaml")
	c.v.AddConfigPath(".")
	if err := c.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	for _, arg := range args {
		key, val, found := strings.Cut(arg, "=")
		if !found {
			continue
		}
		c.v.Set(strings.TrimPrefix(key, "-"), val)
	}
	return nil
}

func (c *Config) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *Config) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *Config) GetFloat64(key string) float64        { return c.v.GetFloat64(key) }
func (c *Config) GetString(key string) string          { return c.v.GetString(key) }
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }

// Set overrides a single setting. Mostly useful in tests.
func (c *Config) Set(key string, value interface{}) { c.v.Set(key, value) }

// AllSettings returns every setting for logging at startup.
func (c *Config) AllSettings() map[string]interface{} { return c.v.AllSettings() }
