package config

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()

	is.Equal(cfg.GetString(KeyEnginePath), "stockfish")
	is.Equal(cfg.GetInt(KeyEvalDepth), 18)
	is.Equal(cfg.GetFloat64(KeyMistakeThreshold), 20.0)
	is.Equal(cfg.GetFloat64(KeyBlunderThreshold), 30.0)
	is.Equal(cfg.GetInt(KeyMaxWorkers), 0)
	is.Equal(cfg.GetFloat64(KeyLoadCeiling), 0.75)
	is.True(cfg.GetBool(KeySkipAnalyzed))
	is.Equal(cfg.GetDuration(KeyRequestTimeout), 30*time.Second)
	is.Equal(cfg.GetInt(KeyMaxLineMoves), 5)
	is.Equal(cfg.GetString(KeyDBPath), "chessprep.db")
	is.True(!cfg.GetBool(KeyDebug))
}

func TestLoadArgOverrides(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	err := cfg.Load([]string{"eval-depth=22", "-debug=true", "skip-analyzed=false", "notakeyvalue"})
	is.NoErr(err)

	is.Equal(cfg.GetInt(KeyEvalDepth), 22)
	is.True(cfg.GetBool(KeyDebug))
	is.True(!cfg.GetBool(KeySkipAnalyzed))
}

func TestEnvOverride(t *testing.T) {
	is := is.New(t)
	t.Setenv("CHESSPREP_ENGINE_PATH", "/opt/engines/sf16")

	cfg := DefaultConfig()
	is.Equal(cfg.GetString(KeyEnginePath), "/opt/engines/sf16")
}

func TestSetAndAllSettings(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	cfg.Set(KeyMaxWorkers, 3)

	is.Equal(cfg.GetInt(KeyMaxWorkers), 3)
	all := cfg.AllSettings()
	is.True(len(all) > 0)
}
