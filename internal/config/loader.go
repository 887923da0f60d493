package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the engine section of a run file.
const (
	EnvInitialCapital = "ARGO_INITIAL_CAPITAL"
	EnvLogLevel       = "ARGO_LOG_LEVEL"
	EnvParallel       = "ARGO_PARALLEL"
	EnvStartTime      = "ARGO_START_TIME"
	EnvEndTime        = "ARGO_END_TIME"
)

// timeLayouts are accepted for time overrides, tried in order.
var timeLayouts = []string{time.RFC3339, time.DateTime, time.DateOnly}

// Load reads the run file at path, merges it on top of Defaults, loads a
// .env file from the working directory when present, and applies ARGO_*
// overrides. The format follows the extension: .yaml, .yml or .toml.
// The returned config has not been validated.
func Load(path string) (RunConfig, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	case ".toml":
		err = decodeTOML(data, &cfg)
	default:
		return cfg, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported config format %q", ext)
	}

	if err != nil {
		return cfg, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to decode config %s", path)
	}

	// A missing .env is not an error.
	_ = godotenv.Load()

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func decodeYAML(data []byte, cfg *RunConfig) error {
	return yaml.Unmarshal(data, cfg)
}

// tomlTimes picks up the engine time range, which the engine config does not
// map for TOML because optional values have no TOML form.
type tomlTimes struct {
	Engine struct {
		StartTime *time.Time `toml:"start_time"`
		EndTime   *time.Time `toml:"end_time"`
	} `toml:"engine"`
}

func decodeTOML(data []byte, cfg *RunConfig) error {
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return err
	}

	var times tomlTimes
	if _, err := toml.Decode(string(data), &times); err != nil {
		return err
	}

	if times.Engine.StartTime != nil {
		cfg.Engine.StartTime = optional.Some(*times.Engine.StartTime)
	}

	if times.Engine.EndTime != nil {
		cfg.Engine.EndTime = optional.Some(*times.Engine.EndTime)
	}

	return nil
}

// applyEnvOverrides overwrites engine fields whose ARGO_* variable is set and
// non-empty. Unparsable values are errors.
func applyEnvOverrides(cfg *RunConfig) error {
	if v := os.Getenv(EnvInitialCapital); v != "" {
		capital, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError(EnvInitialCapital, v, err)
		}

		cfg.Engine.InitialCapital = capital
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Engine.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv(EnvParallel); v != "" {
		parallel, err := strconv.ParseBool(v)
		if err != nil {
			return envError(EnvParallel, v, err)
		}

		cfg.Engine.Parallel = parallel
	}

	for _, override := range []struct {
		key string
		dst *optional.Option[time.Time]
	}{
		{EnvStartTime, &cfg.Engine.StartTime},
		{EnvEndTime, &cfg.Engine.EndTime},
	} {
		v := os.Getenv(override.key)
		if v == "" {
			continue
		}

		t, err := parseTime(v)
		if err != nil {
			return envError(override.key, v, err)
		}

		*override.dst = optional.Some(t)
	}

	return nil
}

func parseTime(v string) (time.Time, error) {
	var lastErr error

	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, v, time.UTC)
		if err == nil {
			return t, nil
		}

		lastErr = err
	}

	return time.Time{}, lastErr
}

func envError(key, value string, err error) error {
	return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid %s=%q", key, value)
}
