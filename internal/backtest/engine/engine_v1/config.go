package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultInitialCapital is the cash every strategy portfolio starts with unless configured.
const DefaultInitialCapital = 1_000_000.0

type BacktestEngineV1Config struct {
	InitialCapital float64                    `yaml:"initial_capital" json:"initial_capital" toml:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Starting cash of every strategy portfolio,minimum=0,default=1000000"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" toml:"-" jsonschema:"title=Start Time,description=Optional inclusive start time for the backtest period"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" toml:"-" jsonschema:"title=End Time,description=Optional inclusive end time for the backtest period"`
	Parallel       bool                       `yaml:"parallel" json:"parallel" toml:"parallel" jsonschema:"title=Parallel,description=Run strategy passes concurrently. Results are identical to a sequential run"`
	LogLevel       string                     `yaml:"log_level" json:"log_level" toml:"log_level" validate:"omitempty,oneof=debug info warn warning error" jsonschema:"title=Log Level,description=Minimum level of the engine logger,enum=debug,enum=info,enum=warn,enum=error"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config.
// Missing fields keep their defaults.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type Config struct {
		InitialCapital *float64   `yaml:"initial_capital"`
		StartTime      *time.Time `yaml:"start_time"`
		EndTime        *time.Time `yaml:"end_time"`
		Parallel       bool       `yaml:"parallel"`
		LogLevel       string     `yaml:"log_level"`
	}

	var config Config
	if err := value.Decode(&config); err != nil {
		return err
	}

	*c = EmptyConfig()

	if config.InitialCapital != nil {
		c.InitialCapital = *config.InitialCapital
	}

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	c.Parallel = config.Parallel

	if config.LogLevel != "" {
		c.LogLevel = config.LogLevel
	}

	return nil
}

// MarshalYAML writes the time range only when it is set.
func (c BacktestEngineV1Config) MarshalYAML() (any, error) {
	type Config struct {
		InitialCapital float64    `yaml:"initial_capital"`
		StartTime      *time.Time `yaml:"start_time,omitempty"`
		EndTime        *time.Time `yaml:"end_time,omitempty"`
		Parallel       bool       `yaml:"parallel"`
		LogLevel       string     `yaml:"log_level,omitempty"`
	}

	config := Config{
		InitialCapital: c.InitialCapital,
		Parallel:       c.Parallel,
		LogLevel:       c.LogLevel,
	}

	if c.StartTime.IsSome() {
		start := c.StartTime.Unwrap()
		config.StartTime = &start
	}

	if c.EndTime.IsSome() {
		end := c.EndTime.Unwrap()
		config.EndTime = &end
	}

	return config, nil
}

// Validate checks field constraints and that the time range is not inverted.
func (c BacktestEngineV1Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid engine config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeBacktestConfigError, "end_time %s is before start_time %s",
			c.EndTime.Unwrap().Format(time.RFC3339), c.StartTime.Unwrap().Format(time.RFC3339))
	}

	return nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(optional.Option[time.Time]{}) {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	// Generate schema from BacktestEngineV1Config struct
	schema := reflector.Reflect(c)

	// Set schema metadata
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func TestConfig(startTime time.Time, endTime time.Time) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: 10000,
		StartTime:      optional.Some(startTime),
		EndTime:        optional.Some(endTime),
		Parallel:       false,
		LogLevel:       "info",
	}
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: DefaultInitialCapital,
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
		Parallel:       false,
		LogLevel:       "info",
	}
}
