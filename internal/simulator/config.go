package simulator

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"

	"github.com/pattern-lab/formation-trading/internal/costs"
	"github.com/pattern-lab/formation-trading/internal/risk"
	"github.com/pattern-lab/formation-trading/internal/version"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// Config drives one walk-forward run.
type Config struct {
	SchemaVersion  string          `yaml:"schema_version" json:"schema_version" jsonschema:"title=Schema Version,description=Config schema version; major and minor must match the engine"`
	InitialCapital float64         `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash for the run,minimum=0" validate:"gt=0"`
	Watchlist      []string        `yaml:"watchlist" json:"watchlist" jsonschema:"title=Watchlist,description=Instruments evaluated for entries each day" validate:"min=1,dive,required"`
	CostModel      costs.ModelName `yaml:"cost_model" json:"cost_model" jsonschema:"title=Cost Model,description=Transaction cost and slippage model"`
	// WindowSize is the trailing detection window in bars.
	WindowSize int `yaml:"window_size" json:"window_size" jsonschema:"title=Window Size,description=Trailing detection window in bars,minimum=30" validate:"gte=30,lte=500"`
	// SignalCheckInterval bounds how often the decision source is asked
	// about exits on held positions, in trading days.
	SignalCheckInterval int `yaml:"signal_check_interval" json:"signal_check_interval" jsonschema:"title=Signal Check Interval,description=Days between external exit-signal checks,minimum=1" validate:"gte=1"`
	// ValidationStride is the bar step of the historical rescan.
	ValidationStride int `yaml:"validation_stride" json:"validation_stride" jsonschema:"title=Validation Stride,description=Bar step between rescanned candidate windows,minimum=1" validate:"gte=1"`
	// MinOccurrences is the validator's sample-size gate.
	MinOccurrences int `yaml:"min_occurrences" json:"min_occurrences" jsonschema:"title=Minimum Occurrences,description=Minimum prior occurrences before a hit rate counts as evidence,minimum=1" validate:"gte=1"`
	// Workers caps the per-day instrument evaluation parallelism.
	Workers int `yaml:"workers" json:"workers" jsonschema:"title=Workers,description=Parallel instrument evaluations per day,minimum=1" validate:"gte=1"`

	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional first simulated day"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional last simulated day"`

	Risk risk.Config `yaml:"risk" json:"risk" jsonschema:"title=Risk Limits,description=Portfolio-level risk limits"`
}

// UnmarshalYAML implements custom unmarshaling for Config.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		SchemaVersion       string          `yaml:"schema_version"`
		InitialCapital      float64         `yaml:"initial_capital"`
		Watchlist           []string        `yaml:"watchlist"`
		CostModel           costs.ModelName `yaml:"cost_model"`
		WindowSize          int             `yaml:"window_size"`
		SignalCheckInterval int             `yaml:"signal_check_interval"`
		ValidationStride    int             `yaml:"validation_stride"`
		MinOccurrences      int             `yaml:"min_occurrences"`
		Workers             int             `yaml:"workers"`
		StartTime           *time.Time      `yaml:"start_time"`
		EndTime             *time.Time      `yaml:"end_time"`
		Risk                risk.Config     `yaml:"risk"`
	}

	var config plain
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.SchemaVersion = config.SchemaVersion
	c.InitialCapital = config.InitialCapital
	c.Watchlist = config.Watchlist
	c.CostModel = config.CostModel
	c.WindowSize = config.WindowSize
	c.SignalCheckInterval = config.SignalCheckInterval
	c.ValidationStride = config.ValidationStride
	c.MinOccurrences = config.MinOccurrences
	c.Workers = config.Workers
	c.Risk = config.Risk

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the config's values and its schema version against
// the running engine.
func (c *Config) Validate() error {
	if c.SchemaVersion != "" {
		if err := version.CheckSchemaCompatibility(version.GetVersion(), c.SchemaVersion); err != nil {
			return errors.Wrap(errors.ErrCodeSchemaVersion, "config schema version rejected", err)
		}
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeSimulatorConfig, "invalid simulator config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeSimulatorConfig, "end_time precedes start_time")
	}

	return nil
}

// GenerateSchema generates a JSON schema for Config.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "costs.ModelName") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: costs.AllModels,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "walk-forward-simulator-config"
	schema.Description = "Configuration schema for the walk-forward simulator"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates an indented JSON schema string for
// Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// EmptyConfig returns a Config with zero values and no period bounds.
func EmptyConfig() Config {
	return Config{
		CostModel: costs.ModelZero,
		StartTime: optional.None[time.Time](),
		EndTime:   optional.None[time.Time](),
	}
}

// DefaultConfig returns a runnable config for the given watchlist.
func DefaultConfig(watchlist []string) Config {
	return Config{
		SchemaVersion:       version.GetVersion(),
		InitialCapital:      100000,
		Watchlist:           watchlist,
		CostModel:           costs.ModelEquity,
		WindowSize:          120,
		SignalCheckInterval: 5,
		ValidationStride:    5,
		MinOccurrences:      10,
		Workers:             4,
		StartTime:           optional.None[time.Time](),
		EndTime:             optional.None[time.Time](),
		Risk:                risk.DefaultConfig(),
	}
}

// TestConfig returns a config bounded to the given period, priced with
// the zero cost model for exact arithmetic in tests.
func TestConfig(watchlist []string, start, end time.Time) Config {
	config := DefaultConfig(watchlist)
	config.CostModel = costs.ModelZero
	config.Workers = 1
	config.StartTime = optional.Some(start)
	config.EndTime = optional.Some(end)

	return config
}
