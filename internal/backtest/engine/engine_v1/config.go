package engine

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/signal-backtest/pkg/errors"
)

type BacktestEngineV1Config struct {
	// StartingCapital is the capital the equity curve starts from, in USD.
	StartingCapital float64 `yaml:"starting_capital" json:"starting_capital" jsonschema:"title=Starting Capital,description=Starting capital for the backtest in USD,minimum=0" validate:"gt=0"`
	// FeeRate is the fee fraction charged on entry plus exit price (0.001 = 0.1%).
	FeeRate float64 `yaml:"fee_rate" json:"fee_rate" jsonschema:"title=Fee Rate,description=Fee fraction applied to entry plus exit price,minimum=0" validate:"gte=0"`
	// SlippageRate is the price penalty fraction applied at entry and exit.
	SlippageRate float64 `yaml:"slippage_rate" json:"slippage_rate" jsonschema:"title=Slippage Rate,description=Price penalty fraction applied at entry and exit,minimum=0" validate:"gte=0"`
	// StartTime and EndTime optionally restrict which signals are replayed.
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the replay window"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the replay window"`
	// KeepSkippedRecords includes the raw skipped signal records in the
	// result instead of only their count.
	KeepSkippedRecords bool `yaml:"keep_skipped_records" json:"keep_skipped_records" jsonschema:"title=Keep Skipped Records,description=Include raw skipped signal records in the result"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		StartingCapital    float64    `yaml:"starting_capital"`
		FeeRate            float64    `yaml:"fee_rate"`
		SlippageRate       float64    `yaml:"slippage_rate"`
		StartTime          *time.Time `yaml:"start_time"`
		EndTime            *time.Time `yaml:"end_time"`
		KeepSkippedRecords bool       `yaml:"keep_skipped_records"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.StartingCapital = config.StartingCapital
	c.FeeRate = config.FeeRate
	c.SlippageRate = config.SlippageRate
	c.KeepSkippedRecords = config.KeepSkippedRecords

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the configuration against its struct tags.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine configuration", err)
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
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// EmptyConfig returns a zero-valued configuration.
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		StartingCapital:    0,
		FeeRate:            0,
		SlippageRate:       0,
		StartTime:          optional.None[time.Time](),
		EndTime:            optional.None[time.Time](),
		KeepSkippedRecords: false,
	}
}

// TestConfig returns a configuration suitable for tests.
func TestConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		StartingCapital:    10000,
		FeeRate:            0,
		SlippageRate:       0,
		StartTime:          optional.None[time.Time](),
		EndTime:            optional.None[time.Time](),
		KeepSkippedRecords: true,
	}
}
