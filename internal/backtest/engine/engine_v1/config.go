package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-signal/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// DefaultStakeAmount is the quote amount committed to each simulated position.
const DefaultStakeAmount = 1000.0

type BacktestEngineV1Config struct {
	StakeAmount float64               `yaml:"stake_amount" json:"stake_amount" validate:"gt=0" jsonschema:"title=Stake Amount,description=Quote currency committed to every position,minimum=0"`
	Broker      commission_fee.Broker `yaml:"broker" json:"broker" validate:"omitempty,oneof=interactive_broker zero_commission percentage" jsonschema:"title=Broker,description=The broker to use for commission calculations"`
	// FeeRate only applies to the percentage broker.
	FeeRate float64 `yaml:"fee_rate" json:"fee_rate" validate:"gte=0,lt=1" jsonschema:"title=Fee Rate,description=Fraction of the notional charged per fill by the percentage broker,minimum=0"`
	// Side is the direction every entry signal opens.
	Side types.PositionSide `yaml:"side" json:"side" validate:"omitempty,oneof=LONG SHORT" jsonschema:"title=Side,enum=LONG,enum=SHORT"`
	// Concurrency bounds how many series RunAll simulates at once. Zero means GOMAXPROCS.
	Concurrency int                        `yaml:"concurrency" json:"concurrency" validate:"gte=0" jsonschema:"title=Concurrency,minimum=0"`
	StartTime   optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime     optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
}

// yamlConfig is the YAML form of BacktestEngineV1Config, with optional times as pointers.
type yamlConfig struct {
	StakeAmount *float64              `yaml:"stake_amount"`
	Broker      commission_fee.Broker `yaml:"broker"`
	FeeRate     float64               `yaml:"fee_rate"`
	Side        types.PositionSide    `yaml:"side"`
	Concurrency int                   `yaml:"concurrency"`
	StartTime   *time.Time            `yaml:"start_time,omitempty"`
	EndTime     *time.Time            `yaml:"end_time,omitempty"`
}

// MarshalYAML implements custom marshaling for BacktestEngineV1Config
func (c BacktestEngineV1Config) MarshalYAML() (any, error) {
	stake := c.StakeAmount
	config := yamlConfig{
		StakeAmount: &stake,
		Broker:      c.Broker,
		FeeRate:     c.FeeRate,
		Side:        c.Side,
		Concurrency: c.Concurrency,
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

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	var config yamlConfig
	if err := value.Decode(&config); err != nil {
		return err
	}

	*c = EmptyConfig()

	if config.StakeAmount != nil {
		c.StakeAmount = *config.StakeAmount
	}

	if config.Broker != "" {
		c.Broker = config.Broker
	}

	if config.Side != "" {
		c.Side = config.Side
	}

	c.FeeRate = config.FeeRate
	c.Concurrency = config.Concurrency

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// ParseConfig reads a YAML engine config. Missing keys keep the values of EmptyConfig.
func ParseConfig(data []byte) (BacktestEngineV1Config, error) {
	config := EmptyConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine config", err)
	}

	return config, config.Validate()
}

// Validate checks field ranges and the backtest period.
func (c BacktestEngineV1Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		wrapped := errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine config", err)

		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			wrapped.Field = fieldErrors[0].Namespace()
		}

		return wrapped
	}

	if start, end := c.StartTime, c.EndTime; start.IsSome() && end.IsSome() && !start.Unwrap().Before(end.Unwrap()) {
		return errors.NewConfig(errors.ErrCodeInvalidConfiguration, "end_time", "end time must be after start time")
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

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
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

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		StakeAmount: DefaultStakeAmount,
		Broker:      commission_fee.BrokerZero,
		FeeRate:     0,
		Side:        types.PositionSideLong,
		Concurrency: 0,
		StartTime:   optional.None[time.Time](),
		EndTime:     optional.None[time.Time](),
	}
}
