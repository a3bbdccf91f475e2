package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/aerucodes/emacross/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/aerucodes/emacross/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// BacktestConfig configures a backtest run. Zero values are replaced by the
// defaults of the original strategy (EMA 50/200, 100k cash, 0.1% commission,
// stake of 10 units, AAPL).
type BacktestConfig struct {
	FastPeriod     int                        `yaml:"fast_period" json:"fast_period" validate:"gt=0" jsonschema:"title=Fast EMA Period,minimum=1"`
	SlowPeriod     int                        `yaml:"slow_period" json:"slow_period" validate:"gt=0" jsonschema:"title=Slow EMA Period,minimum=1"`
	InitialCash    float64                    `yaml:"initial_cash" json:"initial_cash" validate:"gt=0" jsonschema:"title=Initial Cash,description=Starting cash for the backtest in USD"`
	CommissionRate float64                    `yaml:"commission_rate" json:"commission_rate" validate:"gte=0,lt=1" jsonschema:"title=Commission Rate,description=Fraction of notional charged per fill"`
	Stake          int64                      `yaml:"stake" json:"stake" validate:"gt=0" jsonschema:"title=Stake,description=Units bought per buy signal"`
	LiveMode       bool                       `yaml:"live_mode" json:"live_mode" jsonschema:"title=Live Mode,description=Route fills to the configured order sink"`
	Symbols        []string                   `yaml:"symbols" json:"symbols" validate:"min=1,dive,required" jsonschema:"title=Symbols"`
	Broker         commission_fee.Broker      `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=The commission model to use"`
	StartTime      optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time"`
	EndTime        optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time"`
}

// DefaultConfig returns the configuration of the original strategy.
func DefaultConfig() BacktestConfig {
	return BacktestConfig{
		FastPeriod:     50,
		SlowPeriod:     200,
		InitialCash:    100000.0,
		CommissionRate: 0.001,
		Stake:          10,
		LiveMode:       false,
		Symbols:        []string{"AAPL"},
		Broker:         commission_fee.BrokerRate,
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
	}
}

// ParseConfig parses YAML content over the defaults and validates the result.
func ParseConfig(content string) (BacktestConfig, error) {
	config := DefaultConfig()

	if strings.TrimSpace(content) != "" {
		if err := yaml.Unmarshal([]byte(content), &config); err != nil {
			return BacktestConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
		}
	}

	if err := config.Validate(); err != nil {
		return BacktestConfig{}, err
	}

	return config, nil
}

// UnmarshalYAML implements custom unmarshaling for BacktestConfig. Absent
// keys keep whatever value the receiver already holds, so unmarshaling over
// DefaultConfig fills the gaps.
func (c *BacktestConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type rawConfig struct {
		FastPeriod     *int                   `yaml:"fast_period"`
		SlowPeriod     *int                   `yaml:"slow_period"`
		InitialCash    *float64               `yaml:"initial_cash"`
		CommissionRate *float64               `yaml:"commission_rate"`
		Stake          *int64                 `yaml:"stake"`
		LiveMode       *bool                  `yaml:"live_mode"`
		Symbols        []string               `yaml:"symbols"`
		Broker         *commission_fee.Broker `yaml:"broker"`
		StartTime      *time.Time             `yaml:"start_time"`
		EndTime        *time.Time             `yaml:"end_time"`
	}

	var raw rawConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if raw.FastPeriod != nil {
		c.FastPeriod = *raw.FastPeriod
	}

	if raw.SlowPeriod != nil {
		c.SlowPeriod = *raw.SlowPeriod
	}

	if raw.InitialCash != nil {
		c.InitialCash = *raw.InitialCash
	}

	if raw.CommissionRate != nil {
		c.CommissionRate = *raw.CommissionRate
	}

	if raw.Stake != nil {
		c.Stake = *raw.Stake
	}

	if raw.LiveMode != nil {
		c.LiveMode = *raw.LiveMode
	}

	if len(raw.Symbols) > 0 {
		c.Symbols = raw.Symbols
	}

	if raw.Broker != nil {
		c.Broker = *raw.Broker
	}

	if raw.StartTime != nil {
		c.StartTime = optional.Some(*raw.StartTime)
	}

	if raw.EndTime != nil {
		c.EndTime = optional.Some(*raw.EndTime)
	}

	return nil
}

// MarshalYAML renders the config with the optional time window as plain
// timestamps, omitted when unset.
func (c BacktestConfig) MarshalYAML() (interface{}, error) {
	document := map[string]interface{}{
		"fast_period":     c.FastPeriod,
		"slow_period":     c.SlowPeriod,
		"initial_cash":    c.InitialCash,
		"commission_rate": c.CommissionRate,
		"stake":           c.Stake,
		"live_mode":       c.LiveMode,
		"symbols":         c.Symbols,
		"broker":          c.Broker,
	}

	if start, err := c.StartTime.Take(); err == nil {
		document["start_time"] = start
	}

	if end, err := c.EndTime.Take(); err == nil {
		document["end_time"] = end
	}

	return document, nil
}

// Validate checks the parameter ranges. A slow period that does not exceed
// the fast period is degenerate but deliberately not an error; callers should
// warn via IsDegenerate.
func (c *BacktestConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	return nil
}

// IsDegenerate reports whether the period combination makes crossover
// detection meaningless.
func (c *BacktestConfig) IsDegenerate() bool {
	return c.SlowPeriod <= c.FastPeriod
}

// GenerateSchema generates a JSON schema for the BacktestConfig.
func (c *BacktestConfig) GenerateSchema() (*jsonschema.Schema, error) {
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
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for the EMA crossover backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestConfig.
func (c *BacktestConfig) GenerateSchemaJSON() (string, error) {
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
