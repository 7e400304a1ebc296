// Package strategy loads declarative strategy files and assembles them into the indicator
// pipeline, rule set and risk policy that drive a backtest.
package strategy

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/rxtech-lab/argo-signal/pkg/exit"
	"github.com/rxtech-lab/argo-signal/pkg/rule"
	"github.com/rxtech-lab/argo-signal/pkg/types"
)

// TrailingConfig mirrors exit.TrailingConfig with the key names used in strategy files.
type TrailingConfig struct {
	Enabled             bool    `yaml:"enabled" json:"enabled" jsonschema:"title=Enabled,description=Enable the trailing stop"`
	OnlyOffsetIsReached bool    `yaml:"only_offset_is_reached" json:"only_offset_is_reached" jsonschema:"title=Only offset is reached,description=Arm the trailing stop only once the return reached positive_offset"`
	Positive            float64 `yaml:"positive" json:"positive" jsonschema:"title=Distance,description=Retrace from the best price that closes the position (fraction of entry)" validate:"gte=0"`
	PositiveOffset      float64 `yaml:"positive_offset" json:"positive_offset" jsonschema:"title=Offset,description=Return that arms the trailing stop (fraction of entry)" validate:"gte=0"`
}

// Config is the immutable declaration of a strategy as written in its YAML file.
type Config struct {
	Name        string `yaml:"name" json:"name" jsonschema:"title=Name,description=Strategy name,required" validate:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description"`
	// Engine is a semver constraint the running engine must satisfy.
	Engine             string `yaml:"engine,omitempty" json:"engine,omitempty" jsonschema:"title=Engine,description=Semver constraint on the engine version"`
	Timeframe          string `yaml:"timeframe" json:"timeframe" jsonschema:"title=Timeframe,required,enum=1s,enum=1m,enum=3m,enum=5m,enum=15m,enum=30m,enum=1h,enum=2h,enum=4h,enum=6h,enum=8h,enum=12h,enum=1d,enum=3d,enum=1w" validate:"required"`
	StartupCandleCount int    `yaml:"startup_candle_count,omitempty" json:"startup_candle_count,omitempty" jsonschema:"title=Startup candle count,minimum=0" validate:"gte=0"`
	// MinimalROI maps elapsed minutes (or a Go duration such as "1h30m") to the minimum return.
	MinimalROI   map[string]float64      `yaml:"minimal_roi" json:"minimal_roi" jsonschema:"title=Minimal ROI,required" validate:"required,min=1"`
	StopLoss     float64                 `yaml:"stoploss" json:"stoploss" jsonschema:"title=Stop-loss,description=Negative fraction of the entry price,exclusiveMaximum=0,exclusiveMinimum=-1"`
	Trailing     TrailingConfig          `yaml:"trailing,omitempty" json:"trailing,omitempty" jsonschema:"title=Trailing stop"`
	ExitPriority []string                `yaml:"exit_priority,omitempty" json:"exit_priority,omitempty" jsonschema:"title=Exit priority,description=Order in which simultaneous exits win"`
	Indicators   []types.IndicatorConfig `yaml:"indicators" json:"indicators" jsonschema:"title=Indicators" validate:"dive"`
	Entry        rule.Node               `yaml:"entry" json:"entry" jsonschema:"title=Entry,required"`
	Exit         rule.Node               `yaml:"exit,omitempty" json:"exit,omitempty" jsonschema:"title=Exit"`
}

// Parse decodes a strategy file. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse strategy", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads and parses the strategy file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the struct-level constraints of the config. Semantic checks that need
// the indicator registry happen in Build.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		field := ""

		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			field = fieldErrors[0].Namespace()
		}

		wrapped := errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy config", err)
		wrapped.Field = field

		return wrapped
	}

	if c.Entry.IsZero() {
		return errors.NewConfig(errors.ErrCodeInvalidRule, "entry", "strategy must declare an entry condition")
	}

	return nil
}

// RiskConfig converts the ROI ladder, stop-loss, trailing and priority keys into an exit.Config.
func (c *Config) RiskConfig() (exit.Config, error) {
	keys := make([]string, 0, len(c.MinimalROI))
	for key := range c.MinimalROI {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	steps := make([]exit.ROIStep, 0, len(keys))

	for _, key := range keys {
		after, err := parseROIKey(key)
		if err != nil {
			return exit.Config{}, err
		}

		steps = append(steps, exit.ROIStep{After: after, ROI: c.MinimalROI[key]})
	}

	priority := make([]types.ExitReason, 0, len(c.ExitPriority))
	for _, reason := range c.ExitPriority {
		priority = append(priority, types.ExitReason(strings.ToUpper(strings.TrimSpace(reason))))
	}

	return exit.Config{
		ROI:      steps,
		StopLoss: c.StopLoss,
		Trailing: exit.TrailingConfig{
			Enabled:             c.Trailing.Enabled,
			OnlyOffsetIsReached: c.Trailing.OnlyOffsetIsReached,
			Offset:              c.Trailing.PositiveOffset,
			Distance:            c.Trailing.Positive,
		},
		Priority: priority,
	}, nil
}

// parseROIKey reads a ladder key: whole minutes ("20") or a Go duration ("1h30m").
func parseROIKey(key string) (time.Duration, error) {
	key = strings.TrimSpace(key)

	if minutes, err := strconv.Atoi(key); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}

	d, err := time.ParseDuration(key)
	if err != nil {
		return 0, errors.NewConfig(errors.ErrCodeInvalidROILadder, "minimal_roi."+key,
			fmt.Sprintf("ROI key %q is neither minutes nor a duration", key))
	}

	return d, nil
}
