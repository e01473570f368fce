package dispatch

import (
	"time"

	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Config is the declarative wiring surface: default unit options plus
// trigger definitions binding registered units to cron expressions.
type Config struct {
	Defaults Defaults        `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Triggers []TriggerConfig `json:"triggers,omitempty" yaml:"triggers,omitempty"`
}

// Defaults carries unit options applied when a unit does not set its own.
type Defaults struct {
	Mode    string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Duration is a time.Duration that config files express as a string in
// time.ParseDuration syntax ("5s", "1m30s"). Bare integers are taken as
// nanoseconds, matching time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid duration").
			WithTextCode("INVALID_DURATION")
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, "invalid duration: "+v).
				WithTextCode("INVALID_DURATION")
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	case int64:
		*d = Duration(v)
	case float64:
		*d = Duration(int64(v))
	default:
		return errors.New("invalid duration value", errors.CategoryBadInput).
			WithTextCode("INVALID_DURATION")
	}
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// TriggerConfig binds one registered unit to a cron expression.
type TriggerConfig struct {
	Unit       string `json:"unit" yaml:"unit"`
	Expression string `json:"expression" yaml:"expression"`
}

// ParseConfig attempts to parse JSON or YAML into a Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		// yaml can handle JSON too, so a single attempt is fine
		return cfg, errors.Wrap(err, errors.CategoryBadInput, "invalid config").
			WithTextCode("INVALID_CONFIG")
	}
	return cfg, cfg.Validate()
}

// Validate performs basic structural validation.
func (c Config) Validate() error {
	if c.Defaults.Mode != "" {
		if _, err := ParseMode(c.Defaults.Mode); err != nil {
			return err
		}
	}
	for idx, trigger := range c.Triggers {
		if err := trigger.Validate(); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "invalid trigger").
				WithTextCode("INVALID_TRIGGER").
				WithMetadata(map[string]any{"index": idx})
		}
	}
	return nil
}

// Validate checks required fields for the trigger definition.
func (t TriggerConfig) Validate() error {
	if t.Unit == "" {
		return errors.New("trigger unit is required", errors.CategoryValidation).
			WithTextCode("MISSING_TRIGGER_UNIT")
	}
	if t.Expression == "" {
		return errors.New("trigger expression is required", errors.CategoryValidation).
			WithTextCode("MISSING_TRIGGER_EXPRESSION")
	}
	return nil
}

// DefaultOptions converts parsed defaults into unit options.
func DefaultOptions[T any](d Defaults) ([]Option[T], error) {
	var opts []Option[T]
	if d.Mode != "" {
		mode, err := ParseMode(d.Mode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithMode[T](mode))
	}
	if d.Timeout > 0 {
		opts = append(opts, WithTimeout[T](d.Timeout.Std()))
	}
	return opts, nil
}
