package config

import (
	"fmt"
	"time"
)

// Duration parses YAML values like "500ms" or "30s", which yaml.v2 cannot
// decode into time.Duration directly. Bare integers are nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	var n int64
	if err := unmarshal(&n); err != nil {
		return fmt.Errorf("duration must be a string or integer")
	}
	*d = Duration(n)
	return nil
}

// Std converts back to the standard type.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
