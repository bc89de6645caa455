package types

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is time.Duration readable from yaml as "30s", "2m" etc.
// The plain integer is taken as seconds.
type Duration time.Duration

func (d Duration) String() string {
	if int64(d) == 0 {
		return "-"
	}
	return time.Duration(d).String()
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func ParseDuration(s string) (Duration, error) {
	if s == "" || s == "-" || s == "0" {
		return 0, nil
	}
	var sec int64
	if _, err := fmt.Sscanf(s, "%d", &sec); err == nil && fmt.Sprint(sec) == s {
		return Duration(time.Duration(sec) * time.Second), nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return Duration(v), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	i, err := ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration: %v", err)
	}
	*d = i
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
