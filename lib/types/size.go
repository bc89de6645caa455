package types

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Size is byte count printed and parsed in human form (10MiB, 1.5GB)
type Size int64

func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

func ParseSize(s string) (Size, error) {
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return Size(v), nil
}

func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	v, err := ParseSize(str)
	if err != nil {
		return fmt.Errorf("invalid size: %v", err)
	}
	*s = v
	return nil
}

func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}
