package hwconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML (or JSON, which is valid YAML) hardware
// configuration and validates it. Omitted instruction constants and core
// count take their reference values; unknown fields are rejected.
func Parse(data []byte) (Config, error) {
	c := Config{
		CoreCount:   1,
		Instruction: DefaultInstruction(),
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("parse hardware config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and parses a hardware configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read hardware config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Resolve returns the built-in profile called nameOrPath, or loads it as a
// file when no profile has that name.
func Resolve(nameOrPath string) (Config, error) {
	if c, ok := Profile(nameOrPath); ok {
		return c, nil
	}
	return Load(nameOrPath)
}
