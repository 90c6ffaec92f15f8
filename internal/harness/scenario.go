package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loopcost/internal/hwconfig"
	"github.com/roach88/loopcost/internal/ir"
)

// DefaultHardware is the profile used when a scenario names none.
const DefaultHardware = "reference"

// Scenario defines a cost scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Hardware is a built-in profile name or a path to a hardware file.
	// Relative paths are resolved against the scenario file.
	Hardware string `yaml:"hardware,omitempty"`

	// HardwareConfig is an inline hardware configuration. It may not be
	// combined with Hardware.
	HardwareConfig *hwconfig.Config `yaml:"hardware_config,omitempty"`

	// Include lists program files (.cue, .yaml, .json) to load. Paths are
	// relative to the scenario file.
	Include []string `yaml:"include,omitempty"`

	// Programs are inline program definitions.
	Programs []ir.ProgramSpec `yaml:"programs,omitempty"`

	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory of the scenario file.
	dir string
}

// Assertion checks the costs of one or more programs.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Program is the subject (cost_less, cost_between, lookup_*, finite).
	// finite without a program checks every program.
	Program string `yaml:"program,omitempty"`

	// Than is the program Program must undercut (cost_less).
	Than string `yaml:"than,omitempty"`

	// Programs must all cost the same (cost_equal).
	Programs []string `yaml:"programs,omitempty"`

	// Tolerance is the relative tolerance of cost_equal.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Min and Max bound the total (cost_between). Either may be omitted.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// Vector selects lookups (lookup_sequential, lookup_level).
	Vector     string `yaml:"vector,omitempty"`
	Sequential *bool  `yaml:"sequential,omitempty"`
	Level      string `yaml:"level,omitempty"`
}

// Assertion type constants.
const (
	AssertCostLess         = "cost_less"
	AssertCostEqual        = "cost_equal"
	AssertCostBetween      = "cost_between"
	AssertLookupSequential = "lookup_sequential"
	AssertLookupLevel      = "lookup_level"
	AssertFinite           = "finite"
)

// DefaultTolerance is the relative tolerance of cost_equal when none is
// given.
const DefaultTolerance = 1e-9

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)

	for _, inc := range s.Include {
		if _, err := os.Stat(s.resolve(inc)); err != nil {
			return nil, fmt.Errorf("%s: invalid scenario: include not found: %s", path, inc)
		}
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario. Relative paths in the
// result resolve against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func (s *Scenario) resolve(path string) string {
	if filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}

// ResolveHardware returns the scenario's hardware configuration.
func (s *Scenario) ResolveHardware() (hwconfig.Config, error) {
	if s.HardwareConfig != nil {
		c := s.HardwareConfig.Clone()
		if c.CoreCount == 0 {
			c.CoreCount = 1
		}
		if c.Instruction == (hwconfig.Instruction{}) {
			c.Instruction = hwconfig.DefaultInstruction()
		}
		if err := c.Validate(); err != nil {
			return hwconfig.Config{}, fmt.Errorf("hardware_config: %w", err)
		}
		return c, nil
	}

	name := s.Hardware
	if name == "" {
		name = DefaultHardware
	}
	if c, ok := hwconfig.Profile(name); ok {
		return c, nil
	}
	return hwconfig.Load(s.resolve(name))
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Hardware != "" && s.HardwareConfig != nil {
		return fmt.Errorf("hardware and hardware_config are mutually exclusive")
	}

	if len(s.Programs) == 0 && len(s.Include) == 0 {
		return fmt.Errorf("programs or include is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Programs))
	for i, p := range s.Programs {
		if p.Name == "" {
			return fmt.Errorf("programs[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("programs[%d]: duplicate program %q", i, p.Name)
		}
		seen[p.Name] = true
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCostLess:
		if a.Program == "" || a.Than == "" {
			return fmt.Errorf("assertions[%d]: program and than are required for cost_less", index)
		}
	case AssertCostEqual:
		if len(a.Programs) < 2 {
			return fmt.Errorf("assertions[%d]: at least two programs are required for cost_equal", index)
		}
		if a.Tolerance < 0 {
			return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
		}
	case AssertCostBetween:
		if a.Program == "" {
			return fmt.Errorf("assertions[%d]: program is required for cost_between", index)
		}
		if a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: min or max is required for cost_between", index)
		}
		if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
			return fmt.Errorf("assertions[%d]: min exceeds max", index)
		}
	case AssertLookupSequential:
		if a.Program == "" || a.Vector == "" || a.Sequential == nil {
			return fmt.Errorf("assertions[%d]: program, vector and sequential are required for lookup_sequential", index)
		}
	case AssertLookupLevel:
		if a.Program == "" || a.Vector == "" || a.Level == "" {
			return fmt.Errorf("assertions[%d]: program, vector and level are required for lookup_level", index)
		}
	case AssertFinite:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
