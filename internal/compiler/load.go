package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/loopcost/internal/ir"
)

// LoadFile compiles one file. A .cue file may declare any number of
// programs and hardware configurations; a .yaml, .yml or .json file holds
// a single program, named after the file when it carries no name.
func LoadFile(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		u, errs := Compile(v)
		if len(errs) > 0 {
			return nil, fmt.Errorf("%s: %w", path, errs[0])
		}
		return u, nil
	case ".yaml", ".yml", ".json":
		spec, err := ParseProgram(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if spec.Name == "" {
			spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		tree, err := ir.BuildProgram(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &Unit{Programs: []Program{{Spec: spec, Tree: tree}}}, nil
	default:
		return nil, fmt.Errorf("%s: unsupported file type %q", path, filepath.Ext(path))
	}
}

// ParseProgram decodes a YAML (or JSON) program file. Unknown fields are
// rejected.
func ParseProgram(data []byte) (ir.ProgramSpec, error) {
	var spec ir.ProgramSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return ir.ProgramSpec{}, fmt.Errorf("parse program: %w", err)
	}
	return spec, nil
}

// Merge appends the programs and hardware of other to u.
func (u *Unit) Merge(other *Unit) {
	u.Programs = append(u.Programs, other.Programs...)
	u.Hardware = append(u.Hardware, other.Hardware...)
}

// Program returns the program called name.
func (u *Unit) Program(name string) (Program, bool) {
	for _, p := range u.Programs {
		if p.Spec.Name == name {
			return p, true
		}
	}
	return Program{}, false
}
