package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/loopcost/internal/hwconfig"
	"github.com/roach88/loopcost/internal/ir"
)

// Program is a compiled program: its file form and its tree.
type Program struct {
	Spec ir.ProgramSpec
	Tree *ir.Tree
}

// Unit is everything one CUE value declares, in declaration order.
type Unit struct {
	Programs []Program
	Hardware []hwconfig.Config
}

// Compile compiles every program.<name> and hardware.<name> in v. It
// collects all errors rather than stopping at the first; the returned Unit
// holds whatever compiled.
func Compile(v cue.Value) (*Unit, []error) {
	u := &Unit{}
	if err := v.Err(); err != nil {
		return u, []error{formatCUEError(err)}
	}

	var errs []error
	eachField(v, "program", &errs, func(pv cue.Value) error {
		spec, err := CompileProgram(pv)
		if err != nil {
			return err
		}
		tree, err := ir.BuildProgram(spec)
		if err != nil {
			return err
		}
		u.Programs = append(u.Programs, Program{Spec: spec, Tree: tree})
		return nil
	})
	eachField(v, "hardware", &errs, func(hv cue.Value) error {
		c, err := CompileHardware(hv)
		if err != nil {
			return err
		}
		u.Hardware = append(u.Hardware, c)
		return nil
	})
	return u, errs
}

func eachField(v cue.Value, section string, errs *[]error, fn func(cue.Value) error) {
	sv := v.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return
	}
	iter, err := sv.Fields()
	if err != nil {
		*errs = append(*errs, formatCUEError(err))
		return
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			*errs = append(*errs, fmt.Errorf("%s.%s: %w", section, iter.Label(), err))
		}
	}
}
