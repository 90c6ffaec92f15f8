package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/loopcost/internal/ir"
)

// nodeFields lists the labels a program node may carry.
var nodeFields = []string{
	"op", "name", "args",
	"iters", "stride", "index", "body",
	"cond", "then", "else", "selectivity",
	"vector", "indices", "elem_size", "at", "global",
	"value", "fields", "struct", "field", "cost",
}

// CompileProgram parses a CUE value into a ProgramSpec.
//
// The value is the program struct itself, e.g.
//
//	spec, err := CompileProgram(v.LookupPath(cue.ParsePath("program.scan")))
//
// The program is named by its name field, or else by its label.
func CompileProgram(v cue.Value) (ir.ProgramSpec, error) {
	var p ir.ProgramSpec
	if err := v.Err(); err != nil {
		return p, formatCUEError(err)
	}

	p.Name = labelName(v)
	name, err := optionalString(v, "name")
	if err != nil {
		return p, err
	}
	if name != "" {
		p.Name = name
	}
	if p.Description, err = optionalString(v, "description"); err != nil {
		return p, err
	}

	if p.Vectors, err = parseVectors(v); err != nil {
		return p, err
	}

	rootVal := v.LookupPath(cue.ParsePath("root"))
	if !rootVal.Exists() {
		return p, &CompileError{Field: "root", Message: "root is required", Pos: v.Pos()}
	}
	if p.Root, err = parseNode("root", rootVal); err != nil {
		return p, err
	}
	return p, nil
}

// labelName returns the last label of v's path, unquoted.
func labelName(v cue.Value) string {
	labels := v.Path().Selectors()
	if len(labels) == 0 {
		return ""
	}
	sel := labels[len(labels)-1]
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// CompileTree compiles a CUE program value straight to a validated Tree.
func CompileTree(v cue.Value) (*ir.Tree, error) {
	p, err := CompileProgram(v)
	if err != nil {
		return nil, err
	}
	return ir.BuildProgram(p)
}

func parseVectors(v cue.Value) (map[string]ir.VectorSpec, error) {
	vectors := make(map[string]ir.VectorSpec)
	vecVal := v.LookupPath(cue.ParsePath("vectors"))
	if !vecVal.Exists() {
		return vectors, nil
	}

	iter, err := vecVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		field := "vectors." + name

		lengthVal := iter.Value().LookupPath(cue.ParsePath("length"))
		if !lengthVal.Exists() {
			return nil, &CompileError{Field: field + ".length", Message: "length is required", Pos: iter.Value().Pos()}
		}
		length, err := lengthVal.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		elem, err := optionalFloat(iter.Value(), "elem_size")
		if err != nil {
			return nil, err
		}
		vectors[name] = ir.VectorSpec{Length: length, ElemSize: elem}
	}
	return vectors, nil
}

// parseNode reads one program node. path names the node from the program
// root and prefixes every error raised below it.
func parseNode(path string, v cue.Value) (ir.NodeSpec, error) {
	var n ir.NodeSpec
	if err := v.Err(); err != nil {
		return n, formatCUEError(err)
	}
	if err := checkNodeFields(path, v); err != nil {
		return n, err
	}

	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return n, &CompileError{Field: path + ".op", Message: "op is required", Pos: v.Pos()}
	}
	op, err := opVal.String()
	if err != nil {
		return n, formatCUEError(err)
	}
	n.Op = op

	for _, s := range []struct {
		label string
		dst   *string
	}{
		{"name", &n.Name},
		{"index", &n.Index},
		{"vector", &n.Vector},
	} {
		if *s.dst, err = optionalString(v, s.label); err != nil {
			return n, err
		}
	}

	for _, f := range []struct {
		label string
		dst   *float64
	}{
		{"iters", &n.Iters},
		{"stride", &n.Stride},
		{"elem_size", &n.ElemSize},
		{"cost", &n.Cost},
	} {
		if *f.dst, err = optionalFloat(v, f.label); err != nil {
			return n, err
		}
	}

	if sel := v.LookupPath(cue.ParsePath("selectivity")); sel.Exists() {
		s, err := sel.Float64()
		if err != nil {
			return n, formatCUEError(err)
		}
		n.Selectivity = &s
	}

	if fieldVal := v.LookupPath(cue.ParsePath("field")); fieldVal.Exists() {
		i, err := fieldVal.Int64()
		if err != nil {
			return n, formatCUEError(err)
		}
		n.Field = int(i)
	}

	if g := v.LookupPath(cue.ParsePath("global")); g.Exists() {
		if n.Global, err = g.Bool(); err != nil {
			return n, formatCUEError(err)
		}
	}

	for _, l := range []struct {
		label string
		dst   *[]ir.NodeSpec
	}{
		{"args", &n.Args},
		{"indices", &n.Indices},
		{"fields", &n.Fields},
	} {
		if *l.dst, err = parseNodeList(path, v, l.label); err != nil {
			return n, err
		}
	}

	for _, c := range []struct {
		label string
		dst   **ir.NodeSpec
	}{
		{"body", &n.Body},
		{"cond", &n.Cond},
		{"then", &n.Then},
		{"else", &n.Else},
		{"at", &n.At},
		{"value", &n.Value},
		{"struct", &n.Struct},
	} {
		childVal := v.LookupPath(cue.ParsePath(c.label))
		if !childVal.Exists() {
			continue
		}
		child, err := parseNode(path+"."+c.label, childVal)
		if err != nil {
			return n, err
		}
		*c.dst = &child
	}

	return n, nil
}

func parseNodeList(path string, v cue.Value, label string) ([]ir.NodeSpec, error) {
	listVal := v.LookupPath(cue.ParsePath(label))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var nodes []ir.NodeSpec
	for i := 0; iter.Next(); i++ {
		n, err := parseNode(fmt.Sprintf("%s.%s[%d]", path, label, i), iter.Value())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// checkNodeFields rejects labels no node variant reads, which are almost
// always misspellings.
func checkNodeFields(path string, v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if !slices.Contains(nodeFields, iter.Label()) {
			return &CompileError{
				Field:   path + "." + iter.Label(),
				Message: "unknown node field",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func optionalString(v cue.Value, label string) (string, error) {
	f := v.LookupPath(cue.ParsePath(label))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalFloat(v cue.Value, label string) (float64, error) {
	f := v.LookupPath(cue.ParsePath(label))
	if !f.Exists() {
		return 0, nil
	}
	x, err := f.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return x, nil
}
