package ir

import (
	"fmt"
	"sort"
)

// ProgramSpec is the file form of a program, shared by YAML, JSON and CUE.
type ProgramSpec struct {
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Vectors     map[string]VectorSpec `json:"vectors" yaml:"vectors"`
	Root        NodeSpec              `json:"root" yaml:"root"`
}

// VectorSpec declares a named array.
type VectorSpec struct {
	Length   float64 `json:"length" yaml:"length"`
	ElemSize float64 `json:"elem_size,omitempty" yaml:"elem_size,omitempty"`
}

// NodeSpec is one node of a program file. Op selects the variant; only the
// fields that variant uses are read.
type NodeSpec struct {
	Op string `json:"op" yaml:"op"`

	// id, let
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// binary operators
	Args []NodeSpec `json:"args,omitempty" yaml:"args,omitempty"`

	// for
	Iters  float64   `json:"iters,omitempty" yaml:"iters,omitempty"`
	Stride float64   `json:"stride,omitempty" yaml:"stride,omitempty"`
	Index  string    `json:"index,omitempty" yaml:"index,omitempty"`
	Body   *NodeSpec `json:"body,omitempty" yaml:"body,omitempty"`

	// if
	Cond        *NodeSpec `json:"cond,omitempty" yaml:"cond,omitempty"`
	Then        *NodeSpec `json:"then,omitempty" yaml:"then,omitempty"`
	Else        *NodeSpec `json:"else,omitempty" yaml:"else,omitempty"`
	Selectivity *float64  `json:"selectivity,omitempty" yaml:"selectivity,omitempty"`

	// lookup, merge
	Vector   string     `json:"vector,omitempty" yaml:"vector,omitempty"`
	Indices  []NodeSpec `json:"indices,omitempty" yaml:"indices,omitempty"`
	ElemSize float64    `json:"elem_size,omitempty" yaml:"elem_size,omitempty"`
	At       *NodeSpec  `json:"at,omitempty" yaml:"at,omitempty"`
	Global   bool       `json:"global,omitempty" yaml:"global,omitempty"`

	// let, merge
	Value *NodeSpec `json:"value,omitempty" yaml:"value,omitempty"`

	// struct, getfield
	Fields []NodeSpec `json:"fields,omitempty" yaml:"fields,omitempty"`
	Struct *NodeSpec  `json:"struct,omitempty" yaml:"struct,omitempty"`
	Field  int        `json:"field,omitempty" yaml:"field,omitempty"`

	// fixed
	Cost float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
}

// DefaultSelectivity applies to an if node whose file form omits it.
const DefaultSelectivity = 0.5

// SpecError reports a malformed program file node by its path from the root,
// e.g. "root.body.args[1]".
type SpecError struct {
	Path    string
	Message string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

type programDecoder struct {
	b       *Builder
	vectors map[string]NodeID
	elems   map[string]float64
}

// BuildProgram decodes a ProgramSpec into a validated Tree. Vectors are
// allocated first, in name order, so the same file always yields the same
// arena.
func BuildProgram(p ProgramSpec) (*Tree, error) {
	d := &programDecoder{
		b:       NewBuilder(),
		vectors: make(map[string]NodeID, len(p.Vectors)),
		elems:   make(map[string]float64, len(p.Vectors)),
	}

	names := make([]string, 0, len(p.Vectors))
	for name := range p.Vectors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := p.Vectors[name]
		id := d.b.Vector(name, v.Length, v.ElemSize)
		d.vectors[name] = id
		d.elems[name] = d.b.nodes[id].(Vector).ElemSize
	}

	root, err := d.decode("root", &p.Root)
	if err != nil {
		return nil, err
	}
	tree, err := d.b.Build(root)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", p.Name, err)
	}
	return tree, nil
}

func (d *programDecoder) decode(path string, n *NodeSpec) (NodeID, error) {
	if n == nil {
		return NoNode, &SpecError{Path: path, Message: "node is required"}
	}
	child := func(field string, c *NodeSpec) (NodeID, error) {
		return d.decode(path+"."+field, c)
	}
	list := func(field string, cs []NodeSpec) ([]NodeID, error) {
		ids := make([]NodeID, len(cs))
		for i := range cs {
			id, err := d.decode(fmt.Sprintf("%s.%s[%d]", path, field, i), &cs[i])
			if err != nil {
				return nil, err
			}
			ids[i] = id
		}
		return ids, nil
	}
	vector := func() (NodeID, error) {
		id, ok := d.vectors[n.Vector]
		if !ok {
			return NoNode, &SpecError{Path: path, Message: fmt.Sprintf("undeclared vector %q", n.Vector)}
		}
		return id, nil
	}

	if op, ok := ParseBinaryOp(n.Op); ok {
		if len(n.Args) != 2 {
			return NoNode, &SpecError{Path: path, Message: fmt.Sprintf("%s takes 2 args, got %d", n.Op, len(n.Args))}
		}
		args, err := list("args", n.Args)
		if err != nil {
			return NoNode, err
		}
		return d.b.Binary(op, args[0], args[1]), nil
	}

	switch n.Op {
	case "lit":
		return d.b.Literal(), nil
	case "id":
		return d.b.Ident(n.Name), nil
	case "for":
		body, err := child("body", n.Body)
		if err != nil {
			return NoNode, err
		}
		stride := n.Stride
		if stride == 0 {
			stride = 1
		}
		return d.b.For(n.Iters, n.Index, stride, body), nil
	case "if":
		cond, err := child("cond", n.Cond)
		if err != nil {
			return NoNode, err
		}
		then, err := child("then", n.Then)
		if err != nil {
			return NoNode, err
		}
		els, err := child("else", n.Else)
		if err != nil {
			return NoNode, err
		}
		s := DefaultSelectivity
		if n.Selectivity != nil {
			s = *n.Selectivity
		}
		return d.b.If(cond, then, els, s), nil
	case "lookup":
		vec, err := vector()
		if err != nil {
			return NoNode, err
		}
		indices, err := list("indices", n.Indices)
		if err != nil {
			return NoNode, err
		}
		return d.b.Lookup(vec, indices...), nil
	case "let":
		value, err := child("value", n.Value)
		if err != nil {
			return NoNode, err
		}
		body, err := child("body", n.Body)
		if err != nil {
			return NoNode, err
		}
		return d.b.Let(n.Name, value, body), nil
	case "struct":
		fields, err := list("fields", n.Fields)
		if err != nil {
			return NoNode, err
		}
		return d.b.Struct(fields...), nil
	case "getfield":
		s, err := child("struct", n.Struct)
		if err != nil {
			return NoNode, err
		}
		return d.b.GetField(s, n.Field), nil
	case "merge":
		vec, err := vector()
		if err != nil {
			return NoNode, err
		}
		at, err := child("at", n.At)
		if err != nil {
			return NoNode, err
		}
		value, err := child("value", n.Value)
		if err != nil {
			return NoNode, err
		}
		elem := n.ElemSize
		if elem == 0 {
			elem = d.elems[n.Vector]
		}
		return d.b.Merge(vec, at, value, elem, n.Global), nil
	case "fixed":
		return d.b.Fixed(n.Cost), nil
	case "":
		return NoNode, &SpecError{Path: path, Message: "op is required"}
	default:
		return NoNode, &SpecError{Path: path, Message: fmt.Sprintf("unknown op %q", n.Op)}
	}
}

// Encode re-emits a Tree in file form. BuildProgram(Encode(t)) yields a tree
// with the same TreeHash as t.
func Encode(name string, t *Tree) (ProgramSpec, error) {
	p := ProgramSpec{Name: name, Vectors: make(map[string]VectorSpec)}
	if t.Node(t.root) == nil {
		return p, fmt.Errorf("Encode: root %d is not in the arena", t.root)
	}

	var err error
	t.Walk(func(id NodeID, e Expr) bool {
		var vecID NodeID
		switch n := e.(type) {
		case Lookup:
			vecID = n.Vector
		case Merge:
			vecID = n.Accumulator
		default:
			return true
		}
		v, ok := t.Node(vecID).(Vector)
		if !ok {
			return true
		}
		if prev, seen := p.Vectors[v.Name]; seen && (prev.Length != v.Length || prev.ElemSize != v.ElemSize) {
			err = fmt.Errorf("Encode: vector %q declared with conflicting shapes", v.Name)
			return false
		}
		p.Vectors[v.Name] = VectorSpec{Length: v.Length, ElemSize: v.ElemSize}
		return true
	})
	if err != nil {
		return p, err
	}

	p.Root = encodeNode(t, t.root)
	return p, nil
}

func encodeNode(t *Tree, id NodeID) NodeSpec {
	ptr := func(c NodeID) *NodeSpec {
		n := encodeNode(t, c)
		return &n
	}
	list := func(ids []NodeID) []NodeSpec {
		out := make([]NodeSpec, len(ids))
		for i, c := range ids {
			out[i] = encodeNode(t, c)
		}
		return out
	}
	vectorName := func(v NodeID) string {
		if vec, ok := t.Node(v).(Vector); ok {
			return vec.Name
		}
		return ""
	}

	e := t.Node(id)
	spec := NodeSpec{Op: KindName(e)}
	switch n := e.(type) {
	case Ident:
		spec.Name = n.Name
	case Binary:
		spec.Args = list([]NodeID{n.Left, n.Right})
	case For:
		spec.Iters = n.Iters
		spec.Stride = n.Stride
		spec.Index = t.IdentName(n.Index)
		spec.Body = ptr(n.Body)
	case If:
		s := n.Selectivity
		spec.Cond = ptr(n.Cond)
		spec.Then = ptr(n.Then)
		spec.Else = ptr(n.Else)
		spec.Selectivity = &s
	case Lookup:
		spec.Vector = vectorName(n.Vector)
		spec.Indices = list(n.Indices)
	case Let:
		spec.Name = n.Name
		spec.Value = ptr(n.Value)
		spec.Body = ptr(n.Body)
	case StructLit:
		spec.Fields = list(n.Fields)
	case GetField:
		spec.Struct = ptr(n.Struct)
		spec.Field = n.Field
	case Merge:
		spec.Vector = vectorName(n.Accumulator)
		spec.At = ptr(n.Index)
		spec.Value = ptr(n.Value)
		spec.ElemSize = n.ElemSize
		spec.Global = n.Global
	case Fixed:
		spec.Cost = n.Cost
	}
	return spec
}
