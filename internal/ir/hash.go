package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTree     = "loopcost/tree/v1"
	DomainTreeNode = "loopcost/tree-node/v1"
	DomainHardware = "loopcost/hardware/v1"
	DomainRun      = "loopcost/run/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashCanonical hashes the canonical JSON form of v under domain.
func HashCanonical(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("HashCanonical: failed to marshal: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// TreeHash computes the structural identity of a tree. Two trees that
// describe the same expression hash identically regardless of the order in
// which their nodes were allocated.
func TreeHash(t *Tree) (string, error) {
	if t.Node(t.root) == nil {
		return "", fmt.Errorf("TreeHash: root %d is not in the arena", t.root)
	}
	h := &treeHasher{tree: t, digests: make(map[NodeID]string)}
	root, err := h.digest(t.root)
	if err != nil {
		return "", fmt.Errorf("TreeHash: %w", err)
	}
	return HashCanonical(DomainTree, map[string]any{
		"ir_version": IRVersion,
		"root":       root,
	})
}

// MustTreeHash is like TreeHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTreeHash(t *Tree) string {
	h, err := TreeHash(t)
	if err != nil {
		panic(err)
	}
	return h
}

// treeHasher digests each node once, however many parents share it.
type treeHasher struct {
	tree    *Tree
	digests map[NodeID]string
}

// digest hashes a node's canonical form, in which every child appears as
// its own digest.
func (h *treeHasher) digest(id NodeID) (string, error) {
	if d, ok := h.digests[id]; ok {
		return d, nil
	}
	obj, err := h.canonicalNode(id)
	if err != nil {
		return "", err
	}
	d, err := HashCanonical(DomainTreeNode, obj)
	if err != nil {
		return "", err
	}
	h.digests[id] = d
	return d, nil
}

// canonicalNode renders one node as plain JSON values. Node IDs never
// appear in the output.
func (h *treeHasher) canonicalNode(id NodeID) (map[string]any, error) {
	t := h.tree
	e := t.Node(id)
	obj := map[string]any{"op": KindName(e)}

	var err error
	child := func(c NodeID) string {
		if err != nil {
			return ""
		}
		var d string
		d, err = h.digest(c)
		return d
	}
	nodes := func(ids []NodeID) []any {
		out := make([]any, len(ids))
		for i, c := range ids {
			out[i] = child(c)
		}
		return out
	}

	switch n := e.(type) {
	case Ident:
		obj["name"] = n.Name
	case Binary:
		obj["args"] = nodes([]NodeID{n.Left, n.Right})
	case For:
		obj["iters"] = n.Iters
		obj["stride"] = n.Stride
		obj["index"] = t.IdentName(n.Index)
		obj["body"] = child(n.Body)
	case If:
		obj["cond"] = child(n.Cond)
		obj["then"] = child(n.Then)
		obj["else"] = child(n.Else)
		obj["selectivity"] = n.Selectivity
	case Lookup:
		obj["vector"] = child(n.Vector)
		obj["indices"] = nodes(n.Indices)
		if n.ElemSize > 0 {
			obj["elem_size"] = n.ElemSize
		}
	case Vector:
		obj["name"] = n.Name
		obj["length"] = n.Length
		obj["elem_size"] = n.ElemSize
	case Let:
		obj["name"] = n.Name
		obj["value"] = child(n.Value)
		obj["body"] = child(n.Body)
	case StructLit:
		obj["fields"] = nodes(n.Fields)
	case GetField:
		obj["struct"] = child(n.Struct)
		obj["field"] = n.Field
	case Merge:
		// Access is derived from accumulator and index.
		obj["vector"] = child(n.Accumulator)
		obj["at"] = child(n.Index)
		obj["value"] = child(n.Value)
		obj["elem_size"] = n.ElemSize
		obj["global"] = n.Global
	case Fixed:
		obj["cost"] = n.Cost
	}
	return obj, err
}
