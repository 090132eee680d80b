// Package tree turns a flat set of path-labelled blobs into a Merkle tree of
// directory objects.
package tree

import (
	"fmt"
	"iter"
	"path"
	"slices"
	"sort"
	"strings"

	gerrors "grit/internal/errors"
	"grit/internal/object"
)

const (
	ModeExecutable = "100755"
	ModeRegular    = "100644"
	ModeDirectory  = "40000"
)

// Node is one named child of a directory: exactly one of Dir or Blob is set.
type Node struct {
	Name string
	Dir  *Tree
	Blob *object.Blob
}

func (n *Node) Mode() string {
	switch {
	case n.Dir != nil:
		return ModeDirectory
	case n.Blob.Executable:
		return ModeExecutable
	default:
		return ModeRegular
	}
}

func (n *Node) ID() object.ID {
	if n.Dir != nil {
		return n.Dir.ID()
	}
	return n.Blob.ID()
}

// Tree is a directory. Its address exists only once every child has been
// finalized, which Build guarantees before returning.
type Tree struct {
	children map[string]*Node
	names    []string

	id      object.ID
	encoded []byte
	sealed  bool
}

func newTree() *Tree {
	return &Tree{children: make(map[string]*Node)}
}

func (t *Tree) ID() object.ID {
	t.mustBeSealed()
	return t.id
}

func (t *Tree) Kind() object.Kind { return object.KindTree }

func (t *Tree) Encoded() []byte {
	t.mustBeSealed()
	return t.encoded
}

func (t *Tree) mustBeSealed() {
	if !t.sealed {
		panic("tree: directory used before it was finalized")
	}
}

// Children returns the directory's entries in encoding order.
func (t *Tree) Children() []*Node {
	nodes := make([]*Node, 0, len(t.names))
	for _, name := range t.names {
		nodes = append(nodes, t.children[name])
	}
	return nodes
}

// Build assembles blobs into a finalized root tree. Input order does not
// affect the result.
func Build(blobs []*object.Blob) (*Tree, error) {
	sorted := slices.Clone(blobs)
	slices.SortFunc(sorted, (*object.Blob).Compare)

	root := newTree()
	for _, b := range sorted {
		if err := root.insert(splitPath(b.Path), b); err != nil {
			return nil, err
		}
	}
	root.seal()
	return root, nil
}

func splitPath(p string) []string {
	return strings.Split(path.Clean(p), "/")
}

func (t *Tree) insert(parts []string, b *object.Blob) error {
	name := parts[0]
	existing, ok := t.children[name]

	if len(parts) == 1 {
		if ok {
			return gerrors.ValidationError(fmt.Sprintf("path %q is already present in the tree", b.Path))
		}
		t.children[name] = &Node{Name: name, Blob: b}
		return nil
	}

	if !ok {
		existing = &Node{Name: name, Dir: newTree()}
		t.children[name] = existing
	}
	if existing.Dir == nil {
		return gerrors.ValidationError(fmt.Sprintf("path %q lies under file %q", b.Path, name))
	}
	return existing.Dir.insert(parts[1:], b)
}

// seal finalizes children first, then this directory.
func (t *Tree) seal() {
	t.names = make([]string, 0, len(t.children))
	for name := range t.children {
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)

	var payload []byte
	for _, name := range t.names {
		node := t.children[name]
		if node.Dir != nil {
			node.Dir.seal()
		}
		id := node.ID()
		payload = append(payload, node.Mode()...)
		payload = append(payload, ' ')
		payload = append(payload, name...)
		payload = append(payload, 0)
		payload = append(payload, id[:]...)
	}

	t.encoded = object.Frame(object.KindTree, payload)
	t.id = object.Sum(t.encoded)
	t.sealed = true
}

// Walk yields every distinct object reachable from t exactly once, each
// child before the directory containing it, and t itself last. Files or
// subdirectories with identical content share an address and are yielded
// only at their first occurrence.
func (t *Tree) Walk() iter.Seq[object.Object] {
	return func(yield func(object.Object) bool) {
		seen := make(map[object.ID]struct{})
		t.walk(seen, yield)
	}
}

func (t *Tree) walk(seen map[object.ID]struct{}, yield func(object.Object) bool) bool {
	for _, node := range t.Children() {
		if node.Dir != nil {
			if !node.Dir.walk(seen, yield) {
				return false
			}
			continue
		}
		if !visit(seen, node.Blob, yield) {
			return false
		}
	}
	return visit(seen, t, yield)
}

func visit(seen map[object.ID]struct{}, obj object.Object, yield func(object.Object) bool) bool {
	if _, ok := seen[obj.ID()]; ok {
		return true
	}
	seen[obj.ID()] = struct{}{}
	return yield(obj)
}

// Objects materializes Walk.
func (t *Tree) Objects() []object.Object {
	return slices.Collect(t.Walk())
}
