// Package structure implements the structure tree used to edit binary game
// resources in place.
//
// A resource is parsed into a tree of Fields. Leaves know how to decode and
// encode themselves; Nodes own an ordered list of children and, optionally,
// count/offset directories describing runs of removable elements. Inserting or
// removing an element keeps every absolute offset, node size and directory
// value in the tree consistent, so that serializing the tree always yields a
// valid file.
//
// A tree is not safe for concurrent use. Callers must serialize access, and
// observers must not mutate the tree from inside a notification.
package structure

import (
	"fmt"
	"io"
	"sort"
)

// Kind identifies a removable variant within a format family. Directory fields
// are keyed by Kind.
type Kind uint16

// KindNone marks fields that are not part of a removable run.
const KindNone Kind = 0

// MaxDepth bounds every walk along parent references.
const MaxDepth = 64

// Field is a named, self-serializing value bound to an absolute byte range.
type Field interface {
	Name() string
	Offset() int
	Size() int
	End() int
	// Parent returns the owning node, or nil for a detached field.
	Parent() *Node
	// Read decodes the field from buf at the given absolute offset and
	// returns the offset just past it.
	Read(buf []byte, offset int) (int, error)
	WriteTo(w io.Writer) (int64, error)
	// Clone returns a detached deep copy.
	Clone() Field
	// Kind returns the removable variant of the field, or KindNone.
	Kind() Kind
	// CanRemove reports whether the field may be removed from its parent.
	CanRemove() bool

	setOffset(offset int)
	setParent(n *Node)
	setKind(k Kind)
}

type base struct {
	name      string
	offset    int
	parent    *Node
	kind      Kind
	mandatory bool
}

func (b *base) Name() string      { return b.name }
func (b *base) Offset() int       { return b.offset }
func (b *base) Parent() *Node     { return b.parent }
func (b *base) Kind() Kind        { return b.kind }
func (b *base) setOffset(off int) { b.offset = off }
func (b *base) setParent(n *Node) { b.parent = n }
func (b *base) setKind(k Kind)    { b.kind = k }

func (b *base) CanRemove() bool {
	return b.kind != KindNone && !b.mandatory
}

// detached returns a copy of b without its parent.
func (b *base) detached() base {
	c := *b
	c.parent = nil
	return c
}

// KindOf returns the removable variant of f, or KindNone.
func KindOf(f Field) Kind {
	if f == nil {
		return KindNone
	}
	return f.Kind()
}

// Element tags a detached field as a member of the removable run of kind,
// so that leaves can be inserted and removed like nodes. It panics if f is
// attached.
func Element[F Field](f F, kind Kind) F {
	if f.Parent() != nil {
		panic(fmt.Sprintf("structure: %q is attached", f.Name()))
	}
	f.setKind(kind)
	return f
}

// SortByOffset sorts fields by start offset. Fields with equal offsets keep
// their relative order.
func SortByOffset(fields []Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Offset() < fields[j].Offset()
	})
}

func writeAll(w io.Writer, data []byte) (int64, error) {
	n, err := w.Write(data)
	return int64(n), err
}
