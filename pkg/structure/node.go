package structure

import (
	"fmt"
)

// Layout decodes the children of one node variant.
type Layout interface {
	// Decode reads the node's children in declared order through d and
	// returns the absolute offset where the node's declared extent ends.
	Decode(d *Decoder) (int, error)
}

// DefaultIndexer is implemented by layouts that insert elements somewhere
// other than the end of the child list when no better position is known.
type DefaultIndexer interface {
	DefaultIndex(n *Node, f Field) int
}

// OffsetResolver is implemented by layouts that know where an element goes
// when neither a same-variant neighbour nor an offset directory tells. It may
// also correct the chosen index.
type OffsetResolver interface {
	ResolveOffset(n *Node, f Field, index int) (newIndex, offset int)
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// Fixed marks a node whose layout never changes: no filler fields are added
// and no directories are registered.
func Fixed() NodeOption {
	return func(n *Node) { n.fixed = true }
}

// Mandatory marks a node that refuses removal.
func Mandatory() NodeOption {
	return func(n *Node) { n.mandatory = true }
}

// WithBias sets the value added to every directory offset read from the node.
func WithBias(bias int) NodeOption {
	return func(n *Node) { n.bias = bias }
}

// Node is a Field that owns an ordered list of children.
type Node struct {
	base
	layout   Layout
	size     int
	children []Field
	bias     int
	fixed    bool

	counts  map[Kind]*Number
	offsets map[Kind]*Number

	changed bool
	subs    []subscription
	nextSub int
}

// NewNode returns an empty, detached node. A nil layout decodes no children.
func NewNode(name string, kind Kind, layout Layout, opts ...NodeOption) *Node {
	n := &Node{
		base:   base{name: name, kind: kind},
		layout: layout,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Node) Size() int      { return n.size }
func (n *Node) End() int       { return n.offset + n.size }
func (n *Node) Bias() int      { return n.bias }
func (n *Node) Len() int       { return len(n.children) }
func (n *Node) Layout() Layout { return n.layout }

// Field returns the i-th child.
func (n *Node) Field(i int) Field {
	return n.children[i]
}

// Fields returns a copy of the child list in its current order.
func (n *Node) Fields() []Field {
	out := make([]Field, len(n.children))
	copy(out, n.children)
	return out
}

// Elements returns the children of the given kind in list order, leaves
// included.
func (n *Node) Elements(kind Kind) []Field {
	var out []Field
	for _, c := range n.children {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

// Children returns the child nodes of the given kind in list order.
func (n *Node) Children(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.children {
		if cn, ok := c.(*Node); ok && cn.kind == kind {
			out = append(out, cn)
		}
	}
	return out
}

// Count returns the count directory entry for kind, or nil.
func (n *Node) Count(kind Kind) *Number {
	return n.counts[kind]
}

// OffsetOf returns the offset directory entry for kind, or nil.
func (n *Node) OffsetOf(kind Kind) *Number {
	return n.offsets[kind]
}

// IndexOf returns the position of f among the children, or -1.
func (n *Node) IndexOf(f Field) int {
	return n.indexOf(f)
}

func (n *Node) indexOf(f Field) int {
	for i, c := range n.children {
		if c == f {
			return i
		}
	}
	return -1
}

// Root returns the top of the tree, or nil if the parent chain is deeper
// than MaxDepth.
func (n *Node) Root() *Node {
	path, err := n.ancestors()
	if err != nil {
		return nil
	}
	return path[len(path)-1]
}

// Changed reports whether the tree has been modified since it was parsed or
// last saved.
func (n *Node) Changed() bool {
	r := n.Root()
	return r != nil && r.changed
}

// ClearChanged resets the dirty bit of the tree, usually after a save.
func (n *Node) ClearChanged() {
	if r := n.Root(); r != nil {
		r.changed = false
	}
}

// ancestors returns n followed by each of its ancestors up to the root.
func (n *Node) ancestors() ([]*Node, error) {
	path := []*Node{n}
	for cur := n.parent; cur != nil; cur = cur.parent {
		if len(path) > MaxDepth {
			return nil, fmt.Errorf("walk parents of %q: %w", n.name, ErrDepthExceeded)
		}
		path = append(path, cur)
	}
	return path, nil
}

func (n *Node) add(f Field) {
	f.setParent(n)
	n.children = append(n.children, f)
	n.size += f.Size()
}

func (n *Node) reset() {
	for _, c := range n.children {
		c.setParent(nil)
	}
	n.children = nil
	n.size = 0
	n.counts = nil
	n.offsets = nil
}

// Read parses the node and its subtree from buf at offset.
func (n *Node) Read(buf []byte, offset int) (int, error) {
	if offset < 0 || offset > len(buf) {
		return 0, truncated(n.name, offset, 0, len(buf)-offset)
	}
	n.reset()
	n.offset = offset

	end := offset
	if n.layout != nil {
		d := newDecoder(n, buf, offset)
		var err error
		if end, err = n.layout.Decode(d); err != nil {
			return 0, err
		}
		if err := d.Err(); err != nil {
			return 0, err
		}
	}

	if !n.fixed && len(n.children) > 0 {
		if err := n.fillGaps(buf, end); err != nil {
			return 0, err
		}
		n.registerDirectories()
	}
	return n.End(), nil
}

// fillGaps sorts the children and covers every undeclared byte in
// [offset, end) with a filler field.
func (n *Node) fillGaps(buf []byte, end int) error {
	SortByOffset(n.children)

	filled := make([]Field, 0, len(n.children))
	pos := n.offset
	size := 0
	for _, c := range n.children {
		if c.Offset() < pos {
			return &ParseError{
				Reason: Overlap,
				Name:   c.Name(),
				Offset: c.Offset(),
				Detail: fmt.Sprintf("previous field ends at 0x%x", pos),
			}
		}
		if c.Offset() > pos {
			gap := newFiller(pos, buf[pos:c.Offset()])
			gap.parent = n
			filled = append(filled, gap)
			size += gap.Size()
		}
		filled = append(filled, c)
		size += c.Size()
		pos = c.End()
	}
	if end > pos {
		if end > len(buf) {
			return truncated(n.name, pos, end-pos, len(buf)-pos)
		}
		gap := newFiller(pos, buf[pos:end])
		gap.parent = n
		filled = append(filled, gap)
		size += gap.Size()
	}

	n.children = filled
	n.size = size
	return nil
}

func (n *Node) registerDirectories() {
	n.counts = nil
	n.offsets = nil
	if n.fixed {
		return
	}
	for _, c := range n.children {
		num, ok := c.(*Number)
		if !ok {
			continue
		}
		switch num.role {
		case CountDirectory:
			if n.counts == nil {
				n.counts = make(map[Kind]*Number)
			}
			n.counts[num.tracks] = num
		case OffsetDirectory:
			if n.offsets == nil {
				n.offsets = make(map[Kind]*Number)
			}
			n.offsets[num.tracks] = num
		}
	}
}

// Clone returns a detached deep copy of the subtree with rebuilt directories.
func (n *Node) Clone() Field {
	return n.CloneNode()
}

// CloneNode is Clone with a concrete return type.
func (n *Node) CloneNode() *Node {
	c := &Node{
		base:     n.detached(),
		layout:   n.layout,
		size:     n.size,
		bias:     n.bias,
		fixed:    n.fixed,
		children: make([]Field, len(n.children)),
	}
	for i, ch := range n.children {
		cc := ch.Clone()
		cc.setParent(c)
		c.children[i] = cc
	}
	c.registerDirectories()
	return c
}

func (n *Node) String() string {
	return fmt.Sprintf("%s[0x%x+%d]", n.name, n.offset, n.size)
}
