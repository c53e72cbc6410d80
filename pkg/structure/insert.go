package structure

import (
	"fmt"
	"slices"
)

type insertOptions struct {
	index    int
	hasIndex bool
	after    Field
}

// InsertOption configures Node.Insert.
type InsertOption func(*insertOptions)

// AtIndex inserts at an explicit child index.
func AtIndex(i int) InsertOption {
	return func(o *insertOptions) {
		o.index = i
		o.hasIndex = true
	}
}

// After inserts right behind an existing child of the same variant.
func After(f Field) InsertOption {
	return func(o *insertOptions) { o.after = f }
}

// placement is the resolved position of a pending insertion.
type placement struct {
	index  int
	offset int
	lazy   *Number // unset offset directory placed by this insertion
}

// Insert adds f to the children of n and updates offsets, sizes and
// directories across the whole tree. It returns the child index of f.
//
// All checks run before the tree is touched; on error nothing changes.
func (n *Node) Insert(f Field, opts ...InsertOption) (int, error) {
	var o insertOptions
	for _, opt := range opts {
		opt(&o)
	}

	if f == nil {
		return -1, fmt.Errorf("insert into %q: nil field", n.name)
	}
	if f.Parent() != nil {
		return -1, fmt.Errorf("insert %q into %q: %w", f.Name(), n.name, ErrAttached)
	}
	path, err := n.ancestors()
	if err != nil {
		return -1, err
	}
	if fn, ok := f.(*Node); ok {
		for _, a := range path {
			if a == fn {
				return -1, fmt.Errorf("insert %q into %q: %w", f.Name(), n.name, ErrCycle)
			}
		}
		if len(path)+fn.height() > MaxDepth {
			return -1, fmt.Errorf("insert %q into %q: %w", f.Name(), n.name, ErrDepthExceeded)
		}
	}
	if o.hasIndex && (o.index < 0 || o.index > len(n.children)) {
		return -1, fmt.Errorf("insert %q at %d of %d: %w", f.Name(), o.index, len(n.children), ErrIndexOutOfRange)
	}

	kind := KindOf(f)
	p, err := n.place(f, kind, o)
	if err != nil {
		return -1, err
	}

	size := f.Size()
	if p.lazy != nil {
		p.lazy.set(int64(n.End() - n.bias))
		p.lazy.lazy = true
	}
	if c := n.count(kind); c != nil {
		c.set(c.value + 1)
	}
	if fn, ok := f.(*Node); ok {
		fn.relocate(p.offset)
	} else {
		f.setOffset(p.offset)
	}
	f.setParent(n)

	for _, a := range path {
		a.size += size
	}
	root := path[len(path)-1]
	root.shiftDirectories(p.offset, size, kind, true)
	root.shiftFields(p.offset, size, path, true)

	n.children = slices.Insert(n.children, p.index, f)
	n.notify(Inserted, f, p.index)
	return p.index, nil
}

// place resolves where f goes, first its child index, then its offset.
func (n *Node) place(f Field, kind Kind, o insertOptions) (placement, error) {
	var p placement
	dir := n.offsetDir(kind)

	switch {
	case o.hasIndex:
		p.index = o.index
	case o.after != nil && kind != KindNone && o.after.Parent() == n && KindOf(o.after) == kind:
		p.index = n.indexOf(o.after) + 1
	case dir != nil && dir.value == Unset:
		// An unplaced run starts at the end of the node, whatever the list
		// scan would give.
		p.index = len(n.children)
	case dir != nil:
		at := int(dir.value) + n.bias
		for p.index < len(n.children) && n.children[p.index].Offset() <= at {
			p.index++
		}
		for p.index < len(n.children) && KindOf(n.children[p.index]) == kind {
			p.index++
		}
	default:
		p.index = len(n.children)
		if di, ok := n.layout.(DefaultIndexer); ok {
			p.index = di.DefaultIndex(n, f)
		}
	}
	if p.index < 0 || p.index > len(n.children) {
		return p, fmt.Errorf("insert %q at %d of %d: %w", f.Name(), p.index, len(n.children), ErrIndexOutOfRange)
	}

	switch {
	case p.index > 0 && kind != KindNone && KindOf(n.children[p.index-1]) == kind:
		p.offset = n.children[p.index-1].End()
	case dir != nil && dir.value == Unset:
		p.offset = n.End()
		p.lazy = dir
	case dir != nil:
		p.offset = int(dir.value) + n.bias
	case p.index == 0 && len(n.children) > 0:
		p.offset = n.children[0].Offset()
	default:
		if r, ok := n.layout.(OffsetResolver); ok {
			p.index, p.offset = r.ResolveOffset(n, f, p.index)
			if p.index < 0 || p.index > len(n.children) {
				return p, fmt.Errorf("insert %q at %d of %d: %w", f.Name(), p.index, len(n.children), ErrIndexOutOfRange)
			}
		} else if p.index < len(n.children) {
			p.offset = n.children[p.index].Offset()
		} else {
			p.offset = n.End()
		}
	}
	return p, nil
}

func (n *Node) count(kind Kind) *Number {
	if kind == KindNone {
		return nil
	}
	return n.counts[kind]
}

func (n *Node) offsetDir(kind Kind) *Number {
	if kind == KindNone {
		return nil
	}
	return n.offsets[kind]
}

// relocate lays the subtree out contiguously from start and moves the
// directories it owns along with it.
func (n *Node) relocate(start int) {
	delta := start - n.offset
	n.offset = start

	kids := n.Fields()
	SortByOffset(kids)
	pos := start
	for _, c := range kids {
		if cn, ok := c.(*Node); ok {
			cn.relocate(pos)
		} else {
			c.setOffset(pos)
		}
		pos += c.Size()
	}

	if delta == 0 {
		return
	}
	for _, c := range n.children {
		if num, ok := c.(*Number); ok && num.role == OffsetDirectory && num.value != Unset {
			num.set(num.value + int64(delta))
		}
	}
}

// height returns the number of node levels in the subtree, n included.
func (n *Node) height() int {
	h := 0
	for _, c := range n.children {
		if cn, ok := c.(*Node); ok {
			if ch := cn.height(); ch > h {
				h = ch
			}
		}
	}
	return h + 1
}

// walk calls fn for n and every node below it.
func (n *Node) walk(depth int, fn func(m *Node)) {
	if depth > MaxDepth {
		return
	}
	fn(n)
	for _, c := range n.children {
		if cn, ok := c.(*Node); ok {
			cn.walk(depth+1, fn)
		}
	}
}

// shiftDirectories moves every placed offset directory in the tree that
// points behind at. On insertion, a directory pointing exactly at the new
// element only moves when it describes another variant: the new element
// extends its own run.
func (n *Node) shiftDirectories(at, size int, kind Kind, insert bool) {
	n.walk(0, func(m *Node) {
		for _, c := range m.children {
			num, ok := c.(*Number)
			if !ok || num.role != OffsetDirectory || num.value == Unset {
				continue
			}
			target := int(num.value) + m.bias
			switch {
			case insert && (target > at || (target == at && num.tracks != kind)):
				num.set(num.value + int64(size))
			case !insert && target > at:
				num.set(num.value - int64(size))
			}
		}
	})
}

// shiftFields moves every field starting behind at. The nodes on path
// enclose the mutation point and keep their offsets.
func (n *Node) shiftFields(at, size int, path []*Node, insert bool) {
	enclosing := make(map[Field]struct{}, len(path))
	for _, a := range path {
		enclosing[a] = struct{}{}
	}
	n.walk(0, func(m *Node) {
		for _, c := range m.children {
			off := c.Offset()
			switch {
			case insert && off > at:
				c.setOffset(off + size)
			case insert && off == at:
				if _, skip := enclosing[c]; !skip {
					c.setOffset(off + size)
				}
			case !insert && off > at:
				c.setOffset(off - size)
			}
		}
	})
}
