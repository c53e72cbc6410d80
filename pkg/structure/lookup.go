package structure

import "strings"

type locateOptions struct {
	recursive bool
	kind      Kind
	anyKind   bool
}

// LocateOption configures Node.Locate.
type LocateOption func(*locateOptions)

// Recursive descends into child nodes.
func Recursive() LocateOption {
	return func(o *locateOptions) { o.recursive = true }
}

// OfKind only matches nodes of the given variant.
func OfKind(k Kind) LocateOption {
	return func(o *locateOptions) {
		o.kind = k
		o.anyKind = false
	}
}

// Locate returns the child whose byte range contains offset. When searching
// recursively the deepest match wins. It returns nil if nothing matches.
func (n *Node) Locate(offset int, opts ...LocateOption) Field {
	o := locateOptions{anyKind: true}
	for _, opt := range opts {
		opt(&o)
	}
	return n.locate(offset, o, 0)
}

func (n *Node) locate(offset int, o locateOptions, depth int) Field {
	if depth > MaxDepth {
		return nil
	}
	for _, c := range n.children {
		if offset < c.Offset() || offset >= c.End() {
			continue
		}
		if cn, ok := c.(*Node); ok && o.recursive {
			if found := cn.locate(offset, o, depth+1); found != nil {
				return found
			}
		}
		if o.anyKind || KindOf(c) == o.kind {
			return c
		}
		return nil
	}
	return nil
}

// FieldByName returns the first child whose name matches, ignoring case.
// With recursive set, each child node is searched before its next sibling.
func (n *Node) FieldByName(name string, recursive bool) Field {
	return n.fieldByName(name, recursive, 0)
}

func (n *Node) fieldByName(name string, recursive bool, depth int) Field {
	if depth > MaxDepth {
		return nil
	}
	for _, c := range n.children {
		if strings.EqualFold(c.Name(), name) {
			return c
		}
		if cn, ok := c.(*Node); ok && recursive {
			if found := cn.fieldByName(name, recursive, depth+1); found != nil {
				return found
			}
		}
	}
	return nil
}
