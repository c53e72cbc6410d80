package structure

import (
	"fmt"
	"slices"
)

// Remove detaches f from n and updates offsets, sizes and directories across
// the whole tree. With recursive set, the removable descendants of f are
// removed first, innermost first, each with its own cascade.
//
// All checks run before the tree is touched; on error nothing changes.
func (n *Node) Remove(f Field, recursive bool) (Field, error) {
	if f == nil || f.Parent() != n || n.indexOf(f) < 0 {
		return nil, fmt.Errorf("remove from %q: %w", n.name, ErrNotChild)
	}
	if !f.CanRemove() {
		return nil, fmt.Errorf("remove %q from %q: %w", f.Name(), n.name, ErrNotRemovable)
	}
	path, err := n.ancestors()
	if err != nil {
		return nil, err
	}
	fn, isNode := f.(*Node)
	if isNode && len(path)+fn.height() > MaxDepth {
		return nil, fmt.Errorf("remove %q from %q: %w", f.Name(), n.name, ErrDepthExceeded)
	}

	if recursive && isNode {
		fn.removeDescendants(append([]*Node{fn}, path...))
	}
	n.detach(f, path)
	return f, nil
}

// removeDescendants strips every removable field below n. path starts with n.
func (n *Node) removeDescendants(path []*Node) {
	kids := n.Fields()
	for i := len(kids) - 1; i >= 0; i-- {
		if cn, ok := kids[i].(*Node); ok {
			cn.removeDescendants(append([]*Node{cn}, path...))
		}
		if kids[i].CanRemove() {
			n.detach(kids[i], path)
		}
	}
}

// detach performs the removal cascade. path starts with n.
func (n *Node) detach(f Field, path []*Node) {
	index := n.indexOf(f)
	n.children = slices.Delete(n.children, index, index+1)

	kind := KindOf(f)
	size := f.Size()
	at := f.Offset()

	if c := n.count(kind); c != nil && c.value > 0 {
		c.set(c.value - 1)
	}
	for _, a := range path {
		a.size -= size
	}
	root := path[len(path)-1]
	root.shiftDirectories(at, size, kind, false)
	root.shiftFields(at, size, path, false)

	if dir := n.offsetDir(kind); dir != nil && dir.lazy && len(n.Elements(kind)) == 0 {
		dir.set(Unset)
		dir.lazy = false
	}

	f.setParent(nil)
	n.notify(Removed, f, index)
}
