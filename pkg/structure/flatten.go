package structure

import (
	"bytes"
	"fmt"
	"io"
)

// Flatten returns every leaf of the subtree sorted by offset. Code payloads
// are split into their lines. The result is built on each call.
func (n *Node) Flatten() []Field {
	var leaves []Field
	n.collect(&leaves, 0)
	SortByOffset(leaves)
	return leaves
}

func (n *Node) collect(out *[]Field, depth int) {
	if depth > MaxDepth {
		return
	}
	for _, c := range n.children {
		switch v := c.(type) {
		case *Node:
			v.collect(out, depth+1)
		case *Code:
			*out = append(*out, v.Leaves()...)
		default:
			*out = append(*out, c)
		}
	}
}

// WriteTo serializes the subtree in offset order.
func (n *Node) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, leaf := range n.Flatten() {
		m, err := leaf.WriteTo(w)
		total += m
		if err != nil {
			return total, fmt.Errorf("write %q at 0x%x: %w", leaf.Name(), leaf.Offset(), err)
		}
	}
	return total, nil
}

// Bytes returns the serialized subtree.
func (n *Node) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(n.size)
	_, _ = n.WriteTo(&buf)
	return buf.Bytes()
}
