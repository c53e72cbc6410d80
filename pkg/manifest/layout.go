package manifest

import (
	"fmt"

	"github.com/EchoTools/resedit/pkg/structure"
)

// manifestLayout decodes the header and the three tables laid out back to
// back. The tables have counts but no offsets, so insertion positions come
// from DefaultIndex and ResolveOffset.
type manifestLayout struct{}

func (manifestLayout) Decode(d *structure.Decoder) (int, error) {
	d.Uint("Package count", 4)
	d.Uint("Unknown 1", 4)
	d.Uint("Unknown 2", 8)

	counts := make([]*structure.Number, len(tables))
	for i, t := range tables {
		if i > 0 {
			d.Bytes(fmt.Sprintf("Padding %d", i), 16)
		}
		d.Uint(t.prefix+" length", 8)
		d.Uint(t.prefix+" unknown 1", 8)
		d.Uint(t.prefix+" unknown 2", 8)
		d.Uint(t.prefix+" element size", 8)
		d.Uint(t.prefix+" count", 8)
		counts[i] = d.Count(t.prefix+" element count", 8, t.kind)
	}

	for i, t := range tables {
		for n := uint64(0); n < uint64(counts[i].Value()) && d.Err() == nil; n++ {
			d.Add(newEntryNode(t.kind))
		}
	}
	return len(d.Buffer()), d.Err()
}

// DefaultIndex places a new entry behind the last one of its table, or at
// the start of its table when it is empty.
func (manifestLayout) DefaultIndex(n *structure.Node, f structure.Field) int {
	kind := structure.KindOf(f)
	last := -1
	for i, c := range n.Fields() {
		if structure.KindOf(c) == kind {
			last = i
		}
	}
	if last >= 0 {
		return last + 1
	}
	start := runStart(n, kind)
	for i, c := range n.Fields() {
		if c.Offset() >= start {
			return i
		}
	}
	return n.Len()
}

// ResolveOffset returns the start of the table of an entry that has no
// predecessor: the header end plus the size of every earlier table.
func (manifestLayout) ResolveOffset(n *structure.Node, f structure.Field, index int) (int, int) {
	return index, runStart(n, structure.KindOf(f))
}

func runStart(n *structure.Node, kind structure.Kind) int {
	off := n.Offset() + HeaderSize
	for _, t := range tables {
		if t.kind >= kind {
			break
		}
		off += len(n.Children(t.kind)) * t.size
	}
	return off
}

func newEntryNode(kind structure.Kind) *structure.Node {
	return structure.NewNode(tableOf(kind).name, kind, entryLayout{kind: kind}, structure.Fixed())
}

type entryLayout struct{ kind structure.Kind }

func (l entryLayout) Decode(d *structure.Decoder) (int, error) {
	switch l.kind {
	case KindFrameContent:
		d.Int("Type symbol", 8)
		d.Int("File symbol", 8)
		d.Uint("Frame index", 4)
		d.Uint("Data offset", 4)
		d.Uint("Size", 4)
		d.Uint("Alignment", 4)
	case KindMetadata:
		d.Int("Type symbol", 8)
		d.Int("File symbol", 8)
		d.Int("Unknown 1", 8)
		d.Int("Unknown 2", 8)
		d.Int("Asset type", 8)
	case KindFrame:
		d.Uint("Package index", 4)
		d.Uint("Offset", 4)
		d.Uint("Compressed size", 4)
		d.Uint("Length", 4)
	default:
		d.UnknownVariant("Kind", d.Pos(), uint64(l.kind))
	}
	return d.Pos(), d.Err()
}
