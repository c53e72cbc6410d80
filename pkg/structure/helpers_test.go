package structure_test

import (
	"encoding/binary"
	"testing"

	"github.com/EchoTools/resedit/pkg/structure"
	"github.com/stretchr/testify/require"
)

const (
	kindA structure.Kind = iota + 1
	kindB
)

// entryLayout is a fixed record: a 4-byte ID followed by opaque data.
type entryLayout struct{ size int }

func (l entryLayout) Decode(d *structure.Decoder) (int, error) {
	d.Uint("ID", 4)
	if l.size > 4 {
		d.Bytes("Data", l.size-4)
	}
	return d.Pos(), d.Err()
}

// singleLayout: "TST1", u32 count, u32 offset, 4 reserved bytes, then a run
// of 8-byte entries of kindA.
type singleLayout struct{}

func (singleLayout) Decode(d *structure.Decoder) (int, error) {
	d.Signature("Signature", "TST1")
	count := d.Count("Entry count", 4, kindA)
	off := d.Offset("Entry offset", 4, kindA)
	d.Bytes("Reserved", 4)
	if d.Err() != nil {
		return 0, d.Err()
	}
	if count.Value() > 0 {
		d.Seek(int(off.Value()))
		for i := int64(0); i < count.Value(); i++ {
			d.Add(entryNode(kindA, 8))
		}
	}
	return len(d.Buffer()), d.Err()
}

// dualLayout: "TST2", u16 count A, u16 count B, u32 offset A, u32 offset B,
// 8 reserved bytes, then runs of 8-byte A entries and 12-byte B entries.
type dualLayout struct{}

func (dualLayout) Decode(d *structure.Decoder) (int, error) {
	d.Signature("Signature", "TST2")
	countA := d.Count("A count", 2, kindA)
	countB := d.Count("B count", 2, kindB)
	offA := d.Offset("A offset", 4, kindA)
	offB := d.Offset("B offset", 4, kindB)
	d.Bytes("Reserved", 8)
	if d.Err() != nil {
		return 0, d.Err()
	}
	d.Seek(int(offA.Value()))
	for i := int64(0); i < countA.Value(); i++ {
		d.Add(entryNode(kindA, 8))
	}
	d.Seek(int(offB.Value()))
	for i := int64(0); i < countB.Value(); i++ {
		d.Add(entryNode(kindB, 12))
	}
	return len(d.Buffer()), d.Err()
}

func entryNode(kind structure.Kind, size int, opts ...structure.NodeOption) *structure.Node {
	opts = append([]structure.NodeOption{structure.Fixed()}, opts...)
	return structure.NewNode("Entry", kind, entryLayout{size: size}, opts...)
}

func newEntry(t *testing.T, kind structure.Kind, size int, id uint32, opts ...structure.NodeOption) *structure.Node {
	t.Helper()
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf, id)
	n := entryNode(kind, size, opts...)
	_, err := n.Read(buf, 0)
	require.NoError(t, err)
	return n
}

func entryBytes(size int, id uint32) []byte {
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf, id)
	return buf
}

func header1(count, offset uint32) []byte {
	buf := make([]byte, 16)
	copy(buf, "TST1")
	binary.LittleEndian.PutUint32(buf[4:], count)
	binary.LittleEndian.PutUint32(buf[8:], offset)
	return buf
}

func header2(countA, countB uint16, offA, offB uint32) []byte {
	buf := make([]byte, 24)
	copy(buf, "TST2")
	binary.LittleEndian.PutUint16(buf[4:], countA)
	binary.LittleEndian.PutUint16(buf[6:], countB)
	binary.LittleEndian.PutUint32(buf[8:], offA)
	binary.LittleEndian.PutUint32(buf[12:], offB)
	return buf
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func parse(t *testing.T, layout structure.Layout, buf []byte) *structure.Node {
	t.Helper()
	root := structure.NewNode("Resource", structure.KindNone, layout)
	end, err := root.Read(buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(buf), end)
	return root
}

func ids(t *testing.T, n *structure.Node, kind structure.Kind) []int64 {
	t.Helper()
	var out []int64
	for _, c := range n.Children(kind) {
		id, ok := c.FieldByName("ID", false).(*structure.Number)
		require.True(t, ok)
		out = append(out, id.Value())
	}
	return out
}

// requireCovered checks that the leaves of n tile [start, end) exactly.
func requireCovered(t *testing.T, n *structure.Node) {
	t.Helper()
	pos := n.Offset()
	for _, leaf := range n.Flatten() {
		require.Equal(t, pos, leaf.Offset(), "leaf %q", leaf.Name())
		pos = leaf.End()
	}
	require.Equal(t, n.End(), pos)
}
