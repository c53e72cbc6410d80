package structure_test

import (
	"testing"

	"github.com/EchoTools/resedit/pkg/structure"
	"github.com/stretchr/testify/require"
)

func TestInsertIntoEmptyRun(t *testing.T) {
	orig := header1(0, structure.Unset)
	root := parse(t, singleLayout{}, orig)
	require.Equal(t, 16, root.End())

	e := newEntry(t, kindA, 8, 7)
	idx, err := root.Insert(e)
	require.NoError(t, err)
	require.Equal(t, 4, idx)
	require.Same(t, root, e.Parent())

	require.EqualValues(t, 1, root.Count(kindA).Value())
	require.EqualValues(t, 16, root.OffsetOf(kindA).Value())
	require.Equal(t, 16, e.Offset())
	require.Equal(t, 24, root.End())
	require.True(t, root.Changed())
	requireCovered(t, root)

	reparsed := parse(t, singleLayout{}, root.Bytes())
	require.Equal(t, []int64{7}, ids(t, reparsed, kindA))

	removed, err := root.Remove(e, false)
	require.NoError(t, err)
	require.Same(t, e, removed)
	require.Nil(t, e.Parent())

	require.EqualValues(t, 0, root.Count(kindA).Value())
	require.EqualValues(t, structure.Unset, root.OffsetOf(kindA).Value())
	require.Equal(t, 16, root.End())
	require.Equal(t, orig, root.Bytes())
}

func TestInsertRemoveInverse(t *testing.T) {
	orig := concat(header1(2, 16), entryBytes(8, 1), entryBytes(8, 2))
	root := parse(t, singleLayout{}, orig)
	first, second := root.Children(kindA)[0], root.Children(kindA)[1]

	e := newEntry(t, kindA, 8, 9)
	idx, err := root.Insert(e, structure.After(first))
	require.NoError(t, err)
	require.Equal(t, root.IndexOf(first)+1, idx)
	require.Equal(t, 24, e.Offset())
	require.Equal(t, 32, second.Offset())
	require.EqualValues(t, 3, root.Count(kindA).Value())
	require.EqualValues(t, 16, root.OffsetOf(kindA).Value())
	requireCovered(t, root)

	reparsed := parse(t, singleLayout{}, root.Bytes())
	require.Equal(t, []int64{1, 9, 2}, ids(t, reparsed, kindA))

	_, err = root.Remove(e, false)
	require.NoError(t, err)
	require.Equal(t, orig, root.Bytes())
	require.EqualValues(t, 2, root.Count(kindA).Value())
	require.EqualValues(t, 16, root.OffsetOf(kindA).Value())
	require.Equal(t, 24, second.Offset())
}

func TestInsertDirectoryPosition(t *testing.T) {
	orig := concat(header1(2, 16), entryBytes(8, 1), entryBytes(8, 2), []byte{0xee, 0xee})
	root := parse(t, singleLayout{}, orig)

	e := newEntry(t, kindA, 8, 3)
	_, err := root.Insert(e)
	require.NoError(t, err)
	require.Equal(t, 32, e.Offset())

	trailer := root.Locate(40)
	require.NotNil(t, trailer)
	require.Equal(t, structure.FillerName, trailer.Name())

	reparsed := parse(t, singleLayout{}, root.Bytes())
	require.Equal(t, []int64{1, 2, 3}, ids(t, reparsed, kindA))
	require.Equal(t, []byte{0xee, 0xee}, root.Bytes()[40:])
}

func TestCountTracksInsertsAndRemoves(t *testing.T) {
	root := parse(t, singleLayout{}, header1(0, structure.Unset))

	var added []*structure.Node
	for i := 0; i < 5; i++ {
		e := newEntry(t, kindA, 8, uint32(i))
		_, err := root.Insert(e)
		require.NoError(t, err)
		added = append(added, e)
	}
	for _, e := range []*structure.Node{added[3], added[0], added[4]} {
		_, err := root.Remove(e, false)
		require.NoError(t, err)
	}

	require.EqualValues(t, 2, root.Count(kindA).Value())
	require.Equal(t, 32, root.End())
	requireCovered(t, root)

	reparsed := parse(t, singleLayout{}, root.Bytes())
	require.Equal(t, []int64{1, 2}, ids(t, reparsed, kindA))
}

func TestInsertShiftScope(t *testing.T) {
	orig := concat(header2(2, 1, 24, 40), entryBytes(8, 1), entryBytes(8, 2), entryBytes(12, 3))
	root := parse(t, dualLayout{}, orig)

	before := make(map[structure.Field]int)
	for _, leaf := range root.Flatten() {
		before[leaf] = leaf.Offset()
	}

	e := newEntry(t, kindA, 8, 4)
	_, err := root.Insert(e)
	require.NoError(t, err)
	require.Equal(t, 40, e.Offset())

	for leaf, old := range before {
		if old < 40 {
			require.Equal(t, old, leaf.Offset(), "leaf %q moved", leaf.Name())
		} else {
			require.Equal(t, old+8, leaf.Offset(), "leaf %q not shifted", leaf.Name())
		}
	}
	require.EqualValues(t, 24, root.OffsetOf(kindA).Value())
	require.EqualValues(t, 48, root.OffsetOf(kindB).Value())
	require.EqualValues(t, 3, root.Count(kindA).Value())
	require.EqualValues(t, 1, root.Count(kindB).Value())

	reparsed := parse(t, dualLayout{}, root.Bytes())
	require.Equal(t, []int64{1, 2, 4}, ids(t, reparsed, kindA))
	require.Equal(t, []int64{3}, ids(t, reparsed, kindB))
}

func TestInsertTieBreak(t *testing.T) {
	// Run A is empty but placed where run B starts.
	orig := concat(header2(0, 1, 24, 24), entryBytes(12, 3))
	root := parse(t, dualLayout{}, orig)
	b := root.Children(kindB)[0]

	e := newEntry(t, kindA, 8, 1)
	_, err := root.Insert(e)
	require.NoError(t, err)

	require.Equal(t, 24, e.Offset())
	require.Equal(t, 32, b.Offset())
	require.EqualValues(t, 24, root.OffsetOf(kindA).Value())
	require.EqualValues(t, 32, root.OffsetOf(kindB).Value())
	requireCovered(t, root)

	reparsed := parse(t, dualLayout{}, root.Bytes())
	require.Equal(t, []int64{1}, ids(t, reparsed, kindA))
	require.Equal(t, []int64{3}, ids(t, reparsed, kindB))

	_, err = root.Remove(e, false)
	require.NoError(t, err)
	require.Equal(t, orig, root.Bytes())
}

func TestInsertAtIndex(t *testing.T) {
	orig := concat(header1(1, 16), entryBytes(8, 1))
	root := parse(t, singleLayout{}, orig)
	first := root.Children(kindA)[0]

	t.Run("OutOfRange", func(t *testing.T) {
		e := newEntry(t, kindA, 8, 2)
		_, err := root.Insert(e, structure.AtIndex(99))
		require.ErrorIs(t, err, structure.ErrIndexOutOfRange)
		require.Nil(t, e.Parent())
		require.False(t, root.Changed())
		require.Equal(t, orig, root.Bytes())
	})

	t.Run("BeforeFirst", func(t *testing.T) {
		e := newEntry(t, kindA, 8, 2)
		idx, err := root.Insert(e, structure.AtIndex(root.IndexOf(first)))
		require.NoError(t, err)
		require.Equal(t, idx+1, root.IndexOf(first))
		require.Equal(t, 16, e.Offset())
		require.Equal(t, 24, first.Offset())

		reparsed := parse(t, singleLayout{}, root.Bytes())
		require.Equal(t, []int64{2, 1}, ids(t, reparsed, kindA))
	})
}

func TestInsertErrors(t *testing.T) {
	root := parse(t, singleLayout{}, header1(0, structure.Unset))

	t.Run("Attached", func(t *testing.T) {
		e := newEntry(t, kindA, 8, 1)
		_, err := root.Insert(e)
		require.NoError(t, err)
		_, err = root.Insert(e)
		require.ErrorIs(t, err, structure.ErrAttached)
	})

	t.Run("Cycle", func(t *testing.T) {
		_, err := root.Insert(root)
		require.ErrorIs(t, err, structure.ErrCycle)
	})

	t.Run("Nil", func(t *testing.T) {
		_, err := root.Insert(nil)
		require.Error(t, err)
	})

	t.Run("DepthExceeded", func(t *testing.T) {
		cur := structure.NewNode("Level", structure.KindNone, nil)
		var err error
		for i := 0; i < structure.MaxDepth+2 && err == nil; i++ {
			child := structure.NewNode("Level", structure.KindNone, nil)
			if _, err = cur.Insert(child); err == nil {
				cur = child
			}
		}
		require.ErrorIs(t, err, structure.ErrDepthExceeded)
	})
}

func TestRemoveErrors(t *testing.T) {
	orig := concat(header1(1, 16), entryBytes(8, 1))
	root := parse(t, singleLayout{}, orig)

	t.Run("Leaf", func(t *testing.T) {
		_, err := root.Remove(root.FieldByName("Reserved", false), false)
		require.ErrorIs(t, err, structure.ErrNotRemovable)
	})

	t.Run("NotChild", func(t *testing.T) {
		_, err := root.Remove(newEntry(t, kindA, 8, 5), false)
		require.ErrorIs(t, err, structure.ErrNotChild)
	})

	t.Run("Mandatory", func(t *testing.T) {
		e := newEntry(t, kindA, 8, 2, structure.Mandatory())
		_, err := root.Insert(e)
		require.NoError(t, err)
		root.ClearChanged()
		snapshot := root.Bytes()

		_, err = root.Remove(e, false)
		require.ErrorIs(t, err, structure.ErrNotRemovable)
		require.Same(t, root, e.Parent())
		require.False(t, root.Changed())
		require.Equal(t, snapshot, root.Bytes())
	})
}

// embeddedLayout stores its directory offsets relative to its own start.
type embeddedLayout struct{}

func (embeddedLayout) Decode(d *structure.Decoder) (int, error) {
	count := d.Count("Entry count", 4, kindA)
	off := d.Offset("Entry offset", 4, kindA)
	if d.Err() != nil {
		return 0, d.Err()
	}
	if count.Value() > 0 {
		d.Seek(int(off.Value()) + d.Node().Bias())
		for i := int64(0); i < count.Value(); i++ {
			d.Add(entryNode(kindA, 8))
		}
	}
	return d.Pos(), d.Err()
}

type envelopeLayout struct{}

func (envelopeLayout) Decode(d *structure.Decoder) (int, error) {
	d.Bytes("Envelope", 8)
	d.Add(structure.NewNode("Embedded", structure.KindNone, embeddedLayout{}, structure.WithBias(8)))
	return len(d.Buffer()), d.Err()
}

func TestInsertWithBias(t *testing.T) {
	orig := make([]byte, 16)
	copy(orig, "ENVELOPE")
	root := parse(t, envelopeLayout{}, orig)
	emb, ok := root.FieldByName("embedded", false).(*structure.Node)
	require.True(t, ok)

	first := newEntry(t, kindA, 8, 1)
	_, err := emb.Insert(first)
	require.NoError(t, err)
	require.Equal(t, 16, first.Offset())
	require.EqualValues(t, 8, emb.OffsetOf(kindA).Value())
	require.Equal(t, 16, emb.Size())
	require.Equal(t, 24, root.End())

	second := newEntry(t, kindA, 8, 2)
	_, err = emb.Insert(second)
	require.NoError(t, err)
	require.Equal(t, 24, second.Offset())
	require.EqualValues(t, 8, emb.OffsetOf(kindA).Value())
	requireCovered(t, root)

	reparsed := parse(t, envelopeLayout{}, root.Bytes())
	remb := reparsed.FieldByName("Embedded", false).(*structure.Node)
	require.Equal(t, []int64{1, 2}, ids(t, remb, kindA))

	_, err = emb.Remove(first, false)
	require.NoError(t, err)
	_, err = emb.Remove(second, false)
	require.NoError(t, err)
	require.Equal(t, orig, root.Bytes())
}

// groupLayout is a removable node holding its own run of entries.
type groupLayout struct{}

func (groupLayout) Decode(d *structure.Decoder) (int, error) {
	count := d.Count("Entry count", 4, kindA)
	off := d.Offset("Entry offset", 4, kindA)
	if d.Err() != nil {
		return 0, d.Err()
	}
	if count.Value() > 0 {
		d.Seek(int(off.Value()))
		for i := int64(0); i < count.Value(); i++ {
			d.Add(entryNode(kindA, 8))
		}
	}
	return d.Pos(), d.Err()
}

func TestRemoveRecursive(t *testing.T) {
	orig := header1(0, structure.Unset)
	root := parse(t, singleLayout{}, orig)

	group := structure.NewNode("Group", kindA, groupLayout{})
	_, err := group.Read(make([]byte, 8), 0)
	require.NoError(t, err)
	_, err = root.Insert(group)
	require.NoError(t, err)
	require.Equal(t, 16, group.Offset())

	for i := 1; i <= 3; i++ {
		_, err := group.Insert(newEntry(t, kindA, 8, uint32(i)))
		require.NoError(t, err)
	}
	require.Equal(t, 32, group.Size())
	require.Equal(t, 48, root.End())
	require.EqualValues(t, 24, group.OffsetOf(kindA).Value())

	var events []structure.Event
	root.Subscribe(structure.ObserverFunc(func(ev structure.Event) {
		events = append(events, ev)
	}))

	_, err = root.Remove(group, true)
	require.NoError(t, err)
	require.Equal(t, orig, root.Bytes())
	require.Len(t, events, 4)
	for _, ev := range events[:3] {
		require.Equal(t, structure.Removed, ev.Type)
		require.Same(t, group, ev.Node)
	}
	require.Same(t, root, events[3].Node)
	require.Equal(t, 8, group.Size())
}

// valueLayout: "TST3", u32 count, u32 offset, 4 reserved bytes, then a run of
// removable u32 values of kindA.
type valueLayout struct{}

func (valueLayout) Decode(d *structure.Decoder) (int, error) {
	d.Signature("Signature", "TST3")
	count := d.Count("Value count", 4, kindA)
	off := d.Offset("Value offset", 4, kindA)
	d.Bytes("Reserved", 4)
	if d.Err() != nil {
		return 0, d.Err()
	}
	if count.Value() > 0 {
		d.Seek(int(off.Value()))
		for i, n := int64(0), count.Value(); i < n; i++ {
			d.Add(newValue(0))
		}
	}
	return len(d.Buffer()), d.Err()
}

func newValue(v int64) *structure.Number {
	n := structure.Element(structure.NewNumber("Value", 4, false), kindA)
	n.SetValue(v)
	return n
}

func header3(count, offset uint32) []byte {
	buf := header1(count, offset)
	copy(buf, "TST3")
	return buf
}

func values(t *testing.T, n *structure.Node) []int64 {
	t.Helper()
	var out []int64
	for _, f := range n.Elements(kindA) {
		num, ok := f.(*structure.Number)
		require.True(t, ok)
		out = append(out, num.Value())
	}
	return out
}

func TestLeafRun(t *testing.T) {
	t.Run("InsertRemoveInverse", func(t *testing.T) {
		orig := concat(header3(2, 16), entryBytes(4, 10), entryBytes(4, 20))
		root := parse(t, valueLayout{}, orig)
		first := root.Elements(kindA)[0]
		require.True(t, first.CanRemove())

		v := newValue(15)
		idx, err := root.Insert(v, structure.After(first))
		require.NoError(t, err)
		require.Equal(t, root.IndexOf(first)+1, idx)
		require.Equal(t, 20, v.Offset())
		require.EqualValues(t, 3, root.Count(kindA).Value())
		require.EqualValues(t, 16, root.OffsetOf(kindA).Value())
		requireCovered(t, root)

		reparsed := parse(t, valueLayout{}, root.Bytes())
		require.Equal(t, []int64{10, 15, 20}, values(t, reparsed))

		removed, err := root.Remove(v, false)
		require.NoError(t, err)
		require.Same(t, v, removed)
		require.Nil(t, v.Parent())
		require.Equal(t, orig, root.Bytes())
	})

	t.Run("LazyOffset", func(t *testing.T) {
		orig := header3(0, structure.Unset)
		root := parse(t, valueLayout{}, orig)

		v := newValue(7)
		_, err := root.Insert(v)
		require.NoError(t, err)
		require.Equal(t, 16, v.Offset())
		require.EqualValues(t, 16, root.OffsetOf(kindA).Value())
		require.EqualValues(t, 1, root.Count(kindA).Value())

		_, err = root.Remove(v, true)
		require.NoError(t, err)
		require.EqualValues(t, structure.Unset, root.OffsetOf(kindA).Value())
		require.Equal(t, orig, root.Bytes())
	})

	t.Run("Clone", func(t *testing.T) {
		c := newValue(3).Clone()
		require.Equal(t, kindA, c.Kind())
		require.True(t, c.CanRemove())
	})

	t.Run("AttachedPanics", func(t *testing.T) {
		root := parse(t, valueLayout{}, concat(header3(1, 16), entryBytes(4, 1)))
		require.Panics(t, func() {
			structure.Element(root.Elements(kindA)[0], kindB)
		})
	})
}
