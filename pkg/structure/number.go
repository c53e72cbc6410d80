package structure

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DirRole tells whether a Number is a directory entry and which one.
type DirRole uint8

const (
	NotDirectory DirRole = iota
	CountDirectory
	OffsetDirectory
)

// Unset is the offset directory value of an empty run that has never been
// placed.
const Unset = 0

// Number is a little-endian integer of 1, 2, 4 or 8 bytes.
//
// A Number may act as a directory entry: a count directory records how many
// elements of a Kind exist, an offset directory records where the first one
// starts.
type Number struct {
	base
	width  int
	signed bool
	value  int64

	role   DirRole
	tracks Kind
	lazy   bool // offset base was placed by the first insertion into an unset run
}

// NewNumber returns an unsigned (or signed) integer field of the given width.
func NewNumber(name string, width int, signed bool) *Number {
	switch width {
	case 1, 2, 4, 8:
	default:
		panic(fmt.Sprintf("structure: invalid number width %d", width))
	}
	return &Number{base: base{name: name}, width: width, signed: signed}
}

// NewCount returns a count directory entry for kind.
func NewCount(name string, width int, kind Kind) *Number {
	n := NewNumber(name, width, false)
	n.role = CountDirectory
	n.tracks = kind
	return n
}

// NewOffset returns an offset directory entry for kind.
func NewOffset(name string, width int, kind Kind) *Number {
	n := NewNumber(name, width, false)
	n.role = OffsetDirectory
	n.tracks = kind
	return n
}

func (n *Number) Size() int    { return n.width }
func (n *Number) End() int     { return n.offset + n.width }
func (n *Number) Value() int64 { return n.value }
func (n *Number) Signed() bool { return n.signed }

// Directory returns the directory role of n and the Kind it describes.
func (n *Number) Directory() (DirRole, Kind) {
	return n.role, n.tracks
}

// SetValue stores v and reports the change to observers of the tree.
func (n *Number) SetValue(v int64) {
	n.set(v)
	if n.parent != nil {
		n.parent.notify(Updated, n, n.parent.indexOf(n))
	}
}

func (n *Number) set(v int64) {
	n.value = v
}

func (n *Number) Read(buf []byte, offset int) (int, error) {
	if offset < 0 || offset+n.width > len(buf) {
		return 0, truncated(n.name, offset, n.width, len(buf)-offset)
	}
	n.offset = offset
	data := buf[offset : offset+n.width]
	switch n.width {
	case 1:
		if n.signed {
			n.value = int64(int8(data[0]))
		} else {
			n.value = int64(data[0])
		}
	case 2:
		v := binary.LittleEndian.Uint16(data)
		if n.signed {
			n.value = int64(int16(v))
		} else {
			n.value = int64(v)
		}
	case 4:
		v := binary.LittleEndian.Uint32(data)
		if n.signed {
			n.value = int64(int32(v))
		} else {
			n.value = int64(v)
		}
	case 8:
		n.value = int64(binary.LittleEndian.Uint64(data))
	}
	return n.End(), nil
}

// EncodeTo writes the value to buf, which must be at least Size bytes.
func (n *Number) EncodeTo(buf []byte) {
	switch n.width {
	case 1:
		buf[0] = byte(n.value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(n.value))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(n.value))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(n.value))
	}
}

func (n *Number) WriteTo(w io.Writer) (int64, error) {
	var buf [8]byte
	n.EncodeTo(buf[:n.width])
	return writeAll(w, buf[:n.width])
}

func (n *Number) Clone() Field {
	c := *n
	c.parent = nil
	return &c
}

func (n *Number) String() string {
	return fmt.Sprintf("%s=%d", n.name, n.value)
}
