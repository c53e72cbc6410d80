package structure

import (
	"encoding/binary"
	"fmt"
)

// Decoder is a cursor used by a Layout to read a node's children in
// declared order. The first error is kept and every later call becomes a
// no-op, so a layout can decode a whole header and check Err once.
type Decoder struct {
	node *Node
	buf  []byte
	pos  int
	err  error
}

func newDecoder(n *Node, buf []byte, offset int) *Decoder {
	return &Decoder{node: n, buf: buf, pos: offset}
}

// Node returns the node being decoded.
func (d *Decoder) Node() *Node { return d.node }

// Buffer returns the whole input buffer.
func (d *Decoder) Buffer() []byte { return d.buf }

// Pos returns the absolute offset of the cursor.
func (d *Decoder) Pos() int { return d.pos }

// Err returns the first error met while decoding.
func (d *Decoder) Err() error { return d.err }

// Fail records err unless an error is already stored.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Seek moves the cursor to an absolute offset.
func (d *Decoder) Seek(offset int) {
	if d.err != nil {
		return
	}
	if offset < 0 || offset > len(d.buf) {
		d.err = truncated(d.node.name, offset, 0, len(d.buf)-offset)
		return
	}
	d.pos = offset
}

// Add reads f at the cursor, appends it to the node and advances past it.
func (d *Decoder) Add(f Field) Field {
	if d.err != nil {
		return f
	}
	next, err := f.Read(d.buf, d.pos)
	if err != nil {
		d.err = err
		return f
	}
	d.node.add(f)
	d.pos = next
	return f
}

// Uint reads an unsigned integer of width bytes.
func (d *Decoder) Uint(name string, width int) *Number {
	n := NewNumber(name, width, false)
	d.Add(n)
	return n
}

// Int reads a signed integer of width bytes.
func (d *Decoder) Int(name string, width int) *Number {
	n := NewNumber(name, width, true)
	d.Add(n)
	return n
}

// Count reads a count directory entry for kind.
func (d *Decoder) Count(name string, width int, kind Kind) *Number {
	n := NewCount(name, width, kind)
	d.Add(n)
	return n
}

// Offset reads an offset directory entry for kind.
func (d *Decoder) Offset(name string, width int, kind Kind) *Number {
	n := NewOffset(name, width, kind)
	d.Add(n)
	return n
}

// Bytes reads size raw bytes.
func (d *Decoder) Bytes(name string, size int) *Bytes {
	b := NewBytes(name, size)
	d.Add(b)
	return b
}

// Text reads a fixed-width string.
func (d *Decoder) Text(name string, size int) *Text {
	t := NewText(name, size)
	d.Add(t)
	return t
}

// Signature reads a fixed-width string and fails with InvalidSignature when
// it does not match want.
func (d *Decoder) Signature(name, want string) *Text {
	off := d.pos
	t := d.Text(name, len(want))
	if d.err == nil && string(t.raw) != want {
		d.err = &ParseError{
			Reason: InvalidSignature,
			Name:   name,
			Offset: off,
			Detail: fmt.Sprintf("expected %q, got %q", want, t.raw),
		}
	}
	return t
}

// Code reads a script payload of size bytes.
func (d *Decoder) Code(name string, size int) *Code {
	c := NewCode(name, size)
	d.Add(c)
	return c
}

// PeekUint returns the unsigned integer of width bytes at offset without
// consuming it. It is meant for discriminators and directory values that
// must be known before the fields are added.
func (d *Decoder) PeekUint(offset, width int) uint64 {
	if d.err != nil {
		return 0
	}
	if offset < 0 || offset+width > len(d.buf) {
		d.err = truncated(d.node.name, offset, width, len(d.buf)-offset)
		return 0
	}
	data := d.buf[offset : offset+width]
	switch width {
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(data))
	case 4:
		return uint64(binary.LittleEndian.Uint32(data))
	case 8:
		return binary.LittleEndian.Uint64(data)
	}
	d.err = fmt.Errorf("peek %q: invalid width %d", d.node.name, width)
	return 0
}

// UnknownVariant records an UnknownVariant error for a discriminator value.
func (d *Decoder) UnknownVariant(name string, offset int, value uint64) {
	d.Fail(&ParseError{
		Reason: UnknownVariant,
		Name:   name,
		Offset: offset,
		Detail: fmt.Sprintf("no decoder for value %d", value),
	})
}
