package structure

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// FillerName labels the synthetic fields that cover undeclared bytes.
const FillerName = "Unknown"

// Bytes is an opaque run of bytes of fixed length.
type Bytes struct {
	base
	data []byte
}

// NewBytes returns a raw field of size bytes.
func NewBytes(name string, size int) *Bytes {
	return &Bytes{base: base{name: name}, data: make([]byte, size)}
}

func newFiller(offset int, data []byte) *Bytes {
	f := &Bytes{base: base{name: FillerName, offset: offset}, data: make([]byte, len(data))}
	copy(f.data, data)
	return f
}

func (b *Bytes) Size() int { return len(b.data) }
func (b *Bytes) End() int  { return b.offset + len(b.data) }

// Data returns the field content. The slice must not be modified.
func (b *Bytes) Data() []byte { return b.data }

// SetData replaces the content. The length cannot change.
func (b *Bytes) SetData(p []byte) error {
	if len(p) != len(b.data) {
		return fmt.Errorf("set %q: size mismatch: expected %d, got %d", b.name, len(b.data), len(p))
	}
	copy(b.data, p)
	if b.parent != nil {
		b.parent.notify(Updated, b, b.parent.indexOf(b))
	}
	return nil
}

func (b *Bytes) Read(buf []byte, offset int) (int, error) {
	if offset < 0 || offset+len(b.data) > len(buf) {
		return 0, truncated(b.name, offset, len(b.data), len(buf)-offset)
	}
	b.offset = offset
	copy(b.data, buf[offset:])
	return b.End(), nil
}

func (b *Bytes) WriteTo(w io.Writer) (int64, error) {
	return writeAll(w, b.data)
}

func (b *Bytes) Clone() Field {
	c := &Bytes{base: b.detached(), data: make([]byte, len(b.data))}
	copy(c.data, b.data)
	return c
}

// Text is a fixed-width, NUL padded Windows-1252 string.
type Text struct {
	base
	raw []byte
}

// NewText returns a string field occupying size bytes.
func NewText(name string, size int) *Text {
	return &Text{base: base{name: name}, raw: make([]byte, size)}
}

func (t *Text) Size() int { return len(t.raw) }
func (t *Text) End() int  { return t.offset + len(t.raw) }

// Value decodes the string up to the first NUL byte.
func (t *Text) Value() string {
	raw := t.raw
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

// SetValue encodes s, padding with NUL bytes.
func (t *Text) SetValue(s string) error {
	enc, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return fmt.Errorf("encode %q: %w", t.name, err)
	}
	if len(enc) > len(t.raw) {
		return fmt.Errorf("encode %q: string too long: %d > %d bytes", t.name, len(enc), len(t.raw))
	}
	clear(t.raw)
	copy(t.raw, enc)
	if t.parent != nil {
		t.parent.notify(Updated, t, t.parent.indexOf(t))
	}
	return nil
}

func (t *Text) Read(buf []byte, offset int) (int, error) {
	if offset < 0 || offset+len(t.raw) > len(buf) {
		return 0, truncated(t.name, offset, len(t.raw), len(buf)-offset)
	}
	t.offset = offset
	copy(t.raw, buf[offset:])
	return t.End(), nil
}

func (t *Text) WriteTo(w io.Writer) (int64, error) {
	return writeAll(w, t.raw)
}

func (t *Text) Clone() Field {
	c := &Text{base: t.detached(), raw: make([]byte, len(t.raw))}
	copy(c.raw, t.raw)
	return c
}

func (t *Text) String() string {
	return fmt.Sprintf("%s=%q", t.name, t.Value())
}
