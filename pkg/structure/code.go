package structure

import (
	"bytes"
	"fmt"
	"io"
)

// Code is an embedded script payload made of newline terminated lines.
// Flattening a tree replaces a Code field with one leaf per line.
type Code struct {
	base
	src []byte
}

// NewCode returns a script payload of size bytes.
func NewCode(name string, size int) *Code {
	return &Code{base: base{name: name}, src: make([]byte, size)}
}

func (c *Code) Size() int { return len(c.src) }
func (c *Code) End() int  { return c.offset + len(c.src) }

// Source returns the raw payload. The slice must not be modified.
func (c *Code) Source() []byte { return c.src }

// Lines splits the payload into lines, each keeping its terminator.
func (c *Code) Lines() [][]byte {
	var lines [][]byte
	rest := c.src
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			lines = append(lines, rest)
			break
		}
		lines = append(lines, rest[:i+1])
		rest = rest[i+1:]
	}
	return lines
}

// Leaves returns one Bytes field per line, positioned at the line's absolute
// offset and owned by the node owning c.
func (c *Code) Leaves() []Field {
	lines := c.Lines()
	leaves := make([]Field, 0, len(lines))
	off := c.offset
	for i, line := range lines {
		leaf := newFiller(off, line)
		leaf.name = fmt.Sprintf("%s line %d", c.name, i+1)
		leaf.parent = c.parent
		leaves = append(leaves, leaf)
		off += len(line)
	}
	return leaves
}

func (c *Code) Read(buf []byte, offset int) (int, error) {
	if offset < 0 || offset+len(c.src) > len(buf) {
		return 0, truncated(c.name, offset, len(c.src), len(buf)-offset)
	}
	c.offset = offset
	copy(c.src, buf[offset:])
	return c.End(), nil
}

func (c *Code) WriteTo(w io.Writer) (int64, error) {
	return writeAll(w, c.src)
}

func (c *Code) Clone() Field {
	d := &Code{base: c.detached(), src: make([]byte, len(c.src))}
	copy(d.src, c.src)
	return d
}
