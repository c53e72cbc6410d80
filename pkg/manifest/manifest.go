// Package manifest provides the EVR manifest format as a resource tree: a
// header with three section descriptors followed by the frame content,
// file metadata and frame tables.
package manifest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/EchoTools/resedit/pkg/archive"
	"github.com/EchoTools/resedit/pkg/structure"
)

// Table kinds, in file order.
const (
	KindFrameContent structure.Kind = iota + 1
	KindMetadata
	KindFrame
)

const (
	HeaderSize       = 192
	SectionSize      = 48
	FrameContentSize = 32
	MetadataSize     = 40
	FrameSize        = 16
)

// FrameContent describes a file within a frame.
type FrameContent struct {
	TypeSymbol int64  // File type identifier
	FileSymbol int64  // File identifier
	FrameIndex uint32 // Index into Frames array
	DataOffset uint32 // Byte offset within decompressed frame
	Size       uint32 // File size in bytes
	Alignment  uint32 // Alignment (can be set to 1)
}

// FileMetadata contains additional file metadata.
type FileMetadata struct {
	TypeSymbol int64 // File type identifier
	FileSymbol int64 // File identifier
	Unk1       int64 // Unknown - game launches with 0
	Unk2       int64 // Unknown - game launches with 0
	AssetType  int64 // Asset type identifier
}

// Frame describes a compressed data frame within a package.
type Frame struct {
	PackageIndex   uint32 // Package file index
	Offset         uint32 // Byte offset within package
	CompressedSize uint32 // Compressed frame size
	Length         uint32 // Decompressed frame size
}

// Entry is one of FrameContent, FileMetadata or Frame.
type Entry interface {
	FrameContent | FileMetadata | Frame
}

type table struct {
	kind   structure.Kind
	prefix string
	name   string
	size   int
}

var tables = []table{
	{KindFrameContent, "Frame contents", "Frame content", FrameContentSize},
	{KindMetadata, "Metadata", "File metadata", MetadataSize},
	{KindFrame, "Frames", "Frame", FrameSize},
}

func tableOf(kind structure.Kind) table {
	return tables[kind-1]
}

// Manifest is a parsed EVR manifest.
type Manifest struct {
	root *structure.Node
}

// New returns a manifest with empty tables.
func New(packageCount uint32) *Manifest {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf, packageCount)
	for i, t := range tables {
		binary.LittleEndian.PutUint64(buf[sectionOffset(i)+24:], uint64(t.size))
	}
	m := &Manifest{}
	// An empty header always decodes.
	_ = m.UnmarshalBinary(buf)
	return m
}

func sectionOffset(i int) int {
	return 16 + i*(SectionSize+16)
}

// Node returns the underlying resource tree.
func (m *Manifest) Node() *structure.Node {
	return m.root
}

// PackageCount returns the number of packages referenced by this manifest.
func (m *Manifest) PackageCount() int {
	return int(m.number("Package count").Value())
}

// FileCount returns the number of files in this manifest.
func (m *Manifest) FileCount() int {
	return len(m.root.Children(KindFrameContent))
}

// FrameContents returns a copy of the frame content table.
func (m *Manifest) FrameContents() []FrameContent {
	return entries[FrameContent](m, KindFrameContent)
}

// Metadata returns a copy of the file metadata table.
func (m *Manifest) Metadata() []FileMetadata {
	return entries[FileMetadata](m, KindMetadata)
}

// Frames returns a copy of the frame table.
func (m *Manifest) Frames() []Frame {
	return entries[Frame](m, KindFrame)
}

func entries[E Entry](m *Manifest, kind structure.Kind) []E {
	nodes := m.root.Children(kind)
	out := make([]E, len(nodes))
	for i, n := range nodes {
		// Node size always matches the entry size.
		_ = binary.Read(bytes.NewReader(n.Bytes()), binary.LittleEndian, &out[i])
	}
	return out
}

// Add appends e to its table and updates the section descriptor.
func Add[E Entry](m *Manifest, e E) error {
	var kind structure.Kind
	switch any(e).(type) {
	case FrameContent:
		kind = KindFrameContent
	case FileMetadata:
		kind = KindMetadata
	case Frame:
		kind = KindFrame
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, e); err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	n := newEntryNode(kind)
	if _, err := n.Read(buf.Bytes(), 0); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}
	if _, err := m.root.Insert(n); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	m.syncSection(kind)
	return nil
}

// Remove deletes the i-th entry of the table holding kind.
func (m *Manifest) Remove(kind structure.Kind, i int) error {
	nodes := m.root.Children(kind)
	if i < 0 || i >= len(nodes) {
		return fmt.Errorf("remove entry %d of %d: %w", i, len(nodes), structure.ErrIndexOutOfRange)
	}
	if _, err := m.root.Remove(nodes[i], false); err != nil {
		return fmt.Errorf("remove entry: %w", err)
	}
	m.syncSection(kind)
	return nil
}

// syncSection keeps Count and Length in step with the element count.
func (m *Manifest) syncSection(kind structure.Kind) {
	t := tableOf(kind)
	n := m.root.Count(kind).Value()
	m.number(t.prefix + " count").SetValue(n)
	m.number(t.prefix + " length").SetValue(n * int64(t.size))
}

func (m *Manifest) number(name string) *structure.Number {
	return m.root.FieldByName(name, false).(*structure.Number)
}

// UnmarshalBinary decodes a manifest from binary data.
func (m *Manifest) UnmarshalBinary(data []byte) error {
	root := structure.NewNode("Manifest", structure.KindNone, manifestLayout{})
	if _, err := root.Read(data, 0); err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	m.root = root
	return nil
}

// MarshalBinary encodes a manifest to binary data.
func (m *Manifest) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.root.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a manifest.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadFile reads and parses a manifest from a file.
func ReadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	data, err := archive.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	manifest := &Manifest{}
	if err := manifest.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return manifest, nil
}

// WriteFile writes a manifest to a file.
func WriteFile(path string, m *Manifest, opts ...archive.WriterOption) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if err := archive.Encode(f, data, opts...); err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}

	m.root.ClearChanged()
	return nil
}
