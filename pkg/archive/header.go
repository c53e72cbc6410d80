// Package archive provides the compressed envelope resources are stored in:
// a 24-byte header followed by a ZSTD stream or an LZ4 block.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Magic bytes identifying a ZSTD archive header.
var Magic = [4]byte{0x5a, 0x53, 0x54, 0x44} // "ZSTD"

// MagicLZ4 identifies an archive holding a single LZ4 block.
var MagicLZ4 = [4]byte{0x4c, 0x5a, 0x34, 0x42} // "LZ4B"

// HeaderSize is the fixed binary size of an archive header.
const HeaderSize = 24 // 4 + 4 + 8 + 8 bytes

// ErrUnknownCodec is returned for a magic or codec name that is not supported.
var ErrUnknownCodec = errors.New("unknown codec")

// Codec selects the compression used inside an archive.
type Codec uint8

const (
	CodecZstd Codec = iota
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// Magic returns the header magic written for c.
func (c Codec) Magic() [4]byte {
	if c == CodecLZ4 {
		return MagicLZ4
	}
	return Magic
}

// ParseCodec returns the codec named s ("zstd" or "lz4").
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "zstd", "":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	}
	return 0, fmt.Errorf("parse codec %q: %w", s, ErrUnknownCodec)
}

// Header represents the header of a compressed archive file.
type Header struct {
	Magic            [4]byte
	HeaderLength     uint32
	Length           uint64 // Uncompressed size
	CompressedLength uint64 // Compressed size
}

// Size returns the binary size of the header.
func (h *Header) Size() int {
	return HeaderSize
}

// Codec returns the codec announced by the magic.
func (h *Header) Codec() (Codec, error) {
	switch h.Magic {
	case Magic:
		return CodecZstd, nil
	case MagicLZ4:
		return CodecLZ4, nil
	}
	return 0, fmt.Errorf("magic %x: %w", h.Magic, ErrUnknownCodec)
}

// Validate checks the header for validity.
func (h *Header) Validate() error {
	if _, err := h.Codec(); err != nil {
		return fmt.Errorf("invalid magic: %w", err)
	}
	if h.HeaderLength != 16 {
		return fmt.Errorf("invalid header length: expected 16, got %d", h.HeaderLength)
	}
	if h.Length == 0 {
		return fmt.Errorf("uncompressed size is zero")
	}
	if h.CompressedLength == 0 {
		return fmt.Errorf("compressed size is zero")
	}
	return nil
}

// MarshalBinary encodes the header to binary format.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the header to the given buffer.
// The buffer must be at least HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.HeaderLength)
	binary.LittleEndian.PutUint64(buf[8:16], h.Length)
	binary.LittleEndian.PutUint64(buf[16:24], h.CompressedLength)
}

// UnmarshalBinary decodes and validates the header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("header data too short: need %d, got %d", HeaderSize, len(data))
	}
	h.DecodeFrom(data)
	return h.Validate()
}

// DecodeFrom reads the header from the given buffer without validating it.
func (h *Header) DecodeFrom(data []byte) {
	copy(h.Magic[:], data[0:4])
	h.HeaderLength = binary.LittleEndian.Uint32(data[4:8])
	h.Length = binary.LittleEndian.Uint64(data[8:16])
	h.CompressedLength = binary.LittleEndian.Uint64(data[16:24])
}

// NewHeader creates a new ZSTD archive header with the given sizes.
func NewHeader(uncompressedSize, compressedSize uint64) *Header {
	return &Header{
		Magic:            Magic,
		HeaderLength:     16,
		Length:           uncompressedSize,
		CompressedLength: compressedSize,
	}
}

// IsArchive reports whether data starts with a valid archive header.
func IsArchive(data []byte) bool {
	var h Header
	return h.UnmarshalBinary(data) == nil
}
