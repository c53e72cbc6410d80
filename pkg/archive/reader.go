package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/DataDog/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// DefaultCompressionLevel is the default compression level for encoding.
	DefaultCompressionLevel = zstd.BestSpeed
)

// Reader wraps an io.Reader to provide decompression of archive data.
type Reader struct {
	header    *Header
	codec     Codec
	zReader   io.ReadCloser
	headerBuf [HeaderSize]byte // Reusable buffer for header decoding
}

// NewReader creates a new archive reader from the given source.
// It reads and validates the header, then returns a reader for the decompressed content.
func NewReader(r io.Reader) (*Reader, error) {
	reader := &Reader{
		header: &Header{},
	}

	if _, err := io.ReadFull(r, reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if err := reader.header.UnmarshalBinary(reader.headerBuf[:]); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	reader.codec, _ = reader.header.Codec()

	switch reader.codec {
	case CodecLZ4:
		data, err := readBlock(r, reader.header)
		if err != nil {
			return nil, err
		}
		reader.zReader = io.NopCloser(bytes.NewReader(data))
	default:
		reader.zReader = zstd.NewReader(r)
	}
	return reader, nil
}

// readBlock decodes the LZ4 block following h. A block whose compressed
// length equals the content length is stored raw.
func readBlock(r io.Reader, h *Header) ([]byte, error) {
	comp := make([]byte, h.CompressedLength)
	if _, err := io.ReadFull(r, comp); err != nil {
		return nil, fmt.Errorf("read block: %w", err)
	}
	if h.CompressedLength == h.Length {
		return comp, nil
	}

	dec := make([]byte, h.Length)
	n, err := lz4.UncompressBlock(comp, dec)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != len(dec) {
		return nil, fmt.Errorf("lz4 decompressed size invalid: got %d, expected %d", n, len(dec))
	}
	return dec, nil
}

// Header returns the archive header.
func (r *Reader) Header() *Header {
	return r.header
}

// Codec returns the codec of the archive.
func (r *Reader) Codec() Codec {
	return r.codec
}

// Read reads decompressed data into p.
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.zReader.Read(p)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.zReader.Close()
}

// Length returns the uncompressed data length.
func (r *Reader) Length() int {
	return int(r.header.Length)
}

// CompressedLength returns the compressed data length.
func (r *Reader) CompressedLength() int {
	return int(r.header.CompressedLength)
}

// ReadAll reads the entire decompressed content from an archive.
func ReadAll(r io.Reader) ([]byte, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data := make([]byte, reader.Length())
	n, err := io.ReadFull(reader, data)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if n != reader.Length() {
		return nil, fmt.Errorf("incomplete read: expected %d, got %d", reader.Length(), n)
	}

	return data, nil
}

// Decode returns the content of an archive held in memory.
func Decode(data []byte) ([]byte, error) {
	return ReadAll(bytes.NewReader(data))
}
