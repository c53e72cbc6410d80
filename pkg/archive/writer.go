package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/DataDog/zstd"
	"github.com/pierrec/lz4/v4"
)

// Writer wraps an io.WriteSeeker to provide compression of archive data.
type Writer struct {
	dst     io.WriteSeeker
	zWriter io.WriteCloser
	header  *Header
	codec   Codec
	level   int
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the compression level for the writer. For LZ4,
// a level above DefaultCompressionLevel selects the HC compressor with that
// search depth.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// WithCodec selects the codec. ZSTD is the default.
func WithCodec(c Codec) WriterOption {
	return func(w *Writer) {
		w.codec = c
	}
}

// NewWriter creates a new archive writer that writes to dst.
// The uncompressedSize is the expected size of the uncompressed data.
func NewWriter(dst io.WriteSeeker, uncompressedSize uint64, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dst:   dst,
		level: DefaultCompressionLevel,
	}

	for _, opt := range opts {
		opt(w)
	}
	if w.codec != CodecZstd && w.codec != CodecLZ4 {
		return nil, fmt.Errorf("new writer: %s: %w", w.codec, ErrUnknownCodec)
	}

	w.header = &Header{
		Magic:            w.codec.Magic(),
		HeaderLength:     16,
		Length:           uncompressedSize,
		CompressedLength: 0, // Will be updated after writing
	}

	// Write placeholder header
	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal header: %w", err)
	}
	if _, err := dst.Write(headerBytes); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	switch w.codec {
	case CodecLZ4:
		w.zWriter = &blockWriter{dst: dst, level: w.level}
	default:
		w.zWriter = zstd.NewWriterLevel(dst, w.level)
	}
	return w, nil
}

// Write writes compressed data.
func (w *Writer) Write(p []byte) (n int, err error) {
	return w.zWriter.Write(p)
}

// Close finalizes the archive by updating the header with the compressed size.
func (w *Writer) Close() error {
	if err := w.zWriter.Close(); err != nil {
		return fmt.Errorf("close compressor: %w", err)
	}

	// Get current position to determine compressed size
	pos, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}

	w.header.CompressedLength = uint64(pos) - uint64(w.header.Size())

	if _, err := w.dst.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to start: %w", err)
	}

	headerBytes, err := w.header.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	if _, err := w.dst.Write(headerBytes); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if _, err := w.dst.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	return nil
}

// Encode compresses data and writes it as an archive to dst.
func Encode(dst io.WriteSeeker, data []byte, opts ...WriterOption) error {
	w, err := NewWriter(dst, uint64(len(data)), opts...)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}

	return w.Close()
}

// blockWriter collects the whole content and emits it as one LZ4 block on
// Close. Content that does not shrink is stored raw.
type blockWriter struct {
	dst   io.Writer
	buf   bytes.Buffer
	level int
}

func (b *blockWriter) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

func (b *blockWriter) Close() error {
	src := b.buf.Bytes()
	dst := make([]byte, lz4.CompressBlockBound(len(src)))

	var n int
	var err error
	if b.level > DefaultCompressionLevel {
		n, err = lz4.CompressBlockHC(src, dst, lz4.CompressionLevel(b.level), nil, nil)
	} else {
		n, err = lz4.CompressBlock(src, dst, nil)
	}
	if err != nil {
		return fmt.Errorf("lz4 compress: %w", err)
	}

	out := dst[:n]
	if n == 0 || n >= len(src) {
		out = src
	}
	if _, err := b.dst.Write(out); err != nil {
		return fmt.Errorf("write block: %w", err)
	}
	return nil
}
