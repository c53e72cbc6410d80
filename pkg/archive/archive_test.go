package archive

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeader(t *testing.T) {
	t.Run("MarshalUnmarshal", func(t *testing.T) {
		original := &Header{
			Magic:            Magic,
			HeaderLength:     16,
			Length:           1024,
			CompressedLength: 512,
		}

		data, err := original.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		decoded := &Header{}
		if err := decoded.UnmarshalBinary(data); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}

		if *decoded != *original {
			t.Errorf("mismatch: got %+v, want %+v", decoded, original)
		}
	})

	t.Run("InvalidMagic", func(t *testing.T) {
		h := &Header{
			Magic:            [4]byte{0x00, 0x00, 0x00, 0x00},
			HeaderLength:     16,
			Length:           1024,
			CompressedLength: 512,
		}
		if err := h.Validate(); err == nil {
			t.Error("expected error for invalid magic")
		}
	})

	t.Run("ZeroLength", func(t *testing.T) {
		h := &Header{
			Magic:            Magic,
			HeaderLength:     16,
			Length:           0,
			CompressedLength: 512,
		}
		if err := h.Validate(); err == nil {
			t.Error("expected error for zero length")
		}
	})
}

func TestCodec(t *testing.T) {
	t.Run("Parse", func(t *testing.T) {
		for name, want := range map[string]Codec{"zstd": CodecZstd, "LZ4": CodecLZ4, "": CodecZstd} {
			got, err := ParseCodec(name)
			if err != nil {
				t.Fatalf("parse %q: %v", name, err)
			}
			if got != want {
				t.Errorf("parse %q: got %s, want %s", name, got, want)
			}
		}
		if _, err := ParseCodec("brotli"); !errors.Is(err, ErrUnknownCodec) {
			t.Errorf("expected ErrUnknownCodec, got %v", err)
		}
	})

	t.Run("HeaderMagic", func(t *testing.T) {
		h := NewHeader(10, 5)
		h.Magic = MagicLZ4
		c, err := h.Codec()
		if err != nil {
			t.Fatalf("codec: %v", err)
		}
		if c != CodecLZ4 {
			t.Errorf("got %s, want lz4", c)
		}
	})
}

func TestReadWrite(t *testing.T) {
	original := []byte("Hello, World! This is test data for compression.")
	repetitive := bytes.Repeat([]byte("ITM V1  abilities and effects "), 64)

	cases := []struct {
		name string
		data []byte
		opts []WriterOption
	}{
		{"Zstd", original, nil},
		{"ZstdDefaultLevel", repetitive, []WriterOption{WithCompressionLevel(3)}},
		{"LZ4", repetitive, []WriterOption{WithCodec(CodecLZ4)}},
		{"LZ4HC", repetitive, []WriterOption{WithCodec(CodecLZ4), WithCompressionLevel(9)}},
		{"LZ4Incompressible", []byte("abc"), []WriterOption{WithCodec(CodecLZ4)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			ws := &seekableBuffer{Buffer: &buf}

			if err := Encode(ws, tc.data, tc.opts...); err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !IsArchive(buf.Bytes()) {
				t.Fatal("encoded data is not recognized as an archive")
			}

			decoded, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			if !bytes.Equal(decoded, tc.data) {
				t.Errorf("data mismatch: got %q, want %q", decoded, tc.data)
			}
		})
	}

	t.Run("LZ4Shrinks", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&seekableBuffer{Buffer: &buf}, repetitive, WithCodec(CodecLZ4)); err != nil {
			t.Fatalf("encode: %v", err)
		}
		r, err := NewReader(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("new reader: %v", err)
		}
		defer r.Close()
		if r.Codec() != CodecLZ4 {
			t.Errorf("got codec %s", r.Codec())
		}
		if r.CompressedLength() >= r.Length() {
			t.Errorf("block not compressed: %d >= %d", r.CompressedLength(), r.Length())
		}
	})

	t.Run("BadMagic", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&seekableBuffer{Buffer: &buf}, original); err != nil {
			t.Fatalf("encode: %v", err)
		}
		data := buf.Bytes()
		copy(data, "XXXX")
		if IsArchive(data) {
			t.Error("bad magic recognized as archive")
		}
		if _, err := Decode(data); !errors.Is(err, ErrUnknownCodec) {
			t.Errorf("expected ErrUnknownCodec, got %v", err)
		}
	})

	t.Run("ShortHeader", func(t *testing.T) {
		if _, err := Decode([]byte("ZSTD")); err == nil {
			t.Error("expected error for short header")
		}
	})
}

type seekableBuffer struct {
	*bytes.Buffer
	pos int64
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case 0:
		newPos = offset
	case 1:
		newPos = s.pos + offset
	case 2:
		newPos = int64(s.Buffer.Len()) + offset
	}
	s.pos = newPos
	return newPos, nil
}

func (s *seekableBuffer) Write(p []byte) (n int, err error) {
	for int64(s.Buffer.Len()) < s.pos {
		s.Buffer.WriteByte(0)
	}
	if s.pos < int64(s.Buffer.Len()) {
		data := s.Buffer.Bytes()
		n = copy(data[s.pos:], p)
		if n < len(p) {
			m, err := s.Buffer.Write(p[n:])
			n += m
			if err != nil {
				return n, err
			}
		}
	} else {
		n, err = s.Buffer.Write(p)
	}
	s.pos += int64(n)
	return n, err
}
