// Package resource loads resource files into structure trees and saves them
// back, unwrapping and rewrapping the archive envelope on the way.
package resource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/EchoTools/resedit/pkg/archive"
	"github.com/EchoTools/resedit/pkg/item"
	"github.com/EchoTools/resedit/pkg/manifest"
	"github.com/EchoTools/resedit/pkg/structure"
	"go.uber.org/zap"
)

// Format names a resource format family.
type Format string

const (
	FormatAuto     Format = ""
	FormatItem     Format = "item"
	FormatManifest Format = "manifest"
)

// ErrUnknownFormat is returned when no format matches the content or name.
var ErrUnknownFormat = errors.New("unknown resource format")

// ParseFormat returns the format named s. An empty name selects detection.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatAuto, FormatItem, FormatManifest:
		return f, nil
	}
	return "", fmt.Errorf("parse format %q: %w", s, ErrUnknownFormat)
}

// Resource is a parsed resource file.
type Resource struct {
	Format Format
	Root   *structure.Node

	// Archived is set when the file was stored inside an archive envelope,
	// and selects the envelope on save.
	Archived bool
	Codec    archive.Codec
}

// Changed reports whether the tree was modified since it was loaded or saved.
func (r *Resource) Changed() bool {
	return r.Root.Changed()
}

// Loader reads and writes resources.
type Loader struct {
	log   *zap.Logger
	level int
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) { ld.log = l }
}

// WithCompressionLevel sets the level used when saving archived resources.
func WithCompressionLevel(level int) Option {
	return func(ld *Loader) { ld.level = level }
}

// NewLoader returns a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		log:   zap.NewNop(),
		level: archive.DefaultCompressionLevel,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the file at path. With FormatAuto the format is detected from
// the content signature.
func (l *Loader) Load(path string, format Format) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resource: %w", err)
	}
	res, err := l.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	l.log.Debug("resource loaded",
		zap.String("path", path),
		zap.String("format", string(res.Format)),
		zap.Int("size", res.Root.Size()),
		zap.Bool("archived", res.Archived))
	return res, nil
}

// Parse decodes a resource held in memory.
func (l *Loader) Parse(data []byte, format Format) (*Resource, error) {
	res := &Resource{Format: format}

	if archive.IsArchive(data) {
		r, err := archive.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		res.Archived = true
		res.Codec = r.Codec()

		content := make([]byte, r.Length())
		_, err = io.ReadFull(r, content)
		if cerr := r.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("decode archive: %w", err)
		}
		data = content
		l.log.Debug("archive unwrapped",
			zap.Stringer("codec", res.Codec),
			zap.Int("length", len(data)))
	}

	if res.Format == FormatAuto {
		res.Format = detect(data)
		if res.Format == FormatAuto {
			return nil, fmt.Errorf("detect format: %w", ErrUnknownFormat)
		}
	}

	var err error
	switch res.Format {
	case FormatItem:
		res.Root, err = item.Parse(data)
	case FormatManifest:
		var m *manifest.Manifest
		if m, err = manifest.Parse(data); err == nil {
			res.Root = m.Node()
		}
	default:
		err = fmt.Errorf("format %q: %w", res.Format, ErrUnknownFormat)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func detect(data []byte) Format {
	if bytes.HasPrefix(data, []byte(item.Signature)) {
		return FormatItem
	}
	return FormatAuto
}

// Save writes res to path and clears its changed flag.
func (l *Loader) Save(path string, res *Resource) error {
	data := res.Root.Bytes()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if res.Archived {
		err = archive.Encode(f, data, archive.WithCodec(res.Codec), archive.WithCompressionLevel(l.level))
	} else {
		_, err = f.Write(data)
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	res.Root.ClearChanged()
	l.log.Info("resource saved",
		zap.String("path", path),
		zap.String("format", string(res.Format)),
		zap.Int("size", len(data)),
		zap.Bool("archived", res.Archived))
	return nil
}
