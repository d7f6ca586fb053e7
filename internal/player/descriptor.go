package player

import (
	"errors"
	"strings"
)

type SourceKind string

const (
	SourceURL  SourceKind = "url"
	SourceFile SourceKind = "file"
)

// Descriptor identifies one media source plus its ordered tuning options.
// It is immutable: every accessor returns a copy.
type Descriptor struct {
	kind     SourceKind
	location string
	options  []Option
}

func NewURLDescriptor(rawURL string, options ...Option) Descriptor {
	return newDescriptor(SourceURL, rawURL, options)
}

func NewFileDescriptor(path string, options ...Option) Descriptor {
	return newDescriptor(SourceFile, path, options)
}

func newDescriptor(kind SourceKind, location string, options []Option) Descriptor {
	copied := make([]Option, len(options))
	copy(copied, options)

	return Descriptor{
		kind:     kind,
		location: strings.TrimSpace(location),
		options:  copied,
	}
}

func (d Descriptor) Kind() SourceKind {
	return d.kind
}

func (d Descriptor) Location() string {
	return d.location
}

func (d Descriptor) Options() []Option {
	copied := make([]Option, len(d.options))
	copy(copied, d.options)
	return copied
}

// WithOptions returns a new descriptor with extra options appended after the
// existing ones.
func (d Descriptor) WithOptions(extra ...Option) Descriptor {
	options := make([]Option, 0, len(d.options)+len(extra))
	options = append(options, d.options...)
	options = append(options, extra...)
	return newDescriptor(d.kind, d.location, options)
}

// WithDefaults returns a new descriptor with defaults placed before the
// existing options, so the descriptor's own options still win.
func (d Descriptor) WithDefaults(defaults ...Option) Descriptor {
	options := make([]Option, 0, len(d.options)+len(defaults))
	options = append(options, defaults...)
	options = append(options, d.options...)
	return newDescriptor(d.kind, d.location, options)
}

func (d Descriptor) IsRTSP() bool {
	if d.kind != SourceURL {
		return false
	}

	lower := strings.ToLower(d.location)
	return strings.HasPrefix(lower, "rtsp://") || strings.HasPrefix(lower, "rtsps://")
}

func (d Descriptor) validate() error {
	switch d.kind {
	case SourceURL, SourceFile:
	default:
		return errors.New("unknown source kind")
	}

	if d.location == "" {
		return errors.New("source location is required")
	}

	for _, option := range d.options {
		if strings.TrimSpace(option.Key) == "" {
			return errors.New("option with empty key")
		}
	}

	return nil
}
