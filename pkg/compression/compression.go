// Package compression wraps profile inputs and report outputs in gzip or
// zstd streams, detecting the codec of inputs from their magic bytes.
package compression

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Type is a compression codec.
type Type string

const (
	TypeNone Type = "none"
	TypeGzip Type = "gzip"
	TypeZstd Type = "zstd"
)

// Level represents the compression level.
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 3
	LevelBest    Level = 9
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ParseType parses a codec name. The empty string means none.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return TypeNone, nil
	case "gzip", "gz":
		return TypeGzip, nil
	case "zstd", "zst":
		return TypeZstd, nil
	}
	return "", fmt.Errorf("unknown compression %q", name)
}

// Extension returns the file suffix of t, including the dot.
func (t Type) Extension() string {
	switch t {
	case TypeGzip:
		return ".gz"
	case TypeZstd:
		return ".zst"
	}
	return ""
}

// DetectType identifies the codec of data from its first bytes.
func DetectType(data []byte) Type {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return TypeGzip
	case bytes.HasPrefix(data, zstdMagic):
		return TypeZstd
	}
	return TypeNone
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter compresses everything written to the returned writer into w.
// Close flushes the stream but does not close w.
func NewWriter(w io.Writer, t Type, level Level) (io.WriteCloser, error) {
	switch t {
	case TypeNone, "":
		return nopWriteCloser{w}, nil
	case TypeGzip:
		gz, err := gzip.NewWriterLevel(w, gzipLevel(level))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		return gz, nil
	case TypeZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		return zw, nil
	}
	return nil, fmt.Errorf("unknown compression %q", t)
}

func gzipLevel(level Level) int {
	switch level {
	case LevelFastest:
		return gzip.BestSpeed
	case LevelBest:
		return gzip.BestCompression
	}
	return gzip.DefaultCompression
}

func zstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case LevelFastest:
		return zstd.SpeedFastest
	case LevelBest:
		return zstd.SpeedBestCompression
	}
	return zstd.SpeedDefault
}

type zstdReadCloser struct{ *zstd.Decoder }

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// NewReader returns a reader that transparently decompresses r, together
// with the detected codec. Close releases the decoder but not r.
func NewReader(r io.Reader) (io.ReadCloser, Type, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, TypeNone, fmt.Errorf("failed to read input: %w", err)
	}

	t := DetectType(head)
	switch t {
	case TypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, t, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, t, nil
	case TypeZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, t, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return zstdReadCloser{zr}, t, nil
	}
	return io.NopCloser(br), TypeNone, nil
}

// Compress compresses data in one call.
func Compress(data []byte, t Type, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, t, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write %s data: %w", t, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s writer: %w", t, err)
	}
	return buf.Bytes(), nil
}

// Decompress decompresses data of any supported codec. Uncompressed data
// is returned unchanged.
func Decompress(data []byte) ([]byte, error) {
	r, _, err := NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
