// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/woozymasta/lzss"
	"github.com/woozymasta/pathrules"
)

// CompressionMethod names one of the archive's negotiable compression
// methods. The empty string is the implicit None method, which is never
// stored in the trailer's method-name table.
type CompressionMethod string

// Well-known compression method names recognized by the format.
const (
	MethodNone   CompressionMethod = ""
	MethodZlib   CompressionMethod = "Zlib"
	MethodGzip   CompressionMethod = "Gzip"
	MethodOodle  CompressionMethod = "Oodle"
	MethodLZ4    CompressionMethod = "LZ4"
	MethodCustom CompressionMethod = "Custom"
)

// CompressionAdapter implements one compression method's codec:
// compress(in, level) -> out, decompress(in, outSize) -> out.
type CompressionAdapter interface {
	Compress(in []byte, level int) ([]byte, error)
	Decompress(in []byte, outSize int) ([]byte, error)
}

type noneAdapter struct{}

func (noneAdapter) Compress(in []byte, _ int) ([]byte, error) { return in, nil }
func (noneAdapter) Decompress(in []byte, outSize int) ([]byte, error) {
	if len(in) != outSize {
		return nil, fmt.Errorf("none adapter: %d bytes in, %d expected: %w", len(in), outSize, ErrMalformedData)
	}
	return in, nil
}

// zlibAdapter wraps github.com/klauspost/compress/zlib, a drop-in faster
// replacement for compress/zlib's API.
type zlibAdapter struct{}

func (zlibAdapter) Compress(in []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, normalizeLevel(level))
	if err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if _, err := w.Write(in); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (zlibAdapter) Decompress(in []byte, outSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	defer r.Close()
	out := make([]byte, outSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return out, nil
}

// gzipAdapter wraps github.com/klauspost/compress/gzip.
type gzipAdapter struct{}

func (gzipAdapter) Compress(in []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, normalizeLevel(level))
	if err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if _, err := w.Write(in); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (gzipAdapter) Decompress(in []byte, outSize int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	defer r.Close()
	out := make([]byte, outSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	return out, nil
}

// LZSSAdapter wraps github.com/woozymasta/lzss. It is not wired to any
// method by default; callers wanting an LZSS-backed Custom method register
// it explicitly:
//
//	upak.RegisterAdapter(upak.MethodCustom, upak.LZSSAdapter{})
type LZSSAdapter struct{}

// Compress implements CompressionAdapter. The level argument is ignored;
// LZSS has no tunable level.
func (LZSSAdapter) Compress(in []byte, _ int) ([]byte, error) {
	return lzss.Compress(in, lzss.DefaultCompressOptions())
}

// Decompress implements CompressionAdapter.
func (LZSSAdapter) Decompress(in []byte, outSize int) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(outSize)
	if _, err := lzss.DecompressToWriter(&out, bytes.NewReader(in), outSize, nil); err != nil {
		return nil, fmt.Errorf("lzss decompress: %w", err)
	}
	return out.Bytes(), nil
}

func normalizeLevel(level int) int {
	if level <= 0 {
		return zlib.DefaultCompression
	}
	if level > zlib.BestCompression {
		return zlib.BestCompression
	}
	return level
}

var (
	adapterMu sync.RWMutex
	adapters  = map[CompressionMethod]CompressionAdapter{
		MethodNone: noneAdapter{},
		MethodZlib: zlibAdapter{},
		MethodGzip: gzipAdapter{},
	}
)

// RegisterAdapter installs (or replaces) the CompressionAdapter used for
// method. Oodle, LZ4, and Custom have no built-in codec and fail until a
// caller registers an adapter before Mount/Create encounters an entry
// using them.
func RegisterAdapter(method CompressionMethod, adapter CompressionAdapter) {
	adapterMu.Lock()
	defer adapterMu.Unlock()
	adapters[method] = adapter
}

func lookupAdapter(method CompressionMethod) (CompressionAdapter, error) {
	adapterMu.RLock()
	defer adapterMu.RUnlock()
	a, ok := adapters[method]
	if !ok {
		return nil, fmt.Errorf("method %q: %w", method, ErrCompressionNotRegistered)
	}
	return a, nil
}

// compressMatcher wraps a compiled pathrules.Matcher selecting which entry
// paths are eligible for compression during Create.
type compressMatcher struct {
	matcher *pathrules.Matcher
}

func newCompressMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*compressMatcher, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	m, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("compile compress rules: %w", err)
	}
	return &compressMatcher{matcher: m}, nil
}

// Match reports whether path is selected for compression.
func (m *compressMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	return m.matcher.Included(NormalizePath(path), false)
}
