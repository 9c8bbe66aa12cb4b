// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"fmt"
	"io"
	"os"
)

// EntryInfo is a read-only metadata snapshot of a single archive entry,
// returned by ListEntries without materializing any payload bytes.
type EntryInfo struct {
	Path             string
	UncompressedSize int64
	CompressedSize   int64
	Method           CompressionMethod
	BlockCount       int
	Hash             [20]byte
}

// ListEntries opens path, parses its trailer and index, and returns every
// entry's metadata without reading or decompressing any payload. This is
// additive: a caller inspecting a large archive's contents shouldn't need a
// full Mount plus ReadEntry calls just to learn sizes and methods.
func ListEntries(path string) ([]EntryInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	return ListEntriesReaderAt(f, fi.Size())
}

// ListEntriesReaderAt is ListEntries against an already-open ReaderAt of
// known size, without taking ownership of it.
func ListEntriesReaderAt(ra io.ReaderAt, size int64) ([]EntryInfo, error) {
	if ra == nil {
		return nil, ErrNilReader
	}
	if size < trailerSize {
		return nil, ErrTrailerTooShort
	}
	trailer, err := decodeTrailer(io.NewSectionReader(ra, size-trailerSize, trailerSize))
	if err != nil {
		return nil, err
	}

	idx, err := decodeIndex(ra, trailer)
	if err != nil {
		return nil, err
	}

	keys := idx.Entries.Keys()
	values := idx.Entries.Values()
	out := make([]EntryInfo, len(keys))
	for i, k := range keys {
		e := values[i]
		out[i] = EntryInfo{
			Path:             k.String(),
			UncompressedSize: e.UncompressedSize,
			CompressedSize:   e.CompressedSize,
			Method:           e.Method,
			BlockCount:       len(e.Blocks),
			Hash:             e.Hash,
		}
	}
	return out, nil
}
