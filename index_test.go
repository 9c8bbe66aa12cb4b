// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"bytes"
	"errors"
	"testing"
)

func TestSplitJoinDirFile(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		path string
		dir  string
		file string
	}{
		{name: "nested", path: "Game/Content/Config.ini", dir: "Game/Content", file: "Config.ini"},
		{name: "root", path: "Config.ini", dir: "/", file: "Config.ini"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir, file := splitDirFile(tc.path)
			if dir != tc.dir || file != tc.file {
				t.Fatalf("splitDirFile(%q)=(%q,%q), want (%q,%q)", tc.path, dir, file, tc.dir, tc.file)
			}

			joined := joinDirFile(dir, file)
			if joined != tc.path {
				t.Fatalf("joinDirFile(%q,%q)=%q, want %q", dir, file, joined, tc.path)
			}
		})
	}
}

// writeArchive builds a minimal, complete in-memory archive (entries +
// index + trailer) and returns its bytes, for round-trip testing of
// decodeIndex/decodeTrailer together without going through PakFile.
func writeArchive(t *testing.T, paths []string, payloads [][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	cw := &countingWriter{w: &buf}

	methods := methodTable{}
	entries := newOrderedEntryMap()
	for i, p := range paths {
		e, err := saveEntryData(cw, cw.pos, payloads[i], MethodNone, defaultCompressionBlockSize, 0, &methods)
		if err != nil {
			t.Fatalf("saveEntryData(%q): %v", p, err)
		}
		entries.Add(NewName(p), &e)
	}

	idx := &Index{
		MountPoint:   NewName("../../../MyGame/Content/Paks/pakchunk0"),
		PathHashSeed: 12345,
		Entries:      entries,
		Methods:      methods,
	}
	res, err := writeIndex(cw, cw.pos, idx)
	if err != nil {
		t.Fatalf("writeIndex: %v", err)
	}

	trailer := PakInfo{
		Magic:              PakMagic,
		Version:            VersionLatest,
		IndexOffset:        res.indexOffset,
		IndexSize:          res.indexSize,
		IndexHash:          res.indexHash,
		CompressionMethods: idx.Methods,
	}
	if err := encodeTrailer(cw, trailer); err != nil {
		t.Fatalf("encodeTrailer: %v", err)
	}

	return buf.Bytes()
}

func TestIndexRoundTripSingleEntry(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, []string{"Game/Content/Config.ini"}, [][]byte{[]byte("key=value")})

	trailer, err := decodeTrailer(bytes.NewReader(archive[len(archive)-trailerSize:]))
	if err != nil {
		t.Fatalf("decodeTrailer: %v", err)
	}

	ra := bytes.NewReader(archive)
	idx, err := decodeIndex(ra, trailer)
	if err != nil {
		t.Fatalf("decodeIndex: %v", err)
	}
	if idx.Entries.Len() != 1 {
		t.Fatalf("Entries.Len()=%d, want 1", idx.Entries.Len())
	}
	// Decoded entries are keyed under the mount point's relative form.
	if _, ok := idx.Entries.Get("MyGame/Content/Paks/pakchunk0/Game/Content/Config.ini"); !ok {
		t.Fatalf("expected mount-point-qualified entry, got %v", idx.Entries.Keys())
	}
}

func TestIndexRoundTripRootDirectory(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, []string{"Top.ini"}, [][]byte{[]byte("root-level file")})

	trailer, err := decodeTrailer(bytes.NewReader(archive[len(archive)-trailerSize:]))
	if err != nil {
		t.Fatalf("decodeTrailer: %v", err)
	}

	idx, err := decodeIndex(bytes.NewReader(archive), trailer)
	if err != nil {
		t.Fatalf("decodeIndex: %v", err)
	}
	if _, ok := idx.Entries.Get("MyGame/Content/Paks/pakchunk0/Top.ini"); !ok {
		t.Fatal("expected root-level entry Top.ini under the relative mount point")
	}
}

// TestIndexWriteSeedsAncestorDirectories checks that writeIndex's
// full-directory sub-index always carries a root "/" bucket and every
// missing ancestor directory of a nested entry, parent before child.
func TestIndexWriteSeedsAncestorDirectories(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, []string{"Game/Content/Deep/Nested/Leaf.uasset"}, [][]byte{[]byte("payload")})

	trailer, err := decodeTrailer(bytes.NewReader(archive[len(archive)-trailerSize:]))
	if err != nil {
		t.Fatalf("decodeTrailer: %v", err)
	}
	ra := bytes.NewReader(archive)
	idx, err := decodeIndex(ra, trailer)
	if err != nil {
		t.Fatalf("decodeIndex: %v", err)
	}
	if _, ok := idx.Entries.Get("MyGame/Content/Paks/pakchunk0/Game/Content/Deep/Nested/Leaf.uasset"); !ok {
		t.Fatal("expected nested entry to round-trip")
	}

	// Walk the full-directory sub-index directly to see its buckets.
	r := bytes.NewReader(archive[trailer.IndexOffset : trailer.IndexOffset+trailer.IndexSize])
	if _, err := readName(r); err != nil {
		t.Fatalf("read mount point: %v", err)
	}
	if _, err := readI32(r); err != nil {
		t.Fatalf("read entry count: %v", err)
	}
	if _, err := readU64(r); err != nil {
		t.Fatalf("read path hash seed: %v", err)
	}
	if _, _, _, _, err := readSubHeader(r); err != nil {
		t.Fatalf("read path-hash subheader: %v", err)
	}
	_, fullDirOffset, fullDirSize, _, err := readSubHeader(r)
	if err != nil {
		t.Fatalf("read full-directory subheader: %v", err)
	}
	fr := bytes.NewReader(archive[fullDirOffset : fullDirOffset+fullDirSize])
	dirCount, err := readI32(fr)
	if err != nil {
		t.Fatalf("read directory count: %v", err)
	}
	var dirs []string
	for d := int32(0); d < dirCount; d++ {
		dirName, err := readName(fr)
		if err != nil {
			t.Fatalf("read directory %d name: %v", d, err)
		}
		fileCount, err := readI32(fr)
		if err != nil {
			t.Fatalf("read directory %d file count: %v", d, err)
		}
		for f := int32(0); f < fileCount; f++ {
			if _, err := readName(fr); err != nil {
				t.Fatalf("read directory %d file %d name: %v", d, f, err)
			}
			if _, err := readI32(fr); err != nil {
				t.Fatalf("read directory %d file %d offset: %v", d, f, err)
			}
		}
		dirs = append(dirs, dirName.String())
	}
	mustEqual(t, dirs, []string{"/", "Game", "Game/Content", "Game/Content/Deep", "Game/Content/Deep/Nested"})
}

func TestDecodeIndexRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, []string{"../../../../tmp/evil"}, [][]byte{[]byte("payload")})

	trailer, err := decodeTrailer(bytes.NewReader(archive[len(archive)-trailerSize:]))
	if err != nil {
		t.Fatalf("decodeTrailer: %v", err)
	}

	if _, err := decodeIndex(bytes.NewReader(archive), trailer); !errors.Is(err, ErrPathTraversal) {
		t.Fatalf("decodeIndex with a traversal path: got %v, want ErrPathTraversal", err)
	}
}

func TestIndexRoundTripMultipleEntriesPreservesOrder(t *testing.T) {
	t.Parallel()

	paths := []string{
		"Game/Content/A.ini",
		"Game/Content/B.ini",
		"Game/Other/C.ini",
		"Root.ini",
	}
	payloads := [][]byte{
		[]byte("a"), []byte("b"), []byte("c"), []byte("d"),
	}
	archive := writeArchive(t, paths, payloads)

	trailer, err := decodeTrailer(bytes.NewReader(archive[len(archive)-trailerSize:]))
	if err != nil {
		t.Fatalf("decodeTrailer: %v", err)
	}

	idx, err := decodeIndex(bytes.NewReader(archive), trailer)
	if err != nil {
		t.Fatalf("decodeIndex: %v", err)
	}
	for _, p := range paths {
		if _, ok := idx.Entries.Get("MyGame/Content/Paks/pakchunk0/" + p); !ok {
			t.Fatalf("missing entry %q after round trip", p)
		}
	}

	// Decoded entries follow the full-directory walk: the root bucket first,
	// then each directory bucket in creation order, with the files inside a
	// directory kept in insertion order.
	mustEqual(t, keysOf(idx.Entries), []string{
		"MyGame/Content/Paks/pakchunk0/Root.ini",
		"MyGame/Content/Paks/pakchunk0/Game/Content/A.ini",
		"MyGame/Content/Paks/pakchunk0/Game/Content/B.ini",
		"MyGame/Content/Paks/pakchunk0/Game/Other/C.ini",
	})
}

func TestIndexRoundTripZeroEntries(t *testing.T) {
	t.Parallel()

	archive := writeArchive(t, nil, nil)

	trailer, err := decodeTrailer(bytes.NewReader(archive[len(archive)-trailerSize:]))
	if err != nil {
		t.Fatalf("decodeTrailer: %v", err)
	}

	idx, err := decodeIndex(bytes.NewReader(archive), trailer)
	if err != nil {
		t.Fatalf("decodeIndex: %v", err)
	}
	if idx.Entries.Len() != 0 {
		t.Fatalf("Entries.Len()=%d, want 0", idx.Entries.Len())
	}
}
