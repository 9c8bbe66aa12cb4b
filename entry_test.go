// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"bytes"
	"testing"
)

func TestSerializedHeaderSize(t *testing.T) {
	t.Parallel()

	if got := serializedHeaderSize(false, 0); got != 53 {
		t.Fatalf("serializedHeaderSize(false,0)=%d, want 53", got)
	}
	if got := serializedHeaderSize(true, 0); got != 57 {
		t.Fatalf("serializedHeaderSize(true,0)=%d, want 57", got)
	}
	if got := serializedHeaderSize(true, 3); got != 53+4+16*3 {
		t.Fatalf("serializedHeaderSize(true,3)=%d, want %d", got, 53+4+16*3)
	}
}

func TestSaveAndLoadEntryDataUncompressed(t *testing.T) {
	t.Parallel()

	payload := []byte("hello, unreal pak")

	var buf bytes.Buffer
	methods := methodTable{}
	e, err := saveEntryData(&buf, 0, payload, MethodNone, defaultCompressionBlockSize, 0, &methods)
	if err != nil {
		t.Fatalf("saveEntryData: %v", err)
	}

	got, err := loadEntryData(bytes.NewReader(buf.Bytes()), e, VersionLatest)
	if err != nil {
		t.Fatalf("loadEntryData: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("loadEntryData=%q, want %q", got, payload)
	}
}

func TestSaveAndLoadEntryDataCompressedMultiBlock(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("Unreal Engine pak payload block content. "), 5000)
	const blockSize = 4096

	var buf bytes.Buffer
	methods := methodTable{}
	e, err := saveEntryData(&buf, 0, payload, MethodZlib, blockSize, 0, &methods)
	if err != nil {
		t.Fatalf("saveEntryData: %v", err)
	}
	if len(e.Blocks) < 2 {
		t.Fatalf("expected multiple blocks for a %d-byte payload at block size %d, got %d", len(payload), blockSize, len(e.Blocks))
	}

	got, err := loadEntryData(bytes.NewReader(buf.Bytes()), e, VersionLatest)
	if err != nil {
		t.Fatalf("loadEntryData: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("loadEntryData mismatch for multi-block compressed payload")
	}
}

func TestSaveAndLoadEntryDataBlockBoundary(t *testing.T) {
	t.Parallel()

	const blockSize = 1024

	testCases := []struct {
		name string
		size int
	}{
		{name: "exact boundary", size: blockSize * 2},
		{name: "boundary plus one", size: blockSize*2 + 1},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			payload := bytes.Repeat([]byte{0xAB}, tc.size)

			var buf bytes.Buffer
			methods := methodTable{}
			e, err := saveEntryData(&buf, 0, payload, MethodZlib, blockSize, 0, &methods)
			if err != nil {
				t.Fatalf("saveEntryData: %v", err)
			}

			got, err := loadEntryData(bytes.NewReader(buf.Bytes()), e, VersionLatest)
			if err != nil {
				t.Fatalf("loadEntryData: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("loadEntryData mismatch for size %d", tc.size)
			}
		})
	}
}

func TestEncodeEntryMetaUncompressedFlagBits(t *testing.T) {
	t.Parallel()

	e := Entry{
		Offset:           100,
		CompressedSize:   10,
		UncompressedSize: 10,
		Method:           MethodNone,
	}

	var buf bytes.Buffer
	methods := methodTable{}
	if err := encodeEntryMeta(&buf, e, &methods); err != nil {
		t.Fatalf("encodeEntryMeta: %v", err)
	}

	word, err := readU32(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("readU32: %v", err)
	}
	// Both size-fits-u32 bits are always set, even for uncompressed entries.
	if word&(1<<30) == 0 {
		t.Fatal("flags bit 30 (uncompressed size fits u32) not set")
	}
	if word&(1<<29) == 0 {
		t.Fatal("flags bit 29 (compressed size fits u32) not set")
	}
}

func TestEntryMetaRoundTrip(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("metadata round trip payload"), 1000)

	var dataBuf bytes.Buffer
	methods := methodTable{}
	e, err := saveEntryData(&dataBuf, 12345, payload, MethodZlib, 4096, 0, &methods)
	if err != nil {
		t.Fatalf("saveEntryData: %v", err)
	}

	var metaBuf bytes.Buffer
	if err := encodeEntryMeta(&metaBuf, e, &methods); err != nil {
		t.Fatalf("encodeEntryMeta: %v", err)
	}

	got, err := decodeEntryMeta(bytes.NewReader(metaBuf.Bytes()), VersionLatest, methods)
	if err != nil {
		t.Fatalf("decodeEntryMeta: %v", err)
	}
	if got.Offset != e.Offset || got.UncompressedSize != e.UncompressedSize ||
		got.CompressedSize != e.CompressedSize || got.Method != e.Method ||
		len(got.Blocks) != len(e.Blocks) {
		t.Fatalf("decodeEntryMeta=%+v, want %+v", got, e)
	}
}

func TestEntryMetaRoundTripSingleBlock(t *testing.T) {
	t.Parallel()

	payload := []byte("small payload, one block only")

	var dataBuf bytes.Buffer
	methods := methodTable{}
	e, err := saveEntryData(&dataBuf, 0, payload, MethodZlib, defaultCompressionBlockSize, 0, &methods)
	if err != nil {
		t.Fatalf("saveEntryData: %v", err)
	}
	if len(e.Blocks) != 1 {
		t.Fatalf("expected exactly one block, got %d", len(e.Blocks))
	}

	var metaBuf bytes.Buffer
	if err := encodeEntryMeta(&metaBuf, e, &methods); err != nil {
		t.Fatalf("encodeEntryMeta: %v", err)
	}

	got, err := decodeEntryMeta(bytes.NewReader(metaBuf.Bytes()), VersionLatest, methods)
	if err != nil {
		t.Fatalf("decodeEntryMeta: %v", err)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].End-got.Blocks[0].Start != e.Blocks[0].End-e.Blocks[0].Start {
		t.Fatalf("single-block implicit-end decode mismatch: got %+v, want %+v", got.Blocks, e.Blocks)
	}
}
