// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"bytes"
	"errors"
	"testing"
)

func validTrailer() PakInfo {
	return PakInfo{
		Magic:              PakMagic,
		Version:            VersionLatest,
		IndexOffset:        1000,
		IndexSize:          200,
		IndexHash:          [20]byte{1, 2, 3},
		CompressionMethods: methodTable{MethodZlib},
	}
}

func TestTrailerRoundTrip(t *testing.T) {
	t.Parallel()

	want := validTrailer()

	var buf bytes.Buffer
	if err := encodeTrailer(&buf, want); err != nil {
		t.Fatalf("encodeTrailer: %v", err)
	}
	if buf.Len() != trailerSize {
		t.Fatalf("encodeTrailer wrote %d bytes, want %d", buf.Len(), trailerSize)
	}

	got, err := decodeTrailer(&buf)
	if err != nil {
		t.Fatalf("decodeTrailer: %v", err)
	}
	if got.Magic != want.Magic || got.Version != want.Version ||
		got.IndexOffset != want.IndexOffset || got.IndexSize != want.IndexSize ||
		got.IndexHash != want.IndexHash {
		t.Fatalf("decodeTrailer=%+v, want %+v", got, want)
	}
	if len(got.CompressionMethods) != 1 || got.CompressionMethods[0] != MethodZlib {
		t.Fatalf("decodeTrailer methods=%v, want [Zlib]", got.CompressionMethods)
	}
}

func TestTrailerRejectsBadMagic(t *testing.T) {
	t.Parallel()

	info := validTrailer()
	info.Magic = 0xDEADBEEF

	var buf bytes.Buffer
	if err := encodeTrailer(&buf, info); err != nil {
		t.Fatalf("encodeTrailer: %v", err)
	}
	if _, err := decodeTrailer(&buf); !errors.Is(err, ErrMagicMismatch) {
		t.Fatalf("expected ErrMagicMismatch, got %v", err)
	}
}

func TestTrailerRejectsEncryptedGUID(t *testing.T) {
	t.Parallel()

	info := validTrailer()
	info.EncryptionKeyGUID = [16]byte{1}

	var buf bytes.Buffer
	if err := encodeTrailer(&buf, info); err != nil {
		t.Fatalf("encodeTrailer: %v", err)
	}
	if _, err := decodeTrailer(&buf); !errors.Is(err, ErrEncryptedGUID) {
		t.Fatalf("expected ErrEncryptedGUID, got %v", err)
	}
}

func TestTrailerRejectsEncryptedIndex(t *testing.T) {
	t.Parallel()

	info := validTrailer()
	info.Encrypted = true

	var buf bytes.Buffer
	if err := encodeTrailer(&buf, info); err != nil {
		t.Fatalf("encodeTrailer: %v", err)
	}
	if _, err := decodeTrailer(&buf); !errors.Is(err, ErrEncryptedIndex) {
		t.Fatalf("expected ErrEncryptedIndex, got %v", err)
	}
}

func TestTrailerRejectsUnsupportedVersion(t *testing.T) {
	t.Parallel()

	testCases := []int16{0, 1, 4, 12, 100}
	for _, v := range testCases {
		info := validTrailer()
		info.Version = v

		var buf bytes.Buffer
		if err := encodeTrailer(&buf, info); err != nil {
			t.Fatalf("encodeTrailer: %v", err)
		}
		if _, err := decodeTrailer(&buf); !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("version %d: expected ErrUnsupportedVersion, got %v", v, err)
		}
	}
}

func TestTrailerTooShort(t *testing.T) {
	t.Parallel()

	_, err := decodeTrailer(bytes.NewReader(make([]byte, trailerSize-1)))
	if !errors.Is(err, ErrTrailerTooShort) {
		t.Fatalf("expected ErrTrailerTooShort, got %v", err)
	}
}

func TestMethodTableIndexOf(t *testing.T) {
	t.Parallel()

	var mt methodTable
	i1, err := mt.indexOf(MethodZlib)
	if err != nil {
		t.Fatalf("indexOf: %v", err)
	}
	i2, err := mt.indexOf(MethodGzip)
	if err != nil {
		t.Fatalf("indexOf: %v", err)
	}
	i1Again, err := mt.indexOf(MethodZlib)
	if err != nil {
		t.Fatalf("indexOf: %v", err)
	}
	if i1 != i1Again {
		t.Fatalf("indexOf(Zlib) not stable: %d vs %d", i1, i1Again)
	}
	if i1 == i2 {
		t.Fatalf("distinct methods got the same index %d", i1)
	}

	name, err := mt.nameAt(i1)
	if err != nil {
		t.Fatalf("nameAt: %v", err)
	}
	if name != MethodZlib {
		t.Fatalf("nameAt(%d)=%q, want Zlib", i1, name)
	}

	noneName, err := mt.nameAt(0)
	if err != nil || noneName != MethodNone {
		t.Fatalf("nameAt(0)=%q,%v, want MethodNone,nil", noneName, err)
	}
}

func TestMethodTableOverflow(t *testing.T) {
	t.Parallel()

	var mt methodTable
	methods := []CompressionMethod{"A", "B", "C", "D", "E"}
	for _, m := range methods {
		if _, err := mt.indexOf(m); err != nil {
			t.Fatalf("indexOf(%q): %v", m, err)
		}
	}

	if _, err := mt.indexOf("F"); !errors.Is(err, ErrTooManyCompressionMethods) {
		t.Fatalf("expected ErrTooManyCompressionMethods, got %v", err)
	}
}
