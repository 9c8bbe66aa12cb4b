// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"
)

// maxFStringLength is the largest permitted abs(length) prefix for a
// serialized FString.
const maxFStringLength = 131072

// readFString decodes one length-prefixed FString from r. isNull reports the
// zero-length-prefix case, which callers normalize to an empty ASCII Name.
func readFString(r io.Reader) (value string, enc Encoding, isNull bool, err error) {
	var lenBuf [4]byte
	if _, err = io.ReadFull(r, lenBuf[:]); err != nil {
		return "", EncodingASCII, false, fmt.Errorf("read fstring length: %w", err)
	}
	length := int32(binary.LittleEndian.Uint32(lenBuf[:]))

	if length == 0 {
		return "", EncodingASCII, true, nil
	}

	abs := int(length)
	if abs < 0 {
		abs = -abs
	}
	if abs > maxFStringLength {
		return "", EncodingASCII, false, fmt.Errorf("fstring length %d: %w", abs, ErrStringTooLong)
	}

	if length > 0 {
		buf := make([]byte, length)
		if _, err = io.ReadFull(r, buf); err != nil {
			return "", EncodingASCII, false, fmt.Errorf("fstring ascii body: %w (%w)", err, ErrStringTruncated)
		}
		// length includes the null terminator.
		if length == 1 {
			return "", EncodingASCII, false, nil
		}
		return string(buf[:length-1]), EncodingASCII, false, nil
	}

	units := make([]uint16, abs)
	raw := make([]byte, abs*2)
	if _, err = io.ReadFull(r, raw); err != nil {
		return "", EncodingUTF16LE, false, fmt.Errorf("fstring utf16 body: %w (%w)", err, ErrStringTruncated)
	}
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	// abs(length) includes the two-byte null terminator unit.
	return string(utf16.Decode(units[:abs-1])), EncodingUTF16LE, false, nil
}

// writeFStringNull writes the null FString (i32 length 0, no body).
func writeFStringNull(w io.Writer) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], 0)
	_, err := w.Write(buf[:])
	return err
}

// writeFString encodes value with the given encoding and writes it to w.
// An empty ASCII value is written as length 1 (one padding byte, the
// terminator); an empty UTF-16LE value is written as length -1 (one null
// code unit).
func writeFString(w io.Writer, value string, enc Encoding) error {
	var lenBuf [4]byte

	if enc == EncodingUTF16LE {
		units := utf16.Encode([]rune(value))
		length := int32(len(units) + 1)
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(-length))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		body := make([]byte, len(units)*2+2)
		for i, c := range units {
			binary.LittleEndian.PutUint16(body[i*2:], c)
		}
		// trailing 2 bytes stay zero: the null terminator unit.
		_, err := w.Write(body)
		return err
	}

	raw := []byte(value)
	length := int32(len(raw) + 1)
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(length))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	body := make([]byte, len(raw)+1)
	copy(body, raw)
	// trailing byte stays zero: the null terminator.
	_, err := w.Write(body)
	return err
}

// writeName writes n as an FString, or the null FString if n is empty.
func writeName(w io.Writer, n Name) error {
	if n.IsEmpty() {
		return writeFStringNull(w)
	}
	return writeFString(w, n.value, n.encoding)
}

// readName reads an FString into a Name, normalizing the null case to an
// empty ASCII Name.
func readName(r io.Reader) (Name, error) {
	value, enc, isNull, err := readFString(r)
	if err != nil {
		return Name{}, err
	}
	if isNull {
		return NewName(""), nil
	}
	return NewNameWithEncoding(value, enc), nil
}
