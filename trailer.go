// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
)

// Trailer/format constants.
const (
	// PakMagic is the fixed trailer magic number.
	PakMagic uint32 = 0x5A6F12E1

	// VersionRelativeChunkOffsets is the version at which block start/end
	// offsets became relative to the entry's own record rather than
	// absolute file offsets.
	VersionRelativeChunkOffsets int16 = 5
	// VersionFnv64BugFix is the minimum version this codec supports.
	VersionFnv64BugFix int16 = 11
	// VersionLatest is the newest version this codec writes and accepts.
	VersionLatest int16 = 11
	// MinSupportedVersion is the floor of the accepted version range.
	MinSupportedVersion = VersionFnv64BugFix

	trailerSize               = 221
	compressionMethodNameSize = 32
	compressionMethodSlots    = 5
)

// methodTable holds the up-to-five non-None compression method names
// recorded in the trailer, in table order. Index 0 always means MethodNone
// and is never stored here.
type methodTable []CompressionMethod

func (t methodTable) nameAt(idx uint8) (CompressionMethod, error) {
	if idx == 0 {
		return MethodNone, nil
	}
	i := int(idx) - 1
	if i < 0 || i >= len(t) {
		return "", fmt.Errorf("index %d: %w", idx, ErrUnknownCompressionMethod)
	}
	return t[i], nil
}

// indexOf returns the table index for name, registering it if not already
// present. Returns an error once five distinct non-None methods are in use.
func (t *methodTable) indexOf(name CompressionMethod) (uint8, error) {
	if name == MethodNone {
		return 0, nil
	}
	for i, m := range *t {
		if m == name {
			return uint8(i + 1), nil
		}
	}
	if len(*t) >= compressionMethodSlots {
		return 0, ErrTooManyCompressionMethods
	}
	*t = append(*t, name)
	return uint8(len(*t)), nil
}

// PakInfo is the fixed 221-byte trailer at the end of every archive.
type PakInfo struct {
	EncryptionKeyGUID  [16]byte
	Encrypted          bool
	Magic              uint32
	Version            int16
	Subversion         int16
	IndexOffset        int64
	IndexSize          int64
	IndexHash          [20]byte
	CompressionMethods methodTable
}

// decodeTrailer reads and validates a PakInfo from r, which must be
// positioned at the start of the 221-byte trailer region.
func decodeTrailer(r io.Reader) (PakInfo, error) {
	buf := make([]byte, trailerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return PakInfo{}, fmt.Errorf("read trailer: %w (%w)", err, ErrTrailerTooShort)
	}

	var info PakInfo
	off := 0
	copy(info.EncryptionKeyGUID[:], buf[off:off+16])
	off += 16
	info.Encrypted = buf[off] != 0
	off++
	info.Magic = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	info.Version = int16(binary.LittleEndian.Uint16(buf[off:]))
	off += 2
	info.Subversion = int16(binary.LittleEndian.Uint16(buf[off:]))
	off += 2
	info.IndexOffset = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	info.IndexSize = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	copy(info.IndexHash[:], buf[off:off+20])
	off += 20

	for i := 0; i < compressionMethodSlots; i++ {
		name := buf[off : off+compressionMethodNameSize]
		off += compressionMethodNameSize
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		if len(name) > 0 {
			info.CompressionMethods = append(info.CompressionMethods, CompressionMethod(name))
		}
	}

	if err := info.validate(); err != nil {
		return PakInfo{}, err
	}
	return info, nil
}

// validate checks the fields this codec requires to be fixed: no encrypted
// archives, and a version within [Fnv64BugFix,Latest].
func (info PakInfo) validate() error {
	if info.Magic != PakMagic {
		return fmt.Errorf("got 0x%08X want 0x%08X: %w", info.Magic, PakMagic, ErrMagicMismatch)
	}
	var zero [16]byte
	if info.EncryptionKeyGUID != zero {
		return ErrEncryptedGUID
	}
	if info.Encrypted {
		return ErrEncryptedIndex
	}
	if info.Version < MinSupportedVersion || info.Version > VersionLatest {
		return fmt.Errorf("version %d outside [%d,%d]: %w", info.Version, MinSupportedVersion, VersionLatest, ErrUnsupportedVersion)
	}
	if info.IndexOffset < 0 || info.IndexSize < 0 {
		return fmt.Errorf("index offset %d size %d: %w", info.IndexOffset, info.IndexSize, ErrMalformedData)
	}
	return nil
}

// encodeTrailer writes info to w as the fixed 221-byte trailer.
func encodeTrailer(w io.Writer, info PakInfo) error {
	buf := make([]byte, trailerSize)
	off := 0
	copy(buf[off:off+16], info.EncryptionKeyGUID[:])
	off += 16
	if info.Encrypted {
		buf[off] = 1
	}
	off++
	binary.LittleEndian.PutUint32(buf[off:], info.Magic)
	off += 4
	binary.LittleEndian.PutUint16(buf[off:], uint16(info.Version))
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], uint16(info.Subversion))
	off += 2
	binary.LittleEndian.PutUint64(buf[off:], uint64(info.IndexOffset))
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], uint64(info.IndexSize))
	off += 8
	copy(buf[off:off+20], info.IndexHash[:])
	off += 20

	for i := 0; i < compressionMethodSlots; i++ {
		if i < len(info.CompressionMethods) {
			name := []byte(info.CompressionMethods[i])
			if len(name) > compressionMethodNameSize-1 {
				name = name[:compressionMethodNameSize-1]
			}
			copy(buf[off:off+compressionMethodNameSize], name)
		}
		off += compressionMethodNameSize
	}

	_, err := w.Write(buf)
	return err
}

// sha1Sum computes the SHA-1 digest of data.
func sha1Sum(data []byte) [20]byte {
	return sha1.Sum(data)
}
