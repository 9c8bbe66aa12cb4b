// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// maxCompressionBlockSize is the largest block size an archive may be
// created with; defaultCompressionBlockSize is used when a caller does not
// specify one.
const (
	maxCompressionBlockSize     = 0xFFFF
	defaultCompressionBlockSize = maxCompressionBlockSize
)

// Block is one compression block's byte range, stored relative to its
// entry's own on-disk record (the codec adds entry.Offset back in when
// reading, since this archive's only supported version is at or above
// VersionRelativeChunkOffsets).
type Block struct {
	Start int64
	End   int64
}

// Entry is one archive entry's metadata: where its payload lives, how it is
// compressed, and its integrity hash.
type Entry struct {
	Offset           int64
	CompressedSize   int64
	UncompressedSize int64
	Method           CompressionMethod
	Hash             [20]byte
	Blocks           []Block
	BlockSize        uint32
}

// serializedHeaderSize returns the size in bytes of the in-file header that
// prefixes an entry's payload: 53 bytes plus, when compressed, 4 bytes for
// the block count and 16 bytes per block.
func serializedHeaderSize(compressed bool, blockCount int) int {
	size := 53
	if compressed {
		size += 4 + 16*blockCount
	}
	return size
}

// decodeEntryMeta reads one compact index-blob metadata record (distinct
// from the in-file header written by writeEntryHeader).
func decodeEntryMeta(r io.Reader, version int16, methods methodTable) (Entry, error) {
	word, err := readU32(r)
	if err != nil {
		return Entry{}, fmt.Errorf("read entry flags: %w", err)
	}
	f := decodeEntryFlags(word)

	method, err := methods.nameAt(f.compressionMethod)
	if err != nil {
		return Entry{}, err
	}

	var blockSize uint32
	if f.blockSizeCode == blockSizeCodeExplicit {
		if blockSize, err = readU32(r); err != nil {
			return Entry{}, fmt.Errorf("read entry block size: %w", err)
		}
	} else {
		blockSize = uint32(f.blockSizeCode) << 11
	}

	var offset int64
	if f.offsetFitsU32 {
		v, err := readU32(r)
		if err != nil {
			return Entry{}, fmt.Errorf("read entry offset: %w", err)
		}
		offset = int64(v)
	} else {
		v, err := readI64(r)
		if err != nil {
			return Entry{}, fmt.Errorf("read entry offset: %w", err)
		}
		offset = v
	}

	if !f.uncompressedFitsU32 {
		return Entry{}, fmt.Errorf("uncompressed size: %w", ErrUnsupportedSizeEncoding)
	}
	uncompressedSize, err := readU32(r)
	if err != nil {
		return Entry{}, fmt.Errorf("read uncompressed size: %w", err)
	}

	if f.encrypted {
		return Entry{}, ErrEncryptedEntry
	}

	if method == MethodNone {
		return Entry{
			Offset:           offset,
			CompressedSize:   int64(uncompressedSize),
			UncompressedSize: int64(uncompressedSize),
			Method:           MethodNone,
			BlockSize:        blockSize,
		}, nil
	}

	if !f.compressedFitsU32 {
		return Entry{}, fmt.Errorf("compressed size: %w", ErrUnsupportedSizeEncoding)
	}
	compressedSize, err := readU32(r)
	if err != nil {
		return Entry{}, fmt.Errorf("read compressed size: %w", err)
	}

	blockCount := int(f.blockCount)
	var blocks []Block
	if blockCount > 0 {
		if uint64(blockSize) > uint64(uncompressedSize) {
			blockSize = uncompressedSize
		}
		headerSize := serializedHeaderSize(true, blockCount)
		baseOffset := int64(0)
		if version < VersionRelativeChunkOffsets {
			baseOffset = offset
		}
		blocks = make([]Block, blockCount)
		if blockCount == 1 {
			start := baseOffset + int64(headerSize)
			blocks[0] = Block{Start: start, End: start + int64(compressedSize)}
		} else {
			running := baseOffset + int64(headerSize)
			for i := 0; i < blockCount; i++ {
				delta, err := readI32(r)
				if err != nil {
					return Entry{}, fmt.Errorf("read block %d end delta: %w", i, err)
				}
				start := running
				end := start + int64(delta)
				blocks[i] = Block{Start: start, End: end}
				running = end
			}
		}
	}

	return Entry{
		Offset:           offset,
		CompressedSize:   int64(compressedSize),
		UncompressedSize: int64(uncompressedSize),
		Method:           method,
		Blocks:           blocks,
		BlockSize:        blockSize,
	}, nil
}

// encodeEntryMeta writes one compact index-blob metadata record for e,
// registering e.Method in methods if not already present.
func encodeEntryMeta(w io.Writer, e Entry, methods *methodTable) error {
	methodIdx, err := methods.indexOf(e.Method)
	if err != nil {
		return err
	}

	f := entryFlags{
		offsetFitsU32:       e.Offset >= 0 && e.Offset < (1<<32),
		uncompressedFitsU32: true,
		compressedFitsU32:   true,
		compressionMethod:   methodIdx,
	}
	compressed := e.Method != MethodNone
	if compressed {
		f.blockCount = uint16(len(e.Blocks))
		f.blockSizeCode = blockSizeCodeExplicit
	}

	if err := writeU32(w, encodeEntryFlags(f)); err != nil {
		return err
	}
	if compressed {
		if err := writeU32(w, e.BlockSize); err != nil {
			return err
		}
	}
	if f.offsetFitsU32 {
		if err := writeU32(w, uint32(e.Offset)); err != nil {
			return err
		}
	} else {
		if err := writeI64(w, e.Offset); err != nil {
			return err
		}
	}
	if err := writeU32(w, uint32(e.UncompressedSize)); err != nil {
		return err
	}
	if !compressed {
		return nil
	}
	if err := writeU32(w, uint32(e.CompressedSize)); err != nil {
		return err
	}
	if len(e.Blocks) >= 2 {
		for i, b := range e.Blocks {
			if err := writeI32(w, int32(b.End-b.Start)); err != nil {
				return fmt.Errorf("write block %d end delta: %w", i, err)
			}
		}
	}
	return nil
}

// writeEntryHeader writes the in-file header that prefixes e's payload:
// distinct from the compact index-blob record above.
func writeEntryHeader(w io.Writer, e Entry, methodIdx uint8) error {
	var buf bytes.Buffer
	// offset field is reserved and always written as 0; the archive index
	// is authoritative for locating payloads.
	if err := writeI64(&buf, 0); err != nil {
		return err
	}
	if err := writeI64(&buf, e.CompressedSize); err != nil {
		return err
	}
	if err := writeI64(&buf, e.UncompressedSize); err != nil {
		return err
	}
	if err := writeI32(&buf, int32(methodIdx)); err != nil {
		return err
	}
	if _, err := buf.Write(e.Hash[:]); err != nil {
		return err
	}
	if e.Method != MethodNone {
		if err := writeI32(&buf, int32(len(e.Blocks))); err != nil {
			return err
		}
		for _, b := range e.Blocks {
			if err := writeI64(&buf, b.Start); err != nil {
				return err
			}
			if err := writeI64(&buf, b.End); err != nil {
				return err
			}
		}
	}
	buf.WriteByte(0) // flags byte, always 0
	if err := writeU32(&buf, e.BlockSize); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// loadEntryData reads and decompresses e's payload from ra, reassembling it
// one compression block at a time when e.Method is not MethodNone.
func loadEntryData(ra io.ReaderAt, e Entry, version int16) ([]byte, error) {
	headerSize := serializedHeaderSize(e.Method != MethodNone, len(e.Blocks))
	payloadStart := e.Offset + int64(headerSize)

	if e.Method == MethodNone {
		out := make([]byte, e.UncompressedSize)
		if _, err := io.ReadFull(io.NewSectionReader(ra, payloadStart, e.UncompressedSize), out); err != nil {
			return nil, fmt.Errorf("read uncompressed payload: %w", err)
		}
		return out, nil
	}

	adapter, err := lookupAdapter(e.Method)
	if err != nil {
		return nil, err
	}

	out := make([]byte, e.UncompressedSize)
	remaining := e.UncompressedSize
	outPos := int64(0)
	for i, b := range e.Blocks {
		absStart := b.Start
		if version >= VersionRelativeChunkOffsets {
			absStart = e.Offset + b.Start
		}
		length := b.End - b.Start
		compBuf := make([]byte, length)
		if _, err := io.ReadFull(io.NewSectionReader(ra, absStart, length), compBuf); err != nil {
			return nil, fmt.Errorf("read block %d: %w", i, err)
		}

		blockUncompressed := int64(e.BlockSize)
		if remaining < blockUncompressed || blockUncompressed == 0 {
			blockUncompressed = remaining
		}
		dec, err := adapter.Decompress(compBuf, int(blockUncompressed))
		if err != nil {
			return nil, fmt.Errorf("decompress block %d: %w", i, err)
		}
		copy(out[outPos:], dec)
		outPos += blockUncompressed
		remaining -= blockUncompressed
	}
	return out, nil
}

// saveEntryData compresses payload per method, writes the in-file header
// and stored bytes to w at the current position (which the caller must
// have positioned at offset), and returns the Entry metadata to record in
// the archive index.
func saveEntryData(w io.Writer, offset int64, payload []byte, method CompressionMethod, blockSize uint32, level int, methods *methodTable) (Entry, error) {
	methodIdx, err := methods.indexOf(method)
	if err != nil {
		return Entry{}, err
	}

	if method == MethodNone {
		hash := sha1Sum(payload)
		e := Entry{
			Offset:           offset,
			CompressedSize:   int64(len(payload)),
			UncompressedSize: int64(len(payload)),
			Method:           MethodNone,
			Hash:             hash,
		}
		if err := writeEntryHeader(w, e, methodIdx); err != nil {
			return Entry{}, err
		}
		if _, err := w.Write(payload); err != nil {
			return Entry{}, err
		}
		return e, nil
	}

	adapter, err := lookupAdapter(method)
	if err != nil {
		return Entry{}, err
	}
	if blockSize == 0 || blockSize > maxCompressionBlockSize {
		blockSize = defaultCompressionBlockSize
	}

	blockCount := 0
	if len(payload) > 0 {
		blockCount = (len(payload) + int(blockSize) - 1) / int(blockSize)
	}
	headerSize := serializedHeaderSize(true, blockCount)

	var stored bytes.Buffer
	blocks := make([]Block, 0, blockCount)
	running := int64(headerSize)
	for i := 0; i < blockCount; i++ {
		start := i * int(blockSize)
		end := start + int(blockSize)
		if end > len(payload) {
			end = len(payload)
		}
		compressed, err := adapter.Compress(payload[start:end], level)
		if err != nil {
			return Entry{}, fmt.Errorf("compress block %d: %w", i, err)
		}
		blockStart := running
		blockEnd := blockStart + int64(len(compressed))
		blocks = append(blocks, Block{Start: blockStart, End: blockEnd})
		running = blockEnd
		stored.Write(compressed)
	}

	hash := sha1Sum(stored.Bytes())
	e := Entry{
		Offset:           offset,
		CompressedSize:   int64(stored.Len()),
		UncompressedSize: int64(len(payload)),
		Method:           method,
		Hash:             hash,
		Blocks:           blocks,
		BlockSize:        blockSize,
	}
	if err := writeEntryHeader(w, e, methodIdx); err != nil {
		return Entry{}, err
	}
	if _, err := w.Write(stored.Bytes()); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readI32(r io.Reader) (int32, error) {
	v, err := readU32(r)
	return int32(v), err
}

func readI64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeI32(w io.Writer, v int32) error {
	return writeU32(w, uint32(v))
}

func writeI64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}
