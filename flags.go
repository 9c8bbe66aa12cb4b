// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

// entryFlags is the decoded form of the bit-packed u32 flags word that
// prefixes every entry's compact index-blob metadata record:
//
//	bit 31      offset fits a u32
//	bit 30      uncompressed size fits a u32 (this codec requires 1)
//	bit 29      compressed size fits a u32 (this codec requires 1)
//	bits 28-23  compression method index (0-63)
//	bit 22      encrypted (this codec requires 0)
//	bits 21-6   compression block count (u16)
//	bits 5-0    compression block size code (0x3F: real size follows as u32;
//	            else real size = code<<11)
type entryFlags struct {
	offsetFitsU32       bool
	uncompressedFitsU32 bool
	compressedFitsU32   bool
	compressionMethod   uint8
	encrypted           bool
	blockCount          uint16
	blockSizeCode       uint8
}

// blockSizeCodeExplicit is the sentinel block-size code meaning "the real
// block size follows as a literal u32" rather than being derived as
// code<<11.
const blockSizeCodeExplicit = 0x3F

func decodeEntryFlags(word uint32) entryFlags {
	return entryFlags{
		offsetFitsU32:       word&(1<<31) != 0,
		uncompressedFitsU32: word&(1<<30) != 0,
		compressedFitsU32:   word&(1<<29) != 0,
		compressionMethod:   uint8((word >> 23) & 0x3F),
		encrypted:           word&(1<<22) != 0,
		blockCount:          uint16((word >> 6) & 0xFFFF),
		blockSizeCode:       uint8(word & 0x3F),
	}
}

func encodeEntryFlags(f entryFlags) uint32 {
	var word uint32
	if f.offsetFitsU32 {
		word |= 1 << 31
	}
	if f.uncompressedFitsU32 {
		word |= 1 << 30
	}
	if f.compressedFitsU32 {
		word |= 1 << 29
	}
	word |= uint32(f.compressionMethod&0x3F) << 23
	if f.encrypted {
		word |= 1 << 22
	}
	word |= uint32(f.blockCount) << 6
	word |= uint32(f.blockSizeCode & 0x3F)
	return word
}
