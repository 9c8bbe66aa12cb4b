// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import "errors"

// Sentinel errors for upak operations. Use errors.Is in callers.
//
// Each sentinel below is tagged with the error kind it belongs to: a rough
// grouping by concern (malformed data, unsupported feature, bad call,
// wrapped I/O failure) rather than a tagged enum.
var (
	// ErrMagicMismatch means the trailer magic number did not match (FormatError).
	ErrMagicMismatch = errors.New("pak: trailer magic mismatch")
	// ErrUnsupportedVersion means the archive version is outside the supported range (NotSupported).
	ErrUnsupportedVersion = errors.New("pak: unsupported archive version")
	// ErrEncryptedGUID means the trailer's encryption key GUID is non-zero (NotSupported).
	ErrEncryptedGUID = errors.New("pak: encrypted archives are not supported")
	// ErrEncryptedIndex means the trailer's encrypted-index flag is set (NotSupported).
	ErrEncryptedIndex = errors.New("pak: encrypted indices are not supported")
	// ErrEncryptedEntry means an entry's encrypted flag is set (NotSupported).
	ErrEncryptedEntry = errors.New("pak: encrypted entries are not supported")
	// ErrTrailerTooShort means the file is too short to contain a trailer (FormatError).
	ErrTrailerTooShort = errors.New("pak: file too short for trailer")
	// ErrIndexHashMismatch means the primary index SHA-1 does not match the trailer (FormatError).
	ErrIndexHashMismatch = errors.New("pak: index hash mismatch")
	// ErrMalformedData means a wire field holds a structurally impossible value, such as a negative size (PakSerializerError).
	ErrMalformedData = errors.New("pak: malformed wire data")
	// ErrNoFullDirectoryIndex means the archive lacks a full-directory index (NotSupported).
	ErrNoFullDirectoryIndex = errors.New("pak: archive has no full-directory index")
	// ErrNoPathHashIndex means the archive lacks a path-hash index (NotSupported).
	ErrNoPathHashIndex = errors.New("pak: archive has no path-hash index")
	// ErrUnsupportedSizeEncoding means a size field does not fit the encoding this codec supports (NotSupported).
	ErrUnsupportedSizeEncoding = errors.New("pak: size field encoding not supported")
	// ErrSizeOverflow means a value exceeds the 32-bit addressing ceiling this codec supports (NotSupported).
	ErrSizeOverflow = errors.New("pak: value exceeds supported size ceiling")
	// ErrStringTooLong means a serialized FString exceeds the maximum permitted length (FormatError).
	ErrStringTooLong = errors.New("pak: serialized string exceeds maximum length")
	// ErrStringTruncated means a serialized FString claims more bytes than remain in the stream (FormatError).
	ErrStringTruncated = errors.New("pak: serialized string longer than remaining stream")
	// ErrUnknownCompressionMethod means an entry references a compression method index the archive has no name for (FormatError).
	ErrUnknownCompressionMethod = errors.New("pak: unknown compression method index")
	// ErrCompressionNotRegistered means no adapter is registered for a requested compression method (NotSupported).
	ErrCompressionNotRegistered = errors.New("pak: no adapter registered for compression method")
	// ErrNotImplemented means the archive uses a format feature this codec does not implement, such as unencoded index entries (NotSupported).
	ErrNotImplemented = errors.New("pak: format feature not implemented")
	// ErrEntryNotFound means the requested path has no matching entry (InvalidOperation).
	ErrEntryNotFound = errors.New("pak: entry not found")
	// ErrMissingPayload means an entry has no payload bytes and no backing stream to load them from (InvalidOperation).
	ErrMissingPayload = errors.New("pak: entry payload unavailable")
	// ErrDuplicateEntry means an entry with this name already exists (InvalidOperation).
	ErrDuplicateEntry = errors.New("pak: duplicate entry")
	// ErrClosed means the archive or its backing stream is already closed (InvalidOperation).
	ErrClosed = errors.New("pak: archive already closed")
	// ErrNilReader means a nil reader was supplied (InvalidOperation).
	ErrNilReader = errors.New("pak: reader is nil")
	// ErrInvalidEntryPath means an entry path is empty or invalid after normalization (InvalidOperation).
	ErrInvalidEntryPath = errors.New("pak: invalid entry path")
	// ErrTooManyCompressionMethods means more than five distinct non-None compression methods are in use (InvalidOperation).
	ErrTooManyCompressionMethods = errors.New("pak: more than five compression methods in use")
	// ErrMountPointRequired means Create was called without a mount point (InvalidOperation).
	ErrMountPointRequired = errors.New("pak: mount point is required")
	// ErrPathTraversal means an archive-derived entry path escapes its
	// archive root via a ".." segment or an absolute path (FormatError).
	ErrPathTraversal = errors.New("pak: entry path escapes archive root")
)
