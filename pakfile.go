// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"bufio"
	"fmt"
	"io"
	"os"
	gopath "path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/woozymasta/pathrules"
)

// Default tuning values for Create/Save.
const (
	DefaultWriteBuffer      = 16 * 1024 * 1024
	DefaultCompressionLevel = 0 // adapter-defined default
	DefaultMinCompressSize  = 512
	DefaultMaxCompressSize  = 64 * 1024 * 1024
)

// MountOptions configures Mount/MountReaderAt. Currently empty; kept as a
// struct (rather than a bare function signature) so future mount-time
// knobs don't break callers.
type MountOptions struct{}

func (o *MountOptions) applyDefaults() {}

// CreateOptions configures Create.
type CreateOptions struct {
	// SeedFileName names the file whose case-folded Unreal CRC-32 seeds the
	// archive's path_hash_seed. Defaults to the mount point's base name.
	SeedFileName string
	// DefaultMethod is the compression method applied to size-eligible
	// entries; when CompressRules is set, only to the entries it selects.
	// MethodNone disables compression archive-wide.
	DefaultMethod CompressionMethod
	// CompressRules are ordered path-inclusion rules selecting which
	// entries use DefaultMethod.
	CompressRules []pathrules.Rule
	// CompressMatcherOptions control compression path rule matching.
	CompressMatcherOptions pathrules.MatcherOptions
	// BlockSize is the compression block size in bytes, at most 65535.
	// Defaults to 65535.
	BlockSize uint32
	// CompressionLevel is passed to the selected CompressionAdapter.
	CompressionLevel int
	// MinCompressSize/MaxCompressSize bound which entry sizes are eligible
	// for compression, regardless of CompressRules.
	MinCompressSize uint32
	MaxCompressSize uint32
	// WriterBufferSize sizes the buffered writer used by Save.
	WriterBufferSize int
}

func (o *CreateOptions) applyDefaults() {
	if o.BlockSize == 0 || o.BlockSize > maxCompressionBlockSize {
		o.BlockSize = defaultCompressionBlockSize
	}
	if o.MinCompressSize == 0 {
		o.MinCompressSize = DefaultMinCompressSize
	}
	if o.MaxCompressSize == 0 || o.MaxCompressSize <= o.MinCompressSize {
		o.MaxCompressSize = DefaultMaxCompressSize
	}
	if o.WriterBufferSize < 4096 {
		o.WriterBufferSize = DefaultWriteBuffer
	}
	if o.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		o.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}
}

// AssetTriple groups a main asset's payload with its companion .uexp export
// payload and .ubulk/.uptnl bulk-data payload, when present.
type AssetTriple struct {
	Main []byte
	Uexp []byte
	Bulk []byte
}

// PakFile is a mounted or newly created archive: the entry table plus
// enough state to lazily read entries from a backing stream and to
// serialize a (possibly modified) copy via Save/SaveTo.
type PakFile struct {
	ra           io.ReaderAt
	file         *os.File
	version      int16
	subversion   int16
	mountPoint   Name
	pathHashSeed uint64
	methods      methodTable

	names    *orderedEntryMap  // Name -> *Entry, current entry table
	payloads map[string][]byte // path -> resident raw bytes, for added/replaced entries

	compressMatcher  *compressMatcher
	defaultMethod    CompressionMethod
	blockSize        uint32
	compressionLevel int
	minCompressSize  uint32
	maxCompressSize  uint32
	writerBufferSize int

	mu     sync.Mutex
	closed bool
}

// Mount opens the archive at path and parses its trailer and index.
func Mount(path string, opts MountOptions) (*PakFile, error) {
	opts.applyDefaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	pf, err := MountReaderAt(f, fi.Size(), opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	pf.file = f
	return pf, nil
}

// MountReaderAt parses an archive already available as a ReaderAt of known
// size (e.g. an in-memory buffer, or a caller-managed file handle).
func MountReaderAt(ra io.ReaderAt, size int64, opts MountOptions) (*PakFile, error) {
	opts.applyDefaults()

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

	var nominalMethod CompressionMethod
	if len(idx.Methods) > 0 {
		nominalMethod = idx.Methods[0]
	}

	return &PakFile{
		ra:               ra,
		version:          trailer.Version,
		subversion:       trailer.Subversion,
		mountPoint:       idx.MountPoint,
		pathHashSeed:     idx.PathHashSeed,
		methods:          idx.Methods,
		names:            idx.Entries,
		payloads:         make(map[string][]byte),
		defaultMethod:    nominalMethod,
		blockSize:        defaultCompressionBlockSize,
		minCompressSize:  DefaultMinCompressSize,
		maxCompressSize:  DefaultMaxCompressSize,
		writerBufferSize: DefaultWriteBuffer,
	}, nil
}

// Create builds a new, empty in-memory archive with the given mount point.
func Create(mountPoint string, opts CreateOptions) (*PakFile, error) {
	opts.applyDefaults()

	if mountPoint == "" {
		return nil, ErrMountPointRequired
	}

	seedName := opts.SeedFileName
	if seedName == "" {
		seedName = gopath.Base(mountPoint)
	}

	matcher, err := newCompressMatcher(opts.CompressRules, opts.CompressMatcherOptions)
	if err != nil {
		return nil, err
	}

	return &PakFile{
		version:          VersionLatest,
		mountPoint:       NewName(mountPoint),
		pathHashSeed:     uint64(crc32OfName(strings.ToLower(seedName))),
		methods:          methodTable{},
		names:            newOrderedEntryMap(),
		payloads:         make(map[string][]byte),
		compressMatcher:  matcher,
		defaultMethod:    opts.DefaultMethod,
		blockSize:        opts.BlockSize,
		compressionLevel: opts.CompressionLevel,
		minCompressSize:  opts.MinCompressSize,
		maxCompressSize:  opts.MaxCompressSize,
		writerBufferSize: opts.WriterBufferSize,
	}, nil
}

// MountPoint returns the archive's mount point string.
func (pf *PakFile) MountPoint() string { return pf.mountPoint.String() }

// Compression returns the archive's nominal compression method: the method
// passed as CreateOptions.DefaultMethod for a created archive, or the first
// non-None method named in a mounted archive's trailer, if any. MethodNone
// means the archive stores every entry uncompressed.
func (pf *PakFile) Compression() CompressionMethod { return pf.defaultMethod }

// Entries returns the current entry paths in stable insertion order.
func (pf *PakFile) Entries() []string {
	keys := pf.names.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// FindEntry resolves requested against the mount point: it tries the path
// exactly as given, then with the mount point stripped, then with the mount
// point's relative form stripped or re-applied, returning the first match.
func (pf *PakFile) FindEntry(requested string) (*Entry, string, bool) {
	for _, candidate := range resolveEntryPath(pf.mountPoint.String(), requested) {
		normalized := NormalizePath(candidate)
		if normalized == "" {
			continue
		}
		if e, ok := pf.names.Get(normalized); ok {
			return e, normalized, true
		}
	}
	return nil, "", false
}

// HasEntry reports whether path resolves to an entry.
func (pf *PakFile) HasEntry(path string) bool {
	_, _, ok := pf.FindEntry(path)
	return ok
}

// ReadEntry returns path's decompressed payload, loading it lazily from the
// backing stream when the entry came from Mount rather than AddEntry/WriteEntry.
func (pf *PakFile) ReadEntry(path string) ([]byte, error) {
	if pf.closed {
		return nil, ErrClosed
	}
	e, resolved, ok := pf.FindEntry(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrEntryNotFound)
	}
	if raw, ok := pf.payloads[resolved]; ok {
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}
	if pf.ra == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrEntryNotFound)
	}
	return loadEntryData(pf.ra, *e, pf.version)
}

// resolveMethod applies the archive's default compression method and
// CompressRules/size-bound policy to a candidate new entry. With no rules
// every size-eligible entry gets the default method; rules restrict it to
// the paths they include.
func (pf *PakFile) resolveMethod(path string, size int) CompressionMethod {
	if pf.defaultMethod == MethodNone {
		return MethodNone
	}
	if uint32(size) < pf.minCompressSize || uint32(size) > pf.maxCompressSize {
		return MethodNone
	}
	if pf.compressMatcher != nil && !pf.compressMatcher.Match(path) {
		return MethodNone
	}
	return pf.defaultMethod
}

// AddEntry adds a new entry at path. It returns ErrDuplicateEntry if an
// entry already resolves to that path.
func (pf *PakFile) AddEntry(path string, data []byte) error {
	if pf.closed {
		return ErrClosed
	}
	if int64(len(data)) > int64(^uint32(0)) {
		return fmt.Errorf("%s: %d bytes: %w", path, len(data), ErrSizeOverflow)
	}
	normalized, err := normalizeArchiveEntryPath(pf.mountPoint.String(), path)
	if err != nil {
		return err
	}
	if _, _, ok := pf.FindEntry(normalized); ok {
		return fmt.Errorf("%s: %w", normalized, ErrDuplicateEntry)
	}
	method := pf.resolveMethod(normalized, len(data))
	pf.names.Add(NewName(normalized), &Entry{UncompressedSize: int64(len(data)), Method: method})
	pf.payloads[normalized] = data
	return nil
}

// WriteEntry replaces an existing entry's payload in place, preserving its
// position in iteration order. It returns ErrEntryNotFound if no entry
// resolves to path; use AddEntry for new entries.
func (pf *PakFile) WriteEntry(path string, data []byte) error {
	if pf.closed {
		return ErrClosed
	}
	if int64(len(data)) > int64(^uint32(0)) {
		return fmt.Errorf("%s: %d bytes: %w", path, len(data), ErrSizeOverflow)
	}
	_, resolved, ok := pf.FindEntry(path)
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrEntryNotFound)
	}
	method := pf.resolveMethod(resolved, len(data))
	pf.names.Insert(NewName(resolved), &Entry{UncompressedSize: int64(len(data)), Method: method})
	pf.payloads[resolved] = data
	return nil
}

// RemoveEntry deletes path's entry, if present, reporting whether anything
// was removed. Path resolution follows the same mount-point rules as
// FindEntry.
func (pf *PakFile) RemoveEntry(path string) bool {
	_, resolved, ok := pf.FindEntry(path)
	if !ok {
		return false
	}
	delete(pf.payloads, resolved)
	return pf.names.Remove(resolved)
}

// reservedBulkExtensions are the companion-data extensions GetAsset treats
// as a usage error when requested directly as a main asset path: a caller
// asking for a path that already ends in a bulk extension almost always
// meant the main asset it belongs to.
var reservedBulkExtensions = map[string]bool{
	".uexp":  true,
	".ubulk": true,
	".uptnl": true,
}

// GetAsset reads mainPath and its companion .uexp export and
// .ubulk/.uptnl bulk-data payloads, when present.
func (pf *PakFile) GetAsset(mainPath string) (AssetTriple, error) {
	if reservedBulkExtensions[strings.ToLower(gopath.Ext(mainPath))] {
		return AssetTriple{}, fmt.Errorf("%s: %w", mainPath, ErrInvalidEntryPath)
	}

	main, err := pf.ReadEntry(mainPath)
	if err != nil {
		return AssetTriple{}, err
	}
	triple := AssetTriple{Main: main}

	stem := strings.TrimSuffix(mainPath, gopath.Ext(mainPath))
	if b, err := pf.ReadEntry(stem + ".uexp"); err == nil {
		triple.Uexp = b
	}
	if b, err := pf.ReadEntry(stem + ".ubulk"); err == nil {
		triple.Bulk = b
	} else if b, err := pf.ReadEntry(stem + ".uptnl"); err == nil {
		triple.Bulk = b
	}
	return triple, nil
}

// countingWriter wraps an io.Writer, tracking the absolute byte offset
// written so far.
type countingWriter struct {
	w   io.Writer
	pos int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.pos += int64(n)
	return n, err
}

// Save serializes the archive's current entry table to w: every entry's
// payload (freshly compressed per its current method), the two-index
// trailer structure, and the fixed 221-byte trailer.
func (pf *PakFile) Save(w io.Writer) error {
	if pf.closed {
		return ErrClosed
	}
	bufSize := pf.writerBufferSize
	if bufSize < 4096 {
		bufSize = DefaultWriteBuffer
	}
	bw := bufio.NewWriterSize(w, bufSize)
	cw := &countingWriter{w: bw}

	methods := methodTable{}
	entries := newOrderedEntryMap()

	for _, name := range pf.names.Keys() {
		path := name.String()
		e, _ := pf.names.Get(path)

		var raw []byte
		if resident, ok := pf.payloads[path]; ok {
			raw = resident
		} else {
			if pf.ra == nil {
				return fmt.Errorf("%s: %w", path, ErrMissingPayload)
			}
			var err error
			raw, err = loadEntryData(pf.ra, *e, pf.version)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
		}

		saved, err := saveEntryData(cw, cw.pos, raw, e.Method, pf.blockSize, pf.compressionLevel, &methods)
		if err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		entries.Add(name, &saved)
	}

	idx := &Index{
		MountPoint:   pf.mountPoint,
		PathHashSeed: pf.pathHashSeed,
		Entries:      entries,
		Methods:      methods,
	}
	res, err := writeIndex(cw, cw.pos, idx)
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	trailer := PakInfo{
		Magic:              PakMagic,
		Version:            pf.version,
		Subversion:         pf.subversion,
		IndexOffset:        res.indexOffset,
		IndexSize:          res.indexSize,
		IndexHash:          res.indexHash,
		CompressionMethods: idx.Methods,
	}
	if err := encodeTrailer(cw, trailer); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}

	return bw.Flush()
}

// SaveTo serializes the archive to a new file at path. If path is the file
// this archive was mounted from, the backing stream is closed first so the
// destination can be safely truncated and rewritten.
func (pf *PakFile) SaveTo(path string) error {
	if pf.file != nil {
		if sameFile(pf.file.Name(), path) {
			// Pull every non-resident payload into memory while the source is
			// still readable; creating the destination truncates it.
			for _, name := range pf.names.Keys() {
				key := name.String()
				if _, ok := pf.payloads[key]; ok {
					continue
				}
				e, _ := pf.names.Get(key)
				raw, err := loadEntryData(pf.ra, *e, pf.version)
				if err != nil {
					return fmt.Errorf("load %s: %w", key, err)
				}
				pf.payloads[key] = raw
			}
			if err := pf.file.Close(); err != nil {
				return fmt.Errorf("close source before save: %w", err)
			}
			pf.file = nil
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if err := pf.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func sameFile(a, b string) bool {
	ca, err1 := filepath.Abs(a)
	cb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && ca == cb
}

// Close releases the archive's backing file, if it owns one.
func (pf *PakFile) Close() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.closed {
		return nil
	}
	pf.closed = true
	if pf.file != nil {
		return pf.file.Close()
	}
	return nil
}
