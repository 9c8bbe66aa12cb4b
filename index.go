// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"bytes"
	"fmt"
	"io"
	gopath "path"
	"strings"
)

// Index is the decoded form of an archive's trailing index: the primary
// header plus the entries it addresses, in the traversal order the
// full-directory sub-index stored them.
type Index struct {
	MountPoint   Name
	PathHashSeed uint64
	Entries      *orderedEntryMap
	Methods      methodTable
}

// splitDirFile splits a normalized archive path into its directory (using
// "/" for the root directory) and file name.
func splitDirFile(p string) (dir, file string) {
	dir = gopath.Dir(p)
	if dir == "." {
		dir = "/"
	}
	file = gopath.Base(p)
	return dir, file
}

// joinDirFile is the inverse of splitDirFile.
func joinDirFile(dir, file string) string {
	if dir == "/" || dir == "" {
		return file
	}
	return strings.TrimSuffix(dir, "/") + "/" + file
}

// decodeIndex parses and validates an archive's index, given the already
// validated trailer. ra must address the whole archive file.
func decodeIndex(ra io.ReaderAt, trailer PakInfo) (*Index, error) {
	primary := make([]byte, trailer.IndexSize)
	if _, err := io.ReadFull(io.NewSectionReader(ra, trailer.IndexOffset, trailer.IndexSize), primary); err != nil {
		return nil, fmt.Errorf("read primary index: %w", err)
	}
	if sha1Sum(primary) != trailer.IndexHash {
		return nil, ErrIndexHashMismatch
	}

	r := bytes.NewReader(primary)
	mountPoint, err := readName(r)
	if err != nil {
		return nil, fmt.Errorf("read mount point: %w", err)
	}
	if _, err := readI32(r); err != nil { // entry count; the full-directory walk is authoritative.
		return nil, fmt.Errorf("read entry count: %w", err)
	}
	seed, err := readU64(r)
	if err != nil {
		return nil, fmt.Errorf("read path hash seed: %w", err)
	}

	// The path-hash body is never parsed; the full-directory walk below is
	// authoritative. Its subheader is still required to be present.
	hasPathHash, _, _, _, err := readSubHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read path-hash subheader: %w", err)
	}
	if !hasPathHash {
		return nil, ErrNoPathHashIndex
	}

	hasFullDir, fullDirOffset, fullDirSize, fullDirHash, err := readSubHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read full-directory subheader: %w", err)
	}
	if !hasFullDir {
		return nil, ErrNoFullDirectoryIndex
	}

	blobLen, err := readI32(r)
	if err != nil {
		return nil, fmt.Errorf("read encoded entries length: %w", err)
	}
	if blobLen < 0 {
		return nil, fmt.Errorf("encoded entries length %d: %w", blobLen, ErrMalformedData)
	}
	blob := make([]byte, blobLen)
	if _, err := io.ReadFull(r, blob); err != nil {
		return nil, fmt.Errorf("read encoded entries blob: %w", err)
	}

	unencodedCount, err := readI32(r)
	if err != nil {
		return nil, fmt.Errorf("read unencoded entries count: %w", err)
	}
	if unencodedCount != 0 {
		return nil, fmt.Errorf("unencoded entries present: %w", ErrNotImplemented)
	}

	if fullDirOffset < 0 || fullDirSize < 0 {
		return nil, fmt.Errorf("full-directory subheader offset %d size %d: %w", fullDirOffset, fullDirSize, ErrMalformedData)
	}
	fullDirBytes := make([]byte, fullDirSize)
	if _, err := io.ReadFull(io.NewSectionReader(ra, fullDirOffset, fullDirSize), fullDirBytes); err != nil {
		return nil, fmt.Errorf("read full-directory sub-index: %w", err)
	}
	if sha1Sum(fullDirBytes) != fullDirHash {
		return nil, fmt.Errorf("full-directory sub-index: %w", ErrIndexHashMismatch)
	}

	// Entry keys are exposed under the mount point's relative form, so a
	// mounted archive names its entries the way the engine would address
	// them; writeIndex strips the same prefix back off, keeping
	// save -> mount -> save stable.
	rel := relativeMountPoint(mountPoint.String())
	entries := newOrderedEntryMap()
	fr := bytes.NewReader(fullDirBytes)
	dirCount, err := readI32(fr)
	if err != nil {
		return nil, fmt.Errorf("read directory count: %w", err)
	}
	for d := int32(0); d < dirCount; d++ {
		dirName, err := readName(fr)
		if err != nil {
			return nil, fmt.Errorf("read directory %d name: %w", d, err)
		}
		fileCount, err := readI32(fr)
		if err != nil {
			return nil, fmt.Errorf("read directory %d file count: %w", d, err)
		}
		for f := int32(0); f < fileCount; f++ {
			fileName, err := readName(fr)
			if err != nil {
				return nil, fmt.Errorf("read directory %d file %d name: %w", d, f, err)
			}
			blobOffset, err := readI32(fr)
			if err != nil {
				return nil, fmt.Errorf("read directory %d file %d offset: %w", d, f, err)
			}
			if blobOffset < 0 {
				continue // negative (e.g. INT32_MIN) marks a deleted/omitted entry.
			}
			if int(blobOffset) >= len(blob) {
				return nil, fmt.Errorf("blob offset %d out of range: %w", blobOffset, ErrMalformedData)
			}
			path := joinDirFile(dirName.String(), fileName.String())
			if rel != "" {
				path = joinDirFile(strings.TrimSuffix(rel, "/"), path)
			}
			if !isTraversalSafe(path) {
				return nil, fmt.Errorf("%s: %w", path, ErrPathTraversal)
			}
			entryMeta, err := decodeEntryMeta(bytes.NewReader(blob[blobOffset:]), trailer.Version, trailer.CompressionMethods)
			if err != nil {
				return nil, fmt.Errorf("decode entry %s: %w", path, err)
			}
			entries.Add(NewName(path), &entryMeta)
		}
	}

	return &Index{
		MountPoint:   mountPoint,
		PathHashSeed: seed,
		Entries:      entries,
		Methods:      trailer.CompressionMethods,
	}, nil
}

// readSubHeader reads a has-flag i32 followed, if set, by {offset i64,
// size i64, hash 20B}.
func readSubHeader(r io.Reader) (present bool, offset, size int64, hash [20]byte, err error) {
	flag, err := readI32(r)
	if err != nil {
		return false, 0, 0, hash, err
	}
	if flag == 0 {
		return false, 0, 0, hash, nil
	}
	if offset, err = readI64(r); err != nil {
		return false, 0, 0, hash, err
	}
	if size, err = readI64(r); err != nil {
		return false, 0, 0, hash, err
	}
	if _, err = io.ReadFull(r, hash[:]); err != nil {
		return false, 0, 0, hash, err
	}
	return true, offset, size, hash, nil
}

func writeSubHeader(w io.Writer, offset, size int64, hash [20]byte) error {
	if err := writeI32(w, 1); err != nil {
		return err
	}
	if err := writeI64(w, offset); err != nil {
		return err
	}
	if err := writeI64(w, size); err != nil {
		return err
	}
	_, err := w.Write(hash[:])
	return err
}

func readU64(r io.Reader) (uint64, error) {
	v, err := readI64(r)
	return uint64(v), err
}

func writeU64(w io.Writer, v uint64) error { return writeI64(w, int64(v)) }

// indexWriteResult carries the offset/size/hash fields the trailer needs
// after an index has been serialized, plus the total bytes occupied by the
// primary index plus both sub-indices.
type indexWriteResult struct {
	indexOffset int64
	indexSize   int64
	indexHash   [20]byte
	totalBytes  int64
}

// writeIndex serializes idx starting at file position startOffset, writing
// the primary index structure followed immediately by the path-hash
// sub-index and then the full-directory sub-index. It mutates idx.Methods
// as entries register new compression methods.
func writeIndex(w io.Writer, startOffset int64, idx *Index) (indexWriteResult, error) {
	keys := idx.Entries.Keys()
	values := idx.Entries.Values()

	// Directory and file names are written relative to the mount point, the
	// inverse of the prefixing decodeIndex applies.
	indexPaths := make([]string, len(keys))
	for i, k := range keys {
		indexPaths[i] = stripMountPointPrefix(idx.MountPoint.String(), k.String())
	}

	var blob bytes.Buffer
	blobOffsets := make([]int32, len(keys))
	for i, e := range values {
		blobOffsets[i] = int32(blob.Len())
		if err := encodeEntryMeta(&blob, *e, &idx.Methods); err != nil {
			return indexWriteResult{}, fmt.Errorf("encode entry %s: %w", keys[i].String(), err)
		}
	}

	type dirGroup struct {
		name  string
		files []int
	}
	dirIndex := make(map[string]int)
	var groups []dirGroup

	// ensureDir registers dir (and any missing parent-first ancestors) as a
	// directory bucket: the root "/" bucket always comes first, and every
	// missing ancestor of a nested directory is pushed in before its child.
	var ensureDir func(dir string) int
	ensureDir = func(dir string) int {
		if gi, ok := dirIndex[dir]; ok {
			return gi
		}
		if dir != "/" {
			parent, _ := splitDirFile(dir)
			ensureDir(parent)
		}
		gi := len(groups)
		dirIndex[dir] = gi
		groups = append(groups, dirGroup{name: dir})
		return gi
	}
	ensureDir("/")

	for i := range keys {
		dir, _ := splitDirFile(indexPaths[i])
		gi := ensureDir(dir)
		groups[gi].files = append(groups[gi].files, i)
	}

	var fullDir bytes.Buffer
	if err := writeI32(&fullDir, int32(len(groups))); err != nil {
		return indexWriteResult{}, err
	}
	for _, g := range groups {
		if err := writeName(&fullDir, NewName(g.name)); err != nil {
			return indexWriteResult{}, err
		}
		if err := writeI32(&fullDir, int32(len(g.files))); err != nil {
			return indexWriteResult{}, err
		}
		for _, i := range g.files {
			_, file := splitDirFile(indexPaths[i])
			if err := writeName(&fullDir, NewName(file)); err != nil {
				return indexWriteResult{}, err
			}
			if err := writeI32(&fullDir, blobOffsets[i]); err != nil {
				return indexWriteResult{}, err
			}
		}
	}

	var pathHash bytes.Buffer
	if err := writeI32(&pathHash, int32(len(keys))); err != nil {
		return indexWriteResult{}, err
	}
	for i := range keys {
		if err := writeU64(&pathHash, fnv64OfName(idx.PathHashSeed, indexPaths[i])); err != nil {
			return indexWriteResult{}, err
		}
		if err := writeI32(&pathHash, blobOffsets[i]); err != nil {
			return indexWriteResult{}, err
		}
	}
	if err := writeI32(&pathHash, 0); err != nil { // the directory data lives in the full-directory sub-index.
		return indexWriteResult{}, err
	}

	fullDirHash := sha1Sum(fullDir.Bytes())
	pathHashHash := sha1Sum(pathHash.Bytes())

	var mountBuf bytes.Buffer
	if err := writeName(&mountBuf, idx.MountPoint); err != nil {
		return indexWriteResult{}, err
	}

	primarySize := int64(mountBuf.Len()) + 4 + 8 + (4 + 8 + 8 + 20) + (4 + 8 + 8 + 20) + 4 + int64(blob.Len()) + 4
	pathHashOffset := startOffset + primarySize
	fullDirOffset := pathHashOffset + int64(pathHash.Len())

	var primary bytes.Buffer
	primary.Write(mountBuf.Bytes())
	if err := writeI32(&primary, int32(len(keys))); err != nil {
		return indexWriteResult{}, err
	}
	if err := writeU64(&primary, idx.PathHashSeed); err != nil {
		return indexWriteResult{}, err
	}
	if err := writeSubHeader(&primary, pathHashOffset, int64(pathHash.Len()), pathHashHash); err != nil {
		return indexWriteResult{}, err
	}
	if err := writeSubHeader(&primary, fullDirOffset, int64(fullDir.Len()), fullDirHash); err != nil {
		return indexWriteResult{}, err
	}
	if err := writeI32(&primary, int32(blob.Len())); err != nil {
		return indexWriteResult{}, err
	}
	primary.Write(blob.Bytes())
	if err := writeI32(&primary, 0); err != nil { // unencoded entries count, always 0.
		return indexWriteResult{}, err
	}

	indexHash := sha1Sum(primary.Bytes())

	if _, err := w.Write(primary.Bytes()); err != nil {
		return indexWriteResult{}, err
	}
	if _, err := w.Write(pathHash.Bytes()); err != nil {
		return indexWriteResult{}, err
	}
	if _, err := w.Write(fullDir.Bytes()); err != nil {
		return indexWriteResult{}, err
	}

	return indexWriteResult{
		indexOffset: startOffset,
		indexSize:   int64(primary.Len()),
		indexHash:   indexHash,
		totalBytes:  int64(primary.Len()) + int64(pathHash.Len()) + int64(fullDir.Len()),
	}, nil
}
