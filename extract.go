// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// extractCopyBufferSize is the per-worker buffer size for file writes
// during extraction.
const extractCopyBufferSize = 64 * 1024

// ExtractOptions configures ExtractAll.
type ExtractOptions struct {
	// MaxWorkers is the number of extraction workers; zero means GOMAXPROCS.
	MaxWorkers int
	// OnEntryDone is called after each entry is fully written to disk.
	OnEntryDone func(path string, written int64, outputPath string)
}

// ExtractAll writes every current entry's payload under dstDir, preserving
// archive-relative paths, using a worker pool.
func (pf *PakFile) ExtractAll(ctx context.Context, dstDir string, opts ExtractOptions) error {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	paths := pf.Entries()
	if len(paths) == 0 {
		return nil
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := prepareExtractDirs(dstRootAbs, paths); err != nil {
		return err
	}

	taskCh := make(chan string, len(paths))
	errCh := make(chan error, len(paths))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Go(func() {
			buf := make([]byte, extractCopyBufferSize)
			for path := range taskCh {
				err := pf.extractOne(dstRootAbs, path, buf, opts.OnEntryDone)
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		})
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			close(taskCh)
			wg.Wait()
			return ctx.Err()
		case taskCh <- path:
		}
	}
	close(taskCh)
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func prepareExtractDirs(dstRootAbs string, paths []string) error {
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if !isTraversalSafe(path) {
			return fmt.Errorf("%s: %w", path, ErrPathTraversal)
		}
		dir := filepath.Dir(filepath.FromSlash(path))
		if dir == "." || dir == "" {
			continue
		}
		full := filepath.Join(dstRootAbs, dir)
		key := strings.ToLower(full)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if err := os.MkdirAll(full, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", full, err)
		}
	}
	return nil
}

func (pf *PakFile) extractOne(dstRootAbs, path string, buf []byte, onDone func(string, int64, string)) error {
	if !isTraversalSafe(path) {
		return fmt.Errorf("%s: %w", path, ErrPathTraversal)
	}

	data, err := pf.ReadEntry(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	outPath := filepath.Join(dstRootAbs, filepath.FromSlash(path))
	f, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", outPath, err)
	}

	n, err := f.Write(data)
	closeErr := f.Close()
	if err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", outPath, closeErr)
	}

	if onDone != nil {
		onDone(path, int64(n), outPath)
	}
	return nil
}
