// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package upak

import (
	"path"
	"strings"
)

// mountPointPrefix is the canonical pak mount-point prefix FindEntry and
// normalizeArchiveEntryPath both strip to derive the relative mount point.
const mountPointPrefix = "../../../"

// NormalizePath converts an archive/internal path to normalized
// slash-separated form. It trims spaces, accepts both "/" and "\", removes
// leading "./" and "/", and cleans "." segments.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}
	return strings.TrimSuffix(raw, "/")
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimPrefix(p, "./")
	return p
}

// normalizeArchiveEntryPath converts an input path to canonical archive form
// and strips mountPoint's leading "../../../" prefix and relative form from
// it, so an entry added using a mount-point-rooted path stores the same key
// FindEntry would resolve it back to.
func normalizeArchiveEntryPath(mountPoint, raw string) (string, error) {
	normalized := NormalizePath(raw)
	if normalized == "" {
		return "", invalidEntryPathf(raw)
	}
	normalized = stripMountPointPrefix(mountPoint, normalized)
	if normalized == "" {
		return "", invalidEntryPathf(raw)
	}
	return normalized, nil
}

// stripMountPointPrefix removes mountPoint's relative-form prefix from path,
// if path starts with it, returning path unchanged otherwise.
func stripMountPointPrefix(mountPoint, path string) string {
	rel := relativeMountPoint(mountPoint)
	if rel == "" {
		return path
	}
	if stripped, ok := trimPathPrefix(path, rel); ok {
		return stripped
	}
	return path
}

// trimPathPrefix removes prefix from path on a "/" segment boundary,
// reporting whether it matched. "TestGame" is not a prefix of
// "TestGameX/foo".
func trimPathPrefix(path, prefix string) (string, bool) {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return path, false
	}
	if !strings.HasPrefix(path, prefix+"/") {
		return path, false
	}
	return path[len(prefix)+1:], true
}

func invalidEntryPathf(raw string) error {
	return &invalidPathError{raw: raw}
}

type invalidPathError struct{ raw string }

func (e *invalidPathError) Error() string {
	return "pak: invalid entry path: " + e.raw
}

func (e *invalidPathError) Unwrap() error { return ErrInvalidEntryPath }

// isRootedPath reports whether p is an absolute path: it starts with "/"
// (or "\") or matches a Windows drive letter like "C:/" or "C:\".
func isRootedPath(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return true
	}
	if len(p) >= 3 && p[1] == ':' && (p[2] == '/' || p[2] == '\\') {
		c := p[0]
		return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
	}
	return false
}

// relativeMountPoint computes the mount point with the canonical
// "../../../" prefix stripped if present. A rooted mount point (one with no
// such prefix but still an absolute path) normalizes to the empty string;
// any other mount point is returned unchanged.
func relativeMountPoint(mountPoint string) string {
	if stripped := strings.TrimPrefix(mountPoint, mountPointPrefix); stripped != mountPoint {
		return stripped
	}
	if isRootedPath(mountPoint) {
		return ""
	}
	return mountPoint
}

// isTraversalSafe reports whether p, once split on "/" or "\", contains no
// ".." segment and is not rooted. Archive-derived directory/file names are
// untrusted input: a crafted pair like {"../../../../tmp", "evil"} must
// never reach a map key or a filesystem write target.
func isTraversalSafe(p string) bool {
	if p == "" || isRootedPath(p) {
		return false
	}
	for _, seg := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// resolveEntryPath builds the candidate lookup keys FindEntry tries, in
// order: the path exactly as given, the path with the mount point stripped,
// the path with the mount point's relative form stripped, and the path with
// the relative form re-applied (for entries a mounted archive keys under
// their mount-point-qualified name).
func resolveEntryPath(mountPoint, requested string) []string {
	candidates := []string{requested}

	if stripped, ok := trimPathPrefix(requested, mountPoint); ok {
		candidates = append(candidates, stripped)
	}

	rel := relativeMountPoint(mountPoint)
	if rel != mountPoint && rel != "" {
		if stripped, ok := trimPathPrefix(requested, rel); ok {
			candidates = append(candidates, stripped)
		}
	}

	if rel != "" {
		if _, ok := trimPathPrefix(requested, rel); !ok {
			candidates = append(candidates, strings.TrimSuffix(rel, "/")+"/"+strings.TrimPrefix(requested, "/"))
		}
	}

	return candidates
}
