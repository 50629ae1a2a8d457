package node

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// resolveWithinRoot interprets requested as relative to root and fails
// with PathEscape if the resolved absolute path, after normalization and
// symlink resolution, is not a descendant of root. Empty means root
// itself. This is the single choke point every tool handler goes
// through before touching the filesystem — §4.1 "Path confinement".
func resolveWithinRoot(root string, requested string) (string, error) {
	if requested == "" {
		requested = "."
	}

	if filepath.IsAbs(requested) || strings.HasPrefix(filepath.ToSlash(requested), "/") {
		return "", NewToolError(ErrPathEscape, "absolute paths are not allowed: "+requested, nil)
	}

	cleaned := filepath.Clean(filepath.Join(root, requested))

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", NewToolError(ErrInternalError, "resolving root", err)
	}
	if !isDescendant(rootAbs, cleaned) {
		return "", NewToolError(ErrPathEscape, "path escapes root: "+requested, nil)
	}

	// Resolve symlinks on the parent directory chain (the final
	// component may legitimately not exist yet, e.g. a WriteFile
	// target), and re-check containment after resolution.
	resolved, err := resolveSymlinksBestEffort(cleaned)
	if err != nil {
		return "", NewToolError(ErrInternalError, "resolving symlinks", err)
	}
	if !isDescendant(rootAbs, resolved) {
		return "", NewToolError(ErrPathEscape, "symlink escapes root: "+requested, nil)
	}

	return cleaned, nil
}

func isDescendant(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, "..") && rel != ".."
}

// resolveSymlinksBestEffort walks up the path until it finds an
// existing ancestor, resolves symlinks on that ancestor, and rejoins the
// remaining (not-yet-existing) suffix. A path that doesn't exist at all
// is returned as-is after resolving its deepest existing ancestor.
func resolveSymlinksBestEffort(p string) (string, error) {
	if _, err := os.Lstat(p); err == nil {
		resolved, err := filepath.EvalSymlinks(p)
		if err != nil {
			return "", err
		}
		return resolved, nil
	}

	dir, base := filepath.Split(p)
	dir = filepath.Clean(dir)
	if dir == p {
		return p, nil
	}
	resolvedDir, err := resolveSymlinksBestEffort(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, base), nil
}

// FileEntry is one row of a ListFiles reply (§3).
type FileEntry struct {
	RelativePath string `json:"relative_path"`
	IsDir        bool   `json:"is_dir"`
	SizeBytes    int64  `json:"size_bytes"`
	SHA256       string `json:"sha256,omitempty"`
	ModifiedAt   int64  `json:"modified_at"`
}

// listFiles walks target (relative to root, already resolved to an
// absolute path) and returns deterministic, lexicographically sorted
// entries. Symlinks that resolve outside root are skipped rather than
// followed.
func listFiles(root, target string, recursive bool, filter string, withHash bool) ([]FileEntry, error) {
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewToolError(ErrFileNotFound, target, err)
		}
		return nil, NewToolError(ErrInternalError, "stat failed", err)
	}

	var entries []FileEntry
	rootAbs, _ := filepath.Abs(root)

	var walk func(dir string) error
	walk = func(dir string) error {
		children, err := os.ReadDir(dir)
		if err != nil {
			return NewToolError(ErrInternalError, "readdir failed", err)
		}
		for _, child := range children {
			childPath := filepath.Join(dir, child.Name())

			childInfo, err := os.Lstat(childPath)
			if err != nil {
				continue
			}

			if childInfo.Mode()&os.ModeSymlink != 0 {
				resolved, err := filepath.EvalSymlinks(childPath)
				if err != nil || !isDescendant(rootAbs, resolved) {
					// Escaping or broken symlink: listed, never followed.
					continue
				}
			}

			realInfo, err := os.Stat(childPath)
			if err != nil {
				continue
			}

			matched := true
			if filter != "" {
				matched, _ = path.Match(filter, child.Name())
			}
			if !matched {
				if recursive && realInfo.IsDir() {
					if err := walk(childPath); err != nil {
						return err
					}
				}
				continue
			}

			rel, err := filepath.Rel(rootAbs, childPath)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			entry := FileEntry{
				RelativePath: rel,
				IsDir:        realInfo.IsDir(),
				SizeBytes:    0,
				ModifiedAt:   realInfo.ModTime().Unix(),
			}
			if !realInfo.IsDir() {
				entry.SizeBytes = realInfo.Size()
				if withHash {
					digest, err := hashFile(childPath)
					if err != nil {
						return err
					}
					entry.SHA256 = digest
				}
			}

			entries = append(entries, entry)
			if realInfo.IsDir() && recursive {
				if err := walk(childPath); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if info.IsDir() {
		if err := walk(target); err != nil {
			return nil, err
		}
	} else {
		rel, err := filepath.Rel(rootAbs, target)
		if err != nil {
			return nil, NewToolError(ErrInternalError, "relativizing path", err)
		}
		entry := FileEntry{
			RelativePath: filepath.ToSlash(rel),
			IsDir:        false,
			SizeBytes:    info.Size(),
			ModifiedAt:   info.ModTime().Unix(),
		}
		if withHash {
			digest, err := hashFile(target)
			if err != nil {
				return nil, err
			}
			entry.SHA256 = digest
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelativePath < entries[j].RelativePath
	})

	return entries, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", NewToolError(ErrInternalError, "opening file for hash", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", NewToolError(ErrInternalError, "hashing file", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
