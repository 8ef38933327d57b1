// Package vfs provides an in-memory POSIX-like namespace for the command
// simulator. Nothing here ever touches the real filesystem.
package vfs

import (
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for path lookups.
var (
	ErrNotFound     = fmt.Errorf("no such file or directory")
	ErrNotDirectory = fmt.Errorf("not a directory")
)

// FileSystem is a simulated hierarchical namespace: a path->content map
// for files and a path set for directories. A path is never both.
type FileSystem struct {
	files       map[string]string
	directories map[string]struct{}
	currentDir  string
}

// New returns a filesystem pre-seeded with /, /home, /home/user and /tmp,
// with the working directory at /home/user.
func New() *FileSystem {
	return &FileSystem{
		files: make(map[string]string),
		directories: map[string]struct{}{
			"/":          {},
			"/home":      {},
			"/home/user": {},
			"/tmp":       {},
		},
		currentDir: "/home/user",
	}
}

// CurrentDir returns the working directory (always absolute).
func (fs *FileSystem) CurrentDir() string { return fs.currentDir }

// SetCurrentDir changes the working directory. The caller is responsible
// for verifying the target is a directory.
func (fs *FileSystem) SetCurrentDir(path string) {
	fs.currentDir = fs.NormalizePath(path)
}

// NormalizePath resolves a path against the working directory and
// collapses "." and ".." segments. The result is always absolute and
// "/"-rooted; an empty result collapses to "/". Idempotent.
func (fs *FileSystem) NormalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		if fs.currentDir == "/" {
			path = "/" + path
		} else {
			path = fs.currentDir + "/" + path
		}
	}

	var parts []string
	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

// Exists reports whether the path exists as a file or directory.
func (fs *FileSystem) Exists(path string) bool {
	norm := fs.NormalizePath(path)
	if _, ok := fs.files[norm]; ok {
		return true
	}
	_, ok := fs.directories[norm]
	return ok
}

// IsFile reports whether the path is an existing file.
func (fs *FileSystem) IsFile(path string) bool {
	_, ok := fs.files[fs.NormalizePath(path)]
	return ok
}

// IsDirectory reports whether the path is an existing directory.
func (fs *FileSystem) IsDirectory(path string) bool {
	_, ok := fs.directories[fs.NormalizePath(path)]
	return ok
}

// ReadFile returns the content of a file.
func (fs *FileSystem) ReadFile(path string) (string, error) {
	content, ok := fs.files[fs.NormalizePath(path)]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return content, nil
}

// WriteFile upserts a file. Only the immediate parent directory entry is
// auto-created; deeper missing ancestors are left to CreateDirectory.
func (fs *FileSystem) WriteFile(path, content string) {
	norm := fs.NormalizePath(path)
	if parent := parentPath(norm); parent != "" {
		if _, ok := fs.directories[parent]; !ok {
			fs.directories[parent] = struct{}{}
		}
	}
	fs.files[norm] = content
}

// ListDirectory returns the sorted direct children of a directory.
func (fs *FileSystem) ListDirectory(path string) ([]string, error) {
	norm := fs.NormalizePath(path)
	if !fs.Exists(norm) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if !fs.IsDirectory(norm) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}

	prefix := norm + "/"
	if norm == "/" {
		prefix = "/"
	}

	var names []string
	for p := range fs.files {
		if rest, ok := strings.CutPrefix(p, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	for p := range fs.directories {
		if p == norm {
			continue
		}
		if rest, ok := strings.CutPrefix(p, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	return names, nil
}

// CreateDirectory adds the directory and every missing ancestor up to an
// existing one or the root.
func (fs *FileSystem) CreateDirectory(path string) {
	norm := fs.NormalizePath(path)
	fs.directories[norm] = struct{}{}

	parent := parentPath(norm)
	for parent != "" && parent != "/" {
		if _, ok := fs.directories[parent]; ok {
			break
		}
		fs.directories[parent] = struct{}{}
		parent = parentPath(parent)
	}
}

// Touch creates an empty file if the path is absent. No timestamps are
// modeled, so touching an existing file is a no-op.
func (fs *FileSystem) Touch(path string) {
	norm := fs.NormalizePath(path)
	if _, ok := fs.files[norm]; !ok {
		fs.WriteFile(norm, "")
	}
}

// parentPath returns the parent of an absolute normalized path, "" for "/".
func parentPath(path string) string {
	if path == "/" {
		return ""
	}
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}
