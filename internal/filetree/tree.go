package filetree

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a path has no file and no children.
	ErrNotFound = errors.New("path not found")
	// ErrNotFile is returned when a text operation targets a directory.
	ErrNotFile = errors.New("not a file")
)

// Tree is an immutable snapshot of a template file tree.
// All mutating operations return a new Tree; callers never mutate in place.
type Tree struct {
	files map[string]string
}

// New returns an empty tree.
func New() Tree {
	return Tree{files: map[string]string{}}
}

// FromMap builds a tree from a path→content map. Paths are normalized.
func FromMap(m map[string]string) Tree {
	files := make(map[string]string, len(m))
	for path, content := range m {
		files[normalize(path)] = content
	}
	return Tree{files: files}
}

// normalize strips leading "./" and "/" and any trailing "/".
func normalize(path string) string {
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return strings.TrimSuffix(path, "/")
}

// Exists reports whether path names a file or a directory in the tree.
func (t Tree) Exists(path string) bool {
	path = normalize(path)
	if _, ok := t.files[path]; ok {
		return true
	}
	return t.IsDir(path)
}

// IsDir reports whether path is a directory, i.e. a prefix of stored files.
func (t Tree) IsDir(path string) bool {
	path = normalize(path)
	if path == "" {
		return len(t.files) > 0
	}
	prefix := path + "/"
	for p := range t.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// ReadText returns the content of the file at path.
func (t Tree) ReadText(path string) (string, error) {
	path = normalize(path)
	if content, ok := t.files[path]; ok {
		return content, nil
	}
	if t.IsDir(path) {
		return "", fmt.Errorf("%s: %w", path, ErrNotFile)
	}
	return "", fmt.Errorf("%s: %w", path, ErrNotFound)
}

// WithFile returns a new tree with the file at path set to content.
func (t Tree) WithFile(path, content string) Tree {
	path = normalize(path)
	files := make(map[string]string, len(t.files)+1)
	for p, c := range t.files {
		files[p] = c
	}
	files[path] = content
	return Tree{files: files}
}

// Without returns a new tree with the file at path removed.
// If path is a directory, the whole subtree is removed.
func (t Tree) Without(path string) (Tree, error) {
	path = normalize(path)
	if !t.Exists(path) {
		return t, fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	prefix := path + "/"
	files := make(map[string]string, len(t.files))
	for p, c := range t.files {
		if p == path || strings.HasPrefix(p, prefix) {
			continue
		}
		files[p] = c
	}
	return Tree{files: files}, nil
}

// Paths returns all file paths in the tree, sorted.
func (t Tree) Paths() []string {
	paths := make([]string, 0, len(t.files))
	for p := range t.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of files in the tree.
func (t Tree) Len() int {
	return len(t.files)
}
