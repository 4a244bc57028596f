package files

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Sandbox resolves caller supplied relative paths against a root and
// guarantees the result stays inside it. Every filesystem access of the
// service goes through Resolve or Contains.
type Sandbox struct {
	roots *RootRegistry
}

// NewSandbox constructs a sandbox over the given roots.
func NewSandbox(roots *RootRegistry) *Sandbox {
	return &Sandbox{roots: roots}
}

// Resolve maps rootName + relativePath to an absolute path inside the root.
//
// The returned path is fully resolved when it exists; a path that does not
// exist yet keeps its lexical form below the resolved root so callers can
// report NOT_FOUND.
func (s *Sandbox) Resolve(rootName, relativePath string) (string, error) {
	root, ok := s.roots.Lookup(rootName)
	if !ok {
		return "", NewError(ErrCodeInvalidRoot, fmt.Sprintf("invalid root directory: %s", rootName))
	}

	rel := normalizeRelativePath(relativePath)
	for _, seg := range strings.Split(rel, string(os.PathSeparator)) {
		if seg == ".." {
			return "", pathEscape(relativePath)
		}
	}

	joined := filepath.Join(root.Path, rel)
	if !isWithin(root.Path, joined) {
		return "", pathEscape(relativePath)
	}

	resolvedRoot := canonicalize(root.Path)
	resolved := canonicalize(joined)
	if !isWithin(resolvedRoot, resolved) {
		return "", pathEscape(relativePath)
	}

	return resolved, nil
}

// Contains reports whether absPath, once symlinks are resolved, is inside
// the named root.
func (s *Sandbox) Contains(rootName, absPath string) bool {
	root, ok := s.roots.Lookup(rootName)
	if !ok {
		return false
	}
	return isWithin(canonicalize(root.Path), canonicalize(absPath))
}

// RelativeWebPath converts an absolute path inside rootName into the
// root-relative, '/'-separated form used on the wire.
func (s *Sandbox) RelativeWebPath(rootName, absPath string) (string, error) {
	root, ok := s.roots.Lookup(rootName)
	if !ok {
		return "", NewError(ErrCodeInvalidRoot, fmt.Sprintf("invalid root directory: %s", rootName))
	}
	rel, err := filepath.Rel(canonicalize(root.Path), absPath)
	if err != nil {
		return "", NewError(ErrCodePathEscape, "path is outside of root")
	}
	return filepath.ToSlash(rel), nil
}

func pathEscape(relativePath string) *Error {
	return NewError(ErrCodePathEscape, fmt.Sprintf("access to path %q is not allowed", relativePath))
}

// normalizeRelativePath swaps web separators for the local one and drops
// characters the local filesystem cannot hold.
func normalizeRelativePath(path string) string {
	if path == "" {
		return ""
	}
	path = strings.ReplaceAll(path, "/", string(os.PathSeparator))
	return strings.Map(func(r rune) rune {
		if isInvalidPathRune(r) {
			return -1
		}
		return r
	}, path)
}

func isInvalidPathRune(r rune) bool {
	if r == 0 {
		return true
	}
	if runtime.GOOS == "windows" {
		if r < 32 {
			return true
		}
		switch r {
		case '"', '<', '>', '|':
			return true
		}
	}
	return false
}

// canonicalize resolves symlinks of the longest existing prefix of path.
func canonicalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return filepath.Join(canonicalize(parent), filepath.Base(path))
}

// isWithin reports whether path equals root or lies below it. The
// comparison ignores case.
func isWithin(root, path string) bool {
	if strings.EqualFold(root, path) {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return len(path) >= len(prefix) && strings.EqualFold(path[:len(prefix)], prefix)
}
