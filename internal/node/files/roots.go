package files

import (
	"path/filepath"
	"sort"
	"strings"

	errors "github.com/Laisky/errors/v2"

	models "github.com/Laisky/logviewer/library/models/files"
)

// RootRegistry maps root names to absolute directories. It is immutable
// once constructed.
type RootRegistry struct {
	roots map[string]models.RootDirectory
	names []string
}

// NewRootRegistry builds a registry from name→path pairs. Relative paths are
// made absolute against the working directory.
func NewRootRegistry(roots map[string]string) (*RootRegistry, error) {
	reg := &RootRegistry{roots: make(map[string]models.RootDirectory, len(roots))}
	for name, path := range roots {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("root name is required")
		}
		if strings.TrimSpace(path) == "" {
			return nil, errors.Errorf("root %q has an empty path", name)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve root %q", name)
		}
		reg.roots[name] = models.RootDirectory{Name: name, Path: abs}
		reg.names = append(reg.names, name)
	}
	sort.Strings(reg.names)
	return reg, nil
}

// Roots returns all roots sorted by name.
func (r *RootRegistry) Roots() []models.RootDirectory {
	out := make([]models.RootDirectory, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.roots[name])
	}
	return out
}

// Lookup returns the root registered under name.
func (r *RootRegistry) Lookup(name string) (models.RootDirectory, bool) {
	root, ok := r.roots[name]
	return root, ok
}
