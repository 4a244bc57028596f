package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestService builds a service over a single temporary root named
// "logs" and returns it with the root directory.
func newTestService(t *testing.T, mutate func(*Settings)) (*Service, string) {
	t.Helper()

	dir := t.TempDir()
	settings := Settings{Roots: map[string]string{"logs": dir}}
	if mutate != nil {
		mutate(&settings)
	}

	svc, err := NewService(settings, nil)
	require.NoError(t, err)
	return svc, dir
}

// writeFile creates root/rel with the given contents, making parent
// directories as needed.
func writeFile(t *testing.T, root, rel string, contents []byte) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, contents, 0o644))
	return path
}
