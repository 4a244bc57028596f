package files

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrowse(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "b.log", []byte("bb"))
	writeFile(t, dir, "A.txt", []byte("a"))
	writeFile(t, dir, "app.exe", []byte("MZ"))
	writeFile(t, dir, "zeta/inner.log", []byte("inner"))
	writeFile(t, dir, "alpha/inner.log", []byte("inner"))

	items, err := svc.Browse(context.Background(), "logs", "")
	require.NoError(t, err)

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
		require.Equal(t, "logs", item.RootName)
		require.Equal(t, "UTC", item.LastModified.Location().String())
		if item.IsDirectory {
			require.Zero(t, item.SizeBytes)
		}
	}
	require.Equal(t, []string{"alpha", "zeta", "A.txt", "b.log"}, names)
	require.Equal(t, int64(2), items[3].SizeBytes)
	require.Equal(t, "zeta", items[1].Path)

	nested, err := svc.Browse(context.Background(), "logs", "alpha")
	require.NoError(t, err)
	require.Len(t, nested, 1)
	require.Equal(t, "alpha/inner.log", nested[0].Path)
}

func TestBrowseIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "one.log", []byte("1"))
	writeFile(t, dir, "sub/two.log", []byte("2"))

	first, err := svc.Browse(context.Background(), "logs", "")
	require.NoError(t, err)
	second, err := svc.Browse(context.Background(), "logs", "")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestBrowseErrors(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "file.log", []byte("x"))

	_, err := svc.Browse(context.Background(), "other", "")
	require.True(t, IsCode(err, ErrCodeInvalidRoot))

	_, err = svc.Browse(context.Background(), "logs", "../")
	require.True(t, IsCode(err, ErrCodePathEscape))

	_, err = svc.Browse(context.Background(), "logs", "missing")
	require.True(t, IsCode(err, ErrCodeNotFound))

	_, err = svc.Browse(context.Background(), "logs", "file.log")
	require.True(t, IsCode(err, ErrCodeNotFound))
}

func TestBrowseCustomExtensions(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, func(s *Settings) {
		s.AllowedExtensions = []string{"CSV", ".Json"}
	})
	writeFile(t, dir, "a.log", []byte("x"))
	writeFile(t, dir, "b.csv", []byte("x"))
	writeFile(t, dir, "c.JSON", []byte("x"))

	items, err := svc.Browse(context.Background(), "logs", "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "b.csv", items[0].Name)
	require.Equal(t, "c.JSON", items[1].Name)
}
