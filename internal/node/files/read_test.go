package files

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadUTF8WithBOM(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "bom.log", append([]byte{0xef, 0xbb, 0xbf}, []byte("héllo\nworld\n")...))

	result, err := svc.Read(context.Background(), "logs", "bom.log")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, EncodingUTF8, result.EncodingName)
	require.Equal(t, "héllo\nworld\n", result.Contents)
	require.Equal(t, int64(3+len("héllo\nworld\n")), result.SizeBytes)
}

func TestReadUTF16LE(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	raw := []byte{0xff, 0xfe}
	for _, r := range "ok\n" {
		raw = append(raw, byte(r), 0)
	}
	writeFile(t, dir, "wide.txt", raw)

	result, err := svc.Read(context.Background(), "logs", "wide.txt")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, EncodingUTF16LE, result.EncodingName)
	require.Equal(t, "ok\n", result.Contents)
}

func TestReadDefaultEncoding(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, func(s *Settings) {
		s.DefaultEncoding = "windows-1252"
	})
	// 0xe9 is 'é' in windows-1252 and invalid on its own in UTF-8
	writeFile(t, dir, "legacy.log", []byte{'c', 'a', 'f', 0xe9})

	result, err := svc.Read(context.Background(), "logs", "legacy.log")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "windows-1252", result.EncodingName)
	require.Equal(t, "café", result.Contents)

	// plain ASCII has no marker and decodes the same either way
	writeFile(t, dir, "ascii.log", []byte("plain"))
	result, err = svc.Read(context.Background(), "logs", "ascii.log")
	require.NoError(t, err)
	require.Equal(t, "plain", result.Contents)
	require.Equal(t, "windows-1252", result.EncodingName)
}

func TestReadASCIIUsesUTF8ByDefault(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "app.log", []byte("plain ascii\n"))

	result, err := svc.Read(context.Background(), "logs", "app.log")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, EncodingUTF8, result.EncodingName)
	require.Equal(t, "plain ascii\n", result.Contents)
}

func TestReadRejections(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "tool.exe", []byte("MZ"))
	writeFile(t, dir, "sub/a.log", []byte("x"))

	_, err := svc.Read(context.Background(), "logs", "tool.exe")
	require.True(t, IsCode(err, ErrCodeUnsupportedExtension))

	_, err = svc.Read(context.Background(), "logs", "missing.log")
	require.True(t, IsCode(err, ErrCodeNotFound))

	_, err = svc.Read(context.Background(), "logs", "sub")
	require.True(t, IsCode(err, ErrCodeNotFound))

	_, err = svc.Read(context.Background(), "logs", "../../etc/passwd")
	require.True(t, IsCode(err, ErrCodePathEscape))

	_, err = svc.Read(context.Background(), "nope", "a.log")
	require.True(t, IsCode(err, ErrCodeInvalidRoot))
}

func TestReadTooLarge(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, func(s *Settings) {
		s.MaxFileBytes = 16
	})
	writeFile(t, dir, "big.log", []byte(strings.Repeat("x", 17)))
	writeFile(t, dir, "ok.log", []byte(strings.Repeat("x", 16)))

	result, err := svc.Read(context.Background(), "logs", "big.log")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Empty(t, result.Contents)
	require.Equal(t, int64(17), result.SizeBytes)
	require.Contains(t, result.ErrorMessage, "too large")
	require.Contains(t, result.ErrorMessage, "16 bytes")

	result, err = svc.Read(context.Background(), "logs", "ok.log")
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "10MB", formatBytes(10*1024*1024))
	require.Equal(t, "1000 bytes", formatBytes(1000))
}
