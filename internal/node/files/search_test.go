package files

import (
	"context"
	"fmt"
	"strings"
	"testing"

	errors "github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	models "github.com/Laisky/logviewer/library/models/files"
)

func TestSearchFirstMatchingLine(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "app.log", []byte("one\ntwo\nthree\nfour\nfive NEEDLE here\nsix needle again\n"))

	hits, err := svc.Search(context.Background(), models.SearchQuery{
		RootName:   "logs",
		SearchTerm: "needle",
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, 5, hits[0].LineNumber)
	require.Equal(t, "app.log", hits[0].FilePath)
	require.Equal(t, "app.log", hits[0].FileName)
	require.Equal(t, "five NEEDLE here", hits[0].MatchedSnippet)
}

func TestSearchAcrossTree(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, func(s *Settings) {
		s.Search.Workers = 2
	})
	writeFile(t, dir, "z.log", []byte("ERROR at end"))
	writeFile(t, dir, "a/b.txt", []byte("ok\r\nok\r\nerror: disk\r\n"))
	writeFile(t, dir, "a/skip.bin", []byte("error"))
	writeFile(t, dir, "c/nothing.log", []byte("all good\n"))
	for i := range 20 {
		writeFile(t, dir, fmt.Sprintf("bulk/%02d.log", i), []byte("line\nerror\n"))
	}

	hits, err := svc.Search(context.Background(), models.SearchQuery{
		RootName:   "logs",
		SearchTerm: "Error",
		SearchMode: models.SearchModeLiteral,
	})
	require.NoError(t, err)
	require.Len(t, hits, 22)

	require.Equal(t, "a/b.txt", hits[0].FilePath)
	require.Equal(t, 3, hits[0].LineNumber)
	require.Equal(t, "error: disk", hits[0].MatchedSnippet)
	require.Equal(t, "z.log", hits[len(hits)-1].FilePath)
	require.Equal(t, 1, hits[len(hits)-1].LineNumber)
	for i := 1; i < len(hits); i++ {
		require.Less(t, hits[i-1].FilePath, hits[i].FilePath)
	}

	scoped, err := svc.Search(context.Background(), models.SearchQuery{
		RootName:   "logs",
		Path:       "a",
		SearchTerm: "error",
	})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "a/b.txt", scoped[0].FilePath)
}

func TestSearchNoHits(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "a.log", []byte("quiet\n"))

	hits, err := svc.Search(context.Background(), models.SearchQuery{RootName: "logs", SearchTerm: "loud"})
	require.NoError(t, err)
	require.NotNil(t, hits)
	require.Empty(t, hits)
}

func TestSearchSpecialCharacters(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "a.log", []byte("price is 1+1=2 (approx.)\n"))
	writeFile(t, dir, "b.log", []byte("price is 11=2\n"))

	hits, err := svc.Search(context.Background(), models.SearchQuery{RootName: "logs", SearchTerm: "1+1=2 ("})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "a.log", hits[0].FilePath)
}

func TestSearchSkipsLargeFiles(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, func(s *Settings) {
		s.MaxFileBytes = 32
	})
	writeFile(t, dir, "big.log", []byte(strings.Repeat("needle ", 10)))
	writeFile(t, dir, "small.log", []byte("needle"))

	hits, err := svc.Search(context.Background(), models.SearchQuery{RootName: "logs", SearchTerm: "needle"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "small.log", hits[0].FilePath)
}

func TestSearchDecodesFiles(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	raw := []byte{0xff, 0xfe}
	for _, r := range "first\nsecond needle\n" {
		raw = append(raw, byte(r), 0)
	}
	writeFile(t, dir, "wide.log", raw)
	writeFile(t, dir, "legacy.log", []byte{'c', 'a', 'f', 0xe9, '\n', 'n', 'e', 'e', 'd', 'l', 'e'})

	hits, err := svc.Search(context.Background(), models.SearchQuery{RootName: "logs", SearchTerm: "NEEDLE"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "legacy.log", hits[0].FilePath)
	require.Equal(t, 2, hits[0].LineNumber)
	require.Equal(t, "wide.log", hits[1].FilePath)
	require.Equal(t, 2, hits[1].LineNumber)
	require.Equal(t, "second needle", hits[1].MatchedSnippet)
}

func TestSearchLongLinesAcrossChunks(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	line := strings.Repeat("a", searchChunkBytes+100) + "needle" + strings.Repeat("b", 200)
	writeFile(t, dir, "long.log", []byte("head\n"+line+"\n"))

	hits, err := svc.Search(context.Background(), models.SearchQuery{RootName: "logs", SearchTerm: "needle"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, 2, hits[0].LineNumber)
	require.Equal(t, "..."+strings.Repeat("a", 50)+"needle"+strings.Repeat("b", 44)+"...", hits[0].MatchedSnippet)
}

func TestSearchValidation(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "a.log", []byte("x"))

	_, err := svc.Search(context.Background(), models.SearchQuery{RootName: "logs", SearchTerm: "  "})
	require.True(t, IsCode(err, ErrCodeInvalidQuery))

	_, err = svc.Search(context.Background(), models.SearchQuery{RootName: "logs", SearchTerm: "x", SearchMode: "regex"})
	require.True(t, IsCode(err, ErrCodeInvalidQuery))

	_, err = svc.Search(context.Background(), models.SearchQuery{RootName: "nope", SearchTerm: "x"})
	require.True(t, IsCode(err, ErrCodeInvalidRoot))

	_, err = svc.Search(context.Background(), models.SearchQuery{RootName: "logs", Path: "../..", SearchTerm: "x"})
	require.True(t, IsCode(err, ErrCodePathEscape))

	_, err = svc.Search(context.Background(), models.SearchQuery{RootName: "logs", Path: "missing", SearchTerm: "x"})
	require.True(t, IsCode(err, ErrCodeNotFound))
}

func TestSearchCancelled(t *testing.T) {
	t.Parallel()

	svc, dir := newTestService(t, nil)
	writeFile(t, dir, "a.log", []byte("needle"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Search(ctx, models.SearchQuery{RootName: "logs", SearchTerm: "needle"})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestBuildSnippet(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short match", buildSnippet("short match", 6))

	line := strings.Repeat("x", 60) + "hit" + strings.Repeat("y", 10)
	require.Equal(t, "..."+strings.Repeat("x", 50)+"hit"+strings.Repeat("y", 10), buildSnippet(line, 60))

	line = "hit" + strings.Repeat("z", 150)
	require.Equal(t, "hit"+strings.Repeat("z", 97)+"...", buildSnippet(line, 0))

	// offsets are counted in characters, not bytes
	line = strings.Repeat("é", 60) + "hit"
	at := strings.Index(line, "hit")
	require.Equal(t, "..."+strings.Repeat("é", 50)+"hit", buildSnippet(line, at))
}
