package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/logviewer/internal/node/files"
	models "github.com/Laisky/logviewer/library/models/files"
)

var ginModeOnce sync.Once

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

const testAPIKey = "s3cret"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	setupGinTestMode()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app", "today.log"), []byte("boot\nERROR disk full\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tool.exe"), []byte("MZ"), 0o644))

	svc, err := files.NewService(files.Settings{Roots: map[string]string{"logs": dir}}, nil)
	require.NoError(t, err)
	return NewServer(svc, testAPIKey, nil), dir
}

func doRequest(t *testing.T, s *Server, method, target string, body any, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set(models.HeaderAPIKey, apiKey)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "healthy", status.Status)
	require.False(t, status.Timestamp.IsZero())

	rec = doRequest(t, s, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyRequired(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/roots", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "API key was not provided")

	rec = doRequest(t, s, http.MethodGet, "/roots", nil, "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid API key")

	rec = doRequest(t, s, http.MethodGet, "/roots", nil, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var roots []models.RootDirectory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roots))
	require.Len(t, roots, 1)
	require.Equal(t, "logs", roots[0].Name)
}

func TestEmptyAPIKeyDisablesAuth(t *testing.T) {
	t.Parallel()
	setupGinTestMode()

	svc, err := files.NewService(files.Settings{Roots: map[string]string{"logs": t.TempDir()}}, nil)
	require.NoError(t, err)
	s := NewServer(svc, "", nil)

	rec := doRequest(t, s, http.MethodGet, "/roots", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBrowseEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/browse?rootName=logs&path=", nil, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []models.FileItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	require.Equal(t, "app", items[0].Name)
	require.True(t, items[0].IsDirectory)
	require.Equal(t, "notes.txt", items[1].Name)

	cases := []struct {
		target string
		status int
		code   files.ErrorCode
	}{
		{"/browse?rootName=nope", http.StatusBadRequest, files.ErrCodeInvalidRoot},
		{"/browse?rootName=logs&path=../../etc", http.StatusForbidden, files.ErrCodePathEscape},
		{"/browse?rootName=logs&path=missing", http.StatusNotFound, files.ErrCodeNotFound},
	}
	for _, tc := range cases {
		rec := doRequest(t, s, http.MethodGet, tc.target, nil, testAPIKey)
		require.Equal(t, tc.status, rec.Code, tc.target)

		var body models.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, string(tc.code), body.Code, tc.target)
		require.NotEmpty(t, body.Error)
	}
}

func TestFileEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/file?rootName=logs&path=app/today.log", nil, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.FileReadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)
	require.Equal(t, "boot\nERROR disk full\n", result.Contents)

	rec = doRequest(t, s, http.MethodGet, "/file?rootName=logs&path=tool.exe", nil, testAPIKey)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	require.Contains(t, rec.Body.String(), string(files.ErrCodeUnsupportedExtension))
}

func TestSearchEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/search", models.SearchQuery{
		RootName:   "logs",
		SearchTerm: "error",
	}, testAPIKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	require.Equal(t, "app/today.log", resp.Results[0].FilePath)
	require.Equal(t, 2, resp.Results[0].LineNumber)

	rec = doRequest(t, s, http.MethodPost, "/search", models.SearchQuery{RootName: "logs"}, testAPIKey)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp = models.SearchResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Error)
	require.Equal(t, string(files.ErrCodeInvalidQuery), resp.Code)
	require.NotNil(t, resp.Results)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewBufferString("{not json"))
	req.Header.Set(models.HeaderAPIKey, testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	s.Handler().ServeHTTP(raw, req)
	require.Equal(t, http.StatusBadRequest, raw.Code)
}
