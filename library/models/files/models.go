// Package files holds the wire models exchanged between nodes, the gateway
// and its callers.
package files

import "time"

const (
	// HeaderAPIKey carries the shared secret on every gateway-to-node call.
	HeaderAPIKey = "X-API-Key"
	// HeaderRequestID correlates gateway and node logs.
	HeaderRequestID = "X-Request-Id"
)

// SearchMode selects how SearchQuery.SearchTerm is matched.
type SearchMode string

const (
	// SearchModeLiteral matches the term as a case-insensitive substring.
	SearchModeLiteral SearchMode = "literal"
)

// Normalize maps the empty mode to SearchModeLiteral.
func (m SearchMode) Normalize() SearchMode {
	if m == "" {
		return SearchModeLiteral
	}
	return m
}

// RootDirectory is one named subtree exposed by a node.
type RootDirectory struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FileItem is one entry of a directory listing.
type FileItem struct {
	Name string `json:"name"`
	// Path is relative to the root and always uses '/' separators.
	Path         string    `json:"path"`
	IsDirectory  bool      `json:"isDirectory"`
	RootName     string    `json:"rootName"`
	LastModified time.Time `json:"lastModified"`
	SizeBytes    int64     `json:"sizeBytes"`
}

// FileReadResult is the outcome of reading one file.
type FileReadResult struct {
	Success      bool   `json:"success"`
	Contents     string `json:"contents,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	EncodingName string `json:"encodingName,omitempty"`
	SizeBytes    int64  `json:"sizeBytes"`
}

// SearchQuery asks a node to search files below RootName/Path.
type SearchQuery struct {
	RootName   string     `json:"rootName"`
	Path       string     `json:"path"`
	SearchTerm string     `json:"searchTerm"`
	SearchMode SearchMode `json:"searchMode,omitempty"`
}

// SearchHit is the first matching line of one file.
type SearchHit struct {
	FilePath       string    `json:"filePath"`
	FileName       string    `json:"fileName"`
	LastModified   time.Time `json:"lastModified"`
	LineNumber     int       `json:"lineNumber"`
	MatchedSnippet string    `json:"matchedSnippet"`
}

// SearchResponse is the node's answer to POST /search.
type SearchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// Code is the node error code of a failed search.
	Code    string      `json:"code,omitempty"`
	Results []SearchHit `json:"results"`
}

// ErrorBody is the body of every non-2xx node response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope wraps every operation proxied by the gateway. ErrorCode holds a
// node error code such as PATH_ESCAPE when the node reported one, or one of
// the gateway codes below.
type Envelope[T any] struct {
	Success      bool   `json:"success"`
	Data         T      `json:"data"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	NodeID       string `json:"nodeId"`
}

// NodeView is the public projection of a configured node.
type NodeView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	IsHealthy     bool      `json:"isHealthy"`
	LastCheckedAt time.Time `json:"lastChecked"`
}

// Gateway error codes carried in Envelope.ErrorCode.
const (
	CodeNodeNotFound    = "NODE_NOT_FOUND"
	CodeNodeUnreachable = "NODE_UNREACHABLE"
	CodeTransportError  = "TRANSPORT_ERROR"
	CodeInvalidQuery    = "INVALID_QUERY"
	CodeInternal        = "INTERNAL"
)
