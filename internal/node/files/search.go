package files

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/logviewer/library/metrics"
	models "github.com/Laisky/logviewer/library/models/files"
)

const searchChunkBytes = 4096

// Search scans every allow-listed file below query.RootName/query.Path for
// the first line containing query.SearchTerm.
//
// Files are scanned by a pool of Settings.Search.Workers goroutines. A file
// that cannot be read is logged and left out of the result. When ctx is done
// before all files were scanned, the hits found so far are returned sorted
// together with the context error.
func (s *Service) Search(ctx context.Context, query models.SearchQuery) ([]models.SearchHit, error) {
	startAt := time.Now()
	defer func() { metrics.ObserveSearch(time.Since(startAt)) }()

	if strings.TrimSpace(query.SearchTerm) == "" {
		return nil, errors.WithStack(NewError(ErrCodeInvalidQuery, "search term cannot be empty"))
	}
	if mode := query.SearchMode.Normalize(); mode != models.SearchModeLiteral {
		return nil, errors.WithStack(NewError(ErrCodeInvalidQuery,
			fmt.Sprintf("search mode %q is not supported", mode)))
	}

	dir, err := s.sandbox.Resolve(query.RootName, query.Path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, errors.WithStack(NewError(ErrCodeNotFound, fmt.Sprintf("directory not found: %s", query.Path)))
	}

	if s.settings.Search.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.Search.Timeout)
		defer cancel()
	}

	logger := s.logger.With(
		zap.String("root", query.RootName),
		zap.String("path", query.Path),
	)

	candidates, err := s.searchCandidates(ctx, query.RootName, dir)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate files")
	}

	matcher := newLiteralMatcher(query.SearchTerm)
	collector := new(hitCollector)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Search.Workers)
	for _, path := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if hit, ok := s.searchFile(gctx, query.RootName, path, matcher); ok {
				collector.add(hit)
			}
			return nil
		})
	}
	_ = g.Wait()

	hits := collector.sorted()
	logger.Debug("search finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("hits", len(hits)),
		zap.Duration("cost", time.Since(startAt)),
	)
	if err := ctx.Err(); err != nil {
		return hits, errors.Wrap(err, "search aborted")
	}
	return hits, nil
}

// searchCandidates walks dir and returns the allow-listed regular files
// that stay inside the root.
func (s *Service) searchCandidates(ctx context.Context, rootName, dir string) ([]string, error) {
	var candidates []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			s.logger.Debug("skip unreadable path", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !s.isAllowedExtension(d.Name()) {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		if !s.sandbox.Contains(rootName, path) {
			s.logger.Warn("skip file escaping root", zap.String("root", rootName), zap.String("path", path))
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// searchFile streams one file and reports its first matching line.
func (s *Service) searchFile(ctx context.Context, rootName, path string, m literalMatcher) (models.SearchHit, bool) {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Error("search file", zap.String("path", path), zap.Error(err))
		metrics.RecordSearchFile(metrics.SearchFileFailed)
		return models.SearchHit{}, false
	}
	if info.Size() > s.settings.MaxFileBytes {
		s.logger.Warn("skip large file", zap.String("path", path), zap.Int64("size", info.Size()))
		metrics.RecordSearchFile(metrics.SearchFileSkipped)
		return models.SearchHit{}, false
	}

	lineNumber, snippet, err := s.scanFile(ctx, path, m)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("search file", zap.String("path", path), zap.Error(err))
			metrics.RecordSearchFile(metrics.SearchFileFailed)
		}
		return models.SearchHit{}, false
	}
	if lineNumber == 0 {
		metrics.RecordSearchFile(metrics.SearchFileMissed)
		return models.SearchHit{}, false
	}

	webPath, err := s.sandbox.RelativeWebPath(rootName, path)
	if err != nil {
		s.logger.Error("search file", zap.String("path", path), zap.Error(err))
		metrics.RecordSearchFile(metrics.SearchFileFailed)
		return models.SearchHit{}, false
	}

	metrics.RecordSearchFile(metrics.SearchFileMatched)
	return models.SearchHit{
		FilePath:       webPath,
		FileName:       filepath.Base(path),
		LastModified:   info.ModTime().UTC(),
		LineNumber:     lineNumber,
		MatchedSnippet: snippet,
	}, true
}

// scanFile reads path in fixed-size chunks, reassembles lines on '\n' and
// stops at the first line that matches. lineNumber is 1-based and 0 when
// nothing matched.
func (s *Service) scanFile(ctx context.Context, path string, m literalMatcher) (int, string, error) {
	enc, err := s.detectFileEncoding(path)
	if err != nil {
		return 0, "", errors.Wrap(err, "detect encoding")
	}

	fp, err := os.Open(path)
	if err != nil {
		return 0, "", errors.Wrap(err, "open file")
	}
	defer fp.Close() // nolint: errcheck

	var (
		reader  = enc.reader(fp)
		buf     = make([]byte, searchChunkBytes)
		current bytes.Buffer
		lineNo  int
	)

	checkLine := func() (int, string, bool) {
		lineNo++
		line := strings.TrimRight(current.String(), "\r")
		if lineNo == 1 {
			line = stripBOM(line)
		}
		current.Reset()
		if at := m.index(line); at >= 0 {
			return lineNo, buildSnippet(line, at), true
		}
		return 0, "", false
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, "", err
		}

		n, readErr := reader.Read(buf)
		chunk := buf[:n]
		for len(chunk) > 0 {
			nl := bytes.IndexByte(chunk, '\n')
			if nl < 0 {
				current.Write(chunk)
				break
			}
			current.Write(chunk[:nl])
			chunk = chunk[nl+1:]
			if no, snip, ok := checkLine(); ok {
				return no, snip, nil
			}
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				return 0, "", errors.Wrap(readErr, "read file")
			}
			break
		}
	}

	if current.Len() > 0 {
		if no, snip, ok := checkLine(); ok {
			return no, snip, nil
		}
	}
	return 0, "", nil
}

// hitCollector accumulates hits from concurrent workers.
type hitCollector struct {
	mu   sync.Mutex
	hits []models.SearchHit
}

func (c *hitCollector) add(hit models.SearchHit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = append(c.hits, hit)
}

// sorted returns a copy of the hits ordered by file path.
func (c *hitCollector) sorted() []models.SearchHit {
	c.mu.Lock()
	out := make([]models.SearchHit, len(c.hits))
	copy(out, c.hits)
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].FilePath < out[j].FilePath
	})
	return out
}
