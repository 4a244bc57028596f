package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/logviewer/library/metrics"
	models "github.com/Laisky/logviewer/library/models/files"
)

// Read returns the decoded contents of rootName/relativePath.
//
// Sandbox, existence and extension violations are returned as typed errors.
// Files over the size ceiling and read or decode failures are reported in
// the result with Success=false.
func (s *Service) Read(ctx context.Context, rootName, relativePath string) (models.FileReadResult, error) {
	path, err := s.sandbox.Resolve(rootName, relativePath)
	if err != nil {
		metrics.RecordFileRead("rejected")
		return models.FileReadResult{}, errors.WithStack(err)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		metrics.RecordFileRead("rejected")
		return models.FileReadResult{}, errors.WithStack(
			NewError(ErrCodeNotFound, fmt.Sprintf("file not found: %s", relativePath)))
	}

	if !s.isAllowedExtension(path) {
		metrics.RecordFileRead("rejected")
		return models.FileReadResult{}, errors.WithStack(
			NewError(ErrCodeUnsupportedExtension,
				fmt.Sprintf("file type not allowed: %s", strings.ToLower(filepath.Ext(path)))))
	}

	size := info.Size()
	if size > s.settings.MaxFileBytes {
		metrics.RecordFileRead("too_large")
		return models.FileReadResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("file is too large, maximum size is %s", formatBytes(s.settings.MaxFileBytes)),
			SizeBytes:    size,
		}, nil
	}

	enc, err := s.detectFileEncoding(path)
	if err != nil {
		s.logger.Warn("detect file encoding", zap.String("path", path), zap.Error(err))
		metrics.RecordFileRead("failed")
		return models.FileReadResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("%s: %v", ErrCodeEncodingDetection, err),
			SizeBytes:    size,
		}, nil
	}

	contents, err := s.readDecoded(ctx, path, enc)
	if err != nil {
		s.logger.Warn("read file", zap.String("path", path), zap.String("encoding", enc.name), zap.Error(err))
		metrics.RecordFileRead("failed")
		return models.FileReadResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("error reading file: %v", err),
			SizeBytes:    size,
		}, nil
	}

	metrics.RecordFileRead("ok")
	return models.FileReadResult{
		Success:      true,
		Contents:     contents,
		EncodingName: enc.name,
		SizeBytes:    size,
	}, nil
}

// readDecoded reads the whole file through the decoder of enc, bounded by
// the size ceiling plus decoder expansion.
func (s *Service) readDecoded(ctx context.Context, path string, enc namedEncoding) (string, error) {
	fp, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open file")
	}
	defer fp.Close() // nolint: errcheck

	// a single byte may decode into up to 3 bytes of UTF-8
	limit := 3*s.settings.MaxFileBytes + 4
	var sb strings.Builder
	if _, err = io.Copy(&sb, io.LimitReader(&ctxReader{ctx: ctx, r: enc.reader(fp)}, limit)); err != nil {
		return "", errors.Wrap(err, "decode file")
	}

	return stripBOM(sb.String()), nil
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func formatBytes(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
