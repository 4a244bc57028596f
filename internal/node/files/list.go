package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	errors "github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	models "github.com/Laisky/logviewer/library/models/files"
)

// Browse lists the immediate children of rootName/relativePath.
//
// Subdirectories are always listed with a zero size; files only when their
// extension is allow-listed. Directories come first, then names in
// case-insensitive order.
func (s *Service) Browse(ctx context.Context, rootName, relativePath string) ([]models.FileItem, error) {
	dir, err := s.sandbox.Resolve(rootName, relativePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.WithStack(NewError(ErrCodeNotFound, fmt.Sprintf("directory not found: %s", relativePath)))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %q", relativePath)
	}

	items := make([]models.FileItem, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, errors.WithStack(ctx.Err())
		}

		full := filepath.Join(dir, entry.Name())
		// entry.Info does not follow symlinks, stat does.
		info, err := os.Stat(full)
		if err != nil {
			s.logger.Debug("skip unreadable entry", zap.String("path", full), zap.Error(err))
			continue
		}
		if !s.sandbox.Contains(rootName, full) {
			s.logger.Warn("skip entry escaping root", zap.String("root", rootName), zap.String("path", full))
			continue
		}

		webPath, err := s.sandbox.RelativeWebPath(rootName, full)
		if err != nil {
			continue
		}

		item := models.FileItem{
			Name:         entry.Name(),
			Path:         webPath,
			IsDirectory:  info.IsDir(),
			RootName:     rootName,
			LastModified: info.ModTime().UTC(),
		}
		if !item.IsDirectory {
			if !s.isAllowedExtension(entry.Name()) {
				continue
			}
			item.SizeBytes = info.Size()
		}
		items = append(items, item)
	}

	sortFileItems(items)
	return items, nil
}

// sortFileItems orders directories first, then by case-insensitive name.
func sortFileItems(items []models.FileItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsDirectory != items[j].IsDirectory {
			return items[i].IsDirectory
		}
		li, lj := strings.ToLower(items[i].Name), strings.ToLower(items[j].Name)
		if li != lj {
			return li < lj
		}
		return items[i].Name < items[j].Name
	})
}
