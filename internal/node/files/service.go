// Package files implements the node side of the log viewer: sandboxed
// directory listing, encoding aware reads and parallel content search over
// the configured roots.
package files

import (
	"path/filepath"
	"slices"
	"strings"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"

	"github.com/Laisky/logviewer/library/log"
	models "github.com/Laisky/logviewer/library/models/files"
)

// Service serves browse, read and search requests for one node.
type Service struct {
	settings        Settings
	roots           *RootRegistry
	sandbox         *Sandbox
	defaultEncoding namedEncoding
	logger          logSDK.Logger
}

// NewService constructs a file service from immutable settings.
func NewService(settings Settings, logger logSDK.Logger) (*Service, error) {
	settings = settings.withDefaults()
	if logger == nil {
		logger = log.Logger.Named("node_files")
	}

	roots, err := NewRootRegistry(settings.Roots)
	if err != nil {
		return nil, errors.Wrap(err, "build root registry")
	}

	defaultEnc, err := lookupEncoding(settings.DefaultEncoding)
	if err != nil {
		return nil, errors.Wrapf(err, "default encoding %q", settings.DefaultEncoding)
	}

	return &Service{
		settings:        settings,
		roots:           roots,
		sandbox:         NewSandbox(roots),
		defaultEncoding: defaultEnc,
		logger:          logger,
	}, nil
}

// Roots lists the configured roots sorted by name.
func (s *Service) Roots() []models.RootDirectory {
	return s.roots.Roots()
}

// Settings returns the settings the service was built with.
func (s *Service) Settings() Settings {
	return s.settings
}

// isAllowedExtension reports whether name carries an allow-listed extension.
func (s *Service) isAllowedExtension(name string) bool {
	return slices.Contains(s.settings.AllowedExtensions, strings.ToLower(filepath.Ext(name)))
}
