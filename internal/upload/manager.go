// Package upload manages request-scoped temporary copies of uploaded files.
package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InputFileName is the fixed name of the uploaded CSV inside a scope.
const InputFileName = "uploaded_data.csv"

// ErrExtensionNotAllowed is returned for files outside the allow-list.
var ErrExtensionNotAllowed = errors.New("file type not allowed")

// Scope is a temporary directory holding one copy of an uploaded file.
// Close removes the directory and everything in it.
type Scope struct {
	ID        string
	Dir       string
	CreatedAt time.Time

	path    string
	manager *Manager
	once    sync.Once
	err     error
}

// Path returns the absolute path of the uploaded file inside the scope.
func (s *Scope) Path() string {
	return s.path
}

// Close removes the scope directory. It is safe to call more than once.
func (s *Scope) Close() error {
	s.once.Do(func() {
		s.err = os.RemoveAll(s.Dir)
		if s.manager != nil {
			s.manager.release(s)
		}
	})
	return s.err
}

// Manager creates scopes under a root directory and tracks the open ones.
type Manager struct {
	mu       sync.Mutex
	root     string
	fileName string
	allowed  []string
	scopes   map[string]*Scope
	logger   *zap.Logger
}

// NewManager creates a scope manager. allowedExt is a comma separated list
// of extensions such as ".csv".
func NewManager(root, allowedExt string, logger *zap.Logger) (*Manager, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating temp root: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		root:     root,
		fileName: InputFileName,
		allowed:  ParseExtensions(allowedExt),
		scopes:   make(map[string]*Scope),
		logger:   logger,
	}, nil
}

// ParseExtensions normalizes a comma separated extension list.
func ParseExtensions(list string) []string {
	var exts []string
	for _, e := range strings.Split(list, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return exts
}

// ValidateFileName checks the declared file name against the allow-list.
func (m *Manager) ValidateFileName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range m.allowed {
		if ext == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (allowed: %s)", ErrExtensionNotAllowed, name, strings.Join(m.allowed, ", "))
}

// AllowedExtensions returns the normalized allow-list.
func (m *Manager) AllowedExtensions() []string {
	return append([]string(nil), m.allowed...)
}

// Open creates a fresh scope directory and writes data to the fixed file name.
func (m *Manager) Open(data []byte) (*Scope, error) {
	id := uuid.New().String()
	dir, err := os.MkdirTemp(m.root, "upload-"+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("creating scope directory: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("resolving scope directory: %w", err)
	}

	path := filepath.Join(abs, m.fileName)
	if err := os.WriteFile(path, data, 0600); err != nil {
		os.RemoveAll(abs)
		return nil, fmt.Errorf("writing uploaded file: %w", err)
	}

	s := &Scope{
		ID:        id,
		Dir:       abs,
		CreatedAt: time.Now(),
		path:      path,
		manager:   m,
	}

	m.mu.Lock()
	m.scopes[id] = s
	m.mu.Unlock()

	m.logger.Debug("scope opened", zap.String("scope", id[:8]), zap.String("dir", abs), zap.Int("bytes", len(data)))
	return s, nil
}

func (m *Manager) release(s *Scope) {
	m.mu.Lock()
	delete(m.scopes, s.ID)
	m.mu.Unlock()
	m.logger.Debug("scope released", zap.String("scope", s.ID[:8]))
}

// OpenScopes returns the number of scopes not yet closed.
func (m *Manager) OpenScopes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scopes)
}

// CloseAll removes every open scope. Used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	scopes := make([]*Scope, 0, len(m.scopes))
	for _, s := range m.scopes {
		scopes = append(scopes, s)
	}
	m.mu.Unlock()

	for _, s := range scopes {
		if err := s.Close(); err != nil {
			m.logger.Warn("failed to remove scope", zap.String("dir", s.Dir), zap.Error(err))
		}
	}
}
