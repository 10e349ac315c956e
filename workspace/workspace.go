// Package workspace hands out per-request temporary directories that are
// removed once the response has been written.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRootName = "textdeck"

// Manager owns the temp root and tracks live scopes.
type Manager struct {
	mu      sync.Mutex
	baseDir string
	root    string
	active  map[string]*Scope
	logger  *zap.Logger
}

// NewManager creates a manager rooted under baseDir (os.TempDir() when empty).
func NewManager(baseDir string, logger *zap.Logger) *Manager {
	return &Manager{baseDir: baseDir, active: make(map[string]*Scope), logger: logger}
}

func (m *Manager) Name() string { return "workspace" }

// Initialize creates the temp root.
func (m *Manager) Initialize(ctx context.Context) error {
	base := m.baseDir
	if base == "" {
		base = os.TempDir()
	}
	root := filepath.Join(base, defaultRootName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace root: %w", err)
	}

	m.mu.Lock()
	m.root = root
	m.mu.Unlock()
	m.logger.Debug("workspace root ready", zap.String("root", root))
	return nil
}

// Shutdown releases every scope still alive.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	scopes := make([]*Scope, 0, len(m.active))
	for _, s := range m.active {
		scopes = append(scopes, s)
	}
	m.mu.Unlock()

	var firstErr error
	for _, s := range scopes {
		if err := s.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Acquire creates a fresh uuid-named directory for one request.
func (m *Manager) Acquire(ctx context.Context) (*Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	root := m.root
	m.mu.Unlock()
	if root == "" {
		return nil, fmt.Errorf("workspace manager not initialized")
	}

	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	s := &Scope{id: id, dir: dir, manager: m}
	m.mu.Lock()
	m.active[id] = s
	m.mu.Unlock()
	return s, nil
}

// Active reports how many scopes have not been released.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// Scope is one request's directory. Release is safe to call more than once.
type Scope struct {
	id      string
	dir     string
	manager *Manager

	once sync.Once
	err  error
}

func (s *Scope) ID() string { return s.id }

func (s *Scope) Path() string { return s.dir }

// Join places name inside the scope. Only the base name of name is used so a
// client-supplied name cannot escape the directory.
func (s *Scope) Join(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		base = "file"
	}
	return filepath.Join(s.dir, base)
}

// Release removes the directory and everything in it.
func (s *Scope) Release() error {
	s.once.Do(func() {
		s.err = os.RemoveAll(s.dir)
		s.manager.forget(s.id)
		if s.err != nil {
			s.manager.logger.Warn("failed to remove workspace", zap.String("dir", s.dir), zap.Error(s.err))
		}
	})
	return s.err
}
