package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamehub/internal/game/dice"
)

// Manager owns one Runtime per scripted game type.
//
// Manager is safe for concurrent use; each Runtime serializes its own hooks.
type Manager struct {
	mu       sync.RWMutex
	runtimes map[string]*Runtime
	roller   *dice.Roller
	logger   *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no scripts loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		runtimes: make(map[string]*Runtime),
		roller:   roller,
		logger:   logger,
	}
}

// LoadFile loads one script as game type gameID, replacing any previous
// runtime under that id.
//
// Postcondition: returns the new Runtime, or an error on read, syntax or
// runtime failure in the script body.
func (m *Manager) LoadFile(gameID, path string, instLimit int) (*Runtime, error) {
	rt, err := newRuntime(gameID, path, func(L *lua.LState) error { return L.DoFile(path) }, instLimit, m.roller, m.logger)
	if err != nil {
		return nil, err
	}
	m.store(gameID, rt)
	return rt, nil
}

// LoadString loads script source as game type gameID.
func (m *Manager) LoadString(gameID, src string, instLimit int) (*Runtime, error) {
	rt, err := newRuntime(gameID, gameID, func(L *lua.LState) error { return L.DoString(src) }, instLimit, m.roller, m.logger)
	if err != nil {
		return nil, err
	}
	m.store(gameID, rt)
	return rt, nil
}

// LoadDir loads every *.lua file in dir as a game type named after the file,
// in lexicographic order. A missing directory loads nothing.
//
// Postcondition: Returns the loaded game ids, or the first load error.
func (m *Manager) LoadDir(dir string, instLimit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	ids := make([]string, 0, len(files))
	for _, name := range files {
		id := strings.TrimSuffix(name, ".lua")
		if _, err := m.LoadFile(id, filepath.Join(dir, name), instLimit); err != nil {
			return nil, err
		}
		m.logger.Info("script loaded", zap.String("game", id), zap.String("file", name))
		ids = append(ids, id)
	}
	return ids, nil
}

// Runtime returns the runtime loaded for gameID.
func (m *Manager) Runtime(gameID string) (*Runtime, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.runtimes[gameID]
	return rt, ok
}

// GameIDs returns the loaded game ids in sorted order.
func (m *Manager) GameIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.runtimes))
	for id := range m.runtimes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close releases every runtime.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rt := range m.runtimes {
		rt.Close()
		delete(m.runtimes, id)
	}
}

func (m *Manager) store(gameID string, rt *Runtime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.runtimes[gameID]; ok {
		old.Close()
	}
	m.runtimes[gameID] = rt
}
