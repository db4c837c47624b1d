package preview

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/metrics"
)

var ErrClosed = errors.New("preview: manager closed")

// Minter creates and revokes preview URLs. *Registry implements it.
type Minter interface {
	Create(name string, data []byte) (string, error)
	Revoke(url string) bool
}

// Handle pairs a selected file with the preview URL shown for it.
type Handle struct {
	File inertia.File `json:"-"`
	Name string       `json:"name"`
	URL  string       `json:"url"`
}

// Manager owns the preview handles of one view's current selection.
type Manager struct {
	minter Minter
	log    *logrus.Entry

	mu       sync.Mutex
	handles  []Handle
	created  int
	released int
	closed   bool
}

func NewManager(minter Minter, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{minter: minter, log: log}
}

// SetSelection replaces the selection. Every handle of the previous
// selection is released before any handle of the new one is created, also
// when files is empty. If a file cannot be staged, the handles created so
// far are released and the selection ends up empty.
func (m *Manager) SetSelection(files []inertia.File) ([]Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.releaseLocked()

	next := make([]Handle, 0, len(files))
	for _, f := range files {
		url, err := m.minter.Create(f.Name, f.Data)
		if err != nil {
			m.handles = next
			m.releaseLocked()
			return nil, err
		}
		m.created++
		metrics.PreviewCreated()
		next = append(next, Handle{File: f, Name: f.Name, URL: url})
	}
	m.handles = next
	m.log.WithField("count", len(next)).Debug("preview selection replaced")
	return m.snapshotLocked(), nil
}

func (m *Manager) releaseLocked() {
	for _, h := range m.handles {
		if !m.minter.Revoke(h.URL) {
			m.log.WithField("url", h.URL).Warn("preview handle was already revoked")
		}
		m.released++
		metrics.PreviewReleased()
	}
	m.handles = nil
}

func (m *Manager) snapshotLocked() []Handle {
	out := make([]Handle, len(m.handles))
	copy(out, m.handles)
	return out
}

func (m *Manager) Handles() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Files returns the currently selected files in selection order.
func (m *Manager) Files() []inertia.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]inertia.File, len(m.handles))
	for i, h := range m.handles {
		out[i] = h.File
	}
	return out
}

// Counts reports how many handles were created and released over the
// manager's lifetime.
func (m *Manager) Counts() (created, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, m.released
}

// Close releases every outstanding handle. Calling it again does nothing.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.releaseLocked()
	m.closed = true
}
