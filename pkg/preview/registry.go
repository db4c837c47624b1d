// Package preview stages locally selected files behind revocable URLs so the
// rendering layer can show them before upload, and guarantees every URL it
// hands out is revoked exactly once.
package preview

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrTooLarge = errors.New("preview: file exceeds the preview size limit")
	ErrEmpty    = errors.New("preview: file has no content")
)

// Entry is the staged content behind one preview URL.
type Entry struct {
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Registry holds staged preview content in memory, addressed by random tokens.
type Registry struct {
	prefix   string
	maxBytes int64

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry serves URLs of the form prefix + token. A maxBytes of zero
// disables the size check.
func NewRegistry(prefix string, maxBytes int64) *Registry {
	return &Registry{
		prefix:   strings.TrimSuffix(prefix, "/") + "/",
		maxBytes: maxBytes,
		entries:  map[string]Entry{},
	}
}

// Create stages data and returns its preview URL.
func (r *Registry) Create(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return "", fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, name, len(data))
	}
	token := uuid.NewString()
	r.mu.Lock()
	r.entries[token] = Entry{
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
		CreatedAt:   time.Now(),
	}
	r.mu.Unlock()
	return r.prefix + token, nil
}

// Revoke drops the content behind url. Unknown or already revoked URLs
// report false.
func (r *Registry) Revoke(url string) bool {
	token, ok := r.Token(url)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[token]; !ok {
		return false
	}
	delete(r.entries, token)
	return true
}

// Lookup returns the entry for a token.
func (r *Registry) Lookup(token string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[token]
	return e, ok
}

// Token extracts the token from a URL minted by this registry.
func (r *Registry) Token(url string) (string, bool) {
	if !strings.HasPrefix(url, r.prefix) {
		return "", false
	}
	token := strings.TrimPrefix(url, r.prefix)
	if _, err := uuid.Parse(token); err != nil {
		return "", false
	}
	return token, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
