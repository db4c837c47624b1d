package view

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry tracks the live views of the process by id.
type Registry struct {
	log   *logrus.Logger
	mu    sync.RWMutex
	views map[string]Live
}

func NewRegistry(log *logrus.Logger) *Registry {
	return &Registry{log: log, views: map[string]Live{}}
}

func (r *Registry) Add(v Live) {
	r.mu.Lock()
	r.views[v.ID()] = v
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (Live, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[id]
	return v, ok
}

// Remove closes and forgets the view. Unknown ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if ok {
		v.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// CloseAll tears down every view, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	views := r.views
	r.views = map[string]Live{}
	r.mu.Unlock()
	for _, v := range views {
		v.Close()
	}
	if len(views) > 0 {
		r.log.WithField("count", len(views)).Info("closed live views")
	}
}
