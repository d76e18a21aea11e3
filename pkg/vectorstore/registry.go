package vectorstore

import (
	"sort"
	"sync"

	"ai-knowledgebase-be/internal/pkg/apperror"
)

// Registry maps backend names to stores. The first registered store becomes
// the default unless SetDefault overrides it.
type Registry struct {
	mu          sync.RWMutex
	stores      map[string]Store
	defaultName string
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Store)}
}

func (r *Registry) Register(store Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stores) == 0 {
		r.defaultName = store.Name()
	}
	r.stores[store.Name()] = store
}

func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[name]; !ok {
		return apperror.Validation("unknown vector store: " + name)
	}
	r.defaultName = name
	return nil
}

// Resolve returns the named store, or the default when name is empty.
func (r *Registry) Resolve(name string) (Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	store, ok := r.stores[name]
	if !ok {
		return nil, apperror.Validation("unknown vector store: " + name)
	}
	return store, nil
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
