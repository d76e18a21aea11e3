package embedding

import (
	"sort"
	"sync"

	"ai-knowledgebase-be/internal/pkg/apperror"
)

// ProviderInfo is the read-only view exposed to callers listing providers.
type ProviderInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// Registry resolves embedding providers by name. Providers are registered
// once at bootstrap; resolution happens per call site, never via reflection.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	def       string
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under its own name. The first registered provider
// becomes the default unless SetDefault overrides it.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.providers) == 0 {
		r.def = p.ProviderName()
	}
	r.providers[p.ProviderName()] = p
}

func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return apperror.Validation("unknown embedding provider: %s", name)
	}
	r.def = name
	return nil
}

// Resolve returns the named provider, or the default when name is empty.
func (r *Registry) Resolve(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.def
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, apperror.Validation("unknown embedding provider: %s", name)
	}
	return p, nil
}

// List returns provider infos sorted by name.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]ProviderInfo, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, ProviderInfo{
			Name:       p.ProviderName(),
			Model:      p.ModelName(),
			Dimensions: p.Dimensions(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
