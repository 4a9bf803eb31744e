package services

import (
	"sort"
	"sync"

	"statement-classifier/internal/models"
)

// NormalizerRegistry maps detected schemas onto their normalizers.
// Schemas without a registration resolve to the flexible normalizer.
type NormalizerRegistry struct {
	mu          sync.RWMutex
	normalizers map[models.SchemaID]SchemaNormalizerInterface
	fallback    SchemaNormalizerInterface
}

// NewNormalizerRegistry returns a registry holding the built-in issuer normalizers
func NewNormalizerRegistry() *NormalizerRegistry {
	r := &NormalizerRegistry{
		normalizers: make(map[models.SchemaID]SchemaNormalizerInterface),
		fallback:    NewFlexibleNormalizer(),
	}
	r.Register(NewChaseCreditNormalizer())
	r.Register(NewChaseCheckingNormalizer())
	r.Register(NewDiscoverNormalizer())
	return r
}

// Register adds or replaces the normalizer for its schema
func (r *NormalizerRegistry) Register(n SchemaNormalizerInterface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalizers[n.Schema()] = n
}

func (r *NormalizerRegistry) For(schema models.SchemaID) SchemaNormalizerInterface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.normalizers[schema]; ok {
		return n
	}
	return r.fallback
}

// Schemas lists the schemas with a dedicated normalizer, sorted
func (r *NormalizerRegistry) Schemas() []models.SchemaID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.SchemaID, 0, len(r.normalizers))
	for s := range r.normalizers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
