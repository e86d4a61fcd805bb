package algorithms

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
)

// Registry holds algorithm kinds and the descriptors discovered on disk.
type Registry struct {
	mu          sync.RWMutex
	kinds       map[string]Kind
	descriptors map[string]Descriptor
	log         zerolog.Logger
}

// NewRegistry creates a registry preloaded with the built-in kinds.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		kinds:       BuiltinKinds(),
		descriptors: make(map[string]Descriptor),
		log:         log.With().Str("component", "algorithm_registry").Logger(),
	}
}

// RegisterKind adds or replaces an algorithm kind.
func (r *Registry) RegisterKind(name string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[name] = kind
}

// Register adds a descriptor. Its kind must be known.
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("%w: descriptor has no id", domain.ErrConfig)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.kinds[d.Kind]; !ok {
		return fmt.Errorf("%w: algorithm %s has unknown kind %q", domain.ErrConfig, d.ID, d.Kind)
	}
	if d.Parameters == nil {
		d.Parameters = domain.ParameterVector{}
	}
	r.descriptors[d.ID] = d
	return nil
}

// Discover registers every descriptor file in dir. Invalid files are logged
// and skipped; the first file wins when two share a stem.
func (r *Registry) Discover(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read algorithms directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && IsDescriptorFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	found := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, exists := r.Get(Stem(path)); exists {
			r.log.Warn().Str("file", name).Msg("Skipping descriptor with duplicate id")
			continue
		}
		d, err := ReadDescriptor(path)
		if err != nil {
			r.log.Warn().Err(err).Str("file", name).Msg("Skipping invalid descriptor")
			continue
		}
		if err := r.Register(d); err != nil {
			r.log.Warn().Err(err).Str("file", name).Msg("Skipping descriptor")
			continue
		}
		found++
	}

	r.log.Info().Int("count", found).Str("dir", dir).Msg("Discovered algorithms")
	return found, nil
}

// Get implements domain.AlgorithmRegistry.
func (r *Registry) Get(id string) (domain.AlgorithmInfo, bool) {
	d, ok := r.Descriptor(id)
	if !ok {
		return domain.AlgorithmInfo{}, false
	}
	return d.Info(), true
}

// List implements domain.AlgorithmRegistry, sorted by id.
func (r *Registry) List() []domain.AlgorithmInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AlgorithmInfo, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Descriptor returns the raw descriptor for id.
func (r *Registry) Descriptor(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[id]
	return d, ok
}

func (r *Registry) kind(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}
