package scanning

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry holds one engine per language for the lifetime of the process.
// Engines are loaded on first use; concurrent first requests for the same
// language share a single load. Failed loads are not cached.
type Registry struct {
	load    Loader
	group   singleflight.Group
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates an empty Registry backed by load
func NewRegistry(load Loader) *Registry {
	return &Registry{
		load:    load,
		engines: make(map[string]Engine),
	}
}

func (r *Registry) cached(language string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.engines[language]
	return engine, ok
}

// Get returns the engine for language, loading it if needed
func (r *Registry) Get(language string) (Engine, error) {
	if engine, ok := r.cached(language); ok {
		return engine, nil
	}

	v, err, _ := r.group.Do(language, func() (any, error) {
		if engine, ok := r.cached(language); ok {
			return engine, nil
		}

		slog.Info("Loading recognition engine", "language", language)
		engine, err := r.load(language)
		if err != nil {
			return nil, err
		}
		if engine == nil {
			return nil, errors.New("loader returned no engine")
		}
		engineLoads.WithLabelValues(language).Inc()

		r.mu.Lock()
		r.engines[language] = engine
		r.mu.Unlock()
		return engine, nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s engine: %w", language, err)
	}
	return v.(Engine), nil
}

// Languages returns the languages with a loaded engine, sorted
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	languages := make([]string, 0, len(r.engines))
	for language := range r.engines {
		languages = append(languages, language)
	}
	sort.Strings(languages)
	return languages
}

// Close closes every loaded engine and empties the registry
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for language, engine := range r.engines {
		if err := engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s engine: %w", language, err))
		}
		delete(r.engines, language)
	}
	return errors.Join(errs...)
}
