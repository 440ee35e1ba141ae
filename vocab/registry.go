package vocab

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
	"github.com/microsoft/healthvault-fhir-library-sub001/internal/logger"
)

// LoadStats contains statistics about loading one dictionary.
type LoadStats struct {
	Terminology Terminology   `json:"terminology"`
	Entries     int           `json:"entries"`
	Skipped     int           `json:"skipped"`
	Duration    time.Duration `json:"duration"`
}

// Registry resolves codes against the compiled-in vocabularies and the
// external dictionaries of a DictionarySource. Each dictionary is loaded on
// first use and never modified afterwards.
type Registry struct {
	source DictionarySource
	log    zerolog.Logger

	mu    sync.RWMutex
	dicts map[Terminology]map[string]hv.Kind
	stats map[Terminology]LoadStats
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used while loading dictionaries.
func WithLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = l
	}
}

// NewRegistry creates a registry backed by source.
func NewRegistry(source DictionarySource, opts ...RegistryOption) *Registry {
	r := &Registry{
		source: source,
		log:    logger.Default(),
		dicts:  make(map[Terminology]map[string]hv.Kind),
		stats:  make(map[Terminology]LoadStats),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry over the embedded dictionaries.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(EmbeddedSource())
	})
	return defaultRegistry
}

// LookupBuiltin resolves a code in a compiled-in HealthVault vocabulary.
func (r *Registry) LookupBuiltin(vocabulary, code string) (hv.Kind, bool) {
	return LookupBuiltin(vocabulary, code)
}

// Lookup resolves a bare code in the dictionary of t. The code is matched
// exactly as stored. An error means the dictionary could not be loaded.
func (r *Registry) Lookup(ctx context.Context, t Terminology, code string) (hv.Kind, bool, error) {
	d, err := r.dictionary(ctx, t)
	if err != nil {
		return hv.KindUnknown, false, err
	}
	k, ok := d[code]
	return k, ok, nil
}

// LookupSNOMED resolves a SNOMED CT concept id.
func (r *Registry) LookupSNOMED(ctx context.Context, code string) (hv.Kind, bool, error) {
	return r.Lookup(ctx, SNOMED, code)
}

// LookupLOINC resolves a LOINC code.
func (r *Registry) LookupLOINC(ctx context.Context, code string) (hv.Kind, bool, error) {
	return r.Lookup(ctx, LOINC, code)
}

// Preload loads every dictionary now instead of on first lookup.
func (r *Registry) Preload(ctx context.Context) error {
	for _, t := range Terminologies() {
		if _, err := r.dictionary(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Loaded reports whether the dictionary of t has been loaded.
func (r *Registry) Loaded(t Terminology) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.dicts[t]
	return ok
}

// Stats returns the load statistics of the dictionaries loaded so far,
// ordered by terminology.
func (r *Registry) Stats() []LoadStats {
	r.mu.RLock()
	out := make([]LoadStats, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Terminology < out[j].Terminology })
	return out
}

// Codes returns the codes of a loaded dictionary that map to kind, sorted.
func (r *Registry) Codes(ctx context.Context, t Terminology, kind hv.Kind) ([]string, error) {
	d, err := r.dictionary(ctx, t)
	if err != nil {
		return nil, err
	}
	var codes []string
	for code, k := range d {
		if k == kind {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// dictionary returns the dictionary of t, loading it on first use.
// Concurrent first calls serialize on the write lock; a failed load is not
// remembered so a later call retries.
func (r *Registry) dictionary(ctx context.Context, t Terminology) (map[string]hv.Kind, error) {
	r.mu.RLock()
	d, ok := r.dicts[t]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.dicts[t]; ok {
		return d, nil
	}

	start := time.Now()
	raw, err := r.source.Load(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s dictionary: %w", t, err)
	}

	stats := LoadStats{Terminology: t}
	d = make(map[string]hv.Kind, len(raw))
	for code, name := range raw {
		kind, err := hv.ParseKind(name)
		if err != nil {
			stats.Skipped++
			r.log.Warn().Str("terminology", string(t)).Str("code", code).Str("type", name).Msg("skipping dictionary entry with unknown type")
			continue
		}
		d[code] = kind
	}
	stats.Entries = len(d)
	stats.Duration = time.Since(start)

	r.dicts[t] = d
	r.stats[t] = stats

	r.log.Debug().
		Str("terminology", string(t)).
		Int("entries", stats.Entries).
		Int("skipped", stats.Skipped).
		Dur("duration", stats.Duration).
		Msg("dictionary loaded")

	return d, nil
}
