// Package resolver classifies a FHIR coded record as a HealthVault thing kind.
//
// Codings are tried in order and the first that resolves wins:
//
//  1. A system under the HealthVault base URI is looked up in the
//     compiled-in vocabularies. A miss moves on to the next coding.
//  2. A SNOMED CT system is looked up in the SNOMED dictionary. A miss is
//     an error.
//  3. A LOINC system is looked up in the LOINC dictionary. A miss is an
//     error.
//  4. Any other system is skipped.
//
// Nothing is guessed: a record with no resolvable coding is an
// *hvfhir.UnsupportedCodeError.
package resolver

import (
	"context"
	"strings"

	"github.com/gofhir/fhir/r4"
	"github.com/rs/zerolog"

	hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
	"github.com/microsoft/healthvault-fhir-library-sub001/cache"
	"github.com/microsoft/healthvault-fhir-library-sub001/codes"
	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
	"github.com/microsoft/healthvault-fhir-library-sub001/internal/logger"
	"github.com/microsoft/healthvault-fhir-library-sub001/vocab"
)

// Resolver maps coded records to thing kinds. It is safe for concurrent use.
type Resolver struct {
	registry *vocab.Registry
	memo     *cache.Cache[codingKey, outcome]
	metrics  *hvfhir.Metrics
	log      zerolog.Logger
}

type codingKey struct {
	system string
	code   string
}

type decision int

const (
	skip decision = iota
	match
	reject
)

// outcome is the result of one coding. It depends only on the coding and
// the read-only vocabularies, so it can be memoized.
type outcome struct {
	decision decision
	kind     hv.Kind
	source   string
	reason   string
}

// New creates a resolver over registry. A nil registry uses vocab.Default().
func New(registry *vocab.Registry, opts ...hvfhir.Option) *Resolver {
	o := hvfhir.Apply(opts...)
	if registry == nil {
		registry = vocab.Default()
	}

	r := &Resolver{
		registry: registry,
		metrics:  o.Metrics,
		log:      logger.Default(),
	}
	if o.Logger != nil {
		r.log = *o.Logger
	}
	if o.ResolverCacheSize > 0 {
		r.memo = cache.New[codingKey, outcome](o.ResolverCacheSize)
	}
	return r
}

// Registry returns the vocabulary registry the resolver reads.
func (r *Resolver) Registry() *vocab.Registry {
	return r.registry
}

// CacheStats returns the memo statistics. ok is false when memoization is off.
func (r *Resolver) CacheStats() (stats cache.Stats, ok bool) {
	if r.memo == nil {
		return cache.Stats{}, false
	}
	return r.memo.Stats(), true
}

// Resolve classifies cc.
func (r *Resolver) Resolve(cc *r4.CodeableConcept) (hv.Kind, error) {
	return r.ResolveContext(context.Background(), cc)
}

// ResolveObservation classifies an observation by its code.
func (r *Resolver) ResolveObservation(obs *r4.Observation) (hv.Kind, error) {
	if obs == nil {
		return hv.KindUnknown, r.unsupported(hvfhir.NewUnsupportedCode("", "", "nil observation"))
	}
	return r.ResolveContext(context.Background(), &obs.Code)
}

// ResolveContext classifies cc. ctx bounds the first load of an external
// dictionary; resolution itself never blocks.
func (r *Resolver) ResolveContext(ctx context.Context, cc *r4.CodeableConcept) (hv.Kind, error) {
	if cc == nil || len(cc.Coding) == 0 {
		return hv.KindUnknown, r.unsupported(hvfhir.NewUnsupportedCode("", "", "record has no codings"))
	}

	for _, c := range cc.Coding {
		system := strings.TrimSpace(codes.Deref(c.System))
		code := strings.TrimSpace(codes.Deref(c.Code))
		if system == "" || code == "" {
			continue
		}

		out, err := r.resolveCoding(ctx, c, codingKey{system: system, code: code})
		if err != nil {
			return hv.KindUnknown, err
		}

		switch out.decision {
		case match:
			if r.metrics != nil {
				r.metrics.RecordResolution(out.source)
			}
			r.log.Debug().Str("system", system).Str("code", code).Stringer("kind", out.kind).Msg("resolved coding")
			return out.kind, nil
		case reject:
			return hv.KindUnknown, r.unsupported(hvfhir.NewUnsupportedCode(system, code, out.reason))
		}
	}

	first, _ := codes.FirstCoding(cc)
	return hv.KindUnknown, r.unsupported(hvfhir.NewUnsupportedCode(
		strings.TrimSpace(codes.Deref(first.System)),
		strings.TrimSpace(codes.Deref(first.Code)),
		"no coding matches a known vocabulary"))
}

func (r *Resolver) unsupported(err *hvfhir.UnsupportedCodeError) error {
	if r.metrics != nil {
		r.metrics.RecordUnsupportedCode()
	}
	return err
}

func (r *Resolver) resolveCoding(ctx context.Context, c r4.Coding, key codingKey) (outcome, error) {
	if r.memo == nil {
		return r.classify(ctx, c, key)
	}

	out, hit, err := r.memo.GetOrLoad(key, func() (outcome, error) {
		return r.classify(ctx, c, key)
	})
	if r.metrics != nil && err == nil {
		if hit {
			r.metrics.RecordCacheHit()
		} else {
			r.metrics.RecordCacheMiss()
		}
	}
	return out, err
}

// classify decides one coding. An error means a dictionary failed to load.
func (r *Resolver) classify(ctx context.Context, c r4.Coding, key codingKey) (outcome, error) {
	if vocab.ContainsHealthVaultBase(key.system) {
		if kind, ok := r.lookupHealthVault(c, key); ok {
			return outcome{decision: match, kind: kind, source: hvfhir.SourceHealthVault}, nil
		}
		return outcome{decision: skip}, nil
	}

	term, ok := vocab.TerminologyForSystem(key.system)
	if !ok {
		return outcome{decision: skip}, nil
	}

	kind, found, err := r.registry.Lookup(ctx, term, key.code)
	if err != nil {
		return outcome{}, err
	}
	if !found {
		return outcome{decision: reject, reason: "not in the " + string(term) + " dictionary"}, nil
	}

	return outcome{decision: match, kind: kind, source: string(term)}, nil
}

// lookupHealthVault tries the last path segment of the system as the
// vocabulary name, then the vocabulary carried by the coding itself.
func (r *Resolver) lookupHealthVault(c r4.Coding, key codingKey) (hv.Kind, bool) {
	if kind, ok := r.registry.LookupBuiltin(vocab.LastSegment(key.system), key.code); ok {
		return kind, true
	}
	cv := codes.ToCodedValue(c)
	if cv.VocabularyName == "" {
		return hv.KindUnknown, false
	}
	return r.registry.LookupBuiltin(cv.VocabularyName, cv.Value)
}
