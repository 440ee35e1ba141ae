package hvfhir

import (
	"sync"
	"sync/atomic"
	"time"
)

// Resolution sources reported to Metrics.
const (
	SourceHealthVault = "healthvault"
	SourceSNOMED      = "snomed"
	SourceLOINC       = "loinc"
)

// Metrics tracks conversion counters using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	conversionsTotal  atomic.Uint64
	conversionsFailed atomic.Uint64

	// Timing (stored as nanoseconds)
	conversionTimeTotal atomic.Uint64
	conversionTimeMin   atomic.Uint64
	conversionTimeMax   atomic.Uint64

	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	unsupportedCodes   atomic.Uint64
	unsupportedPeriods atomic.Uint64

	// Resolutions per source
	resolutions sync.Map // map[string]*atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.conversionTimeMin.Store(^uint64(0))
	return m
}

// RecordConversion records a finished conversion.
func (m *Metrics) RecordConversion(duration time.Duration, ok bool) {
	m.conversionsTotal.Add(1)
	if !ok {
		m.conversionsFailed.Add(1)
	}

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // durations here are never negative
	m.conversionTimeTotal.Add(ns)

	for {
		old := m.conversionTimeMin.Load()
		if ns >= old || m.conversionTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.conversionTimeMax.Load()
		if ns <= old || m.conversionTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordResolution records a coding resolved through source.
func (m *Metrics) RecordResolution(source string) {
	v, ok := m.resolutions.Load(source)
	if !ok {
		v, _ = m.resolutions.LoadOrStore(source, new(atomic.Uint64))
	}
	v.(*atomic.Uint64).Add(1)
}

// RecordCacheHit records a resolver cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a resolver cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordUnsupportedCode records a resolution failure.
func (m *Metrics) RecordUnsupportedCode() {
	m.unsupportedCodes.Add(1)
}

// RecordUnsupportedPeriod records a rejected recurrence unit.
func (m *Metrics) RecordUnsupportedPeriod() {
	m.unsupportedPeriods.Add(1)
}

// ConversionsTotal returns the number of conversions attempted.
func (m *Metrics) ConversionsTotal() uint64 {
	return m.conversionsTotal.Load()
}

// ConversionsFailed returns the number of conversions that returned an error.
func (m *Metrics) ConversionsFailed() uint64 {
	return m.conversionsFailed.Load()
}

// Resolutions returns how many codings were resolved through source.
func (m *Metrics) Resolutions(source string) uint64 {
	v, ok := m.resolutions.Load(source)
	if !ok {
		return 0
	}
	return v.(*atomic.Uint64).Load()
}

// UnsupportedCodes returns the number of resolution failures.
func (m *Metrics) UnsupportedCodes() uint64 {
	return m.unsupportedCodes.Load()
}

// UnsupportedPeriods returns the number of rejected recurrence units.
func (m *Metrics) UnsupportedPeriods() uint64 {
	return m.unsupportedPeriods.Load()
}

// CacheHitRate returns the resolver cache hit rate (0.0 to 1.0).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// AverageConversionTime returns the mean conversion duration.
func (m *Metrics) AverageConversionTime() time.Duration {
	total := m.conversionsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.conversionTimeTotal.Load() / total) //nolint:gosec // fits in int64
}

// MinConversionTime returns the fastest conversion.
func (m *Metrics) MinConversionTime() time.Duration {
	v := m.conversionTimeMin.Load()
	if v == ^uint64(0) {
		return 0
	}
	return time.Duration(v) //nolint:gosec // fits in int64
}

// MaxConversionTime returns the slowest conversion.
func (m *Metrics) MaxConversionTime() time.Duration {
	return time.Duration(m.conversionTimeMax.Load()) //nolint:gosec // fits in int64
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Timestamp          time.Time         `json:"timestamp"`
	ConversionsTotal   uint64            `json:"conversions_total"`
	ConversionsFailed  uint64            `json:"conversions_failed"`
	AvgConversionNs    uint64            `json:"avg_conversion_ns"`
	MinConversionNs    uint64            `json:"min_conversion_ns"`
	MaxConversionNs    uint64            `json:"max_conversion_ns"`
	CacheHits          uint64            `json:"cache_hits"`
	CacheMisses        uint64            `json:"cache_misses"`
	CacheHitRate       float64           `json:"cache_hit_rate"`
	UnsupportedCodes   uint64            `json:"unsupported_codes"`
	UnsupportedPeriods uint64            `json:"unsupported_periods"`
	Resolutions        map[string]uint64 `json:"resolutions,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Timestamp:          time.Now(),
		ConversionsTotal:   m.conversionsTotal.Load(),
		ConversionsFailed:  m.conversionsFailed.Load(),
		MinConversionNs:    uint64(m.MinConversionTime()), //nolint:gosec // non-negative
		MaxConversionNs:    m.conversionTimeMax.Load(),
		CacheHits:          m.cacheHits.Load(),
		CacheMisses:        m.cacheMisses.Load(),
		CacheHitRate:       m.CacheHitRate(),
		UnsupportedCodes:   m.unsupportedCodes.Load(),
		UnsupportedPeriods: m.unsupportedPeriods.Load(),
		Resolutions:        make(map[string]uint64),
	}
	if s.ConversionsTotal > 0 {
		s.AvgConversionNs = m.conversionTimeTotal.Load() / s.ConversionsTotal
	}
	m.resolutions.Range(func(key, value any) bool {
		s.Resolutions[key.(string)] = value.(*atomic.Uint64).Load()
		return true
	})
	return s
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.conversionsTotal.Store(0)
	m.conversionsFailed.Store(0)
	m.conversionTimeTotal.Store(0)
	m.conversionTimeMin.Store(^uint64(0))
	m.conversionTimeMax.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.unsupportedCodes.Store(0)
	m.unsupportedPeriods.Store(0)
	m.resolutions.Range(func(key, _ any) bool {
		m.resolutions.Delete(key)
		return true
	})
}
