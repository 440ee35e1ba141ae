package hvfhir

import (
	"runtime"

	"github.com/rs/zerolog"
)

// Option configures a Converter.
type Option func(*Options)

// Options holds all configuration for conversion.
type Options struct {
	// Resolution
	ResolverCacheSize int

	// Measurements
	StrictUnits bool

	// Batch conversion
	WorkerCount int

	// Logging
	Logger *zerolog.Logger

	// Metrics receives conversion counters when non-nil.
	Metrics *Metrics
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		ResolverCacheSize: 1024,
		StrictUnits:       false,
		WorkerCount:       runtime.NumCPU(),
	}
}

// Apply builds Options from the defaults and the given options.
func Apply(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithCacheSize sets how many per-coding resolution outcomes are memoized.
// Use 0 to disable the cache.
func WithCacheSize(size int) Option {
	return func(o *Options) {
		if size >= 0 {
			o.ResolverCacheSize = size
		}
	}
}

// WithStrictUnits makes measurement conversion fail on units it cannot
// normalise instead of copying them through.
func WithStrictUnits(enable bool) Option {
	return func(o *Options) {
		o.StrictUnits = enable
	}
}

// WithWorkerCount sets the number of workers for batch conversion.
// Defaults to runtime.NumCPU().
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithLogger sets the logger used for conversion diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = &l
	}
}

// WithMetrics records conversion counters into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}
