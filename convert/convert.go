// Package convert maps FHIR Observations to HealthVault things and back.
//
// A Converter resolves the observation code to a thing kind, constructs the
// thing through hv.New and fills its fields with the codes and measure
// codecs. Values are normalised to the units HealthVault stores (kg, m,
// mmol/L) and the entered value is kept as display.
package convert

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
	"github.com/microsoft/healthvault-fhir-library-sub001/internal/logger"
	"github.com/microsoft/healthvault-fhir-library-sub001/resolver"
)

// ErrNoMapping is returned for a thing kind without a field mapping.
var ErrNoMapping = errors.New("no field mapping for thing kind")

// ErrMissingValue is returned when an observation lacks the value its kind needs.
var ErrMissingValue = errors.New("observation has no usable value")

// Converter converts between FHIR Observations and HealthVault things.
// It is safe for concurrent use.
type Converter struct {
	resolver *resolver.Resolver
	options  *hvfhir.Options
	log      zerolog.Logger
	paths    *pathEvaluator
}

// New creates a converter over the process-wide vocabulary registry.
func New(opts ...hvfhir.Option) *Converter {
	return NewWithResolver(resolver.New(nil, opts...), opts...)
}

// NewWithResolver creates a converter that classifies records with r.
func NewWithResolver(r *resolver.Resolver, opts ...hvfhir.Option) *Converter {
	o := hvfhir.Apply(opts...)
	c := &Converter{
		resolver: r,
		options:  o,
		log:      logger.Default(),
		paths:    newPathEvaluator(),
	}
	if o.Logger != nil {
		c.log = *o.Logger
	}
	return c
}

// Resolver returns the resolver used to classify observations.
func (c *Converter) Resolver() *resolver.Resolver {
	return c.resolver
}

// Options returns the converter configuration.
func (c *Converter) Options() hvfhir.Options {
	return *c.options
}

func (c *Converter) record(start time.Time, err error) {
	if m := c.options.Metrics; m != nil {
		m.RecordConversion(time.Since(start), err == nil)
	}
}
