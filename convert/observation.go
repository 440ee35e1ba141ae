package convert

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gofhir/fhir/r4"
	"github.com/google/uuid"

	"github.com/microsoft/healthvault-fhir-library-sub001/codes"
	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
	"github.com/microsoft/healthvault-fhir-library-sub001/measure"
	"github.com/microsoft/healthvault-fhir-library-sub001/vocab"
)

// LOINC codes of blood pressure panel components.
const (
	LOINCSystolic  = "8480-6"
	LOINCDiastolic = "8462-4"
	LOINCPulse     = "8867-4"
)

type bpRole int

const (
	roleNone bpRole = iota
	roleSystolic
	roleDiastolic
	rolePulse
)

// ObservationToThing converts an observation to the thing its code resolves to.
func (c *Converter) ObservationToThing(obs *r4.Observation) (hv.Thing, error) {
	return c.ObservationToThingContext(context.Background(), obs)
}

// ObservationToThingContext is ObservationToThing with a context bounding
// the first dictionary load.
func (c *Converter) ObservationToThingContext(ctx context.Context, obs *r4.Observation) (thing hv.Thing, err error) {
	start := time.Now()
	defer func() { c.record(start, err) }()

	if obs == nil {
		return nil, fmt.Errorf("%w: nil observation", ErrMissingValue)
	}

	kind, err := c.resolver.ResolveContext(ctx, &obs.Code)
	if err != nil {
		return nil, err
	}

	thing, err = hv.New(kind)
	if err != nil {
		return nil, err
	}
	if id, perr := uuid.Parse(codes.Deref(obs.Id)); perr == nil {
		thing.Header().Key.ID = id
	}

	if err := c.fill(thing, obs); err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	c.log.Debug().Stringer("kind", kind).Str("thing-id", thing.Header().Key.ID.String()).Msg("observation converted")
	return thing, nil
}

func (c *Converter) fill(thing hv.Thing, obs *r4.Observation) error {
	switch t := thing.(type) {
	case *hv.Weight:
		v, d, err := c.quantityValue(obs.ValueQuantity, measure.Mass)
		if err != nil {
			return err
		}
		t.Kilograms, t.Display = v, d

	case *hv.Height:
		v, d, err := c.quantityValue(obs.ValueQuantity, measure.Length)
		if err != nil {
			return err
		}
		t.Meters, t.Display = v, d

	case *hv.HeartRate:
		v, _, err := c.quantityValue(obs.ValueQuantity, measure.Rate)
		if err != nil {
			return err
		}
		t.BeatsPerMinute = int(math.Round(v))
		t.MeasurementMethod = codes.ToCodableValue(obs.Method)

	case *hv.BloodPressure:
		return c.fillBloodPressure(t, obs)

	case *hv.BloodGlucose:
		v, d, err := c.quantityValue(obs.ValueQuantity, measure.GlucoseLevel)
		if err != nil {
			return err
		}
		t.MmolPerL, t.Display = v, d
		t.GlucoseType = codes.ToCodableValue(obs.Method)

	case *hv.BodyDimension:
		v, d, err := c.quantityValue(obs.ValueQuantity, measure.Length)
		if err != nil {
			return err
		}
		t.Meters, t.Display = v, d
		t.MeasurementName = measurementName(&obs.Code, hv.KindBodyDimension)

	case *hv.BodyComposition:
		return c.fillBodyComposition(t, obs)

	default:
		return fmt.Errorf("%w: %s", ErrNoMapping, thing.Kind())
	}
	return nil
}

func (c *Converter) fillBloodPressure(t *hv.BloodPressure, obs *r4.Observation) error {
	var found bool

	set := func(role bpRole, q *r4.Quantity) error {
		dim := measure.Pressure
		if role == rolePulse {
			dim = measure.Rate
		}
		v, _, err := c.quantityValue(q, dim)
		if err != nil {
			return err
		}
		n := int(math.Round(v))
		switch role {
		case roleSystolic:
			t.Systolic = n
		case roleDiastolic:
			t.Diastolic = n
		case rolePulse:
			t.Pulse = &n
		}
		found = true
		return nil
	}

	if role := componentRole(&obs.Code); role != roleNone && obs.ValueQuantity != nil {
		if err := set(role, obs.ValueQuantity); err != nil {
			return err
		}
	}
	for i := range obs.Component {
		comp := &obs.Component[i]
		role := componentRole(&comp.Code)
		if role == roleNone || comp.ValueQuantity == nil {
			continue
		}
		if err := set(role, comp.ValueQuantity); err != nil {
			return err
		}
	}

	if !found {
		return fmt.Errorf("%w: no systolic or diastolic component", ErrMissingValue)
	}
	return nil
}

func (c *Converter) fillBodyComposition(t *hv.BodyComposition, obs *r4.Observation) error {
	q := obs.ValueQuantity
	if q == nil || q.Value == nil {
		return ErrMissingValue
	}
	t.MeasurementName = measurementName(&obs.Code, hv.KindBodyComposition)
	t.MeasurementMethod = codes.ToCodableValue(obs.Method)
	t.Site = codes.ToCodableValue(obs.BodySite)

	if unit := unitOf(measure.ToStructuredMeasurement(q, "").Units); unit == "%" {
		v := *q.Value
		t.PercentValue = &v
		return nil
	}
	v, _, err := c.quantityValue(q, measure.Mass)
	if err != nil {
		return err
	}
	t.MassKilograms = &v
	return nil
}

// componentRole identifies a blood pressure component by its LOINC or
// HealthVault vital-statistics code.
func componentRole(cc *r4.CodeableConcept) bpRole {
	if cc == nil {
		return roleNone
	}
	for _, cd := range cc.Coding {
		system, code := codes.Deref(cd.System), codes.Deref(cd.Code)
		if term, ok := vocab.TerminologyForSystem(system); ok && term == vocab.LOINC {
			switch code {
			case LOINCSystolic:
				return roleSystolic
			case LOINCDiastolic:
				return roleDiastolic
			case LOINCPulse:
				return rolePulse
			}
			continue
		}
		if !vocab.ContainsHealthVaultBase(system) {
			continue
		}
		cv := codes.ToCodedValue(cd)
		if !strings.EqualFold(cv.VocabularyName, vocab.VitalStatistics) {
			continue
		}
		switch strings.ToLower(cv.Value) {
		case "bp-systolic":
			return roleSystolic
		case "bp-diastolic":
			return roleDiastolic
		case "pls":
			return rolePulse
		}
	}
	return roleNone
}

// quantityValue normalises q to the canonical unit of dim and keeps the
// entered value as display. Without StrictUnits an unknown or missing unit
// is taken to be canonical already.
func (c *Converter) quantityValue(q *r4.Quantity, dim measure.Dimension) (float64, *hv.DisplayValue, error) {
	gm := measure.ToGeneralMeasurement(q, "")
	if len(gm.Structured) == 0 {
		return 0, nil, ErrMissingValue
	}
	m := gm.Structured[0]
	unit := unitOf(m.Units)

	display := &hv.DisplayValue{Value: m.Value, Units: m.Units.Text}
	if u, ok := m.Units.First(); ok {
		display.UnitsCode = u.Value
	}
	if display.Units == "" {
		display.Units = unit
	}

	n, err := measure.Normalize(m.Value, unit, dim)
	if err != nil {
		if c.options.StrictUnits {
			return 0, nil, err
		}
		c.log.Warn().Str("unit", unit).Stringer("dimension", dim).Msg("unit not converted, value copied as is")
		return m.Value, display, nil
	}
	return n, display, nil
}

// unitOf prefers the coded unit over the label.
func unitOf(units hv.CodableValue) string {
	if u, ok := units.First(); ok && u.Value != "" {
		return u.Value
	}
	return units.Text
}
