// Package measure converts HealthVault structured measurements to FHIR
// quantities and back, maps recurrence intervals to FHIR units of time, and
// normalises measured values to the units HealthVault stores.
package measure

import (
	"strings"

	"github.com/gofhir/fhir/r4"
	"github.com/shopspring/decimal"

	"github.com/microsoft/healthvault-fhir-library-sub001/codes"
	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
	"github.com/microsoft/healthvault-fhir-library-sub001/vocab"
)

// ToQuantity converts a structured measurement list to a FHIR Quantity.
//
// Only the first entry is used; later entries are ignored. The unit text
// becomes Unit, and the first unit code becomes Code with System
// {base}{vocabulary}/{version}. A unit whose family is a FHIR system URI
// with vocabulary "fhir", such as UCUM, keeps the family as System. The
// value is rounded to Precision places. It returns nil for an empty list.
func ToQuantity(ms []hv.StructuredMeasurement) *r4.Quantity {
	if len(ms) == 0 {
		return nil
	}
	m := ms[0]

	q := &r4.Quantity{
		Value: decimalValue(m.Value),
		Unit:  codes.Ptr(m.Units.Text),
	}
	if u, ok := m.Units.First(); ok {
		q.Code = codes.Ptr(u.Value)
		switch {
		case strings.EqualFold(u.VocabularyName, vocab.VocabularyFHIR) && vocab.IsAbsoluteURI(u.Family):
			q.System = codes.Ptr(u.Family)
		case u.VocabularyName != "":
			q.System = codes.Ptr(vocab.VocabularyURL(u.VocabularyName, u.Version))
		}
	}
	return q
}

// FromGeneralMeasurement converts the first structured entry of gm.
func FromGeneralMeasurement(gm hv.GeneralMeasurement) *r4.Quantity {
	q := ToQuantity(gm.Structured)
	if q != nil && q.Unit == nil && gm.Display != "" {
		q.Unit = codes.Ptr(gm.Display)
	}
	return q
}

// ToStructuredMeasurement converts a FHIR Quantity to a structured
// measurement. unitsText overrides the quantity's unit label when non-empty.
// A nil quantity or one without a value yields the zero measurement.
func ToStructuredMeasurement(q *r4.Quantity, unitsText string) hv.StructuredMeasurement {
	if q == nil || q.Value == nil {
		return hv.StructuredMeasurement{}
	}

	m := hv.StructuredMeasurement{Value: *decimalValue(*q.Value)}
	m.Units.Text = unitsText
	if m.Units.Text == "" {
		m.Units.Text = codes.Deref(q.Unit)
	}
	if code := codes.Deref(q.Code); code != "" {
		m.Units.Values = []hv.CodedValue{codes.ToCodedValue(r4.Coding{System: q.System, Code: q.Code})}
	}
	return m
}

// ToGeneralMeasurement wraps ToStructuredMeasurement with display text.
func ToGeneralMeasurement(q *r4.Quantity, display string) hv.GeneralMeasurement {
	if q == nil || q.Value == nil {
		return hv.GeneralMeasurement{Display: display}
	}
	return hv.GeneralMeasurement{
		Display:    display,
		Structured: []hv.StructuredMeasurement{ToStructuredMeasurement(q, "")},
	}
}

// decimalValue rounds v to Precision places.
func decimalValue(v float64) *float64 {
	f := decimal.NewFromFloat(v).Round(Precision).InexactFloat64()
	return &f
}
