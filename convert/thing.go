package convert

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofhir/fhir/r4"
	"github.com/google/uuid"

	"github.com/microsoft/healthvault-fhir-library-sub001/codes"
	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
	"github.com/microsoft/healthvault-fhir-library-sub001/measure"
	"github.com/microsoft/healthvault-fhir-library-sub001/vocab"
)

// kindCode is the coding emitted for a thing kind: a HealthVault coded
// value followed by the matching LOINC code.
type kindCode struct {
	value   hv.CodedValue
	loinc   string
	display string
}

func vital(code string) hv.CodedValue {
	return hv.CodedValue{Value: code, VocabularyName: vocab.VitalStatistics, Family: vocab.FamilyWC}
}

func typeName(k hv.Kind) hv.CodedValue {
	return hv.CodedValue{Value: k.TypeID(), VocabularyName: vocab.ThingTypeNames, Family: vocab.FamilyWC}
}

var kindCodes = map[hv.Kind]kindCode{
	hv.KindWeight:          {vital("wgt"), "29463-7", "Body weight"},
	hv.KindHeight:          {vital("hgt"), "8302-2", "Body height"},
	hv.KindHeartRate:       {vital("pls"), LOINCPulse, "Heart rate"},
	hv.KindBloodPressure:   {typeName(hv.KindBloodPressure), "85354-9", "Blood pressure panel"},
	hv.KindBloodGlucose:    {typeName(hv.KindBloodGlucose), "2339-0", "Glucose"},
	hv.KindBodyComposition: {typeName(hv.KindBodyComposition), "", "Body composition"},
	hv.KindBodyDimension:   {typeName(hv.KindBodyDimension), "", "Body dimension"},
}

// ObservationCode returns the code an observation of kind carries.
func ObservationCode(kind hv.Kind) (*r4.CodeableConcept, bool) {
	kc, ok := kindCodes[kind]
	if !ok {
		return nil, false
	}
	cc := codes.ToCodeableConcept(hv.NewCodableValue(kc.display, kc.value))
	if kc.loinc != "" {
		cc.Coding = append(cc.Coding, r4.Coding{
			System:  codes.Ptr(vocab.LOINCURI),
			Code:    codes.Ptr(kc.loinc),
			Display: codes.Ptr(kc.display),
		})
	}
	return cc, true
}

// ThingToObservation converts a thing to a FHIR Observation.
func (c *Converter) ThingToObservation(thing hv.Thing) (obs *r4.Observation, err error) {
	start := time.Now()
	defer func() { c.record(start, err) }()

	if thing == nil {
		return nil, fmt.Errorf("%w: nil thing", ErrMissingValue)
	}
	code, ok := ObservationCode(thing.Kind())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMapping, thing.Kind())
	}

	obs = &r4.Observation{Code: *code}
	if id := thing.Header().Key.ID; id != uuid.Nil {
		obs.Id = codes.Ptr(id.String())
	}

	switch t := thing.(type) {
	case *hv.Weight:
		obs.ValueQuantity = ucum(t.Kilograms, "kg")
	case *hv.Height:
		obs.ValueQuantity = ucum(t.Meters, "m")
	case *hv.HeartRate:
		obs.ValueQuantity = ucum(float64(t.BeatsPerMinute), "/min")
		obs.Method = codes.ToCodeableConcept(t.MeasurementMethod)
	case *hv.BloodPressure:
		obs.Component = bloodPressureComponents(t)
	case *hv.BloodGlucose:
		obs.ValueQuantity = ucum(t.MmolPerL, "mmol/L")
		obs.Method = codes.ToCodeableConcept(t.GlucoseType)
	case *hv.BodyDimension:
		obs.ValueQuantity = ucum(t.Meters, "m")
		withMeasurementName(&obs.Code, t.MeasurementName)
	case *hv.BodyComposition:
		switch {
		case t.PercentValue != nil:
			obs.ValueQuantity = ucum(*t.PercentValue, "%")
		case t.MassKilograms != nil:
			obs.ValueQuantity = ucum(*t.MassKilograms, "kg")
		default:
			return nil, ErrMissingValue
		}
		withMeasurementName(&obs.Code, t.MeasurementName)
		obs.Method = codes.ToCodeableConcept(t.MeasurementMethod)
		obs.BodySite = codes.ToCodeableConcept(t.Site)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoMapping, thing.Kind())
	}
	return obs, nil
}

// MarshalObservation converts thing and encodes it as FHIR JSON, adding the
// resource type, a final status, the effective time and the note.
func (c *Converter) MarshalObservation(thing hv.Thing) ([]byte, error) {
	obs, err := c.ThingToObservation(thing)
	if err != nil {
		return nil, err
	}
	obs.ResourceType = "Observation"
	if obs.Status == nil || *obs.Status == "" {
		status := r4.ObservationStatusFinal
		obs.Status = &status
	}
	h := thing.Header()
	if !h.When.IsZero() {
		obs.EffectiveDateTime = codes.Ptr(h.When.Format(time.RFC3339))
	}
	if h.Note != "" {
		obs.Note = []r4.Annotation{{Text: codes.Ptr(h.Note)}}
	}

	data, err := json.Marshal(obs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode observation: %w", err)
	}
	return data, nil
}

// withMeasurementName appends the measurement name codings after the kind
// coding so the kind still resolves first.
func withMeasurementName(cc *r4.CodeableConcept, name hv.CodableValue) {
	cc.Coding = codes.AppendCodings(cc.Coding, name)
	if name.Text != "" {
		cc.Text = codes.Ptr(name.Text)
	}
}

// measurementName drops the thing type codings and the default kind text
// from an observation code.
func measurementName(cc *r4.CodeableConcept, kind hv.Kind) hv.CodableValue {
	cv := codes.ToCodableValue(cc)
	if cv.Text == kindCodes[kind].display {
		cv.Text = ""
	}
	kept := cv.Values[:0:0]
	for _, v := range cv.Values {
		if strings.EqualFold(v.Family, vocab.FamilyWC) && strings.EqualFold(v.VocabularyName, vocab.ThingTypeNames) {
			continue
		}
		kept = append(kept, v)
	}
	cv.Values = kept
	return cv
}

func bloodPressureComponents(bp *hv.BloodPressure) []r4.ObservationComponent {
	comps := []r4.ObservationComponent{
		component(LOINCSystolic, "Systolic blood pressure", ucum(float64(bp.Systolic), "mm[Hg]")),
		component(LOINCDiastolic, "Diastolic blood pressure", ucum(float64(bp.Diastolic), "mm[Hg]")),
	}
	if bp.Pulse != nil {
		comps = append(comps, component(LOINCPulse, "Heart rate", ucum(float64(*bp.Pulse), "/min")))
	}
	return comps
}

func component(loinc, display string, q *r4.Quantity) r4.ObservationComponent {
	return r4.ObservationComponent{
		Code: r4.CodeableConcept{
			Coding: []r4.Coding{{System: codes.Ptr(vocab.LOINCURI), Code: codes.Ptr(loinc), Display: codes.Ptr(display)}},
			Text:   codes.Ptr(display),
		},
		ValueQuantity: q,
	}
}

// ucum encodes v as a general measurement in the UCUM unit code.
func ucum(v float64, code string) *r4.Quantity {
	unit := hv.CodedValue{Value: code, VocabularyName: vocab.VocabularyFHIR, Family: vocab.UCUMURI}
	return measure.FromGeneralMeasurement(hv.GeneralMeasurement{
		Structured: []hv.StructuredMeasurement{{Value: v, Units: hv.NewCodableValue(code, unit)}},
	})
}
