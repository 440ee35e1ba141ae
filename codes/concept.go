package codes

import (
	"github.com/gofhir/fhir/r4"

	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
)

// ToCodableValue converts a FHIR CodeableConcept to a HealthVault codable
// value. Codings keep their order.
//
// An explicit text is copied as is. Without one, the text is taken from the
// codings only when they carry exactly one distinct non-empty display.
func ToCodableValue(cc *r4.CodeableConcept) hv.CodableValue {
	if cc == nil {
		return hv.CodableValue{}
	}

	cv := hv.CodableValue{Text: Deref(cc.Text)}
	if cv.Text == "" {
		cv.Text = uniqueDisplay(cc.Coding)
	}
	if len(cc.Coding) > 0 {
		cv.Values = make([]hv.CodedValue, 0, len(cc.Coding))
		for _, c := range cc.Coding {
			cv.Values = append(cv.Values, ToCodedValue(c))
		}
	}
	return cv
}

// ToCodeableConcept converts a HealthVault codable value to a FHIR
// CodeableConcept. It returns nil for an empty value.
func ToCodeableConcept(cv hv.CodableValue) *r4.CodeableConcept {
	if cv.IsEmpty() {
		return nil
	}
	return &r4.CodeableConcept{
		Text:   Ptr(cv.Text),
		Coding: AppendCodings(nil, cv),
	}
}

// FirstCoding returns the first coding of cc that has a code.
func FirstCoding(cc *r4.CodeableConcept) (r4.Coding, bool) {
	if cc == nil {
		return r4.Coding{}, false
	}
	for _, c := range cc.Coding {
		if Deref(c.Code) != "" {
			return c, true
		}
	}
	return r4.Coding{}, false
}

func uniqueDisplay(codings []r4.Coding) string {
	var display string
	for _, c := range codings {
		d := Deref(c.Display)
		switch {
		case d == "":
		case display == "":
			display = d
		case d != display:
			return ""
		}
	}
	return display
}
