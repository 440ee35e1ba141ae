// Package hv models the HealthVault side of the mapping: coded values,
// structured measurements and the thing types the resolver can produce.
package hv

import "strings"

// CodedValue is one entry of a HealthVault codable value.
// Value is required; VocabularyName, Family and Version are optional and
// an empty string means unset.
type CodedValue struct {
	Value          string `json:"value"`
	VocabularyName string `json:"vocabulary-name,omitempty"`
	Family         string `json:"family,omitempty"`
	Version        string `json:"version,omitempty"`
}

// IsFreeform reports whether the value carries no vocabulary context.
func (c CodedValue) IsFreeform() bool {
	return c.VocabularyName == "" && c.Family == "" && c.Version == ""
}

// String returns family:vocabulary:value with unset parts omitted.
func (c CodedValue) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Family, c.VocabularyName, c.Value} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ":")
}

// CodableValue is free text plus an ordered list of coded values.
type CodableValue struct {
	Text   string       `json:"text,omitempty"`
	Values []CodedValue `json:"codes,omitempty"`
}

// NewCodableValue returns a codable value with one coded entry.
func NewCodableValue(text string, value CodedValue) CodableValue {
	return CodableValue{Text: text, Values: []CodedValue{value}}
}

// First returns the first coded value, if any.
func (c CodableValue) First() (CodedValue, bool) {
	if len(c.Values) == 0 {
		return CodedValue{}, false
	}
	return c.Values[0], true
}

// IsEmpty reports whether neither text nor codes are present.
func (c CodableValue) IsEmpty() bool {
	return c.Text == "" && len(c.Values) == 0
}

// StructuredMeasurement is a numeric value with coded units.
type StructuredMeasurement struct {
	Value float64      `json:"value"`
	Units CodableValue `json:"units"`
}

// GeneralMeasurement is display text plus any number of structured entries.
// Only the first structured entry is used when converting to a FHIR Quantity.
type GeneralMeasurement struct {
	Display    string                  `json:"display,omitempty"`
	Structured []StructuredMeasurement `json:"structured,omitempty"`
}

// DisplayValue preserves the value and units the user entered.
type DisplayValue struct {
	Value     float64 `json:"value"`
	Units     string  `json:"units,omitempty"`
	UnitsCode string  `json:"units-code,omitempty"`
}
