// Package codes converts coded values between FHIR codings and HealthVault
// coded values, and between FHIR CodeableConcepts and HealthVault codable
// values.
//
// All functions are pure. Empty strings on the HealthVault side map to nil
// pointers on the FHIR side and the reverse.
package codes

import (
	"strings"

	"github.com/gofhir/fhir/r4"

	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
	"github.com/microsoft/healthvault-fhir-library-sub001/vocab"
)

// ToCodedValue converts a FHIR coding to a HealthVault coded value.
//
// A code of the form "vocabulary:value" is split into its two parts; any
// other code, including one with more than one ':', is kept whole as the
// value. The system selects the family: the HealthVault base URI yields "wc",
// a HealthVault vocabulary URL yields its family and vocabulary (a leading
// "wc", "rxnorm" or "dmd" segment names the family), and any
// other system becomes the family itself, with vocabulary "fhir" when the
// system is an absolute URI and no vocabulary was given.
func ToCodedValue(c r4.Coding) hv.CodedValue {
	system := strings.TrimSpace(Deref(c.System))
	vocabulary, value := splitCode(Deref(c.Code))
	version := Deref(c.Version)

	var family string
	switch segs, ok := vocab.SplitHealthVaultSystem(system); {
	case vocab.IsHealthVaultBase(system):
		family = vocab.FamilyWC
	case ok && len(segs) == 1 && isFamilySegment(segs[0]):
		family = familySegment(segs[0])
	case ok && len(segs) == 1:
		family = vocab.FamilyWC
		vocabulary = orDefault(vocabulary, segs[0])
	case ok && len(segs) == 2 && isFamilySegment(segs[0]):
		family = familySegment(segs[0])
		vocabulary = orDefault(vocabulary, segs[1])
	case ok && len(segs) == 2:
		family = vocab.FamilyWC
		vocabulary = orDefault(vocabulary, segs[0])
		version = orDefault(version, segs[1])
	}

	if family == "" && vocabulary == "" && vocab.IsAbsoluteURI(system) {
		vocabulary = vocab.VocabularyFHIR
	}
	if family == "" {
		family = system
	}

	return hv.CodedValue{
		Value:          value,
		VocabularyName: vocabulary,
		Family:         family,
		Version:        version,
	}
}

// ToCoding converts a HealthVault coded value to a FHIR coding, using
// display as the coding display when non-empty.
//
// The family selects the encoding, first match wins:
//
//	wc            system {base}{vocabulary}
//	rxnorm, dmd   system {base}{family}/{vocabulary}
//	URI family    system {family} when the vocabulary is "fhir"
//	otherwise     system {family}, code "vocabulary:value"
func ToCoding(v hv.CodedValue, display string) r4.Coding {
	var system, code string

	switch {
	case strings.EqualFold(v.Family, vocab.FamilyWC):
		system = vocab.VocabularyURL(v.VocabularyName, "")
		code = v.Value
	case vocab.IsHostedFamily(v.Family):
		if v.VocabularyName == "" {
			system = vocab.HealthVaultBaseURI + v.Family
		} else {
			system = vocab.HostedVocabularyURL(v.Family, v.VocabularyName)
		}
		code = v.Value
	case strings.EqualFold(v.VocabularyName, vocab.VocabularyFHIR) && vocab.IsAbsoluteURI(v.Family):
		system = v.Family
		code = v.Value
	default:
		system = v.Family
		code = v.Value
		if v.VocabularyName != "" {
			code = v.VocabularyName + ":" + v.Value
		}
	}

	return r4.Coding{
		System:  Ptr(system),
		Version: Ptr(v.Version),
		Code:    Ptr(code),
		Display: Ptr(display),
	}
}

// AppendCodings appends one coding per coded value of cv to dst and returns
// the extended slice. Each coding carries cv.Text as its display.
func AppendCodings(dst []r4.Coding, cv hv.CodableValue) []r4.Coding {
	for _, v := range cv.Values {
		dst = append(dst, ToCoding(v, cv.Text))
	}
	return dst
}

// splitCode splits "vocabulary:value". Anything else is returned whole.
func splitCode(code string) (vocabulary, value string) {
	parts := strings.Split(code, ":")
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return parts[0], parts[1]
	}
	return "", code
}

// isFamilySegment reports whether a path segment under the base URI names a
// family rather than a wc vocabulary.
func isFamilySegment(seg string) bool {
	return strings.EqualFold(seg, vocab.FamilyWC) || vocab.IsHostedFamily(seg)
}

func familySegment(seg string) string {
	if strings.EqualFold(seg, vocab.FamilyWC) {
		return vocab.FamilyWC
	}
	return seg
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

// Deref returns the string p points to, or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Ptr returns a pointer to s, or nil when s is empty.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
