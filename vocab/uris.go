// Package vocab holds the vocabulary tables used to classify coded records:
// the compiled-in HealthVault vocabularies and the SNOMED CT and LOINC
// dictionaries loaded from a DictionarySource.
//
// Example usage:
//
//	reg := vocab.NewRegistry(vocab.EmbeddedSource())
//	kind, ok, err := reg.Lookup(ctx, vocab.SNOMED, "27113001")
//
// Dictionaries are loaded on first lookup and are read-only afterwards.
package vocab

import (
	"net/url"
	"strings"
)

// System URIs.
const (
	// HealthVaultBaseURI prefixes every HealthVault vocabulary system.
	HealthVaultBaseURI = "http://healthvault.com/fhir/stu3/ValueSet/"

	// SNOMEDURI is the SNOMED CT code system.
	SNOMEDURI = "http://snomed.info/sct"

	// LOINCURI is the LOINC code system.
	LOINCURI = "http://loinc.org"

	// UCUMURI is the UCUM units code system.
	UCUMURI = "http://unitsofmeasure.org"
)

// Family and vocabulary aliases.
const (
	// FamilyWC is the family of HealthVault's own vocabularies.
	FamilyWC = "wc"

	// FamilyRxNorm and FamilyDMD are external terminologies hosted under the
	// HealthVault base URI.
	FamilyRxNorm = "rxnorm"
	FamilyDMD    = "dmd"

	// VocabularyFHIR marks a coded value whose family is a FHIR system URI.
	VocabularyFHIR = "fhir"
)

// HealthVault vocabulary names with compiled-in tables.
const (
	VitalStatistics = "vital-statistics"
	ThingTypeNames  = "thing-type-names"
)

// IsHostedFamily reports whether family is an external terminology hosted
// under the HealthVault base URI.
func IsHostedFamily(family string) bool {
	return strings.EqualFold(family, FamilyRxNorm) || strings.EqualFold(family, FamilyDMD)
}

// IsAbsoluteURI reports whether s is a well-formed absolute URI.
func IsAbsoluteURI(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

func trimBase(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}

// IsHealthVaultBase reports whether system is exactly the HealthVault base
// URI, ignoring case and a trailing slash.
func IsHealthVaultBase(system string) bool {
	return strings.EqualFold(trimBase(system), trimBase(HealthVaultBaseURI))
}

// ContainsHealthVaultBase reports whether system contains the HealthVault
// base URI anywhere, ignoring case.
func ContainsHealthVaultBase(system string) bool {
	return strings.Contains(strings.ToLower(system), strings.ToLower(trimBase(HealthVaultBaseURI)))
}

// SplitHealthVaultSystem returns the path segments after the base URI.
// ok is false when system does not start with the base URI.
func SplitHealthVaultSystem(system string) (segments []string, ok bool) {
	base := trimBase(HealthVaultBaseURI)
	s := strings.TrimSpace(system)
	if len(s) < len(base) || !strings.EqualFold(s[:len(base)], base) {
		return nil, false
	}
	rest := strings.Trim(s[len(base):], "/")
	if rest == "" {
		return nil, true
	}
	return strings.Split(rest, "/"), true
}

// LastSegment returns the last non-empty path segment of a URI.
func LastSegment(system string) string {
	s := strings.TrimRight(system, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// VocabularyURL builds {base}{vocabulary} or {base}{vocabulary}/{version}.
func VocabularyURL(vocabulary, version string) string {
	u := HealthVaultBaseURI + vocabulary
	if version != "" {
		u += "/" + version
	}
	return u
}

// HostedVocabularyURL builds {base}{family}/{vocabulary}.
func HostedVocabularyURL(family, vocabulary string) string {
	return HealthVaultBaseURI + family + "/" + vocabulary
}
