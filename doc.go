// Package hvfhir maps clinical data between FHIR R4 and the HealthVault
// item model.
//
// The package tree is organised around the code and vocabulary engine that
// every field-copy transformer relies on:
//
//   - vocab: compiled-in HealthVault vocabularies plus the packaged SNOMED CT
//     and LOINC dictionaries, loaded once and shared read-only
//   - codes: Coding <-> CodedValue and CodeableConcept <-> CodableValue
//   - resolver: classifies a coded record into a HealthVault thing kind
//   - measure: Quantity <-> StructuredMeasurement, units and recurrence intervals
//   - convert: observation <-> thing transformers built on the above
//   - worker: parallel batch conversion
//
// # Quick Start
//
//	import (
//	    hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
//	    "github.com/microsoft/healthvault-fhir-library-sub001/convert"
//	)
//
//	conv := convert.New(hvfhir.WithCacheSize(512))
//	thing, err := conv.ObservationToThing(observation)
//	if errors.Is(err, hvfhir.ErrUnsupportedCode) {
//	    // skip the record, never guess a default type
//	}
//
// # Resolution order
//
// A record's codings are tried in their original order. HealthVault
// vocabulary URIs are looked up in the compiled-in tables and fall through
// when unknown. SNOMED CT and LOINC codes are looked up in their own
// dictionary and fail hard when absent. Codings from any other system are
// skipped. When nothing matches, ErrUnsupportedCode is returned.
package hvfhir
