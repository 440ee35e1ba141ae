package vocab

import (
	"sort"
	"strings"

	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
)

// builtin maps vocabulary name -> lowercase code -> kind for the
// HealthVault vocabularies compiled into the library. Family is always wc.
var builtin = map[string]map[string]hv.Kind{
	VitalStatistics: {
		"wgt":          hv.KindWeight,
		"hgt":          hv.KindHeight,
		"pls":          hv.KindHeartRate,
		"bp-systolic":  hv.KindBloodPressure,
		"bp-diastolic": hv.KindBloodPressure,
	},
	ThingTypeNames: thingTypeNames(),
}

// thingTypeNames indexes the kinds without a vital-statistics code by type id
// and by lowercase type name.
func thingTypeNames() map[string]hv.Kind {
	m := make(map[string]hv.Kind)
	for _, k := range []hv.Kind{
		hv.KindBloodGlucose,
		hv.KindExercise,
		hv.KindSleepJournalAM,
		hv.KindBodyComposition,
		hv.KindBodyDimension,
	} {
		m[strings.ToLower(k.TypeID())] = k
		m[strings.ToLower(k.String())] = k
	}
	return m
}

// LookupBuiltin resolves a code in a compiled-in HealthVault vocabulary.
// Vocabulary and code are matched case-insensitively.
func LookupBuiltin(vocabulary, code string) (hv.Kind, bool) {
	codes, ok := builtin[strings.ToLower(strings.TrimSpace(vocabulary))]
	if !ok {
		return hv.KindUnknown, false
	}
	k, ok := codes[strings.ToLower(strings.TrimSpace(code))]
	return k, ok
}

// BuiltinVocabularies returns the names of the compiled-in vocabularies.
func BuiltinVocabularies() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuiltinCodes returns the codes of a compiled-in vocabulary, sorted.
func BuiltinCodes(vocabulary string) []string {
	codes := builtin[strings.ToLower(vocabulary)]
	out := make([]string, 0, len(codes))
	for c := range codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
