package measure

import (
	"strings"

	hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
	"github.com/microsoft/healthvault-fhir-library-sub001/vocab"
)

// RecurrenceIntervals is the HealthVault vocabulary of recurrence units.
const RecurrenceIntervals = "recurrence-intervals"

// periods pairs HealthVault recurrence intervals with FHIR units of time.
var periods = []struct {
	interval string
	unit     string
}{
	{"second", "s"},
	{"minute", "min"},
	{"hour", "h"},
	{"day", "d"},
	{"week", "wk"},
	{"month", "mo"},
	{"year", "a"},
}

// ToUnitsOfTime maps a HealthVault recurrence interval to a FHIR UnitsOfTime
// code. Intervals are matched case-insensitively.
func ToUnitsOfTime(interval string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(interval))
	for _, p := range periods {
		if p.interval == key {
			return p.unit, nil
		}
	}
	return "", &hvfhir.UnsupportedPeriodError{Unit: interval, Direction: hvfhir.ToFHIR}
}

// FromUnitsOfTime maps a FHIR UnitsOfTime code to a HealthVault recurrence
// interval. Codes are case-sensitive, as in FHIR ("min" and "mo" differ from
// "MIN" and "MO").
func FromUnitsOfTime(unit string) (string, error) {
	key := strings.TrimSpace(unit)
	for _, p := range periods {
		if p.unit == key {
			return p.interval, nil
		}
	}
	return "", &hvfhir.UnsupportedPeriodError{Unit: unit, Direction: hvfhir.ToHealthVault}
}

// RecurrenceInterval returns the coded value of a recurrence interval.
func RecurrenceInterval(interval string) (hv.CodedValue, error) {
	if _, err := ToUnitsOfTime(interval); err != nil {
		return hv.CodedValue{}, err
	}
	return hv.CodedValue{
		Value:          strings.ToLower(strings.TrimSpace(interval)),
		VocabularyName: RecurrenceIntervals,
		Family:         vocab.FamilyWC,
		Version:        "1",
	}, nil
}

// PeriodIntervals returns the supported recurrence intervals in ascending
// order of length.
func PeriodIntervals() []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = p.interval
	}
	return out
}
