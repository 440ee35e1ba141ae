package hv

import (
	"fmt"
	"strings"
)

// Kind enumerates the thing types a coded record can resolve to.
type Kind int

// Known thing kinds.
const (
	KindUnknown Kind = iota
	KindWeight
	KindHeight
	KindHeartRate
	KindBloodPressure
	KindBloodGlucose
	KindExercise
	KindSleepJournalAM
	KindBodyComposition
	KindBodyDimension
)

type kindInfo struct {
	name   string
	typeID string
}

// HealthVault thing type ids.
var kinds = map[Kind]kindInfo{
	KindWeight:          {"Weight", "3d34d87e-7fc1-4153-800f-f56592cb0d17"},
	KindHeight:          {"Height", "40750a6a-89b2-455c-bd8d-b420a4cb500b"},
	KindHeartRate:       {"HeartRate", "b81eb4a6-6eac-4292-ae93-3872d6870994"},
	KindBloodPressure:   {"BloodPressure", "ca3c57f4-f4c1-4e15-be67-0a3caf5414ed"},
	KindBloodGlucose:    {"BloodGlucose", "879e7c04-4e8a-4707-9ad3-b054df467ce4"},
	KindExercise:        {"Exercise", "85a21ddb-db20-4c65-8d30-33c899ccf612"},
	KindSleepJournalAM:  {"SleepJournalAM", "11c52484-7f1a-11db-aeac-87d355d89593"},
	KindBodyComposition: {"BodyComposition", "18adc276-5144-4e7e-bda6-14dbaa074e30"},
	KindBodyDimension:   {"BodyDimension", "dd710b31-2b6f-45bd-9552-253562b9a7c1"},
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := KindWeight; k <= KindBodyDimension; k++ {
		out = append(out, k)
	}
	return out
}

// String returns the kind's type name, e.g. "Weight".
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "Unknown"
}

// TypeID returns the HealthVault thing type id.
func (k Kind) TypeID() string {
	return kinds[k].typeID
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	_, ok := kinds[k]
	return ok
}

// ParseKind maps a type name or thing type id to a Kind, ignoring case.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for k, info := range kinds {
		if strings.EqualFold(info.name, s) || strings.EqualFold(info.typeID, s) {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown thing type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
