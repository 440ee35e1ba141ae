package hv

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ThingKey identifies one version of a thing.
type ThingKey struct {
	ID           uuid.UUID `json:"thing-id"`
	VersionStamp uuid.UUID `json:"version-stamp"`
}

// NewThingKey returns a key with a fresh id and version stamp.
func NewThingKey() ThingKey {
	return ThingKey{ID: uuid.New(), VersionStamp: uuid.New()}
}

// ParseThingKey parses a key from its id and version-stamp strings.
func ParseThingKey(id, version string) (ThingKey, error) {
	tid, err := uuid.Parse(id)
	if err != nil {
		return ThingKey{}, fmt.Errorf("thing-id: %w", err)
	}
	var vs uuid.UUID
	if version != "" {
		if vs, err = uuid.Parse(version); err != nil {
			return ThingKey{}, fmt.Errorf("version-stamp: %w", err)
		}
	}
	return ThingKey{ID: tid, VersionStamp: vs}, nil
}

// String returns "id/version-stamp".
func (k ThingKey) String() string {
	return k.ID.String() + "/" + k.VersionStamp.String()
}

// Thing is implemented by every concrete thing type.
type Thing interface {
	Kind() Kind
	Header() *ThingHeader
}

// ThingHeader carries the fields common to all things.
type ThingHeader struct {
	Key  ThingKey  `json:"key"`
	When time.Time `json:"when,omitempty"`
	Note string    `json:"note,omitempty"`
}

// Header returns the header itself so concrete types satisfy Thing by embedding.
func (h *ThingHeader) Header() *ThingHeader { return h }

// Weight is a body weight in kilograms.
type Weight struct {
	ThingHeader
	Kilograms float64       `json:"kg"`
	Display   *DisplayValue `json:"display,omitempty"`
}

func (*Weight) Kind() Kind { return KindWeight }

// Height is a body height in meters.
type Height struct {
	ThingHeader
	Meters  float64       `json:"m"`
	Display *DisplayValue `json:"display,omitempty"`
}

func (*Height) Kind() Kind { return KindHeight }

// HeartRate is a pulse in beats per minute.
type HeartRate struct {
	ThingHeader
	BeatsPerMinute    int          `json:"value"`
	MeasurementMethod CodableValue `json:"measurement-method,omitempty"`
}

func (*HeartRate) Kind() Kind { return KindHeartRate }

// BloodPressure is a systolic/diastolic pair in mmHg.
type BloodPressure struct {
	ThingHeader
	Systolic  int  `json:"systolic"`
	Diastolic int  `json:"diastolic"`
	Pulse     *int `json:"pulse,omitempty"`
}

func (*BloodPressure) Kind() Kind { return KindBloodPressure }

// BloodGlucose is a glucose reading in mmol/L.
type BloodGlucose struct {
	ThingHeader
	MmolPerL    float64       `json:"value"`
	Display     *DisplayValue `json:"display,omitempty"`
	GlucoseType CodableValue  `json:"glucose-measurement-type"`
}

func (*BloodGlucose) Kind() Kind { return KindBloodGlucose }

// Exercise is a completed activity session.
type Exercise struct {
	ThingHeader
	Activity        CodableValue `json:"activity"`
	Title           string       `json:"title,omitempty"`
	DistanceMeters  *float64     `json:"distance,omitempty"`
	DurationMinutes *float64     `json:"duration,omitempty"`
}

func (*Exercise) Kind() Kind { return KindExercise }

// SleepJournalAM is the morning sleep journal entry.
type SleepJournalAM struct {
	ThingHeader
	BedTime         string `json:"bed-time,omitempty"`
	WakeTime        string `json:"wake-time,omitempty"`
	SleepMinutes    int    `json:"sleep-minutes"`
	SettlingMinutes int    `json:"settling-minutes"`
	WakeState       int    `json:"wake-state"`
}

func (*SleepJournalAM) Kind() Kind { return KindSleepJournalAM }

// BodyComposition is a named composition value such as fat percentage.
type BodyComposition struct {
	ThingHeader
	MeasurementName   CodableValue `json:"measurement-name"`
	MassKilograms     *float64     `json:"mass-value,omitempty"`
	PercentValue      *float64     `json:"percent-value,omitempty"`
	MeasurementMethod CodableValue `json:"measurement-method,omitempty"`
	Site              CodableValue `json:"site,omitempty"`
}

func (*BodyComposition) Kind() Kind { return KindBodyComposition }

// BodyDimension is a named length such as waist circumference.
type BodyDimension struct {
	ThingHeader
	MeasurementName CodableValue  `json:"measurement-name"`
	Meters          float64       `json:"value"`
	Display         *DisplayValue `json:"display,omitempty"`
}

func (*BodyDimension) Kind() Kind { return KindBodyDimension }

// New constructs an empty thing of the given kind with a fresh key.
func New(kind Kind) (Thing, error) {
	var t Thing
	switch kind {
	case KindWeight:
		t = &Weight{}
	case KindHeight:
		t = &Height{}
	case KindHeartRate:
		t = &HeartRate{}
	case KindBloodPressure:
		t = &BloodPressure{}
	case KindBloodGlucose:
		t = &BloodGlucose{}
	case KindExercise:
		t = &Exercise{}
	case KindSleepJournalAM:
		t = &SleepJournalAM{}
	case KindBodyComposition:
		t = &BodyComposition{}
	case KindBodyDimension:
		t = &BodyDimension{}
	default:
		return nil, fmt.Errorf("no thing type for kind %d", int(kind))
	}
	t.Header().Key = NewThingKey()
	return t, nil
}
