package hv

import (
	"encoding/json"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"Weight", KindWeight},
		{"weight", KindWeight},
		{" BloodPressure ", KindBloodPressure},
		{"3D34D87E-7FC1-4153-800F-F56592CB0D17", KindWeight},
		{"dd710b31-2b6f-45bd-9552-253562b9a7c1", KindBodyDimension},
		{"SleepJournalAM", KindSleepJournalAM},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil {
			t.Errorf("ParseKind(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseKind("Medication"); err == nil {
		t.Error("ParseKind(Medication) should fail")
	}
}

func TestKind_String(t *testing.T) {
	if KindHeartRate.String() != "HeartRate" {
		t.Errorf("String() = %q; want HeartRate", KindHeartRate.String())
	}
	if KindUnknown.String() != "Unknown" {
		t.Errorf("String() = %q; want Unknown", KindUnknown.String())
	}
	if KindUnknown.IsValid() {
		t.Error("KindUnknown.IsValid() = true; want false")
	}
	if len(Kinds()) != 9 {
		t.Errorf("len(Kinds()) = %d; want 9", len(Kinds()))
	}
}

func TestKind_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]Kind{"kind": KindBodyComposition})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `{"kind":"BodyComposition"}` {
		t.Errorf("Marshal = %s", data)
	}

	var out map[string]Kind
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if out["kind"] != KindBodyComposition {
		t.Errorf("Unmarshal kind = %v; want BodyComposition", out["kind"])
	}
}

func TestNew(t *testing.T) {
	for _, k := range Kinds() {
		thing, err := New(k)
		if err != nil {
			t.Errorf("New(%v) error: %v", k, err)
			continue
		}
		if thing.Kind() != k {
			t.Errorf("New(%v).Kind() = %v", k, thing.Kind())
		}
		if thing.Header().Key.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Errorf("New(%v) has a zero key", k)
		}
	}

	if _, err := New(KindUnknown); err == nil {
		t.Error("New(KindUnknown) should fail")
	}
}

func TestParseThingKey(t *testing.T) {
	key, err := ParseThingKey("a1b2c3d4-0000-4000-8000-000000000001", "a1b2c3d4-0000-4000-8000-000000000002")
	if err != nil {
		t.Fatalf("ParseThingKey error: %v", err)
	}
	want := "a1b2c3d4-0000-4000-8000-000000000001/a1b2c3d4-0000-4000-8000-000000000002"
	if key.String() != want {
		t.Errorf("String() = %q; want %q", key.String(), want)
	}

	if _, err := ParseThingKey("not-a-guid", ""); err == nil {
		t.Error("ParseThingKey(not-a-guid) should fail")
	}
}

func TestCodedValue(t *testing.T) {
	v := CodedValue{Value: "wgt", VocabularyName: "vital-statistics", Family: "wc"}
	if v.String() != "wc:vital-statistics:wgt" {
		t.Errorf("String() = %q", v.String())
	}
	if v.IsFreeform() {
		t.Error("IsFreeform() = true; want false")
	}
	if !(CodedValue{Value: "x"}).IsFreeform() {
		t.Error("bare value should be freeform")
	}

	cv := NewCodableValue("Body weight", v)
	first, ok := cv.First()
	if !ok || first != v {
		t.Errorf("First() = %v, %v", first, ok)
	}
	if _, ok := (CodableValue{}).First(); ok {
		t.Error("First() on empty should be false")
	}
	if !(CodableValue{}).IsEmpty() {
		t.Error("zero CodableValue should be empty")
	}
}
