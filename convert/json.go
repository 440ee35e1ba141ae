package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofhir/fhir/r4"

	hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
	"github.com/microsoft/healthvault-fhir-library-sub001/codes"
	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
)

// resourceHeader is decoded first to reject other resource types before the
// full Observation decode.
type resourceHeader struct {
	ResourceType string `json:"resourceType"`
}

// dateTimeLayouts are the FHIR dateTime precisions, most precise first.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
	"2006-01",
	"2006",
}

// ConvertJSON decodes a FHIR Observation and converts it to a thing.
// A resource whose code has no coding with both system and code is rejected
// before decoding with an *hvfhir.UnsupportedCodeError.
func (c *Converter) ConvertJSON(ctx context.Context, data []byte) (hv.Thing, error) {
	var head resourceHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode resource: %w", err)
	}
	if head.ResourceType != "Observation" {
		return nil, fmt.Errorf("resource type %q is not Observation", head.ResourceType)
	}

	ok, err := c.paths.Test(GateCoded, data)
	if err != nil {
		return nil, err
	}
	if !ok {
		if m := c.options.Metrics; m != nil {
			m.RecordUnsupportedCode()
		}
		return nil, hvfhir.NewUnsupportedCode("", "", "observation code has no system and code")
	}

	var obs r4.Observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return nil, fmt.Errorf("failed to decode observation: %w", err)
	}

	thing, err := c.ObservationToThingContext(ctx, &obs)
	if err != nil {
		return nil, err
	}

	h := thing.Header()
	for _, s := range []string{codes.Deref(obs.EffectiveDateTime), codes.Deref(obs.EffectiveInstant)} {
		if s == "" {
			continue
		}
		when, err := parseDateTime(s)
		if err != nil {
			return nil, err
		}
		h.When = when
		break
	}
	if len(obs.Note) > 0 {
		h.Note = codes.Deref(obs.Note[0].Text)
	}
	return thing, nil
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid FHIR dateTime %q", s)
}
