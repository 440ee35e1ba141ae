package hv

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
)

// ParseThingXML reads a HealthVault <thing> element and returns the typed
// thing. The kind is taken from <type-id>; only the vital-sign style types
// have a data-xml reader.
func ParseThingXML(data []byte) (Thing, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing thing XML: %w", err)
	}

	thingNode := xmlquery.FindOne(root, "//thing")
	if thingNode == nil {
		return nil, fmt.Errorf("no <thing> element")
	}

	typeNode := xmlquery.FindOne(thingNode, "type-id")
	if typeNode == nil {
		return nil, fmt.Errorf("thing has no <type-id>")
	}
	kind, err := ParseKind(typeNode.InnerText())
	if err != nil {
		return nil, err
	}

	thing, err := New(kind)
	if err != nil {
		return nil, err
	}

	if idNode := xmlquery.FindOne(thingNode, "thing-id"); idNode != nil {
		key, err := ParseThingKey(strings.TrimSpace(idNode.InnerText()), idNode.SelectAttr("version-stamp"))
		if err != nil {
			return nil, err
		}
		thing.Header().Key = key
	}

	dataNode := xmlquery.FindOne(thingNode, "data-xml/*[1]")
	if dataNode == nil {
		return nil, fmt.Errorf("%s thing has no data-xml", kind)
	}
	if n := xmlquery.FindOne(dataNode, "when"); n != nil {
		when, err := parseWhen(n)
		if err != nil {
			return nil, err
		}
		thing.Header().When = when
	}
	if n := xmlquery.FindOne(thingNode, "data-xml/common/note"); n != nil {
		thing.Header().Note = n.InnerText()
	}

	if err := readThingData(thing, dataNode); err != nil {
		return nil, fmt.Errorf("%s data-xml: %w", kind, err)
	}
	return thing, nil
}

func readThingData(thing Thing, n *xmlquery.Node) error {
	var err error
	switch t := thing.(type) {
	case *Weight:
		t.Kilograms, err = floatAt(n, "value/kg")
		t.Display = displayAt(n, "value/display")
	case *Height:
		t.Meters, err = floatAt(n, "value/m")
		t.Display = displayAt(n, "value/display")
	case *HeartRate:
		t.BeatsPerMinute, err = intAt(n, "value")
		t.MeasurementMethod = codableAt(n, "measurement-method")
	case *BloodPressure:
		if t.Systolic, err = intAt(n, "systolic"); err != nil {
			return err
		}
		if t.Diastolic, err = intAt(n, "diastolic"); err != nil {
			return err
		}
		if xmlquery.FindOne(n, "pulse") != nil {
			pulse, perr := intAt(n, "pulse")
			if perr != nil {
				return perr
			}
			t.Pulse = &pulse
		}
	case *BloodGlucose:
		t.MmolPerL, err = floatAt(n, "value/mmolPerL")
		t.Display = displayAt(n, "value/display")
		t.GlucoseType = codableAt(n, "glucose-measurement-type")
	case *BodyDimension:
		t.MeasurementName = codableAt(n, "measurement-name")
		t.Meters, err = floatAt(n, "value/m")
		t.Display = displayAt(n, "value/display")
	default:
		return fmt.Errorf("no XML reader for %s", thing.Kind())
	}
	return err
}

// ParseCodableValueXML reads a codable value element such as
// <name><text>..</text><code><value>..</value><family>..</family><type>..</type></code></name>.
func ParseCodableValueXML(data []byte) (CodableValue, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return CodableValue{}, fmt.Errorf("parsing codable value XML: %w", err)
	}
	el := xmlquery.FindOne(root, "/*")
	if el == nil {
		return CodableValue{}, fmt.Errorf("empty document")
	}
	return readCodable(el), nil
}

func readCodable(n *xmlquery.Node) CodableValue {
	var cv CodableValue
	if t := xmlquery.FindOne(n, "text"); t != nil {
		cv.Text = strings.TrimSpace(t.InnerText())
	}
	for _, code := range xmlquery.Find(n, "code") {
		value := textAt(code, "value")
		if value == "" {
			continue
		}
		cv.Values = append(cv.Values, CodedValue{
			Value:          value,
			Family:         textAt(code, "family"),
			VocabularyName: textAt(code, "type"),
			Version:        textAt(code, "version"),
		})
	}
	return cv
}

func codableAt(n *xmlquery.Node, expr string) CodableValue {
	el := xmlquery.FindOne(n, expr)
	if el == nil {
		return CodableValue{}
	}
	return readCodable(el)
}

func displayAt(n *xmlquery.Node, expr string) *DisplayValue {
	el := xmlquery.FindOne(n, expr)
	if el == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(el.InnerText()), 64)
	if err != nil {
		return nil
	}
	return &DisplayValue{
		Value:     v,
		Units:     el.SelectAttr("units"),
		UnitsCode: el.SelectAttr("units-code"),
	}
}

func textAt(n *xmlquery.Node, expr string) string {
	el := xmlquery.FindOne(n, expr)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.InnerText())
}

func floatAt(n *xmlquery.Node, expr string) (float64, error) {
	s := textAt(n, expr)
	if s == "" {
		return 0, fmt.Errorf("missing <%s>", expr)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("<%s>: %w", expr, err)
	}
	return v, nil
}

func intAt(n *xmlquery.Node, expr string) (int, error) {
	s := textAt(n, expr)
	if s == "" {
		return 0, fmt.Errorf("missing <%s>", expr)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("<%s>: %w", expr, err)
	}
	return v, nil
}

// parseWhen reads <when><date><y/><m/><d/></date><time><h/><m/><s/></time></when>.
// A missing time part means midnight UTC.
func parseWhen(n *xmlquery.Node) (time.Time, error) {
	part := func(expr string, def int) (int, error) {
		s := textAt(n, expr)
		if s == "" {
			return def, nil
		}
		return strconv.Atoi(s)
	}

	var vals [6]int
	exprs := [6]string{"date/y", "date/m", "date/d", "time/h", "time/m", "time/s"}
	defs := [6]int{0, 1, 1, 0, 0, 0}
	for i, expr := range exprs {
		v, err := part(expr, defs[i])
		if err != nil {
			return time.Time{}, fmt.Errorf("<when>/%s: %w", expr, err)
		}
		vals[i] = v
	}
	if vals[0] == 0 {
		return time.Time{}, fmt.Errorf("<when> has no year")
	}
	return time.Date(vals[0], time.Month(vals[1]), vals[2], vals[3], vals[4], vals[5], 0, time.UTC), nil
}
