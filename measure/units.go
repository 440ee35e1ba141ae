package measure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension is a physical quantity with one canonical HealthVault unit.
type Dimension int

// Dimensions and their canonical units.
const (
	Mass Dimension = iota + 1
	Length
	GlucoseLevel
	Rate
	Pressure
)

var canonical = map[Dimension]string{
	Mass:         "kg",
	Length:       "m",
	GlucoseLevel: "mmol/L",
	Rate:         "/min",
	Pressure:     "mm[Hg]",
}

// String returns the canonical unit of d.
func (d Dimension) String() string {
	if u, ok := canonical[d]; ok {
		return u
	}
	return fmt.Sprintf("Dimension(%d)", int(d))
}

// ErrUnknownUnit is returned for a unit not in the conversion table.
var ErrUnknownUnit = errors.New("unknown unit")

// ErrDimensionMismatch is returned when converting between dimensions.
var ErrDimensionMismatch = errors.New("units measure different dimensions")

// glucoseFactor converts blood glucose: mmol/L = mg/dL / 18.016.
var glucoseFactor = decimal.RequireFromString("18.016")

type unitDef struct {
	dim Dimension
	mul decimal.Decimal
	div decimal.Decimal
}

func def(dim Dimension, mul, div string) unitDef {
	return unitDef{dim: dim, mul: decimal.RequireFromString(mul), div: decimal.RequireFromString(div)}
}

// units maps lowercase UCUM codes and common labels to the factor taking a
// value to the canonical unit: canonical = value * mul / div.
var units = map[string]unitDef{
	"kg":      def(Mass, "1", "1"),
	"g":       def(Mass, "0.001", "1"),
	"[lb_av]": def(Mass, "0.45359237", "1"),
	"lb":      def(Mass, "0.45359237", "1"),
	"lbs":     def(Mass, "0.45359237", "1"),

	"m":      def(Length, "1", "1"),
	"cm":     def(Length, "0.01", "1"),
	"mm":     def(Length, "0.001", "1"),
	"[in_i]": def(Length, "0.0254", "1"),
	"in":     def(Length, "0.0254", "1"),
	"[ft_i]": def(Length, "0.3048", "1"),
	"ft":     def(Length, "0.3048", "1"),

	"mmol/l": def(GlucoseLevel, "1", "1"),
	"mg/dl":  {dim: GlucoseLevel, mul: decimal.NewFromInt(1), div: glucoseFactor},

	"/min":        def(Rate, "1", "1"),
	"{beats}/min": def(Rate, "1", "1"),
	"bpm":         def(Rate, "1", "1"),

	"mm[hg]": def(Pressure, "1", "1"),
	"mmhg":   def(Pressure, "1", "1"),
}

// Precision is the number of decimal places kept by conversions.
const Precision = 6

func lookupUnit(unit string) (unitDef, error) {
	u, ok := units[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return unitDef{}, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
	return u, nil
}

// DimensionOf returns the dimension unit measures.
func DimensionOf(unit string) (Dimension, error) {
	u, err := lookupUnit(unit)
	if err != nil {
		return 0, err
	}
	return u.dim, nil
}

// Convert converts value from one unit to another of the same dimension,
// rounded to Precision places.
func Convert(value float64, from, to string) (float64, error) {
	f, err := lookupUnit(from)
	if err != nil {
		return 0, err
	}
	t, err := lookupUnit(to)
	if err != nil {
		return 0, err
	}
	if f.dim != t.dim {
		return 0, fmt.Errorf("%w: %s is %s, %s is %s", ErrDimensionMismatch, from, f.dim, to, t.dim)
	}

	v := decimal.NewFromFloat(value).Mul(f.mul).Div(f.div)
	v = v.Mul(t.div).Div(t.mul)
	return v.Round(Precision).InexactFloat64(), nil
}

// Normalize converts value in unit to the canonical unit of dim.
func Normalize(value float64, unit string, dim Dimension) (float64, error) {
	return Convert(value, unit, canonical[dim])
}
