package hvfhir

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	// ErrUnsupportedCode is returned when no coding resolves to a known thing kind.
	ErrUnsupportedCode = errors.New("unsupported code")

	// ErrUnsupportedPeriod is returned for a recurrence unit outside the closed set.
	ErrUnsupportedPeriod = errors.New("unsupported period unit")
)

// Direction names the side a value was converted from.
type Direction string

const (
	// ToFHIR marks a HealthVault -> FHIR conversion.
	ToFHIR Direction = "healthvault->fhir"
	// ToHealthVault marks a FHIR -> HealthVault conversion.
	ToHealthVault Direction = "fhir->healthvault"
)

// UnsupportedCodeError reports a coded record that could not be resolved.
// System and Code identify the coding that failed, when a single one did.
type UnsupportedCodeError struct {
	// System is the coding system URI (empty when the record had no usable coding)
	System string

	// Code is the code that was looked up
	Code string

	// Reason is a short human-readable explanation
	Reason string
}

// Error implements error.
func (e *UnsupportedCodeError) Error() string {
	switch {
	case e.System != "" && e.Code != "":
		return fmt.Sprintf("unsupported code %q in system %q: %s", e.Code, e.System, e.Reason)
	case e.Reason != "":
		return "unsupported code: " + e.Reason
	default:
		return "unsupported code"
	}
}

// Is lets errors.Is match ErrUnsupportedCode.
func (e *UnsupportedCodeError) Is(target error) bool {
	return target == ErrUnsupportedCode
}

// UnsupportedPeriodError reports a recurrence unit that has no counterpart.
type UnsupportedPeriodError struct {
	// Unit is the rejected unit code as given
	Unit string

	// Direction is the conversion that was attempted
	Direction Direction
}

// Error implements error.
func (e *UnsupportedPeriodError) Error() string {
	return fmt.Sprintf("unsupported period unit %q (%s)", e.Unit, e.Direction)
}

// Is lets errors.Is match ErrUnsupportedPeriod.
func (e *UnsupportedPeriodError) Is(target error) bool {
	return target == ErrUnsupportedPeriod
}

// NewUnsupportedCode builds an UnsupportedCodeError.
func NewUnsupportedCode(system, code, reason string) *UnsupportedCodeError {
	return &UnsupportedCodeError{System: system, Code: code, Reason: reason}
}
