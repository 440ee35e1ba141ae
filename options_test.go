package hvfhir

import (
	"errors"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.ResolverCacheSize != 1024 {
		t.Errorf("ResolverCacheSize = %d; want 1024", opts.ResolverCacheSize)
	}
	if opts.StrictUnits {
		t.Error("StrictUnits should be false by default")
	}
	if opts.WorkerCount != runtime.NumCPU() {
		t.Errorf("WorkerCount = %d; want %d", opts.WorkerCount, runtime.NumCPU())
	}
	if opts.Logger != nil {
		t.Error("Logger should be nil by default")
	}
}

func TestApply(t *testing.T) {
	m := NewMetrics()
	opts := Apply(
		WithCacheSize(0),
		WithStrictUnits(true),
		WithWorkerCount(3),
		WithLogger(zerolog.Nop()),
		WithMetrics(m),
	)

	if opts.ResolverCacheSize != 0 {
		t.Errorf("ResolverCacheSize = %d; want 0", opts.ResolverCacheSize)
	}
	if !opts.StrictUnits {
		t.Error("StrictUnits should be true")
	}
	if opts.WorkerCount != 3 {
		t.Errorf("WorkerCount = %d; want 3", opts.WorkerCount)
	}
	if opts.Logger == nil {
		t.Error("Logger should be set")
	}
	if opts.Metrics != m {
		t.Error("Metrics should be the given instance")
	}
}

func TestOptions_IgnoreInvalid(t *testing.T) {
	opts := Apply(WithCacheSize(-1), WithWorkerCount(0))

	if opts.ResolverCacheSize != 1024 {
		t.Errorf("ResolverCacheSize = %d; want 1024", opts.ResolverCacheSize)
	}
	if opts.WorkerCount != runtime.NumCPU() {
		t.Errorf("WorkerCount = %d; want %d", opts.WorkerCount, runtime.NumCPU())
	}
}

func TestUnsupportedCodeError(t *testing.T) {
	err := error(NewUnsupportedCode("http://loinc.org", "0000-0", "not in dictionary"))

	if !errors.Is(err, ErrUnsupportedCode) {
		t.Error("errors.Is(err, ErrUnsupportedCode) = false; want true")
	}
	if errors.Is(err, ErrUnsupportedPeriod) {
		t.Error("errors.Is(err, ErrUnsupportedPeriod) = true; want false")
	}

	var uc *UnsupportedCodeError
	if !errors.As(err, &uc) || uc.Code != "0000-0" {
		t.Errorf("errors.As code = %v; want 0000-0", uc)
	}

	want := `unsupported code "0000-0" in system "http://loinc.org": not in dictionary`
	if err.Error() != want {
		t.Errorf("Error() = %q; want %q", err.Error(), want)
	}

	if got := NewUnsupportedCode("", "", "no coding").Error(); got != "unsupported code: no coding" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUnsupportedPeriodError(t *testing.T) {
	err := error(&UnsupportedPeriodError{Unit: "fortnight", Direction: ToFHIR})

	if !errors.Is(err, ErrUnsupportedPeriod) {
		t.Error("errors.Is(err, ErrUnsupportedPeriod) = false; want true")
	}
	want := `unsupported period unit "fortnight" (healthvault->fhir)`
	if err.Error() != want {
		t.Errorf("Error() = %q; want %q", err.Error(), want)
	}
}
