package hvfhir

import (
	"sync"
	"testing"
	"time"
)

func TestMetrics_Basic(t *testing.T) {
	m := NewMetrics()

	if m.ConversionsTotal() != 0 {
		t.Errorf("ConversionsTotal() = %d; want 0", m.ConversionsTotal())
	}

	m.RecordConversion(10*time.Millisecond, true)
	m.RecordConversion(30*time.Millisecond, false)

	if m.ConversionsTotal() != 2 {
		t.Errorf("ConversionsTotal() = %d; want 2", m.ConversionsTotal())
	}
	if m.ConversionsFailed() != 1 {
		t.Errorf("ConversionsFailed() = %d; want 1", m.ConversionsFailed())
	}
	if got := m.AverageConversionTime(); got != 20*time.Millisecond {
		t.Errorf("AverageConversionTime() = %v; want 20ms", got)
	}
	if got := m.MinConversionTime(); got != 10*time.Millisecond {
		t.Errorf("MinConversionTime() = %v; want 10ms", got)
	}
	if got := m.MaxConversionTime(); got != 30*time.Millisecond {
		t.Errorf("MaxConversionTime() = %v; want 30ms", got)
	}
}

func TestMetrics_EmptyTimes(t *testing.T) {
	m := NewMetrics()
	if got := m.MinConversionTime(); got != 0 {
		t.Errorf("MinConversionTime() = %v; want 0", got)
	}
	if got := m.AverageConversionTime(); got != 0 {
		t.Errorf("AverageConversionTime() = %v; want 0", got)
	}
	if got := m.CacheHitRate(); got != 0 {
		t.Errorf("CacheHitRate() = %f; want 0", got)
	}
}

func TestMetrics_Resolutions(t *testing.T) {
	m := NewMetrics()
	m.RecordResolution(SourceLOINC)
	m.RecordResolution(SourceLOINC)
	m.RecordResolution(SourceHealthVault)

	if got := m.Resolutions(SourceLOINC); got != 2 {
		t.Errorf("Resolutions(loinc) = %d; want 2", got)
	}
	if got := m.Resolutions(SourceSNOMED); got != 0 {
		t.Errorf("Resolutions(snomed) = %d; want 0", got)
	}

	s := m.Snapshot()
	if s.Resolutions[SourceHealthVault] != 1 {
		t.Errorf("Snapshot().Resolutions[healthvault] = %d; want 1", s.Resolutions[SourceHealthVault])
	}
}

func TestMetrics_CacheHitRate(t *testing.T) {
	m := NewMetrics()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	if got := m.CacheHitRate(); got != 0.75 {
		t.Errorf("CacheHitRate() = %f; want 0.75", got)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.RecordConversion(time.Millisecond, false)
	m.RecordUnsupportedCode()
	m.RecordUnsupportedPeriod()
	m.RecordResolution(SourceSNOMED)

	m.Reset()

	s := m.Snapshot()
	if s.ConversionsTotal != 0 || s.ConversionsFailed != 0 {
		t.Errorf("after Reset conversions = %d/%d; want 0/0", s.ConversionsTotal, s.ConversionsFailed)
	}
	if s.UnsupportedCodes != 0 || s.UnsupportedPeriods != 0 {
		t.Errorf("after Reset unsupported = %d/%d; want 0/0", s.UnsupportedCodes, s.UnsupportedPeriods)
	}
	if len(s.Resolutions) != 0 {
		t.Errorf("after Reset Resolutions = %v; want empty", s.Resolutions)
	}
	if s.MinConversionNs != 0 {
		t.Errorf("after Reset MinConversionNs = %d; want 0", s.MinConversionNs)
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordConversion(time.Microsecond, true)
			m.RecordResolution(SourceHealthVault)
		}()
	}
	wg.Wait()

	if m.ConversionsTotal() != 50 {
		t.Errorf("ConversionsTotal() = %d; want 50", m.ConversionsTotal())
	}
	if m.Resolutions(SourceHealthVault) != 50 {
		t.Errorf("Resolutions(healthvault) = %d; want 50", m.Resolutions(SourceHealthVault))
	}
}
