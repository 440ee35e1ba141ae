package cache

import (
	"errors"
	"sync"
	"testing"
)

const (
	loincWeight  = "http://loinc.org|29463-7"
	loincHeight  = "http://loinc.org|8302-2"
	snomedWeight = "http://snomed.info/sct|27113001"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](3)

	c.Set(loincWeight, 1)
	c.Set(loincHeight, 2)

	if v, ok := c.Get(loincWeight); !ok || v != 1 {
		t.Errorf("Get(weight) = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get(snomedWeight); ok {
		t.Error("Get(snomed) should miss")
	}

	c.Set(loincWeight, 10)
	if v, _ := c.Get(loincWeight); v != 10 {
		t.Errorf("Get(weight) after update = %d; want 10", v)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d; want 2", c.Len())
	}
}

func TestCache_Eviction(t *testing.T) {
	c := New[string, int](2)

	c.Set(loincWeight, 1)
	c.Set(loincHeight, 2)
	c.Get(loincWeight)
	c.Set(snomedWeight, 3)

	if s := c.Stats(); s.Evicts != 1 || s.Size != 2 || s.Capacity != 2 {
		t.Errorf("Stats() = %+v", s)
	}
	if _, ok := c.Get(loincHeight); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if v, ok := c.Get(loincWeight); !ok || v != 1 {
		t.Errorf("Get(weight) = %d, %v; want the recently used entry kept", v, ok)
	}
}

func TestCache_GetOrLoad(t *testing.T) {
	c := New[string, int](4)
	calls := 0
	load := func() (int, error) {
		calls++
		return 7, nil
	}

	v, hit, err := c.GetOrLoad(loincWeight, load)
	if err != nil || hit || v != 7 {
		t.Errorf("first GetOrLoad = %d, %v, %v; want 7, false, nil", v, hit, err)
	}
	v, hit, err = c.GetOrLoad(loincWeight, load)
	if err != nil || !hit || v != 7 {
		t.Errorf("second GetOrLoad = %d, %v, %v; want 7, true, nil", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("load called %d times; want 1", calls)
	}

	boom := errors.New("boom")
	if _, _, err := c.GetOrLoad(snomedWeight, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("error = %v; want boom", err)
	}
	if c.Len() != 1 {
		t.Error("failed load should not be cached")
	}
}

func TestCache_DefaultCapacity(t *testing.T) {
	c := New[string, int](0)
	if c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity() = %d; want %d", c.Capacity(), DefaultCapacity)
	}
}

func TestCache_HitRate(t *testing.T) {
	c := New[string, int](2)
	c.Set(loincWeight, 1)
	c.Get(loincWeight)
	c.Get(loincWeight)
	c.Get(loincWeight)
	c.Get(loincHeight)

	if rate := c.Stats().HitRate; rate != 0.75 {
		t.Errorf("HitRate = %v; want 0.75", rate)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int, int](64)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := (g*500 + i) % 128
				c.Set(k, i)
				c.Get(k)
				_, _, _ = c.GetOrLoad(k+1, func() (int, error) { return k, nil })
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 64 {
		t.Errorf("Len() = %d; exceeds capacity 64", c.Len())
	}
}

func TestCache_GetDuringUpdate(t *testing.T) {
	c := New[string, int](2)
	c.Set(loincWeight, 0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			c.Set(loincWeight, i)
		}
	}()
	go func() {
		defer wg.Done()
		last := 0
		for i := 0; i < 1000; i++ {
			v, ok := c.Get(loincWeight)
			if !ok || v < last {
				t.Errorf("Get = %d, %v after %d", v, ok, last)
				return
			}
			last = v
		}
	}()
	wg.Wait()
}
