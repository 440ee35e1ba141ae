package convert

import (
	"fmt"
	"sync"

	"github.com/gofhir/fhirpath"
)

// GateCoded holds when at least one coding of the resource code has both
// system and code. ConvertJSON evaluates it before decoding.
const GateCoded = "code.coding.where(system.exists() and code.exists()).exists()"

// pathEvaluator compiles FHIRPath expressions once and evaluates them
// against raw resource JSON.
type pathEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*fhirpath.Expression
}

func newPathEvaluator() *pathEvaluator {
	return &pathEvaluator{cache: make(map[string]*fhirpath.Expression)}
}

// Test reports whether expr holds for resource. An empty result is false;
// a non-boolean, non-empty result is true.
func (p *pathEvaluator) Test(expr string, resource []byte) (bool, error) {
	compiled, err := p.compile(expr)
	if err != nil {
		return false, fmt.Errorf("failed to compile FHIRPath expression '%s': %w", expr, err)
	}

	result, err := compiled.Evaluate(resource)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate FHIRPath expression '%s': %w", expr, err)
	}

	if result.Empty() {
		return false, nil
	}
	b, err := result.ToBoolean()
	if err != nil {
		return true, nil
	}
	return b, nil
}

func (p *pathEvaluator) compile(expr string) (*fhirpath.Expression, error) {
	p.mu.RLock()
	compiled, ok := p.cache[expr]
	p.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := fhirpath.Compile(expr)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[expr] = compiled
	p.mu.Unlock()
	return compiled, nil
}

// Len returns the number of compiled expressions.
func (p *pathEvaluator) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}
