package vocab

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Terminology names an external dictionary.
type Terminology string

// External terminologies backed by a DictionarySource.
const (
	SNOMED Terminology = "snomed"
	LOINC  Terminology = "loinc"
)

// Terminologies returns the dictionaries the registry loads.
func Terminologies() []Terminology {
	return []Terminology{SNOMED, LOINC}
}

// System returns the FHIR code system URI of the terminology.
func (t Terminology) System() string {
	switch t {
	case SNOMED:
		return SNOMEDURI
	case LOINC:
		return LOINCURI
	}
	return ""
}

// TerminologyForSystem maps a code system URI to its terminology.
func TerminologyForSystem(system string) (Terminology, bool) {
	s := trimBase(system)
	switch {
	case strings.EqualFold(s, SNOMEDURI):
		return SNOMED, true
	case strings.EqualFold(s, LOINCURI):
		return LOINC, true
	}
	return "", false
}

// ErrNoDictionary is returned by a source that has no data for a terminology.
var ErrNoDictionary = errors.New("dictionary not found")

// DictionarySource supplies the code -> type name dictionary of a terminology.
type DictionarySource interface {
	Load(ctx context.Context, t Terminology) (map[string]string, error)
}

// MapSource serves dictionaries held in memory.
type MapSource map[Terminology]map[string]string

// Load returns a copy of the dictionary for t.
func (m MapSource) Load(_ context.Context, t Terminology) (map[string]string, error) {
	d, ok := m[t]
	if !ok {
		return nil, fmt.Errorf("%s: %w", t, ErrNoDictionary)
	}
	out := make(map[string]string, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out, nil
}

//go:embed data/*.txt
var embedded embed.FS

// FSSource reads "{terminology}.txt" flat files from a file system.
type FSSource struct {
	fsys fs.FS
	dir  string
}

// EmbeddedSource returns the dictionaries packaged with the library.
func EmbeddedSource() *FSSource {
	return &FSSource{fsys: embedded, dir: "data"}
}

// DirSource reads flat dictionary files from a directory on disk.
func DirSource(dir string) *FSSource {
	return &FSSource{fsys: os.DirFS(dir), dir: "."}
}

// Load reads and parses the dictionary file for t.
func (s *FSSource) Load(ctx context.Context, t Terminology) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.ToSlash(filepath.Join(s.dir, string(t)+".txt"))
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNoDictionary)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	d, err := ParseDictionary(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return d, nil
}

// ParseDictionary reads "code=TypeName" lines. Blank lines and lines
// starting with '#' are skipped. Keys are kept exactly as written.
func ParseDictionary(r io.Reader) (map[string]string, error) {
	d := make(map[string]string)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		code, name, ok := strings.Cut(text, "=")
		code, name = strings.TrimSpace(code), strings.TrimSpace(name)
		if !ok || code == "" || name == "" {
			return nil, fmt.Errorf("line %d: expected code=TypeName, got %q", line, text)
		}
		d[code] = name
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// Compile-time interface checks.
var (
	_ DictionarySource = MapSource(nil)
	_ DictionarySource = (*FSSource)(nil)
)
