// Package main implements the hvfhir CLI tool.
// It resolves FHIR codings to HealthVault thing types and converts records
// between FHIR Observation JSON and HealthVault things.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gofhir/fhir/r4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
	"github.com/microsoft/healthvault-fhir-library-sub001/codes"
	"github.com/microsoft/healthvault-fhir-library-sub001/convert"
	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
	"github.com/microsoft/healthvault-fhir-library-sub001/internal/config"
	"github.com/microsoft/healthvault-fhir-library-sub001/measure"
	"github.com/microsoft/healthvault-fhir-library-sub001/resolver"
	"github.com/microsoft/healthvault-fhir-library-sub001/vocab"
	"github.com/microsoft/healthvault-fhir-library-sub001/worker"
)

const version = "0.1.0"

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// maxLineSize bounds one NDJSON line.
const maxLineSize = 4 << 20

// errFailed makes the command exit non-zero after its output is written.
var errFailed = errors.New("one or more inputs failed")

// ConvertOutput is the JSON output for one converted input.
type ConvertOutput struct {
	Resource string   `json:"resource"`
	Kind     string   `json:"kind,omitempty"`
	Thing    hv.Thing `json:"thing,omitempty"`
	Error    string   `json:"error,omitempty"`
	Duration string   `json:"duration"`
}

// app carries what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configFile string
	output     string
	strict     bool

	cfg       *config.Config
	log       zerolog.Logger
	metrics   *hvfhir.Metrics
	registry  *vocab.Registry
	converter *convert.Converter
	pool      *worker.Pool
	closeFn   func() error
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, closeFn: func() error { return nil }}

	rootCmd := &cobra.Command{
		Use:          "hvfhir",
		Short:        "HealthVault to FHIR mapping tool",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.closeFn()
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "Output format: text, json")
	rootCmd.PersistentFlags().BoolVar(&a.strict, "strict", false, "Fail on units that cannot be normalised")

	rootCmd.AddCommand(a.resolveCmd())
	rootCmd.AddCommand(a.convertCmd())
	rootCmd.AddCommand(a.periodCmd())
	rootCmd.AddCommand(a.thingCmd())
	rootCmd.AddCommand(a.codableCmd())
	rootCmd.AddCommand(a.dumpCmd())
	rootCmd.AddCommand(a.dictCmd())

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("strict") {
		cfg.StrictUnits = a.strict
	}
	switch OutputFormat(strings.ToLower(a.output)) {
	case OutputText, OutputJSON:
		a.output = strings.ToLower(a.output)
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}

	a.cfg = cfg
	a.log = cfg.Logger(a.stderr)
	a.metrics = hvfhir.NewMetrics()

	src, closeFn, err := cfg.Source()
	if err != nil {
		return err
	}
	a.closeFn = closeFn
	a.registry = vocab.NewRegistry(src, vocab.WithLogger(a.log))

	opts := append(cfg.Options(a.log), hvfhir.WithMetrics(a.metrics))
	a.converter = convert.NewWithResolver(resolver.New(a.registry, opts...), opts...)
	a.pool = worker.NewPool(a.converter, opts...)
	return nil
}

func (a *app) isJSON() bool {
	return OutputFormat(a.output) == OutputJSON
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <system> <code> [<system> <code>]...",
		Short: "Resolve codings to a HealthVault thing type",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected system/code pairs, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := &r4.CodeableConcept{}
			for i := 0; i < len(args); i += 2 {
				system, code := args[i], args[i+1]
				cc.Coding = append(cc.Coding, r4.Coding{System: &system, Code: &code})
			}

			kind, err := a.converter.Resolver().ResolveContext(cmd.Context(), cc)
			if err != nil {
				return err
			}
			if a.isJSON() {
				return a.writeJSON(map[string]string{"kind": kind.String(), "type-id": kind.TypeID()})
			}
			fmt.Fprintf(a.stdout, "%s (%s)\n", kind, kind.TypeID())
			return nil
		},
	}
}

func (a *app) periodCmd() *cobra.Command {
	var reverse bool
	cmd := &cobra.Command{
		Use:   "period <interval>",
		Short: "Map a HealthVault recurrence interval to FHIR UnitsOfTime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out string
				err error
			)
			if reverse {
				out, err = measure.FromUnitsOfTime(args[0])
			} else {
				out, err = measure.ToUnitsOfTime(args[0])
			}
			if err != nil {
				a.metrics.RecordUnsupportedPeriod()
				return err
			}
			fmt.Fprintln(a.stdout, out)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "Map a FHIR UnitsOfTime code to a HealthVault interval")
	return cmd
}

func (a *app) convertCmd() *cobra.Command {
	var ndjson bool
	cmd := &cobra.Command{
		Use:   "convert <file>... | -",
		Short: "Convert FHIR Observation JSON to HealthVault things",
		Long: "Each input holds one Observation. With --ndjson every line of every input is an\n" +
			"Observation and results are printed as they complete.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := a.readInputs(args)
			if err != nil {
				return err
			}
			if ndjson {
				return a.convertStream(cmd.Context(), inputs)
			}

			docs := make([][]byte, len(inputs))
			for i, in := range inputs {
				docs[i] = in.data
			}
			batch := a.pool.ConvertBatch(cmd.Context(), docs)

			outputs := make([]ConvertOutput, len(inputs))
			for i, in := range inputs {
				outputs[i] = newConvertOutput(in.name, batch.Results[i])
			}

			if a.isJSON() {
				if err := a.writeJSON(outputs); err != nil {
					return err
				}
			} else {
				for _, o := range outputs {
					a.writeText(o)
				}
			}

			a.log.Debug().
				Int("total", batch.TotalJobs).
				Int("failed", batch.FailedJobs).
				Float64("cache-hit-rate", a.metrics.CacheHitRate()).
				Msg("batch converted")
			if batch.HasErrors() {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ndjson, "ndjson", false, "Read newline-delimited Observations and stream the results")
	return cmd
}

// convertStream feeds every non-blank line of inputs to the pool and writes
// each result when it completes. Lines are named <input>:<line>.
func (a *app) convertStream(ctx context.Context, inputs []input) error {
	jobs := make(chan worker.Job, a.pool.Workers())
	go func() {
		defer close(jobs)
		for _, in := range inputs {
			sc := bufio.NewScanner(bytes.NewReader(in.data))
			sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
			for n := 1; sc.Scan(); n++ {
				line := bytes.TrimSpace(sc.Bytes())
				if len(line) == 0 {
					continue
				}
				job := worker.Job{ID: fmt.Sprintf("%s:%d", in.name, n), Resource: bytes.Clone(line)}
				select {
				case <-ctx.Done():
					return
				case jobs <- job:
				}
			}
			if err := sc.Err(); err != nil {
				a.log.Error().Err(err).Str("input", in.name).Msg("reading lines")
			}
		}
	}()

	enc := json.NewEncoder(a.stdout)
	total, failed := 0, 0
	for r := range a.pool.Stream(ctx, jobs) {
		total++
		o := newConvertOutput(r.ID, r)
		if o.Error != "" {
			failed++
		}
		if a.isJSON() {
			if err := enc.Encode(o); err != nil {
				return err
			}
			continue
		}
		a.writeText(o)
	}

	a.log.Debug().Int("total", total).Int("failed", failed).Msg("stream converted")
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return errFailed
	}
	return nil
}

func newConvertOutput(name string, r *worker.JobResult) ConvertOutput {
	o := ConvertOutput{Resource: name}
	if r == nil {
		o.Error = context.Canceled.Error()
		return o
	}
	o.Duration = time.Duration(r.Duration).Round(time.Microsecond).String()
	if r.Error != nil {
		o.Error = r.Error.Error()
		return o
	}
	o.Kind = r.Thing.Kind().String()
	o.Thing = r.Thing
	return o
}

func (a *app) writeText(o ConvertOutput) {
	if o.Error != "" {
		fmt.Fprintf(a.stdout, "%s: ERROR %s\n", o.Resource, o.Error)
		return
	}
	fmt.Fprintf(a.stdout, "%s: %s %s\n", o.Resource, o.Kind, o.Thing.Header().Key.ID)
}

func (a *app) thingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thing <file.xml> | -",
		Short: "Convert a HealthVault thing XML document to a FHIR Observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := a.readInputs(args)
			if err != nil {
				return err
			}
			if len(inputs) != 1 {
				return fmt.Errorf("expected one document, %q matched %d", args[0], len(inputs))
			}

			thing, err := hv.ParseThingXML(inputs[0].data)
			if err != nil {
				return err
			}
			data, err := a.converter.MarshalObservation(thing)
			if err != nil {
				return err
			}
			var doc any
			if err := json.Unmarshal(data, &doc); err != nil {
				return err
			}
			return a.writeJSON(doc)
		},
	}
}

func (a *app) codableCmd() *cobra.Command {
	var resolve bool
	cmd := &cobra.Command{
		Use:   "codable <file.xml> | -",
		Short: "Convert a HealthVault codable value XML element to a FHIR CodeableConcept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := a.readInputs(args)
			if err != nil {
				return err
			}
			if len(inputs) != 1 {
				return fmt.Errorf("expected one document, %q matched %d", args[0], len(inputs))
			}

			cv, err := hv.ParseCodableValueXML(inputs[0].data)
			if err != nil {
				return err
			}
			if cv.IsEmpty() {
				return fmt.Errorf("%s: codable value is empty", inputs[0].name)
			}
			cc := codes.ToCodeableConcept(cv)
			if !resolve {
				return a.writeJSON(cc)
			}

			kind, err := a.converter.Resolver().ResolveContext(cmd.Context(), cc)
			if err != nil {
				return err
			}
			return a.writeJSON(map[string]any{"concept": cc, "kind": kind.String(), "type-id": kind.TypeID()})
		},
	}
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Also resolve the concept to a thing type")
	return cmd
}

func (a *app) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file>... | -",
		Short: "Print the Go value of converted things for debugging",
		Long:  "Inputs ending in .xml are read as HealthVault things, everything else as FHIR Observation JSON.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := a.readInputs(args)
			if err != nil {
				return err
			}

			cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
			failed := false
			for _, in := range inputs {
				var (
					thing hv.Thing
					err   error
				)
				if strings.EqualFold(filepath.Ext(in.name), ".xml") {
					thing, err = hv.ParseThingXML(in.data)
				} else {
					thing, err = a.converter.ConvertJSON(cmd.Context(), in.data)
				}
				if err != nil {
					fmt.Fprintf(a.stdout, "== %s ==\nERROR %v\n", in.name, err)
					failed = true
					continue
				}
				fmt.Fprintf(a.stdout, "== %s ==\n", in.name)
				cfg.Fdump(a.stdout, thing)
			}
			if failed {
				return errFailed
			}
			return nil
		},
	}
}

func (a *app) dictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Inspect and manage terminology dictionaries",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Load every dictionary and print entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.registry.Preload(cmd.Context()); err != nil {
				return err
			}
			stats := a.registry.Stats()
			if a.isJSON() {
				return a.writeJSON(stats)
			}
			for _, s := range stats {
				fmt.Fprintf(a.stdout, "%-8s entries=%d skipped=%d duration=%s\n",
					s.Terminology, s.Entries, s.Skipped, s.Duration.Round(time.Microsecond))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "builtin [vocabulary]",
		Short: "List the compiled-in HealthVault vocabularies or the codes of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				list := vocab.BuiltinCodes(args[0])
				if len(list) == 0 {
					return fmt.Errorf("no compiled-in vocabulary %q", args[0])
				}
				if a.isJSON() {
					return a.writeJSON(list)
				}
				for _, c := range list {
					kind, _ := vocab.LookupBuiltin(args[0], c)
					fmt.Fprintf(a.stdout, "%-16s %s\n", c, kind)
				}
				return nil
			}

			counts := make(map[string]int)
			for _, name := range vocab.BuiltinVocabularies() {
				counts[name] = len(vocab.BuiltinCodes(name))
			}
			if a.isJSON() {
				return a.writeJSON(counts)
			}
			for _, name := range vocab.BuiltinVocabularies() {
				fmt.Fprintf(a.stdout, "%-20s codes=%d\n", name, counts[name])
			}
			return nil
		},
	})

	importCmd := &cobra.Command{
		Use:   "import <terminology> <file>",
		Short: "Import a code=TypeName flat file into a SQLite dictionary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _ := cmd.Flags().GetString("db")
			if db == "" {
				db = a.cfg.DictDB
			}
			if db == "" {
				return fmt.Errorf("no database: pass --db or set HVFHIR_DICT_DB")
			}

			term := vocab.Terminology(strings.ToLower(args[0]))
			if term != vocab.SNOMED && term != vocab.LOINC {
				return fmt.Errorf("unknown terminology %q", args[0])
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			entries, err := vocab.ParseDictionary(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			src, err := vocab.OpenSQLite(db)
			if err != nil {
				return err
			}
			defer src.Close()
			if err := src.Init(cmd.Context()); err != nil {
				return err
			}
			if err := src.Import(cmd.Context(), term, entries); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Imported %d %s code(s) into %s\n", len(entries), term, db)
			return nil
		},
	}
	importCmd.Flags().String("db", "", "SQLite database path (defaults to HVFHIR_DICT_DB)")
	cmd.AddCommand(importCmd)

	return cmd
}

type input struct {
	name string
	data []byte
}

// readInputs reads "-" from stdin and expands every other argument as a
// glob pattern.
func (a *app) readInputs(args []string) ([]input, error) {
	var inputs []input
	for _, arg := range args {
		if arg == "-" {
			data, err := io.ReadAll(a.stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read stdin: %w", err)
			}
			inputs = append(inputs, input{name: "stdin", data: data})
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", arg)
		}
		for _, m := range matches {
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", m, err)
			}
			inputs = append(inputs, input{name: m, data: data})
		}
	}
	return inputs, nil
}
