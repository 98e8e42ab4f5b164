package scenario

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Kind classifies a Record.
type Kind string

const (
	KindApplied   Kind = "applied"
	KindRefreshed Kind = "refreshed"
	KindRemoved   Kind = "removed"
	KindRejected  Kind = "rejected"
	KindError     Kind = "error"
	KindSpawned   Kind = "spawned"
	KindDestroyed Kind = "destroyed"
	KindPaused    Kind = "paused"
	KindResumed   Kind = "resumed"
)

// Record is one entry of the run log: a registry notification or a step
// outcome. By is the instigator for applied records and the remover for
// removed ones.
type Record struct {
	Time   float64 `yaml:"time"`
	Frame  uint64  `yaml:"frame"`
	Kind   Kind    `yaml:"kind"`
	Actor  string  `yaml:"actor,omitempty"`
	Effect string  `yaml:"effect,omitempty"`
	By     string  `yaml:"by,omitempty"`
	Stacks int     `yaml:"stacks,omitempty"`
	Detail string  `yaml:"detail,omitempty"`
}

// Result is the outcome of one Expectation.
type Result struct {
	Expectation Expectation `yaml:"expect"`
	Time        float64     `yaml:"checked_at"`
	Failures    []string    `yaml:"failures,omitempty"`
}

// Passed reports whether every check held.
func (r Result) Passed() bool { return len(r.Failures) == 0 }

// Report is the outcome of one scenario run.
type Report struct {
	Name    string   `yaml:"name"`
	Frames  uint64   `yaml:"frames"`
	Elapsed float64  `yaml:"elapsed"`
	Records []Record `yaml:"records"`
	Results []Result `yaml:"results"`
}

// Passed reports whether every expectation held.
func (r *Report) Passed() bool { return len(r.Failures()) == 0 }

// Failures returns one line per failed check.
func (r *Report) Failures() []string {
	var out []string
	for _, res := range r.Results {
		for _, f := range res.Failures {
			out = append(out, fmt.Sprintf("at %g %s: %s", res.Expectation.At, res.Expectation.Actor, f))
		}
	}
	return out
}

// RecordsOf returns the records of the given kind in order.
func (r *Report) RecordsOf(kind Kind) []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// WriteYAML encodes the report to w.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}
