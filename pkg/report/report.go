// Package report renders a PickOutcome for human and machine
// consumption (spec §4.8): a column-aligned table via
// github.com/rodaine/table for terminal output, and YAML via
// sigs.k8s.io/yaml or JSON via encoding/json for the `--output` machine
// formats the CLI exposes.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rodaine/table"
	"sigs.k8s.io/yaml"

	"github.com/awslabs/Git-llm-pick/pkg/types"
)

// Format enumerates the CLI's `--output` values.
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// Write renders outcome to w in the requested Format.
func Write(w io.Writer, outcome types.PickOutcome, format Format) error {
	switch format {
	case FormatYAML:
		b, err := yaml.Marshal(outcome)
		if err != nil {
			return fmt.Errorf("report: marshaling yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	case FormatJSON:
		b, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return fmt.Errorf("report: marshaling json: %w", err)
		}
		_, err = w.Write(append(b, '\n'))
		return err
	default:
		return writeTable(w, outcome)
	}
}

func writeTable(w io.Writer, outcome types.PickOutcome) error {
	tbl := table.New("FIELD", "VALUE").WithWriter(w)
	tbl.AddRow("Commit", outcome.CommitID)
	tbl.AddRow("Resolved via", string(outcome.SucceededVia))
	tbl.AddRow("Rejects resolved", outcome.RejectsResolved)
	tbl.AddRow("Fuzz level", outcome.FuzzLevel)
	tbl.AddRow("Validation passed", outcome.ValidationPassed)
	tbl.AddRow("Tokens used", outcome.TokensUsed)
	tbl.AddRow("Duration", outcome.Duration.String())
	for _, a := range outcome.Annotations {
		tbl.AddRow("Annotation", a)
	}
	for _, d := range outcome.DependencyPicks {
		tbl.AddRow("Dependency pick", d)
	}
	tbl.Print()
	return nil
}

// WriteCacheEntries renders a list of cache entries for `cache inspect`.
func WriteCacheEntries(w io.Writer, entries []types.CacheEntry, format Format) error {
	switch format {
	case FormatYAML:
		b, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("report: marshaling yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	case FormatJSON:
		b, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("report: marshaling json: %w", err)
		}
		_, err = w.Write(append(b, '\n'))
		return err
	default:
		tbl := table.New("FINGERPRINT", "MODEL", "INPUT TOKENS", "OUTPUT TOKENS", "CREATED").WithWriter(w)
		for _, e := range entries {
			tbl.AddRow(e.Fingerprint[:12], e.Model, e.InputTokens, e.OutputTokens, e.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		tbl.Print()
		return nil
	}
}
