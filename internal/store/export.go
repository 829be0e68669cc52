// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export writes the most recent limit runs, with publications and profiles,
// to w in the given format.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, limit int) error {
	summaries, err := s.List(ctx, limit)
	if err != nil {
		return err
	}

	runs := make([]*types.VerificationResult, 0, len(summaries))
	for _, sum := range summaries {
		r, err := s.Get(ctx, sum.ID)
		if err != nil {
			return fmt.Errorf("loading run %s: %w", sum.ID, err)
		}
		runs = append(runs, r)
	}
	return Encode(w, format, runs)
}

// Encode writes v to w as YAML, indented JSON, or a CSL-YAML bibliography.
// The CSL format accepts a single run or a list of runs.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatCSL:
		var runs []*types.VerificationResult
		switch t := v.(type) {
		case *types.VerificationResult:
			runs = []*types.VerificationResult{t}
		case []*types.VerificationResult:
			runs = t
		default:
			return fmt.Errorf("csl format needs verification runs, got %T", v)
		}
		return Encode(w, FormatYAML, cslItems(runs))
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want yaml, json, or csl)", format)
	}
	return nil
}
