package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/vmfkit/internal/scripting"
	"github.com/cory-johannsen/vmfkit/internal/vmf/document"
	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

// Summary is the YAML record written for each ingested map.
type Summary struct {
	Path       string              `yaml:"path"`
	Digest     string              `yaml:"digest"`
	RunID      string              `yaml:"run_id"`
	IngestedAt time.Time           `yaml:"ingested_at"`
	Stats      *document.Stats     `yaml:"stats,omitempty"`
	Bounds     *BoundsSummary      `yaml:"bounds,omitempty"`
	OpenSolids []int64             `yaml:"open_solids,omitempty,flow"`
	Findings   []scripting.Finding `yaml:"findings,omitempty"`
	Error      *ErrorSummary       `yaml:"error,omitempty"`
}

// BoundsSummary is the world brush bounding box.
type BoundsSummary struct {
	Min [3]float64 `yaml:"min,flow"`
	Max [3]float64 `yaml:"max,flow"`
}

// ErrorSummary describes why a map was rejected.
type ErrorSummary struct {
	Kind    string `yaml:"kind"`
	Message string `yaml:"message"`
	Line    int    `yaml:"line,omitempty"`
	Column  int    `yaml:"column,omitempty"`
}

// NewSummary builds the summary for res.
func NewSummary(runID uuid.UUID, at time.Time, res Result) Summary {
	s := Summary{
		Path:       res.Path,
		Digest:     res.Digest,
		RunID:      runID.String(),
		IngestedAt: at.UTC(),
	}
	if res.Err != nil {
		es := &ErrorSummary{Kind: res.ErrorKind(), Message: res.Err.Error()}
		var e *vmferr.Error
		if errors.As(res.Err, &e) {
			es.Message = e.Message
			es.Line, es.Column = e.Pos.Line, e.Pos.Column
		}
		s.Error = es
		return s
	}
	stats := res.Stats
	s.Stats = &stats
	s.Findings = res.Findings
	if res.doc != nil {
		s.OpenSolids = res.doc.OpenSolids()
		if b := res.doc.Bounds(); !b.Empty() {
			s.Bounds = &BoundsSummary{
				Min: [3]float64{b.Min.X, b.Min.Y, b.Min.Z},
				Max: [3]float64{b.Max.X, b.Max.Y, b.Max.Z},
			}
		}
	}
	return s
}

// SummaryName returns the file name used for the summary of the map at path
// with the given digest.
func SummaryName(path, digest string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(digest) > 12 {
		digest = digest[:12]
	}
	return base + "-" + digest + ".yaml"
}

// WriteSummary encodes s into dir and returns the written path.
//
// Postcondition: dir exists and the file is replaced atomically.
func WriteSummary(dir string, s Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating summary dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}
	path := filepath.Join(dir, SummaryName(s.Path, s.Digest))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing summary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("writing summary: %w", err)
	}
	return path, nil
}

// ReadSummary decodes the summary file at path.
func ReadSummary(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("reading summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("decoding summary %s: %w", path, err)
	}
	return s, nil
}
