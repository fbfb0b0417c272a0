// Package ingest parses directories of map files on a bounded worker pool,
// writes per-map summaries and records each map in the catalog.
package ingest

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/vmfkit/internal/config"
	"github.com/cory-johannsen/vmfkit/internal/scripting"
	"github.com/cory-johannsen/vmfkit/internal/storage/postgres"
	"github.com/cory-johannsen/vmfkit/internal/vmf"
	"github.com/cory-johannsen/vmfkit/internal/vmf/document"
	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

// KindIO labels failures that happened before parsing, such as unreadable files.
const KindIO = "IOError"

// Catalog records successfully parsed maps.
type Catalog interface {
	Upsert(ctx context.Context, rec postgres.MapRecord) (postgres.MapRecord, error)
}

// Linter checks a parsed map and reports findings.
type Linter interface {
	Check(doc *document.MapDocument) []scripting.Finding
}

// Result is the outcome of ingesting one file.
type Result struct {
	Path     string
	Digest   string
	Stats    document.Stats
	Findings []scripting.Finding
	Duration time.Duration
	Err      error
	doc      *document.MapDocument
}

// ErrorKind returns the taxonomy name of r.Err, KindIO for non-parse
// failures, or "" when r succeeded.
func (r Result) ErrorKind() string {
	if r.Err == nil {
		return ""
	}
	if k, ok := vmferr.KindOf(r.Err); ok {
		return k.String()
	}
	return KindIO
}

// Report collects the results of one Run.
type Report struct {
	RunID   uuid.UUID
	Dir     string
	Started time.Time
	Elapsed time.Duration
	// Results is ordered by path.
	Results []Result
}

// Failed returns the number of results carrying an error.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Succeeded returns the number of results without an error.
func (r *Report) Succeeded() int { return len(r.Results) - r.Failed() }

// Option configures a Service.
type Option func(*Service)

// WithMetrics makes the Service update m.
func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithCatalog makes the Service upsert every parsed map into c.
func WithCatalog(c Catalog) Option { return func(s *Service) { s.catalog = c } }

// WithLinter makes the Service lint every parsed map.
func WithLinter(l Linter) Option { return func(s *Service) { s.linter = l } }

// Service ingests map files according to its configuration.
type Service struct {
	cfg      config.IngestConfig
	maxDepth int
	logger   *zap.Logger
	metrics  *Metrics
	catalog  Catalog
	linter   Linter
	now      func() time.Time
}

// NewService creates a Service.
//
// Precondition: cfg must be valid; logger must be non-nil.
func NewService(cfg config.Config, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg.Ingest,
		maxDepth: cfg.Parser.MaxDepth,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Matches reports whether path has one of the configured extensions.
func (s *Service) Matches(path string) bool {
	ext := filepath.Ext(path)
	return slices.ContainsFunc(s.cfg.Extensions, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

// Discover returns every matching regular file below dir, sorted.
func (s *Service) Discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && s.Matches(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: walking %q: %w", dir, err)
	}
	slices.Sort(paths)
	return paths, nil
}

// Run ingests every matching file below dir using at most cfg.Workers
// concurrent parses.
//
// Postcondition: a failing file is recorded in the Report and never aborts the
// batch. The error is non-nil only when dir cannot be walked or ctx is
// cancelled; the partial Report is still returned in the latter case.
func (s *Service) Run(ctx context.Context, dir string) (*Report, error) {
	report := &Report{RunID: uuid.New(), Dir: dir, Started: s.now()}
	paths, err := s.Discover(dir)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("run_id", report.RunID.String()))
	logger.Info("ingest started", zap.String("dir", dir), zap.Int("files", len(paths)), zap.Int("workers", s.cfg.Workers))

	report.Results = make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				report.Results[i] = Result{Path: path, Err: err}
				return err
			}
			report.Results[i] = s.ingest(gctx, logger, report.RunID, path)
			return nil
		})
	}
	err = g.Wait()
	report.Elapsed = time.Since(report.Started)

	logger.Info("ingest finished",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", report.Failed()),
		zap.Duration("elapsed", report.Elapsed),
	)
	if err != nil {
		return report, fmt.Errorf("ingest: run %s interrupted: %w", report.RunID, err)
	}
	return report, nil
}

// IngestFile ingests a single file under a fresh run ID.
func (s *Service) IngestFile(ctx context.Context, path string) Result {
	runID := uuid.New()
	return s.ingest(ctx, s.logger.With(zap.String("run_id", runID.String())), runID, path)
}

func (s *Service) ingest(ctx context.Context, logger *zap.Logger, runID uuid.UUID, path string) Result {
	res := Result{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", path, err)
		s.finish(logger, &res)
		return res
	}
	sum := blake2b.Sum256(data)
	res.Digest = hex.EncodeToString(sum[:])

	start := time.Now()
	doc, err := vmf.Parse(string(data), vmf.WithMaxDepth(s.maxDepth))
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		s.finish(logger, &res)
		s.writeSummary(logger, runID, res)
		return res
	}
	res.doc = doc
	res.Stats = doc.Stats()
	if s.linter != nil {
		res.Findings = s.linter.Check(doc)
	}

	if s.catalog != nil && s.cfg.Persist {
		rec := postgres.MapRecord{
			Digest: res.Digest,
			Path:   path,
			RunID:  runID,
			Stats:  res.Stats,
		}
		if doc.VersionInfo != nil {
			rec.MapVersion = doc.VersionInfo.MapVersion
		}
		if _, err := s.catalog.Upsert(ctx, rec); err != nil {
			logger.Error("catalog upsert failed", zap.String("path", path), zap.Error(err))
		}
	}

	s.finish(logger, &res)
	s.writeSummary(logger, runID, res)
	return res
}

func (s *Service) finish(logger *zap.Logger, res *Result) {
	s.metrics.observe(*res)
	if res.Err != nil {
		logger.Warn("map rejected",
			zap.String("path", res.Path),
			zap.String("kind", res.ErrorKind()),
			zap.Error(res.Err),
		)
		return
	}
	logger.Debug("map ingested",
		zap.String("path", res.Path),
		zap.String("digest", res.Digest),
		zap.Int("entities", res.Stats.Entities),
		zap.Int("solids", res.Stats.Solids),
		zap.Int("findings", len(res.Findings)),
		zap.Duration("parse", res.Duration),
	)
}

func (s *Service) writeSummary(logger *zap.Logger, runID uuid.UUID, res Result) {
	if s.cfg.OutputDir == "" || res.Digest == "" {
		return
	}
	path, err := WriteSummary(s.cfg.OutputDir, NewSummary(runID, s.now(), res))
	if err != nil {
		logger.Error("writing summary failed", zap.String("path", res.Path), zap.Error(err))
		return
	}
	logger.Debug("summary written", zap.String("summary", path))
}
