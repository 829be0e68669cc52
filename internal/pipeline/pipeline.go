// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one CV through extraction, segmentation, batched
// generation, recovery, deduplication, and author-profile aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/cv-verify/internal/batch"
	"github.com/pdiddy/cv-verify/internal/dedup"
	"github.com/pdiddy/cv-verify/internal/document"
	"github.com/pdiddy/cv-verify/internal/extract"
	"github.com/pdiddy/cv-verify/internal/logging"
	"github.com/pdiddy/cv-verify/internal/profile"
	"github.com/pdiddy/cv-verify/internal/recovery"
	"github.com/pdiddy/cv-verify/internal/segment"
	"github.com/pdiddy/cv-verify/pkg/types"
)

// ErrExtraction marks a run that could not get any text out of the document.
var ErrExtraction = errors.New("document extraction failed")

// Aggregator builds an author profile from verified publications.
// *profile.Aggregator implements it.
type Aggregator interface {
	Aggregate(ctx context.Context, ids types.AuthorIDs, candidate string, publications []types.PublicationRecord, priority types.SourceName) *types.AuthorProfile
}

// Options tune a single run.
type Options struct {
	PrioritySource types.SourceName
	AuthorIDs      types.AuthorIDs

	// CandidateName overrides the name guessed from the document.
	CandidateName string

	// KeepDocument leaves the input file in place after the run.
	KeepDocument bool
}

// Pipeline holds the collaborators of a verification run.
type Pipeline struct {
	Extractor  document.Extractor
	Classifier segment.Classifier
	Generator  extract.Generator
	Aggregator Aggregator
	Config     types.VerifyConfig
	Logger     *zap.Logger

	// Out receives one progress line per batch. Nil discards them.
	Out io.Writer
}

// batchOutcome is the settled result of one generation request.
type batchOutcome struct {
	records []types.PublicationRecord
	stage   recovery.Stage
	err     error
	done    bool
}

// RunVerification processes the document at path. Only extraction failures
// are returned as errors (wrapping ErrExtraction); generation, recovery and
// source failures degrade the result instead. When ctx is cancelled the
// batches that completed are kept and the result is marked Partial. The
// document is removed on every return path unless opts.KeepDocument is set.
func (p *Pipeline) RunVerification(ctx context.Context, path string, opts Options) (*types.VerificationResult, error) {
	log := logging.OrNop(p.Logger).With(zap.String("document", filepath.Base(path)))
	if !opts.KeepDocument {
		defer RemoveDocument(path, log)
	}

	cfg := p.Config
	cfg.ApplyDefaults()

	if p.Extractor == nil {
		return nil, fmt.Errorf("%w: no extractor configured", ErrExtraction)
	}
	text, err := p.Extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, document.ErrNoText)
	}

	candidate := firstNonBlank(opts.CandidateName, GuessCandidateName(text), types.UnknownValue)
	log = log.With(zap.String("candidate", candidate))

	batches := p.batches(ctx, text, cfg.Batching, log)
	outcomes := p.processBatches(ctx, candidate, batches, cfg.Extraction, log)

	result := &types.VerificationResult{
		RunID:         uuid.NewString(),
		CandidateName: candidate,
		Document:      filepath.Base(path),
		CreatedAt:     time.Now().UTC(),
		BatchesTotal:  len(batches),
	}

	var all []types.PublicationRecord
	for _, o := range outcomes {
		switch {
		case !o.done:
			result.Partial = true
		case o.err != nil:
			result.BatchesFailed++
		default:
			all = append(all, o.records...)
		}
	}
	if ctx.Err() != nil {
		result.Partial = true
	}

	deduped, removed := dedup.Deduplicate(all)
	counts := types.CountPublications(deduped)
	result.Publications = deduped
	result.TotalPublications = counts.Total
	result.VerifiedCount = counts.Verified
	result.VerifiedWithAuthorMatchCount = counts.VerifiedWithAuthorMatch
	result.VerifiedDifferentAuthorCount = counts.VerifiedDifferentAuthor

	log.Info("extraction finished",
		zap.Int("batches", result.BatchesTotal),
		zap.Int("batches_failed", result.BatchesFailed),
		zap.Int("publications", counts.Total),
		zap.Int("duplicates_removed", removed),
		zap.Bool("partial", result.Partial))

	switch {
	case counts.VerifiedWithAuthorMatch > 0 && p.Aggregator != nil:
		result.AuthorProfile = p.Aggregator.Aggregate(ctx, opts.AuthorIDs, candidate, deduped, opts.PrioritySource)
	case counts.Total > 0:
		result.AuthorProfile = profile.Minimal(candidate, counts.VerifiedWithAuthorMatch)
	}

	return result, nil
}

// batches segments text and packs the sections, falling back to raw chunks
// when no section header is found.
func (p *Pipeline) batches(ctx context.Context, text string, cfg types.BatchingConfig, log *zap.Logger) []types.Batch {
	classifier := p.Classifier
	if classifier == nil {
		classifier = segment.HeuristicClassifier{}
	}
	sections := segment.New(classifier, log).Segment(ctx, text)
	if len(sections) == 0 {
		log.Info("no sections detected, chunking raw text", zap.Int("chars", len(text)))
		return batch.RawBatches(text, cfg.MaxChunkSize)
	}
	log.Debug("segmented document", zap.Int("sections", len(sections)))
	return batch.Pack(sections, cfg.MaxBatchSize)
}

// processBatches submits every batch through a bounded worker pool. Each
// batch has its own timeout and failure boundary; results keep batch order.
func (p *Pipeline) processBatches(ctx context.Context, candidate string, batches []types.Batch, cfg types.ExtractionConfig, log *zap.Logger) []batchOutcome {
	out := p.Out
	if out == nil {
		out = io.Discard
	}
	outcomes := make([]batchOutcome, len(batches))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i := range batches {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = p.processBatch(ctx, candidate, batches[i], cfg, log.With(zap.Int("batch", i+1)))
			o := outcomes[i]
			mu.Lock()
			defer mu.Unlock()
			switch {
			case o.err != nil:
				fmt.Fprintf(out, "batch %d/%d: failed: %v\n", i+1, len(batches), o.err)
			case o.done:
				fmt.Fprintf(out, "batch %d/%d: %d publications (%s)\n", i+1, len(batches), len(o.records), o.stage)
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (p *Pipeline) processBatch(ctx context.Context, candidate string, b types.Batch, cfg types.ExtractionConfig, log *zap.Logger) (o batchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("batch panicked", zap.Any("panic", r))
			o = batchOutcome{err: fmt.Errorf("batch panicked: %v", r), done: true}
		}
	}()

	if p.Generator == nil {
		return batchOutcome{err: errors.New("no generator configured"), done: true}
	}
	prompt, err := extract.BuildPrompt(candidate, b.CombinedContent)
	if err != nil {
		return batchOutcome{err: err, done: true}
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	raw, err := extract.SubmitWithRetry(reqCtx, p.Generator, prompt, cfg.MaxRetries)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled by the caller, not a batch failure.
			return batchOutcome{}
		}
		log.Warn("generation failed", zap.String("provider", p.Generator.Name()), zap.Error(err))
		return batchOutcome{err: err, done: true}
	}

	res := recovery.Recover(raw)
	if res.Stage == recovery.StageEmpty {
		log.Warn("no publications recovered", zap.String("raw", logging.Preview(raw, 200)))
	} else {
		log.Debug("recovered publications",
			zap.String("stage", string(res.Stage)),
			zap.Int("publications", len(res.Publications)),
			zap.Int("size", b.TotalSize))
	}
	return batchOutcome{records: res.Publications, stage: res.Stage, done: true}
}

// RemoveDocument deletes the input file at path. A file that is already
// gone is not an error; other failures are logged.
func RemoveDocument(path string, log *zap.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("removing document", zap.Error(err))
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
