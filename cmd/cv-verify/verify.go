// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/cv-verify/internal/document"
	"github.com/pdiddy/cv-verify/internal/extract"
	"github.com/pdiddy/cv-verify/internal/pipeline"
	"github.com/pdiddy/cv-verify/internal/profile"
	"github.com/pdiddy/cv-verify/internal/segment"
	"github.com/pdiddy/cv-verify/internal/sources"
	"github.com/pdiddy/cv-verify/internal/store"
	"github.com/pdiddy/cv-verify/pkg/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <cv.pdf>",
	Short: "Extract and verify the publications in a CV",
	Long: `Verify extracts the text of a CV, splits it into sections, asks the
configured model to list and verify every publication, deduplicates the
results, and aggregates an author profile from the academic sources.

The input file is removed after processing unless --keep is given. The
result is written to stdout and saved to the run store unless --no-store
is given. Interrupting the run keeps the batches that already finished.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	addVerifyFlags(verifyCmd)
	rootCmd.AddCommand(verifyCmd)
}

func addVerifyFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "candidate name (default: guessed from the CV)")
	cmd.Flags().String("priority", "", "source merged first: google_scholar, scopus, or openalex")
	cmd.Flags().String("scholar-id", "", "Google Scholar author id")
	cmd.Flags().String("scopus-id", "", "Scopus author id")
	cmd.Flags().String("openalex-id", "", "OpenAlex author id")
	cmd.Flags().String("provider", "", "generation provider: claude, openai, deepseek, gemini")
	cmd.Flags().String("model", "", "model identifier (default depends on provider)")
	cmd.Flags().Int("workers", 0, "concurrent generation requests (default 4)")
	cmd.Flags().Duration("timeout", 0, "timeout for one generation request (default 2m)")
	cmd.Flags().String("format", store.FormatYAML, "output format: yaml, json, or csl")
	cmd.Flags().Bool("keep", false, "keep the input file after processing")
	cmd.Flags().Bool("no-store", false, "do not save the run")
}

func runVerify(cmd *cobra.Command, args []string) error {
	// RunVerification removes the input itself once started; setup failures
	// before that point must not leave it behind.
	started := false
	if keep, _ := cmd.Flags().GetBool("keep"); !keep {
		defer func() {
			if !started {
				pipeline.RemoveDocument(args[0], logger)
			}
		}()
	}

	cfg, err := loadVerifyConfig()
	if err != nil {
		return err
	}
	if err := applyVerifyFlags(cmd, &cfg); err != nil {
		return err
	}
	fillSecrets(&cfg)

	opts, err := verifyOptions(cmd)
	if err != nil {
		return err
	}

	gen, err := extract.NewGenerator(cfg.Extraction.AIConfig, nil)
	if err != nil {
		return err
	}

	extractor := document.NewPDFExtractor(logger)
	extractor.OCRImage = cfg.Document.OCRImage

	p := &pipeline.Pipeline{
		Extractor:  extractor,
		Classifier: newClassifier(cfg.Classifier),
		Generator:  gen,
		Aggregator: newAggregator(cfg.Sources),
		Config:     cfg,
		Logger:     logger,
		Out:        os.Stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started = true
	result, err := p.RunVerification(ctx, args[0], opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s: %d publications, %d verified (%d with author match, %d under another name)\n",
		result.CandidateName, result.TotalPublications, result.VerifiedCount,
		result.VerifiedWithAuthorMatchCount, result.VerifiedDifferentAuthorCount)
	if result.BatchesFailed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d batches failed\n", result.BatchesFailed, result.BatchesTotal)
	}
	if result.Partial {
		fmt.Fprintln(os.Stderr, "run interrupted: result is partial")
	}

	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		if err := saveRun(cfg.Store, result); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved run %s\n", result.RunID)
	}

	format, _ := cmd.Flags().GetString("format")
	return store.Encode(os.Stdout, format, result)
}

// applyVerifyFlags overrides configuration with the flags that were set.
func applyVerifyFlags(cmd *cobra.Command, cfg *types.VerifyConfig) error {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		v, _ := flags.GetString("provider")
		cfg.Extraction.Provider = types.Provider(v)
		cfg.Extraction.APIKey = ""
	}
	if flags.Changed("model") {
		cfg.Extraction.Model, _ = flags.GetString("model")
	}
	if flags.Changed("workers") {
		cfg.Extraction.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("timeout") {
		cfg.Extraction.RequestTimeout, _ = flags.GetDuration("timeout")
	}
	format, _ := flags.GetString("format")
	switch format {
	case store.FormatYAML, store.FormatJSON, store.FormatCSL:
	default:
		return fmt.Errorf("unsupported format %q: use yaml, json, or csl", format)
	}
	cfg.ApplyDefaults()
	return nil
}

func verifyOptions(cmd *cobra.Command) (pipeline.Options, error) {
	flags := cmd.Flags()
	priorityFlag, _ := flags.GetString("priority")
	priority, err := types.ParseSourceName(priorityFlag)
	if err != nil {
		return pipeline.Options{}, err
	}

	var opts pipeline.Options
	opts.PrioritySource = priority
	opts.CandidateName, _ = flags.GetString("name")
	opts.KeepDocument, _ = flags.GetBool("keep")
	opts.AuthorIDs.GoogleScholar, _ = flags.GetString("scholar-id")
	opts.AuthorIDs.Scopus, _ = flags.GetString("scopus-id")
	opts.AuthorIDs.OpenAlex, _ = flags.GetString("openalex-id")
	return opts, nil
}

func newClassifier(cfg types.ClassifierConfig) segment.Classifier {
	if cfg.Mode == types.ClassifierHTTP && cfg.URL != "" {
		return &segment.HTTPClassifier{URL: cfg.URL, Client: &http.Client{Timeout: cfg.Timeout}}
	}
	return segment.HeuristicClassifier{}
}

// newAggregator registers every source that has the credentials it needs.
// OpenAlex needs none.
func newAggregator(cfg types.SourcesConfig) *profile.Aggregator {
	srcs := []sources.Source{sources.NewOpenAlexSource(cfg, logger)}
	if cfg.SerpAPIKey != "" {
		srcs = append(srcs, sources.NewScholarSource(cfg, logger))
	} else {
		logger.Info("no SerpAPI key, skipping Google Scholar")
	}
	if cfg.ScopusAPIKey != "" {
		srcs = append(srcs, sources.NewScopusSource(cfg, logger))
	} else {
		logger.Info("no Scopus key, skipping Scopus")
	}
	return profile.New(cfg.TitleThreshold, logger, srcs...)
}

func saveRun(cfg types.StoreConfig, result *types.VerificationResult) error {
	s, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Save(context.Background(), result); err != nil {
		logger.Error("saving run", zap.String("run", result.RunID), zap.Error(err))
		return err
	}
	return nil
}
