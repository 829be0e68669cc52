// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment slices extracted CV text into header-delimited sections.
// A Classifier decides which lines are section headers; it is passed in
// explicitly so callers and tests can swap implementations.
package segment

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-verify/internal/logging"
	"github.com/pdiddy/cv-verify/pkg/types"
)

// Classifier reports whether a line is a section header. index is the
// line's position among the non-blank lines and total is their count.
type Classifier interface {
	Predict(ctx context.Context, line string, index, total int) (bool, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, line string, index, total int) (bool, error)

// Predict calls f.
func (f ClassifierFunc) Predict(ctx context.Context, line string, index, total int) (bool, error) {
	return f(ctx, line, index, total)
}

// Segmenter splits text into sections using a Classifier.
type Segmenter struct {
	Classifier Classifier
	Logger     *zap.Logger
}

// New returns a Segmenter. A nil logger discards output.
func New(c Classifier, logger *zap.Logger) *Segmenter {
	return &Segmenter{Classifier: c, Logger: logging.OrNop(logger)}
}

// Lines splits text on line breaks and returns the non-blank lines, trimmed.
func Lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

// Segment returns the sections of text in document order. A classifier
// error or panic on one line marks only that line as "not a header". Sections
// whose content is blank are discarded. When no header is found the result
// is empty and callers fall back to raw chunking.
func (s *Segmenter) Segment(ctx context.Context, text string) []types.Section {
	log := logging.OrNop(s.Logger)
	lines := Lines(text)
	total := len(lines)

	var (
		sections []types.Section
		current  *types.Section
		body     []string
		headers  int
		failures int
	)

	flush := func(end int) {
		if current == nil {
			return
		}
		content := strings.Join(body, "\n")
		if strings.TrimSpace(content) != "" {
			current.Content = content
			current.EndLine = end
			sections = append(sections, *current)
		}
		current, body = nil, nil
	}

	for i, line := range lines {
		isHeader, err := s.predict(ctx, line, i, total)
		if err != nil {
			failures++
			log.Debug("classifier failed, treating line as content",
				zap.Int("line", i), zap.String("preview", logging.Preview(line, 40)), zap.Error(err))
		}
		if isHeader {
			headers++
			flush(i - 1)
			current = &types.Section{Header: cleanHeader(line), StartLine: i}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	flush(total - 1)

	log.Debug("segmented document",
		zap.Int("lines", total),
		zap.Int("headers", headers),
		zap.Int("sections", len(sections)),
		zap.Int("classifier_failures", failures))
	return sections
}

// predict isolates one classifier call so a panic cannot abort segmentation.
func (s *Segmenter) predict(ctx context.Context, line string, index, total int) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("classifier panic: %v", r)
		}
	}()
	if s.Classifier == nil {
		return false, fmt.Errorf("no classifier")
	}
	ok, err = s.Classifier.Predict(ctx, line, index, total)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func cleanHeader(line string) string {
	h := strings.TrimSpace(strings.TrimLeft(line, "#"))
	return strings.TrimSpace(strings.TrimSuffix(h, ":"))
}
