// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch packs document sections into size-bounded batches and cuts
// header-less text into chunks, so each generation request stays within a
// character budget.
package batch

import (
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// SectionSeparator joins sections inside one batch so the model can tell
// them apart.
const SectionSeparator = "\n\n--- SECTION BREAK ---\n\n"

// breakFloor is the fraction of the chunk budget before which a paragraph or
// line break is not accepted as a cut point.
const breakFloor = 0.7

// Pack groups sections into batches in document order. A batch is closed when
// adding the next section would push TotalSize past maxBatchSize and the batch
// already holds something. A section larger than the budget forms a batch of
// its own. Each input section lands in exactly one batch.
func Pack(sections []types.Section, maxBatchSize int) []types.Batch {
	if maxBatchSize <= 0 {
		maxBatchSize = types.DefaultMaxBatchSize
	}

	var (
		batches []types.Batch
		current []types.Section
		size    int
	)

	closeBatch := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, newBatch(current, size))
		current, size = nil, 0
	}

	for _, s := range sections {
		if len(current) > 0 && size+s.Size() > maxBatchSize {
			closeBatch()
		}
		current = append(current, s)
		size += s.Size()
	}
	closeBatch()

	return batches
}

func newBatch(sections []types.Section, size int) types.Batch {
	parts := make([]string, len(sections))
	for i, s := range sections {
		if s.Header == "" {
			parts[i] = s.Content
			continue
		}
		parts[i] = "## " + s.Header + "\n" + s.Content
	}
	return types.Batch{
		Sections:        sections,
		CombinedContent: strings.Join(parts, SectionSeparator),
		TotalSize:       size,
	}
}

// ChunkRaw cuts text into pieces of at most maxChunkSize bytes. Each cut
// prefers the last paragraph break, then the last line break, inside the
// window, provided it is not earlier than 70% of the window. Otherwise the
// cut falls at the budget, moved back to a rune boundary. Concatenating the
// chunks gives back text.
func ChunkRaw(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = types.DefaultMaxChunkSize
	}

	var chunks []string
	floor := int(float64(maxChunkSize) * breakFloor)

	for rest := text; len(rest) > 0; {
		if len(rest) <= maxChunkSize {
			chunks = append(chunks, rest)
			break
		}

		window := rest[:maxChunkSize]
		cut := maxChunkSize
		if i := strings.LastIndex(window, "\n\n"); i >= floor {
			cut = i + 2
		} else if i := strings.LastIndex(window, "\n"); i >= floor {
			cut = i + 1
		}
		for cut > 1 && !utf8.RuneStart(rest[cut]) {
			cut--
		}

		chunks = append(chunks, rest[:cut])
		rest = rest[cut:]
	}

	return chunks
}

// RawBatches wraps the non-blank chunks of text as single-section batches
// for documents in which no section header was found.
func RawBatches(text string, maxChunkSize int) []types.Batch {
	var batches []types.Batch
	for _, c := range ChunkRaw(text, maxChunkSize) {
		if strings.TrimSpace(c) == "" {
			continue
		}
		s := types.Section{Content: c}
		batches = append(batches, newBatch([]types.Section{s}, s.Size()))
	}
	return batches
}
