// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Section is a header-delimited slice of a source document. Sections are
// produced in document order and never modified afterwards.
type Section struct {
	Header    string `json:"header" yaml:"header"`
	Content   string `json:"content" yaml:"content"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
}

// Size is the character count used for batch budgeting.
func (s Section) Size() int { return len(s.Content) }

// Batch is one unit of text submitted in a single generation request.
// TotalSize is the sum of section sizes; separators are not counted.
type Batch struct {
	Sections        []Section `json:"sections" yaml:"sections"`
	CombinedContent string    `json:"combined_content" yaml:"combined_content"`
	TotalSize       int       `json:"total_size" yaml:"total_size"`
}

// VerificationResult is the outcome of one verification run over one CV.
type VerificationResult struct {
	RunID         string    `json:"runId" yaml:"run_id"`
	CandidateName string    `json:"candidateName" yaml:"candidate_name"`
	Document      string    `json:"document" yaml:"document"`
	CreatedAt     time.Time `json:"createdAt" yaml:"created_at"`

	TotalPublications            int `json:"totalPublications" yaml:"total_publications"`
	VerifiedCount                int `json:"verifiedCount" yaml:"verified_count"`
	VerifiedWithAuthorMatchCount int `json:"verifiedWithAuthorMatchCount" yaml:"verified_with_author_match_count"`
	VerifiedDifferentAuthorCount int `json:"verifiedDifferentAuthorCount" yaml:"verified_different_author_count"`

	Publications  []PublicationRecord `json:"publications" yaml:"publications"`
	AuthorProfile *AuthorProfile      `json:"authorProfile" yaml:"author_profile"`

	// BatchesTotal and BatchesFailed count generation requests for the run.
	BatchesTotal  int `json:"batchesTotal" yaml:"batches_total"`
	BatchesFailed int `json:"batchesFailed" yaml:"batches_failed"`

	// Partial is true when the run was cancelled before every batch settled.
	Partial bool `json:"partial" yaml:"partial"`
}
