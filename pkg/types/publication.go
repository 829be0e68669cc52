// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PublicationStatus is the verification outcome of a CV-claimed publication.
// It is always derived from Verification and never stored on its own.
type PublicationStatus string

const (
	StatusNotVerified       PublicationStatus = "not verified"
	StatusVerified          PublicationStatus = "verified"
	StatusVerifiedOtherName PublicationStatus = "verified but not same author name"
)

// UnknownValue fills year and venue on stub records recovered without structure.
const UnknownValue = "Unknown"

// Verification holds the online-verification outcome for one publication.
type Verification struct {
	// IsOnline reports whether the publication was found online.
	IsOnline bool `json:"isOnline" yaml:"is_online"`

	// HasAuthorMatch reports whether the online record lists the candidate as an author.
	HasAuthorMatch bool `json:"hasAuthorMatch" yaml:"has_author_match"`

	// Link is the URL of the online record, if one was found.
	Link string `json:"link,omitempty" yaml:"link,omitempty"`

	// CitationCount is the citation count reported by the online record.
	CitationCount int `json:"citationCount" yaml:"citation_count"`
}

// PublicationRecord is one publication claimed in a CV together with its
// verification outcome. Records are created per extraction batch.
type PublicationRecord struct {
	Title        string       `json:"title" yaml:"title"`
	Authors      []string     `json:"authors" yaml:"authors"`
	Year         string       `json:"year" yaml:"year"`
	Venue        string       `json:"venue" yaml:"venue"`
	Type         string       `json:"type" yaml:"type"`
	DOI          string       `json:"doi,omitempty" yaml:"doi,omitempty"`
	FullText     string       `json:"fullText,omitempty" yaml:"full_text,omitempty"`
	Verification Verification `json:"verification" yaml:"verification"`
}

// Status derives the publication status from its verification flags.
func (p PublicationRecord) Status() PublicationStatus {
	switch {
	case !p.Verification.IsOnline:
		return StatusNotVerified
	case p.Verification.HasAuthorMatch:
		return StatusVerified
	default:
		return StatusVerifiedOtherName
	}
}

// PublicationCounts tallies records by derived status.
type PublicationCounts struct {
	Total                   int
	Verified                int
	VerifiedWithAuthorMatch int
	VerifiedDifferentAuthor int
}

// CountPublications returns the status tallies for records. Verified counts
// every record found online regardless of author match.
func CountPublications(records []PublicationRecord) PublicationCounts {
	c := PublicationCounts{Total: len(records)}
	for _, r := range records {
		switch r.Status() {
		case StatusVerified:
			c.Verified++
			c.VerifiedWithAuthorMatch++
		case StatusVerifiedOtherName:
			c.Verified++
			c.VerifiedDifferentAuthor++
		}
	}
	return c
}
