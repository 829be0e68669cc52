// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recovery

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// Envelope is the response shape the extraction prompt asks for.
type Envelope struct {
	AllPublications []Entry `json:"allPublications"`
}

// UnmarshalJSON also accepts a top-level "publications" array and a bare
// array of entries.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &e.AllPublications)
	}

	var raw struct {
		AllPublications []Entry `json:"allPublications"`
		Publications    []Entry `json:"publications"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.AllPublications = raw.AllPublications
	if len(e.AllPublications) == 0 {
		e.AllPublications = raw.Publications
	}
	return nil
}

// Records converts the entries to publication records, dropping entries
// without a title.
func (e Envelope) Records() []types.PublicationRecord {
	records := make([]types.PublicationRecord, 0, len(e.AllPublications))
	for _, entry := range e.AllPublications {
		if r, ok := entry.Record(); ok {
			records = append(records, r)
		}
	}
	return records
}

// Entry is one element of allPublications.
type Entry struct {
	Publication  Publication  `json:"publication"`
	Verification Verification `json:"verification"`
}

// UnmarshalJSON accepts both the wrapped {"publication", "verification"}
// form and a flat object carrying the publication fields directly.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Publication  *Publication  `json:"publication"`
		Verification *Verification `json:"verification"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Publication != nil {
		e.Publication = *wrapped.Publication
		if wrapped.Verification != nil {
			e.Verification = *wrapped.Verification
		}
		return nil
	}

	var flat struct {
		Publication
		Verification *Verification `json:"verification"`
	}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	e.Publication = flat.Publication
	if flat.Verification != nil {
		e.Verification = *flat.Verification
	}
	return nil
}

// Record returns the entry as a publication record. ok is false when the
// title is blank.
func (e Entry) Record() (types.PublicationRecord, bool) {
	title := strings.TrimSpace(string(e.Publication.Title))
	if title == "" {
		return types.PublicationRecord{}, false
	}
	return types.PublicationRecord{
		Title:    title,
		Authors:  []string(e.Publication.Authors),
		Year:     strings.TrimSpace(string(e.Publication.Year)),
		Venue:    strings.TrimSpace(string(e.Publication.Venue)),
		Type:     strings.TrimSpace(string(e.Publication.Type)),
		DOI:      strings.TrimSpace(string(e.Publication.DOI)),
		FullText: strings.TrimSpace(string(e.Publication.FullText)),
		Verification: types.Verification{
			IsOnline:       bool(e.Verification.IsOnline),
			HasAuthorMatch: bool(e.Verification.HasAuthorMatch),
			Link:           strings.TrimSpace(string(e.Verification.Link)),
			CitationCount:  int(e.Verification.CitationCount),
		},
	}, true
}

// Publication holds the bibliographic fields of one entry.
type Publication struct {
	Title    FlexString  `json:"title"`
	Authors  FlexStrings `json:"authors"`
	Year     FlexString  `json:"year"`
	Venue    FlexString  `json:"venue"`
	Type     FlexString  `json:"type"`
	DOI      FlexString  `json:"doi"`
	FullText FlexString  `json:"fullText"`
}

// Verification holds the online-verification fields of one entry.
type Verification struct {
	IsOnline       FlexBool   `json:"isOnline"`
	HasAuthorMatch FlexBool   `json:"hasAuthorMatch"`
	Link           FlexString `json:"link"`
	CitationCount  FlexInt    `json:"citationCount"`
}

// FlexString decodes strings, numbers, booleans, null, and objects with a
// "name" field.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	case '{':
		var v struct {
			Name FlexString `json:"name"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = v.Name
	case '[':
		var v []FlexString
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, string(p))
		}
		*s = FlexString(strings.Join(parts, ", "))
	default:
		*s = FlexString(string(data))
	}
	return nil
}

// FlexStrings decodes a list of names or a single string. A string holding
// semicolons is split on them.
type FlexStrings []string

func (l *FlexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}

	var items []FlexString
	if data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
	} else {
		var one FlexString
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		for _, p := range strings.Split(string(one), ";") {
			items = append(items, FlexString(p))
		}
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		if v := strings.TrimSpace(string(it)); v != "" {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

// FlexInt decodes numbers and numeric strings such as "12" or "1,234
// citations". Anything else decodes to zero.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = 0
	if len(data) == 0 {
		return nil
	}

	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}

	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*n = FlexInt(int(f))
		return nil
	}

	var digits strings.Builder
scan:
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ',' && digits.Len() > 0:
		case digits.Len() > 0:
			break scan
		default:
			return nil
		}
	}
	if v, err := strconv.Atoi(digits.String()); err == nil {
		*n = FlexInt(v)
	}
	return nil
}

// FlexBool decodes booleans, "true"/"yes"/"y"/"1" strings, and non-zero numbers.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*b = false
	if len(data) == 0 {
		return nil
	}

	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		*b = true
	default:
		if f, err := strconv.ParseFloat(s, 64); err == nil && f != 0 {
			*b = true
		}
	}
	return nil
}
