// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/cv-verify/pkg/types"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Neural Nets", "neural nets"},
		{"neural nets!", "neural nets"},
		{"  Deep   Learning:\tA Survey ", "deep learning a survey"},
		{"Über-Networks (2nd ed.)", "übernetworks 2nd ed"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name        string
		titles      []string
		wantTitles  []string
		wantRemoved int
	}{
		{
			name:        "case and punctuation duplicates",
			titles:      []string{"Neural Nets", "neural nets!", "Other Paper"},
			wantTitles:  []string{"Neural Nets", "Other Paper"},
			wantRemoved: 1,
		},
		{
			name:        "first occurrence wins across batches",
			titles:      []string{"B", "A", "b", "a", "C"},
			wantTitles:  []string{"B", "A", "C"},
			wantRemoved: 2,
		},
		{
			name:        "near matches are not merged",
			titles:      []string{"Neural Nets", "Neural Net"},
			wantTitles:  []string{"Neural Nets", "Neural Net"},
			wantRemoved: 0,
		},
		{
			name:        "empty titles dropped",
			titles:      []string{"", "???", "Real Paper"},
			wantTitles:  []string{"Real Paper"},
			wantRemoved: 2,
		},
		{
			name:       "empty input",
			titles:     nil,
			wantTitles: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in []types.PublicationRecord
			for _, title := range tt.titles {
				in = append(in, types.PublicationRecord{Title: title})
			}

			got, removed := Deduplicate(in)
			titles := make([]string, len(got))
			for i, r := range got {
				titles[i] = r.Title
			}
			assert.Equal(t, tt.wantTitles, titles)
			assert.Equal(t, tt.wantRemoved, removed)
		})
	}
}

func TestDeduplicate_KeepsFirstRecordFields(t *testing.T) {
	in := []types.PublicationRecord{
		{Title: "Paper", Year: "2020", Verification: types.Verification{IsOnline: true}},
		{Title: "PAPER.", Year: "2021"},
	}
	got, _ := Deduplicate(in)
	assert.Equal(t, []types.PublicationRecord{in[0]}, got)
}
