// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// headerSet classifies exactly the given lines as headers.
func headerSet(headers ...string) Classifier {
	set := map[string]bool{}
	for _, h := range headers {
		set[h] = true
	}
	return ClassifierFunc(func(_ context.Context, line string, _, _ int) (bool, error) {
		return set[line], nil
	})
}

func TestLines(t *testing.T) {
	got := Lines("  a  \r\n\n\n b\n\t\nc ")
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSegment(t *testing.T) {
	text := `Jane Doe
jane@example.edu

Education
PhD, Example University, 2015

Publications
Doe, J. (2020). A study. Journal of Things.
Doe, J. (2021). Another study. Proc. Stuff.

Skills
Awards
Best paper 2019`

	tests := []struct {
		name       string
		classifier Classifier
		want       []types.Section
	}{
		{
			name:       "slices between headers and drops empty sections",
			classifier: headerSet("Education", "Publications", "Skills", "Awards"),
			want: []types.Section{
				{Header: "Education", Content: "PhD, Example University, 2015", StartLine: 2, EndLine: 3},
				{Header: "Publications", Content: "Doe, J. (2020). A study. Journal of Things.\nDoe, J. (2021). Another study. Proc. Stuff.", StartLine: 4, EndLine: 6},
				{Header: "Awards", Content: "Best paper 2019", StartLine: 8, EndLine: 9},
			},
		},
		{
			name:       "no headers yields no sections",
			classifier: headerSet(),
			want:       nil,
		},
		{
			name: "failing line is treated as content",
			classifier: ClassifierFunc(func(_ context.Context, line string, _, _ int) (bool, error) {
				if line == "Education" {
					return true, errors.New("model hiccup")
				}
				return line == "Publications", nil
			}),
			want: []types.Section{
				{Header: "Publications", Content: "Doe, J. (2020). A study. Journal of Things.\nDoe, J. (2021). Another study. Proc. Stuff.\nSkills\nAwards\nBest paper 2019", StartLine: 4, EndLine: 9},
			},
		},
		{
			name: "panicking classifier is isolated per line",
			classifier: ClassifierFunc(func(_ context.Context, line string, _, _ int) (bool, error) {
				if strings.HasPrefix(line, "Doe") {
					panic("boom")
				}
				return line == "Publications" || line == "Awards", nil
			}),
			want: []types.Section{
				{Header: "Publications", Content: "Doe, J. (2020). A study. Journal of Things.\nDoe, J. (2021). Another study. Proc. Stuff.\nSkills", StartLine: 4, EndLine: 7},
				{Header: "Awards", Content: "Best paper 2019", StartLine: 8, EndLine: 9},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.classifier, nil).Segment(context.Background(), text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSegment_NilClassifier(t *testing.T) {
	assert.Empty(t, New(nil, nil).Segment(context.Background(), "Publications\nA paper"))
}

func TestSegment_CleansMarkdownHeader(t *testing.T) {
	got := New(HeuristicClassifier{}, nil).Segment(context.Background(), "Jane Doe\n## Publications:\nA paper by Doe.")
	require.Len(t, got, 1)
	assert.Equal(t, "Publications", got[0].Header)
}

func TestHeuristicClassifier(t *testing.T) {
	tests := []struct {
		line  string
		index int
		want  bool
	}{
		{"PUBLICATIONS", 5, true},
		{"Selected Publications", 5, true},
		{"Peer-Reviewed Publications:", 5, true},
		{"Honors & Awards", 5, true},
		{"## Teaching", 5, true},
		{"RESEARCH OUTPUT", 5, true},
		{"JANE DOE", 0, false},
		{"Doe, J. (2020). A study of things in journals.", 5, false},
		{"Jane Doe", 0, false},
		{"Publications in refereed international journals with impact factor", 5, false},
		{"2019 - 2021", 5, false},
		{"", 5, false},
	}

	var c HeuristicClassifier
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := c.Predict(context.Background(), tt.line, tt.index, 20)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPClassifier(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Line {
		case "Publications":
			assert.Equal(t, 3, req.Index)
			assert.Equal(t, 10, req.Total)
			w.Write([]byte(`{"is_header": true}`))
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "empty":
			w.Write([]byte(`{}`))
		default:
			w.Write([]byte(`{"is_header": false}`))
		}
	}))
	defer ts.Close()

	c := &HTTPClassifier{URL: ts.URL, Client: ts.Client()}

	ok, err := c.Predict(context.Background(), "Publications", 3, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Predict(context.Background(), "A line", 4, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Predict(context.Background(), "broken", 0, 10)
	assert.ErrorContains(t, err, "500")

	_, err = c.Predict(context.Background(), "empty", 0, 10)
	assert.ErrorContains(t, err, "missing is_header")
}
