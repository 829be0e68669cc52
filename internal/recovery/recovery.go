// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recovery turns raw generation-service output into publication
// records. Output may be wrapped in prose or code fences, carry trailing
// commas, or be cut off mid-object; Recover degrades through ordered
// strategies and never fails.
package recovery

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// Stage names the strategy that produced a Result.
type Stage string

const (
	StageParsed    Stage = "parsed"
	StageRepaired  Stage = "repaired"
	StageFragments Stage = "fragments"
	StageMinimal   Stage = "minimal"
	StageEmpty     Stage = "empty"
)

// Strategy is one recovery attempt. Apply reports ok only when it produced
// at least one record.
type Strategy struct {
	Stage Stage
	Apply func(raw string) (Envelope, bool)
}

// Result is the outcome of Recover.
type Result struct {
	Publications []types.PublicationRecord
	Stage        Stage
}

// DefaultStrategies are tried in order by Recover.
var DefaultStrategies = []Strategy{
	{Stage: StageParsed, Apply: parseCleaned},
	{Stage: StageRepaired, Apply: parseRepaired},
	{Stage: StageFragments, Apply: RecoverFragments},
	{Stage: StageMinimal, Apply: RecoverMinimal},
}

// Recover runs DefaultStrategies against raw.
func Recover(raw string) Result {
	return RecoverWith(raw, DefaultStrategies)
}

// RecoverWith tries each strategy in order and returns the records of the
// first one that yields any. A strategy that panics is skipped. When none
// succeeds the result is empty with StageEmpty.
func RecoverWith(raw string, strategies []Strategy) Result {
	for _, s := range strategies {
		env, ok := safeApply(s, raw)
		if !ok {
			continue
		}
		if records := env.Records(); len(records) > 0 {
			return Result{Publications: records, Stage: s.Stage}
		}
	}
	return Result{Publications: []types.PublicationRecord{}, Stage: StageEmpty}
}

func safeApply(s Strategy, raw string) (env Envelope, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			env, ok = Envelope{}, false
		}
	}()
	if s.Apply == nil {
		return Envelope{}, false
	}
	return s.Apply(raw)
}

func parseCleaned(raw string) (Envelope, bool) {
	return parse(Normalize(StripWrappers(raw)))
}

func parseRepaired(raw string) (Envelope, bool) {
	return parse(RepairTruncation(Normalize(StripWrappers(raw))))
}

func parse(s string) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return Envelope{}, false
	}
	return env, len(env.Records()) > 0
}

var fenceLineRe = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")

// StripWrappers removes code-fence lines and keeps the text from the first
// "{" to the last "}". When no "}" follows the first "{" the text runs to
// the end. Text without "{" is returned trimmed.
func StripWrappers(raw string) string {
	s := fenceLineRe.ReplaceAllString(raw, "")
	s = strings.TrimPrefix(strings.TrimSpace(s), "```json")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	if start < 0 {
		return strings.TrimSpace(s)
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return strings.TrimSpace(s[start:])
	}
	return s[start : end+1]
}

// Normalize drops trailing commas before "}" or "]", turns newlines and tabs
// into spaces, and collapses runs of whitespace. Escapes inside strings are
// left alone.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped, lastSpace := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if isSpace(c) {
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false

		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case ',':
			if next := nextNonSpace(s, i+1); next == '}' || next == ']' {
				continue
			}
		}
		b.WriteByte(c)
	}
	return strings.TrimSpace(b.String())
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

func nextNonSpace(s string, from int) byte {
	for j := from; j < len(s); j++ {
		if !isSpace(s[j]) {
			return s[j]
		}
	}
	return 0
}

// scan walks s outside of strings. It reports the open-bracket stack at the
// end, the position just past the last "}" that closed a nested object
// together with the stack at that point, and whether a closer did not match.
type scan struct {
	stack    []byte
	cut      int
	cutStack []byte
	inString bool
	stray    bool
}

func scanBrackets(s string) scan {
	sc := scan{cut: -1}
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if sc.inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				sc.inString = false
			}
			continue
		}
		switch c {
		case '"':
			sc.inString = true
		case '{', '[':
			sc.stack = append(sc.stack, c)
		case '}', ']':
			want := byte('{')
			if c == ']' {
				want = '['
			}
			if len(sc.stack) == 0 || sc.stack[len(sc.stack)-1] != want {
				sc.stray = true
				return sc
			}
			sc.stack = sc.stack[:len(sc.stack)-1]
			if c == '}' && len(sc.stack) > 0 {
				sc.cut = i + 1
				sc.cutStack = append([]byte(nil), sc.stack...)
			}
		}
	}
	return sc
}

// RepairTruncation closes JSON that was cut off. It cuts back to the end of
// the last complete nested object, drops a dangling comma, and appends the
// missing closers in nesting order. When no nested object was completed it
// instead closes the input where it stops, terminating an open string. Balanced
// input, input with a stray closer, and input that cannot be balanced this way
// are returned unchanged, so applying it twice gives the same result as
// applying it once.
func RepairTruncation(s string) string {
	sc := scanBrackets(s)
	if sc.stray || (len(sc.stack) == 0 && !sc.inString) {
		return s
	}
	if sc.cut < 0 {
		return closeInPlace(s, sc)
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(s[:sc.cut], " ,"))
	writeClosers(&b, sc.cutStack)
	out := b.String()

	if check := scanBrackets(out); check.stray || check.inString || len(check.stack) > 0 {
		return s
	}
	return out
}

// closeInPlace terminates an open string, completes a dangling key with null,
// and appends the closers for every open bracket. The result must be valid
// JSON or s is returned.
func closeInPlace(s string, sc scan) string {
	if len(sc.stack) == 0 {
		return s
	}
	out := s
	if sc.inString {
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n,")
	if strings.HasSuffix(out, ":") {
		out += " null"
	}

	var b strings.Builder
	b.WriteString(out)
	writeClosers(&b, sc.stack)
	if !json.Valid([]byte(b.String())) {
		return s
	}
	return b.String()
}

func writeClosers(b *strings.Builder, stack []byte) {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
}

var fragmentStartRe = regexp.MustCompile(`\{\s*"publication"\s*:`)

// RecoverFragments scans raw for balanced {"publication": ...} objects and
// keeps those that parse, in order.
func RecoverFragments(raw string) (Envelope, bool) {
	var env Envelope
	for pos := 0; pos < len(raw); {
		loc := fragmentStartRe.FindStringIndex(raw[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		end := matchBrace(raw, start)
		if end < 0 {
			pos = start + 1
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(Normalize(raw[start:end+1])), &entry); err == nil {
			env.AllPublications = append(env.AllPublications, entry)
			pos = end + 1
			continue
		}
		pos = start + 1
	}
	return env, len(env.Records()) > 0
}

// matchBrace returns the index of the "}" closing the "{" at start, or -1.
func matchBrace(s string, start int) int {
	depth, inString, escaped := 0, false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var (
	titleRe   = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	authorsRe = regexp.MustCompile(`"authors"\s*:\s*(\[[^\]]*\]|"(?:[^"\\]|\\.)*")`)
)

// RecoverMinimal pulls "title" values out of raw with regular expressions
// and pairs each with the first "authors" value before the next title. The
// resulting stubs carry "Unknown" year and venue and no verification.
func RecoverMinimal(raw string) (Envelope, bool) {
	titles := titleRe.FindAllStringSubmatchIndex(raw, -1)
	var env Envelope
	for i, m := range titles {
		title := unquote(raw[m[2]:m[3]])
		if strings.TrimSpace(title) == "" {
			continue
		}

		limit := len(raw)
		if i+1 < len(titles) {
			limit = titles[i+1][0]
		}

		var authors FlexStrings
		if a := authorsRe.FindStringSubmatch(raw[m[1]:limit]); a != nil {
			if err := json.Unmarshal([]byte(a[1]), &authors); err != nil {
				authors = nil
			}
		}

		env.AllPublications = append(env.AllPublications, Entry{
			Publication: Publication{
				Title:   FlexString(title),
				Authors: authors,
				Year:    types.UnknownValue,
				Venue:   types.UnknownValue,
			},
		})
	}
	return env, len(env.Records()) > 0
}

// unquote decodes JSON escapes in a captured string body, falling back to
// the raw text.
func unquote(body string) string {
	var s string
	if err := json.Unmarshal([]byte(fmt.Sprintf(`"%s"`, body)), &s); err != nil {
		return body
	}
	return s
}
