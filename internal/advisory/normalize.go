// Package advisory obtains and normalizes free-form risk opinions about contract source code
package advisory

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultScore is used whenever a response carries no usable score
	DefaultScore = 50

	// UnverifiedScore is the opinion score for contracts without verified source
	UnverifiedScore = 20

	UnavailableAnalysis = "analysis unavailable"
	UnverifiedAnalysis  = "contract source is not verified, so its code cannot be analyzed; this is usually a high risk signal"

	// maxBalancedAttempts bounds the balanced-object search on hostile input
	maxBalancedAttempts = 64
)

// Opinion is the structured form of an advisory response
type Opinion struct {
	Analysis string `json:"analysis"`
	Score    int    `json:"score"`
}

// Default is substituted when the advisory service is unreachable
func Default() Opinion {
	return Opinion{Analysis: UnavailableAnalysis, Score: DefaultScore}
}

// Unverified is used in place of a service call for unverified contracts
func Unverified() Opinion {
	return Opinion{Analysis: UnverifiedAnalysis, Score: UnverifiedScore}
}

// NormalizeOptional normalizes raw, treating nil as an absent response
func NormalizeOptional(raw *string) Opinion {
	if raw == nil {
		return Default()
	}
	return Normalize(*raw)
}

// Normalize turns an arbitrary response text into an Opinion. It never fails:
// the whole text is tried as a JSON object first, then the brace-delimited span,
// then the first balanced object, and finally the raw text with the default score.
// Blank text takes the last path too.
func Normalize(raw string) Opinion {
	for _, candidate := range []func(string) (map[string]json.RawMessage, bool){
		parseWhole,
		parseSpan,
		parseBalanced,
	} {
		if fields, ok := candidate(raw); ok {
			return fromFields(fields, raw)
		}
	}

	return Opinion{Analysis: raw, Score: DefaultScore}
}

func parseObject(text string) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func parseWhole(raw string) (map[string]json.RawMessage, bool) {
	return parseObject(strings.TrimSpace(raw))
}

// parseSpan tries everything between the first '{' and the last '}'
func parseSpan(raw string) (map[string]json.RawMessage, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, false
	}
	return parseObject(raw[start : end+1])
}

// parseBalanced tries each balanced {...} group in order of appearance
func parseBalanced(raw string) (map[string]json.RawMessage, bool) {
	attempts := 0
	for start := strings.Index(raw, "{"); start != -1 && attempts < maxBalancedAttempts; attempts++ {
		if end := matchingBrace(raw, start); end != -1 {
			if fields, ok := parseObject(raw[start : end+1]); ok {
				return fields, true
			}
		}
		next := strings.Index(raw[start+1:], "{")
		if next == -1 {
			break
		}
		start += next + 1
	}
	return nil, false
}

// matchingBrace returns the index of the '}' closing the '{' at start, skipping
// braces inside JSON string literals. Returns -1 when unbalanced.
func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
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

func fromFields(fields map[string]json.RawMessage, raw string) Opinion {
	return Opinion{
		Analysis: analysisFrom(fields["analysis"], raw),
		Score:    scoreFrom(fields["score"]),
	}
}

func analysisFrom(value json.RawMessage, raw string) string {
	if len(value) == 0 {
		return raw
	}
	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return raw
		}
		return text
	}
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "null" || trimmed == "false" {
		return raw
	}
	// Structured analysis (object, array, number) is kept as its JSON text.
	return trimmed
}

func scoreFrom(value json.RawMessage) int {
	if len(value) == 0 || strings.TrimSpace(string(value)) == "null" {
		return DefaultScore
	}

	var number float64
	if err := json.Unmarshal(value, &number); err != nil {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return DefaultScore
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return DefaultScore
		}
		number = parsed
	}

	return clampScore(number)
}

func clampScore(score float64) int {
	score = math.Round(score)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}
