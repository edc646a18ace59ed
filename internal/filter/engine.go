// Package filter implements the ignore-pattern matching engine.
package filter

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidPattern is returned when an ignore pattern is not a valid regular expression.
var ErrInvalidPattern = errors.New("invalid pattern")

// Pattern is a compiled ignore pattern.
// A pattern matches a text only when it matches the whole text.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// Compile validates and compiles a pattern for full-string matching.
func Compile(raw string) (Pattern, error) {
	// Validated alone first so that input like "a)|(b" cannot escape the anchors.
	if _, err := regexp.Compile(raw); err != nil {
		return Pattern{}, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	re, err := regexp.Compile(`^(?:` + raw + `)$`)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return Pattern{raw: raw, re: re}, nil
}

// CompileAll compiles every pattern, stopping at the first invalid one.
func CompileAll(raws []string) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(raws))
	for i, raw := range raws {
		p, err := Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i+1, err)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// String returns the pattern as the user wrote it.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether text matches the pattern in full.
func (p Pattern) Match(text string) bool {
	return p.re != nil && p.re.MatchString(text)
}

// MatchAny reports whether text matches at least one of the patterns.
func MatchAny(patterns []Pattern, text string) bool {
	for _, p := range patterns {
		if p.Match(text) {
			return true
		}
	}
	return false
}

// Raw returns the source strings of the patterns, in order.
func Raw(patterns []Pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.raw
	}
	return out
}
