package moderation

import (
	"context"
	"regexp"
)

// defaultPatterns is the built-in blocklist used when the hosted moderation
// capability is unavailable or unconfigured.
var defaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bviagra\b`),
	regexp.MustCompile(`(?i)\bcasino\s+bonus\b`),
	regexp.MustCompile(`(?i)\bfree\s+money\b`),
	regexp.MustCompile(`(?i)(?:https?://\S+\s*){10,}`),
	regexp.MustCompile(`(?i)<script[\s>]`),
}

// PatternModerator is the pattern-based moderation fallback.
type PatternModerator struct {
	patterns []*regexp.Regexp
}

// NewPatternModerator constructs a PatternModerator from the built-in
// blocklist plus any extra patterns.
func NewPatternModerator(extra ...string) (*PatternModerator, error) {
	patterns := make([]*regexp.Regexp, 0, len(defaultPatterns)+len(extra))
	patterns = append(patterns, defaultPatterns...)
	for _, raw := range extra {
		compiled, errCompile := regexp.Compile(raw)
		if errCompile != nil {
			return nil, errCompile
		}
		patterns = append(patterns, compiled)
	}
	return &PatternModerator{patterns: patterns}, nil
}

// Moderate scans the inspected prefix against the blocklist. It never fails.
func (m *PatternModerator) Moderate(_ context.Context, text string) (Result, error) {
	if m == nil {
		return Result{Safe: true}, nil
	}
	prefix := inspectPrefix(text)
	for _, pattern := range m.patterns {
		if pattern.MatchString(prefix) {
			return Result{Safe: false, Reason: "matched blocked pattern"}, nil
		}
	}
	return Result{Safe: true}, nil
}
