package model

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchRule is a parsed match query: either a plain substring or a
// /pattern/flags regular expression.
type MatchRule struct {
	Query   string
	Literal string
	Regexp  *regexp.Regexp
}

// ParseMatchRule parses a match query. Queries of the form /pattern/flags
// compile to a regular expression; flags i, m and s are honored, g, u and y
// are accepted and ignored. Anything else is a plain substring.
func ParseMatchRule(query string) (*MatchRule, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty match query")
	}
	rule := &MatchRule{Query: q}
	end := strings.LastIndex(q, "/")
	if !strings.HasPrefix(q, "/") || end <= 0 {
		rule.Literal = q
		return rule, nil
	}

	pattern, flags := q[1:end], q[end+1:]
	var inline string
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(inline, f) {
				inline += string(f)
			}
		case 'g', 'u', 'y':
		default:
			return nil, fmt.Errorf("invalid regex flag %q in %s", f, q)
		}
	}
	if inline != "" {
		pattern = "(?" + inline + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", q, err)
	}
	rule.Regexp = re
	return rule, nil
}

// IsRegexp reports whether the rule uses /regex/flags syntax.
func (r *MatchRule) IsRegexp() bool { return r.Regexp != nil }

// String returns the original query.
func (r *MatchRule) String() string { return r.Query }

// Match reports whether text satisfies the rule. Literal rules match
// case-insensitively.
func (r *MatchRule) Match(text string) bool {
	if r.Regexp != nil {
		return r.Regexp.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(r.Literal))
}
