// Package urlpattern compiles "/"-separated path templates into matchers that
// extract named path parameters.
//
// A token prefixed with ':' captures the corresponding path segment. When the
// capturing token is the last one in the template it captures the remainder of
// the path joined by "/". All other tokens are literals compared
// case-insensitively.
package urlpattern

import "strings"

// CaptureMarker prefixes template tokens that bind a parameter
const CaptureMarker = ':'

type token struct {
	literal string
	name    string
	capture bool
}

// Pattern is a compiled path template. It is immutable and safe for concurrent use.
type Pattern struct {
	template string
	tokens   []token
	trailing bool
	literal  bool
}

// Compile parses template into a Pattern
func Compile(template string) *Pattern {
	p := &Pattern{template: template}

	parts := split(template)
	p.tokens = make([]token, 0, len(parts))
	captures := 0
	for _, part := range parts {
		if len(part) > 0 && part[0] == CaptureMarker {
			p.tokens = append(p.tokens, token{name: part[1:], capture: true})
			captures++
			continue
		}
		p.tokens = append(p.tokens, token{literal: part})
	}

	p.literal = captures == 0
	p.trailing = len(p.tokens) > 0 && p.tokens[len(p.tokens)-1].capture
	return p
}

// Template returns the source template
func (p *Pattern) Template() string {
	return p.template
}

// Match tests path against the template. On success it returns the captured
// segments, which are nil for templates without captures.
func (p *Pattern) Match(path string) (bool, map[string]string) {
	if p.literal {
		return strings.EqualFold(strings.Trim(p.template, "/"), strings.Trim(path, "/")), nil
	}

	parts := split(path)
	if p.trailing {
		if len(parts) < len(p.tokens) {
			return false, nil
		}
	} else if len(parts) != len(p.tokens) {
		return false, nil
	}

	segments := make(map[string]string)
	last := len(p.tokens) - 1
	for i, tok := range p.tokens {
		if !tok.capture {
			if !strings.EqualFold(tok.literal, parts[i]) {
				return false, nil
			}
			continue
		}
		if i == last {
			segments[tok.name] = strings.Join(parts[i:], "/")
			break
		}
		segments[tok.name] = parts[i]
	}

	return true, segments
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
