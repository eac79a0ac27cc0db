// Package placeholder substitutes <key> and <key.sub.0> tokens in prompt templates with values
// from a store.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nikogura/jobdocs/pkg/store"
)

// DefaultMaxIterations bounds Expand when the caller passes no limit.
const DefaultMaxIterations = 5

//nolint:gochecknoglobals // compiled once
var tokenPattern = regexp.MustCompile(`<(\w+(?:\.\w+)*)>`)

// LookupError reports a placeholder that does not resolve against the store.
type LookupError struct {
	Token   string
	Segment string
	Reason  string
}

func (e *LookupError) Error() (msg string) {
	msg = fmt.Sprintf("placeholder <%s>: segment %q: %s", e.Token, e.Segment, e.Reason)
	return msg
}

// UnresolvedError reports that expansion still had tokens left after Passes passes.
// Partial holds the text after the last pass.
type UnresolvedError struct {
	Passes  int
	Partial string
}

func (e *UnresolvedError) Error() (msg string) {
	msg = fmt.Sprintf("template still has placeholders after %d passes", e.Passes)
	return msg
}

// HasPlaceholders reports whether text contains at least one token.
func HasPlaceholders(text string) (found bool) {
	found = tokenPattern.MatchString(text)
	return found
}

// Tokens lists the tokens in text in order of appearance, without brackets.
func Tokens(text string) (tokens []string) {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	tokens = make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m[1])
	}
	return tokens
}

// Resolve replaces every token in text in one left-to-right pass. Text introduced by a
// replacement is not scanned again.
func Resolve(text string, s store.Store) (resolved string, err error) {
	matches := tokenPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		resolved = text
		return resolved, err
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		token := text[m[2]:m[3]]

		var v store.Value
		v, err = Lookup(token, s)
		if err != nil {
			return resolved, err
		}

		b.WriteString(text[last:m[0]])
		b.WriteString(v.String())
		last = m[1]
	}
	b.WriteString(text[last:])

	resolved = b.String()
	return resolved, err
}

// Lookup walks a dotted token through the store. All-digit segments index arrays; the rest
// are object keys.
func Lookup(token string, s store.Store) (v store.Value, err error) {
	segments := strings.Split(token, ".")

	var ok bool
	v, ok = s.Get(segments[0])
	if !ok {
		err = &LookupError{Token: token, Segment: segments[0], Reason: "not found in store"}
		return v, err
	}

	for _, seg := range segments[1:] {
		if isIndex(seg) {
			if v.Kind() != store.KindArray {
				err = &LookupError{Token: token, Segment: seg, Reason: fmt.Sprintf("expected array, got %s", v.Kind())}
				return v, err
			}
			// Digits beyond int range can never be a valid position.
			i, convErr := strconv.Atoi(seg)
			if convErr != nil {
				err = &LookupError{Token: token, Segment: seg, Reason: "index out of range"}
				return v, err
			}
			v, ok = v.Index(i)
			if !ok {
				err = &LookupError{Token: token, Segment: seg, Reason: "index out of range"}
				return v, err
			}
			continue
		}

		if v.Kind() != store.KindObject {
			err = &LookupError{Token: token, Segment: seg, Reason: fmt.Sprintf("expected object, got %s", v.Kind())}
			return v, err
		}
		v, ok = v.Field(seg)
		if !ok {
			err = &LookupError{Token: token, Segment: seg, Reason: "key not found"}
			return v, err
		}
	}

	return v, err
}

// Expand resolves text repeatedly until no tokens remain. After maxIterations passes with
// tokens left it returns an *UnresolvedError. A maxIterations below 1 means DefaultMaxIterations.
func Expand(text string, s store.Store, maxIterations int) (expanded string, err error) {
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}

	expanded = text
	passes := 0
	for HasPlaceholders(expanded) {
		if passes == maxIterations {
			err = &UnresolvedError{Passes: passes, Partial: expanded}
			return expanded, err
		}

		expanded, err = Resolve(expanded, s)
		if err != nil {
			return expanded, err
		}
		passes++
	}

	return expanded, err
}

func isIndex(seg string) (ok bool) {
	if seg == "" {
		return ok
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return ok
		}
	}
	ok = true
	return ok
}
