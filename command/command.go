// Package command parses journal entry titles against the command grammar.
//
// A title is a command when it has at least three whitespace-separated
// tokens: the first token (lowercased, surrounding punctuation stripped) is
// the keyword, the second is the argument verbatim, and the rest rejoined
// with single spaces is the body. Parsing is pure string work with no
// browser dependency, so it can be fuzzed in isolation.
package command

import (
	"fmt"
	"regexp"
	"strings"
)

// punctCutset mirrors the characters stripped from the keyword token.
const punctCutset = `.,!?:;"`

// keywordPattern is the routing gate: only strictly lowercase-alphabetic
// keywords are ever routed. Keywords containing digits or anything the
// normalization did not lower never match. Existing behavior, kept as is.
var keywordPattern = regexp.MustCompile(`^[a-z]+$`)

// Command is a directive parsed from an entry title. Derived, never stored.
type Command struct {
	Keyword  string
	Argument string
	Body     string
}

// ErrMalformed reports a title with too few tokens to form a command.
// Malformed titles are logged and dropped, not surfaced as failures.
type ErrMalformed struct {
	Title  string
	Tokens int
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("command: malformed title %q: %d token(s), need 3", e.Title, e.Tokens)
}

// Normalize lowercases a token and strips surrounding punctuation, the same
// treatment the keyword receives.
func Normalize(token string) string {
	return strings.ToLower(strings.Trim(token, punctCutset))
}

// Parse extracts a Command from title. It returns *ErrMalformed when the
// title has fewer than three tokens.
func Parse(title string) (Command, error) {
	tokens := strings.Fields(title)
	if len(tokens) < 3 {
		return Command{}, &ErrMalformed{Title: title, Tokens: len(tokens)}
	}
	return Command{
		Keyword:  Normalize(tokens[0]),
		Argument: tokens[1],
		Body:     strings.Join(tokens[2:], " "),
	}, nil
}

// Routable reports whether the keyword passes the strict lowercase-alphabetic
// routing gate.
func (c Command) Routable() bool {
	return keywordPattern.MatchString(c.Keyword)
}
