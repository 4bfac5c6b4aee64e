// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package jsonc provides support for parsing JSON with comments (JSONC).
// Line comments (//), block comments (/* */) and, optionally, trailing commas
// are removed so the result can be handed to a strict JSON parser.
package jsonc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Options controls how removed spans are rendered.
type Options struct {
	// PreserveWhitespace replaces every byte of a removed span except CR and
	// LF with a space so offsets and line numbers of the remaining text are kept.
	PreserveWhitespace bool
	// StripTrailingCommas also removes a comma directly followed, ignoring
	// whitespace and comments, by '}' or ']'.
	StripTrailingCommas bool
}

func DefaultOptions() Options {
	return Options{PreserveWhitespace: true}
}

type scanState int

const (
	stateNormal scanState = iota
	stateInString
	stateInLineComment
	stateInBlockComment
)

const noComma = -1

type scanner struct {
	src   string
	opts  Options
	state scanState

	// offset marks the first byte of src not yet copied into pending.
	offset int
	comma  int

	// result holds confirmed output; pending holds everything flushed since
	// the last confirmation and starts with the candidate comma, if any.
	result  strings.Builder
	pending strings.Builder
}

// Strip removes comments from input. A nil opts means DefaultOptions().
func Strip(input string, opts *Options) string {
	s := &scanner{
		src:   input,
		opts:  DefaultOptions(),
		comma: noComma,
	}
	if opts != nil {
		s.opts = *opts
	}
	s.result.Grow(len(input))

	return s.run()
}

// StripValue is Strip for callers holding an untyped value. Anything that is
// not text is rejected with an ArgumentError.
func StripValue(input interface{}, opts *Options) (string, error) {
	switch v := input.(type) {
	case string:
		return Strip(v, opts), nil
	case []byte:
		return Strip(string(v), opts), nil
	case json.RawMessage:
		return Strip(string(v), opts), nil
	case []rune:
		return Strip(string(v), opts), nil
	default:
		return "", NewArgumentError("input", fmt.Errorf("%w: expected text, got %T", ErrInvalidArgument, input))
	}
}

// StripComments removes comments from JSONC while preserving string literals.
func StripComments(data []byte) []byte {
	return []byte(Strip(string(data), nil))
}

// Unmarshal strips data and decodes the result into v.
func Unmarshal(data []byte, v interface{}, opts *Options) error {
	return json.Unmarshal([]byte(Strip(string(data), opts)), v)
}

func (s *scanner) run() string {
	for i := 0; i < len(s.src); i++ {
		c := s.src[i]

		switch s.state {
		case stateInString:
			if c == '"' && !isEscaped(s.src, i) {
				s.state = stateNormal
			}

		case stateInLineComment:
			if c == '\n' || (c == '\r' && s.peek(i) == '\n') {
				s.leaveComment(i)
			}

		case stateInBlockComment:
			if c == '*' && s.peek(i) == '/' {
				i++
				s.leaveComment(i + 1)
			}

		default:
			switch {
			case c == '/' && s.peek(i) == '/':
				s.enterComment(i, stateInLineComment)
				i++
			case c == '/' && s.peek(i) == '*':
				s.enterComment(i, stateInBlockComment)
				i++
			default:
				if s.opts.StripTrailingCommas {
					s.trackComma(i, c)
				}
				if c == '"' && !isEscaped(s.src, i) {
					s.state = stateInString
				}
			}
		}
	}

	tail := s.src[s.offset:]
	if s.state == stateInLineComment || s.state == stateInBlockComment {
		tail = s.erase(tail)
	}
	s.result.WriteString(s.pending.String())
	s.result.WriteString(tail)

	return s.result.String()
}

func (s *scanner) peek(i int) byte {
	if i+1 < len(s.src) {
		return s.src[i+1]
	}
	return 0
}

func (s *scanner) enterComment(start int, state scanState) {
	s.pending.WriteString(s.src[s.offset:start])
	s.offset = start
	s.state = state
}

// leaveComment erases [offset, end) and resumes normal scanning at end.
func (s *scanner) leaveComment(end int) {
	s.pending.WriteString(s.erase(s.src[s.offset:end]))
	s.offset = end
	s.state = stateNormal
}

func (s *scanner) trackComma(i int, c byte) {
	if s.comma == noComma {
		if c == ',' {
			s.result.WriteString(s.pending.String())
			s.result.WriteString(s.src[s.offset:i])
			s.pending.Reset()
			s.offset = i
			s.comma = i
		}
		return
	}

	switch {
	case c == '}' || c == ']':
		s.pending.WriteString(s.src[s.offset:i])
		span := s.pending.String()
		s.result.WriteString(s.erase(span[:1]))
		s.result.WriteString(span[1:])
		s.pending.Reset()
		s.offset = i
		s.comma = noComma
	case !isBlank(c):
		s.pending.WriteString(s.src[s.offset:i])
		s.offset = i
		s.comma = noComma
	}
}

func (s *scanner) erase(span string) string {
	if !s.opts.PreserveWhitespace {
		return ""
	}

	b := []byte(span)
	for i, c := range b {
		if c != '\n' && c != '\r' {
			b[i] = ' '
		}
	}
	return string(b)
}

// isEscaped reports whether the quote at pos is preceded by an odd number of
// consecutive backslashes.
func isEscaped(src string, pos int) bool {
	n := 0
	for i := pos - 1; i >= 0 && src[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// isBlank is the set of bytes that keep a trailing comma candidate pending.
func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

