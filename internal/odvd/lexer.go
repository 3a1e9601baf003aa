package odvd

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// SyntaxError reports a malformed specification with the offending line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("odvd: line %d: %s", e.Line, e.Msg)
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	line := 1
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '\n':
			line++
			i++
		case unicode.IsSpace(r):
			i++
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			start := line
			i += 2
			closed := false
			for i < len(runes) {
				if runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/' {
					i += 2
					closed = true
					break
				}
				if runes[i] == '\n' {
					line++
				}
				i++
			}
			if !closed {
				return nil, &SyntaxError{Line: start, Msg: "unterminated block comment"}
			}
		case r == '"':
			start := line
			var sb strings.Builder
			i++
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					sb.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if c == '"' {
					i++
					closed = true
					break
				}
				if c == '\n' {
					line++
				}
				sb.WriteRune(c)
				i++
			}
			if !closed {
				return nil, &SyntaxError{Line: start, Msg: "unterminated string literal"}
			}
			tokens = append(tokens, token{kind: tokString, text: sb.String(), line: start})
		case isNumberStart(runes, i):
			j := i + 1
			for j < len(runes) && isNumberRune(runes[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[i:j]), line: line})
			i = j
		case isIdentStart(r):
			j := i + 1
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[i:j]), line: line})
			i = j
		case strings.ContainsRune("[]{}=,;", r):
			tokens = append(tokens, token{kind: tokPunct, text: string(r), line: line})
			i++
		default:
			return nil, &SyntaxError{Line: line, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	tokens = append(tokens, token{kind: tokEOF, line: line})
	return tokens, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isNumberStart(runes []rune, i int) bool {
	r := runes[i]
	if unicode.IsDigit(r) {
		return true
	}
	if (r == '-' || r == '+' || r == '.') && i+1 < len(runes) {
		return unicode.IsDigit(runes[i+1]) || (runes[i+1] == '.' && r != '.')
	}
	return false
}

func isNumberRune(r rune) bool {
	return unicode.IsDigit(r) || unicode.IsLetter(r) || r == '.' || r == '+' || r == '-'
}
