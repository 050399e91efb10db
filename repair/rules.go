// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package repair

import (
	"strings"
	"unicode"
)

// Rule is one repair step. Apply is only called when Applies returns true.
// Both must be pure.
type Rule struct {
	Name    string
	Applies func(s string) bool
	Apply   func(s string) string
}

// DefaultRules is the rule chain used by New, in application order.
var DefaultRules = []Rule{
	{Name: "strip-code-fences", Applies: hasCodeFence, Apply: stripCodeFences},
	{Name: "normalize-smart-quotes", Applies: hasSmartQuotes, Apply: normalizeSmartQuotes},
	{Name: "isolate-object", Applies: hasSurroundingText, Apply: isolateObject},
	{Name: "quote-bare-keys", Applies: hasBareKey, Apply: quoteBareKeys},
	{Name: "balance-braces", Applies: missingOneCloser, Apply: balanceBraces},
	{Name: "remove-trailing-commas", Applies: hasTrailingComma, Apply: removeTrailingCommas},
}

const fence = "```"

func hasCodeFence(s string) bool {
	return openingFence(s) >= 0
}

// openingFence returns the index of the first fence that opens a block, or
// -1. A fence opens a block when it starts a line or when the rest of its
// line is an info string. Neither can happen inside a JSON string, which
// cannot hold a raw newline.
func openingFence(s string) int {
	for from := 0; ; {
		i := strings.Index(s[from:], fence)
		if i < 0 {
			return -1
		}
		i += from
		if atLineStart(s, i) {
			return i
		}
		rest := s[i+len(fence):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && isInfoString(rest[:nl]) {
			return i
		}
		from = i + len(fence)
	}
}

func atLineStart(s string, i int) bool {
	for i > 0 {
		i--
		switch s[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
			continue
		default:
			return false
		}
	}
	return true
}

// closingFence returns the index of the fence that closes body: the first
// one starting a line, or one ending the text. -1 when there is none.
func closingFence(body string) int {
	for from := 0; ; {
		i := strings.Index(body[from:], fence)
		if i < 0 {
			break
		}
		i += from
		if atLineStart(body, i) {
			return i
		}
		from = i + len(fence)
	}
	trimmed := strings.TrimRightFunc(body, unicode.IsSpace)
	if strings.HasSuffix(trimmed, fence) {
		return len(trimmed) - len(fence)
	}
	return -1
}

// stripCodeFences keeps the body of the first fenced block, dropping the
// info string (```json). An unterminated fence keeps everything after it.
func stripCodeFences(s string) string {
	open := openingFence(s)
	body := s[open+len(fence):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isInfoString(body[:nl]) {
		body = body[nl+1:]
	}
	if end := closingFence(body); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func isInfoString(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func hasSmartQuotes(s string) bool {
	return strings.ContainsAny(s, "“”„‟‘’")
}

func isSmartDouble(r rune) bool {
	return r == '“' || r == '”' || r == '„' || r == '‟'
}

// normalizeSmartQuotes turns typographic double quotes used as string
// delimiters into ASCII quotes. Typographic quotes inside an ASCII-quoted
// string are content and stay. Single typographic quotes become apostrophes.
func normalizeSmartQuotes(s string) string {
	in := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s))

	inString, smartOpened, escaped := false, false, false
	for i, r := range in {
		switch {
		case r == '‘' || r == '’':
			r = '\''
			escaped = false
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case !inString && (r == '"' || isSmartDouble(r)):
			inString, smartOpened = true, r != '"'
			r = '"'
		case inString && isSmartDouble(r) && (smartOpened || closesString(in[i+1:])):
			inString = false
			r = '"'
		case inString && r == '"' && (!smartOpened || closesString(in[i+1:])):
			inString = false
		case inString && r == '"':
			// ASCII quote inside a typographically quoted string
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// closesString reports whether the text after a quote looks like the end of
// a JSON string: a separator or closer, or nothing at all.
func closesString(rest []rune) bool {
	for _, r := range rest {
		if unicode.IsSpace(r) {
			continue
		}
		return r == ':' || r == ',' || r == '}' || r == ']'
	}
	return true
}

// scanner tracks whether a position is inside a JSON string.
type scanner struct {
	inString bool
	escaped  bool
}

// step advances over r and reports whether r is structural (outside a string
// and not a quote).
func (sc *scanner) step(r rune) bool {
	switch {
	case sc.escaped:
		sc.escaped = false
		return false
	case sc.inString && r == '\\':
		sc.escaped = true
		return false
	case r == '"':
		sc.inString = !sc.inString
		return false
	}
	return !sc.inString
}

// objectBounds returns the bounds of the object to keep: the longest
// balanced top-level object, or an unterminated tail when that is longer.
// Ties go to the first. end is -1 when the chosen object is unterminated,
// start is -1 when there is none.
func objectBounds(s string) (start, end int) {
	start, end = -1, -1
	best := -1
	for from := 0; from < len(s); {
		i := strings.IndexByte(s[from:], '{')
		if i < 0 {
			break
		}
		i += from
		e := matchingBrace(s, i)
		size := len(s) - i
		if e >= 0 {
			size = e - i + 1
		}
		if size > best {
			start, end, best = i, e, size
		}
		if e < 0 {
			break
		}
		from = e + 1
	}
	return start, end
}

// matchingBrace returns the index of the '}' closing the '{' at start, or -1.
func matchingBrace(s string, start int) int {
	var sc scanner
	depth := 0
	for i, r := range s[start:] {
		if !sc.step(r) {
			continue
		}
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return start + i
			}
		}
	}
	return -1
}

func hasSurroundingText(s string) bool {
	start, end := objectBounds(s)
	if start < 0 {
		return false
	}
	if strings.TrimSpace(s[:start]) != "" {
		return true
	}
	return end >= 0 && strings.TrimSpace(s[end+1:]) != ""
}

// isolateObject drops the prose around the object chosen by objectBounds.
func isolateObject(s string) string {
	start, end := objectBounds(s)
	if end < 0 {
		return strings.TrimSpace(s[start:])
	}
	return s[start : end+1]
}

func isKeyStart(r rune) bool {
	return isLetter(r) || r == '_'
}

func isKeyRune(r rune) bool {
	return isLetter(r) || r == '_' || (r >= '0' && r <= '9')
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func hasBareKey(s string) bool {
	return quoteBareKeys(s) != s
}

// quoteBareKeys fixes object keys missing their opening quote or both quotes.
// After a structural '{' or ',' it looks for an identifier followed by '":'
// (`, type":` -> `, "type":`) or by ':' (`{name:` -> `{"name":`).
func quoteBareKeys(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	var sc scanner
	i := 0
	for i < len(in) {
		ch := in[i]
		structural := sc.step(ch)
		out = append(out, ch)
		i++
		if !structural || (ch != '{' && ch != ',') {
			continue
		}

		// Skip whitespace
		for i < len(in) && unicode.IsSpace(in[i]) {
			out = append(out, in[i])
			i++
		}
		if i >= len(in) || !isKeyStart(in[i]) {
			continue
		}

		keyStart := i
		j := i
		for j < len(in) && isKeyRune(in[j]) {
			j++
		}
		key := in[keyStart:j]

		switch {
		case j+1 < len(in) && in[j] == '"' && in[j+1] == ':':
			out = append(out, '"')
			out = append(out, key...)
			out = append(out, '"', ':')
			i = j + 2
		default:
			k := j
			for k < len(in) && unicode.IsSpace(in[k]) {
				k++
			}
			if k < len(in) && in[k] == ':' {
				out = append(out, '"')
				out = append(out, key...)
				out = append(out, '"')
				i = j
			}
		}
	}
	return string(out)
}

// openStack returns the unclosed brackets outside strings, and whether the
// text ends inside a string.
func openStack(s string) (stack []rune, inString bool) {
	var sc scanner
	for _, r := range s {
		if !sc.step(r) {
			continue
		}
		switch r {
		case '{', '[':
			stack = append(stack, r)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack, sc.inString
}

func missingOneCloser(s string) bool {
	stack, inString := openStack(s)
	return !inString && len(stack) == 1
}

// balanceBraces appends the single missing closer.
func balanceBraces(s string) string {
	stack, _ := openStack(s)
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	if stack[0] == '{' {
		return s + "}"
	}
	return s + "]"
}

func hasTrailingComma(s string) bool {
	return removeTrailingCommas(s) != s
}

// removeTrailingCommas drops a structural ',' whose next non-space rune
// closes an object or array.
func removeTrailingCommas(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in))

	var sc scanner
	for i, r := range in {
		if sc.step(r) && r == ',' {
			j := i + 1
			for j < len(in) && unicode.IsSpace(in[j]) {
				j++
			}
			if j < len(in) && (in[j] == '}' || in[j] == ']') {
				continue
			}
		}
		out = append(out, r)
	}
	return string(out)
}
