// Package cmdline splits compiler command lines captured from build messages.
//
// Two flavors exist because the engine reports compiler invocations two ways:
//   - structured task command lines (Csc, Vbc), split with Split
//   - free-form message text (Fsc), recovered with SplitCompilerCommandLine
package cmdline

import (
	"strings"
)

// Tokenize splits a single line into trimmed, non-empty tokens. Double quotes
// group a token and are removed; text glued to an opening quote is discarded
// and an unterminated quote runs to the end of the line. Returns nil when the
// line holds no tokens.
//
//	Tokenize(`"a b" c`) // ["a b", "c"]
func Tokenize(line string) []string {
	return compact(tokenize(line))
}

// tokenize returns raw tokens, including empty ones produced by adjacent
// separators or empty quotes.
func tokenize(line string) []string {
	var tokens []string
	first := 0
	quote := false

	for cursor := 0; cursor < len(line); cursor++ {
		switch line[cursor] {
		case '"':
			if quote {
				tokens = append(tokens, line[first:cursor])
			}
			quote = !quote
			first = cursor + 1
		case ' ':
			if !quote {
				tokens = append(tokens, line[first:cursor])
				first = cursor + 1
			}
		}
	}
	return append(tokens, line[first:])
}

// SplitCompilerCommandLine recovers a compiler invocation from message text.
//
// The text is split into lines. The first line is tokenized and every token
// before the compiler entry point (the first token ending, case-insensitively,
// with one of entryPoints) is dropped; the entry point itself is kept. Each
// following line becomes one extra argument. ok is false when the text is blank
// or no entry point is found.
func SplitCompilerCommandLine(text string, entryPoints ...string) (args []string, ok bool) {
	lines := compact(strings.FieldsFunc(text, func(r rune) bool {
		return r == '\r' || r == '\n'
	}))
	if len(lines) == 0 {
		return nil, false
	}

	first, ok := TrimToEntryPoint(Tokenize(lines[0]), entryPoints...)
	if !ok {
		return nil, false
	}
	return append(first, lines[1:]...), true
}

// TrimToEntryPoint drops the tokens before the first one ending with any of
// entryPoints (case-insensitive). ok is false when no token matches.
func TrimToEntryPoint(tokens []string, entryPoints ...string) (rest []string, ok bool) {
	for i, tok := range tokens {
		if IsEntryPoint(tok, entryPoints...) {
			return tokens[i:], true
		}
	}
	return nil, false
}

// IsEntryPoint reports whether token ends with one of entryPoints, ignoring case.
func IsEntryPoint(token string, entryPoints ...string) bool {
	lower := strings.ToLower(token)
	for _, ep := range entryPoints {
		if ep != "" && strings.HasSuffix(lower, strings.ToLower(ep)) {
			return true
		}
	}
	return false
}

// compact trims every element and drops the empty ones.
func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
