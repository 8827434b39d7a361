package cmdline

import (
	"strings"
)

// Split splits a structured task command line into arguments using the rules
// the compilers themselves apply to their response files:
//   - unquoted whitespace separates arguments
//   - double quotes group and are removed
//   - 2n backslashes before a quote produce n backslashes and toggle quoting,
//     2n+1 produce n backslashes and a literal quote
//   - an unquoted '#' at the start of an argument ends the line
func Split(commandLine string) []string {
	var (
		args        []string
		b           strings.Builder
		inQuotes    bool
		inToken     bool
		backslashes int
	)

	for i := 0; i < len(commandLine); i++ {
		c := commandLine[i]
		switch {
		case c == '\\':
			backslashes++
			inToken = true
		case c == '"':
			b.WriteString(strings.Repeat(`\`, backslashes/2))
			if backslashes%2 == 1 {
				b.WriteByte('"')
			} else {
				inQuotes = !inQuotes
			}
			backslashes = 0
			inToken = true
		default:
			b.WriteString(strings.Repeat(`\`, backslashes))
			backslashes = 0

			if isSpace(c) && !inQuotes {
				if inToken {
					args = append(args, b.String())
					b.Reset()
					inToken = false
				}
				continue
			}
			if c == '#' && !inQuotes && !inToken {
				return args
			}
			b.WriteByte(c)
			inToken = true
		}
	}

	b.WriteString(strings.Repeat(`\`, backslashes))
	if inToken {
		args = append(args, b.String())
	}
	return args
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
