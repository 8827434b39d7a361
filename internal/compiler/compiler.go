// Package compiler extracts compiler invocations from build messages.
//
// The set of extractors is closed: C#, Visual Basic and F#. The correlation
// engine asks each one whether it Matches a message and, if so, to Extract the
// invocation. Declining is not an error; many targets never run a compiler.
package compiler

import (
	"strings"

	"github.com/mrzor/buildlens/internal/buildevent"
)

// Language identifies a compiler family.
type Language int

const (
	Unknown Language = iota
	CSharp
	VisualBasic
	FSharp
)

func (l Language) String() string {
	switch l {
	case CSharp:
		return "csharp"
	case VisualBasic:
		return "visualbasic"
	case FSharp:
		return "fsharp"
	default:
		return "unknown"
	}
}

// ParseLanguage is the inverse of Language.String.
func ParseLanguage(s string) Language {
	for _, l := range []Language{CSharp, VisualBasic, FSharp} {
		if isMatch(s, l.String()) {
			return l
		}
	}
	return Unknown
}

// Command is a normalized compiler invocation.
type Command struct {
	Language         Language
	Command          string
	Arguments        []string
	CommandLine      string
	WorkingDirectory string
}

// Extractor recognizes and parses the invocation of one compiler family.
type Extractor interface {
	Language() Language
	Matches(msg *buildevent.MessageRaised) bool
	Extract(msg *buildevent.MessageRaised, inCoreCompile bool) (Command, bool)
}

// Extractors returns the fixed set of supported extractors.
func Extractors() []Extractor {
	return []Extractor{
		CSharpExtractor{},
		VisualBasicExtractor{},
		FSharpExtractor{},
	}
}

func isMatch(a, b string) bool {
	return strings.EqualFold(a, b)
}
