package config

import (
	"fmt"
	"strings"
)

// CustomAttribute is a span attribute computed by an expression.
type CustomAttribute struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// ParseCustomAttribute parses a single NAME=EXPR definition. Only the first
// '=' separates; the expression may contain more.
func ParseCustomAttribute(s string) (CustomAttribute, error) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return CustomAttribute{}, fmt.Errorf("invalid attribute format %q: expected NAME=EXPR", s)
	}

	name := strings.TrimSpace(parts[0])
	expression := strings.TrimSpace(parts[1])

	if name == "" {
		return CustomAttribute{}, fmt.Errorf("invalid attribute %q: name cannot be empty", s)
	}
	if expression == "" {
		return CustomAttribute{}, fmt.Errorf("invalid attribute %q: expression cannot be empty", s)
	}

	return CustomAttribute{Name: name, Expression: expression}, nil
}

// ParseAttributeString parses NAME=EXPR definitions separated by semicolons.
// Empty sections are ignored.
func ParseAttributeString(s string) ([]CustomAttribute, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var attrs []CustomAttribute
	for _, section := range strings.Split(s, ";") {
		if strings.TrimSpace(section) == "" {
			continue
		}
		attr, err := ParseCustomAttribute(section)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}
