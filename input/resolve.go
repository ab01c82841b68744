package input

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches "{name}" where name has no braces.
var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// ValueFunc asks the user for the value of a named placeholder.
type ValueFunc func(ctx context.Context, name string) (string, error)

// Placeholders returns the placeholder names in template, left to right.
// A name used twice is returned twice.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1]
	}
	return names
}

// ResolveURI asks for a value for every placeholder occurrence in template,
// in order of appearance, and substitutes each encoded value for the first
// remaining occurrence of that placeholder. A template without
// placeholders is returned unchanged and ask is never called.
func ResolveURI(ctx context.Context, template string, ask ValueFunc) (string, error) {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)

	uri := template
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		value, err := ask(ctx, m[1])
		if err != nil {
			return "", fmt.Errorf("value for %s: %w", m[1], err)
		}
		uri = strings.Replace(uri, m[0], EncodeURIComponent(value), 1)
	}
	return uri, nil
}
