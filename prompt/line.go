package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Line prompts with numbered menus over plain line-oriented streams. It
// is used when input is piped or redirected.
type Line struct {
	r *bufio.Reader
	w io.Writer
}

// NewLine returns a prompter reading answers from r and writing to w.
func NewLine(r io.Reader, w io.Writer) *Line {
	return &Line{r: bufio.NewReader(r), w: w}
}

// Select implements Prompter. The answer is a 1-based number or a label.
// Invalid answers are reported and asked again.
func (l *Line) Select(ctx context.Context, message string, choices []Choice) (string, error) {
	if len(choices) == 0 {
		return "", errNoChoices
	}

	fmt.Fprintln(l.w, message)
	for i, c := range choices {
		if c.Description != "" {
			fmt.Fprintf(l.w, "  %d) %s - %s\n", i+1, c.Label, c.Description)
			continue
		}
		fmt.Fprintf(l.w, "  %d) %s\n", i+1, c.Label)
	}

	for {
		answer, err := l.readLine(ctx, "> ")
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)

		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
			return choices[n-1].Value, nil
		}
		for _, c := range choices {
			if strings.EqualFold(c.Label, answer) {
				return c.Value, nil
			}
		}
		fmt.Fprintf(l.w, "Invalid choice %q, enter 1-%d\n", answer, len(choices))
	}
}

// Input implements Prompter. Surrounding whitespace is kept.
func (l *Line) Input(ctx context.Context, message string) (string, error) {
	return l.readLine(ctx, message+" ")
}

func (l *Line) readLine(ctx context.Context, prefix string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprint(l.w, prefix)
	line, err := l.r.ReadString('\n')
	if err != nil {
		// A last line without newline still counts.
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
