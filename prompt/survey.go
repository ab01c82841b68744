package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Survey prompts with arrow-key menus and line editing.
type Survey struct {
	opts []survey.AskOpt
}

// NewSurvey returns a prompter bound to the given terminal streams.
func NewSurvey(in terminal.FileReader, out terminal.FileWriter, errOut io.Writer) *Survey {
	return &Survey{
		opts: []survey.AskOpt{survey.WithStdio(in, out, errOut)},
	}
}

// Select implements Prompter.
func (s *Survey) Select(ctx context.Context, message string, choices []Choice) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(choices) == 0 {
		return "", errNoChoices
	}

	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.Label
	}

	q := &survey.Select{
		Message: message,
		Options: labels,
		Description: func(_ string, index int) string {
			return choices[index].Description
		},
	}

	// Labels may repeat, so the answer is read as an index.
	var index int
	if err := survey.AskOne(q, &index, s.opts...); err != nil {
		return "", interrupted(err)
	}
	return choices[index].Value, nil
}

// Input implements Prompter.
func (s *Survey) Input(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var answer string
	if err := survey.AskOne(&survey.Input{Message: message}, &answer, s.opts...); err != nil {
		return "", interrupted(err)
	}
	return answer, nil
}

func interrupted(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrInterrupted
	}
	return fmt.Errorf("prompt: %w", err)
}
