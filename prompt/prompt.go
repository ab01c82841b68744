// Package prompt asks the user for choices and free text.
//
// A Prompter is picked once at startup by New: the survey-based prompter
// when stdin is a terminal, a plain numbered-menu prompter otherwise.
package prompt

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ErrInterrupted is returned when the user interrupts a prompt.
var ErrInterrupted = errors.New("prompt interrupted")

// Choice is one entry of a selection menu.
type Choice struct {
	// Label is shown to the user. Labels need not be unique.
	Label string
	// Value is returned when the choice is selected.
	Value string
	// Description is optional help text.
	Description string
}

// Prompter is the terminal front end.
type Prompter interface {
	// Select shows message and choices and returns the Value of the
	// selected choice.
	Select(ctx context.Context, message string, choices []Choice) (string, error)
	// Input shows message and returns one line of text.
	Input(ctx context.Context, message string) (string, error)
}

// New returns a Survey prompter when in is a terminal and a Line prompter
// otherwise.
func New(in *os.File, out *os.File, errOut io.Writer) Prompter {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return NewSurvey(in, out, errOut)
	}
	return NewLine(in, out)
}

var errNoChoices = errors.New("nothing to choose from")
