// Package session runs the interactive menu loop.
//
// The loop is a state machine with three states. From the main menu the
// user enters the resource flow or the tool flow; each flow prompts,
// makes one request, prints the result and returns to the menu. There is
// no exit transition: Run only returns on a fatal error or when its
// context is canceled.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/mcpsh/catalog"
	"github.com/felixgeelhaar/mcpsh/client"
	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/prompt"
)

// ErrMalformedResult is returned when a result lacks the content to print.
var ErrMalformedResult = errors.New("malformed result")

// State is a state of the interaction loop.
type State int

const (
	StateAwaitingMenuChoice State = iota
	StateResourceFlow
	StateToolFlow
)

func (s State) String() string {
	switch s {
	case StateAwaitingMenuChoice:
		return "awaiting menu choice"
	case StateResourceFlow:
		return "resource flow"
	case StateToolFlow:
		return "tool flow"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Main menu entries.
const (
	MenuQuery     = "Query"
	MenuTools     = "Tools"
	MenuResources = "Resources"
	MenuPrompts   = "Prompts"
)

var mainMenu = []prompt.Choice{
	{Label: MenuQuery, Value: MenuQuery},
	{Label: MenuTools, Value: MenuTools},
	{Label: MenuResources, Value: MenuResources},
	{Label: MenuPrompts, Value: MenuPrompts},
}

// Remote performs the requests the flows need. *client.Client implements it.
type Remote interface {
	ReadResource(ctx context.Context, uri string) (*client.ReadResourceResult, error)
	CallTool(ctx context.Context, name string, arguments any) (*client.ToolResult, error)
}

// Session is one interactive session against a connected server.
type Session struct {
	remote   Remote
	catalog  *catalog.Catalog
	prompter prompt.Prompter
	out      io.Writer
	errOut   io.Writer
	logger   middleware.Logger

	state State
}

// Option configures a Session.
type Option func(*Session)

// WithOutput sets where results and user-facing errors are written.
func WithOutput(out, errOut io.Writer) Option {
	return func(s *Session) {
		s.out = out
		s.errOut = errOut
	}
}

// WithLogger sets the session logger.
func WithLogger(l middleware.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// New creates a session in StateAwaitingMenuChoice.
func New(remote Remote, cat *catalog.Catalog, p prompt.Prompter, opts ...Option) *Session {
	s := &Session{
		remote:   remote,
		catalog:  cat,
		prompter: p,
		out:      os.Stdout,
		errOut:   os.Stderr,
		logger:   middleware.NopLogger{},
		state:    StateAwaitingMenuChoice,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Run steps the loop until a step fails or ctx is canceled.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
}

// Step performs one transition. A flow always leaves the session back in
// StateAwaitingMenuChoice, even when it fails.
func (s *Session) Step(ctx context.Context) error {
	switch s.state {
	case StateAwaitingMenuChoice:
		return s.chooseFlow(ctx)
	case StateResourceFlow:
		defer s.transition(StateAwaitingMenuChoice)
		return s.viewResource(ctx)
	case StateToolFlow:
		defer s.transition(StateAwaitingMenuChoice)
		return s.useTool(ctx)
	default:
		return fmt.Errorf("session in unknown %s", s.state)
	}
}

func (s *Session) transition(to State) {
	s.logger.Debug("session transition",
		middleware.F("from", s.state.String()),
		middleware.F("to", to.String()),
	)
	s.state = to
}

func (s *Session) chooseFlow(ctx context.Context) error {
	choice, err := s.prompter.Select(ctx, "What would you like to do?", mainMenu)
	if err != nil {
		return err
	}

	switch choice {
	case MenuResources:
		s.transition(StateResourceFlow)
	case MenuTools:
		s.transition(StateToolFlow)
	default:
		// Query and Prompts have no flow yet.
		s.logger.Debug("menu entry has no action", middleware.F("entry", choice))
	}
	return nil
}

// selectDescriptor asks the user to pick from the choices for action. It
// returns nil without error when there was nothing to pick or the picked
// key is not in the catalog; both are reported on errOut.
func (s *Session) selectDescriptor(ctx context.Context, action catalog.Action, message, notFound string) (catalog.Descriptor, error) {
	descriptors := s.catalog.Choices(action)
	if len(descriptors) == 0 {
		fmt.Fprintf(s.errOut, "No %s available\n", action)
		return nil, nil
	}

	choices := make([]prompt.Choice, len(descriptors))
	for i, d := range descriptors {
		choices[i] = prompt.Choice{Label: d.Label(), Value: d.Key(), Description: d.Help()}
	}

	key, err := s.prompter.Select(ctx, message, choices)
	if err != nil {
		return nil, err
	}

	d, err := s.catalog.Lookup(action, key)
	if errors.Is(err, catalog.ErrNotFound) {
		s.logger.Warn("selection not in catalog", middleware.F("key", key))
		fmt.Fprintln(s.errOut, notFound)
		return nil, nil
	}
	return d, err
}
