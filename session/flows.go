package session

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/felixgeelhaar/mcpsh/catalog"
	"github.com/felixgeelhaar/mcpsh/client"
	"github.com/felixgeelhaar/mcpsh/input"
	"github.com/felixgeelhaar/mcpsh/middleware"
)

var resultStyle = &pretty.Options{Indent: "  "}

func (s *Session) viewResource(ctx context.Context) error {
	d, err := s.selectDescriptor(ctx, catalog.ActionResources, "Select a resource to view", "Resource not found")
	if err != nil || d == nil {
		return err
	}

	var pattern string
	switch r := d.(type) {
	case catalog.Resource:
		pattern = r.URI
	case catalog.ResourceTemplate:
		pattern = r.URITemplate
	default:
		return fmt.Errorf("cannot read %s %q", d.Kind(), d.Key())
	}

	uri, err := input.ResolveURI(ctx, pattern, func(ctx context.Context, name string) (string, error) {
		return s.prompter.Input(ctx, fmt.Sprintf("Enter value for %s:", name))
	})
	if err != nil {
		return err
	}

	result, err := s.remote.ReadResource(ctx, uri)
	if err != nil {
		return err
	}
	return s.printResource(uri, result)
}

func (s *Session) printResource(uri string, result *client.ReadResourceResult) error {
	if len(result.Contents) == 0 {
		return fmt.Errorf("%w: resource %q has no contents", ErrMalformedResult, uri)
	}

	text := result.Contents[0].Text
	if !gjson.Valid(text) {
		return fmt.Errorf("%w: resource %q is not JSON", ErrMalformedResult, uri)
	}

	_, err := s.out.Write(pretty.PrettyOptions(normalizeJSON(text), resultStyle))
	return err
}

func (s *Session) useTool(ctx context.Context) error {
	d, err := s.selectDescriptor(ctx, catalog.ActionTools, "Select a tool to use", "Tool not found")
	if err != nil || d == nil {
		return err
	}

	tool, ok := d.(catalog.Tool)
	if !ok {
		return fmt.Errorf("cannot call %s %q", d.Kind(), d.Key())
	}

	args, err := input.CollectArguments(ctx, &tool.InputSchema, func(ctx context.Context, name, typeLabel string) (string, error) {
		return s.prompter.Input(ctx, argumentMessage(name, typeLabel))
	})
	if err != nil {
		return err
	}

	result, err := s.remote.CallTool(ctx, tool.Name, args)
	if err != nil {
		return err
	}
	if len(result.Content) == 0 {
		return fmt.Errorf("%w: tool %q returned no content", ErrMalformedResult, tool.Name)
	}
	if result.IsError {
		s.logger.Warn("tool reported an error", middleware.F("tool", tool.Name))
	}

	_, err = fmt.Fprintln(s.out, result.Content[0].Text)
	return err
}

func argumentMessage(name, typeLabel string) string {
	if typeLabel == "" {
		return fmt.Sprintf("Enter value for %s", name)
	}
	return fmt.Sprintf("Enter value for %s (%s)", name, typeLabel)
}
