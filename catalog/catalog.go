// Package catalog holds the capabilities a server offers for a session.
//
// A Catalog is discovered once after the handshake and is read-only
// afterwards. Menus are built from it with Choices and selections are
// resolved back to descriptors with Lookup.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/yosida95/uritemplate/v3"

	"github.com/felixgeelhaar/mcpsh/client"
	"github.com/felixgeelhaar/mcpsh/middleware"
	"github.com/felixgeelhaar/mcpsh/protocol"
)

// ErrNotFound is returned by Lookup when a key matches no descriptor.
var ErrNotFound = errors.New("not found")

// Action is a menu flow that selects from the catalog.
type Action int

const (
	// ActionResources selects a resource or resource template to read.
	ActionResources Action = iota + 1
	// ActionTools selects a tool to call.
	ActionTools
)

func (a Action) String() string {
	switch a {
	case ActionResources:
		return "resources"
	case ActionTools:
		return "tools"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Source lists capabilities from a server. *client.Client implements it.
type Source interface {
	ListTools(ctx context.Context) ([]client.Tool, error)
	ListResources(ctx context.Context) ([]client.Resource, error)
	ListResourceTemplates(ctx context.Context) ([]client.ResourceTemplate, error)
	ListPrompts(ctx context.Context) ([]client.Prompt, error)
}

// Catalog is the immutable set of descriptors discovered for a session.
type Catalog struct {
	tools     []Tool
	resources []Resource
	templates []ResourceTemplate
	prompts   []Prompt
}

// New builds a catalog from already listed descriptors.
func New(tools []client.Tool, resources []client.Resource, templates []client.ResourceTemplate, prompts []client.Prompt) *Catalog {
	c := &Catalog{
		tools:     make([]Tool, len(tools)),
		resources: make([]Resource, len(resources)),
		templates: make([]ResourceTemplate, len(templates)),
		prompts:   make([]Prompt, len(prompts)),
	}
	for i, t := range tools {
		c.tools[i] = Tool{t}
	}
	for i, r := range resources {
		c.resources[i] = Resource{r}
	}
	for i, t := range templates {
		c.templates[i] = ResourceTemplate{t}
	}
	for i, p := range prompts {
		c.prompts[i] = Prompt{p}
	}
	return c
}

// Discover lists every capability the server advertised, one call at a
// time. Capabilities missing from caps are not requested.
func Discover(ctx context.Context, src Source, caps client.Capabilities, logger middleware.Logger) (*Catalog, error) {
	if logger == nil {
		logger = middleware.NopLogger{}
	}

	var (
		tools     []client.Tool
		resources []client.Resource
		templates []client.ResourceTemplate
		prompts   []client.Prompt
		err       error
	)

	if caps.Tools {
		if tools, err = src.ListTools(ctx); err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
	}

	if caps.Resources {
		if resources, err = src.ListResources(ctx); err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
		templates, err = src.ListResourceTemplates(ctx)
		if errors.Is(err, &protocol.Error{Code: protocol.CodeMethodNotFound}) {
			logger.Warn("server does not list resource templates")
			templates, err = nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
	}

	if caps.Prompts {
		if prompts, err = src.ListPrompts(ctx); err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
	}

	for _, t := range templates {
		if _, err := uritemplate.New(t.URITemplate); err != nil {
			logger.Warn("resource template is not RFC 6570",
				middleware.F("template", t.URITemplate),
				middleware.F("error", err.Error()),
			)
		}
	}

	c := New(tools, resources, templates, prompts)
	logger.Info("capabilities discovered",
		middleware.F("tools", len(c.tools)),
		middleware.F("resources", len(c.resources)),
		middleware.F("resource_templates", len(c.templates)),
		middleware.F("prompts", len(c.prompts)),
	)
	return c, nil
}

// Tools returns the discovered tools in server order.
func (c *Catalog) Tools() []Tool { return c.tools }

// Resources returns the discovered concrete resources in server order.
func (c *Catalog) Resources() []Resource { return c.resources }

// ResourceTemplates returns the discovered templates in server order.
func (c *Catalog) ResourceTemplates() []ResourceTemplate { return c.templates }

// Prompts returns the discovered prompts in server order.
func (c *Catalog) Prompts() []Prompt { return c.prompts }

// Choices returns the descriptors selectable for action. Resources come
// before resource templates.
func (c *Catalog) Choices(action Action) []Descriptor {
	var out []Descriptor
	switch action {
	case ActionResources:
		out = make([]Descriptor, 0, len(c.resources)+len(c.templates))
		for _, r := range c.resources {
			out = append(out, r)
		}
		for _, t := range c.templates {
			out = append(out, t)
		}
	case ActionTools:
		out = make([]Descriptor, 0, len(c.tools))
		for _, t := range c.tools {
			out = append(out, t)
		}
	}
	return out
}

// Lookup finds the descriptor selectable for action whose Key equals key.
// Concrete resources are matched before templates.
func (c *Catalog) Lookup(action Action, key string) (Descriptor, error) {
	switch action {
	case ActionResources:
		for _, r := range c.resources {
			if r.Key() == key {
				return r, nil
			}
		}
		for _, t := range c.templates {
			if t.Key() == key {
				return t, nil
			}
		}
	case ActionTools:
		for _, t := range c.tools {
			if t.Key() == key {
				return t, nil
			}
		}
	default:
		return nil, fmt.Errorf("lookup %q: unknown action %s", key, action)
	}
	return nil, fmt.Errorf("%s %q: %w", action, key, ErrNotFound)
}
