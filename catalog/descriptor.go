package catalog

import "github.com/felixgeelhaar/mcpsh/client"

// Kind tags a Descriptor variant.
type Kind int

const (
	KindTool Kind = iota + 1
	KindResource
	KindResourceTemplate
	KindPrompt
)

func (k Kind) String() string {
	switch k {
	case KindTool:
		return "tool"
	case KindResource:
		return "resource"
	case KindResourceTemplate:
		return "resource template"
	case KindPrompt:
		return "prompt"
	default:
		return "unknown"
	}
}

// Descriptor is one capability in the catalog. The set of implementations
// is closed: Tool, Resource, ResourceTemplate and Prompt.
type Descriptor interface {
	Kind() Kind
	// Key identifies the descriptor within its menu: a tool or prompt name,
	// a resource URI or a template pattern.
	Key() string
	// Label is the text shown in menus.
	Label() string
	// Help is optional text shown next to the label.
	Help() string

	descriptor()
}

// Tool is a callable tool.
type Tool struct{ client.Tool }

func (Tool) Kind() Kind      { return KindTool }
func (t Tool) Key() string   { return t.Name }
func (t Tool) Label() string { return t.DisplayName() }
func (t Tool) Help() string  { return t.Description }
func (Tool) descriptor()     {}

// Resource is a concrete, readable resource.
type Resource struct{ client.Resource }

func (Resource) Kind() Kind      { return KindResource }
func (r Resource) Key() string   { return r.URI }
func (r Resource) Label() string { return r.DisplayName() }
func (r Resource) Help() string  { return r.Description }
func (Resource) descriptor()     {}

// ResourceTemplate is a resource whose URI has placeholders to fill in.
type ResourceTemplate struct{ client.ResourceTemplate }

func (ResourceTemplate) Kind() Kind      { return KindResourceTemplate }
func (t ResourceTemplate) Key() string   { return t.URITemplate }
func (t ResourceTemplate) Label() string { return t.DisplayName() }
func (t ResourceTemplate) Help() string  { return t.Description }
func (ResourceTemplate) descriptor()     {}

// Prompt is a prompt template offered by the server.
type Prompt struct{ client.Prompt }

func (Prompt) Kind() Kind      { return KindPrompt }
func (p Prompt) Key() string   { return p.Name }
func (p Prompt) Label() string { return p.DisplayName() }
func (p Prompt) Help() string  { return p.Description }
func (Prompt) descriptor()     {}
