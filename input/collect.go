package input

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcpsh/schema"
)

// ArgumentFunc asks the user for a tool argument. typeLabel is the
// declared type, possibly empty, and is for display only.
type ArgumentFunc func(ctx context.Context, name, typeLabel string) (string, error)

// CollectArguments asks for every property of s in declaration order and
// returns the raw answers keyed by property name. Required lists, defaults
// and types are not consulted; every property is asked for.
func CollectArguments(ctx context.Context, s *schema.Schema, ask ArgumentFunc) (map[string]string, error) {
	args := make(map[string]string, s.Len())

	err := s.Each(func(name string, p schema.Property) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		value, err := ask(ctx, name, p.Type.String())
		if err != nil {
			return fmt.Errorf("argument %s: %w", name, err)
		}
		args[name] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return args, nil
}
