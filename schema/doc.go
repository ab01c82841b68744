// Package schema provides the client-side view of a tool's input schema.
//
// Servers publish an "inputSchema" per tool. The interactive client only
// needs the top-level properties, in the order the server wrote them, and a
// display label for each property's type:
//
//	var s schema.Schema
//	if err := json.Unmarshal(raw, &s); err != nil { ... }
//	_ = s.Each(func(name string, p schema.Property) error {
//	    fmt.Printf("%s (%s)\n", name, p.Type)
//	    return nil
//	})
//
// Properties are held in an insertion-ordered map so that prompting follows
// the declaration order. A "type" that is missing, an array such as
// ["string", "null"], or any other shape never fails decoding; it only
// changes the label.
package schema
