// Package render serializes in-memory host trees (host.Memory nodes) to
// HTML.
//
// It is used for snapshots of a committed tree and for the page shell the
// remote server hands to browsers. Output is deterministic: attributes are
// sorted and bound listeners appear as data-on-<event> markers.
//
// # Basic Usage
//
//	r := render.NewRenderer(render.RendererConfig{})
//	html, err := r.RenderToString(container)
//
// # Escaping
//
// Text content and attribute values are escaped. Attribute values also
// encode tab, newline and carriage return. Boolean attributes such as
// disabled and checked are written as a bare name when their value is
// "true" and omitted when it is "false".
package render
