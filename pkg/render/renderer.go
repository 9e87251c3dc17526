package render

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables indented output. Text inside inline elements is
	// kept on one line.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string

	// NodeIDs adds a data-nid attribute with the node's wire ID to every
	// element, so a client can bind to server-rendered markup.
	NodeIDs bool
}

// Renderer serializes in-memory host trees to HTML.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderToString renders n and its subtree to a string.
func (r *Renderer) RenderToString(n *host.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams n and its subtree to w.
func (r *Renderer) RenderToWriter(w io.Writer, n *host.Node) error {
	if n == nil {
		return nil
	}
	return r.renderNode(w, n, 0, r.config.Pretty)
}

// RenderChildren renders the children of n without n itself. Used for
// mount containers, whose own tag belongs to the page.
func (r *Renderer) RenderChildren(w io.Writer, n *host.Node) error {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if err := r.renderNode(w, c, 0, r.config.Pretty); err != nil {
			return err
		}
	}
	return nil
}

// renderNode writes n. In pretty mode each block element and each text
// child of a block starts on its own indented line; inline elements and
// elements holding only text are written flat.
func (r *Renderer) renderNode(w io.Writer, n *host.Node, depth int, pretty bool) error {
	switch n.Kind {
	case vdom.KindElement:
		return r.renderElement(w, n, depth, pretty)
	case vdom.KindText:
		if pretty {
			r.writeIndent(w, depth)
		}
		if _, err := io.WriteString(w, escapeHTML(n.Text)); err != nil {
			return err
		}
		if pretty {
			_, err := io.WriteString(w, "\n")
			return err
		}
		return nil
	default:
		return fmt.Errorf("render: unexpected node kind %s", n.Kind)
	}
}

func (r *Renderer) renderElement(w io.Writer, n *host.Node, depth int, pretty bool) error {
	if pretty {
		r.writeIndent(w, depth)
	}
	if _, err := fmt.Fprintf(w, "<%s", n.Tag); err != nil {
		return err
	}
	if err := r.renderAttributes(w, n); err != nil {
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	if !isVoidElement(n.Tag) {
		block := pretty && len(n.Children) > 0 && !isInlineElement(n.Tag) && !textOnly(n)
		if block {
			io.WriteString(w, "\n")
		}
		for _, c := range n.Children {
			if err := r.renderNode(w, c, depth+1, block); err != nil {
				return err
			}
		}
		if block {
			r.writeIndent(w, depth)
		}
		if _, err := fmt.Fprintf(w, "</%s>", n.Tag); err != nil {
			return err
		}
	}

	if pretty {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// renderAttributes writes attributes in key order, followed by data-on-*
// markers for bound listeners.
func (r *Renderer) renderAttributes(w io.Writer, n *host.Node) error {
	if r.config.NodeIDs {
		if _, err := fmt.Fprintf(w, ` data-nid="n%d"`, n.ID); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := n.Attrs[key]
		if isBooleanAttr(key) {
			if value == "true" || value == key || value == "" {
				if _, err := fmt.Fprintf(w, " %s", key); err != nil {
					return err
				}
			}
			continue
		}
		if _, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(value)); err != nil {
			return err
		}
	}

	for _, name := range n.Listeners() {
		if _, err := fmt.Fprintf(w, ` data-on-%s="true"`, name); err != nil {
			return err
		}
	}
	return nil
}

func textOnly(n *host.Node) bool {
	for _, c := range n.Children {
		if c.Kind != vdom.KindText {
			return false
		}
	}
	return true
}

func (r *Renderer) writeIndent(w io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(w, r.config.Indent)
	}
}
