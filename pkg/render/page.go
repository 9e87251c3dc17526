package render

import (
	"fmt"
	"io"

	"github.com/vango-dev/reconciler/pkg/host"
)

// PageData describes the document shell served to a remote client.
type PageData struct {
	// Title is the page title
	Title string

	// Container is the mount point. Its children are rendered inside a
	// matching element carrying the container's node ID.
	Container *host.Node

	// ContainerTag is used when Container is nil. Defaults to "div".
	ContainerTag string

	// RootID is the wire ID of the container when Container is nil.
	RootID string

	// SocketPath is the WebSocket endpoint the client connects to.
	SocketPath string

	// ClientScript is the path of the client script. Defaults to
	// "/client.js".
	ClientScript string

	// Lang is the language attribute for the html element
	// Defaults to "en" if not specified
	Lang string
}

// RenderPage writes a complete HTML document.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}
	script := page.ClientScript
	if script == "" {
		script = "/client.js"
	}
	tag, rootID := page.ContainerTag, page.RootID
	if tag == "" {
		tag = "div"
	}
	if page.Container != nil {
		tag = page.Container.Tag
		rootID = fmt.Sprintf("n%d", page.Container.ID)
	}

	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n", escapeAttr(lang)); err != nil {
		return err
	}
	io.WriteString(w, `  <meta charset="utf-8">`+"\n")
	io.WriteString(w, `  <meta name="viewport" content="width=device-width, initial-scale=1">`+"\n")
	if page.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", escapeHTML(page.Title)); err != nil {
			return err
		}
	}
	io.WriteString(w, "</head>\n<body>\n")

	if _, err := fmt.Fprintf(w, `<%s data-nid="%s" data-ws="%s">`, tag, escapeAttr(rootID), escapeAttr(page.SocketPath)); err != nil {
		return err
	}
	if err := r.RenderChildren(w, page.Container); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "</%s>\n", tag); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "<script src=\"%s\" defer></script>\n</body>\n</html>\n", escapeAttr(script))
	return err
}
