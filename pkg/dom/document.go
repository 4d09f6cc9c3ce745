package dom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ErrNodeDetached is returned when an insertion reference node has no parent.
var ErrNodeDetached = errors.New("dom: reference node has no parent")

// Handler reacts to an event dispatched on a node. Handlers run while the
// document's event lock is held and may mutate the tree freely.
type Handler func(ctx context.Context, target *html.Node) error

// Document wraps a parsed HTML page together with the event listeners bound
// to its nodes. Event dispatch is serialized so a page has a single writer at
// a time.
type Document struct {
	root *html.Node

	// mu serializes dispatch and tree mutation; regMu guards listeners only,
	// so handlers may be bound while mu is held.
	mu        sync.Mutex
	regMu     sync.Mutex
	listeners map[*html.Node]map[string][]Handler
}

// Parse reads a complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}
	return New(root), nil
}

// ParseString parses markup held in memory.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// New wraps an already parsed tree.
func New(root *html.Node) *Document {
	return &Document{
		root:      root,
		listeners: make(map[*html.Node]map[string][]Handler),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	if d == nil {
		return nil
	}
	return d.root
}

// ByID returns the first element carrying the id attribute, or nil. It reads
// the tree without locking; use Click to act on an element while handlers may
// be running.
func (d *Document) ByID(id string) *html.Node {
	id = strings.TrimSpace(id)
	if d == nil || id == "" {
		return nil
	}
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && Attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Query returns the first element under root matching selector, or nil. The
// root itself is never matched.
func Query(root *html.Node, selector string) (*html.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	return cascadia.Query(root, sel), nil
}

// QueryAll returns every element under root matching selector in document
// order. The root itself is never included.
func QueryAll(root *html.Node, selector string) ([]*html.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	return cascadia.QueryAll(root, sel), nil
}

// QueryLast returns the last element under root (document order) matching
// selector, or nil when nothing matches.
func QueryLast(root *html.Node, selector string) (*html.Node, error) {
	nodes, err := QueryAll(root, selector)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[len(nodes)-1], nil
}

func compile(selector string) (cascadia.Sel, error) {
	trimmed := strings.TrimSpace(selector)
	if trimmed == "" {
		return nil, errors.New("dom: selector is required")
	}
	sel, err := cascadia.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("dom: parse selector %q: %w", trimmed, err)
	}
	return sel, nil
}

// Attr returns the value of the named attribute or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// Text concatenates the text content below n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	walk(n, func(node *html.Node) bool {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		return true
	})
	return sb.String()
}

// ParseFragment parses markup as the children of parent, the way a browser
// parses a string inserted into that element.
func ParseFragment(markup string, parent *html.Node) ([]*html.Node, error) {
	if parent == nil || parent.Type != html.ElementNode {
		return nil, errors.New("dom: fragment context must be an element")
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	return nodes, nil
}

// InsertBefore places nodes, in order, immediately before ref.
func InsertBefore(ref *html.Node, nodes ...*html.Node) error {
	if ref == nil || ref.Parent == nil {
		return ErrNodeDetached
	}
	for _, n := range nodes {
		ref.Parent.InsertBefore(n, ref)
	}
	return nil
}

// AppendChildren adds nodes, in order, as the last children of parent.
func AppendChildren(parent *html.Node, nodes ...*html.Node) error {
	if parent == nil {
		return errors.New("dom: parent is nil")
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// PrependChildren adds nodes, in order, as the first children of parent.
func PrependChildren(parent *html.Node, nodes ...*html.Node) error {
	if parent == nil {
		return errors.New("dom: parent is nil")
	}
	first := parent.FirstChild
	for _, n := range nodes {
		parent.InsertBefore(n, first)
	}
	return nil
}

// Render writes the whole document as HTML.
func (d *Document) Render(w io.Writer) error {
	if d == nil || d.root == nil {
		return errors.New("dom: document is empty")
	}
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("dom: render document: %w", err)
	}
	return nil
}

// String renders the document, returning "" on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// OuterHTML renders a single node including its own tags.
func OuterHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !walk(child, visit) {
			return false
		}
	}
	return true
}
