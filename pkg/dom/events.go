package dom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// EventClick is the activation event fired by Click.
const EventClick = "click"

// ErrUnknownElement is returned when an event targets an id that is not on
// the page.
var ErrUnknownElement = errors.New("dom: element not found")

// On registers handler for event on node. Handlers fire in registration
// order.
func (d *Document) On(node *html.Node, event string, handler Handler) error {
	if d == nil {
		return errors.New("dom: document is nil")
	}
	event = strings.TrimSpace(event)
	if node == nil || event == "" || handler == nil {
		return errors.New("dom: node, event and handler are required")
	}

	d.regMu.Lock()
	defer d.regMu.Unlock()

	byEvent, ok := d.listeners[node]
	if !ok {
		byEvent = make(map[string][]Handler)
		d.listeners[node] = byEvent
	}
	byEvent[event] = append(byEvent[event], handler)
	return nil
}

// Listeners reports how many handlers are bound to event on node.
func (d *Document) Listeners(node *html.Node, event string) int {
	if d == nil || node == nil {
		return 0
	}
	d.regMu.Lock()
	defer d.regMu.Unlock()
	return len(d.listeners[node][strings.TrimSpace(event)])
}

// Dispatch fires event on node, running every bound handler in order. The
// first handler error stops dispatch. Dispatching an event nobody listens to
// is a no-op.
func (d *Document) Dispatch(ctx context.Context, node *html.Node, event string) error {
	if d == nil {
		return errors.New("dom: document is nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatchLocked(ctx, node, event)
}

// Click dispatches a click on the element with the given id. The element is
// looked up under the dispatch lock, so concurrent clicks never read the tree
// while a handler is changing it.
func (d *Document) Click(ctx context.Context, id string) error {
	if d == nil {
		return errors.New("dom: document is nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	node := d.ByID(id)
	if node == nil {
		return fmt.Errorf("%w: #%s", ErrUnknownElement, id)
	}
	return d.dispatchLocked(ctx, node, EventClick)
}

// dispatchLocked runs the handlers for event on node. d.mu must be held.
func (d *Document) dispatchLocked(ctx context.Context, node *html.Node, event string) error {
	d.regMu.Lock()
	handlers := append([]Handler(nil), d.listeners[node][strings.TrimSpace(event)]...)
	d.regMu.Unlock()

	for _, handler := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := handler(ctx, node); err != nil {
			return fmt.Errorf("dom: %s handler: %w", event, err)
		}
	}
	return nil
}

// Locked runs fn while holding the document's event lock, so tree mutations
// made outside an event handler stay serialized with dispatch.
func (d *Document) Locked(fn func() error) error {
	if d == nil {
		return errors.New("dom: document is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn()
}
