// internal/actions/mocks_test.go
package actions

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/actuate/api/schemas"
)

// fakeDOM is a mutable HTML document the scheduler's closures run against.
// Visibility and enablement are modeled with plain attributes: "hidden" makes
// an element fail the visible probe, "disabled" the enabled probe, "obscured"
// the pointer-events probe, and "moving" the stable probe. Tests flip
// attributes between attempts to simulate a settling page.
type fakeDOM struct {
	mu  sync.Mutex
	doc *html.Node
}

func parseDOM(t *testing.T, src string) *fakeDOM {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return &fakeDOM{doc: doc}
}

// match returns all elements with the given tag, or the single element with
// the given id when the selector starts with '#'.
func (d *fakeDOM) match(selector string) []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if strings.HasPrefix(selector, "#") {
				if attrValue(n, "id") == selector[1:] {
					out = append(out, n)
				}
			} else if n.Data == selector {
				out = append(out, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.doc)
	return out
}

func (d *fakeDOM) setAttr(t *testing.T, selector, key, val string) {
	t.Helper()
	nodes := d.match(selector)
	require.Len(t, nodes, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, a := range nodes[0].Attr {
		if a.Key == key {
			nodes[0].Attr[i].Val = val
			return
		}
	}
	nodes[0].Attr = append(nodes[0].Attr, html.Attribute{Key: key, Val: val})
}

func (d *fakeDOM) removeAttr(t *testing.T, selector, key string) {
	t.Helper()
	nodes := d.match(selector)
	require.Len(t, nodes, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	attrs := nodes[0].Attr[:0]
	for _, a := range nodes[0].Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	nodes[0].Attr = attrs
}

// detach removes the element from the document entirely.
func (d *fakeDOM) detach(t *testing.T, selector string) {
	t.Helper()
	nodes := d.match(selector)
	require.Len(t, nodes, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes[0].Parent.RemoveChild(nodes[0])
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// resolveStrict is a single-target resolver: zero matches is retryable,
// multiple matches is a fatal strict-mode violation.
func (d *fakeDOM) resolveStrict(selector string, calls *int) func(ctx context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		if calls != nil {
			*calls++
		}
		nodes := d.match(selector)
		switch len(nodes) {
		case 0:
			return nil, &schemas.NotActionableError{Predicate: PredicateAttached}
		case 1:
			return nodes[0], nil
		default:
			return nil, &schemas.StrictModeViolationError{Selector: selector, Matches: len(nodes)}
		}
	}
}

// probeAttrs checks the attribute-modeled preconditions in the order the real
// prober does: visible, stable, enabled, receives events.
func (d *fakeDOM) probeAttrs(calls *int) func(ctx context.Context, target any) error {
	return func(ctx context.Context, target any) error {
		if calls != nil {
			*calls++
		}
		n := target.(*html.Node)
		d.mu.Lock()
		defer d.mu.Unlock()
		switch {
		case hasAttr(n, "hidden"):
			return &schemas.NotActionableError{Predicate: PredicateVisible}
		case hasAttr(n, "moving"):
			return &schemas.NotActionableError{Predicate: PredicateStable}
		case hasAttr(n, "disabled"):
			return &schemas.NotActionableError{Predicate: PredicateEnabled}
		case hasAttr(n, "obscured"):
			return &schemas.NotActionableError{Predicate: PredicateReceivesEvents}
		}
		return nil
	}
}
