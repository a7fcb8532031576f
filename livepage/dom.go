package livepage

import (
	"context"

	"github.com/go-rod/rod"
)

// Node is one element the extraction strategies read from.
type Node interface {
	// Attr returns an attribute value and whether it exists.
	Attr(ctx context.Context, name string) (string, bool, error)
	// Text returns the rendered inner text.
	Text(ctx context.Context) (string, error)
	// HTML returns the outer HTML, for markdown conversion.
	HTML(ctx context.Context) (string, error)
	// All queries descendants by CSS selector.
	All(ctx context.Context, selector string) ([]Node, error)
}

// DOM is the query surface the strategies need from a loaded page.
// A rod page satisfies it via rodDOM; tests use a fake.
type DOM interface {
	// All returns every element matching the selector, without waiting.
	All(ctx context.Context, selector string) ([]Node, error)
}

type rodDOM struct {
	page *rod.Page
}

func (d rodDOM) All(ctx context.Context, selector string) ([]Node, error) {
	els, err := d.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, rodNode{el: el})
	}
	return nodes, nil
}

type rodNode struct {
	el *rod.Element
}

func (n rodNode) Attr(ctx context.Context, name string) (string, bool, error) {
	v, err := n.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (n rodNode) Text(ctx context.Context) (string, error) {
	return n.el.Context(ctx).Text()
}

func (n rodNode) HTML(ctx context.Context) (string, error) {
	return n.el.Context(ctx).HTML()
}

func (n rodNode) All(ctx context.Context, selector string) ([]Node, error) {
	els, err := n.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, rodNode{el: el})
	}
	return nodes, nil
}
