// Package dom exposes the small set of HTML queries the parsers need, backed by
// goquery CSS selectors.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is an element (or the document root) that can be queried with CSS
// selectors. Implementations never panic on missing structure.
type Node interface {
	// First returns the first descendant matching selector.
	First(selector string) (Node, bool)
	// FindAll returns every descendant matching selector in document order.
	FindAll(selector string) []Node
	// Attr returns the value of the named attribute.
	Attr(name string) (string, bool)
	// Text returns the combined text of the node with surrounding whitespace trimmed.
	Text() string
}

// Parse builds a document Node from an HTML string.
func Parse(body string) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return selection{sel: doc.Selection}, nil
}

type selection struct {
	sel *goquery.Selection
}

func (s selection) First(selector string) (Node, bool) {
	match := s.sel.Find(selector).First()
	if match.Length() == 0 {
		return nil, false
	}
	return selection{sel: match}, true
}

func (s selection) FindAll(selector string) []Node {
	matches := s.sel.Find(selector)
	nodes := make([]Node, 0, matches.Length())
	matches.Each(func(_ int, m *goquery.Selection) {
		nodes = append(nodes, selection{sel: m})
	})
	return nodes
}

func (s selection) Attr(name string) (string, bool) {
	return s.sel.Attr(name)
}

func (s selection) Text() string {
	return strings.TrimSpace(s.sel.Text())
}
