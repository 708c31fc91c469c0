// Package render turns turns and their components into UI element trees and
// encodes those trees as HTML for the widget or styled text for terminals.
package render

import "strings"

// Element is a node of a rendered UI tree. Trees are values: building one has
// no side effects and encoding one never mutates it.
type Element struct {
	Tag      string
	Class    string
	Text     string
	Attrs    []Attr
	Children []Element
}

// Attr is an element attribute. Order is preserved when encoding.
type Attr struct {
	Key   string
	Value string
}

func el(tag, class, text string, children ...Element) Element {
	return Element{Tag: tag, Class: class, Text: text, Children: children}
}

func (e Element) with(attrs ...Attr) Element {
	e.Attrs = append(append([]Attr(nil), e.Attrs...), attrs...)
	return e
}

// HasClass reports whether class is one of e's space separated classes.
func (e Element) HasClass(class string) bool {
	for _, c := range strings.Fields(e.Class) {
		if c == class {
			return true
		}
	}
	return false
}

// Attr returns the value of key, if present.
func (e Element) Attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns the first element in depth-first order carrying class.
func (e Element) Find(class string) (Element, bool) {
	if e.HasClass(class) {
		return e, true
	}
	for _, child := range e.Children {
		if found, ok := child.Find(class); ok {
			return found, true
		}
	}
	return Element{}, false
}

// TextContent concatenates the text of e and its descendants, space separated.
func (e Element) TextContent() string {
	parts := make([]string, 0, 1+len(e.Children))
	if e.Text != "" {
		parts = append(parts, e.Text)
	}
	for _, child := range e.Children {
		if text := child.TextContent(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
