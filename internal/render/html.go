package render

import (
	"html"
	"strings"
)

var voidTags = map[string]struct{}{
	"input": {},
	"br":    {},
	"hr":    {},
	"img":   {},
}

// HTML encodes e as escaped markup.
func HTML(e Element) string {
	var b strings.Builder
	writeHTML(&b, e)
	return b.String()
}

func writeHTML(b *strings.Builder, e Element) {
	tag := e.Tag
	if tag == "" {
		tag = "div"
	}

	b.WriteByte('<')
	b.WriteString(tag)
	if e.Class != "" {
		writeAttr(b, "class", e.Class)
	}
	for _, a := range e.Attrs {
		writeAttr(b, a.Key, a.Value)
	}
	b.WriteByte('>')

	if _, ok := voidTags[tag]; ok {
		return
	}

	b.WriteString(html.EscapeString(e.Text))
	for _, child := range e.Children {
		writeHTML(b, child)
	}

	b.WriteString("</")
	b.WriteString(tag)
	b.WriteByte('>')
}

func writeAttr(b *strings.Builder, key, value string) {
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteString(`="`)
	b.WriteString(html.EscapeString(value))
	b.WriteByte('"')
}
