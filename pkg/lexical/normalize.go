// Package lexical flattens rich-editor JSON (Lexical format) into plain text
// for the indexing pipeline. Styling is dropped on purpose: bold markers and
// span annotations are noise for both embedding models and keyword scoring.
package lexical

import (
	"encoding/json"
	"strconv"
	"strings"
)

type root struct {
	Root node `json:"root"`
}

type node struct {
	Type     string `json:"type"`
	Children []node `json:"children,omitempty"`
	Text     string `json:"text,omitempty"`
	Tag      string `json:"tag,omitempty"`
	ListType string `json:"listType,omitempty"`
	Start    int    `json:"start,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ParseContent normalizes note content for indexing. Content that is not
// Lexical JSON (or fails to parse) is returned unchanged.
func ParseContent(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, `{"root":`) {
		return content
	}

	var r root
	if err := json.Unmarshal([]byte(trimmed), &r); err != nil {
		return content
	}

	var sb strings.Builder
	walk(r.Root, &sb, 0)
	return strings.TrimSpace(sb.String())
}

func walk(n node, sb *strings.Builder, depth int) {
	switch n.Type {
	case "root":
		for _, child := range n.Children {
			walk(child, sb, depth)
			sb.WriteString("\n")
		}

	case "text":
		sb.WriteString(n.Text)

	case "linebreak":
		sb.WriteString("\n")

	case "heading", "quote", "paragraph":
		for _, child := range n.Children {
			walk(child, sb, depth)
		}
		sb.WriteString("\n")

	case "list":
		writeList(n, sb, depth)

	case "table":
		writeTable(n, sb)

	case "link":
		for _, child := range n.Children {
			walk(child, sb, depth)
		}
		if n.URL != "" {
			sb.WriteString(" (" + n.URL + ")")
		}

	case "horizontalrule":
		// purely visual, skip

	default:
		for _, child := range n.Children {
			walk(child, sb, depth)
		}
	}
}

func writeList(n node, sb *strings.Builder, depth int) {
	index := n.Start
	if index <= 0 {
		index = 1
	}

	for _, item := range n.Children {
		if item.Type != "listitem" {
			continue
		}

		// Nested lists appear as child "list" nodes inside the item.
		var inline strings.Builder
		for _, child := range item.Children {
			if child.Type == "list" {
				continue
			}
			walk(child, &inline, depth)
		}

		sb.WriteString(strings.Repeat("  ", depth))
		if n.ListType == "number" {
			sb.WriteString(strconv.Itoa(index) + ". ")
			index++
		} else {
			sb.WriteString("- ")
		}
		sb.WriteString(strings.TrimSpace(inline.String()))
		sb.WriteString("\n")

		for _, child := range item.Children {
			if child.Type == "list" {
				writeList(child, sb, depth+1)
			}
		}
	}
}

func writeTable(n node, sb *strings.Builder) {
	for _, row := range n.Children {
		if row.Type != "tablerow" {
			continue
		}
		var cells []string
		for _, cell := range row.Children {
			var cellText strings.Builder
			walk(cell, &cellText, 0)
			cells = append(cells, strings.TrimSpace(cellText.String()))
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString("\n")
	}
}
