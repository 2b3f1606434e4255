package parsers

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlTable is a flattened <table>: rows of trimmed cell text, plus the text
// of the nearest preceding paragraph, used to locate section-scoped tables.
type htmlTable struct {
	section string
	rows    [][]string
}

func (t htmlTable) containsCell(substr string) bool {
	for _, row := range t.rows {
		for _, cell := range row {
			if strings.Contains(cell, substr) {
				return true
			}
		}
	}
	return false
}

// documentText returns the concatenated text content of the document, with
// element boundaries rendered as newlines so line-scoped regexes work.
func documentText(doc *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "br", "tr", "div", "table":
				sb.WriteString("\n")
			}
		}
	}
	walk(doc)
	return sb.String()
}

// extractTables walks the document in order, collecting every table and the
// paragraph text last seen before it.
func extractTables(doc *html.Node) []htmlTable {
	var tables []htmlTable
	var lastParagraph string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "h1", "h2", "h3", "b":
				if text := nodeText(n); text != "" {
					lastParagraph = text
				}
			case "table":
				tables = append(tables, htmlTable{
					section: lastParagraph,
					rows:    tableRows(n),
				})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tables
}

func tableRows(table *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, nodeText(c))
				}
			}
			rows = append(rows, cells)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
