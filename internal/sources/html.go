package sources

import (
	"strings"

	"golang.org/x/net/html"
)

// entityTable lists the numeric character references the browser layer
// is known to over-escape. Only these are decoded; everything else in
// the page text is left alone.
var entityTable = [...][2]string{
	{"&amp;", "&"},
	{"&#32;", " "},
	{"&#33;", "!"},
	{"&#34;", `"`},
	{"&#35;", "#"},
	{"&#36;", "$"},
	{"&#37;", "%"},
	{"&#38;", "&"},
	{"&#39;", "'"},
	{"&#40;", "("},
	{"&#41;", ")"},
	{"&#42;", "*"},
	{"&#43;", "+"},
	{"&#44;", ","},
	{"&#45;", "-"},
	{"&#46;", "."},
	{"&#47;", "/"},
	{"&#91;", "["},
	{"&#92;", `\`},
	{"&#93;", "]"},
	{"&#94;", "^"},
	{"&#95;", "_"},
	{"&#96;", "`"},
	{"&#123;", "{"},
	{"&#124;", "|"},
	{"&#125;", "}"},
	{"&#126;", "~"},
}

// DecodeEntities reverses the fixed set of numeric escapes on resolved
// browser text. Applied once to the final text, not to the template.
func DecodeEntities(s string) string {
	for _, pair := range entityTable {
		s = strings.ReplaceAll(s, pair[0], pair[1])
	}
	return s
}

// extractText walks the parsed document collecting visible text nodes,
// skipping script and style subtrees.
func extractText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String(), nil
}
