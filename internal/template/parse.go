package template

import (
	"fmt"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// node is one piece of a parsed template: literal text, a name tag, or
// a section block ({{#key}}...{{/key}} and its inverted {{^key}} form).
type node struct {
	literal  string
	tag      string // raw tag body including attributes and spacing
	key      string // trimmed tag body
	section  bool
	inverted bool
	children []node
}

func parse(tmpl string) ([]node, error) {
	nodes, rest, err := parseUntil(tmpl, "")
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("unexpected section close near %q", head(rest))
	}
	return nodes, nil
}

// parseUntil consumes nodes until the closing tag for section key (or
// end of input when key is empty). It returns the remaining input after
// the close tag.
func parseUntil(input, key string) ([]node, string, error) {
	var nodes []node
	for {
		open := strings.Index(input, openDelim)
		if open < 0 {
			if key != "" {
				return nil, "", fmt.Errorf("unclosed section {{#%s}}", key)
			}
			if input != "" {
				nodes = append(nodes, node{literal: input})
			}
			return nodes, "", nil
		}

		if open > 0 {
			nodes = append(nodes, node{literal: input[:open]})
		}
		rest := input[open+len(openDelim):]
		end := strings.Index(rest, closeDelim)
		if end < 0 {
			// Dangling open delimiter, keep it as literal text.
			nodes = append(nodes, node{literal: input[open:]})
			return nodes, "", nil
		}

		raw := rest[:end]
		input = rest[end+len(closeDelim):]
		trimmed := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(trimmed, "/"):
			closing := strings.TrimSpace(trimmed[1:])
			if key == "" || closing != key {
				return nil, "", fmt.Errorf("unexpected {{/%s}}", closing)
			}
			return nodes, input, nil

		case strings.HasPrefix(trimmed, "#"), strings.HasPrefix(trimmed, "^"):
			sectionKey := strings.TrimSpace(trimmed[1:])
			children, remaining, err := parseUntil(input, sectionKey)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node{
				tag:      raw,
				key:      sectionKey,
				section:  true,
				inverted: strings.HasPrefix(trimmed, "^"),
				children: children,
			})
			input = remaining

		default:
			nodes = append(nodes, node{tag: raw, key: trimmed})
		}
	}
}

// collectKeys gathers the distinct placeholder keys referenced by the
// template in first-occurrence order. Inverted sections contribute their
// children but not their own key, matching how a falsy key is the whole
// point of an inverted block.
func collectKeys(nodes []node, keys []string) []string {
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	var walk func([]node)
	walk = func(ns []node) {
		for _, n := range ns {
			switch {
			case n.section && n.inverted:
				walk(n.children)
			case n.section:
				if !seen[n.key] {
					seen[n.key] = true
					keys = append(keys, n.key)
				}
				walk(n.children)
			case n.tag != "":
				if !seen[n.key] {
					seen[n.key] = true
					keys = append(keys, n.key)
				}
			}
		}
	}
	walk(nodes)
	return keys
}

func renderNodes(sb *strings.Builder, nodes []node, view map[string]string) {
	for _, n := range nodes {
		switch {
		case n.section:
			value, known := view[n.key]
			kind, _ := Classify(n.key)
			if kind == KindUnknown {
				// Preserve the whole unrecognized block verbatim.
				marker := "#"
				if n.inverted {
					marker = "^"
				}
				sb.WriteString(openDelim + marker + n.key + closeDelim)
				renderNodes(sb, n.children, view)
				sb.WriteString(openDelim + "/" + n.key + closeDelim)
				continue
			}
			truthy := known && value != ""
			if truthy != n.inverted {
				renderNodes(sb, n.children, view)
			}
		case n.tag != "":
			if value, ok := view[n.key]; ok {
				sb.WriteString(value)
			} else {
				sb.WriteString(openDelim + n.tag + closeDelim)
			}
		default:
			sb.WriteString(n.literal)
		}
	}
}

func head(s string) string {
	if len(s) > 24 {
		return s[:24]
	}
	return s
}
