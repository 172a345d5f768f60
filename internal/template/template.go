// Package template expands prompt templates of the form
// "Fix this: {{select}}" by resolving each placeholder against a live
// context source (text selection, clipboard, browser page content).
package template

import (
	"fmt"
	"strconv"
	"strings"
)

// SourceKind enumerates the closed set of context sources a placeholder
// can dispatch to.
type SourceKind int

const (
	KindUnknown SourceKind = iota
	KindSelection
	KindClipboard
	KindBrowser
)

// BrowserQuery carries the attributes parsed from a content placeholder,
// e.g. {{content format="text" cssSelector="h1" tabId=2}}.
type BrowserQuery struct {
	Format      string // "markdown" (default), "text" or "html"
	CSSSelector string
	TabID       *int
}

// Sources provides the live text behind each placeholder kind. Every
// accessor may fail when the capability is unavailable; the failure
// aborts the render rather than substituting an empty string.
type Sources interface {
	SelectedText() (string, error)
	ClipboardText() (string, error)
	BrowserContent(q BrowserQuery) (string, error)
}

// Classify maps a placeholder key to its context source. The key is the
// full tag body; dispatch happens on its first word.
func Classify(key string) (SourceKind, BrowserQuery) {
	fields := strings.Fields(key)
	if len(fields) == 0 {
		return KindUnknown, BrowserQuery{}
	}
	switch head := fields[0]; {
	case head == "select" || head == "selectText" || head == "selection":
		return KindSelection, BrowserQuery{}
	case head == "clipboard" || head == "clipboardText":
		return KindClipboard, BrowserQuery{}
	case strings.HasPrefix(head, "content"):
		return KindBrowser, parseBrowserQuery(key)
	default:
		return KindUnknown, BrowserQuery{}
	}
}

// parseBrowserQuery reads name="value" and name=123 attributes after the
// content keyword, in any order. Unrecognized attributes are ignored.
func parseBrowserQuery(key string) BrowserQuery {
	q := BrowserQuery{Format: "markdown"}

	rest := strings.TrimPrefix(strings.TrimSpace(key), "content")
	for {
		rest = strings.TrimLeft(rest, " \t\n")
		if rest == "" {
			break
		}
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			break
		}
		name := strings.TrimSpace(rest[:eq])
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				break
			}
			value = rest[1 : 1+end]
			rest = rest[end+2:]
		} else {
			end := strings.IndexAny(rest, " \t\n")
			if end < 0 {
				end = len(rest)
			}
			value = rest[:end]
			rest = rest[end:]
		}

		switch name {
		case "format":
			if value == "markdown" || value == "text" || value == "html" {
				q.Format = value
			}
		case "cssSelector":
			q.CSSSelector = value
		case "tabId":
			if n, err := strconv.Atoi(value); err == nil {
				q.TabID = &n
			}
		}
	}
	return q
}

// Engine renders prompt templates against a set of context sources.
type Engine struct {
	sources Sources
}

func NewEngine(sources Sources) *Engine {
	return &Engine{sources: sources}
}

// Render expands the template. Each distinct recognized placeholder is
// resolved exactly once; unrecognized placeholders stay literally in the
// output. The second return value is the first resolved value in key
// order, used by callers that need a single primary extracted text.
func (e *Engine) Render(tmpl string) (string, string, error) {
	nodes, err := parse(tmpl)
	if err != nil {
		return "", "", err
	}

	keys := collectKeys(nodes, nil)

	view := make(map[string]string, len(keys))
	primary := ""
	havePrimary := false
	for _, key := range keys {
		kind, query := Classify(key)
		if kind == KindUnknown {
			continue
		}
		value, err := e.resolve(kind, query)
		if err != nil {
			return "", "", fmt.Errorf("resolve {{%s}}: %w", key, err)
		}
		view[key] = value
		if !havePrimary {
			primary = value
			havePrimary = true
		}
	}

	var sb strings.Builder
	renderNodes(&sb, nodes, view)
	return sb.String(), primary, nil
}

func (e *Engine) resolve(kind SourceKind, query BrowserQuery) (string, error) {
	switch kind {
	case KindSelection:
		return e.sources.SelectedText()
	case KindClipboard:
		return e.sources.ClipboardText()
	case KindBrowser:
		return e.sources.BrowserContent(query)
	default:
		return "", fmt.Errorf("unknown context source")
	}
}
