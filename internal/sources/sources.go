// Package sources reads the live context a prompt template can
// reference: the current text selection, the clipboard, and the content
// of a running browser.
package sources

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"

	"quill/internal/template"
)

// ErrUnavailable marks a context source that cannot be read right now:
// no selection, no clipboard support, no browser to attach to. Callers
// must abort the action instead of substituting an empty string.
var ErrUnavailable = errors.New("context source unavailable")

// Live wires the real accessors behind template.Sources. Browser may be
// nil when no debug endpoint is configured.
type Live struct {
	Browser *Browser
}

// NewLive builds the live sources for a session. An empty debugURL
// leaves Browser nil so browser placeholders resolve as unavailable
// instead of attaching to the default DevTools port.
func NewLive(debugURL string) *Live {
	l := &Live{}
	if debugURL != "" {
		l.Browser = NewBrowser(debugURL)
	}
	return l
}

func (l *Live) SelectedText() (string, error) {
	// X11 exposes the active selection as the primary buffer; restore
	// the flag so ClipboardText keeps reading the regular clipboard.
	clipboard.Primary = true
	text, err := clipboard.ReadAll()
	clipboard.Primary = false
	if err != nil {
		return "", fmt.Errorf("%w: read selection: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text selected", ErrUnavailable)
	}
	return text, nil
}

func (l *Live) ClipboardText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: read clipboard: %v", ErrUnavailable, err)
	}
	return text, nil
}

func (l *Live) BrowserContent(q template.BrowserQuery) (string, error) {
	if l.Browser == nil {
		return "", fmt.Errorf("%w: no browser debug endpoint configured", ErrUnavailable)
	}
	return l.Browser.Content(q)
}
