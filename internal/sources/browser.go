package sources

import (
	"fmt"
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"quill/internal/logger"
	"quill/internal/template"
)

const elementTimeout = 10 * time.Second

// Browser reads page content from an already-running browser over the
// DevTools protocol. The connection is established lazily on first use
// and kept for the rest of the session.
type Browser struct {
	controlURL string

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowser wraps a DevTools endpoint such as "127.0.0.1:9222".
func NewBrowser(debugURL string) *Browser {
	return &Browser{controlURL: debugURL}
}

func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	u, err := launcher.ResolveURL(b.controlURL)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve devtools url %q: %v", ErrUnavailable, b.controlURL, err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect browser: %v", ErrUnavailable, err)
	}
	b.browser = browser
	return browser, nil
}

// Content fetches the page (or a selected element) in the requested
// format. tabId indexes the browser's open pages; without it the first
// page is used.
func (b *Browser) Content(q template.BrowserQuery) (string, error) {
	browser, err := b.connect()
	if err != nil {
		return "", err
	}

	pages, err := browser.Pages()
	if err != nil {
		return "", fmt.Errorf("%w: list pages: %v", ErrUnavailable, err)
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("%w: browser has no open pages", ErrUnavailable)
	}

	idx := 0
	if q.TabID != nil {
		idx = *q.TabID
		if idx < 0 || idx >= len(pages) {
			return "", fmt.Errorf("%w: no page with tabId %d", ErrUnavailable, idx)
		}
	}
	page := pages[idx]

	var rawHTML string
	if q.CSSSelector != "" {
		el, err := page.Timeout(elementTimeout).Element(q.CSSSelector)
		if err != nil {
			return "", fmt.Errorf("%w: element %q: %v", ErrUnavailable, q.CSSSelector, err)
		}
		rawHTML, err = el.HTML()
		if err != nil {
			return "", fmt.Errorf("%w: element html: %v", ErrUnavailable, err)
		}
	} else {
		rawHTML, err = page.HTML()
		if err != nil {
			return "", fmt.Errorf("%w: page html: %v", ErrUnavailable, err)
		}
	}

	logger.Debug("browser content fetched", "format", q.Format, "selector", q.CSSSelector, "bytes", len(rawHTML))

	text, err := FormatHTML(rawHTML, q.Format)
	if err != nil {
		return "", err
	}
	return DecodeEntities(text), nil
}

// FormatHTML renders raw page HTML as markdown, plain text, or leaves
// it untouched.
func FormatHTML(rawHTML, format string) (string, error) {
	switch format {
	case "", "markdown":
		md, err := htmltomarkdown.ConvertString(rawHTML)
		if err != nil {
			return "", fmt.Errorf("convert html to markdown: %w", err)
		}
		return strings.TrimSpace(md), nil
	case "text":
		return extractText(rawHTML)
	case "html":
		return rawHTML, nil
	default:
		return "", fmt.Errorf("unsupported content format %q", format)
	}
}
