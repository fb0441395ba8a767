package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"PriceSentinel/internal/model"
)

var (
	// ErrRender is returned when a page could not be loaded or read.
	ErrRender = errors.New("render failed")
	// ErrRenderTimeout is returned when a page did not finish within its timeout.
	ErrRenderTimeout = errors.New("render timed out")
)

// Renderer turns a URL into page text.
type Renderer interface {
	Render(ctx context.Context, url string) (*model.Page, error)
	Name() string
	Close() error
}

// RenderError wraps a renderer failure with the URL it happened on.
type RenderError struct {
	URL string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.URL, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// renderFailure classifies err as a timeout or a generic render failure.
// Errors that already carry one of the sentinels keep their text.
func renderFailure(ctx context.Context, url string, err error) error {
	if errors.Is(err, ErrRenderTimeout) || errors.Is(err, ErrRender) {
		return &RenderError{URL: url, Err: err}
	}
	var ne net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout())
	if timeout {
		return &RenderError{URL: url, Err: fmt.Errorf("%w: %v", ErrRenderTimeout, err)}
	}
	return &RenderError{URL: url, Err: fmt.Errorf("%w: %v", ErrRender, err)}
}

// Options configures the real renderers.
type Options struct {
	UserAgent    string
	Locale       string
	Timeout      time.Duration
	ChromePath   string
	Proxy        string
	ScrollRounds int
}

// DefaultOptions returns the settings used for prisjakt.no.
func DefaultOptions() Options {
	return Options{
		UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Locale:       "nb-NO",
		Timeout:      45 * time.Second,
		ScrollRounds: 6,
	}
}

// acceptLanguage builds an Accept-Language header value for a locale like nb-NO.
func acceptLanguage(locale string) string {
	if locale == "" {
		return "nb-NO,nb;q=0.9,no;q=0.8,en;q=0.5"
	}
	lang, _, _ := strings.Cut(locale, "-")
	if lang == locale {
		return locale + ",en;q=0.5"
	}
	return fmt.Sprintf("%s,%s;q=0.9,en;q=0.5", locale, lang)
}

// MockRenderer returns fixed pages for development and testing.
type MockRenderer struct {
	Pages  map[string]*model.Page
	Errors map[string]error
	Calls  []string
}

// NewMockRenderer returns an empty MockRenderer.
func NewMockRenderer() *MockRenderer {
	return &MockRenderer{Pages: map[string]*model.Page{}, Errors: map[string]error{}}
}

// AddText registers a page that renders to text.
func (m *MockRenderer) AddText(url, title, text string) {
	m.Pages[url] = &model.Page{URL: url, FinalURL: url, Title: title, Text: text}
}

// AddHTML registers a page with markup and text.
func (m *MockRenderer) AddHTML(url, html, text string) {
	m.Pages[url] = &model.Page{URL: url, FinalURL: url, HTML: html, Text: text}
}

func (m *MockRenderer) Name() string { return "mock" }

func (m *MockRenderer) Close() error { return nil }

func (m *MockRenderer) Render(ctx context.Context, url string) (*model.Page, error) {
	m.Calls = append(m.Calls, url)
	if err := ctx.Err(); err != nil {
		return nil, renderFailure(ctx, url, err)
	}
	if err, ok := m.Errors[url]; ok {
		return nil, renderFailure(ctx, url, err)
	}
	p, ok := m.Pages[url]
	if !ok {
		return nil, &RenderError{URL: url, Err: fmt.Errorf("%w: no page for %s", ErrRender, url)}
	}
	cp := *p
	return &cp, nil
}
