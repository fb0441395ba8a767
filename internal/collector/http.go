package collector

import (
	"context"
	"fmt"
	"strings"

	"PriceSentinel/internal/model"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// blockSelector lists elements whose text ends a line.
const blockSelector = "p, div, li, tr, td, th, h1, h2, h3, h4, h5, h6, section, article, header, footer, dt, dd, table"

// HTTPRenderer fetches pages without a browser. It sees only server-rendered
// markup, which is enough for pages that ship their price history in HTML.
type HTTPRenderer struct {
	client *resty.Client
}

// NewHTTPRenderer creates a resty client with the configured user agent,
// locale and proxy.
func NewHTTPRenderer(opts Options) *HTTPRenderer {
	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept-Language", acceptLanguage(opts.Locale))
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}
	return &HTTPRenderer{client: client}
}

func (r *HTTPRenderer) Name() string { return "http" }

func (r *HTTPRenderer) Close() error { return nil }

func (r *HTTPRenderer) Render(ctx context.Context, url string) (*model.Page, error) {
	resp, err := r.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, renderFailure(ctx, url, err)
	}
	if resp.IsError() {
		return nil, &RenderError{URL: url, Err: fmt.Errorf("%w: HTTP %d", ErrRender, resp.StatusCode())}
	}

	html := resp.String()
	title, text, err := VisibleText(html)
	if err != nil {
		return nil, &RenderError{URL: url, Err: fmt.Errorf("%w: %v", ErrRender, err)}
	}

	finalURL := url
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}
	return &model.Page{URL: url, FinalURL: finalURL, Title: title, Text: text, HTML: html}, nil
}

// VisibleText approximates document.body.innerText for static markup: scripts
// and styles are dropped and block elements end with a newline.
func VisibleText(html string) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript, template, svg").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelector).AppendHtml("\n")

	body := doc.Find("body")
	if body.Length() == 0 {
		return title, strings.TrimSpace(doc.Text()), nil
	}
	return title, strings.TrimSpace(body.Text()), nil
}
