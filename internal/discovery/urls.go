package discovery

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"PriceSentinel/internal/model"
	"PriceSentinel/internal/normalizer"

	"github.com/PuerkitoBio/goquery"
)

var reDigits = regexp.MustCompile(`^\d+$`)

// trackingParams are query parameters that never identify a product.
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"dclid":   true,
	"yclid":   true,
	"ref":     true,
	"ref_src": true,
	"mc_cid":  true,
	"mc_eid":  true,
	"_ga":     true,
	"_gl":     true,
	"igshid":  true,
	"spm":     true,
}

func isTracking(key string) bool {
	k := strings.ToLower(key)
	return trackingParams[k] || strings.HasPrefix(k, "utm_")
}

// Site describes where products live on the price-comparison site.
type Site struct {
	BaseURL        string
	ProductPath    string
	ProductIDParam string
	// SearchURLs are templates with one %s for the query-escaped keyword.
	SearchURLs []string
	// CategoryURLs maps a folded category keyword to its listing page.
	CategoryURLs map[string]string
}

// DefaultSite returns the prisjakt.no layout.
func DefaultSite() Site {
	return Site{
		BaseURL:        "https://www.prisjakt.no",
		ProductPath:    "/product.php",
		ProductIDParam: "p",
		SearchURLs: []string{
			"https://www.prisjakt.no/search?q=%s",
			"https://www.prisjakt.no/?q=%s",
		},
		CategoryURLs: map[string]string{
			"tv":              "https://www.prisjakt.no/c/tv",
			"mobiltelefoner":  "https://www.prisjakt.no/c/mobiltelefoner",
			"baerbarepcer":    "https://www.prisjakt.no/c/baerbare-pc-er",
			"hodetelefoner":   "https://www.prisjakt.no/c/hodetelefoner",
			"skjermer":        "https://www.prisjakt.no/c/skjermer",
			"smartklokker":    "https://www.prisjakt.no/c/smartklokker",
			"robotstovsugere": "https://www.prisjakt.no/c/robotstovsugere",
			"nettbrett":       "https://www.prisjakt.no/c/nettbrett",
			"spillkonsoller":  "https://www.prisjakt.no/c/spillkonsoller",
		},
	}
}

// CategoryURL returns the listing page for a category keyword, if one is configured.
func (s Site) CategoryURL(keyword string) (string, bool) {
	key := normalizer.FoldKey(keyword)
	if u, ok := s.CategoryURLs[key]; ok {
		return u, true
	}
	// configured keys may be written unfolded
	for k, u := range s.CategoryURLs {
		if normalizer.FoldKey(k) == key {
			return u, true
		}
	}
	return "", false
}

// SourceURLs lists the pages to visit for a keyword: the category listing
// first, then every search template.
func (s Site) SourceURLs(keyword string) []string {
	var out []string
	if u, ok := s.CategoryURL(keyword); ok {
		out = append(out, u)
	}
	q := url.QueryEscape(strings.TrimSpace(keyword))
	for _, tmpl := range s.SearchURLs {
		out = append(out, fmt.Sprintf(tmpl, q))
	}
	return out
}

// NormalizeURL resolves raw against base and returns its canonical form:
// https, the base host when raw points at the same site, no fragment, no
// tracking parameters and a sorted query.
func NormalizeURL(raw, base string) (string, error) {
	raw = strings.TrimSpace(html.UnescapeString(raw))
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	u := b.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	if bareHost(u.Host) == bareHost(b.Host) {
		u.Host = strings.ToLower(b.Host)
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	q := u.Query()
	for k := range q {
		if isTracking(k) {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

func bareHost(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}

// ProductURL normalizes raw and reports whether it is a product page. Product
// URLs keep only the product id parameter.
func (s Site) ProductURL(raw string) (string, bool) {
	norm, err := NormalizeURL(raw, s.BaseURL)
	if err != nil {
		return "", false
	}
	u, err := url.Parse(norm)
	if err != nil {
		return "", false
	}
	b, err := url.Parse(s.BaseURL)
	if err != nil || u.Host != strings.ToLower(b.Host) || u.Path != s.ProductPath {
		return "", false
	}
	id := u.Query().Get(s.ProductIDParam)
	if !reDigits.MatchString(id) {
		return "", false
	}
	u.RawQuery = url.Values{s.ProductIDParam: {id}}.Encode()
	return u.String(), true
}

func (s Site) productPattern() *regexp.Regexp {
	return regexp.MustCompile(`(?:https?://[A-Za-z0-9.-]+)?` + regexp.QuoteMeta(s.ProductPath) + `\?[^\s"'<>\\]+`)
}

// ExtractProductURLs returns the product URLs on a rendered page in the order
// they appear: anchors first, then matches in the text and raw markup.
func (s Site) ExtractProductURLs(page *model.Page) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(raw string) {
		raw = strings.TrimRight(raw, ".,;:)]")
		if u, ok := s.ProductURL(raw); ok && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	if page.HTML != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML)); err == nil {
			doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				add(href)
			})
		}
	}

	re := s.productPattern()
	for _, blob := range []string{normalizer.Normalize(page.Text), page.HTML} {
		for _, m := range re.FindAllString(blob, -1) {
			add(m)
		}
	}
	return out
}
