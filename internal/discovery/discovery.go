// Package discovery finds product pages on category listings and search
// results and deduplicates them by normalized URL.
package discovery

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/model"
)

// Discoverer collects product candidates into an injected URLSet.
type Discoverer struct {
	Renderer collector.Renderer
	Site     Site
	Set      *URLSet
}

// NewDiscoverer creates a Discoverer writing into set.
func NewDiscoverer(renderer collector.Renderer, site Site, set *URLSet) *Discoverer {
	return &Discoverer{Renderer: renderer, Site: site, Set: set}
}

// AddExplicit adds user-supplied URLs with the manual category. Lines that are
// not absolute http(s) URLs are skipped. It returns the number of new candidates.
func (d *Discoverer) AddExplicit(urls []string) int {
	added := 0
	for _, raw := range urls {
		norm, ok := d.Site.ProductURL(raw)
		if !ok {
			var err error
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "http") {
				log.Printf("[WARN] Skipping explicit URL %q: not an absolute URL", raw)
				continue
			}
			if norm, err = NormalizeURL(raw, d.Site.BaseURL); err != nil {
				log.Printf("[WARN] Skipping explicit URL %q: %v", raw, err)
				continue
			}
		}
		if d.Set.Add(model.ProductCandidate{URL: norm, SourceCategory: model.CategoryManual}) {
			added++
		}
	}
	return added
}

// Discover visits the sources of each category keyword until max new
// candidates were found for it. A failing source is logged and the next one
// is tried. It returns the number of candidates added, and ctx.Err() if the
// context was cancelled.
func (d *Discoverer) Discover(ctx context.Context, categories []string, max int) (int, error) {
	total := 0
	for _, category := range categories {
		category = strings.TrimSpace(category)
		if category == "" || max <= 0 {
			continue
		}
		n, err := d.discoverCategory(ctx, category, max)
		total += n
		if err != nil {
			return total, err
		}
		log.Printf("[INFO] Category %q: %d new products", category, n)
	}
	return total, nil
}

func (d *Discoverer) discoverCategory(ctx context.Context, category string, max int) (int, error) {
	added := 0
	for _, src := range d.Site.SourceURLs(category) {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		page, err := d.Renderer.Render(ctx, src)
		if err != nil {
			log.Printf("[WARN] Discovery source %s failed: %v", src, err)
			continue
		}
		for _, u := range d.Site.ExtractProductURLs(page) {
			if d.Set.Add(model.ProductCandidate{URL: u, SourceCategory: category}) {
				added++
				if added >= max {
					return added, nil
				}
			}
		}
	}
	if added == 0 {
		log.Printf("[WARN] Category %q: no product URLs found", category)
	}
	return added, nil
}

// ReadURLFile reads one URL per line. Blank lines and lines starting with #
// are ignored.
func ReadURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}
	return urls, nil
}
