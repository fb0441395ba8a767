package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"PriceSentinel/internal/flagger"
	"PriceSentinel/internal/model"

	"github.com/shopspring/decimal"
)

const productURL = "https://www.prisjakt.no/product.php?p=123"

const productText = "Samsung 55\" QLED\nLaveste pris 3 mnd 1 000 kr (1. aug 2025)\nLaveste pris nå 1 200 kr\nLaveste pris 30 dager 1 150 kr"

func newTestCollector(r Renderer) *Collector {
	return NewCollector(r, flagger.DefaultThresholds(), 0)
}

func TestCollectProduct_Full(t *testing.T) {
	r := NewMockRenderer()
	r.AddText(productURL, "Samsung 55\" QLED – Prisjakt", productText)

	rec := newTestCollector(r).CollectProduct(context.Background(), model.ProductCandidate{URL: productURL, SourceCategory: "TV"})

	if rec.Status != model.StatusFull {
		t.Fatalf("expected status full, got %s", rec.Status)
	}
	if rec.Title != "Samsung 55\" QLED" {
		t.Errorf("expected cleaned title, got %q", rec.Title)
	}
	if !rec.Metrics.Delta3m.Valid || !rec.Metrics.Delta3m.Decimal.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected delta3m 200, got %+v", rec.Metrics.Delta3m)
	}
	if !rec.Flag.Suspicious || len(rec.Flag.Reasons) != 1 {
		t.Errorf("expected one flag reason, got %+v", rec.Flag)
	}
	if len(rec.Matches) != 3 {
		t.Errorf("expected 3 matches, got %d", len(rec.Matches))
	}
	want := []string{"Laveste 3 mnd: 1000 (01.08.2025)", "Nå: 1200", "Min30: 1150"}
	if !reflect.DeepEqual(rec.Notes, want) {
		t.Errorf("expected notes %v, got %v", want, rec.Notes)
	}
}

func TestCollectProduct_Deterministic(t *testing.T) {
	r := NewMockRenderer()
	r.AddText(productURL, "Samsung", productText)
	c := newTestCollector(r)
	cand := model.ProductCandidate{URL: productURL, SourceCategory: "TV"}

	a, err := json.Marshal(c.CollectProduct(context.Background(), cand))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(c.CollectProduct(context.Background(), cand))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("expected identical records, got\n%s\n%s", a, b)
	}
}

func TestCollectProduct_Miss(t *testing.T) {
	r := NewMockRenderer()
	r.AddText(productURL, "", "Ingen prishistorikk")

	rec := newTestCollector(r).CollectProduct(context.Background(), model.ProductCandidate{URL: productURL})
	if rec.Status != model.StatusMiss {
		t.Errorf("expected status miss, got %s", rec.Status)
	}
	if rec.Flag.Suspicious {
		t.Error("expected a miss not to be suspicious")
	}
	if rec.Label() != productURL {
		t.Errorf("expected label to fall back to URL, got %q", rec.Label())
	}
}

func TestCollectProduct_RenderFailure(t *testing.T) {
	r := NewMockRenderer()
	r.Errors[productURL] = fmt.Errorf("%w: page load", ErrRenderTimeout)

	rec := newTestCollector(r).CollectProduct(context.Background(), model.ProductCandidate{URL: productURL})
	if rec.Status != model.StatusRenderFailed {
		t.Fatalf("expected render_failed, got %s", rec.Status)
	}
	if !strings.Contains(rec.Error, "timed out") {
		t.Errorf("expected timeout in error, got %q", rec.Error)
	}
	if rec.Metrics.Delta3m.Valid {
		t.Error("expected undefined metrics on render failure")
	}
}

func TestCollectAll_ContinuesAfterFailure(t *testing.T) {
	r := NewMockRenderer()
	r.AddText(productURL, "A", productText)
	cands := []model.ProductCandidate{
		{URL: "https://www.prisjakt.no/product.php?p=1"},
		{URL: productURL},
	}

	records := newTestCollector(r).CollectAll(context.Background(), cands)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Status != model.StatusRenderFailed || records[1].Status != model.StatusFull {
		t.Errorf("expected [render_failed full], got [%s %s]", records[0].Status, records[1].Status)
	}
}

func TestCollectAll_Cancelled(t *testing.T) {
	r := NewMockRenderer()
	r.AddText(productURL, "A", productText)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := newTestCollector(r).CollectAll(ctx, []model.ProductCandidate{{URL: productURL}})
	if len(records) != 0 {
		t.Errorf("expected no records after cancel, got %d", len(records))
	}
}

func TestRenderFailure_Classification(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := renderFailure(ctx, productURL, ctx.Err())
	if !errors.Is(err, ErrRenderTimeout) {
		t.Errorf("expected ErrRenderTimeout, got %v", err)
	}
	var re *RenderError
	if !errors.As(err, &re) || re.URL != productURL {
		t.Errorf("expected RenderError for %s, got %v", productURL, err)
	}

	err = renderFailure(context.Background(), productURL, errors.New("net::ERR_NAME_NOT_RESOLVED"))
	if !errors.Is(err, ErrRender) || errors.Is(err, ErrRenderTimeout) {
		t.Errorf("expected ErrRender only, got %v", err)
	}
}

func TestMockRenderer_ErrorsCarrySentinels(t *testing.T) {
	r := NewMockRenderer()
	r.Errors[productURL] = errors.New("net::ERR_CONNECTION_RESET")
	r.Errors["https://www.prisjakt.no/product.php?p=2"] = fmt.Errorf("%w: page load", ErrRenderTimeout)

	_, err := r.Render(context.Background(), productURL)
	if !errors.Is(err, ErrRender) {
		t.Errorf("expected ErrRender, got %v", err)
	}
	var re *RenderError
	if !errors.As(err, &re) || re.URL != productURL {
		t.Errorf("expected RenderError for %s, got %v", productURL, err)
	}

	_, err = r.Render(context.Background(), "https://www.prisjakt.no/product.php?p=2")
	if !errors.Is(err, ErrRenderTimeout) {
		t.Errorf("expected ErrRenderTimeout, got %v", err)
	}

	_, err = r.Render(context.Background(), "https://www.prisjakt.no/product.php?p=3")
	if !errors.Is(err, ErrRender) {
		t.Errorf("expected ErrRender for a missing page, got %v", err)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := map[string]string{
		"Apple iPhone 15 – Prisjakt":     "Apple iPhone 15",
		"Apple iPhone 15 - Prisjakt.no":  "Apple iPhone 15",
		"  Dyson V15 | Prisjakt Norge  ": "Dyson V15",
		"Sony WH-1000XM5":                "Sony WH-1000XM5",
		"":                               "",
	}
	for in, want := range tests {
		if got := CleanTitle(in); got != want {
			t.Errorf("CleanTitle(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestVisibleText(t *testing.T) {
	html := `<html><head><title>LG OLED</title><style>.a{}</style></head><body>
<script>var x = "Laveste pris nå 1";</script>
<div>Laveste pris 3 mnd</div><div>9 990 kr</div><p>Laveste pris nå<br>10 990 kr</p></body></html>`

	title, text, err := VisibleText(html)
	if err != nil {
		t.Fatalf("VisibleText: %v", err)
	}
	if title != "LG OLED" {
		t.Errorf("expected title LG OLED, got %q", title)
	}
	if strings.Contains(text, "var x") {
		t.Errorf("expected script removed, got %q", text)
	}
	for _, want := range []string{"Laveste pris 3 mnd\n", "9 990 kr\n", "Laveste pris nå\n10 990 kr"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q, got %q", want, text)
		}
	}
}

func TestAcceptLanguage(t *testing.T) {
	tests := map[string]string{
		"nb-NO": "nb-NO,nb;q=0.9,en;q=0.5",
		"nb":    "nb,en;q=0.5",
		"":      "nb-NO,nb;q=0.9,no;q=0.8,en;q=0.5",
	}
	for in, want := range tests {
		if got := acceptLanguage(in); got != want {
			t.Errorf("acceptLanguage(%q): expected %q, got %q", in, want, got)
		}
	}
}
