package parser

import (
	"testing"

	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/google/go-cmp/cmp"
)

const detailPage = `<!DOCTYPE html>
<html><body>
  <h1>  Quarterly   results beat estimates </h1>
  <span class="byline">By Jane Roe</span>
  <div class="date-line"><span class="d">March 5, 2024</span><span class="d">10:31 AM GMT</span></div>
  <div class="secondary-time">Mar 5, 2024</div>
  <article class="body">
    Shares rose sharply.
    <div class="article-sharing">Share this article</div>
    Analysts were surprised.
  </article>
  <a class="canonical" href="/business/results-1/">permalink</a>
</body></html>`

func TestExtractFallbackChain(t *testing.T) {
	var fallbacks []string
	e := NewExtractor()
	e.OnFallback = func(field string, index int) {
		fallbacks = append(fallbacks, field)
	}

	specs := []FieldSpec{
		Field("title", "css:h1"),
		Field("time", "css:.content-data.metrics-text", "css:.secondary-time"),
		Field("missing", "css:.nope", "xpath://section[@id='nope']"),
	}

	got, err := e.Extract(detailPage, specs)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := models.Record{
		"title": "Quarterly results beat estimates",
		"time":  "Mar 5, 2024",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if len(fallbacks) != 1 || fallbacks[0] != "time" {
		t.Fatalf("fallbacks = %v, want [time]", fallbacks)
	}
}

func TestExtractFieldOptions(t *testing.T) {
	specs := []FieldSpec{
		{Name: "author", Locators: []Locator{CSSLocator(".byline")}, TrimPrefix: "By"},
		{Name: "date", Locators: []Locator{CSSLocator(".date-line .d")}, All: true},
		{Name: "content", Locators: []Locator{CSSLocator("article.body")}, Exclude: ".article-sharing"},
		{Name: "link", Locators: []Locator{XPathLocator("//a[@class='canonical']").WithAttr("href")}},
	}

	got, err := NewExtractor().Extract(detailPage, specs)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := models.Record{
		"author":  "Jane Roe",
		"date":    "March 5, 2024 10:31 AM GMT",
		"content": "Shares rose sharply. Analysts were surprised.",
		"link":    "/business/results-1/",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractItems(t *testing.T) {
	page := `<html><body><ul>
	  <li class="item"><a class="t" href="/a">Alpha</a><span class="by">Ann</span></li>
	  <li class="item"><a class="t" href="/b">Beta</a></li>
	  <li class="item"><em>advert</em></li>
	</ul></body></html>`

	specs := []FieldSpec{
		{Name: "url", Locators: []Locator{CSSLocator("a.t").WithAttr("href")}},
		Field("title", "css:a.t"),
		Field("author", "css:.by"),
	}

	got, err := NewExtractor().ExtractItems(page, CSSLocator("li.item"), specs)
	if err != nil {
		t.Fatalf("extract items: %v", err)
	}

	want := []models.Record{
		{"url": "/a", "title": "Alpha", "author": "Ann"},
		{"url": "/b", "title": "Beta"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractItemsXPathRelative(t *testing.T) {
	page := `<html><body>
	  <div class="card"><h3><a href="/x">X</a></h3></div>
	  <div class="card"><h3><a href="/y">Y</a></h3></div>
	</body></html>`

	specs := []FieldSpec{
		{Name: "url", Locators: []Locator{XPathLocator(".//h3/a").WithAttr("href")}},
	}
	got, err := NewExtractor().ExtractItems(page, XPathLocator("//div[@class='card']"), specs)
	if err != nil {
		t.Fatalf("extract items: %v", err)
	}
	if len(got) != 2 || got[0]["url"] != "/x" || got[1]["url"] != "/y" {
		t.Fatalf("unexpected items: %v", got)
	}
}

func TestFindAndExists(t *testing.T) {
	e := NewExtractor()

	href, ok, err := e.Find(detailPage, CSSLocator("a.canonical").WithAttr("href"))
	if err != nil || !ok || href != "/business/results-1/" {
		t.Fatalf("Find = %q, %v, %v", href, ok, err)
	}
	if _, ok, _ := e.Find(detailPage, CSSLocator("button.load-more")); ok {
		t.Fatalf("Find should miss absent control")
	}

	exists, err := e.Exists(detailPage, XPathLocator("//article"))
	if err != nil || !exists {
		t.Fatalf("Exists(article) = %v, %v", exists, err)
	}
	exists, err = e.Exists(detailPage, XPathLocator("//*[[broken"))
	if err != nil || exists {
		t.Fatalf("invalid xpath should not match, got %v, %v", exists, err)
	}
}
