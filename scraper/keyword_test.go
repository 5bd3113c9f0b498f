package scraper

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aluiziolira/go-scrape-news/browser"
	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/aluiziolira/go-scrape-news/parser"
	"github.com/aluiziolira/go-scrape-news/pipeline"
	"github.com/aluiziolira/go-scrape-news/sources"
)

const searchHit = `<html><body>
<div class="page-layout page-layout--2__left-main content">
  <h5 class="heading--5"><a href="/entity/acme-corp-1">Acme Corp</a></h5>
  <h5 class="heading--5"><a href="/entity/acme-holdings-2">Acme Holdings</a></h5>
</div></body></html>`

const searchMiss = `<html><body><h2 class="heading--2">Sorry, no results.</h2></body></html>`

func collectKeywords(t *testing.T, src *sources.Source, sess *fakeSession, dir string, keywords []string) *models.PhaseResult {
	t.Helper()
	cfg := testConfig(t)
	cfg.OutputDir = dir
	p, err := openPipeline(cfg, src.ListPath(dir), src.Identity)
	if err != nil {
		t.Fatalf("open pipeline: %v", err)
	}
	result, err := NewKeywordCollector(cfg, src, parser.NewExtractor(), NewMetrics()).Collect(context.Background(), sess, p, keywords)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return result
}

func TestKeywordCollector(t *testing.T) {
	dir := t.TempDir()
	src := sources.Fitch()

	sess := newFakeSession()
	sess.pages[src.SearchURL("Acme Corp")] = searchHit
	sess.pages[src.SearchURL("Nobody Ltd")] = searchMiss
	sess.navErr[src.SearchURL("Flaky Inc")] = browser.ErrTimeout{Err: errBoom}

	result := collectKeywords(t, src, sess, dir, []string{"Acme Corp", "Flaky Inc", "Nobody Ltd"})
	if result.Appended != 2 || result.Failed != 1 {
		t.Fatalf("appended=%d failed=%d, want 2 and 1", result.Appended, result.Failed)
	}
	if result.ErrorsByType["timeout"] != 1 {
		t.Fatalf("errors by type = %v", result.ErrorsByType)
	}

	got, err := pipeline.LoadAll(src.ListPath(dir))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []models.Record{
		{"keyword": "Acme Corp", "title": "Acme Corp", "url": "https://www.fitchratings.com/entity/acme-corp-1"},
		{"keyword": "Nobody Ltd"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("list log mismatch (-want +got):\n%s", diff)
	}

	// A rerun only retries the keyword that failed.
	delete(sess.navErr, src.SearchURL("Flaky Inc"))
	sess.pages[src.SearchURL("Flaky Inc")] = searchMiss
	before := sess.navigations()
	second := collectKeywords(t, src, sess, dir, []string{"Acme Corp", "Flaky Inc", "Nobody Ltd"})
	if second.Appended != 1 || second.Duplicates != 2 {
		t.Fatalf("second run appended=%d duplicates=%d", second.Appended, second.Duplicates)
	}
	if n := sess.navigations() - before; n != 1 {
		t.Fatalf("second run navigations = %d, want 1", n)
	}
}

func TestKeywordCollectorUnrenderedPageFails(t *testing.T) {
	dir := t.TempDir()
	src := sources.Fitch()

	sess := newFakeSession()
	sess.pages[src.SearchURL("Acme")] = "<html><body>loading</body></html>"

	result := collectKeywords(t, src, sess, dir, []string{"Acme"})
	if result.Failed != 1 || result.ErrorsByType["no_fields"] != 1 {
		t.Fatalf("failed=%d errors=%v", result.Failed, result.ErrorsByType)
	}
}
