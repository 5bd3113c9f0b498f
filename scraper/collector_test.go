package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aluiziolira/go-scrape-news/browser"
	"github.com/aluiziolira/go-scrape-news/parser"
	"github.com/aluiziolira/go-scrape-news/pipeline"
)

func collectOnce(t *testing.T, cfgTarget int, dir string, sess *fakeSession) (*FeedCollector, int) {
	t.Helper()
	cfg := testConfig(t)
	cfg.OutputDir = dir
	cfg.TargetCount = cfgTarget
	src := testFeedSource()

	p, err := openPipeline(cfg, src.ListPath(dir), src.Identity)
	if err != nil {
		t.Fatalf("open pipeline: %v", err)
	}
	c := NewFeedCollector(cfg, src, parser.NewExtractor(), NewMetrics())
	result, err := c.Collect(context.Background(), sess, p)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return c, result.Appended
}

func loadIdentities(t *testing.T, path string) []string {
	t.Helper()
	records, err := pipeline.LoadAll(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r["url"])
	}
	return out
}

func TestFeedCollectorStopsAtTarget(t *testing.T) {
	dir := t.TempDir()
	sess := newFakeSession(
		listingHTML("/a", "/b"),
		listingHTML("/a", "/b", "/c", "/d"),
	)

	cfg := testConfig(t)
	cfg.OutputDir = dir
	cfg.TargetCount = 3
	src := testFeedSource()
	p, err := openPipeline(cfg, src.ListPath(dir), src.Identity)
	if err != nil {
		t.Fatalf("open pipeline: %v", err)
	}
	result, err := NewFeedCollector(cfg, src, parser.NewExtractor(), nil).Collect(context.Background(), sess, p)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if result.StopReason != StopTarget {
		t.Fatalf("stop reason = %q, want %q", result.StopReason, StopTarget)
	}
	if result.Appended != 3 {
		t.Fatalf("appended = %d, want 3", result.Appended)
	}
	want := []string{"/a", "/b", "/c"}
	if diff := cmp.Diff(want, loadIdentities(t, src.ListPath(dir))); diff != "" {
		t.Fatalf("list log mismatch (-want +got):\n%s", diff)
	}
}

func TestFeedCollectorExhaustionSkipsRepeats(t *testing.T) {
	dir := t.TempDir()
	sess := newFakeSession(
		listingHTML("/a", "/b"),
		listingHTML("/a", "/b", "/c"),
	)

	cfg := testConfig(t)
	cfg.OutputDir = dir
	src := testFeedSource()
	p, err := openPipeline(cfg, src.ListPath(dir), src.Identity)
	if err != nil {
		t.Fatalf("open pipeline: %v", err)
	}
	result, err := NewFeedCollector(cfg, src, parser.NewExtractor(), NewMetrics()).Collect(context.Background(), sess, p)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if result.StopReason != StopExhausted {
		t.Fatalf("stop reason = %q, want %q", result.StopReason, StopExhausted)
	}
	if result.Pages != 3 {
		t.Fatalf("pages = %d, want 3", result.Pages)
	}
	if result.Duplicates != 6 {
		t.Fatalf("duplicates = %d, want 6", result.Duplicates)
	}
	if result.Failed != 0 {
		t.Fatalf("failed = %d, want 0", result.Failed)
	}
	want := []string{"/a", "/b", "/c"}
	if diff := cmp.Diff(want, loadIdentities(t, src.ListPath(dir))); diff != "" {
		t.Fatalf("list log mismatch (-want +got):\n%s", diff)
	}
}

func TestFeedCollectorOperationOrder(t *testing.T) {
	sess := newFakeSession(
		listingHTML("/a"),
		listingHTML("/a", "/b"),
	)

	var states []string
	cfg := testConfig(t)
	src := testFeedSource()
	p, err := openPipeline(cfg, src.ListPath(cfg.OutputDir), src.Identity)
	if err != nil {
		t.Fatalf("open pipeline: %v", err)
	}
	defer p.Close()

	c := NewFeedCollector(cfg, src, parser.NewExtractor(), nil)
	c.OnState = func(s string) { states = append(states, s) }
	if _, err := c.Collect(context.Background(), sess, p); err != nil {
		t.Fatalf("collect: %v", err)
	}

	wantCalls := []string{
		"navigate " + feedStart, "wait 3s",
		// cycle 1: click succeeds, so a settle wait follows it
		"scroll", "wait 1s", "click", "wait 3s", "html",
		// cycles 2 and 3: no more pages
		"scroll", "wait 1s", "click", "html",
		"scroll", "wait 1s", "click", "html",
	}
	if diff := cmp.Diff(wantCalls, sess.snapshotCalls()); diff != "" {
		t.Fatalf("call order mismatch (-want +got):\n%s", diff)
	}

	wantStates := []string{
		StateNavigated,
		StateScrolled, StateExpanded, StateParsed, StateContinue,
		StateScrolled, StateExpanded, StateParsed, StateContinue,
		StateScrolled, StateExpanded, StateParsed, StateStop,
	}
	if diff := cmp.Diff(wantStates, states); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestFeedCollectorResumeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	pages := []string{listingHTML("/a", "/b"), listingHTML("/a", "/b", "/c")}

	_, first := collectOnce(t, 100, dir, newFakeSession(pages...))
	if first != 3 {
		t.Fatalf("first run appended %d, want 3", first)
	}

	_, second := collectOnce(t, 100, dir, newFakeSession(pages...))
	if second != 0 {
		t.Fatalf("second run appended %d, want 0", second)
	}

	sess := newFakeSession(pages...)
	_, third := collectOnce(t, 3, dir, sess)
	if third != 0 {
		t.Fatalf("third run appended %d, want 0", third)
	}
	if sess.navigations() != 0 {
		t.Fatalf("target already met, expected no navigation, got %d", sess.navigations())
	}

	want := []string{"/a", "/b", "/c"}
	if diff := cmp.Diff(want, loadIdentities(t, testFeedSource().ListPath(dir))); diff != "" {
		t.Fatalf("list log mismatch (-want +got):\n%s", diff)
	}
}

func TestFeedCollectorStartFailure(t *testing.T) {
	sess := newFakeSession(listingHTML("/a"))
	sess.navErr[feedStart] = browser.ErrTimeout{Err: errBoom}

	cfg := testConfig(t)
	src := testFeedSource()
	p, err := openPipeline(cfg, src.ListPath(cfg.OutputDir), src.Identity)
	if err != nil {
		t.Fatalf("open pipeline: %v", err)
	}
	defer p.Close()

	_, err = NewFeedCollector(cfg, src, parser.NewExtractor(), nil).Collect(context.Background(), sess, p)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected start navigation error, got %v", err)
	}
}

func TestFeedCollectorMaxCycles(t *testing.T) {
	pages := make([]string, 0, 10)
	var paths []string
	for i := 0; i < 10; i++ {
		paths = append(paths, "/"+string(rune('a'+i)))
		pages = append(pages, listingHTML(paths...))
	}
	sess := newFakeSession(pages...)

	cfg := testConfig(t)
	cfg.MaxCycles = 3
	src := testFeedSource()
	p, err := openPipeline(cfg, src.ListPath(cfg.OutputDir), src.Identity)
	if err != nil {
		t.Fatalf("open pipeline: %v", err)
	}
	defer p.Close()

	result, err := NewFeedCollector(cfg, src, parser.NewExtractor(), nil).Collect(context.Background(), sess, p)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if result.StopReason != StopMaxCycles {
		t.Fatalf("stop reason = %q, want %q", result.StopReason, StopMaxCycles)
	}
	if result.Appended != 4 {
		t.Fatalf("appended = %d, want 4", result.Appended)
	}
}
