// Package sources holds the site definitions the scraper knows how to walk.
package sources

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aluiziolira/go-scrape-news/parser"
)

// ErrUnknownSource is returned by Lookup for an unregistered name.
var ErrUnknownSource = errors.New("unknown source")

// FeedListing describes an infinite listing page expanded by a load-more control.
type FeedListing struct {
	// Item matches one listing entry; Fields are evaluated inside it.
	Item     parser.Locator
	Fields   []parser.FieldSpec
	LoadMore parser.Locator
}

// KeywordListing describes a search page queried once per keyword.
type KeywordListing struct {
	// SearchURL contains a single %s replaced by the escaped keyword.
	SearchURL     string
	NoResults     parser.Locator
	NoResultsText string
	Result        []parser.FieldSpec
}

// RowSet reads a repeating block on the detail page, such as the rows of a
// history table. Each match becomes one object of a JSON array stored under
// Name.
type RowSet struct {
	Name   string
	Row    parser.Locator
	Fields []parser.FieldSpec
}

// Source is everything needed to collect, enrich and export one site.
type Source struct {
	Name        string
	Identity    string
	VisitField  string
	StartURL    string
	BaseURL     string
	TargetCount int

	// Exactly one of Feed or Keyword is set.
	Feed    *FeedListing
	Keyword *KeywordListing

	Detail     []parser.FieldSpec
	Rows       *RowSet
	DateFields []string

	// KeepBareStubs logs a stub unchanged when its detail page yields no
	// field, instead of counting it as failed.
	KeepBareStubs bool
}

// IsKeyword reports whether the source is driven by a keyword file.
func (s *Source) IsKeyword() bool {
	return s.Keyword != nil
}

// ListPath is the listing log for the source under dir.
func (s *Source) ListPath(dir string) string {
	return filepath.Join(dir, s.Name+"_list.jsonl")
}

// DataPath is the detail log for the source under dir.
func (s *Source) DataPath(dir string) string {
	return filepath.Join(dir, s.Name+"_data.jsonl")
}

// ExportPath is the tabular snapshot for the source under dir.
func (s *Source) ExportPath(dir, format string) string {
	return filepath.Join(dir, s.Name+"_data."+format)
}

// SearchURL fills the keyword template. Spaces become %20.
func (s *Source) SearchURL(keyword string) string {
	if s.Keyword == nil {
		return ""
	}
	query := strings.ReplaceAll(url.QueryEscape(strings.TrimSpace(keyword)), "+", "%20")
	return fmt.Sprintf(s.Keyword.SearchURL, query)
}

// Validate checks that the definition can drive a run.
func (s *Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source name cannot be empty")
	}
	if s.Identity == "" {
		return fmt.Errorf("source %s: identity field cannot be empty", s.Name)
	}
	if (s.Feed == nil) == (s.Keyword == nil) {
		return fmt.Errorf("source %s: exactly one listing kind must be set", s.Name)
	}
	if s.Feed != nil {
		if s.StartURL == "" {
			return fmt.Errorf("source %s: start URL cannot be empty", s.Name)
		}
		if s.Feed.Item.IsZero() {
			return fmt.Errorf("source %s: listing item locator cannot be empty", s.Name)
		}
	}
	if s.Rows != nil && (s.Rows.Name == "" || s.Rows.Row.IsZero()) {
		return fmt.Errorf("source %s: row set needs a name and a row locator", s.Name)
	}
	if s.Keyword != nil && strings.Count(s.Keyword.SearchURL, "%s") != 1 {
		return fmt.Errorf("source %s: search URL needs exactly one %%s", s.Name)
	}
	return nil
}

var registry = map[string]*Source{}

// Register adds a source definition, replacing one with the same name.
func Register(s *Source) {
	registry[s.Name] = s
}

// Lookup returns the source registered under name.
func Lookup(name string) (*Source, error) {
	s, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return s, nil
}

// Names lists registered sources alphabetically.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadKeywords reads one keyword per line. Lines written as JSON strings
// followed by a comma (`"Acme Corp",`) are accepted as well. Blank lines and
// repeats are skipped.
func LoadKeywords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyword file: %w", err)
	}
	defer f.Close()
	return ReadKeywords(f)
}

// ReadKeywords is LoadKeywords over a reader.
func ReadKeywords(r io.Reader) ([]string, error) {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimSpace(strings.TrimSuffix(line, ","))
		if line == "" || line == "[" || line == "]" {
			continue
		}
		if strings.HasPrefix(line, `"`) {
			var s string
			if err := json.Unmarshal([]byte(line), &s); err != nil {
				return nil, fmt.Errorf("parse keyword %s: %w", line, err)
			}
			line = strings.TrimSpace(s)
		}
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read keywords: %w", err)
	}
	return out, nil
}

func href(name, expr string) parser.FieldSpec {
	return parser.FieldSpec{
		Name:     name,
		Locators: []parser.Locator{parser.MustLocator(expr).WithAttr("href")},
	}
}
