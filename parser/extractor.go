package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/aluiziolira/go-scrape-news/models"
	"golang.org/x/net/html"
)

// Extractor evaluates field fallback chains against rendered HTML.
type Extractor struct {
	// OnFallback is called when a field is satisfied by a locator other
	// than its first one.
	OnFallback func(field string, index int)
}

// NewExtractor returns an extractor with no hooks.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract evaluates specs against the whole document. Fields whose chain
// misses entirely are left absent; an error means the document could not be
// parsed at all.
func (e *Extractor) Extract(htmlText string, specs []FieldSpec) (models.Record, error) {
	root, err := parseHTML(htmlText)
	if err != nil {
		return nil, err
	}
	return e.extractFrom(root, specs), nil
}

// ExtractItems evaluates specs relative to every element matched by item.
// Items that yield no field at all are skipped.
func (e *Extractor) ExtractItems(htmlText string, item Locator, specs []FieldSpec) ([]models.Record, error) {
	root, err := parseHTML(htmlText)
	if err != nil {
		return nil, err
	}

	var out []models.Record
	for _, n := range queryNodes(root, item) {
		rec := e.extractFrom(n, specs)
		if len(rec) == 0 {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Find returns the first non-empty value addressed by loc.
func (e *Extractor) Find(htmlText string, loc Locator) (string, bool, error) {
	root, err := parseHTML(htmlText)
	if err != nil {
		return "", false, err
	}
	for _, s := range selections(root, loc) {
		if v := readValue(s, loc, FieldSpec{}); v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Exists reports whether loc matches at least one element.
func (e *Extractor) Exists(htmlText string, loc Locator) (bool, error) {
	root, err := parseHTML(htmlText)
	if err != nil {
		return false, err
	}
	return len(queryNodes(root, loc)) > 0, nil
}

func (e *Extractor) extractFrom(root *html.Node, specs []FieldSpec) models.Record {
	rec := make(models.Record, len(specs))
	for _, spec := range specs {
		for i, loc := range spec.Locators {
			value := evaluate(root, loc, spec)
			if value == "" {
				continue
			}
			rec[spec.Name] = value
			if i > 0 && e.OnFallback != nil {
				e.OnFallback(spec.Name, i)
			}
			break
		}
	}
	return rec
}

func evaluate(root *html.Node, loc Locator, spec FieldSpec) string {
	matches := selections(root, loc)
	if len(matches) == 0 {
		return ""
	}

	if spec.All {
		sep := spec.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, 0, len(matches))
		for _, s := range matches {
			if v := readValue(s, loc, spec); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, sep)
	}

	for _, s := range matches {
		if v := readValue(s, loc, spec); v != "" {
			return v
		}
	}
	return ""
}

func readValue(s *goquery.Selection, loc Locator, spec FieldSpec) string {
	var value string
	if loc.Attr != "" {
		value, _ = s.Attr(loc.Attr)
	} else {
		node := s
		if spec.Exclude != "" {
			node = s.Clone()
			node.Find(spec.Exclude).Remove()
		}
		value = node.Text()
	}

	value = CleanText(value)
	if spec.TrimPrefix != "" {
		value = strings.TrimSpace(strings.TrimPrefix(value, spec.TrimPrefix))
	}
	return value
}

// selections returns one single-node selection per match.
func selections(root *html.Node, loc Locator) []*goquery.Selection {
	nodes := queryNodes(root, loc)
	out := make([]*goquery.Selection, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, goquery.NewDocumentFromNode(n).Selection)
	}
	return out
}

func queryNodes(root *html.Node, loc Locator) []*html.Node {
	if loc.IsZero() {
		return nil
	}
	switch loc.Kind {
	case XPath:
		nodes, err := htmlquery.QueryAll(root, loc.Expr)
		if err != nil {
			slog.Debug("invalid xpath locator", slog.String("locator", loc.String()), slog.Any("error", err))
			return nil
		}
		return nodes
	default:
		return goquery.NewDocumentFromNode(root).Find(loc.Expr).Nodes
	}
}

func parseHTML(htmlText string) (*html.Node, error) {
	root, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return root, nil
}
