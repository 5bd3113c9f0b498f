package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/araddon/dateparse"
)

var innerWhitespace = regexp.MustCompile(`\s+`)

// ValidateRecord ensures the record carries its identity field.
func ValidateRecord(r models.Record, identity string) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if r.Identity(identity) == "" {
		return fmt.Errorf("record missing %s", identity)
	}
	return nil
}

// CleanText collapses runs of whitespace and trims the result.
func CleanText(text string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(text, " "))
}

// NormalizeDate converts a human date to RFC3339.
func NormalizeDate(text string) (string, bool) {
	text = CleanText(text)
	if text == "" {
		return "", false
	}

	t, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		// Date lines often trail with "Updated 2 hours ago" or similar.
		if i := strings.Index(text, " Updated"); i > 0 {
			t, err = dateparse.ParseIn(text[:i], time.UTC)
		}
		if err != nil {
			return "", false
		}
	}
	return t.Format(time.RFC3339), true
}

// ResolveURL resolves ref against base. Absolute refs and unparsable input
// are returned unchanged.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() || base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(u).String()
}
