package sources

import "github.com/aluiziolira/go-scrape-news/parser"

func init() {
	Register(Reuters())
	Register(Forbes())
	Register(Fitch())
}

// Reuters walks the business section and reads each story page.
func Reuters() *Source {
	author := parser.Field("author",
		".text__medium__1kbOh.text__tag_label__6ajML",
		`[data-testid="AuthorByline"]`,
	)
	author.TrimPrefix = "By"

	date := parser.Field("date", ".date-line__date___kNbY")
	date.All = true
	date.Locators = append(date.Locators, parser.CSSLocator("time").WithAttr("datetime"))

	return &Source{
		Name:        "reuters",
		Identity:    "url",
		VisitField:  "url",
		StartURL:    "https://www.reuters.com/business/",
		BaseURL:     "https://www.reuters.com",
		TargetCount: 210,
		Feed: &FeedListing{
			Item:     parser.CSSLocator(".story-collection__list-item__j4SQe"),
			Fields:   []parser.FieldSpec{href("url", "a")},
			LoadMore: parser.MustLocator(`x://*[@class="button__button__2Ecqi button__secondary__18moI button__round__1nYLA button__w_auto__6WYRo text-button__container__3q3zX"]`),
		},
		Detail: []parser.FieldSpec{
			parser.Field("title", "h1"),
			author,
			date,
			parser.Field("content", ".article-body__wrapper__3IxHM", `[data-testid="ArticleBody"]`),
		},
		DateFields: []string{"date"},
	}
}

// Forbes walks the business section; listing cards already carry title and author.
func Forbes() *Source {
	content := parser.Field("content", ".fs-article.fs-responsive-text.current-article")
	content.Exclude = ".article-sharing"

	return &Source{
		Name:        "forbes",
		Identity:    "url",
		VisitField:  "url",
		StartURL:    "https://www.forbes.com/business/",
		BaseURL:     "https://www.forbes.com",
		TargetCount: 200,
		Feed: &FeedListing{
			Item: parser.CSSLocator("._4g0BEaLU"),
			Fields: []parser.FieldSpec{
				parser.Field("title", "._1-FLFW4R"),
				parser.Field("author", "._4tin10wS"),
				href("url", "._1-FLFW4R"),
			},
			LoadMore: parser.MustLocator(`x://*[@class="_18BedXz4 iWceBwQC Sn26m-xQ st6yY9Jv"]`),
		},
		Detail: []parser.FieldSpec{
			parser.Field("time", ".content-data.metrics-text.color-body.light-text", ".ycHdAQ4U._0th4g"),
			content,
		},
		DateFields: []string{"time"},
	}
}

// Fitch searches the ratings site per company. The entity page's latest
// rating action becomes top-level columns and the full history is kept
// under "ratings". Companies without a rating table keep their search stub.
func Fitch() *Source {
	const results = ".page-layout.page-layout--2__left-main.content .heading--5 a"
	const rows = ".table.table--1 .table__wrapper tbody tr"
	const latest = rows + ":first-child "

	return &Source{
		Name:       "fitch",
		Identity:   "keyword",
		VisitField: "url",
		BaseURL:    "https://www.fitchratings.com",
		Keyword: &KeywordListing{
			SearchURL:     "https://www.fitchratings.com/search/?query=%s",
			NoResults:     parser.CSSLocator(".heading--2"),
			NoResultsText: "Sorry, no results.",
			Result: []parser.FieldSpec{
				parser.Field("title", results),
				href("url", results),
			},
		},
		Detail: []parser.FieldSpec{
			parser.Field("RATING", latest+"td:nth-child(1)"),
			parser.Field("ACTION", latest+"td:nth-child(2)"),
			parser.Field("DATE", latest+"td:nth-child(3)"),
			parser.Field("TYPE", latest+"td:nth-child(4)"),
		},
		Rows: &RowSet{
			Name: "ratings",
			Row:  parser.CSSLocator(rows),
			Fields: []parser.FieldSpec{
				parser.Field("RATING", "td:nth-child(1)"),
				parser.Field("ACTION", "td:nth-child(2)"),
				parser.Field("DATE", "td:nth-child(3)"),
				parser.Field("TYPE", "td:nth-child(4)"),
			},
		},
		DateFields:    []string{"DATE"},
		KeepBareStubs: true,
	}
}
