// Package fablab collects course cards from the FabLab Livre SP portal.
package fablab

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/collectors"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/normalize"
)

const (
	Name    = "fablab"
	BaseURL = "https://www.fablablivresp.prefeitura.sp.gov.br"
	PageURL = BaseURL + "/busca?tipo=curso"

	maxCategoryLen = 50
)

var (
	cardSelectors     = []string{"div.views-row", "article.card-curso"}
	dateSelectors     = []string{`div[class*="date"]`, `div[class*="data"]`, `span[class*="date"]`, `span[class*="data"]`}
	locationSelectors = []string{`div[class*="unidade"]`, `div[class*="location"]`, `span[class*="unidade"]`, `span[class*="location"]`}
	tagSelectors      = []string{`div[class*="tags"]`, `div[class*="tematica"]`, `div[class*="area"]`, "div.field--name-field-tags"}
)

// Profile holds the normalization defaults for FabLab records. Units are
// named after the CEU or library hosting them, so those prefixes are
// dropped before the neighborhood lookup.
var Profile = normalize.Profile{
	DefaultType:   "Curso",
	StripPrefixes: []string{"fablab ", "fab lab ", "ceu ", "centro cultural ", "biblioteca "},
}

// New returns the FabLab collector reading PageURL.
func New(f collectors.Fetcher) collectors.Collector {
	return NewWithURL(f, PageURL)
}

// NewWithURL returns a FabLab collector reading pageURL.
func NewWithURL(f collectors.Fetcher, pageURL string) collectors.Collector {
	return collectors.Collector{
		Name:    Name,
		Profile: Profile,
		Collect: func(ctx context.Context) ([]catalog.RawRecord, error) {
			res, err := f.Fetch(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("fetching fablab courses: %w", err)
			}
			return Parse(strings.NewReader(res.BodyString), BaseURL)
		},
	}
}

// Parse extracts one raw record per course card. Cards without a title or
// link are skipped.
func Parse(r io.Reader, baseURL string) ([]catalog.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		cards = doc.Find(sel)
		if cards.Length() > 0 {
			break
		}
	}

	records := make([]catalog.RawRecord, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		titleLink := firstTextLink(card)
		if titleLink == nil {
			return
		}
		title := strings.TrimSpace(titleLink.Text())
		href, _ := titleLink.Attr("href")
		link := collectors.ResolveURL(baseURL, href)
		if title == "" || link == "" {
			return
		}

		date, hour := extractDateTime(card)
		records = append(records, catalog.RawRecord{
			"title":               title,
			"official_event_link": link,
			"date":                date,
			"time":                hour,
			"location":            extractLocation(card, titleLink),
			"categories":          extractCategories(card, title),
			"source_site":         baseURL,
		})
	})
	return records, nil
}

func firstTextLink(card *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != "" {
			found = a
			return false
		}
		return true
	})
	return found
}

func extractDateTime(card *goquery.Selection) (string, string) {
	text := ""
	for _, sel := range dateSelectors {
		if field := card.Find(sel).First(); field.Length() > 0 {
			text = strings.TrimSpace(field.Text())
			break
		}
	}

	// Older layouts print "* 20/01/2023 | 14h" as a bare text line.
	if text == "" {
		for _, line := range strings.Split(card.Text(), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "*") && strings.Contains(line, "|") {
				text = strings.TrimSpace(strings.TrimLeft(line, "*"))
				break
			}
		}
	}

	if text == "" {
		return "", ""
	}
	date, hour, found := strings.Cut(text, "|")
	if !found {
		return text, ""
	}
	return strings.TrimSpace(date), strings.TrimSpace(hour)
}

func extractLocation(card, titleLink *goquery.Selection) string {
	for _, sel := range locationSelectors {
		if a := card.Find(sel).First().Find("a").First(); a.Length() > 0 {
			return strings.TrimSpace(a.Text())
		}
	}

	links := card.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.TrimSpace(a.Text()) != ""
	})
	if links.Length() > 1 {
		second := links.Eq(1)
		if !second.IsSelection(titleLink) {
			return strings.TrimSpace(second.Text())
		}
	}
	return ""
}

func extractCategories(card *goquery.Selection, title string) string {
	var texts []string
	for _, sel := range tagSelectors {
		container := card.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		if tags := container.Find("a"); tags.Length() > 0 {
			tags.Each(func(_ int, a *goquery.Selection) {
				if t := strings.TrimSpace(a.Text()); t != "" {
					texts = append(texts, t)
				}
			})
		} else {
			for _, line := range strings.Split(container.Text(), "\n") {
				if t := strings.TrimSpace(line); len(t) > 1 && len(t) < maxCategoryLen {
					texts = append(texts, t)
				}
			}
		}
		if len(texts) > 0 {
			break
		}
	}

	if len(texts) > 0 {
		var (
			unique []string
			seen   = make(map[string]bool)
		)
		for _, text := range texts {
			for _, c := range strings.Split(strings.ReplaceAll(text, "/", ","), ",") {
				c = strings.TrimSpace(c)
				key := strings.ToLower(c)
				if c == "" || seen[key] {
					continue
				}
				seen[key] = true
				unique = append(unique, c)
			}
		}
		return strings.Join(unique, ", ")
	}

	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "oficina"):
		return "Oficina"
	case strings.Contains(lower, "palestra"):
		return "Palestra"
	case strings.Contains(lower, "curso"):
		return "Curso"
	}
	return ""
}

