// Package visitesp collects the events calendar published by Visite São Paulo.
package visitesp

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/collectors"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/normalize"
)

const (
	Name    = "visitesp"
	BaseURL = "https://visitesaopaulo.com"
	PageURL = BaseURL + "/calendario-eventos/"

	minTitleLen   = 5
	siblingWindow = 5
)

var numericDate = regexp.MustCompile(`^\d{1,2}[/\-]\d{1,2}[/\-](\d{2}|\d{4})$`)

// Profile holds the normalization defaults for calendar entries.
var Profile = normalize.Profile{
	DefaultType: "Evento",
}

// New returns the Visite São Paulo collector reading PageURL.
func New(f collectors.Fetcher) collectors.Collector {
	return NewWithURL(f, PageURL)
}

// NewWithURL returns a Visite São Paulo collector reading pageURL.
func NewWithURL(f collectors.Fetcher, pageURL string) collectors.Collector {
	return collectors.Collector{
		Name:    Name,
		Profile: Profile,
		Collect: func(ctx context.Context) ([]catalog.RawRecord, error) {
			res, err := f.Fetch(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("fetching visite sao paulo calendar: %w", err)
			}
			return Parse(strings.NewReader(res.BodyString), BaseURL)
		},
	}
}

// Parse walks every h3 heading of the calendar. An entry is kept only when a
// date and a details link are found among the few siblings following it;
// the closest preceding h2 names its category.
func Parse(r io.Reader, baseURL string) ([]catalog.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var (
		records []catalog.RawRecord
		section string
	)
	doc.Find("h2, h3").Each(func(_ int, heading *goquery.Selection) {
		if goquery.NodeName(heading) == "h2" {
			section = strings.TrimSpace(heading.Text())
			return
		}

		title := strings.TrimSpace(heading.Text())
		if len([]rune(title)) < minTitleLen {
			return
		}

		var date, link string
		if parent := heading.Parent(); goquery.NodeName(parent) == "a" {
			link = collectors.ResolveURL(baseURL, parent.AttrOr("href", ""))
		}

		sibling := heading
		for i := 0; i < siblingWindow && (date == "" || link == ""); i++ {
			sibling = sibling.Next()
			if sibling.Length() == 0 || isHeading(sibling) {
				break
			}
			if date == "" {
				date = dateFrom(sibling)
			}
			if link == "" {
				link = detailsLink(sibling, baseURL)
			}
		}

		if date == "" || link == "" {
			return
		}
		records = append(records, catalog.RawRecord{
			"title":               title,
			"date":                date,
			"official_event_link": link,
			"category":            section,
			"source_site":         baseURL,
		})
	})
	return records, nil
}

func dateFrom(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "p", "span", "div", "time":
	default:
		return ""
	}
	text := strings.Join(strings.Fields(s.Text()), " ")
	if text == "" {
		return ""
	}
	if strings.Contains(strings.ToLower(text), " de ") && len(text) > 4 {
		return text
	}
	if numericDate.MatchString(text) {
		return text
	}
	return ""
}

func detailsLink(s *goquery.Selection, baseURL string) string {
	if goquery.NodeName(s) == "a" && isDetails(s) {
		return collectors.ResolveURL(baseURL, s.AttrOr("href", ""))
	}
	var href string
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if isDetails(a) {
			href = a.AttrOr("href", "")
			return false
		}
		return true
	})
	return collectors.ResolveURL(baseURL, href)
}

func isHeading(s *goquery.Selection) bool {
	name := goquery.NodeName(s)
	return name == "h2" || name == "h3"
}

func isDetails(a *goquery.Selection) bool {
	return strings.EqualFold(strings.TrimSpace(a.Text()), "detalhes")
}
