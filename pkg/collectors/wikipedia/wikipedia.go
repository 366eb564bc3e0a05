// Package wikipedia collects the museums listed on the Portuguese Wikipedia
// page of museums in the city of São Paulo.
package wikipedia

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
	Name    = "wikipedia"
	PageURL = "https://pt.wikipedia.org/wiki/Lista_de_museus_da_cidade_de_S%C3%A3o_Paulo"
)

// Profile fills what the museum table does not carry.
var Profile = normalize.Profile{
	DefaultType: "Museu",
	DefaultTime: "Variado",
	DescribeAs:  "Museu: %s",
}

// New returns the museum list collector reading PageURL.
func New(f collectors.Fetcher) collectors.Collector {
	return NewWithURL(f, PageURL)
}

// NewWithURL returns a museum list collector reading pageURL.
func NewWithURL(f collectors.Fetcher, pageURL string) collectors.Collector {
	return collectors.Collector{
		Name:    Name,
		Profile: Profile,
		Collect: func(ctx context.Context) ([]catalog.RawRecord, error) {
			res, err := f.Fetch(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("fetching museum list: %w", err)
			}
			return Parse(strings.NewReader(res.BodyString), PageURL)
		},
	}
}

// Parse reads the first sortable wikitable. The second column holds the
// museum name and the third its district; the page itself is used as the
// source site of every row.
func Parse(r io.Reader, pageURL string) ([]catalog.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table.wikitable.sortable").First()
	if table.Length() == 0 {
		return nil, nil
	}

	var records []catalog.RawRecord
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.ChildrenFiltered("td")
		if cols.Length() < 3 {
			return
		}
		name := cellText(cols.Eq(1))
		district := cellText(cols.Eq(2))
		if name == "" || district == "" {
			return
		}
		records = append(records, catalog.RawRecord{
			"title":       name,
			"district":    district,
			"source_site": pageURL,
		})
	})
	return records, nil
}

// cellText prefers the text of the cell's first link, which drops footnote
// markers and the like.
func cellText(cell *goquery.Selection) string {
	if a := cell.Find("a").First(); a.Length() > 0 {
		if t := strings.TrimSpace(a.Text()); t != "" {
			return t
		}
	}
	return strings.Join(strings.Fields(cell.Text()), " ")
}
