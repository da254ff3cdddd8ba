// Package tdcj queries the Texas Department of Criminal Justice inmate
// search. TDCJ has no API; results come back as an HTML page with a marked
// results table that this adapter scrapes into normalized records.
package tdcj

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ibp/internal/provider"
	"ibp/internal/provider/fetch"
	"ibp/pkg/domain"
	"ibp/pkg/nameparse"
)

const (
	defaultBaseURL = "https://inmate.tdcj.texas.gov"
	searchPath     = "/InmateSearch/search.action"

	// tableMarker is the class TDCJ puts on its results table.
	tableMarker = "table.tdcj_table"
)

// Column names TDCJ uses in the results header. ID, name and unit are
// required; a results table missing any of them is malformed.
const (
	colID      = "TDCJ Number"
	colName    = "Name"
	colUnit    = "Unit of Assignment"
	colRace    = "Race"
	colSex     = "Gender"
	colRelease = "Projected Release Date"
)

// Adapter implements provider.Adapter for the Texas jurisdiction.
type Adapter struct {
	client  *fetch.Client
	baseURL *url.URL
}

// New builds a TDCJ adapter against the production search page.
func New(client *fetch.Client) *Adapter {
	a, _ := NewWithBaseURL(client, defaultBaseURL)
	return a
}

// NewWithBaseURL builds a TDCJ adapter against an alternate base, used by
// tests to point at a local server.
func NewWithBaseURL(client *fetch.Client, base string) (*Adapter, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse tdcj base url: %w", err)
	}
	return &Adapter{client: client, baseURL: u}, nil
}

func (a *Adapter) Jurisdiction() domain.Jurisdiction {
	return domain.JurisdictionTexas
}

// FormatID normalizes a TDCJ inmate number to its 8-digit zero-padded form.
func (a *Adapter) FormatID(id int) (string, error) {
	if id < 0 {
		return "", &provider.FormatError{
			Jurisdiction: a.Jurisdiction(),
			Input:        fmt.Sprint(id),
			Reason:       "must not be negative",
		}
	}
	if id > 99999999 {
		return "", &provider.FormatError{
			Jurisdiction: a.Jurisdiction(),
			Input:        fmt.Sprint(id),
			Reason:       "must be at most 8 digits",
		}
	}
	return fmt.Sprintf("%08d", id), nil
}

// QueryByID searches TDCJ by inmate number.
func (a *Adapter) QueryByID(ctx context.Context, id int, timeout time.Duration) ([]provider.Record, error) {
	formatted, err := a.FormatID(id)
	if err != nil {
		return nil, err
	}
	return a.query(ctx, "", "", formatted, timeout)
}

// QueryByName searches TDCJ by first and last name.
func (a *Adapter) QueryByName(ctx context.Context, first, last string, timeout time.Duration) ([]provider.Record, error) {
	return a.query(ctx, first, last, "", timeout)
}

func (a *Adapter) query(ctx context.Context, first, last, id string, timeout time.Duration) ([]provider.Record, error) {
	form := url.Values{
		"btnSearch": {"Search"},
		"gender":    {"ALL"},
		"race":      {"ALL"},
		"tdcj":      {id},
		"lastName":  {last},
		"firstName": {first},
		"page":      {"index"},
		"sid":       {""},
	}

	body, err := a.client.PostForm(ctx, a.baseURL.ResolveReference(&url.URL{Path: searchPath}).String(), form, timeout)
	if err != nil {
		if fetch.IsTimeout(err) {
			return nil, &provider.TimeoutError{Jurisdiction: a.Jurisdiction(), Timeout: timeout}
		}
		return nil, &provider.TransportError{Jurisdiction: a.Jurisdiction(), Err: err}
	}

	return a.parse(body)
}

// parse extracts records from the TDCJ results page. A page without the
// results table means zero matches; a table without the required columns
// is a malformed response.
func (a *Adapter) parse(body []byte) ([]provider.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &provider.ShapeError{Jurisdiction: a.Jurisdiction(), Reason: fmt.Sprintf("unparsable html: %v", err)}
	}

	table := doc.Find(tableMarker).First()
	if table.Length() == 0 {
		return nil, nil
	}

	// TDCJ breaks cell values across lines; treat the breaks as spaces.
	table.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml(" ")
	})

	rows := table.Find("tr")

	var keys []string
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		ths := row.Find("th")
		if ths.Length() == 0 {
			return true
		}
		ths.Each(func(_ int, th *goquery.Selection) {
			keys = append(keys, clean(th.Text()))
		})
		return false
	})

	if err := requireColumns(keys); err != nil {
		return nil, &provider.ShapeError{Jurisdiction: a.Jurisdiction(), Reason: err.Error()}
	}

	var records []provider.Record
	now := time.Now()

	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}

		entry := make(map[string]string, len(keys))
		cells.Each(func(i int, cell *goquery.Selection) {
			if i < len(keys) {
				entry[keys[i]] = clean(cell.Text())
			}
		})

		record := provider.Record{
			ID:           entry[colID],
			Jurisdiction: a.Jurisdiction(),
			Unit:         entry[colUnit],
			Race:         entry[colRace],
			Sex:          entry[colSex],
			Release:      domain.ParseRelease(entry[colRelease]),
			FetchedAt:    now,
		}

		name := nameparse.Parse(entry[colName])
		record.FirstName = name.First
		record.LastName = name.Last

		if href, ok := row.Find("a").First().Attr("href"); ok {
			if ref, err := url.Parse(href); err == nil {
				record.URL = a.baseURL.ResolveReference(ref).String()
			}
		}

		records = append(records, record)
	})

	return records, nil
}

func requireColumns(keys []string) error {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	for _, required := range []string{colID, colName, colUnit} {
		if !present[required] {
			return fmt.Errorf("results table is missing the %q column", required)
		}
	}
	return nil
}

// clean collapses the whitespace runs left behind by scraped markup.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
