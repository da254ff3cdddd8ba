// Package fbop queries the Federal Bureau of Prisons inmate locator. The
// locator is a JSON search API; results are filtered down to facilities in
// Texas and to individuals who have not already been released.
package fbop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ibp/internal/provider"
	"ibp/internal/provider/fetch"
	"ibp/pkg/domain"
)

const defaultURL = "https://www.bop.gov/PublicInfo/execute/inmateloc"

// releaseLayout is the date form the locator uses in its release fields.
const releaseLayout = "01/02/2006"

// texasUnits is the facility-code allow-list: FBOP facilities located in
// Texas. Records housed anywhere else are dropped.
var texasUnits = map[string]struct{}{
	"BAS": {}, "BML": {}, "BMM": {}, "BMP": {}, "BSC": {}, "BIG": {},
	"BRY": {}, "CRW": {}, "EDN": {}, "FTW": {}, "DAL": {}, "HOU": {},
	"LAT": {}, "REE": {}, "RVS": {}, "SEA": {}, "TEX": {}, "TRV": {},
}

// Adapter implements provider.Adapter for the Federal jurisdiction.
type Adapter struct {
	client *fetch.Client
	url    string
}

// New builds an FBOP adapter against the production locator.
func New(client *fetch.Client) *Adapter {
	return &Adapter{client: client, url: defaultURL}
}

// NewWithURL builds an FBOP adapter against an alternate endpoint, used by
// tests to point at a local server.
func NewWithURL(client *fetch.Client, rawURL string) *Adapter {
	return &Adapter{client: client, url: rawURL}
}

func (a *Adapter) Jurisdiction() domain.Jurisdiction {
	return domain.JurisdictionFederal
}

// FormatID normalizes an FBOP register number to its #####-### form.
func (a *Adapter) FormatID(id int) (string, error) {
	if id < 0 {
		return "", &provider.FormatError{
			Jurisdiction: a.Jurisdiction(),
			Input:        fmt.Sprint(id),
			Reason:       "must not be negative",
		}
	}
	padded := fmt.Sprintf("%08d", id)
	if len(padded) != 8 {
		return "", &provider.FormatError{
			Jurisdiction: a.Jurisdiction(),
			Input:        fmt.Sprint(id),
			Reason:       "must be at most 8 digits",
		}
	}
	return padded[0:5] + "-" + padded[5:8], nil
}

// QueryByID searches the locator by register number.
func (a *Adapter) QueryByID(ctx context.Context, id int, timeout time.Duration) ([]provider.Record, error) {
	formatted, err := a.FormatID(id)
	if err != nil {
		return nil, err
	}
	return a.query(ctx, "", "", formatted, timeout)
}

// QueryByName searches the locator by first and last name.
func (a *Adapter) QueryByName(ctx context.Context, first, last string, timeout time.Duration) ([]provider.Record, error) {
	return a.query(ctx, first, last, "", timeout)
}

// locatorResponse is the top level of a locator reply. A reply without the
// InmateLocator key means zero matches, not an error.
type locatorResponse struct {
	InmateLocator []locatorEntry `json:"InmateLocator"`
}

type locatorEntry struct {
	InmateNum    string `json:"inmateNum"`
	NameFirst    string `json:"nameFirst"`
	NameLast     string `json:"nameLast"`
	FacilityCode string `json:"faclCode"`
	Race         string `json:"race"`
	Gender       string `json:"gender"`
	ActRelDate   string `json:"actRelDate"`
	ProjRelDate  string `json:"projRelDate"`
}

func (a *Adapter) query(ctx context.Context, first, last, id string, timeout time.Duration) ([]provider.Record, error) {
	params := url.Values{
		"age":        {""},
		"nameMiddle": {""},
		"output":     {"json"},
		"race":       {""},
		"sex":        {""},
		"todo":       {"query"},
		"nameLast":   {last},
		"nameFirst":  {first},
		"inmateNum":  {id},
	}

	body, err := a.client.Get(ctx, a.url, params, timeout)
	if err != nil {
		if fetch.IsTimeout(err) {
			return nil, &provider.TimeoutError{Jurisdiction: a.Jurisdiction(), Timeout: timeout}
		}
		return nil, &provider.TransportError{Jurisdiction: a.Jurisdiction(), Err: err}
	}

	var resp locatorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ShapeError{Jurisdiction: a.Jurisdiction(), Reason: fmt.Sprintf("unparsable json: %v", err)}
	}

	now := time.Now().UTC()
	today := dateOf(now)

	var records []provider.Record
	for _, entry := range resp.InmateLocator {
		if _, ok := texasUnits[entry.FacilityCode]; !ok {
			continue
		}

		release := parseRelease(entry)
		if date, ok := release.Date(); ok && !today.Before(date) {
			// Already released.
			continue
		}

		records = append(records, provider.Record{
			ID:           entry.InmateNum,
			Jurisdiction: a.Jurisdiction(),
			FirstName:    entry.NameFirst,
			LastName:     entry.NameLast,
			Unit:         entry.FacilityCode,
			Race:         entry.Race,
			Sex:          entry.Gender,
			Release:      release,
			FetchedAt:    now,
		})
	}

	return records, nil
}

// parseRelease prefers the actual release date, then the projected one;
// when neither parses, whichever raw text is present is carried through so
// indicators like "LIFE SENTENCE" survive.
func parseRelease(entry locatorEntry) domain.Release {
	for _, raw := range []string{entry.ActRelDate, entry.ProjRelDate} {
		if d, err := time.Parse(releaseLayout, strings.TrimSpace(raw)); err == nil {
			return domain.ReleaseDate(d)
		}
	}
	for _, raw := range []string{entry.ProjRelDate, entry.ActRelDate} {
		if strings.TrimSpace(raw) != "" {
			return domain.ReleaseText(strings.TrimSpace(raw))
		}
	}
	return domain.Release{}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
