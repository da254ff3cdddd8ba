package domain

import "time"

// releaseLayout is the canonical date form used when a release indicator
// round-trips through the store.
const releaseLayout = "2006-01-02"

// Release is an inmate's release indicator. Providers return either a real
// date or opaque free text ("LIFE SENTENCE", "UNKNOWN", ...); nothing forces
// a date, so the two cases are carried side by side and callers that need a
// date must ask for one explicitly.
type Release struct {
	date time.Time
	raw  string
}

// ReleaseDate builds a Release backed by a parsed date. The time-of-day
// portion is truncated.
func ReleaseDate(d time.Time) Release {
	y, m, day := d.Date()
	return Release{date: time.Date(y, m, day, 0, 0, 0, 0, time.UTC)}
}

// ReleaseText builds a Release from opaque provider text.
func ReleaseText(s string) Release {
	return Release{raw: s}
}

// ParseRelease interprets a stored or scraped indicator: a value in
// YYYY-MM-DD form becomes a date, anything else is kept as raw text. The
// empty string yields the zero Release.
func ParseRelease(s string) Release {
	if s == "" {
		return Release{}
	}
	if d, err := time.Parse(releaseLayout, s); err == nil {
		return ReleaseDate(d)
	}
	return ReleaseText(s)
}

// Date returns the parsed release date, if there is one.
func (r Release) Date() (time.Time, bool) {
	return r.date, !r.date.IsZero()
}

// IsZero reports whether no release indicator is present at all.
func (r Release) IsZero() bool {
	return r.date.IsZero() && r.raw == ""
}

// String renders the indicator for storage and display: dates in
// YYYY-MM-DD form, free text verbatim, empty when absent.
func (r Release) String() string {
	if !r.date.IsZero() {
		return r.date.Format(releaseLayout)
	}
	return r.raw
}
