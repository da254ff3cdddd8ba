// Package provider queries external correctional systems and normalizes
// their answers. Each jurisdiction has an adapter; the Dispatcher fans a
// logical query out across them and aggregates records and failures.
package provider

import (
	"context"
	"time"

	"ibp/pkg/domain"
)

// Record is the normalized output of one provider match. It exists only
// between parsing and reconciliation; it is never persisted as-is.
type Record struct {
	// ID is the normalized inmate number, zero-padded per jurisdiction
	// ("00012345" for Texas, "12345-678" for Federal).
	ID           string
	Jurisdiction domain.Jurisdiction

	FirstName string
	LastName  string

	// Unit is the housing-unit name, used only as a lookup key during
	// reconciliation.
	Unit string

	Race string
	Sex  string

	// URL points at the provider's detail page when the search results
	// link to one.
	URL string

	Release domain.Release

	FetchedAt time.Time
}

// Adapter is the per-jurisdiction query contract. FormatID validates and
// normalizes an inmate number synchronously, before any network activity;
// the query methods perform exactly one outbound request bounded by the
// given timeout.
type Adapter interface {
	Jurisdiction() domain.Jurisdiction
	FormatID(id int) (string, error)
	QueryByID(ctx context.Context, id int, timeout time.Duration) ([]Record, error)
	QueryByName(ctx context.Context, first, last string, timeout time.Duration) ([]Record, error)
}
