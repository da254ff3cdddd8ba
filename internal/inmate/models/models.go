// Package models defines the persistent inmate aggregate: the inmate
// record itself plus its units, lookups, comments, requests and shipments.
package models

import (
	"time"

	"github.com/google/uuid"

	"ibp/pkg/domain"
)

// ShippingMethod is how packages reach a unit.
type ShippingMethod string

const (
	ShipBox        ShippingMethod = "Box"
	ShipIndividual ShippingMethod = "Individual"
)

// RequestAction is the disposition of a request.
type RequestAction string

const (
	ActionFilled RequestAction = "Filled"
	ActionTossed RequestAction = "Tossed"
)

// Unit is a facility inmates are assigned to, keyed by jurisdiction and
// name. The address fields drive shipping labels.
type Unit struct {
	Jurisdiction domain.Jurisdiction
	Name         string

	StreetAddress string
	City          string
	State         string
	Zipcode       string

	URL            string
	ShippingMethod ShippingMethod
}

// Inmate is the reconciled view of one individual in one jurisdiction.
// FetchedAt is nil for an entry that has never been confirmed against its
// provider.
type Inmate struct {
	Jurisdiction domain.Jurisdiction
	ID           int

	FirstName string
	LastName  string
	Race      string
	Sex       string
	URL       string

	Release domain.Release
	Unit    *Unit

	FetchedAt *time.Time

	Lookups  []Lookup
	Comments []Comment
	Requests []Request
}

// EntryIsFresh reports whether the entry was confirmed against its provider
// recently enough to serve without a new query. An entry that has never
// been fetched is never fresh, and an entry exactly ttl old is stale.
func (i Inmate) EntryIsFresh(now time.Time, ttl time.Duration) bool {
	if i.FetchedAt == nil {
		return false
	}
	return now.Sub(*i.FetchedAt) < ttl
}

// Lookup records one volunteer lookup of this inmate.
type Lookup struct {
	Index     int
	CreatedAt time.Time
}

// Comment is a free-form volunteer note attached to an inmate.
type Comment struct {
	Index     int
	CreatedAt time.Time
	Author    string
	Body      string
}

// Request is one package request from an inmate.
type Request struct {
	Index          int
	DatePostmarked time.Time
	DateProcessed  time.Time
	Action         RequestAction
	Shipment       *Shipment
}

// Status reports the request's lifecycle stage for display. A filled
// request becomes Shipped once its shipment has a ship date.
func (r Request) Status() string {
	if r.Action == ActionFilled && r.Shipment != nil && !r.Shipment.DateShipped.IsZero() {
		return "Shipped"
	}
	return string(r.Action)
}

// Shipment is the physical package sent for one or more filled requests.
type Shipment struct {
	ID             uuid.UUID
	DateShipped    time.Time
	WeightOunces   int
	PostageCents   int
	TrackingURL    string
	TrackingNumber string
}
