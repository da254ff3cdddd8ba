// Package store persists inmates, units and their child records. Two
// implementations exist: an in-memory store for tests and small
// deployments, and a Postgres store for production.
package store

import (
	"context"
	"time"

	"ibp/internal/inmate/models"
	"ibp/pkg/domain"
)

// Store is the persistence surface for the inmate aggregate.
//
// Child indices (lookups, comments, requests) are assigned by the store:
// each new child gets the lowest non-negative index not currently used by
// a sibling of the same kind on the same inmate.
type Store interface {
	// FindInmate loads one inmate with all child records. Returns
	// sentinel.ErrNotFound when no such entry exists.
	FindInmate(ctx context.Context, jurisdiction domain.Jurisdiction, id int) (models.Inmate, error)

	// FindInmatesByID loads the entries for an id across all
	// jurisdictions. An empty slice is not an error.
	FindInmatesByID(ctx context.Context, id int) ([]models.Inmate, error)

	// FindInmatesByName matches last name exactly and first name by
	// prefix, both case-insensitively.
	FindInmatesByName(ctx context.Context, first, last string) ([]models.Inmate, error)

	// UpsertInmate inserts or updates the descriptive fields of one
	// entry. Child records are never touched.
	UpsertInmate(ctx context.Context, inmate models.Inmate) error

	// AddLookup appends a lookup and prunes the inmate's lookups to the
	// keep most recent.
	AddLookup(ctx context.Context, jurisdiction domain.Jurisdiction, id int, at time.Time, keep int) error

	// AddComment attaches a comment, assigning its index.
	AddComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, comment models.Comment) (models.Comment, error)

	// DeleteComment removes one comment by index. Returns
	// sentinel.ErrNotFound when the inmate or the comment is missing.
	DeleteComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, index int) error

	// AddRequest attaches a request, assigning its index.
	AddRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, request models.Request) (models.Request, error)

	// DeleteRequest removes one request by index.
	DeleteRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, index int) error

	// FindUnit loads one unit by jurisdiction and name.
	FindUnit(ctx context.Context, jurisdiction domain.Jurisdiction, name string) (models.Unit, error)

	// ListUnits loads every known unit.
	ListUnits(ctx context.Context) ([]models.Unit, error)

	// SaveUnit inserts or updates one unit.
	SaveUnit(ctx context.Context, unit models.Unit) error

	// InTransaction runs fn atomically. Calls nest: an inner transaction
	// rolls back to its own start without aborting the outer one.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
