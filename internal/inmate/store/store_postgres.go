package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ibp/internal/inmate/models"
	"ibp/pkg/domain"
	"ibp/pkg/platform/index"
	"ibp/pkg/platform/sentinel"
	"ibp/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Postgres is the production Store backed by database/sql.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies the schema. Statements are idempotent, so running it on
// every start is safe.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// execer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Postgres) execer(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return p.db
}

type savepointKey struct{}

// InTransaction begins a transaction, or opens a savepoint when one is
// already running, so nested calls unwind independently.
func (p *Postgres) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if t, ok := tx.From(ctx); ok {
		depth, _ := ctx.Value(savepointKey{}).(int)
		name := fmt.Sprintf("sp_%d", depth)

		if _, err := t.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
			return fmt.Errorf("savepoint: %w", err)
		}
		if err := fn(context.WithValue(ctx, savepointKey{}, depth+1)); err != nil {
			if _, rbErr := t.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
				return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
			}
			return err
		}
		if _, err := t.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
		return nil
	}

	t, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx.With(ctx, t)); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *Postgres) FindInmate(ctx context.Context, jurisdiction domain.Jurisdiction, id int) (models.Inmate, error) {
	var inmate models.Inmate
	err := p.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		inmate, err = p.loadInmate(ctx, jurisdiction, id)
		return err
	})
	return inmate, err
}

func (p *Postgres) FindInmatesByID(ctx context.Context, id int) ([]models.Inmate, error) {
	var found []models.Inmate
	err := p.InTransaction(ctx, func(ctx context.Context) error {
		for _, jurisdiction := range domain.AllJurisdictions() {
			inmate, err := p.loadInmate(ctx, jurisdiction, id)
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			found = append(found, inmate)
		}
		return nil
	})
	return found, err
}

func (p *Postgres) FindInmatesByName(ctx context.Context, first, last string) ([]models.Inmate, error) {
	var found []models.Inmate
	err := p.InTransaction(ctx, func(ctx context.Context) error {
		rows, err := p.execer(ctx).QueryContext(ctx, `
			SELECT jurisdiction, id FROM inmates
			WHERE LOWER(last_name) = LOWER($1)
			  AND LOWER(first_name) LIKE LOWER($2) || '%'
			ORDER BY jurisdiction, id`,
			last, first)
		if err != nil {
			return fmt.Errorf("query inmates by name: %w", err)
		}
		defer rows.Close()

		type ref struct {
			jurisdiction domain.Jurisdiction
			id           int
		}
		var refs []ref
		for rows.Next() {
			var r ref
			if err := rows.Scan(&r.jurisdiction, &r.id); err != nil {
				return fmt.Errorf("scan inmate ref: %w", err)
			}
			refs = append(refs, r)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for _, r := range refs {
			inmate, err := p.loadInmate(ctx, r.jurisdiction, r.id)
			if err != nil {
				return err
			}
			found = append(found, inmate)
		}
		return nil
	})
	return found, err
}

func (p *Postgres) UpsertInmate(ctx context.Context, inmate models.Inmate) error {
	var unitName sql.NullString
	if inmate.Unit != nil {
		unitName = sql.NullString{String: inmate.Unit.Name, Valid: true}
	}

	var releaseDate sql.NullTime
	var releaseText string
	if date, ok := inmate.Release.Date(); ok {
		releaseDate = sql.NullTime{Time: date, Valid: true}
	} else {
		releaseText = inmate.Release.String()
	}

	var fetchedAt sql.NullTime
	if inmate.FetchedAt != nil {
		fetchedAt = sql.NullTime{Time: *inmate.FetchedAt, Valid: true}
	}

	_, err := p.execer(ctx).ExecContext(ctx, `
		INSERT INTO inmates (jurisdiction, id, first_name, last_name, race, sex, url,
		                     release_date, release_text, unit_name, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (jurisdiction, id) DO UPDATE SET
			first_name   = EXCLUDED.first_name,
			last_name    = EXCLUDED.last_name,
			race         = EXCLUDED.race,
			sex          = EXCLUDED.sex,
			url          = EXCLUDED.url,
			release_date = EXCLUDED.release_date,
			release_text = EXCLUDED.release_text,
			unit_name    = EXCLUDED.unit_name,
			fetched_at   = EXCLUDED.fetched_at`,
		inmate.Jurisdiction, inmate.ID, inmate.FirstName, inmate.LastName,
		inmate.Race, inmate.Sex, inmate.URL,
		releaseDate, releaseText, unitName, fetchedAt)
	if err != nil {
		return fmt.Errorf("upsert inmate: %w", err)
	}
	return nil
}

func (p *Postgres) AddLookup(ctx context.Context, jurisdiction domain.Jurisdiction, id int, at time.Time, keep int) error {
	return p.InTransaction(ctx, func(ctx context.Context) error {
		if err := p.requireInmate(ctx, jurisdiction, id); err != nil {
			return err
		}

		indices, err := p.childIndices(ctx, "lookups", jurisdiction, id)
		if err != nil {
			return err
		}

		_, err = p.execer(ctx).ExecContext(ctx, `
			INSERT INTO lookups (jurisdiction, inmate_id, idx, created_at)
			VALUES ($1, $2, $3, $4)`,
			jurisdiction, id, index.NextAvailable(indices), at)
		if err != nil {
			return fmt.Errorf("insert lookup: %w", err)
		}

		if keep < 0 {
			return nil
		}
		_, err = p.execer(ctx).ExecContext(ctx, `
			DELETE FROM lookups
			WHERE jurisdiction = $1 AND inmate_id = $2 AND idx NOT IN (
				SELECT idx FROM lookups
				WHERE jurisdiction = $1 AND inmate_id = $2
				ORDER BY created_at DESC
				LIMIT $3
			)`,
			jurisdiction, id, keep)
		if err != nil {
			return fmt.Errorf("prune lookups: %w", err)
		}
		return nil
	})
}

func (p *Postgres) AddComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, comment models.Comment) (models.Comment, error) {
	err := p.InTransaction(ctx, func(ctx context.Context) error {
		if err := p.requireInmate(ctx, jurisdiction, id); err != nil {
			return err
		}

		indices, err := p.childIndices(ctx, "comments", jurisdiction, id)
		if err != nil {
			return err
		}
		comment.Index = index.NextAvailable(indices)

		_, err = p.execer(ctx).ExecContext(ctx, `
			INSERT INTO comments (jurisdiction, inmate_id, idx, created_at, author, body)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			jurisdiction, id, comment.Index, comment.CreatedAt, comment.Author, comment.Body)
		if err != nil {
			return fmt.Errorf("insert comment: %w", asConflict(err))
		}
		return nil
	})
	if err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (p *Postgres) DeleteComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, idx int) error {
	res, err := p.execer(ctx).ExecContext(ctx, `
		DELETE FROM comments WHERE jurisdiction = $1 AND inmate_id = $2 AND idx = $3`,
		jurisdiction, id, idx)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return requireAffected(res)
}

func (p *Postgres) AddRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, request models.Request) (models.Request, error) {
	err := p.InTransaction(ctx, func(ctx context.Context) error {
		if err := p.requireInmate(ctx, jurisdiction, id); err != nil {
			return err
		}

		indices, err := p.childIndices(ctx, "requests", jurisdiction, id)
		if err != nil {
			return err
		}
		request.Index = index.NextAvailable(indices)

		var shipmentID any
		if request.Shipment != nil {
			if request.Shipment.ID == uuid.Nil {
				request.Shipment.ID = uuid.New()
			}
			if err := p.saveShipment(ctx, *request.Shipment); err != nil {
				return err
			}
			shipmentID = request.Shipment.ID
		}

		_, err = p.execer(ctx).ExecContext(ctx, `
			INSERT INTO requests (jurisdiction, inmate_id, idx, date_postmarked, date_processed, action, shipment_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			jurisdiction, id, request.Index,
			request.DatePostmarked, request.DateProcessed, request.Action, shipmentID)
		if err != nil {
			return fmt.Errorf("insert request: %w", asConflict(err))
		}
		return nil
	})
	if err != nil {
		return models.Request{}, err
	}
	return request, nil
}

func (p *Postgres) DeleteRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, idx int) error {
	res, err := p.execer(ctx).ExecContext(ctx, `
		DELETE FROM requests WHERE jurisdiction = $1 AND inmate_id = $2 AND idx = $3`,
		jurisdiction, id, idx)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return requireAffected(res)
}

func (p *Postgres) FindUnit(ctx context.Context, jurisdiction domain.Jurisdiction, name string) (models.Unit, error) {
	var unit models.Unit
	err := p.execer(ctx).QueryRowContext(ctx, `
		SELECT jurisdiction, name, street_address, city, state, zipcode, url, shipping_method
		FROM units WHERE jurisdiction = $1 AND name = $2`,
		jurisdiction, name).
		Scan(&unit.Jurisdiction, &unit.Name, &unit.StreetAddress, &unit.City,
			&unit.State, &unit.Zipcode, &unit.URL, &unit.ShippingMethod)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Unit{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Unit{}, fmt.Errorf("query unit: %w", err)
	}
	return unit, nil
}

func (p *Postgres) ListUnits(ctx context.Context) ([]models.Unit, error) {
	rows, err := p.execer(ctx).QueryContext(ctx, `
		SELECT jurisdiction, name, street_address, city, state, zipcode, url, shipping_method
		FROM units ORDER BY jurisdiction, name`)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		var unit models.Unit
		if err := rows.Scan(&unit.Jurisdiction, &unit.Name, &unit.StreetAddress, &unit.City,
			&unit.State, &unit.Zipcode, &unit.URL, &unit.ShippingMethod); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func (p *Postgres) SaveUnit(ctx context.Context, unit models.Unit) error {
	_, err := p.execer(ctx).ExecContext(ctx, `
		INSERT INTO units (jurisdiction, name, street_address, city, state, zipcode, url, shipping_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (jurisdiction, name) DO UPDATE SET
			street_address  = EXCLUDED.street_address,
			city            = EXCLUDED.city,
			state           = EXCLUDED.state,
			zipcode         = EXCLUDED.zipcode,
			url             = EXCLUDED.url,
			shipping_method = EXCLUDED.shipping_method`,
		unit.Jurisdiction, unit.Name, unit.StreetAddress, unit.City,
		unit.State, unit.Zipcode, unit.URL, unit.ShippingMethod)
	if err != nil {
		return fmt.Errorf("save unit: %w", err)
	}
	return nil
}

func (p *Postgres) saveShipment(ctx context.Context, shipment models.Shipment) error {
	var shipped sql.NullTime
	if !shipment.DateShipped.IsZero() {
		shipped = sql.NullTime{Time: shipment.DateShipped, Valid: true}
	}
	_, err := p.execer(ctx).ExecContext(ctx, `
		INSERT INTO shipments (id, date_shipped, weight_ounces, postage_cents, tracking_url, tracking_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			date_shipped    = EXCLUDED.date_shipped,
			weight_ounces   = EXCLUDED.weight_ounces,
			postage_cents   = EXCLUDED.postage_cents,
			tracking_url    = EXCLUDED.tracking_url,
			tracking_number = EXCLUDED.tracking_number`,
		shipment.ID, shipped, shipment.WeightOunces, shipment.PostageCents,
		shipment.TrackingURL, shipment.TrackingNumber)
	if err != nil {
		return fmt.Errorf("save shipment: %w", err)
	}
	return nil
}

func (p *Postgres) loadInmate(ctx context.Context, jurisdiction domain.Jurisdiction, id int) (models.Inmate, error) {
	q := p.execer(ctx)

	var inmate models.Inmate
	var releaseDate sql.NullTime
	var releaseText string
	var unitName sql.NullString
	var fetchedAt sql.NullTime

	err := q.QueryRowContext(ctx, `
		SELECT jurisdiction, id, first_name, last_name, race, sex, url,
		       release_date, release_text, unit_name, fetched_at
		FROM inmates WHERE jurisdiction = $1 AND id = $2`,
		jurisdiction, id).
		Scan(&inmate.Jurisdiction, &inmate.ID, &inmate.FirstName, &inmate.LastName,
			&inmate.Race, &inmate.Sex, &inmate.URL,
			&releaseDate, &releaseText, &unitName, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Inmate{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Inmate{}, fmt.Errorf("query inmate: %w", err)
	}

	if releaseDate.Valid {
		inmate.Release = domain.ReleaseDate(releaseDate.Time)
	} else if releaseText != "" {
		inmate.Release = domain.ReleaseText(releaseText)
	}
	if fetchedAt.Valid {
		t := fetchedAt.Time
		inmate.FetchedAt = &t
	}
	if unitName.Valid {
		unit, err := p.FindUnit(ctx, jurisdiction, unitName.String)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return models.Inmate{}, err
		}
		if err == nil {
			inmate.Unit = &unit
		}
	}

	if err := p.loadChildren(ctx, &inmate); err != nil {
		return models.Inmate{}, err
	}
	return inmate, nil
}

func (p *Postgres) loadChildren(ctx context.Context, inmate *models.Inmate) error {
	q := p.execer(ctx)

	rows, err := q.QueryContext(ctx, `
		SELECT idx, created_at FROM lookups
		WHERE jurisdiction = $1 AND inmate_id = $2 ORDER BY idx`,
		inmate.Jurisdiction, inmate.ID)
	if err != nil {
		return fmt.Errorf("query lookups: %w", err)
	}
	for rows.Next() {
		var l models.Lookup
		if err := rows.Scan(&l.Index, &l.CreatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan lookup: %w", err)
		}
		inmate.Lookups = append(inmate.Lookups, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `
		SELECT idx, created_at, author, body FROM comments
		WHERE jurisdiction = $1 AND inmate_id = $2 ORDER BY idx`,
		inmate.Jurisdiction, inmate.ID)
	if err != nil {
		return fmt.Errorf("query comments: %w", err)
	}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.Index, &c.CreatedAt, &c.Author, &c.Body); err != nil {
			rows.Close()
			return fmt.Errorf("scan comment: %w", err)
		}
		inmate.Comments = append(inmate.Comments, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `
		SELECT r.idx, r.date_postmarked, r.date_processed, r.action,
		       s.id, s.date_shipped, s.weight_ounces, s.postage_cents, s.tracking_url, s.tracking_number
		FROM requests r
		LEFT JOIN shipments s ON s.id = r.shipment_id
		WHERE r.jurisdiction = $1 AND r.inmate_id = $2 ORDER BY r.idx`,
		inmate.Jurisdiction, inmate.ID)
	if err != nil {
		return fmt.Errorf("query requests: %w", err)
	}
	for rows.Next() {
		var r models.Request
		var shipmentID sql.Null[uuid.UUID]
		var shipped sql.NullTime
		var weight, postage sql.NullInt64
		var trackingURL, trackingNumber sql.NullString

		if err := rows.Scan(&r.Index, &r.DatePostmarked, &r.DateProcessed, &r.Action,
			&shipmentID, &shipped, &weight, &postage, &trackingURL, &trackingNumber); err != nil {
			rows.Close()
			return fmt.Errorf("scan request: %w", err)
		}
		if shipmentID.Valid {
			r.Shipment = &models.Shipment{
				ID:             shipmentID.V,
				DateShipped:    shipped.Time,
				WeightOunces:   int(weight.Int64),
				PostageCents:   int(postage.Int64),
				TrackingURL:    trackingURL.String,
				TrackingNumber: trackingNumber.String,
			}
		}
		inmate.Requests = append(inmate.Requests, r)
	}
	rows.Close()
	return rows.Err()
}

func (p *Postgres) childIndices(ctx context.Context, table string, jurisdiction domain.Jurisdiction, id int) ([]int, error) {
	rows, err := p.execer(ctx).QueryContext(ctx,
		fmt.Sprintf(`SELECT idx FROM %s WHERE jurisdiction = $1 AND inmate_id = $2`, table),
		jurisdiction, id)
	if err != nil {
		return nil, fmt.Errorf("query %s indices: %w", table, err)
	}
	defer rows.Close()

	var indices []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		indices = append(indices, idx)
	}
	return indices, rows.Err()
}

func (p *Postgres) requireInmate(ctx context.Context, jurisdiction domain.Jurisdiction, id int) error {
	var one int
	err := p.execer(ctx).QueryRowContext(ctx,
		`SELECT 1 FROM inmates WHERE jurisdiction = $1 AND id = $2`,
		jurisdiction, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	return err
}

// asConflict surfaces a unique violation as the conflict sentinel. Child
// inserts run under the per-inmate lock, so hitting this means a caller
// bypassed it.
func asConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w: %v", sentinel.ErrConflict, err)
	}
	return err
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
