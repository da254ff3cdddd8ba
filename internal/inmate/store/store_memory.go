package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ibp/internal/inmate/models"
	"ibp/pkg/domain"
	"ibp/pkg/platform/index"
	"ibp/pkg/platform/sentinel"
)

type inmateKey struct {
	jurisdiction domain.Jurisdiction
	id           int
}

type unitKey struct {
	jurisdiction domain.Jurisdiction
	name         string
}

// Memory is an in-memory Store. Transactions snapshot the whole state and
// restore it on error, which mirrors the rollback-to-savepoint semantics
// of the Postgres store.
type Memory struct {
	mu      sync.Mutex
	inmates map[inmateKey]models.Inmate
	units   map[unitKey]models.Unit
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		inmates: make(map[inmateKey]models.Inmate),
		units:   make(map[unitKey]models.Unit),
	}
}

type memTxKey struct{}

func (m *Memory) enter(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) FindInmate(ctx context.Context, jurisdiction domain.Jurisdiction, id int) (models.Inmate, error) {
	defer m.enter(ctx)()

	inmate, ok := m.inmates[inmateKey{jurisdiction: jurisdiction, id: id}]
	if !ok {
		return models.Inmate{}, sentinel.ErrNotFound
	}
	return m.resolve(inmate), nil
}

func (m *Memory) FindInmatesByID(ctx context.Context, id int) ([]models.Inmate, error) {
	defer m.enter(ctx)()

	var found []models.Inmate
	for _, jurisdiction := range domain.AllJurisdictions() {
		if inmate, ok := m.inmates[inmateKey{jurisdiction: jurisdiction, id: id}]; ok {
			found = append(found, m.resolve(inmate))
		}
	}
	return found, nil
}

func (m *Memory) FindInmatesByName(ctx context.Context, first, last string) ([]models.Inmate, error) {
	defer m.enter(ctx)()

	var found []models.Inmate
	for _, inmate := range m.inmates {
		if !strings.EqualFold(inmate.LastName, last) {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(inmate.FirstName), strings.ToLower(first)) {
			continue
		}
		found = append(found, m.resolve(inmate))
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Jurisdiction != found[j].Jurisdiction {
			return found[i].Jurisdiction < found[j].Jurisdiction
		}
		return found[i].ID < found[j].ID
	})
	return found, nil
}

func (m *Memory) UpsertInmate(ctx context.Context, inmate models.Inmate) error {
	defer m.enter(ctx)()

	k := inmateKey{jurisdiction: inmate.Jurisdiction, id: inmate.ID}
	existing, ok := m.inmates[k]
	if !ok {
		existing = models.Inmate{Jurisdiction: inmate.Jurisdiction, ID: inmate.ID}
	}

	existing.FirstName = inmate.FirstName
	existing.LastName = inmate.LastName
	existing.Race = inmate.Race
	existing.Sex = inmate.Sex
	existing.URL = inmate.URL
	existing.Release = inmate.Release
	existing.Unit = inmate.Unit
	existing.FetchedAt = inmate.FetchedAt

	m.inmates[k] = existing
	return nil
}

func (m *Memory) AddLookup(ctx context.Context, jurisdiction domain.Jurisdiction, id int, at time.Time, keep int) error {
	defer m.enter(ctx)()

	k := inmateKey{jurisdiction: jurisdiction, id: id}
	inmate, ok := m.inmates[k]
	if !ok {
		return sentinel.ErrNotFound
	}

	indices := make([]int, 0, len(inmate.Lookups))
	for _, l := range inmate.Lookups {
		indices = append(indices, l.Index)
	}
	lookups := append(append([]models.Lookup(nil), inmate.Lookups...), models.Lookup{
		Index:     index.NextAvailable(indices),
		CreatedAt: at,
	})

	// Keep only the most recent lookups.
	sort.Slice(lookups, func(i, j int) bool {
		return lookups[i].CreatedAt.After(lookups[j].CreatedAt)
	})
	if keep >= 0 && len(lookups) > keep {
		lookups = lookups[:keep]
	}

	inmate.Lookups = lookups
	m.inmates[k] = inmate
	return nil
}

func (m *Memory) AddComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, comment models.Comment) (models.Comment, error) {
	defer m.enter(ctx)()

	k := inmateKey{jurisdiction: jurisdiction, id: id}
	inmate, ok := m.inmates[k]
	if !ok {
		return models.Comment{}, sentinel.ErrNotFound
	}

	indices := make([]int, 0, len(inmate.Comments))
	for _, c := range inmate.Comments {
		indices = append(indices, c.Index)
	}
	comment.Index = index.NextAvailable(indices)

	inmate.Comments = append(append([]models.Comment(nil), inmate.Comments...), comment)
	m.inmates[k] = inmate
	return comment, nil
}

func (m *Memory) DeleteComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, idx int) error {
	defer m.enter(ctx)()

	k := inmateKey{jurisdiction: jurisdiction, id: id}
	inmate, ok := m.inmates[k]
	if !ok {
		return sentinel.ErrNotFound
	}

	for i, c := range inmate.Comments {
		if c.Index == idx {
			inmate.Comments = append(append([]models.Comment(nil), inmate.Comments[:i]...), inmate.Comments[i+1:]...)
			m.inmates[k] = inmate
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (m *Memory) AddRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, request models.Request) (models.Request, error) {
	defer m.enter(ctx)()

	k := inmateKey{jurisdiction: jurisdiction, id: id}
	inmate, ok := m.inmates[k]
	if !ok {
		return models.Request{}, sentinel.ErrNotFound
	}

	indices := make([]int, 0, len(inmate.Requests))
	for _, r := range inmate.Requests {
		indices = append(indices, r.Index)
	}
	request.Index = index.NextAvailable(indices)

	inmate.Requests = append(append([]models.Request(nil), inmate.Requests...), request)
	m.inmates[k] = inmate
	return request, nil
}

func (m *Memory) DeleteRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, idx int) error {
	defer m.enter(ctx)()

	k := inmateKey{jurisdiction: jurisdiction, id: id}
	inmate, ok := m.inmates[k]
	if !ok {
		return sentinel.ErrNotFound
	}

	for i, r := range inmate.Requests {
		if r.Index == idx {
			inmate.Requests = append(append([]models.Request(nil), inmate.Requests[:i]...), inmate.Requests[i+1:]...)
			m.inmates[k] = inmate
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (m *Memory) FindUnit(ctx context.Context, jurisdiction domain.Jurisdiction, name string) (models.Unit, error) {
	defer m.enter(ctx)()

	unit, ok := m.units[unitKey{jurisdiction: jurisdiction, name: name}]
	if !ok {
		return models.Unit{}, sentinel.ErrNotFound
	}
	return unit, nil
}

func (m *Memory) ListUnits(ctx context.Context) ([]models.Unit, error) {
	defer m.enter(ctx)()

	units := make([]models.Unit, 0, len(m.units))
	for _, u := range m.units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Jurisdiction != units[j].Jurisdiction {
			return units[i].Jurisdiction < units[j].Jurisdiction
		}
		return units[i].Name < units[j].Name
	})
	return units, nil
}

func (m *Memory) SaveUnit(ctx context.Context, unit models.Unit) error {
	defer m.enter(ctx)()

	m.units[unitKey{jurisdiction: unit.Jurisdiction, name: unit.Name}] = unit
	return nil
}

// InTransaction snapshots the state, runs fn, and restores the snapshot on
// error. Nested calls snapshot again, so an inner failure unwinds only the
// inner work.
func (m *Memory) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	done := m.enter(ctx)
	defer done()

	inmates, units := m.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, struct{}{})); err != nil {
		m.inmates, m.units = inmates, units
		return err
	}
	return nil
}

func (m *Memory) snapshot() (map[inmateKey]models.Inmate, map[unitKey]models.Unit) {
	inmates := make(map[inmateKey]models.Inmate, len(m.inmates))
	for k, v := range m.inmates {
		v.Lookups = append([]models.Lookup(nil), v.Lookups...)
		v.Comments = append([]models.Comment(nil), v.Comments...)
		v.Requests = append([]models.Request(nil), v.Requests...)
		inmates[k] = v
	}
	units := make(map[unitKey]models.Unit, len(m.units))
	for k, v := range m.units {
		units[k] = v
	}
	return inmates, units
}

// resolve attaches the current unit row to a loaded inmate and sorts its
// children by index for stable output.
func (m *Memory) resolve(inmate models.Inmate) models.Inmate {
	if inmate.Unit != nil {
		if unit, ok := m.units[unitKey{jurisdiction: inmate.Unit.Jurisdiction, name: inmate.Unit.Name}]; ok {
			inmate.Unit = &unit
		}
	}

	inmate.Lookups = append([]models.Lookup(nil), inmate.Lookups...)
	inmate.Comments = append([]models.Comment(nil), inmate.Comments...)
	inmate.Requests = append([]models.Request(nil), inmate.Requests...)

	sort.Slice(inmate.Lookups, func(i, j int) bool { return inmate.Lookups[i].Index < inmate.Lookups[j].Index })
	sort.Slice(inmate.Comments, func(i, j int) bool { return inmate.Comments[i].Index < inmate.Comments[j].Index })
	sort.Slice(inmate.Requests, func(i, j int) bool { return inmate.Requests[i].Index < inmate.Requests[j].Index })
	return inmate
}
