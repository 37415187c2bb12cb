package repository

import (
	"context"

	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// PerizinanRepository handles permission request records.
type PerizinanRepository struct {
	store store.Store
}

// NewPerizinanRepository creates a new PerizinanRepository.
func NewPerizinanRepository(s store.Store) *PerizinanRepository {
	return &PerizinanRepository{store: s}
}

// Create pushes a new request and sets its ID.
func (r *PerizinanRepository) Create(ctx context.Context, p *model.Perizinan) error {
	fields, err := store.Encode(p)
	if err != nil {
		return err
	}
	key, err := r.store.Push(ctx, CollectionPerizinan, fields)
	if err != nil {
		return err
	}
	p.ID = key
	return nil
}

// GetByID retrieves a request.
func (r *PerizinanRepository) GetByID(ctx context.Context, id string) (*model.Perizinan, error) {
	fields, err := r.store.Read(ctx, store.Ref(CollectionPerizinan, id))
	if err != nil {
		return nil, err
	}
	p := &model.Perizinan{}
	if err := store.Decode(fields, p); err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

// List returns every request in key order.
func (r *PerizinanRepository) List(ctx context.Context) ([]model.Perizinan, error) {
	records, err := r.store.ReadCollection(ctx, CollectionPerizinan)
	if err != nil {
		return nil, err
	}
	return DecodePerizinan(records), nil
}

// Subscribe delivers the whole request collection after every change.
func (r *PerizinanRepository) Subscribe(ctx context.Context, handler func(store.Snapshot)) (func(), error) {
	return r.store.Subscribe(ctx, CollectionPerizinan, handler)
}

// SetField updates one field of an existing request.
func (r *PerizinanRepository) SetField(ctx context.Context, id string, field model.PerizinanField, value string) error {
	return setField(ctx, r.store, store.Ref(CollectionPerizinan, id), string(field), value)
}

// Delete removes a request.
func (r *PerizinanRepository) Delete(ctx context.Context, id string) error {
	return r.store.Remove(ctx, store.Ref(CollectionPerizinan, id))
}

// DecodePerizinan converts a snapshot into requests in key order. Records
// without a subject name are partial leftovers of an edit racing a delete
// and are skipped.
func DecodePerizinan(records []store.Record) []model.Perizinan {
	out := make([]model.Perizinan, 0, len(records))
	for _, rec := range records {
		var p model.Perizinan
		if err := store.Decode(rec.Fields, &p); err != nil || p.SubjectName == "" {
			continue
		}
		p.ID = rec.Key
		out = append(out, p)
	}
	return out
}
