package repository

import (
	"context"

	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// StudentRepository handles roster records.
type StudentRepository struct {
	store store.Store
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(s store.Store) *StudentRepository {
	return &StudentRepository{store: s}
}

// Create pushes a new roster entry and sets its ID.
func (r *StudentRepository) Create(ctx context.Context, st *model.Student) error {
	fields, err := store.Encode(st)
	if err != nil {
		return err
	}
	key, err := r.store.Push(ctx, CollectionStudents, fields)
	if err != nil {
		return err
	}
	st.ID = key
	return nil
}

// GetByID retrieves a roster entry.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*model.Student, error) {
	fields, err := r.store.Read(ctx, store.Ref(CollectionStudents, id))
	if err != nil {
		return nil, err
	}
	st := &model.Student{}
	if err := store.Decode(fields, st); err != nil {
		return nil, err
	}
	st.ID = id
	return st, nil
}

// List returns the roster in key order.
func (r *StudentRepository) List(ctx context.Context) ([]model.Student, error) {
	records, err := r.store.ReadCollection(ctx, CollectionStudents)
	if err != nil {
		return nil, err
	}
	return DecodeStudents(records), nil
}

// Subscribe delivers the roster after every change.
func (r *StudentRepository) Subscribe(ctx context.Context, handler func(store.Snapshot)) (func(), error) {
	return r.store.Subscribe(ctx, CollectionStudents, handler)
}

// SetField updates one field of an existing roster entry.
func (r *StudentRepository) SetField(ctx context.Context, id, field, value string) error {
	return setField(ctx, r.store, store.Ref(CollectionStudents, id), field, value)
}

// Delete removes a roster entry.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	return r.store.Remove(ctx, store.Ref(CollectionStudents, id))
}

// DecodeStudents converts a roster snapshot. Undecodable records are skipped.
func DecodeStudents(records []store.Record) []model.Student {
	students := make([]model.Student, 0, len(records))
	for _, rec := range records {
		var st model.Student
		if err := store.Decode(rec.Fields, &st); err != nil {
			continue
		}
		st.ID = rec.Key
		students = append(students, st)
	}
	return students
}
