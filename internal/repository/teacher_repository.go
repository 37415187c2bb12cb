package repository

import (
	"context"

	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// TeacherRepository handles staff account records.
type TeacherRepository struct {
	store store.Store
}

// NewTeacherRepository creates a new TeacherRepository.
func NewTeacherRepository(s store.Store) *TeacherRepository {
	return &TeacherRepository{store: s}
}

// Create pushes a new account record and sets its ID.
func (r *TeacherRepository) Create(ctx context.Context, t *model.Teacher) error {
	fields, err := store.Encode(t)
	if err != nil {
		return err
	}
	key, err := r.store.Push(ctx, CollectionTeachers, fields)
	if err != nil {
		return err
	}
	t.ID = key
	return nil
}

// GetByID retrieves an account record.
func (r *TeacherRepository) GetByID(ctx context.Context, id string) (*model.Teacher, error) {
	fields, err := r.store.Read(ctx, store.Ref(CollectionTeachers, id))
	if err != nil {
		return nil, err
	}
	t := &model.Teacher{}
	if err := store.Decode(fields, t); err != nil {
		return nil, err
	}
	t.ID = id
	return t, nil
}

// List returns every account record in key order.
func (r *TeacherRepository) List(ctx context.Context) ([]model.Teacher, error) {
	records, err := r.store.ReadCollection(ctx, CollectionTeachers)
	if err != nil {
		return nil, err
	}
	teachers := make([]model.Teacher, 0, len(records))
	for _, rec := range records {
		var t model.Teacher
		if err := store.Decode(rec.Fields, &t); err != nil {
			continue
		}
		t.ID = rec.Key
		teachers = append(teachers, t)
	}
	return teachers, nil
}

// SetField updates one field of an existing account record.
func (r *TeacherRepository) SetField(ctx context.Context, id, field, value string) error {
	return setField(ctx, r.store, store.Ref(CollectionTeachers, id), field, value)
}

// Delete removes an account record.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	return r.store.Remove(ctx, store.Ref(CollectionTeachers, id))
}
