package repository

import (
	"context"

	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// ScheduleRepository handles duty roster records.
type ScheduleRepository struct {
	store store.Store
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(s store.Store) *ScheduleRepository {
	return &ScheduleRepository{store: s}
}

// Create pushes a new schedule and sets its ID.
func (r *ScheduleRepository) Create(ctx context.Context, sc *model.Schedule) error {
	fields, err := store.Encode(sc)
	if err != nil {
		return err
	}
	key, err := r.store.Push(ctx, CollectionSchedules, fields)
	if err != nil {
		return err
	}
	sc.ID = key
	return nil
}

// GetByID retrieves a schedule.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	fields, err := r.store.Read(ctx, store.Ref(CollectionSchedules, id))
	if err != nil {
		return nil, err
	}
	sc := &model.Schedule{}
	if err := store.Decode(fields, sc); err != nil {
		return nil, err
	}
	sc.ID = id
	return sc, nil
}

// List returns every schedule in key order.
func (r *ScheduleRepository) List(ctx context.Context) ([]model.Schedule, error) {
	records, err := r.store.ReadCollection(ctx, CollectionSchedules)
	if err != nil {
		return nil, err
	}
	schedules := make([]model.Schedule, 0, len(records))
	for _, rec := range records {
		var sc model.Schedule
		if err := store.Decode(rec.Fields, &sc); err != nil {
			continue
		}
		sc.ID = rec.Key
		schedules = append(schedules, sc)
	}
	return schedules, nil
}

// Update overwrites an existing schedule.
func (r *ScheduleRepository) Update(ctx context.Context, sc *model.Schedule) error {
	path := store.Ref(CollectionSchedules, sc.ID)
	if _, err := r.store.Read(ctx, path); err != nil {
		return err
	}
	fields, err := store.Encode(sc)
	if err != nil {
		return err
	}
	return r.store.Write(ctx, path, fields)
}

// Delete removes a schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	return r.store.Remove(ctx, store.Ref(CollectionSchedules, id))
}
