package repository

import (
	"context"
	"fmt"

	"github.com/stemsi/perizinan-backend/internal/store"
)

// Record store collections.
const (
	CollectionUsers     = "users"
	CollectionTeachers  = "teachers"
	CollectionStudents  = "students"
	CollectionSchedules = "schedules"
	CollectionPerizinan = "perizinan"
)

// Collections lists every collection included in a backup.
var Collections = []string{
	CollectionUsers,
	CollectionTeachers,
	CollectionStudents,
	CollectionSchedules,
	CollectionPerizinan,
}

// setField updates a single field of an existing record.
func setField(ctx context.Context, s store.Store, path store.Path, field string, value interface{}) error {
	if _, err := s.Read(ctx, path); err != nil {
		return err
	}
	raw, err := store.Value(value)
	if err != nil {
		return err
	}
	if err := s.Update(ctx, path, store.Fields{field: raw}); err != nil {
		return fmt.Errorf("set %s: %w", field, err)
	}
	return nil
}
