package repository

import (
	"context"

	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// UserRepository handles role records keyed by identity id.
type UserRepository struct {
	store store.Store
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(s store.Store) *UserRepository {
	return &UserRepository{store: s}
}

// Get returns the role record of an identity as stored. The role is not
// validated here.
func (r *UserRepository) Get(ctx context.Context, identityID string) (*model.RoleRecord, error) {
	fields, err := r.store.Read(ctx, store.Ref(CollectionUsers, identityID))
	if err != nil {
		return nil, err
	}
	var rec model.RoleRecord
	if err := store.Decode(fields, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put writes the role record of an identity.
func (r *UserRepository) Put(ctx context.Context, identityID string, rec model.RoleRecord) error {
	fields, err := store.Encode(rec)
	if err != nil {
		return err
	}
	return r.store.Write(ctx, store.Ref(CollectionUsers, identityID), fields)
}

// SetField mirrors one account field into the role record.
func (r *UserRepository) SetField(ctx context.Context, identityID, field, value string) error {
	raw, err := store.Value(value)
	if err != nil {
		return err
	}
	return r.store.Update(ctx, store.Ref(CollectionUsers, identityID), store.Fields{field: raw})
}

// Delete removes the role record of an identity.
func (r *UserRepository) Delete(ctx context.Context, identityID string) error {
	return r.store.Remove(ctx, store.Ref(CollectionUsers, identityID))
}

// List returns every role record keyed by identity id.
func (r *UserRepository) List(ctx context.Context) (map[string]model.RoleRecord, error) {
	records, err := r.store.ReadCollection(ctx, CollectionUsers)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.RoleRecord, len(records))
	for _, rec := range records {
		var rr model.RoleRecord
		if err := store.Decode(rec.Fields, &rr); err != nil {
			continue
		}
		out[rec.Key] = rr
	}
	return out, nil
}
