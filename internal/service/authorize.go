package service

import (
	"errors"
	"fmt"

	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/store"
)

// Shared service errors.
var (
	ErrUnauthorized = errors.New("role not permitted for this action")
	ErrNotFound     = errors.New("record not found")
)

// Authorizer answers role policy questions.
type Authorizer interface {
	Allowed(role model.Role, obj policy.Object, act policy.Action) bool
}

func authorize(authz Authorizer, actor model.Role, obj policy.Object, act policy.Action) error {
	if !authz.Allowed(actor, obj, act) {
		return fmt.Errorf("%w: %s cannot %s %s", ErrUnauthorized, actor, act, obj)
	}
	return nil
}

// notFound maps the record store's not-found error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
