package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/repository"
)

type stubQueue struct {
	items []repository.OrphanIdentity
}

func (q *stubQueue) Enqueue(_ context.Context, o repository.OrphanIdentity) error {
	q.items = append(q.items, o)
	return nil
}

func (q *stubQueue) Dequeue(_ context.Context, _ time.Duration) (*repository.OrphanIdentity, error) {
	if len(q.items) == 0 {
		return nil, redis.Nil
	}
	o := q.items[0]
	q.items = q.items[1:]
	return &o, nil
}

type stubDeleter struct {
	err     error
	deleted []string
}

func (d *stubDeleter) DeleteAccount(_ context.Context, id string) error {
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, id)
	return nil
}

func (d *stubDeleter) Delete(ctx context.Context, id string) error {
	return d.DeleteAccount(ctx, id)
}

func newTestWorker(q *stubQueue, accounts, roles *stubDeleter) *CompensationWorker {
	w := NewCompensationWorker(q, accounts, roles, zerolog.Nop())
	w.sleep = func(context.Context, time.Duration) {}
	return w
}

func TestProcessRemovesRoleRecordAndIdentity(t *testing.T) {
	q := &stubQueue{}
	accounts, roles := &stubDeleter{}, &stubDeleter{}
	w := newTestWorker(q, accounts, roles)

	w.Process(context.Background(), &repository.OrphanIdentity{IdentityID: "id-1"})

	if len(roles.deleted) != 1 || len(accounts.deleted) != 1 {
		t.Fatalf("roles=%v accounts=%v", roles.deleted, accounts.deleted)
	}
	if len(q.items) != 0 {
		t.Fatalf("unexpected requeue: %+v", q.items)
	}
}

func TestProcessRequeuesUntilMaxAttempts(t *testing.T) {
	q := &stubQueue{}
	accounts := &stubDeleter{err: errors.New("identity provider down")}
	w := newTestWorker(q, accounts, &stubDeleter{})

	w.Process(context.Background(), &repository.OrphanIdentity{IdentityID: "id-2"})
	if len(q.items) != 1 || q.items[0].Attempts != 1 {
		t.Fatalf("queue after first failure = %+v", q.items)
	}

	w.Process(context.Background(), &repository.OrphanIdentity{IdentityID: "id-3", Attempts: CompensationMaxAttempts - 1})
	if len(q.items) != 1 {
		t.Fatalf("identity requeued past max attempts: %+v", q.items)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	if got := backoff(1); got != CompensationBaseBackoff {
		t.Fatalf("backoff(1) = %v", got)
	}
	if got := backoff(3); got != 4*CompensationBaseBackoff {
		t.Fatalf("backoff(3) = %v", got)
	}
	if got := backoff(40); got != CompensationMaxBackoff {
		t.Fatalf("backoff(40) = %v", got)
	}
}
