package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/config"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, zerolog.Nop()), mr
}

func keys(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key
	}
	return out
}

func TestRedisCollectionIsOrderedByKey(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	for _, k := range []string{"c", "a", "b"} {
		if err := s.Write(ctx, Ref("students", k), fields(t, map[string]string{"name": k})); err != nil {
			t.Fatalf("Write(%s): %v", k, err)
		}
	}
	records, err := s.ReadCollection(ctx, "students")
	if err != nil {
		t.Fatalf("ReadCollection: %v", err)
	}
	if got := keys(records); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("keys = %v, want lexical order", got)
	}

	var pushed []string
	for i := 0; i < 5; i++ {
		key, err := s.Push(ctx, "perizinan", fields(t, map[string]int{"n": i}))
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
		pushed = append(pushed, key)
	}
	records, _ = s.ReadCollection(ctx, "perizinan")
	if got := keys(records); !reflect.DeepEqual(got, pushed) {
		t.Fatalf("pushed keys read back as %v, want insertion order %v", got, pushed)
	}
}

func TestRedisWriteUpdateRemove(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	p := Ref("users", "u1")

	if _, err := s.Read(ctx, p); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() on empty store error = %v", err)
	}
	if err := s.Write(ctx, p, fields(t, map[string]string{"email": "a@x", "role": "admin"})); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(ctx, p, fields(t, map[string]string{"email": "b@x"})); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read(ctx, p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, ok := got["role"]; ok || string(got["email"]) != `"b@x"` {
		t.Fatalf("Write must overwrite the whole record, got %v", got)
	}

	if err := s.Update(ctx, p, fields(t, map[string]string{"role": "approver"})); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = s.Read(ctx, p)
	if string(got["email"]) != `"b@x"` || string(got["role"]) != `"approver"` {
		t.Fatalf("Update must merge fields, got %v", got)
	}

	for i := 0; i < 2; i++ {
		if err := s.Remove(ctx, p); err != nil {
			t.Fatalf("Remove #%d: %v", i+1, err)
		}
	}
	if _, err := s.Read(ctx, p); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() after remove error = %v", err)
	}
	if mr.Exists(config.CacheKey.RecordKey("users", "u1")) || mr.Exists(config.CacheKey.CollectionIndexKey("users")) {
		t.Fatal("removed record left keys behind")
	}
}

func TestRedisReplace(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)
	_ = s.Write(ctx, Ref("schedules", "old"), fields(t, map[string]string{"day": "Senin"}))

	err := s.Replace(ctx, "schedules", []Record{
		{Key: "k2", Fields: fields(t, map[string]string{"day": "Rabu"})},
		{Key: "k1", Fields: fields(t, map[string]string{"day": "Selasa"})},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	records, _ := s.ReadCollection(ctx, "schedules")
	if got := keys(records); !reflect.DeepEqual(got, []string{"k1", "k2"}) {
		t.Fatalf("keys after replace = %v", got)
	}
	if err := s.Replace(ctx, "schedules", []Record{{Key: "a/b"}}); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("Replace() with bad key error = %v", err)
	}
}

// nextSnapshot waits for a snapshot accepted by match.
func nextSnapshot(t *testing.T, ch <-chan Snapshot, timeout time.Duration, match func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case snap := <-ch:
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("expected snapshot never arrived")
			return Snapshot{}
		}
	}
}

func TestRedisSubscribeDeliversSnapshots(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	_ = s.Write(ctx, Ref("perizinan", "r1"), fields(t, map[string]string{"status": "pending"}))

	ch := make(chan Snapshot, 32)
	stop, err := s.Subscribe(ctx, "perizinan", func(snap Snapshot) { ch <- snap })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	nextSnapshot(t, ch, 2*time.Second, func(s Snapshot) bool { return s.Err == nil && len(s.Records) == 1 })

	if err := s.Write(ctx, Ref("perizinan", "r2"), fields(t, map[string]string{"status": "pending"})); err != nil {
		t.Fatalf("Write: %v", err)
	}
	nextSnapshot(t, ch, 2*time.Second, func(s Snapshot) bool { return s.Err == nil && len(s.Records) == 2 })

	mr.Close()
	nextSnapshot(t, ch, 5*time.Second, func(s Snapshot) bool { return errors.Is(s.Err, ErrDisconnected) })

	if err := mr.Restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	snap := nextSnapshot(t, ch, 10*time.Second, func(s Snapshot) bool { return s.Err == nil })
	if got := keys(snap.Records); !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Fatalf("snapshot after reconnect = %v", got)
	}
}

func TestRedisSubscribeStop(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisStore(t)

	ch := make(chan Snapshot, 32)
	stop, err := s.Subscribe(ctx, "students", func(snap Snapshot) { ch <- snap })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	nextSnapshot(t, ch, 2*time.Second, func(Snapshot) bool { return true })
	stop()
	stop()

	time.Sleep(50 * time.Millisecond)
	for len(ch) > 0 {
		<-ch
	}
	_ = s.Write(ctx, Ref("students", "s1"), fields(t, map[string]string{"name": "Ana"}))
	select {
	case snap := <-ch:
		t.Fatalf("snapshot after stop: %+v", snap)
	case <-time.After(200 * time.Millisecond):
	}
}
