package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Fields
	subs map[string]map[*subscription]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]Fields),
		subs: make(map[string]map[*subscription]struct{}),
	}
}

func (s *MemoryStore) Read(_ context.Context, path Path) (Fields, error) {
	collection, key, err := path.Split()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.data[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneFields(f), nil
}

func (s *MemoryStore) ReadCollection(_ context.Context, collection string) ([]Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(collection), nil
}

func (s *MemoryStore) snapshotLocked(collection string) []Record {
	records := make([]Record, 0, len(s.data[collection]))
	for key, f := range s.data[collection] {
		records = append(records, Record{Key: key, Fields: cloneFields(f)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records
}

func (s *MemoryStore) Write(ctx context.Context, path Path, value Fields) error {
	if len(value) == 0 {
		return s.Remove(ctx, path)
	}
	collection, key, err := path.Split()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bucketLocked(collection)[key] = cloneFields(value)
	s.mu.Unlock()
	s.changed(collection)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, path Path, partial Fields) error {
	collection, key, err := path.Split()
	if err != nil {
		return err
	}
	if len(partial) == 0 {
		return nil
	}
	s.mu.Lock()
	bucket := s.bucketLocked(collection)
	current, ok := bucket[key]
	if !ok {
		current = make(Fields, len(partial))
	}
	for k, v := range cloneFields(partial) {
		current[k] = v
	}
	bucket[key] = current
	s.mu.Unlock()
	s.changed(collection)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, path Path) error {
	collection, key, err := path.Split()
	if err != nil {
		return err
	}
	s.mu.Lock()
	_, existed := s.data[collection][key]
	delete(s.data[collection], key)
	s.mu.Unlock()
	if existed {
		s.changed(collection)
	}
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, collection string, value Fields) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	key := NewKey()
	if err := s.Write(ctx, Ref(collection, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *MemoryStore) Replace(_ context.Context, collection string, records []Record) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	bucket := make(map[string]Fields, len(records))
	for _, r := range records {
		if !validSegment(r.Key) {
			return ErrInvalidPath
		}
		if len(r.Fields) > 0 {
			bucket[r.Key] = cloneFields(r.Fields)
		}
	}
	s.mu.Lock()
	s.data[collection] = bucket
	s.mu.Unlock()
	s.changed(collection)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string, handler func(Snapshot)) (func(), error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	sub := newSubscription(collection, handler, func(ctx context.Context) ([]Record, error) {
		return s.ReadCollection(ctx, collection)
	})
	subCtx, cancel := context.WithCancel(ctx)
	sub.cancel = cancel

	s.mu.Lock()
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[*subscription]struct{})
	}
	s.subs[collection][sub] = struct{}{}
	s.mu.Unlock()

	go sub.run(subCtx)
	go func() {
		<-subCtx.Done()
		s.mu.Lock()
		delete(s.subs[collection], sub)
		s.mu.Unlock()
	}()
	sub.notify()

	return sub.stop, nil
}

func (s *MemoryStore) bucketLocked(collection string) map[string]Fields {
	bucket, ok := s.data[collection]
	if !ok {
		bucket = make(map[string]Fields)
		s.data[collection] = bucket
	}
	return bucket
}

func (s *MemoryStore) changed(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subs[collection] {
		sub.notify()
	}
}
