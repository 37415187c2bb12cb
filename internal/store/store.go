// Package store is a path-addressed record store with live collection
// subscriptions. A record lives at "collection/key" and holds a flat set of
// JSON-encoded fields.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidPath  = errors.New("invalid record path")
	ErrDisconnected = errors.New("record store disconnected")
)

// Fields is the value of one record, keyed by field name.
type Fields map[string]json.RawMessage

// Record is a keyed value within a collection.
type Record struct {
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// Snapshot is the full state of a collection as delivered to subscribers.
// Records are ordered by key. Err is set instead when the store could not
// produce the collection.
type Snapshot struct {
	Collection string
	Records    []Record
	Err        error
}

// Store is the record store consumed by the repositories.
type Store interface {
	// Read returns the record at path or ErrNotFound.
	Read(ctx context.Context, path Path) (Fields, error)
	// ReadCollection returns every record of a collection ordered by key.
	ReadCollection(ctx context.Context, collection string) ([]Record, error)
	// Write overwrites the record at path. An empty value removes it.
	Write(ctx context.Context, path Path, value Fields) error
	// Update merges the given fields into the record at path, creating it
	// when absent. Fields not named in partial are left untouched.
	Update(ctx context.Context, path Path, partial Fields) error
	// Remove deletes the record at path. Removing a missing record is not an error.
	Remove(ctx context.Context, path Path) error
	// Push stores value under a new key and returns it. Keys sort in
	// insertion order.
	Push(ctx context.Context, collection string, value Fields) (string, error)
	// Replace swaps the whole content of a collection.
	Replace(ctx context.Context, collection string, records []Record) error
	// Subscribe delivers the current snapshot of collection and a new one
	// after every change until ctx is done or the returned func is called.
	Subscribe(ctx context.Context, collection string, handler func(Snapshot)) (func(), error)
}

// Path addresses a single record.
type Path string

// Ref builds the path of a record.
func Ref(collection, key string) Path {
	return Path(collection + "/" + key)
}

// Split returns the collection and key of p.
func (p Path) Split() (collection, key string, err error) {
	parts := strings.Split(string(p), "/")
	if len(parts) != 2 || !validSegment(parts[0]) || !validSegment(parts[1]) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, string(p))
	}
	return parts[0], parts[1], nil
}

func validSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/:*?[] \t\n")
}

func checkCollection(collection string) error {
	if !validSegment(collection) {
		return fmt.Errorf("%w: collection %q", ErrInvalidPath, collection)
	}
	return nil
}

// NewKey returns a time-ordered record key.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Encode converts v into record fields. The "id" field is dropped because
// the id of a record is its key.
func Encode(v interface{}) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	delete(fields, "id")
	return fields, nil
}

// Decode fills dst from record fields.
func Decode(fields Fields, dst interface{}) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// Value encodes a single field value.
func Value(v interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode field: %w", err)
	}
	return raw, nil
}

func cloneFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
