package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/config"
)

const resubscribeDelay = 2 * time.Second

// RedisStore keeps each record in a hash, the keys of a collection in a
// sorted set with a constant score (so members sort lexically) and announces
// every change on a per-collection PubSub channel.
type RedisStore struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisStore creates a RedisStore over an existing client.
func NewRedisStore(rdb *redis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		log: log.With().Str("component", "redis_store").Logger(),
	}
}

func (s *RedisStore) Read(ctx context.Context, path Path) (Fields, error) {
	collection, key, err := path.Split()
	if err != nil {
		return nil, err
	}
	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.RecordKey(collection, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}
	return toFields(raw), nil
}

func (s *RedisStore) ReadCollection(ctx context.Context, collection string) ([]Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	keys, err := s.rdb.ZRange(ctx, config.CacheKey.CollectionIndexKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if len(keys) == 0 {
		return []Record{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, config.CacheKey.RecordKey(collection, key))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}

	records := make([]Record, 0, len(keys))
	for i, key := range keys {
		raw := cmds[i].Val()
		if len(raw) == 0 {
			// Index entry without a hash: removed between ZRANGE and HGETALL.
			continue
		}
		records = append(records, Record{Key: key, Fields: toFields(raw)})
	}
	return records, nil
}

func (s *RedisStore) Write(ctx context.Context, path Path, value Fields) error {
	if len(value) == 0 {
		return s.Remove(ctx, path)
	}
	collection, key, err := path.Split()
	if err != nil {
		return err
	}
	recordKey := config.CacheKey.RecordKey(collection, key)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKey)
		pipe.HSet(ctx, recordKey, toHash(value))
		pipe.ZAdd(ctx, config.CacheKey.CollectionIndexKey(collection), redis.Z{Score: 0, Member: key})
		pipe.Publish(ctx, config.CacheKey.CollectionChangedChannel(collection), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, path Path, partial Fields) error {
	collection, key, err := path.Split()
	if err != nil {
		return err
	}
	if len(partial) == 0 {
		return nil
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, config.CacheKey.RecordKey(collection, key), toHash(partial))
		pipe.ZAdd(ctx, config.CacheKey.CollectionIndexKey(collection), redis.Z{Score: 0, Member: key})
		pipe.Publish(ctx, config.CacheKey.CollectionChangedChannel(collection), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, path Path) error {
	collection, key, err := path.Split()
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, config.CacheKey.RecordKey(collection, key))
		pipe.ZRem(ctx, config.CacheKey.CollectionIndexKey(collection), key)
		pipe.Publish(ctx, config.CacheKey.CollectionChangedChannel(collection), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (s *RedisStore) Push(ctx context.Context, collection string, value Fields) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	key := NewKey()
	if err := s.Write(ctx, Ref(collection, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RedisStore) Replace(ctx context.Context, collection string, records []Record) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	for _, r := range records {
		if !validSegment(r.Key) {
			return fmt.Errorf("%w: key %q", ErrInvalidPath, r.Key)
		}
	}
	indexKey := config.CacheKey.CollectionIndexKey(collection)
	existing, err := s.rdb.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("list %s: %w", collection, err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range existing {
			pipe.Del(ctx, config.CacheKey.RecordKey(collection, key))
		}
		pipe.Del(ctx, indexKey)
		for _, r := range records {
			if len(r.Fields) == 0 {
				continue
			}
			pipe.HSet(ctx, config.CacheKey.RecordKey(collection, r.Key), toHash(r.Fields))
			pipe.ZAdd(ctx, indexKey, redis.Z{Score: 0, Member: r.Key})
		}
		pipe.Publish(ctx, config.CacheKey.CollectionChangedChannel(collection), "*")
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}

	s.log.Info().Str("collection", collection).Int("records", len(records)).Msg("Collection replaced")
	return nil
}

// Subscribe listens on the collection's change channel. When the PubSub
// connection fails the handler receives ErrDisconnected once, and a fresh
// snapshot follows as soon as the connection answers again.
func (s *RedisStore) Subscribe(ctx context.Context, collection string, handler func(Snapshot)) (func(), error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	pubsub := s.rdb.Subscribe(ctx, config.CacheKey.CollectionChangedChannel(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	sub := newSubscription(collection, handler, func(ctx context.Context) ([]Record, error) {
		return s.ReadCollection(ctx, collection)
	})
	subCtx, cancel := context.WithCancel(ctx)
	sub.cancel = cancel

	go sub.run(subCtx)
	go func() {
		defer pubsub.Close()
		disconnected := false
		for {
			_, err := pubsub.ReceiveMessage(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				if !disconnected {
					s.log.Warn().Err(err).Str("collection", collection).Msg("Change channel lost")
					sub.fail(fmt.Errorf("%w: %v", ErrDisconnected, err))
					disconnected = true
				}
				select {
				case <-subCtx.Done():
					return
				case <-time.After(resubscribeDelay):
				}
				if pubsub.Ping(subCtx) == nil {
					s.log.Info().Str("collection", collection).Msg("Change channel restored")
					disconnected = false
					sub.notify()
				}
				continue
			}
			sub.notify()
		}
	}()
	sub.notify()

	return sub.stop, nil
}

func toFields(raw map[string]string) Fields {
	f := make(Fields, len(raw))
	for k, v := range raw {
		f[k] = json.RawMessage(v)
	}
	return f
}

func toHash(f Fields) map[string]interface{} {
	h := make(map[string]interface{}, len(f))
	for k, v := range f {
		h[k] = string(v)
	}
	return h
}
