package store

import (
	"context"
	"fmt"
	"sync"
)

// subscription serializes deliveries to one handler. Change signals are
// coalesced: a burst of writes produces at least one snapshot taken after
// the last write.
type subscription struct {
	collection string
	handler    func(Snapshot)
	load       func(ctx context.Context) ([]Record, error)

	signal chan struct{}
	errs   chan error
	cancel context.CancelFunc
	once   sync.Once
}

func newSubscription(collection string, handler func(Snapshot), load func(context.Context) ([]Record, error)) *subscription {
	return &subscription{
		collection: collection,
		handler:    handler,
		load:       load,
		signal:     make(chan struct{}, 1),
		errs:       make(chan error, 1),
	}
}

func (s *subscription) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func (s *subscription) stop() {
	s.once.Do(s.cancel)
}

func (s *subscription) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-s.errs:
			s.deliver(ctx, Snapshot{Collection: s.collection, Err: err})
		case <-s.signal:
			records, err := s.load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.deliver(ctx, Snapshot{Collection: s.collection, Err: fmt.Errorf("%w: %v", ErrDisconnected, err)})
				continue
			}
			s.deliver(ctx, Snapshot{Collection: s.collection, Records: records})
		}
	}
}

func (s *subscription) deliver(ctx context.Context, snap Snapshot) {
	if ctx.Err() != nil {
		return
	}
	s.handler(snap)
}
