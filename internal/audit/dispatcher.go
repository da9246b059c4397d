package audit

import (
	"context"
	"math/bits"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering. Logger receives drop and sink
// failure reports; nil discards them.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	Logger     *zap.Logger
}

// Dispatcher relays events to a sink from a single background goroutine so
// that slow sinks never sit on the request path.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	logger     *zap.Logger

	queue   chan Event
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
	closing atomic.Bool
	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher, or returns nil when auditing is
// disabled. A nil Dispatcher accepts and discards every call.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger:     logger,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			// Flush whatever was queued before Close.
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// deliver hands ev to the sink. A panicking sink loses the event, not the
// dispatcher.
func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked",
				zap.String("event_type", ev.EventType),
				zap.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(context.Background(), ev)
}

// Emit queues ev. With DropIfFull a full queue drops the event; otherwise
// Emit waits for room until ctx is done.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.drop(ev)
		}
		return
	}

	select {
	case d.queue <- ev:
	case <-d.stop:
	case <-ctx.Done():
		d.drop(ev)
	}
}

// drop counts a lost event, logging on the first drop and every power of
// two after it.
func (d *Dispatcher) drop(ev Event) {
	n := d.dropped.Add(1)
	if bits.OnesCount64(n) == 1 {
		d.logger.Warn("audit events dropped",
			zap.Uint64("total", n),
			zap.String("event_type", ev.EventType),
		)
	}
}

// Close stops accepting events, delivers the queued ones and waits for the
// background goroutine. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		<-d.stopped
	})
}

// Dropped returns the number of events lost to a full queue or a cancelled
// caller.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
