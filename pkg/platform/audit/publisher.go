package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"jwelary/pkg/requestcontext"
)

const (
	defaultBatchSize     = 64
	defaultFlushInterval = 500 * time.Millisecond
	defaultWriteTimeout  = 5 * time.Second
)

// DropObserver is notified with the number of events lost, either to buffer
// overflow or to a failed sink write.
type DropObserver interface {
	AddAuditDropped(n int)
}

// Publisher buffers events and flushes them to a Sink from one background
// goroutine. Emit never blocks on the sink.
type Publisher struct {
	buffer        *RingBuffer
	sink          Sink
	logger        *slog.Logger
	drops         DropObserver
	batchSize     int
	flushInterval time.Duration

	notify    chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Publisher)

// WithBufferSize sets the ring buffer capacity.
func WithBufferSize(n int) Option {
	return func(p *Publisher) { p.buffer = NewRingBuffer(n) }
}

// WithBatchSize caps how many events go to the sink per write.
func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets how often the worker flushes without being notified.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// WithDropObserver reports lost events, typically to a metrics counter.
func WithDropObserver(o DropObserver) Option {
	return func(p *Publisher) { p.drops = o }
}

// NewPublisher starts the flush worker. Callers must Close the publisher.
func NewPublisher(sink Sink, logger *slog.Logger, opts ...Option) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		buffer:        NewRingBuffer(1024),
		sink:          sink,
		logger:        logger,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		notify:        make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

// Emit enqueues an event. Request metadata already on ctx fills empty fields.
// A nil publisher discards events.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	event.normalize(requestcontext.Now(ctx))

	if p.buffer.Enqueue(event) {
		p.reportDropped(1)
	}
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Close stops the worker after draining the buffer, then closes the sink.
// It is safe to call more than once.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var err error
	p.closeOnce.Do(func() {
		close(p.stop)
		<-p.done
		err = p.sink.Close()
	})
	return err
}

// Pending returns the number of buffered events not yet flushed.
func (p *Publisher) Pending() int {
	return p.buffer.Len()
}

func (p *Publisher) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			p.flush()
			return
		case <-p.notify:
			if p.buffer.Len() >= p.batchSize {
				p.flush()
			}
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Publisher) flush() {
	for {
		batch := p.buffer.DequeueBatch(p.batchSize)
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		err := p.sink.Write(ctx, batch)
		cancel()
		if err != nil {
			p.logger.Error("audit sink write failed",
				"error", err,
				"events", len(batch),
			)
			p.reportDropped(len(batch))
		}
	}
}

func (p *Publisher) reportDropped(n int) {
	if p.drops != nil {
		p.drops.AddAuditDropped(n)
	}
}
