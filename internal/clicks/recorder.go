package clicks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajithvnr2001/edgelink/internal/models"
	"github.com/ajithvnr2001/edgelink/pkg/metrics"
)

// Sink accepts click events best-effort. Record must never block the
// caller; the redirect response is already committed when it runs.
type Sink interface {
	Record(event models.ClickEvent)
}

// Store is the persistence surface the recorder writes to: the analytics
// append plus the advisory click-count increment.
type Store interface {
	Insert(ctx context.Context, event *models.ClickEvent) error
	IncrementClickCount(ctx context.Context, slug string) error
}

// Recorder drains click events through a bounded channel onto worker
// goroutines. When the buffer is full events are dropped and counted —
// analytics loss is an accepted degraded mode, a slow sink must never
// back-pressure the redirect path.
type Recorder struct {
	store   Store
	log     *zap.Logger
	events  chan models.ClickEvent
	timeout time.Duration

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

// NewRecorder creates and starts a recorder with the given buffer size and
// worker count.
func NewRecorder(store Store, log *zap.Logger, buffer, workers int) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	if workers <= 0 {
		workers = 2
	}

	r := &Recorder{
		store:   store,
		log:     log,
		events:  make(chan models.ClickEvent, buffer),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}

	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

// Record enqueues an event without blocking. A full buffer drops the event.
func (r *Recorder) Record(event models.ClickEvent) {
	select {
	case r.events <- event:
	default:
		metrics.ClickEventsDropped.Inc()
		r.log.Warn("click event dropped, recorder buffer full",
			zap.String("slug", event.Slug))
	}
}

// Close stops accepting events and drains the buffer, bounded by ctx.
func (r *Recorder) Close(ctx context.Context) error {
	r.once.Do(func() {
		close(r.events)
	})

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for event := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)

		if err := r.store.Insert(ctx, &event); err != nil {
			// Recording failures are swallowed: the redirect already
			// succeeded from the user's point of view.
			r.log.Warn("click insert failed",
				zap.String("slug", event.Slug), zap.Error(err))
		} else {
			metrics.ClickEventsRecorded.Inc()
		}

		if err := r.store.IncrementClickCount(ctx, event.Slug); err != nil {
			r.log.Warn("click count increment failed",
				zap.String("slug", event.Slug), zap.Error(err))
		}

		cancel()
	}
}
