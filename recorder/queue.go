package recorder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type QueueConfig struct {
	BufferSize       int
	DropWarnInterval time.Duration
	Clock            func() time.Time
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		BufferSize:       512,
		DropWarnInterval: 5 * time.Second,
	}
}

type QueueStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

// Queue is the Recorder sessions should use. Game handles are allocated locally so every
// call returns immediately; events are written to the sinks by background workers.
type Queue struct {
	cfg    QueueConfig
	queue  chan Event
	sinks  []*sinkWorker
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *log.Entry

	// mu orders publish against Close: an accepted event is always in queue before drain runs.
	mu     sync.RWMutex
	closed bool

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	lastDropLog  atomic.Int64
}

func NewQueue(cfg QueueConfig, sinks ...NamedSink) *Queue {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 512
	}
	if cfg.DropWarnInterval <= 0 {
		cfg.DropWarnInterval = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:    cfg,
		queue:  make(chan Event, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
		log:    log.WithField("component", "recorder"),
	}
	for _, named := range sinks {
		if named.Sink == nil {
			continue
		}
		q.sinks = append(q.sinks, newSinkWorker(named.Name, named.Sink, cfg.BufferSize, q.log))
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.wg.Add(1)
	go func() {
		defer func() {
			for _, worker := range q.sinks {
				close(worker.events)
			}
			q.wg.Done()
		}()
		for {
			select {
			case <-q.ctx.Done():
				q.drain()
				return
			case event := <-q.queue:
				q.forward(event)
			}
		}
	}()

	for _, worker := range q.sinks {
		q.wg.Add(1)
		go func(w *sinkWorker) {
			defer q.wg.Done()
			w.run()
		}(worker)
	}
}

func (q *Queue) drain() {
	for {
		select {
		case event := <-q.queue:
			q.forward(event)
		default:
			return
		}
	}
}

func (q *Queue) forward(event Event) {
	q.eventsTotal.Add(1)
	for _, worker := range q.sinks {
		worker.enqueue(event)
	}
}

func (q *Queue) publish(event Event) error {
	if event.Time.IsZero() {
		event.Time = q.cfg.Clock()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("%w: queue closed, dropping %s", ErrRecorder, event.Type)
	}
	select {
	case q.queue <- event:
		return nil
	default:
		q.handleDrop(event)
		return fmt.Errorf("%w: queue full, dropping %s", ErrRecorder, event.Type)
	}
}

func (q *Queue) handleDrop(event Event) {
	q.droppedTotal.Add(1)
	now := time.Now().UnixNano()
	next := q.lastDropLog.Load()
	if next == 0 || now >= next {
		if q.lastDropLog.CompareAndSwap(next, now+q.cfg.DropWarnInterval.Nanoseconds()) {
			q.log.Warnf("dropping event type=%s game=%s", event.Type, event.Game)
		}
	}
}

func (q *Queue) RecordGameStart() (GameHandle, error) {
	game := GameHandle(uuid.New().String())
	return game, q.publish(Event{Type: EventGameStarted, Game: game})
}

func (q *Queue) RecordGameEnd(game GameHandle) error {
	return q.publish(Event{Type: EventGameEnded, Game: game})
}

func (q *Queue) RecordPlayerJoin(game GameHandle, playerID int, name string, initialScore int) error {
	return q.publish(Event{Type: EventPlayerJoined, Game: game, PlayerID: playerID, Name: name, Score: initialScore})
}

func (q *Queue) RecordPlayerScore(game GameHandle, playerID int, newHighScore int) error {
	return q.publish(Event{Type: EventPlayerScore, Game: game, PlayerID: playerID, Score: newHighScore})
}

func (q *Queue) RecordPlayerLeave(game GameHandle, playerID int) error {
	return q.publish(Event{Type: EventPlayerLeft, Game: game, PlayerID: playerID})
}

// Close stops accepting events, drains what is queued into the sinks and closes them.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, worker := range q.sinks {
		if err := worker.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (q *Queue) Stats() QueueStats {
	return QueueStats{
		EventsTotal:  q.eventsTotal.Load(),
		DroppedTotal: q.droppedTotal.Load(),
	}
}

type sinkWorker struct {
	name      string
	sink      Sink
	events    chan Event
	log       *log.Entry
	failures  int
	nextRetry time.Time
}

func newSinkWorker(name string, sink Sink, buffer int, entry *log.Entry) *sinkWorker {
	return &sinkWorker{
		name:   name,
		sink:   sink,
		events: make(chan Event, buffer),
		log:    entry.WithField("sink", name),
	}
}

func (w *sinkWorker) enqueue(event Event) {
	select {
	case w.events <- event:
	default:
		w.log.Warnf("backlog full dropping event type=%s", event.Type)
	}
}

func (w *sinkWorker) run() {
	for event := range w.events {
		w.waitUntilReady()
		if err := w.sink.Write(event); err != nil {
			w.fail(err)
		} else {
			w.failures = 0
			w.nextRetry = time.Time{}
		}
	}
}

func (w *sinkWorker) waitUntilReady() {
	if w.failures == 0 || w.nextRetry.IsZero() {
		return
	}
	if wait := time.Until(w.nextRetry); wait > 0 {
		time.Sleep(wait)
	}
}

func (w *sinkWorker) fail(err error) {
	w.failures++
	delay := time.Duration(1<<min(w.failures, 5)) * time.Second
	w.nextRetry = time.Now().Add(delay)
	w.log.Warnf("write failed: %v (retry in %s)", err, delay)
}
