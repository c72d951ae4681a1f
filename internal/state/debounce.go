package state

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Observer receives one batch of changed resource URIs per flush.
type Observer func(resources []string)

// debouncer coalesces change signals. Non-immediate adds restart a single
// timer from the latest call; the pending set flushes as one batch when it
// fires. Immediate adds cancel the timer and flush synchronously into the
// delivery queue. Delivery to observers runs on its own goroutine so flushes
// never block store mutation.
type debouncer struct {
	log    *zap.Logger
	window time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	out       chan []string
	observers []Observer
	started   bool
	stop      chan struct{}
	done      chan struct{}
}

func newDebouncer(window time.Duration, log *zap.Logger) *debouncer {
	return &debouncer{
		log:     log,
		window:  window,
		pending: make(map[string]struct{}),
		out:     make(chan []string, 16),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// subscribe registers an observer. Must happen before start.
func (d *debouncer) subscribe(fn Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		d.log.Error("observer registered after start; ignoring")
		return
	}
	d.observers = append(d.observers, fn)
}

func (d *debouncer) start() {
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	go d.deliver()
}

func (d *debouncer) deliver() {
	defer close(d.done)
	for {
		select {
		case batch := <-d.out:
			for _, fn := range d.observers {
				fn(batch)
			}
		case <-d.stop:
			return
		}
	}
}

// add records changed resources and (re)arms the flush timer.
func (d *debouncer) add(resources ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range resources {
		d.pending[r] = struct{}{}
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.onTimer)
}

// immediate records changed resources and flushes right away, folding in
// anything already pending.
func (d *debouncer) immediate(resources ...string) {
	d.mu.Lock()
	for _, r := range resources {
		d.pending[r] = struct{}{}
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	batch := d.drainLocked()
	d.mu.Unlock()

	d.send(batch)
}

func (d *debouncer) onTimer() {
	d.mu.Lock()
	d.timer = nil
	batch := d.drainLocked()
	d.mu.Unlock()

	if len(batch) > 0 {
		d.send(batch)
	}
}

func (d *debouncer) drainLocked() []string {
	batch := make([]string, 0, len(d.pending))
	for r := range d.pending {
		batch = append(batch, r)
	}
	clear(d.pending)
	sort.Strings(batch)
	return batch
}

// send is best-effort: if the delivery queue is full the batch is dropped,
// never blocking the caller. Subscribers re-read state anyway.
func (d *debouncer) send(batch []string) {
	if len(batch) == 0 {
		return
	}
	select {
	case d.out <- batch:
	default:
		d.log.Warn("notification queue full, dropping batch", zap.Strings("resources", batch))
	}
}

func (d *debouncer) close() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	started := d.started
	d.mu.Unlock()

	close(d.stop)
	if started {
		<-d.done
	}
}
