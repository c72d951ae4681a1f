// Package capture persists the base64 media side-channel the game client
// streams alongside session events. Fragments are raw slices of a WebM
// container, so a file is only valid if it starts with the container header
// and is never stitched across recording sessions. The coordinator decodes
// and writes on its own goroutine behind a bounded queue; when the queue is
// full it drops fragments instead of buffering, since media is best-effort.
package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// magic is the EBML header prefix that opens every WebM container instance.
// A fragment starting with it mid-stream means the client restarted its
// encoder (page reload) and a new file must begin.
var magic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// DefaultQueueSize bounds decoded-fragment backlog before drops start.
const DefaultQueueSize = 64

type fragment struct {
	encoded   string
	timestamp float64
}

type Coordinator struct {
	log *zap.Logger
	dir string

	queue        chan fragment
	backpressure atomic.Bool
	dropped      atomic.Int64

	mu        sync.Mutex
	file      *os.File
	path      string
	startedAt time.Time
	bytes     int64
	fragments int64
	rotatedAt time.Time

	closeOnce sync.Once
	done      chan struct{}
}

type Status struct {
	Open         bool      `json:"open"`
	Path         string    `json:"path,omitempty"`
	StartedAt    time.Time `json:"startedAt,omitzero"`
	Bytes        int64     `json:"bytes"`
	Fragments    int64     `json:"fragments"`
	Dropped      int64     `json:"dropped"`
	Backpressure bool      `json:"backpressure"`
}

func New(dir string, log *zap.Logger) *Coordinator {
	c := newCoordinator(dir, DefaultQueueSize, log)
	c.start()
	return c
}

func newCoordinator(dir string, queueSize int, log *zap.Logger) *Coordinator {
	return &Coordinator{
		log:   log,
		dir:   dir,
		queue: make(chan fragment, queueSize),
		done:  make(chan struct{}),
	}
}

func (c *Coordinator) start() { go c.writer() }

// HandleFragment enqueues one encoded fragment for writing. Called from the
// bridge loop, so it never blocks: a full queue sets the backpressure flag
// and drops fragments until the writer has drained the queue.
func (c *Coordinator) HandleFragment(encoded string, timestamp float64) {
	if c.backpressure.Load() {
		if len(c.queue) > 0 {
			c.dropped.Add(1)
			return
		}
		c.backpressure.Store(false)
		c.log.Info("capture sink drained, resuming")
	}

	select {
	case c.queue <- fragment{encoded: encoded, timestamp: timestamp}:
	default:
		if !c.backpressure.Swap(true) {
			c.log.Warn("capture sink backed up, dropping fragments")
		}
		c.dropped.Add(1)
	}
}

func (c *Coordinator) writer() {
	for {
		select {
		case frag := <-c.queue:
			c.write(frag)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) write(frag fragment) {
	raw, err := base64.StdEncoding.DecodeString(frag.encoded)
	if err != nil {
		c.log.Warn("dropping undecodable fragment", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file != nil && c.fragments > 0 && bytes.HasPrefix(raw, magic) {
		// New container instance from the client. Close out the current file
		// rather than appending a second header into it.
		c.log.Info("container restart detected, rotating",
			zap.String("closed", c.path), zap.Int64("bytes", c.bytes))
		c.closeFileLocked()
		c.rotatedAt = time.Now()
	}

	if c.file == nil {
		if err := c.openFileLocked(); err != nil {
			c.log.Error("open capture file", zap.Error(err))
			return
		}
	}

	n, err := c.file.Write(raw)
	c.bytes += int64(n)
	c.fragments++
	if err != nil {
		// Abandon this session; the next fragment with a header starts fresh.
		c.log.Error("capture write failed, abandoning session",
			zap.String("path", c.path), zap.Error(err))
		c.closeFileLocked()
	}
}

func (c *Coordinator) openFileLocked() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create capture dir: %w", err)
	}
	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	path := filepath.Join(c.dir, fmt.Sprintf("capture-%s.webm", stamp))
	var file *os.File
	for i := 1; ; i++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			file = f
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create %s: %w", path, err)
		}
		// Same-millisecond rotation; _N sorts after the bare name.
		path = filepath.Join(c.dir, fmt.Sprintf("capture-%s_%d.webm", stamp, i))
	}
	c.file = file
	c.path = path
	c.startedAt = time.Now()
	c.bytes = 0
	c.fragments = 0
	c.log.Info("capture file opened", zap.String("path", path))
	return nil
}

func (c *Coordinator) closeFileLocked() {
	if c.file == nil {
		return
	}
	if err := c.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		c.log.Warn("close capture file", zap.String("path", c.path), zap.Error(err))
	}
	c.file = nil
}

// Stop closes the current file and clears session counters. Idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file != nil {
		c.log.Info("capture stopped", zap.String("path", c.path), zap.Int64("bytes", c.bytes))
	}
	c.closeFileLocked()
	c.path = ""
	c.startedAt = time.Time{}
	c.bytes = 0
	c.fragments = 0
}

// Close shuts down the writer and stops any open session.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	c.Stop()
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Open:         c.file != nil,
		Path:         c.path,
		StartedAt:    c.startedAt,
		Bytes:        c.bytes,
		Fragments:    c.fragments,
		Dropped:      c.dropped.Load(),
		Backpressure: c.backpressure.Load(),
	}
}
