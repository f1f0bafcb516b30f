package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/engine"
)

// TickLog writes one JSON line per tick report into a zstd-compressed file.
// Reports handed to Record are queued and encoded by a single goroutine, so
// compression and file I/O stay off the tick loop.
type TickLog struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	err error

	qmu     sync.RWMutex
	ch      chan *engine.TickReport
	closed  bool
	done    chan struct{}
	dropped atomic.Uint64
}

// CreateTickLog creates (or truncates) a tick log at path.
func CreateTickLog(path string) (*TickLog, error) {
	return CreateTickLogWithQueue(path, DefaultQueueSize)
}

// CreateTickLogWithQueue is CreateTickLog with an explicit report queue size.
func CreateTickLogWithQueue(path string, queue int) (*TickLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	l := &TickLog{
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
		ch:   make(chan *engine.TickReport, max(queue, 1)),
		done: make(chan struct{}),
	}
	go l.loop()
	return l, nil
}

// Write appends one report synchronously.
func (l *TickLog) Write(r *engine.TickReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return errors.New("tick log closed")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	return l.w.WriteByte('\n')
}

// Record implements engine.Sink. It never blocks: when the queue is full the
// report is dropped and counted.
func (l *TickLog) Record(r *engine.TickReport) {
	if r == nil {
		return
	}
	l.qmu.RLock()
	defer l.qmu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.ch <- r:
	default:
		if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
			slog.Warn("tick log queue full, dropping reports", "tick", r.Tick, "dropped", n)
		}
	}
}

// loop writes queued reports. After the first error the rest are discarded.
func (l *TickLog) loop() {
	defer close(l.done)
	for r := range l.ch {
		if l.Err() != nil {
			continue
		}
		if err := l.Write(r); err != nil {
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
			slog.Error("tick log write failed", "tick", r.Tick, "error", err)
		}
	}
}

// Err returns the first error seen by the writer.
func (l *TickLog) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Dropped returns how many reports were discarded because the queue was full.
func (l *TickLog) Dropped() uint64 { return l.dropped.Load() }

// Close drains the queue, then flushes and closes the log.
func (l *TickLog) Close() error {
	l.qmu.Lock()
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
	l.qmu.Unlock()
	<-l.done

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	err := l.w.Flush()
	if cerr := l.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.w, l.enc, l.f = nil, nil, nil
	return err
}

// ReadTickLog decodes every report in a tick log, calling fn in order.
// Returning an error from fn stops the read.
func ReadTickLog(path string, fn func(*engine.TickReport) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReader(dec))
	for line := 1; ; line++ {
		var r engine.TickReport
		if err := jd.Decode(&r); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("tick log line %d: %w", line, err)
		}
		if err := fn(&r); err != nil {
			return err
		}
	}
}
