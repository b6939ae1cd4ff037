package logger

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// sink receives every line at or above min.
type sink struct {
	w   *bufio.Writer
	min slog.Level
}

type line struct {
	level slog.Level
	data  []byte
}

// asyncWriter fans lines out to its sinks from a single goroutine.
type asyncWriter struct {
	queue chan line
	flush chan chan error
	done  chan struct{}
	once  sync.Once

	mu    sync.Mutex
	sinks []sink
	err   error
}

// newAsyncWriter wraps out (all levels) and errOut (errors only, may be nil).
func newAsyncWriter(out []io.Writer, errOut io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue: make(chan line, 256),
		flush: make(chan chan error),
		done:  make(chan struct{}),
	}
	for _, o := range out {
		if o != nil {
			w.sinks = append(w.sinks, sink{w: bufio.NewWriterSize(o, bufSize), min: slog.LevelDebug})
		}
	}
	if errOut != nil {
		w.sinks = append(w.sinks, sink{w: bufio.NewWriterSize(errOut, bufSize), min: slog.LevelError})
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case l, ok := <-w.queue:
			if !ok {
				w.flushSinks()
				return
			}
			w.fail(w.write(l))
		case ack := <-w.flush:
			ack <- w.flushSinks()
		}
	}
}

// Write queues a copy of p. It blocks when the queue is full rather than drop lines.
func (w *asyncWriter) Write(level slog.Level, p []byte) error {
	if err := w.failed(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- line{level: level, data: append([]byte(nil), p...)}
	return nil
}

// Flush waits until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flush <- ack:
		return errors.Join(<-ack, w.failed())
	case <-w.done:
		return w.failed()
	}
}

// Close drains the queue and stops the goroutine.
func (w *asyncWriter) Close() error {
	w.once.Do(func() { close(w.queue) })
	<-w.done
	return w.failed()
}

func (w *asyncWriter) write(l line) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if l.level < s.min {
			continue
		}
		if _, err := s.w.Write(l.data); err != nil {
			return err
		}
		if err := s.w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushSinks() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		errs = append(errs, s.w.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) failed() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
