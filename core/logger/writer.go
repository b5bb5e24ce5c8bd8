package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

const writerQueueSize = 512

// asyncWriter fans log lines out to every sink from a single goroutine.
// A failing sink is disabled; the others keep receiving lines.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}
	once    sync.Once

	state  sync.RWMutex
	closed bool

	mu    sync.Mutex
	sinks []*sink
}

type sink struct {
	w   *bufio.Writer
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		lines:   make(chan []byte, writerQueueSize),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, &sink{w: bufio.NewWriterSize(out, bufSize)})
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.flush()
				return
			}
			w.write(line)
			// Drain what is already queued before paying for a flush.
			for drained := false; !drained; {
				select {
				case more, ok := <-w.lines:
					if !ok {
						w.flush()
						return
					}
					w.write(more)
				default:
					drained = true
				}
			}
			w.flush()
		case ack := <-w.flushes:
			ack <- w.flush()
		}
	}
}

// Write queues a copy of p. It blocks when the queue is full so no line is lost.
func (w *asyncWriter) Write(p []byte) error {
	w.state.RLock()
	defer w.state.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	if len(p) == 0 {
		return nil
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

var errWriterClosed = errors.New("logger: writer closed")

// Flush blocks until every queued line has reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.done:
		return w.err()
	}
}

// Close drains the queue and returns the sink errors seen so far.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		w.state.Lock()
		w.closed = true
		close(w.lines)
		w.state.Unlock()
	})
	<-w.done
	return w.err()
}

func (w *asyncWriter) write(line []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if s.err != nil {
			continue
		}
		if _, err := s.w.Write(line); err != nil {
			s.err = err
		}
	}
}

func (w *asyncWriter) flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if s.err == nil {
			s.err = s.w.Flush()
		}
	}
	return w.errLocked()
}

func (w *asyncWriter) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errLocked()
}

func (w *asyncWriter) errLocked() error {
	var errs []error
	for _, s := range w.sinks {
		if s.err != nil {
			errs = append(errs, s.err)
		}
	}
	return errors.Join(errs...)
}
