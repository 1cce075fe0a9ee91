// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// ErrWriteQueueFull is returned by WriteBytes when the outbound queue is full
var ErrWriteQueueFull = errors.New("transport: serial write queue full")

// DefaultWriteQueue is the number of pending writes a ByteLink buffers
const DefaultWriteQueue = 64

const readChunkSize = 256

// ByteLink turns blocking serial endpoints (a serial port, a websocket) into
// the non-blocking byte channel polled by the bridge. A reader goroutine
// fills an inbound queue and a writer goroutine drains an outbound queue;
// the poll loop only ever does non-blocking channel operations.
//
// The reader and writer may be different endpoints, or nil to run the link
// in one direction only.
type ByteLink struct {
	inbound  chan []byte
	outbound chan []byte
	done     chan struct{}
	closers  []io.Closer

	closeOnce sync.Once
	wg        sync.WaitGroup

	readErr atomic.Pointer[error]

	bytesRead     atomic.Uint64
	bytesWritten  atomic.Uint64
	writesDropped atomic.Uint64
}

// NewByteLink starts the link. r and w may be nil. closers are closed by
// Close to unblock the reader and writer goroutines.
func NewByteLink(r io.Reader, w io.Writer, writeQueue int, closers ...io.Closer) *ByteLink {
	if writeQueue <= 0 {
		writeQueue = DefaultWriteQueue
	}
	l := &ByteLink{
		inbound:  make(chan []byte, 16),
		outbound: make(chan []byte, writeQueue),
		done:     make(chan struct{}),
		closers:  closers,
	}
	if r != nil {
		l.wg.Add(1)
		go l.readLoop(r)
	}
	if w != nil {
		l.wg.Add(1)
		go l.writeLoop(w)
	} else {
		l.outbound = nil
	}
	return l
}

func (l *ByteLink) readLoop(r io.Reader) {
	defer l.wg.Done()
	for {
		buf := make([]byte, readChunkSize)
		n, err := r.Read(buf)
		if n > 0 {
			l.bytesRead.Add(uint64(n))
			select {
			case l.inbound <- buf[:n]:
			case <-l.done:
				return
			}
		}
		if err != nil {
			l.readErr.Store(&err)
			return
		}
	}
}

func (l *ByteLink) writeLoop(w io.Writer) {
	defer l.wg.Done()
	for {
		select {
		case p := <-l.outbound:
			n, err := w.Write(p)
			l.bytesWritten.Add(uint64(n))
			if err != nil {
				l.writesDropped.Add(1)
			}
		case <-l.done:
			return
		}
	}
}

// ReadAvailable appends the bytes that have already arrived to dst and
// returns it. It never blocks and drains a bounded number of chunks per
// call. Once the inbound queue is empty and the reader has failed, the read
// error is returned.
func (l *ByteLink) ReadAvailable(dst []byte) ([]byte, error) {
	start := len(dst)
drainLoop:
	for i := 0; i < cap(l.inbound); i++ {
		select {
		case chunk := <-l.inbound:
			dst = append(dst, chunk...)
		default:
			break drainLoop
		}
	}
	if len(dst) == start {
		if errp := l.readErr.Load(); errp != nil {
			return dst, *errp
		}
	}
	return dst, nil
}

// WriteBytes queues p for the writer goroutine. p is copied. When the queue
// is full the bytes are dropped and ErrWriteQueueFull is returned.
func (l *ByteLink) WriteBytes(p []byte) error {
	if l.outbound == nil {
		return ErrClosed
	}
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case l.outbound <- buf:
		return nil
	default:
		l.writesDropped.Add(1)
		return ErrWriteQueueFull
	}
}

// CanWrite reports whether the link has a writer endpoint
func (l *ByteLink) CanWrite() bool {
	return l.outbound != nil
}

func (l *ByteLink) BytesRead() uint64     { return l.bytesRead.Load() }
func (l *ByteLink) BytesWritten() uint64  { return l.bytesWritten.Load() }
func (l *ByteLink) WritesDropped() uint64 { return l.writesDropped.Load() }

// Close stops the goroutines and closes the underlying endpoints
func (l *ByteLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		for _, c := range l.closers {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		l.wg.Wait()
	})
	return err
}
