package rpc

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Transport moves whole JSON-RPC messages between the plugin and its host.
// WriteMessage is safe for concurrent use.
type Transport interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

var _ Transport = (*StdioTransport)(nil)

type frame struct {
	data []byte
	err  error
}

// StdioTransport frames messages as single lines. It is what the host uses
// when it launches the plugin with piped stdin and stdout.
//
// Reads happen on a background goroutine so ReadMessage can honour ctx; a
// read blocked on a reader that cannot be closed outlives Close.
type StdioTransport struct {
	r io.Reader
	w io.Writer

	writeMu sync.Mutex

	startOnce sync.Once
	frames    chan frame
	done      chan struct{}
	closeOnce sync.Once
}

func NewStdioTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		r:      r,
		w:      w,
		frames: make(chan frame),
		done:   make(chan struct{}),
	}
}

func (t *StdioTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	t.startOnce.Do(func() { go t.pump() })

	select {
	case f, ok := <-t.frames:
		if !ok {
			return nil, io.EOF
		}
		return f.data, f.err
	case <-t.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *StdioTransport) pump() {
	defer close(t.frames)
	br := bufio.NewReader(t.r)
	for {
		line, err := br.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			select {
			case t.frames <- frame{data: line}:
			case <-t.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				select {
				case t.frames <- frame{err: errors.Wrap(err, "failed to read message")}:
				case <-t.done:
				}
			}
			return
		}
	}
}

func (t *StdioTransport) WriteMessage(data []byte) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')
	if _, err := t.w.Write(buf); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}

func (t *StdioTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		if c, ok := t.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
