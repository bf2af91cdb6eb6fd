package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simpleteleport/internal/config"
	"github.com/zeusync/simpleteleport/internal/core/events/bus"
	"github.com/zeusync/simpleteleport/internal/core/observability/log"
	"github.com/zeusync/simpleteleport/internal/core/teleport"
	"github.com/zeusync/simpleteleport/internal/host"
	"github.com/zeusync/simpleteleport/internal/plugin"
)

const waitTimeout = 2 * time.Second

// fakeHost plays the server-management framework on the other end of a
// StdioTransport.
type fakeHost struct {
	t        *testing.T
	toPlugin *io.PipeWriter
	lines    chan []byte
}

func (h *fakeHost) send(v any) {
	h.t.Helper()
	data, err := json.Marshal(v)
	require.NoError(h.t, err)
	_, err = h.toPlugin.Write(append(data, '\n'))
	require.NoError(h.t, err)
}

func (h *fakeHost) sendRaw(line string) {
	h.t.Helper()
	_, err := h.toPlugin.Write([]byte(line + "\n"))
	require.NoError(h.t, err)
}

func (h *fakeHost) recv() *message {
	h.t.Helper()
	select {
	case line, ok := <-h.lines:
		require.True(h.t, ok, "plugin output closed")
		var msg message
		require.NoError(h.t, json.Unmarshal(line, &msg), string(line))
		assert.Equal(h.t, jsonrpcVersion, msg.JSONRPC)
		return &msg
	case <-time.After(waitTimeout):
		h.t.Fatal("timed out waiting for plugin output")
		return nil
	}
}

type serveResult struct {
	err error
}

func startClient(t *testing.T, lc func(*Client, bus.EventBus) host.Lifecycle, timeout time.Duration) (*Client, *fakeHost, bus.EventBus, <-chan serveResult) {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	b := bus.New()
	c := NewClient(NewStdioTransport(inR, outW), b, log.NewNop(), config.RPC{CallTimeout: timeout})

	h := &fakeHost{t: t, toPlugin: inW, lines: make(chan []byte, 16)}
	go func() {
		defer close(h.lines)
		br := bufio.NewReader(outR)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				h.lines <- line
			}
			if err != nil {
				return
			}
		}
	}()

	done := make(chan serveResult, 1)
	go func() {
		done <- serveResult{err: c.Serve(context.Background(), lc(c, b))}
	}()

	t.Cleanup(func() {
		_ = inW.Close()
		_ = outW.Close()
	})
	return c, h, b, done
}

func waitServe(t *testing.T, done <-chan serveResult) error {
	t.Helper()
	select {
	case res := <-done:
		return res.err
	case <-time.After(waitTimeout):
		t.Fatal("Serve did not return")
		return nil
	}
}

type stubLifecycle struct {
	initErr error
	inits   int
	stops   int
}

func (s *stubLifecycle) Init(context.Context) (host.InitResult, error) {
	s.inits++
	if s.initErr != nil {
		return host.InitResult{}, s.initErr
	}
	return host.InitResult{RegisteredCommands: []string{"a", "b"}}, nil
}

func (s *stubLifecycle) Stop(context.Context) error {
	s.stops++
	return nil
}

func request(id int, method string, params any) map[string]any {
	return map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params}
}

func notification(method string, params any) map[string]any {
	return map[string]any{"jsonrpc": "2.0", "method": method, "params": params}
}

func TestServeEndToEnd(t *testing.T) {
	_, h, _, done := startClient(t, func(c *Client, b bus.EventBus) host.Lifecycle {
		return plugin.New(config.Default().Commands, c, b, log.NewNop())
	}, time.Second)

	h.send(request(1, MethodInit, []any{}))
	resp := h.recv()
	assert.JSONEq(t, "1", string(resp.ID))
	assert.JSONEq(t, `{"registeredCommands":["getposition","helpsimpleteleport"]}`, string(resp.Result))

	h.send(notification(host.EventInteract, []any{map[string]any{
		"player":   map[string]any{"name": "Alice", "id": "a-1"},
		"position": []float64{1, 2, 3},
		"message":  "teleport:~5,10,~-3",
	}}))
	line := h.recv()
	assert.Equal(t, MethodWriteln, line.Method)
	assert.False(t, line.hasID())
	assert.JSONEq(t, `["Chat.Command /TP \"Alice\" 6 10 0 0"]`, string(line.Params))

	h.send(notification(host.EventInteract, []any{map[string]any{
		"player":   map[string]any{"name": "Alice"},
		"position": []float64{1, 2, 3},
		"message":  "not a trigger",
	}}))

	h.send(notification("cmd:getposition", []any{"Alice"}))
	query := h.recv()
	assert.Equal(t, MethodPlayerPosition, query.Method)
	assert.JSONEq(t, `["Alice"]`, string(query.Params))
	require.True(t, query.hasID())
	h.send(map[string]any{"jsonrpc": "2.0", "id": json.RawMessage(query.ID), "result": []float64{10.4, -2.5, 0.5}})

	whisper := h.recv()
	assert.Equal(t, MethodWhisper, whisper.Method)
	assert.JSONEq(t, `["Alice","<size=\"16\">Your current position is:</>\n<size=\"26\">10, -3, 1</>"]`, string(whisper.Params))

	h.send(notification("cmd:helpsimpleteleport", []any{"Bob"}))
	help := h.recv()
	assert.Equal(t, MethodWhisper, help.Method)
	var helpParams []string
	require.NoError(t, json.Unmarshal(help.Params, &helpParams))
	require.Len(t, helpParams, 2)
	assert.Equal(t, "Bob", helpParams[0])
	assert.Contains(t, helpParams[1], "teleport:")

	h.send(request(2, MethodStop, []any{}))
	stop := h.recv()
	assert.JSONEq(t, "2", string(stop.ID))
	assert.JSONEq(t, "null", string(stop.Result))
	assert.Nil(t, stop.Error)

	assert.NoError(t, waitServe(t, done))
}

func TestServeUnknownRequest(t *testing.T) {
	lc := &stubLifecycle{}
	_, h, _, done := startClient(t, func(*Client, bus.EventBus) host.Lifecycle { return lc }, time.Second)

	h.send(request(7, "explode", nil))
	resp := h.recv()
	assert.JSONEq(t, "7", string(resp.ID))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)

	h.send(request(8, MethodStop, nil))
	h.recv()
	assert.NoError(t, waitServe(t, done))
	assert.Equal(t, 1, lc.stops)
}

func TestServeInitFailure(t *testing.T) {
	lc := &stubLifecycle{initErr: errors.New("no bus")}
	_, h, _, done := startClient(t, func(*Client, bus.EventBus) host.Lifecycle { return lc }, time.Second)

	h.send(map[string]any{"jsonrpc": "2.0", "id": "init-1", "method": MethodInit})
	resp := h.recv()
	assert.JSONEq(t, `"init-1"`, string(resp.ID))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no bus")

	h.send(request(2, MethodStop, nil))
	h.recv()
	assert.NoError(t, waitServe(t, done))
}

func TestServeSkipsMalformedMessages(t *testing.T) {
	lc := &stubLifecycle{}
	_, h, b, done := startClient(t, func(*Client, bus.EventBus) host.Lifecycle { return lc }, time.Second)

	got := make(chan host.CommandEvent, 1)
	_, err := b.Subscribe("cmd:ping", func(e bus.Event) error {
		got <- e.Data().(host.CommandEvent)
		return nil
	})
	require.NoError(t, err)

	h.sendRaw("{not json")
	h.sendRaw(`{"jsonrpc":"2.0"}`)
	h.send(notification(host.EventInteract, []any{}))
	h.send(notification("cmd:ping", []any{}))
	h.send(notification("chat", []any{"Alice", "hi"}))
	h.send(notification("cmd:ping", []any{"Alice", "one", 2, true}))

	select {
	case ev := <-got:
		assert.Equal(t, "Alice", ev.Player)
		assert.Equal(t, []string{"one", "2", "true"}, ev.Args)
	case <-time.After(waitTimeout):
		t.Fatal("command event not published")
	}

	h.send(request(1, MethodStop, nil))
	h.recv()
	assert.NoError(t, waitServe(t, done))
}

func TestPlayerPositionResults(t *testing.T) {
	lc := &stubLifecycle{}
	c, h, _, done := startClient(t, func(*Client, bus.EventBus) host.Lifecycle { return lc }, 200*time.Millisecond)

	type result struct {
		pos teleport.Position
		err error
	}
	query := func() <-chan result {
		ch := make(chan result, 1)
		go func() {
			pos, err := c.PlayerPosition(context.Background(), "Alice")
			ch <- result{pos, err}
		}()
		return ch
	}

	ch := query()
	req := h.recv()
	h.send(map[string]any{"jsonrpc": "2.0", "id": json.RawMessage(req.ID), "result": []float64{1, 2, 3}})
	res := <-ch
	require.NoError(t, res.err)
	assert.Equal(t, teleport.NewPosition(1, 2, 3), res.pos)

	ch = query()
	req = h.recv()
	h.send(map[string]any{"jsonrpc": "2.0", "id": json.RawMessage(req.ID), "result": nil})
	res = <-ch
	assert.ErrorIs(t, res.err, ErrPlayerNotFound)

	ch = query()
	req = h.recv()
	h.send(map[string]any{"jsonrpc": "2.0", "id": json.RawMessage(req.ID),
		"error": map[string]any{"code": -32000, "message": "offline"}})
	res = <-ch
	var callErr *CallError
	require.ErrorAs(t, res.err, &callErr)
	assert.Equal(t, "offline", callErr.Message)

	ch = query()
	h.recv()
	res = <-ch
	assert.ErrorIs(t, res.err, context.DeadlineExceeded)

	h.send(request(1, MethodStop, nil))
	h.recv()
	assert.NoError(t, waitServe(t, done))

	_, err := c.PlayerPosition(context.Background(), "Alice")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Writeln("x"), ErrClosed)
}

func TestServeEndsWhenHostGoesAway(t *testing.T) {
	lc := &stubLifecycle{}
	c, h, _, done := startClient(t, func(*Client, bus.EventBus) host.Lifecycle { return lc }, waitTimeout)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.PlayerPosition(context.Background(), "Alice")
		errCh <- err
	}()
	h.recv()

	require.NoError(t, h.toPlugin.Close())
	assert.NoError(t, waitServe(t, done))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(waitTimeout):
		t.Fatal("pending call not failed")
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	inR, _ := io.Pipe()
	c := NewClient(NewStdioTransport(inR, io.Discard), bus.New(), log.NewNop(), config.RPC{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, &stubLifecycle{}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Serve ignored cancellation")
	}
}
