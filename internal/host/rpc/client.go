// Package rpc connects the plugin to a host that speaks JSON-RPC 2.0 over a
// message stream. It turns host notifications into bus events and exposes
// the host's actions as a host.Host.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/simpleteleport/internal/config"
	"github.com/zeusync/simpleteleport/internal/core/events/bus"
	"github.com/zeusync/simpleteleport/internal/core/observability/log"
	"github.com/zeusync/simpleteleport/internal/core/teleport"
	"github.com/zeusync/simpleteleport/internal/host"
)

// Host request methods.
const (
	MethodInit = "init"
	MethodStop = "stop"
)

// Plugin-to-host methods.
const (
	MethodWriteln        = "writeln"
	MethodWhisper        = "whisper"
	MethodPlayerPosition = "getPlayerPosition"
)

const (
	eventSource        = "host"
	inboundBuffer      = 64
	defaultCallTimeout = 5 * time.Second
)

var (
	_ host.Host = (*Client)(nil)

	errStopped       = errors.New("stopped by host")
	errTransportDone = errors.New("transport closed")
)

type Client struct {
	transport Transport
	bus       bus.EventBus
	logger    log.Log
	timeout   time.Duration

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan *message
	closed  bool
}

func NewClient(t Transport, b bus.EventBus, logger log.Log, cfg config.RPC) *Client {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{
		transport: t,
		bus:       b,
		logger:    logger.With(log.String("component", "rpc")),
		timeout:   timeout,
		pending:   make(map[uint64]chan *message),
	}
}

func (c *Client) Writeln(line string) error {
	return c.notify(MethodWriteln, []string{line})
}

func (c *Client) Whisper(target, message string) error {
	return c.notify(MethodWhisper, []string{target, message})
}

func (c *Client) PlayerPosition(ctx context.Context, name string) (teleport.Position, error) {
	var pos *teleport.Position
	if err := c.call(ctx, MethodPlayerPosition, []string{name}, &pos); err != nil {
		return teleport.Position{}, err
	}
	if pos == nil {
		return teleport.Position{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
	}
	return *pos, nil
}

// Serve reads from the transport until the host sends stop, the transport
// ends, or ctx is cancelled. Requests and notifications are handled one at a
// time, in arrival order.
func (c *Client) Serve(ctx context.Context, lc host.Lifecycle) error {
	g, gctx := errgroup.WithContext(ctx)
	inbound := make(chan *message, inboundBuffer)

	g.Go(func() error {
		defer close(inbound)
		return c.readLoop(gctx, inbound)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg, ok := <-inbound:
				if !ok {
					return errTransportDone
				}
				if c.dispatch(gctx, lc, msg) {
					return errStopped
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		c.shutdown()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, errStopped) || errors.Is(err, errTransportDone) {
		return nil
	}
	return err
}

func (c *Client) readLoop(ctx context.Context, inbound chan<- *message) error {
	for {
		data, err := c.transport.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		msg, err := decodeMessage(data)
		if err != nil {
			c.logger.Warn("Dropping malformed message", log.Error(err))
			continue
		}
		if msg.isResponse() {
			c.resolve(msg)
			continue
		}

		select {
		case inbound <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// dispatch reports whether the host asked the plugin to stop.
func (c *Client) dispatch(ctx context.Context, lc host.Lifecycle, msg *message) bool {
	if msg.isNotification() {
		c.publish(msg)
		return false
	}

	switch msg.Method {
	case MethodInit:
		res, err := lc.Init(ctx)
		if err != nil {
			c.logger.Error("Plugin init failed", log.Error(err))
			c.reply(newError(msg.ID, CodeInternalError, err.Error()))
			return false
		}
		c.replyResult(msg.ID, res)
		return false
	case MethodStop:
		if err := lc.Stop(ctx); err != nil {
			c.logger.Error("Plugin stop failed", log.Error(err))
			c.reply(newError(msg.ID, CodeInternalError, err.Error()))
			return true
		}
		c.replyResult(msg.ID, nil)
		return true
	default:
		c.reply(newError(msg.ID, CodeMethodNotFound, "method not found: "+msg.Method))
		return false
	}
}

func (c *Client) publish(msg *message) {
	event, err := decodeEvent(msg)
	if err != nil {
		c.logger.Warn("Dropping host event",
			log.String("method", msg.Method),
			log.Error(err))
		return
	}
	if event == nil {
		c.logger.Debug("Ignoring host event", log.String("method", msg.Method))
		return
	}
	if err = c.bus.Publish(event); err != nil {
		c.logger.Warn("Event handler failed",
			log.String("method", msg.Method),
			log.Error(err))
	}
}

// decodeEvent returns nil for notifications nobody can subscribe to.
func decodeEvent(msg *message) (bus.Event, error) {
	if msg.Method == host.EventInteract {
		var params []host.InteractEvent
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(params) != 1 {
			return nil, fmt.Errorf("%w: interact takes one argument, got %d", ErrMalformed, len(params))
		}
		return bus.NewEvent(host.EventInteract, eventSource, params[0]), nil
	}

	if _, ok := host.CommandName(msg.Method); ok {
		var params []json.RawMessage
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(params) == 0 {
			return nil, fmt.Errorf("%w: %s without a player", ErrMalformed, msg.Method)
		}
		var player string
		if err := json.Unmarshal(params[0], &player); err != nil {
			return nil, fmt.Errorf("%w: player name: %v", ErrMalformed, err)
		}
		args := make([]string, 0, len(params)-1)
		for _, raw := range params[1:] {
			args = append(args, argString(raw))
		}
		return bus.NewEvent(msg.Method, eventSource, host.CommandEvent{Player: player, Args: args}), nil
	}

	return nil, nil
}

func argString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id := c.nextID.Add(1)
	req, err := newRequest(id, method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	ch := make(chan *message, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err = c.send(req); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if resp.Error != nil {
			return resp.Error
		}
		raw := resp.Result
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		if err = json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

func (c *Client) resolve(msg *message) {
	id, ok := msg.numericID()
	if !ok {
		c.logger.Warn("Dropping response with foreign id", log.String("id", string(msg.ID)))
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("Dropping late response", log.Uint64("id", id))
		return
	}
	ch <- msg
}

func (c *Client) notify(method string, params any) error {
	msg, err := newNotification(method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return c.send(msg)
}

func (c *Client) replyResult(id json.RawMessage, result any) {
	msg, err := newResult(id, result)
	if err != nil {
		c.logger.Error("Failed to encode result", log.Error(err))
		msg = newError(id, CodeInternalError, err.Error())
	}
	c.reply(msg)
}

func (c *Client) reply(msg *message) {
	if err := c.send(msg); err != nil {
		c.logger.Warn("Failed to reply to host", log.Error(err))
	}
}

func (c *Client) send(msg *message) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.transport.WriteMessage(data)
}

// shutdown fails pending calls and closes the transport.
func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if err := c.transport.Close(); err != nil {
		c.logger.Debug("Transport close failed", log.Error(err))
	}
}
