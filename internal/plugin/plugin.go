// Package plugin wires the teleport trigger and its helper chat commands onto
// the host's events.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/zeusync/simpleteleport/internal/config"
	"github.com/zeusync/simpleteleport/internal/core/events/bus"
	"github.com/zeusync/simpleteleport/internal/core/observability/log"
	"github.com/zeusync/simpleteleport/internal/core/teleport"
	"github.com/zeusync/simpleteleport/internal/host"
)

var _ host.Lifecycle = (*Plugin)(nil)

type Plugin struct {
	commands config.Commands
	host     host.Host
	bus      bus.EventBus
	logger   log.Log

	mu      sync.Mutex
	subs    []bus.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

func New(commands config.Commands, h host.Host, b bus.EventBus, logger log.Log) *Plugin {
	return &Plugin{
		commands: commands,
		host:     h,
		bus:      b,
		logger:   logger.With(log.String("component", "plugin")),
	}
}

// Init registers the handlers. ctx bounds host queries made by handlers until
// Stop.
func (p *Plugin) Init(ctx context.Context) (host.InitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return host.InitResult{}, ErrAlreadyStarted
	}
	if err := p.registerHandlers(); err != nil {
		p.unregisterHandlers()
		return host.InitResult{}, err
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	commands := []string{p.commands.Position, p.commands.Help}
	p.logger.Info("Plugin initialized", log.Strings("commands", commands))
	return host.InitResult{RegisteredCommands: commands}, nil
}

// Stop removes the handlers. Calling it more than once is harmless.
func (p *Plugin) Stop(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	p.unregisterHandlers()
	p.cancel()
	p.started = false
	p.logger.Info("Plugin stopped")
	return nil
}

func (p *Plugin) registerHandlers() error {
	handlers := []struct {
		eventType string
		handler   bus.EventHandler
	}{
		{host.CommandEventType(p.commands.Help), p.handleHelp},
		{host.CommandEventType(p.commands.Position), p.handlePosition},
		{host.EventInteract, p.handleInteract},
	}

	for _, h := range handlers {
		sub, err := p.bus.Subscribe(h.eventType, h.handler)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", h.eventType, err)
		}
		p.subs = append(p.subs, sub)
	}
	return nil
}

func (p *Plugin) unregisterHandlers() {
	for _, sub := range p.subs {
		if err := p.bus.Unsubscribe(sub); err != nil {
			p.logger.Warn("Failed to unsubscribe",
				log.String("event", sub.EventType()),
				log.Error(err))
		}
	}
	p.subs = nil
}

func (p *Plugin) lifetime() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

func (p *Plugin) handleHelp(e bus.Event) error {
	ev, err := commandPayload(e)
	if err != nil {
		return err
	}
	return p.host.Whisper(ev.Player, helpMessage)
}

func (p *Plugin) handlePosition(e bus.Event) error {
	ev, err := commandPayload(e)
	if err != nil {
		return err
	}

	pos, err := p.host.PlayerPosition(p.lifetime(), ev.Player)
	if err != nil {
		p.logger.Warn("Failed to get player position",
			log.String("player", ev.Player),
			log.Error(err))
		return fmt.Errorf("position of %s: %w", ev.Player, err)
	}
	return p.host.Whisper(ev.Player, positionMessage(pos))
}

func (p *Plugin) handleInteract(e bus.Event) error {
	ev, ok := e.Data().(host.InteractEvent)
	if !ok {
		return fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, e.Data(), e.Type())
	}

	req, ok := teleport.Match(ev.Message, ev.Player.Name, ev.Position)
	if !ok {
		return nil
	}

	line, err := ConsoleCommand(req)
	if err != nil {
		p.logger.Warn("Refusing teleport",
			log.String("player", ev.Player.Name),
			log.Error(err))
		return nil
	}
	if err = p.host.Writeln(line); err != nil {
		return fmt.Errorf("teleport %s: %w", req.Requester, err)
	}

	p.logger.Debug("Teleported player",
		log.String("player", req.Requester),
		log.Float64("x", req.Target.X()),
		log.Float64("y", req.Target.Y()),
		log.Float64("z", req.Target.Z()))
	return nil
}

func commandPayload(e bus.Event) (host.CommandEvent, error) {
	ev, ok := e.Data().(host.CommandEvent)
	if !ok {
		return host.CommandEvent{}, fmt.Errorf("%w: %T for %s", ErrUnexpectedPayload, e.Data(), e.Type())
	}
	return ev, nil
}
