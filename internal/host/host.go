// Package host describes the server-management framework the plugin runs
// inside: the events it emits and the actions the plugin can ask of it.
package host

import (
	"context"
	"strings"

	"github.com/zeusync/simpleteleport/internal/core/teleport"
)

const (
	// EventInteract fires when a player interacts with a brick whose
	// interact component prints to console.
	EventInteract = "interact"

	commandEventPrefix = "cmd:"
)

// CommandEventType is the event fired when a player runs the chat command
// /name.
func CommandEventType(name string) string {
	return commandEventPrefix + name
}

// CommandName reports the chat command behind a command event type.
func CommandName(eventType string) (string, bool) {
	if !strings.HasPrefix(eventType, commandEventPrefix) {
		return "", false
	}
	name := eventType[len(commandEventPrefix):]
	return name, name != ""
}

type Player struct {
	Name       string `json:"name"`
	ID         string `json:"id"`
	Controller string `json:"controller,omitempty"`
}

// InteractEvent is the payload of EventInteract.
type InteractEvent struct {
	Player   Player            `json:"player"`
	Position teleport.Position `json:"position"`
	Message  string            `json:"message"`
}

// CommandEvent is the payload of a command event.
type CommandEvent struct {
	Player string
	Args   []string
}

// InitResult tells the host which chat commands the plugin answers, so it
// stops replying "command not found" for them.
type InitResult struct {
	RegisteredCommands []string `json:"registeredCommands"`
}

// Lifecycle is driven by the host's init and stop requests.
type Lifecycle interface {
	Init(ctx context.Context) (InitResult, error)
	Stop(ctx context.Context) error
}

// Host is what the plugin may ask of the framework.
type Host interface {
	// Writeln writes one line to the game server console. Nothing is
	// acknowledged.
	Writeln(line string) error
	// Whisper sends a rich-text message to a single player.
	Whisper(target, message string) error
	// PlayerPosition looks up where a player currently is.
	PlayerPosition(ctx context.Context, name string) (teleport.Position, error)
}
