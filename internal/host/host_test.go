package host

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simpleteleport/internal/core/teleport"
)

func TestCommandEventType(t *testing.T) {
	assert.Equal(t, "cmd:getposition", CommandEventType("getposition"))

	name, ok := CommandName("cmd:helpsimpleteleport")
	assert.True(t, ok)
	assert.Equal(t, "helpsimpleteleport", name)

	_, ok = CommandName("cmd:")
	assert.False(t, ok)
	_, ok = CommandName(EventInteract)
	assert.False(t, ok)
}

func TestInteractEventDecoding(t *testing.T) {
	raw := `{"player":{"name":"Alice","id":"a-1","controller":"c-1"},"position":[1.5,-2,300],"message":"teleport:1,2,3"}`
	var ev InteractEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	assert.Equal(t, "Alice", ev.Player.Name)
	assert.Equal(t, "a-1", ev.Player.ID)
	assert.Equal(t, teleport.NewPosition(1.5, -2, 300), ev.Position)
	assert.Equal(t, "teleport:1,2,3", ev.Message)
}
