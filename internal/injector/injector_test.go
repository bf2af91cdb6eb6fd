package injector

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simpleteleport/internal/config"
	"github.com/zeusync/simpleteleport/internal/host"
	"github.com/zeusync/simpleteleport/internal/host/rpc"
)

func TestInitializeApp(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"

	app, err := InitializeApp(cfg, rpc.NewStdioTransport(strings.NewReader(""), io.Discard))
	require.NoError(t, err)
	require.NotNil(t, app.Logger)
	require.NotNil(t, app.Bus)
	require.NotNil(t, app.Client)
	require.NotNil(t, app.Plugin)

	res, err := app.Plugin.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"getposition", "helpsimpleteleport"}, res.RegisteredCommands)
	assert.Equal(t, 1, app.Bus.Subscribers(host.EventInteract))
	require.NoError(t, app.Plugin.Stop(context.Background()))

	assert.NoError(t, app.Client.Serve(context.Background(), app.Plugin))
}

func TestInitializeAppBadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "shouty"
	_, err := InitializeApp(cfg, rpc.NewStdioTransport(strings.NewReader(""), io.Discard))
	assert.Error(t, err)
}
