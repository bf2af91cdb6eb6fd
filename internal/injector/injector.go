//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/simpleteleport/internal/config"
	"github.com/zeusync/simpleteleport/internal/core/observability/log"
	"github.com/zeusync/simpleteleport/internal/host"
	"github.com/zeusync/simpleteleport/internal/host/rpc"
	"github.com/zeusync/simpleteleport/internal/plugin"
)

func InitializeApp(cfg config.Config, transport rpc.Transport) (*App, error) {
	wire.Build(
		wire.FieldsOf(new(config.Config), "Log", "Commands", "RPC"),
		log.New,
		wire.Bind(new(log.Log), new(*log.Logger)),
		ProvideBus,
		rpc.NewClient,
		wire.Bind(new(host.Host), new(*rpc.Client)),
		plugin.New,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
