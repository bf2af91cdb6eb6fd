package injector

import (
	"github.com/zeusync/simpleteleport/internal/core/events/bus"
	"github.com/zeusync/simpleteleport/internal/core/observability/log"
	"github.com/zeusync/simpleteleport/internal/host/rpc"
	"github.com/zeusync/simpleteleport/internal/plugin"
)

// App is everything the plugin process needs to serve its host.
type App struct {
	Logger *log.Logger
	Bus    bus.EventBus
	Client *rpc.Client
	Plugin *plugin.Plugin
}

// ProvideBus returns an event bus that logs its deliveries.
func ProvideBus(logger log.Log) bus.EventBus {
	b := bus.New()
	b.AddObserver(bus.NewLogObserver(logger))
	return b
}
