package bus

import (
	"time"

	"github.com/zeusync/simpleteleport/internal/core/observability/log"
)

var _ EventBusObserver = (*LogObserver)(nil)

// LogObserver writes a debug line per delivery and a warning when handlers fail.
type LogObserver struct {
	logger log.Log
}

func NewLogObserver(logger log.Log) *LogObserver {
	return &LogObserver{logger: logger.With(log.String("component", "bus"))}
}

func (o *LogObserver) OnPublish(eventType string, event Event) {
	o.logger.Debug("Event published",
		log.String("type", eventType),
		log.String("source", event.Source()))
}

func (o *LogObserver) OnDelivered(eventType string, handlers int, err error, duration time.Duration) {
	if err != nil {
		o.logger.Warn("Event handlers failed",
			log.String("type", eventType),
			log.Int("handlers", handlers),
			log.Duration("took", duration),
			log.Error(err))
		return
	}
	o.logger.Debug("Event delivered",
		log.String("type", eventType),
		log.Int("handlers", handlers),
		log.Duration("took", duration))
}
