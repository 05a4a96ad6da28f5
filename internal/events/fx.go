package events

import (
	"context"

	"github.com/smallbiznis/dinein/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	log = log.Named("events")
	if cfg.NATSURL == "" {
		log.Info("NATS_URL not set, kitchen events are not published")
		return NewNoopPublisher(log), nil
	}

	pub, err := NewNATSPublisher(cfg.NATSURL, cfg.AppName, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}
