package kitchenwatch

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("kitchenwatch",
	fx.Provide(New),
	fx.Invoke(startWatcher),
)

func startWatcher(lc fx.Lifecycle, w *Watcher) {
	var cancel context.CancelFunc
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				w.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
