// Package kitchenwatch periodically reports tickets that have waited longer
// than their station's alert threshold.
package kitchenwatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dinein/internal/clock"
	"github.com/smallbiznis/dinein/internal/config"
	"github.com/smallbiznis/dinein/internal/events"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	obscontext "github.com/smallbiznis/dinein/internal/observability/context"
	obslogger "github.com/smallbiznis/dinein/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/dinein/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const systemActor = "kitchenwatch"

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	KDS       kdsdomain.Service
	Publisher events.Publisher
	Kitchen   *config.KitchenConfigHolder
	Metrics   *obsmetrics.KitchenMetrics `optional:"true"`
}

// Watcher sweeps open tickets. A ticket is reported once per stale spell;
// it is reported again only after it stops being stale and goes stale anew.
type Watcher struct {
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	kds       kdsdomain.Service
	publisher events.Publisher
	kitchen   *config.KitchenConfigHolder
	metrics   *obsmetrics.KitchenMetrics

	mu       sync.Mutex
	reported map[snowflake.ID]struct{}
}

func New(p Params) *Watcher {
	return &Watcher{
		log:       p.Log.Named("kitchenwatch").With(zap.String("component", "kitchenwatch")),
		clock:     p.Clock,
		genID:     p.GenID,
		kds:       p.KDS,
		publisher: p.Publisher,
		kitchen:   p.Kitchen,
		metrics:   p.Metrics,
		reported:  make(map[snowflake.ID]struct{}),
	}
}

// RunOnce performs a single sweep and returns the tickets reported for the
// first time. A sweep that hits its timeout is logged and not treated as a
// failure.
func (w *Watcher) RunOnce(parent context.Context) ([]kdsdomain.StaleTicket, error) {
	cfg := w.kitchen.Get()
	start := w.clock.Now()

	ctx, cancel := context.WithTimeout(parent, cfg.SweepTimeout)
	defer cancel()
	ctx = obscontext.WithActor(ctx, systemActor)
	ctx = obscontext.WithRequestID(ctx, w.genID.Generate().String())
	log := obslogger.WithContext(ctx, w.log)

	w.metrics.IncSweepRun()
	fresh, backlog, err := w.sweep(ctx, start)
	w.metrics.ObserveSweepDuration(w.clock.Now().Sub(start))
	if err != nil {
		w.metrics.IncSweepError(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			w.metrics.IncSweepTimeout()
			log.Warn("stale ticket sweep timed out", zap.Duration("timeout", cfg.SweepTimeout), zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	w.metrics.ObserveStale(backlog, len(fresh))
	if len(fresh) > 0 {
		log.Info("stale tickets found", zap.Int("new", len(fresh)), zap.Int("backlog", backlog))
	}
	return fresh, nil
}

func (w *Watcher) sweep(ctx context.Context, now time.Time) ([]kdsdomain.StaleTicket, int, error) {
	stale, err := w.kds.FindStaleTickets(ctx, now)
	if err != nil {
		return nil, 0, err
	}

	w.mu.Lock()
	current := make(map[snowflake.ID]struct{}, len(stale))
	var fresh []kdsdomain.StaleTicket
	for _, st := range stale {
		current[st.Ticket.ID] = struct{}{}
		if _, seen := w.reported[st.Ticket.ID]; !seen {
			fresh = append(fresh, st)
		}
	}
	w.reported = current
	w.mu.Unlock()

	for _, st := range fresh {
		w.publish(ctx, st)
	}
	return fresh, len(stale), nil
}

func (w *Watcher) publish(ctx context.Context, st kdsdomain.StaleTicket) {
	data := events.TicketStale{
		TicketID:       st.Ticket.ID.String(),
		StationID:      st.Station.ID.String(),
		Status:         string(st.Ticket.Status),
		CreatedAt:      st.Ticket.CreatedAt,
		AgeMinutes:     int(st.Age / time.Minute),
		AlertThreshold: st.Station.AlertThreshold,
	}
	if st.Ticket.OrderID != nil {
		data.OrderID = st.Ticket.OrderID.String()
	}

	log := obslogger.WithTicket(obslogger.WithContext(ctx, w.log), st.Ticket.ID.Int64(), st.Station.ID.Int64())
	log.Warn("ticket past alert threshold",
		zap.String("station_code", st.Station.Code),
		zap.Int("ticket_number", st.Ticket.TicketNumber),
		zap.Duration("age", st.Age),
	)

	env, err := events.NewEnvelope(events.EventKitchenTicketStale, w.clock.Now(), data)
	if err == nil {
		err = w.publisher.Publish(ctx, events.KitchenTicketsTopic, env)
	}
	if err != nil {
		log.Warn("publish stale ticket", zap.Error(err))
	}
}

// RunForever sweeps until ctx is cancelled. The interval is re-read from the
// kitchen config after every sweep so reloads take effect without restart.
func (w *Watcher) RunForever(ctx context.Context) {
	interval := w.kitchen.Get().SweepInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()
	nextRun := w.clock.Now().Add(interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if lag := w.clock.Now().Sub(nextRun); lag > 0 {
			w.metrics.ObserveRunLoopLag(lag)
		}
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Warn("stale ticket sweep failed", zap.Error(err))
		}

		interval = w.kitchen.Get().SweepInterval
		nextRun = w.clock.Now().Add(interval)
		timer.Reset(interval)
	}
}
