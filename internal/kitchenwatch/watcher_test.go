package kitchenwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/dinein/internal/clock"
	"github.com/smallbiznis/dinein/internal/config"
	"github.com/smallbiznis/dinein/internal/events"
	kdsdomain "github.com/smallbiznis/dinein/internal/kds/domain"
	obsmetrics "github.com/smallbiznis/dinein/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKDS struct {
	kdsdomain.Service

	mu    sync.Mutex
	stale []kdsdomain.StaleTicket
	err   error
	calls int
}

func (f *fakeKDS) FindStaleTickets(_ context.Context, _ time.Time) ([]kdsdomain.StaleTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.stale, f.err
}

func (f *fakeKDS) set(stale []kdsdomain.StaleTicket, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stale, f.err = stale, err
}

func staleTicket(id int64) kdsdomain.StaleTicket {
	orderID := snowflake.ID(900)
	return kdsdomain.StaleTicket{
		Ticket: kdsdomain.Ticket{
			ID:           snowflake.ID(id),
			StationID:    10,
			OrderID:      &orderID,
			TicketNumber: int(id),
			Status:       kdsdomain.TicketStatusInProgress,
		},
		Station: kdsdomain.Station{ID: 10, Code: "grill", AlertThreshold: 15},
		Age:     17 * time.Minute,
	}
}

func newWatcher(t *testing.T, kds kdsdomain.Service, cfg config.KitchenConfig) (*Watcher, *events.Recorder) {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	recorder := &events.Recorder{}
	w := New(Params{
		Log:       zap.NewNop(),
		Clock:     clock.NewFakeClock(time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)),
		GenID:     node,
		KDS:       kds,
		Publisher: recorder,
		Kitchen:   config.NewStaticKitchenConfigHolder(cfg),
		Metrics:   obsmetrics.NewKitchenMetrics(prometheus.NewRegistry(), obsmetrics.Config{}),
	})
	return w, recorder
}

func TestRunOnceReportsEachStaleSpellOnce(t *testing.T) {
	kds := &fakeKDS{}
	w, recorder := newWatcher(t, kds, config.DefaultKitchenConfig())
	ctx := context.Background()

	kds.set([]kdsdomain.StaleTicket{staleTicket(1), staleTicket(2)}, nil)
	fresh, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	fresh, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	kds.set([]kdsdomain.StaleTicket{staleTicket(2)}, nil)
	_, err = w.RunOnce(ctx)
	require.NoError(t, err)

	kds.set([]kdsdomain.StaleTicket{staleTicket(1), staleTicket(2)}, nil)
	fresh, err = w.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, snowflake.ID(1), fresh[0].Ticket.ID)

	assert.Equal(t, []string{
		events.EventKitchenTicketStale,
		events.EventKitchenTicketStale,
		events.EventKitchenTicketStale,
	}, recorder.Types())
	assert.Equal(t, events.KitchenTicketsTopic, recorder.Messages()[0].Topic)
}

func TestRunOnceTreatsTimeoutAsSoftFailure(t *testing.T) {
	kds := &fakeKDS{}
	w, _ := newWatcher(t, kds, config.DefaultKitchenConfig())

	kds.set(nil, context.DeadlineExceeded)
	fresh, err := w.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, fresh)

	boom := errors.New("boom")
	kds.set(nil, boom)
	_, err = w.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	kds := &fakeKDS{}
	cfg := config.DefaultKitchenConfig()
	cfg.SweepInterval = 5 * time.Millisecond
	w, _ := newWatcher(t, kds, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.RunForever(ctx)
	}()

	require.Eventually(t, func() bool {
		kds.mu.Lock()
		defer kds.mu.Unlock()
		return kds.calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
